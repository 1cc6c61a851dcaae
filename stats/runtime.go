// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stats

import (
	"runtime"
	"time"

	"github.com/kelindar/process"
)

// 启动时间
var (
	StartingTime = time.Now()
)

// Proc 进程信息统计
type Proc struct {
	CPU    float64 `json:"cpu"`    // cpu使用情况
	Priv   int32   `json:"priv"`   // 私有内存 KB
	Virt   int32   `json:"virt"`   // 虚拟内存 KB
	Uptime int32   `json:"uptime"` // 运行时间 S
}

// Runtime Go 运行时统计，单位 KB
type Runtime struct {
	HeapInuse   int32   `json:"heap_inuse"`
	HeapAlloc   int32   `json:"heap_alloc"`
	HeapObjects int32   `json:"heap_objects"`
	StackInuse  int32   `json:"stack_inuse"`
	Sys         int32   `json:"sys"`
	TotalAlloc  int32   `json:"total_alloc"`
	NumGC       uint32  `json:"num_gc"`
	GCCPU       float64 `json:"gc_cpu"`
	Goroutines  int32   `json:"goroutines"`
	CPUs        int32   `json:"cpus"`
}

// MeasureRuntime 获取进程信息。
func MeasureRuntime() Proc {
	defer recover()
	var memoryPriv, memoryVirtual int64
	var cpu float64
	process.ProcUsage(&cpu, &memoryPriv, &memoryVirtual)
	return Proc{
		CPU:    cpu,
		Priv:   toKB(uint64(memoryPriv)),
		Virt:   toKB(uint64(memoryVirtual)),
		Uptime: int32(time.Since(StartingTime).Seconds()),
	}
}

// MeasureFullRuntime 获取 Go 运行时信息。
func MeasureFullRuntime() *Runtime {
	var memory runtime.MemStats
	runtime.ReadMemStats(&memory)

	return &Runtime{
		HeapInuse:   toKB(memory.HeapInuse),
		HeapAlloc:   toKB(memory.HeapAlloc),
		HeapObjects: int32(memory.HeapObjects),
		StackInuse:  toKB(memory.StackInuse),
		Sys:         toKB(memory.Sys),
		TotalAlloc:  toKB(memory.TotalAlloc),
		NumGC:       memory.NumGC,
		GCCPU:       memory.GCCPUFraction,
		Goroutines:  int32(runtime.NumGoroutine()),
		CPUs:        int32(runtime.NumCPU()),
	}
}

// Converts the memory in bytes to KBs, otherwise it would overflow our int32
func toKB(v uint64) int32 {
	return int32(v / 1024)
}
