// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	cfg "github.com/cnotch/loader"
	"github.com/cnotch/xlog"
)

// 服务名
const (
	Vendor  = "CAOHONGJU"
	Name    = "framecast"
	Version = "V1.0.0"
)

var (
	globalC *config
)

// InitConfig 初始化 Config
func InitConfig() {
	exe, err := os.Executable()
	if err != nil {
		xlog.Panic(err.Error())
	}

	configPath := filepath.Join(filepath.Dir(exe), Name+".conf")

	globalC = new(config)
	globalC.initFlags()

	// 创建或加载配置文件
	if err := cfg.Load(globalC,
		&cfg.JSONLoader{Path: configPath, CreatedIfNonExsit: true},
		&cfg.EnvLoader{Prefix: strings.ToUpper(Name)},
		&cfg.FlagLoader{}); err != nil {
		// 异常，直接退出
		xlog.Panic(err.Error())
	}

	if globalC.Source.SDP != "" {
		globalC.Source.SDP = resolvePath(globalC.Source.SDP)
	}

	// 初始化日志
	globalC.Log.initLogger()
}

// Validate 校验全部配置
func Validate() error {
	if globalC == nil {
		return nil
	}
	if err := globalC.Source.Validate(); err != nil {
		return err
	}
	return globalC.Sink.Validate()
}

// Source 来源配置
func Source() SourceConfig {
	if globalC == nil {
		return SourceConfig{URL: "-", Format: FormatMKV}
	}
	return globalC.Source
}

// Sink 输出配置
func Sink() SinkConfig {
	if globalC == nil {
		return SinkConfig{Mode: SinkDial, Addr: "127.0.0.1:2009", AwaitGreeting: true}
	}
	return globalC.Sink
}

// ChromaSwap 是否交换色度平面
func ChromaSwap() bool {
	if globalC == nil {
		return true
	}
	return globalC.Decoder.ChromaSwap
}

// JPEGQuality JPEG 质量
func JPEGQuality() int {
	if globalC == nil || globalC.Publisher.Quality < 1 || globalC.Publisher.Quality > 100 {
		return 75
	}
	return globalC.Publisher.Quality
}

// HTTPAddr 诊断接口地址
func HTTPAddr() string {
	if globalC == nil {
		return ""
	}
	return globalC.HTTP.Listen
}

// Profile 是否启动 Http Profile
func Profile() bool {
	if globalC == nil {
		return false
	}
	return globalC.HTTP.Profile
}

// ProgressInterval 进度日志间隔，0 表示不输出
func ProgressInterval() time.Duration {
	if globalC == nil || globalC.Progress <= 0 {
		return 0
	}
	return time.Duration(globalC.Progress) * time.Second
}

// NetTimeout 返回网络超时设置
func NetTimeout() time.Duration {
	return time.Second * 45
}

func resolvePath(path string) string {
	// Make sure the path is absolute
	path, _ = filepath.Abs(path)
	return path
}
