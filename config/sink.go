// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"flag"
	"fmt"
	"time"
)

// 输出方式
const (
	SinkDial      = "dial"      // 主动连接消费端
	SinkListen    = "listen"    // 等待消费端接入
	SinkWebsocket = "websocket" // 连接 ws(s):// 消费端
	SinkStdout    = "stdout"    // 写到标准输出
)

// SinkConfig 帧记录输出配置
type SinkConfig struct {
	Mode          string `json:"mode"`           // dial | listen | websocket | stdout
	Addr          string `json:"addr"`           // 地址，默认端口 2009
	AwaitGreeting bool   `json:"await_greeting"` // dial 后等待消费端问候行
	LocalOnly     bool   `json:"local_only"`     // listen 时只接受本机消费端
	BufferSize    int    `json:"buffer_size"`    // 写缓冲大小
	WriteTimeout  int    `json:"write_timeout"`  // 写超时（秒），0 不限制
}

func (c *SinkConfig) initFlags() {
	flag.StringVar(&c.Mode, "sink", SinkDial,
		"Set how records reach the consumer (dial|listen|websocket|stdout)")
	flag.StringVar(&c.Addr, "sink-addr", "127.0.0.1:2009",
		"Set the consumer address")
	flag.BoolVar(&c.AwaitGreeting, "sink-greeting", true,
		"Determines if a greeting line is read from the consumer before the first record")
	flag.BoolVar(&c.LocalOnly, "sink-localonly", false,
		"Determines if only local consumers are accepted")
	flag.IntVar(&c.BufferSize, "sink-buffer", 256*1024,
		"Set the sink write buffer size in bytes")
	flag.IntVar(&c.WriteTimeout, "sink-timeout", 30,
		"Set the sink write timeout in seconds, 0 disables")
}

// Timeout 写超时
func (c *SinkConfig) Timeout() time.Duration {
	return time.Duration(c.WriteTimeout) * time.Second
}

// Validate 校验输出配置
func (c *SinkConfig) Validate() error {
	switch c.Mode {
	case SinkDial, SinkListen, SinkWebsocket, SinkStdout:
		return nil
	default:
		return fmt.Errorf("config: unsupported sink %q", c.Mode)
	}
}
