// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"flag"
)

// config 服务配置
type config struct {
	Source    SourceConfig    `json:"source"`    // 帧来源
	Sink      SinkConfig      `json:"sink"`      // 帧记录输出
	Decoder   DecoderConfig   `json:"decoder"`   // 解码
	Publisher PublisherConfig `json:"publisher"` // JPEG 编码
	HTTP      HTTPConfig      `json:"http"`      // 诊断接口
	Progress  int             `json:"progress"`  // 进度日志间隔（秒），0 不输出
	Log       LogConfig       `json:"log"`       // 日志配置
}

func (c *config) initFlags() {
	c.Source.initFlags()
	c.Sink.initFlags()
	c.Decoder.initFlags()
	c.Publisher.initFlags()
	c.HTTP.initFlags()

	flag.IntVar(&c.Progress, "progress", 10,
		"Set the interval in seconds between progress log lines, 0 disables")

	// 初始化日志配置
	c.Log.initFlags()
}
