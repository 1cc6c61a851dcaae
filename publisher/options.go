// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package publisher

import (
	"image/jpeg"

	"github.com/cnotch/xlog"
)

// Option 配置 Publisher 的选项接口
type Option interface {
	apply(*Publisher)
}

// optionFunc 包装函数以便它满足 Option 接口
type optionFunc func(*Publisher)

func (f optionFunc) apply(p *Publisher) {
	f(p)
}

// Quality JPEG 压缩质量，1~100，超出范围时使用默认值
func Quality(q int) Option {
	return optionFunc(func(p *Publisher) {
		if q < 1 || q > 100 {
			q = jpeg.DefaultQuality
		}
		p.quality = q
	})
}

// Logger 日志选项
func Logger(logger *xlog.Logger) Option {
	return optionFunc(func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	})
}
