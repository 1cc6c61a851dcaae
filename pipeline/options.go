// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"github.com/cnotch/framecast/av/decoder"
	"github.com/cnotch/xlog"
)

// Option 配置 Pipeline 的选项接口
type Option interface {
	apply(*Pipeline)
}

// optionFunc 包装函数以便它满足 Option 接口
type optionFunc func(*Pipeline)

func (f optionFunc) apply(p *Pipeline) {
	f(p)
}

// DecoderOptions 每个轨道解码器的选项
func DecoderOptions(opts ...decoder.Option) Option {
	return optionFunc(func(p *Pipeline) {
		p.decoderOpts = append(p.decoderOpts, opts...)
	})
}

// Logger 日志选项
func Logger(logger *xlog.Logger) Option {
	return optionFunc(func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	})
}
