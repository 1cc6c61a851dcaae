// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package decoder

import "github.com/cnotch/xlog"

// Option 配置 Decoder 的选项接口
type Option interface {
	apply(*Decoder)
}

// optionFunc 包装函数以便它满足 Option 接口
type optionFunc func(*Decoder)

func (f optionFunc) apply(d *Decoder) {
	f(d)
}

// WithChromaSwap 颜色转换前是否交换 Cb/Cr 平面，默认开启。
// 上游编码器把两个色度平面标反了，交换后颜色才正确。
func WithChromaSwap(swap bool) Option {
	return optionFunc(func(d *Decoder) {
		d.chromaSwap = swap
	})
}

// WithLogger 日志选项
func WithLogger(logger *xlog.Logger) Option {
	return optionFunc(func(d *Decoder) {
		if logger != nil {
			d.logger = logger
		}
	})
}
