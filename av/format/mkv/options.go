// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mkv

import "github.com/cnotch/xlog"

// Option 配置 Reader 的选项接口
type Option interface {
	apply(*Reader)
}

// optionFunc 包装函数以便它满足 Option 接口
type optionFunc func(*Reader)

func (f optionFunc) apply(r *Reader) {
	f(r)
}

// ClusterFragments 流中没有片段标签时，把每个 Cluster 当作一个片段，
// 编号为 Cluster 序号，服务端时间戳为 Cluster 时间码（毫秒）。
func ClusterFragments(enable bool) Option {
	return optionFunc(func(r *Reader) {
		r.clusterFragments = enable
	})
}

// Logger 日志选项
func Logger(logger *xlog.Logger) Option {
	return optionFunc(func(r *Reader) {
		if logger != nil {
			r.logger = logger
		}
	})
}
