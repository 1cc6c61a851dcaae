// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"flag"
)

// HTTPConfig 诊断接口配置
type HTTPConfig struct {
	Listen  string `json:"listen"`  // 侦听地址，空表示不启动
	Profile bool   `json:"profile"` // 是否启动 pprof
}

func (c *HTTPConfig) initFlags() {
	flag.StringVar(&c.Listen, "http", "",
		"Set the diagnostics http listen address, empty disables")
	flag.BoolVar(&c.Profile, "pprof", false,
		"Determines if profile enabled")
}
