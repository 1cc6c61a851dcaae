// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"flag"
)

// DecoderConfig 解码配置
type DecoderConfig struct {
	// ChromaSwap 交换 Cb/Cr 平面，与上游的平面顺序保持一致
	ChromaSwap bool `json:"chroma_swap"`
}

func (c *DecoderConfig) initFlags() {
	flag.BoolVar(&c.ChromaSwap, "decoder-chromaswap", true,
		"Determines if the Cb and Cr planes are swapped before color conversion")
}

// PublisherConfig JPEG 编码配置
type PublisherConfig struct {
	Quality int `json:"quality"` // 1-100
}

func (c *PublisherConfig) initFlags() {
	flag.IntVar(&c.Quality, "jpeg-quality", 75,
		"Set the JPEG quality (1-100)")
}
