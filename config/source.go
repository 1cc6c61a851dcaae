// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"flag"
	"fmt"
	"strings"
)

// 来源格式
const (
	FormatMKV = "mkv" // Matroska/WebM 字节流
	FormatRTP = "rtp" // RTP/H.264，配合 SDP
)

// SourceConfig 帧来源配置
type SourceConfig struct {
	// URL 文件路径、"-"（标准输入）或 http(s):// 地址；
	// rtp 格式下为 udp 监听地址，或 "-"/文件路径（RTSP 交织流）
	URL string `json:"url"`

	// Format 来源格式 mkv | rtp
	Format string `json:"format"`

	// ClusterFragments 没有 Kinesis 片段标签时，每个 Cluster 作为一个片段
	ClusterFragments bool `json:"cluster_fragments"`

	// SDP rtp 格式下的会话描述文件
	SDP string `json:"sdp,omitempty"`

	// Channel RTSP 交织流的视频通道号
	Channel int `json:"channel"`
}

func (c *SourceConfig) initFlags() {
	flag.StringVar(&c.URL, "source", "-",
		"Set the frame source: file path, - for stdin, http(s) url, or udp address for rtp")
	flag.StringVar(&c.Format, "source-format", FormatMKV,
		"Set the source format (mkv|rtp)")
	flag.BoolVar(&c.ClusterFragments, "source-cluster-fragments", false,
		"Determines if each cluster opens a fragment when the stream has no fragment tags")
	flag.StringVar(&c.SDP, "source-sdp", "",
		"Set the SDP file describing the rtp source")
	flag.IntVar(&c.Channel, "source-channel", 0,
		"Set the interleaved channel carrying video rtp")
}

// IsRemote 来源是否为 http(s)
func (c *SourceConfig) IsRemote() bool {
	return strings.HasPrefix(c.URL, "http://") || strings.HasPrefix(c.URL, "https://")
}

// Validate 校验来源配置
func (c *SourceConfig) Validate() error {
	switch c.Format {
	case FormatMKV:
	case FormatRTP:
		if c.SDP == "" {
			return fmt.Errorf("config: rtp source needs -source-sdp")
		}
	default:
		return fmt.Errorf("config: unsupported source format %q", c.Format)
	}
	if c.URL == "" {
		return fmt.Errorf("config: empty source")
	}
	return nil
}
