// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package codec

import (
	"sort"
	"strconv"
	"strings"

	"github.com/cnotch/framecast/utils/scan"
)

// TrackMeta 轨道元数据，轨道开始后不再变化
type TrackMeta struct {
	Number       uint64 `json:"number"`
	CodecID      string `json:"codec"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	CodecPrivate []byte `json:"-"` // AVCDecoderConfigurationRecord
}

// FragmentMeta 片段元数据，描述一组帧所在的容器片段
type FragmentMeta struct {
	Number            string            `json:"number"`
	ServerTimestamp   int64             `json:"server_ts,omitempty"`   // ms
	ProducerTimestamp int64             `json:"producer_ts,omitempty"` // ms
	ErrorCode         int64             `json:"error_code,omitempty"`
	Tags              map[string]string `json:"tags,omitempty"`
}

// String 线路上传输的文本形式。
// 只有编号时返回编号本身，否则追加 key=value 字段。
func (m FragmentMeta) String() string {
	var sb strings.Builder
	sb.WriteString(m.Number)
	if m.ServerTimestamp != 0 {
		sb.WriteString(",server_ts=")
		sb.WriteString(strconv.FormatInt(m.ServerTimestamp, 10))
	}
	if m.ProducerTimestamp != 0 {
		sb.WriteString(",producer_ts=")
		sb.WriteString(strconv.FormatInt(m.ProducerTimestamp, 10))
	}
	if m.ErrorCode != 0 {
		sb.WriteString(",error_code=")
		sb.WriteString(strconv.FormatInt(m.ErrorCode, 10))
	}

	if len(m.Tags) > 0 {
		names := make([]string, 0, len(m.Tags))
		for name := range m.Tags {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			sb.WriteByte(',')
			sb.WriteString(name)
			sb.WriteByte('=')
			sb.WriteString(m.Tags[name])
		}
	}
	return sb.String()
}

// ParseFragmentMeta 解析 String 输出的文本形式。
// 数字字段格式错误时保留为标签。
func ParseFragmentMeta(s string) FragmentMeta {
	advance, number, ok := scan.Comma.Scan(s)
	meta := FragmentMeta{Number: number}

	for ok {
		var token string
		advance, token, ok = scan.Comma.Scan(advance)
		key, value, found := scan.EqualPair.Scan(token)
		if !found {
			continue
		}

		var err error
		switch key {
		case "server_ts":
			meta.ServerTimestamp, err = strconv.ParseInt(value, 10, 64)
		case "producer_ts":
			meta.ProducerTimestamp, err = strconv.ParseInt(value, 10, 64)
		case "error_code":
			meta.ErrorCode, err = strconv.ParseInt(value, 10, 64)
		default:
			err = strconv.ErrSyntax
		}
		if err != nil {
			if meta.Tags == nil {
				meta.Tags = make(map[string]string)
			}
			meta.Tags[key] = value
		}
	}
	return meta
}

// OptionalFragment 可缺失的片段元数据。
// 零值表示缺失，调用方必须通过 Get 显式处理。
type OptionalFragment struct {
	meta    FragmentMeta
	present bool
}

// SomeFragment 存在的片段元数据
func SomeFragment(meta FragmentMeta) OptionalFragment {
	return OptionalFragment{meta: meta, present: true}
}

// NoFragment 缺失的片段元数据
func NoFragment() OptionalFragment {
	return OptionalFragment{}
}

// Get 返回片段元数据及其是否存在
func (o OptionalFragment) Get() (FragmentMeta, bool) {
	return o.meta, o.present
}

// Present .
func (o OptionalFragment) Present() bool {
	return o.present
}
