// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mkv

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrLacing 不支持 Block 分组（lacing）
var ErrLacing = errors.New("mkv: laced blocks are not supported")

type block struct {
	track    uint64
	timecode int16 // 相对 Cluster 的时间码
	keyframe bool
	payload  []byte
}

// parseBlock 解析 SimpleBlock 或 Block 的头部
func parseBlock(data []byte, simple bool) (*block, error) {
	track, n, err := readVint(data)
	if err != nil {
		return nil, err
	}
	data = data[n:]
	if len(data) < 3 {
		return nil, errors.New("mkv: block header truncated")
	}

	flags := data[2]
	if flags&0x06 != 0 {
		return nil, ErrLacing
	}

	return &block{
		track:    track,
		timecode: int16(binary.BigEndian.Uint16(data)),
		keyframe: simple && flags&0x80 != 0,
		payload:  data[3:],
	}, nil
}

// readVint 读取 EBML 变长整数，去掉长度标记位
func readVint(data []byte) (value uint64, n int, err error) {
	if len(data) == 0 {
		return 0, 0, errors.New("mkv: empty vint")
	}

	first := data[0]
	n = 1
	mask := byte(0x80)
	for n <= 8 && first&mask == 0 {
		mask >>= 1
		n++
	}
	if n > 8 {
		return 0, 0, errors.New("mkv: invalid vint")
	}
	if len(data) < n {
		return 0, 0, fmt.Errorf("mkv: vint needs %d bytes", n)
	}

	value = uint64(first & (mask - 1))
	for i := 1; i < n; i++ {
		value = value<<8 | uint64(data[i])
	}
	return value, n, nil
}
