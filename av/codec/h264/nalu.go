// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package h264

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

var startCode = []byte{0x00, 0x00, 0x00, 0x01}

// SplitNALUs 将长度前缀（AVCC/MP4）存储的访问单元拆分为 NAL 单元序列。
// lengthSize 为 AVCDecoderConfigurationRecord 中的 lengthSizeMinusOne + 1。
// 返回的切片引用 payload 的内存，不做拷贝。
func SplitNALUs(payload []byte, lengthSize int) ([][]byte, error) {
	if lengthSize != 1 && lengthSize != 2 && lengthSize != 4 {
		return nil, fmt.Errorf("invalid nalu length size %d", lengthSize)
	}
	if len(payload) == 0 {
		return nil, errors.New("empty access unit")
	}

	nalus := make([][]byte, 0, 4)
	for offset := 0; offset < len(payload); {
		if len(payload)-offset < lengthSize {
			return nil, fmt.Errorf("truncated nalu length at offset %d", offset)
		}

		var size int
		switch lengthSize {
		case 1:
			size = int(payload[offset])
		case 2:
			size = int(binary.BigEndian.Uint16(payload[offset:]))
		case 4:
			size = int(binary.BigEndian.Uint32(payload[offset:]))
		}
		offset += lengthSize

		if size == 0 {
			return nil, fmt.Errorf("zero length nalu at offset %d", offset-lengthSize)
		}
		if size > len(payload)-offset {
			return nil, fmt.Errorf("nalu size %d exceeds remaining %d bytes", size, len(payload)-offset)
		}
		nalus = append(nalus, payload[offset:offset+size])
		offset += size
	}
	return nalus, nil
}

// AppendAVCC 以 4 字节长度前缀的形式追加 NAL 单元
func AppendAVCC(dst []byte, nalus ...[]byte) []byte {
	var prefix [4]byte
	for _, nalu := range nalus {
		binary.BigEndian.PutUint32(prefix[:], uint32(len(nalu)))
		dst = append(dst, prefix[:]...)
		dst = append(dst, nalu...)
	}
	return dst
}

// AppendAnnexB 以起始码 0x00000001 分隔的形式追加 NAL 单元
func AppendAnnexB(dst []byte, nalus ...[]byte) []byte {
	for _, nalu := range nalus {
		dst = append(dst, startCode...)
		dst = append(dst, nalu...)
	}
	return dst
}

// RemoveEmulationBytes 移除 NAL 单元中的防竞争字节（0x000003 -> 0x0000）,
// 返回拷贝。copy from live555
func RemoveEmulationBytes(from []byte) []byte {
	from = RemoveNaluSeparator(from)
	to := make([]byte, 0, len(from))
	for i := 0; i < len(from); {
		if i+2 < len(from) && from[i] == 0 && from[i+1] == 0 && from[i+2] == 3 {
			to = append(to, 0, 0)
			i += 3
			continue
		}
		to = append(to, from[i])
		i++
	}
	return to
}

// RemoveNaluSeparator 移除 NALU 分隔符 0x00000001 或 0x000001
func RemoveNaluSeparator(nalu []byte) []byte {
	if bytes.HasPrefix(nalu, startCode) {
		return nalu[4:]
	}
	if bytes.HasPrefix(nalu, startCode[1:]) {
		return nalu[3:]
	}
	return nalu
}
