// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mkv

import (
	"bytes"
	"encoding/binary"

	"github.com/remko/go-mkvparse"
)

// 测试用的最小 EBML 编码器，元素大小统一用 8 字节 vint

func element(id mkvparse.ElementID, children ...[]byte) []byte {
	var payload []byte
	for _, c := range children {
		payload = append(payload, c...)
	}
	return raw(id, payload)
}

func raw(id mkvparse.ElementID, payload []byte) []byte {
	var buf bytes.Buffer
	v := uint32(id)
	switch {
	case v > 0xffffff:
		buf.Write([]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
	case v > 0xffff:
		buf.Write([]byte{byte(v >> 16), byte(v >> 8), byte(v)})
	case v > 0xff:
		buf.Write([]byte{byte(v >> 8), byte(v)})
	default:
		buf.WriteByte(byte(v))
	}

	var size [8]byte
	binary.BigEndian.PutUint64(size[:], uint64(len(payload)))
	size[0] = 0x01
	buf.Write(size[:])
	buf.Write(payload)
	return buf.Bytes()
}

func uintElement(id mkvparse.ElementID, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return raw(id, b[:])
}

func stringElement(id mkvparse.ElementID, s string) []byte {
	return raw(id, []byte(s))
}

func ebmlHeader() []byte {
	return element(idEBML,
		uintElement(0x4286, 1), // EBMLVersion
		stringElement(0x4282, "matroska"))
}

func trackEntry(number uint64, codecID string, private []byte, w, h uint64) []byte {
	children := [][]byte{
		uintElement(idTrackNumber, number),
		stringElement(idCodecID, codecID),
	}
	if private != nil {
		children = append(children, raw(idCodecPrivate, private))
	}
	if w > 0 {
		children = append(children, element(idVideo,
			uintElement(idPixelWidth, w),
			uintElement(idPixelHeight, h)))
	}
	return element(idTrackEntry, children...)
}

func simpleTags(pairs ...string) []byte {
	var tags [][]byte
	for i := 0; i+1 < len(pairs); i += 2 {
		tags = append(tags, element(idSimpleTag,
			stringElement(idTagName, pairs[i]),
			stringElement(idTagString, pairs[i+1])))
	}
	return element(idTags, element(idTag, tags...))
}

func simpleBlock(track byte, timecode int16, flags byte, payload []byte) []byte {
	data := []byte{0x80 | track, byte(uint16(timecode) >> 8), byte(timecode), flags}
	return raw(idSimpleBlock, append(data, payload...))
}

func blockGroup(track byte, timecode int16, payload []byte) []byte {
	data := []byte{0x80 | track, byte(uint16(timecode) >> 8), byte(timecode), 0}
	return element(idBlockGroup, raw(idBlock, append(data, payload...)))
}
