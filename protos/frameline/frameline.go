// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package frameline implements the line-delimited frame record protocol.
//
// Each record is one ASCII line:
//
//	base64(jpeg) "$" base64(decimal timecode) "$" base64(fragment) "\n"
//
// All fields use standard padded base64, whose alphabet excludes both
// the field separator and the line terminator.
package frameline

import (
	"bufio"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/cnotch/framecast/utils/scan"
)

// 协议常量
const (
	FieldSeparator = '$'
	Terminator     = '\n'
	FieldCount     = 3
)

// ErrMalformed 记录格式错误
var ErrMalformed = errors.New("frameline: malformed record")

var b64 = base64.StdEncoding

// Record 一条帧记录
type Record struct {
	Image    []byte // JPEG
	Timecode int64
	Fragment string
}

// AppendRecord 追加一条完整的记录（含换行）到 dst
func AppendRecord(dst []byte, jpeg []byte, timecode int64, fragment string) []byte {
	tc := strconv.FormatInt(timecode, 10)

	n := len(dst) + b64.EncodedLen(len(jpeg)) + b64.EncodedLen(len(tc)) +
		b64.EncodedLen(len(fragment)) + FieldCount
	if cap(dst) < n {
		buf := make([]byte, len(dst), n)
		copy(buf, dst)
		dst = buf
	}

	dst = appendBase64(dst, jpeg)
	dst = append(dst, FieldSeparator)
	dst = appendBase64(dst, []byte(tc))
	dst = append(dst, FieldSeparator)
	dst = appendBase64(dst, []byte(fragment))
	return append(dst, Terminator)
}

func appendBase64(dst, src []byte) []byte {
	start := len(dst)
	dst = dst[:start+b64.EncodedLen(len(src))]
	b64.Encode(dst[start:], src)
	return dst
}

// Marshal 序列化记录
func (r *Record) Marshal() []byte {
	return AppendRecord(nil, r.Image, r.Timecode, r.Fragment)
}

// ParseRecord 解析一行记录，行尾的 "\n" 或 "\r\n" 可有可无。
// 字段数必须正好为 3。
func ParseRecord(line []byte) (*Record, error) {
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}

	fields := scan.Dollar.Split(string(line), 0)
	if len(fields) != FieldCount {
		return nil, fmt.Errorf("%w: %d fields", ErrMalformed, len(fields))
	}

	image, err := b64.DecodeString(fields[0])
	if err != nil {
		return nil, fmt.Errorf("%w: image: %v", ErrMalformed, err)
	}
	tc, err := b64.DecodeString(fields[1])
	if err != nil {
		return nil, fmt.Errorf("%w: timecode: %v", ErrMalformed, err)
	}
	timecode, err := strconv.ParseInt(string(tc), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: timecode %q", ErrMalformed, tc)
	}
	fragment, err := b64.DecodeString(fields[2])
	if err != nil {
		return nil, fmt.Errorf("%w: fragment: %v", ErrMalformed, err)
	}

	return &Record{
		Image:    image,
		Timecode: timecode,
		Fragment: string(fragment),
	}, nil
}

// Reader 从流中逐行读取记录
type Reader struct {
	r *bufio.Reader
}

// NewReader 创建记录读取器
func NewReader(r io.Reader) *Reader {
	if br, ok := r.(*bufio.Reader); ok {
		return &Reader{r: br}
	}
	return &Reader{r: bufio.NewReaderSize(r, 64*1024)}
}

// ReadRecord 读取下一条记录。
// 流正常结束返回 io.EOF；最后一行不完整返回 io.ErrUnexpectedEOF。
func (r *Reader) ReadRecord() (*Record, error) {
	line, err := r.r.ReadBytes(Terminator)
	if err != nil {
		if err == io.EOF && len(line) > 0 {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return ParseRecord(line)
}
