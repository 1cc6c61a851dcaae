// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package publisher

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"sync/atomic"

	"github.com/cnotch/framecast/av/codec"
	"github.com/cnotch/framecast/protos/frameline"
	"github.com/cnotch/xlog"
)

// 发布错误
var (
	// ErrMissingFragment 帧缺少片段元数据
	ErrMissingFragment = errors.New("publisher: missing fragment metadata")
	// ErrInvalidFrame 图像或帧为空
	ErrInvalidFrame = errors.New("publisher: nil image or frame")
	// ErrSinkWrite 写入或刷新 Sink 失败，发布器不可再用
	ErrSinkWrite = errors.New("publisher: sink write failed")
)

// DefaultQuality JPEG 默认压缩质量
const DefaultQuality = 75

// Sink 记录的去向，每条记录写入后立即 Flush
type Sink interface {
	io.Writer
	Flush() error
}

// Publisher 把解码图像和帧元数据序列化为记录并写入 Sink。
// Sink 归其独占，不能被多个 goroutine 同时使用。
type Publisher struct {
	sink    Sink
	quality int
	logger  *xlog.Logger

	jpegBuf bytes.Buffer
	lineBuf []byte
	err     error // 首个写入错误

	records int64
	bytes   int64
}

// New 创建发布器
func New(sink Sink, opts ...Option) *Publisher {
	p := &Publisher{
		sink:    sink,
		quality: DefaultQuality,
		logger:  xlog.L(),
	}
	for _, opt := range opts {
		opt.apply(p)
	}
	return p
}

// Publish 发布一帧。记录以一次 Write 写出，随后 Flush。
// track 仅为与解码步骤的签名保持一致。
func (p *Publisher) Publish(img image.Image, frame *codec.Frame, fragment codec.OptionalFragment, track *codec.TrackMeta) error {
	if p.err != nil {
		return p.err
	}
	if img == nil || frame == nil {
		return ErrInvalidFrame
	}

	meta, ok := fragment.Get()
	if !ok {
		return fmt.Errorf("%w: frame at %d", ErrMissingFragment, frame.Timecode)
	}

	if ci, ok := img.(*codec.Image); ok {
		img = ci.RGBA()
	}
	p.jpegBuf.Reset()
	if err := jpeg.Encode(&p.jpegBuf, img, &jpeg.Options{Quality: p.quality}); err != nil {
		return fmt.Errorf("publisher: jpeg encode: %w", err)
	}

	p.lineBuf = frameline.AppendRecord(p.lineBuf[:0], p.jpegBuf.Bytes(), frame.Timecode, meta.String())

	n, err := p.sink.Write(p.lineBuf)
	if err == nil && n < len(p.lineBuf) {
		err = io.ErrShortWrite
	}
	if err == nil {
		err = p.sink.Flush()
	}
	if err != nil {
		p.err = fmt.Errorf("%w: %v", ErrSinkWrite, err)
		p.logger.Errorf("publish frame at %d failed: %v", frame.Timecode, err)
		return p.err
	}

	atomic.AddInt64(&p.records, 1)
	atomic.AddInt64(&p.bytes, int64(len(p.lineBuf)))
	if p.logger.LevelEnabled(xlog.DebugLevel) {
		p.logger.Debugf("published frame at %d: jpeg %d bytes, fragment %s", frame.Timecode, p.jpegBuf.Len(), meta.Number)
	}
	return nil
}

// RecordCount 已发布的记录数
func (p *Publisher) RecordCount() int64 {
	return atomic.LoadInt64(&p.records)
}

// BytesWritten 已写入 Sink 的字节数
func (p *Publisher) BytesWritten() int64 {
	return atomic.LoadInt64(&p.bytes)
}

// Err 返回使发布器失效的错误
func (p *Publisher) Err() error {
	return p.err
}
