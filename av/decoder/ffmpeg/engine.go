// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ffmpeg implements the H.264 decoding engine on top of FFmpeg's
// libavcodec through go-astiav.
package ffmpeg

import (
	"errors"
	"fmt"

	"github.com/asticode/go-astiav"
	"github.com/cnotch/framecast/av/codec/h264"
	"github.com/cnotch/framecast/av/decoder"
)

// codecContext 是 Engine 用到的 astiav.CodecContext 方法
type codecContext interface {
	SendPacket(p *astiav.Packet) error
	ReceiveFrame(f *astiav.Frame) error
	Free()
}

// Engine libavcodec 解码引擎。
// 参数集以 Annex-B 形式放在下一个访问单元之前送入解码器。
// 解码器以低延迟模式打开，每个访问单元立即输出自己的图像。
type Engine struct {
	cc    codecContext
	pkt   *astiav.Packet
	frame *astiav.Frame

	paramSets []byte // 待发送的 Annex-B 参数集
	buf       []byte
}

var _ decoder.Engine = (*Engine)(nil)

// New 创建 H.264 解码引擎
func New() (*Engine, error) {
	codec := astiav.FindDecoder(astiav.CodecIDH264)
	if codec == nil {
		return nil, errors.New("ffmpeg: h264 decoder not found")
	}

	cc := astiav.AllocCodecContext(codec)
	if cc == nil {
		return nil, errors.New("ffmpeg: alloc codec context failed")
	}
	cc.SetFlags(cc.Flags().Add(astiav.CodecContextFlagLowDelay))
	if err := cc.Open(codec, nil); err != nil {
		cc.Free()
		return nil, fmt.Errorf("ffmpeg: open h264 decoder: %w", err)
	}

	return &Engine{
		cc:    cc,
		pkt:   astiav.AllocPacket(),
		frame: astiav.AllocFrame(),
	}, nil
}

// Configure 实现 decoder.Engine
func (e *Engine) Configure(sps, pps [][]byte) error {
	e.paramSets = h264.AppendAnnexB(e.paramSets[:0], sps...)
	e.paramSets = h264.AppendAnnexB(e.paramSets, pps...)
	return nil
}

// Decode 实现 decoder.Engine
func (e *Engine) Decode(nalus [][]byte) (*decoder.Picture, error) {
	e.buf = append(e.buf[:0], e.paramSets...)
	e.buf = h264.AppendAnnexB(e.buf, nalus...)

	if err := e.pkt.FromData(e.buf); err != nil {
		return nil, fmt.Errorf("ffmpeg: packet: %w", err)
	}
	defer e.pkt.Unref()

	// 低延迟模式下输出不会积压，EAGAIN 说明这个访问单元被丢掉了
	if err := e.cc.SendPacket(e.pkt); err != nil {
		return nil, fmt.Errorf("ffmpeg: send packet: %w", err)
	}
	e.paramSets = e.paramSets[:0]

	if err := e.cc.ReceiveFrame(e.frame); err != nil {
		if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
			return nil, nil
		}
		return nil, fmt.Errorf("ffmpeg: receive frame: %w", err)
	}
	defer e.frame.Unref()

	return e.picture()
}

// picture 拷贝 yuv420p/yuvj420p 帧到连续内存
func (e *Engine) picture() (*decoder.Picture, error) {
	pf := e.frame.PixelFormat()
	if pf != astiav.PixelFormatYuv420P && pf != astiav.PixelFormatYuvj420P {
		return nil, fmt.Errorf("ffmpeg: unsupported pixel format %s", pf)
	}

	data, err := e.frame.Data().Bytes(1)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg: frame data: %w", err)
	}

	w, h := e.frame.Width(), e.frame.Height()
	cw, ch := (w+1)/2, (h+1)/2
	ySize, cSize := w*h, cw*ch
	if len(data) < ySize+2*cSize {
		return nil, fmt.Errorf("ffmpeg: frame data %d bytes, want %d", len(data), ySize+2*cSize)
	}

	return &decoder.Picture{
		Width:     w,
		Height:    h,
		Y:         data[:ySize],
		Cb:        data[ySize : ySize+cSize],
		Cr:        data[ySize+cSize : ySize+2*cSize],
		YStride:   w,
		CStride:   cw,
		FullRange: pf == astiav.PixelFormatYuvj420P || e.frame.ColorRange() == astiav.ColorRangeJpeg,
	}, nil
}

// Close 实现 decoder.Engine
func (e *Engine) Close() error {
	if e.frame != nil {
		e.frame.Free()
		e.frame = nil
	}
	if e.pkt != nil {
		e.pkt.Free()
		e.pkt = nil
	}
	if e.cc != nil {
		e.cc.Free()
		e.cc = nil
	}
	return nil
}

// NewEngine 适配 pipeline.EngineFactory
func NewEngine() (decoder.Engine, error) {
	return New()
}
