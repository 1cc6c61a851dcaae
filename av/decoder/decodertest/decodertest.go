// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package decodertest provides a fake decoding engine and H.264
// configuration fixtures for tests.
package decodertest

import (
	"errors"

	"github.com/cnotch/framecast/av/codec/h264"
	"github.com/cnotch/framecast/av/decoder"
)

// 64x64 baseline 参数集
var (
	SPS = []byte{0x67, 0x42, 0xc0, 0x0a, 0xda, 0x10, 0x99}
	PPS = []byte{0x68, 0xce, 0x3c, 0x80}
)

// IDR 一个伪造的 IDR 片
var IDR = []byte{0x65, 0x88, 0x84, 0x00, 0x33, 0xff}

// Slice 一个伪造的非 IDR 片
var Slice = []byte{0x41, 0x9a, 0x02, 0x04}

// Record 返回 4 字节长度前缀的 AVCDecoderConfigurationRecord
func Record() []byte {
	data, err := h264.NewAVCDecoderConfigurationRecord(SPS, PPS).Marshal()
	if err != nil {
		panic(err)
	}
	return data
}

// Payload 以 4 字节长度前缀拼接 NAL 单元
func Payload(nalus ...[]byte) []byte {
	return h264.AppendAVCC(nil, nalus...)
}

// ErrEngineClosed .
var ErrEngineClosed = errors.New("engine closed")

// Engine 伪造的解码引擎：
// 包含图像片的访问单元产生一个颜色一致的图像，其它单元不产生图像。
type Engine struct {
	Width, Height int
	Y, Cb, Cr     byte
	FullRange     bool

	ConfigureErr error
	DecodeErr    error

	SPS, PPS   [][]byte
	Configured int
	Decoded    int
	Closed     bool
}

// NewEngine 创建输出 w x h 图像的引擎
func NewEngine(w, h int) *Engine {
	return &Engine{Width: w, Height: h, Y: 128, Cb: 128, Cr: 128}
}

// Configure 实现 decoder.Engine
func (e *Engine) Configure(sps, pps [][]byte) error {
	if e.ConfigureErr != nil {
		return e.ConfigureErr
	}
	e.SPS, e.PPS = sps, pps
	e.Configured++
	return nil
}

// Decode 实现 decoder.Engine
func (e *Engine) Decode(nalus [][]byte) (*decoder.Picture, error) {
	if e.Closed {
		return nil, ErrEngineClosed
	}
	if e.DecodeErr != nil {
		return nil, e.DecodeErr
	}
	if !h264.HasVCL(nalus) {
		return nil, nil
	}
	e.Decoded++

	cw, ch := (e.Width+1)/2, (e.Height+1)/2
	return &decoder.Picture{
		Width:     e.Width,
		Height:    e.Height,
		Y:         fill(e.Width*e.Height, e.Y),
		Cb:        fill(cw*ch, e.Cb),
		Cr:        fill(cw*ch, e.Cr),
		YStride:   e.Width,
		CStride:   cw,
		FullRange: e.FullRange,
	}, nil
}

// Close 实现 decoder.Engine
func (e *Engine) Close() error {
	e.Closed = true
	return nil
}

func fill(n int, v byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = v
	}
	return b
}
