// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package decoder

import (
	"bytes"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/cnotch/framecast/av/codec"
	"github.com/cnotch/framecast/av/codec/h264"
	"github.com/cnotch/xlog"
)

// 解码错误
var (
	// ErrConfiguration 编码配置（参数集）缺失或无法解析，对整个轨道致命
	ErrConfiguration = errors.New("decoder: invalid codec configuration")
	// ErrDecode 帧载荷无法拆分为有效的 NAL 单元，或解码引擎失败
	ErrDecode = errors.New("decoder: invalid frame payload")
)

// Picture 解码引擎输出的平面 YUV 4:2:0 图像
type Picture struct {
	Width     int
	Height    int
	Y         []byte
	Cb        []byte
	Cr        []byte
	YStride   int
	CStride   int
	FullRange bool // 引擎明确知道为全范围（如 yuvj420p）
}

// Engine H.264 图像重建后端。
// 一个 Engine 只属于一个 Decoder，不需要并发安全。
type Engine interface {
	// Configure 安装参数集，在轨道第一帧之前以及配置变化时调用
	Configure(sps, pps [][]byte) error
	// Decode 解码一个访问单元；没有可显示图像时返回 nil
	Decode(nalus [][]byte) (*Picture, error)
	Close() error
}

// Decoder 单轨道的 H.264 帧解码器。
// 参数集在帧之间保留，不能被多个 goroutine 同时使用。
type Decoder struct {
	engine     Engine
	chromaSwap bool
	logger     *xlog.Logger

	config     []byte // 已安装的 CodecPrivate
	lengthSize int
	fullRange  bool
	width      int // sps 描述的尺寸
	height     int

	frameCount int64
}

// New 创建解码器，engine 归其独占
func New(engine Engine, opts ...Option) *Decoder {
	d := &Decoder{
		engine:     engine,
		chromaSwap: true,
		logger:     xlog.L(),
	}
	for _, opt := range opts {
		opt.apply(d)
	}
	return d
}

// DecodeFrame 解码一帧。
// 没有产生图像时返回 (nil, false, nil)，帧被丢弃且不计数。
func (d *Decoder) DecodeFrame(frame *codec.Frame, track *codec.TrackMeta) (*codec.Image, bool, error) {
	if track == nil {
		return nil, false, fmt.Errorf("%w: missing track metadata", ErrConfiguration)
	}
	if err := d.configure(track.CodecPrivate); err != nil {
		return nil, false, err
	}
	if frame == nil {
		return nil, false, fmt.Errorf("%w: nil frame", ErrDecode)
	}

	nalus, err := h264.SplitNALUs(frame.Payload, d.lengthSize)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	pic, err := d.engine.Decode(nalus)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if pic == nil {
		if d.logger.LevelEnabled(xlog.DebugLevel) {
			d.logger.Debugf("no picture for frame at %d, %d nal units", frame.Timecode, len(nalus))
		}
		return nil, false, nil
	}
	if err = pic.validate(); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	if d.chromaSwap {
		pic.Cb, pic.Cr = pic.Cr, pic.Cb
	}
	w, h := track.Width, track.Height
	if w <= 0 || h <= 0 {
		w, h = pic.Width, pic.Height
	}
	img := codec.NewImage(w, h)
	convertYUV420(img, pic, d.fullRange || pic.FullRange)

	atomic.AddInt64(&d.frameCount, 1)
	return img, true, nil
}

func (d *Decoder) configure(private []byte) error {
	if len(private) == 0 {
		return fmt.Errorf("%w: empty codec private data", ErrConfiguration)
	}
	if d.config != nil && bytes.Equal(private, d.config) {
		return nil
	}
	d.config = nil

	var record h264.AVCDecoderConfigurationRecord
	if err := record.Unmarshal(private); err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	for i, ps := range record.SPS {
		var sps h264.RawSPS
		if err := sps.Decode(ps); err != nil {
			return fmt.Errorf("%w: sps %d: %v", ErrConfiguration, i, err)
		}
		if i == 0 {
			d.width, d.height = sps.Width(), sps.Height()
			d.fullRange = sps.FullRange()
		}
	}

	if err := d.engine.Configure(record.SPS, record.PPS); err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	d.lengthSize = record.LengthSize()
	d.config = append(d.config[:0], private...)
	d.logger.Infof("decoder configured: %dx%d, profile %d, level %d, %d sps, %d pps, fullrange %v",
		d.width, d.height, record.AVCProfileIndication, record.AVCLevelIndication,
		len(record.SPS), len(record.PPS), d.fullRange)
	return nil
}

// FrameCount 成功解码的帧数
func (d *Decoder) FrameCount() int64 {
	return atomic.LoadInt64(&d.frameCount)
}

// Size 当前参数集描述的图像尺寸，未配置时为 0
func (d *Decoder) Size() (width, height int) {
	return d.width, d.height
}

// Close 释放解码引擎
func (d *Decoder) Close() error {
	return d.engine.Close()
}

func (pic *Picture) validate() error {
	if pic.Width <= 0 || pic.Height <= 0 {
		return fmt.Errorf("picture size %dx%d", pic.Width, pic.Height)
	}
	cw, ch := (pic.Width+1)/2, (pic.Height+1)/2
	if pic.YStride < pic.Width || pic.CStride < cw {
		return fmt.Errorf("picture stride %d/%d too small", pic.YStride, pic.CStride)
	}
	if len(pic.Y) < pic.YStride*(pic.Height-1)+pic.Width {
		return errors.New("luma plane is short")
	}
	clen := pic.CStride*(ch-1) + cw
	if len(pic.Cb) < clen || len(pic.Cr) < clen {
		return errors.New("chroma plane is short")
	}
	return nil
}
