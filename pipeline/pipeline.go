// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"time"

	"github.com/cnotch/framecast/av/codec"
	"github.com/cnotch/framecast/av/decoder"
	"github.com/cnotch/framecast/publisher"
	"github.com/cnotch/framecast/stats"
	"github.com/cnotch/xlog"
	"github.com/kelindar/rate"
)

// 每秒最多记录的丢帧日志条数
const dropLogRate = 5

// EngineFactory 为新轨道创建解码引擎
type EngineFactory func() (decoder.Engine, error)

// Pipeline 解码并发布帧，实现 codec.FrameProcessor。
// 每帧同步完成解码与发布，严格保持到达顺序。
type Pipeline struct {
	newEngine   EngineFactory
	pub         *publisher.Publisher
	decoders    map[uint64]*decoder.Decoder
	decoderOpts []decoder.Option
	frames      stats.Frames
	dropLimit   *rate.Limiter
	logger      *xlog.Logger
}

var _ codec.FrameProcessor = (*Pipeline)(nil)

// New 创建管线
func New(newEngine EngineFactory, pub *publisher.Publisher, opts ...Option) *Pipeline {
	p := &Pipeline{
		newEngine: newEngine,
		pub:       pub,
		decoders:  make(map[uint64]*decoder.Decoder),
		frames:    stats.NewChildFrames(stats.Pipeline),
		dropLimit: rate.New(dropLogRate, time.Second),
		logger:    xlog.L(),
	}
	for _, opt := range opts {
		opt.apply(p)
	}
	return p
}

// Process 实现 codec.FrameProcessor。
// 解码或发布的错误原样返回；没有图像的帧被静默丢弃。
func (p *Pipeline) Process(frame *codec.Frame, track *codec.TrackMeta, fragment codec.OptionalFragment) error {
	p.frames.AddReceived()

	dec, err := p.decoder(track)
	if err != nil {
		return err
	}

	img, ok, err := dec.DecodeFrame(frame, track)
	if err != nil {
		return err
	}
	if !ok {
		p.frames.AddDropped()
		if !p.dropLimit.Limit() {
			p.logger.Infof("frame at %d of track %d produced no picture, dropped", frame.Timecode, track.Number)
		}
		return nil
	}
	p.frames.AddDecoded()

	if err = p.pub.Publish(img, frame, fragment, track); err != nil {
		return err
	}
	p.frames.AddPublished()
	return nil
}

func (p *Pipeline) decoder(track *codec.TrackMeta) (*decoder.Decoder, error) {
	var number uint64
	if track != nil {
		number = track.Number
	}
	if dec, ok := p.decoders[number]; ok {
		return dec, nil
	}

	engine, err := p.newEngine()
	if err != nil {
		return nil, err
	}

	opts := append([]decoder.Option{
		decoder.WithLogger(p.logger.With(xlog.Fields(xlog.F("track", number))))}, p.decoderOpts...)
	dec := decoder.New(engine, opts...)
	p.decoders[number] = dec
	return dec, nil
}

// Stats 返回帧计数采样
func (p *Pipeline) Stats() stats.FramesSample {
	return p.frames.GetSample()
}

// Close 释放所有解码器
func (p *Pipeline) Close() error {
	var first error
	for number, dec := range p.decoders {
		if err := dec.Close(); err != nil && first == nil {
			first = err
		}
		delete(p.decoders, number)
	}
	return first
}
