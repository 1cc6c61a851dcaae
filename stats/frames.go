// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stats

import (
	"sync/atomic"
)

// 全局变量
var (
	Traffic   = NewFlow()   // 源输入与 Sink 输出的总字节数
	Pipeline  = NewFrames() // 帧处理统计
	SinkConns = NewConns()  // Sink 连接统计
)

// FramesSample 帧计数采样
type FramesSample struct {
	Received  int64 `json:"received"`  // 进入管线的帧
	Decoded   int64 `json:"decoded"`   // 解码出图像的帧
	Dropped   int64 `json:"dropped"`   // 没有图像被丢弃的帧
	Published int64 `json:"published"` // 已写出的记录
}

// Frames 帧计数
type Frames interface {
	AddReceived()
	AddDecoded()
	AddDropped()
	AddPublished()
	GetSample() FramesSample
}

func (s *FramesSample) clone() FramesSample {
	return FramesSample{
		Received:  atomic.LoadInt64(&s.Received),
		Decoded:   atomic.LoadInt64(&s.Decoded),
		Dropped:   atomic.LoadInt64(&s.Dropped),
		Published: atomic.LoadInt64(&s.Published),
	}
}

type frames struct {
	sample FramesSample
}

// NewFrames 新建帧计数
func NewFrames() Frames {
	return &frames{}
}

func (f *frames) AddReceived()  { atomic.AddInt64(&f.sample.Received, 1) }
func (f *frames) AddDecoded()   { atomic.AddInt64(&f.sample.Decoded, 1) }
func (f *frames) AddDropped()   { atomic.AddInt64(&f.sample.Dropped, 1) }
func (f *frames) AddPublished() { atomic.AddInt64(&f.sample.Published, 1) }

func (f *frames) GetSample() FramesSample {
	return f.sample.clone()
}

type childFrames struct {
	frames
	parent Frames
}

// NewChildFrames 创建子计数，同时累加到 parent
func NewChildFrames(parent Frames) Frames {
	return &childFrames{parent: parent}
}

func (f *childFrames) AddReceived()  { f.frames.AddReceived(); f.parent.AddReceived() }
func (f *childFrames) AddDecoded()   { f.frames.AddDecoded(); f.parent.AddDecoded() }
func (f *childFrames) AddDropped()   { f.frames.AddDropped(); f.parent.AddDropped() }
func (f *childFrames) AddPublished() { f.frames.AddPublished(); f.parent.AddPublished() }

// ConnsSample 连接计数采样
type ConnsSample struct {
	Total  int64 `json:"total"`
	Active int64 `json:"active"`
}

// Conns 连接统计
type Conns interface {
	Add() int64
	Release() int64
	GetSample() ConnsSample
}

type conns struct {
	sample ConnsSample
}

// NewConns 新建连接计数
func NewConns() Conns {
	return &conns{}
}

func (c *conns) Add() int64 {
	atomic.AddInt64(&c.sample.Total, 1)
	return atomic.AddInt64(&c.sample.Active, 1)
}

func (c *conns) Release() int64 {
	return atomic.AddInt64(&c.sample.Active, -1)
}

func (c *conns) GetSample() ConnsSample {
	return ConnsSample{
		Total:  atomic.LoadInt64(&c.sample.Total),
		Active: atomic.LoadInt64(&c.sample.Active),
	}
}
