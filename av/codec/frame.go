// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package codec

// Frame 一个压缩的视频访问单元。
// 生产后不可修改，下游只读。
type Frame struct {
	TrackNumber     uint64 // 所属轨道
	KeyFrame        bool   // 是否为关键帧
	ClusterTimecode int64  // 所在 Cluster 的时间码
	Timecode        int64  // 帧时间码，单位由上游定义（MKV 中为 Block 相对时间码）
	Payload         []byte // 以长度前缀（AVCC）存储的 NAL 单元序列
}

// FrameProcessor 包装 Process 方法的接口。
// 容器遍历组件按容器顺序同步调用，一帧一次。
type FrameProcessor interface {
	Process(frame *Frame, track *TrackMeta, fragment OptionalFragment) error
}

// ProcessorFunc 函数适配器
type ProcessorFunc func(frame *Frame, track *TrackMeta, fragment OptionalFragment) error

// Process 实现 FrameProcessor
func (f ProcessorFunc) Process(frame *Frame, track *TrackMeta, fragment OptionalFragment) error {
	return f(frame, track, fragment)
}
