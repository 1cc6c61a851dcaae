// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mkv

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/cnotch/framecast/av/codec"
	"github.com/cnotch/framecast/av/codec/h264"
	"github.com/cnotch/xlog"
	"github.com/remko/go-mkvparse"
)

// Reader 遍历 Matroska 流，把 H.264 帧连同轨道与片段元数据交给 FrameProcessor。
// 流可以是多个首尾相接的 EBML 文档（如 Kinesis GetMedia 的输出）。
type Reader struct {
	r                io.Reader
	clusterFragments bool
	logger           *xlog.Logger
}

// NewReader 创建读取器
func NewReader(r io.Reader, opts ...Option) *Reader {
	reader := &Reader{
		r:      r,
		logger: xlog.L(),
	}
	for _, opt := range opts {
		opt.apply(reader)
	}
	return reader
}

// Apply 按容器顺序同步调用 p.Process，直到流结束或出错。
// 处理器返回的第一个错误终止遍历并原样返回。
func (r *Reader) Apply(p codec.FrameProcessor) error {
	h := &handler{
		processor:        p,
		clusterFragments: r.clusterFragments,
		logger:           r.logger,
		tracks:           make(map[uint64]*codec.TrackMeta),
		timecodeScale:    defaultTimecodeScale,
	}

	err := mkvparse.Parse(r.r, h)
	if h.err != nil {
		return h.err
	}
	if err == io.EOF {
		return nil
	}
	return err
}

type handler struct {
	processor        codec.FrameProcessor
	clusterFragments bool
	logger           *xlog.Logger
	err              error // 第一个致命错误，之后不再处理任何块

	timecodeScale int64
	tracks        map[uint64]*codec.TrackMeta
	entry         *codec.TrackMeta // 正在解析的 TrackEntry

	clusters        int64
	clusterTimecode int64
	taggedFragments bool
	fragment        codec.OptionalFragment

	tags    map[string]string // 正在解析的 Tags
	tagName string
	tagVal  string
}

// fail 只记录第一个错误
func (h *handler) fail(err error) error {
	if h.err == nil {
		h.err = err
	}
	return h.err
}

// 只有 Master 元素回调的返回值会被 mkvparse 采纳，
// 其它回调中记下的错误在下一个元素边界处终止遍历。
func (h *handler) HandleMasterBegin(id mkvparse.ElementID, info mkvparse.ElementInfo) (bool, error) {
	if h.err != nil {
		return false, h.err
	}
	switch id {
	case idSegment:
		// 新文档的帧在其 Tags 之前没有片段
		h.fragment = codec.NoFragment()
		h.timecodeScale = defaultTimecodeScale
	case idTrackEntry:
		h.entry = &codec.TrackMeta{}
	case idCluster:
		h.clusterTimecode = 0
	case idTags:
		h.tags = make(map[string]string)
	case idSimpleTag:
		h.tagName, h.tagVal = "", ""
	}
	return true, nil
}

func (h *handler) HandleMasterEnd(id mkvparse.ElementID, info mkvparse.ElementInfo) error {
	if h.err != nil {
		return h.err
	}
	switch id {
	case idTrackEntry:
		if h.entry != nil {
			h.tracks[h.entry.Number] = h.entry
			h.logger.Infof("mkv: track %d, codec %s, %dx%d",
				h.entry.Number, h.entry.CodecID, h.entry.Width, h.entry.Height)
			h.entry = nil
		}
	case idCluster:
		h.clusters++
	case idSimpleTag:
		if h.tags != nil && h.tagName != "" {
			h.tags[h.tagName] = h.tagVal
		}
	case idTags:
		h.endTags()
		h.tags = nil
	}
	return nil
}

// endTags 带片段编号的 Tags 开启新片段，否则把标签并入当前片段
func (h *handler) endTags() {
	if len(h.tags) == 0 {
		return
	}

	number, ok := h.tags[TagFragmentNumber]
	if ok {
		h.taggedFragments = true
		meta := codec.FragmentMeta{Number: number}
		for name, value := range h.tags {
			applyTag(&meta, name, value)
		}
		h.fragment = codec.SomeFragment(meta)
		return
	}

	meta, present := h.fragment.Get()
	if !present {
		return
	}
	// 已交出的片段不能被修改
	tags := make(map[string]string, len(meta.Tags)+len(h.tags))
	for name, value := range meta.Tags {
		tags[name] = value
	}
	meta.Tags = tags
	for name, value := range h.tags {
		applyTag(&meta, name, value)
	}
	h.fragment = codec.SomeFragment(meta)
}

func applyTag(meta *codec.FragmentMeta, name, value string) {
	switch name {
	case TagFragmentNumber:
		meta.Number = value
	case TagServerTimestamp:
		meta.ServerTimestamp = parseMillis(value)
	case TagProducerTimestamp:
		meta.ProducerTimestamp = parseMillis(value)
	case TagErrorCode:
		meta.ErrorCode, _ = strconv.ParseInt(value, 10, 64)
	default:
		if meta.Tags == nil {
			meta.Tags = make(map[string]string)
		}
		meta.Tags[name] = value
	}
}

// parseMillis 解析 Kinesis 的时间戳标签，取值为带小数的秒
func parseMillis(value string) int64 {
	secs, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return int64(secs*1000 + 0.5)
}

func (h *handler) HandleString(id mkvparse.ElementID, value string, info mkvparse.ElementInfo) error {
	switch id {
	case idCodecID:
		if h.entry != nil {
			h.entry.CodecID = value
		}
	case idTagName:
		h.tagName = value
	case idTagString:
		h.tagVal = value
	}
	return nil
}

func (h *handler) HandleInteger(id mkvparse.ElementID, value int64, info mkvparse.ElementInfo) error {
	switch id {
	case idTimecodeScale:
		if value > 0 {
			h.timecodeScale = value
		}
	case idTrackNumber:
		if h.entry != nil {
			h.entry.Number = uint64(value)
		}
	case idPixelWidth:
		if h.entry != nil {
			h.entry.Width = int(value)
		}
	case idPixelHeight:
		if h.entry != nil {
			h.entry.Height = int(value)
		}
	case idTimecode:
		h.clusterTimecode = value
		if h.clusterFragments && !h.taggedFragments {
			h.fragment = codec.SomeFragment(codec.FragmentMeta{
				Number:          strconv.FormatInt(h.clusters, 10),
				ServerTimestamp: value * h.timecodeScale / int64(time.Millisecond),
			})
		}
	}
	return nil
}

func (h *handler) HandleFloat(id mkvparse.ElementID, value float64, info mkvparse.ElementInfo) error {
	return nil
}

func (h *handler) HandleDate(id mkvparse.ElementID, value time.Time, info mkvparse.ElementInfo) error {
	return nil
}

func (h *handler) HandleBinary(id mkvparse.ElementID, value []byte, info mkvparse.ElementInfo) error {
	switch id {
	case idCodecPrivate:
		if h.entry != nil {
			h.entry.CodecPrivate = append([]byte(nil), value...)
		}
		return nil
	case idSimpleBlock:
		return h.handleBlock(value, true)
	case idBlock:
		return h.handleBlock(value, false)
	}
	return nil
}

func (h *handler) handleBlock(data []byte, simple bool) error {
	if h.err != nil {
		return h.err
	}

	b, err := parseBlock(data, simple)
	if err != nil {
		return h.fail(fmt.Errorf("cluster %d: %w", h.clusters, err))
	}

	track, ok := h.tracks[b.track]
	if !ok {
		return h.fail(fmt.Errorf("mkv: block references unknown track %d", b.track))
	}
	if track.CodecID != h264.CodecID {
		return nil
	}

	frame := &codec.Frame{
		TrackNumber:     b.track,
		KeyFrame:        b.keyframe,
		ClusterTimecode: h.clusterTimecode,
		Timecode:        int64(b.timecode),
		Payload:         append([]byte(nil), b.payload...),
	}
	if err = h.processor.Process(frame, track, h.fragment); err != nil {
		return h.fail(err)
	}
	return nil
}
