// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtp

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/cnotch/framecast/av/codec"
	"github.com/cnotch/framecast/av/codec/h264"
	"github.com/cnotch/xlog"
)

// DefaultClockRate H.264 的 RTP 时钟频率
const DefaultClockRate = 90000

// H264Depacketizer 把 RTP 包重组为 H.264 访问单元，
// 以 AVCC 形式交给 FrameProcessor。
// 标记位或时间戳变化结束一个访问单元；第一个 IDR 之前的帧被丢弃；
// 每个 IDR 开启一个新片段。
type H264Depacketizer struct {
	track     *codec.TrackMeta
	sps       []byte
	pps       []byte
	clockRate int
	processor codec.FrameProcessor
	logger    *xlog.Logger
	now       func() time.Time

	fragments []*Packet // FU-A 分片包
	nalus     [][]byte  // 当前访问单元
	auTime    uint32
	baseTime  uint32
	started   bool
	gotIdr    bool

	fragmentSeq int64
	fragment    codec.OptionalFragment
}

// NewH264Depacketizer 实例化 H264 帧提取器。
// track 可以没有 CodecPrivate，带内的 SPS/PPS 会补齐它。
func NewH264Depacketizer(track *codec.TrackMeta, clockRate int, p codec.FrameProcessor) *H264Depacketizer {
	if clockRate <= 0 {
		clockRate = DefaultClockRate
	}
	dp := &H264Depacketizer{
		track:     track,
		clockRate: clockRate,
		processor: p,
		logger:    xlog.L(),
		now:       time.Now,
		fragments: make([]*Packet, 0, 16),
	}

	var record h264.AVCDecoderConfigurationRecord
	if len(track.CodecPrivate) > 0 && record.Unmarshal(track.CodecPrivate) == nil {
		dp.sps, dp.pps = record.SPS[0], record.PPS[0]
	}
	return dp
}

// SetLogger .
func (dp *H264Depacketizer) SetLogger(logger *xlog.Logger) {
	if logger != nil {
		dp.logger = logger
	}
}

// Track 当前的轨道元数据
func (dp *H264Depacketizer) Track() *codec.TrackMeta {
	return dp.track
}

// Depacketize 处理一个 RTP 包，处理器的错误原样返回
func (dp *H264Depacketizer) Depacketize(packet *Packet) (err error) {
	if len(dp.nalus) > 0 && packet.Timestamp != dp.auTime {
		if err = dp.Flush(); err != nil {
			return
		}
	}
	if !dp.started {
		dp.baseTime = packet.Timestamp
		dp.started = true
	}
	dp.auTime = packet.Timestamp

	payload := packet.Payload()
	if len(payload) < 1 {
		return
	}

	// +---------------+
	// |0|1|2|3|4|5|6|7|
	// +-+-+-+-+-+-+-+-+
	// |F|NRI|  Type   |
	// +---------------+
	naluType := payload[0] & h264.NalTypeBitmask

	switch {
	case naluType == h264.NalUnspecified:
		return fmt.Errorf("rtp: nalu type 0 is invalid")
	case naluType < h264.NalStapaInRtp:
		// 单一 NAL 单元包
		dp.addNalu(append([]byte(nil), payload...))
	case naluType == h264.NalStapaInRtp:
		err = dp.depacketizeStapa(payload)
	case naluType == h264.NalFuAInRtp:
		dp.depacketizeFuA(packet)
	default:
		err = fmt.Errorf("rtp: nalu type %d is currently not handled", naluType)
	}
	if err != nil {
		return
	}

	if packet.Marker {
		err = dp.Flush()
	}
	return
}

func (dp *H264Depacketizer) depacketizeStapa(payload []byte) error {
	// 	0                   1                   2                   3
	// 	0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
	//  +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	//  |STAP-A NAL HDR |         NALU 1 Size           | NALU 1 HDR    |
	//  +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	//  |                         NALU 1 Data                           |
	//  :                                                               :
	//  +               +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	//  |               | NALU 2 Size                   | NALU 2 HDR    |
	//  +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	off := 1 // 跳过 STAP-A NAL HDR
	for off < len(payload) {
		if off+2 > len(payload) {
			return fmt.Errorf("rtp: stap-a truncated at %d", off)
		}
		nalSize := int(payload[off])<<8 | int(payload[off+1])
		off += 2
		if nalSize < 1 || off+nalSize > len(payload) {
			return fmt.Errorf("rtp: stap-a nalu size %d invalid", nalSize)
		}
		dp.addNalu(append([]byte(nil), payload[off:off+nalSize]...))
		off += nalSize
	}
	return nil
}

func (dp *H264Depacketizer) depacketizeFuA(packet *Packet) {
	payload := packet.Payload()
	if len(payload) < 2 {
		return
	}
	header := payload[0]

	// +---------------+
	// |0|1|2|3|4|5|6|7|
	// +-+-+-+-+-+-+-+-+
	// |S|E|R|  Type   |
	// +---------------+
	fuHeader := payload[1]

	if (fuHeader>>7)&1 == 1 { // 第一个分片包
		dp.fragments = dp.fragments[:0]
	} else if len(dp.fragments) == 0 {
		return // 丢失了起始分片
	}
	if len(dp.fragments) != 0 &&
		dp.fragments[len(dp.fragments)-1].SequenceNumber != packet.SequenceNumber-1 {
		// 丢包，放弃整个 NAL
		dp.fragments = dp.fragments[:0]
		return
	}

	dp.fragments = append(dp.fragments, packet)

	if (fuHeader>>6)&1 == 1 { // 最后一个片段
		naluLen := 1
		for _, fragment := range dp.fragments {
			naluLen += len(fragment.Payload()) - 2
		}

		nalu := make([]byte, naluLen)
		nalu[0] = (header & 0xe0) | (fuHeader & h264.NalTypeBitmask)
		offset := 1
		for _, fragment := range dp.fragments {
			offset += copy(nalu[offset:], fragment.Payload()[2:])
		}
		dp.fragments = dp.fragments[:0]
		dp.addNalu(nalu)
	}
}

func (dp *H264Depacketizer) addNalu(nalu []byte) {
	switch h264.NalType(nalu[0]) {
	case h264.NalSps:
		if !bytes.Equal(dp.sps, nalu) {
			dp.sps = nalu
			dp.refreshTrack()
		}
	case h264.NalPps:
		if !bytes.Equal(dp.pps, nalu) {
			dp.pps = nalu
			dp.refreshTrack()
		}
	case h264.NalFillerData, h264.NalAud:
	default:
		dp.nalus = append(dp.nalus, nalu)
	}
}

// refreshTrack 参数集变化时生成新的轨道元数据，已交出的元数据不被修改
func (dp *H264Depacketizer) refreshTrack() {
	if len(dp.sps) == 0 || len(dp.pps) == 0 {
		return
	}

	var sps h264.RawSPS
	if err := sps.Decode(dp.sps); err != nil {
		dp.logger.Warnf("rtp: ignore in-band sps: %v", err)
		return
	}
	private, err := h264.NewAVCDecoderConfigurationRecord(dp.sps, dp.pps).Marshal()
	if err != nil {
		return
	}

	track := *dp.track
	track.CodecID = h264.CodecID
	track.Width, track.Height = sps.Width(), sps.Height()
	track.CodecPrivate = private
	dp.track = &track
	dp.logger.Infof("rtp: h264 parameter sets updated, %dx%d", track.Width, track.Height)
}

// Flush 提交缓存的访问单元
func (dp *H264Depacketizer) Flush() error {
	nalus := dp.nalus
	dp.nalus = nil
	if !h264.HasVCL(nalus) {
		return nil
	}

	idr := h264.HasIdr(nalus)
	if !dp.gotIdr {
		if !idr {
			if dp.logger.LevelEnabled(xlog.DebugLevel) {
				dp.logger.Debugf("rtp: waiting for idr, drop access unit at %d", dp.auTime)
			}
			return nil
		}
		dp.gotIdr = true
	}
	if len(dp.track.CodecPrivate) == 0 {
		return nil
	}

	if idr {
		dp.fragmentSeq++
		dp.fragment = codec.SomeFragment(codec.FragmentMeta{
			Number:          strconv.FormatInt(dp.fragmentSeq, 10),
			ServerTimestamp: dp.now().UnixNano() / int64(time.Millisecond),
		})
	}

	frame := &codec.Frame{
		TrackNumber: dp.track.Number,
		KeyFrame:    idr,
		Timecode:    int64(dp.auTime-dp.baseTime) * 1000 / int64(dp.clockRate),
		Payload:     h264.AppendAVCC(nil, nalus...),
	}
	return dp.processor.Process(frame, dp.track, dp.fragment)
}
