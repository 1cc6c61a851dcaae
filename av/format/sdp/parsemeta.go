// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sdp

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/cnotch/framecast/av/codec"
	"github.com/cnotch/framecast/av/codec/h264"
	"github.com/cnotch/framecast/utils/scan"
	"github.com/pixelbender/go-sdp/sdp"
)

// ErrNoH264 SDP 中没有 H264 视频
var ErrNoH264 = errors.New("sdp: no h264 video media")

// ParseTrack 从 SDP 中提取第一个 H264 视频的轨道元数据与 RTP 时钟频率。
// sprop-parameter-sets 存在时生成 4 字节长度前缀的 AVCDecoderConfigurationRecord。
func ParseTrack(rawsdp string) (track *codec.TrackMeta, clockRate int, err error) {
	session, err := sdp.ParseString(rawsdp)
	if err != nil {
		return nil, 0, err
	}

	for i, media := range session.Media {
		if media.Type != "video" {
			continue
		}
		for _, format := range media.Format {
			if !strings.EqualFold(format.Name, "H264") {
				continue
			}

			track = &codec.TrackMeta{
				Number:  uint64(i + 1),
				CodecID: h264.CodecID,
			}
			clockRate = format.ClockRate
			if err = parseH264Params(format.Params, track); err != nil {
				return nil, 0, err
			}
			return track, clockRate, nil
		}
	}
	return nil, 0, ErrNoH264
}

func parseH264Params(params []string, track *codec.TrackMeta) error {
	for _, p := range params {
		i := strings.Index(p, "sprop-parameter-sets=")
		if i < 0 {
			continue
		}
		p = p[i+len("sprop-parameter-sets="):]

		endi := strings.IndexByte(p, ';')
		if endi > -1 {
			p = p[:endi]
		}
		return parseH264SpsPps(p, track)
	}
	return nil
}

func parseH264SpsPps(s string, track *codec.TrackMeta) error {
	ppsStr, spsStr, ok := scan.Comma.Scan(s)
	if !ok { // 不完整的参数集交给带内 SPS/PPS
		return nil
	}
	// 多个 pps 时只取第一个
	_, ppsStr, _ = scan.Comma.Scan(ppsStr)

	sps, err := base64.StdEncoding.DecodeString(spsStr)
	if err != nil {
		return fmt.Errorf("sdp: sps: %w", err)
	}
	pps, err := base64.StdEncoding.DecodeString(ppsStr)
	if err != nil {
		return fmt.Errorf("sdp: pps: %w", err)
	}
	sps = h264.RemoveNaluSeparator(sps)
	pps = h264.RemoveNaluSeparator(pps)

	var raw h264.RawSPS
	if err = raw.Decode(sps); err != nil {
		return fmt.Errorf("sdp: %w", err)
	}
	track.Width, track.Height = raw.Width(), raw.Height()

	track.CodecPrivate, err = h264.NewAVCDecoderConfigurationRecord(sps, pps).Marshal()
	return err
}
