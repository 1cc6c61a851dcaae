// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
//
// Translate from FFmpeg cbs_h264.h cbs_h264_syntax_template.c
//
package h264

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/cnotch/framecast/utils/bits"
)

// RawNALUnitHeader 原始 h264 Nal单元头
type RawNALUnitHeader struct {
	ForbiddenZeroBit uint8
	NalRefIdc        uint8
	NalUnitType      uint8
}

// RawVUI 只解析到 timing_info，后续的 HRD 与码流限制参数解码时用不到。
type RawVUI struct {
	AspectRatioInfoPresentFlag uint8
	AspectRatioIdc             uint8
	SarWidth                   uint16
	SarHeight                  uint16

	OverscanInfoPresentFlag uint8
	OverscanAppropriateFlag uint8

	// video_full_range_flag 决定 YUV->RGB 时亮度与色度的取值范围：
	// 1 表示 0~255 全范围（JPEG），0 表示 16~235/240 的 TV 范围。
	// 语法元素不存在时推定为 0。
	VideoSignalTypePresentFlag   uint8
	VideoFormat                  uint8
	VideoFullRangeFlag           uint8
	ColourDescriptionPresentFlag uint8
	ColourPrimaries              uint8
	TransferCharacteristics      uint8
	MatrixCoefficients           uint8

	ChromaLocInfoPresentFlag       uint8
	ChromaSampleLocTypeTopField    uint8
	ChromaSampleLocTypeBottomField uint8

	// 和帧率相关
	TimingInfoPresentFlag uint8
	NumUnitsInTick        uint32
	TimeScale             uint32
	FixedFrameRateFlag    uint8
}

// RawSPS .
type RawSPS struct {
	NalUnitHeader RawNALUnitHeader

	ProfileIdc         uint8
	ConstraintSet0Flag uint8
	ConstraintSet1Flag uint8
	ConstraintSet2Flag uint8
	ConstraintSet3Flag uint8
	ConstraintSet4Flag uint8
	ConstraintSet5Flag uint8
	ReservedZero2Bits  uint8
	LevelIdc           uint8

	// seq_parameter_set_id 取值 [0，31]，被 pps 引用
	SeqParameterSetID uint8

	ChromaFormatIdc                 uint8
	SeparateColourPlaneFlag         uint8
	BitDepthLumaMinus8              uint8
	BitDepthChromaMinus8            uint8
	QpprimeYZeroTransformBypassFlag uint8
	SeqScalingMatrixPresentFlag     uint8

	Log2MaxFrameNumMinus4          uint8
	PicOrderCntType                uint8
	Log2MaxPicOrderCntLsbMinus4    uint8
	DeltaPicOrderAlwaysZeroFlag    uint8
	OffsetForNonRefPic             int32
	OffsetForTopToBottomField      int32
	NumRefFramesInPicOrderCntCycle uint8

	MaxNumRefFrames           uint8
	GapsInFrameNumAllowedFlag uint8

	// 以宏块为单位的图像宽高：PicWidthInSamples = (PicWidthInMbsMinus1 + 1) * 16
	PicWidthInMbsMinus1       uint16
	PicHeightInMapUnitsMinus1 uint16

	FrameMbsOnlyFlag         uint8
	MbAdaptiveFrameFieldFlag uint8
	Direct8x8InferenceFlag   uint8

	// frame_cropping_flag 指明解码后的图像是否需要裁剪
	FrameCroppingFlag     uint8
	FrameCropLeftOffset   uint16
	FrameCropRightOffset  uint16
	FrameCropTopOffset    uint16
	FrameCropBottomOffset uint16

	VuiParametersPresentFlag uint8
	Vui                      RawVUI
}

// chromaArrayType 7.4.2.1.1
func (sps *RawSPS) chromaArrayType() uint8 {
	if sps.SeparateColourPlaneFlag == 1 {
		return 0
	}
	return sps.ChromaFormatIdc
}

// cropUnits 返回裁剪偏移的水平与垂直单位（表 6-1 与公式 7-19 ~ 7-22）
func (sps *RawSPS) cropUnits() (x, y int) {
	frameMbs := 2 - int(sps.FrameMbsOnlyFlag)
	switch sps.chromaArrayType() {
	case 0:
		return 1, frameMbs
	case 1:
		return 2, 2 * frameMbs
	case 2:
		return 2, frameMbs
	default:
		return 1, frameMbs
	}
}

// Width 视频宽度（像素）
func (sps *RawSPS) Width() int {
	ux, _ := sps.cropUnits()
	w := (int(sps.PicWidthInMbsMinus1) + 1) * 16
	return w - ux*(int(sps.FrameCropLeftOffset)+int(sps.FrameCropRightOffset))
}

// Height 视频高度（像素）
func (sps *RawSPS) Height() int {
	_, uy := sps.cropUnits()
	h := (2 - int(sps.FrameMbsOnlyFlag)) * (int(sps.PicHeightInMapUnitsMinus1) + 1) * 16
	return h - uy*(int(sps.FrameCropTopOffset)+int(sps.FrameCropBottomOffset))
}

// FrameRate Video frame rate
func (sps *RawSPS) FrameRate() float64 {
	if sps.Vui.NumUnitsInTick == 0 {
		return 0.0
	}
	return float64(sps.Vui.TimeScale) / float64(sps.Vui.NumUnitsInTick*2)
}

// FullRange 是否为全范围（JPEG）取值
func (sps *RawSPS) FullRange() bool {
	return sps.Vui.VideoFullRangeFlag == 1
}

// DecodeString 从 base64 字串解码 sps NAL
func (sps *RawSPS) DecodeString(b64 string) error {
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return err
	}
	return sps.Decode(data)
}

// Decode 从字节序列中解码 sps NAL
func (sps *RawSPS) Decode(data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sps truncated: %v", r)
		}
	}()

	spsWEB := RemoveEmulationBytes(data)
	if len(spsWEB) < 4 {
		return errors.New("sps: the data is not enough")
	}

	r := bits.NewReader(spsWEB)
	if err = sps.NalUnitHeader.decode(r); err != nil {
		return
	}

	if sps.NalUnitHeader.NalUnitType != NalSps {
		return fmt.Errorf("sps: unexpected nal_unit_type %d", sps.NalUnitHeader.NalUnitType)
	}

	sps.ProfileIdc = r.ReadUint8(8)
	sps.ConstraintSet0Flag = r.ReadBit()
	sps.ConstraintSet1Flag = r.ReadBit()
	sps.ConstraintSet2Flag = r.ReadBit()
	sps.ConstraintSet3Flag = r.ReadBit()
	sps.ConstraintSet4Flag = r.ReadBit()
	sps.ConstraintSet5Flag = r.ReadBit()
	sps.ReservedZero2Bits = r.ReadUint8(2)
	sps.LevelIdc = r.ReadUint8(8)

	sps.SeqParameterSetID = r.ReadUe8()
	if sps.SeqParameterSetID >= MaxSpsCount {
		return fmt.Errorf("sps: seq_parameter_set_id %d out of range", sps.SeqParameterSetID)
	}

	if sps.hasChromaInfo() {
		sps.ChromaFormatIdc = r.ReadUe8()
		if sps.ChromaFormatIdc > 3 {
			return fmt.Errorf("sps: chroma_format_idc %d out of range", sps.ChromaFormatIdc)
		}
		if sps.ChromaFormatIdc == 3 {
			sps.SeparateColourPlaneFlag = r.ReadBit()
		}

		sps.BitDepthLumaMinus8 = r.ReadUe8()
		sps.BitDepthChromaMinus8 = r.ReadUe8()
		sps.QpprimeYZeroTransformBypassFlag = r.ReadBit()

		sps.SeqScalingMatrixPresentFlag = r.ReadBit()
		if sps.SeqScalingMatrixPresentFlag != 0 {
			maxI := 8
			if sps.ChromaFormatIdc == 3 {
				maxI = 12
			}
			for i := 0; i < maxI; i++ {
				if r.ReadBit() == 0 {
					continue
				}
				if i < 6 {
					skipScalingList(r, 16)
				} else {
					skipScalingList(r, 64)
				}
			}
		}
	} else {
		sps.ChromaFormatIdc = 1
		if sps.ProfileIdc == 183 {
			sps.ChromaFormatIdc = 0
		}
	}

	sps.Log2MaxFrameNumMinus4 = r.ReadUe8()

	sps.PicOrderCntType = r.ReadUe8()
	switch sps.PicOrderCntType {
	case 0:
		sps.Log2MaxPicOrderCntLsbMinus4 = r.ReadUe8()
	case 1:
		sps.DeltaPicOrderAlwaysZeroFlag = r.ReadBit()
		sps.OffsetForNonRefPic = r.ReadSe()
		sps.OffsetForTopToBottomField = r.ReadSe()
		sps.NumRefFramesInPicOrderCntCycle = r.ReadUe8()
		for i := uint8(0); i < sps.NumRefFramesInPicOrderCntCycle; i++ {
			_ = r.ReadSe() // offset_for_ref_frame
		}
	}

	sps.MaxNumRefFrames = r.ReadUe8()
	sps.GapsInFrameNumAllowedFlag = r.ReadBit()

	sps.PicWidthInMbsMinus1 = r.ReadUe16()
	sps.PicHeightInMapUnitsMinus1 = r.ReadUe16()
	if sps.PicWidthInMbsMinus1 >= MaxMbWidth || sps.PicHeightInMapUnitsMinus1 >= MaxMbHeight {
		return errors.New("sps: picture size out of range")
	}

	sps.FrameMbsOnlyFlag = r.ReadBit()
	if sps.FrameMbsOnlyFlag == 0 {
		sps.MbAdaptiveFrameFieldFlag = r.ReadBit()
	}

	sps.Direct8x8InferenceFlag = r.ReadBit()

	sps.FrameCroppingFlag = r.ReadBit()
	if sps.FrameCroppingFlag == 1 {
		sps.FrameCropLeftOffset = r.ReadUe16()
		sps.FrameCropRightOffset = r.ReadUe16()
		sps.FrameCropTopOffset = r.ReadUe16()
		sps.FrameCropBottomOffset = r.ReadUe16()
	}

	sps.VuiParametersPresentFlag = r.ReadBit()
	if sps.VuiParametersPresentFlag == 1 {
		sps.Vui.decode(r)
	} else {
		sps.Vui.setDefault()
	}

	if sps.Width() <= 0 || sps.Height() <= 0 {
		return errors.New("sps: cropping exceeds picture size")
	}
	return
}

func (sps *RawSPS) hasChromaInfo() bool {
	switch sps.ProfileIdc {
	case 100, 110, 122, 244, 44, 83, 86, 118, 128, 138, 139, 134, 135:
		return true
	}
	return false
}

// 7.3.2.1.1.1
func skipScalingList(r *bits.Reader, size int) {
	lastScale, nextScale := 8, 8
	for j := 0; j < size; j++ {
		if nextScale != 0 {
			delta := int(r.ReadSe())
			nextScale = (lastScale + delta + 256) % 256
		}
		if nextScale != 0 {
			lastScale = nextScale
		}
	}
}

func (h *RawNALUnitHeader) decode(r *bits.Reader) (err error) {
	h.ForbiddenZeroBit = r.ReadBit()
	h.NalRefIdc = r.ReadUint8(2)
	h.NalUnitType = r.ReadUint8(5)

	if h.NalUnitType == NalPrefix ||
		h.NalUnitType == NalExtenSlice ||
		h.NalUnitType == NalDepthExtenSlice {
		err = fmt.Errorf("SVC,3DAVC,MVC not supported. nal_unit_type = %d", h.NalUnitType)
	}
	return
}

func (vui *RawVUI) decode(r *bits.Reader) {
	vui.AspectRatioInfoPresentFlag = r.ReadBit()
	if vui.AspectRatioInfoPresentFlag == 1 {
		vui.AspectRatioIdc = r.ReadUint8(8)
		if vui.AspectRatioIdc == 255 {
			vui.SarWidth = r.ReadUint16(16)
			vui.SarHeight = r.ReadUint16(16)
		}
	}

	vui.OverscanInfoPresentFlag = r.ReadBit()
	if vui.OverscanInfoPresentFlag == 1 {
		vui.OverscanAppropriateFlag = r.ReadBit()
	}

	vui.VideoSignalTypePresentFlag = r.ReadBit()
	if vui.VideoSignalTypePresentFlag == 1 {
		vui.VideoFormat = r.ReadUint8(3)
		vui.VideoFullRangeFlag = r.ReadBit()
		vui.ColourDescriptionPresentFlag = r.ReadBit()
		if vui.ColourDescriptionPresentFlag == 1 {
			vui.ColourPrimaries = r.ReadUint8(8)
			vui.TransferCharacteristics = r.ReadUint8(8)
			vui.MatrixCoefficients = r.ReadUint8(8)
		}
	} else {
		vui.VideoFormat = 5
		vui.ColourPrimaries = 2
		vui.TransferCharacteristics = 2
		vui.MatrixCoefficients = 2
	}

	vui.ChromaLocInfoPresentFlag = r.ReadBit()
	if vui.ChromaLocInfoPresentFlag == 1 {
		vui.ChromaSampleLocTypeTopField = r.ReadUe8()
		vui.ChromaSampleLocTypeBottomField = r.ReadUe8()
	}

	vui.TimingInfoPresentFlag = r.ReadBit()
	if vui.TimingInfoPresentFlag == 1 {
		vui.NumUnitsInTick = r.ReadUint32(32)
		vui.TimeScale = r.ReadUint32(32)
		vui.FixedFrameRateFlag = r.ReadBit()
	}
}

func (vui *RawVUI) setDefault() {
	vui.AspectRatioIdc = 0
	vui.VideoFormat = 5
	vui.VideoFullRangeFlag = 0
	vui.ColourPrimaries = 2
	vui.TransferCharacteristics = 2
	vui.MatrixCoefficients = 2
	vui.FixedFrameRateFlag = 0
}
