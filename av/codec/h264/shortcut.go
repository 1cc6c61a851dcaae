// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package h264

// NalType .
func NalType(nt byte) byte {
	return nt & NalTypeBitmask
}

// IsSps .
func IsSps(nt byte) bool {
	return nt&NalTypeBitmask == NalSps
}

// IsPps .
func IsPps(nt byte) bool {
	return nt&NalTypeBitmask == NalPps
}

// IsIdrSlice .
func IsIdrSlice(nt byte) bool {
	return nt&NalTypeBitmask == NalIdrSlice
}

// IsFillerData .
func IsFillerData(nt byte) bool {
	return nt&NalTypeBitmask == NalFillerData
}

// IsVCL 是否为携带图像数据的片（VCL NAL 单元）
func IsVCL(nt byte) bool {
	t := nt & NalTypeBitmask
	return t >= NalSlice && t <= NalIdrSlice
}

// HasVCL 判断 NAL 单元列表中是否包含图像片
func HasVCL(nalus [][]byte) bool {
	for _, nalu := range nalus {
		if len(nalu) > 0 && IsVCL(nalu[0]) {
			return true
		}
	}
	return false
}

// HasIdr 判断 NAL 单元列表中是否包含 IDR 片
func HasIdr(nalus [][]byte) bool {
	for _, nalu := range nalus {
		if len(nalu) > 0 && IsIdrSlice(nalu[0]) {
			return true
		}
	}
	return false
}
