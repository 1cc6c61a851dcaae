// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package decoder

import "github.com/cnotch/framecast/av/codec"

// BT.601 系数，16 位定点
const (
	fixShift = 16
	fixHalf  = 1 << (fixShift - 1)

	// 全范围 (JFIF)
	fullCrR = 91881  // 1.402
	fullCbG = 22554  // 0.344136
	fullCrG = 46802  // 0.714136
	fullCbB = 116130 // 1.772

	// TV 范围，Y in [16,235]，CbCr in [16,240]
	limY   = 76284  // 1.164
	limCrR = 104595 // 1.596
	limCbG = 25690  // 0.392
	limCrG = 53281  // 0.813
	limCbB = 132186 // 2.017
)

// convertYUV420 把 pic 转换到 img。
// 两者尺寸不同时按左上角对齐裁剪，img 多出的部分保持黑色。
func convertYUV420(img *codec.Image, pic *Picture, fullRange bool) {
	w, h := img.Width, img.Height
	if pic.Width < w {
		w = pic.Width
	}
	if pic.Height < h {
		h = pic.Height
	}

	for y := 0; y < h; y++ {
		yrow := pic.Y[y*pic.YStride:]
		crow := (y / 2) * pic.CStride
		dst := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			cb := int32(pic.Cb[crow+x/2]) - 128
			cr := int32(pic.Cr[crow+x/2]) - 128
			luma := int32(yrow[x])

			var r, g, b int32
			if fullRange {
				yy := luma<<fixShift + fixHalf
				r = (yy + fullCrR*cr) >> fixShift
				g = (yy - fullCbG*cb - fullCrG*cr) >> fixShift
				b = (yy + fullCbB*cb) >> fixShift
			} else {
				yy := limY*(luma-16) + fixHalf
				r = (yy + limCrR*cr) >> fixShift
				g = (yy - limCbG*cb - limCrG*cr) >> fixShift
				b = (yy + limCbB*cb) >> fixShift
			}

			i := x * 3
			dst[i] = clamp(r)
			dst[i+1] = clamp(g)
			dst[i+2] = clamp(b)
		}
	}
}

func clamp(v int32) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
