// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package codec

import (
	"image"
	"image/color"
)

// Image 解码输出的 RGB 光栅图像，每像素 3 字节，自上而下存储
type Image struct {
	Width  int
	Height int
	Stride int
	Pix    []uint8
}

var _ image.Image = (*Image)(nil)

// NewImage 创建 w x h 的黑色图像
func NewImage(w, h int) *Image {
	return &Image{
		Width:  w,
		Height: h,
		Stride: w * 3,
		Pix:    make([]uint8, w*h*3),
	}
}

// ColorModel 实现 image.Image
func (img *Image) ColorModel() color.Model { return color.RGBAModel }

// Bounds 实现 image.Image
func (img *Image) Bounds() image.Rectangle { return image.Rect(0, 0, img.Width, img.Height) }

// At 实现 image.Image
func (img *Image) At(x, y int) color.Color {
	return img.RGBAt(x, y)
}

// RGBAt 返回 (x,y) 处的像素，越界返回透明黑
func (img *Image) RGBAt(x, y int) color.RGBA {
	if x < 0 || y < 0 || x >= img.Width || y >= img.Height {
		return color.RGBA{}
	}
	i := y*img.Stride + x*3
	return color.RGBA{img.Pix[i], img.Pix[i+1], img.Pix[i+2], 0xff}
}

// SetRGB .
func (img *Image) SetRGB(x, y int, r, g, b uint8) {
	if x < 0 || y < 0 || x >= img.Width || y >= img.Height {
		return
	}
	i := y*img.Stride + x*3
	img.Pix[i], img.Pix[i+1], img.Pix[i+2] = r, g, b
}

// RGBA 转换为 image.RGBA，JPEG 编码器对其有快速路径
func (img *Image) RGBA() *image.RGBA {
	dst := image.NewRGBA(img.Bounds())
	for y := 0; y < img.Height; y++ {
		src := img.Pix[y*img.Stride : y*img.Stride+img.Width*3]
		row := dst.Pix[y*dst.Stride : y*dst.Stride+img.Width*4]
		for x, j := 0, 0; x < len(src); x, j = x+3, j+4 {
			row[j] = src[x]
			row[j+1] = src[x+1]
			row[j+2] = src[x+2]
			row[j+3] = 0xff
		}
	}
	return dst
}
