// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFragmentMeta_String(t *testing.T) {
	tests := []struct {
		name string
		meta FragmentMeta
		want string
	}{
		{"number only", FragmentMeta{Number: "frag-1"}, "frag-1"},
		{"timestamps", FragmentMeta{Number: "9100", ServerTimestamp: 1600000000123, ProducerTimestamp: 1600000000000},
			"9100,server_ts=1600000000123,producer_ts=1600000000000"},
		{"error and tags", FragmentMeta{Number: "7", ErrorCode: 3, Tags: map[string]string{"b": "2", "a": "1"}},
			"7,error_code=3,a=1,b=2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.meta.String())
		})
	}
}

func TestParseFragmentMeta(t *testing.T) {
	metas := []FragmentMeta{
		{Number: "frag-1"},
		{Number: "91343852333181432392682062596573916264811393329", ServerTimestamp: 1600000000123,
			ProducerTimestamp: 1600000000000, ErrorCode: 3},
		{Number: "7", Tags: map[string]string{"AWS_KINESISVIDEO_CONTINUATION_TOKEN": "abc", "camera": "front"}},
	}
	for _, meta := range metas {
		assert.Equal(t, meta, ParseFragmentMeta(meta.String()))
	}

	got := ParseFragmentMeta("12, server_ts=x ,flag")
	assert.Equal(t, "12", got.Number)
	assert.Zero(t, got.ServerTimestamp)
	assert.Equal(t, map[string]string{"server_ts": "x"}, got.Tags)
}

func TestOptionalFragment(t *testing.T) {
	_, ok := NoFragment().Get()
	assert.False(t, ok)

	var zero OptionalFragment
	assert.False(t, zero.Present())

	meta, ok := SomeFragment(FragmentMeta{Number: "frag-1"}).Get()
	assert.True(t, ok)
	assert.Equal(t, "frag-1", meta.Number)
}

func TestImage(t *testing.T) {
	img := NewImage(3, 2)
	img.SetRGB(2, 1, 10, 20, 30)
	img.SetRGB(5, 5, 1, 1, 1) // ignored

	assert.Equal(t, 3, img.Bounds().Dx())
	assert.Equal(t, 2, img.Bounds().Dy())

	c := img.RGBAt(2, 1)
	assert.Equal(t, []uint8{10, 20, 30, 0xff}, []uint8{c.R, c.G, c.B, c.A})

	rgba := img.RGBA()
	assert.Equal(t, img.At(2, 1), rgba.At(2, 1))
	assert.Equal(t, img.At(0, 0), rgba.At(0, 0))
}
