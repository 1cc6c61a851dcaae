// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package h264

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAVCDecoderConfigurationRecord_Marshal(t *testing.T) {
	record := NewAVCDecoderConfigurationRecord(sps64x64, ppsBaseline)
	data, err := record.Marshal()
	require.NoError(t, err)
	assert.Equal(t, record.MarshalSize(), len(data))
	assert.Equal(t, []byte{0x01, 0x42, 0xc0, 0x0a, 0xff, 0xe1, 0x00, 0x07}, data[:8])

	var got AVCDecoderConfigurationRecord
	require.NoError(t, got.Unmarshal(data))
	assert.Equal(t, 4, got.LengthSize())
	assert.Equal(t, byte(0x42), got.AVCProfileIndication)
	assert.Equal(t, [][]byte{sps64x64}, got.SPS)
	assert.Equal(t, [][]byte{ppsBaseline}, got.PPS)
}

func TestAVCDecoderConfigurationRecord_MultipleSets(t *testing.T) {
	record := &AVCDecoderConfigurationRecord{
		ConfigurationVersion: 1,
		LengthSizeMinusOne:   1,
		SPS:                  [][]byte{sps64x64, sps64x64},
		PPS:                  [][]byte{ppsBaseline, {0x68, 0x01}, {0x68, 0x02}},
	}
	data, err := record.Marshal()
	require.NoError(t, err)

	var got AVCDecoderConfigurationRecord
	require.NoError(t, got.Unmarshal(data))
	assert.Equal(t, 2, got.LengthSize())
	assert.Len(t, got.SPS, 2)
	assert.Len(t, got.PPS, 3)
	assert.Equal(t, []byte{0x68, 0x02}, got.PPS[2])
}

func TestAVCDecoderConfigurationRecord_UnmarshalErrors(t *testing.T) {
	valid, err := NewAVCDecoderConfigurationRecord(sps64x64, ppsBaseline).Marshal()
	require.NoError(t, err)

	mutate := func(f func(b []byte) []byte) []byte {
		b := append([]byte(nil), valid...)
		return f(b)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short", valid[:6]},
		{"version", mutate(func(b []byte) []byte { b[0] = 2; return b })},
		{"length size 3", mutate(func(b []byte) []byte { b[4] = 0xfe; return b })},
		{"truncated sps", valid[:10]},
		{"missing pps count", valid[:8+len(sps64x64)]},
		{"no sps", mutate(func(b []byte) []byte { b[5] = 0xe0; return b })},
		{"no pps", mutate(func(b []byte) []byte { b[8+len(sps64x64)] = 0; return b })},
		{"sps is pps", mutate(func(b []byte) []byte { b[8] = 0x68; return b })},
		{"zero length sps", mutate(func(b []byte) []byte { b[6], b[7] = 0, 0; return b })},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var record AVCDecoderConfigurationRecord
			assert.Error(t, record.Unmarshal(tt.data))
		})
	}
}
