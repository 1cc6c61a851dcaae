// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ffmpeg

import (
	"errors"
	"testing"

	"github.com/asticode/go-astiav"
	"github.com/cnotch/framecast/av/codec/h264"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeContext struct {
	sendErr error
	sent    [][]byte
}

func (c *fakeContext) SendPacket(p *astiav.Packet) error {
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, append([]byte(nil), p.Data()...))
	return nil
}

func (c *fakeContext) ReceiveFrame(f *astiav.Frame) error { return astiav.ErrEagain }
func (c *fakeContext) Free()                              {}

func newFakeEngine(cc codecContext) *Engine {
	return &Engine{
		cc:    cc,
		pkt:   astiav.AllocPacket(),
		frame: astiav.AllocFrame(),
	}
}

var (
	sps   = []byte{0x67, 0x42, 0xc0, 0x1e}
	pps   = []byte{0x68, 0xce, 0x3c, 0x80}
	slice = []byte{0x65, 0x88, 0x84}
)

func TestNew_LowDelay(t *testing.T) {
	e, err := New()
	require.NoError(t, err)
	defer e.Close()

	cc := e.cc.(*astiav.CodecContext)
	assert.True(t, cc.Flags().Has(astiav.CodecContextFlagLowDelay))
}

func TestDecode_SendAgain(t *testing.T) {
	cc := &fakeContext{sendErr: astiav.ErrEagain}
	e := newFakeEngine(cc)
	defer e.Close()

	require.NoError(t, e.Configure([][]byte{sps}, [][]byte{pps}))
	pic, err := e.Decode([][]byte{slice})
	assert.Nil(t, pic)
	require.Error(t, err)
	assert.True(t, errors.Is(err, astiav.ErrEagain))

	// 参数集留给下一次发送
	cc.sendErr = nil
	pic, err = e.Decode([][]byte{slice})
	require.NoError(t, err)
	assert.Nil(t, pic)
	require.Len(t, cc.sent, 1)

	want := h264.AppendAnnexB(nil, sps, pps, slice)
	assert.Equal(t, want, cc.sent[0])

	// 发送成功后参数集不再重复
	_, err = e.Decode([][]byte{slice})
	require.NoError(t, err)
	require.Len(t, cc.sent, 2)
	assert.Equal(t, h264.AppendAnnexB(nil, slice), cc.sent[1])
}
