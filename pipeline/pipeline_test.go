// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pipeline_test

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image/jpeg"
	"strings"
	"testing"

	"github.com/cnotch/framecast/av/codec"
	"github.com/cnotch/framecast/av/codec/h264"
	"github.com/cnotch/framecast/av/decoder"
	"github.com/cnotch/framecast/av/decoder/decodertest"
	"github.com/cnotch/framecast/pipeline"
	"github.com/cnotch/framecast/protos/frameline"
	"github.com/cnotch/framecast/publisher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bufferSink struct {
	bytes.Buffer
	flushes int
}

func (s *bufferSink) Flush() error {
	s.flushes++
	return nil
}

type harness struct {
	sink    *bufferSink
	engines []*decodertest.Engine
	pl      *pipeline.Pipeline
}

func newHarness(w, h int) *harness {
	hs := &harness{sink: &bufferSink{}}
	factory := func() (decoder.Engine, error) {
		e := decodertest.NewEngine(w, h)
		hs.engines = append(hs.engines, e)
		return e, nil
	}
	hs.pl = pipeline.New(factory, publisher.New(hs.sink))
	return hs
}

func (hs *harness) records(t *testing.T) []*frameline.Record {
	var recs []*frameline.Record
	for _, line := range strings.SplitAfter(hs.sink.String(), "\n") {
		if line == "" {
			continue
		}
		rec, err := frameline.ParseRecord([]byte(line))
		require.NoError(t, err)
		recs = append(recs, rec)
	}
	return recs
}

func track(w, h int) *codec.TrackMeta {
	return &codec.TrackMeta{
		Number:       1,
		CodecID:      h264.CodecID,
		Width:        w,
		Height:       h,
		CodecPrivate: decodertest.Record(),
	}
}

func frag(number string) codec.OptionalFragment {
	return codec.SomeFragment(codec.FragmentMeta{Number: number})
}

func TestPipeline_EndToEnd(t *testing.T) {
	hs := newHarness(64, 64)

	err := hs.pl.Process(&codec.Frame{Timecode: 1000, Payload: decodertest.Payload(decodertest.IDR)}, track(64, 64), frag("frag-1"))
	require.NoError(t, err)

	out := hs.sink.String()
	assert.Regexp(t, `^[A-Za-z0-9+/=]+\$[A-Za-z0-9+/=]+\$[A-Za-z0-9+/=]+\n$`, out)
	fields := strings.Split(strings.TrimSuffix(out, "\n"), "$")
	require.Len(t, fields, 3)
	tc, err := base64.StdEncoding.DecodeString(fields[1])
	require.NoError(t, err)
	assert.Equal(t, "1000", string(tc))

	recs := hs.records(t)
	require.Len(t, recs, 1)
	assert.Equal(t, "frag-1", recs[0].Fragment)
	img, err := jpeg.Decode(bytes.NewReader(recs[0].Image))
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 64, img.Bounds().Dy())
	assert.Equal(t, 1, hs.sink.flushes)
}

func TestPipeline_OrderAndDrop(t *testing.T) {
	hs := newHarness(64, 64)
	tr := track(64, 64)
	paramsOnly := decodertest.Payload(decodertest.SPS, decodertest.PPS)

	frames := []*codec.Frame{
		{Timecode: 0, Payload: decodertest.Payload(decodertest.IDR)},
		{Timecode: 33, Payload: paramsOnly},
		{Timecode: 66, Payload: decodertest.Payload(decodertest.Slice)},
		{Timecode: 100, Payload: paramsOnly},
		{Timecode: 133, Payload: decodertest.Payload(decodertest.Slice)},
	}
	for _, f := range frames {
		require.NoError(t, hs.pl.Process(f, tr, frag("7")))
	}

	recs := hs.records(t)
	require.Len(t, recs, 3)
	assert.Equal(t, int64(0), recs[0].Timecode)
	assert.Equal(t, int64(66), recs[1].Timecode)
	assert.Equal(t, int64(133), recs[2].Timecode)

	st := hs.pl.Stats()
	assert.Equal(t, int64(5), st.Received)
	assert.Equal(t, int64(3), st.Decoded)
	assert.Equal(t, int64(2), st.Dropped)
	assert.Equal(t, int64(3), st.Published)
	require.Len(t, hs.engines, 1)
	assert.Equal(t, 1, hs.engines[0].Configured)
}

func TestPipeline_DropOnNoPicture(t *testing.T) {
	hs := newHarness(64, 64)

	err := hs.pl.Process(&codec.Frame{Payload: decodertest.Payload(decodertest.SPS, decodertest.PPS)}, track(64, 64), frag("1"))
	require.NoError(t, err)
	assert.Equal(t, 0, hs.sink.Len())
	assert.Equal(t, int64(0), hs.pl.Stats().Decoded)
}

func TestPipeline_FatalErrors(t *testing.T) {
	t.Run("configuration", func(t *testing.T) {
		hs := newHarness(64, 64)
		tr := track(64, 64)
		tr.CodecPrivate = []byte{0x01, 0x42, 0xc0, 0x0a, 0xff, 0xe1, 0x00, 0x20, 0x67}

		err := hs.pl.Process(&codec.Frame{Payload: decodertest.Payload(decodertest.IDR)}, tr, frag("1"))
		assert.True(t, errors.Is(err, decoder.ErrConfiguration), "got %v", err)
		assert.Equal(t, 0, hs.sink.Len())
	})

	t.Run("missing fragment", func(t *testing.T) {
		hs := newHarness(64, 64)

		err := hs.pl.Process(&codec.Frame{Payload: decodertest.Payload(decodertest.IDR)}, track(64, 64), codec.NoFragment())
		assert.True(t, errors.Is(err, publisher.ErrMissingFragment), "got %v", err)
		assert.Equal(t, 0, hs.sink.Len())
	})

	t.Run("decode", func(t *testing.T) {
		hs := newHarness(64, 64)

		err := hs.pl.Process(&codec.Frame{Payload: []byte{0x00, 0x00, 0x00, 0x09, 0x65}}, track(64, 64), frag("1"))
		assert.True(t, errors.Is(err, decoder.ErrDecode), "got %v", err)
	})

	t.Run("engine factory", func(t *testing.T) {
		want := errors.New("no h264 decoder")
		pl := pipeline.New(func() (decoder.Engine, error) { return nil, want }, publisher.New(&bufferSink{}))

		err := pl.Process(&codec.Frame{Payload: decodertest.Payload(decodertest.IDR)}, track(64, 64), frag("1"))
		assert.Equal(t, want, err)
	})
}

func TestPipeline_Geometry(t *testing.T) {
	hs := newHarness(64, 64)

	for _, size := range [][2]int{{48, 32}, {64, 64}, {96, 80}} {
		tr := track(size[0], size[1])
		require.NoError(t, hs.pl.Process(&codec.Frame{Payload: decodertest.Payload(decodertest.IDR)}, tr, frag("1")))
	}

	recs := hs.records(t)
	require.Len(t, recs, 3)
	for i, size := range [][2]int{{48, 32}, {64, 64}, {96, 80}} {
		img, err := jpeg.Decode(bytes.NewReader(recs[i].Image))
		require.NoError(t, err)
		assert.Equal(t, size[0], img.Bounds().Dx())
		assert.Equal(t, size[1], img.Bounds().Dy())
	}
}

func TestPipeline_Tracks(t *testing.T) {
	hs := newHarness(64, 64)
	tr1, tr2 := track(64, 64), track(64, 64)
	tr2.Number = 2

	require.NoError(t, hs.pl.Process(&codec.Frame{Payload: decodertest.Payload(decodertest.IDR)}, tr1, frag("1")))
	require.NoError(t, hs.pl.Process(&codec.Frame{Payload: decodertest.Payload(decodertest.IDR)}, tr2, frag("1")))
	require.NoError(t, hs.pl.Process(&codec.Frame{Payload: decodertest.Payload(decodertest.Slice)}, tr1, frag("1")))
	assert.Len(t, hs.engines, 2)

	require.NoError(t, hs.pl.Close())
	for _, e := range hs.engines {
		assert.True(t, e.Closed)
	}
}
