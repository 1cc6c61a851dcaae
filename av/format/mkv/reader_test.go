// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mkv

import (
	"bytes"
	"errors"
	"testing"

	"github.com/cnotch/framecast/av/codec"
	"github.com/cnotch/framecast/av/codec/h264"
	"github.com/cnotch/framecast/av/decoder/decodertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	frame    *codec.Frame
	track    *codec.TrackMeta
	fragment codec.OptionalFragment
}

type collector struct {
	calls []call
	err   error
}

func (c *collector) Process(frame *codec.Frame, track *codec.TrackMeta, fragment codec.OptionalFragment) error {
	c.calls = append(c.calls, call{frame, track, fragment})
	return c.err
}

func tracks() []byte {
	return element(idTracks,
		trackEntry(1, h264.CodecID, decodertest.Record(), 64, 64),
		trackEntry(2, "A_AAC", []byte{0x12, 0x10}, 0, 0))
}

func kinesisStream() []byte {
	idr := decodertest.Payload(decodertest.IDR)
	slice := decodertest.Payload(decodertest.Slice)

	var buf bytes.Buffer
	buf.Write(ebmlHeader())
	buf.Write(element(idSegment,
		element(idInfo, uintElement(idTimecodeScale, 1000000)),
		tracks(),
		simpleTags(
			TagFragmentNumber, "91343852333181432392682062607743920146264440994",
			TagServerTimestamp, "1600000000.123",
			TagProducerTimestamp, "1600000000.000"),
		element(idCluster,
			uintElement(idTimecode, 5000),
			simpleBlock(1, 0, 0x80, idr),
			simpleBlock(2, 0, 0x80, []byte{0x21, 0x00}),
			simpleBlock(1, 33, 0x00, slice)),
		simpleTags("AWS_KINESISVIDEO_MILLIS_BEHIND_NOW", "42"),
		element(idCluster,
			uintElement(idTimecode, 5066),
			blockGroup(1, 0, slice))))
	return buf.Bytes()
}

func TestReader_Kinesis(t *testing.T) {
	c := &collector{}
	require.NoError(t, NewReader(bytes.NewReader(kinesisStream())).Apply(c))
	require.Len(t, c.calls, 3)

	first := c.calls[0]
	assert.Equal(t, uint64(1), first.track.Number)
	assert.Equal(t, 64, first.track.Width)
	assert.Equal(t, 64, first.track.Height)
	assert.Equal(t, decodertest.Record(), first.track.CodecPrivate)
	assert.True(t, first.frame.KeyFrame)
	assert.Equal(t, int64(0), first.frame.Timecode)
	assert.Equal(t, int64(5000), first.frame.ClusterTimecode)
	assert.Equal(t, decodertest.Payload(decodertest.IDR), first.frame.Payload)

	meta, ok := first.fragment.Get()
	require.True(t, ok)
	assert.Equal(t, "91343852333181432392682062607743920146264440994", meta.Number)
	assert.Equal(t, int64(1600000000123), meta.ServerTimestamp)
	assert.Equal(t, int64(1600000000000), meta.ProducerTimestamp)
	assert.Empty(t, meta.Tags)

	second := c.calls[1]
	assert.False(t, second.frame.KeyFrame)
	assert.Equal(t, int64(33), second.frame.Timecode)

	third := c.calls[2]
	assert.False(t, third.frame.KeyFrame)
	assert.Equal(t, int64(5066), third.frame.ClusterTimecode)
	meta, ok = third.fragment.Get()
	require.True(t, ok)
	assert.Equal(t, "42", meta.Tags["AWS_KINESISVIDEO_MILLIS_BEHIND_NOW"])
	assert.Equal(t, int64(1600000000123), meta.ServerTimestamp)

	// 先前交出的片段不受影响
	meta, _ = first.fragment.Get()
	assert.Empty(t, meta.Tags)
}

func plainStream() []byte {
	idr := decodertest.Payload(decodertest.IDR)
	return append(ebmlHeader(), element(idSegment,
		element(idInfo, uintElement(idTimecodeScale, 1000000)),
		tracks(),
		element(idCluster, uintElement(idTimecode, 0), simpleBlock(1, 0, 0x80, idr)),
		element(idCluster, uintElement(idTimecode, 2000), simpleBlock(1, 10, 0x80, idr)))...)
}

func TestReader_ClusterFragments(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		c := &collector{}
		require.NoError(t, NewReader(bytes.NewReader(plainStream())).Apply(c))
		require.Len(t, c.calls, 2)
		assert.False(t, c.calls[0].fragment.Present())
	})

	t.Run("enabled", func(t *testing.T) {
		c := &collector{}
		require.NoError(t, NewReader(bytes.NewReader(plainStream()), ClusterFragments(true)).Apply(c))
		require.Len(t, c.calls, 2)

		meta, ok := c.calls[0].fragment.Get()
		require.True(t, ok)
		assert.Equal(t, "0", meta.Number)
		assert.Equal(t, int64(0), meta.ServerTimestamp)

		meta, ok = c.calls[1].fragment.Get()
		require.True(t, ok)
		assert.Equal(t, "1", meta.Number)
		assert.Equal(t, int64(2000), meta.ServerTimestamp)
		assert.Equal(t, int64(10), c.calls[1].frame.Timecode)
	})
}

func TestReader_ProcessorError(t *testing.T) {
	boom := errors.New("sink closed")
	c := &collector{err: boom}

	err := NewReader(bytes.NewReader(kinesisStream())).Apply(c)
	assert.True(t, errors.Is(err, boom))
	assert.Len(t, c.calls, 1)
}

func TestReader_Lacing(t *testing.T) {
	stream := append(ebmlHeader(), element(idSegment,
		tracks(),
		element(idCluster, uintElement(idTimecode, 0), simpleBlock(1, 0, 0x82, []byte{0x01, 0x02})))...)

	c := &collector{}
	err := NewReader(bytes.NewReader(stream)).Apply(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "laced")
	assert.Empty(t, c.calls)
}

func TestParseBlock(t *testing.T) {
	b, err := parseBlock([]byte{0x81, 0xff, 0xfe, 0x80, 0x01, 0x02}, true)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), b.track)
	assert.Equal(t, int16(-2), b.timecode)
	assert.True(t, b.keyframe)
	assert.Equal(t, []byte{0x01, 0x02}, b.payload)

	// 两字节的轨道号
	b, err = parseBlock([]byte{0x40, 0x81, 0x00, 0x10, 0x00}, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x81), b.track)
	assert.Equal(t, int16(16), b.timecode)
	assert.Empty(t, b.payload)

	_, err = parseBlock([]byte{0x81, 0x00}, true)
	assert.Error(t, err)
	_, err = parseBlock([]byte{0x00, 0x00, 0x00, 0x00}, true)
	assert.Error(t, err)
	_, err = parseBlock([]byte{0x81, 0x00, 0x00, 0x06}, true)
	assert.Equal(t, ErrLacing, err)
}

func TestReader_UnknownTrack(t *testing.T) {
	idr := decodertest.Payload(decodertest.IDR)
	stream := append(ebmlHeader(), element(idSegment,
		tracks(),
		element(idCluster, uintElement(idTimecode, 0),
			simpleBlock(9, 0, 0x80, idr),
			simpleBlock(1, 0, 0x80, idr)),
		element(idCluster, uintElement(idTimecode, 1000), simpleBlock(1, 0, 0x80, idr)))...)

	c := &collector{}
	err := NewReader(bytes.NewReader(stream)).Apply(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown track 9")
	assert.Empty(t, c.calls)
}

// failOnce 只在第一次调用时失败，之后的调用说明遍历没有停下
type failOnce struct {
	collector
	first error
	later error
}

func (f *failOnce) Process(frame *codec.Frame, track *codec.TrackMeta, fragment codec.OptionalFragment) error {
	f.calls = append(f.calls, call{frame, track, fragment})
	if len(f.calls) == 1 {
		return f.first
	}
	return f.later
}

func TestReader_StopsAtFirstError(t *testing.T) {
	idr := decodertest.Payload(decodertest.IDR)
	stream := append(ebmlHeader(), element(idSegment,
		tracks(),
		element(idCluster, uintElement(idTimecode, 0), simpleBlock(1, 0, 0x80, idr)),
		simpleTags(TagFragmentNumber, "7"),
		element(idCluster, uintElement(idTimecode, 1000), simpleBlock(1, 0, 0x80, idr)))...)

	first := errors.New("missing fragment metadata")
	p := &failOnce{first: first, later: errors.New("later")}
	err := NewReader(bytes.NewReader(stream)).Apply(p)
	assert.True(t, errors.Is(err, first))
	assert.Len(t, p.calls, 1)
}

func TestReader_SegmentResetsFragment(t *testing.T) {
	idr := decodertest.Payload(decodertest.IDR)
	doc := func(number string, timecode uint64) []byte {
		return append(ebmlHeader(), element(idSegment,
			tracks(),
			element(idCluster, uintElement(idTimecode, timecode), simpleBlock(1, 0, 0x80, idr)),
			simpleTags(TagFragmentNumber, number),
			element(idCluster, uintElement(idTimecode, timecode+1000), simpleBlock(1, 0, 0x80, idr)))...)
	}
	stream := append(doc("1", 0), doc("2", 5000)...)

	c := &collector{}
	require.NoError(t, NewReader(bytes.NewReader(stream)).Apply(c))
	require.Len(t, c.calls, 4)

	assert.False(t, c.calls[0].fragment.Present())
	meta, ok := c.calls[1].fragment.Get()
	require.True(t, ok)
	assert.Equal(t, "1", meta.Number)
	// 第二个文档的首帧不继承上一个文档的片段
	assert.False(t, c.calls[2].fragment.Present())
	meta, ok = c.calls[3].fragment.Get()
	require.True(t, ok)
	assert.Equal(t, "2", meta.Number)
}
