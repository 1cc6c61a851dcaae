// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package buffered

import (
	"bytes"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/cnotch/framecast/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConn(t *testing.T) {
	fc := new(fakeConn)
	conn := NewConn(fc)
	defer conn.Close()

	assert.Equal(t, 0, conn.Buffered())
	assert.Nil(t, conn.LocalAddr())
	assert.Nil(t, conn.RemoteAddr())
	assert.Nil(t, conn.SetDeadline(time.Now()))
	assert.Nil(t, conn.SetReadDeadline(time.Now()))
	assert.Nil(t, conn.SetWriteDeadline(time.Now()))

	for i := 0; i < 100; i++ {
		n, err := conn.Write([]byte{1, 2, 3})
		assert.NoError(t, err)
		assert.Equal(t, 3, n)
	}
	assert.Equal(t, 300, conn.Buffered())
	assert.Equal(t, 0, fc.out.Len(), "write must not reach the socket before flush")

	require.NoError(t, conn.Flush())
	assert.Equal(t, 0, conn.Buffered())
	assert.Equal(t, 300, fc.out.Len())
	assert.Equal(t, int64(300), conn.Flow().GetSample().OutBytes)

	require.NoError(t, conn.Flush())
	assert.Equal(t, 300, fc.out.Len())
}

func TestConnLargeWrite(t *testing.T) {
	fc := new(fakeConn)
	conn := NewConn(fc, BufferSize(minBufferSize), Flow(stats.NewFlow()))

	_, err := conn.Write([]byte("head"))
	require.NoError(t, err)

	large := bytes.Repeat([]byte{7}, 3*minBufferSize)
	n, err := conn.Write(large)
	require.NoError(t, err)
	assert.Equal(t, len(large), n)
	assert.Equal(t, minBufferSize, conn.writer.Cap(), "buffer can't extend")

	require.NoError(t, conn.Flush())
	assert.Equal(t, 4+len(large), fc.out.Len())
	assert.Equal(t, []byte("head"), fc.out.Bytes()[:4])
	assert.Equal(t, large, fc.out.Bytes()[4:])
}

func TestConnWriteError(t *testing.T) {
	fc := &fakeConn{err: errors.New("broken pipe")}
	conn := NewConn(fc, WriteTimeout(time.Second))

	_, err := conn.Write([]byte("record"))
	require.NoError(t, err)
	assert.EqualError(t, conn.Flush(), "broken pipe")
	assert.Equal(t, 0, conn.Buffered())
	assert.True(t, fc.deadline.After(time.Now()))
}

func TestConnReader(t *testing.T) {
	fc := &fakeConn{in: strings.NewReader("hello\nrest")}
	conn := NewConn(fc, Flow(stats.NewFlow()))

	line, err := conn.Reader().ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "hello\n", line)

	p := make([]byte, 8)
	n, _ := conn.Read(p)
	assert.Equal(t, "rest", string(p[:n]))
	assert.Equal(t, int64(4), conn.Flow().GetSample().InBytes)
}

// ------------------------------------------------------------------------------------

type fakeConn struct {
	in       *strings.Reader
	out      bytes.Buffer
	err      error
	deadline time.Time
}

func (m *fakeConn) Read(p []byte) (int, error) {
	if m.in == nil {
		return 0, nil
	}
	return m.in.Read(p)
}

func (m *fakeConn) Write(p []byte) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	if len(p) > minBufferSize {
		p = p[:minBufferSize]
	}
	return m.out.Write(p)
}

func (m *fakeConn) Close() error {
	return nil
}

func (m *fakeConn) LocalAddr() net.Addr {
	return nil
}

func (m *fakeConn) RemoteAddr() net.Addr {
	return nil
}

func (m *fakeConn) SetDeadline(t time.Time) error {
	return nil
}

func (m *fakeConn) SetReadDeadline(t time.Time) error {
	return nil
}

func (m *fakeConn) SetWriteDeadline(t time.Time) error {
	m.deadline = t
	return nil
}
