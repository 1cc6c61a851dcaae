// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package buffered

import (
	"bufio"
	"bytes"
	"net"
	"time"

	"github.com/cnotch/framecast/stats"
)

const (
	defaultBufferSize = 256 * 1024
	minBufferSize     = 8 * 1024
)

// Conn wraps a net.Conn and provides buffered ability.
type Conn struct {
	socket       net.Conn      // The underlying network connection.
	reader       *bufio.Reader // The buffered reader
	writer       *bytes.Buffer // The buffered write queue.
	bufferSize   int           // The read and write max buffer size
	writeTimeout time.Duration // 每次向底层连接写入的超时
	flow         stats.Flow    // 流量统计
}

// NewConn creates a new buffered connection.
func NewConn(c net.Conn, options ...Option) *Conn {
	conn, ok := c.(*Conn)
	if !ok {
		conn = &Conn{
			socket: c,
		}
	}

	for _, option := range options {
		option.apply(conn)
	}

	if conn.bufferSize <= 0 {
		conn.bufferSize = defaultBufferSize
	}
	if conn.flow == nil {
		conn.flow = stats.NewChildFlow(stats.Traffic)
	}

	// 设置IO缓冲对象
	conn.reader = bufio.NewReaderSize(conn.socket, minBufferSize)
	conn.writer = bytes.NewBuffer(make([]byte, 0, conn.bufferSize))
	return conn
}

// Buffered returns the pending buffer size.
func (m *Conn) Buffered() (n int) {
	return m.writer.Len()
}

// Reader 返回内部的 bufio.Reader
func (m *Conn) Reader() *bufio.Reader {
	return m.reader
}

// Flow 返回连接的流量统计
func (m *Conn) Flow() stats.Flow {
	return m.flow
}

// Flush flushes the underlying buffer by writing into the underlying connection.
func (m *Conn) Flush() error {
	if m.Buffered() == 0 {
		return nil
	}

	// Flush everything and reset the buffer
	_, err := m.writeFull(m.writer.Bytes())
	m.writer.Reset()
	return err
}

// Read reads the block of data from the underlying buffer.
func (m *Conn) Read(p []byte) (n int, err error) {
	n, err = m.reader.Read(p)
	m.flow.AddIn(int64(n))
	return
}

// Write writes the block of data into the underlying buffer.
// 数据只在缓冲满或 Flush 时写入底层连接。
func (m *Conn) Write(p []byte) (nn int, err error) {
	var n int
	// 没有足够的空间容纳 p
	for len(p) > m.bufferSize-m.Buffered() && err == nil {
		if m.Buffered() == 0 {
			// Large write, empty buffer.
			// Write directly from p to avoid copy.
			n, err = m.writeFull(p)
		} else {
			// write buffer to full state，and flush
			n, _ = m.writer.Write(p[:m.bufferSize-m.Buffered()])
			err = m.Flush()
		}
		nn += n
		p = p[n:]
	}

	if err != nil {
		return nn, err
	}

	n, err = m.writer.Write(p)
	return nn + n, err
}

func (m *Conn) writeFull(p []byte) (nn int, err error) {
	if m.writeTimeout > 0 {
		if err = m.socket.SetWriteDeadline(time.Now().Add(m.writeTimeout)); err != nil {
			return
		}
	}

	var n int
	for len(p) > 0 && err == nil {
		n, err = m.socket.Write(p)
		nn += n
		p = p[n:]
	}
	m.flow.AddOut(int64(nn))
	return nn, err
}

// Close closes the connection. Any blocked Read or Write operations will be unblocked
// and return errors.
func (m *Conn) Close() error {
	return m.socket.Close()
}

// LocalAddr returns the local network address.
func (m *Conn) LocalAddr() net.Addr {
	return m.socket.LocalAddr()
}

// RemoteAddr returns the remote network address.
func (m *Conn) RemoteAddr() net.Addr {
	return m.socket.RemoteAddr()
}

// SetDeadline sets the read and write deadlines associated
// with the connection. It is equivalent to calling both
// SetReadDeadline and SetWriteDeadline.
func (m *Conn) SetDeadline(t time.Time) error {
	return m.socket.SetDeadline(t)
}

// SetReadDeadline sets the deadline for future Read calls
// and any currently-blocked Read call.
func (m *Conn) SetReadDeadline(t time.Time) error {
	return m.socket.SetReadDeadline(t)
}

// SetWriteDeadline sets the deadline for future Write calls
// and any currently-blocked Write call.
func (m *Conn) SetWriteDeadline(t time.Time) error {
	return m.socket.SetWriteDeadline(t)
}

// Option 配置 Conn 的选项接口
type Option interface {
	apply(*Conn)
}

// OptionFunc 包装函数以便它满足 Option 接口
type optionFunc func(*Conn)

func (f optionFunc) apply(c *Conn) {
	f(c)
}

// BufferSize Conn 写缓冲大小
func BufferSize(bufferSize int) Option {
	return optionFunc(func(c *Conn) {
		if bufferSize < minBufferSize { // 如果不合规，设置成最小值
			bufferSize = minBufferSize
		}
		c.bufferSize = bufferSize
	})
}

// WriteTimeout 每次写入底层连接的超时，<=0 不设置
func WriteTimeout(timeout time.Duration) Option {
	return optionFunc(func(c *Conn) {
		c.writeTimeout = timeout
	})
}

// Flow 设置流量统计
func Flow(flow stats.Flow) Option {
	return optionFunc(func(c *Conn) {
		c.flow = flow
	})
}
