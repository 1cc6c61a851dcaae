/**********************************************************************************
* Copyright (c) 2009-2017 Misakai Ltd.
* This program is free software: you can redistribute it and/or modify it under the
* terms of the GNU Affero General Public License as published by the  Free Software
* Foundation, either version 3 of the License, or(at your option) any later version.
*
* This program is distributed  in the hope that it  will be useful, but WITHOUT ANY
* WARRANTY;  without even  the implied warranty of MERCHANTABILITY or FITNESS FOR A
* PARTICULAR PURPOSE.  See the GNU Affero General Public License  for  more details.
*
* You should have  received a copy  of the  GNU Affero General Public License along
* with this program. If not, see<http://www.gnu.org/licenses/>.
************************************************************************************/
//
// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package websocket

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/cnotch/framecast/stats"
	"github.com/gorilla/websocket"
)

const (
	writeWait        = 10 * time.Second // Time allowed to write a message to the peer.
	handshakeTimeout = 10 * time.Second
)

// ErrClosed 连接已关闭
var ErrClosed = errors.New("websocket: connection closed")

type websocketConn interface {
	NextWriter(messageType int) (io.WriteCloser, error)
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
	LocalAddr() net.Addr
	RemoteAddr() net.Addr
	SetWriteDeadline(t time.Time) error
}

// Conn 帧记录的 websocket 输出连接；每次 Flush 发送一个文本消息
type Conn struct {
	sync.Mutex
	socket websocketConn
	buffer bytes.Buffer
	flow   stats.Flow
}

// Dial 连接 ws(s):// 地址
func Dial(ctx context.Context, url string) (*Conn, error) {
	dialer := websocket.Dialer{
		Proxy:            websocket.DefaultDialer.Proxy,
		HandshakeTimeout: handshakeTimeout,
	}

	ws, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return newConn(ws), nil
}

func newConn(ws websocketConn) *Conn {
	stats.SinkConns.Add()
	return &Conn{
		socket: ws,
		flow:   stats.NewChildFlow(stats.Traffic),
	}
}

// Write 写入缓冲
func (c *Conn) Write(b []byte) (n int, err error) {
	c.Lock()
	defer c.Unlock()
	if c.socket == nil {
		return 0, ErrClosed
	}
	return c.buffer.Write(b)
}

// Flush 将缓冲作为一个消息发送
func (c *Conn) Flush() (err error) {
	c.Lock()
	defer c.Unlock()

	if c.socket == nil {
		return ErrClosed
	}
	if c.buffer.Len() == 0 {
		return nil
	}
	defer c.buffer.Reset()

	if err = c.socket.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return
	}

	var w io.WriteCloser
	if w, err = c.socket.NextWriter(websocket.TextMessage); err == nil {
		var n int
		if n, err = w.Write(c.buffer.Bytes()); err == nil {
			err = w.Close()
		}
		c.flow.AddOut(int64(n))
	}
	return
}

// Flow 流量统计
func (c *Conn) Flow() stats.Flow {
	return c.flow
}

// Close terminates the connection.
func (c *Conn) Close() error {
	c.Lock()
	defer c.Unlock()

	if c.socket == nil {
		return nil
	}
	stats.SinkConns.Release()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	c.socket.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	err := c.socket.Close()
	c.socket = nil
	return err
}

// LocalAddr returns the local network address.
func (c *Conn) LocalAddr() net.Addr {
	c.Lock()
	defer c.Unlock()
	if c.socket == nil {
		return nil
	}
	return c.socket.LocalAddr()
}

// RemoteAddr returns the remote network address.
func (c *Conn) RemoteAddr() net.Addr {
	c.Lock()
	defer c.Unlock()
	if c.socket == nil {
		return nil
	}
	return c.socket.RemoteAddr()
}
