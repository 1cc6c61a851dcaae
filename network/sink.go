// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cnotch/framecast/network/socket/buffered"
	"github.com/cnotch/framecast/stats"
	"github.com/cnotch/xlog"
	"github.com/emitter-io/address"
	"github.com/kelindar/tcp"
)

// DefaultPort 帧记录消费端的默认端口
const DefaultPort = 2009

// ErrNotLocal 非本机的消费端连接
var ErrNotLocal = errors.New("network: consumer is not local")

// SinkConn 帧记录的 TCP 输出连接
type SinkConn struct {
	*buffered.Conn
	Greeting string // 消费端发送的问候行
	closed   int32
}

func newSinkConn(c net.Conn, opts *sinkOptions) *SinkConn {
	bufOpts := []buffered.Option{buffered.WriteTimeout(opts.writeTimeout)}
	if opts.bufferSize > 0 {
		bufOpts = append(bufOpts, buffered.BufferSize(opts.bufferSize))
	}

	stats.SinkConns.Add()
	return &SinkConn{
		Conn: buffered.NewConn(c, bufOpts...),
	}
}

// Close 关闭连接
func (c *SinkConn) Close() error {
	if atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		stats.SinkConns.Release()
	}
	return c.Conn.Close()
}

// DialSink 连接到消费端，addr 未指定端口时使用 DefaultPort
func DialSink(ctx context.Context, addr string, opts ...SinkOption) (*SinkConn, error) {
	options := newSinkOptions(opts)

	tcpAddr, err := address.Parse(addr, DefaultPort)
	if err != nil {
		return nil, fmt.Errorf("network: parse sink address %q: %w", addr, err)
	}

	var d net.Dialer
	d.Timeout = options.dialTimeout
	c, err := d.DialContext(ctx, "tcp", tcpAddr.String())
	if err != nil {
		return nil, err
	}

	sink := newSinkConn(c, options)
	options.logger.Infof("sink connected, addr = %s", tcpAddr.String())

	if options.awaitGreeting {
		if err = sink.readGreeting(options); err != nil {
			sink.Close()
			return nil, err
		}
	}
	return sink, nil
}

func (c *SinkConn) readGreeting(opts *sinkOptions) error {
	if opts.dialTimeout > 0 {
		c.SetReadDeadline(time.Now().Add(opts.dialTimeout))
		defer c.SetReadDeadline(time.Time{})
	}

	line, err := c.Reader().ReadString('\n')
	if err != nil {
		return fmt.Errorf("network: read consumer greeting: %w", err)
	}
	c.Greeting = strings.TrimSpace(line)
	opts.logger.Infof("consumer greeting: %s", c.Greeting)
	return nil
}

// AcceptSink 在 addr 监听，第一个接入的消费端成为输出连接
func AcceptSink(ctx context.Context, addr string, opts ...SinkOption) (*SinkConn, error) {
	options := newSinkOptions(opts)

	tcpAddr, err := address.Parse(addr, DefaultPort)
	if err != nil {
		return nil, fmt.Errorf("network: parse listen address %q: %w", addr, err)
	}

	l, err := net.Listen("tcp", tcpAddr.String())
	if err != nil {
		return nil, err
	}
	options.logger.Infof("waiting for consumer, addr = %s", l.Addr().String())

	accepted := make(chan net.Conn, 1)
	var once sync.Once
	server := &tcp.Server{
		OnAccept: func(c net.Conn) {
			if options.localOnly {
				if !IsLocalAddr(c.RemoteAddr()) {
					options.logger.Warnf("reject consumer %s: %v", GetIP(c.RemoteAddr()), ErrNotLocal)
					c.Close()
					return
				}
			}

			taken := false
			once.Do(func() {
				taken = true
				accepted <- c
			})
			if !taken {
				c.Close()
			}
		},
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(l)
	}()
	defer l.Close()

	select {
	case c := <-accepted:
		options.logger.Infof("consumer accepted, addr = %s", c.RemoteAddr().String())
		return newSinkConn(c, options), nil
	case err = <-serveErr:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type sinkOptions struct {
	bufferSize    int
	writeTimeout  time.Duration
	dialTimeout   time.Duration
	awaitGreeting bool
	localOnly     bool
	logger        *xlog.Logger
}

func newSinkOptions(opts []SinkOption) *sinkOptions {
	options := &sinkOptions{
		dialTimeout: 10 * time.Second,
		logger:      xlog.L(),
	}
	for _, opt := range opts {
		opt.apply(options)
	}
	return options
}

// SinkOption 输出连接选项
type SinkOption interface {
	apply(*sinkOptions)
}

type sinkOptionFunc func(*sinkOptions)

func (f sinkOptionFunc) apply(o *sinkOptions) {
	f(o)
}

// BufferSize 写缓冲大小
func BufferSize(size int) SinkOption {
	return sinkOptionFunc(func(o *sinkOptions) {
		o.bufferSize = size
	})
}

// WriteTimeout 每条记录写出的超时
func WriteTimeout(timeout time.Duration) SinkOption {
	return sinkOptionFunc(func(o *sinkOptions) {
		o.writeTimeout = timeout
	})
}

// DialTimeout 建立连接及等待问候行的超时
func DialTimeout(timeout time.Duration) SinkOption {
	return sinkOptionFunc(func(o *sinkOptions) {
		o.dialTimeout = timeout
	})
}

// AwaitGreeting 连接后先读取消费端的一行问候
func AwaitGreeting(await bool) SinkOption {
	return sinkOptionFunc(func(o *sinkOptions) {
		o.awaitGreeting = await
	})
}

// LocalOnly 只接受本机消费端
func LocalOnly(local bool) SinkOption {
	return sinkOptionFunc(func(o *sinkOptions) {
		o.localOnly = local
	})
}

// Logger 日志
func Logger(logger *xlog.Logger) SinkOption {
	return sinkOptionFunc(func(o *sinkOptions) {
		if logger != nil {
			o.logger = logger
		}
	})
}
