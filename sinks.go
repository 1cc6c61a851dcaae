// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"context"
	"os"
	"time"

	"github.com/cnotch/framecast/config"
	"github.com/cnotch/framecast/network"
	"github.com/cnotch/framecast/network/websocket"
	"github.com/cnotch/framecast/publisher"
	"github.com/cnotch/framecast/stats"
	"github.com/cnotch/xlog"
)

// recordSink 可关闭的记录输出
type recordSink interface {
	publisher.Sink
	Close() error
}

// openSink 按配置建立输出
func openSink(ctx context.Context, c config.SinkConfig, logger *xlog.Logger) (recordSink, error) {
	opts := []network.SinkOption{
		network.BufferSize(c.BufferSize),
		network.WriteTimeout(c.Timeout()),
		network.Logger(logger),
	}

	switch c.Mode {
	case config.SinkListen:
		return network.AcceptSink(ctx, c.Addr, append(opts, network.LocalOnly(c.LocalOnly))...)
	case config.SinkWebsocket:
		return websocket.Dial(ctx, c.Addr)
	case config.SinkStdout:
		return newStdoutSink(), nil
	default:
		return network.DialSink(ctx, c.Addr, append(opts, network.AwaitGreeting(c.AwaitGreeting))...)
	}
}

type stdoutSink struct {
	*bufio.Writer
}

func newStdoutSink() *stdoutSink {
	stats.SinkConns.Add()
	return &stdoutSink{bufio.NewWriterSize(os.Stdout, 256*1024)}
}

func (s *stdoutSink) Write(p []byte) (int, error) {
	n, err := s.Writer.Write(p)
	stats.Traffic.AddOut(int64(n))
	return n, err
}

func (s *stdoutSink) Close() error {
	stats.SinkConns.Release()
	return s.Flush()
}

// newProgressReporter 定时输出管线进度
func newProgressReporter(p interface{ Stats() stats.FramesSample }, logger *xlog.Logger) func() {
	var (
		lastFrames stats.FramesSample
		lastFlow   = stats.Traffic.GetSample()
		lastTime   = time.Now()
	)
	return func() {
		frames := p.Stats()
		flow := stats.Traffic.GetSample()
		now := time.Now()
		delta := flow.Sub(lastFlow)
		secs := now.Sub(lastTime).Seconds()
		if secs <= 0 {
			secs = 1
		}

		logger.Infof("progress: received=%d decoded=%d dropped=%d published=%d (+%d), in=%.1fKB/s out=%.1fKB/s",
			frames.Received, frames.Decoded, frames.Dropped, frames.Published,
			frames.Published-lastFrames.Published,
			float64(delta.InBytes)/1024/secs, float64(delta.OutBytes)/1024/secs)

		lastFrames, lastFlow, lastTime = frames, flow, now
	}
}
