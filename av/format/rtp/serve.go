// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtp

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/cnotch/framecast/stats"
)

const (
	maxDatagramSize = 1500 * 2
	pollInterval    = time.Second
)

// Serve 从 conn 读取 RTP 数据报直到 ctx 结束，处理器的错误终止读取并返回。
// ctx 结束时返回 nil。
func Serve(ctx context.Context, conn net.PacketConn, dp *H264Depacketizer) error {
	buf := make([]byte, maxDatagramSize)
	for {
		if ctx.Err() != nil {
			return dp.Flush()
		}

		conn.SetReadDeadline(time.Now().Add(pollInterval))
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return dp.Flush()
			}
			return err
		}
		stats.Traffic.AddIn(int64(n))

		data := make([]byte, n)
		copy(data, buf[:n])
		packet, err := NewPacket(data)
		if err != nil {
			dp.logger.Warnf("rtp: drop malformed packet: %v", err)
			continue
		}
		if err = dp.Depacketize(packet); err != nil {
			return err
		}
	}
}

// ServeInterleaved 从交织格式的流（如 RTSP over TCP 的录制）读取 channel 通道的包，
// 直到流结束或 ctx 结束。
func ServeInterleaved(ctx context.Context, r io.Reader, channel byte, dp *H264Depacketizer) error {
	br := bufio.NewReaderSize(r, 64*1024)
	for ctx.Err() == nil {
		packet, err := ReadPacket(br)
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		stats.Traffic.AddIn(int64(packet.Size()))

		if packet.Channel != channel {
			continue
		}
		if err = dp.Depacketize(packet); err != nil {
			return err
		}
	}
	return dp.Flush()
}
