// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"net"
	"net/http"
	"os"

	"github.com/cnotch/framecast/av/codec"
	"github.com/cnotch/framecast/av/format/mkv"
	"github.com/cnotch/framecast/av/format/rtp"
	"github.com/cnotch/framecast/av/format/sdp"
	"github.com/cnotch/framecast/config"
	"github.com/cnotch/framecast/stats"
	"github.com/cnotch/framecast/utils"
	"github.com/cnotch/xlog"
)

// runSource 把来源中的帧逐个交给 p，直到来源结束、出错或 ctx 结束
func runSource(ctx context.Context, src config.SourceConfig, p codec.FrameProcessor, logger *xlog.Logger) error {
	var err error
	switch src.Format {
	case config.FormatRTP:
		err = runRTP(ctx, src, p, logger)
	default:
		err = runMKV(ctx, src, p, logger)
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func runMKV(ctx context.Context, src config.SourceConfig, p codec.FrameProcessor, logger *xlog.Logger) error {
	r, err := openReader(ctx, src)
	if err != nil {
		return err
	}
	defer r.Close()

	// ctx 结束时关闭来源，以便解析立即返回
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			r.Close()
		case <-stop:
		}
	}()

	logger.Infof("reading matroska from %s", src.URL)
	return mkv.NewReader(utils.NewFlowReader(r, stats.Traffic),
		mkv.ClusterFragments(src.ClusterFragments),
		mkv.Logger(logger)).Apply(p)
}

func runRTP(ctx context.Context, src config.SourceConfig, p codec.FrameProcessor, logger *xlog.Logger) error {
	rawsdp, err := ioutil.ReadFile(src.SDP)
	if err != nil {
		return err
	}
	track, clockRate, err := sdp.ParseTrack(string(rawsdp))
	if err != nil {
		return err
	}

	dp := rtp.NewH264Depacketizer(track, clockRate, p)
	dp.SetLogger(logger)

	// "-" 或文件为 RTSP 交织流，其他为 udp 监听地址
	if src.URL == "-" || isFile(src.URL) {
		r, err := openReader(ctx, src)
		if err != nil {
			return err
		}
		defer r.Close()
		logger.Infof("reading interleaved rtp from %s, channel %d", src.URL, src.Channel)
		return rtp.ServeInterleaved(ctx, r, byte(src.Channel), dp)
	}

	conn, err := net.ListenPacket("udp", src.URL)
	if err != nil {
		return err
	}
	defer conn.Close()
	logger.Infof("receiving rtp on %s", conn.LocalAddr().String())
	return rtp.Serve(ctx, conn, dp)
}

// openReader 打开文件、标准输入或 http(s) 来源
func openReader(ctx context.Context, src config.SourceConfig) (io.ReadCloser, error) {
	switch {
	case src.URL == "-":
		return ioutil.NopCloser(os.Stdin), nil
	case src.IsRemote():
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("source %s: %s", src.URL, resp.Status)
		}
		return resp.Body, nil
	default:
		return os.Open(src.URL)
	}
}

func isFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}
