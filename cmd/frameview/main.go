// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// frameview 接收 framecast 的帧记录并保存成 JPEG 文件。
package main

import (
	"flag"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"syscall"

	cfg "github.com/cnotch/loader"
	"github.com/cnotch/xlog"
	"github.com/kelindar/tcp"
)

type options struct {
	Listen   string `json:"listen"`
	Output   string `json:"output"`
	Greeting string `json:"greeting"`
}

func main() {
	opts := new(options)
	flag.StringVar(&opts.Listen, "listen", "localhost:2009", "Set the listen address")
	flag.StringVar(&opts.Output, "output", "frames", "Set the output directory")
	flag.StringVar(&opts.Greeting, "greeting", "Message", "Set the greeting line sent to producers")

	if err := cfg.Load(opts,
		&cfg.EnvLoader{Prefix: "FRAMEVIEW"},
		&cfg.FlagLoader{}); err != nil {
		xlog.Panic(err.Error())
	}

	l, err := net.Listen("tcp", opts.Listen)
	if err != nil {
		xlog.Panic(err.Error())
	}
	xlog.L().Infof("frameview listening, addr = %s", l.Addr().String())

	var seq int64
	server := &tcp.Server{
		OnAccept: func(c net.Conn) {
			defer c.Close()
			n := atomic.AddInt64(&seq, 1)
			logger := xlog.L().With(xlog.Fields(
				xlog.F("conn", n),
				xlog.F("remote", c.RemoteAddr().String())))

			v, err := newViewer(filepath.Join(opts.Output, strconv.FormatInt(n, 10)), opts.Greeting, logger)
			if err != nil {
				logger.Error(err.Error())
				return
			}
			if err = v.serve(c); err != nil {
				logger.Warnf("read records: %v", err)
			}
			v.Wait()
		},
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sig
		xlog.L().Warnf("received signal %s, exiting...", s.String())
		l.Close()
	}()

	if err = server.Serve(l); err != nil {
		xlog.L().Info(err.Error())
	}
}
