// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package service

import (
	"context"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/cnotch/framecast/config"
	"github.com/cnotch/xlog"
	"github.com/emitter-io/address"
)

// DefaultPort 诊断接口默认端口
const DefaultPort = 8086

// Service 诊断 http 服务
type Service struct {
	session string
	logger  *xlog.Logger
	http    *http.Server
}

// NewService 创建服务，session 为本次运行的会话标识
func NewService(session string, l *xlog.Logger) *Service {
	s := &Service{
		session: session,
		logger:  l,
		http: &http.Server{
			ReadTimeout:  config.NetTimeout(),
			WriteTimeout: config.NetTimeout(),
		},
	}

	// 设置 http 的Handler
	mux := http.NewServeMux()

	if config.Profile() {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	s.initApis(mux)
	s.http.Handler = mux

	s.logger.Info("service configured")
	return s
}

// Handler 返回 http Handler
func (s *Service) Handler() http.Handler {
	return s.http.Handler
}

// Listen 在 addr 上提供服务，直到 ctx 结束
func (s *Service) Listen(ctx context.Context, addr string) error {
	tcpAddr, err := address.Parse(addr, DefaultPort)
	if err != nil {
		return err
	}

	l, err := net.Listen("tcp", tcpAddr.String())
	if err != nil {
		return err
	}
	s.logger.Infof("starting the diagnostics listener, addr = %s.", l.Addr().String())
	return s.Serve(ctx, l)
}

// Serve 在 l 上提供服务，直到 ctx 结束
func (s *Service) Serve(ctx context.Context, l net.Listener) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			s.http.Shutdown(shutdownCtx)
		case <-done:
		}
	}()

	err := s.http.Serve(l)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
