// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/cnotch/framecast/av/decoder"
	"github.com/cnotch/framecast/av/decoder/ffmpeg"
	"github.com/cnotch/framecast/config"
	"github.com/cnotch/framecast/pipeline"
	"github.com/cnotch/framecast/publisher"
	"github.com/cnotch/framecast/service"
	"github.com/cnotch/scheduler"
	"github.com/cnotch/xlog"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

func main() {
	// 初始化配置
	config.InitConfig()
	if err := config.Validate(); err != nil {
		xlog.Errorf("%v", err)
		os.Exit(2)
	}

	// 初始化全局计划任务
	scheduler.SetPanicHandler(func(job *scheduler.ManagedJob, r interface{}) {
		xlog.Errorf("scheduler task panic. tag: %v, recover: %v", job.Tag, r)
	})

	session := uuid.New().String()
	logger := xlog.L().With(xlog.Fields(xlog.F("session", session)))

	if err := run(hookSignals(logger), session, logger); err != nil {
		logger.Errorf("exit with error: %v", err)
		os.Exit(1)
	}
	logger.Info("all frames published")
}

func run(ctx context.Context, session string, logger *xlog.Logger) error {
	defer func() {
		// 停止计划任务
		for _, job := range scheduler.Jobs() {
			job.Cancel()
		}
	}()

	g, ctx := errgroup.WithContext(ctx)
	srcCtx, srcDone := context.WithCancel(ctx)
	defer srcDone()

	// 诊断接口随来源结束而关闭
	if addr := config.HTTPAddr(); addr != "" {
		svc := service.NewService(session, logger)
		g.Go(func() error {
			return svc.Listen(srcCtx, addr)
		})
	}

	sink, err := openSink(ctx, config.Sink(), logger)
	if err != nil {
		srcDone()
		g.Wait()
		return err
	}
	defer sink.Close()

	pub := publisher.New(sink,
		publisher.Quality(config.JPEGQuality()),
		publisher.Logger(logger))
	pl := pipeline.New(ffmpeg.NewEngine, pub,
		pipeline.DecoderOptions(decoder.WithChromaSwap(config.ChromaSwap())),
		pipeline.Logger(logger))
	defer pl.Close()

	if interval := config.ProgressInterval(); interval > 0 {
		scheduler.PeriodFunc(interval, interval, newProgressReporter(pl, logger),
			"The task of reporting pipeline progress")
	}

	g.Go(func() error {
		defer srcDone()
		return runSource(srcCtx, config.Source(), pl, logger)
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// hookSignals 收到 SIGINT/SIGTERM 时取消返回的 context
func hookSignals(logger *xlog.Logger) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-c
		logger.Warnf("received signal %s, exiting...", sig.String())
		cancel()
	}()
	return ctx
}
