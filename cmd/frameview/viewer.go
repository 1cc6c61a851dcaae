// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"errors"
	"fmt"
	"image/jpeg"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/cnotch/framecast/av/codec"
	"github.com/cnotch/framecast/protos/frameline"
	"github.com/cnotch/framecast/utils"
	"github.com/cnotch/queue"
	"github.com/cnotch/xlog"
)

// endOfStream 读取结束的标记
type endOfStream struct{}

// entry 索引中的一帧
type entry struct {
	File     string             `json:"file"`
	Timecode int64              `json:"timecode"`
	Width    int                `json:"width"`
	Height   int                `json:"height"`
	Fragment codec.FragmentMeta `json:"fragment"`
}

// viewer 接收一个生产者连接的记录并保存成 JPEG 文件
type viewer struct {
	dir      string
	greeting string
	logger   *xlog.Logger

	recvQueue *queue.SyncQueue
	done      chan struct{}
	index     []entry
	bad       int // 保存失败的记录
	malformed int // 无法解析的行，只在 serve 中修改
}

func newViewer(dir, greeting string, logger *xlog.Logger) (*viewer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	v := &viewer{
		dir:       dir,
		greeting:  greeting,
		logger:    logger,
		recvQueue: queue.NewSyncQueue(),
		done:      make(chan struct{}),
	}
	go v.consume()
	return v, nil
}

// serve 发送问候行，然后读取记录直到连接结束
func (v *viewer) serve(rw io.ReadWriter) error {
	defer v.recvQueue.Push(endOfStream{})

	if v.greeting != "" {
		if _, err := io.WriteString(rw, v.greeting+"\r\n"); err != nil {
			return err
		}
	}

	r := frameline.NewReader(rw)
	for {
		rec, err := r.ReadRecord()
		if err == io.EOF {
			return nil
		}
		if errors.Is(err, frameline.ErrMalformed) {
			v.malformed++
			v.logger.Warn(err.Error())
			continue
		}
		if err != nil {
			return err
		}
		v.recvQueue.Push(rec)
	}
}

// Wait 等待所有记录写入完成
func (v *viewer) Wait() {
	<-v.done
}

func (v *viewer) consume() {
	defer func() {
		if r := recover(); r != nil {
			v.logger.Errorf("consume routine panic；r = %v \n %s", r, debug.Stack())
		}
		v.recvQueue.Reset()
		close(v.done)
	}()

	for {
		p := v.recvQueue.Pop()
		switch rec := p.(type) {
		case nil:
			continue
		case endOfStream:
			v.finish()
			return
		case *frameline.Record:
			if err := v.save(rec); err != nil {
				v.bad++
				v.logger.Warnf("frame %d: %v", len(v.index)+v.bad, err)
			}
		}
	}
}

func (v *viewer) save(rec *frameline.Record) error {
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(rec.Image))
	if err != nil {
		return err
	}

	name := fmt.Sprintf("%06d_%d.jpg", len(v.index), rec.Timecode)
	if err = ioutil.WriteFile(filepath.Join(v.dir, name), rec.Image, 0644); err != nil {
		return err
	}

	e := entry{
		File:     name,
		Timecode: rec.Timecode,
		Width:    cfg.Width,
		Height:   cfg.Height,
		Fragment: codec.ParseFragmentMeta(rec.Fragment),
	}
	v.index = append(v.index, e)

	if v.logger.LevelEnabled(xlog.DebugLevel) {
		v.logger.Debugf("saved %s %dx%d fragment %s", name, e.Width, e.Height, rec.Fragment)
	}
	return nil
}

func (v *viewer) finish() {
	v.logger.Infof("stream ended, %d frames saved, %d failed, %d malformed",
		len(v.index), v.bad, v.malformed)
	if err := utils.EncodeJSONFile(filepath.Join(v.dir, "index.json"), v.index); err != nil {
		v.logger.Errorf("write index: %v", err)
	}
}
