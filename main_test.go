// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/cnotch/framecast/config"
	"github.com/cnotch/framecast/stats"
	"github.com/cnotch/xlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenReaderFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "framecast")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "a.mkv")
	require.NoError(t, ioutil.WriteFile(path, []byte{0x1a, 0x45, 0xdf, 0xa3}, 0644))
	assert.True(t, isFile(path))
	assert.False(t, isFile(dir))

	r, err := openReader(context.Background(), config.SourceConfig{URL: path})
	require.NoError(t, err)
	defer r.Close()
	data, _ := ioutil.ReadAll(r)
	assert.Equal(t, []byte{0x1a, 0x45, 0xdf, 0xa3}, data)
}

func TestOpenReaderHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stream.mkv" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("mkv"))
	}))
	defer srv.Close()

	r, err := openReader(context.Background(), config.SourceConfig{URL: srv.URL + "/stream.mkv"})
	require.NoError(t, err)
	data, _ := ioutil.ReadAll(r)
	r.Close()
	assert.Equal(t, "mkv", string(data))

	_, err = openReader(context.Background(), config.SourceConfig{URL: srv.URL + "/missing"})
	assert.Error(t, err)
}

func TestRunSourceCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := config.SourceConfig{URL: "/nonexistent/a.mkv", Format: config.FormatMKV}
	err := runSource(ctx, src, nil, xlog.L())
	assert.Equal(t, context.Canceled, err)
}

type fixedStats stats.FramesSample

func (f fixedStats) Stats() stats.FramesSample { return stats.FramesSample(f) }

func TestProgressReporter(t *testing.T) {
	report := newProgressReporter(fixedStats{Received: 3, Decoded: 2, Dropped: 1, Published: 2}, xlog.L())
	assert.NotPanics(t, report)
	assert.NotPanics(t, report)
}

func TestStdoutSink(t *testing.T) {
	before := stats.SinkConns.GetSample().Active
	sink, err := openSink(context.Background(), config.SinkConfig{Mode: config.SinkStdout}, xlog.L())
	require.NoError(t, err)
	assert.Equal(t, before+1, stats.SinkConns.GetSample().Active)
	require.NoError(t, sink.Close())
	assert.Equal(t, before, stats.SinkConns.GetSample().Active)
}
