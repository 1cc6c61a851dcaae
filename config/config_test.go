// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/cnotch/xlog"
	"github.com/stretchr/testify/assert"
)

func TestSourceValidate(t *testing.T) {
	tests := []struct {
		name    string
		source  SourceConfig
		wantErr bool
	}{
		{"mkv stdin", SourceConfig{URL: "-", Format: FormatMKV}, false},
		{"rtp with sdp", SourceConfig{URL: ":5004", Format: FormatRTP, SDP: "cam.sdp"}, false},
		{"rtp without sdp", SourceConfig{URL: ":5004", Format: FormatRTP}, true},
		{"unknown format", SourceConfig{URL: "-", Format: "flv"}, true},
		{"empty url", SourceConfig{Format: FormatMKV}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.source.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSourceIsRemote(t *testing.T) {
	assert.True(t, (&SourceConfig{URL: "https://example.com/stream.mkv"}).IsRemote())
	assert.True(t, (&SourceConfig{URL: "http://10.0.0.1/a.webm"}).IsRemote())
	assert.False(t, (&SourceConfig{URL: "/data/a.mkv"}).IsRemote())
	assert.False(t, (&SourceConfig{URL: "-"}).IsRemote())
}

func TestSinkConfig(t *testing.T) {
	c := SinkConfig{Mode: SinkListen, WriteTimeout: 3}
	assert.NoError(t, c.Validate())
	assert.Equal(t, 3*time.Second, c.Timeout())

	c.Mode = "udp"
	assert.Error(t, c.Validate())
}

func TestDefaults(t *testing.T) {
	assert.True(t, ChromaSwap())
	assert.Equal(t, 75, JPEGQuality())
	assert.Equal(t, time.Duration(0), ProgressInterval())
	assert.Equal(t, SinkDial, Sink().Mode)
	assert.NoError(t, Validate())
}

func TestLogConfig_NewLogger(t *testing.T) {
	var buf bytes.Buffer
	c := LogConfig{Level: xlog.WarnLevel}
	logger := c.newLogger(&buf)

	logger.Info("dropped")
	logger.Warn("kept")
	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")

	buf.Reset()
	c = LogConfig{Level: xlog.InfoLevel, ToFile: true,
		Filename: filepath.Join(t.TempDir(), "framecast.log"), MaxSize: 1}
	logger = c.newLogger(&buf)
	logger.Info("tee")
	assert.Contains(t, buf.String(), "tee")
	assert.FileExists(t, c.Filename)
}
