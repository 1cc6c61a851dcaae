// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package service

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"path"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/cnotch/apirouter"
	"github.com/cnotch/framecast/config"
	"github.com/cnotch/framecast/network"
	"github.com/cnotch/framecast/stats"
)

var (
	buffers = sync.Pool{
		New: func() interface{} {
			return bytes.NewBuffer(make([]byte, 0, 1024*2))
		},
	}
)

var crossdomainxml = []byte(
	`<?xml version="1.0" ?><cross-domain-policy>
			<allow-access-from domain="*" />
			<allow-http-request-headers-from domain="*" headers="*"/>
		</cross-domain-policy>`)

func (s *Service) initApis(mux *http.ServeMux) {
	api := apirouter.NewForGRPC(
		// 系统信息类API
		apirouter.GET("/api/v1/server", s.onGetServerInfo),
		apirouter.GET("/api/v1/runtime", s.onGetRuntime),

		// 管线统计API
		apirouter.GET("/api/v1/stats", s.onGetStats),
	)

	// api add to mux
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		if path.Base(r.URL.Path) == "crossdomain.xml" {
			w.Header().Set("Content-Type", "application/xml")
			w.Write(crossdomainxml)
			return
		}

		w.Header().Set("Access-Control-Allow-Origin", "*")
		api.ServeHTTP(w, r)
	})
}

// 获取服务信息
func (s *Service) onGetServerInfo(w http.ResponseWriter, r *http.Request, pathParams apirouter.Params) {
	type server struct {
		Vendor   string   `json:"vendor"`
		Name     string   `json:"name"`
		Version  string   `json:"version"`
		Session  string   `json:"session"`
		OS       string   `json:"os"`
		Arch     string   `json:"arch"`
		Hosts    []string `json:"hosts,omitempty"`
		StartOn  string   `json:"start_on"`
		Duration string   `json:"duration"`
	}
	srv := server{
		Vendor:   config.Vendor,
		Name:     config.Name,
		Version:  config.Version,
		Session:  s.session,
		OS:       strings.Title(runtime.GOOS),
		Arch:     strings.ToUpper(runtime.GOARCH),
		Hosts:    network.GetLocalIP(),
		StartOn:  stats.StartingTime.Format(time.RFC3339Nano),
		Duration: time.Now().Sub(stats.StartingTime).String(),
	}

	if err := jsonTo(w, &srv); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// 获取运行时信息
func (s *Service) onGetRuntime(w http.ResponseWriter, r *http.Request, pathParams apirouter.Params) {
	const extraKey = "extra"

	type runtime struct {
		On    string         `json:"on"`
		Proc  stats.Proc     `json:"proc"`
		Extra *stats.Runtime `json:"extra,omitempty"`
	}

	rt := runtime{
		On:   time.Now().Format(time.RFC3339Nano),
		Proc: stats.MeasureRuntime(),
	}

	params := r.URL.Query()
	if strings.TrimSpace(params.Get(extraKey)) == "1" {
		rt.Extra = stats.MeasureFullRuntime()
	}

	if err := jsonTo(w, &rt); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// 获取帧与流量统计
func (s *Service) onGetStats(w http.ResponseWriter, r *http.Request, pathParams apirouter.Params) {
	type pipelineStats struct {
		On      string             `json:"on"`
		Session string             `json:"session"`
		Frames  stats.FramesSample `json:"frames"`
		Traffic stats.FlowSample   `json:"traffic"`
		Sinks   stats.ConnsSample  `json:"sinks"`
	}

	ps := pipelineStats{
		On:      time.Now().Format(time.RFC3339Nano),
		Session: s.session,
		Frames:  stats.Pipeline.GetSample(),
		Traffic: stats.Traffic.GetSample(),
		Sinks:   stats.SinkConns.GetSample(),
	}

	if err := jsonTo(w, &ps); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func jsonTo(w io.Writer, o interface{}) error {
	formatted := buffers.Get().(*bytes.Buffer)
	formatted.Reset()
	defer buffers.Put(formatted)

	body, err := json.Marshal(o)
	if err != nil {
		return err
	}

	if err := json.Indent(formatted, body, "", "\t"); err != nil {
		return err
	}

	if _, err := w.Write(formatted.Bytes()); err != nil {
		return err
	}
	return nil
}
