// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package utils

import (
	"bytes"
	"encoding/json"
	"io"
	"os"

	"github.com/cnotch/framecast/stats"
)

// FlowReader 统计读取字节数的 Reader
type FlowReader struct {
	r    io.Reader
	flow stats.Flow
}

// NewFlowReader 创建 FlowReader，读取的字节记入 flow 的输入
func NewFlowReader(r io.Reader, flow stats.Flow) *FlowReader {
	return &FlowReader{r: r, flow: flow}
}

// Read 实现 io.Reader
func (fr *FlowReader) Read(p []byte) (n int, err error) {
	n, err = fr.r.Read(p)
	fr.flow.AddIn(int64(n))
	return
}

// EncodeJSONFile 编码 JSON 文件
func EncodeJSONFile(path string, obj interface{}) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	defer f.Close()

	var formatted bytes.Buffer
	body, err := json.Marshal(obj)
	if err != nil {
		return err
	}

	if err := json.Indent(&formatted, body, "", "\t"); err != nil {
		return err
	}

	if _, err := f.Write(formatted.Bytes()); err != nil {
		return err
	}
	return f.Sync()
}
