// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"flag"
	"io"
	"os"

	"github.com/cnotch/xlog"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig 日志配置。
// 控制台日志总是写 stderr，stdout 可能是记录流的输出。
type LogConfig struct {
	Level      xlog.Level `json:"level"`      // 日志级别
	ToFile     bool       `json:"tofile"`     // 同时写入滚动文件
	Filename   string     `json:"filename"`   // 相对路径按工作目录解析
	MaxSize    int        `json:"maxsize"`    // 单个文件的上限，单位 MB
	MaxDays    int        `json:"maxdays"`    // 旧文件保留天数
	MaxBackups int        `json:"maxbackups"` // 旧文件保留个数
	Compress   bool       `json:"compress"`   // gzip 压缩旧文件
}

func (c *LogConfig) initFlags() {
	flag.Var(&c.Level, "log-level",
		"Set the log level (debug, info, warn, error)")
	flag.BoolVar(&c.ToFile, "log-tofile", false,
		"Also write the decode log to a rotated file")
	flag.StringVar(&c.Filename, "log-filename",
		"./logs/"+Name+".log", "Set the rotated log file")
	flag.IntVar(&c.MaxSize, "log-maxsize", 20,
		"Set the size in megabytes at which the log file is rotated")
	flag.IntVar(&c.MaxDays, "log-maxdays", 7,
		"Set the days to keep rotated log files")
	flag.IntVar(&c.MaxBackups, "log-maxbackups", 14,
		"Set the number of rotated log files to keep")
	flag.BoolVar(&c.Compress, "log-compress", false,
		"Compress rotated log files with gzip")
}

// newLogger 按配置创建根日志，文件日志用 JSON 便于按会话检索
func (c *LogConfig) newLogger(console io.Writer) *xlog.Logger {
	consoleCore := xlog.NewCore(
		xlog.NewConsoleEncoder(xlog.LstdFlags|xlog.Lmicroseconds|xlog.Lshortfile),
		xlog.Lock(console), c.Level)
	if !c.ToFile {
		return xlog.New(consoleCore, xlog.AddCaller())
	}

	fileWriter := &lumberjack.Logger{
		Filename:   resolvePath(c.Filename),
		MaxSize:    c.MaxSize,
		MaxBackups: c.MaxBackups,
		MaxAge:     c.MaxDays,
		LocalTime:  true,
		Compress:   c.Compress,
	}
	fileCore := xlog.NewCore(xlog.NewJSONEncoder(xlog.Lshortfile), fileWriter, c.Level)
	return xlog.New(xlog.NewTee(consoleCore, fileCore), xlog.AddCaller())
}

func (c *LogConfig) initLogger() {
	xlog.ReplaceGlobal(c.newLogger(os.Stderr))
}
