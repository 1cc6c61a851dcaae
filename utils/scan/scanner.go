// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scan

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// 扫描器
var (
	// 逗号分割，去除两端空白
	Comma = NewScanner(',', unicode.IsSpace)
	// 美元符分割，帧记录的字段分隔符，不做 trim
	Dollar = NewScanner('$', nil)
	// 行分割
	Line = NewScanner('\n', unicode.IsSpace)
)

// Scanner 扫描器
type Scanner struct {
	delim    rune
	delimLen int
	trimFunc func(r rune) bool
}

// NewScanner 创建扫描器
func NewScanner(delim rune, trimFunc func(r rune) bool) Scanner {
	scanner := Scanner{
		delim:    delim,
		trimFunc: trimFunc,
	}
	scanner.delimLen = utf8.RuneLen(delim)
	if trimFunc == nil {
		scanner.trimFunc = func(r rune) bool { return false }
	}
	return scanner
}

// Scan 扫描字串，返回剩余部分、当前 token 以及是否找到分隔符
func (s Scanner) Scan(str string) (advance, token string, continueScan bool) {
	i := strings.IndexRune(str, s.delim)
	if i < 0 {
		return "", strings.TrimFunc(str, s.trimFunc), false
	}

	return strings.TrimFunc(str[i+s.delimLen:], s.trimFunc), strings.TrimFunc(str[:i], s.trimFunc), true
}

// Split 按分隔符拆分全部字段，最多 n 个（n <= 0 不限制）
func (s Scanner) Split(str string, n int) []string {
	fields := make([]string, 0, 4)
	ok := true
	token := ""
	for ok {
		if n > 0 && len(fields) == n-1 {
			fields = append(fields, strings.TrimFunc(str, s.trimFunc))
			break
		}
		str, token, ok = s.Scan(str)
		fields = append(fields, token)
	}
	return fields
}
