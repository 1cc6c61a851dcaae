// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtp

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"

	"github.com/pion/rtp"
)

const (
	// TransferPrefix RTP 包在 TCP 上交织传输时的前缀
	TransferPrefix = byte(0x24) // $
)

// Packet RTP 数据包
type Packet struct {
	Channel    byte   // 交织通道，UDP 时为 0
	Data       []byte // 数据
	rtp.Header        // 包头
}

// NewPacket 从一个完整的 RTP 包创建 Packet，data 不做拷贝
func NewPacket(data []byte) (*Packet, error) {
	p := &Packet{Data: data}
	if err := p.Header.Unmarshal(data); err != nil {
		return nil, err
	}
	if p.PayloadOffset > len(data) {
		return nil, errors.New("rtp: header exceeds packet")
	}
	return p, nil
}

// ReadPacket 从 r 中读取一个交织的 RTP 包（$ + 通道 + 长度 + 包）
func ReadPacket(r *bufio.Reader) (*Packet, error) {
	var prefix [4]byte
	// 读前缀4字节
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, err
	}

	if prefix[0] != TransferPrefix {
		return nil, errors.New("RTP Pack must start with `$`")
	}

	rtpLen := int(binary.BigEndian.Uint16(prefix[2:]))
	rtpBytes := make([]byte, rtpLen)
	if _, err := io.ReadFull(r, rtpBytes); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}

	p, err := NewPacket(rtpBytes)
	if err != nil {
		return nil, err
	}
	p.Channel = prefix[1]
	return p, nil
}

// Write 以交织格式将 RTP 包输出到 w
func (p *Packet) Write(w io.Writer) error {
	var prefix [4]byte
	prefix[0] = TransferPrefix // 起始字节
	prefix[1] = p.Channel
	binary.BigEndian.PutUint16(prefix[2:], uint16(len(p.Data)))

	if _, err := w.Write(prefix[:]); err != nil {
		return err
	}
	_, err := w.Write(p.Data)
	return err
}

// Size 包在交织传输中的总大小
func (p *Packet) Size() int {
	return len(p.Data) + 4
}

// Payload 数据包中实际的载荷，去掉了填充字节
func (p *Packet) Payload() []byte {
	payload := p.Data[p.PayloadOffset:]
	if p.Padding && len(payload) > 0 {
		pad := int(payload[len(payload)-1])
		if pad <= len(payload) {
			payload = payload[:len(payload)-pad]
		}
	}
	return payload
}
