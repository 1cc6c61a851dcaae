// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package h264

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// AVCDecoderConfigurationRecord ISO/IEC 14496-15 5.2.4.1，
// 即 Matroska CodecPrivate 或 MP4 avcC box 的内容。
// aligned(8) class AVCDecoderConfigurationRecord {
//     unsigned int(8) configurationVersion = 1;
//     unsigned int(8) AVCProfileIndication;
//     unsigned int(8) profile_compatibility;
//     unsigned int(8) AVCLevelIndication;
//
//     bit(6) reserved = '111111'b;
//     unsigned int(2) lengthSizeMinusOne;
//
//     bit(3) reserved = '111'b;
//     unsigned int(5) numOfSequenceParameterSets;
//     for (i=0; i< numOfSequenceParameterSets; i++) {
//         unsigned int(16) sequenceParameterSetLength ;
//         bit(8*sequenceParameterSetLength) sequenceParameterSetNALUnit;
//     }
//     unsigned int(8) numOfPictureParameterSets;
//     for (i=0; i< numOfPictureParameterSets; i++) {
//         unsigned int(16) pictureParameterSetLength;
//         bit(8*pictureParameterSetLength) pictureParameterSetNALUnit;
//     }
// }
type AVCDecoderConfigurationRecord struct {
	ConfigurationVersion byte
	AVCProfileIndication byte
	ProfileCompatibility byte
	AVCLevelIndication   byte
	LengthSizeMinusOne   byte
	SPS                  [][]byte
	PPS                  [][]byte
}

// NewAVCDecoderConfigurationRecord creates a record with 4-byte NALU lengths.
func NewAVCDecoderConfigurationRecord(sps, pps []byte) *AVCDecoderConfigurationRecord {
	record := &AVCDecoderConfigurationRecord{
		ConfigurationVersion: 1,
		LengthSizeMinusOne:   3,
		SPS:                  [][]byte{sps},
		PPS:                  [][]byte{pps},
	}
	if len(sps) >= 4 {
		record.AVCProfileIndication = sps[1]
		record.ProfileCompatibility = sps[2]
		record.AVCLevelIndication = sps[3]
	}
	return record
}

// LengthSize NALU 长度前缀的字节数
func (record *AVCDecoderConfigurationRecord) LengthSize() int {
	return int(record.LengthSizeMinusOne) + 1
}

// Unmarshal 解析配置记录，参数集会被拷贝。
func (record *AVCDecoderConfigurationRecord) Unmarshal(data []byte) (err error) {
	if len(data) < 7 {
		return fmt.Errorf("avcC: %d bytes is too short", len(data))
	}

	record.ConfigurationVersion = data[0]
	if record.ConfigurationVersion != 1 {
		return fmt.Errorf("avcC: unsupported configuration version %d", record.ConfigurationVersion)
	}
	record.AVCProfileIndication = data[1]
	record.ProfileCompatibility = data[2]
	record.AVCLevelIndication = data[3]
	record.LengthSizeMinusOne = data[4] & 0x03
	if record.LengthSizeMinusOne == 2 {
		return errors.New("avcC: nalu length size 3 is not allowed")
	}

	offset := 5
	numSps := int(data[offset] & 0x1f)
	offset++
	if record.SPS, offset, err = readParameterSets(data, offset, numSps, NalSps); err != nil {
		return
	}

	if offset >= len(data) {
		return errors.New("avcC: insufficient data: PPS count")
	}
	numPps := int(data[offset])
	offset++
	if record.PPS, _, err = readParameterSets(data, offset, numPps, NalPps); err != nil {
		return
	}

	if len(record.SPS) == 0 {
		return errors.New("avcC: no sequence parameter set")
	}
	if len(record.PPS) == 0 {
		return errors.New("avcC: no picture parameter set")
	}
	return nil
}

func readParameterSets(data []byte, offset, count int, nalType byte) ([][]byte, int, error) {
	sets := make([][]byte, 0, count)
	for i := 0; i < count; i++ {
		if offset+2 > len(data) {
			return nil, offset, fmt.Errorf("avcC: insufficient data: parameter set %d length", i)
		}
		size := int(binary.BigEndian.Uint16(data[offset:]))
		offset += 2
		if size == 0 || offset+size > len(data) {
			return nil, offset, fmt.Errorf("avcC: insufficient data: parameter set %d (%d bytes)", i, size)
		}
		ps := data[offset : offset+size]
		if NalType(ps[0]) != nalType {
			return nil, offset, fmt.Errorf("avcC: parameter set %d has nal type %d, want %d", i, NalType(ps[0]), nalType)
		}
		sets = append(sets, append([]byte(nil), ps...))
		offset += size
	}
	return sets, offset, nil
}

// MarshalSize .
func (record *AVCDecoderConfigurationRecord) MarshalSize() int {
	size := 7
	for _, sps := range record.SPS {
		size += 2 + len(sps)
	}
	for _, pps := range record.PPS {
		size += 2 + len(pps)
	}
	return size
}

// Marshal .
func (record *AVCDecoderConfigurationRecord) Marshal() ([]byte, error) {
	if len(record.SPS) == 0 || len(record.SPS) > 31 {
		return nil, fmt.Errorf("avcC: invalid sps count %d", len(record.SPS))
	}
	if len(record.PPS) == 0 || len(record.PPS) > 255 {
		return nil, fmt.Errorf("avcC: invalid pps count %d", len(record.PPS))
	}

	buff := make([]byte, 0, record.MarshalSize())
	buff = append(buff,
		record.ConfigurationVersion,
		record.AVCProfileIndication,
		record.ProfileCompatibility,
		record.AVCLevelIndication,
		0xfc|record.LengthSizeMinusOne&0x03,
		0xe0|byte(len(record.SPS)))
	for _, sps := range record.SPS {
		buff = appendParameterSet(buff, sps)
	}
	buff = append(buff, byte(len(record.PPS)))
	for _, pps := range record.PPS {
		buff = appendParameterSet(buff, pps)
	}
	return buff, nil
}

func appendParameterSet(buff, ps []byte) []byte {
	var size [2]byte
	binary.BigEndian.PutUint16(size[:], uint16(len(ps)))
	buff = append(buff, size[:]...)
	return append(buff, ps...)
}
