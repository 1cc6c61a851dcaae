// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mkv

import "github.com/remko/go-mkvparse"

// 用到的 Matroska 元素 ID
const (
	idEBML          mkvparse.ElementID = 0x1A45DFA3
	idSegment       mkvparse.ElementID = 0x18538067
	idInfo          mkvparse.ElementID = 0x1549A966
	idTimecodeScale mkvparse.ElementID = 0x2AD7B1
	idTracks        mkvparse.ElementID = 0x1654AE6B
	idTrackEntry    mkvparse.ElementID = 0xAE
	idTrackNumber   mkvparse.ElementID = 0xD7
	idCodecID       mkvparse.ElementID = 0x86
	idCodecPrivate  mkvparse.ElementID = 0x63A2
	idVideo         mkvparse.ElementID = 0xE0
	idPixelWidth    mkvparse.ElementID = 0xB0
	idPixelHeight   mkvparse.ElementID = 0xBA
	idCluster       mkvparse.ElementID = 0x1F43B675
	idTimecode      mkvparse.ElementID = 0xE7
	idSimpleBlock   mkvparse.ElementID = 0xA3
	idBlockGroup    mkvparse.ElementID = 0xA0
	idBlock         mkvparse.ElementID = 0xA1
	idTags          mkvparse.ElementID = 0x1254C367
	idTag           mkvparse.ElementID = 0x7373
	idSimpleTag     mkvparse.ElementID = 0x67C8
	idTagName       mkvparse.ElementID = 0x45A3
	idTagString     mkvparse.ElementID = 0x4487
)

// Kinesis Video Streams 片段标签
const (
	TagFragmentNumber    = "AWS_KINESISVIDEO_FRAGMENT_NUMBER"
	TagServerTimestamp   = "AWS_KINESISVIDEO_SERVER_TIMESTAMP"
	TagProducerTimestamp = "AWS_KINESISVIDEO_PRODUCER_TIMESTAMP"
	TagErrorCode         = "AWS_KINESISVIDEO_ERROR_CODE"
)

const defaultTimecodeScale = 1000000 // ns
