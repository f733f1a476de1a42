// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package carve

import (
	"bytes"
	"encoding/binary"

	"github.com/ostafen/ntfsrecover/internal/sigcat"
)

// EstimateSize brackets a candidate's size: footer scan first, then
// format-specific estimators, then a per-extension default.
func EstimateSize(data []byte, sig sigcat.Signature) int64 {
	maxSize := sig.MaxSize
	if maxSize <= 0 || maxSize > int64(len(data)) {
		maxSize = int64(len(data))
	}

	if len(sig.Footer) > 0 {
		searchWindow := data[len(sig.Header):minInt64(maxSize, int64(len(data)))]
		if idx := bytes.Index(searchWindow, sig.Footer); idx >= 0 {
			return int64(len(sig.Header)) + int64(idx) + int64(len(sig.Footer))
		}
	}

	switch sig.Name {
	case "PNG":
		if size, ok := estimatePNGSize(data); ok {
			return size
		}
	case "ZIP":
		if size, ok := estimateZIPSize(data, maxSize); ok {
			return size
		}
	case "BMP":
		if len(data) >= 6 {
			return int64(binary.LittleEndian.Uint32(data[2:6]))
		}
	}

	if sig.DefaultSize > 0 {
		return sig.DefaultSize
	}
	return sigcat.DefaultFallbackSize
}

// estimatePNGSize walks chunks from the 8-byte signature, stopping at IEND.
// No CRC or chunk-content validation: this brackets size, it does not decode.
func estimatePNGSize(data []byte) (int64, bool) {
	pos := 8
	for pos+8 <= len(data) {
		length := binary.BigEndian.Uint32(data[pos : pos+4])
		chunkType := string(data[pos+4 : pos+8])
		chunkEnd := pos + 8 + int(length) + 4 // length + type + data + crc
		if chunkType == "IEND" {
			return int64(chunkEnd), true
		}
		if chunkEnd <= pos || chunkEnd > len(data) {
			return 0, false
		}
		pos = chunkEnd
	}
	return 0, false
}

// estimateZIPSize scans backward for the end-of-central-directory record
// (PK\x05\x06) within the last 64 KB of the plausible window.
func estimateZIPSize(data []byte, maxSize int64) (int64, bool) {
	limit := minInt64(maxSize, int64(len(data)))
	eocd := []byte{0x50, 0x4B, 0x05, 0x06}
	searchStart := limit - 64*1024
	if searchStart < 0 {
		searchStart = 0
	}
	window := data[searchStart:limit]
	idx := bytes.LastIndex(window, eocd)
	if idx < 0 {
		return 0, false
	}
	eocdOffset := searchStart + int64(idx)
	if eocdOffset+22 > int64(len(data)) {
		return eocdOffset + 22, true
	}
	commentLen := binary.LittleEndian.Uint16(data[eocdOffset+20 : eocdOffset+22])
	return eocdOffset + 22 + int64(commentLen), true
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
