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

// Package integrity implements the post-recovery structural check that the
// orchestrator runs before writing recovered bytes to disk: a single
// accept/reject gate with per-format rules.
package integrity

import (
	"bytes"
	"strings"
)

// compressedContainerExts skip structural byte validation: their content is
// inherently high-entropy, so acceptance rests on size parsing having
// already succeeded upstream.
var compressedContainerExts = map[string]bool{
	"mp4": true, "mkv": true, "mp3": true, "aac": true,
	"webp": true, "heic": true, "mov": true, "avi": true,
	"flac": true, "ogg": true, "wma": true,
}

var zipFamilyExts = map[string]bool{
	"zip": true, "docx": true, "xlsx": true, "pptx": true, "jar": true,
}

// Validate applies the type-specific structural check and returns whether
// the bytes are accepted, plus a human-readable reason when rejected.
func Validate(data []byte, ext string) (accept bool, reason string) {
	if len(data) <= 8 {
		return false, "data is too small to be a valid file (<= 8 bytes)"
	}
	if allZero(data[:minInt(4096, len(data))]) {
		return false, "first 4 KB is all zeros"
	}

	ext = strings.ToLower(strings.TrimPrefix(ext, "."))

	switch {
	case ext == "pdf":
		return validatePDF(data)
	case zipFamilyExts[ext]:
		return validateZIPFamily(data)
	case ext == "png":
		return validatePNG(data)
	case ext == "jpg", ext == "jpeg":
		return validateJPEG(data)
	case compressedContainerExts[ext]:
		return true, ""
	case isTextLikeExt(ext):
		return validateTextLike(data)
	default:
		return true, ""
	}
}

func validatePDF(data []byte) (bool, string) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return false, "missing %PDF- header"
	}
	tail := tailWindow(data, 2048)
	if !bytes.Contains(tail, []byte("%%EOF")) {
		return false, "missing %%EOF trailer"
	}
	xrefIdx := bytes.Index(tail, []byte("startxref"))
	if xrefIdx < 0 {
		return false, "missing startxref"
	}
	offset, ok := parseStartxrefOffset(tail[xrefIdx+len("startxref"):])
	if !ok || offset < 0 || offset >= int64(len(data)) {
		return false, "startxref offset out of range"
	}
	at := data[offset:]
	if !bytes.HasPrefix(at, []byte("xref")) && !bytes.HasPrefix(at, []byte("obj")) && !bytes.HasPrefix(at, []byte("XRef")) {
		return false, "startxref target is not xref/obj/XRef"
	}
	head := data[:minInt(65536, len(data))]
	if bytes.Count(head, []byte(" obj")) < 2 {
		return false, "fewer than 2 object markers in first 64 KB"
	}
	return true, ""
}

func parseStartxrefOffset(rest []byte) (int64, bool) {
	i := 0
	for i < len(rest) && (rest[i] == ' ' || rest[i] == '\r' || rest[i] == '\n' || rest[i] == '\t') {
		i++
	}
	start := i
	for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
		i++
	}
	if i == start {
		return 0, false
	}
	var v int64
	for _, c := range rest[start:i] {
		v = v*10 + int64(c-'0')
	}
	return v, true
}

func validateZIPFamily(data []byte) (bool, string) {
	if !bytes.HasPrefix(data, []byte("PK\x03\x04")) {
		return false, "missing PK\\x03\\x04 local file header"
	}
	tail := tailWindow(data, 256)
	if !bytes.Contains(tail, []byte("PK\x05\x06")) {
		return false, "missing end-of-central-directory record"
	}
	return true, ""
}

func validatePNG(data []byte) (bool, string) {
	tail := tailWindow(data, 32)
	if !bytes.Contains(tail, []byte("IEND")) {
		return false, "missing IEND chunk"
	}
	return true, ""
}

func validateJPEG(data []byte) (bool, string) {
	if len(data) < 3 || data[0] != 0xFF || data[1] != 0xD8 || data[2] != 0xFF {
		return false, "missing FF D8 FF start-of-image marker"
	}
	if data[len(data)-2] != 0xFF || data[len(data)-1] != 0xD9 {
		return false, "missing FF D9 end-of-image marker"
	}
	return true, ""
}

func validateTextLike(data []byte) (bool, string) {
	window := data[:minInt(256, len(data))]
	printable := 0
	for _, b := range window {
		if b == '\t' || b == '\r' || b == '\n' || b >= 0x80 {
			printable++
			continue
		}
		if b >= 0x20 && b < 0x7F {
			printable++
		}
	}
	if float64(printable)/float64(len(window)) < 0.70 {
		return false, "fewer than 70% printable bytes in first 256 bytes"
	}
	return true, ""
}

var textLikeExts = map[string]bool{
	"txt": true, "csv": true, "json": true, "xml": true, "html": true,
	"htm": true, "md": true, "log": true, "ini": true, "cfg": true,
	"go": true, "c": true, "h": true, "cpp": true, "py": true, "js": true,
	"ts": true, "java": true, "cs": true, "yaml": true, "yml": true,
}

func isTextLikeExt(ext string) bool {
	return textLikeExts[ext]
}

func tailWindow(data []byte, n int) []byte {
	if n > len(data) {
		n = len(data)
	}
	return data[len(data)-n:]
}

func allZero(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
