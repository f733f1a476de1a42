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
	"strings"

	"github.com/ostafen/ntfsrecover/internal/sigcat"
)

// Validate scores a header match against format-specific promotion rules;
// base confidence is 70, promotions raise it.
func Validate(data []byte, sig sigcat.Signature) int {
	confidence := 70

	switch sig.Name {
	case "JPEG":
		if len(data) > 2 && data[2] == 0xFF {
			confidence = 90
		}
		if len(data) > 10 {
			s := string(data[6:10])
			if strings.HasPrefix(s, "JFIF") || strings.HasPrefix(s, "Exif") {
				confidence = 98
			}
		}
	case "PNG":
		if len(data) > 16 && string(data[12:16]) == "IHDR" {
			confidence = 98
		}
	case "PDF":
		if len(data) > 6 && data[4] == '-' && data[5] >= '0' && data[5] <= '9' {
			confidence = 95
		}
	case "ZIP":
		confidence = validateZIPFamily(data)
	case "MP3-Frame", "MP3-ID3":
		if len(data) > 3 && (data[0] == 0xFF && data[1]&0xE0 == 0xE0) {
			confidence = 85
		}
		if len(data) > 3 && string(data[0:3]) == "ID3" {
			confidence = 95
		}
	case "EXE":
		confidence = validatePE(data)
	}

	return confidence
}

func validateZIPFamily(data []byte) int {
	confidence := 90
	n := len(data)
	if n < 4 {
		return confidence
	}
	window := data[:minInt(n, 512)]
	if bytes.Contains(window, []byte("[Content_Types].xml")) || bytes.Contains(window, []byte("word/")) {
		confidence = 98
	}
	return confidence
}

func validatePE(data []byte) int {
	if len(data) < 64 {
		return 70
	}
	peOffset := int(data[60]) | int(data[61])<<8 | int(data[62])<<16 | int(data[63])<<24
	if peOffset < 0 || peOffset+4 > len(data) {
		return 70
	}
	if bytes.Equal(data[peOffset:peOffset+4], []byte("PE\x00\x00")) {
		return 95
	}
	return 70
}
