//go:build windows

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
package diskio

import "strings"

// Open opens a volume device path (e.g. "\\.\C:") or, if path does not look
// like a device path, falls back to opening it as a plain image file — this
// lets the same CLI accept both a live drive letter and a staged disk image
// on Windows.
func Open(path string) (Volume, error) {
	normalized := NormalizeVolumePath(path)
	if looksLikeDevicePath(normalized) {
		return OpenDevice(normalized)
	}
	return OpenImageFile(path)
}

// looksLikeDevicePath reports whether path is in the raw "\\.\" device form.
func looksLikeDevicePath(path string) bool {
	return strings.HasPrefix(path, `\\.\`)
}
