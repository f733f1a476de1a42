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

package recovery

import (
	"regexp"
	"strings"
)

// junkExtensions is the scan-level extension blacklist; entries here never
// surface as recoverable files.
var junkExtensions = map[string]bool{
	"lnk": true, "url": true, "ini": true, "tmp": true,
	"temp": true, "log": true, "bak": true,
}

// tempExtensions is the separate temp/junk-filter blacklist of §4.9.2,
// distinct from junkExtensions (it adds shell/download-manager suffixes the
// scan-level blacklist does not carry).
var tempExtensions = map[string]bool{
	"tmp": true, "temp": true, "bak": true, "~": true,
	"lock": true, "partial": true, "crdownload": true, "part": true,
}

var chromeCacheName = regexp.MustCompile(`^f_[0-9a-fA-F]{1,8}$`)

var rejectedPathSubstrings = []string{
	`\temp\`, `\tmp\`, `\appdata\local\temp`, `\windows\temp`,
	`\system volume information`, `\prefetch`, `\.cache\`, `\cache\`,
	`\cache_data\`, `\code cache\`, `\gpucache\`, `\shadercache\`,
	`\thumbnails\`, `\winsxs\`, `\windows\assembly`, `\windows\installer`,
}

// isJunkExtension reports whether ext belongs to the scan-level blacklist.
func isJunkExtension(ext string) bool {
	return junkExtensions[strings.ToLower(ext)]
}

// isTempName rejects temp/office-lock/download-manager filename patterns.
func isTempName(name, ext string) bool {
	lowerExt := strings.ToLower(ext)
	if tempExtensions[lowerExt] {
		return true
	}
	if strings.HasPrefix(name, "~$") || strings.HasPrefix(name, "~") {
		return true
	}
	if strings.Contains(strings.ToLower(name), ".tmp") {
		return true
	}
	if chromeCacheName.MatchString(name) {
		return true
	}
	return false
}

// isTempPath rejects cache/temp/system path subtrees. The $Recycle.Bin
// subtree is explicitly exempt: those are the files most worth recovering.
func isTempPath(path string) bool {
	lower := strings.ToLower(path)
	if strings.Contains(lower, `$recycle.bin`) {
		return false
	}
	for _, substr := range rejectedPathSubstrings {
		if strings.Contains(lower, substr) {
			return true
		}
	}
	return false
}

// shouldReject combines the scan-level and temp/junk rejection rules used
// by both the MFT-walk emission step and the USN merge step.
func shouldReject(name, ext, path string) bool {
	if isJunkExtension(ext) {
		return true
	}
	if isTempName(name, ext) {
		return true
	}
	if isTempPath(path) {
		return true
	}
	return false
}
