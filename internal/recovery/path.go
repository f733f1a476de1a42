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
	"fmt"
	"strings"

	"github.com/ostafen/ntfsrecover/internal/mft"
	"github.com/ostafen/ntfsrecover/internal/ntfsfmt"
)

type dirEntry struct {
	parent uint64
	name   string
}

// directoryMap is built once during the MFT walk; afterward it is only
// read (plus bridged entries memoized by reconstructPath).
type directoryMap map[uint64]dirEntry

// reconstructPath walks up the directory map from parentRecord, prepending
// names, until it reaches the root record or a depth cap. If the chain
// breaks, it bridges the gap with a live re-read of the missing parent via
// the MFT reader.
func reconstructPath(dm directoryMap, reader *mft.Reader, recordSize uint32, parentRecord uint64) string {
	var parts []string
	current := parentRecord
	seen := map[uint64]bool{}

	for depth := 0; depth < pathDepthCap; depth++ {
		if current == rootRecordNumber || current == 0 {
			break
		}
		if seen[current] {
			break // cycle guard: a corrupt directory map must not loop forever
		}
		seen[current] = true

		entry, ok := dm[current]
		if !ok {
			entry, ok = bridgeParent(reader, recordSize, current)
			if !ok {
				break
			}
			dm[current] = entry
		}
		parts = append(parts, entry.name)
		current = entry.parent
	}

	if len(parts) == 0 {
		return ""
	}
	reversed := make([]string, len(parts))
	for i, p := range parts {
		reversed[len(parts)-1-i] = p
	}
	return strings.Join(reversed, `\`)
}

// bridgeParent re-reads a single MFT record live when the directory map
// has no entry for it.
func bridgeParent(reader *mft.Reader, recordSize uint32, recordNumber uint64) (dirEntry, bool) {
	raw, _, err := reader.ReadRecord(recordNumber)
	if err != nil {
		return dirEntry{}, false
	}
	rec, err := ntfsfmt.ParseRecord(raw, recordNumber)
	if err != nil || rec == nil || rec.Name == "" {
		return dirEntry{}, false
	}
	return dirEntry{parent: rec.ParentRecord, name: rec.Name}, true
}

// fullPath joins a reconstructed directory with the final filename.
func fullPath(dir, name string) string {
	if dir == "" {
		return name
	}
	return fmt.Sprintf(`%s\%s`, dir, name)
}
