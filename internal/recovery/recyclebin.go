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
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ostafen/ntfsrecover/internal/errs"
	"github.com/ostafen/ntfsrecover/internal/integrity"
)

const ftEpochDeltaSeconds = 11_644_473_600

// recycleBinInfo is a parsed $I metadata file.
type recycleBinInfo struct {
	Version  uint64
	FileSize uint64
	Deleted  int64 // unix seconds
	OrigPath string
}

// parseRecycleBinInfo decodes a $I file per the version-dependent layout:
// version u64 @0, size u64 @8, FILETIME @16; v1 carries a fixed 520-byte
// UTF-16 path at 24, v2 a u32 path length at 24 followed by the UTF-16 path.
func parseRecycleBinInfo(data []byte) (recycleBinInfo, error) {
	if len(data) < 24 {
		return recycleBinInfo{}, fmt.Errorf("$I file too small: %w", errs.ErrParseError)
	}
	version := binary.LittleEndian.Uint64(data[0:8])
	size := binary.LittleEndian.Uint64(data[8:16])
	ft := int64(binary.LittleEndian.Uint64(data[16:24]))
	deleted := int64(0)
	if ft > 0 {
		deleted = ft/10_000_000 - ftEpochDeltaSeconds
	}

	var pathUTF16 []byte
	switch version {
	case 1:
		if len(data) < 24+520 {
			return recycleBinInfo{}, fmt.Errorf("$I v1 path truncated: %w", errs.ErrParseError)
		}
		pathUTF16 = data[24 : 24+520]
	case 2:
		if len(data) < 28 {
			return recycleBinInfo{}, fmt.Errorf("$I v2 header truncated: %w", errs.ErrParseError)
		}
		pathLen := binary.LittleEndian.Uint32(data[24:28])
		end := 28 + int(pathLen)*2
		if end > len(data) {
			return recycleBinInfo{}, fmt.Errorf("$I v2 path truncated: %w", errs.ErrParseError)
		}
		pathUTF16 = data[28:end]
	default:
		return recycleBinInfo{}, fmt.Errorf("unrecognized $I version %d: %w", version, errs.ErrParseError)
	}

	u16s := make([]uint16, 0, len(pathUTF16)/2)
	for i := 0; i+1 < len(pathUTF16); i += 2 {
		v := binary.LittleEndian.Uint16(pathUTF16[i : i+2])
		if v == 0 {
			break
		}
		u16s = append(u16s, v)
	}

	return recycleBinInfo{Version: version, FileSize: size, Deleted: deleted, OrigPath: decodeUTF16(u16s)}, nil
}

// windowsBaseName returns the final path segment of a stored Windows path.
// The $I file records the path with backslash separators no matter what
// host this process runs on, so filepath.Base (host-separator semantics)
// must not be used here.
func windowsBaseName(p string) string {
	if idx := strings.LastIndexAny(p, `/\`); idx >= 0 {
		return p[idx+1:]
	}
	return p
}

// decodeUTF16 is a surrogate-pair-aware decoder, mirroring
// internal/ntfsfmt's unexported equivalent used for $FILE_NAME attributes.
func decodeUTF16(u16s []uint16) string {
	runes := make([]rune, 0, len(u16s))
	for i := 0; i < len(u16s); i++ {
		r := rune(u16s[i])
		if r >= 0xD800 && r <= 0xDBFF && i+1 < len(u16s) {
			r2 := rune(u16s[i+1])
			if r2 >= 0xDC00 && r2 <= 0xDFFF {
				r = ((r - 0xD800) << 10) + (r2 - 0xDC00) + 0x10000
				i++
			}
		}
		runes = append(runes, r)
	}
	return string(runes)
}

// tryRecycleBin is Strategy 4: enumerate $Recycle.Bin/<SID> subdirectories
// for the $I sibling whose decoded original filename matches, then copy the
// corresponding $R sibling.
func (o *Orchestrator) tryRecycleBin(file RecoverableFile, destination, mountRoot string) (RecoverResult, bool, error) {
	if mountRoot == "" {
		return RecoverResult{}, false, nil
	}
	binRoot := filepath.Join(mountRoot, `$Recycle.Bin`)
	sids, err := os.ReadDir(binRoot)
	if err != nil {
		return RecoverResult{}, false, nil
	}

	for _, sid := range sids {
		if !sid.IsDir() {
			continue
		}
		sidDir := filepath.Join(binRoot, sid.Name())
		entries, err := os.ReadDir(sidDir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			name := entry.Name()
			if !strings.HasPrefix(name, "$I") || filepath.Ext(name) != "."+file.Extension {
				continue
			}
			iPath := filepath.Join(sidDir, name)
			data, err := os.ReadFile(iPath)
			if err != nil {
				continue
			}
			info, err := parseRecycleBinInfo(data)
			if err != nil {
				continue
			}
			if windowsBaseName(info.OrigPath) != file.Name {
				continue
			}

			rName := "$R" + name[2:]
			rPath := filepath.Join(sidDir, rName)
			rData, err := os.ReadFile(rPath)
			if err != nil {
				continue
			}

			accept, reason := integrity.Validate(rData, file.Extension)
			if !accept {
				return RecoverResult{}, true, fmt.Errorf("%w: %s", errs.ErrCorruptOutput, reason)
			}
			n, err := writeBytes(rData, destination)
			if err != nil {
				return RecoverResult{}, true, err
			}
			return RecoverResult{BytesRecovered: n, Source: SourceRecycle, Complete: true, Message: "recovered in full (recycle bin)"}, true, nil
		}
	}
	return RecoverResult{}, false, nil
}
