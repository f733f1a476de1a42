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
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/ostafen/ntfsrecover/internal/errs"
	"github.com/ostafen/ntfsrecover/internal/integrity"
)

// shadowCopy is one parsed `vssadmin list shadows` entry.
type shadowCopy struct {
	ID           string
	DeviceObject string
	CreatedAt    time.Time
}

// listShadowCopies shells out to vssadmin and diagnoses the three common
// failure modes distinctly: tool missing, access denied, service down.
func listShadowCopies(drive string) ([]shadowCopy, error) {
	cmd := exec.Command("vssadmin", "list", "shadows", "/for="+drive+`:\`)
	out, err := cmd.CombinedOutput()
	if err != nil {
		text := string(out)
		switch {
		case strings.Contains(text, "is not recognized"):
			return nil, fmt.Errorf("vssadmin not available on this system: %w", errs.ErrIo)
		case strings.Contains(text, "Access is denied"):
			return nil, fmt.Errorf("vssadmin requires elevation: %w", errs.ErrPermissionDenied)
		case strings.Contains(text, "service is not") || strings.Contains(text, "Volume Shadow Copy"):
			return nil, fmt.Errorf("volume shadow copy service is not running: %w", errs.ErrIo)
		default:
			return nil, fmt.Errorf("vssadmin list shadows failed: %w: %s", errs.ErrIo, strings.TrimSpace(text))
		}
	}
	return parseVssadminOutput(string(out)), nil
}

// parseVssadminOutput walks vssadmin's labeled text blocks, one snapshot
// per block separated by a blank line, extracting the three fields the
// recovery strategy needs.
func parseVssadminOutput(text string) []shadowCopy {
	var out []shadowCopy
	var cur shadowCopy

	flush := func() {
		if cur.ID != "" && cur.DeviceObject != "" {
			out = append(out, cur)
		}
		cur = shadowCopy{}
	}

	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "Shadow Copy ID:"):
			if cur.ID != "" {
				flush()
			}
			cur.ID = strings.TrimSpace(strings.TrimPrefix(line, "Shadow Copy ID:"))
		case strings.HasPrefix(line, "Shadow Copy Volume:"):
			cur.DeviceObject = strings.TrimSpace(strings.TrimPrefix(line, "Shadow Copy Volume:"))
		case strings.HasPrefix(line, "Creation Time:"):
			raw := strings.TrimSpace(strings.TrimPrefix(line, "Creation Time:"))
			if t, err := time.Parse("1/2/2006 3:04:05 PM", raw); err == nil {
				cur.CreatedAt = t
			}
		}
	}
	flush()

	// Newest first: recent snapshots are likeliest to still hold the file.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// tryShadowCopy is Strategy 5. For each snapshot (newest first), it builds
// snapshot_root + drive_relative_path and copies if present. Creating a
// transient reparse point to the snapshot device is itself Windows-specific
// and out of this module's portable core; the relative-path composition and
// copy-if-present logic it drives are what's implemented and tested here.
func (o *Orchestrator) tryShadowCopy(file RecoverableFile, destination, mountRoot string) (RecoverResult, bool, error) {
	if mountRoot == "" {
		return RecoverResult{}, false, nil
	}
	drive := strings.TrimSuffix(filepath.VolumeName(mountRoot), ":")
	if drive == "" {
		return RecoverResult{}, false, nil
	}

	shadows, err := listShadowCopies(drive)
	if err != nil || len(shadows) == 0 {
		return RecoverResult{}, false, nil
	}

	relPath := filepath.FromSlash(strings.ReplaceAll(file.Path, `\`, "/"))
	for _, sc := range shadows {
		snapshotPath := filepath.Join(sc.DeviceObject, relPath)
		data, err := os.ReadFile(snapshotPath)
		if err != nil {
			continue
		}

		accept, reason := integrity.Validate(data, file.Extension)
		if !accept {
			return RecoverResult{}, true, fmt.Errorf("%w: %s", errs.ErrCorruptOutput, reason)
		}
		n, err := writeBytes(data, destination)
		if err != nil {
			return RecoverResult{}, true, err
		}
		return RecoverResult{BytesRecovered: n, Source: SourceVSS, Complete: true, Message: fmt.Sprintf("recovered in full (shadow copy %s)", sc.ID)}, true, nil
	}
	return RecoverResult{}, false, nil
}
