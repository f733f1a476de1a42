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

package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ostafen/ntfsrecover/internal/diskio"
	"github.com/ostafen/ntfsrecover/internal/recovery"
)

// loggingLevel is fixed at info; a --log-level flag is left for a later CLI
// pass.
func loggingLevel() slog.Level {
	return slog.LevelInfo
}

// openVolume opens path as a Volume. If parts is non-empty, path and parts
// together are opened as a single multi-segment disk image capture via
// diskio.OpenSplitImage instead of a single file/device.
func openVolume(path string, parts []string) (diskio.Volume, error) {
	if len(parts) == 0 {
		return diskio.Open(path)
	}
	return diskio.OpenSplitImage(append([]string{path}, parts...))
}

// openOrchestrator reads the boot sector off vol and wraps it with a fresh
// Orchestrator, the same two-step construction every subcommand needs.
func openOrchestrator(vol diskio.Volume) (*recovery.Orchestrator, error) {
	bootSector := make([]byte, 512)
	if _, err := vol.ReadAt(bootSector, 0); err != nil {
		return nil, fmt.Errorf("reading boot sector: %w", err)
	}

	return recovery.New(vol, bootSector, func() int64 { return time.Now().Unix() })
}
