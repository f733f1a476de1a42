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

	"github.com/ostafen/ntfsrecover/internal/carve"
	"github.com/ostafen/ntfsrecover/internal/errs"
	"github.com/ostafen/ntfsrecover/internal/integrity"
	"github.com/ostafen/ntfsrecover/internal/sigcat"
)

const (
	carveChunkSize     = 4 << 20
	carveMaxScanBytes  = 8 << 30
	carveMaxCandidates = 50
)

var sharedSignatureIndex = sigcat.BuildIndex(sigcat.Catalogue)

// tryCarve walks the volume in ~4 MB chunks (with an overlap equal to the
// longest header, to cover boundary matches), scoring candidates against
// the descriptor's filename keywords and keeping the best scorer.
func (o *Orchestrator) tryCarve(file RecoverableFile, destination string, cancel *CancelToken) (RecoverResult, error) {
	totalSize, err := o.vol.Geometry()
	if err != nil {
		return RecoverResult{}, fmt.Errorf("querying volume geometry for carve: %w", err)
	}
	scanLimit := totalSize
	if scanLimit > carveMaxScanBytes {
		scanLimit = carveMaxScanBytes
	}

	overlap := longestHeaderLength(sigcat.Catalogue)
	claimed := map[int64]bool{}

	var best *carve.Candidate
	bestKeywords := -1
	candidateCount := 0

	buf := make([]byte, carveChunkSize+overlap)
	for offset := int64(0); offset < int64(scanLimit); offset += int64(carveChunkSize) {
		if cancel != nil && cancel.Cancelled() {
			return RecoverResult{}, errs.ErrCancelled
		}
		if candidateCount >= carveMaxCandidates {
			break
		}

		readLen := carveChunkSize + overlap
		if offset+int64(readLen) > int64(totalSize) {
			readLen = int(int64(totalSize) - offset)
		}
		if readLen <= 0 {
			break
		}
		n, err := o.vol.ReadAt(buf[:readLen], offset)
		if err != nil && n == 0 {
			continue
		}

		candidates := carve.ScanBuffer(buf[:n], offset, sharedSignatureIndex, claimed)
		candidates = carve.RankKeywords(buf[:n], offset, candidates, file.Name)

		perfectMatch := false
		for i := range candidates {
			c := candidates[i]
			if c.Size < sigcat.MinPlausibleSize {
				continue
			}
			candidateCount++
			if candidateCount > carveMaxCandidates {
				break
			}

			if c.Keywords > bestKeywords {
				bestKeywords = c.Keywords
				best = &candidates[i]
			}
			if _, total, perfect := carve.ScoreAgainstFilename(buf[int(c.Offset-offset):n], file.Name); total > 0 && perfect {
				perfectMatch = true
				break
			}
		}
		if perfectMatch || candidateCount >= carveMaxCandidates {
			break
		}
	}

	if best == nil {
		return RecoverResult{}, fmt.Errorf("no carve candidate found: %w", errs.ErrCorruptOutput)
	}

	data, err := readCandidateBytes(o.vol, *best)
	if err != nil {
		return RecoverResult{}, err
	}

	accept, reason := integrity.Validate(data, best.Signature.Extension)
	if !accept {
		return RecoverResult{}, fmt.Errorf("%w: %s", errs.ErrCorruptOutput, reason)
	}

	n, err := writeBytes(data, destination)
	if err != nil {
		return RecoverResult{}, err
	}
	return RecoverResult{BytesRecovered: n, Source: SourceCarved, Complete: true, Message: "recovered in full (signature carving)"}, nil
}

func readCandidateBytes(vol interface {
	ReadAt(p []byte, off int64) (int, error)
}, c carve.Candidate) ([]byte, error) {
	buf := make([]byte, c.Size)
	if _, err := vol.ReadAt(buf, c.Offset); err != nil {
		return nil, fmt.Errorf("reading carve candidate at %d: %w", c.Offset, errs.ErrIo)
	}
	return buf, nil
}

func longestHeaderLength(catalogue []sigcat.Signature) int {
	longest := 0
	for _, sig := range catalogue {
		if len(sig.Header) > longest {
			longest = len(sig.Header)
		}
	}
	return longest
}
