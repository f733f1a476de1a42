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

// Package carve implements the file carver: a two-phase scanner over raw
// volume bytes with format-aware size estimation, header/footer bracketing,
// and keyword-match ranking.
package carve

import (
	"github.com/ostafen/ntfsrecover/internal/sigcat"
)

// Candidate is a carved file candidate: absolute byte offset, estimated
// size, source signature, confidence, and optional keyword score.
type Candidate struct {
	Offset     int64
	Size       int64
	Signature  sigcat.Signature
	Confidence int
	MP4Brand   string // set only for MP4/MOV-family candidates
	Keywords   int
}

// ScanBuffer runs both carving passes over a single in-memory buffer whose
// first byte is at absolute offset bufferOffset on the volume. Candidates
// already claimed (by absolute offset) are skipped.
func ScanBuffer(data []byte, bufferOffset int64, idx *sigcat.Index, claimed map[int64]bool) []Candidate {
	if claimed == nil {
		claimed = map[int64]bool{}
	}
	var out []Candidate

	out = append(out, scanMP4Family(data, bufferOffset, claimed)...)
	out = append(out, scanGenericSignatures(data, bufferOffset, idx, claimed)...)
	return out
}

func scanMP4Family(data []byte, bufferOffset int64, claimed map[int64]bool) []Candidate {
	var out []Candidate
	for i := 4; i+16 <= len(data); i++ {
		brand, ok := sigcat.MatchMP4(data, i)
		if !ok {
			continue
		}
		start := i - 4
		abs := bufferOffset + int64(start)
		if claimed[abs] {
			continue
		}
		claimed[abs] = true

		size := EstimateMP4Size(data[start:])
		out = append(out, Candidate{
			Offset:     abs,
			Size:       size,
			Signature:  sigcat.Signature{Name: "MP4", Extension: "mp4", Category: sigcat.CategoryVideo},
			Confidence: confidenceForMP4(brand),
			MP4Brand:   brand,
		})
	}
	return out
}

func scanGenericSignatures(data []byte, bufferOffset int64, idx *sigcat.Index, claimed map[int64]bool) []Candidate {
	var out []Candidate
	limit := len(data) - 32
	if limit < 0 {
		limit = 0
	}

	fallback := idx.Fallback()

	for i := 0; i < limit; i++ {
		if i+2 > len(data) {
			break
		}
		candidates := idx.Lookup(data[i : i+2])
		if len(candidates) == 0 && len(fallback) == 0 {
			continue
		}
		combined := make([]sigcat.Signature, 0, len(candidates)+len(fallback))
		combined = append(combined, candidates...)
		combined = append(combined, fallback...)

		for _, sig := range combined {
			if len(sig.Header) == 0 || i+len(sig.Header) > len(data) {
				continue
			}
			if !bytesEqual(data[i:i+len(sig.Header)], sig.Header) {
				continue
			}

			abs := bufferOffset + int64(i)
			if claimed[abs] {
				continue
			}

			confidence := Validate(data[i:], sig)
			if confidence < 75 {
				continue
			}

			size := EstimateSize(data[i:], sig)
			if size < sigcat.MinPlausibleSize {
				continue
			}

			claimed[abs] = true
			out = append(out, Candidate{
				Offset:     abs,
				Size:       size,
				Signature:  sig,
				Confidence: confidence,
			})
		}
	}
	return out
}

func confidenceForMP4(brand string) int {
	if brand == "" {
		return 40
	}
	return 95
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
