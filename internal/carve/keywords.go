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
	"strings"
)

const keywordWindowBytes = 100 << 10 // only the front of a candidate is scored

// ExtractKeywords pulls alphanumeric runs of length >= 3 from filename's
// stem (the part before the extension), lowercased.
func ExtractKeywords(filename string) []string {
	stem := filename
	if idx := strings.LastIndexByte(stem, '.'); idx > 0 {
		stem = stem[:idx]
	}
	stem = strings.ToLower(stem)

	var keywords []string
	var run []byte
	flush := func() {
		if len(run) >= 3 {
			keywords = append(keywords, string(run))
		}
		run = nil
	}
	for i := 0; i < len(stem); i++ {
		c := stem[i]
		isAlnum := (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
		if isAlnum {
			run = append(run, c)
		} else {
			flush()
		}
	}
	flush()
	return keywords
}

// ScoreAgainstFilename counts how many of filename's extracted keywords
// appear as substrings of the first keywordWindowBytes of data, and reports
// whether every keyword was found (a perfect match).
func ScoreAgainstFilename(data []byte, filename string) (score int, total int, perfect bool) {
	keywords := ExtractKeywords(filename)
	total = len(keywords)
	if total == 0 {
		return 0, 0, false
	}

	window := data
	if len(window) > keywordWindowBytes {
		window = window[:keywordWindowBytes]
	}
	body := strings.ToLower(string(window))

	for _, kw := range keywords {
		if strings.Contains(body, kw) {
			score++
		}
	}
	return score, total, score == total
}

// RankKeywords scores each candidate against the target filename and
// returns the candidates ordered by descending (Confidence, Keywords),
// ties breaking toward the first match (stable sort preserves scan order).
func RankKeywords(data []byte, bufferOffset int64, candidates []Candidate, filename string) []Candidate {
	for i := range candidates {
		start := int(candidates[i].Offset - bufferOffset)
		if start < 0 || start >= len(data) {
			continue
		}
		score, _, _ := ScoreAgainstFilename(data[start:], filename)
		candidates[i].Keywords = score
	}

	for i := 1; i < len(candidates); i++ {
		for j := i; j > 0 && less(candidates[j], candidates[j-1]); j-- {
			candidates[j], candidates[j-1] = candidates[j-1], candidates[j]
		}
	}
	return candidates
}

func less(a, b Candidate) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	return a.Keywords > b.Keywords
}
