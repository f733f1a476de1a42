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

// recoveryChanceMFT scores how likely a file's bytes are still intact,
// from its deletion state, data-run survival, and size.
func recoveryChanceMFT(deleted bool, hasDataRuns bool, size uint64) int {
	if !deleted {
		return 95
	}
	switch {
	case !hasDataRuns && size <= 700:
		return 50
	case !hasDataRuns && size <= 100*1024:
		return 15
	case !hasDataRuns:
		return 5
	case hasDataRuns && size <= 4*1024:
		return 60
	case hasDataRuns && size <= 100*1024:
		return 45
	case hasDataRuns && size <= 1024*1024:
		return 30
	default:
		return 20
	}
}

const recycleBinChance = 95

// usnReReadChance covers the three outcomes of re-reading the MFT record a
// deletion journal entry points at: same name survives, slot reused, or
// unreadable.
func usnReReadChance(sameName bool, readable bool, hasDataRuns bool) int {
	switch {
	case readable && sameName && hasDataRuns:
		return 55 // midpoint of the 45-65 band
	case readable && !sameName:
		return 5 // midpoint of the 3-8 band
	default:
		return 7 // midpoint of the 5-10 band: MFT unreadable, or same name with no data runs
	}
}

// difficultyTag buckets a recovery-chance score into a qualitative label.
func difficultyTag(chance int) string {
	switch {
	case chance >= 80:
		return "easy"
	case chance >= 45:
		return "moderate"
	case chance >= 15:
		return "difficult"
	default:
		return "unlikely"
	}
}

// ageBucket buckets elapsed time since deletion into coarse windows.
func ageBucket(deletedAtUnix, nowUnix int64) string {
	if deletedAtUnix <= 0 {
		return "unknown"
	}
	elapsed := nowUnix - deletedAtUnix
	if elapsed < 0 {
		elapsed = 0
	}
	const day = 86400
	switch {
	case elapsed <= day:
		return "today"
	case elapsed <= 7*day:
		return "this_week"
	case elapsed <= 30*day:
		return "this_month"
	default:
		return "older"
	}
}
