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

import "encoding/binary"

const (
	mp4AtomHeaderCap   = 10 << 20 // stop after this much atom-header walking
	mp4SizeExtendedCap = 100 << 20
	mp4MaxAtomSize     = 50 << 30
)

// EstimateMP4Size walks top-level ISO-BMFF atoms from the start of data,
// summing contiguous valid atom sizes.
func EstimateMP4Size(data []byte) int64 {
	var total int64
	headerBytesWalked := 0

	for total < int64(len(data)) {
		if headerBytesWalked > mp4AtomHeaderCap {
			break
		}
		if total+8 > int64(len(data)) {
			break
		}

		size := int64(binary.BigEndian.Uint32(data[total : total+4]))
		headerBytesWalked += 8

		switch {
		case size == 0:
			// Atom extends to end of file: cap at a conservative budget and stop.
			total += mp4SizeExtendedCap
			return total
		case size == 1:
			if total+16 > int64(len(data)) {
				return total
			}
			size = int64(binary.BigEndian.Uint64(data[total+8 : total+16]))
		}

		if size < 8 || size > mp4MaxAtomSize {
			break
		}
		total += size
	}
	return total
}
