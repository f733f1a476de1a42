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

package sigcat

import (
	"encoding/binary"

	"github.com/ostafen/ntfsrecover/pkg/table"
)

// mp4Brands is the closed set of recognized ISO-BMFF/QuickTime brands.
var mp4Brands = map[string]bool{
	"isom": true, "mp41": true, "mp42": true, "M4V ": true,
	"qt  ": true, "MSNV": true, "3gp4": true, "3gp5": true,
	"avc1": true, "M4A ": true, "f4v ": true, "dash": true,
}

// Index is the signature lookup index: a 16-bit-prefix map from the
// first two header bytes to the signatures sharing that prefix, plus a
// linear fallback list for signatures whose header is too short to index.
type Index struct {
	byPrefix *table.PrefixTable[[]Signature]
	fallback []Signature
}

// BuildIndex constructs the lookup index from a catalogue. The hot-path
// key is a header's first two bytes.
func BuildIndex(catalogue []Signature) *Index {
	idx := &Index{byPrefix: table.New[[]Signature]()}
	for _, sig := range catalogue {
		if len(sig.Header) < 2 {
			idx.fallback = append(idx.fallback, sig)
			continue
		}
		key := sig.Header[:2]
		existing, _ := idx.byPrefix.Get(key)
		idx.byPrefix.Insert(key, append(existing, sig))
	}
	return idx
}

// Lookup returns every catalogue signature sharing data's first two bytes
// as a prefix.
func (idx *Index) Lookup(prefix2 []byte) []Signature {
	sigs, _ := idx.byPrefix.Get(prefix2)
	return sigs
}

// Prefix16 computes the little-endian 16-bit key for data[i:i+2].
func Prefix16(data []byte, i int) uint16 {
	return binary.LittleEndian.Uint16(data[i : i+2])
}

// Fallback returns signatures that cannot be indexed by a 2-byte prefix
// (header length < 2).
func (idx *Index) Fallback() []Signature {
	return idx.fallback
}

// MatchMP4 is the MP4/MOV-family matcher. It fires when data[i:i+4] is the
// ASCII literal "ftyp": the u32 big-endian box size then sits at i-4 (the
// file start), and the brand at i+4..i+8 must come from the closed set.
func MatchMP4(data []byte, i int) (brand string, ok bool) {
	if i+8 > len(data) || i < 4 {
		return "", false
	}
	if string(data[i:i+4]) != "ftyp" {
		return "", false
	}
	boxSize := binary.BigEndian.Uint32(data[i-4 : i])
	if boxSize < 8 || boxSize > 64 {
		return "", false
	}
	brandBytes := data[i+4 : minInt(i+8, len(data))]
	if len(brandBytes) < 4 {
		return "", false
	}
	brand = string(brandBytes)
	if !mp4Brands[brand] {
		return "", false
	}
	return brand, true
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
