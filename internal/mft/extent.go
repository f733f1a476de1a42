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

package mft

import (
	"fmt"
	"sort"

	"github.com/ostafen/ntfsrecover/internal/errs"
	"github.com/ostafen/ntfsrecover/internal/ntfsfmt"
)

// Extent is one contiguous physical run of the MFT's own unnamed $DATA
// attribute: physicalCluster is the LCN where the run starts.
type Extent struct {
	PhysicalCluster uint64
	ClusterCount    uint64
	logicalStart    uint64 // cluster offset within the MFT's logical stream
}

// ExtentMap is the physical-extent map of $MFT itself. It is built once
// from record 0's data runs and is immutable afterward.
type ExtentMap struct {
	extents []Extent
	total   uint64 // total clusters covered
}

// BuildExtentMap converts record 0's decoded data runs (VCN-relative, as
// decoded by ntfsfmt.DecodeDataRuns) into an ordered, logically-contiguous
// extent list.
func BuildExtentMap(runs []ntfsfmt.DataRun) (*ExtentMap, error) {
	em := &ExtentMap{}
	var logical uint64
	for _, r := range runs {
		if r.Sparse {
			logical += r.Count
			continue
		}
		em.extents = append(em.extents, Extent{
			PhysicalCluster: uint64(r.LCN),
			ClusterCount:    r.Count,
			logicalStart:    logical,
		})
		logical += r.Count
	}
	em.total = logical

	if len(em.extents) == 0 {
		return nil, fmt.Errorf("mft extent map: no non-sparse runs: %w", errs.ErrParseError)
	}
	return em, nil
}

// PhysicalByteOffset maps a logical byte offset within the MFT's data stream
// to an absolute physical byte offset on the volume. It returns
// errs.ErrOutOfRange if the offset falls beyond the map's coverage.
func (em *ExtentMap) PhysicalByteOffset(logicalByte uint64, clusterSize uint32) (uint64, error) {
	logicalCluster := logicalByte / uint64(clusterSize)
	clusterRemainder := logicalByte % uint64(clusterSize)

	idx := sort.Search(len(em.extents), func(i int) bool {
		e := em.extents[i]
		return e.logicalStart+e.ClusterCount > logicalCluster
	})
	if idx >= len(em.extents) {
		return 0, fmt.Errorf("logical cluster %d beyond mft extent coverage: %w", logicalCluster, errs.ErrOutOfRange)
	}
	e := em.extents[idx]
	if logicalCluster < e.logicalStart {
		return 0, fmt.Errorf("logical cluster %d falls in a gap of the mft extent map: %w", logicalCluster, errs.ErrOutOfRange)
	}

	offsetInExtent := logicalCluster - e.logicalStart
	physicalCluster := e.PhysicalCluster + offsetInExtent
	return physicalCluster*uint64(clusterSize) + clusterRemainder, nil
}

// TotalBytesCovered returns the number of bytes the extent map covers, used
// by callers to bound record-number loops.
func (em *ExtentMap) TotalBytesCovered(clusterSize uint32) uint64 {
	return em.total * uint64(clusterSize)
}
