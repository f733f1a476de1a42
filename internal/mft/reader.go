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

// Package mft implements the MFT reader: a fragmentation-aware map of
// the MFT's own physical extents that lets any record — including freed or
// deleted slots — be read by byte-level seek.
package mft

import (
	"fmt"
	"io"

	"github.com/ostafen/ntfsrecover/internal/diskio"
	"github.com/ostafen/ntfsrecover/internal/errs"
	"github.com/ostafen/ntfsrecover/internal/ntfsfmt"
)

// Strategy tags the resolution-chain variant that served a given
// ReadRecord call.
type Strategy int

const (
	StrategyOpenedMftFile Strategy = iota
	StrategyFsctl
	StrategyDataRunMap
	StrategyNaiveOffset
)

func (s Strategy) String() string {
	switch s {
	case StrategyOpenedMftFile:
		return "opened-mft-file"
	case StrategyFsctl:
		return "fsctl"
	case StrategyDataRunMap:
		return "data-run-map"
	case StrategyNaiveOffset:
		return "naive-offset"
	default:
		return "unknown"
	}
}

// Reader owns the volume handle exclusively, along with the MFT's extent
// map; no other component reads through the handle while a scan runs.
type Reader struct {
	vol      diskio.Volume
	geometry ntfsfmt.Geometry

	mftFile    io.ReaderAt
	mftTried   bool
	extentMap  *ExtentMap
	mftStartOf uint64 // byte offset of MFT start on the volume (naive strategy)

	recordCount uint64
}

// Open stores geometry and the volume handle; the extent map is built
// lazily on first need.
func Open(vol diskio.Volume, geometry ntfsfmt.Geometry) *Reader {
	return &Reader{
		vol:        vol,
		geometry:   geometry,
		mftStartOf: geometry.MFTStartCluster * uint64(geometry.ClusterSize),
	}
}

// RecordCount returns the number of records covered, derived from record 0's
// unnamed $DATA real size, once known (via ensureExtentMap).
func (r *Reader) RecordCount() uint64 {
	return r.recordCount
}

// Prepare forces the extent map (and record count) to be built, so callers
// that need RecordCount before issuing any ReadRecord call (the orchestrator's
// scan loop bound) can do so up front.
func (r *Reader) Prepare() error {
	return r.ensureExtentMap()
}

// ReadRecord returns the record-size byte image for record n, trying each
// resolution-chain strategy in order and stopping at the first success. When
// every strategy fails it returns the naive-offset strategy's error, which
// wraps errs.ErrIo; a freed-slot or out-of-range result from an earlier
// strategy is not returned to the caller.
func (r *Reader) ReadRecord(n uint64) ([]byte, Strategy, error) {
	recordSize := r.geometry.MFTRecordSize

	if buf, err := r.tryOpenedMFTFile(n, recordSize); err == nil {
		return buf, StrategyOpenedMftFile, nil
	}

	if buf, err := r.tryFsctl(n, recordSize); err == nil {
		return buf, StrategyFsctl, nil
	} else if isGenuineFreedSlot(err) {
		// Fall through to the extent map, which can read freed slots.
	}

	if buf, err := r.tryExtentMap(n, recordSize); err == nil {
		return buf, StrategyDataRunMap, nil
	}

	buf, err := r.tryNaiveOffset(n, recordSize)
	if err == nil {
		return buf, StrategyNaiveOffset, nil
	}
	return nil, StrategyNaiveOffset, err
}

func isGenuineFreedSlot(err error) bool {
	return err != nil && errs.Is(err, errs.ErrFreedSlot)
}

func (r *Reader) tryOpenedMFTFile(n uint64, recordSize uint32) ([]byte, error) {
	if !r.mftTried {
		r.mftTried = true
		if f, err := r.vol.OpenMFTFile(); err == nil {
			r.mftFile = f
		}
	}
	if r.mftFile == nil {
		return nil, fmt.Errorf("$MFT not opened: %w", errs.ErrIo)
	}
	buf := make([]byte, recordSize)
	off := int64(n) * int64(recordSize)
	if _, err := r.mftFile.ReadAt(buf, off); err != nil {
		return nil, fmt.Errorf("read $MFT at record %d: %w", n, errs.ErrIo)
	}
	return buf, nil
}

func (r *Reader) tryFsctl(n uint64, recordSize uint32) ([]byte, error) {
	result, err := r.vol.GetFileRecord(n, recordSize)
	if err != nil {
		return nil, fmt.Errorf("fsctl get file record %d: %w", n, errs.ErrIo)
	}

	// The OS may return the nearest in-use record when the requested one
	// is freed. Any mismatch in the low 48 bits of the returned reference
	// MUST be treated as FreedSlot, never as success, or data from an
	// unrelated file is misread.
	returnedRecordNumber := result.ReturnedFileRef & 0x0000FFFFFFFFFFFF
	if returnedRecordNumber != n {
		return nil, fmt.Errorf("fsctl returned record %d for requested %d: %w", returnedRecordNumber, n, errs.ErrFreedSlot)
	}
	if uint32(len(result.Record)) < recordSize {
		return nil, fmt.Errorf("fsctl short record for %d: %w", n, errs.ErrIo)
	}
	return result.Record[:recordSize], nil
}

func (r *Reader) tryExtentMap(n uint64, recordSize uint32) ([]byte, error) {
	if err := r.ensureExtentMap(); err != nil {
		return nil, err
	}
	logicalByte := n * uint64(recordSize)
	physical, err := r.extentMap.PhysicalByteOffset(logicalByte, r.geometry.ClusterSize)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, recordSize)
	if _, err := r.vol.ReadAt(buf, int64(physical)); err != nil {
		return nil, fmt.Errorf("read record %d via extent map: %w", n, errs.ErrIo)
	}
	return buf, nil
}

func (r *Reader) tryNaiveOffset(n uint64, recordSize uint32) ([]byte, error) {
	off := r.mftStartOf + n*uint64(recordSize)
	buf := make([]byte, recordSize)
	if _, err := r.vol.ReadAt(buf, int64(off)); err != nil {
		return nil, fmt.Errorf("read record %d via naive offset: %w", n, errs.ErrIo)
	}
	return buf, nil
}

// ensureExtentMap builds the extent map (and record count) from record 0's
// unnamed $DATA, reading record 0 via whichever strategy already works
// (opened-file, then raw naive offset — record 0 is never itself a freed
// slot, so the fsctl path is unnecessary here).
func (r *Reader) ensureExtentMap() error {
	if r.extentMap != nil {
		return nil
	}

	recordSize := r.geometry.MFTRecordSize
	var raw []byte
	var err error
	if raw, err = r.tryOpenedMFTFile(0, recordSize); err != nil {
		raw, err = r.tryNaiveOffset(0, recordSize)
		if err != nil {
			return fmt.Errorf("reading mft record 0 to build extent map: %w", err)
		}
	}

	rec, err := ntfsfmt.ParseRecord(raw, 0)
	if err != nil || rec == nil {
		return fmt.Errorf("parsing mft record 0: %w", errs.ErrParseError)
	}

	em, err := BuildExtentMap(rec.DataRuns)
	if err != nil {
		return err
	}
	r.extentMap = em
	if recordSize > 0 {
		r.recordCount = rec.RealSize / uint64(recordSize)
	}
	return nil
}
