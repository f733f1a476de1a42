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

// Package diskio implements the volume reader: byte-granular positioned
// reads over a volume or volume-device handle, plus the OS-specific ioctls
// for geometry, MFT-record-by-reference lookup, and USN journal enumeration.
package diskio

import (
	"io"
)

// FileRecordResult is the response shape of the MFT-record-by-reference
// facility: an 8-byte returned file reference, a 4-byte record length, then
// the record bytes.
type FileRecordResult struct {
	ReturnedFileRef uint64
	Record          []byte
}

// USNJournalInfo is the response of the USN-journal query facility.
type USNJournalInfo struct {
	JournalID uint64
	FirstUSN  int64
	NextUSN   int64
	MaxSize   uint64
}

// USNRecord is one decoded entry from the journal read facility.
type USNRecord struct {
	FileRef       uint64
	ParentFileRef uint64
	USN           int64
	Timestamp     int64 // 100-ns ticks since 1601-01-01 UTC
	ReasonMask    uint32
	FileAttrs     uint32
	FileName      string
}

// LockState reports whether a volume is encrypted and currently locked.
// Probing only: nothing here performs or requests decryption.
type LockState struct {
	Encrypted bool
	Locked    bool
}

// Volume is the volume-reader contract. Implementations fail operations
// with errs.ErrPermissionDenied, a not-found classification, the generic
// errs.ErrIo, or an "unsupported" classification (modeled as a plain
// wrapped error on non-Windows builds, since only Windows exposes these
// ioctls).
type Volume interface {
	io.ReaderAt
	io.Closer

	// Geometry returns the total byte size of the volume, using the device-
	// length ioctl, falling back to seek-to-end, then disk-geometry ioctl.
	Geometry() (uint64, error)

	// LockState probes (never changes) the volume's encryption/lock status.
	LockState() (LockState, error)

	// GetFileRecord invokes the MFT-record-by-reference facility. Callers
	// (internal/mft) are responsible for the freed-slot comparison; this
	// method only returns what the OS returned.
	GetFileRecord(fileRef uint64, recordSize uint32) (FileRecordResult, error)

	// QueryUSNJournal returns the current journal identity.
	QueryUSNJournal() (USNJournalInfo, error)

	// ReadUSNJournal streams journal records starting at startUSN, calling
	// yield for each decoded record; yield returning false stops the read.
	ReadUSNJournal(startUSN int64, reasonMask uint32, yield func(USNRecord) bool) error

	// OpenMFTFile attempts to open $MFT directly with backup semantics,
	// the first and most reliable resolution-chain strategy. It returns an
	// io.ReaderAt over the file's own bytes, or an error if the facility
	// is unsupported or denied.
	OpenMFTFile() (io.ReaderAt, error)
}
