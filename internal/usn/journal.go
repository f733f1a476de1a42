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

// Package usn implements the USN journal reader: streams the NTFS
// Change Journal to enumerate recently deleted file references.
package usn

import (
	"fmt"

	"github.com/ostafen/ntfsrecover/internal/diskio"
	"github.com/ostafen/ntfsrecover/internal/errs"
)

const (
	reasonFileDelete = 0x00000200

	// DefaultSafetyCap bounds journal enumeration; a journal that hands
	// back more records than this is treated as runaway.
	DefaultSafetyCap = 10_000_000
)

// DeletedEntry is one filtered journal record of interest: reason mask has
// FileDelete set and the entry is not a directory.
type DeletedEntry struct {
	FileRef       uint64
	ParentFileRef uint64
	USN           int64
	Timestamp     int64
	FileName      string
}

// Reader streams deletion records from a volume's USN journal.
type Reader struct {
	vol diskio.Volume
	cap int
}

func NewReader(vol diskio.Volume) *Reader {
	return &Reader{vol: vol, cap: DefaultSafetyCap}
}

// WithSafetyCap overrides the default enumeration cap.
func (r *Reader) WithSafetyCap(n int) *Reader {
	r.cap = n
	return r
}

// Query returns the current journal identity.
func (r *Reader) Query() (diskio.USNJournalInfo, error) {
	info, err := r.vol.QueryUSNJournal()
	if err != nil {
		return diskio.USNJournalInfo{}, fmt.Errorf("query usn journal: %w", err)
	}
	return info, nil
}

// Read streams deletion records starting at startUSN, calling yield for each
// one; yield returning false stops enumeration early. Read enforces the
// safety cap and returns cleanly at end-of-journal.
func (r *Reader) Read(startUSN int64, yield func(DeletedEntry) bool) error {
	count := 0
	cancelled := false

	err := r.vol.ReadUSNJournal(startUSN, reasonFileDelete, func(rec diskio.USNRecord) bool {
		count++
		if count > r.cap {
			cancelled = true
			return false
		}
		entry := DeletedEntry{
			FileRef:       rec.FileRef,
			ParentFileRef: rec.ParentFileRef,
			USN:           rec.USN,
			Timestamp:     rec.Timestamp,
			FileName:      rec.FileName,
		}
		return yield(entry)
	})
	if err != nil {
		return fmt.Errorf("read usn journal: %w: %w", errs.ErrIo, err)
	}
	if cancelled {
		return fmt.Errorf("usn journal enumeration exceeded safety cap of %d: %w", r.cap, errs.ErrOutOfRange)
	}
	return nil
}
