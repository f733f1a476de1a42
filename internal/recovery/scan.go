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
	"sort"
	"strings"

	"github.com/ostafen/ntfsrecover/internal/diskio"
	"github.com/ostafen/ntfsrecover/internal/errs"
	"github.com/ostafen/ntfsrecover/internal/mft"
	"github.com/ostafen/ntfsrecover/internal/ntfsfmt"
	"github.com/ostafen/ntfsrecover/internal/usn"
)

// Orchestrator drives scans and recoveries. It owns nothing across calls
// except the volume handle and MFT reader it is given.
type Orchestrator struct {
	vol      diskio.Volume
	geometry ntfsfmt.Geometry
	reader   *mft.Reader
	now      func() int64

	// MaxConsecutiveFailures bounds the MFT walk: the scan stops once this
	// many contiguous records in a row fail to read, since with extent
	// mapping the only genuine failures are off-the-end reads. The default
	// is deliberately large; callers with unusual MFT extent layouts can
	// re-measure and lower it.
	MaxConsecutiveFailures int
}

// New opens geometry and the MFT reader over an already-opened volume.
func New(vol diskio.Volume, bootSector []byte, now func() int64) (*Orchestrator, error) {
	geometry, err := ntfsfmt.ParseBootSector(bootSector)
	if err != nil {
		return nil, err
	}
	reader := mft.Open(vol, *geometry)
	return &Orchestrator{
		vol:                    vol,
		geometry:               *geometry,
		reader:                 reader,
		now:                    now,
		MaxConsecutiveFailures: defaultMaxConsecutiveFailures,
	}, nil
}

// RecordSize exposes the MFT record size decoded from the boot sector, for
// callers (the CLI's progress bar) that want to render scan progress in
// bytes-of-MFT-scanned terms rather than raw record counts.
func (o *Orchestrator) RecordSize() uint32 {
	return o.geometry.MFTRecordSize
}

// RecordCount prepares the MFT reader (if not already) and returns the
// number of MFT records the next Scan call will walk, for the same
// progress-bar use as RecordSize.
func (o *Orchestrator) RecordCount() (uint64, error) {
	if err := o.reader.Prepare(); err != nil {
		return 0, fmt.Errorf("preparing mft reader: %w", err)
	}
	return o.reader.RecordCount(), nil
}

type scanEntry struct {
	rec     *ntfsfmt.Record
	deleted bool
}

// ProgressFunc is called periodically during the MFT walk with the number
// of records processed so far, the total to process, and the number of
// recoverable files found so far. Callers needing no progress reporting
// pass nil.
type ProgressFunc func(processed, total uint64, found int)

// Scan walks the MFT, merges USN journal deletions, sorts, and caps the
// output.
func (o *Orchestrator) Scan(mode Mode, cancel *CancelToken) ([]RecoverableFile, error) {
	return o.ScanWithProgress(mode, cancel, nil)
}

// ScanWithProgress is Scan with an optional progress callback wired in.
func (o *Orchestrator) ScanWithProgress(mode Mode, cancel *CancelToken, onProgress ProgressFunc) ([]RecoverableFile, error) {
	if !diskio.HasBackupPrivilege() {
		return nil, fmt.Errorf("scan requires elevated/backup privileges: %w", errs.ErrPermissionDenied)
	}
	lock, err := o.vol.LockState()
	if err != nil {
		return nil, fmt.Errorf("querying lock state: %w", err)
	}
	if lock.Locked {
		return nil, fmt.Errorf("volume is locked: %w", errs.ErrVolumeLocked)
	}

	if err := o.reader.Prepare(); err != nil {
		return nil, fmt.Errorf("preparing mft reader: %w", err)
	}

	recordCount := o.reader.RecordCount()
	if mode == ModeQuick && recordCount > quickModeRecordCap {
		recordCount = quickModeRecordCap
	}

	dm := directoryMap{}
	entries := make(map[uint64]scanEntry, recordCount)
	consecutiveFailures := 0
	maxConsecutiveFailures := o.MaxConsecutiveFailures
	if maxConsecutiveFailures <= 0 {
		maxConsecutiveFailures = defaultMaxConsecutiveFailures
	}

	for n := uint64(0); n < recordCount; n++ {
		if cancel != nil && n%4096 == 0 && cancel.Cancelled() {
			return nil, errs.ErrCancelled
		}
		if onProgress != nil && n%4096 == 0 {
			onProgress(n, recordCount, len(entries))
		}

		raw, _, err := o.reader.ReadRecord(n)
		if err != nil {
			if errs.Is(err, errs.ErrFreedSlot) || errs.Is(err, errs.ErrOutOfRange) {
				consecutiveFailures = 0
				continue
			}
			consecutiveFailures++
			if consecutiveFailures >= maxConsecutiveFailures {
				break
			}
			continue
		}
		consecutiveFailures = 0

		rec, err := ntfsfmt.ParseRecord(raw, n)
		if err != nil || rec == nil {
			continue // freed slot: routine, not an error
		}

		if rec.IsDirectory && rec.Name != "" && !strings.HasPrefix(rec.Name, "$") {
			dm[n] = dirEntry{parent: rec.ParentRecord, name: rec.Name}
		}
		entries[n] = scanEntry{rec: rec, deleted: !rec.InUse}
	}

	var out []RecoverableFile
	deletedSeen := map[uint64]bool{}

	for n, e := range entries {
		rec := e.rec
		if rec.Name == "" || strings.HasPrefix(rec.Name, "$") || rec.IsDirectory {
			continue
		}
		if isJunkExtension(rec.Extension) {
			continue
		}
		hasRuns := len(rec.DataRuns) > 0
		if rec.RealSize == 0 && !(hasRuns && e.deleted) {
			continue
		}
		if e.deleted && rec.RealSize > 10<<20 && !hasRuns {
			continue // large deleted file with no surviving runs: unrecoverable noise
		}

		dir := reconstructPath(dm, o.reader, o.geometry.MFTRecordSize, rec.ParentRecord)
		fp := fullPath(dir, rec.Name)
		if isTempName(rec.Name, rec.Extension) || isTempPath(fp) {
			continue
		}

		file := o.toRecoverableFile(n, rec, fp, e.deleted, SourceMFT)
		out = append(out, file)
		if e.deleted {
			deletedSeen[n] = true
		}
	}

	// A failed USN merge never discards the MFT results: the journal may be
	// disabled, truncated, or simply unavailable on image-backed volumes.
	if usnFiles, usnErr := o.mergeUSN(dm, deletedSeen); usnErr == nil {
		out = append(out, usnFiles...)
	}

	sortEntries(out, mode)
	return capOutput(out), nil
}

func (o *Orchestrator) toRecoverableFile(recordNumber uint64, rec *ntfsfmt.Record, fp string, deleted bool, source Source) RecoverableFile {
	var runs []dataRunDescriptor
	var firstLCN int64
	for i, r := range rec.DataRuns {
		runs = append(runs, dataRunDescriptor{LCN: r.LCN, Count: r.Count, Sparse: r.Sparse})
		if i == 0 {
			firstLCN = r.LCN
		}
	}

	chance := recoveryChanceMFT(deleted, len(rec.DataRuns) > 0, rec.RealSize)
	if strings.Contains(strings.ToLower(fp), `$recycle.bin`) {
		chance = recycleBinChance
	}

	return RecoverableFile{
		ID:              fmt.Sprintf("mft-%d-%d", recordNumber, rec.SequenceNum),
		Name:            rec.Name,
		Path:            fp,
		Size:            rec.RealSize,
		Extension:       rec.Extension,
		Category:        categoryForExtension(rec.Extension),
		Modified:        rec.Modified,
		Created:         rec.Created,
		Deleted:         deleted,
		RecoveryChance:  chance,
		Source:          source,
		FirstClusterLCN: firstLCN,
		DataRuns:        runs,
		Difficulty:      difficultyTag(chance),
		AgeBucket:       ageBucket(rec.Modified, o.now()),
		recordNumber:    recordNumber,
		sequenceNum:     rec.SequenceNum,
	}
}

// mergeUSN appends deletion records from the change journal that the MFT
// walk did not already surface.
func (o *Orchestrator) mergeUSN(dm directoryMap, alreadyPresent map[uint64]bool) ([]RecoverableFile, error) {
	reader := usn.NewReader(o.vol)
	info, err := reader.Query()
	if err != nil {
		return nil, fmt.Errorf("querying usn journal: %w", err)
	}

	consumed := map[uint64]bool{}
	var out []RecoverableFile

	readErr := reader.Read(info.FirstUSN, func(entry usn.DeletedEntry) bool {
		recordNumber := entry.FileRef & 0x0000FFFFFFFFFFFF
		if alreadyPresent[recordNumber] || consumed[recordNumber] {
			return true
		}
		consumed[recordNumber] = true

		if isTempName(entry.FileName, extensionOf(entry.FileName)) {
			return true
		}

		raw, _, err := o.reader.ReadRecord(recordNumber)
		var rec *ntfsfmt.Record
		if err == nil {
			rec, _ = ntfsfmt.ParseRecord(raw, recordNumber)
		}

		var size uint64
		var chance int
		switch {
		case rec != nil && rec.Name == entry.FileName:
			size = rec.RealSize
			chance = usnReReadChance(true, true, len(rec.DataRuns) > 0)
		case rec != nil:
			chance = usnReReadChance(false, true, false)
		default:
			chance = usnReReadChance(false, false, false)
		}

		deletedAt := filetimeToUnixUSN(entry.Timestamp)
		dir := reconstructPath(dm, o.reader, o.geometry.MFTRecordSize, entry.ParentFileRef&0x0000FFFFFFFFFFFF)
		fp := fullPath(dir, entry.FileName)
		if isTempPath(fp) {
			return true
		}

		out = append(out, RecoverableFile{
			ID:             fmt.Sprintf("usn-%d-%d", recordNumber, entry.USN),
			Name:           entry.FileName,
			Path:           fp,
			Size:           size,
			Extension:      extensionOf(entry.FileName),
			Category:       categoryForExtension(extensionOf(entry.FileName)),
			Modified:       deletedAt,
			Deleted:        true,
			RecoveryChance: chance,
			Source:         SourceUSN,
			Difficulty:     difficultyTag(chance),
			AgeBucket:      ageBucket(deletedAt, o.now()),
			recordNumber:   recordNumber,
		})
		return true
	})
	if readErr != nil {
		return nil, readErr
	}
	return out, nil
}

func filetimeToUnixUSN(ticks int64) int64 {
	if ticks <= 0 {
		return 0
	}
	return ticks/10_000_000 - 11_644_473_600
}

func extensionOf(name string) string {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 || idx == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[idx+1:])
}

// userProfilePriority ranks quick-mode sort order: user profile folders
// first, listed most-important first.
var userProfilePriority = []string{
	`\desktop\`, `\downloads\`, `\documents\`, `\pictures\`, `\music\`, `\users\`,
}

func pathPriority(p string) int {
	lower := strings.ToLower(p)
	for i, substr := range userProfilePriority {
		if strings.Contains(lower, substr) {
			return len(userProfilePriority) - i
		}
	}
	return 0
}

func sortEntries(files []RecoverableFile, mode Mode) {
	sort.SliceStable(files, func(i, j int) bool {
		if mode == ModeDeep {
			return files[i].Modified > files[j].Modified
		}
		pi, pj := pathPriority(files[i].Path), pathPriority(files[j].Path)
		if pi != pj {
			return pi > pj
		}
		return files[i].recordNumber > files[j].recordNumber
	})
}

// capOutput bounds the result set: deleted entries first (best recovery
// chance wins), active entries fill whatever budget remains.
func capOutput(files []RecoverableFile) []RecoverableFile {
	var deleted, active []RecoverableFile
	for _, f := range files {
		if f.Deleted {
			deleted = append(deleted, f)
		} else {
			active = append(active, f)
		}
	}
	sort.SliceStable(deleted, func(i, j int) bool {
		return deleted[i].RecoveryChance > deleted[j].RecoveryChance
	})
	if len(deleted) > maxDeleted {
		deleted = deleted[:maxDeleted]
	}

	out := append([]RecoverableFile{}, deleted...)
	remaining := maxTotal - len(out)
	if remaining > 0 {
		if len(active) > remaining {
			active = active[:remaining]
		}
		out = append(out, active...)
	}
	return out
}

func categoryForExtension(ext string) string {
	switch ext {
	case "jpg", "jpeg", "png", "gif", "bmp", "tiff":
		return "image"
	case "mp3", "wav", "flac", "ogg", "wma":
		return "audio"
	case "mp4", "mov", "avi", "mkv":
		return "video"
	case "pdf", "doc", "docx", "xls", "xlsx", "ppt", "pptx", "txt":
		return "document"
	case "zip", "rar", "7z", "gz":
		return "archive"
	case "exe", "dll", "elf":
		return "executable"
	default:
		return "other"
	}
}
