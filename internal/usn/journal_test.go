package usn

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ostafen/ntfsrecover/internal/diskio"
	"github.com/ostafen/ntfsrecover/internal/errs"
)

// journalVolume fakes the two journal facilities; everything else on the
// Volume contract is unused by the reader under test.
type journalVolume struct {
	info    diskio.USNJournalInfo
	infoErr error
	records []diskio.USNRecord
}

func (v journalVolume) ReadAt(p []byte, off int64) (int, error) { return 0, io.EOF }
func (v journalVolume) Close() error { return nil }
func (v journalVolume) Geometry() (uint64, error) { return 0, nil }
func (v journalVolume) LockState() (diskio.LockState, error) { return diskio.LockState{}, nil }
func (v journalVolume) GetFileRecord(fileRef uint64, recordSize uint32) (diskio.FileRecordResult, error) {
	return diskio.FileRecordResult{}, io.EOF
}
func (v journalVolume) OpenMFTFile() (io.ReaderAt, error) { return nil, io.EOF }

func (v journalVolume) QueryUSNJournal() (diskio.USNJournalInfo, error) {
	return v.info, v.infoErr
}

func (v journalVolume) ReadUSNJournal(startUSN int64, reasonMask uint32, yield func(diskio.USNRecord) bool) error {
	for _, rec := range v.records {
		if !yield(rec) {
			return nil
		}
	}
	return nil
}

var _ diskio.Volume = journalVolume{}

func TestQuery_ReturnsJournalIdentity(t *testing.T) {
	vol := journalVolume{info: diskio.USNJournalInfo{JournalID: 42, FirstUSN: 7, NextUSN: 100}}

	info, err := NewReader(vol).Query()
	require.NoError(t, err)
	require.Equal(t, uint64(42), info.JournalID)
	require.Equal(t, int64(7), info.FirstUSN)
}

func TestQuery_WrapsVolumeError(t *testing.T) {
	vol := journalVolume{infoErr: errors.New("journal disabled")}

	_, err := NewReader(vol).Query()
	require.Error(t, err)
	require.Contains(t, err.Error(), "journal disabled")
}

func TestRead_YieldsEntriesInOrder(t *testing.T) {
	vol := journalVolume{records: []diskio.USNRecord{
		{FileRef: 10, ParentFileRef: 5, USN: 100, Timestamp: 133_000_000_000_000_000, FileName: "a.txt"},
		{FileRef: 11, ParentFileRef: 5, USN: 101, FileName: "b.txt"},
	}}

	var got []DeletedEntry
	err := NewReader(vol).Read(0, func(e DeletedEntry) bool {
		got = append(got, e)
		return true
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, uint64(10), got[0].FileRef)
	require.Equal(t, "a.txt", got[0].FileName)
	require.Equal(t, int64(101), got[1].USN)
}

func TestRead_YieldFalseStopsEnumeration(t *testing.T) {
	vol := journalVolume{records: []diskio.USNRecord{
		{FileRef: 1}, {FileRef: 2}, {FileRef: 3},
	}}

	count := 0
	err := NewReader(vol).Read(0, func(DeletedEntry) bool {
		count++
		return count < 2
	})
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestRead_SafetyCapStopsRunawayJournal(t *testing.T) {
	records := make([]diskio.USNRecord, 10)
	for i := range records {
		records[i] = diskio.USNRecord{FileRef: uint64(i)}
	}
	vol := journalVolume{records: records}

	count := 0
	err := NewReader(vol).WithSafetyCap(4).Read(0, func(DeletedEntry) bool {
		count++
		return true
	})
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.ErrOutOfRange))
	require.Equal(t, 4, count)
}
