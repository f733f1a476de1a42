package mft

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ostafen/ntfsrecover/internal/diskio"
	"github.com/ostafen/ntfsrecover/internal/errs"
	"github.com/ostafen/ntfsrecover/internal/ntfsfmt"
)

// fakeVolume is a minimal diskio.Volume double for exercising the
// resolution chain without a real device or disk image.
type fakeVolume struct {
	data            []byte
	openMFTErr      error
	getFileRecordFn func(fileRef uint64, recordSize uint32) (diskio.FileRecordResult, error)
}

func (f *fakeVolume) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || int(off) >= len(f.data) {
		return 0, io.EOF
	}
	n := copy(p, f.data[off:])
	if n < len(p) {
		return n, io.ErrUnexpectedEOF
	}
	return n, nil
}

func (f *fakeVolume) Close() error { return nil }

func (f *fakeVolume) Geometry() (uint64, error) { return uint64(len(f.data)), nil }

func (f *fakeVolume) LockState() (diskio.LockState, error) { return diskio.LockState{}, nil }

func (f *fakeVolume) GetFileRecord(fileRef uint64, recordSize uint32) (diskio.FileRecordResult, error) {
	if f.getFileRecordFn != nil {
		return f.getFileRecordFn(fileRef, recordSize)
	}
	return diskio.FileRecordResult{}, errs.ErrIo
}

func (f *fakeVolume) QueryUSNJournal() (diskio.USNJournalInfo, error) {
	return diskio.USNJournalInfo{}, errs.ErrIo
}

func (f *fakeVolume) ReadUSNJournal(startUSN int64, reasonMask uint32, yield func(diskio.USNRecord) bool) error {
	return errs.ErrIo
}

func (f *fakeVolume) OpenMFTFile() (io.ReaderAt, error) {
	if f.openMFTErr != nil {
		return nil, f.openMFTErr
	}
	return nil, errs.ErrIo
}

var _ diskio.Volume = (*fakeVolume)(nil)

// TestFsctlFreedSlotGuard checks the freed-slot guard:
// a mock ioctl that returns record N+k for a request of N must report
// FreedSlot, never success.
func TestFsctlFreedSlotGuard(t *testing.T) {
	vol := &fakeVolume{
		getFileRecordFn: func(fileRef uint64, recordSize uint32) (diskio.FileRecordResult, error) {
			return diskio.FileRecordResult{
				ReturnedFileRef: 1235, // caller asked for 1234
				Record:          make([]byte, recordSize),
			}, nil
		},
	}
	r := &Reader{vol: vol, geometry: ntfsfmt.Geometry{MFTRecordSize: 1024}}

	_, err := r.tryFsctl(1234, 1024)
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.ErrFreedSlot))
}

func TestFsctlMatchingRecordSucceeds(t *testing.T) {
	want := make([]byte, 1024)
	copy(want, "FILE-marker-bytes")
	vol := &fakeVolume{
		getFileRecordFn: func(fileRef uint64, recordSize uint32) (diskio.FileRecordResult, error) {
			return diskio.FileRecordResult{ReturnedFileRef: fileRef, Record: want}, nil
		},
	}
	r := &Reader{vol: vol, geometry: ntfsfmt.Geometry{MFTRecordSize: 1024}}

	buf, err := r.tryFsctl(1234, 1024)
	require.NoError(t, err)
	require.Equal(t, want, buf)
}

// When the fsctl strategy reports a mismatch, ReadRecord must still return
// the correct bytes via the extent map rather than surfacing the mismatch
// as a hard failure.
func TestReadRecordFallsThroughToExtentMap(t *testing.T) {
	const clusterSize = 4096
	const recordSize = 1024

	em, err := BuildExtentMap([]ntfsfmt.DataRun{{LCN: 10, Count: 400, Sparse: false}})
	require.NoError(t, err)

	wantRecordNumber := uint64(1234)
	physical, err := em.PhysicalByteOffset(wantRecordNumber*recordSize, clusterSize)
	require.NoError(t, err)

	vol := &fakeVolume{
		data: make([]byte, physical+recordSize+4096),
		getFileRecordFn: func(fileRef uint64, recordSize uint32) (diskio.FileRecordResult, error) {
			return diskio.FileRecordResult{ReturnedFileRef: fileRef + 1}, nil // always mismatches
		},
	}
	staged := make([]byte, recordSize)
	copy(staged, "staged-record-1234")
	copy(vol.data[physical:], staged)

	r := &Reader{
		vol:       vol,
		geometry:  ntfsfmt.Geometry{ClusterSize: clusterSize, MFTRecordSize: recordSize},
		extentMap: em,
	}

	buf, strategy, err := r.ReadRecord(wantRecordNumber)
	require.NoError(t, err)
	require.Equal(t, StrategyDataRunMap, strategy)
	require.Equal(t, staged, buf)
}

func TestStrategyString(t *testing.T) {
	require.Equal(t, "opened-mft-file", StrategyOpenedMftFile.String())
	require.Equal(t, "fsctl", StrategyFsctl.String())
	require.Equal(t, "data-run-map", StrategyDataRunMap.String())
	require.Equal(t, "naive-offset", StrategyNaiveOffset.String())
	require.Equal(t, "unknown", Strategy(99).String())
}
