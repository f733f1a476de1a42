package recovery

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/require"
)

func buildIv1(sizeBytes uint64, ft int64, path string) []byte {
	data := make([]byte, 24+520)
	binary.LittleEndian.PutUint64(data[0:8], 1)
	binary.LittleEndian.PutUint64(data[8:16], sizeBytes)
	binary.LittleEndian.PutUint64(data[16:24], uint64(ft))
	u16 := utf16.Encode([]rune(path))
	for i, v := range u16 {
		binary.LittleEndian.PutUint16(data[24+i*2:26+i*2], v)
	}
	return data
}

func buildIv2(sizeBytes uint64, ft int64, path string) []byte {
	u16 := utf16.Encode([]rune(path))
	data := make([]byte, 28+len(u16)*2)
	binary.LittleEndian.PutUint64(data[0:8], 2)
	binary.LittleEndian.PutUint64(data[8:16], sizeBytes)
	binary.LittleEndian.PutUint64(data[16:24], uint64(ft))
	binary.LittleEndian.PutUint32(data[24:28], uint32(len(u16)))
	for i, v := range u16 {
		binary.LittleEndian.PutUint16(data[28+i*2:30+i*2], v)
	}
	return data
}

func TestParseRecycleBinInfo_V1FixedWidthPath(t *testing.T) {
	data := buildIv1(1234, 0, `C:\Users\bob\Documents\report.docx`)
	info, err := parseRecycleBinInfo(data)
	require.NoError(t, err)
	require.EqualValues(t, 1, info.Version)
	require.EqualValues(t, 1234, info.FileSize)
	require.Equal(t, `C:\Users\bob\Documents\report.docx`, info.OrigPath)
}

func TestParseRecycleBinInfo_V2VariableWidthPath(t *testing.T) {
	data := buildIv2(5555, 0, `C:\Users\bob\Pictures\vacation.jpg`)
	info, err := parseRecycleBinInfo(data)
	require.NoError(t, err)
	require.EqualValues(t, 2, info.Version)
	require.EqualValues(t, 5555, info.FileSize)
	require.Equal(t, `C:\Users\bob\Pictures\vacation.jpg`, info.OrigPath)
}

func TestParseRecycleBinInfo_DeletedTimestampConversion(t *testing.T) {
	// 2021-01-01T00:00:00Z.
	const ft = (1609459200 + ftEpochDeltaSeconds) * 10_000_000
	data := buildIv1(1, ft, `C:\a.txt`)
	info, err := parseRecycleBinInfo(data)
	require.NoError(t, err)
	require.EqualValues(t, 1609459200, info.Deleted)
}

func TestParseRecycleBinInfo_ZeroTimestampIsZero(t *testing.T) {
	data := buildIv1(1, 0, `C:\a.txt`)
	info, err := parseRecycleBinInfo(data)
	require.NoError(t, err)
	require.EqualValues(t, 0, info.Deleted)
}

func TestParseRecycleBinInfo_TooSmallRejected(t *testing.T) {
	_, err := parseRecycleBinInfo(make([]byte, 10))
	require.Error(t, err)
}

func TestParseRecycleBinInfo_UnknownVersionRejected(t *testing.T) {
	data := make([]byte, 24)
	binary.LittleEndian.PutUint64(data[0:8], 99)
	_, err := parseRecycleBinInfo(data)
	require.Error(t, err)
}

func TestParseRecycleBinInfo_V1TruncatedPathRejected(t *testing.T) {
	data := make([]byte, 24+100)
	binary.LittleEndian.PutUint64(data[0:8], 1)
	_, err := parseRecycleBinInfo(data)
	require.Error(t, err)
}

func TestParseRecycleBinInfo_V2TruncatedPathRejected(t *testing.T) {
	data := make([]byte, 28)
	binary.LittleEndian.PutUint64(data[0:8], 2)
	binary.LittleEndian.PutUint32(data[24:28], 100) // claims 100 UTF-16 units, none present
	_, err := parseRecycleBinInfo(data)
	require.Error(t, err)
}

func TestDecodeUTF16_SurrogatePair(t *testing.T) {
	// U+1F600 GRINNING FACE encoded as a surrogate pair.
	r := rune(0x1F600)
	r1, r2 := utf16.EncodeRune(r)
	got := decodeUTF16([]uint16{uint16(r1), uint16(r2)})
	require.Equal(t, string(r), got)
}

func TestWindowsBaseName_SplitsOnBackslashRegardlessOfHost(t *testing.T) {
	require.Equal(t, "report.txt", windowsBaseName(`C:\Users\bob\Documents\report.txt`))
	require.Equal(t, "a.txt", windowsBaseName(`C:/mixed/separators/a.txt`))
	require.Equal(t, "bare.txt", windowsBaseName("bare.txt"))
	require.Equal(t, "", windowsBaseName(`C:\trailing\`))
}

// A file recovered via the Recycle Bin's $I/$R metadata pair round-trips
// the original bytes under the original filename.
func TestTryRecycleBin_RoundTrip(t *testing.T) {
	root := t.TempDir()
	sidDir := filepath.Join(root, `$Recycle.Bin`, `S-1-5-21-1111`)
	require.NoError(t, os.MkdirAll(sidDir, 0755))

	content := []byte("recovered file contents\n")
	iData := buildIv1(uint64(len(content)), 0, `C:\Users\bob\Documents\report.txt`)
	require.NoError(t, os.WriteFile(filepath.Join(sidDir, "$IABCDEF.txt"), iData, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(sidDir, "$RABCDEF.txt"), content, 0644))

	o := &Orchestrator{}
	file := RecoverableFile{Name: "report.txt", Extension: "txt"}
	dest := filepath.Join(t.TempDir(), "out", "report.txt")

	result, handled, err := o.tryRecycleBin(file, dest, root)
	require.NoError(t, err)
	require.True(t, handled)
	require.Equal(t, SourceRecycle, result.Source)
	require.True(t, result.Complete)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, content, got)
}

func TestTryRecycleBin_NoMountRootIsNotHandled(t *testing.T) {
	o := &Orchestrator{}
	_, handled, err := o.tryRecycleBin(RecoverableFile{Name: "x.txt", Extension: "txt"}, "dest", "")
	require.NoError(t, err)
	require.False(t, handled)
}

func TestTryRecycleBin_NameMismatchSkipped(t *testing.T) {
	root := t.TempDir()
	sidDir := filepath.Join(root, `$Recycle.Bin`, `S-1-5-21-1111`)
	require.NoError(t, os.MkdirAll(sidDir, 0755))

	iData := buildIv1(4, 0, `C:\Users\bob\Documents\different.txt`)
	require.NoError(t, os.WriteFile(filepath.Join(sidDir, "$IXYZ.txt"), iData, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(sidDir, "$RXYZ.txt"), []byte("data"), 0644))

	o := &Orchestrator{}
	_, handled, err := o.tryRecycleBin(RecoverableFile{Name: "report.txt", Extension: "txt"}, "dest", root)
	require.NoError(t, err)
	require.False(t, handled)
}
