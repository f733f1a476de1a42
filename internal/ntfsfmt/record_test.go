package ntfsfmt

import (
	"encoding/binary"
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/require"
)

// recordBuilder assembles a synthetic MFT record byte image field-by-field,
// mirroring the real offsets ParseRecord/walkAttributes expect (NTFS
// §4.4). Fixups are disabled (UpdSeqCount=0) unless a test explicitly wants
// to exercise ApplyFixup.
type recordBuilder struct {
	recordSize int
	inUse      bool
	isDir      bool
	attrs      [][]byte
}

func newRecordBuilder(recordSize int) *recordBuilder {
	return &recordBuilder{recordSize: recordSize}
}

func (b *recordBuilder) addStandardInformation(created, modified, accessed int64) *recordBuilder {
	content := make([]byte, 32)
	binary.LittleEndian.PutUint64(content[0:8], uint64(created))
	binary.LittleEndian.PutUint64(content[8:16], uint64(modified))
	binary.LittleEndian.PutUint64(content[24:32], uint64(accessed))
	b.attrs = append(b.attrs, residentAttr(attrStandardInformation, content))
	return b
}

func (b *recordBuilder) addFileName(parent uint64, namespace byte, name string, allocSize, realSize uint64) *recordBuilder {
	u16 := utf16.Encode([]rune(name))
	content := make([]byte, 66+len(u16)*2)
	binary.LittleEndian.PutUint64(content[0:8], parent&0x0000FFFFFFFFFFFF)
	binary.LittleEndian.PutUint64(content[40:48], allocSize)
	binary.LittleEndian.PutUint64(content[48:56], realSize)
	content[64] = byte(len(u16))
	content[65] = namespace
	for i, v := range u16 {
		binary.LittleEndian.PutUint16(content[66+i*2:68+i*2], v)
	}
	b.attrs = append(b.attrs, residentAttr(attrFileName, content))
	return b
}

func (b *recordBuilder) addResidentData(data []byte) *recordBuilder {
	b.attrs = append(b.attrs, residentAttr(attrData, data))
	return b
}

func (b *recordBuilder) addNonResidentData(realSize uint64, runs []DataRun) *recordBuilder {
	runBytes := EncodeDataRuns(runs)
	const runsOffset = 64 // body-relative, includes the 8-byte type+length prefix
	body := make([]byte, runsOffset)
	binary.LittleEndian.PutUint32(body[0:4], attrData)
	body[8] = 1 // non-resident
	binary.LittleEndian.PutUint16(body[32:34], uint16(runsOffset))
	binary.LittleEndian.PutUint64(body[40:48], realSize)
	binary.LittleEndian.PutUint64(body[48:56], realSize)
	binary.LittleEndian.PutUint64(body[56:64], realSize)
	full := append(body, runBytes...)
	binary.LittleEndian.PutUint32(full[4:8], uint32(len(full)))
	b.attrs = append(b.attrs, full)
	return b
}

// residentAttr builds a resident attribute: a 24-byte header (type, length,
// nonResident flag, name fields, value length/offset) starting at the
// attribute's own offset 0, followed by content at offset 24 — matching the
// body-relative offsets walkAttributes/parseFileName/parseStandardInformation
// read (body is the full attribute slice, prefix included).
func residentAttr(attrType uint32, content []byte) []byte {
	attrLen := 24 + len(content)
	out := make([]byte, attrLen)
	binary.LittleEndian.PutUint32(out[0:4], attrType)
	binary.LittleEndian.PutUint32(out[4:8], uint32(attrLen))
	out[8] = 0 // resident
	binary.LittleEndian.PutUint32(out[16:20], uint32(len(content)))
	binary.LittleEndian.PutUint16(out[20:22], 24)
	copy(out[24:], content)
	return out
}

func (b *recordBuilder) build() []byte {
	const firstAttrOff = 48
	data := make([]byte, b.recordSize)
	copy(data[0:4], recordSignature)
	binary.LittleEndian.PutUint16(data[20:22], firstAttrOff)

	var flags uint16
	if b.inUse {
		flags |= flagInUse
	}
	if b.isDir {
		flags |= flagIsDirectory
	}
	binary.LittleEndian.PutUint16(data[22:24], flags)

	off := firstAttrOff
	for _, a := range b.attrs {
		copy(data[off:], a)
		off += len(a)
	}
	binary.LittleEndian.PutUint32(data[off:off+4], attrEnd)
	return data
}

func TestParseRecord_DeletedResidentTextFile(t *testing.T) {
	b := newRecordBuilder(1024)
	b.inUse = false
	b.addStandardInformation(0, 0, 0)
	b.addFileName(5, nsWin32, "notes.txt", 14, 14)
	b.addResidentData([]byte("Hello, world!\n"))

	rec, err := ParseRecord(b.build(), 42)
	require.NoError(t, err)
	require.NotNil(t, rec)

	require.False(t, rec.InUse)
	require.Equal(t, "notes.txt", rec.Name)
	require.Equal(t, "txt", rec.Extension)
	require.EqualValues(t, 5, rec.ParentRecord)
	require.EqualValues(t, 14, rec.RealSize)
	require.True(t, rec.Resident)
	require.Equal(t, []byte("Hello, world!\n"), rec.ResidentData)
}

func TestParseRecord_NonFileSignatureIsFreedSlotNotError(t *testing.T) {
	data := make([]byte, 1024)
	copy(data[0:4], "FREE")

	rec, err := ParseRecord(data, 7)
	require.NoError(t, err)
	require.Nil(t, rec)
}

func TestParseRecord_FilenamePrecedence(t *testing.T) {
	// Win32 name present alongside a DOS 8.3 shadow: Win32 must win.
	b := newRecordBuilder(1024)
	b.inUse = true
	b.addFileName(5, nsDos, "NOTES~1.TXT", 0, 0)
	b.addFileName(5, nsWin32, "notes-with-a-long-name.txt", 100, 100)

	rec, err := ParseRecord(b.build(), 1)
	require.NoError(t, err)
	require.Equal(t, "notes-with-a-long-name.txt", rec.Name)

	// DOS-only: the DOS name is used since nothing else survives.
	b2 := newRecordBuilder(1024)
	b2.inUse = true
	b2.addFileName(5, nsDos, "NOTES~1.TXT", 50, 50)

	rec2, err := ParseRecord(b2.build(), 2)
	require.NoError(t, err)
	require.Equal(t, "NOTES~1.TXT", rec2.Name)
}

// After applying the fixup array, sector-tail bytes equal the saved
// values, and the sentinel signature appears nowhere except as the
// pre-fixup marker.
func TestFixupIdempotence(t *testing.T) {
	data := make([]byte, 1024)
	copy(data[0:4], recordSignature)

	const signature = uint16(0xA5A5)
	slot1 := uint16(0x1111)
	slot2 := uint16(0x2222)

	updSeqOffset := uint16(48)
	updSeqCount := uint16(3)
	binary.LittleEndian.PutUint16(data[48:50], signature)
	binary.LittleEndian.PutUint16(data[50:52], slot1)
	binary.LittleEndian.PutUint16(data[52:54], slot2)

	// Sector tails (sector i occupies [i*512, i*512+512)) carry the sentinel
	// pre-fixup.
	binary.LittleEndian.PutUint16(data[510:512], signature)
	binary.LittleEndian.PutUint16(data[1022:1024], signature)

	ApplyFixup(data, updSeqOffset, updSeqCount)

	require.Equal(t, slot1, binary.LittleEndian.Uint16(data[510:512]))
	require.Equal(t, slot2, binary.LittleEndian.Uint16(data[1022:1024]))

	// The sentinel must not remain at either sector tail post-fixup (unless
	// a restored value happens to coincide, which it doesn't here).
	require.NotEqual(t, signature, binary.LittleEndian.Uint16(data[510:512]))
	require.NotEqual(t, signature, binary.LittleEndian.Uint16(data[1022:1024]))
}

func TestApplyFixup_MismatchedSectorTailIsSkippedNotAborted(t *testing.T) {
	data := make([]byte, 1024)
	const signature = uint16(0x5555)
	binary.LittleEndian.PutUint16(data[48:50], signature)
	binary.LittleEndian.PutUint16(data[50:52], 0x1111)
	binary.LittleEndian.PutUint16(data[52:54], 0x2222)

	// Sector 1's tail does NOT match the signature: degraded, but must not
	// panic or corrupt unrelated bytes.
	binary.LittleEndian.PutUint16(data[510:512], 0xDEAD)
	binary.LittleEndian.PutUint16(data[1022:1024], signature)

	require.NotPanics(t, func() {
		ApplyFixup(data, 48, 3)
	})
	require.Equal(t, uint16(0xDEAD), binary.LittleEndian.Uint16(data[510:512]))
	require.Equal(t, uint16(0x2222), binary.LittleEndian.Uint16(data[1022:1024]))
}

// TestDataRunRoundTrip: encoding then decoding a random run list must
// reproduce it exactly.
func TestDataRunRoundTrip(t *testing.T) {
	runs := []DataRun{
		{LCN: 1000, Count: 4, Sparse: false},
		{LCN: 1500, Count: 2, Sparse: false},
		{LCN: 0, Count: 10, Sparse: true},
		{LCN: 900, Count: 1, Sparse: false}, // negative delta from 1500 -> 900
	}
	encoded := EncodeDataRuns(runs)
	decoded := DecodeDataRuns(encoded)

	require.Len(t, decoded, len(runs))
	for i, r := range runs {
		require.Equal(t, r.Count, decoded[i].Count, "run %d count", i)
		require.Equal(t, r.Sparse, decoded[i].Sparse, "run %d sparse", i)
		if !r.Sparse {
			require.Equal(t, r.LCN, decoded[i].LCN, "run %d LCN", i)
		}
	}
}

func TestParseRecord_NonResidentDataSetsRealSizeAndRuns(t *testing.T) {
	runs := []DataRun{{LCN: 10, Count: 2, Sparse: false}, {LCN: 15, Count: 1, Sparse: false}}
	b := newRecordBuilder(1024)
	b.inUse = false
	b.addFileName(5, nsWin32, "img.png", 9000, 9000)
	b.addNonResidentData(9000, runs)

	rec, err := ParseRecord(b.build(), 99)
	require.NoError(t, err)
	require.False(t, rec.Resident)
	require.EqualValues(t, 9000, rec.RealSize)
	require.Len(t, rec.DataRuns, 2)
	require.EqualValues(t, 10, rec.DataRuns[0].LCN)
	require.EqualValues(t, 15, rec.DataRuns[1].LCN)
}

func TestParseRecord_NamedAlternateStreamIgnoredForSize(t *testing.T) {
	// A named $DATA stream must not affect RealSize/DataRuns.
	named := residentAttr(attrData, make([]byte, 8))
	named[16] = 0xEF // pretend content length, irrelevant: nameLen gates first
	named[9] = 4     // nameLen != 0: named stream

	b := newRecordBuilder(1024)
	b.inUse = true
	b.addFileName(5, nsWin32, "plain.txt", 3, 3)
	b.attrs = append(b.attrs, named)
	b.addResidentData([]byte("abc"))

	rec, err := ParseRecord(b.build(), 3)
	require.NoError(t, err)
	require.EqualValues(t, 3, rec.RealSize)
	require.Empty(t, rec.DataRuns)
}
