package sigcat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Every catalogue entry with a header of length >= 2 must be retrievable
// via a Lookup keyed on its own first two header bytes.
func TestBuildIndex_EveryIndexableEntryIsRetrievable(t *testing.T) {
	idx := BuildIndex(Catalogue)

	for _, sig := range Catalogue {
		if len(sig.Header) < 2 {
			continue
		}
		matches := idx.Lookup(sig.Header[:2])
		found := false
		for _, m := range matches {
			if m.Name == sig.Name {
				found = true
				break
			}
		}
		require.True(t, found, "signature %s not retrievable by its own prefix", sig.Name)
	}
}

func TestBuildIndex_ShortHeadersGoToFallback(t *testing.T) {
	catalogue := []Signature{
		{Name: "short", Header: []byte{0xAB}},
		{Name: "normal", Header: []byte{0x01, 0x02, 0x03}},
	}
	idx := BuildIndex(catalogue)

	require.Len(t, idx.Fallback(), 1)
	require.Equal(t, "short", idx.Fallback()[0].Name)

	matches := idx.Lookup([]byte{0x01, 0x02})
	require.Len(t, matches, 1)
	require.Equal(t, "normal", matches[0].Name)
}

func TestBuildIndex_SharedPrefixReturnsAllSignatures(t *testing.T) {
	catalogue := []Signature{
		{Name: "GIF87a", Header: []byte("GIF87a")},
		{Name: "GIF89a", Header: []byte("GIF89a")},
	}
	idx := BuildIndex(catalogue)

	matches := idx.Lookup([]byte("GI"))
	require.Len(t, matches, 2)
}

func TestLookup_UnknownPrefixReturnsEmpty(t *testing.T) {
	idx := BuildIndex(Catalogue)
	require.Empty(t, idx.Lookup([]byte{0x00, 0x01}))
}

func TestPrefix16_LittleEndian(t *testing.T) {
	data := []byte{0xD8, 0xFF}
	require.Equal(t, uint16(0xFFD8), Prefix16(data, 0))
}

func TestMatchMP4_RecognizedBrand(t *testing.T) {
	data := make([]byte, 32)
	// box size at data[i-4:i], "ftyp" at data[i:i+4], brand at data[i+4:i+8].
	const i = 8
	data[i-4], data[i-3], data[i-2], data[i-1] = 0, 0, 0, 24
	copy(data[i:i+4], "ftyp")
	copy(data[i+4:i+8], "isom")

	brand, ok := MatchMP4(data, i)
	require.True(t, ok)
	require.Equal(t, "isom", brand)
}

func TestMatchMP4_UnknownBrandRejected(t *testing.T) {
	data := make([]byte, 32)
	const i = 8
	data[i-1] = 24
	copy(data[i:i+4], "ftyp")
	copy(data[i+4:i+8], "xxxx")

	_, ok := MatchMP4(data, i)
	require.False(t, ok)
}

func TestMatchMP4_BoxSizeOutOfRangeRejected(t *testing.T) {
	data := make([]byte, 32)
	const i = 8
	data[i-1] = 200 // box size 200 exceeds the 64-byte plausibility cap
	copy(data[i:i+4], "ftyp")
	copy(data[i+4:i+8], "isom")

	_, ok := MatchMP4(data, i)
	require.False(t, ok)
}

func TestMatchMP4_MissingFtypLiteralRejected(t *testing.T) {
	data := make([]byte, 32)
	const i = 8
	data[i-1] = 24
	copy(data[i:i+4], "moov")

	_, ok := MatchMP4(data, i)
	require.False(t, ok)
}
