package recovery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseVssadminOutput_NewestFirst(t *testing.T) {
	text := `Shadow Copy ID: {id1}
Shadow Copy Volume: \\?\GLOBALROOT\Device\HarddiskVolumeShadowCopy1
Creation Time: 1/1/2021 12:00:00 AM

Shadow Copy ID: {id2}
Shadow Copy Volume: \\?\GLOBALROOT\Device\HarddiskVolumeShadowCopy2
Creation Time: 1/2/2021 6:30:00 PM
`
	shadows := parseVssadminOutput(text)
	require.Len(t, shadows, 2)

	// Input lists {id1} before {id2}; the parser reverses so the
	// later-listed (newest) snapshot comes first.
	require.Equal(t, "{id2}", shadows[0].ID)
	require.Equal(t, `\\?\GLOBALROOT\Device\HarddiskVolumeShadowCopy2`, shadows[0].DeviceObject)
	require.Equal(t, "{id1}", shadows[1].ID)

	want := time.Date(2021, 1, 2, 18, 30, 0, 0, time.UTC)
	require.True(t, shadows[0].CreatedAt.Equal(want))
}

func TestParseVssadminOutput_EmptyOutputYieldsNoShadows(t *testing.T) {
	shadows := parseVssadminOutput("No items found that satisfy the query.\n")
	require.Empty(t, shadows)
}

func TestParseVssadminOutput_EntryMissingVolumeIsDropped(t *testing.T) {
	text := `Shadow Copy ID: {id1}
Creation Time: 1/1/2021 12:00:00 AM
`
	shadows := parseVssadminOutput(text)
	require.Empty(t, shadows)
}

func TestParseVssadminOutput_UnparseableCreationTimeLeavesZeroValue(t *testing.T) {
	text := `Shadow Copy ID: {id1}
Shadow Copy Volume: \\?\GLOBALROOT\Device\HarddiskVolumeShadowCopy1
Creation Time: not-a-date
`
	shadows := parseVssadminOutput(text)
	require.Len(t, shadows, 1)
	require.True(t, shadows[0].CreatedAt.IsZero())
}

func TestParseVssadminOutput_SingleEntry(t *testing.T) {
	text := `Shadow Copy ID: {only}
Shadow Copy Volume: \\?\GLOBALROOT\Device\HarddiskVolumeShadowCopy9
Creation Time: 3/4/2022 9:15:30 AM
`
	shadows := parseVssadminOutput(text)
	require.Len(t, shadows, 1)
	require.Equal(t, "{only}", shadows[0].ID)
}
