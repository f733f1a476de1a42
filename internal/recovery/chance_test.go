package recovery

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecoveryChanceMFT_NotDeletedIsAlwaysHigh(t *testing.T) {
	require.Equal(t, 95, recoveryChanceMFT(false, false, 999999))
	require.Equal(t, 95, recoveryChanceMFT(false, true, 1))
}

func TestRecoveryChanceMFT_DeletedWithoutDataRuns(t *testing.T) {
	require.Equal(t, 50, recoveryChanceMFT(true, false, 700))
	require.Equal(t, 15, recoveryChanceMFT(true, false, 701))
	require.Equal(t, 15, recoveryChanceMFT(true, false, 100*1024))
	require.Equal(t, 5, recoveryChanceMFT(true, false, 100*1024+1))
}

func TestRecoveryChanceMFT_DeletedWithDataRuns(t *testing.T) {
	require.Equal(t, 60, recoveryChanceMFT(true, true, 4*1024))
	require.Equal(t, 45, recoveryChanceMFT(true, true, 4*1024+1))
	require.Equal(t, 45, recoveryChanceMFT(true, true, 100*1024))
	require.Equal(t, 30, recoveryChanceMFT(true, true, 100*1024+1))
	require.Equal(t, 30, recoveryChanceMFT(true, true, 1024*1024))
	require.Equal(t, 20, recoveryChanceMFT(true, true, 1024*1024+1))
}

func TestUsnReReadChance(t *testing.T) {
	require.Equal(t, 55, usnReReadChance(true, true, true))
	require.Equal(t, 5, usnReReadChance(false, true, true))
	require.Equal(t, 5, usnReReadChance(false, true, false))
	require.Equal(t, 7, usnReReadChance(true, false, true))
	require.Equal(t, 7, usnReReadChance(false, false, false))
}

func TestDifficultyTag(t *testing.T) {
	require.Equal(t, "easy", difficultyTag(95))
	require.Equal(t, "easy", difficultyTag(80))
	require.Equal(t, "moderate", difficultyTag(79))
	require.Equal(t, "moderate", difficultyTag(45))
	require.Equal(t, "difficult", difficultyTag(44))
	require.Equal(t, "difficult", difficultyTag(15))
	require.Equal(t, "unlikely", difficultyTag(14))
	require.Equal(t, "unlikely", difficultyTag(0))
}

func TestAgeBucket(t *testing.T) {
	const day = 86400
	now := int64(10_000_000)

	require.Equal(t, "unknown", ageBucket(0, now))
	require.Equal(t, "unknown", ageBucket(-5, now))
	require.Equal(t, "today", ageBucket(now, now))
	require.Equal(t, "today", ageBucket(now-day, now))
	require.Equal(t, "this_week", ageBucket(now-day-1, now))
	require.Equal(t, "this_week", ageBucket(now-7*day, now))
	require.Equal(t, "this_month", ageBucket(now-7*day-1, now))
	require.Equal(t, "this_month", ageBucket(now-30*day, now))
	require.Equal(t, "older", ageBucket(now-30*day-1, now))

	// Deletion timestamp after "now" clamps to zero elapsed time, not negative.
	require.Equal(t, "today", ageBucket(now+1000, now))
}
