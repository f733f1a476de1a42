package mft

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ostafen/ntfsrecover/internal/errs"
	"github.com/ostafen/ntfsrecover/internal/ntfsfmt"
)

// Every record number N with N*record_size < total_bytes_covered maps to
// exactly one physical byte offset, monotonic in N within each extent.
func TestExtentMapCoverage(t *testing.T) {
	const clusterSize = 4096
	const recordSize = 1024

	runs := []ntfsfmt.DataRun{
		{LCN: 100, Count: 10, Sparse: false},
		{LCN: 0, Count: 5, Sparse: true}, // a sparse gap in the MFT's own stream
		{LCN: 200, Count: 20, Sparse: false},
	}
	em, err := BuildExtentMap(runs)
	require.NoError(t, err)

	total := em.TotalBytesCovered(clusterSize)
	require.EqualValues(t, (10+5+20)*clusterSize, total)

	var lastOffset uint64
	var lastExtentCluster uint64 = ^uint64(0)
	for n := uint64(0); n*recordSize < total; n++ {
		logicalByte := n * recordSize
		logicalCluster := logicalByte / clusterSize

		// Skip the sparse region: it isn't backed by any physical extent,
		// so a lookup there must fail, not silently succeed.
		if logicalCluster >= 10 && logicalCluster < 15 {
			_, err := em.PhysicalByteOffset(logicalByte, clusterSize)
			require.Error(t, err)
			require.True(t, errs.Is(err, errs.ErrOutOfRange))
			continue
		}

		offset, err := em.PhysicalByteOffset(logicalByte, clusterSize)
		require.NoError(t, err)

		physicalCluster := offset / clusterSize
		if physicalCluster == lastExtentCluster {
			require.GreaterOrEqual(t, offset, lastOffset)
		}
		lastExtentCluster = physicalCluster
		lastOffset = offset
	}
}

func TestExtentMapOutOfRange(t *testing.T) {
	em, err := BuildExtentMap([]ntfsfmt.DataRun{{LCN: 10, Count: 1, Sparse: false}})
	require.NoError(t, err)

	_, err = em.PhysicalByteOffset(10*4096, 4096) // logical cluster 10, past the single-cluster extent
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.ErrOutOfRange))
}

func TestBuildExtentMap_AllSparseIsParseError(t *testing.T) {
	_, err := BuildExtentMap([]ntfsfmt.DataRun{{Count: 10, Sparse: true}})
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.ErrParseError))
}

func TestBuildExtentMap_IdentityMapping(t *testing.T) {
	// A single extent starting at physical cluster 0 maps logical == physical.
	em, err := BuildExtentMap([]ntfsfmt.DataRun{{LCN: 0, Count: 50, Sparse: false}})
	require.NoError(t, err)

	offset, err := em.PhysicalByteOffset(123456, 4096)
	require.NoError(t, err)
	require.EqualValues(t, 123456, offset)
}
