package diskio

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildWholeDiskImage(t *testing.T, ntfsPartitionOffset int64, ntfsBody []byte) string {
	t.Helper()

	const sectorSize = 512
	img := make([]byte, ntfsPartitionOffset+int64(len(ntfsBody)))

	// Partition entry 0: NTFS candidate starting at ntfsPartitionOffset.
	off := 0x1BE
	img[off] = 0x80 // bootable
	img[off+0x04] = 0x07 // NTFS/HPFS/exFAT
	binary.LittleEndian.PutUint32(img[off+0x08:off+0x0C], uint32(ntfsPartitionOffset/sectorSize))
	binary.LittleEndian.PutUint32(img[off+0x0C:off+0x10], uint32(len(ntfsBody)/sectorSize))
	binary.LittleEndian.PutUint16(img[0x1FE:0x1FE+2], 0xAA55)

	copy(img[ntfsPartitionOffset:], ntfsBody)

	path := filepath.Join(t.TempDir(), "whole-disk.img")
	require.NoError(t, os.WriteFile(path, img, 0644))
	return path
}

func ntfsBootSector(bodyLen int) []byte {
	body := make([]byte, bodyLen)
	copy(body[3:7], "NTFS")
	return body
}

func TestOpenImageFile_BareNTFSVolumeNeedsNoOffset(t *testing.T) {
	body := ntfsBootSector(4096)
	path := filepath.Join(t.TempDir(), "volume.img")
	require.NoError(t, os.WriteFile(path, body, 0644))

	vol, err := OpenImageFile(path)
	require.NoError(t, err)
	defer vol.Close()

	size, err := vol.Geometry()
	require.NoError(t, err)
	require.EqualValues(t, len(body), size)

	sector := make([]byte, 512)
	_, err = vol.ReadAt(sector, 0)
	require.NoError(t, err)
	require.Equal(t, "NTFS", string(sector[3:7]))
}

func TestOpenImageFile_WholeDiskImageOffsetsToNTFSPartition(t *testing.T) {
	const partitionOffset = 1024 * 512 // 1024 sectors in
	ntfsBody := ntfsBootSector(8192)
	path := buildWholeDiskImage(t, partitionOffset, ntfsBody)

	vol, err := OpenImageFile(path)
	require.NoError(t, err)
	defer vol.Close()

	sector := make([]byte, 512)
	_, err = vol.ReadAt(sector, 0)
	require.NoError(t, err)
	require.Equal(t, "NTFS", string(sector[3:7]), "read at offset 0 of the Volume must land on the NTFS partition's boot sector")
}

func TestOpenImageFile_NonMBRNonNTFSImagePassesThrough(t *testing.T) {
	body := make([]byte, 4096) // neither an NTFS boot sector nor a valid MBR
	path := filepath.Join(t.TempDir(), "garbage.img")
	require.NoError(t, os.WriteFile(path, body, 0644))

	vol, err := OpenImageFile(path)
	require.NoError(t, err)
	defer vol.Close()

	size, err := vol.Geometry()
	require.NoError(t, err)
	require.EqualValues(t, len(body), size)
}
