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

package diskio

import (
	"io"
	"os"

	"github.com/ostafen/ntfsrecover/internal/disk"
)

// NormalizeVolumePath adapts a user-supplied drive spec ("C:", "C:\") into
// the raw device path form ("\\.\C:") required to open the volume directly,
// on Windows; on other platforms it returns path unchanged (disk images are
// opened as plain files during development and testing).
func NormalizeVolumePath(path string) string {
	return disk.NormalizeVolumePath(path)
}

// OpenImageFile opens path as a plain file and wraps it as a Volume. It's
// the entry point used by tests and by the CLI when pointed at a disk image
// rather than a live device.
//
// If the first sector isn't itself an NTFS boot sector, it's checked for
// an MBR partition table and, if one is found with an NTFS-candidate
// partition, reads are offset to that partition's start. This lets scan
// accept a whole-disk image (a \\.\PhysicalDriveN-style capture) as well
// as a bare volume image.
func OpenImageFile(path string) (Volume, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	size := uint64(fi.Size())

	offset, ok := ntfsPartitionOffset(f)
	if !ok {
		return NewImageVolume(f, size), nil
	}
	if offset > size {
		offset = 0
	}
	return NewImageVolume(&offsetReaderAt{r: f, offset: int64(offset)}, size-offset), nil
}

// ntfsPartitionOffset inspects the first sector of r: if it's already an
// NTFS boot sector, no offset is needed; otherwise it's parsed as an MBR and
// the first NTFS-candidate partition's byte offset is returned.
func ntfsPartitionOffset(r io.ReaderAt) (uint64, bool) {
	sector := make([]byte, 512)
	if _, err := r.ReadAt(sector, 0); err != nil {
		return 0, false
	}
	if string(sector[3:7]) == "NTFS" {
		return 0, false
	}
	mbr, err := disk.ParseMBR(sector)
	if err != nil {
		return 0, false
	}
	offsets := mbr.FindNTFSPartitions()
	if len(offsets) == 0 {
		return 0, false
	}
	return offsets[0], true
}

// offsetReaderAt adapts an io.ReaderAt to a sub-range starting at offset,
// the view diskio.Volume needs over the partition located within a
// whole-disk image.
type offsetReaderAt struct {
	r      io.ReaderAt
	offset int64
}

func (o *offsetReaderAt) ReadAt(p []byte, off int64) (int, error) {
	return o.r.ReadAt(p, off+o.offset)
}

// Close lets NewImageVolume's io.Closer detection reach through to the
// underlying file.
func (o *offsetReaderAt) Close() error {
	if c, ok := o.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
