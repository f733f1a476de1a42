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
	"sync"

	"github.com/ostafen/ntfsrecover/pkg/reader"
)

// OpenSplitImage opens a disk image captured as multiple segment files
// (e.g. "image.001", "image.002", ...) and presents them as a single Volume,
// using pkg/reader's MultiReadSeeker to stitch the segments into one
// contiguous address space. Segment order follows paths as given.
//
// Like OpenImageFile, the result is offset to the first NTFS-candidate
// partition if the combined image starts with an MBR rather than a bare
// NTFS boot sector.
func OpenSplitImage(paths []string) (Volume, error) {
	files := make([]*os.File, 0, len(paths))
	readers := make([]io.ReadSeeker, 0, len(paths))
	sizes := make([]int64, 0, len(paths))

	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}

	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			closeAll()
			return nil, err
		}
		fi, err := f.Stat()
		if err != nil {
			closeAll()
			return nil, err
		}
		files = append(files, f)
		readers = append(readers, f)
		sizes = append(sizes, fi.Size())
	}

	var total uint64
	for _, s := range sizes {
		total += uint64(s)
	}

	multi := reader.NewMultiReadSeeker(readers, sizes)
	ra := &seekerReaderAt{rs: multi, closer: closerFunc(closeAll)}

	offset, ok := ntfsPartitionOffset(ra)
	if !ok {
		return NewImageVolume(ra, total), nil
	}
	if offset > total {
		offset = 0
	}
	return NewImageVolume(&offsetReaderAt{r: ra, offset: int64(offset)}, total-offset), nil
}

type closerFunc func()

func (f closerFunc) Close() error {
	f()
	return nil
}

// seekerReaderAt adapts an io.ReadSeeker (MultiReadSeeker isn't safe for
// concurrent ReadAt since it carries a single read cursor) into io.ReaderAt
// by serializing seek+read under a mutex. Sound here: the MFT reader
// exclusively owns the volume handle, so callers never issue concurrent
// reads through the same Volume.
type seekerReaderAt struct {
	mu     sync.Mutex
	rs     io.ReadSeeker
	closer io.Closer
}

func (s *seekerReaderAt) ReadAt(p []byte, off int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.rs.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	n, err := io.ReadFull(s.rs, p)
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return n, err
}

func (s *seekerReaderAt) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
