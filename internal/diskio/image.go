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
	"fmt"
	"io"
)

// ImageVolume implements Volume over any io.ReaderAt representing a raw
// volume image (a disk image file, or an in-memory buffer in tests). It
// satisfies the Volume contract's byte-granular read semantics but has none
// of the OS ioctls available: those calls return a plain "unsupported"
// error.
type ImageVolume struct {
	r    io.ReaderAt
	size uint64
	c    io.Closer
}

// NewImageVolume wraps r (and its known size) as a Volume. If r also
// implements io.Closer, Close delegates to it.
func NewImageVolume(r io.ReaderAt, size uint64) *ImageVolume {
	iv := &ImageVolume{r: r, size: size}
	if c, ok := r.(io.Closer); ok {
		iv.c = c
	}
	return iv
}

func (v *ImageVolume) ReadAt(p []byte, off int64) (int, error) {
	return v.r.ReadAt(p, off)
}

func (v *ImageVolume) Close() error {
	if v.c != nil {
		return v.c.Close()
	}
	return nil
}

func (v *ImageVolume) Geometry() (uint64, error) {
	return v.size, nil
}

func (v *ImageVolume) LockState() (LockState, error) {
	return LockState{}, nil
}

func unsupported(op string) error {
	return fmt.Errorf("%s: %w", op, errUnsupported)
}

var errUnsupported = fmt.Errorf("unsupported on this platform")

func (v *ImageVolume) GetFileRecord(fileRef uint64, recordSize uint32) (FileRecordResult, error) {
	return FileRecordResult{}, unsupported("get file record ioctl")
}

func (v *ImageVolume) QueryUSNJournal() (USNJournalInfo, error) {
	return USNJournalInfo{}, unsupported("query usn journal ioctl")
}

func (v *ImageVolume) ReadUSNJournal(startUSN int64, reasonMask uint32, yield func(USNRecord) bool) error {
	return unsupported("read usn journal ioctl")
}

func (v *ImageVolume) OpenMFTFile() (io.ReaderAt, error) {
	return nil, unsupported("open $MFT with backup semantics")
}

var _ Volume = (*ImageVolume)(nil)
