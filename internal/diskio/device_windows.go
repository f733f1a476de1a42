//go:build windows

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
	"encoding/binary"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/ostafen/ntfsrecover/internal/errs"
)

const (
	fsctlGetNTFSFileRecord = 0x90068
	fsctlQueryUSNJournal   = 0x900f4
	fsctlReadUSNJournal    = 0x900bb
	ioctlDiskGetLengthInfo = 0x7405c
	ioctlDiskGetGeometry   = 0x70000

	fileFlagBackupSemantics = 0x02000000

	usnReasonFileDelete = 0x00000200
	fileAttrDirectory   = 0x00000010
)

// DISKGeometry mirrors DISK_GEOMETRY (IOCTL_DISK_GET_DRIVE_GEOMETRY).
type DISKGeometry struct {
	Cylinders         int64
	MediaType         uint32
	TracksPerCylinder uint32
	SectorsPerTrack   uint32
	BytesPerSector    uint32
}

// DeviceVolume is the real Volume implementation over a live Windows
// device handle: sector-aligned positioned reads plus the geometry, MFT
// record, and USN journal ioctls.
type DeviceVolume struct {
	path       string
	handle     windows.Handle
	mftFile    windows.Handle
	mftChecked bool
}

// OpenDevice opens a normalized device path (e.g. "\\.\C:") with the share
// flags and backup semantics the spec requires to read protected files.
func OpenDevice(path string) (*DeviceVolume, error) {
	h, err := windows.CreateFile(
		windows.StringToUTF16Ptr(path),
		windows.GENERIC_READ,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE|windows.FILE_SHARE_DELETE,
		nil,
		windows.OPEN_EXISTING,
		fileFlagBackupSemantics,
		0,
	)
	if err != nil {
		if err == windows.ERROR_ACCESS_DENIED {
			return nil, fmt.Errorf("open %q: %w", path, errs.ErrPermissionDenied)
		}
		return nil, fmt.Errorf("open %q: %w: %w", path, errs.ErrIo, err)
	}
	return &DeviceVolume{path: path, handle: h}, nil
}

func (d *DeviceVolume) ReadAt(p []byte, off int64) (int, error) {
	const sectorSize = 512
	alignedOffset := off / sectorSize * sectorSize
	alignmentDiff := int(off - alignedOffset)
	alignedSize := ((len(p) + alignmentDiff + sectorSize - 1) / sectorSize) * sectorSize

	buf := make([]byte, alignedSize)
	var bytesRead uint32
	ov := &windows.Overlapped{
		Offset:     uint32(alignedOffset),
		OffsetHigh: uint32(alignedOffset >> 32),
	}
	err := windows.ReadFile(d.handle, buf, &bytesRead, ov)
	if err != nil {
		if err == windows.ERROR_IO_PENDING {
			err = windows.GetOverlappedResult(d.handle, ov, &bytesRead, true)
		}
		if err != nil {
			return 0, fmt.Errorf("aligned read at %d: %w: %w", off, errs.ErrIo, err)
		}
	}
	return copy(p, buf[alignmentDiff:]), nil
}

func (d *DeviceVolume) Close() error {
	if d.mftChecked && d.mftFile != 0 {
		windows.CloseHandle(d.mftFile)
	}
	return windows.CloseHandle(d.handle)
}

func (d *DeviceVolume) Geometry() (uint64, error) {
	var lengthInfo struct{ Length int64 }
	var bytesReturned uint32
	err := windows.DeviceIoControl(d.handle, ioctlDiskGetLengthInfo, nil, 0,
		(*byte)(unsafe.Pointer(&lengthInfo)), uint32(unsafe.Sizeof(lengthInfo)), &bytesReturned, nil)
	if err == nil {
		return uint64(lengthInfo.Length), nil
	}

	if end, err := windows.Seek(d.handle, 0, io.SeekEnd); err == nil && end > 0 {
		return uint64(end), nil
	}

	var geom DISKGeometry
	err = windows.DeviceIoControl(d.handle, ioctlDiskGetGeometry, nil, 0,
		(*byte)(unsafe.Pointer(&geom)), uint32(unsafe.Sizeof(geom)), &bytesReturned, nil)
	if err != nil {
		return 0, fmt.Errorf("geometry ioctls failed: %w: %w", errs.ErrIo, err)
	}
	size := geom.Cylinders * int64(geom.TracksPerCylinder) * int64(geom.SectorsPerTrack) * int64(geom.BytesPerSector)
	return uint64(size), nil
}

// GetFileRecord invokes FSCTL_GET_NTFS_FILE_RECORD. It does NOT perform
// the freed-slot comparison itself: the OS ioctl genuinely may hand back a
// different, still-live record, and that is a signal the MFT reader (not
// this layer) must act on.
func (d *DeviceVolume) GetFileRecord(fileRef uint64, recordSize uint32) (FileRecordResult, error) {
	var input [8]byte
	binary.LittleEndian.PutUint64(input[:], fileRef)

	outBuf := make([]byte, 8+4+recordSize)
	var bytesReturned uint32
	err := windows.DeviceIoControl(d.handle, fsctlGetNTFSFileRecord,
		&input[0], uint32(len(input)),
		&outBuf[0], uint32(len(outBuf)), &bytesReturned, nil)
	if err != nil {
		return FileRecordResult{}, fmt.Errorf("fsctl get file record: %w: %w", errs.ErrIo, err)
	}

	returnedRef := binary.LittleEndian.Uint64(outBuf[0:8])
	recLen := binary.LittleEndian.Uint32(outBuf[8:12])
	if 12+recLen > uint32(len(outBuf)) {
		recLen = uint32(len(outBuf)) - 12
	}
	return FileRecordResult{
		ReturnedFileRef: returnedRef,
		Record:          outBuf[12 : 12+recLen],
	}, nil
}

func (d *DeviceVolume) QueryUSNJournal() (USNJournalInfo, error) {
	var out struct {
		JournalID       uint64
		FirstUSN        int64
		NextUSN         int64
		LowestValidUSN  int64
		MaxUSN          int64
		MaximumSize     uint64
		AllocationDelta uint64
	}
	var bytesReturned uint32
	err := windows.DeviceIoControl(d.handle, fsctlQueryUSNJournal, nil, 0,
		(*byte)(unsafe.Pointer(&out)), uint32(unsafe.Sizeof(out)), &bytesReturned, nil)
	if err != nil {
		return USNJournalInfo{}, fmt.Errorf("fsctl query usn journal: %w: %w", errs.ErrIo, err)
	}
	return USNJournalInfo{
		JournalID: out.JournalID,
		FirstUSN:  out.FirstUSN,
		NextUSN:   out.NextUSN,
		MaxSize:   out.MaximumSize,
	}, nil
}

// ReadUSNJournal loops FSCTL_READ_USN_JOURNAL, decoding packed
// USN_RECORD_V2 entries and stopping at end-of-journal, a stalled cursor,
// or the caller returning false from yield.
func (d *DeviceVolume) ReadUSNJournal(startUSN int64, reasonMask uint32, yield func(USNRecord) bool) error {
	journal, err := d.QueryUSNJournal()
	if err != nil {
		return err
	}

	type readInput struct {
		StartUSN          int64
		ReasonMask        uint32
		ReturnOnlyOnClose uint32
		Timeout           uint64
		BytesToWaitFor    uint64
		UsnJournalID      uint64
	}
	in := readInput{StartUSN: startUSN, ReasonMask: reasonMask, UsnJournalID: journal.JournalID}

	buf := make([]byte, 64*1024)
	cursor := startUSN

	for {
		var bytesReturned uint32
		err := windows.DeviceIoControl(d.handle, fsctlReadUSNJournal,
			(*byte)(unsafe.Pointer(&in)), uint32(unsafe.Sizeof(in)),
			&buf[0], uint32(len(buf)), &bytesReturned, nil)
		if err != nil {
			return fmt.Errorf("fsctl read usn journal: %w: %w", errs.ErrIo, err)
		}
		if bytesReturned < 8 {
			return nil
		}

		nextUSN := int64(binary.LittleEndian.Uint64(buf[0:8]))
		pos := 8
		for pos+60 <= int(bytesReturned) {
			recLen := int(binary.LittleEndian.Uint32(buf[pos : pos+4]))
			if recLen <= 0 || pos+recLen > int(bytesReturned) {
				break
			}
			rec := decodeUSNRecordV2(buf[pos : pos+recLen])
			if rec.ReasonMask&usnReasonFileDelete != 0 && rec.FileAttrs&fileAttrDirectory == 0 {
				if !yield(rec) {
					return nil
				}
			}
			pos += recLen
		}

		if nextUSN <= cursor {
			return nil
		}
		cursor = nextUSN
		in.StartUSN = cursor
	}
}

func decodeUSNRecordV2(b []byte) USNRecord {
	if len(b) < 60 {
		return USNRecord{}
	}
	fileRef := binary.LittleEndian.Uint64(b[8:16]) & 0x0000FFFFFFFFFFFF
	parentRef := binary.LittleEndian.Uint64(b[16:24]) & 0x0000FFFFFFFFFFFF
	usn := int64(binary.LittleEndian.Uint64(b[24:32]))
	timestamp := int64(binary.LittleEndian.Uint64(b[32:40]))
	reason := binary.LittleEndian.Uint32(b[40:44])
	attrs := binary.LittleEndian.Uint32(b[52:56])
	nameLen := int(binary.LittleEndian.Uint16(b[56:58]))
	nameOff := int(binary.LittleEndian.Uint16(b[58:60]))

	var name string
	if nameOff+nameLen <= len(b) {
		u16s := make([]uint16, nameLen/2)
		for i := range u16s {
			u16s[i] = binary.LittleEndian.Uint16(b[nameOff+i*2 : nameOff+i*2+2])
		}
		name = utf16ToString(u16s)
	}

	return USNRecord{
		FileRef:       fileRef,
		ParentFileRef: parentRef,
		USN:           usn,
		Timestamp:     timestamp,
		ReasonMask:    reason,
		FileAttrs:     attrs,
		FileName:      name,
	}
}

func utf16ToString(u16s []uint16) string {
	var b strings.Builder
	for i := 0; i < len(u16s); i++ {
		r := rune(u16s[i])
		if r >= 0xD800 && r <= 0xDBFF && i+1 < len(u16s) {
			r2 := rune(u16s[i+1])
			if r2 >= 0xDC00 && r2 <= 0xDFFF {
				r = ((r - 0xD800) << 10) + (r2 - 0xDC00) + 0x10000
				i++
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

// OpenMFTFile opens the volume's $MFT directly (e.g. "C:\$MFT") with backup
// semantics. The open succeeds only on OS versions that expose $MFT through
// the filesystem namespace; callers fall back to the ioctl and extent-map
// strategies when it does not. The handle is cached across calls.
func (d *DeviceVolume) OpenMFTFile() (io.ReaderAt, error) {
	if d.mftChecked {
		if d.mftFile == 0 {
			return nil, fmt.Errorf("$MFT not openable on this volume: %w", errs.ErrIo)
		}
		return &handleReaderAt{handle: d.mftFile}, nil
	}
	d.mftChecked = true

	drive := strings.TrimPrefix(strings.ToUpper(d.path), `\\.\`)
	if len(drive) < 2 || drive[1] != ':' {
		return nil, fmt.Errorf("no drive letter in %q to open $MFT from: %w", d.path, errs.ErrIo)
	}
	mftPath := drive[:2] + `\$MFT`

	h, err := windows.CreateFile(
		windows.StringToUTF16Ptr(mftPath),
		windows.GENERIC_READ,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE|windows.FILE_SHARE_DELETE,
		nil,
		windows.OPEN_EXISTING,
		fileFlagBackupSemantics,
		0,
	)
	if err != nil {
		if err == windows.ERROR_ACCESS_DENIED {
			return nil, fmt.Errorf("open %q: %w", mftPath, errs.ErrPermissionDenied)
		}
		return nil, fmt.Errorf("open %q: %w: %w", mftPath, errs.ErrIo, err)
	}
	d.mftFile = h
	return &handleReaderAt{handle: h}, nil
}

// handleReaderAt issues positioned reads against a plain file handle via
// overlapped offsets, so concurrent-looking callers never race a shared
// file pointer.
type handleReaderAt struct {
	handle windows.Handle
}

func (r *handleReaderAt) ReadAt(p []byte, off int64) (int, error) {
	var bytesRead uint32
	ov := &windows.Overlapped{
		Offset:     uint32(off),
		OffsetHigh: uint32(off >> 32),
	}
	err := windows.ReadFile(r.handle, p, &bytesRead, ov)
	if err != nil {
		if err == windows.ERROR_IO_PENDING {
			err = windows.GetOverlappedResult(r.handle, ov, &bytesRead, true)
		}
		if err != nil {
			return int(bytesRead), fmt.Errorf("read $MFT at %d: %w: %w", off, errs.ErrIo, err)
		}
	}
	if int(bytesRead) < len(p) {
		return int(bytesRead), io.ErrUnexpectedEOF
	}
	return int(bytesRead), nil
}

// LockState probes BitLocker status without attempting to unlock, by
// shelling out to manage-bde the way the shadow-copy strategy shells out
// to vssadmin. Callers must treat an error as "unknown", not "unlocked".
func (d *DeviceVolume) LockState() (LockState, error) {
	drive := strings.TrimPrefix(strings.ToUpper(d.path), `\\.\`)
	if len(drive) < 2 || drive[1] != ':' {
		// A \\.\PhysicalDriveN handle has no per-volume BitLocker state;
		// the probe applies when a concrete volume is opened.
		return LockState{}, nil
	}

	out, err := exec.Command("manage-bde", "-status", drive[:2]).CombinedOutput()
	if err != nil {
		text := string(out)
		switch {
		case strings.Contains(text, "Access is denied"):
			return LockState{}, fmt.Errorf("manage-bde requires elevation: %w", errs.ErrPermissionDenied)
		default:
			return LockState{}, fmt.Errorf("manage-bde -status failed: %w: %s", errs.ErrIo, strings.TrimSpace(text))
		}
	}
	return parseManageBdeStatus(string(out)), nil
}

var _ Volume = (*DeviceVolume)(nil)
