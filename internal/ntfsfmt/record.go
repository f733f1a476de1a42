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

package ntfsfmt

import (
	"encoding/binary"
	"fmt"

	"github.com/go-restruct/restruct"

	"github.com/ostafen/ntfsrecover/internal/errs"
)

const (
	recordSignature = "FILE"
	attrEnd         = 0xFFFFFFFF

	attrStandardInformation = 0x10
	attrFileName            = 0x30
	attrData                = 0x80

	flagInUse       = 0x0001
	flagIsDirectory = 0x0002

	nsPosix = 0x00
	nsWin32 = 0x01
	nsDos   = 0x02
	nsBoth  = 0x03
)

// rawRecordHeader is the fixed-layout prefix of every MFT record.
type rawRecordHeader struct {
	Signature      [4]byte `struct:"[4]byte"`
	UpdSeqOffset   uint16  `struct:"uint16,little"`
	UpdSeqCount    uint16  `struct:"uint16,little"`
	LSN            uint64  `struct:"uint64,little"`
	SequenceNumber uint16  `struct:"uint16,little"`
	HardLinkCount  uint16  `struct:"uint16,little"`
	FirstAttrOff   uint16  `struct:"uint16,little"`
	Flags          uint16  `struct:"uint16,little"`
	UsedSize       uint32  `struct:"uint32,little"`
	AllocatedSize  uint32  `struct:"uint32,little"`
	BaseRecord     uint64  `struct:"uint64,little"`
	NextAttrID     uint16  `struct:"uint16,little"`
}

// DataRun is one (cluster_count, absolute LCN) span of a non-resident
// attribute.
type DataRun struct {
	LCN    int64 // absolute logical cluster number; sparse runs carry LCN <= 0
	Count  uint64
	Sparse bool
}

// Record is a parsed MFT entry plus the fields derived during the parse.
type Record struct {
	RecordNumber  uint64
	SequenceNum   uint16
	InUse         bool
	IsDirectory   bool
	Name          string
	Namespace     byte
	ParentRecord  uint64
	RealSize      uint64
	AllocatedSize uint64
	Created       int64 // unix seconds, 0 = unknown
	Modified      int64
	Accessed      int64
	Resident      bool
	ResidentData  []byte
	DataRuns      []DataRun
	Extension     string
}

// ApplyFixup repairs the sector-tail corruption markers NTFS writes into
// every 512-byte sector of a record. It mutates data in place and never
// aborts: a sector whose tail doesn't match the saved signature is left
// alone, since a degraded record is still usable.
func ApplyFixup(data []byte, updSeqOffset, updSeqCount uint16) {
	off := int(updSeqOffset)
	count := int(updSeqCount)
	if count == 0 || off+2*count > len(data) {
		return
	}

	signature := binary.LittleEndian.Uint16(data[off : off+2])
	for i := 1; i < count; i++ {
		valOff := off + i*2
		if valOff+2 > len(data) {
			break
		}
		value := data[valOff : valOff+2]

		sectorTail := i*512 - 2
		if sectorTail+2 > len(data) {
			break
		}
		current := binary.LittleEndian.Uint16(data[sectorTail : sectorTail+2])
		if current != signature {
			continue
		}
		copy(data[sectorTail:sectorTail+2], value)
	}
}

// ParseRecord decodes a single record-size byte image. A non-FILE
// signature is not an error: freed slots are routine, and are reported as
// "no entry" (nil record, nil error).
func ParseRecord(raw []byte, recordNumber uint64) (*Record, error) {
	if len(raw) < 48 || string(raw[0:4]) != recordSignature {
		return nil, nil
	}

	data := make([]byte, len(raw))
	copy(data, raw)

	var hdr rawRecordHeader
	if err := restruct.Unpack(data[:48], defaultEndian, &hdr); err != nil {
		return nil, fmt.Errorf("record %d header decode: %w", recordNumber, errs.ErrParseError)
	}

	ApplyFixup(data, hdr.UpdSeqOffset, hdr.UpdSeqCount)

	rec := &Record{
		RecordNumber: recordNumber,
		SequenceNum:  hdr.SequenceNumber,
		InUse:        hdr.Flags&flagInUse != 0,
		IsDirectory:  hdr.Flags&flagIsDirectory != 0,
	}

	walkAttributes(data, int(hdr.FirstAttrOff), rec)

	rec.Extension = deriveExtension(rec.Name)
	return rec, nil
}

func walkAttributes(data []byte, start int, rec *Record) {
	off := start
	bestNameLen := -1

	for off+8 <= len(data) {
		attrType := binary.LittleEndian.Uint32(data[off : off+4])
		if attrType == attrEnd || attrType == 0 {
			break
		}
		attrLen := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		if attrLen <= 0 || off+attrLen > len(data) {
			break
		}

		body := data[off : off+attrLen]
		switch attrType {
		case attrStandardInformation:
			parseStandardInformation(body, rec)
		case attrFileName:
			parseFileName(body, rec, &bestNameLen)
		case attrData:
			parseDataAttr(body, rec)
		}

		off += attrLen
	}
}

func nonResident(body []byte) bool {
	return len(body) > 8 && body[8] != 0
}

func nameLength(body []byte) int {
	if len(body) <= 9 {
		return 0
	}
	return int(body[9])
}

func contentOffset(body []byte) int {
	if len(body) < 22 {
		return 0
	}
	return int(binary.LittleEndian.Uint16(body[20:22]))
}

func filetimeToUnix(ft int64) int64 {
	if ft <= 0 {
		return 0
	}
	return ft/10_000_000 - 11_644_473_600
}

func parseStandardInformation(body []byte, rec *Record) {
	if nonResident(body) {
		return
	}
	off := contentOffset(body)
	if off+32 > len(body) {
		return
	}
	content := body[off:]
	created := int64(binary.LittleEndian.Uint64(content[0:8]))
	modified := int64(binary.LittleEndian.Uint64(content[8:16]))
	accessed := int64(binary.LittleEndian.Uint64(content[24:32]))

	rec.Created = filetimeToUnix(created)
	rec.Modified = filetimeToUnix(modified)
	rec.Accessed = filetimeToUnix(accessed)
}

func parseFileName(body []byte, rec *Record, bestNameLen *int) {
	if nonResident(body) {
		return
	}
	off := contentOffset(body)
	if off+66 > len(body) {
		return
	}
	content := body[off:]

	parentRaw := binary.LittleEndian.Uint64(append(append([]byte{}, content[0:6]...), 0, 0))
	parentRecord := parentRaw & 0x0000FFFFFFFFFFFF

	allocSize := binary.LittleEndian.Uint64(content[40:48])
	realSize := binary.LittleEndian.Uint64(content[48:56])
	nameLen := int(content[64])
	namespace := content[65]

	if namespace == nsDos {
		// Skip pure-DOS names when another namespace is available; a
		// Win32/POSIX/both attribute always wins.
		if *bestNameLen >= 0 {
			return
		}
	}

	if 66+nameLen*2 > len(content) {
		return
	}
	u16s := make([]uint16, nameLen)
	for i := 0; i < nameLen; i++ {
		u16s[i] = binary.LittleEndian.Uint16(content[66+i*2 : 68+i*2])
	}
	name := decodeUTF16(u16s)

	// Among surviving (non-DOS-shadowed) names, keep the longest as canonical.
	if namespace != nsDos && nameLen <= *bestNameLen {
		return
	}

	rec.Name = name
	rec.Namespace = namespace
	rec.ParentRecord = parentRecord
	if realSize > 0 {
		rec.RealSize = realSize
	}
	if allocSize > 0 {
		rec.AllocatedSize = allocSize
	}
	*bestNameLen = nameLen
	if namespace == nsDos {
		*bestNameLen = -1 // a DOS-only name never blocks a later non-DOS one
	}
}

func parseDataAttr(body []byte, rec *Record) {
	if len(body) < 9 {
		return
	}
	nameLen := nameLength(body)
	if nameLen != 0 {
		return // named alternate data stream: ignored for size/data-runs
	}

	if !nonResident(body) {
		if len(body) < 20 {
			return
		}
		contentLen := binary.LittleEndian.Uint32(body[16:20])
		rec.Resident = true
		off := contentOffset(body)
		if off >= 0 && off+int(contentLen) <= len(body) {
			rec.ResidentData = append([]byte{}, body[off:off+int(contentLen)]...)
		}
		if uint64(contentLen) > rec.RealSize {
			rec.RealSize = uint64(contentLen)
		}
		return
	}

	if len(body) < 64 {
		return
	}
	realSize := binary.LittleEndian.Uint64(body[48:56])
	runsOffset := binary.LittleEndian.Uint16(body[32:34])
	if int(runsOffset) > len(body) {
		return
	}
	runs := DecodeDataRuns(body[runsOffset:])

	if realSize > rec.RealSize {
		rec.RealSize = realSize
	}
	if len(runs) > len(rec.DataRuns) {
		rec.DataRuns = runs
	}
}

// DecodeDataRuns decodes an NTFS data-run byte stream: the header byte's
// low nibble is the count-field width, the high nibble the signed
// offset-delta width; deltas are cumulative.
func DecodeDataRuns(data []byte) []DataRun {
	var runs []DataRun
	off := 0
	var prevLCN int64

	for off < len(data) {
		header := data[off]
		if header == 0 {
			break
		}
		lengthSize := int(header & 0x0F)
		offsetSize := int((header >> 4) & 0x0F)

		if off+1+lengthSize+offsetSize > len(data) {
			break
		}

		var count uint64
		for i := 0; i < lengthSize; i++ {
			count |= uint64(data[off+1+i]) << (8 * i)
		}

		sparse := offsetSize == 0
		var lcn int64
		if !sparse {
			var delta int64
			for i := 0; i < offsetSize; i++ {
				delta |= int64(data[off+1+lengthSize+i]) << (8 * i)
			}
			if data[off+lengthSize+offsetSize]&0x80 != 0 {
				for i := offsetSize; i < 8; i++ {
					delta |= 0xFF << (8 * i)
				}
			}
			lcn = prevLCN + delta
			prevLCN = lcn
		}

		runs = append(runs, DataRun{LCN: lcn, Count: count, Sparse: sparse})
		off += 1 + lengthSize + offsetSize
	}
	return runs
}

// EncodeDataRuns is the inverse of DecodeDataRuns, used by round-trip tests
// and available to callers that need to re-serialize a synthetic run list.
func EncodeDataRuns(runs []DataRun) []byte {
	var out []byte
	var prevLCN int64

	for _, r := range runs {
		countBytes := minimalLEBytes(r.Count)
		var offBytes []byte
		if !r.Sparse {
			delta := r.LCN - prevLCN
			offBytes = minimalSignedLEBytes(delta)
			prevLCN = r.LCN
		}
		header := byte(len(countBytes)) | byte(len(offBytes))<<4
		out = append(out, header)
		out = append(out, countBytes...)
		out = append(out, offBytes...)
	}
	out = append(out, 0)
	return out
}

func minimalLEBytes(v uint64) []byte {
	if v == 0 {
		return []byte{0}
	}
	var b []byte
	for v > 0 {
		b = append(b, byte(v))
		v >>= 8
	}
	return b
}

func minimalSignedLEBytes(v int64) []byte {
	// Smallest byte count whose sign-extension reproduces v.
	for n := 1; n <= 8; n++ {
		bits := uint(n * 8)
		min := -(int64(1) << (bits - 1))
		max := int64(1)<<(bits-1) - 1
		if v >= min && v <= max {
			b := make([]byte, n)
			u := uint64(v)
			for i := 0; i < n; i++ {
				b[i] = byte(u)
				u >>= 8
			}
			return b
		}
	}
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(v))
	return b
}

func decodeUTF16(u16s []uint16) string {
	runes := make([]rune, 0, len(u16s))
	for i := 0; i < len(u16s); i++ {
		r := rune(u16s[i])
		if r >= 0xD800 && r <= 0xDBFF && i+1 < len(u16s) {
			r2 := rune(u16s[i+1])
			if r2 >= 0xDC00 && r2 <= 0xDFFF {
				r = ((r - 0xD800) << 10) + (r2 - 0xDC00) + 0x10000
				i++
			}
		}
		runes = append(runes, r)
	}
	return string(runes)
}

func deriveExtension(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			ext := name[i+1:]
			if len(ext) > 0 && len(ext) <= 10 {
				return toLower(ext)
			}
			return ""
		}
	}
	return ""
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 32
		}
	}
	return string(b)
}
