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

// Package ntfsfmt decodes NTFS on-disk structures: the boot sector, MFT
// records, attributes and data runs. It operates purely on byte slices;
// nothing here touches a volume handle.
package ntfsfmt

import (
	"fmt"

	"github.com/go-restruct/restruct"

	"github.com/ostafen/ntfsrecover/internal/errs"
)

// Geometry is the immutable volume geometry decoded from the boot sector.
type Geometry struct {
	BytesPerSector    uint16
	SectorsPerCluster uint8
	ClusterSize       uint32
	MFTStartCluster   uint64
	MFTRecordSize     uint32
}

// rawBootSector mirrors the first bytes of an NTFS boot sector down to the
// fields this module needs; restruct tags carry the byte widths.
type rawBootSector struct {
	_                 [3]byte  `struct:"[3]byte"`  // 0x00: jump instruction
	OEMID             [8]byte  `struct:"[8]byte"`  // 0x03: "NTFS    "
	BytesPerSector    uint16   `struct:"uint16,little"` // 0x0B
	SectorsPerCluster uint8    `struct:"uint8"`    // 0x0D
	_                 [34]byte `struct:"[34]byte"` // 0x0E..0x30: BPB fields this module doesn't need
	MFTCluster        uint64   `struct:"uint64,little"` // 0x30
	MFTMirrCluster    uint64   `struct:"uint64,little"` // 0x38
	MFTRecordSizeHint int8     `struct:"int8"`     // 0x40
}

// ParseBootSector decodes the first 512 bytes of an NTFS volume. It fails
// with errs.ErrNotNtfs unless bytes 3..7 equal "NTFS".
func ParseBootSector(data []byte) (*Geometry, error) {
	if len(data) < 512 {
		return nil, fmt.Errorf("boot sector: need 512 bytes, got %d: %w", len(data), errs.ErrIo)
	}
	if string(data[3:7]) != "NTFS" {
		return nil, fmt.Errorf("boot sector signature %q: %w", data[3:7], errs.ErrNotNtfs)
	}

	var raw rawBootSector
	if err := restruct.Unpack(data[:65], defaultEndian, &raw); err != nil {
		return nil, fmt.Errorf("boot sector decode: %w", errs.ErrParseError)
	}

	clusterSize := uint32(raw.BytesPerSector) * uint32(raw.SectorsPerCluster)

	var recordSize uint32
	if raw.MFTRecordSizeHint > 0 {
		recordSize = uint32(raw.MFTRecordSizeHint) * clusterSize
	} else if raw.MFTRecordSizeHint < 0 {
		recordSize = 1 << uint(-raw.MFTRecordSizeHint)
	} else {
		return nil, fmt.Errorf("mft record size hint is zero: %w", errs.ErrParseError)
	}

	return &Geometry{
		BytesPerSector:    raw.BytesPerSector,
		SectorsPerCluster: raw.SectorsPerCluster,
		ClusterSize:       clusterSize,
		MFTStartCluster:   raw.MFTCluster,
		MFTRecordSize:     recordSize,
	}, nil
}
