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

// Package recovery implements the recovery orchestrator: the layered
// scan/recover pipeline that ties together the MFT reader, USN journal,
// Recycle Bin, Volume Shadow Copy, and signature carver.
package recovery

// Source identifies which subsystem produced a RecoverableFile.
type Source string

const (
	SourceMFT       Source = "mft"
	SourceMFTOrphan Source = "mft_orphan"
	SourceUSN       Source = "usn"
	SourceCarved    Source = "carved"
	SourceRecycle   Source = "recycle"
	SourceVSS       Source = "vss"
)

// Mode selects scan depth.
type Mode int

const (
	ModeQuick Mode = iota
	ModeDeep
)

const (
	quickModeRecordCap = 250_000
	maxDeleted         = 100_000
	maxTotal           = 200_000
	pathDepthCap       = 100
	rootRecordNumber   = 5

	defaultMaxConsecutiveFailures = 100_000
)

// RecoverableFile is the orchestrator's output record. Values only: the
// orchestrator builds them and hands them to callers with no back-references
// into engine state.
type RecoverableFile struct {
	ID              string
	Name            string
	Path            string
	Size            uint64
	Extension       string
	Category        string
	Modified        int64
	Created         int64
	Deleted         bool
	RecoveryChance  int
	Source          Source
	FirstClusterLCN int64
	DataRuns        []dataRunDescriptor
	Fragments       []fragmentDescriptor
	Difficulty      string
	AgeBucket       string

	recordNumber uint64
	sequenceNum  uint16
}

type dataRunDescriptor struct {
	LCN    int64
	Count  uint64
	Sparse bool
}

type fragmentDescriptor struct {
	Offset int64
	Length int64
}

// RecoverResult is the outcome of a single Recover call.
type RecoverResult struct {
	BytesRecovered int64
	Source         Source
	Complete       bool
	FailedRuns     int
	Message        string
}

// CancelToken is the shared cancel signal polled at coarse intervals by the
// MFT walk, carver scan, and cluster-read loops.
type CancelToken struct {
	ch chan struct{}
}

func NewCancelToken() *CancelToken {
	return &CancelToken{ch: make(chan struct{})}
}

func (c *CancelToken) Cancel() {
	select {
	case <-c.ch:
	default:
		close(c.ch)
	}
}

func (c *CancelToken) Cancelled() bool {
	select {
	case <-c.ch:
		return true
	default:
		return false
	}
}
