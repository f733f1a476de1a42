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

// Package errs defines the error kinds the recovery engine surfaces to callers.
package errs

import "errors"

// Sentinel error kinds. Components wrap these with fmt.Errorf("...: %w", Kind)
// so callers can classify failures with errors.Is while still getting a useful
// message.
var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotNtfs          = errors.New("not an ntfs volume")
	ErrVolumeLocked     = errors.New("volume is locked")
	ErrIo               = errors.New("i/o error")
	ErrFreedSlot        = errors.New("freed mft slot")
	ErrOutOfRange       = errors.New("record out of range")
	ErrParseError       = errors.New("parse error")
	ErrCorruptOutput    = errors.New("corrupt output")
	ErrCancelled        = errors.New("cancelled")

	// The engine refuses to silently overwrite an existing destination, and
	// a non-deleted descriptor whose live path is gone is a distinct, named
	// failure rather than a generic one.
	ErrDestinationExists = errors.New("destination already exists")
	ErrLivePathMissing   = errors.New("live path does not exist for a non-deleted file")
)

// Is reports whether err ultimately wraps target, a thin readability wrapper
// around errors.Is for call sites that classify engine failures.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
