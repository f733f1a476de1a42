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
	"bufio"
	"strings"
)

// parseManageBdeStatus extracts the per-volume encryption and lock state
// from `manage-bde -status <drive>:` output. Two labeled lines carry the
// state: "Conversion Status" (anything other than "Fully Decrypted" means
// the volume holds encrypted data) and "Lock Status" ("Locked" means the
// data is unreadable until the OS unlocks it).
func parseManageBdeStatus(text string) LockState {
	var state LockState

	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "Conversion Status:"):
			value := strings.TrimSpace(strings.TrimPrefix(line, "Conversion Status:"))
			if !strings.EqualFold(value, "Fully Decrypted") {
				state.Encrypted = true
			}
		case strings.HasPrefix(line, "Lock Status:"):
			value := strings.TrimSpace(strings.TrimPrefix(line, "Lock Status:"))
			if strings.EqualFold(value, "Locked") {
				state.Locked = true
			}
		}
	}
	return state
}
