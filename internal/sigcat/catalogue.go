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

// Package sigcat holds the signature catalogue and its lookup index: a
// static table of header/footer/max-size records and a 16-bit-prefix index
// over them for the carver's hot path.
package sigcat

// Category groups signatures for the junk/format-aware logic elsewhere in
// the engine (validator, CLI "formats" listing).
type Category string

const (
	CategoryImage      Category = "image"
	CategoryAudio      Category = "audio"
	CategoryVideo      Category = "video"
	CategoryDocument   Category = "document"
	CategoryArchive    Category = "archive"
	CategoryExecutable Category = "executable"
	CategoryDatabase   Category = "database"
)

// Signature is a static header/footer/max-size record. Header length must
// be >= 2 for the record to participate in the prefix index; shorter
// headers are matched only via the catalogue's linear fallback.
type Signature struct {
	Name        string
	Extension   string
	Header      []byte
	Footer      []byte
	MaxSize     int64
	Category    Category
	DefaultSize int64 // per-extension fallback when no footer or structural estimator applies
}

// Catalogue is a representative signature list, deliberately partial: the
// full production catalogue is a data artifact the carver is parametric
// over, not something this package tries to be exhaustive about.
var Catalogue = []Signature{
	{Name: "JPEG", Extension: "jpg", Header: []byte{0xFF, 0xD8, 0xFF}, Footer: []byte{0xFF, 0xD9}, MaxSize: 50 << 20, DefaultSize: 500 << 10, Category: CategoryImage},
	{Name: "PNG", Extension: "png", Header: []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, MaxSize: 50 << 20, DefaultSize: 1 << 20, Category: CategoryImage},
	{Name: "GIF87a", Extension: "gif", Header: []byte("GIF87a"), Footer: []byte{0x00, 0x3B}, MaxSize: 20 << 20, DefaultSize: 1 << 20, Category: CategoryImage},
	{Name: "GIF89a", Extension: "gif", Header: []byte("GIF89a"), Footer: []byte{0x00, 0x3B}, MaxSize: 20 << 20, DefaultSize: 1 << 20, Category: CategoryImage},
	{Name: "BMP", Extension: "bmp", Header: []byte{0x42, 0x4D}, MaxSize: 50 << 20, DefaultSize: 1 << 20, Category: CategoryImage},
	{Name: "TIFF-LE", Extension: "tiff", Header: []byte{0x49, 0x49, 0x2A, 0x00}, MaxSize: 100 << 20, DefaultSize: 2 << 20, Category: CategoryImage},
	{Name: "TIFF-BE", Extension: "tiff", Header: []byte{0x4D, 0x4D, 0x00, 0x2A}, MaxSize: 100 << 20, DefaultSize: 2 << 20, Category: CategoryImage},

	{Name: "MP3-Frame", Extension: "mp3", Header: []byte{0xFF, 0xFB}, MaxSize: 100 << 20, DefaultSize: 4 << 20, Category: CategoryAudio},
	{Name: "MP3-ID3", Extension: "mp3", Header: []byte("ID3"), MaxSize: 100 << 20, DefaultSize: 4 << 20, Category: CategoryAudio},
	{Name: "WAV", Extension: "wav", Header: []byte("RIFF"), MaxSize: 500 << 20, DefaultSize: 10 << 20, Category: CategoryAudio},
	{Name: "FLAC", Extension: "flac", Header: []byte("fLaC"), MaxSize: 500 << 20, DefaultSize: 20 << 20, Category: CategoryAudio},
	{Name: "OGG", Extension: "ogg", Header: []byte("OggS"), MaxSize: 200 << 20, DefaultSize: 8 << 20, Category: CategoryAudio},
	{Name: "WMA", Extension: "wma", Header: []byte{0x30, 0x26, 0xB2, 0x75, 0x8E, 0x66, 0xCF, 0x11}, MaxSize: 200 << 20, DefaultSize: 8 << 20, Category: CategoryAudio},

	{Name: "PDF", Extension: "pdf", Header: []byte("%PDF-"), Footer: []byte("%%EOF"), MaxSize: 500 << 20, DefaultSize: 2 << 20, Category: CategoryDocument},
	{Name: "ZIP", Extension: "zip", Header: []byte{0x50, 0x4B, 0x03, 0x04}, MaxSize: 1 << 30, DefaultSize: 10 << 20, Category: CategoryArchive},
	{Name: "RAR", Extension: "rar", Header: []byte{0x52, 0x61, 0x72, 0x21, 0x1A, 0x07}, MaxSize: 1 << 30, DefaultSize: 10 << 20, Category: CategoryArchive},
	{Name: "7Z", Extension: "7z", Header: []byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C}, MaxSize: 1 << 30, DefaultSize: 10 << 20, Category: CategoryArchive},
	{Name: "GZIP", Extension: "gz", Header: []byte{0x1F, 0x8B, 0x08}, MaxSize: 1 << 30, DefaultSize: 10 << 20, Category: CategoryArchive},

	{Name: "EXE", Extension: "exe", Header: []byte{0x4D, 0x5A}, MaxSize: 500 << 20, DefaultSize: 4 << 20, Category: CategoryExecutable},
	{Name: "ELF", Extension: "elf", Header: []byte{0x7F, 0x45, 0x4C, 0x46}, MaxSize: 500 << 20, DefaultSize: 4 << 20, Category: CategoryExecutable},

	{Name: "SQLite", Extension: "sqlite", Header: []byte("SQLite format 3\x00"), MaxSize: 1 << 30, DefaultSize: 10 << 20, Category: CategoryDatabase},
}

// DefaultFallbackSize is used when neither a footer nor a format-specific
// estimator nor a catalogue entry's DefaultSize applies.
const DefaultFallbackSize = 1 << 20

// MinPlausibleSize is the floor below which a carved candidate is dropped.
const MinPlausibleSize = 1024
