package integrity

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func validPDF() []byte {
	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	b.WriteString("1 0 obj\n<< >>\nendobj\n")
	b.WriteString("2 0 obj\n<< >>\nendobj\n")
	xrefOffset := b.Len()
	b.WriteString("xref\n0 3\n")
	b.WriteString("trailer\n<< >>\n")
	b.WriteString("startxref\n")
	b.WriteString(itoa(xrefOffset))
	b.WriteString("\n%%EOF")
	return b.Bytes()
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

// An all-zero buffer must be rejected regardless of extension.
func TestValidate_ZeroDataRejectedAcrossExtensions(t *testing.T) {
	exts := []string{"pdf", "zip", "docx", "png", "jpg", "mp4", "txt", "exe", "unknownext"}
	zeros := make([]byte, 8192)
	for _, ext := range exts {
		accept, reason := Validate(zeros, ext)
		require.False(t, accept, "ext %s should reject all-zero data", ext)
		require.NotEmpty(t, reason)
	}
}

func TestValidate_TooSmallRejected(t *testing.T) {
	accept, reason := Validate(make([]byte, 4), "txt")
	require.False(t, accept)
	require.Contains(t, reason, "too small")
}

func TestValidate_PDFAccepted(t *testing.T) {
	accept, reason := Validate(validPDF(), "pdf")
	require.True(t, accept, reason)
}

// A PDF reassembled from the wrong clusters is missing %%EOF/startxref
// and must be rejected.
func TestValidate_PDFRejectsWrongClusters(t *testing.T) {
	garbage := []byte("%PDF-1.4\n")
	garbage = append(garbage, bytes.Repeat([]byte{0x41}, 4096)...)
	accept, reason := Validate(garbage, "pdf")
	require.False(t, accept)
	require.Contains(t, reason, "%%EOF")
}

func TestValidate_PDFRejectsMissingHeader(t *testing.T) {
	accept, reason := Validate(append([]byte("NOTPDF--"), bytes.Repeat([]byte{0x42}, 100)...), "pdf")
	require.False(t, accept)
	require.Contains(t, reason, "%PDF-")
}

func TestValidate_PDFRejectsBadStartxrefTarget(t *testing.T) {
	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	b.WriteString("1 0 obj\n<< >>\nendobj\n")
	b.WriteString("2 0 obj\n<< >>\nendobj\n")
	b.WriteString("NOT_AN_XREF_TABLE\n")
	b.WriteString("startxref\n0\n%%EOF")

	accept, reason := Validate(b.Bytes(), "pdf")
	require.False(t, accept)
	require.Contains(t, reason, "xref/obj/XRef")
}

func TestValidate_PDFRejectsFewObjectMarkers(t *testing.T) {
	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	xrefOffset := b.Len()
	b.WriteString("xref\n0 0\n")
	b.WriteString("startxref\n")
	b.WriteString(itoa(xrefOffset))
	b.WriteString("\n%%EOF")

	accept, reason := Validate(b.Bytes(), "pdf")
	require.False(t, accept)
	require.Contains(t, reason, "object markers")
}

func TestValidate_ZIPFamily(t *testing.T) {
	valid := append([]byte("PK\x03\x04"), bytes.Repeat([]byte{0x41}, 200)...)
	valid = append(valid, []byte("PK\x05\x06")...)
	valid = append(valid, bytes.Repeat([]byte{0}, 18)...)

	accept, reason := Validate(valid, "docx")
	require.True(t, accept, reason)

	noEOCD := append([]byte("PK\x03\x04"), bytes.Repeat([]byte{0x41}, 400)...)
	accept, reason = Validate(noEOCD, "zip")
	require.False(t, accept)
	require.Contains(t, reason, "end-of-central-directory")

	noLocalHeader := bytes.Repeat([]byte{0x41}, 400)
	accept, _ = Validate(noLocalHeader, "jar")
	require.False(t, accept)
}

func TestValidate_PNGRequiresIEND(t *testing.T) {
	withIEND := append(bytes.Repeat([]byte{0x41}, 200), []byte("IEND")...)
	withIEND = append(withIEND, bytes.Repeat([]byte{0}, 8)...)
	accept, reason := Validate(withIEND, "png")
	require.True(t, accept, reason)

	withoutIEND := bytes.Repeat([]byte{0x41}, 200)
	accept, reason = Validate(withoutIEND, "PNG")
	require.False(t, accept)
	require.Contains(t, reason, "IEND")
}

func TestValidate_JPEGRequiresStartAndEndMarkers(t *testing.T) {
	valid := append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, bytes.Repeat([]byte{0x41}, 100)...)
	valid = append(valid, 0xFF, 0xD9)
	accept, reason := Validate(valid, "jpg")
	require.True(t, accept, reason)

	noFooter := append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, bytes.Repeat([]byte{0x41}, 100)...)
	accept, reason = Validate(noFooter, "jpeg")
	require.False(t, accept)
	require.Contains(t, reason, "FF D9")

	noHeader := append([]byte{0x00, 0x00, 0x00}, bytes.Repeat([]byte{0x41}, 100)...)
	accept, _ = Validate(noHeader, "jpg")
	require.False(t, accept)
}

func TestValidate_CompressedContainerPassesThroughWithoutStructuralCheck(t *testing.T) {
	// Non-zero, non-empty data of an opaque container extension is accepted
	// without any structural inspection: acceptance already rested on size
	// parsing upstream.
	data := bytes.Repeat([]byte{0x01, 0x02, 0x03, 0x04}, 100)
	for _, ext := range []string{"mp4", "mkv", "mp3", "heic"} {
		accept, reason := Validate(data, ext)
		require.True(t, accept, "%s: %s", ext, reason)
	}
}

func TestValidate_TextLikeChecksPrintableRatio(t *testing.T) {
	mostlyText := []byte(strings.Repeat("the quick brown fox jumps over the lazy dog\n", 10))
	accept, reason := Validate(mostlyText, "txt")
	require.True(t, accept, reason)

	binaryJunk := bytes.Repeat([]byte{0x01, 0x02, 0x03, 0x04, 0x05}, 100)
	accept, reason = Validate(binaryJunk, "json")
	require.False(t, accept)
	require.Contains(t, reason, "printable")
}

func TestValidate_UnknownExtensionPassesThrough(t *testing.T) {
	data := bytes.Repeat([]byte{0xAB, 0xCD}, 100)
	accept, _ := Validate(data, "xyz123")
	require.True(t, accept)
}
