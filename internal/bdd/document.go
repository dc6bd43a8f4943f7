package bdd

import (
	"crypto/sha256"
	"fmt"
	"path/filepath"
	"strings"
)

// DocumentFormat is derived from a document's filename extension.
type DocumentFormat string

const (
	FormatPDF     DocumentFormat = "pdf"
	FormatDOCX    DocumentFormat = "docx"
	FormatTXT     DocumentFormat = "txt"
	FormatUnknown DocumentFormat = "unknown"
)

// Supported reports whether the format can be analyzed and converted.
func (f DocumentFormat) Supported() bool {
	switch f {
	case FormatPDF, FormatDOCX, FormatTXT:
		return true
	}
	return false
}

// FormatFromFilename maps a filename's extension to a DocumentFormat.
func FormatFromFilename(filename string) DocumentFormat {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDOCX
	case ".txt":
		return FormatTXT
	}
	return FormatUnknown
}

// FormatFromContentType maps a MIME type to a DocumentFormat.
func FormatFromContentType(contentType string) DocumentFormat {
	mt := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	switch mt {
	case "application/pdf":
		return FormatPDF
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return FormatDOCX
	case "text/plain":
		return FormatTXT
	}
	return FormatUnknown
}

// Document is an uploaded requirements artifact. It is immutable once
// captured.
type Document struct {
	filename string
	content  []byte
	format   DocumentFormat
}

// NewDocument captures a copy of content. The format is derived from the
// filename extension.
func NewDocument(filename string, content []byte) Document {
	data := make([]byte, len(content))
	copy(data, content)
	return Document{
		filename: filepath.Base(filename),
		content:  data,
		format:   FormatFromFilename(filename),
	}
}

func (d Document) Filename() string       { return d.filename }
func (d Document) Format() DocumentFormat { return d.format }
func (d Document) Size() int              { return len(d.content) }

// Content returns the raw bytes. Callers must not modify them.
func (d Document) Content() []byte { return d.content }

// IsZero reports whether no document was captured.
func (d Document) IsZero() bool { return d.filename == "" && d.content == nil }

// Check returns the validation error that stops the document from being
// sent to the conversion service, or nil.
func (d Document) Check() error {
	if !d.format.Supported() {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, d.filename)
	}
	if len(d.content) == 0 {
		return fmt.Errorf("%w: %q", ErrEmptyDocument, d.filename)
	}
	return nil
}

// Hash returns the hex SHA-256 of the document content.
func (d Document) Hash() string {
	return ContentHashHex(d.content)
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
