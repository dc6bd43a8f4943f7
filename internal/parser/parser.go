package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/bddgen/internal/bdd"
	"github.com/dgallion1/bddgen/internal/doctree"
)

// Parser converts raw document bytes into a DocTree.
type Parser interface {
	Parse(r io.Reader, filename string) (*doctree.DocTree, error)
}

// Options tune format-specific behavior.
type Options struct {
	// FallbackPdftotext shells out to pdftotext when the Go PDF reader fails.
	FallbackPdftotext bool
	// StrictText rejects .txt input that is not valid UTF-8 instead of
	// decoding it as Latin-1.
	StrictText bool
}

// ForFormat returns the appropriate parser for a document format.
func ForFormat(format bdd.DocumentFormat, opts Options) (Parser, error) {
	switch format {
	case bdd.FormatTXT:
		return &TextParser{Strict: opts.StrictText}, nil
	case bdd.FormatPDF:
		return &PDFParser{FallbackPdftotext: opts.FallbackPdftotext}, nil
	case bdd.FormatDOCX:
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", bdd.ErrUnsupportedFormat, format)
	}
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	return ForFormat(bdd.FormatFromFilename(filename), opts)
}

// ExtractText parses a document and flattens it to plain text.
func ExtractText(doc bdd.Document, opts Options) (string, error) {
	if err := doc.Check(); err != nil {
		return "", err
	}
	p, err := ForFormat(doc.Format(), opts)
	if err != nil {
		return "", err
	}
	tree, err := p.Parse(bytes.NewReader(doc.Content()), doc.Filename())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(tree.PlainText()), nil
}
