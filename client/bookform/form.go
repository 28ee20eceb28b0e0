// Package bookform validates a book submission and sends its files to the upload relay.
package bookform

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const mib = 1 << 20

// Form is one book submission.
type Form struct {
	Title    string
	Author   string
	Category string
	Summary  string
	Cover    *File
	PDF      *File
}

// File is a file chosen for upload. Reader is consumed by a single Submit.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// Close closes Reader when it is closable.
func (f *File) Close() error {
	if c, ok := f.Reader.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// OpenFile opens path and sniffs its content type from the leading bytes.
func OpenFile(path string) (*File, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to detect type of %s: %w", path, err)
	}

	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	info, err := fh.Stat()
	if err != nil {
		fh.Close()
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	contentType, _, _ := strings.Cut(mtype.String(), ";")
	return &File{
		Name:        filepath.Base(path),
		ContentType: strings.TrimSpace(contentType),
		Size:        info.Size(),
		Reader:      fh,
	}, nil
}

// Limits bounds what Validate accepts.
type Limits struct {
	CoverTypes    []string
	PDFTypes      []string
	MaxCoverBytes int64
	MaxPDFBytes   int64
}

// DefaultLimits mirrors the relay's defaults.
func DefaultLimits() Limits {
	return Limits{
		CoverTypes:    []string{"image/jpeg", "image/png", "image/jpg"},
		PDFTypes:      []string{"application/pdf"},
		MaxCoverBytes: 10 * mib,
		MaxPDFBytes:   100 * mib,
	}
}

// Validate checks f against limits and stops at the first violation.
// Text fields are checked first, then file presence, then types, then sizes.
func Validate(f Form, limits Limits) error {
	for _, field := range []struct{ name, value string }{
		{"title", f.Title},
		{"author", f.Author},
		{"category", f.Category},
		{"summary", f.Summary},
	} {
		if strings.TrimSpace(field.value) == "" {
			return &ValidationError{Field: field.name, Err: ErrMissingField}
		}
	}

	if f.Cover == nil {
		return &ValidationError{Field: "cover", Err: ErrMissingFile}
	}
	if f.PDF == nil {
		return &ValidationError{Field: "pdf", Err: ErrMissingFile}
	}

	if !slices.Contains(limits.CoverTypes, f.Cover.ContentType) {
		return &ValidationError{
			Field: "cover",
			Err:   fmt.Errorf("%w: cover must be JPG or PNG, got %q", ErrUnsupportedType, f.Cover.ContentType),
		}
	}
	if !slices.Contains(limits.PDFTypes, f.PDF.ContentType) {
		return &ValidationError{
			Field: "pdf",
			Err:   fmt.Errorf("%w: book must be a PDF, got %q", ErrUnsupportedType, f.PDF.ContentType),
		}
	}

	if f.Cover.Size > limits.MaxCoverBytes {
		return &ValidationError{
			Field: "cover",
			Err:   fmt.Errorf("%w: cover must not exceed %d MB", ErrFileTooLarge, limits.MaxCoverBytes/mib),
		}
	}
	if f.PDF.Size > limits.MaxPDFBytes {
		return &ValidationError{
			Field: "pdf",
			Err:   fmt.Errorf("%w: book must not exceed %d MB", ErrFileTooLarge, limits.MaxPDFBytes/mib),
		}
	}
	return nil
}
