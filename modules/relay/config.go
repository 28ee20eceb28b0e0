package relay

import (
	"time"

	"github.com/example/book-upload-relay/domain/book"
	"github.com/example/book-upload-relay/modules/deployapi"
)

const (
	// MiB is one mebibyte.
	MiB = 1024 * 1024

	DefaultMaxRequestBytes   = 150 * MiB
	DefaultMaxCoverBytes     = 10 * MiB
	DefaultMaxPDFBytes       = 100 * MiB
	DefaultUploadConcurrency = 4
	DefaultSoftDeadline      = 25 * time.Second
)

// Config is everything the relay needs for one invocation. It is passed in explicitly
// so the relay can run in isolation.
type Config struct {
	CoverTypes []string
	PDFTypes   []string

	// MaxRequestBytes caps the total bytes read from the multipart body.
	MaxRequestBytes int64
	// MaxPartBytes caps individual parts by kind. Zero means only the request cap applies.
	MaxPartBytes map[book.Kind]int64

	// UploadConcurrency bounds the number of simultaneous phase two uploads.
	UploadConcurrency int
	// SoftDeadline only triggers a warning when a relay runs longer.
	SoftDeadline time.Duration

	Deploy deployapi.Config
}

// DefaultConfig returns the production limits without deploy credentials.
func DefaultConfig() Config {
	return Config{
		CoverTypes:      []string{"image/jpeg", "image/png", "image/jpg"},
		PDFTypes:        []string{"application/pdf"},
		MaxRequestBytes: DefaultMaxRequestBytes,
		MaxPartBytes: map[book.Kind]int64{
			book.KindCover: DefaultMaxCoverBytes,
			book.KindPDF:   DefaultMaxPDFBytes,
		},
		UploadConcurrency: DefaultUploadConcurrency,
		SoftDeadline:      DefaultSoftDeadline,
		Deploy: deployapi.Config{
			BaseURL: deployapi.DefaultBaseURL,
			Timeout: 2 * time.Minute,
		},
	}
}

// CheckConfig reports ErrNotConfigured when deploy credentials are absent.
func (c Config) CheckConfig() error {
	if c.Deploy.Token == "" || c.Deploy.SiteID == "" {
		return ErrNotConfigured
	}
	return nil
}

// KindOf classifies a MIME type into its logical bucket.
func (c Config) KindOf(contentType string) (book.Kind, bool) {
	for _, t := range c.CoverTypes {
		if t == contentType {
			return book.KindCover, true
		}
	}
	for _, t := range c.PDFTypes {
		if t == contentType {
			return book.KindPDF, true
		}
	}
	return "", false
}

func (c Config) partLimit(kind book.Kind) int64 {
	limit := c.MaxPartBytes[kind]
	if limit <= 0 || (c.MaxRequestBytes > 0 && limit > c.MaxRequestBytes) {
		return c.MaxRequestBytes
	}
	return limit
}
