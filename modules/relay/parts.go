package relay

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/example/book-upload-relay/domain/book"
)

const defaultContentType = "application/octet-stream"

// contentTypeByExt maps file extensions to MIME types for parts sent without a Content-Type.
var contentTypeByExt = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".pdf":  "application/pdf",
}

// detectContentType determines the content type based on file extension.
func detectContentType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if contentType, ok := contentTypeByExt[ext]; ok {
		return contentType
	}
	return defaultContentType
}

// partContentType returns the bare media type declared for a part. The filename extension
// is consulted only when the part declares no type at all.
func partContentType(header string, filename string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return detectContentType(filename)
	}
	if mediaType, _, err := mime.ParseMediaType(header); err == nil {
		return strings.ToLower(mediaType)
	}
	return strings.ToLower(header)
}

// capReader hands out at most max bytes and fails once the body holds more.
type capReader struct {
	r        io.Reader
	max      int64
	read     int64
	exceeded bool
}

var errCapExceeded = errors.New("request body exceeds limit")

func (c *capReader) Read(p []byte) (int, error) {
	if c.exceeded {
		return 0, errCapExceeded
	}
	if c.max <= 0 {
		return c.r.Read(p)
	}
	// One byte past the remaining allowance tells a full body from an oversized one.
	if remaining := c.max - c.read + 1; int64(len(p)) > remaining {
		p = p[:remaining]
	}
	n, err := c.r.Read(p)
	c.read += int64(n)
	if c.read > c.max {
		c.exceeded = true
		return n - int(c.read-c.max), errCapExceeded
	}
	return n, err
}

// ParseParts streams a multipart body and buffers every accepted file part.
//
// Parts whose type is not allowed are drained and skipped; the first such rejection is
// returned once the whole body has been read. Exceeding the request ceiling or a part's
// kind ceiling aborts immediately with ErrTooLarge. A later part with the same field name
// replaces an earlier one; two fields carrying the same kind are rejected.
func ParseParts(body io.Reader, contentType string, cfg Config) ([]*book.UploadedPart, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		return nil, fmt.Errorf("%w: content type %q", ErrMalformedRequest, contentType)
	}
	boundary := params["boundary"]
	if boundary == "" {
		return nil, fmt.Errorf("%w: missing boundary", ErrMalformedRequest)
	}

	cr := &capReader{r: body, max: cfg.MaxRequestBytes}
	mr := multipart.NewReader(cr, boundary)

	tooLarge := func() error {
		return fmt.Errorf("%w: request larger than %d bytes", ErrTooLarge, cfg.MaxRequestBytes)
	}

	// readErr classifies a failure that happened while pulling bytes off the body.
	readErr := func(err error) error {
		if cr.exceeded {
			return tooLarge()
		}
		return fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}

	var (
		order    []string
		byField  = make(map[string]*book.UploadedPart)
		deferred error
	)

	for {
		part, err := mr.NextPart()
		// A clean end of body is a bare io.EOF; a truncated one comes back wrapped.
		if err == io.EOF { //nolint:errorlint
			break
		}
		if err != nil {
			return nil, readErr(err)
		}

		filename := part.FileName()
		if filename == "" {
			// Plain form fields carry nothing the relay publishes.
			if _, err := io.Copy(io.Discard, part); err != nil {
				return nil, readErr(err)
			}
			continue
		}

		ct := partContentType(part.Header.Get("Content-Type"), filename)
		kind, ok := cfg.KindOf(ct)
		if !ok {
			if deferred == nil {
				deferred = fmt.Errorf("%w: %s (%s)", ErrUnsupportedType, ct, filename)
			}
			if _, err := io.Copy(io.Discard, part); err != nil {
				return nil, readErr(err)
			}
			continue
		}

		data, err := readPart(part, cfg.partLimit(kind))
		if err != nil {
			if errors.Is(err, ErrTooLarge) {
				return nil, fmt.Errorf("%w: %s", err, filename)
			}
			return nil, readErr(err)
		}

		field := part.FormName()
		if _, seen := byField[field]; !seen {
			order = append(order, field)
		}
		byField[field] = &book.UploadedPart{
			Field:       field,
			Filename:    filename,
			ContentType: ct,
			Kind:        kind,
			Data:        data,
		}
	}

	// The closing boundary can already sit in buffered bytes when the cap trips.
	if cr.exceeded {
		return nil, tooLarge()
	}
	if deferred != nil {
		return nil, deferred
	}

	parts := make([]*book.UploadedPart, 0, len(order))
	fieldByKind := make(map[book.Kind]string, len(order))
	for _, field := range order {
		part := byField[field]
		if other, dup := fieldByKind[part.Kind]; dup {
			return nil, fmt.Errorf("%w: fields %q and %q both carry a %s file", ErrMalformedRequest, other, field, part.Kind)
		}
		fieldByKind[part.Kind] = field
		parts = append(parts, part)
	}
	return parts, nil
}

func readPart(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: part larger than %d bytes", ErrTooLarge, limit)
	}
	return data, nil
}
