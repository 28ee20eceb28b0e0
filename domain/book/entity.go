package book

import (
	"time"
)

// Kind is the logical bucket an uploaded file belongs to.
type Kind string

const (
	KindCover Kind = "cover"
	KindPDF   Kind = "pdf"
)

// Destination directories on the hosting provider, keyed by kind.
const (
	CoversDir = "covers"
	BooksDir  = "books"
)

// Dir returns the destination directory for files of this kind.
func (k Kind) Dir() string {
	if k == KindCover {
		return CoversDir
	}
	return BooksDir
}

// UploadedPart is a single file part received in a multipart body.
// It lives only for the duration of one request.
type UploadedPart struct {
	Field       string `json:"field"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Kind        Kind   `json:"kind"`
	Data        []byte `json:"-"`
}

// Size returns the buffered length of the part.
func (p *UploadedPart) Size() int64 {
	return int64(len(p.Data))
}

// PublishManifest maps a destination path to the SHA-1 hex digest of its content.
type PublishManifest map[string]string

// PublicResult is what the relay hands back to the caller after a deploy.
type PublicResult struct {
	Cover    string `json:"cover"`
	PDF      string `json:"pdf"`
	DeployID string `json:"deploy"`
}

// Record is the generated book entry that embeds the published URLs.
type Record struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Category    string    `json:"category"`
	Summary     string    `json:"summary"`
	Cover       string    `json:"cover"`
	DownloadURL string    `json:"downloadUrl"`
	DeployID    string    `json:"deploy,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
