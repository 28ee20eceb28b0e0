package relay

import (
	"crypto/sha1" //nolint:gosec // the deploy API identifies files by SHA-1
	"encoding/hex"
	"fmt"

	"github.com/example/book-upload-relay/domain/book"
)

// Digest returns the lowercase SHA-1 hex digest of data.
func Digest(data []byte) string {
	sum := sha1.Sum(data) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// BuildManifest assigns a destination path to every part and digests its content.
// The returned files map shares keys with the manifest.
func BuildManifest(parts []*book.UploadedPart, namer *Namer) (book.PublishManifest, map[string]*book.UploadedPart, error) {
	manifest := make(book.PublishManifest, len(parts))
	files := make(map[string]*book.UploadedPart, len(parts))

	for _, part := range parts {
		path := namer.Path(part.Kind, part.Filename)
		if _, dup := files[path]; dup {
			return nil, nil, fmt.Errorf("duplicate destination path %s", path)
		}
		manifest[path] = Digest(part.Data)
		files[path] = part
	}

	return manifest, files, nil
}
