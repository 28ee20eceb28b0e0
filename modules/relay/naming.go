package relay

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/example/book-upload-relay/domain/book"
	nanoid "github.com/jaevor/go-nanoid"
)

const (
	tokenAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	tokenLength   = 10
)

// sanitizeFilename strips directory components and replaces every character outside
// [A-Za-z0-9._-] with an underscore.
func sanitizeFilename(filename string) string {
	clean := filepath.Base(filepath.Clean(strings.ReplaceAll(filename, "\\", "/")))
	if clean == "." || clean == ".." || clean == "/" || clean == "" {
		return "unnamed"
	}

	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range clean {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// Namer derives collision-resistant destination paths.
type Namer struct {
	token func() string
	now   func() time.Time
}

// NewNamer creates a Namer backed by a nanoid generator.
func NewNamer() (*Namer, error) {
	gen, err := nanoid.CustomASCII(tokenAlphabet, tokenLength)
	if err != nil {
		return nil, fmt.Errorf("failed to create name generator: %w", err)
	}
	return &Namer{token: gen, now: time.Now}, nil
}

// Path returns "<dir>/<unix millis>-<token>-<sanitized name>" for a part.
func (n *Namer) Path(kind book.Kind, filename string) string {
	return fmt.Sprintf("%s/%d-%s-%s", kind.Dir(), n.now().UnixMilli(), n.token(), sanitizeFilename(filename))
}
