package relay

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/example/book-upload-relay/domain/book"
)

func fixedNamer(tokens ...string) *Namer {
	i := 0
	return &Namer{
		token: func() string {
			tok := tokens[i%len(tokens)]
			i++
			return tok
		},
		now: func() time.Time { return time.UnixMilli(1700000000000) },
	}
}

func TestDigest(t *testing.T) {
	tests := []struct {
		input []byte
		want  string
	}{
		{[]byte(""), "da39a3ee5e6b4b0d3255bfef95601890afd80709"},
		{[]byte("abc"), "a9993e364706816aba3e25717850c26c9cd0d89d"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.input), func(t *testing.T) {
			if got := Digest(tt.input); got != tt.want {
				t.Errorf("Digest(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestDigest_Stable(t *testing.T) {
	cover := bytes.Repeat([]byte{0xd8, 0xff}, 2*MiB/2)
	pdf := bytes.Repeat([]byte("%PDF"), 5*MiB/4)

	firstCover, firstPDF := Digest(cover), Digest(pdf)
	for i := 0; i < 3; i++ {
		if got := Digest(cover); got != firstCover {
			t.Fatalf("cover digest changed between runs: %s vs %s", got, firstCover)
		}
		if got := Digest(pdf); got != firstPDF {
			t.Fatalf("pdf digest changed between runs: %s vs %s", got, firstPDF)
		}
	}
	if firstCover == firstPDF {
		t.Error("different buffers produced the same digest")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"cover.jpg", "cover.jpg"},
		{"my cover image.png", "my_cover_image.png"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\book.pdf`, "book.pdf"},
		{"كتاب.pdf", "____.pdf"},
		{"a&b=c?.pdf", "a_b_c_.pdf"},
		{"", "unnamed"},
		{"..", "unnamed"},
		{"/", "unnamed"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := sanitizeFilename(tt.input); got != tt.want {
				t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNamer_Path(t *testing.T) {
	namer := fixedNamer("abc123")

	if got := namer.Path(book.KindCover, "front cover.png"); got != "covers/1700000000000-abc123-front_cover.png" {
		t.Errorf("cover path = %q", got)
	}
	if got := namer.Path(book.KindPDF, "book.pdf"); got != "books/1700000000000-abc123-book.pdf" {
		t.Errorf("pdf path = %q", got)
	}
}

func TestNewNamer_UniquePaths(t *testing.T) {
	namer, err := NewNamer()
	if err != nil {
		t.Fatalf("NewNamer() error = %v", err)
	}

	pattern := regexp.MustCompile(`^books/\d+-[0-9a-z]{10}-same\.pdf$`)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		path := namer.Path(book.KindPDF, "same.pdf")
		if !pattern.MatchString(path) {
			t.Fatalf("path %q does not match %s", path, pattern)
		}
		if seen[path] {
			t.Fatalf("duplicate path %q", path)
		}
		seen[path] = true
	}
}

func TestBuildManifest(t *testing.T) {
	parts := []*book.UploadedPart{
		{Field: "cover", Filename: "c.png", Kind: book.KindCover, Data: []byte("cover")},
		{Field: "pdf", Filename: "b.pdf", Kind: book.KindPDF, Data: []byte("book")},
	}

	manifest, files, err := BuildManifest(parts, fixedNamer("t1", "t2"))
	if err != nil {
		t.Fatalf("BuildManifest() error = %v", err)
	}

	want := book.PublishManifest{
		"covers/1700000000000-t1-c.png": Digest([]byte("cover")),
		"books/1700000000000-t2-b.pdf":  Digest([]byte("book")),
	}
	if len(manifest) != len(want) {
		t.Fatalf("manifest = %v, want %v", manifest, want)
	}
	for path, sum := range want {
		if manifest[path] != sum {
			t.Errorf("manifest[%s] = %q, want %q", path, manifest[path], sum)
		}
		if files[path] == nil {
			t.Errorf("files[%s] missing", path)
		}
	}
}

func TestBuildManifest_DuplicatePath(t *testing.T) {
	parts := []*book.UploadedPart{
		{Filename: "b.pdf", Kind: book.KindPDF, Data: []byte("1")},
		{Filename: "b.pdf", Kind: book.KindPDF, Data: []byte("2")},
	}

	_, _, err := BuildManifest(parts, fixedNamer("same"))
	if err == nil || !strings.Contains(err.Error(), "duplicate destination path") {
		t.Errorf("BuildManifest() error = %v, want duplicate destination path", err)
	}
}
