package relay

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"testing"

	"github.com/go-monolith/mono/pkg/types"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any)         {}
func (m *mockLogger) Info(_ string, _ ...any)          {}
func (m *mockLogger) Warn(_ string, _ ...any)          {}
func (m *mockLogger) Error(_ string, _ ...any)         {}
func (m *mockLogger) With(_ ...any) types.Logger       { return m }
func (m *mockLogger) WithModule(_ string) types.Logger { return m }
func (m *mockLogger) WithError(_ error) types.Logger   { return m }

type testPart struct {
	field       string
	filename    string
	contentType string
	data        []byte
}

// buildMultipart encodes parts the way a browser FormData submission does.
func buildMultipart(t *testing.T, parts ...testPart) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		if p.filename != "" {
			h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, p.field, p.filename))
		} else {
			h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q`, p.field))
		}
		if p.contentType != "" {
			h.Set("Content-Type", p.contentType)
		}
		pw, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("CreatePart: %v", err)
		}
		if _, err := pw.Write(p.data); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, w.FormDataContentType()
}

func coverPart(size int) testPart {
	return testPart{field: "cover", filename: "cover image.jpg", contentType: "image/jpeg", data: bytes.Repeat([]byte{0xff}, size)}
}

func pdfPart(size int) testPart {
	return testPart{field: "pdf", filename: "My Book (1st ed).pdf", contentType: "application/pdf", data: bytes.Repeat([]byte("%"), size)}
}
