package bookform

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/example/book-upload-relay/domain/book"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingReader fails the test if a submission tries to read it.
type failingReader struct{ t *testing.T }

func (r failingReader) Read([]byte) (int, error) {
	r.t.Error("file was read")
	return 0, io.EOF
}

func relayServer(t *testing.T, status int, body string) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestSubmit_Success(t *testing.T) {
	var gotParts map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		mr, err := r.MultipartReader()
		require.NoError(t, err)
		gotParts = map[string]string{}
		for {
			p, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
			data, _ := io.ReadAll(p)
			gotParts[p.FormName()] = p.FileName() + "|" + p.Header.Get("Content-Type") + "|" + string(data)
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"cover":   "https://site.example/covers/1-a-cover.png",
			"pdf":     "https://site.example/books/1-b-book.pdf",
			"deploy":  "dep-1",
		})
	}))
	defer srv.Close()

	var stages []Stage
	var percents []int
	s := NewSubmitter(srv.URL, WithHTTPClient(srv.Client()), WithProgress(func(p Progress) {
		stages = append(stages, p.Stage)
		percents = append(percents, p.Percent)
	}))

	form := validForm()
	form.Title = "  Clean Code  "
	rec, err := s.Submit(context.Background(), form)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"cover": "cover.png|image/png|png",
		"pdf":   "book.pdf|application/pdf|%PDF",
	}, gotParts)

	assert.True(t, strings.HasPrefix(rec.ID, "book-"))
	assert.Equal(t, "Clean Code", rec.Title)
	assert.Equal(t, "https://site.example/covers/1-a-cover.png", rec.Cover)
	assert.Equal(t, "https://site.example/books/1-b-book.pdf", rec.DownloadURL)
	assert.Equal(t, "dep-1", rec.DeployID)

	assert.Equal(t, []Stage{StageValidating, StageUploading, StageProcessing, StageDone}, stages)
	assert.Equal(t, []int{0, 25, 75, 100}, percents)
}

func TestSubmit_UniqueRecordIDs(t *testing.T) {
	srv, _ := relayServer(t, http.StatusOK, `{"success":true,"cover":"https://x/c.png","pdf":"https://x/b.pdf"}`)
	s := NewSubmitter(srv.URL, WithHTTPClient(srv.Client()))

	first, err := s.Submit(context.Background(), validForm())
	require.NoError(t, err)
	second, err := s.Submit(context.Background(), validForm())
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
}

func TestSubmit_OversizedPDFSendsNothing(t *testing.T) {
	srv, hits := relayServer(t, http.StatusOK, `{}`)

	var last Progress
	s := NewSubmitter(srv.URL, WithHTTPClient(srv.Client()), WithProgress(func(p Progress) { last = p }))

	form := validForm()
	form.PDF = &File{Name: "huge.pdf", ContentType: "application/pdf", Size: 120 * mib, Reader: failingReader{t}}

	rec, err := s.Submit(context.Background(), form)
	require.ErrorIs(t, err, ErrFileTooLarge)
	assert.Nil(t, rec)
	assert.Zero(t, atomic.LoadInt32(hits))
	assert.Equal(t, StageFailed, last.Stage)
	assert.ErrorIs(t, last.Err, ErrFileTooLarge)
}

func TestSubmit_ResponseFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"success flag false", http.StatusOK, `{"success":false,"cover":"https://x/c","pdf":"https://x/p"}`, ErrProtocol},
		{"success flag missing", http.StatusOK, `{"cover":"https://x/c","pdf":"https://x/p"}`, ErrProtocol},
		{"pdf url missing", http.StatusOK, `{"success":true,"cover":"https://x/c"}`, ErrProtocol},
		{"cover url empty", http.StatusOK, `{"success":true,"cover":"","pdf":"https://x/p"}`, ErrProtocol},
		{"not json", http.StatusOK, `<html>ok</html>`, ErrProtocol},
		{"bad request", http.StatusBadRequest, `{"error":"unsupported file type"}`, ErrServer},
		{"server error", http.StatusInternalServerError, `{"error":"Failed to create deploy"}`, ErrServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, hits := relayServer(t, tt.status, tt.body)
			s := NewSubmitter(srv.URL, WithHTTPClient(srv.Client()))

			rec, err := s.Submit(context.Background(), validForm())
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, rec)
			assert.Equal(t, int32(1), atomic.LoadInt32(hits), "no retry")
		})
	}
}

func TestSubmit_ServerErrorCarriesBody(t *testing.T) {
	srv, _ := relayServer(t, http.StatusInternalServerError, `{"error":"server not configured"}`)
	s := NewSubmitter(srv.URL, WithHTTPClient(srv.Client()))

	_, err := s.Submit(context.Background(), validForm())

	var serverErr *ServerError
	require.True(t, errors.As(err, &serverErr))
	assert.Equal(t, http.StatusInternalServerError, serverErr.Status)
	assert.Contains(t, serverErr.Body, "server not configured")
}

func TestSubmit_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	s := NewSubmitter(url)
	_, err := s.Submit(context.Background(), validForm())
	assert.ErrorIs(t, err, ErrConnectivity)
}

func TestRegistrar_Register(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/books", r.URL.Path)
		var rec book.Record
		require.NoError(t, json.NewDecoder(r.Body).Decode(&rec))
		rec.Title = strings.TrimSpace(rec.Title)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(rec)
	}))
	defer srv.Close()

	reg := NewRegistrar(srv.URL+"/", srv.Client())
	saved, err := reg.Register(context.Background(), &book.Record{ID: "book-1", Title: " T "})
	require.NoError(t, err)
	assert.Equal(t, "book-1", saved.ID)
	assert.Equal(t, "T", saved.Title)
}

func TestRegistrar_Rejected(t *testing.T) {
	srv, _ := relayServer(t, http.StatusBadRequest, `{"error":"Invalid book record"}`)
	reg := NewRegistrar(srv.URL, srv.Client())

	_, err := reg.Register(context.Background(), &book.Record{ID: "book-1"})
	assert.ErrorIs(t, err, ErrServer)
}
