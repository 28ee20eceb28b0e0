package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/book-upload-relay/domain/book"
	"github.com/example/book-upload-relay/modules/deployapi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHost emulates the provider: it requires every file and stores the PUT bodies.
type fakeHost struct {
	mu          sync.Mutex
	createCode  int
	failPrefix  string
	manifest    book.PublishManifest
	received    map[string][]byte
	createCalls int
}

func (h *fakeHost) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	var srvURL string

	mux.HandleFunc("POST /sites/{site}/deploys", func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		h.createCalls++
		h.mu.Unlock()
		if h.createCode != 0 {
			http.Error(w, "provider unavailable", h.createCode)
			return
		}
		var req struct {
			Files book.PublishManifest `json:"files"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		h.manifest = req.Files

		srvURL = "http://" + r.Host
		required := make(map[string]string, len(req.Files))
		for path := range req.Files {
			required[path] = srvURL + "/upload/" + path
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":             "dep-42",
			"deploy_ssl_url": "https://dep-42--books.netlify.app",
			"required":       required,
		})
	})

	mux.HandleFunc("PUT /upload/", func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/upload/")
		if h.failPrefix != "" && strings.HasPrefix(path, h.failPrefix) {
			http.Error(w, "storage full", http.StatusInsufficientStorage)
			return
		}
		data, _ := io.ReadAll(r.Body)
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.received == nil {
			h.received = make(map[string][]byte)
		}
		h.received[path] = data
		w.WriteHeader(http.StatusOK)
	})

	return mux
}

func newTestService(t *testing.T, host *fakeHost, mutate func(*Config)) (*Service, *Metrics) {
	t.Helper()

	srv := httptest.NewServer(host.handler(t))
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.Deploy = deployapi.Config{BaseURL: srv.URL, Token: "tok", SiteID: "books"}
	if mutate != nil {
		mutate(&cfg)
	}

	namer, err := NewNamer()
	require.NoError(t, err)

	metrics := MustNewMetrics(prometheus.NewRegistry())
	client := deployapi.NewClient(cfg.Deploy, srv.Client())
	return NewService(cfg, client, namer, metrics, &mockLogger{}), metrics
}

func TestRelay_CoverAndPDF(t *testing.T) {
	host := &fakeHost{}
	svc, metrics := newTestService(t, host, nil)

	cover := coverPart(2 * MiB)
	pdf := pdfPart(5 * MiB)
	body, contentType := buildMultipart(t, cover, pdf)

	result, err := svc.Relay(context.Background(), contentType, body)
	require.NoError(t, err)

	assert.Equal(t, "dep-42", result.DeployID)
	assert.True(t, strings.HasPrefix(result.Cover, "https://dep-42--books.netlify.app/covers/"), result.Cover)
	assert.True(t, strings.HasSuffix(result.Cover, "-cover_image.jpg"), result.Cover)
	assert.True(t, strings.HasPrefix(result.PDF, "https://dep-42--books.netlify.app/books/"), result.PDF)
	assert.True(t, strings.HasSuffix(result.PDF, "-My_Book__1st_ed_.pdf"), result.PDF)

	require.Len(t, host.manifest, 2)
	for path, sum := range host.manifest {
		data, ok := host.received[path]
		require.True(t, ok, "required path %s was not uploaded", path)
		assert.Equal(t, sum, Digest(data))
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, float64(7*MiB), testutil.ToFloat64(metrics.receivedBytes))
}

func TestRelay_Failures(t *testing.T) {
	tests := []struct {
		name        string
		host        *fakeHost
		mutate      func(*Config)
		parts       []testPart
		wantErr     error
		wantOutcome string
		wantCreates int
	}{
		{
			name:        "missing credentials are reported before parsing",
			host:        &fakeHost{},
			mutate:      func(c *Config) { c.Deploy.Token = "" },
			parts:       []testPart{coverPart(10), pdfPart(10)},
			wantErr:     ErrNotConfigured,
			wantOutcome: OutcomeNotConfigured,
		},
		{
			name:        "missing pdf",
			host:        &fakeHost{},
			parts:       []testPart{coverPart(10)},
			wantErr:     ErrMissingPart,
			wantOutcome: OutcomeBadInput,
		},
		{
			name:        "unsupported type",
			host:        &fakeHost{},
			parts:       []testPart{coverPart(10), {field: "pdf", filename: "b.docx", contentType: "application/msword", data: []byte("doc")}},
			wantErr:     ErrUnsupportedType,
			wantOutcome: OutcomeBadInput,
		},
		{
			name:        "create deploy returns non-2xx",
			host:        &fakeHost{createCode: http.StatusBadGateway},
			parts:       []testPart{coverPart(10), pdfPart(10)},
			wantErr:     ErrDeployFailed,
			wantOutcome: OutcomeDeployFailed,
			wantCreates: 1,
		},
		{
			name:        "one required upload fails",
			host:        &fakeHost{failPrefix: "books/"},
			parts:       []testPart{coverPart(10), pdfPart(10)},
			wantErr:     ErrUploadFailed,
			wantOutcome: OutcomeUploadFailed,
			wantCreates: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, metrics := newTestService(t, tt.host, tt.mutate)
			body, contentType := buildMultipart(t, tt.parts...)

			result, err := svc.Relay(context.Background(), contentType, body)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantCreates, tt.host.createCalls)
			assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues(tt.wantOutcome)))
		})
	}
}

func TestRelay_NotConfiguredDoesNotReadBody(t *testing.T) {
	svc, _ := newTestService(t, &fakeHost{}, func(c *Config) { c.Deploy.SiteID = "" })

	body := &countingReader{r: bytes.NewReader([]byte("irrelevant"))}
	_, err := svc.Relay(context.Background(), "multipart/form-data; boundary=x", body)

	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Zero(t, body.n)
}

func TestOutcomeOf(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, OutcomeSuccess},
		{ErrNotConfigured, OutcomeNotConfigured},
		{fmt.Errorf("%w: x", ErrTooLarge), OutcomeBadInput},
		{fmt.Errorf("%w: x", ErrMalformedRequest), OutcomeBadInput},
		{&FileUploadError{Path: "p", Err: io.ErrUnexpectedEOF}, OutcomeUploadFailed},
		{io.ErrClosedPipe, OutcomeError},
	}

	for _, tt := range tests {
		if got := outcomeOf(tt.err); got != tt.want {
			t.Errorf("outcomeOf(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

type countingReader struct {
	r io.Reader
	n int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}

// warnLogger records Warn messages.
type warnLogger struct {
	mockLogger
	mu    sync.Mutex
	warns []string
}

func (l *warnLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func TestRelay_SoftDeadlineOnlyWarns(t *testing.T) {
	host := &fakeHost{}
	svc, _ := newTestService(t, host, func(cfg *Config) { cfg.SoftDeadline = time.Nanosecond })
	logger := &warnLogger{}
	svc.logger = logger

	body, contentType := buildMultipart(t, coverPart(1024), pdfPart(2048))
	result, err := svc.Relay(context.Background(), contentType, body)

	require.NoError(t, err)
	assert.Equal(t, "dep-42", result.DeployID)
	assert.Contains(t, logger.warns, "Relay exceeded soft deadline")
}

func TestRelay_FailureIsLogged(t *testing.T) {
	host := &fakeHost{createCode: http.StatusBadGateway}
	svc, _ := newTestService(t, host, nil)
	logger := &warnLogger{}
	svc.logger = logger

	body, contentType := buildMultipart(t, coverPart(16), pdfPart(16))
	_, err := svc.Relay(context.Background(), contentType, body)

	require.ErrorIs(t, err, ErrDeployFailed)
	assert.Contains(t, logger.warns, "Relay failed")
	assert.NotContains(t, logger.warns, "Relay exceeded soft deadline")
}
