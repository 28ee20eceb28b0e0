package bookform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/example/book-upload-relay/domain/book"
	"github.com/google/uuid"
)

// DefaultEndpoint is the relay path served next to the form.
const DefaultEndpoint = "http://localhost:3000/.netlify/functions/upload"

// maxResponseBytes caps how much of a relay response is read.
const maxResponseBytes = 1 << 20

// Stage is a step of one submission.
type Stage string

const (
	StageValidating Stage = "validating"
	StageUploading  Stage = "uploading"
	StageProcessing Stage = "processing"
	StageDone       Stage = "done"
	StageFailed     Stage = "failed"
)

// Percent is the progress shown for the stage. Failed keeps no percentage.
func (s Stage) Percent() int {
	switch s {
	case StageUploading:
		return 25
	case StageProcessing:
		return 75
	case StageDone:
		return 100
	default:
		return 0
	}
}

// Progress is reported to a ProgressFunc as a submission advances.
type Progress struct {
	Stage   Stage
	Percent int
	Err     error
}

// ProgressFunc receives progress updates.
type ProgressFunc func(Progress)

// uploadResponse is the relay's success body.
type uploadResponse struct {
	Success bool   `json:"success"`
	Cover   string `json:"cover"`
	PDF     string `json:"pdf"`
	Deploy  string `json:"deploy"`
}

// Submitter sends forms to one relay endpoint.
type Submitter struct {
	endpoint string
	client   *http.Client
	limits   Limits
	progress ProgressFunc
	newID    func() string
	now      func() time.Time
}

// Option configures a Submitter.
type Option func(*Submitter)

// WithHTTPClient sets the client used for the upload.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Submitter) {
		s.client = client
	}
}

// WithLimits overrides DefaultLimits.
func WithLimits(limits Limits) Option {
	return func(s *Submitter) {
		s.limits = limits
	}
}

// WithProgress registers a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(s *Submitter) {
		s.progress = fn
	}
}

// NewSubmitter creates a submitter for endpoint.
func NewSubmitter(endpoint string, opts ...Option) *Submitter {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	s := &Submitter{
		endpoint: endpoint,
		client:   http.DefaultClient,
		limits:   DefaultLimits(),
		newID:    func() string { return "book-" + uuid.NewString() },
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Submitter) report(stage Stage, err error) {
	if s.progress == nil {
		return
	}
	s.progress(Progress{Stage: stage, Percent: stage.Percent(), Err: err})
}

// Submit validates form, uploads its files and returns the resulting record.
// Nothing is sent when validation fails, and a failed attempt is never retried.
func (s *Submitter) Submit(ctx context.Context, form Form) (rec *book.Record, err error) {
	defer func() {
		if err != nil {
			s.report(StageFailed, err)
		}
	}()

	s.report(StageValidating, nil)
	if err := Validate(form, s.limits); err != nil {
		return nil, err
	}

	s.report(StageUploading, nil)
	result, err := s.upload(ctx, form)
	if err != nil {
		return nil, err
	}

	s.report(StageProcessing, nil)
	rec = &book.Record{
		ID:          s.newID(),
		Title:       strings.TrimSpace(form.Title),
		Author:      strings.TrimSpace(form.Author),
		Category:    strings.TrimSpace(form.Category),
		Summary:     strings.TrimSpace(form.Summary),
		Cover:       result.Cover,
		DownloadURL: result.PDF,
		DeployID:    result.Deploy,
		CreatedAt:   s.now().UTC(),
	}

	s.report(StageDone, nil)
	return rec, nil
}

// upload streams the multipart body so neither file is held in memory.
func (s *Submitter) upload(ctx context.Context, form Form) (*uploadResponse, error) {
	pr, pw := io.Pipe()
	defer pr.Close()

	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeParts(mw, form))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, pr)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectivity, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", ErrConnectivity, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text := strings.TrimSpace(string(body))
		if text == "" {
			text = http.StatusText(resp.StatusCode)
		}
		return nil, &ServerError{Status: resp.StatusCode, Body: text}
	}

	var result uploadResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProtocol, err)
	}
	if !result.Success || result.Cover == "" || result.PDF == "" {
		return nil, ErrProtocol
	}
	return &result, nil
}

func writeParts(mw *multipart.Writer, form Form) error {
	for _, p := range []struct {
		field string
		file  *File
	}{
		{"cover", form.Cover},
		{"pdf", form.PDF},
	} {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, p.field, p.file.Name))
		h.Set("Content-Type", p.file.ContentType)
		w, err := mw.CreatePart(h)
		if err != nil {
			return err
		}
		if _, err := io.Copy(w, p.file.Reader); err != nil {
			return fmt.Errorf("failed to read %s: %w", p.file.Name, err)
		}
	}
	return mw.Close()
}
