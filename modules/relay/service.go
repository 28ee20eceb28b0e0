package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/example/book-upload-relay/domain/book"
	"github.com/go-monolith/mono/pkg/types"
)

// Service relays one multipart submission to the hosting provider per call.
// It holds no per-request state, so calls may run concurrently.
type Service struct {
	cfg      Config
	deployer Deployer
	namer    *Namer
	metrics  *Metrics
	logger   types.Logger
}

// NewService creates a relay service. metrics may be nil.
func NewService(cfg Config, deployer Deployer, namer *Namer, metrics *Metrics, logger types.Logger) *Service {
	return &Service{
		cfg:      cfg,
		deployer: deployer,
		namer:    namer,
		metrics:  metrics,
		logger:   logger,
	}
}

// Relay parses the multipart body, publishes the cover and pdf and returns their public URLs.
func (s *Service) Relay(ctx context.Context, contentType string, body io.Reader) (result *book.PublicResult, err error) {
	start := time.Now()
	pub := NewPublication()

	defer func() {
		elapsed := time.Since(start)
		s.metrics.observe(outcomeOf(err), elapsed.Seconds())
		if pub.State() == StateFailed {
			s.logger.Warn("Relay failed",
				"outcome", outcomeOf(pub.Err()),
				"error", pub.Err(),
				"elapsed_ms", elapsed.Milliseconds())
		}
		if s.cfg.SoftDeadline > 0 && elapsed > s.cfg.SoftDeadline {
			s.logger.Warn("Relay exceeded soft deadline",
				"elapsed_ms", elapsed.Milliseconds(),
				"deadline_ms", s.cfg.SoftDeadline.Milliseconds(),
				"state", pub.State().String())
		}
	}()

	if err := s.cfg.CheckConfig(); err != nil {
		return nil, pub.Fail(err)
	}

	parts, err := ParseParts(body, contentType, s.cfg)
	if err != nil {
		return nil, pub.Fail(err)
	}
	if err := requireKinds(parts); err != nil {
		return nil, pub.Fail(err)
	}

	var received int64
	for _, part := range parts {
		received += part.Size()
		s.logger.Debug("Received part",
			"field", part.Field,
			"filename", part.Filename,
			"content_type", part.ContentType,
			"size", part.Size())
	}
	s.metrics.received(received)

	if err := pub.BuildManifest(parts, s.namer); err != nil {
		return nil, err
	}

	if err := pub.CreateDeploy(ctx, s.deployer); err != nil {
		s.logger.Error("Failed to create deploy", "error", err)
		return nil, err
	}
	deploy := pub.Deploy()
	s.logger.Info("Deploy created",
		"deploy_id", deploy.ID,
		"files", len(pub.Manifest()),
		"required", len(deploy.Required))

	if err := pub.UploadRequired(ctx, s.deployer, s.cfg.UploadConcurrency); err != nil {
		var uploadErr *FileUploadError
		if errors.As(err, &uploadErr) {
			s.logger.Error("Failed to upload file", "deploy_id", deploy.ID, "path", uploadErr.Path, "error", uploadErr.Err)
		}
		return nil, err
	}
	for _, path := range pub.Skipped() {
		s.logger.Warn("Deploy requires a file this request did not send", "deploy_id", deploy.ID, "path", path)
	}

	result, err = pub.Complete()
	if err != nil {
		return nil, pub.Fail(err)
	}

	s.logger.Info("Relay completed",
		"deploy_id", result.DeployID,
		"uploaded", len(pub.Uploaded()),
		"bytes", received,
		"duration_ms", time.Since(start).Milliseconds())

	return result, nil
}

// requireKinds checks that both a cover and a pdf were sent.
func requireKinds(parts []*book.UploadedPart) error {
	var hasCover, hasPDF bool
	for _, part := range parts {
		switch part.Kind {
		case book.KindCover:
			hasCover = true
		case book.KindPDF:
			hasPDF = true
		}
	}
	switch {
	case !hasCover && !hasPDF:
		return fmt.Errorf("%w: no files received", ErrMissingPart)
	case !hasCover:
		return fmt.Errorf("%w: cover is missing", ErrMissingPart)
	case !hasPDF:
		return fmt.Errorf("%w: pdf is missing", ErrMissingPart)
	}
	return nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrNotConfigured):
		return OutcomeNotConfigured
	case IsBadInput(err):
		return OutcomeBadInput
	case errors.Is(err, ErrDeployFailed):
		return OutcomeDeployFailed
	case errors.Is(err, ErrUploadFailed):
		return OutcomeUploadFailed
	default:
		return OutcomeError
	}
}
