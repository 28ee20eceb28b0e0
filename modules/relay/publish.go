package relay

import (
	"context"
	"fmt"

	"github.com/example/book-upload-relay/domain/book"
	"github.com/example/book-upload-relay/modules/deployapi"
	"golang.org/x/sync/errgroup"
)

// State is a step of the two-phase publish protocol.
type State int

const (
	StateParsing State = iota
	StateManifestBuilt
	StateDeployCreated
	StateFilesUploading
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateParsing:
		return "parsing"
	case StateManifestBuilt:
		return "manifest_built"
	case StateDeployCreated:
		return "deploy_created"
	case StateFilesUploading:
		return "files_uploading"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// next lists the forward transitions; any non-terminal state may also move to StateFailed.
var next = map[State]State{
	StateParsing:        StateManifestBuilt,
	StateManifestBuilt:  StateDeployCreated,
	StateDeployCreated:  StateFilesUploading,
	StateFilesUploading: StateCompleted,
}

// Deployer is the external side of the protocol.
type Deployer interface {
	CreateDeploy(ctx context.Context, manifest book.PublishManifest) (*deployapi.Deploy, error)
	UploadFile(ctx context.Context, uploadURL string, data []byte) error
}

// Publication tracks one request through the publish protocol.
// It is not safe for concurrent use; each request owns its own.
type Publication struct {
	state   State
	history []State
	err     error

	manifest book.PublishManifest
	files    map[string]*book.UploadedPart
	deploy   *deployapi.Deploy
	// skipped holds required paths the request never sent.
	skipped  []string
	uploaded []string
}

// NewPublication starts a publication in StateParsing.
func NewPublication() *Publication {
	return &Publication{state: StateParsing, history: []State{StateParsing}}
}

func (p *Publication) State() State     { return p.state }
func (p *Publication) History() []State { return append([]State(nil), p.history...) }
func (p *Publication) Err() error       { return p.err }

func (p *Publication) Manifest() book.PublishManifest { return p.manifest }
func (p *Publication) Deploy() *deployapi.Deploy      { return p.deploy }
func (p *Publication) Skipped() []string              { return p.skipped }
func (p *Publication) Uploaded() []string             { return p.uploaded }

func (p *Publication) advance(to State) error {
	if want, ok := next[p.state]; !ok || want != to {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.state, to)
	}
	p.state = to
	p.history = append(p.history, to)
	return nil
}

// Fail moves the publication to StateFailed and returns err.
func (p *Publication) Fail(err error) error {
	if p.state == StateCompleted || p.state == StateFailed {
		return err
	}
	p.state = StateFailed
	p.history = append(p.history, StateFailed)
	p.err = err
	return err
}

// BuildManifest names and digests the parsed parts.
func (p *Publication) BuildManifest(parts []*book.UploadedPart, namer *Namer) error {
	if p.state != StateParsing {
		return fmt.Errorf("%w: build manifest in %s", ErrInvalidTransition, p.state)
	}
	manifest, files, err := BuildManifest(parts, namer)
	if err != nil {
		return p.Fail(err)
	}
	p.manifest = manifest
	p.files = files
	return p.advance(StateManifestBuilt)
}

// CreateDeploy sends the complete manifest to the provider.
func (p *Publication) CreateDeploy(ctx context.Context, d Deployer) error {
	if p.state != StateManifestBuilt {
		return fmt.Errorf("%w: create deploy in %s", ErrInvalidTransition, p.state)
	}
	deploy, err := d.CreateDeploy(ctx, p.manifest)
	if err != nil {
		return p.Fail(fmt.Errorf("%w: %w", ErrDeployFailed, err))
	}
	p.deploy = deploy
	return p.advance(StateDeployCreated)
}

// UploadRequired transfers every required file, at most concurrency at a time.
// The first failure cancels the remaining uploads and fails the publication.
func (p *Publication) UploadRequired(ctx context.Context, d Deployer, concurrency int) error {
	if err := p.advance(StateFilesUploading); err != nil {
		return err
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, path := range p.deploy.RequiredPaths() {
		part, ok := p.files[path]
		if !ok {
			p.skipped = append(p.skipped, path)
			continue
		}
		uploadURL := p.deploy.Required[path]
		p.uploaded = append(p.uploaded, path)
		g.Go(func() error {
			if err := d.UploadFile(gctx, uploadURL, part.Data); err != nil {
				return &FileUploadError{Path: path, Err: err}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return p.Fail(err)
	}
	return nil
}

// Complete maps the published paths to public URLs.
func (p *Publication) Complete() (*book.PublicResult, error) {
	if err := p.advance(StateCompleted); err != nil {
		return nil, err
	}
	result := &book.PublicResult{DeployID: p.deploy.ID}
	for path, part := range p.files {
		switch part.Kind {
		case book.KindCover:
			result.Cover = p.deploy.PublicURL(path)
		case book.KindPDF:
			result.PDF = p.deploy.PublicURL(path)
		}
	}
	return result, nil
}
