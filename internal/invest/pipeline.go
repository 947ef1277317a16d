package invest

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Mohsinsiddi/infinity/internal/api"
	"github.com/Mohsinsiddi/infinity/internal/document"
	"github.com/Mohsinsiddi/infinity/internal/domain"
	"github.com/rs/zerolog"
)

// Phase is one stage of contract generation.
type Phase int

const (
	PhaseDocument Phase = iota
	PhaseUpload
	PhaseFinalize
	numPhases
)

func (p Phase) String() string {
	switch p {
	case PhaseDocument:
		return "document generation"
	case PhaseUpload:
		return "storage upload"
	case PhaseFinalize:
		return "hash finalization"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Phases lists the phases in execution order.
func Phases() []Phase { return []Phase{PhaseDocument, PhaseUpload, PhaseFinalize} }

// Status is a phase's progress.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Progress tracks every phase independently. OnChange, when set, is called
// after each transition.
type Progress struct {
	mu       sync.Mutex
	status   [numPhases]Status
	OnChange func(Phase, Status)
}

// NewProgress returns a progress with every phase pending.
func NewProgress() *Progress {
	p := &Progress{}
	p.reset()
	return p
}

// Status returns the status of phase.
func (p *Progress) Status(phase Phase) Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status[phase]
}

// Snapshot returns all statuses in phase order.
func (p *Progress) Snapshot() []Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Status(nil), p.status[:]...)
}

func (p *Progress) set(phase Phase, s Status) {
	p.mu.Lock()
	p.status[phase] = s
	cb := p.OnChange
	p.mu.Unlock()
	if cb != nil {
		cb(phase, s)
	}
}

func (p *Progress) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.status {
		p.status[i] = StatusPending
	}
}

// Bundle is the sealed output of contract generation. StorageURL is empty
// when the upload was answered in demo mode; StorageLocator is always set.
type Bundle struct {
	Terms          domain.Terms
	Payload        []byte // serialized terms the document and hash derive from
	Document       []byte // PDF
	DocumentBase64 string
	DocumentHash   string
	StorageLocator string
	StorageURL     string
	StorageIsDemo  bool
	DocumentSizeKB int
}

// Complete reports whether every bundle field a deposit needs is present.
func (b *Bundle) Complete() bool {
	return b != nil && len(b.Payload) > 0 && len(b.Document) > 0 && b.DocumentHash != "" && b.StorageLocator != ""
}

// Backend is the generation and upload service.
type Backend interface {
	GeneratePDF(ctx context.Context, payload []byte) (*api.GenerateResponse, error)
	UploadIPFS(ctx context.Context, req api.UploadRequest) (*api.UploadResponse, error)
}

// Pipeline runs the three generation phases in order.
type Pipeline struct {
	backend Backend
	version string
	now     func() time.Time
	log     zerolog.Logger
}

// NewPipeline creates a pipeline stamping payloads with version.
func NewPipeline(backend Backend, version string, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		backend: backend,
		version: version,
		now:     time.Now,
		log:     log.With().Str("component", "contract_pipeline").Logger(),
	}
}

// Run executes every phase from scratch. The first failure marks its phase
// as error, leaves earlier phases completed and returns a *PhaseError. A
// cancelled ctx fails the phase in flight the same way.
func (p *Pipeline) Run(ctx context.Context, terms domain.Terms, progress *Progress) (*Bundle, error) {
	if progress == nil {
		progress = NewProgress()
	}
	progress.reset()

	b := &Bundle{Terms: terms}
	var serviceHash string

	steps := []struct {
		phase Phase
		run   func(context.Context) error
	}{
		{PhaseDocument, func(ctx context.Context) error {
			var err error
			serviceHash, err = p.generate(ctx, b)
			return err
		}},
		{PhaseUpload, func(ctx context.Context) error { return p.upload(ctx, b) }},
		{PhaseFinalize, func(context.Context) error { return p.finalize(b, serviceHash) }},
	}

	for _, s := range steps {
		progress.set(s.phase, StatusProcessing)
		err := ctx.Err()
		if err == nil {
			err = s.run(ctx)
		}
		if err != nil {
			progress.set(s.phase, StatusError)
			p.log.Warn().Err(err).Str("phase", s.phase.String()).Msg("contract generation failed")
			return nil, &PhaseError{Phase: s.phase, Err: err}
		}
		progress.set(s.phase, StatusCompleted)
	}

	p.log.Info().Str("hash", b.DocumentHash).Str("locator", b.StorageLocator).Bool("demo", b.StorageIsDemo).Msg("contract bundle sealed")
	return b, nil
}

func (p *Pipeline) generate(ctx context.Context, b *Bundle) (string, error) {
	payload, err := document.Serialize(b.Terms, p.version, p.now())
	if err != nil {
		return "", err
	}
	resp, err := p.backend.GeneratePDF(ctx, payload)
	if err != nil {
		return "", err
	}
	if !resp.Success || resp.Hash == "" {
		return "", errors.New("generation service did not return a hash")
	}

	var doc []byte
	if resp.PDFData != nil && !resp.NeedsFrontendGeneration {
		doc, err = base64.StdEncoding.DecodeString(*resp.PDFData)
		if err != nil {
			return "", fmt.Errorf("decoding service document: %w", err)
		}
	} else {
		doc, err = document.Render(payload)
		if err != nil {
			return "", err
		}
	}

	b.Payload = payload
	b.Document = doc
	b.DocumentSizeKB = document.SizeKB(doc)
	return resp.Hash, nil
}

func (p *Pipeline) upload(ctx context.Context, b *Bundle) error {
	b.DocumentBase64 = base64.StdEncoding.EncodeToString(b.Document)

	now := p.now().UTC()
	resp, err := p.backend.UploadIPFS(ctx, api.UploadRequest{
		Content:  string(b.Payload),
		Filename: fmt.Sprintf("investment-contract-%s-%d.json", b.Terms.Template.ID, now.Unix()),
		Metadata: api.UploadMetadata{
			Type:       "investment-contract",
			Investor:   b.Terms.Investor,
			Network:    b.Terms.Network,
			UploadedAt: now,
		},
	})
	if err != nil {
		return err
	}
	if !resp.Success || resp.IPFSHash == "" {
		return errors.New("storage service returned no locator")
	}
	b.StorageLocator = resp.IPFSHash
	b.StorageIsDemo = resp.IsDemoMode
	if resp.IPFSURL != nil {
		b.StorageURL = *resp.IPFSURL
	}
	return nil
}

func (p *Pipeline) finalize(b *Bundle, serviceHash string) error {
	local := document.Hash(b.Payload)
	if !strings.EqualFold(local, serviceHash) {
		return fmt.Errorf("document hash mismatch: service %s, local %s", serviceHash, local)
	}
	b.DocumentHash = local
	return nil
}
