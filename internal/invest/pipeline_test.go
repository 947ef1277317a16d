package invest

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Mohsinsiddi/infinity/internal/api"
	"github.com/Mohsinsiddi/infinity/internal/document"
	"github.com/Mohsinsiddi/infinity/internal/domain"
	"github.com/Mohsinsiddi/infinity/internal/storage"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// fakeBackend hashes like the server and answers uploads in demo mode.
type fakeBackend struct {
	mu         sync.Mutex
	generated  [][]byte
	uploads    []api.UploadRequest
	genErr     error
	uploadErr  error
	wrongHash  bool
	pdfData    *string
	realURL    string
	blockUntil chan struct{}
}

func (f *fakeBackend) GeneratePDF(ctx context.Context, payload []byte) (*api.GenerateResponse, error) {
	f.mu.Lock()
	f.generated = append(f.generated, payload)
	f.mu.Unlock()
	if f.blockUntil != nil {
		select {
		case <-f.blockUntil:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.genErr != nil {
		return nil, f.genErr
	}
	hash := document.Hash(payload)
	if f.wrongHash {
		hash = document.Hash([]byte("something else"))
	}
	return &api.GenerateResponse{Success: true, Hash: hash, PDFData: f.pdfData, NeedsFrontendGeneration: f.pdfData == nil}, nil
}

func (f *fakeBackend) UploadIPFS(_ context.Context, req api.UploadRequest) (*api.UploadResponse, error) {
	f.mu.Lock()
	f.uploads = append(f.uploads, req)
	f.mu.Unlock()
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	cid := storage.ContentID([]byte(req.Content))
	res := &api.UploadResponse{Success: true, IPFSHash: cid, IsDemoMode: f.realURL == "", Size: len(req.Content)}
	if f.realURL != "" {
		u := f.realURL + cid
		res.IPFSURL = &u
	}
	return res, nil
}

func sampleTerms(t *testing.T) domain.Terms {
	return domain.Terms{
		Template:  growthVault(t),
		Amount:    decimal.NewFromInt(50),
		Term:      "12 months",
		TargetAPY: decimal.RequireFromString("14.8"),
		Investor:  "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
		Network:   "0xaa36a7",
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func newTestPipeline(b Backend) *Pipeline {
	p := NewPipeline(b, "IV-SBT-1.0", zerolog.Nop())
	p.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 5, 0, time.UTC) }
	return p
}

// ---------------------------------------------------------------------------
// Run
// ---------------------------------------------------------------------------

func TestPipelineSealsBundle(t *testing.T) {
	backend := &fakeBackend{}
	progress := NewProgress()
	var transitions []Status
	progress.OnChange = func(_ Phase, s Status) { transitions = append(transitions, s) }

	b, err := newTestPipeline(backend).Run(context.Background(), sampleTerms(t), progress)
	require.NoError(t, err)
	require.True(t, b.Complete())

	assert.Equal(t, []Status{StatusCompleted, StatusCompleted, StatusCompleted}, progress.Snapshot())
	assert.Equal(t, []Status{
		StatusProcessing, StatusCompleted,
		StatusProcessing, StatusCompleted,
		StatusProcessing, StatusCompleted,
	}, transitions)

	// hash, document and upload all derive from the same payload
	require.Len(t, backend.generated, 1)
	assert.Equal(t, backend.generated[0], b.Payload)
	assert.Equal(t, document.Hash(b.Payload), b.DocumentHash)
	assert.Equal(t, string(b.Payload), backend.uploads[0].Content)
	assert.Equal(t, storage.ContentID(b.Payload), b.StorageLocator)

	rendered, err := document.Render(b.Payload)
	require.NoError(t, err)
	assert.Equal(t, rendered, b.Document)
	assert.Equal(t, base64.StdEncoding.EncodeToString(b.Document), b.DocumentBase64)
	assert.Equal(t, document.SizeKB(b.Document), b.DocumentSizeKB)

	assert.True(t, b.StorageIsDemo)
	assert.Empty(t, b.StorageURL)

	up := backend.uploads[0]
	assert.Equal(t, "investment-contract", up.Metadata.Type)
	assert.Equal(t, "0xaa36a7", up.Metadata.Network)
	assert.Equal(t, "investment-contract-infinity-growth-vault-1772366405.json", up.Filename)

	p, err := document.Decode(b.Payload)
	require.NoError(t, err)
	assert.Equal(t, "IV-SBT-1.0", p.ContractVersion)
}

func TestPipelineRealStorage(t *testing.T) {
	backend := &fakeBackend{realURL: "https://ipfs.io/ipfs/"}
	b, err := newTestPipeline(backend).Run(context.Background(), sampleTerms(t), nil)
	require.NoError(t, err)
	assert.False(t, b.StorageIsDemo)
	assert.Equal(t, "https://ipfs.io/ipfs/"+b.StorageLocator, b.StorageURL)
}

func TestPipelineUsesServiceDocument(t *testing.T) {
	data := base64.StdEncoding.EncodeToString([]byte("%PDF-service"))
	b, err := newTestPipeline(&fakeBackend{pdfData: &data}).Run(context.Background(), sampleTerms(t), nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-service"), b.Document)
}

func TestPipelineUploadFailure(t *testing.T) {
	backend := &fakeBackend{uploadErr: errors.New("gateway timeout")}
	progress := NewProgress()

	b, err := newTestPipeline(backend).Run(context.Background(), sampleTerms(t), progress)
	assert.Nil(t, b)
	var pe *PhaseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, PhaseUpload, pe.Phase)
	assert.Equal(t, "storage upload failed: gateway timeout", err.Error())

	// earlier phase is not rolled back
	assert.Equal(t, []Status{StatusCompleted, StatusError, StatusPending}, progress.Snapshot())
}

func TestPipelineGenerateFailure(t *testing.T) {
	progress := NewProgress()
	_, err := newTestPipeline(&fakeBackend{genErr: errors.New("503")}).Run(context.Background(), sampleTerms(t), progress)
	var pe *PhaseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, PhaseDocument, pe.Phase)
	assert.Equal(t, []Status{StatusError, StatusPending, StatusPending}, progress.Snapshot())
}

func TestPipelineHashMismatch(t *testing.T) {
	_, err := newTestPipeline(&fakeBackend{wrongHash: true}).Run(context.Background(), sampleTerms(t), nil)
	var pe *PhaseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, PhaseFinalize, pe.Phase)
	assert.Contains(t, err.Error(), "hash mismatch")
}

func TestPipelineCancelled(t *testing.T) {
	backend := &fakeBackend{blockUntil: make(chan struct{})}
	progress := NewProgress()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := newTestPipeline(backend).Run(ctx, sampleTerms(t), progress)
		done <- err
	}()
	require.Eventually(t, func() bool { return progress.Status(PhaseDocument) == StatusProcessing }, time.Second, 5*time.Millisecond)
	cancel()

	err := <-done
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatusError, progress.Status(PhaseDocument))
	assert.Empty(t, backend.uploads)
}

func TestPipelineRetryStartsOver(t *testing.T) {
	backend := &fakeBackend{uploadErr: errors.New("boom")}
	progress := NewProgress()
	p := newTestPipeline(backend)

	_, err := p.Run(context.Background(), sampleTerms(t), progress)
	require.Error(t, err)

	backend.uploadErr = nil
	b, err := p.Run(context.Background(), sampleTerms(t), progress)
	require.NoError(t, err)
	assert.True(t, b.Complete())
	assert.Len(t, backend.generated, 2, "document phase reruns")
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "document generation", PhaseDocument.String())
	assert.Equal(t, "storage upload", PhaseUpload.String())
	assert.Equal(t, "hash finalization", PhaseFinalize.String())
	assert.Len(t, Phases(), 3)
}
