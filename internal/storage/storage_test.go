package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/Mohsinsiddi/infinity/internal/config"
	"github.com/mr-tron/base58"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// demo mode
// ---------------------------------------------------------------------------

func TestContentIDDeterministic(t *testing.T) {
	a := ContentID([]byte(`{"amount":"50"}`))
	b := ContentID([]byte(`{"amount":"50"}`))
	c := ContentID([]byte(`{"amount":"51"}`))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(a, "Qm"))
	assert.Len(t, a, 46)

	raw, err := base58.Decode(a)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x12, 0x20}, raw[:2])
}

func TestDemoStore(t *testing.T) {
	res, err := DemoStore{}.Put(context.Background(), Object{Content: []byte("hello")})
	require.NoError(t, err)
	assert.True(t, res.Demo)
	assert.Empty(t, res.URL)
	assert.Equal(t, 5, res.Size)
	assert.Equal(t, ContentID([]byte("hello")), res.Locator)
}

type failingBackend struct{}

func (failingBackend) Put(context.Context, Object) (Result, error) {
	return Result{}, errors.New("gateway down")
}

func TestServiceFallsBackToDemo(t *testing.T) {
	s := NewService(failingBackend{}, zerolog.Nop())
	assert.False(t, s.Demo())

	res := s.Upload(context.Background(), Object{Content: []byte("x")})
	assert.True(t, res.Demo)
	assert.Equal(t, ContentID([]byte("x")), res.Locator)
}

func TestServiceWithoutBackend(t *testing.T) {
	s := NewService(nil, zerolog.Nop())
	assert.True(t, s.Demo())
	r1 := s.Upload(context.Background(), Object{Content: []byte("same")})
	r2 := s.Upload(context.Background(), Object{Content: []byte("same")})
	assert.Equal(t, r1.Locator, r2.Locator)
}

func TestGatewayURL(t *testing.T) {
	assert.Equal(t, "https://ipfs.io/ipfs/Qm1", GatewayURL("https://ipfs.io/ipfs/", "Qm1"))
	assert.Equal(t, "https://gw.example/ipfs/Qm1", GatewayURL("https://gw.example/ipfs", "Qm1"))
	assert.Empty(t, GatewayURL("", "Qm1"))
	assert.Empty(t, GatewayURL("https://ipfs.io/ipfs/", ""))
}

// ---------------------------------------------------------------------------
// S3 gateway
// ---------------------------------------------------------------------------

// s3Mock accepts PUT and answers HEAD with a cid metadata header.
type s3Mock struct {
	mu      sync.Mutex
	puts    map[string]string // path -> body
	cid     string
	failPut bool
}

func (m *s3Mock) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch r.Method {
	case http.MethodPut:
		if m.failPut {
			w.WriteHeader(http.StatusForbidden)
			io.WriteString(w, `<?xml version="1.0"?><Error><Code>AccessDenied</Code><Message>denied</Message></Error>`) //nolint:errcheck
			return
		}
		b, _ := io.ReadAll(r.Body)
		m.puts[r.URL.Path] = string(b)
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodHead:
		if m.cid != "" {
			w.Header().Set("x-amz-meta-cid", m.cid)
		}
		w.Header().Set("Content-Length", "0")
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newS3Mock(t *testing.T, m *s3Mock) (*S3Store, *s3Mock) {
	t.Helper()
	t.Setenv("AWS_CONFIG_FILE", "/nonexistent")
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", "/nonexistent")
	m.puts = map[string]string{}
	srv := httptest.NewServer(m)
	t.Cleanup(srv.Close)

	store, err := NewS3Store(context.Background(), config.StorageConfig{
		Endpoint:  srv.URL,
		Region:    "us-east-1",
		Bucket:    "contracts",
		AccessKey: "AKIDEXAMPLE",
		SecretKey: "secret",
	}, "https://ipfs.filebase.io/ipfs/")
	require.NoError(t, err)
	return store, m
}

func TestS3StorePutReadsCID(t *testing.T) {
	store, m := newS3Mock(t, &s3Mock{cid: "QmGatewayCid"})

	res, err := store.Put(context.Background(), Object{
		Filename:    "../contract.json",
		ContentType: "application/json",
		Content:     []byte(`{"a":1}`),
		Metadata:    map[string]string{"investor": "0xabc"},
	})
	require.NoError(t, err)
	assert.Equal(t, "QmGatewayCid", res.Locator)
	assert.Equal(t, "https://ipfs.filebase.io/ipfs/QmGatewayCid", res.URL)
	assert.False(t, res.Demo)

	require.Len(t, m.puts, 1)
	for p := range m.puts {
		assert.True(t, strings.HasPrefix(p, "/contracts/"), p)
		assert.True(t, strings.HasSuffix(p, "/contract.json"), p)
	}
}

func TestS3StoreFallsBackToLocalCID(t *testing.T) {
	store, _ := newS3Mock(t, &s3Mock{})
	res, err := store.Put(context.Background(), Object{Filename: "c.json", Content: []byte("z")})
	require.NoError(t, err)
	assert.Equal(t, ContentID([]byte("z")), res.Locator)
}

func TestS3StoreUploadError(t *testing.T) {
	store, _ := newS3Mock(t, &s3Mock{failPut: true})
	_, err := store.Put(context.Background(), Object{Filename: "c.json", Content: []byte("z")})
	assert.Error(t, err)

	res := NewService(store, zerolog.Nop()).Upload(context.Background(), Object{Filename: "c.json", Content: []byte("z")})
	assert.True(t, res.Demo)
}

func TestNewS3StoreRequiresConfig(t *testing.T) {
	_, err := NewS3Store(context.Background(), config.StorageConfig{}, "")
	assert.Error(t, err)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a.json", sanitizeFilename("dir/a.json"))
	assert.Equal(t, "a.json", sanitizeFilename(`..\..\a.json`))
	assert.Equal(t, "content", sanitizeFilename(""))
}
