// Package storage uploads contract content to an IPFS pinning gateway, or
// derives a deterministic demo locator when no gateway is configured.
package storage

import (
	"context"
	"crypto/sha256"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/rs/zerolog"
)

// Object is one upload.
type Object struct {
	Filename    string
	ContentType string
	Content     []byte
	Metadata    map[string]string
}

// Result locates uploaded content. URL is empty in demo mode.
type Result struct {
	Locator string
	URL     string
	Demo    bool
	Size    int
}

// Backend stores objects.
type Backend interface {
	Put(ctx context.Context, obj Object) (Result, error)
}

// ContentID returns the CIDv0 (base58 sha2-256 multihash) of content.
func ContentID(content []byte) string {
	sum := sha256.Sum256(content)
	mh := make([]byte, 0, 34)
	mh = append(mh, 0x12, 0x20)
	mh = append(mh, sum[:]...)
	return base58.Encode(mh)
}

// DemoStore keeps nothing; it only derives the locator from the content.
type DemoStore struct{}

func (DemoStore) Put(_ context.Context, obj Object) (Result, error) {
	return Result{Locator: ContentID(obj.Content), Demo: true, Size: len(obj.Content)}, nil
}

// Service uploads through the primary backend and falls back to demo mode
// when there is none or it fails.
type Service struct {
	primary Backend
	demo    DemoStore
	log     zerolog.Logger
}

// NewService creates a Service. primary may be nil.
func NewService(primary Backend, log zerolog.Logger) *Service {
	return &Service{primary: primary, log: log.With().Str("component", "storage").Logger()}
}

// Demo reports whether uploads always take the demo path.
func (s *Service) Demo() bool { return s.primary == nil }

// Upload never fails: backend errors are logged and answered in demo mode.
func (s *Service) Upload(ctx context.Context, obj Object) Result {
	if s.primary != nil {
		res, err := s.primary.Put(ctx, obj)
		if err == nil {
			s.log.Info().Str("locator", res.Locator).Int("size", res.Size).Msg("content pinned")
			return res
		}
		s.log.Warn().Err(err).Str("filename", obj.Filename).Msg("upload failed, using demo locator")
	}
	res, _ := s.demo.Put(ctx, obj)
	return res
}

// GatewayURL joins a gateway prefix and a locator.
func GatewayURL(gateway, locator string) string {
	if gateway == "" || locator == "" {
		return ""
	}
	return strings.TrimRight(gateway, "/") + "/" + locator
}
