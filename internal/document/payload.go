// Package document serializes investment terms, hashes the serialized form
// and renders the human-readable contract from the same bytes.
package document

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Mohsinsiddi/infinity/internal/domain"
	"github.com/ethereum/go-ethereum/crypto"
)

// Payload is the serialized form of a contract. Terms fields are inlined.
type Payload struct {
	domain.Terms
	ContractVersion string    `json:"contractVersion"`
	GeneratedAt     time.Time `json:"generatedAt"`
}

// Serialize encodes terms with the version tag and generation time.
func Serialize(terms domain.Terms, version string, generatedAt time.Time) ([]byte, error) {
	b, err := json.Marshal(Payload{Terms: terms, ContractVersion: version, GeneratedAt: generatedAt.UTC()})
	if err != nil {
		return nil, fmt.Errorf("serializing terms: %w", err)
	}
	return b, nil
}

// Decode parses a serialized payload.
func Decode(data []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decoding contract payload: %w", err)
	}
	if p.ContractVersion == "" {
		return nil, fmt.Errorf("decoding contract payload: missing contractVersion")
	}
	return &p, nil
}

// Hash returns the 0x-prefixed Keccak-256 of the serialized payload.
func Hash(payload []byte) string {
	return crypto.Keccak256Hash(payload).Hex()
}
