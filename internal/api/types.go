// Package api holds the JSON contracts of the Infinity Ventures HTTP API and
// a client for them.
package api

import (
	"time"

	"github.com/Mohsinsiddi/infinity/internal/domain"
	"github.com/Mohsinsiddi/infinity/internal/wallet"
	"github.com/shopspring/decimal"
)

// SupportedWalletsResponse is GET /api/supported-wallets.
type SupportedWalletsResponse struct {
	Wallets []wallet.BrandInfo `json:"wallets"`
}

// NetworkInfo describes one supported chain.
type NetworkInfo struct {
	ChainID          string   `json:"chainId"` // 0x-hex
	Name             string   `json:"name"`
	Symbol           string   `json:"symbol"`
	RPCURLs          []string `json:"rpcUrls"`
	BlockExplorerURL string   `json:"blockExplorerUrl"`
	IsTestnet        bool     `json:"isTestnet"`
	IsPreferred      bool     `json:"isPreferred"`
}

// NetworkInfoResponse is GET /api/network-info.
type NetworkInfoResponse struct {
	Networks []NetworkInfo `json:"networks"`
}

// TemplatesResponse is GET /api/investment/templates.
type TemplatesResponse struct {
	Templates []domain.Template `json:"templates"`
}

// InvestmentsResponse is GET /api/investment/user-investments/{address}.
type InvestmentsResponse struct {
	Investments []domain.Position `json:"investments"`
}

// GenerateResponse is POST /api/external/generate-pdf. The server only
// hashes the payload; rendering happens on the client.
type GenerateResponse struct {
	Success                 bool    `json:"success"`
	PDFData                 *string `json:"pdfData"`
	Hash                    string  `json:"hash"`
	NeedsFrontendGeneration bool    `json:"needsFrontendGeneration"`
	RequestID               string  `json:"requestId,omitempty"`
}

// UploadMetadata accompanies an upload.
type UploadMetadata struct {
	Type       string    `json:"type"`
	Investor   string    `json:"investor"`
	Network    string    `json:"network"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// UploadRequest is the POST /api/external/upload-ipfs body.
type UploadRequest struct {
	Content  string         `json:"content"`
	Filename string         `json:"filename"`
	Metadata UploadMetadata `json:"metadata"`
}

// UploadResponse reports where the content landed. IPFSURL is nil in demo
// mode; IPFSHash is always set.
type UploadResponse struct {
	Success    bool    `json:"success"`
	IPFSHash   string  `json:"ipfsHash"`
	IPFSURL    *string `json:"ipfsUrl"`
	IsDemoMode bool    `json:"isDemoMode"`
	Size       int     `json:"size"`
}

// SavedInvestment is the client's record of a mint.
type SavedInvestment struct {
	TxHash         string          `json:"txHash"`
	TokenID        string          `json:"tokenId"`
	TemplateID     string          `json:"templateId,omitempty"`
	TemplateName   string          `json:"templateName,omitempty"`
	ContractType   string          `json:"contractType,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	TargetAPY      decimal.Decimal `json:"targetAPY"`
	Term           string          `json:"term,omitempty"`
	StartTime      time.Time       `json:"startTime"`
	MaturityTime   time.Time       `json:"maturityTime"`
	StorageLocator string          `json:"storageLocator,omitempty"`
	TermsHash      string          `json:"termsHash,omitempty"`
	Network        string          `json:"network,omitempty"`
	// Signature is an optional personal_sign over OwnershipMessage(TxHash).
	Signature string `json:"signature,omitempty"`
}

// SaveRequest is the POST /api/investment/save body.
type SaveRequest struct {
	Account    string          `json:"account"`
	Investment SavedInvestment `json:"investment"`
}

// SaveResponse is returned by POST /api/investment/save.
type SaveResponse struct {
	Success   bool   `json:"success"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// OwnershipMessage is the text an investor signs to prove they own the
// account a mint is saved under.
func OwnershipMessage(txHash string) string {
	return "Infinity Ventures investment " + txHash
}
