package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/Mohsinsiddi/infinity/internal/api"
	"github.com/Mohsinsiddi/infinity/internal/document"
	"github.com/Mohsinsiddi/infinity/internal/domain"
	"github.com/Mohsinsiddi/infinity/internal/storage"
	"github.com/Mohsinsiddi/infinity/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	count, err := s.positions.Count(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("counting positions failed")
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":  "unhealthy",
			"service": "infinity",
			"error":   "position index unavailable",
		})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "healthy",
		"service":     "infinity",
		"demoStorage": s.storage.Demo(),
		"positions":   count,
	})
}

func (s *Server) handleSupportedWallets(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.SupportedWalletsResponse{Wallets: wallet.SupportedWallets()})
}

func (s *Server) handleNetworkInfo(w http.ResponseWriter, r *http.Request) {
	preferred := s.networks.Preferred()
	resp := api.NetworkInfoResponse{Networks: []api.NetworkInfo{}}
	for _, c := range s.networks.Supported() {
		resp.Networks = append(resp.Networks, api.NetworkInfo{
			ChainID:          c.HexID(),
			Name:             c.DisplayName,
			Symbol:           c.Currency.Symbol,
			RPCURLs:          c.RPCs,
			BlockExplorerURL: c.Explorer,
			IsTestnet:        c.IsTestnet,
			IsPreferred:      c.ChainID == preferred.ChainID,
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.TemplatesResponse{Templates: s.templates})
}

func (s *Server) handleUserInvestments(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	if !common.IsHexAddress(address) {
		s.writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	positions, err := s.positions.ListByInvestor(r.Context(), address)
	if err != nil {
		s.log.Error().Err(err).Str("address", address).Msg("listing positions failed")
		s.writeError(w, http.StatusInternalServerError, "failed to load investments")
		return
	}
	// Stored status wins. Rows saved without one get it from their dates.
	now := s.now()
	for i := range positions {
		p := &positions[i]
		if p.Status == "" {
			p.Status = domain.StatusAt(p.StartTime, p.MaturityTime, now)
		}
	}
	s.writeJSON(w, http.StatusOK, api.InvestmentsResponse{Investments: positions})
}

// handleGeneratePDF hashes the serialized terms. Rendering is left to the
// client, which renders from the same bytes.
func (s *Server) handleGeneratePDF(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	if _, err := document.Decode(body); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	documentsHashed.Inc()
	s.writeJSON(w, http.StatusOK, api.GenerateResponse{
		Success:                 true,
		Hash:                    document.Hash(body),
		NeedsFrontendGeneration: true,
		RequestID:               uuid.NewString(),
	})
}

func (s *Server) handleUploadIPFS(w http.ResponseWriter, r *http.Request) {
	var req api.UploadRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Content == "" {
		s.writeError(w, http.StatusBadRequest, "content is required")
		return
	}
	filename := req.Filename
	if filename == "" {
		filename = "content-" + middleware.GetReqID(r.Context()) + ".json"
	}

	meta := map[string]string{"type": req.Metadata.Type, "investor": req.Metadata.Investor, "network": req.Metadata.Network}
	if !req.Metadata.UploadedAt.IsZero() {
		meta["uploaded-at"] = req.Metadata.UploadedAt.UTC().Format("2006-01-02T15:04:05Z")
	}
	res := s.storage.Upload(r.Context(), storage.Object{
		Filename:    filename,
		ContentType: "application/json",
		Content:     []byte(req.Content),
		Metadata:    meta,
	})

	mode := "real"
	if res.Demo {
		mode = "demo"
	}
	uploadsTotal.WithLabelValues(mode).Inc()
	uploadBytes.Observe(float64(res.Size))

	resp := api.UploadResponse{Success: true, IPFSHash: res.Locator, IsDemoMode: res.Demo, Size: res.Size}
	if res.URL != "" {
		u := res.URL
		resp.IPFSURL = &u
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	var req api.SaveRequest
	if !s.decode(w, r, &req) {
		positionSaves.WithLabelValues("invalid").Inc()
		return
	}
	inv := req.Investment
	if req.Account == "" || inv.TxHash == "" || inv.TokenID == "" {
		positionSaves.WithLabelValues("invalid").Inc()
		s.writeError(w, http.StatusBadRequest, "account, txHash and tokenId are required")
		return
	}
	if !common.IsHexAddress(req.Account) {
		positionSaves.WithLabelValues("invalid").Inc()
		s.writeError(w, http.StatusBadRequest, "invalid account address")
		return
	}
	if inv.Signature != "" {
		if err := wallet.VerifySignatureHex(api.OwnershipMessage(inv.TxHash), inv.Signature, req.Account); err != nil {
			positionSaves.WithLabelValues("forbidden").Inc()
			s.writeError(w, http.StatusForbidden, "signature does not match account")
			return
		}
	}

	p := domain.Position{
		TokenID:        inv.TokenID,
		Investor:       req.Account,
		Principal:      inv.Amount,
		TargetAPY:      inv.TargetAPY,
		StartTime:      inv.StartTime,
		MaturityTime:   inv.MaturityTime,
		ContractType:   inv.ContractType,
		StorageLocator: inv.StorageLocator,
		TermsHash:      inv.TermsHash,
		TxHash:         inv.TxHash,
		Network:        inv.Network,
		TemplateName:   inv.TemplateName,
	}
	inserted, err := s.positions.Save(r.Context(), p)
	if err != nil {
		positionSaves.WithLabelValues("error").Inc()
		s.log.Error().Err(err).Str("tx", inv.TxHash).Msg("saving position failed")
		s.writeError(w, http.StatusInternalServerError, "failed to save investment")
		return
	}
	if !inserted {
		positionSaves.WithLabelValues("duplicate").Inc()
	} else {
		positionSaves.WithLabelValues("saved").Inc()
	}
	s.writeJSON(w, http.StatusOK, api.SaveResponse{Success: true, Duplicate: !inserted})
}

// decode reads a JSON body into v, answering 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		s.writeError(w, http.StatusBadRequest, "invalid JSON body: "+strings.TrimPrefix(err.Error(), "json: "))
		return false
	}
	return true
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Success: false, Error: message})
}
