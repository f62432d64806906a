package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"auction/internal/auction"
	"auction/internal/auth"
	"auction/internal/models"
	"auction/internal/retry"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Signed request bodies are small; anything larger is refused
const maxEnvelopeBytes = 64 << 10

// handleIndex returns basic service information
// GET / - Returns service info and available endpoints
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"service":     "Auction Service",
		"version":     "1.0.0",
		"description": "Custodial single-item English auctions",
		"program_id":  s.engine.ProgramID().String(),
		"endpoints": map[string]string{
			"GET /":                     "This page - Service information",
			"GET /health":               "Health check endpoint",
			"GET /metrics":              "Prometheus metrics for monitoring",
			"POST /auctions":            "Create an auction (signed envelope)",
			"GET /auctions/{id}":        "Get auction state",
			"POST /auctions/{id}/bids":  "Place a bid (signed envelope)",
			"POST /auctions/{id}/close": "Close an auction (signed envelope)",
			"GET /bids/{id}":            "Get an accepted bid",
			"GET /accounts/{address}":   "Get a token account balance",
			"GET /authorities/{seller}": "Get the custodial authority for a seller",
		},
	}

	s.sendJSON(w, http.StatusOK, info)
}

// handleHealth returns health status
// GET /health - Health check for monitoring systems
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		slog.Error("Health check failed", "error", err)
		s.sendError(w, "Store unhealthy", http.StatusServiceUnavailable)
		return
	}

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   "auction",
	}

	s.sendJSON(w, http.StatusOK, health)
}

// handleMetrics returns Prometheus metrics
// GET /metrics - Prometheus scraping endpoint
func (s *Server) handleMetrics() http.Handler {
	return promhttp.Handler()
}

// =============================================================================
// AUCTION OPERATIONS
// =============================================================================

// handleCreateAuction opens a new auction
// POST /auctions
func (s *Server) handleCreateAuction(w http.ResponseWriter, r *http.Request) {
	env, signers, ok := s.readEnvelope(w, r)
	if !ok {
		return
	}

	var payload CreateAuctionPayload
	if err := decodePayload(env, &payload); err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	in, err := payload.input(signers)
	if err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var created *models.Auction
	err = s.execute(r.Context(), func() error {
		var err error
		created, err = s.engine.CreateAuction(r.Context(), in)
		return err
	})
	if err != nil {
		s.sendOperationError(w, r, err)
		return
	}

	s.sendAuction(w, http.StatusCreated, created)
}

// handlePlaceBid submits a bid
// POST /auctions/{id}/bids
func (s *Server) handlePlaceBid(w http.ResponseWriter, r *http.Request) {
	auctionID, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}
	env, signers, ok := s.readEnvelope(w, r)
	if !ok {
		return
	}

	var payload PlaceBidPayload
	if err := decodePayload(env, &payload); err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	in, err := payload.input(auctionID, signers)
	if err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var bid *models.Bid
	err = s.execute(r.Context(), func() error {
		var err error
		bid, err = s.engine.PlaceBid(r.Context(), in)
		return err
	})
	if err != nil {
		s.sendOperationError(w, r, err)
		return
	}

	s.sendJSON(w, http.StatusCreated, BuildBidResponse(bid, s.decimals))
}

// handleCloseAuction settles an auction
// POST /auctions/{id}/close
func (s *Server) handleCloseAuction(w http.ResponseWriter, r *http.Request) {
	auctionID, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}
	env, signers, ok := s.readEnvelope(w, r)
	if !ok {
		return
	}

	var payload CloseAuctionPayload
	if err := decodePayload(env, &payload); err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	in, err := payload.input(auctionID, signers)
	if err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var settlement *auction.Settlement
	err = s.execute(r.Context(), func() error {
		var err error
		settlement, err = s.engine.CloseAuction(r.Context(), in)
		return err
	})
	if err != nil {
		s.sendOperationError(w, r, err)
		return
	}

	s.sendJSON(w, http.StatusOK, BuildSettlementResponse(settlement, s.decimals))
}

// =============================================================================
// QUERIES
// =============================================================================

// handleGetAuction returns the current state of an auction
// GET /auctions/{id}
func (s *Server) handleGetAuction(w http.ResponseWriter, r *http.Request) {
	auctionID, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}

	a, err := s.engine.GetAuction(r.Context(), auctionID)
	if err != nil {
		s.sendOperationError(w, r, err)
		return
	}

	s.sendAuction(w, http.StatusOK, a)
}

// handleGetBid returns an accepted bid
// GET /bids/{id}
func (s *Server) handleGetBid(w http.ResponseWriter, r *http.Request) {
	bidID, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}

	bid, err := s.engine.GetBid(r.Context(), bidID)
	if err != nil {
		s.sendOperationError(w, r, err)
		return
	}

	s.sendJSON(w, http.StatusOK, BuildBidResponse(bid, s.decimals))
}

// handleGetAccount returns a token account balance
// GET /accounts/{address}
func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	address, err := models.ParseIdentity(chi.URLParam(r, "address"))
	if err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	account, err := s.engine.GetAccount(r.Context(), address)
	if err != nil {
		s.sendOperationError(w, r, err)
		return
	}

	s.sendJSON(w, http.StatusOK, BuildAccountResponse(account, s.decimals))
}

// handleGetAuthority returns the custodial authority holder accounts must be owned by
// GET /authorities/{seller}
func (s *Server) handleGetAuthority(w http.ResponseWriter, r *http.Request) {
	seller, err := models.ParseIdentity(chi.URLParam(r, "seller"))
	if err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	authority, err := s.engine.Authority(seller)
	if err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.sendJSON(w, http.StatusOK, models.AuthorityResponse{
		Seller:    seller.String(),
		ProgramID: authority.ProgramID.String(),
		Authority: authority.Address.String(),
	})
}

// =============================================================================
// PLUMBING
// =============================================================================

// readEnvelope decodes and verifies a signed request body
func (s *Server) readEnvelope(w http.ResponseWriter, r *http.Request) (auth.Envelope, auth.SignerSet, bool) {
	var env auth.Envelope

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEnvelopeBytes))
	if err := dec.Decode(&env); err != nil {
		s.sendError(w, "Invalid envelope: "+err.Error(), http.StatusBadRequest)
		return env, nil, false
	}
	if len(env.Payload) == 0 {
		s.sendError(w, "Envelope payload is empty", http.StatusBadRequest)
		return env, nil, false
	}

	signers, err := s.verifier.Verify(env)
	if err != nil {
		slog.Info("Rejected envelope", "request_id", middleware.GetReqID(r.Context()), "error", err)
		s.sendError(w, "Invalid signature: "+err.Error(), http.StatusUnauthorized)
		return env, nil, false
	}

	return env, signers, true
}

// execute runs a whole operation under the retry strategy.
// Refusals are final; only transient store failures are retried.
func (s *Server) execute(ctx context.Context, op func() error) error {
	return s.retry.Execute(ctx, func() error {
		err := op()
		if auction.KindOf(err) != "" {
			return retry.Permanent(err)
		}
		return err
	})
}

func (s *Server) pathUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		s.sendError(w, "Invalid "+param+": "+err.Error(), http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) sendAuction(w http.ResponseWriter, code int, a *models.Auction) {
	authority, err := s.engine.Authority(a.Seller)
	if err != nil {
		slog.Error("Failed to derive authority for response", "auction_id", a.ID, "error", err)
		s.sendError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.sendJSON(w, code, BuildAuctionResponse(a, authority.Address, s.decimals))
}

// statusForKind maps a refusal to the HTTP status a client should see
func statusForKind(kind auction.Kind) int {
	switch kind {
	case auction.KindAuthorization:
		return http.StatusForbidden
	case auction.KindNotFound:
		return http.StatusNotFound
	case auction.KindBidTooLow, auction.KindNotOngoing:
		return http.StatusConflict
	case auction.KindCustody, auction.KindDenominationMismatch, auction.KindRefundTargetMismatch, auction.KindTransfer:
		return http.StatusUnprocessableEntity
	case auction.KindInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// sendOperationError reports an engine error, hiding internal failures
func (s *Server) sendOperationError(w http.ResponseWriter, r *http.Request, err error) {
	kind := auction.KindOf(err)
	if kind == "" {
		slog.Error("Operation failed",
			"request_id", middleware.GetReqID(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			s.sendError(w, "Request cancelled", http.StatusServiceUnavailable)
			return
		}
		s.sendError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	code := statusForKind(kind)
	s.sendJSONError(w, models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: err.Error(),
		Kind:    string(kind),
		Code:    code,
	})
}

func (s *Server) sendJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) sendJSONError(w http.ResponseWriter, resp models.ErrorResponse) {
	s.sendJSON(w, resp.Code, resp)
}

// sendError sends a JSON error response
func (s *Server) sendError(w http.ResponseWriter, message string, code int) {
	s.sendJSONError(w, models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: message,
		Code:    code,
	})
}
