package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/remitflow/remitflow-backend/internal/adapter/dto"
	"github.com/remitflow/remitflow-backend/internal/domain"
	"github.com/remitflow/remitflow-backend/internal/usecase/remittance"
)

const maxBodyBytes = 1 << 20

// Handlers holds the remittance service used by the HTTP handlers
type Handlers struct {
	service *remittance.Service
}

// NewHandlers creates a new instance of Handlers
func NewHandlers(service *remittance.Service) *Handlers {
	return &Handlers{service: service}
}

// ListCorridorsHandler lists corridors, optionally filtered by ?region=
func (h *Handlers) ListCorridorsHandler(w http.ResponseWriter, r *http.Request) {
	corridors := h.service.ListCorridors(r.URL.Query().Get("region"))
	writeJSON(w, http.StatusOK, dto.NewCorridorListView(corridors))
}

// ResolveCorridorHandler looks a single country up
func (h *Handlers) ResolveCorridorHandler(w http.ResponseWriter, r *http.Request) {
	cor, found := h.service.ResolveCorridor(chi.URLParam(r, "country"))
	if !found {
		writeError(w, http.StatusNotFound, domain.PublicMessage(domain.ErrUnsupportedCorridor))
		return
	}
	writeJSON(w, http.StatusOK, dto.NewCorridorView(cor))
}

// GetRatesHandler returns the current rate snapshot
func (h *Handlers) GetRatesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.NewRatesView(h.service.GetRateSnapshot(r.Context())))
}

// QuoteHandler prices a transfer without creating it
func (h *Handlers) QuoteHandler(w http.ResponseWriter, r *http.Request) {
	var req dto.QuoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	input, err := req.Input()
	if err != nil {
		writeServiceError(w, err)
		return
	}

	quote, err := h.service.QuoteTransfer(r.Context(), input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewQuoteView(quote))
}

// CreateTransferHandler prices and records a transfer
func (h *Handlers) CreateTransferHandler(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateTransferRequest
	if !decodeBody(w, r, &req) {
		return
	}
	input, err := req.Input()
	if err != nil {
		writeServiceError(w, err)
		return
	}

	t, err := h.service.PriceAndCreateTransfer(r.Context(), input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.NewTransferView(t))
}

// ListTransfersHandler lists recent transfers, newest first
func (h *Handlers) ListTransfersHandler(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}
	writeJSON(w, http.StatusOK, dto.NewTransferListView(h.service.ListTransfers(r.Context(), limit)))
}

// GetTransferStatusHandler runs a status check on a transfer
func (h *Handlers) GetTransferStatusHandler(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.GetTransferStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewTransferView(t))
}

// StoreRecipientHandler saves recipient bank details for a session
func (h *Handlers) StoreRecipientHandler(w http.ResponseWriter, r *http.Request) {
	var req dto.StoreRecipientRequest
	if !decodeBody(w, r, &req) {
		return
	}

	receipt, err := h.service.StoreRecipientDetails(chi.URLParam(r, "sessionID"), req.Details())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewReceiptView(receipt))
}

// FundTransferHandler creates a transfer paid out to the session's stored
// recipient details
func (h *Handlers) FundTransferHandler(w http.ResponseWriter, r *http.Request) {
	var req dto.FundTransferRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.SessionID = chi.URLParam(r, "sessionID")
	input, err := req.Input()
	if err != nil {
		writeServiceError(w, err)
		return
	}

	t, err := h.service.FundTransferFromSession(r.Context(), input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.NewTransferView(t))
}

// EndSessionHandler forgets any recipient details stored for a session
func (h *Handlers) EndSessionHandler(w http.ResponseWriter, r *http.Request) {
	forgotten := h.service.EndSession(chi.URLParam(r, "sessionID"))
	writeJSON(w, http.StatusOK, dto.EndSessionView{Forgotten: forgotten})
}

// statusFor maps a service error to an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrLimitExceeded), errors.Is(err, domain.ErrUnsupportedCorridor):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRateUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		log.Printf("level=error component=api msg=\"request failed\" err=%v", err)
	}
	writeError(w, code, domain.PublicMessage(err))
}

func decodeBody(w http.ResponseWriter, r *http.Request, out interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// writeJSON is a helper for writing JSON responses.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, dto.ErrorView{Error: message})
}
