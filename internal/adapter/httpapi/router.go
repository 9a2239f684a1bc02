package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Routes creates and returns the router for the remittance JSON API
func Routes(h *Handlers, apiToken string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("healthy"))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(TokenAuth(apiToken))

		r.Get("/corridors", h.ListCorridorsHandler)
		r.Get("/corridors/{country}", h.ResolveCorridorHandler)
		r.Get("/rates", h.GetRatesHandler)
		r.Post("/quotes", h.QuoteHandler)

		r.Post("/transfers", h.CreateTransferHandler)
		r.Get("/transfers", h.ListTransfersHandler)
		r.Get("/transfers/{id}", h.GetTransferStatusHandler)

		r.Put("/sessions/{sessionID}/recipient", h.StoreRecipientHandler)
		r.Post("/sessions/{sessionID}/transfers", h.FundTransferHandler)
		r.Delete("/sessions/{sessionID}", h.EndSessionHandler)
	})

	return r
}
