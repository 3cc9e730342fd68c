package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tasas/ratesync/internal/ingestion"
	"github.com/tasas/ratesync/internal/ratecalc"
	"github.com/tasas/ratesync/internal/reconciliation"
	"github.com/tasas/ratesync/internal/repository"
)

// NewRouter creates the Chi router with all API routes mounted.
func NewRouter(
	records *repository.RecordRepo,
	ledgers *repository.LedgerRepo,
	reconSvc *reconciliation.Service,
	ingestSvc *ingestion.Service,
	calc *ratecalc.Calculator,
) http.Handler {
	h := &Handlers{
		records:   records,
		ledgers:   ledgers,
		reconSvc:  reconSvc,
		ingestSvc: ingestSvc,
		calc:      calc,
	}

	r := chi.NewRouter()

	// Middleware.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.SetHeader("Content-Type", "application/json"))

	r.Route("/api/v1", func(r chi.Router) {
		// Ingestion.
		r.Post("/ingest", h.Ingest)

		// Reconciliation.
		r.Route("/ledgers", func(r chi.Router) {
			r.Get("/", h.ListLedgers)
			r.Get("/{id}", h.GetLedger)
			r.Post("/{id}/detect", h.Detect)
			r.Post("/{id}/resolve", h.Resolve)
			r.Post("/{id}/scan", h.Scan)
		})

		// Rates.
		r.Get("/rates", h.ListRates)
		r.Get("/rates/interest", h.Interest)
	})

	return r
}
