package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/tasas/ratesync/internal/domain"
	"github.com/tasas/ratesync/internal/ingestion"
	"github.com/tasas/ratesync/internal/ratecalc"
	"github.com/tasas/ratesync/internal/reconciliation"
	"github.com/tasas/ratesync/internal/repository"
)

// Handlers groups all HTTP handler methods and their dependencies.
type Handlers struct {
	records   *repository.RecordRepo
	ledgers   *repository.LedgerRepo
	reconSvc  *reconciliation.Service
	ingestSvc *ingestion.Service
	calc      *ratecalc.Calculator
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps the engine's sentinel errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrLedgerNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidRange), errors.Is(err, domain.ErrUnknownField):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func parseDate(s string) (time.Time, bool) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return def
	}
	return v
}

// --- Ingest ---

func (h *Handlers) Ingest(w http.ResponseWriter, r *http.Request) {
	var values []domain.ScrapedValue
	if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	if len(values) == 0 {
		writeError(w, http.StatusBadRequest, "empty batch")
		return
	}

	res, err := h.ingestSvc.Apply(values)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// --- Ledgers ---

func (h *Handlers) ListLedgers(w http.ResponseWriter, r *http.Request) {
	ledgers, err := h.ledgers.List()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ledgers": ledgers})
}

func (h *Handlers) GetLedger(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ledger, err := h.ledgers.Load(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if ledger == nil {
		writeError(w, http.StatusNotFound, "ledger not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ledger": ledger,
		"state":  ledger.State(),
	})
}

func (h *Handlers) Detect(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	quantity := parseIntDefault(r.URL.Query().Get("quantity"), 30)

	report, err := h.reconSvc.DetectGaps(id, quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handlers) Resolve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	report, err := h.reconSvc.ResolveConflicts(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handlers) Scan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	field := domain.Series(r.URL.Query().Get("field"))
	quantity := parseIntDefault(r.URL.Query().Get("quantity"), 30)

	gaps, err := h.reconSvc.ScanMissingField(id, quantity, field)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"gaps": gaps, "count": len(gaps)})
}

// --- Rates ---

func (h *Handlers) ListRates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	from, ok := parseDate(q.Get("from"))
	if !ok {
		writeError(w, http.StatusBadRequest, "from is required (YYYY-MM-DD)")
		return
	}
	to, ok := parseDate(q.Get("to"))
	if !ok {
		writeError(w, http.StatusBadRequest, "to is required (YYYY-MM-DD)")
		return
	}

	recs, err := h.records.FindByDateRange(from, to)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": recs, "count": len(recs)})
}

func (h *Handlers) Interest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	series := domain.Series(q.Get("series"))
	from, okFrom := parseDate(q.Get("from"))
	to, okTo := parseDate(q.Get("to"))
	if !okFrom || !okTo {
		writeError(w, http.StatusBadRequest, "from and to are required (YYYY-MM-DD)")
		return
	}
	principal, err := strconv.ParseFloat(q.Get("principal"), 64)
	if err != nil || principal <= 0 {
		writeError(w, http.StatusBadRequest, "principal must be a positive number")
		return
	}

	res, err := h.calc.SimpleInterest(series, from, to, principal)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
