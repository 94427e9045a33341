package reports

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler exposes statement endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes attaches report routes. Exports get a tighter rate limit since
// they bypass the cache-encoded JSON path.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/trial-balance", h.trialBalance)
	r.Get("/income-statement", h.incomeStatement)
	r.Get("/balance-sheet", h.balanceSheet)
	r.Get("/cash-flow", h.cashFlow)
	r.Group(func(r chi.Router) {
		r.Use(httprate.Limit(10, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		r.Get("/trial-balance/export.csv", h.trialBalanceCSV)
	})
}

func (h *Handler) trialBalance(w http.ResponseWriter, r *http.Request) {
	ident, _ := shared.IdentityFromContext(r.Context())
	asOf, ok := parseDate(w, r, "as_of", time.Now())
	if !ok {
		return
	}
	tb, err := h.service.TrialBalance(r.Context(), ident.OrgID, asOf)
	if err != nil {
		h.logger.Error("trial balance", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tb)
}

func (h *Handler) incomeStatement(w http.ResponseWriter, r *http.Request) {
	ident, _ := shared.IdentityFromContext(r.Context())
	from, to, ok := parsePeriod(w, r)
	if !ok {
		return
	}
	is, err := h.service.IncomeStatement(r.Context(), ident.OrgID, from, to)
	if err != nil {
		h.logger.Error("income statement", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, is)
}

func (h *Handler) balanceSheet(w http.ResponseWriter, r *http.Request) {
	ident, _ := shared.IdentityFromContext(r.Context())
	asOf, ok := parseDate(w, r, "as_of", time.Now())
	if !ok {
		return
	}
	bs, err := h.service.BalanceSheet(r.Context(), ident.OrgID, asOf)
	if err != nil {
		h.logger.Error("balance sheet", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bs)
}

func (h *Handler) cashFlow(w http.ResponseWriter, r *http.Request) {
	ident, _ := shared.IdentityFromContext(r.Context())
	from, to, ok := parsePeriod(w, r)
	if !ok {
		return
	}
	cf, err := h.service.CashFlow(r.Context(), ident.OrgID, from, to)
	if err != nil {
		h.logger.Error("cash flow", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, cf)
}

func (h *Handler) trialBalanceCSV(w http.ResponseWriter, r *http.Request) {
	ident, _ := shared.IdentityFromContext(r.Context())
	asOf, ok := parseDate(w, r, "as_of", time.Now())
	if !ok {
		return
	}
	tb, err := h.service.TrialBalance(r.Context(), ident.OrgID, asOf)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=trial_balance_%s.csv", asOf.Format("2006-01-02")))
	buf := bufio.NewWriter(w)
	writer := csv.NewWriter(buf)
	writer.UseCRLF = true
	_ = writer.Write([]string{"code", "name", "classification", "debit", "credit"})
	for _, row := range tb.Rows {
		_ = writer.Write([]string{row.Code, row.Name, row.Classification, money(row.Debit), money(row.Credit)})
	}
	_ = writer.Write([]string{"", "TOTAL", "", money(tb.TotalDebit), money(tb.TotalCredit)})
	writer.Flush()
	if err := writer.Error(); err != nil {
		h.logger.Error("trial balance csv", slog.Any("error", err))
		return
	}
	_ = buf.Flush()
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func parseDate(w http.ResponseWriter, r *http.Request, name string, fallback time.Time) (time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, true
	}
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", name+" must be YYYY-MM-DD")
		return time.Time{}, false
	}
	return date, true
}

func parsePeriod(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	from, ok := parseDate(w, r, "from", monthStart)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	to, ok := parseDate(w, r, "to", now)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	if to.Before(from) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "to must not precede from")
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}
