package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/observability"
)

// RouteMounter is implemented by every module handler.
type RouteMounter interface {
	MountRoutes(r chi.Router)
}

// RouterParams aggregates the handlers mounted on the HTTP API.
type RouterParams struct {
	Logger      *slog.Logger
	Config      *Config
	Metrics     *observability.Metrics
	Accounts    RouteMounter
	Journals    RouteMounter
	Reports     RouteMounter
	Receivables RouteMounter
	Payables    RouteMounter
	Budgets     RouteMounter
	Workflows   RouteMounter
	Expenses    RouteMounter
	SoD         RouteMounter
	Jobs        RouteMounter
}

// NewRouter assembles the service router with the full middleware chain.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	r.Use(params.Metrics.Middleware)
	for _, mw := range MiddlewareStack(MiddlewareConfig{Logger: params.Logger, Config: params.Config}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		mount(api, "/ledger/accounts", params.Accounts)
		mount(api, "/ledger/journals", params.Journals)
		mount(api, "/ledger/reports", params.Reports)
		mount(api, "/ar", params.Receivables)
		mount(api, "/ap", params.Payables)
		mount(api, "/budgets", params.Budgets)
		mount(api, "/workflows", params.Workflows)
		mount(api, "/expenses", params.Expenses)
		mount(api, "/sod", params.SoD)
		mount(api, "/jobs", params.Jobs)
	})

	return r
}

func mount(r chi.Router, pattern string, handler RouteMounter) {
	if handler == nil {
		return
	}
	r.Route(pattern, handler.MountRoutes)
}
