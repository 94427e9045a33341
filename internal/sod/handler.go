package sod

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Handler exposes the conflict report. The permission table and rules are
// fixed at construction from configuration.
type Handler struct {
	logger *slog.Logger
	table  PermissionTable
	rules  []ConflictRule
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, table PermissionTable, rules []ConflictRule) *Handler {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Handler{logger: logger, table: table, rules: rules}
}

// MountRoutes attaches SoD routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/conflicts", h.conflicts)
}

type conflictReport struct {
	Conflicts []Conflict `json:"conflicts"`
	Rules     int        `json:"rules_evaluated"`
	Roles     int        `json:"roles_evaluated"`
}

func (h *Handler) conflicts(w http.ResponseWriter, r *http.Request) {
	found := Detect(h.table, h.rules)
	httpx.JSON(w, http.StatusOK, conflictReport{
		Conflicts: found,
		Rules:     len(h.rules),
		Roles:     len(h.table),
	})
}
