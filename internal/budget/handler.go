package budget

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler exposes department and budget endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes attaches budget routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/departments", h.listDepartments)
	r.Post("/departments", h.createDepartment)
	r.Get("/departments/{id}/kpis", h.departmentKPIs)
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Get("/{id}/variance", h.variance)
}

type departmentRequest struct {
	Name      string `json:"name" validate:"required"`
	Headcount int    `json:"headcount" validate:"gte=0"`
}

func (h *Handler) createDepartment(w http.ResponseWriter, r *http.Request) {
	ident, _ := shared.IdentityFromContext(r.Context())
	var req departmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	dept, err := h.service.CreateDepartment(r.Context(), DepartmentInput{
		OrgID:     ident.OrgID,
		Name:      req.Name,
		Headcount: req.Headcount,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, dept)
}

func (h *Handler) listDepartments(w http.ResponseWriter, r *http.Request) {
	ident, _ := shared.IdentityFromContext(r.Context())
	departments, err := h.service.ListDepartments(r.Context(), ident.OrgID)
	if err != nil {
		h.logger.Error("list departments", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, departments)
}

func (h *Handler) departmentKPIs(w http.ResponseWriter, r *http.Request) {
	ident, _ := shared.IdentityFromContext(r.Context())
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	year, err := strconv.Atoi(r.URL.Query().Get("fiscal_year"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "fiscal_year query parameter required")
		return
	}
	kpis, err := h.service.DepartmentKPIs(r.Context(), ident.OrgID, id, year)
	if err != nil {
		h.logger.Error("department kpis", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, kpis)
}

type lineRequest struct {
	AccountID int64   `json:"account_id" validate:"required"`
	Q1        float64 `json:"q1" validate:"gte=0"`
	Q2        float64 `json:"q2" validate:"gte=0"`
	Q3        float64 `json:"q3" validate:"gte=0"`
	Q4        float64 `json:"q4" validate:"gte=0"`
}

type createRequest struct {
	DepartmentID int64         `json:"department_id" validate:"required"`
	FiscalYear   int           `json:"fiscal_year" validate:"required"`
	Lines        []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	ident, _ := shared.IdentityFromContext(r.Context())
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	in := CreateInput{
		OrgID:        ident.OrgID,
		DepartmentID: req.DepartmentID,
		FiscalYear:   req.FiscalYear,
		CreatedBy:    ident.UserID,
	}
	for _, line := range req.Lines {
		in.Lines = append(in.Lines, LineInput{AccountID: line.AccountID, Q1: line.Q1, Q2: line.Q2, Q3: line.Q3, Q4: line.Q4})
	}
	b, err := h.service.Create(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, b)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ident, _ := shared.IdentityFromContext(r.Context())
	budgets, err := h.service.List(r.Context(), ident.OrgID)
	if err != nil {
		h.logger.Error("list budgets", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, budgets)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	ident, _ := shared.IdentityFromContext(r.Context())
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	b, err := h.service.Get(r.Context(), ident.OrgID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) variance(w http.ResponseWriter, r *http.Request) {
	ident, _ := shared.IdentityFromContext(r.Context())
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	report, err := h.service.Variance(r.Context(), ident.OrgID, id)
	if err != nil {
		h.logger.Error("budget variance", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return 0, false
	}
	return id, true
}
