package expenses

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler exposes expense report endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes attaches expense routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.submit)
	r.Get("/{id}", h.get)
	r.Post("/{id}/reimburse", h.reimburse)
}

type lineRequest struct {
	AccountID  int64   `json:"account_id" validate:"required"`
	Category   string  `json:"category"`
	Amount     float64 `json:"amount" validate:"required,gt=0"`
	IncurredAt string  `json:"incurred_at"`
	Memo       string  `json:"memo"`
}

type submitRequest struct {
	Number       string        `json:"number" validate:"required"`
	DepartmentID int64         `json:"department_id"`
	Lines        []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

type submitResponse struct {
	Report     Report     `json:"report"`
	Advisories []Advisory `json:"advisories"`
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	ident, _ := shared.IdentityFromContext(r.Context())
	var req submitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	in := SubmitInput{
		OrgID:        ident.OrgID,
		Number:       req.Number,
		EmployeeID:   ident.UserID,
		DepartmentID: req.DepartmentID,
	}
	for _, line := range req.Lines {
		item := LineItem{
			AccountID: line.AccountID,
			Category:  line.Category,
			Amount:    line.Amount,
			Memo:      line.Memo,
		}
		if line.IncurredAt != "" {
			incurred, err := time.Parse("2006-01-02", line.IncurredAt)
			if err != nil {
				httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "incurred_at must be YYYY-MM-DD")
				return
			}
			item.IncurredAt = incurred
		}
		in.Lines = append(in.Lines, item)
	}
	report, advisories, err := h.service.Submit(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, submitResponse{Report: report, Advisories: advisories})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ident, _ := shared.IdentityFromContext(r.Context())
	reports, err := h.service.List(r.Context(), ident.OrgID)
	if err != nil {
		h.logger.Error("list expense reports", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, reports)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	ident, _ := shared.IdentityFromContext(r.Context())
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	report, err := h.service.Get(r.Context(), ident.OrgID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) reimburse(w http.ResponseWriter, r *http.Request) {
	ident, _ := shared.IdentityFromContext(r.Context())
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	report, err := h.service.Reimburse(r.Context(), ident.OrgID, id, ident.UserID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid report id")
		return 0, false
	}
	return id, true
}
