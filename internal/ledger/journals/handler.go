package journals

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler exposes journal endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes attaches journal routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Post("/{id}/submit", h.action(ActionSubmit))
	r.Post("/{id}/approve", h.action(ActionApprove))
	r.Post("/{id}/reject", h.action(ActionReject))
	r.Post("/{id}/post", h.action(ActionPost))
	r.Post("/{id}/reverse", h.reverse)
}

type lineRequest struct {
	AccountID    int64   `json:"account_id" validate:"required"`
	Debit        float64 `json:"debit"`
	Credit       float64 `json:"credit"`
	Memo         string  `json:"memo"`
	DepartmentID *int64  `json:"department_id"`
}

type createRequest struct {
	Date         string        `json:"date"`
	Memo         string        `json:"memo"`
	SourceModule string        `json:"source_module"`
	SourceRef    string        `json:"source_ref"`
	Lines        []lineRequest `json:"lines" validate:"required,min=2,dive"`
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
		Memo:         req.Memo,
		SourceModule: req.SourceModule,
		CreatedBy:    ident.UserID,
	}
	if req.Date != "" {
		date, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
			return
		}
		in.Date = date
	}
	if req.SourceRef != "" {
		ref, err := uuid.Parse(req.SourceRef)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "source_ref must be a UUID")
			return
		}
		in.SourceRef = ref
	}
	for _, line := range req.Lines {
		in.Lines = append(in.Lines, LineInput{
			AccountID:    line.AccountID,
			Debit:        line.Debit,
			Credit:       line.Credit,
			Memo:         line.Memo,
			DepartmentID: line.DepartmentID,
		})
	}
	entry, err := h.service.Create(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ident, _ := shared.IdentityFromContext(r.Context())
	entries, err := h.service.List(r.Context(), ident.OrgID)
	if err != nil {
		h.logger.Error("list journals", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	ident, _ := shared.IdentityFromContext(r.Context())
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	entry, err := h.service.Get(r.Context(), ident.OrgID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) action(action TransitionAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, _ := shared.IdentityFromContext(r.Context())
		id, ok := parseID(w, r)
		if !ok {
			return
		}
		var entry Entry
		var err error
		switch action {
		case ActionSubmit:
			entry, err = h.service.Submit(r.Context(), ident.OrgID, id, ident.UserID)
		case ActionApprove:
			entry, err = h.service.Approve(r.Context(), ident.OrgID, id, ident.UserID)
		case ActionReject:
			entry, err = h.service.Reject(r.Context(), ident.OrgID, id, ident.UserID)
		case ActionPost:
			entry, err = h.service.Post(r.Context(), ident.OrgID, id, ident.UserID)
		}
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, entry)
	}
}

type reverseRequest struct {
	Memo string `json:"memo"`
	Date string `json:"date"`
}

func (h *Handler) reverse(w http.ResponseWriter, r *http.Request) {
	ident, _ := shared.IdentityFromContext(r.Context())
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req reverseRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
			return
		}
	}
	in := ReverseInput{OrgID: ident.OrgID, EntryID: id, ActorID: ident.UserID, Memo: req.Memo}
	if req.Date != "" {
		date, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
			return
		}
		in.Date = &date
	}
	entry, err := h.service.Reverse(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid entry id")
		return 0, false
	}
	return id, true
}
