package workflow

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler exposes workflow endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes attaches workflow routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/templates", h.listTemplates)
	r.Post("/templates", h.createTemplate)
	r.Post("/instances", h.start)
	r.Get("/instances/{id}", h.get)
	r.Post("/instances/{id}/approve", h.approve)
	r.Post("/instances/{id}/reject", h.reject)
	r.Post("/instances/{id}/cancel", h.cancel)
	r.Get("/pending", h.pending)
}

type stepRequest struct {
	Name string `json:"name"`
	Role string `json:"role" validate:"required"`
}

type templateRequest struct {
	Code  string        `json:"code" validate:"required"`
	Name  string        `json:"name"`
	Steps []stepRequest `json:"steps" validate:"required,min=1,dive"`
}

func (h *Handler) createTemplate(w http.ResponseWriter, r *http.Request) {
	ident, _ := shared.IdentityFromContext(r.Context())
	var req templateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	in := TemplateInput{OrgID: ident.OrgID, Code: req.Code, Name: req.Name, ActorID: ident.UserID}
	for _, step := range req.Steps {
		in.Steps = append(in.Steps, StepInput{Name: step.Name, Role: step.Role})
	}
	tpl, err := h.service.CreateTemplate(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, tpl)
}

func (h *Handler) listTemplates(w http.ResponseWriter, r *http.Request) {
	ident, _ := shared.IdentityFromContext(r.Context())
	templates, err := h.service.ListTemplates(r.Context(), ident.OrgID)
	if err != nil {
		h.logger.Error("list workflow templates", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, templates)
}

type startRequest struct {
	Template     string `json:"template" validate:"required"`
	ResourceType string `json:"resource_type"`
	ResourceRef  string `json:"resource_ref" validate:"required"`
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	ident, _ := shared.IdentityFromContext(r.Context())
	var req startRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	ref, err := uuid.Parse(req.ResourceRef)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "resource_ref must be a UUID")
		return
	}
	resourceType := req.ResourceType
	if resourceType == "" {
		resourceType = req.Template
	}
	inst, err := h.service.Start(r.Context(), StartInput{
		OrgID:        ident.OrgID,
		Template:     req.Template,
		ResourceType: resourceType,
		ResourceRef:  ref,
		SubmittedBy:  ident.UserID,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inst)
}

type instanceResponse struct {
	Instance Instance     `json:"instance"`
	Actions  []StepAction `json:"actions"`
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	ident, _ := shared.IdentityFromContext(r.Context())
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	inst, actions, err := h.service.Get(r.Context(), ident.OrgID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, instanceResponse{Instance: inst, Actions: actions})
}

type decisionRequest struct {
	Step    int    `json:"step" validate:"required,min=1"`
	Comment string `json:"comment"`
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, DecisionApprove)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, DecisionReject)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, decision Decision) {
	ident, _ := shared.IdentityFromContext(r.Context())
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req decisionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	inst, err := h.service.ProcessApproval(r.Context(), ApprovalInput{
		OrgID:      ident.OrgID,
		InstanceID: id,
		StepOrder:  req.Step,
		ActorID:    ident.UserID,
		ActorRole:  ident.Role,
		Decision:   decision,
		Comment:    req.Comment,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inst)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	ident, _ := shared.IdentityFromContext(r.Context())
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	inst, err := h.service.Cancel(r.Context(), ident.OrgID, id, ident.UserID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inst)
}

func (h *Handler) pending(w http.ResponseWriter, r *http.Request) {
	ident, _ := shared.IdentityFromContext(r.Context())
	role := r.URL.Query().Get("role")
	if role == "" {
		role = ident.Role
	}
	items, err := h.service.PendingForRole(r.Context(), ident.OrgID, role)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid instance id")
		return 0, false
	}
	return id, true
}
