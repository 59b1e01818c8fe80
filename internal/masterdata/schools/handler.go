package schools

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	mdshared "github.com/saitoboy/merenda-back-sub000/internal/masterdata/shared"
	"github.com/saitoboy/merenda-back-sub000/internal/platform/httpx"
	"github.com/saitoboy/merenda-back-sub000/internal/shared"
)

type Handler struct {
	logger       *slog.Logger
	service      *Service
	requireWrite func(http.Handler) http.Handler
}

// NewHandler builds Handler. requireWrite guards the mutating routes.
func NewHandler(logger *slog.Logger, service *Service, requireWrite func(http.Handler) http.Handler) *Handler {
	return &Handler{logger: logger, service: service, requireWrite: requireWrite}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{id}", h.show)
	r.With(h.requireWrite).Post("/", h.create)
	r.With(h.requireWrite).Put("/{id}", h.update)
	r.With(h.requireWrite).Delete("/{id}", h.delete)
}

type schoolRequest struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	IsActive *bool  `json:"is_active"`
}

func (req schoolRequest) toModel() School {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return School{
		Name:     req.Name,
		Address:  req.Address,
		Phone:    req.Phone,
		Email:    req.Email,
		IsActive: active,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filters := mdshared.FiltersFromRequest(r)
	items, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list schools failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"schools":    items,
		"pagination": shared.NewPagination(filters.Page, filters.Limit, total),
	})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, shared.ValidationError("invalid school id"))
		return
	}
	school, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, school)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req schoolRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.ValidationError("invalid request body"))
		return
	}
	school, err := h.service.Create(r.Context(), req.toModel())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, school)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, shared.ValidationError("invalid school id"))
		return
	}
	var req schoolRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.ValidationError("invalid request body"))
		return
	}
	if err := h.service.Update(r.Context(), id, req.toModel()); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, shared.ValidationError("invalid school id"))
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
