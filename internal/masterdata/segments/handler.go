package segments

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

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

type segmentRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	segs, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list segments failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"segments": segs})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, shared.ValidationError("invalid segment id"))
		return
	}
	seg, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, seg)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req segmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.ValidationError("invalid request body"))
		return
	}
	seg, err := h.service.Create(r.Context(), Segment{Name: req.Name, Description: req.Description})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, seg)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, shared.ValidationError("invalid segment id"))
		return
	}
	var req segmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.ValidationError("invalid request body"))
		return
	}
	if err := h.service.Update(r.Context(), id, Segment{Name: req.Name, Description: req.Description}); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, shared.ValidationError("invalid segment id"))
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
