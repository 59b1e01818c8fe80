package periods

import (
	"log/slog"
	"net/http"
	"time"

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
	r.With(h.requireWrite).Post("/{id}/activate", h.activate)
	r.With(h.requireWrite).Post("/{id}/close", h.close)
	r.With(h.requireWrite).Delete("/{id}", h.delete)
}

type periodRequest struct {
	Name     string `json:"name"`
	StartsAt string `json:"starts_at"`
	EndsAt   string `json:"ends_at"`
}

func (req periodRequest) toModel() (Period, error) {
	starts, err := time.Parse("2006-01-02", req.StartsAt)
	if err != nil {
		return Period{}, shared.ValidationError("starts_at must use the YYYY-MM-DD format")
	}
	ends, err := time.Parse("2006-01-02", req.EndsAt)
	if err != nil {
		return Period{}, shared.ValidationError("ends_at must use the YYYY-MM-DD format")
	}
	return Period{Name: req.Name, StartsAt: starts, EndsAt: ends}, nil
}

func idParam(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list periods failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"periods": out})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.RespondError(w, shared.ValidationError("invalid period id"))
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req periodRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.ValidationError("invalid request body"))
		return
	}
	p, err := req.toModel()
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	created, err := h.service.Create(r.Context(), p)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.RespondError(w, shared.ValidationError("invalid period id"))
		return
	}
	var req periodRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.ValidationError("invalid request body"))
		return
	}
	p, err := req.toModel()
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Update(r.Context(), id, p); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) activate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.RespondError(w, shared.ValidationError("invalid period id"))
		return
	}
	if err := h.service.Activate(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.RespondError(w, shared.ValidationError("invalid period id"))
		return
	}
	if err := h.service.Close(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.RespondError(w, shared.ValidationError("invalid period id"))
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
