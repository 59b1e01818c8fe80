package stock

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/saitoboy/merenda-back-sub000/internal/observability"
	"github.com/saitoboy/merenda-back-sub000/internal/platform/httpx"
	"github.com/saitoboy/merenda-back-sub000/internal/shared"
)

const defaultExpiryHorizonDays = 7

// Handler wires stock endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	obs       *observability.Metrics
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, obs *observability.Metrics) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New(), obs: obs}
}

// MountReadRoutes registers the query endpoints. Role guards are applied by
// the caller.
func (h *Handler) MountReadRoutes(r chi.Router) {
	r.Get("/schools/{schoolID}", h.listBySchool)
	r.Get("/schools/{schoolID}/below-ideal", h.belowIdeal)
	r.Get("/schools/{schoolID}/near-expiry", h.nearExpiry)
	r.Get("/schools/{schoolID}/metrics", h.metrics)
}

// MountWriteRoutes registers the mutating endpoints.
func (h *Handler) MountWriteRoutes(r chi.Router) {
	r.Post("/ideal-quantities", h.reconcile)
	r.Patch("/{id}", h.patchRecord)
	r.Delete("/{id}", h.deleteRecord)
	r.Delete("/schools/{schoolID}/periods/{periodID}", h.deleteByPeriod)
}

type reconcileTarget struct {
	SchoolID      uuid.UUID `json:"school_id" validate:"required"`
	ItemID        uuid.UUID `json:"item_id" validate:"required"`
	SegmentID     uuid.UUID `json:"segment_id" validate:"required"`
	PeriodID      uuid.UUID `json:"period_id" validate:"required"`
	IdealQuantity int       `json:"ideal_quantity" validate:"gte=0"`
}

type reconcileRequest struct {
	Targets []reconcileTarget `json:"targets" validate:"required,min=1,dive"`
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	var req reconcileRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.ValidationError("invalid request body"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.ValidationError(err.Error()))
		return
	}

	targets := make([]IdealTarget, len(req.Targets))
	for i, t := range req.Targets {
		targets[i] = IdealTarget{
			SchoolID:      t.SchoolID,
			ItemID:        t.ItemID,
			SegmentID:     t.SegmentID,
			PeriodID:      t.PeriodID,
			IdealQuantity: t.IdealQuantity,
		}
	}

	results, err := h.service.ReconcileIdealQuantities(r.Context(), targets)
	if err != nil {
		h.logger.Error("reconcile ideal quantities failed", slog.Int("targets", len(targets)), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	h.obs.CountReconcileTargets(len(targets))
	httpx.JSON(w, http.StatusOK, map[string]any{"results": results})
}

func schoolIDParam(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "schoolID"))
}

func (h *Handler) listBySchool(w http.ResponseWriter, r *http.Request) {
	schoolID, err := schoolIDParam(r)
	if err != nil {
		httpx.RespondError(w, shared.ValidationError("invalid school id"))
		return
	}
	records, err := h.service.ListBySchool(r.Context(), schoolID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, records)
}

func (h *Handler) belowIdeal(w http.ResponseWriter, r *http.Request) {
	schoolID, err := schoolIDParam(r)
	if err != nil {
		httpx.RespondError(w, shared.ValidationError("invalid school id"))
		return
	}
	records, err := h.service.FindBelowIdeal(r.Context(), schoolID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, records)
}

func (h *Handler) nearExpiry(w http.ResponseWriter, r *http.Request) {
	schoolID, err := schoolIDParam(r)
	if err != nil {
		httpx.RespondError(w, shared.ValidationError("invalid school id"))
		return
	}
	horizon := defaultExpiryHorizonDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		horizon, err = strconv.Atoi(raw)
		if err != nil {
			httpx.RespondError(w, shared.ValidationError("days must be an integer"))
			return
		}
	}
	records, err := h.service.FindNearExpiry(r.Context(), schoolID, horizon)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, records)
}

func (h *Handler) metrics(w http.ResponseWriter, r *http.Request) {
	schoolID, err := schoolIDParam(r)
	if err != nil {
		httpx.RespondError(w, shared.ValidationError("invalid school id"))
		return
	}
	m, err := h.service.Metrics(r.Context(), schoolID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, m)
}

type patchRequest struct {
	QuantityOnHand *int    `json:"quantity_on_hand" validate:"omitempty,gte=0"`
	IdealQuantity  *int    `json:"ideal_quantity" validate:"omitempty,gte=0"`
	ExpiryDate     *string `json:"expiry_date"`
	ClearExpiry    bool    `json:"clear_expiry"`
	Note           *string `json:"note"`
}

func (h *Handler) patchRecord(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, shared.ValidationError("invalid record id"))
		return
	}
	var req patchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.ValidationError("invalid request body"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.ValidationError(err.Error()))
		return
	}

	patch := RecordPatch{
		QuantityOnHand: req.QuantityOnHand,
		IdealQuantity:  req.IdealQuantity,
		ClearExpiry:    req.ClearExpiry,
		Note:           req.Note,
	}
	if req.ExpiryDate != nil {
		expiry, err := time.Parse("2006-01-02", *req.ExpiryDate)
		if err != nil {
			httpx.RespondError(w, shared.ValidationError("expiry_date must use the YYYY-MM-DD format"))
			return
		}
		patch.ExpiryDate = &expiry
	}

	rec, err := h.service.UpdateRecord(r.Context(), id, patch)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) deleteRecord(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, shared.ValidationError("invalid record id"))
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteByPeriod(w http.ResponseWriter, r *http.Request) {
	schoolID, err := schoolIDParam(r)
	if err != nil {
		httpx.RespondError(w, shared.ValidationError("invalid school id"))
		return
	}
	periodID, err := uuid.Parse(chi.URLParam(r, "periodID"))
	if err != nil {
		httpx.RespondError(w, shared.ValidationError("invalid period id"))
		return
	}
	deleted, err := h.service.DeleteBySchoolAndPeriod(r.Context(), schoolID, periodID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}
