package otp

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/saitoboy/merenda-back-sub000/internal/observability"
	"github.com/saitoboy/merenda-back-sub000/internal/platform/httpx"
	"github.com/saitoboy/merenda-back-sub000/internal/shared"
)

// Handler wires the password-reset endpoints. Both routes are public.
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

// MountRoutes registers reset routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/request-code", h.requestCode)
	r.Post("/verify", h.verify)
}

type requestCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (h *Handler) requestCode(w http.ResponseWriter, r *http.Request) {
	var req requestCodeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.ValidationError("invalid request body"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.ValidationError("e-mail inválido"))
		return
	}

	msg, err := h.service.RequestCode(r.Context(), req.Email)
	if err != nil {
		h.logger.Warn("request code failed", slog.String("email", req.Email), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	h.obs.CountOTPIssued()
	httpx.JSON(w, http.StatusOK, map[string]string{"message": msg})
}

type verifyRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required,len=6"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.ValidationError("invalid request body"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.ValidationError(err.Error()))
		return
	}

	msg, err := h.service.VerifyCodeAndResetPassword(r.Context(), req.Email, req.Code, req.NewPassword)
	if err != nil {
		h.logger.Warn("verify code failed", slog.String("email", req.Email), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": msg})
}
