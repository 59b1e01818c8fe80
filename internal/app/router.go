package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/saitoboy/merenda-back-sub000/internal/auth"
	"github.com/saitoboy/merenda-back-sub000/internal/masterdata/items"
	"github.com/saitoboy/merenda-back-sub000/internal/masterdata/periods"
	"github.com/saitoboy/merenda-back-sub000/internal/masterdata/schools"
	"github.com/saitoboy/merenda-back-sub000/internal/masterdata/segments"
	"github.com/saitoboy/merenda-back-sub000/internal/masterdata/suppliers"
	"github.com/saitoboy/merenda-back-sub000/internal/observability"
	"github.com/saitoboy/merenda-back-sub000/internal/otp"
	"github.com/saitoboy/merenda-back-sub000/internal/stock"
	"github.com/saitoboy/merenda-back-sub000/internal/users"
	"github.com/saitoboy/merenda-back-sub000/jobs"
)

// RouterParams collects the handlers mounted by the HTTP router.
type RouterParams struct {
	Middleware MiddlewareConfig
	Auth       *auth.Handler
	AuthMW     auth.Middleware
	Users      *users.Handler
	OTP        *otp.Handler
	Stock      *stock.Handler
	Schools    *schools.Handler
	Items      *items.Handler
	Segments   *segments.Handler
	Periods    *periods.Handler
	Suppliers  *suppliers.Handler
	Jobs       *jobs.Handler
	Metrics    *observability.Metrics
}

// NewRouter wires every endpoint of the API.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(params.Middleware) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", params.Auth.MountRoutes)

		r.Route("/password-reset", func(r chi.Router) {
			r.Use(ResetRateLimiter())
			params.OTP.MountRoutes(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(params.AuthMW.RequireAuth)

			r.Route("/users", func(r chi.Router) {
				r.Use(params.AuthMW.RequireRoles(users.RoleAdmin))
				params.Users.MountRoutes(r)
			})

			r.Route("/stock", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(params.AuthMW.RequireRoles(users.RoleAdmin, users.RoleNutricionista, users.RoleEscola))
					params.Stock.MountReadRoutes(r)
				})
				r.Group(func(r chi.Router) {
					r.Use(params.AuthMW.RequireRoles(users.RoleAdmin, users.RoleNutricionista))
					params.Stock.MountWriteRoutes(r)
				})
			})

			r.Route("/schools", params.Schools.MountRoutes)
			r.Route("/items", params.Items.MountRoutes)
			r.Route("/segments", params.Segments.MountRoutes)
			r.Route("/periods", params.Periods.MountRoutes)
			r.Route("/suppliers", params.Suppliers.MountRoutes)

			if params.Jobs != nil {
				r.Route("/jobs", func(r chi.Router) {
					r.Use(params.AuthMW.RequireRoles(users.RoleAdmin))
					params.Jobs.MountRoutes(r)
				})
			}
		})
	})

	return r
}
