package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ecomhq/storefront-backend/api/controllers"
	"github.com/ecomhq/storefront-backend/api/middleware"
	"github.com/ecomhq/storefront-backend/internal/accounts"
	"github.com/ecomhq/storefront-backend/internal/cart"
	"github.com/ecomhq/storefront-backend/internal/catalog"
	"github.com/ecomhq/storefront-backend/internal/ledger"
	"github.com/ecomhq/storefront-backend/internal/reports"
	"github.com/ecomhq/storefront-backend/pkg/auth/session"
	"github.com/ecomhq/storefront-backend/pkg/config"
	"github.com/ecomhq/storefront-backend/pkg/enums"
	"github.com/ecomhq/storefront-backend/pkg/logger"
	"github.com/ecomhq/storefront-backend/pkg/metrics"
	"github.com/ecomhq/storefront-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

// Pinger is what readiness needs from a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps carries everything the router mounts. Keeping it a struct makes main's
// wiring readable and lets tests fill only what they exercise.
type Deps struct {
	Config         *config.Config
	Logger         *logger.Logger
	DBPinger       Pinger
	RedisClient    *redis.Client
	SessionManager sessionManager
	Registry       *prometheus.Registry
	HTTPMetrics    *metrics.HTTPMetrics

	Accounts accounts.Service
	Catalog  catalog.Service
	Cart     cart.Service
	Ledger   ledger.Service
	Reports  reports.Service
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, d.HTTPMetrics),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginUsernameLimit,
	)
	signupPolicy := middleware.NewAuthRateLimitPolicy(
		"signup",
		cfg.AuthRateLimit.SignupWindow,
		cfg.AuthRateLimit.SignupIPLimit,
		cfg.AuthRateLimit.SignupUsernameLimit,
	)
	resetPolicy := middleware.NewAuthRateLimitPolicy(
		"reset",
		cfg.AuthRateLimit.ResetWindow,
		cfg.AuthRateLimit.ResetIPLimit,
		cfg.AuthRateLimit.ResetUsernameLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.DBPinger, d.RedisClient))
	})

	if d.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(signupPolicy, d.RedisClient, logg)).Post("/signup", controllers.AuthSignup(d.Accounts, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, d.RedisClient, logg)).Post("/login", controllers.AuthLogin(d.Accounts, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, d.RedisClient, logg)).Post("/host-login", controllers.HostAuthLogin(d.Accounts, logg))
		r.With(middleware.AuthRateLimit(resetPolicy, d.RedisClient, logg)).Post("/reset-password", controllers.AuthResetPassword(d.Accounts, logg))
		r.Post("/logout", controllers.AuthLogout(d.SessionManager, cfg.JWT, logg))
		r.Post("/refresh", controllers.AuthRefresh(d.SessionManager, cfg.JWT, logg))
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ProductList(d.Catalog, logg))
		r.Get("/popular", controllers.ProductPopular(d.Catalog, logg))
		r.Get("/featured", controllers.ProductFeatured(d.Catalog, logg))
		r.Get("/{productId}", controllers.ProductDetail(d.Catalog, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, d.SessionManager, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.RoleShopper), logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartView(d.Cart, logg))
				r.Post("/lines", controllers.CartAdd(d.Cart, logg))
				r.Put("/lines/{productId}", controllers.CartSetQuantity(d.Cart, logg))
				r.Delete("/lines/{productId}", controllers.CartRemove(d.Cart, logg))
			})
			r.Post("/checkout", controllers.Checkout(d.Cart, logg))
			r.Get("/purchases", controllers.PurchaseHistory(d.Ledger, logg))

			r.Get("/me", controllers.Profile(d.Accounts, logg))
			r.Post("/me/password", controllers.ChangePassword(d.Accounts, logg))
		})

		r.Route("/host", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.RoleHost), logg))

			r.Get("/me", controllers.HostProfile(d.Accounts, logg))
			r.Post("/me/password", controllers.HostChangePassword(d.Accounts, logg))

			r.Route("/products", func(r chi.Router) {
				r.Post("/", controllers.HostProductCreate(d.Catalog, logg))
				r.Put("/{productId}", controllers.HostProductUpdate(d.Catalog, logg))
				r.Delete("/{productId}", controllers.HostProductDelete(d.Catalog, logg))
			})

			r.Route("/reports", func(r chi.Router) {
				r.Get("/sales", controllers.HostSalesReport(d.Reports, logg))
				r.Get("/filters", controllers.HostReportFilters(d.Reports, logg))
			})
		})
	})

	return r
}
