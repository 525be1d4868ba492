package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fjod/cats-den/internal/auth"
	"github.com/fjod/cats-den/internal/telemetry"
)

type RouterConfig struct {
	Auth     *AuthHandler
	Orders   *OrdersHandler
	Account  *AccountHandler
	Webhooks *WebhookHandler
	Catalog  *CatalogHandler
	Cart     *CartHandler

	// PaymentSim, when set, mounts the mock provider controls under /admin.
	PaymentSim *PaymentSimHandler

	Tokens      *auth.TokenManager
	AuthLimiter *auth.RateLimiter
	Metrics     *telemetry.Metrics

	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	AdminToken         string
	// Tracing wraps the router with otelhttp spans.
	Tracing bool
	// Ready, when set, backs /health with a dependency check.
	Ready func(ctx context.Context) error
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// The auth rate limiter keys on the peer address, so nothing here may
	// rewrite RemoteAddr from forwarding headers.
	r.Use(middleware.RequestID)
	r.Use(RequestIDHeader)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}
	r.Use(middleware.Compress(5))
	r.Use(MaxBodySize(cfg.MaxRequestBodySize))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}
	if cfg.Tokens != nil {
		r.Use(cfg.Tokens.Middleware)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := cfg.Ready(ctx); err != nil {
				respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			if cfg.AuthLimiter != nil {
				r.Use(cfg.AuthLimiter.Middleware(rateLimited))
			}
			r.Post("/register", cfg.Auth.Register)
			r.Post("/login", cfg.Auth.Login)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", cfg.Orders.ListOrders)
			r.Post("/", cfg.Orders.CreateOrder)
			r.Get("/{orderNumber}", cfg.Orders.GetOrder)
			r.Post("/{orderNumber}/payment-intent", cfg.Orders.CreatePaymentIntent)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(AdminOnly(cfg.AdminToken))
			r.Patch("/orders/{orderNumber}/status", cfg.Orders.UpdateStatus)
			if cfg.PaymentSim != nil {
				r.Route("/payments/{intentId}", func(r chi.Router) {
					r.Get("/", cfg.PaymentSim.GetIntent)
					r.Post("/confirm", cfg.PaymentSim.Confirm)
					r.Post("/refund", cfg.PaymentSim.Refund)
					r.Post("/cancel", cfg.PaymentSim.Cancel)
				})
			}
		})

		r.Route("/webhooks", func(r chi.Router) {
			r.Post("/payment", cfg.Webhooks.Payment)
			r.Post("/cms", cfg.Webhooks.CMS)
		})

		r.Route("/account", func(r chi.Router) {
			r.Get("/", cfg.Account.Profile)
			r.Post("/addresses", cfg.Account.AddAddress)
			r.Delete("/addresses/{id}", cfg.Account.RemoveAddress)
			r.Put("/wishlist/{kittenId}", cfg.Account.AddToWishlist)
			r.Delete("/wishlist/{kittenId}", cfg.Account.RemoveFromWishlist)
		})

		r.Get("/breeds", cfg.Catalog.Breeds)
		r.Get("/breeds/{slug}", cfg.Catalog.Breed)
		r.Get("/kittens", cfg.Catalog.Kittens)
		r.Get("/kittens/featured", cfg.Catalog.FeaturedKittens)
		r.Get("/kittens/{slug}", cfg.Catalog.Kitten)
		r.Get("/blog", cfg.Catalog.BlogPosts)
		r.Get("/blog/{slug}", cfg.Catalog.BlogPost)
		r.Get("/testimonials", cfg.Catalog.Testimonials)
		r.Get("/pages/{slug}", cfg.Catalog.Page)
		r.Get("/home", cfg.Catalog.Home)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cfg.Cart.GetCart)
			r.Delete("/", cfg.Cart.ClearCart)
			r.Post("/items", cfg.Cart.AddItem)
			r.Delete("/items/{kittenId}", cfg.Cart.RemoveItem)
		})
	})

	if cfg.Tracing {
		return otelhttp.NewHandler(r, "catsden")
	}
	return r
}
