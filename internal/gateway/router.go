package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yourorg/portfolio-tracker/internal/auth"
	"github.com/yourorg/portfolio-tracker/internal/metrics"
)

type RouterOptions struct {
	CORSOrigins []string
	// Hub is optional; /ws is only mounted when it is set.
	Hub *Hub
}

func NewRouter(h *Handlers, jwtSvc *auth.JWTService, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/", h.Root)
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)
		r.Post("/auth/logout", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(jwtSvc))

			r.Get("/auth/me", h.Me)

			r.Post("/trades", h.CreateTrade)
			r.Get("/trades", h.ListTrades)
			r.Delete("/trades/{id}", h.DeleteTrade)

			r.Get("/portfolio", h.GetPortfolio)
			r.Get("/portfolio/summary", h.GetSummary)
			r.Delete("/portfolio/{symbol}", h.ClosePosition)

			r.Get("/watchlist", h.ListWatchlist)
			r.Post("/watchlist", h.AddWatchlist)
			r.Delete("/watchlist/{symbol}", h.RemoveWatchlist)

			r.Get("/stocks/{symbol}", h.GetStock)
			r.Post("/stocks/batch", h.BatchStocks)
			r.Get("/market/overview", h.MarketOverview)
		})
	})

	if opts.Hub != nil {
		r.Get("/ws", ServeWS(opts.Hub, opts.CORSOrigins, h.logger))
	}

	return r
}
