package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourorg/portfolio-tracker/internal/auth"
	"github.com/yourorg/portfolio-tracker/internal/config"
	"github.com/yourorg/portfolio-tracker/internal/events"
	"github.com/yourorg/portfolio-tracker/internal/gateway"
	"github.com/yourorg/portfolio-tracker/internal/ingestion"
	"github.com/yourorg/portfolio-tracker/internal/ledger"
	"github.com/yourorg/portfolio-tracker/internal/portfolio"
	"github.com/yourorg/portfolio-tracker/internal/quote"
	"github.com/yourorg/portfolio-tracker/internal/repository/memory"
	pgRepo "github.com/yourorg/portfolio-tracker/internal/repository/postgres"
	redisRepo "github.com/yourorg/portfolio-tracker/internal/repository/redis"
	"github.com/yourorg/portfolio-tracker/internal/watchlist"
)

type watchlistStore interface {
	watchlist.Store
	ingestion.SymbolSource
}

type stores struct {
	users     auth.UserStore
	trades    ledger.Store
	watchlist watchlistStore
}

func newUpstreamProvider(cfg *config.Config, logger *slog.Logger) quote.Provider {
	if cfg.QuoteProvider == config.ProviderStatic {
		return demoQuotes()
	}
	return quote.NewYahooClient(quote.YahooOptions{
		BaseURL:   cfg.QuoteBaseURL,
		Timeout:   cfg.QuoteTimeout,
		RateLimit: cfg.QuoteRateLimit,
		RateBurst: cfg.QuoteRateBurst,
	}, logger)
}

// demoQuotes backs QUOTE_PROVIDER=static for local development.
func demoQuotes() *quote.StaticProvider {
	p := quote.NewStaticProvider()
	for sym, px := range map[string][2]int64{
		"AAPL": {190, 188}, "MSFT": {420, 415}, "GOOGL": {170, 172}, "AMZN": {185, 183},
		"TSLA": {250, 244}, "NVDA": {900, 880}, "META": {500, 505}, "NFLX": {620, 611},
	} {
		p.Set(sym, decimal.NewFromInt(px[0]), decimal.NewFromInt(px[1]))
	}
	return p
}

func serve(parent context.Context, cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	readiness := map[string]gateway.ReadinessCheck{}

	var st stores
	switch cfg.StorageDriver {
	case config.StorageMemory:
		st.users = memory.NewUserRepo()
		st.trades = memory.NewTradeRepo()
		st.watchlist = memory.NewWatchlistRepo()
		logger.Warn("using in-memory storage; data is lost on restart")
	default:
		db, err := pgRepo.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer db.Close()
		logger.Info("database connected")

		if err := pgRepo.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("migrations applied")

		st.users = pgRepo.NewUserRepo(db)
		st.trades = pgRepo.NewTradeRepo(db)
		st.watchlist = pgRepo.NewWatchlistRepo(db)
		readiness["postgres"] = db.PingContext
	}

	upstream := newUpstreamProvider(cfg, logger)
	var quotes quote.Provider = upstream
	var hub *gateway.Hub
	if cfg.RedisURL != "" {
		redisClient, err := redisRepo.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisClient.Close()
		logger.Info("redis connected")

		quoteRepo := redisRepo.NewQuoteRepo(redisClient, cfg.QuoteCacheTTL)
		readiness["redis"] = quoteRepo.Ping
		quotes = quote.NewCachedProvider(upstream, quoteRepo, logger)

		hub = gateway.NewHub(quoteRepo, logger)
		go hub.Run(ctx)

		poller := ingestion.NewPoller(upstream, quoteRepo, ingestion.Options{
			Interval:    cfg.QuotePollInterval,
			Timeout:     cfg.QuoteTimeout,
			Concurrency: cfg.QuoteConcurrency,
		}, logger, st.trades, st.watchlist)
		go poller.Run(ctx)
	} else {
		logger.Info("REDIS_URL not set; quote streaming disabled")
	}

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer kp.Close()
		publisher = kp
		logger.Info("publishing trade events", "topic", cfg.KafkaTopic)
	}

	holdings, err := portfolio.NewHoldingCache(cfg.PositionCacheSize)
	if err != nil {
		return fmt.Errorf("holding cache: %w", err)
	}
	defer holdings.Close()

	jwtSvc := auth.NewJWTService(cfg.JWTSecret, cfg.SessionTTL)
	handlers := gateway.NewHandlers(gateway.Deps{
		Auth:   auth.NewService(st.users, jwtSvc, auth.DefaultBcryptCost, logger),
		Ledger: ledger.NewService(st.trades, publisher, logger),
		Portfolio: portfolio.NewService(st.trades, quotes, holdings, portfolio.Options{
			QuoteTimeout:     cfg.QuoteTimeout,
			QuoteConcurrency: cfg.QuoteConcurrency,
		}, logger),
		Watchlist:        watchlist.NewService(st.watchlist, quotes, cfg.QuoteTimeout, cfg.QuoteConcurrency, logger),
		Quotes:           quotes,
		QuoteTimeout:     cfg.QuoteTimeout,
		QuoteConcurrency: cfg.QuoteConcurrency,
		CookieSecure:     cfg.CookieSecure,
		Readiness:        readiness,
		Logger:           logger,
	})
	router := gateway.NewRouter(handlers, jwtSvc, gateway.RouterOptions{
		CORSOrigins: cfg.CORSOrigins,
		Hub:         hub,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port, "storage", cfg.StorageDriver, "quotes", cfg.QuoteProvider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "err", err)
	}
	logger.Info("server stopped")
	return nil
}
