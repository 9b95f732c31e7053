package quote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/yourorg/portfolio-tracker/internal/domain"
	"github.com/yourorg/portfolio-tracker/internal/metrics"
	"golang.org/x/time/rate"
)

const (
	DefaultYahooBaseURL = "https://query1.finance.yahoo.com"
	chartPath           = "/v8/finance/chart/{symbol}"
	userAgent           = "Mozilla/5.0 (compatible; portfolio-tracker/1.0)"
)

type YahooOptions struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64
	RateBurst int
}

// YahooClient reads quotes from the Yahoo Finance chart endpoint.
type YahooClient struct {
	client  *resty.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

var _ Provider = (*YahooClient)(nil)

func NewYahooClient(opts YahooOptions, logger *slog.Logger) *YahooClient {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultYahooBaseURL
	}
	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	burst := opts.RateBurst
	if burst < 1 {
		burst = 1
	}
	client := resty.New().
		SetBaseURL(opts.BaseURL).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json")
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}
	return &YahooClient{
		client:  client,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta chartMeta `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartMeta struct {
	Symbol              string          `json:"symbol"`
	RegularMarketPrice  decimal.Decimal `json:"regularMarketPrice"`
	ChartPreviousClose  decimal.Decimal `json:"chartPreviousClose"`
	PreviousClose       decimal.Decimal `json:"previousClose"`
	RegularMarketVolume int64           `json:"regularMarketVolume"`
	RegularMarketTime   int64           `json:"regularMarketTime"`
}

func (c *YahooClient) Quote(ctx context.Context, symbol string) (domain.Quote, error) {
	start := time.Now()
	q, err := c.fetch(ctx, symbol)
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrSymbolNotFound):
		outcome = "not_found"
	default:
		outcome = "error"
		c.logger.Warn("quote fetch failed", "symbol", symbol, "err", err)
	}
	metrics.RecordQuoteFetch(outcome, time.Since(start))
	return q, err
}

func (c *YahooClient) fetch(ctx context.Context, symbol string) (domain.Quote, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.Quote{}, fmt.Errorf("rate limiter wait: %w", err)
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("symbol", symbol).
		SetQueryParams(map[string]string{"range": "1d", "interval": "1d"}).
		SetResult(&chartResponse{}).
		SetError(&chartResponse{}).
		Get(chartPath)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("chart request %s: %w", symbol, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return domain.Quote{}, ErrSymbolNotFound
	}
	if resp.IsError() {
		return domain.Quote{}, fmt.Errorf("chart request %s: status %s", symbol, resp.Status())
	}

	body, ok := resp.Result().(*chartResponse)
	if !ok || len(body.Chart.Result) == 0 {
		return domain.Quote{}, ErrSymbolNotFound
	}
	meta := body.Chart.Result[0].Meta
	if meta.RegularMarketPrice.IsZero() {
		return domain.Quote{}, ErrSymbolNotFound
	}

	prev := meta.PreviousClose
	if prev.IsZero() {
		prev = meta.ChartPreviousClose
	}
	at := time.Now().UTC()
	if meta.RegularMarketTime > 0 {
		at = time.Unix(meta.RegularMarketTime, 0).UTC()
	}
	return domain.NewQuote(symbol, meta.RegularMarketPrice, prev, meta.RegularMarketVolume, at), nil
}
