package gateway

import (
	"context"
	"errors"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/yourorg/portfolio-tracker/internal/auth"
	"github.com/yourorg/portfolio-tracker/internal/domain"
	"github.com/yourorg/portfolio-tracker/internal/quote"
)

const maxBatchSymbols = 50

// popularSymbols backs the market overview.
var popularSymbols = []string{"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA", "NVDA", "META", "NFLX"}

// Watchlist

func (h *Handlers) ListWatchlist(w http.ResponseWriter, r *http.Request) {
	items, err := h.watchlist.List(r.Context(), auth.UserIDFromCtx(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

type addWatchlistRequest struct {
	Symbol string `json:"symbol"`
}

// AddWatchlist takes the symbol from the query string, or from a JSON body
// when the query parameter is absent.
func (h *Handlers) AddWatchlist(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" && r.ContentLength != 0 {
		var req addWatchlistRequest
		if err := decodeJSON(r, &req); err != nil {
			h.fail(w, r, err)
			return
		}
		symbol = req.Symbol
	}
	entry, err := h.watchlist.AddSymbol(r.Context(), auth.UserIDFromCtx(r.Context()), symbol)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *Handlers) RemoveWatchlist(w http.ResponseWriter, r *http.Request) {
	if err := h.watchlist.RemoveSymbol(r.Context(), auth.UserIDFromCtx(r.Context()), chi.URLParam(r, "symbol")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stocks

func (h *Handlers) GetStock(w http.ResponseWriter, r *http.Request) {
	sym, err := domain.NormalizeSymbol(chi.URLParam(r, "symbol"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ctx := r.Context()
	if h.quoteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.quoteTimeout)
		defer cancel()
	}
	q, err := h.quotes.Quote(ctx, sym)
	if err != nil {
		if errors.Is(err, quote.ErrSymbolNotFound) {
			h.fail(w, r, domain.NotFoundf("stock %s not found", sym))
			return
		}
		h.fail(w, r, domain.QuoteUnavailable(sym, err))
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// BatchStocks answers a JSON array of symbols with a map from each symbol to
// its quote, or null when the quote failed.
func (h *Handlers) BatchStocks(w http.ResponseWriter, r *http.Request) {
	var raw []string
	if err := decodeJSON(r, &raw); err != nil {
		h.fail(w, r, err)
		return
	}
	if len(raw) > maxBatchSymbols {
		h.fail(w, r, domain.Validationf("at most %d symbols per batch", maxBatchSymbols))
		return
	}
	symbols := make([]string, 0, len(raw))
	for _, s := range raw {
		sym, err := domain.NormalizeSymbol(s)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		symbols = append(symbols, sym)
	}

	results := quote.FetchAll(r.Context(), h.quotes, symbols, h.quoteTimeout, h.quoteConcurrency)
	out := make(map[string]*domain.Quote, len(results))
	for sym, res := range results {
		if !res.OK() {
			out[sym] = nil
			continue
		}
		q := res.Quote
		out[sym] = &q
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) MarketOverview(w http.ResponseWriter, r *http.Request) {
	results := quote.FetchAll(r.Context(), h.quotes, popularSymbols, h.quoteTimeout, h.quoteConcurrency)
	out := make([]domain.Quote, 0, len(popularSymbols))
	for _, sym := range popularSymbols {
		if res := results[sym]; res.OK() {
			out = append(out, res.Quote)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// Health

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(h.readiness))
	for name := range h.readiness {
		names = append(names, name)
	}
	sort.Strings(names)

	checks := make(map[string]string, len(names))
	ready := true
	for _, name := range names {
		if err := h.readiness[name](r.Context()); err != nil {
			h.logger.Warn("readiness check failed", "check", name, "err", err)
			checks[name] = "unavailable"
			ready = false
			continue
		}
		checks[name] = "ok"
	}

	status := http.StatusOK
	state := "ready"
	if !ready {
		status = http.StatusServiceUnavailable
		state = "not_ready"
	}
	writeJSON(w, status, map[string]any{"status": state, "checks": checks})
}
