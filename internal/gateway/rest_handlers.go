package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/yourorg/portfolio-tracker/internal/auth"
	"github.com/yourorg/portfolio-tracker/internal/domain"
	"github.com/yourorg/portfolio-tracker/internal/ledger"
	"github.com/yourorg/portfolio-tracker/internal/portfolio"
	"github.com/yourorg/portfolio-tracker/internal/quote"
	"github.com/yourorg/portfolio-tracker/internal/watchlist"
)

const maxBodyBytes = 1 << 20

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

type Deps struct {
	Auth      *auth.Service
	Ledger    *ledger.Service
	Portfolio *portfolio.Service
	Watchlist *watchlist.Service
	Quotes    quote.Provider

	QuoteTimeout     time.Duration
	QuoteConcurrency int
	CookieSecure     bool
	Readiness        map[string]ReadinessCheck
	Logger           *slog.Logger
}

type Handlers struct {
	auth      *auth.Service
	ledger    *ledger.Service
	portfolio *portfolio.Service
	watchlist *watchlist.Service
	quotes    quote.Provider

	quoteTimeout     time.Duration
	quoteConcurrency int
	cookieSecure     bool
	readiness        map[string]ReadinessCheck
	logger           *slog.Logger
}

func NewHandlers(d Deps) *Handlers {
	return &Handlers{
		auth:             d.Auth,
		ledger:           d.Ledger,
		portfolio:        d.Portfolio,
		watchlist:        d.Watchlist,
		quotes:           d.Quotes,
		quoteTimeout:     d.QuoteTimeout,
		quoteConcurrency: d.QuoteConcurrency,
		cookieSecure:     d.CookieSecure,
		readiness:        d.Readiness,
		logger:           d.Logger,
	}
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, h.logger, err)
}

// decodeJSON reads a bounded JSON body into v. Validation errors raised by
// field decoders are passed through unchanged.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var derr *domain.Error
		if errors.As(err, &derr) {
			return derr
		}
		return domain.Validationf("invalid request body")
	}
	return nil
}

func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Portfolio Tracker API"})
}

// Auth

func (h *Handlers) setSessionCookie(w http.ResponseWriter, token string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req auth.Credentials
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	sess, err := h.auth.Register(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.setSessionCookie(w, sess.Token, h.auth.JWT().TTL())
	writeJSON(w, http.StatusCreated, sess)
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.Credentials
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	sess, err := h.auth.Login(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.setSessionCookie(w, sess.Token, h.auth.JWT().TTL())
	writeJSON(w, http.StatusOK, sess)
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.Me(r.Context(), auth.UserIDFromCtx(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Trades

func (h *Handlers) CreateTrade(w http.ResponseWriter, r *http.Request) {
	var req domain.NewTrade
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	trade, err := h.ledger.AddTrade(r.Context(), auth.UserIDFromCtx(r.Context()), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, trade)
}

func (h *Handlers) ListTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := h.ledger.ListTrades(r.Context(), auth.UserIDFromCtx(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trades)
}

func (h *Handlers) DeleteTrade(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		// an id that cannot exist is reported like a missing trade
		h.fail(w, r, domain.NotFoundf("trade %s not found", chi.URLParam(r, "id")))
		return
	}
	if err := h.ledger.DeleteTrade(r.Context(), auth.UserIDFromCtx(r.Context()), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Portfolio

func (h *Handlers) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	positions, _, err := h.portfolio.Positions(r.Context(), auth.UserIDFromCtx(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, positions)
}

func (h *Handlers) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.portfolio.Summary(r.Context(), auth.UserIDFromCtx(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handlers) ClosePosition(w http.ResponseWriter, r *http.Request) {
	if _, err := h.ledger.ClosePosition(r.Context(), auth.UserIDFromCtx(r.Context()), chi.URLParam(r, "symbol")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
