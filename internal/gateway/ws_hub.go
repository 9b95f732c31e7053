package gateway

import (
	"context"
	"log/slog"

	"github.com/yourorg/portfolio-tracker/internal/domain"
)

// TickSource streams published quote payloads for one symbol until ctx ends.
type TickSource interface {
	Ticks(ctx context.Context, symbol string) <-chan []byte
}

type subscription struct {
	client *Client
	symbol string
}

type tick struct {
	symbol string
	data   []byte
}

// Hub tracks websocket clients and the symbols each one follows. One
// upstream subscription exists per symbol while anyone is watching it.
type Hub struct {
	clients map[*Client]bool
	subs    map[string]map[*Client]bool
	cancels map[string]context.CancelFunc

	register    chan *Client
	unregister  chan *Client
	subscribe   chan subscription
	unsubscribe chan subscription
	broadcast   chan tick

	source TickSource
	logger *slog.Logger
}

func NewHub(source TickSource, logger *slog.Logger) *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		subs:        make(map[string]map[*Client]bool),
		cancels:     make(map[string]context.CancelFunc),
		register:    make(chan *Client, 64),
		unregister:  make(chan *Client, 64),
		subscribe:   make(chan subscription, 64),
		unsubscribe: make(chan subscription, 64),
		broadcast:   make(chan tick, 256),
		source:      source,
		logger:      logger,
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for _, cancel := range h.cancels {
				cancel()
			}
			return
		case client := <-h.register:
			h.clients[client] = true
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				for sym := range h.subs {
					h.drop(sym, client)
				}
				close(client.send)
			}
		case sub := <-h.subscribe:
			if _, ok := h.clients[sub.client]; !ok {
				continue
			}
			if _, ok := h.subs[sub.symbol]; !ok {
				h.subs[sub.symbol] = make(map[*Client]bool)
				subCtx, cancel := context.WithCancel(ctx)
				h.cancels[sub.symbol] = cancel
				go h.pump(subCtx, sub.symbol)
			}
			h.subs[sub.symbol][sub.client] = true
		case sub := <-h.unsubscribe:
			h.drop(sub.symbol, sub.client)
		case t := <-h.broadcast:
			h.fanOut(t)
		}
	}
}

// drop removes client from symbol and tears the upstream subscription down
// when nobody is left.
func (h *Hub) drop(symbol string, client *Client) {
	clients, ok := h.subs[symbol]
	if !ok {
		return
	}
	delete(clients, client)
	if len(clients) > 0 {
		return
	}
	if cancel, ok := h.cancels[symbol]; ok {
		cancel()
		delete(h.cancels, symbol)
	}
	delete(h.subs, symbol)
}

func (h *Hub) pump(ctx context.Context, symbol string) {
	for data := range h.source.Ticks(ctx, symbol) {
		select {
		case h.broadcast <- tick{symbol: symbol, data: data}:
		case <-ctx.Done():
			return
		}
	}
}

// fanOut delivers to every subscriber; slow clients miss ticks rather than
// stall the hub.
func (h *Hub) fanOut(t tick) {
	for client := range h.subs[t.symbol] {
		select {
		case client.send <- t.data:
		default:
			h.logger.Debug("ws client lagging, tick dropped", "symbol", t.symbol)
		}
	}
}

func normalizeSubscription(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		sym, err := domain.NormalizeSymbol(s)
		if err != nil {
			continue
		}
		out = append(out, sym)
	}
	return out
}
