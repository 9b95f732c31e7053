package gateway

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type openedStream struct {
	ctx    context.Context
	symbol string
	ch     chan []byte
}

type fakeTickSource struct {
	opened chan openedStream
}

func (f *fakeTickSource) Ticks(ctx context.Context, symbol string) <-chan []byte {
	ch := make(chan []byte, 8)
	f.opened <- openedStream{ctx: ctx, symbol: symbol, ch: ch}
	out := make(chan []byte)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case data := <-ch:
				select {
				case out <- data:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func startHub(t *testing.T) (*fakeTickSource, *websocket.Conn) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	source := &fakeTickSource{opened: make(chan openedStream, 8)}
	hub := NewHub(source, logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	srv := httptest.NewServer(ServeWS(hub, nil, logger))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return source, conn
}

func waitStream(t *testing.T, source *fakeTickSource) openedStream {
	t.Helper()
	select {
	case s := <-source.opened:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("upstream subscription never opened")
		return openedStream{}
	}
}

func TestHubDeliversTicksToSubscribers(t *testing.T) {
	source, conn := startHub(t)

	require.NoError(t, conn.WriteJSON(wsMessage{Action: "subscribe", Symbols: []string{" aapl ", "not a symbol!"}}))
	stream := waitStream(t, source)
	assert.Equal(t, "AAPL", stream.symbol)

	stream.ch <- []byte(`{"symbol":"AAPL","current_price":120}`)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"symbol":"AAPL","current_price":120}`, string(data))

	// the invalid symbol never reached the source
	select {
	case s := <-source.opened:
		t.Fatalf("unexpected subscription to %s", s.symbol)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubClosesUpstreamWhenLastSubscriberLeaves(t *testing.T) {
	source, conn := startHub(t)

	require.NoError(t, conn.WriteJSON(wsMessage{Action: "subscribe", Symbols: []string{"MSFT"}}))
	stream := waitStream(t, source)

	require.NoError(t, conn.WriteJSON(wsMessage{Action: "unsubscribe", Symbols: []string{"msft"}}))
	select {
	case <-stream.ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("upstream subscription was not cancelled")
	}
}

func TestOriginChecker(t *testing.T) {
	req := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	check := originChecker([]string{"http://localhost:3000"})
	assert.True(t, check(req("http://localhost:3000")))
	assert.True(t, check(req("")))
	assert.False(t, check(req("http://evil.example")))

	assert.True(t, originChecker([]string{"*"})(req("http://anything.example")))
	assert.True(t, originChecker(nil)(req("http://anything.example")))
}
