package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

func wsServer(t *testing.T, handler func(ctx context.Context, conn *websocket.Conn)) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept ws: %v", err)
			return
		}
		defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()
		handler(r.Context(), conn)
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestSubscribeSendsRequest(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	msgCh := make(chan map[string]any, 1)
	url := wsServer(t, func(_ context.Context, conn *websocket.Conn) {
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var msg map[string]any
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			select {
			case msgCh <- msg:
			default:
			}
		}
	})

	client := New(url, 10*time.Millisecond, 0, zap.NewNop())
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := client.Subscribe(ctx, "btcusdt@aggTrade"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	select {
	case msg := <-msgCh:
		if msg["method"] != "SUBSCRIBE" {
			t.Fatalf("expected SUBSCRIBE, got %v", msg)
		}
		params, ok := msg["params"].([]any)
		if !ok || len(params) != 1 || params[0] != "btcusdt@aggTrade" {
			t.Fatalf("unexpected params: %v", msg["params"])
		}
	case <-ctx.Done():
		t.Fatalf("timed out waiting for subscribe request")
	}
}

func TestRunDeliversMessagesAndResubscribes(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	subCh := make(chan struct{}, 4)
	url := wsServer(t, func(_ context.Context, conn *websocket.Conn) {
		// Every connection sees the replayed subscription, then one
		// payload, then a drop to force a reconnect.
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var msg map[string]any
		if json.Unmarshal(data, &msg) == nil && msg["method"] == "SUBSCRIBE" {
			subCh <- struct{}{}
		}
		_ = conn.Write(ctx, websocket.MessageText, []byte(`{"e":"aggTrade"}`))
		_ = conn.Close(websocket.StatusAbnormalClosure, "drop")
	})

	client := New(url, 10*time.Millisecond, 0, zap.NewNop())
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := client.Subscribe(ctx, "btcusdt@aggTrade"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	gotMsg := make(chan struct{}, 4)
	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = client.Run(runCtx, func(json.RawMessage) {
			select {
			case gotMsg <- struct{}{}:
			default:
			}
		})
	}()

	// Two subscriptions observed means the client reconnected and
	// replayed its streams after the forced drop.
	for i := 0; i < 2; i++ {
		select {
		case <-subCh:
		case <-ctx.Done():
			t.Fatalf("timed out waiting for subscription %d", i+1)
		}
	}
	select {
	case <-gotMsg:
	case <-ctx.Done():
		t.Fatalf("timed out waiting for a delivered message")
	}

	stop()
	select {
	case <-done:
	case <-ctx.Done():
		t.Fatalf("run did not stop on cancel")
	}
}
