package wsconn

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
)

func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.CloseNow()

		ctx := r.Context()
		c.Write(ctx, websocket.MessageText, []byte(`{"hello":"world"}`))
		for {
			_, _, err := c.Read(ctx)
			if err != nil {
				return
			}
		}
	}))
}

func TestConnection_ReceivesTextFrames(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	url := "ws" + srv.URL[len("http"):]
	conn := New(Config{ID: 1, Label: "test", URL: url}, log.New(io.Discard))

	received := make(chan []byte, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go conn.Start(ctx, func(data []byte, _ time.Time) {
		select {
		case received <- data:
		default:
		}
	}, nil)

	select {
	case data := <-received:
		require.Equal(t, `{"hello":"world"}`, string(data))
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for frame")
	}

	conn.Stop()
}

func TestConnection_StopIsIdempotent(t *testing.T) {
	conn := New(Config{ID: 1, Label: "test", URL: "ws://127.0.0.1:1"}, log.New(io.Discard))
	conn.Stop()
	conn.Stop() // must not panic
}
