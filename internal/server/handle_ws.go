package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleSessionWS streams the same events as handleEvents over a WebSocket.
// Messages from the client are read only to notice the close.
func handleSessionWS(logger *slog.Logger, sessions *Registry, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, err := sessions.Get(r.Context(), id); err != nil {
			writeDomainError(w, logger, err)
			return
		}

		ch := broker.Subscribe(id)
		defer broker.Unsubscribe(id, ch)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()

		closed := make(chan struct{})
		go func() {
			defer close(closed)
			conn.SetReadDeadline(time.Now().Add(wsPongWait))
			conn.SetPongHandler(func(string) error {
				return conn.SetReadDeadline(time.Now().Add(wsPongWait))
			})
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					logger.Debug("websocket read ended", "session", id, "error", err)
					return
				}
			}
		}()

		ping := time.NewTicker(wsPingPeriod)
		defer ping.Stop()

		for {
			select {
			case <-closed:
				return
			case data := <-ch:
				conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
					logger.Debug("websocket write failed", "session", id, "error", err)
					return
				}
			case <-ping.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
					return
				}
			}
		}
	}
}
