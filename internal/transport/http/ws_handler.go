package http

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"levelquiz-service/internal/app"
	"levelquiz-service/internal/domain"
)

// WSHandler streams leaderboard snapshots over a websocket so score screens
// update without polling.
type WSHandler struct {
	results  *app.ResultService
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(results *app.ResultService, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		results: results,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage struct {
	Type    string             `json:"type"`
	Payload domain.Leaderboard `json:"payload"`
}

// ServeLive upgrades the request, sends the current leaderboard and then
// forwards every update until the client disconnects.
func (h *WSHandler) ServeLive(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	initial, err := h.results.Leaderboard(r.Context(), r.URL.Query().Get("quiz"), "", 10)
	if err != nil {
		h.logger.Warn("initial leaderboard fetch failed", slog.String("error", err.Error()))
		return
	}

	updates, cancel := h.results.Subscribe()
	defer cancel()

	send := make(chan outboundMessage, 16)
	writerDone := make(chan struct{})
	readerDone := make(chan struct{})

	// Single writer goroutine; gorilla connections do not allow concurrent
	// writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}()

	// Reader only watches for disconnect; clients send nothing meaningful.
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send <- outboundMessage{Type: "leaderboard", Payload: initial}

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				close(send)
				<-writerDone
				return
			}
			select {
			case send <- outboundMessage{Type: "leaderboard", Payload: update}:
			case <-writerDone:
				return
			case <-readerDone:
				close(send)
				<-writerDone
				return
			}
		case <-writerDone:
			return
		case <-readerDone:
			close(send)
			<-writerDone
			return
		}
	}
}
