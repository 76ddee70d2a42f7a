package http

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"trivia-raffle-service/internal/app"
)

// WSHandler streams draw lifecycle events to connected dashboard clients.
type WSHandler struct {
	draws    *app.DrawService
	upgrader websocket.Upgrader
}

func NewWSHandler(draws *app.DrawService) *WSHandler {
	return &WSHandler{
		draws: draws,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundEvent struct {
	Type    string        `json:"type"`
	Payload app.DrawEvent `json:"payload"`
}

// ServeWS upgrades the connection and forwards draw events until the client
// disconnects. Inbound messages are ignored; the stream is one-way.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	events, cancel := h.draws.Subscribe()
	defer cancel()

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(outboundEvent{Type: "drawEvent", Payload: event}); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		case <-readerDone:
			return
		}
	}
}
