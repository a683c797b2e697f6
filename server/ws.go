package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/finquill/advisor/core"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The service sits behind a trusted frontend; origin policy is
	// enforced upstream.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsFrame is one message on the advisory stream.
type wsFrame struct {
	Type    string          `json:"type"` // "attempt", "result", "error"
	Attempt int             `json:"attempt,omitempty"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// handleWS accepts one advisory request over a websocket and streams a
// frame per attempt before the terminal result or error frame.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[SERVER] Websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	var req core.AdviceRequest
	if err := conn.ReadJSON(&req); err != nil {
		conn.WriteJSON(wsFrame{Type: "error", Error: "invalid request body"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	observer := func(attempt int, attemptErr error) {
		frame := wsFrame{Type: "attempt", Attempt: attempt + 1}
		if attemptErr != nil {
			frame.Error = attemptErr.Error()
		}
		if err := conn.WriteJSON(frame); err != nil {
			log.Printf("[SERVER] Websocket write failed: %v", err)
		}
	}

	doc, err := s.adviser.AdviseObserved(ctx, &req, observer)
	if err != nil {
		conn.WriteJSON(wsFrame{Type: "error", Error: err.Error()})
		return
	}
	conn.WriteJSON(wsFrame{Type: "result", Data: doc})
}
