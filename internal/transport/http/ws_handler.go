package http

import (
	"log"
	"net/http"
	"strconv"

	"github.com/darkevich777/anime-quiz/internal/app"
	"github.com/gorilla/websocket"
)

// WSHandler pushes a fresh snapshot to connected clients on every revision
// change, so webapp clients do not have to poll for timer expiry.
type WSHandler struct {
	service  *app.GameService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GameService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type wsInbound struct {
	Type   string `json:"type"`
	Choice *int   `json:"choice,omitempty"`
}

type wsOutbound struct {
	Type  string `json:"type"`
	State any    `json:"state,omitempty"`
	Error string `json:"error,omitempty"`
}

// ServeWS upgrades the request and streams state updates for one viewer.
// Inbound messages carry the player's "ready" and "answer" actions.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	chatID, err := strconv.ParseInt(r.URL.Query().Get("chat_id"), 10, 64)
	if err != nil {
		http.Error(w, "missing or invalid chat_id", http.StatusBadRequest)
		return
	}
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil {
		http.Error(w, "missing or invalid user_id", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel, err := h.service.Subscribe(chatID, userID)
	if err != nil {
		_, code := errorCode(err)
		_ = conn.WriteJSON(wsOutbound{Type: "error", Error: code})
		return
	}
	defer cancel()

	send := make(chan wsOutbound, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				// Unblocks the read loop so the handler can unwind.
				conn.Close()
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					// Session torn down (game ended); clients fall back to polling
					// the rematch state over the JSON API.
					return
				}
				select {
				case send <- wsOutbound{Type: "state", State: snap}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	// Error replies must not block once the writer has exited.
	reply := func(msg wsOutbound) bool {
		select {
		case send <- msg:
			return true
		case <-writerDone:
			return false
		}
	}

readLoop:
	for {
		var inbound wsInbound
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "ready":
			if _, err := h.service.MarkReady(chatID, userID); err != nil {
				_, code := errorCode(err)
				if !reply(wsOutbound{Type: "error", Error: code}) {
					break readLoop
				}
			}
		case "answer":
			if inbound.Choice == nil {
				if !reply(wsOutbound{Type: "error", Error: "bad_request"}) {
					break readLoop
				}
				continue
			}
			if _, err := h.service.SubmitAnswer(chatID, userID, *inbound.Choice); err != nil {
				_, code := errorCode(err)
				if !reply(wsOutbound{Type: "error", Error: code}) {
					break readLoop
				}
			}
		default:
			if !reply(wsOutbound{Type: "error", Error: "unsupported_message"}) {
				break readLoop
			}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
