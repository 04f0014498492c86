package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AnshRaj112/bolt-backend/internal/middleware"
)

const eventsReadTimeout = 90 * time.Second

func newEventsUpgrader(allowed []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(r.Header.Get("Origin"), allowed)
		},
	}
}

// originAllowed accepts requests without an Origin (non-browser clients) and
// browser requests from a configured origin.
func originAllowed(origin string, allowed []string) bool {
	if origin == "" {
		return true
	}
	for _, o := range allowed {
		if o == "*" || strings.EqualFold(strings.TrimSuffix(o, "/"), origin) {
			return true
		}
	}
	return false
}

// Events streams progression events for the authenticated account over a
// WebSocket. The token comes from ?token=, the cookie or the Authorization header.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	acct, _ := middleware.AccountFrom(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("events upgrade refused", "origin", r.Header.Get("Origin"), "error", err)
		return
	}
	defer conn.Close()

	detach := h.events.Register(acct.ID, conn)
	defer detach()
	h.log.Debug("events socket opened", "accountId", acct.ID.Hex())

	// Reader loop: any client frame or pong keeps the socket alive.
	conn.SetReadLimit(4 * 1024)
	_ = conn.SetReadDeadline(time.Now().Add(eventsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(eventsReadTimeout))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.log.Debug("events socket closed", "accountId", acct.ID.Hex(), "error", err)
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(eventsReadTimeout))
	}
}
