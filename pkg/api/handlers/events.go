package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"relay/pkg/accounts"
	"relay/pkg/logger"
	"relay/pkg/ws"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// origin is already enforced by the gateway middleware
	CheckOrigin: func(r *http.Request) bool { return true },
}

// RegisterEvents registers the websocket event stream.
func RegisterEvents(r *mux.Router) {
	r.HandleFunc("/ws", serveEvents).Methods(http.MethodGet)
}

// serveEvents handles GET /v1/ws: upgrades the connection and streams
// push events until the client disconnects. Connecting counts as a
// heartbeat; dropping the last connection marks the user offline.
func serveEvents(w http.ResponseWriter, r *http.Request) {
	uid, ok := caller(w, r)
	if !ok {
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("ws_upgrade_failed", "user", uid, "error", err)
		return
	}
	if err := accounts.Heartbeat(uid); err != nil {
		logger.Warn("ws_heartbeat_failed", "user", uid, "error", err)
	}

	c := ws.NewClient(uid, conn)
	ws.Default.Add(c)
	c.Serve()
	ws.Default.Remove(c)

	if !ws.Default.Connected(uid) {
		if _, err := accounts.SetOnline(uid, false); err != nil {
			logger.Warn("ws_offline_failed", "user", uid, "error", err)
		}
	}
}
