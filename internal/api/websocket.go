package api

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// hub fans snapshots out to connected websocket peers. Inbound frames are
// read and dropped; the socket is push-only.
type hub struct {
	upgrader websocket.Upgrader

	mu    sync.Mutex
	peers map[*websocket.Conn]struct{}
}

func newHub() *hub {
	return &hub{
		upgrader: websocket.Upgrader{
			// The appliance serves browsers on other origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		peers: make(map[*websocket.Conn]struct{}),
	}
}

// serve upgrades the connection, sends the current snapshot immediately
// and registers the peer for future broadcasts.
func (h *hub) serve(w http.ResponseWriter, r *http.Request, snapshot []byte) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	h.mu.Lock()
	if err := conn.WriteMessage(websocket.TextMessage, snapshot); err != nil {
		h.mu.Unlock()
		conn.Close() //nolint:errcheck
		return
	}
	h.peers[conn] = struct{}{}
	h.mu.Unlock()

	go h.drain(conn)
}

// drain consumes inbound frames until the peer goes away.
func (h *hub) drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.remove(conn)
			return
		}
	}
}

func (h *hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.peers, conn)
	h.mu.Unlock()
	conn.Close() //nolint:errcheck
}

// broadcast sends data to every peer, dropping those whose send fails.
// The peer set is copied first so no lock is held during network I/O.
func (h *hub) broadcast(data []byte) {
	h.mu.Lock()
	peers := make([]*websocket.Conn, 0, len(h.peers))
	for conn := range h.peers {
		peers = append(peers, conn)
	}
	h.mu.Unlock()

	for _, conn := range peers {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.remove(conn)
		}
	}
}
