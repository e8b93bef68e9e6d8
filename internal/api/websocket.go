package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"nhooyr.io/websocket"
)

// ──────────────────── WebSocket Hub ────────────────────

type WSHub struct {
	mu          sync.RWMutex
	clients     map[*WSClient]bool
	activeScans map[string]json.RawMessage // scan_id → last scan:progress payload
	scansMu     sync.RWMutex
}

type WSClient struct {
	conn *websocket.Conn
	send chan []byte
}

type WSMessage struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

func NewWSHub() *WSHub {
	return &WSHub{
		clients:     make(map[*WSClient]bool),
		activeScans: make(map[string]json.RawMessage),
	}
}

func (h *WSHub) Broadcast(event string, data interface{}) {
	msg, err := json.Marshal(WSMessage{Event: event, Data: data})
	if err != nil {
		return
	}

	// Track in-flight scan state for new client sync
	switch event {
	case "scan:progress":
		h.trackScan(data, msg)
	case "scan:complete", "scan:error":
		h.clearScan(data)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
		}
	}
}

// trackScan keeps a snapshot of each running scan so new clients get current state.
func (h *WSHub) trackScan(data interface{}, raw []byte) {
	scanID := scanIDOf(data)
	if scanID == "" {
		return
	}
	h.scansMu.Lock()
	h.activeScans[scanID] = json.RawMessage(raw)
	h.scansMu.Unlock()
}

func (h *WSHub) clearScan(data interface{}) {
	scanID := scanIDOf(data)
	if scanID == "" {
		return
	}
	h.scansMu.Lock()
	delete(h.activeScans, scanID)
	h.scansMu.Unlock()
}

func scanIDOf(data interface{}) string {
	m, ok := data.(map[string]interface{})
	if !ok {
		return ""
	}
	switch id := m["scan_id"].(type) {
	case string:
		return id
	case interface{ String() string }:
		return id.String()
	}
	return ""
}

// sendActiveScans replays current scan state to a newly connected client.
func (h *WSHub) sendActiveScans(client *WSClient) {
	h.scansMu.RLock()
	defer h.scansMu.RUnlock()
	for _, msg := range h.activeScans {
		select {
		case client.send <- msg:
		default:
		}
	}
}

func (h *WSHub) addClient(c *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
}

func (h *WSHub) removeClient(c *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		close(c.send)
		delete(h.clients, c)
	}
}

func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ──────────────────── WebSocket Handler ────────────────────

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		log.Printf("WebSocket accept error: %v", err)
		return
	}

	client := &WSClient{
		conn: conn,
		send: make(chan []byte, 64),
	}

	s.wsHub.addClient(client)
	s.wsHub.sendActiveScans(client)
	log.Printf("WebSocket client connected (%d total)", s.wsHub.ClientCount())

	ctx := r.Context()

	// Writer goroutine
	go func() {
		defer conn.Close(websocket.StatusNormalClosure, "")
		for msg := range client.send {
			if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}()

	// Reader loop (keep connection alive, handle pings)
	for {
		_, _, err := conn.Read(ctx)
		if err != nil {
			break
		}
	}

	s.wsHub.removeClient(client)
	log.Printf("WebSocket client disconnected (%d total)", s.wsHub.ClientCount())
}
