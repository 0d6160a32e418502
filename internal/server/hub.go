package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/landcbrown/ParticleSim/internal/dynamo"
	"github.com/landcbrown/ParticleSim/internal/engine"
)

const (
	MaxClientsTotal = 256
	MaxClientsPerIP = 8

	writeWait = 2 * time.Second
)

// Frame is what /api/state returns and what /ws streams.
type Frame struct {
	Tick          uint64            `json:"tick"`
	Time          float64           `json:"time"`
	Temperature   float64           `json:"temperature"`
	KineticEnergy float64           `json:"kinetic_energy"`
	Bodies        []dynamo.BodyView `json:"bodies"`
}

func frameOf(s engine.Snapshot) Frame {
	views := make([]dynamo.BodyView, len(s.Bodies))
	for i := range s.Bodies {
		views[i] = s.Bodies[i].View()
	}
	return Frame{
		Tick:          s.Tick,
		Time:          s.Time,
		Temperature:   s.Temperature,
		KineticEnergy: engine.KineticEnergy(s.Bodies),
		Bodies:        views,
	}
}

// Hub fans frames out to websocket clients. It is a sim.Observer: the
// driver hands it every snapshot and it forwards one in every `every`.
// Run is the only goroutine that writes to client connections.
type Hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]string
	perIP   map[string]int
	// closed is set once Run has shut every connection; no new ones are taken.
	closed bool

	broadcast chan []byte
	every     uint64
	origins   []string
	upgrader  websocket.Upgrader
	log       *zap.Logger
	metrics   *serverMetrics
}

func NewHub(every int, origins []string, log *zap.Logger) *Hub {
	if every < 1 {
		every = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	h := &Hub{
		clients:   make(map[*websocket.Conn]string),
		perIP:     make(map[string]int),
		broadcast: make(chan []byte, 64),
		every:     uint64(every),
		origins:   origins,
		log:       log,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// OnStep queues a frame when the tick is on the broadcast cadence and
// someone is listening. A full queue drops the frame.
func (h *Hub) OnStep(s engine.Snapshot) {
	if s.Tick%h.every != 0 || h.ClientCount() == 0 {
		return
	}
	msg, err := json.Marshal(frameOf(s))
	if err != nil {
		h.log.Warn("frame encode failed", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- msg:
	default:
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Run writes queued frames to every client until ctx ends, then closes
// all connections.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case msg := <-h.broadcast:
			h.send(msg)
		}
	}
}

func (h *Hub) send(msg []byte) {
	var dead []*websocket.Conn
	h.mu.RLock()
	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			dead = append(dead, conn)
		}
	}
	h.mu.RUnlock()
	h.metrics.frame()
	for _, conn := range dead {
		h.remove(conn)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
	}
	clear(h.clients)
	clear(h.perIP)
	h.closed = true
	h.metrics.clients(0)
}

// reserve claims a connection slot for ip. It reports the rejection
// reason when a limit is reached.
func (h *Hub) reserve(ip string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch {
	case h.closed:
		return "ws_shutdown", false
	case len(h.clients) >= MaxClientsTotal:
		return "ws_total_limit", false
	case h.perIP[ip] >= MaxClientsPerIP:
		return "ws_ip_limit", false
	}
	h.perIP[ip]++
	return "", true
}

func (h *Hub) release(ip string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.releaseLocked(ip)
}

func (h *Hub) releaseLocked(ip string) {
	if h.perIP[ip] <= 1 {
		delete(h.perIP, ip)
		return
	}
	h.perIP[ip]--
}

// add registers conn under the slot reserved for ip. After shutdown the slot
// is dropped and conn closed instead.
func (h *Hub) add(conn *websocket.Conn, ip string) bool {
	h.mu.Lock()
	if h.closed {
		h.releaseLocked(ip)
		h.mu.Unlock()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return false
	}
	h.clients[conn] = ip
	n := len(h.clients)
	h.mu.Unlock()
	h.metrics.clients(n)
	h.log.Info("websocket client connected", zap.String("ip", ip), zap.Int("clients", n))
	return true
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	ip, ok := h.clients[conn]
	if ok {
		delete(h.clients, conn)
		h.releaseLocked(ip)
	}
	n := len(h.clients)
	h.mu.Unlock()
	if !ok {
		return
	}
	conn.Close()
	h.metrics.clients(n)
	h.log.Info("websocket client disconnected", zap.String("ip", ip), zap.Int("clients", n))
}

// ServeHTTP upgrades the request and keeps reading until the client goes
// away. Incoming messages are ignored.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ip := ClientIP(r)
	if reason, ok := h.reserve(ip); !ok {
		h.metrics.reject(reason)
		h.log.Warn("websocket rejected", zap.String("ip", ip), zap.String("reason", reason))
		if reason == "ws_shutdown" {
			http.Error(w, "Server shutting down", http.StatusServiceUnavailable)
			return
		}
		http.Error(w, "Too many connections", http.StatusTooManyRequests)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.release(ip)
		h.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	if !h.add(conn, ip) {
		return
	}

	go func() {
		defer h.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || originAllowed(h.origins, origin) {
		return true
	}
	h.metrics.reject("origin")
	h.log.Warn("websocket origin rejected", zap.String("origin", origin))
	return false
}

// originAllowed matches origin against a list that may hold "*" or
// entries ending in "*" (prefix match), the same forms go-chi/cors takes.
func originAllowed(allowed []string, origin string) bool {
	for _, a := range allowed {
		switch {
		case a == "*":
			return true
		case strings.HasSuffix(a, "*"):
			if strings.HasPrefix(origin, strings.TrimSuffix(a, "*")) {
				return true
			}
		case strings.EqualFold(a, origin):
			return true
		}
	}
	return false
}
