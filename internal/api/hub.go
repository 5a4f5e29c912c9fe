package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"billionaire_empire/internal/game"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Message - JSON конверт всех сообщений websocket
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
	Sender  string      `json:"sender"`
}

// StateUpdate is pushed to a player's sockets after every successful mutation.
type StateUpdate struct {
	Op           string    `json:"op"`
	Date         time.Time `json:"date"`
	DaysPassed   int       `json:"days_passed"`
	Cash         float64   `json:"cash"`
	TON          float64   `json:"ton_balance"`
	TotalStaked  float64   `json:"total_staked"`
	Pending      float64   `json:"pending_rewards"`
	Wealth       float64   `json:"wealth"`
	Inflation    float64   `json:"inflation"`
	Businesses   int       `json:"businesses"`
	ActiveEvents int       `json:"active_events"`
}

// Client - одно websocket соединение игрока
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	playerID string
}

type outbound struct {
	playerID string
	data     []byte
}

// ConnGauge tracks open sockets; monitoring.PrometheusMetrics implements it.
type ConnGauge interface {
	ConnectionOpened()
	ConnectionClosed()
}

// Hub fans state updates out to the sockets of the player they belong to.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*Client]bool
	outbox   chan outbound
	gauge    ConnGauge
	upgrader websocket.Upgrader
	stopped  bool // Run вернулся, новые клиенты не принимаются
}

func NewHub(allowedOrigins []string, gauge ConnGauge) *Hub {
	h := &Hub{
		clients: make(map[string]map[*Client]bool),
		outbox:  make(chan outbound, 256),
		gauge:   gauge,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set["*"] || set[origin]
	}
}

// Run delivers queued updates until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case m := <-h.outbox:
			h.deliver(m)
		}
	}
}

func (h *Hub) deliver(m outbound) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients[m.playerID] {
		select {
		case c.send <- m.data:
		default:
			// медленный клиент
			h.removeLocked(c)
		}
	}
}

func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return false
	}
	if h.clients[c.playerID] == nil {
		h.clients[c.playerID] = make(map[*Client]bool)
	}
	h.clients[c.playerID][c] = true
	h.mu.Unlock()
	if h.gauge != nil {
		h.gauge.ConnectionOpened()
	}
	log.Printf("WS: %s connected", c.playerID)
	return true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	h.removeLocked(c)
	h.mu.Unlock()
}

func (h *Hub) removeLocked(c *Client) {
	set, ok := h.clients[c.playerID]
	if !ok || !set[c] {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.playerID)
	}
	close(c.send)
	if h.gauge != nil {
		h.gauge.ConnectionClosed()
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopped = true
	for _, set := range h.clients {
		for c := range set {
			h.removeLocked(c)
		}
	}
}

// Stopped reports whether Run has returned.
func (h *Hub) Stopped() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.stopped
}

// Connected returns the number of open sockets of playerID.
func (h *Hub) Connected(playerID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[playerID])
}

// Observe implements game.Observer. It never blocks the engine: when the
// outbox is full the update is dropped, the next one carries fresh state anyway.
func (h *Hub) Observe(o game.Observation) {
	if o.Err != nil || o.State == nil || h.Connected(o.PlayerID) == 0 {
		return
	}
	st := o.State
	data, err := json.Marshal(Message{
		Type: "state",
		Payload: StateUpdate{
			Op:           o.Op,
			Date:         st.Now(),
			DaysPassed:   st.Time.DaysPassed,
			Cash:         st.Player.Cash,
			TON:          st.Staking.Balance,
			TotalStaked:  st.Staking.TotalStaked(),
			Pending:      st.Staking.PendingRewards,
			Wealth:       st.Wealth(),
			Inflation:    st.Economy.Inflation,
			Businesses:   len(st.Businesses),
			ActiveEvents: len(st.Events.Active(st.Now())),
		},
		Sender: "engine",
	})
	if err != nil {
		log.Printf("WS: marshal update: %v", err)
		return
	}
	select {
	case h.outbox <- outbound{playerID: o.PlayerID, data: data}:
	default:
	}
}

// ServeWs upgrades the request of an authenticated player.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	playerID, err := playerFrom(r.Context())
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if h.Stopped() {
		http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("WS Upgrade Error:", err)
		return
	}
	c := &Client{hub: h, conn: conn, send: make(chan []byte, 16), playerID: playerID}
	if !h.register(c) {
		// Run завершился между проверкой и Upgrade
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server is shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// readPump только держит соединение и ловит pong; входящие сообщения игнорируются.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WS Error: %v", err)
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
