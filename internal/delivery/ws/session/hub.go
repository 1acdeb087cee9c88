package ws_session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/humanbelnik/gamenight/internal/model"
)

const MessageSessionStatus = "session_status"

const (
	sendBuffer = 16
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

type Message struct {
	Type    string                 `json:"type"`
	Payload model.StatusProjection `json:"payload"`
}

type Client struct {
	ID        string
	Conn      *websocket.Conn
	Send      chan []byte
	SessionID string
}

func NewClient(conn *websocket.Conn, sessionID string) *Client {
	return &Client{
		ID:        uuid.NewString(),
		Conn:      conn,
		Send:      make(chan []byte, sendBuffer),
		SessionID: sessionID,
	}
}

// Hub keeps the set of watchers of each session. Sending and closing a
// client's Send channel both happen under mu, so a channel is never
// written after it was closed.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[*Client]bool

	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		sessions: make(map[string]map[*Client]bool),
		logger:   logger,
	}
}

func (h *Hub) RegisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[client.SessionID]; !ok {
		h.sessions[client.SessionID] = make(map[*Client]bool)
	}
	h.sessions[client.SessionID][client] = true

	h.logger.Info("watcher registered",
		slog.String("session_id", client.SessionID),
		slog.String("client_id", client.ID))
}

// RemoveClient is safe to call more than once.
func (h *Hub) RemoveClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.sessions[client.SessionID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	close(client.Send)
	if len(clients) == 0 {
		delete(h.sessions, client.SessionID)
	}

	h.logger.Info("watcher unregistered",
		slog.String("session_id", client.SessionID),
		slog.String("client_id", client.ID))
}

func (h *Hub) Watchers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

// Publish delivers to the watchers connected to this instance.
func (h *Hub) Publish(_ context.Context, projection model.StatusProjection) error {
	h.Deliver(projection)
	return nil
}

// Deliver pushes projection to every watcher of its session. Watchers
// whose buffer is full are dropped and will fall back to polling.
func (h *Hub) Deliver(projection model.StatusProjection) {
	message, err := json.Marshal(Message{Type: MessageSessionStatus, Payload: projection})
	if err != nil {
		h.logger.Error("failed to encode status message", slog.String("error", err.Error()))
		return
	}

	var slow []*Client
	h.mu.RLock()
	for client := range h.sessions[projection.SessionID] {
		select {
		case client.Send <- message:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.logger.Warn("dropping slow watcher",
			slog.String("session_id", client.SessionID),
			slog.String("client_id", client.ID))
		h.RemoveClient(client)
	}
}

// Enqueue sends one message to a single client, used for the snapshot on connect.
func (h *Hub) Enqueue(client *Client, projection model.StatusProjection) {
	message, err := json.Marshal(Message{Type: MessageSessionStatus, Payload: projection})
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.sessions[client.SessionID][client] {
		select {
		case client.Send <- message:
		default:
		}
	}
}

func (h *Hub) StartClientReading(client *Client) {
	defer func() {
		h.RemoveClient(client)
		client.Conn.Close()
	}()

	// Watchers never send data; reading only tracks pongs and close frames.
	_ = client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		return client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (h *Hub) StartClientWriting(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			_ = client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = client.Conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
