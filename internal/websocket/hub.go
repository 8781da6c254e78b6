// Package websocket fans candidate board events out to the browsers watching
// a job's board.
package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"

	"github.com/fusecpt/ats/internal/model"
)

// Client is one subscriber of a job board.
type Client struct {
	JobID string
	Send  chan []byte
}

// Hub keeps the subscribers of each job board. All subscriber maps are owned
// by the Run goroutine.
type Hub struct {
	clients    map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage
	done       chan struct{}
	logger     *zap.Logger
}

// BroadcastMessage is an encoded message for the subscribers of JobID. When
// target is set only that subscriber receives it.
type BroadcastMessage struct {
	JobID   string
	Message []byte
	target  *Client
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage, 256),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run dispatches messages until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for jobID, clients := range h.clients {
				for client := range clients {
					close(client.Send)
				}
				delete(h.clients, jobID)
			}
			return

		case client := <-h.register:
			if h.clients[client.JobID] == nil {
				h.clients[client.JobID] = make(map[*Client]bool)
			}
			h.clients[client.JobID][client] = true
			h.logger.Debug("board client registered", zap.String("job_id", client.JobID))

		case client := <-h.unregister:
			h.remove(client)
			h.logger.Debug("board client unregistered", zap.String("job_id", client.JobID))

		case msg := <-h.broadcast:
			if msg.target != nil {
				if h.clients[msg.JobID][msg.target] {
					h.deliver(msg.target, msg.Message)
				}
				continue
			}
			for client := range h.clients[msg.JobID] {
				h.deliver(client, msg.Message)
			}
		}
	}
}

func (h *Hub) deliver(client *Client, data []byte) {
	select {
	case client.Send <- data:
	default:
		// Slow consumer; drop it rather than stall the board.
		h.remove(client)
	}
}

func (h *Hub) remove(client *Client) {
	clients, ok := h.clients[client.JobID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	close(client.Send)
	if len(clients) == 0 {
		delete(h.clients, client.JobID)
	}
}

// Register adds a subscriber. It is a no-op once the hub has stopped.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// PublishBoard sends a board event to the subscribers of msg.JobID. It never
// blocks the caller: when the queue is full the event is dropped and logged.
func (h *Hub) PublishBoard(msg model.WSBoardMessage) {
	if msg.JobID == "" {
		return
	}
	msg.Type = model.WSMessageTypeBoard

	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal board message", zap.Error(err))
		return
	}

	select {
	case h.broadcast <- &BroadcastMessage{JobID: msg.JobID, Message: data}:
	default:
		h.logger.Warn("board broadcast queue full, dropping event",
			zap.String("job_id", msg.JobID),
			zap.String("event", msg.Event),
		)
	}
}

// HandleConnection serves one websocket subscriber until it disconnects.
func (h *Hub) HandleConnection(c *websocket.Conn, jobID string) {
	client := &Client{
		JobID: jobID,
		Send:  make(chan []byte, 256),
	}

	h.Register(client)
	defer h.Unregister(client)

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case message, ok := <-client.Send:
				if !ok {
					_ = c.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := c.WriteMessage(websocket.TextMessage, message); err != nil {
					return
				}

			case <-ticker.C:
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket read error", zap.String("job_id", jobID), zap.Error(err))
			}
			break
		}

		var msg model.WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		if msg.Type == model.WSMessageTypePing {
			pong, _ := json.Marshal(model.WSMessage{Type: model.WSMessageTypePong})
			h.reply(client, pong)
		}
	}
}

// reply queues a message for a single subscriber. It goes through Run, which
// alone writes to and closes client.Send.
func (h *Hub) reply(client *Client, data []byte) {
	select {
	case h.broadcast <- &BroadcastMessage{JobID: client.JobID, Message: data, target: client}:
	default:
	}
}
