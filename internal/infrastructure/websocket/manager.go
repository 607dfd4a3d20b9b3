package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"keurimmo/internal/domain/repository"
	"keurimmo/internal/usecase"
	"keurimmo/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
)

// Client is one WebSocket connection. Each connection owns at most one open
// conversation stream and one typing tracker at a time; joining a new
// conversation tears the previous one down.
type Client struct {
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte

	mu        sync.Mutex
	stream    *usecase.MessageStream
	typingSub repository.Subscription
	tracker   *usecase.TypingTracker
}

// Manager tracks active connections and fans realtime payloads out to them.
type Manager struct {
	directory     *usecase.DirectoryUseCase
	messaging     *usecase.MessagingUseCase
	typing        *usecase.TypingService
	messagingRepo repository.MessagingRepository

	clients    map[*Client]struct{}
	byUser     map[string]map[*Client]struct{}
	Register   chan *Client
	Unregister chan *Client
	mutex      sync.RWMutex
}

func NewManager(
	directory *usecase.DirectoryUseCase,
	messaging *usecase.MessagingUseCase,
	typing *usecase.TypingService,
	messagingRepo repository.MessagingRepository,
) *Manager {
	return &Manager{
		directory:     directory,
		messaging:     messaging,
		typing:        typing,
		messagingRepo: messagingRepo,
		clients:       make(map[*Client]struct{}),
		byUser:        make(map[string]map[*Client]struct{}),
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
	}
}

// Start runs the registration loop until ctx is done.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case client := <-m.Register:
				m.mutex.Lock()
				m.clients[client] = struct{}{}
				if m.byUser[client.UserID] == nil {
					m.byUser[client.UserID] = make(map[*Client]struct{})
				}
				m.byUser[client.UserID][client] = struct{}{}
				m.mutex.Unlock()
				logger.Info("WebSocket client connected: %s", client.UserID)

			case client := <-m.Unregister:
				m.mutex.Lock()
				if _, ok := m.clients[client]; ok {
					delete(m.clients, client)
					if set := m.byUser[client.UserID]; set != nil {
						delete(set, client)
						if len(set) == 0 {
							delete(m.byUser, client.UserID)
						}
					}
					close(client.Send)
				}
				m.mutex.Unlock()
				client.releaseConversation()
				logger.Info("WebSocket client disconnected: %s", client.UserID)

			case <-ctx.Done():
				return
			}
		}
	}()
}

// SendToUser delivers a payload to every open connection of the user.
func (m *Manager) SendToUser(userID string, payload []byte) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	for client := range m.byUser[userID] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

// releaseConversation closes the client's stream, typing tracker and typing
// subscription, if any. Safe to call with none open.
func (c *Client) releaseConversation() {
	c.mu.Lock()
	stream := c.stream
	sub := c.typingSub
	tracker := c.tracker
	c.stream = nil
	c.typingSub = nil
	c.tracker = nil
	c.mu.Unlock()

	if tracker != nil {
		tracker.Close()
	}
	if sub != nil {
		sub.Unsubscribe()
	}
	if stream != nil {
		stream.Close()
	}
}

// ReadPump reads frames from the connection and dispatches them until the
// peer goes away.
func (c *Client) ReadPump(m *Manager) {
	defer func() {
		m.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("WebSocket read error for %s: %v", c.UserID, err)
			}
			break
		}
		m.HandleClientMessage(c, payload)
	}
}

// WritePump drains the send channel onto the connection and keeps the
// connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
