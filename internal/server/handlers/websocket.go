// internal/server/handlers/websocket.go

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"connectr/internal/domain/events"
	"connectr/internal/domain/identity"
)

// Subscriber is the part of a NATS connection the event stream needs
type Subscriber interface {
	Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// WebSocketConfig contains configuration for WebSocket connections
type WebSocketConfig struct {
	// Time allowed to write a message to the peer
	WriteWait time.Duration

	// Time allowed to read the next pong message from the peer
	PongWait time.Duration

	// Send pings to peer with this period
	PingPeriod time.Duration

	// Maximum message size allowed from peer
	MaxMessageSize int64

	// Outbound messages buffered per client before new ones are dropped
	SendBuffer int
}

// DefaultWebSocketConfig returns the default WebSocket configuration
func DefaultWebSocketConfig() WebSocketConfig {
	return WebSocketConfig{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     (60 * time.Second * 9) / 10,
		MaxMessageSize: 4 * 1024,
		SendBuffer:     256,
	}
}

// EventStreamHandler streams the caller's own mood and location events over a WebSocket
type EventStreamHandler struct {
	tokens     identity.TokenManager
	subscriber Subscriber
	topics     []string
	upgrader   websocket.Upgrader
	config     WebSocketConfig
	log        zerolog.Logger
}

// NewEventStreamHandler creates a handler subscribing to "<topic>.<userID>.>" for each topic
func NewEventStreamHandler(
	tokens identity.TokenManager,
	subscriber Subscriber,
	topics []string,
	allowedOrigins []string,
	log zerolog.Logger,
) *EventStreamHandler {
	return &EventStreamHandler{
		tokens:     tokens,
		subscriber: subscriber,
		topics:     topics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		config: DefaultWebSocketConfig(),
		log:    log.With().Str("component", "event_stream").Logger(),
	}
}

// ServeHTTP authenticates with the token query parameter (or bearer header) and upgrades
func (h *EventStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = bearerToken(r)
	}
	if token == "" {
		respondWithError(w, r, http.StatusUnauthorized, "Missing token", nil)
		return
	}

	claims, err := h.tokens.Validate(token)
	if err != nil {
		respondWithError(w, r, http.StatusUnauthorized, "Invalid or expired token", nil)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to upgrade to WebSocket")
		return
	}

	client := &streamClient{
		conn:   conn,
		send:   make(chan []byte, h.config.SendBuffer),
		done:   make(chan struct{}),
		userID: claims.Subject,
		config: h.config,
		log:    h.log.With().Str("user_id", claims.Subject).Logger(),
	}

	if err := client.subscribe(h.subscriber, events.UserSubjects(claims.Subject, h.topics...)); err != nil {
		client.log.Error().Err(err).Msg("Failed to subscribe to user events")
		client.close()
		return
	}

	go client.writePump()
	go client.readPump()

	welcome, _ := json.Marshal(map[string]interface{}{
		"type":    "welcome",
		"user_id": claims.Subject,
		"time":    time.Now().UTC(),
	})
	client.enqueue(welcome)

	client.log.Info().Msg("Event stream connected")
}

// streamClient is one connected WebSocket
type streamClient struct {
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	userID string
	subs   []*nats.Subscription
	config WebSocketConfig
	log    zerolog.Logger
}

func (c *streamClient) subscribe(sub Subscriber, subjects []string) error {
	for _, subject := range subjects {
		s, err := sub.Subscribe(subject, func(msg *nats.Msg) {
			c.enqueue(msg.Data)
		})
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
		}
		c.subs = append(c.subs, s)
	}
	return nil
}

// enqueue drops the message when the client is gone or too slow
func (c *streamClient) enqueue(msg []byte) {
	select {
	case <-c.done:
	case c.send <- msg:
	default:
		c.log.Warn().Msg("Dropping event for slow client")
	}
}

// readPump discards client frames and keeps the read deadline alive
func (c *streamClient) readPump() {
	defer c.close()

	c.conn.SetReadLimit(c.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn().Err(err).Msg("WebSocket error")
			}
			return
		}
	}
}

// writePump pumps events to the WebSocket connection
func (c *streamClient) writePump() {
	ticker := time.NewTicker(c.config.PingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current WebSocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// close unsubscribes and closes the connection once
func (c *streamClient) close() {
	c.once.Do(func() {
		close(c.done)

		for _, sub := range c.subs {
			sub.Unsubscribe()
		}

		c.conn.Close()
		c.log.Info().Msg("Event stream closed")
	})
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set["*"] || set[origin]
	}
}
