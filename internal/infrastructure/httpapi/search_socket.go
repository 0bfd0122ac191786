package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	app_service "onchain-intel/internal/application/service"
	"onchain-intel/internal/domain/entity"
	"onchain-intel/internal/infrastructure/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client message types
const (
	MessageInput          = "input"
	MessageAcceptFound    = "accept_found"
	MessageAcceptNotFound = "accept_not_found"
)

// Server event types
const (
	EventState   = "state"
	EventCreated = "created"
	EventError   = "error"
)

// SearchMessage is sent by the client over the search socket
type SearchMessage struct {
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
}

// SearchEvent is pushed to the client over the search socket
type SearchEvent struct {
	Type    string                `json:"type"`
	State   *entity.SearchState   `json:"state,omitempty"`
	Record  *entity.AddressRecord `json:"record,omitempty"`
	Message string                `json:"message,omitempty"`
}

// searchSession binds one websocket connection to one resolver
type searchSession struct {
	conn     *websocket.Conn
	sendMu   sync.Mutex
	resolver *app_service.Resolver
	logger   *logger.Logger
}

func (s *Server) handleSearchSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	debounce := s.deps.Debounce
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	session := &searchSession{
		conn:     conn,
		resolver: app_service.NewResolver(s.deps.Addresses, s.deps.Lookup, debounce, s.logger),
		logger:   s.logger.WithFields(map[string]interface{}{"remote_addr": r.RemoteAddr}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.logger.Debug("Search session opened", zap.String("remote_addr", r.RemoteAddr))
	session.run(ctx)
	s.logger.Debug("Search session closed", zap.String("remote_addr", r.RemoteAddr))
}

func (c *searchSession) run(ctx context.Context) {
	states, unsubscribe := c.resolver.Subscribe()
	defer func() {
		unsubscribe()
		c.resolver.Close()
		c.conn.Close()
	}()

	initial := c.resolver.State()
	if err := c.send(SearchEvent{Type: EventState, State: &initial}); err != nil {
		return
	}

	done := make(chan struct{})
	defer close(done)
	go c.writer(states, done)

	c.reader(ctx)
}

// writer forwards resolver transitions and keeps the connection alive
func (c *searchSession) writer(states <-chan entity.SearchState, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case st, ok := <-states:
			if !ok {
				return
			}
			if err := c.send(SearchEvent{Type: EventState, State: &st}); err != nil {
				c.logger.Debug("Failed to push search state", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (c *searchSession) reader(ctx context.Context) {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("Search socket closed unexpectedly", zap.Error(err))
			}
			return
		}

		var msg SearchMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.send(SearchEvent{Type: EventError, Message: "Malformed message"})
			continue
		}
		c.handle(ctx, msg)
	}
}

func (c *searchSession) handle(ctx context.Context, msg SearchMessage) {
	switch msg.Type {
	case MessageInput:
		c.resolver.SetInput(msg.Value)
	case MessageAcceptFound, MessageAcceptNotFound:
		var (
			rec *entity.AddressRecord
			err error
		)
		if msg.Type == MessageAcceptFound {
			rec, err = c.resolver.AcceptFound(ctx)
		} else {
			rec, err = c.resolver.AcceptNotFound(ctx)
		}
		if err != nil {
			c.logger.Debug("Search accept rejected", zap.String("type", msg.Type), zap.Error(err))
			c.send(SearchEvent{Type: EventError, Message: err.Error()})
			return
		}
		c.send(SearchEvent{Type: EventCreated, Record: rec})
	default:
		c.send(SearchEvent{Type: EventError, Message: "Unknown message type " + msg.Type})
	}
}

// send serializes writes to the connection
func (c *searchSession) send(ev SearchEvent) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(ev)
}
