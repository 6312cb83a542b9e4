package realtime

import (
	"context"
	"fmt"
	"sync"

	"collabdoc/pkg/logger"
	"collabdoc/store"

	"github.com/gorilla/websocket"
)

// WebsocketChannel is a Channel that dials the hub's /ws endpoint. The hub
// owns presence liveness: it folds cursor messages into the roster and
// broadcasts full snapshots on every membership change.
type WebsocketChannel struct {
	baseURL    string // e.g. "ws://host:8080/ws"
	token      string
	documentID string

	mu          sync.Mutex
	self        store.Identity
	conn        *websocket.Conn
	msgHandler  MessageHandler
	presHandler PresenceHandler
	closed      bool
}

func NewWebsocketChannel(baseURL, token, documentID string) *WebsocketChannel {
	return &WebsocketChannel{baseURL: baseURL, token: token, documentID: documentID}
}

func (c *WebsocketChannel) OnMessage(handler MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgHandler = handler
}

func (c *WebsocketChannel) OnPresence(handler PresenceHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.presHandler = handler
}

func (c *WebsocketChannel) Subscribe(ctx context.Context, identity store.Identity, meta PresenceMeta) error {
	url := fmt.Sprintf("%s?docId=%s&token=%s", c.baseURL, c.documentID, c.token)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.self = identity
	c.conn = conn
	c.mu.Unlock()

	go c.readLoop(conn)

	// The hub already knows who we are from the token; the join message
	// only seeds our cursor metadata.
	return c.Publish(ctx, CursorType, CursorUpdate{Offset: meta.Cursor})
}

func (c *WebsocketChannel) readLoop(conn *websocket.Conn) {
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Sugar.Warnf("Channel read for doc %s ended: %v", c.documentID, err)
			}
			return
		}

		c.mu.Lock()
		msgHandler := c.msgHandler
		presHandler := c.presHandler
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return
		}

		if msg.Type == PresenceType {
			var roster []RosterEntry
			if err := DecodePayload(msg, &roster); err != nil {
				logger.Sugar.Warnf("Dropping malformed presence snapshot: %v", err)
				continue
			}
			if presHandler != nil {
				presHandler(roster)
			}
			continue
		}
		if msgHandler != nil {
			msgHandler(msg)
		}
	}
}

func (c *WebsocketChannel) Publish(ctx context.Context, msgType string, payload interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.closed {
		return fmt.Errorf("channel for doc %s is not subscribed", c.documentID)
	}
	msg, err := Encode(msgType, c.documentID, c.self.ID, payload)
	if err != nil {
		return err
	}
	return c.conn.WriteJSON(msg)
}

func (c *WebsocketChannel) UpdateCursor(ctx context.Context, offset int) error {
	return c.Publish(ctx, CursorType, CursorUpdate{Offset: offset})
}

func (c *WebsocketChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
