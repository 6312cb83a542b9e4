package realtime

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"collabdoc/pkg/logger"
	"collabdoc/store"

	"github.com/redis/go-redis/v9"
)

// RedisChannel is a Channel over Redis pub/sub. Messages go through one
// PUBLISH topic per document; the presence roster lives in a Redis hash
// keyed by user id, and every membership or cursor change republishes the
// full roster as a presence message.
type RedisChannel struct {
	rdb        *redis.Client
	documentID string
	topic      string
	presKey    string

	mu          sync.Mutex
	self        store.Identity
	meta        PresenceMeta
	msgHandler  MessageHandler
	presHandler PresenceHandler
	pubsub      *redis.PubSub
	closed      bool
}

func NewRedisChannel(rdb *redis.Client, documentID string) *RedisChannel {
	return &RedisChannel{
		rdb:        rdb,
		documentID: documentID,
		topic:      Topic(documentID),
		presKey:    "presence:" + Topic(documentID),
	}
}

func (c *RedisChannel) OnMessage(handler MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgHandler = handler
}

func (c *RedisChannel) OnPresence(handler PresenceHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.presHandler = handler
}

func (c *RedisChannel) Subscribe(ctx context.Context, identity store.Identity, meta PresenceMeta) error {
	c.mu.Lock()
	c.self = identity
	c.meta = meta
	c.mu.Unlock()

	pubsub := c.rdb.Subscribe(ctx, c.topic)
	// Force the SUBSCRIBE round trip so joins are ordered before our own
	// roster publish below.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}
	c.mu.Lock()
	c.pubsub = pubsub
	c.mu.Unlock()

	go c.readLoop(pubsub)

	raw, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	if err := c.rdb.HSet(ctx, c.presKey, identity.ID, raw).Err(); err != nil {
		return err
	}
	return c.publishRoster(ctx)
}

func (c *RedisChannel) readLoop(pubsub *redis.PubSub) {
	for raw := range pubsub.Channel() {
		var msg Message
		if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
			logger.Sugar.Warnf("Dropping undecodable message on %s: %v", c.topic, err)
			continue
		}

		c.mu.Lock()
		msgHandler := c.msgHandler
		presHandler := c.presHandler
		c.mu.Unlock()

		if msg.Type == PresenceType {
			var roster []RosterEntry
			if err := DecodePayload(msg, &roster); err != nil {
				logger.Sugar.Warnf("Dropping malformed presence snapshot on %s: %v", c.topic, err)
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

func (c *RedisChannel) Publish(ctx context.Context, msgType string, payload interface{}) error {
	c.mu.Lock()
	senderID := c.self.ID
	c.mu.Unlock()

	msg, err := Encode(msgType, c.documentID, senderID, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.rdb.Publish(ctx, c.topic, data).Err()
}

func (c *RedisChannel) UpdateCursor(ctx context.Context, offset int) error {
	c.mu.Lock()
	c.meta.Cursor = offset
	meta := c.meta
	selfID := c.self.ID
	c.mu.Unlock()

	raw, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	if err := c.rdb.HSet(ctx, c.presKey, selfID, raw).Err(); err != nil {
		return err
	}
	return c.publishRoster(ctx)
}

// publishRoster reads the authoritative hash and broadcasts it as a full
// snapshot, sorted by user id for stable delivery.
func (c *RedisChannel) publishRoster(ctx context.Context) error {
	members, err := c.rdb.HGetAll(ctx, c.presKey).Result()
	if err != nil {
		return err
	}

	roster := make([]RosterEntry, 0, len(members))
	for userID, rawMeta := range members {
		var meta PresenceMeta
		if err := json.Unmarshal([]byte(rawMeta), &meta); err != nil {
			logger.Sugar.Warnf("Skipping unreadable presence entry for %s: %v", userID, err)
			continue
		}
		roster = append(roster, RosterEntry{UserID: userID, Metadata: meta})
	}
	sort.Slice(roster, func(i, j int) bool { return roster[i].UserID < roster[j].UserID })

	return c.Publish(ctx, PresenceType, roster)
}

func (c *RedisChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	pubsub := c.pubsub
	selfID := c.self.ID
	c.mu.Unlock()

	ctx := context.Background()
	if err := c.rdb.HDel(ctx, c.presKey, selfID).Err(); err != nil {
		logger.Sugar.Warnf("Failed to remove presence entry for %s: %v", selfID, err)
	}
	if err := c.publishRoster(ctx); err != nil {
		logger.Sugar.Warnf("Failed to publish leave snapshot for %s: %v", selfID, err)
	}
	if pubsub != nil {
		return pubsub.Close()
	}
	return nil
}
