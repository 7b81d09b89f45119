package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat, in seconds.
	PingInterval = 30
	PongWait     = 60
)

// RedisPublisher publishes topic events for cross-instance broadcast.
type RedisPublisher interface {
	PublishTopicEvent(topic Topic, event string, payload []byte) error
}

// RedisSubscriber subscribes to topic channels and invokes handler for incoming events.
type RedisSubscriber interface {
	SubscribeTopic(topic Topic, handler func(event string, payload []byte)) (cancel func(), err error)
}

// Hub maintains topic -> set of connections and broadcasts availability
// events. Uses Redis pub/sub for horizontal scaling: local broadcast plus
// publish to Redis.
type Hub struct {
	// topic string -> map[clientID]*Client
	topics   map[string]map[string]*Client
	subs     map[string]func() // cancel Redis subscription per topic
	mu       sync.RWMutex
	logger   *zap.Logger
	redisPub RedisPublisher
	redisSub RedisSubscriber
}

// NewHub creates a new availability-feed hub.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	return &Hub{
		topics:   make(map[string]map[string]*Client),
		subs:     make(map[string]func()),
		logger:   logger,
		redisPub: redisPub,
		redisSub: redisSub,
	}
}

// Register adds a client to its topic. Starts the Redis subscription for the
// topic when the first client arrives.
func (h *Hub) Register(c *Client) {
	key := c.Topic.String()
	h.mu.Lock()
	if h.topics[key] == nil {
		h.topics[key] = make(map[string]*Client)
		if h.redisSub != nil {
			cancel, err := h.redisSub.SubscribeTopic(c.Topic, func(event string, payload []byte) {
				h.Broadcast(c.Topic, event, json.RawMessage(payload))
			})
			if err != nil {
				// Publish falls back to a local broadcast for topics
				// without a live subscription.
				h.logger.Warn("redis subscribe failed", zap.Error(err), zap.String("topic", key))
			} else {
				h.subs[key] = cancel
			}
		}
	}
	h.topics[key][c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("client subscribed", zap.String("client_id", c.ID), zap.String("topic", key))
}

// Unregister removes a client from its topic. Cancels the Redis subscription
// when the last client leaves.
func (h *Hub) Unregister(c *Client) {
	key := c.Topic.String()
	h.mu.Lock()
	if m, ok := h.topics[key]; ok {
		delete(m, c.ID)
		if len(m) == 0 {
			delete(h.topics, key)
			if cancel, ok := h.subs[key]; ok {
				cancel()
				delete(h.subs, key)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("client unsubscribed", zap.String("client_id", c.ID), zap.String("topic", key))
}

// SubscriberCount returns the number of local clients on a topic.
func (h *Hub) SubscriberCount(topic Topic) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic.String()])
}

// Broadcast sends an event to all local clients on a topic.
func (h *Hub) Broadcast(topic Topic, event string, payload interface{}) {
	data := marshalPayload(payload)
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	clients := h.topics[topic.String()]
	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			// slow consumer; drop rather than block the broadcast
		}
	}
	h.mu.RUnlock()
}

// Publish fans an event out via Redis; the per-topic subscription delivers
// it back to local clients exactly once, and to every other instance. Falls
// back to a local broadcast when Redis is unavailable.
func (h *Hub) Publish(topic Topic, event string, payload interface{}) {
	data := marshalPayload(payload)
	if h.redisPub != nil {
		err := h.redisPub.PublishTopicEvent(topic, event, data)
		if err == nil {
			if h.hasRedisFeed(topic) {
				return
			}
			// The subscription never came up, so the echo cannot reach
			// local clients; deliver to them directly.
			h.Broadcast(topic, event, data)
			return
		}
		h.logger.Warn("redis publish failed", zap.Error(err), zap.String("topic", topic.String()))
	}
	h.Broadcast(topic, event, data)
}

// hasRedisFeed reports whether local clients on the topic are covered by a
// live Redis subscription. Topics with no local clients need no fallback.
func (h *Hub) hasRedisFeed(topic Topic) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	key := topic.String()
	if len(h.topics[key]) == 0 {
		return true
	}
	_, ok := h.subs[key]
	return ok
}

func marshalPayload(payload interface{}) json.RawMessage {
	switch v := payload.(type) {
	case []byte:
		return v
	case json.RawMessage:
		return v
	default:
		data, _ := json.Marshal(payload)
		return data
	}
}
