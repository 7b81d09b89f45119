package realtime

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type fakePubSub struct {
	published []string // topic strings, in publish order
	failPub   bool
	failSub   bool

	handlers map[string]func(event string, payload []byte)
	cancels  map[string]int
}

func newFakePubSub() *fakePubSub {
	return &fakePubSub{
		handlers: make(map[string]func(event string, payload []byte)),
		cancels:  make(map[string]int),
	}
}

func (f *fakePubSub) PublishTopicEvent(topic Topic, event string, payload []byte) error {
	if f.failPub {
		return errors.New("redis down")
	}
	f.published = append(f.published, topic.String())
	// Mirror what Redis does: deliver back to the subscribed handler.
	if h, ok := f.handlers[topic.String()]; ok {
		h(event, payload)
	}
	return nil
}

func (f *fakePubSub) SubscribeTopic(topic Topic, handler func(event string, payload []byte)) (func(), error) {
	if f.failSub {
		return nil, errors.New("redis down")
	}
	key := topic.String()
	f.handlers[key] = handler
	return func() {
		delete(f.handlers, key)
		f.cancels[key]++
	}, nil
}

func newTestClient(topic Topic) *Client {
	return &Client{ID: uuid.New().String(), Topic: topic, send: make(chan WSMessage, 8)}
}

func TestHubRegisterUnregister(t *testing.T) {
	ps := newFakePubSub()
	hub := NewHub(zap.NewNop(), ps, ps)
	topic := OfficeTopic(uuid.New())

	c1 := newTestClient(topic)
	c2 := newTestClient(topic)
	hub.Register(c1)
	hub.Register(c2)

	if got := hub.SubscriberCount(topic); got != 2 {
		t.Errorf("SubscriberCount = %d, want 2", got)
	}
	if _, ok := ps.handlers[topic.String()]; !ok {
		t.Error("first register should open the Redis subscription")
	}

	hub.Unregister(c1)
	if ps.cancels[topic.String()] != 0 {
		t.Error("subscription cancelled while clients remain")
	}
	hub.Unregister(c2)
	if ps.cancels[topic.String()] != 1 {
		t.Error("last unregister should cancel the Redis subscription")
	}
	if got := hub.SubscriberCount(topic); got != 0 {
		t.Errorf("SubscriberCount = %d, want 0", got)
	}
}

func TestHubPublishDeliversOnce(t *testing.T) {
	ps := newFakePubSub()
	hub := NewHub(zap.NewNop(), ps, ps)
	topic := RoomTopic(uuid.New())

	c := newTestClient(topic)
	hub.Register(c)

	hub.Publish(topic, "reservation_created", map[string]string{"hello": "world"})

	if len(ps.published) != 1 {
		t.Fatalf("published %d events, want 1", len(ps.published))
	}
	select {
	case msg := <-c.send:
		if msg.Event != "reservation_created" {
			t.Errorf("event = %q, want reservation_created", msg.Event)
		}
		var body map[string]string
		if err := json.Unmarshal(msg.Data, &body); err != nil || body["hello"] != "world" {
			t.Errorf("payload = %s, want round-tripped body", msg.Data)
		}
	default:
		t.Fatal("client received no message")
	}
	// The Redis echo is the only local delivery path.
	select {
	case <-c.send:
		t.Fatal("client received a duplicate message")
	default:
	}
}

func TestHubPublishFallsBackWhenRedisFails(t *testing.T) {
	ps := newFakePubSub()
	ps.failPub = true
	hub := NewHub(zap.NewNop(), ps, ps)
	topic := OfficeTopic(uuid.New())

	c := newTestClient(topic)
	hub.Register(c)

	hub.Publish(topic, "booking_created", map[string]string{"x": "y"})

	select {
	case msg := <-c.send:
		if msg.Event != "booking_created" {
			t.Errorf("event = %q, want booking_created", msg.Event)
		}
	default:
		t.Fatal("fallback broadcast did not reach the client")
	}
}

func TestHubPublishFallsBackWhenSubscribeFails(t *testing.T) {
	ps := newFakePubSub()
	ps.failSub = true
	hub := NewHub(zap.NewNop(), ps, ps)
	topic := RoomTopic(uuid.New())

	c := newTestClient(topic)
	hub.Register(c)

	// The Redis publish itself succeeds, but with no subscription the echo
	// cannot come back; the hub must deliver to local clients directly.
	hub.Publish(topic, "reservation_created", map[string]string{"x": "y"})

	select {
	case msg := <-c.send:
		if msg.Event != "reservation_created" {
			t.Errorf("event = %q, want reservation_created", msg.Event)
		}
	default:
		t.Fatal("client on an unsubscribed topic received nothing")
	}
	select {
	case <-c.send:
		t.Fatal("event delivered twice")
	default:
	}
}

func TestHubBroadcastSkipsOtherTopics(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	topicA := OfficeTopic(uuid.New())
	topicB := OfficeTopic(uuid.New())

	a := newTestClient(topicA)
	b := newTestClient(topicB)
	hub.Register(a)
	hub.Register(b)

	hub.Broadcast(topicA, "booking_deleted", nil)

	if len(a.send) != 1 {
		t.Errorf("topic A client got %d messages, want 1", len(a.send))
	}
	if len(b.send) != 0 {
		t.Errorf("topic B client got %d messages, want 0", len(b.send))
	}
}

func TestParseTopic(t *testing.T) {
	id := uuid.New()

	t.Run("round trip", func(t *testing.T) {
		for _, topic := range []Topic{OfficeTopic(id), RoomTopic(id)} {
			parsed, err := ParseTopic(topic.String())
			if err != nil {
				t.Fatalf("ParseTopic(%q): %v", topic.String(), err)
			}
			if parsed != topic {
				t.Errorf("ParseTopic(%q) = %+v, want %+v", topic.String(), parsed, topic)
			}
		}
	})

	t.Run("rejects malformed", func(t *testing.T) {
		for _, s := range []string{"", "office", "desk:" + id.String(), "office:not-a-uuid", id.String()} {
			if _, err := ParseTopic(s); !errors.Is(err, ErrInvalidTopic) {
				t.Errorf("ParseTopic(%q) = %v, want ErrInvalidTopic", s, err)
			}
		}
	})
}
