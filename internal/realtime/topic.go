package realtime

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// TopicKind is the resource family an availability feed covers.
type TopicKind string

const (
	TopicOffice TopicKind = "office"
	TopicRoom   TopicKind = "room"
)

// Topic identifies one availability feed: office bookings for one office, or
// desk reservations for one room.
type Topic struct {
	Kind TopicKind
	ID   uuid.UUID
}

// OfficeTopic returns the feed topic for an office.
func OfficeTopic(id uuid.UUID) Topic { return Topic{Kind: TopicOffice, ID: id} }

// RoomTopic returns the feed topic for a room.
func RoomTopic(id uuid.UUID) Topic { return Topic{Kind: TopicRoom, ID: id} }

// String renders the topic as "kind:uuid", the form used on the wire and as
// the Redis channel suffix.
func (t Topic) String() string {
	return string(t.Kind) + ":" + t.ID.String()
}

// ErrInvalidTopic rejects malformed topic strings.
var ErrInvalidTopic = errors.New("invalid topic")

// ParseTopic parses "office:<uuid>" or "room:<uuid>".
func ParseTopic(s string) (Topic, error) {
	kind, idStr, ok := strings.Cut(s, ":")
	if !ok {
		return Topic{}, ErrInvalidTopic
	}
	if TopicKind(kind) != TopicOffice && TopicKind(kind) != TopicRoom {
		return Topic{}, ErrInvalidTopic
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return Topic{}, ErrInvalidTopic
	}
	return Topic{Kind: TopicKind(kind), ID: id}, nil
}
