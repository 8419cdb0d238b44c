package session

import (
	"context"
	"time"

	"f2f-dating-app/internal/assistant"
	"f2f-dating-app/internal/models"
	"f2f-dating-app/internal/presence"
	"f2f-dating-app/internal/ratelimit"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ProfileStore reads and writes profiles.
type ProfileStore interface {
	Get(ctx context.Context, id string) (models.User, error)
	ListExcept(ctx context.Context, id string) ([]models.User, error)
	Update(ctx context.Context, u models.User) error
	UpdateLocation(ctx context.Context, id string, lat, lng float64) error
}

// MessageStore persists messages.
type MessageStore interface {
	Append(ctx context.Context, m models.Message) (models.Message, error)
	// ListFor returns messages sent or received by userID, oldest first.
	ListFor(ctx context.Context, userID string) ([]models.Message, error)
}

// MessageFeed delivers newly stored messages. Delivery is at-least-once and
// unordered relative to MessageStore reads.
type MessageFeed interface {
	Subscribe(ctx context.Context) (FeedSubscription, error)
}

type FeedSubscription interface {
	Messages() <-chan models.Message
	Close() error
}

type EventStore interface {
	// List returns all events, newest first.
	List(ctx context.Context) ([]models.Event, error)
	Create(ctx context.Context, e models.Event) error
	UpdateParticipants(ctx context.Context, eventID string, participants []string) error
}

// LikeStore keeps pending one-sided likes.
type LikeStore interface {
	Record(ctx context.Context, likerID, likedID string) error
	// Incoming returns the ids of profiles that liked userID.
	Incoming(ctx context.Context, userID string) ([]string, error)
	Resolve(ctx context.Context, likerID, likedID string) error
}

// Notifier sends a mobile push notification. Delivery is best-effort.
type Notifier interface {
	Notify(ctx context.Context, userID, title, body string, data map[string]string) error
}

// Sink receives signals for a viewer's connected clients. Deliver must not block.
type Sink interface {
	Deliver(userID string, sig Signal)
}

type SignalType string

const (
	SignalMatch            SignalType = "match"
	SignalNoCommonInterest SignalType = "no_common_interest"
	SignalOpenSession      SignalType = "open_session"
	SignalJoinFailed       SignalType = "join_failed"
	SignalSendFailed       SignalType = "send_failed"
	SignalMessage          SignalType = "message"
	SignalPresence         SignalType = "presence"
	SignalTyping           SignalType = "typing"
	SignalRateLimited      SignalType = "rate_limited"
	SignalEventsChanged    SignalType = "events_changed"
)

type Signal struct {
	Type    SignalType `json:"type"`
	Payload any        `json:"payload,omitempty"`
}

type Deps struct {
	Profiles  ProfileStore
	Messages  MessageStore
	Feed      MessageFeed
	Events    EventStore
	Likes     LikeStore
	Presence  presence.Channel
	DMLimiter *ratelimit.Daily
	Assistant *assistant.Assistant
	Notifier  Notifier
	Sink      Sink
	Log       *logrus.Entry

	// RemoteTimeout bounds every remote call made by a coordinator.
	RemoteTimeout     time.Duration
	PresenceHeartbeat time.Duration

	NewID func() string
	Now   func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.RemoteTimeout <= 0 {
		d.RemoteTimeout = 10 * time.Second
	}
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Log == nil {
		d.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	if d.Assistant == nil {
		d.Assistant = assistant.New(nil, d.Log)
	}
	if d.DMLimiter == nil {
		d.DMLimiter = ratelimit.NewDaily("dm", ratelimit.DefaultDirectMessageLimit, time.UTC, ratelimit.NewMemoryCounter())
	}
	return d
}
