// Package presence tracks which profiles currently have a live client
// connection, based on a publish/subscribe channel that delivers full-state
// snapshots.
package presence

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Payload is what a client announces when it starts tracking.
type Payload struct {
	UserID   string    `json:"user_id"`
	OnlineAt time.Time `json:"online_at"`
}

// Snapshot is the full set of keys currently present on the channel.
type Snapshot struct {
	Keys []string
}

// Channel is a named presence channel.
type Channel interface {
	// Join subscribes to the channel under key. The membership is ready to
	// Track once Join returns.
	Join(ctx context.Context, key string) (Membership, error)
}

// Membership is one subscription to a presence channel.
type Membership interface {
	Track(ctx context.Context, p Payload) error
	// Syncs delivers snapshots until Leave is called; the channel is then closed.
	Syncs() <-chan Snapshot
	Leave(ctx context.Context) error
}

var ErrAlreadyStarted = errors.New("presence tracker already started")

type Tracker struct {
	channel   Channel
	heartbeat time.Duration
	log       *logrus.Entry

	mu      sync.RWMutex
	online  map[string]struct{}
	onSync  func([]string)
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewTracker creates a tracker. When heartbeat is positive the local presence
// is re-announced on that interval.
func NewTracker(channel Channel, heartbeat time.Duration, log *logrus.Entry) *Tracker {
	return &Tracker{
		channel:   channel,
		heartbeat: heartbeat,
		log:       log,
		online:    make(map[string]struct{}),
	}
}

// OnSync registers a callback invoked after every applied snapshot. It runs
// on the tracker's goroutine.
func (t *Tracker) OnSync(fn func(online []string)) {
	t.mu.Lock()
	t.onSync = fn
	t.mu.Unlock()
}

// Start joins the channel as selfID, announces presence and applies incoming
// snapshots until Stop is called or ctx ends.
func (t *Tracker) Start(ctx context.Context, selfID string) error {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return ErrAlreadyStarted
	}
	t.started = true
	t.mu.Unlock()

	m, err := t.channel.Join(ctx, selfID)
	if err != nil {
		return err
	}
	payload := Payload{UserID: selfID, OnlineAt: time.Now().UTC()}
	if err := m.Track(ctx, payload); err != nil {
		if leaveErr := m.Leave(context.Background()); leaveErr != nil {
			t.log.WithError(leaveErr).Warn("presence leave after failed track")
		}
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	t.mu.Lock()
	t.cancel = cancel
	t.done = done
	t.mu.Unlock()

	go t.run(runCtx, m, payload, done)
	return nil
}

func (t *Tracker) run(ctx context.Context, m Membership, payload Payload, done chan struct{}) {
	defer close(done)
	defer func() {
		leaveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.Leave(leaveCtx); err != nil {
			t.log.WithError(err).Warn("presence leave failed")
		}
	}()

	var tick <-chan time.Time
	if t.heartbeat > 0 {
		ticker := time.NewTicker(t.heartbeat)
		defer ticker.Stop()
		tick = ticker.C
	}

	syncs := m.Syncs()
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-syncs:
			if !ok {
				return
			}
			t.Sync(snap.Keys)
		case <-tick:
			if err := m.Track(ctx, payload); err != nil {
				t.log.WithError(err).Warn("presence heartbeat failed")
			}
		}
	}
}

// Sync replaces the online set with keys.
func (t *Tracker) Sync(keys []string) {
	next := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		next[k] = struct{}{}
	}

	t.mu.Lock()
	t.online = next
	fn := t.onSync
	t.mu.Unlock()

	if fn != nil {
		fn(sortedKeys(next))
	}
}

func (t *Tracker) IsOnline(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.online[id]
	return ok
}

// Online returns the online ids in ascending order.
func (t *Tracker) Online() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return sortedKeys(t.online)
}

// Stop leaves the channel and waits for the tracker goroutine to exit.
// It is safe to call more than once and before Start.
func (t *Tracker) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.online = make(map[string]struct{})
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
