// Package session runs one coordinator per signed-in viewer. A coordinator
// owns the viewer's discovery, chat and event state and mutates it on a
// single loop goroutine. Remote calls run on their own goroutines, bounded by
// Deps.RemoteTimeout, and hand their results back to the loop.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"f2f-dating-app/internal/chat"
	"f2f-dating-app/internal/events"
	"f2f-dating-app/internal/matching"
	"f2f-dating-app/internal/models"
	"f2f-dating-app/internal/presence"

	"github.com/sirupsen/logrus"
)

var (
	ErrClosed           = errors.New("session closed")
	ErrProfileNotFound  = errors.New("profile not found")
	ErrNoCandidates     = errors.New("no candidates left")
	ErrNotIncoming      = errors.New("no pending like from this profile")
	ErrUnsafeTag        = errors.New("tag rejected by safety check")
	ErrNoSharedInterest = errors.New("no shared interest with this profile")
)

type Coordinator struct {
	deps     Deps
	viewerID string
	log      *logrus.Entry

	ctx       context.Context
	cancel    context.CancelFunc
	cmds      chan func()
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	started   bool

	presence *presence.Tracker
	feed     FeedSubscription

	// Owned by the loop goroutine.
	viewer    models.User
	profiles  []models.User
	filters   models.FilterState
	decisions *matching.Decisions
	chats     *chat.Store
	board     *events.Board
}

func newCoordinator(deps Deps, viewerID string) *Coordinator {
	deps = deps.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		deps:      deps,
		viewerID:  viewerID,
		log:       deps.Log.WithFields(logrus.Fields{"component": "session", "viewer": viewerID}),
		ctx:       ctx,
		cancel:    cancel,
		cmds:      make(chan func(), 64),
		done:      make(chan struct{}),
		filters:   models.DefaultFilters(),
		decisions: matching.NewDecisions(),
		chats:     chat.NewStore(),
		board:     events.NewBoard(),
	}
}

// Start creates and starts a coordinator for viewerID. Only the viewer's own
// profile is required; other initial reads fall back to empty state.
func Start(ctx context.Context, deps Deps, viewerID string) (*Coordinator, error) {
	c := newCoordinator(deps, viewerID)
	if err := c.start(ctx); err != nil {
		c.cancel()
		return nil, err
	}
	return c, nil
}

func (c *Coordinator) start(ctx context.Context) error {
	// Subscribe before reading history; overlaps are de-duplicated.
	if c.deps.Feed != nil {
		sub, err := c.deps.Feed.Subscribe(c.ctx)
		if err != nil {
			return fmt.Errorf("subscribe message feed: %w", err)
		}
		c.feed = sub
	}

	if err := c.load(ctx); err != nil {
		c.closeFeed()
		return err
	}

	if c.deps.Presence != nil {
		c.presence = presence.NewTracker(c.deps.Presence, c.deps.PresenceHeartbeat, c.log.WithField("component", "presence"))
		c.presence.OnSync(func(online []string) {
			c.emit(SignalPresence, PresencePayload{Online: online})
		})
		if err := c.presence.Start(c.ctx, c.viewerID); err != nil {
			c.log.WithError(err).Warn("presence unavailable")
		}
	}

	c.started = true
	go c.run()
	if c.feed != nil {
		c.wg.Add(1)
		go c.pump(c.feed)
	}
	c.log.Info("session started")
	return nil
}

func (c *Coordinator) load(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.deps.RemoteTimeout)
	defer cancel()

	viewer, err := c.deps.Profiles.Get(ctx, c.viewerID)
	if err != nil {
		return fmt.Errorf("load viewer profile: %w", err)
	}
	c.viewer = viewer

	if profiles, err := c.deps.Profiles.ListExcept(ctx, c.viewerID); err != nil {
		c.log.WithError(err).Warn("load profiles")
	} else {
		c.profiles = profiles
	}

	if c.deps.Messages != nil {
		if msgs, err := c.deps.Messages.ListFor(ctx, c.viewerID); err != nil {
			c.log.WithError(err).Warn("load chat history")
		} else {
			c.chats.LoadHistory(c.viewerID, msgs)
		}
	}

	if c.deps.Events != nil {
		if list, err := c.deps.Events.List(ctx); err != nil {
			c.log.WithError(err).Warn("load events")
		} else {
			c.board.Replace(list)
		}
	}

	if c.deps.Likes != nil {
		if incoming, err := c.deps.Likes.Incoming(ctx, c.viewerID); err != nil {
			c.log.WithError(err).Warn("load incoming likes")
		} else {
			c.decisions = matching.NewDecisions(incoming...)
		}
	}
	return nil
}

// Close stops the loop, leaves the presence channel and cancels the feed
// subscription. Completions of remote calls still in flight are dropped.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		if c.presence != nil {
			c.presence.Stop()
		}
		c.closeFeed()
		if c.started {
			<-c.done
		}
		c.wg.Wait()
		c.log.Info("session closed")
	})
}

func (c *Coordinator) closeFeed() {
	if c.feed == nil {
		return
	}
	if err := c.feed.Close(); err != nil {
		c.log.WithError(err).Warn("close message feed")
	}
}

// ViewerID returns the id the coordinator was started for.
func (c *Coordinator) ViewerID() string {
	return c.viewerID
}

func (c *Coordinator) run() {
	defer close(c.done)
	for {
		select {
		case <-c.ctx.Done():
			return
		case fn := <-c.cmds:
			if c.ctx.Err() != nil {
				return
			}
			fn()
		}
	}
}

func (c *Coordinator) pump(sub FeedSubscription) {
	defer c.wg.Done()
	msgs := sub.Messages()
	for {
		select {
		case <-c.ctx.Done():
			return
		case m, ok := <-msgs:
			if !ok {
				if c.ctx.Err() == nil {
					c.log.Warn("message feed closed")
				}
				return
			}
			c.post(func() { c.applyInbound(m) })
		}
	}
}

// post queues fn on the loop. It is dropped once the coordinator is closed.
func (c *Coordinator) post(fn func()) {
	select {
	case c.cmds <- fn:
	case <-c.ctx.Done():
	}
}

// exec runs fn on the loop and waits for its result.
func exec[T any](ctx context.Context, c *Coordinator, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	var zero T
	res := make(chan result, 1)
	job := func() {
		v, err := fn()
		res <- result{v, err}
	}

	select {
	case c.cmds <- job:
	case <-c.ctx.Done():
		return zero, ErrClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	select {
	case r := <-res:
		return r.v, r.err
	case <-c.done:
		return zero, ErrClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (c *Coordinator) do(ctx context.Context, fn func() error) error {
	_, err := exec(ctx, c, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// remote runs call off the loop under the remote timeout and then queues
// then, if set, on the loop with the call's error. Must be called on the loop.
func (c *Coordinator) remote(op string, call func(ctx context.Context) error, then func(err error)) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(c.ctx, c.deps.RemoteTimeout)
		err := call(ctx)
		cancel()
		if err != nil && c.ctx.Err() == nil {
			c.log.WithError(err).WithField("op", op).Warn("remote call failed")
		}
		if then != nil {
			c.post(func() { then(err) })
		}
	}()
}

// bounded derives a context for a remote call made on the caller's goroutine.
func (c *Coordinator) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.deps.RemoteTimeout)
}

func (c *Coordinator) emit(t SignalType, payload any) {
	if c.deps.Sink == nil {
		return
	}
	c.deps.Sink.Deliver(c.viewerID, Signal{Type: t, Payload: payload})
}

// notify sends a push notification to userID unless they are online.
// Must be called on the loop.
func (c *Coordinator) notify(userID, title, body string, data map[string]string) {
	if c.deps.Notifier == nil || c.isOnline(userID) {
		return
	}
	c.remote("push notification", func(ctx context.Context) error {
		return c.deps.Notifier.Notify(ctx, userID, title, body, data)
	}, nil)
}

func (c *Coordinator) isOnline(id string) bool {
	return c.presence != nil && c.presence.IsOnline(id)
}

// Online returns the ids currently present, in ascending order.
func (c *Coordinator) Online() []string {
	if c.presence == nil {
		return []string{}
	}
	return c.presence.Online()
}

func (c *Coordinator) profile(id string) (models.User, bool) {
	for _, p := range c.profiles {
		if p.ID == id {
			return p, true
		}
	}
	return models.User{}, false
}

// applyInbound merges a message from the feed. Only messages from others that
// address the viewer directly, or an event the viewer belongs to, are kept.
func (c *Coordinator) applyInbound(m models.Message) {
	if m.SenderID == c.viewerID {
		return
	}

	var sessionID string
	var typ models.SessionType
	switch {
	case m.EventID != "":
		if !c.chats.Exists(m.EventID) && !c.board.IsMember(m.EventID, c.viewerID) {
			return
		}
		sessionID, typ = m.EventID, models.SessionEvent
	case m.ReceiverID == c.viewerID:
		sessionID, typ = m.SenderID, models.SessionDirect
	default:
		return
	}

	if !c.chats.ApplyInbound(sessionID, typ, m) {
		return
	}
	cs, _ := c.chats.Get(sessionID)
	c.emit(SignalMessage, MessagePayload{
		SessionID:   sessionID,
		Message:     m,
		Unread:      cs.Unread,
		TotalUnread: c.chats.TotalUnread(),
	})
}
