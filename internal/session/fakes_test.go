package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"f2f-dating-app/internal/models"
	"f2f-dating-app/internal/presence"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

var errRemote = errors.New("remote unavailable")

type fakeProfiles struct {
	mu       sync.Mutex
	users    map[string]models.User
	order    []string
	located  map[string][2]float64
	updated  []models.User
	getCalls int
}

func newFakeProfiles(users ...models.User) *fakeProfiles {
	p := &fakeProfiles{users: map[string]models.User{}, located: map[string][2]float64{}}
	for _, u := range users {
		p.users[u.ID] = u
		p.order = append(p.order, u.ID)
	}
	return p
}

func (p *fakeProfiles) Get(_ context.Context, id string) (models.User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.getCalls++
	u, ok := p.users[id]
	if !ok {
		return models.User{}, fmt.Errorf("profile %s: not found", id)
	}
	return u, nil
}

func (p *fakeProfiles) ListExcept(_ context.Context, id string) ([]models.User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []models.User
	for _, uid := range p.order {
		if uid != id {
			out = append(out, p.users[uid])
		}
	}
	return out, nil
}

func (p *fakeProfiles) Update(_ context.Context, u models.User) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[u.ID] = u
	p.updated = append(p.updated, u)
	return nil
}

func (p *fakeProfiles) UpdateLocation(_ context.Context, id string, lat, lng float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.located[id] = [2]float64{lat, lng}
	return nil
}

func (p *fakeProfiles) location(id string) ([2]float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	loc, ok := p.located[id]
	return loc, ok
}

type fakeMessages struct {
	mu      sync.Mutex
	stored  []models.Message
	history []models.Message
	err     error
}

func (m *fakeMessages) Append(_ context.Context, msg models.Message) (models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return models.Message{}, m.err
	}
	msg.Provisional = false
	m.stored = append(m.stored, msg)
	return msg, nil
}

func (m *fakeMessages) ListFor(_ context.Context, userID string) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Message
	for _, msg := range m.history {
		if msg.SenderID == userID || msg.ReceiverID == userID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *fakeMessages) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stored)
}

func (m *fakeMessages) fail(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

type fakeFeed struct {
	ch     chan models.Message
	closed chan struct{}
	once   sync.Once
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{ch: make(chan models.Message, 16), closed: make(chan struct{})}
}

func (f *fakeFeed) Subscribe(context.Context) (FeedSubscription, error) { return f, nil }
func (f *fakeFeed) Messages() <-chan models.Message { return f.ch }

func (f *fakeFeed) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeFeed) push(m models.Message) { f.ch <- m }

type fakeEvents struct {
	mu        sync.Mutex
	list      []models.Event
	updateErr error
	listErr   error
	updates   int
	created   []models.Event
}

func (e *fakeEvents) List(context.Context) ([]models.Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listErr != nil {
		return nil, e.listErr
	}
	out := make([]models.Event, len(e.list))
	for i, ev := range e.list {
		ev.ParticipantsIDs = append([]string(nil), ev.ParticipantsIDs...)
		out[i] = ev
	}
	return out, nil
}

func (e *fakeEvents) Create(_ context.Context, ev models.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.created = append(e.created, ev)
	e.list = append([]models.Event{ev}, e.list...)
	return nil
}

func (e *fakeEvents) UpdateParticipants(_ context.Context, id string, participants []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.updates++
	if e.updateErr != nil {
		return e.updateErr
	}
	for i := range e.list {
		if e.list[i].ID == id {
			e.list[i].ParticipantsIDs = append([]string(nil), participants...)
		}
	}
	return nil
}

func (e *fakeEvents) set(updateErr, listErr error) {
	e.mu.Lock()
	e.updateErr, e.listErr = updateErr, listErr
	e.mu.Unlock()
}

func (e *fakeEvents) updateCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.updates
}

type fakeLikes struct {
	mu       sync.Mutex
	incoming map[string][]string
	recorded [][2]string
	resolved [][2]string
}

func (l *fakeLikes) Record(_ context.Context, liker, liked string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recorded = append(l.recorded, [2]string{liker, liked})
	return nil
}

func (l *fakeLikes) Incoming(_ context.Context, userID string) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.incoming[userID]...), nil
}

func (l *fakeLikes) Resolve(_ context.Context, liker, liked string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resolved = append(l.resolved, [2]string{liker, liked})
	return nil
}

func (l *fakeLikes) snapshot() (recorded, resolved [][2]string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([][2]string(nil), l.recorded...), append([][2]string(nil), l.resolved...)
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (n *fakeNotifier) Notify(_ context.Context, userID, title, _ string, _ map[string]string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, userID+":"+title)
	return nil
}

func (n *fakeNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.sent...)
}

type fakeSink struct {
	mu   sync.Mutex
	sigs []Signal
}

func (s *fakeSink) Deliver(_ string, sig Signal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sigs = append(s.sigs, sig)
}

func (s *fakeSink) of(t SignalType) []Signal {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Signal
	for _, sig := range s.sigs {
		if sig.Type == t {
			out = append(out, sig)
		}
	}
	return out
}

type fakePresence struct {
	syncs   chan presence.Snapshot
	mu      sync.Mutex
	tracked []presence.Payload
	left    bool
}

func newFakePresence() *fakePresence {
	return &fakePresence{syncs: make(chan presence.Snapshot, 4)}
}

func (p *fakePresence) Join(context.Context, string) (presence.Membership, error) { return p, nil }
func (p *fakePresence) Syncs() <-chan presence.Snapshot { return p.syncs }

func (p *fakePresence) Track(_ context.Context, payload presence.Payload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tracked = append(p.tracked, payload)
	return nil
}

func (p *fakePresence) Leave(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.left = true
	return nil
}

func (p *fakePresence) hasLeft() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.left
}

type harness struct {
	profiles *fakeProfiles
	messages *fakeMessages
	feed     *fakeFeed
	events   *fakeEvents
	likes    *fakeLikes
	notifier *fakeNotifier
	sink     *fakeSink
	presence *fakePresence
}

func newHarness(users ...models.User) *harness {
	return &harness{
		profiles: newFakeProfiles(users...),
		messages: &fakeMessages{},
		feed:     newFakeFeed(),
		events:   &fakeEvents{},
		likes:    &fakeLikes{incoming: map[string][]string{}},
		notifier: &fakeNotifier{},
		sink:     &fakeSink{},
		presence: newFakePresence(),
	}
}

func (h *harness) deps() Deps {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return Deps{
		Profiles:      h.profiles,
		Messages:      h.messages,
		Feed:          h.feed,
		Events:        h.events,
		Likes:         h.likes,
		Presence:      h.presence,
		Notifier:      h.notifier,
		Sink:          h.sink,
		Log:           logrus.NewEntry(log),
		RemoteTimeout: time.Second,
	}
}

func (h *harness) start(t *testing.T, viewerID string) *Coordinator {
	t.Helper()
	c, err := Start(context.Background(), h.deps(), viewerID)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func user(id string, age int, gender models.Gender, lat, lng float64, interests ...string) models.User {
	return models.User{
		ID:        id,
		Name:      "name-" + id,
		Age:       age,
		Gender:    gender,
		Latitude:  lat,
		Longitude: lng,
		Interests: models.NewTagSet(interests...),
	}
}

const (
	eventually = 2 * time.Second
	tick       = 5 * time.Millisecond
)
