package presence

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMembership struct {
	mu       sync.Mutex
	tracked  []Payload
	left     bool
	syncs    chan Snapshot
	trackErr error
}

func (m *fakeMembership) Track(_ context.Context, p Payload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracked = append(m.tracked, p)
	return m.trackErr
}

func (m *fakeMembership) Syncs() <-chan Snapshot { return m.syncs }

func (m *fakeMembership) Leave(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.left = true
	return nil
}

func (m *fakeMembership) hasLeft() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.left
}

type fakeChannel struct {
	m   *fakeMembership
	key string
}

func (c *fakeChannel) Join(_ context.Context, key string) (Membership, error) {
	c.key = key
	return c.m, nil
}

func quietLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestSyncReplacesWholeSet(t *testing.T) {
	tr := NewTracker(&fakeChannel{m: &fakeMembership{}}, 0, quietLog())

	tr.Sync([]string{"u1", "u2"})
	assert.True(t, tr.IsOnline("u2"))

	tr.Sync([]string{"u1"})
	assert.True(t, tr.IsOnline("u1"))
	assert.False(t, tr.IsOnline("u2"))
	assert.Equal(t, []string{"u1"}, tr.Online())
}

func TestStartTracksAndAppliesSnapshots(t *testing.T) {
	m := &fakeMembership{syncs: make(chan Snapshot)}
	ch := &fakeChannel{m: m}
	tr := NewTracker(ch, 0, quietLog())

	synced := make(chan []string, 1)
	tr.OnSync(func(online []string) { synced <- online })

	require.NoError(t, tr.Start(context.Background(), "me"))
	assert.Equal(t, "me", ch.key)
	require.Len(t, m.tracked, 1)
	assert.Equal(t, "me", m.tracked[0].UserID)

	m.syncs <- Snapshot{Keys: []string{"me", "u2"}}
	select {
	case got := <-synced:
		assert.Equal(t, []string{"me", "u2"}, got)
	case <-time.After(time.Second):
		t.Fatal("snapshot not applied")
	}
	assert.True(t, tr.IsOnline("u2"))

	assert.ErrorIs(t, tr.Start(context.Background(), "me"), ErrAlreadyStarted)

	tr.Stop()
	assert.True(t, m.hasLeft())
	assert.Empty(t, tr.Online())
	tr.Stop()
}

func TestStartLeavesWhenTrackFails(t *testing.T) {
	m := &fakeMembership{syncs: make(chan Snapshot), trackErr: errors.New("boom")}
	tr := NewTracker(&fakeChannel{m: m}, 0, quietLog())

	assert.Error(t, tr.Start(context.Background(), "me"))
	assert.True(t, m.hasLeft())
}

func TestStopBeforeStart(t *testing.T) {
	tr := NewTracker(&fakeChannel{m: &fakeMembership{}}, 0, quietLog())
	tr.Stop()
}
