package redis

import (
	"context"
	"testing"
	"time"

	"f2f-dating-app/internal/models"
	"f2f-dating-app/internal/presence"
	"f2f-dating-app/internal/ratelimit"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	c := New(rdb, logrus.NewEntry(log))
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestQuotaCounter(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()
	q := c.Quota()

	for i := 1; i <= 3; i++ {
		used, allowed, err := q.Consume(ctx, "quota:dm:u1:2026-10-19", 3, 48*time.Hour)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, i, used)
	}

	used, allowed, err := q.Consume(ctx, "quota:dm:u1:2026-10-19", 3, 48*time.Hour)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 3, used)

	n, err := q.Used(ctx, "quota:dm:u1:2026-10-19")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 48*time.Hour, mr.TTL("quota:dm:u1:2026-10-19"))

	n, err = q.Used(ctx, "quota:dm:u2:2026-10-19")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestQuotaCounterBacksDailyLimiter(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	day := time.Date(2026, 10, 19, 23, 0, 0, 0, time.UTC)
	now := day
	limiter := ratelimit.NewDaily("dm", 3, time.UTC, c.Quota()).WithClock(func() time.Time { return now })

	for i := 0; i < 3; i++ {
		dec, err := limiter.TryConsume(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, dec.Allowed)
	}
	dec, err := limiter.TryConsume(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, dec.Allowed)

	now = day.Add(2 * time.Hour)
	dec, err = limiter.TryConsume(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
	assert.Equal(t, 1, dec.Used)
}

func TestMessageFeedDeliversPublishedMessages(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	feed := c.MessageFeed()

	sub, err := feed.Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	sent := models.Message{ID: "m1", SenderID: "a", ReceiverID: "b", Text: "hi", Timestamp: 42}
	require.NoError(t, feed.Publish(ctx, sent))

	select {
	case got := <-sub.Messages():
		assert.Equal(t, sent.ID, got.ID)
		assert.Equal(t, sent.Text, got.Text)
		assert.Equal(t, sent.Timestamp, got.Timestamp)
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
}

func nextSnapshot(t *testing.T, m presence.Membership, want []string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap, ok := <-m.Syncs():
			require.True(t, ok, "syncs closed")
			if assert.ObjectsAreEqual(want, snap.Keys) {
				return
			}
		case <-deadline:
			t.Fatalf("no snapshot with keys %v", want)
		}
	}
}

func TestPresenceChannelSnapshots(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	ch := c.PresenceChannel("online-users", time.Minute)

	a, err := ch.Join(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, a.Track(ctx, presence.Payload{UserID: "a"}))
	nextSnapshot(t, a, []string{"a"})

	b, err := ch.Join(ctx, "b")
	require.NoError(t, err)
	require.NoError(t, b.Track(ctx, presence.Payload{UserID: "b"}))
	nextSnapshot(t, a, []string{"a", "b"})

	require.NoError(t, b.Leave(ctx))
	nextSnapshot(t, a, []string{"a"})

	_, open := <-b.Syncs()
	for open {
		_, open = <-b.Syncs()
	}
	require.NoError(t, a.Leave(ctx))
}

func TestPresenceChannelExpiresStaleMembers(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	ch := c.PresenceChannel("online-users", time.Minute)

	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	ch.now = func() time.Time { return now }

	require.NoError(t, c.rdb.ZAdd(ctx, ch.setKey(),
		goredis.Z{Score: float64(now.Add(-30 * time.Second).UnixMilli()), Member: "fresh"},
		goredis.Z{Score: float64(now.Add(-2 * time.Minute).UnixMilli()), Member: "stale"},
	).Err())

	online, err := ch.Online(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, online)

	left, err := c.rdb.ZCard(ctx, ch.setKey()).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), left)
}

func TestInitializePingsServer(t *testing.T) {
	mr := miniredis.RunT(t)
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	ctx := context.Background()

	c, err := Initialize(ctx, "redis://"+mr.Addr(), logrus.NewEntry(log))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	assert.NoError(t, c.Ping(ctx))

	mr.Close()
	assert.Error(t, c.Ping(ctx))

	_, err = Initialize(ctx, "redis://"+mr.Addr(), logrus.NewEntry(log))
	assert.Error(t, err)

	_, err = Initialize(ctx, "://bad", logrus.NewEntry(log))
	assert.Error(t, err)
}
