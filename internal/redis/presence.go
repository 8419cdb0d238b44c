package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"f2f-dating-app/internal/presence"

	"github.com/redis/go-redis/v9"
)

// PresenceChannel implements presence.Channel with a sorted set of member
// heartbeats and a pub/sub channel that announces changes. A member whose
// last heartbeat is older than the TTL drops out of snapshots.
type PresenceChannel struct {
	c       *Client
	name    string
	ttl     time.Duration
	refresh time.Duration
	now     func() time.Time
}

func (c *Client) PresenceChannel(name string, ttl time.Duration) *PresenceChannel {
	return &PresenceChannel{c: c, name: name, ttl: ttl, refresh: ttl / 3, now: time.Now}
}

func (p *PresenceChannel) setKey() string { return "presence:" + p.name }
func (p *PresenceChannel) changesTopic() string { return "presence:" + p.name + ":changes" }

// Online returns the members with a live heartbeat, in ascending order.
// Expired members are removed from the set.
func (p *PresenceChannel) Online(ctx context.Context) ([]string, error) {
	cutoff := p.now().Add(-p.ttl).UnixMilli()
	if err := p.c.rdb.ZRemRangeByScore(ctx, p.setKey(), "-inf", "("+strconv.FormatInt(cutoff, 10)).Err(); err != nil {
		return nil, fmt.Errorf("prune presence: %w", err)
	}
	keys, err := p.c.rdb.ZRangeByScore(ctx, p.setKey(), &redis.ZRangeBy{
		Min: strconv.FormatInt(cutoff, 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("read presence: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (p *PresenceChannel) Join(ctx context.Context, key string) (presence.Membership, error) {
	ps := p.c.rdb.Subscribe(ctx, p.changesTopic())
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("join presence channel %s: %w", p.name, err)
	}

	m := &membership{
		ch:      p,
		key:     key,
		ps:      ps,
		syncs:   make(chan presence.Snapshot, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go m.run()
	return m, nil
}

type membership struct {
	ch  *PresenceChannel
	key string
	ps  *redis.PubSub

	syncs   chan presence.Snapshot
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// Track records a heartbeat for the member and announces the change.
func (m *membership) Track(ctx context.Context, _ presence.Payload) error {
	rdb := m.ch.c.rdb
	score := float64(m.ch.now().UnixMilli())
	if err := rdb.ZAdd(ctx, m.ch.setKey(), redis.Z{Score: score, Member: m.key}).Err(); err != nil {
		return fmt.Errorf("track presence: %w", err)
	}
	return rdb.Publish(ctx, m.ch.changesTopic(), m.key).Err()
}

// Syncs delivers the latest snapshot; a snapshot nobody read yet is replaced
// by a newer one.
func (m *membership) Syncs() <-chan presence.Snapshot {
	return m.syncs
}

func (m *membership) Leave(ctx context.Context) error {
	var err error
	m.once.Do(func() {
		rdb := m.ch.c.rdb
		err = rdb.ZRem(ctx, m.ch.setKey(), m.key).Err()
		if err == nil {
			err = rdb.Publish(ctx, m.ch.changesTopic(), m.key).Err()
		}
		close(m.done)
		if cerr := m.ps.Close(); err == nil {
			err = cerr
		}
		<-m.stopped
	})
	return err
}

func (m *membership) run() {
	defer close(m.stopped)
	defer close(m.syncs)

	var tick <-chan time.Time
	if m.ch.refresh > 0 {
		ticker := time.NewTicker(m.ch.refresh)
		defer ticker.Stop()
		tick = ticker.C
	}

	changes := m.ps.Channel()
	m.sync()
	for {
		select {
		case <-m.done:
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			m.sync()
		case <-tick:
			m.sync()
		}
	}
}

func (m *membership) sync() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	keys, err := m.ch.Online(ctx)
	if err != nil {
		m.ch.c.log.WithError(err).Warn("presence snapshot failed")
		return
	}

	snap := presence.Snapshot{Keys: keys}
	select {
	case m.syncs <- snap:
		return
	default:
	}
	select {
	case <-m.syncs:
	default:
	}
	select {
	case m.syncs <- snap:
	case <-m.done:
	}
}
