package session

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Manager hands out one coordinator per viewer. A coordinator lives while it
// is acquired and for the idle timeout after the last release.
type Manager struct {
	deps Deps
	idle time.Duration
	log  *logrus.Entry

	mu      sync.Mutex
	entries map[string]*entry
	closed  bool
}

type entry struct {
	coord *Coordinator
	err   error
	ready chan struct{}
	refs  int
	timer *time.Timer
}

func NewManager(deps Deps, idle time.Duration) *Manager {
	deps = deps.withDefaults()
	return &Manager{
		deps:    deps,
		idle:    idle,
		log:     deps.Log.WithField("component", "session_manager"),
		entries: make(map[string]*entry),
	}
}

// Acquire returns viewerID's coordinator, starting it if needed, and a
// release func that must be called once the caller is done with it.
func (m *Manager) Acquire(ctx context.Context, viewerID string) (*Coordinator, func(), error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, nil, ErrClosed
	}
	e, ok := m.entries[viewerID]
	if ok {
		e.refs++
		if e.timer != nil {
			e.timer.Stop()
			e.timer = nil
		}
		m.mu.Unlock()

		select {
		case <-e.ready:
		case <-ctx.Done():
			m.release(viewerID, e)
			return nil, nil, ctx.Err()
		}
		if e.err != nil {
			return nil, nil, e.err
		}
		return e.coord, m.releaser(viewerID, e), nil
	}

	e = &entry{ready: make(chan struct{}), refs: 1}
	m.entries[viewerID] = e
	m.mu.Unlock()

	coord, err := Start(ctx, m.deps, viewerID)
	m.mu.Lock()
	e.coord, e.err = coord, err
	if err != nil && m.entries[viewerID] == e {
		delete(m.entries, viewerID)
	}
	m.mu.Unlock()
	close(e.ready)

	if err != nil {
		m.log.WithError(err).WithField("viewer", viewerID).Warn("session start failed")
		return nil, nil, err
	}
	return coord, m.releaser(viewerID, e), nil
}

func (m *Manager) releaser(viewerID string, e *entry) func() {
	var once sync.Once
	return func() {
		once.Do(func() { m.release(viewerID, e) })
	}
}

func (m *Manager) release(viewerID string, e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.refs--
	if e.refs > 0 || m.entries[viewerID] != e {
		return
	}
	if m.idle <= 0 {
		delete(m.entries, viewerID)
		go m.closeEntry(e)
		return
	}
	e.timer = time.AfterFunc(m.idle, func() { m.expire(viewerID, e) })
}

func (m *Manager) expire(viewerID string, e *entry) {
	m.mu.Lock()
	if e.refs > 0 || m.entries[viewerID] != e {
		m.mu.Unlock()
		return
	}
	delete(m.entries, viewerID)
	m.mu.Unlock()
	m.closeEntry(e)
}

func (m *Manager) closeEntry(e *entry) {
	<-e.ready
	if e.coord != nil {
		e.coord.Close()
	}
}

// Active returns the number of live coordinators.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Shutdown closes every coordinator. Acquire fails afterwards.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.closed = true
	entries := m.entries
	m.entries = make(map[string]*entry)
	for _, e := range entries {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, e := range entries {
		wg.Add(1)
		go func(e *entry) {
			defer wg.Done()
			m.closeEntry(e)
		}(e)
	}
	wg.Wait()
}
