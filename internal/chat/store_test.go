package chat

import (
	"testing"

	"f2f-dating-app/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inbound(id, from string, ts int64) models.Message {
	return models.Message{ID: id, SenderID: from, ReceiverID: "me", Text: "hi " + id, Timestamp: ts}
}

func TestEnsureIsIdempotent(t *testing.T) {
	s := NewStore()
	assert.True(t, s.Ensure("p1", models.SessionDirect, ""))
	assert.False(t, s.Ensure("p1", models.SessionDirect, ""))
	assert.True(t, s.Ensure("e1", models.SessionEvent, ""))

	sessions := s.Sessions()
	require.Len(t, sessions, 2)
	assert.Equal(t, "e1", sessions[0].ID, "newest session first")
	assert.Equal(t, "e1", sessions[0].EventID)
	assert.Equal(t, models.SessionEvent, sessions[0].Type)
}

func TestApplyInboundDedupByTimestamp(t *testing.T) {
	s := NewStore()
	s.Ensure("p1", models.SessionDirect, "")

	assert.True(t, s.ApplyInbound("p1", models.SessionDirect, inbound("m1", "p1", 1000)))
	assert.False(t, s.ApplyInbound("p1", models.SessionDirect, inbound("m1-redelivered", "p1", 1000)))

	cs, _ := s.Get("p1")
	assert.Len(t, cs.Messages, 1)
	assert.Equal(t, 1, cs.Unread)
}

func TestApplyInboundCreatesSessionWithUnread(t *testing.T) {
	s := NewStore()
	assert.True(t, s.ApplyInbound("p2", models.SessionDirect, inbound("m1", "p2", 5)))

	cs, ok := s.Get("p2")
	require.True(t, ok)
	assert.Equal(t, models.SessionDirect, cs.Type)
	assert.Equal(t, 1, cs.Unread)
}

func TestUnreadOnlyForInactiveSessions(t *testing.T) {
	s := NewStore()
	s.Ensure("p1", models.SessionDirect, "")
	s.Ensure("p2", models.SessionDirect, "")
	require.NoError(t, s.SetActive("p1"))

	s.ApplyInbound("p1", models.SessionDirect, inbound("a", "p1", 1))
	s.ApplyInbound("p2", models.SessionDirect, inbound("b", "p2", 2))
	_, err := s.AppendLocal("me", "hello", "local-1", 3)
	require.NoError(t, err)

	active, _ := s.Get("p1")
	other, _ := s.Get("p2")
	assert.Zero(t, active.Unread)
	assert.Equal(t, 1, other.Unread)
	assert.Equal(t, 1, s.TotalUnread())

	require.NoError(t, s.SetActive("p2"))
	other, _ = s.Get("p2")
	assert.Zero(t, other.Unread)
}

func TestAppendLocalRequiresActiveSession(t *testing.T) {
	s := NewStore()
	s.Ensure("p1", models.SessionDirect, "")

	_, err := s.AppendLocal("me", "hello", "x", 1)
	assert.ErrorIs(t, err, ErrNoActiveSession)

	require.NoError(t, s.SetActive("p1"))
	_, err = s.AppendLocal("me", "   ", "x", 1)
	assert.ErrorIs(t, err, ErrEmptyMessage)

	assert.ErrorIs(t, s.SetActive("missing"), ErrSessionNotFound)
}

func TestAppendLocalThenConfirm(t *testing.T) {
	s := NewStore()
	s.Ensure("p1", models.SessionDirect, "")
	require.NoError(t, s.SetActive("p1"))

	msg, err := s.AppendLocal("me", "hello", "local-1", 100)
	require.NoError(t, err)
	assert.True(t, msg.Provisional)
	assert.Equal(t, "p1", msg.ReceiverID)

	ok := s.Confirm("p1", "local-1", models.Message{ID: "remote-1", SenderID: "me", ReceiverID: "p1", Text: "hello", Timestamp: 100})
	assert.True(t, ok)
	assert.False(t, s.Confirm("p1", "local-1", models.Message{ID: "remote-2"}))

	cs, _ := s.Get("p1")
	require.Len(t, cs.Messages, 1)
	assert.Equal(t, "remote-1", cs.Messages[0].ID)
	assert.False(t, cs.Messages[0].Provisional)
}

func TestAppendLocalKeepsTimestampsMonotonic(t *testing.T) {
	s := NewStore()
	s.ApplyInbound("p1", models.SessionDirect, inbound("a", "p1", 500))
	require.NoError(t, s.SetActive("p1"))

	msg, err := s.AppendLocal("me", "late clock", "l", 400)
	require.NoError(t, err)
	assert.Equal(t, int64(500), msg.Timestamp)
}

func TestEventSessionMessagesCarryEventID(t *testing.T) {
	s := NewStore()
	s.Ensure("ev", models.SessionEvent, "ev")
	require.NoError(t, s.SetActive("ev"))

	msg, err := s.AppendLocal("me", "see you there", "l", 1)
	require.NoError(t, err)
	assert.Equal(t, "ev", msg.EventID)
}

func TestApplyInboundOutOfOrderKeepsSortedOrder(t *testing.T) {
	s := NewStore()
	s.ApplyInbound("p1", models.SessionDirect, inbound("c", "p1", 300))
	s.ApplyInbound("p1", models.SessionDirect, inbound("a", "p1", 100))
	s.ApplyInbound("p1", models.SessionDirect, inbound("b", "p1", 200))

	cs, _ := s.Get("p1")
	require.Len(t, cs.Messages, 3)
	assert.Equal(t, "a", cs.Messages[0].ID)
	assert.Equal(t, "c", cs.LastMessage().ID)
}

func TestLoadHistoryGroupsByPartner(t *testing.T) {
	s := NewStore()
	s.Ensure("ev", models.SessionEvent, "ev")
	s.Ensure("p1", models.SessionDirect, "")

	s.LoadHistory("me", []models.Message{
		{ID: "1", SenderID: "me", ReceiverID: "p1", Timestamp: 1},
		{ID: "2", SenderID: "p2", ReceiverID: "me", Timestamp: 2},
		{ID: "3", SenderID: "p1", ReceiverID: "me", Timestamp: 3},
	})

	p1, ok := s.Get("p1")
	require.True(t, ok)
	assert.Len(t, p1.Messages, 2)
	p2, ok := s.Get("p2")
	require.True(t, ok)
	assert.Len(t, p2.Messages, 1)
	assert.True(t, s.Exists("ev"))
	assert.Len(t, s.Sessions(), 3)
}

func TestGetReturnsCopy(t *testing.T) {
	s := NewStore()
	s.ApplyInbound("p1", models.SessionDirect, inbound("a", "p1", 1))
	cs, _ := s.Get("p1")
	cs.Messages[0].Text = "changed"

	again, _ := s.Get("p1")
	assert.Equal(t, "hi a", again.Messages[0].Text)
}

func TestGroup(t *testing.T) {
	s := NewStore()
	s.Ensure("new", models.SessionDirect, "")
	s.ApplyInbound("talking", models.SessionDirect, inbound("a", "talking", 1))
	s.Ensure("ev", models.SessionEvent, "ev")

	g := Group(s.Sessions())
	require.Len(t, g.NewMatches, 1)
	require.Len(t, g.Direct, 1)
	require.Len(t, g.Events, 1)
	assert.Equal(t, "new", g.NewMatches[0].ID)
	assert.Equal(t, "talking", g.Direct[0].ID)
	assert.Equal(t, "ev", g.Events[0].ID)
}
