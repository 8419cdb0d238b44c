package database

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"f2f-dating-app/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// These tests need a disposable Postgres database in TEST_DATABASE_URL.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	db, err := Initialize(url, logrus.NewEntry(log))
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Exec("TRUNCATE users, messages, events, likes")
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func newUser(t *testing.T, s *ProfileStore, email string, interests ...string) models.User {
	t.Helper()
	u := models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: "x",
		Name:         email,
		Age:          25,
		Gender:       models.GenderFemale,
		Interests:    models.NewTagSet(interests...),
	}
	require.NoError(t, s.Create(context.Background(), &u))
	return u
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []models.Message
}

func (p *recordingPublisher) Publish(_ context.Context, m models.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, m)
	return nil
}

func TestProfileStore(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	s := NewProfileStore(db)

	a := newUser(t, s, " Ann@Example.com ", "Reading", "Travel")
	b := newUser(t, s, "bob@example.com", "Gym")

	got, err := s.FindByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, models.TagSet{"Reading", "Travel"}, got.Interests)

	_, err = s.Get(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)

	others, err := s.ListExcept(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, others, 1)
	assert.Equal(t, b.ID, others[0].ID)

	got.Bio = "hello"
	got.Interests = models.NewTagSet("Reading", "Film")
	require.NoError(t, s.Update(ctx, got))
	require.NoError(t, s.UpdateLocation(ctx, a.ID, 9.03, 38.74))

	got, err = s.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Bio)
	assert.Equal(t, models.TagSet{"Reading", "Film"}, got.Interests)
	assert.InDelta(t, 9.03, got.Latitude, 1e-9)

	require.NoError(t, s.SetPushToken(ctx, a.ID, "device-1"))
	token, err := s.PushToken(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "device-1", token)
}

func TestMessageStoreKeepsSenderTimestamp(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	profiles := NewProfileStore(db)
	a := newUser(t, profiles, "a@example.com")
	b := newUser(t, profiles, "b@example.com")

	pub := &recordingPublisher{}
	s := NewMessageStore(db, pub, logrus.NewEntry(logrus.New()))

	second, err := s.Append(ctx, models.Message{SenderID: b.ID, ReceiverID: a.ID, Text: "two", Timestamp: 2000})
	require.NoError(t, err)
	first, err := s.Append(ctx, models.Message{ID: uuid.NewString(), SenderID: a.ID, ReceiverID: b.ID, Text: "one", Timestamp: 1000, Provisional: true})
	require.NoError(t, err)
	assert.NotEmpty(t, second.ID)
	assert.False(t, first.Provisional)

	msgs, err := s.ListFor(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, first.ID, msgs[0].ID)
	assert.Equal(t, int64(1000), msgs[0].Timestamp)
	assert.Len(t, pub.msgs, 2)
}

func TestEventStore(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	s := NewEventStore(db)
	organizer := uuid.NewString()

	older := models.Event{ID: uuid.NewString(), Title: "Hike", Date: time.Now().UTC(), LocationName: "Entoto", OrganizerID: organizer, ParticipantsIDs: []string{organizer}}
	require.NoError(t, s.Create(ctx, older))
	newer := models.Event{ID: uuid.NewString(), Title: "Chess", Date: time.Now().UTC(), LocationName: "Cafe", OrganizerID: organizer, ParticipantsIDs: []string{organizer}, Tags: models.NewTagSet("Chess")}
	require.NoError(t, s.Create(ctx, newer))

	require.NoError(t, s.UpdateParticipants(ctx, older.ID, []string{organizer, "guest"}))
	assert.ErrorIs(t, s.UpdateParticipants(ctx, uuid.NewString(), nil), ErrNotFound)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, []string{organizer, "guest"}, []string(list[1].ParticipantsIDs))
	assert.Equal(t, models.TagSet{"Chess"}, list[0].Tags)
}

func TestLikeStore(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	s := NewLikeStore(db)
	a, b, c := uuid.NewString(), uuid.NewString(), uuid.NewString()

	require.NoError(t, s.Record(ctx, a, c))
	require.NoError(t, s.Record(ctx, a, c))
	require.NoError(t, s.Record(ctx, b, c))

	ids, err := s.Incoming(ctx, c)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a, b}, ids)

	require.NoError(t, s.Resolve(ctx, a, c))
	ids, err = s.Incoming(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, []string{b}, ids)
}
