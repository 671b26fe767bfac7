package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	e "nuclight.org/filevault-tg-bot/pkg/entities"
)

func newTestStore(t *testing.T) *SQLite {
	t.Helper()

	db, err := NewSQLite(context.Background(), filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func testSession(token string) e.Session {
	return e.Session{
		Token:            token,
		OwnerID:          42,
		CreatedAt:        time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Protect:          true,
		RetentionSeconds: 600,
		RequiredChannel:  "@gate",
	}
}

func TestSessionRoundTrip(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()

	files := []e.File{
		{Position: 0, Kind: e.FileKindPhoto, VaultChatID: -100500, VaultMessageID: 201, Caption: "first"},
		{Position: 1, Kind: e.FileKindDocument, VaultChatID: -100500, VaultMessageID: 202},
		{Position: 3, Kind: e.FileKindText, VaultChatID: -100500, VaultMessageID: 204, Caption: "gap kept"},
	}
	require.NoError(t, db.CreateSession(ctx, testSession("tok1"), files))

	got, err := db.SessionByToken(ctx, "tok1")
	require.NoError(t, err)
	assert.EqualValues(t, 42, got.OwnerID)
	assert.True(t, got.Protect)
	assert.EqualValues(t, 600, got.RetentionSeconds)
	assert.Equal(t, "@gate", got.RequiredChannel)
	assert.False(t, got.Revoked)
	assert.Equal(t, 3, got.FileCount)

	gotFiles, err := db.FilesBySession(ctx, "tok1")
	require.NoError(t, err)
	require.Len(t, gotFiles, 3)
	assert.Equal(t, []int{0, 1, 3}, []int{gotFiles[0].Position, gotFiles[1].Position, gotFiles[2].Position})
	assert.Equal(t, "first", gotFiles[0].Caption)
	assert.Equal(t, e.FileKindText, gotFiles[2].Kind)
}

func TestSessionNotFound(t *testing.T) {
	db := newTestStore(t)

	_, err := db.SessionByToken(context.Background(), "missing")
	assert.ErrorIs(t, err, e.ErrNotFound)
}

func TestRevokeSession(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, db.CreateSession(ctx, testSession("tok1"), nil))

	ok, err := db.RevokeSession(ctx, "tok1")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := db.SessionByToken(ctx, "tok1")
	require.NoError(t, err)
	assert.True(t, got.Revoked)

	ok, err = db.RevokeSession(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetSessionHeader(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, db.CreateSession(ctx, testSession("tok1"), nil))
	require.NoError(t, db.SetSessionHeader(ctx, "tok1", -100500, 77))

	got, err := db.SessionByToken(ctx, "tok1")
	require.NoError(t, err)
	assert.EqualValues(t, -100500, got.HeaderChatID)
	assert.Equal(t, 77, got.HeaderMessageID)
}

func TestDeleteSessionCascades(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()

	files := []e.File{{Position: 0, Kind: e.FileKindPhoto, VaultChatID: -1, VaultMessageID: 1}}
	require.NoError(t, db.CreateSession(ctx, testSession("tok1"), files))
	require.NoError(t, db.DeleteSession(ctx, "tok1"))

	_, err := db.SessionByToken(ctx, "tok1")
	assert.ErrorIs(t, err, e.ErrNotFound)

	gotFiles, err := db.FilesBySession(ctx, "tok1")
	require.NoError(t, err)
	assert.Empty(t, gotFiles)
}

func TestListSessions(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()

	s1 := testSession("tok1")
	s2 := testSession("tok2")
	s2.CreatedAt = s1.CreatedAt.Add(time.Hour)
	require.NoError(t, db.CreateSession(ctx, s1, nil))
	require.NoError(t, db.CreateSession(ctx, s2, nil))

	sessions, err := db.ListSessions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "tok2", sessions[0].Token, "newest first")
}

func TestUsersAndStats(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, db.UpsertUser(ctx, e.User{ID: 1, Name: "Alice"}))
	require.NoError(t, db.UpsertUser(ctx, e.User{ID: 2, Name: "Bob"}))
	require.NoError(t, db.UpsertUser(ctx, e.User{ID: 1, Name: "Alice Renamed"}))

	ids, err := db.UserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids)

	stats, err := db.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalUsers)
	assert.Equal(t, 2, stats.ActiveUsers)
	assert.Equal(t, 0, stats.TotalSessions)
}

func TestActions(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()

	due := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	action := e.DeferredAction{
		ID:           "a1",
		SessionToken: "tok1",
		ChatID:       1001,
		MessageIDs:   []int{5, 6, 7},
		DueAt:        due,
		Status:       e.ActionScheduled,
	}
	require.NoError(t, db.CreateAction(ctx, action))

	got, err := db.ActionByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, []int{5, 6, 7}, got.MessageIDs)
	assert.True(t, got.DueAt.Equal(due))
	assert.Equal(t, e.ActionScheduled, got.Status)

	scheduled, err := db.ScheduledActions(ctx)
	require.NoError(t, err)
	assert.Len(t, scheduled, 1)

	require.NoError(t, db.MarkActionDone(ctx, "a1"))

	got, err = db.ActionByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, e.ActionDone, got.Status)

	scheduled, err = db.ScheduledActions(ctx)
	require.NoError(t, err)
	assert.Empty(t, scheduled)

	_, err = db.ActionByID(ctx, "missing")
	assert.ErrorIs(t, err, e.ErrNotFound)
}

func TestSettings(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()

	got, err := db.GetSetting(ctx, "greeting", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "fallback", got)

	require.NoError(t, db.SetSetting(ctx, "greeting", "hello"))
	require.NoError(t, db.SetSetting(ctx, "greeting", "hello again"))

	got, err = db.GetSetting(ctx, "greeting", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "hello again", got)
}

func TestChannels(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, db.AddChannel(ctx, "news", "https://t.me/news"))
	require.NoError(t, db.AddChannel(ctx, "news", "https://t.me/news2"))
	require.NoError(t, db.AddChannel(ctx, "chat", "https://t.me/chat"))

	channels, err := db.Channels(ctx)
	require.NoError(t, err)
	require.Len(t, channels, 2)
	assert.Equal(t, "chat", channels[0].Alias)
	assert.Equal(t, "https://t.me/news2", channels[1].Link)
}
