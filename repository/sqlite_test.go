package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/destek/database"
	"github.com/akinalp/destek/models"
	"github.com/akinalp/destek/pkg"
)

// newTestRepos, bellekte çalışan bir DB üstünde repo üçlüsünü kurar.
func newTestRepos(t *testing.T) (UserRepository, ConversationRepository, MessageRepository) {
	t.Helper()
	db, err := database.New(":memory:", database.EmbeddedMigrations)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewSQLiteUserRepo(db.Conn), NewSQLiteConversationRepo(db.Conn), NewSQLiteMessageRepo(db.Conn)
}

// seedUser, FK kısıtı için konuşma sahibi kullanıcıyı oluşturur.
func seedUser(t *testing.T, users UserRepository, id, label string) {
	t.Helper()
	err := users.Create(context.Background(), &models.User{ID: id, Label: label})
	require.NoError(t, err)
}

func seedConversation(t *testing.T, users UserRepository, convs ConversationRepository, userID string) *models.Conversation {
	t.Helper()
	seedUser(t, users, userID, "Visitor "+userID)
	conv := &models.Conversation{
		ID:        models.ConversationIDFor(userID),
		UserID:    userID,
		UserLabel: "Visitor " + userID,
	}
	created, err := convs.CreateIfAbsent(context.Background(), conv)
	require.NoError(t, err)
	require.True(t, created)
	return conv
}

func TestConversationCreateIfAbsent(t *testing.T) {
	users, convs, _ := newTestRepos(t)
	ctx := context.Background()

	conv := seedConversation(t, users, convs, "u1")

	t.Run("duplicate insert is silently absorbed", func(t *testing.T) {
		dup := &models.Conversation{
			ID:        conv.ID,
			UserID:    "u1",
			UserLabel: "Someone Else",
		}
		created, err := convs.CreateIfAbsent(ctx, dup)
		require.NoError(t, err)
		assert.False(t, created)

		// Mevcut kayıt korunmalı — ikinci insert'in alanları yazılmamalı.
		got, err := convs.GetByID(ctx, conv.ID)
		require.NoError(t, err)
		assert.Equal(t, conv.UserLabel, got.UserLabel)
	})

	t.Run("lookup by owner", func(t *testing.T) {
		got, err := convs.GetByUserID(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, conv.ID, got.ID)
		assert.Equal(t, models.ConversationStatusNew, got.Status)
	})

	t.Run("missing owner yields ErrNotFound", func(t *testing.T) {
		_, err := convs.GetByUserID(ctx, "nobody")
		assert.ErrorIs(t, err, pkg.ErrNotFound)
	})
}

func TestConversationListByRecency(t *testing.T) {
	users, convs, _ := newTestRepos(t)
	ctx := context.Background()

	a := seedConversation(t, users, convs, "u1")
	b := seedConversation(t, users, convs, "u2")
	c := seedConversation(t, users, convs, "u3")

	// b en yeni, sonra c, sonra a olacak şekilde aktivite ver.
	base := time.Now().UTC()
	require.NoError(t, convs.TouchOnUserSend(ctx, a.ID, "oldest", base.Add(1*time.Second)))
	require.NoError(t, convs.TouchOnUserSend(ctx, c.ID, "middle", base.Add(2*time.Second)))
	require.NoError(t, convs.TouchOnUserSend(ctx, b.ID, "newest", base.Add(3*time.Second)))

	list, err := convs.ListByRecency(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, b.ID, list[0].ID)
	assert.Equal(t, c.ID, list[1].ID)
	assert.Equal(t, a.ID, list[2].ID)
	assert.Equal(t, "newest", list[0].LastMessage)
}

func TestConversationTouch(t *testing.T) {
	users, convs, _ := newTestRepos(t)
	ctx := context.Background()
	conv := seedConversation(t, users, convs, "u1")
	now := time.Now().UTC()

	t.Run("user send resets status to new", func(t *testing.T) {
		require.NoError(t, convs.MarkRead(ctx, conv.ID))
		require.NoError(t, convs.TouchOnUserSend(ctx, conv.ID, "hello", now))

		got, err := convs.GetByID(ctx, conv.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ConversationStatusNew, got.Status)
		assert.Equal(t, "hello", got.LastMessage)
	})

	t.Run("operator reply leaves status untouched", func(t *testing.T) {
		require.NoError(t, convs.MarkRead(ctx, conv.ID))
		require.NoError(t, convs.TouchOnOperatorReply(ctx, conv.ID, "Admin: hi", now))

		got, err := convs.GetByID(ctx, conv.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ConversationStatusRead, got.Status)
		assert.Equal(t, "Admin: hi", got.LastMessage)
	})

	t.Run("touching a missing conversation yields ErrNotFound", func(t *testing.T) {
		err := convs.TouchOnUserSend(ctx, "missing", "x", now)
		assert.ErrorIs(t, err, pkg.ErrNotFound)
	})
}

func TestConversationMarkReadIsOneWayAndIdempotent(t *testing.T) {
	users, convs, _ := newTestRepos(t)
	ctx := context.Background()
	conv := seedConversation(t, users, convs, "u1")

	require.NoError(t, convs.MarkRead(ctx, conv.ID))
	got, err := convs.GetByID(ctx, conv.ID)
	require.NoError(t, err)
	require.Equal(t, models.ConversationStatusRead, got.Status)

	// İkinci işaretleme hata üretmez ve durum değişmez.
	require.NoError(t, convs.MarkRead(ctx, conv.ID))
	got, err = convs.GetByID(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ConversationStatusRead, got.Status)
}

func TestMessageOrdering(t *testing.T) {
	users, convs, msgs := newTestRepos(t)
	ctx := context.Background()
	conv := seedConversation(t, users, convs, "u1")

	base := time.Now().UTC().Truncate(time.Second)
	for i, body := range []string{"first", "second", "third"} {
		msg := &models.Message{
			ConversationID: conv.ID,
			Sender:         models.SenderUser,
			Body:           body,
			CreatedAt:      base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, msgs.Create(ctx, msg))
		assert.NotEmpty(t, msg.ID, "repository should assign an id")
	}

	list, err := msgs.ListByConversation(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "first", list[0].Body)
	assert.Equal(t, "second", list[1].Body)
	assert.Equal(t, "third", list[2].Body)
}

func TestMessageListAfterIsStrictlyGreater(t *testing.T) {
	users, convs, msgs := newTestRepos(t)
	ctx := context.Background()
	conv := seedConversation(t, users, convs, "u1")

	base := time.Now().UTC().Truncate(time.Second)
	times := []time.Time{base, base.Add(time.Second), base.Add(2 * time.Second)}
	for _, at := range times {
		require.NoError(t, msgs.Create(ctx, &models.Message{
			ConversationID: conv.ID,
			Sender:         models.SenderOperator,
			Body:           "m",
			CreatedAt:      at,
		}))
	}

	// Cursor tam olarak ortadaki mesajın damgası: eşit olan DAHİL EDİLMEZ,
	// yalnızca kesin büyük olan döner.
	after, err := msgs.ListByConversationAfter(ctx, conv.ID, times[1])
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.True(t, after[0].CreatedAt.After(times[1]))
}

func TestMessageDeleteByConversation(t *testing.T) {
	users, convs, msgs := newTestRepos(t)
	ctx := context.Background()
	conv := seedConversation(t, users, convs, "u1")
	other := seedConversation(t, users, convs, "u2")

	for i := 0; i < 3; i++ {
		require.NoError(t, msgs.Create(ctx, &models.Message{
			ConversationID: conv.ID, Sender: models.SenderUser, Body: "x",
		}))
	}
	require.NoError(t, msgs.Create(ctx, &models.Message{
		ConversationID: other.ID, Sender: models.SenderUser, Body: "keep",
	}))

	deleted, err := msgs.DeleteByConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	// Diğer konuşmanın mesajlarına dokunulmamalı.
	rest, err := msgs.ListByConversation(ctx, other.ID)
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}

func TestUserRepo(t *testing.T) {
	users, _, _ := newTestRepos(t)
	ctx := context.Background()

	username := "admin"
	hash := "bcrypt-hash"
	op := &models.User{ID: "op-1", Label: "Admin", Username: &username, PasswordHash: hash, IsOperator: true}
	require.NoError(t, users.Create(ctx, op))

	t.Run("duplicate username yields ErrAlreadyExists", func(t *testing.T) {
		dup := &models.User{ID: "op-2", Label: "Admin 2", Username: &username}
		err := users.Create(ctx, dup)
		assert.ErrorIs(t, err, pkg.ErrAlreadyExists)
	})

	t.Run("lookup by username", func(t *testing.T) {
		got, err := users.GetByUsername(ctx, "admin")
		require.NoError(t, err)
		assert.True(t, got.IsOperator)
		assert.Equal(t, hash, got.PasswordHash)
	})

	t.Run("missing user yields ErrNotFound", func(t *testing.T) {
		_, err := users.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, pkg.ErrNotFound)
	})
}
