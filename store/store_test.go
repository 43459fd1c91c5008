package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/destek/database"
	"github.com/akinalp/destek/models"
	"github.com/akinalp/destek/repository"
)

const (
	waitFor = 2 * time.Second
	tick    = 10 * time.Millisecond
)

type storeFixture struct {
	st    *Store
	convs repository.ConversationRepository
	msgs  repository.MessageRepository
}

func newStoreFixture(t *testing.T) *storeFixture {
	t.Helper()
	db, err := database.New(":memory:", database.EmbeddedMigrations)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	users := repository.NewSQLiteUserRepo(db.Conn)
	convs := repository.NewSQLiteConversationRepo(db.Conn)
	msgs := repository.NewSQLiteMessageRepo(db.Conn)

	for _, id := range []string{"u1", "u2"} {
		require.NoError(t, users.Create(context.Background(), &models.User{ID: id, Label: "Visitor " + id}))
	}

	return &storeFixture{
		st:    New(convs, msgs, NewBroker()),
		convs: convs,
		msgs:  msgs,
	}
}

func (f *storeFixture) createConversation(t *testing.T, userID string) *models.Conversation {
	t.Helper()
	conv := &models.Conversation{
		ID:        models.ConversationIDFor(userID),
		UserID:    userID,
		UserLabel: "Visitor " + userID,
	}
	created, err := f.convs.CreateIfAbsent(context.Background(), conv)
	require.NoError(t, err)
	require.True(t, created)
	f.st.Broker().PublishConversation(ChangeAdded, conv.ID, userID)
	return conv
}

func (f *storeFixture) addMessage(t *testing.T, convID string, sender models.MessageSender, body string, at time.Time) *models.Message {
	t.Helper()
	msg := &models.Message{ConversationID: convID, Sender: sender, Body: body, CreatedAt: at}
	require.NoError(t, f.msgs.Create(context.Background(), msg))
	f.st.Broker().PublishMessage(ChangeAdded, convID)
	return msg
}

// convRecorder, handler teslimlerini thread-safe toplar.
type convRecorder struct {
	mu    sync.Mutex
	calls []*models.Conversation
}

func (r *convRecorder) record(c *models.Conversation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
}

func (r *convRecorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *convRecorder) last() *models.Conversation {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return nil
	}
	return r.calls[len(r.calls)-1]
}

func TestWatchOwnerConversation(t *testing.T) {
	f := newStoreFixture(t)
	rec := &convRecorder{}

	w := f.st.WatchOwnerConversation("u1", rec.record)
	defer w.Close()

	// Konuşma yokken snapshot nil teslim eder.
	require.Eventually(t, func() bool { return rec.len() >= 1 }, waitFor, tick)
	assert.Nil(t, rec.last())

	conv := f.createConversation(t, "u1")
	require.Eventually(t, func() bool {
		last := rec.last()
		return last != nil && last.ID == conv.ID
	}, waitFor, tick)

	// Başka kullanıcının konuşması bu watch'u ilgilendirmez.
	before := rec.len()
	f.createConversation(t, "u2")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, before, rec.len())

	// Silme nil'e geri döndürür.
	require.NoError(t, f.convs.Delete(context.Background(), conv.ID))
	f.st.Broker().PublishConversation(ChangeRemoved, conv.ID, "u1")
	require.Eventually(t, func() bool {
		return rec.len() > before && rec.last() == nil
	}, waitFor, tick)
}

func TestWatchMessagesDeliversFullList(t *testing.T) {
	f := newStoreFixture(t)
	conv := f.createConversation(t, "u1")
	base := time.Now().UTC().Truncate(time.Second)
	f.addMessage(t, conv.ID, models.SenderUser, "hello", base)

	var mu sync.Mutex
	var last []models.Message
	w := f.st.WatchMessages(conv.ID, func(msgs []models.Message) {
		mu.Lock()
		last = msgs
		mu.Unlock()
	})
	defer w.Close()

	snapshot := func(n int) bool {
		mu.Lock()
		defer mu.Unlock()
		return len(last) == n
	}

	// Snapshot mevcut geçmişi içerir.
	require.Eventually(t, func() bool { return snapshot(1) }, waitFor, tick)

	// Yeni mesaj tam listeyi yeniden teslim ettirir.
	f.addMessage(t, conv.ID, models.SenderOperator, "Admin: hi", base.Add(time.Second))
	require.Eventually(t, func() bool { return snapshot(2) }, waitFor, tick)

	mu.Lock()
	assert.Equal(t, "hello", last[0].Body)
	assert.Equal(t, "Admin: hi", last[1].Body)
	mu.Unlock()
}

func TestWatchMessagesAfter(t *testing.T) {
	f := newStoreFixture(t)
	conv := f.createConversation(t, "u1")
	base := time.Now().UTC().Truncate(time.Second)

	// Cursor öncesi mesaj: asla teslim edilmemeli.
	f.addMessage(t, conv.ID, models.SenderOperator, "old", base.Add(-time.Minute))

	var mu sync.Mutex
	var got []models.Message
	w := f.st.WatchMessagesAfter(conv.ID, base, func(m models.Message) {
		mu.Lock()
		got = append(got, m)
		mu.Unlock()
	})
	defer w.Close()

	count := func() int {
		mu.Lock()
		defer mu.Unlock()
		return len(got)
	}

	f.addMessage(t, conv.ID, models.SenderOperator, "fresh", base.Add(time.Second))
	require.Eventually(t, func() bool { return count() == 1 }, waitFor, tick)

	// Aynı kayıt yeni bir uyandırmada tekrar teslim edilmez.
	f.addMessage(t, conv.ID, models.SenderOperator, "again", base.Add(2*time.Second))
	require.Eventually(t, func() bool { return count() == 2 }, waitFor, tick)

	mu.Lock()
	assert.Equal(t, "fresh", got[0].Body)
	assert.Equal(t, "again", got[1].Body)
	mu.Unlock()
}

func TestWatchConversationsDirectory(t *testing.T) {
	f := newStoreFixture(t)
	a := f.createConversation(t, "u1")

	var mu sync.Mutex
	var last []models.Conversation
	w := f.st.WatchConversations(func(convs []models.Conversation) {
		mu.Lock()
		last = convs
		mu.Unlock()
	})
	defer w.Close()

	size := func(n int) bool {
		mu.Lock()
		defer mu.Unlock()
		return len(last) == n
	}

	require.Eventually(t, func() bool { return size(1) }, waitFor, tick)

	b := f.createConversation(t, "u2")
	require.NoError(t, f.convs.TouchOnUserSend(context.Background(), b.ID, "newest", time.Now().UTC().Add(time.Minute)))
	f.st.Broker().PublishConversation(ChangeModified, b.ID, "u2")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(last) == 2 && last[0].ID == b.ID && last[1].ID == a.ID
	}, waitFor, tick)
}

func TestWatchCloseStopsDelivery(t *testing.T) {
	f := newStoreFixture(t)
	conv := f.createConversation(t, "u1")

	var mu sync.Mutex
	deliveries := 0
	w := f.st.WatchMessages(conv.ID, func([]models.Message) {
		mu.Lock()
		deliveries++
		mu.Unlock()
	})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return deliveries >= 1
	}, waitFor, tick)

	w.Close()
	w.Close() // idempotent

	mu.Lock()
	before := deliveries
	mu.Unlock()

	f.addMessage(t, conv.ID, models.SenderUser, "after close", time.Now().UTC())
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	assert.Equal(t, before, deliveries)
	mu.Unlock()
}
