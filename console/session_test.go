package console

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/destek/config"
	"github.com/akinalp/destek/database"
	"github.com/akinalp/destek/models"
	"github.com/akinalp/destek/repository"
	"github.com/akinalp/destek/services"
	"github.com/akinalp/destek/store"
)

const (
	waitFor = 2 * time.Second
	tick    = 10 * time.Millisecond
)

// recorder, callback teslimlerini thread-safe toplar.
type recorder struct {
	mu        sync.Mutex
	directory []models.Conversation
	dirCalls  int
	messages  []models.Message
	cleared   int
	notices   []string
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnDirectory: func(convs []models.Conversation) {
			r.mu.Lock()
			r.directory = convs
			r.dirCalls++
			r.mu.Unlock()
		},
		OnMessages: func(msgs []models.Message) {
			r.mu.Lock()
			r.messages = msgs
			r.mu.Unlock()
		},
		OnSelectionCleared: func() {
			r.mu.Lock()
			r.cleared++
			r.mu.Unlock()
		},
		OnNotice: func(text string) {
			r.mu.Lock()
			r.notices = append(r.notices, text)
			r.mu.Unlock()
		},
	}
}

func (r *recorder) directorySize() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.directory)
}

func (r *recorder) directorySnapshot() []models.Conversation {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Conversation, len(r.directory))
	copy(out, r.directory)
	return out
}

func (r *recorder) messageCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

func (r *recorder) clearedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cleared
}

func (r *recorder) hasNotice(text string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.notices {
		if n == text {
			return true
		}
	}
	return false
}

type consoleFixture struct {
	st   *store.Store
	chat services.ChatService
}

func newConsoleFixture(t *testing.T) *consoleFixture {
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

	broker := store.NewBroker()
	return &consoleFixture{
		st:   store.New(convs, msgs, broker),
		chat: services.NewChatService(db.Conn, convs, msgs, broker, config.ReconcileReuse),
	}
}

func (f *consoleFixture) firstContact(t *testing.T, userID, body string) string {
	t.Helper()
	convID, err := f.chat.SendFirstContact(context.Background(), userID, "Visitor "+userID, body)
	require.NoError(t, err)
	return convID
}

func TestDirectoryFollowsChanges(t *testing.T) {
	f := newConsoleFixture(t)
	rec := &recorder{}
	s := NewSession(f.chat, f.st, rec.callbacks())
	t.Cleanup(s.Close)

	// Snapshot: dizin başlangıçta boş.
	require.Eventually(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return rec.dirCalls >= 1
	}, waitFor, tick)
	assert.Zero(t, rec.directorySize())

	a := f.firstContact(t, "u1", "first")
	require.Eventually(t, func() bool { return rec.directorySize() == 1 }, waitFor, tick)

	b := f.firstContact(t, "u2", "second")
	require.Eventually(t, func() bool { return rec.directorySize() == 2 }, waitFor, tick)

	// En son aktivite en üstte.
	dir := rec.directorySnapshot()
	assert.Equal(t, b, dir[0].ID)
	assert.Equal(t, a, dir[1].ID)
	assert.Equal(t, models.ConversationStatusNew, dir[0].Status)
}

// countingOperator, MarkRead çağrılarını sayan ChatOperator decorator'ı.
type countingOperator struct {
	services.ChatService
	markReads atomic.Int64
}

func (c *countingOperator) MarkRead(ctx context.Context, conversationID string) error {
	c.markReads.Add(1)
	return c.ChatService.MarkRead(ctx, conversationID)
}

func TestSelectMarksReadOnlyWhenNew(t *testing.T) {
	f := newConsoleFixture(t)
	convID := f.firstContact(t, "u1", "hello")

	op := &countingOperator{ChatService: f.chat}
	rec := &recorder{}
	s := NewSession(op, f.st, rec.callbacks())
	t.Cleanup(s.Close)

	require.Eventually(t, func() bool { return rec.directorySize() == 1 }, waitFor, tick)

	s.Select(convID)

	// İşaretleme koştu ve dizin "read"e döndü.
	require.Eventually(t, func() bool {
		dir := rec.directorySnapshot()
		return len(dir) == 1 && dir[0].Status == models.ConversationStatusRead
	}, waitFor, tick)
	assert.Equal(t, int64(1), op.markReads.Load())

	// Zaten okunmuş konuşmayı yeniden seçmek yazım üretmez.
	s.Select(convID)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(1), op.markReads.Load())

	// Mesaj geçmişi de stream'den geldi.
	require.Eventually(t, func() bool { return rec.messageCount() == 2 }, waitFor, tick)
}

func TestReplyAppearsThroughStream(t *testing.T) {
	f := newConsoleFixture(t)
	convID := f.firstContact(t, "u1", "hello")

	rec := &recorder{}
	s := NewSession(f.chat, f.st, rec.callbacks())
	t.Cleanup(s.Close)

	require.Eventually(t, func() bool { return rec.directorySize() == 1 }, waitFor, tick)
	s.Select(convID)
	require.Eventually(t, func() bool { return rec.messageCount() == 2 }, waitFor, tick)

	s.Reply("How can I help?")

	require.Eventually(t, func() bool { return rec.messageCount() == 3 }, waitFor, tick)
	rec.mu.Lock()
	last := rec.messages[len(rec.messages)-1]
	rec.mu.Unlock()
	assert.Equal(t, models.SenderOperator, last.Sender)
	assert.Equal(t, "How can I help?", last.Body)

	// Operatörün kendi yanıtı dizin status'unu "new"e çevirmez; denormalize
	// son mesaj ön ekli metni taşır.
	require.Eventually(t, func() bool {
		dir := rec.directorySnapshot()
		return len(dir) == 1 && dir[0].LastMessage == services.OperatorPrefix+"How can I help?"
	}, waitFor, tick)
}

func TestReplyIgnoresEmptyBody(t *testing.T) {
	f := newConsoleFixture(t)
	convID := f.firstContact(t, "u1", "hello")

	rec := &recorder{}
	s := NewSession(f.chat, f.st, rec.callbacks())
	t.Cleanup(s.Close)

	require.Eventually(t, func() bool { return rec.directorySize() == 1 }, waitFor, tick)
	s.Select(convID)
	require.Eventually(t, func() bool { return rec.messageCount() == 2 }, waitFor, tick)

	// Boş ve salt-boşluk gövde yerelde düşer: yazım denenmez, hata
	// bildirimi de gösterilmez.
	s.Reply("")
	s.Reply("   \t\n")
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 2, rec.messageCount())
	assert.False(t, rec.hasNotice(replyFailedNotice))

	// Kenar boşlukları kırpılır, gövde aynen kalır.
	s.Reply("  How can I help?  ")
	require.Eventually(t, func() bool { return rec.messageCount() == 3 }, waitFor, tick)
	rec.mu.Lock()
	last := rec.messages[len(rec.messages)-1]
	rec.mu.Unlock()
	assert.Equal(t, "How can I help?", last.Body)
}

// failingMarker, okundu işaretlemesini reddeden ChatOperator decorator'ı.
type failingMarker struct {
	services.ChatService
}

func (f *failingMarker) MarkRead(ctx context.Context, conversationID string) error {
	return errors.New("database is locked")
}

func TestSelectSurvivesMarkReadFailure(t *testing.T) {
	f := newConsoleFixture(t)
	convID := f.firstContact(t, "u1", "hello")

	rec := &recorder{}
	s := NewSession(&failingMarker{ChatService: f.chat}, f.st, rec.callbacks())
	t.Cleanup(s.Close)

	require.Eventually(t, func() bool { return rec.directorySize() == 1 }, waitFor, tick)
	s.Select(convID)

	// İşaretleme başarısız ama seçim ayakta: mesaj geçmişi akar,
	// yanıt gönderilebilir. Hata yalnızca loglanır.
	require.Eventually(t, func() bool { return rec.messageCount() == 2 }, waitFor, tick)
	s.Reply("still here")
	require.Eventually(t, func() bool { return rec.messageCount() == 3 }, waitFor, tick)

	// Dizin status'u "new" kalır — bir sonraki seçim tekrar dener.
	dir := rec.directorySnapshot()
	require.Len(t, dir, 1)
	assert.Equal(t, models.ConversationStatusNew, dir[0].Status)
}

func TestEraseClearsSelectionOnSuccess(t *testing.T) {
	f := newConsoleFixture(t)
	convID := f.firstContact(t, "u1", "hello")

	rec := &recorder{}
	s := NewSession(f.chat, f.st, rec.callbacks())
	t.Cleanup(s.Close)

	require.Eventually(t, func() bool { return rec.directorySize() == 1 }, waitFor, tick)
	s.Select(convID)
	require.Eventually(t, func() bool { return rec.messageCount() == 2 }, waitFor, tick)

	s.Erase()

	require.Eventually(t, func() bool { return rec.clearedCount() >= 1 }, waitFor, tick)
	require.Eventually(t, func() bool { return rec.directorySize() == 0 }, waitFor, tick)
}

// failingEraser, silmeyi reddeden ChatOperator decorator'ı.
type failingEraser struct {
	services.ChatService
}

func (f *failingEraser) EraseConversation(ctx context.Context, conversationID string) error {
	return errors.New("storage unavailable")
}

func TestEraseFailurePreservesSelection(t *testing.T) {
	f := newConsoleFixture(t)
	convID := f.firstContact(t, "u1", "hello")

	rec := &recorder{}
	s := NewSession(&failingEraser{ChatService: f.chat}, f.st, rec.callbacks())
	t.Cleanup(s.Close)

	require.Eventually(t, func() bool { return rec.directorySize() == 1 }, waitFor, tick)
	s.Select(convID)
	require.Eventually(t, func() bool { return rec.messageCount() == 2 }, waitFor, tick)

	s.Erase()

	require.Eventually(t, func() bool {
		return rec.hasNotice(eraseFailedNotice)
	}, waitFor, tick)

	// Seçim korunur: yanıt hâlâ gönderilebilir.
	assert.Zero(t, rec.clearedCount())
	s.Reply("still here")
	require.Eventually(t, func() bool { return rec.messageCount() == 3 }, waitFor, tick)
}

func TestSelectionClearedWhenConversationDisappears(t *testing.T) {
	f := newConsoleFixture(t)
	convID := f.firstContact(t, "u1", "hello")

	rec := &recorder{}
	s := NewSession(f.chat, f.st, rec.callbacks())
	t.Cleanup(s.Close)

	require.Eventually(t, func() bool { return rec.directorySize() == 1 }, waitFor, tick)
	s.Select(convID)
	require.Eventually(t, func() bool { return rec.messageCount() == 2 }, waitFor, tick)

	// Başka bir konsol silmiş gibi: servis üzerinden doğrudan sil.
	require.NoError(t, f.chat.EraseConversation(context.Background(), convID))

	require.Eventually(t, func() bool { return rec.clearedCount() >= 1 }, waitFor, tick)
	assert.True(t, rec.hasNotice(selectionErasedNotice))
}
