package console

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/akinalp/destek/models"
	"github.com/akinalp/destek/store"
)

// Session, tek bir operatör konsolu bağlantısının çekirdeğidir.
// Durum alanlarına yalnızca event-loop goroutine'i dokunur.
type Session struct {
	chat ChatOperator
	st   *store.Store
	cb   Callbacks

	loop      chan func()
	done      chan struct{}
	closeOnce sync.Once

	// --- buradan aşağısı yalnızca loop goroutine'ine aittir ---

	directory []models.Conversation // dizinin son snapshot'ı
	selected  string                // seçili konuşma; "" = seçim yok

	dirGen    int
	streamGen int

	dirWatch    *store.Watch
	streamWatch *store.Watch
}

// NewSession, session'ı oluşturur, event loop'u ve dizin aboneliğini başlatır.
func NewSession(chat ChatOperator, st *store.Store, cb Callbacks) *Session {
	s := &Session{
		chat: chat,
		st:   st,
		cb:   cb,
		loop: make(chan func(), 64),
		done: make(chan struct{}),
	}
	go s.run()
	s.post(func() { s.startDirectory() })
	return s
}

func (s *Session) run() {
	for {
		select {
		case <-s.done:
			return
		case fn := <-s.loop:
			fn()
		}
	}
}

func (s *Session) post(fn func()) {
	select {
	case s.loop <- fn:
	case <-s.done:
	}
}

// Close, session'ı sonlandırır. Birden fazla çağrı güvenlidir.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		stopped := make(chan struct{})
		s.post(func() {
			s.stopDirectory()
			s.stopStream()
			close(stopped)
		})
		<-stopped
		close(s.done)
	})
}

// Select, bir konuşmayı seçer: önceki mesaj aboneliği kapatılır, yenisi
// kurulur ve konuşma gerekiyorsa okundu işaretlenir.
//
// Okundu işaretleme durum KORUMALIDIR: dizin snapshot'ında status'u
// zaten "read" olan konuşma için kalıcı yazım yapılmaz. Aynı konuşmayı
// yeniden seçmek aboneliği yeniden kurmaz, yalnızca işaretleme korumasını
// tekrar uygular (bu arada yeni kullanıcı mesajı gelmiş olabilir).
func (s *Session) Select(conversationID string) {
	s.post(func() {
		if conversationID == "" {
			s.clearSelection(false)
			return
		}

		if s.selected != conversationID {
			s.selected = conversationID
			s.startStream(conversationID)
		}
		s.maybeMarkRead(conversationID)
	})
}

// Reply, seçili konuşmaya operatör yanıtı gönderir.
//
// Boş/salt-boşluk gövde yerelde sessizce düşer — kalıcı yazım hiç
// denenmez, operatöre hata da gösterilmez.
//
// İyimser yerel ekleme YOKTUR: yanıt kalıcı yazımdan sonra canlı mesaj
// aboneliği üzerinden listeye düşer. Başarısızlıkta yalnızca bildirim
// duyurulur; liste değişmez.
func (s *Session) Reply(body string) {
	s.post(func() {
		if s.selected == "" {
			return
		}
		trimmed := strings.TrimSpace(body)
		if trimmed == "" {
			return
		}
		convID := s.selected
		go func() {
			if err := s.chat.SendOperatorReply(context.Background(), convID, trimmed); err != nil {
				s.post(func() { s.notice(replyFailedNotice) })
			}
		}()
	})
}

// Erase, seçili konuşmayı tüm mesajlarıyla birlikte siler.
//
// Seçim YALNIZCA silme başarılıysa temizlenir. Başarısızlıkta konuşma
// olduğu gibi durur, seçim korunur ve operatöre hata duyurulur — yarım
// silinmiş görünüm oluşmaz (silme zaten tek transaction'dır).
func (s *Session) Erase() {
	s.post(func() {
		if s.selected == "" {
			return
		}
		convID := s.selected
		go func() {
			err := s.chat.EraseConversation(context.Background(), convID)
			s.post(func() {
				if err != nil {
					s.notice(eraseFailedNotice)
					return
				}
				if s.selected == convID {
					s.clearSelection(true)
				}
			})
		}()
	})
}

// maybeMarkRead, dizin snapshot'ına göre koşullu okundu işaretlemesi yapar.
func (s *Session) maybeMarkRead(conversationID string) {
	for _, conv := range s.directory {
		if conv.ID != conversationID {
			continue
		}
		if conv.Status != models.ConversationStatusNew {
			return
		}
		go func() {
			// İşaretleme repository katmanında da idempotenttir; yarışan
			// ikinci konsol en fazla etkisiz bir UPDATE koşar. Başarısızlık
			// görünümü bozmaz, bir sonraki seçimde tekrar denenir.
			if err := s.chat.MarkRead(context.Background(), conversationID); err != nil {
				log.Printf("[console] failed to mark conversation %s read: %v", conversationID, err)
			}
		}()
		return
	}
}

// startDirectory, konuşma dizini aboneliğini kurar. Seçili konuşma
// dizinden kaybolursa (başka bir konsoldan silinmiş) seçim temizlenir.
func (s *Session) startDirectory() {
	s.dirGen++
	gen := s.dirGen

	s.dirWatch = s.st.WatchConversations(func(convs []models.Conversation) {
		s.post(func() {
			if gen != s.dirGen {
				return
			}
			s.directory = convs
			if s.cb.OnDirectory != nil {
				s.cb.OnDirectory(convs)
			}
			if s.selected != "" && !s.inDirectory(s.selected) {
				s.clearSelection(true)
			}
		})
	})
}

func (s *Session) inDirectory(conversationID string) bool {
	for _, conv := range s.directory {
		if conv.ID == conversationID {
			return true
		}
	}
	return false
}

// startStream, seçili konuşmanın canlı mesaj aboneliğini kurar.
func (s *Session) startStream(conversationID string) {
	s.stopStream()
	s.streamGen++
	gen := s.streamGen

	s.streamWatch = s.st.WatchMessages(conversationID, func(msgs []models.Message) {
		s.post(func() {
			if gen != s.streamGen {
				return
			}
			if s.cb.OnMessages != nil {
				s.cb.OnMessages(msgs)
			}
		})
	})
}

// clearSelection, seçimi ve mesaj aboneliğini kaldırır.
// erased true ise operatöre konuşmanın silindiği de duyurulur.
func (s *Session) clearSelection(erased bool) {
	hadSelection := s.selected != ""
	s.selected = ""
	s.stopStream()

	if !hadSelection {
		return
	}
	if s.cb.OnSelectionCleared != nil {
		s.cb.OnSelectionCleared()
	}
	if erased {
		s.notice(selectionErasedNotice)
	}
}

func (s *Session) stopDirectory() {
	s.dirGen++
	if s.dirWatch != nil {
		s.dirWatch.Close()
		s.dirWatch = nil
	}
}

func (s *Session) stopStream() {
	s.streamGen++
	if s.streamWatch != nil {
		s.streamWatch.Close()
		s.streamWatch = nil
	}
}

func (s *Session) notice(text string) {
	if s.cb.OnNotice != nil {
		s.cb.OnNotice(text)
	}
}
