package widget

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/akinalp/destek/models"
	"github.com/akinalp/destek/store"
)

// ChatSender, session'ın kalıcı yazma yolundan beklediği dar yüzeydir.
// services.ChatService bu interface'i karşılar; testlerde sarmalanabilir.
type ChatSender interface {
	SendFirstContact(ctx context.Context, userID, userLabel, body string) (conversationID string, err error)
	SendUserMessage(ctx context.Context, conversationID, body string) error
}

// Session, tek bir widget bağlantısının çekirdeğidir.
//
// Dışarıdan çağrılan her metot (SignIn, SignOut, SetVisible, Send) ve her
// abonelik teslimi loop kanalına closure olarak post edilir; durum alanlarına
// YALNIZCA loop goroutine'i dokunur.
//
// Generation sayaçları bayat teslimi eler: bir watch kapatılıp yenisi
// kurulduğunda sayaç artar; eski watch'un loop kuyruğunda bekleyen teslimi
// sayaç tutmadığı için sessizce düşer.
type Session struct {
	chat ChatSender
	st   *store.Store
	cb   Callbacks

	loop      chan func()
	done      chan struct{}
	closeOnce sync.Once

	// --- buradan aşağısı yalnızca loop goroutine'ine aittir ---

	identity *Identity
	visible  bool
	convID   string // çözümlenmiş konuşma; "" = çözümlenmemiş

	confirmed []models.Message // stream'in son snapshot'ı
	pending   []PendingMessage // iyimser girdiler, ekleme sırasıyla
	seeded    *PendingMessage  // sentezlenmiş karşılama, varsa listenin başında

	unread int
	cursor time.Time // gizlenme anı — notifier bu damgadan sonrasını izler

	locatorGen int
	streamGen  int
	notifyGen  int

	locatorWatch *store.Watch
	streamWatch  *store.Watch
	notifyWatch  *store.Watch
}

// NewSession, session'ı oluşturur ve event-loop goroutine'ini başlatır.
// Widget başlangıçta gizli ve kimliksizdir.
func NewSession(chat ChatSender, st *store.Store, cb Callbacks) *Session {
	s := &Session{
		chat:   chat,
		st:     st,
		cb:     cb,
		loop:   make(chan func(), 64),
		done:   make(chan struct{}),
		cursor: time.Now().UTC(),
	}
	go s.run()
	return s
}

// run, event loop'u. Her closure sırayla ve tek goroutine'de koşar.
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

// post, bir operasyonu loop'a sıraya koyar. Kapanmış session'da düşer.
func (s *Session) post(fn func()) {
	select {
	case s.loop <- fn:
	case <-s.done:
	}
}

// Close, session'ı sonlandırır: tüm abonelikler kapatılır, loop durur.
// Birden fazla çağrı güvenlidir.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		stopped := make(chan struct{})
		s.post(func() {
			s.stopLocator()
			s.stopStream()
			s.stopNotifier()
			close(stopped)
		})
		<-stopped
		close(s.done)
	})
}

// SignIn, session'a kimlik bağlar ve konuşma çözümlemesini başlatır.
// Aynı kimlikle tekrarlanan çağrı no-op'tur; farklı kimlik önce tam
// sıfırlama yapar (eski kullanıcının durumu yenisine sızmaz).
func (s *Session) SignIn(identity Identity) {
	s.post(func() {
		if s.identity != nil && s.identity.UserID == identity.UserID {
			return
		}
		s.reset()
		id := identity
		s.identity = &id
		s.startLocator()
		if s.visible {
			s.maybeSeedGreeting()
			s.render()
		}
		s.announceUnread()
	})
}

// SignOut, kimliği ve tüm yerel durumu temizler. Görünürlük korunur.
func (s *Session) SignOut() {
	s.post(func() {
		s.reset()
		s.identity = nil
		s.render()
		s.announceUnread()
	})
}

// SetVisible, widget'ın açık/kapalı durum geçişini işler.
//
// Gizli → görünür: okunmamış sayaç ve cursor birlikte sıfırlanır, SONRA
// stream başlar — sayaç sıfırlanmış ama eski cursor'la sayan bir ara
// durum asla oluşmaz.
// Görünür → gizli: stream kapanır, gizlenme anı cursor olarak yakalanır
// ve notifier bu damgadan sonrasını izlemeye başlar.
func (s *Session) SetVisible(visible bool) {
	s.post(func() {
		if s.visible == visible {
			return
		}
		s.visible = visible

		if visible {
			s.stopNotifier()
			s.unread = 0
			s.cursor = time.Now().UTC()
			s.announceUnread()
			if s.convID != "" {
				s.startStream()
			} else if s.identity != nil {
				s.maybeSeedGreeting()
			}
			s.render()
			return
		}

		s.stopStream()
		s.cursor = time.Now().UTC()
		if s.convID != "" {
			s.startNotifier()
		}
	})
}

// Send, iyimser gönderim pipeline'ıdır.
//
// Boş gövde ve kimliksiz session SESSİZCE yoksayılır — hata duyurulmaz.
// Girdiler önce yerel listeye eklenir (anında görünür), kalıcı yazım ayrı
// goroutine'de koşar; sonuç loop'a post edilir. Başarısızlıkta TAM OLARAK
// bu gönderimin yerel girdileri geri alınır ve kullanıcıya hata duyurulur —
// önceden onaylanmış kayıtlar dokunulmaz kalır.
func (s *Session) Send(body string) {
	s.post(func() {
		if s.identity == nil {
			return
		}
		trimmed := strings.TrimSpace(body)
		if trimmed == "" {
			return
		}

		local := newPendingMessage(models.SenderUser, trimmed)
		s.pending = append(s.pending, local)
		batch := []string{local.LocalID}

		if s.convID != "" {
			s.render()
			convID := s.convID
			go func() {
				err := s.chat.SendUserMessage(context.Background(), convID, trimmed)
				s.post(func() { s.settle(batch, err) })
			}()
			return
		}

		// İlk temas: otomatik yanıt da iyimser gösterilir — kullanıcı yazımın
		// sonucunu beklemeden iki girdiyi birden görür. İkisi tek parti olarak
		// çözülür: başarısızlıkta tam olarak bu iki girdi geri alınır.
		autoPend := newPendingMessage(models.SenderSystem, pendingAutoReplyBody)
		s.pending = append(s.pending, autoPend)
		batch = append(batch, autoPend.LocalID)
		s.render()

		// Dönen ID hata olsa bile benimsenir — reuse politikasında yarım
		// kalan kayıt bir sonraki gönderimde kullanılır; cleanup
		// politikasında servis boş ID döner.
		ident := *s.identity
		go func() {
			convID, err := s.chat.SendFirstContact(context.Background(), ident.UserID, ident.Label, trimmed)
			s.post(func() {
				if convID != "" {
					s.adopt(convID)
				}
				s.settle(batch, err)
			})
		}()
	})
}

// settle, kalıcı yazım sonucunu yerel duruma işler: partinin iyimser
// girdileri her durumda listeden çıkar (başarıda onaylı kopyaları
// stream'den gelir), hatada kullanıcıya bildirim duyurulur. Partiye ait
// OLMAYAN girdiler — eşzamanlı ikinci bir gönderimin girdileri dahil —
// dokunulmaz kalır.
func (s *Session) settle(localIDs []string, err error) {
	drop := make(map[string]bool, len(localIDs))
	for _, id := range localIDs {
		drop[id] = true
	}

	kept := s.pending[:0]
	for _, p := range s.pending {
		if !drop[p.LocalID] {
			kept = append(kept, p)
		}
	}
	s.pending = kept

	if err != nil {
		s.notice(deliveryFailedNotice)
	}
	s.render()
}

// adopt, çözümlenen konuşma ID'sini sahiplenir ve görünürlüğe göre
// uygun aboneliği başlatır. Aynı ID ile tekrarlanan çağrı no-op'tur
// (locator ile ilk temas sonucu yarışabilir; ikisi de aynı ID'yi taşır).
func (s *Session) adopt(conversationID string) {
	if s.convID == conversationID {
		return
	}
	s.convID = conversationID
	if s.visible {
		s.startStream()
	} else {
		s.startNotifier()
	}
}

// startLocator, kullanıcının konuşma-varlık aboneliğini kurar.
func (s *Session) startLocator() {
	s.locatorGen++
	gen := s.locatorGen
	ownerID := s.identity.UserID

	s.locatorWatch = s.st.WatchOwnerConversation(ownerID, func(conv *models.Conversation) {
		s.post(func() {
			if gen != s.locatorGen {
				return
			}
			s.onLocator(conv)
		})
	})
}

// onLocator, konuşma-varlık değişimini işler.
//
// nil teslim iki anlama gelir: konuşma hiç olmadı (çözümlenmemişken
// no-op) ya da operatör tarafından silindi — ikincisinde widget taze
// duruma döner: abonelikler kapanır, liste boşalır, görünürse karşılama
// yeniden sentezlenir.
func (s *Session) onLocator(conv *models.Conversation) {
	if conv != nil {
		s.adopt(conv.ID)
		return
	}
	if s.convID == "" {
		return
	}

	s.convID = ""
	s.confirmed = nil
	s.seeded = nil
	s.stopStream()
	s.stopNotifier()
	s.unread = 0
	s.announceUnread()
	if s.visible {
		s.maybeSeedGreeting()
	}
	s.render()
}

// startStream, görünür durumdaki canlı mesaj aboneliğini kurar.
// Her teslimde bellekteki onaylı liste snapshot ile bütünüyle değişir.
func (s *Session) startStream() {
	s.stopStream()
	s.streamGen++
	gen := s.streamGen
	convID := s.convID

	s.streamWatch = s.st.WatchMessages(convID, func(msgs []models.Message) {
		s.post(func() {
			if gen != s.streamGen {
				return
			}
			s.confirmed = msgs
			if len(msgs) > 0 {
				// Snapshot bellekteki listeyi bütünüyle değiştirir —
				// sentezlenmiş karşılama da bu değişimle süpürülür.
				s.seeded = nil
			} else if len(s.pending) == 0 && s.seeded == nil {
				// Konuşma var ama içi boş — yarım kalmış ilk temastan
				// kalan kayıt. Dönen kullanıcıyı karşıla.
				p := newPendingMessage(models.SenderSystem, WelcomeBackBody)
				s.seeded = &p
			}
			s.render()
		})
	})
}

// startNotifier, gizli durumdaki okunmamış sayacı aboneliğini kurar.
// Yalnızca cursor'dan SONRAKİ operatör mesajları sayılır; kullanıcının
// kendi mesajları ve sistem yanıtları sayacı artırmaz.
func (s *Session) startNotifier() {
	s.stopNotifier()
	s.notifyGen++
	gen := s.notifyGen

	s.notifyWatch = s.st.WatchMessagesAfter(s.convID, s.cursor, func(msg models.Message) {
		s.post(func() {
			if gen != s.notifyGen {
				return
			}
			if msg.Sender != models.SenderOperator {
				return
			}
			s.unread++
			s.announceUnread()
			s.notice(newReplyNotice)
		})
	})
}

func (s *Session) stopLocator() {
	s.locatorGen++
	if s.locatorWatch != nil {
		s.locatorWatch.Close()
		s.locatorWatch = nil
	}
}

func (s *Session) stopStream() {
	s.streamGen++
	if s.streamWatch != nil {
		s.streamWatch.Close()
		s.streamWatch = nil
	}
}

func (s *Session) stopNotifier() {
	s.notifyGen++
	if s.notifyWatch != nil {
		s.notifyWatch.Close()
		s.notifyWatch = nil
	}
}

// reset, kimliğe bağlı tüm durumu temizler. Kimlik alanının kendisine
// dokunmaz — çağıran karar verir.
func (s *Session) reset() {
	s.stopLocator()
	s.stopStream()
	s.stopNotifier()
	s.convID = ""
	s.confirmed = nil
	s.pending = nil
	s.seeded = nil
	s.unread = 0
	s.cursor = time.Now().UTC()
}

// maybeSeedGreeting, görünür ve tamamen boş widget'a karşılama sentezler.
func (s *Session) maybeSeedGreeting() {
	if s.convID != "" || len(s.confirmed) != 0 || len(s.pending) != 0 || s.seeded != nil {
		return
	}
	p := newPendingMessage(models.SenderSystem, GreetingBody)
	s.seeded = &p
}

// render, görüntülenen listeyi kurar ve duyurur:
// sentezlenmiş karşılama + onaylı kayıtlar + iyimser girdiler.
func (s *Session) render() {
	if s.cb.OnMessages == nil {
		return
	}

	entries := make([]Entry, 0, len(s.confirmed)+len(s.pending)+1)
	if s.seeded != nil {
		entries = append(entries, Entry{Pending: s.seeded})
	}
	for i := range s.confirmed {
		entries = append(entries, Entry{Confirmed: &s.confirmed[i]})
	}
	for i := range s.pending {
		entries = append(entries, Entry{Pending: &s.pending[i]})
	}
	s.cb.OnMessages(entries)
}

func (s *Session) announceUnread() {
	if s.cb.OnUnread != nil {
		s.cb.OnUnread(s.unread)
	}
}

func (s *Session) notice(text string) {
	if s.cb.OnNotice != nil {
		s.cb.OnNotice(text)
	}
}
