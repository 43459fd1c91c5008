package store

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/akinalp/destek/models"
	"github.com/akinalp/destek/pkg"
	"github.com/akinalp/destek/repository"
)

// Store, repository'ler üzerinde canlı abonelik yüzeyini sağlar.
//
// Her Watch* metodu aynı sözleşmeyi izler:
//  1. Broker'a abone ol (değişim sinyalleri için)
//  2. Snapshot'ı repository'den oku ve handler'a teslim et
//  3. Her ilgili değişim sinyalinde yeniden sorgula ve teslim et
//
// Yeniden sorgulama hatası log'lanır ve handler'daki önceki durum korunur —
// abonelik çalışmaya devam eder (geçici store hatası render edilmiş
// mesajları kaybettirmez).
type Store struct {
	convRepo repository.ConversationRepository
	msgRepo  repository.MessageRepository
	broker   *Broker
}

// New, repository'ler ve broker üzerinden bir Store oluşturur.
func New(convRepo repository.ConversationRepository, msgRepo repository.MessageRepository, broker *Broker) *Store {
	return &Store{convRepo: convRepo, msgRepo: msgRepo, broker: broker}
}

// Broker, yazma yollarının commit sonrası event yayınladığı broker'ı döner.
func (s *Store) Broker() *Broker {
	return s.broker
}

// WatchOwnerConversation, bir kullanıcının konuşma-varlık gerçeğini izler
// (owning-user id üzerinde eşitlik filtresi).
//
// Handler her değişimde güncel durumu alır: konuşma varsa kaydın kendisi,
// yoksa nil. Chat Locator bu aboneliğin tek tüketicisidir — asla yazmaz.
func (s *Store) WatchOwnerConversation(ownerID string, handler func(*models.Conversation)) *Watch {
	w := newWatch()
	w.unsub = s.broker.subscribeConversations(func(c conversationChange) {
		if c.UserID == ownerID {
			w.poke()
		}
	})

	deliver := func() {
		conv, err := s.convRepo.GetByUserID(context.Background(), ownerID)
		if err != nil && !errors.Is(err, pkg.ErrNotFound) {
			log.Printf("[store] owner conversation watch query failed (owner=%s): %v", ownerID, err)
			return
		}
		handler(conv) // ErrNotFound → nil: çözümlenmemiş durum
	}

	go w.run(deliver)
	return w
}

// WatchMessages, bir konuşmanın mesaj geçmişini created_at artan sırayla izler.
//
// Handler her değişimde TAM listeyi alır — Message Stream bellekteki
// listeyi bu snapshot ile bütünüyle değiştirir; iyimser yerel girdiler
// bu değiştirme ile süpürülür (geçici ID'ler kalıcı ID'lerden farklı
// olduğu için overlap penceresinde çakışma olmaz).
func (s *Store) WatchMessages(conversationID string, handler func([]models.Message)) *Watch {
	w := newWatch()
	w.unsub = s.broker.subscribeMessages(func(c messageChange) {
		if c.ConversationID == conversationID {
			w.poke()
		}
	})

	deliver := func() {
		msgs, err := s.msgRepo.ListByConversation(context.Background(), conversationID)
		if err != nil {
			log.Printf("[store] message watch query failed (conversation=%s): %v", conversationID, err)
			return
		}
		handler(msgs)
	}

	go w.run(deliver)
	return w
}

// WatchMessagesAfter, bir konuşmada created_at > after olan mesajları izler
// (zaman damgası üzerinde kesin-büyüktür aralık filtresi).
//
// Handler her YENİ kaydı tam olarak bir kez alır, created_at sırasıyla.
// Abonelik başlangıcında filtreyi karşılayan kayıtlar da teslim edilir —
// cursor yakalama ile abonelik kurulumu arasına sıkışan mesaj kaybolmaz.
// Gönderen rolü filtresi burada DEĞİL tüketicidedir: bildirim izleyicisi
// operatör olmayan gönderenleri kendisi eler.
func (s *Store) WatchMessagesAfter(conversationID string, after time.Time, handler func(models.Message)) *Watch {
	w := newWatch()
	w.unsub = s.broker.subscribeMessages(func(c messageChange) {
		if c.ConversationID == conversationID && c.Type == ChangeAdded {
			w.poke()
		}
	})

	// delivered: teslim edilen mesaj ID'leri — aynı kayıt iki kez teslim
	// edilmez. Küme, gizli kalınan süre boyunca gelen mesajlarla sınırlıdır.
	delivered := make(map[string]bool)

	deliver := func() {
		msgs, err := s.msgRepo.ListByConversationAfter(context.Background(), conversationID, after)
		if err != nil {
			log.Printf("[store] message-after watch query failed (conversation=%s): %v", conversationID, err)
			return
		}
		for _, msg := range msgs {
			if delivered[msg.ID] {
				continue
			}
			delivered[msg.ID] = true
			handler(msg)
		}
	}

	go w.run(deliver)
	return w
}

// WatchConversations, tüm konuşmaları son aktiviteye göre yeniden eskiye izler.
// Operatör konsolunun Conversation Directory aboneliğidir; handler her
// değişimde tam listeyi alır (status dahil — okunmamış işaretleme için).
func (s *Store) WatchConversations(handler func([]models.Conversation)) *Watch {
	w := newWatch()
	w.unsub = s.broker.subscribeConversations(func(conversationChange) {
		w.poke()
	})

	deliver := func() {
		convs, err := s.convRepo.ListByRecency(context.Background())
		if err != nil {
			log.Printf("[store] conversation directory watch query failed: %v", err)
			return
		}
		handler(convs)
	}

	go w.run(deliver)
	return w
}

// run, watch'un dispatch döngüsüdür: önce snapshot, sonra her uyandırmada
// yeniden teslim. Kapanan watch döngüden çıkar ve bir daha teslim etmez.
func (w *Watch) run(deliver func()) {
	if w.closed() {
		return
	}
	deliver()

	for {
		select {
		case <-w.done:
			return
		case <-w.wake:
			if w.closed() {
				return
			}
			deliver()
		}
	}
}
