// Package store, kalıcı kayıtlar üzerinde canlı abonelik katmanını sağlar.
//
// Chat çekirdeğinin document-store işbirlikçisinden beklediği yüzey budur:
// koleksiyon kapsamlı, filtreli abonelikler — önce mevcut durumun
// snapshot'ı, sonra artımlı add/modify/remove değişim event'leri.
//
// Mimari (ws Hub ile aynı observer pattern'i):
//   - Broker: commit sonrası yayınlanan değişim event'lerini tüm kayıtlı
//     abonelere fan-out eder
//   - Watch: tek bir aboneliğin sahiplik nesnesi — teardown handle'ı
//     Close()'dur, kapanan watch bir daha teslimat yapmaz
//
// Yazma yolları (services katmanı) commit'ten SONRA Publish* çağırır;
// böylece abonelere asla commit edilmemiş durum görünmez.
package store

import "sync"

// ChangeType, bir kaydın nasıl değiştiğini belirtir.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
	ChangeRemoved  ChangeType = "removed"
)

// conversationChange, bir konuşma kaydındaki değişimi taşır.
type conversationChange struct {
	Type           ChangeType
	ConversationID string
	UserID         string
}

// messageChange, bir mesaj kaydındaki değişimi taşır.
type messageChange struct {
	Type           ChangeType
	ConversationID string
}

// Broker, değişim event'lerini abonelere dağıtan merkezi yapı.
//
// Abone seti map[int]func — Go'da set yoktur; artan ID anahtarı
// unsubscribe'ı O(1) yapar. RWMutex: yayın (okuma ağırlıklı) sırasında
// birden fazla goroutine aynı anda fan-out yapabilir.
type Broker struct {
	mu        sync.RWMutex
	nextID    int
	convSubs  map[int]func(conversationChange)
	msgSubs   map[int]func(messageChange)
}

// NewBroker, yeni bir Broker oluşturur.
func NewBroker() *Broker {
	return &Broker{
		convSubs: make(map[int]func(conversationChange)),
		msgSubs:  make(map[int]func(messageChange)),
	}
}

// PublishConversation, bir konuşma değişimini tüm abonelere duyurur.
func (b *Broker) PublishConversation(t ChangeType, conversationID, userID string) {
	change := conversationChange{Type: t, ConversationID: conversationID, UserID: userID}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, fn := range b.convSubs {
		fn(change)
	}
}

// PublishMessage, bir mesaj değişimini tüm abonelere duyurur.
func (b *Broker) PublishMessage(t ChangeType, conversationID string) {
	change := messageChange{Type: t, ConversationID: conversationID}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, fn := range b.msgSubs {
		fn(change)
	}
}

// subscribeConversations, konuşma değişimlerine abone olur.
// Dönen fonksiyon aboneliği kaldırır; birden fazla çağrı güvenlidir.
func (b *Broker) subscribeConversations(fn func(conversationChange)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.convSubs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.convSubs, id)
		b.mu.Unlock()
	}
}

// subscribeMessages, mesaj değişimlerine abone olur.
func (b *Broker) subscribeMessages(fn func(messageChange)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.msgSubs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.msgSubs, id)
		b.mu.Unlock()
	}
}
