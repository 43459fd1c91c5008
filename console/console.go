// Package console, operatör konsolunun sunucu taraflı çekirdeğini sağlar.
//
// widget.Session ile aynı mimariyi izler: bağlantı başına bir Session,
// tüm durum tek event-loop goroutine'inde, operasyonlar ve abonelik
// teslimleri closure olarak post edilir.
//
// Konsolun gerçeği konuşma dizinidir: tüm konuşmalar son aktiviteye göre
// canlı izlenir. Bir konuşma seçildiğinde mesaj geçmişi ikinci bir canlı
// abonelikle açılır ve konuşma gerekiyorsa okundu işaretlenir.
package console

import (
	"context"

	"github.com/akinalp/destek/models"
)

// selectionErasedNotice / eraseFailedNotice / replyFailedNotice,
// operatöre duyurulan durum metinleri.
const (
	selectionErasedNotice = "This conversation was deleted."
	eraseFailedNotice     = "Could not delete the conversation. Please try again."
	replyFailedNotice     = "Reply could not be delivered. Please try again."
)

// ChatOperator, session'ın kalıcı yazma yolundan beklediği dar yüzeydir.
// services.ChatService bu interface'i karşılar.
type ChatOperator interface {
	SendOperatorReply(ctx context.Context, conversationID, body string) error
	MarkRead(ctx context.Context, conversationID string) error
	EraseConversation(ctx context.Context, conversationID string) error
}

// Callbacks, konsol session'ının dışarı duyurma yüzeyidir.
// Tüm callback'ler event-loop goroutine'inden sıralı çağrılır; nil atlanır.
type Callbacks struct {
	// OnDirectory, konuşma dizininin her değişiminde tam listeyle çağrılır
	// (yeniden eskiye sıralı, status dahil).
	OnDirectory func(conversations []models.Conversation)
	// OnMessages, seçili konuşmanın mesaj listesi her değiştiğinde çağrılır.
	OnMessages func(messages []models.Message)
	// OnSelectionCleared, seçimin session tarafından kaldırıldığında çağrılır
	// (silme başarısı veya konuşmanın başka yerden silinmesi).
	OnSelectionCleared func()
	// OnNotice, operatöre gösterilecek bilgi/hata metniyle çağrılır.
	OnNotice func(text string)
}
