package repository

import (
	"context"
	"time"

	"github.com/akinalp/destek/models"
)

// MessageRepository, mesaj veritabanı işlemleri için interface.
//
// Mesajlar her zaman konuşma kapsamındadır (subcollection) ve
// created_at sıralama anahtarıdır:
//   - ListByConversation: tam geçmiş, eskiden yeniye
//   - ListByConversationAfter: created_at > after olan mesajlar —
//     bildirim izleyicisinin "cursor'dan sonra gelenler" filtresi
//   - DeleteByConversation: konuşmanın tüm mesajlarını siler;
//     konuşma silme transaction'ının ilk adımıdır
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	ListByConversation(ctx context.Context, conversationID string) ([]models.Message, error)
	ListByConversationAfter(ctx context.Context, conversationID string, after time.Time) ([]models.Message, error)
	DeleteByConversation(ctx context.Context, conversationID string) (int64, error)
}
