package repository

import (
	"context"
	"time"

	"github.com/akinalp/destek/models"
)

// ConversationRepository, konuşma veritabanı işlemleri için interface.
//
// CreateIfAbsent idempotenttir: konuşma ID'si kullanıcı ID'sinden
// deterministik türetildiği için iki sekmeden eşzamanlı ilk gönderim aynı
// ID ile gelir ve ikinci insert sessizce atlanır — duplicate konuşma yarışı
// yapı gereği kapalıdır.
//
// Denormalize alanlar (last_message, last_message_at, status) iki ayrı
// yazma yoluyla güncellenir:
//   - TouchOnUserSend: son kullanıcı gönderdi → status her zaman "new"e döner
//   - TouchOnOperatorReply: operatör yanıtladı → status'a DOKUNULMAZ
//     (operatörün kendi yanıtı konuşmayı kendisi için "new" yapmamalı)
type ConversationRepository interface {
	CreateIfAbsent(ctx context.Context, conv *models.Conversation) (created bool, err error)
	GetByID(ctx context.Context, id string) (*models.Conversation, error)
	GetByUserID(ctx context.Context, userID string) (*models.Conversation, error)
	ListByRecency(ctx context.Context) ([]models.Conversation, error)
	TouchOnUserSend(ctx context.Context, id, lastMessage string, at time.Time) error
	TouchOnOperatorReply(ctx context.Context, id, lastMessage string, at time.Time) error
	MarkRead(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}
