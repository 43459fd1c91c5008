package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/akinalp/destek/database"
	"github.com/akinalp/destek/models"
)

// sqliteMessageRepo, MessageRepository interface'inin SQLite implementasyonu.
type sqliteMessageRepo struct {
	q database.TxQuerier
}

// NewSQLiteMessageRepo, constructor — interface döner.
func NewSQLiteMessageRepo(q database.TxQuerier) MessageRepository {
	return &sqliteMessageRepo{q: q}
}

// Create, yeni bir mesaj kaydeder.
// ID ve zaman damgası server tarafından atanır — widget'ın iyimser
// girdilerindeki geçici ID'lerle asla çakışmaz.
func (r *sqliteMessageRepo) Create(ctx context.Context, message *models.Message) error {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO messages (id, conversation_id, sender, body, created_at)
		VALUES (?, ?, ?, ?, ?)`

	if _, err := r.q.ExecContext(ctx, query,
		message.ID, message.ConversationID, string(message.Sender),
		message.Body, message.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}

	return nil
}

const selectMessage = `
	SELECT id, conversation_id, sender, body, created_at
	FROM messages`

// ListByConversation, bir konuşmanın tüm mesajlarını eskiden yeniye döner.
func (r *sqliteMessageRepo) ListByConversation(ctx context.Context, conversationID string) ([]models.Message, error) {
	query := selectMessage + ` WHERE conversation_id = ? ORDER BY created_at, id`
	return r.list(ctx, query, conversationID)
}

// ListByConversationAfter, created_at değeri after'dan KESİN büyük olan
// mesajları eskiden yeniye döner. Eşit zaman damgası dahil edilmez —
// cursor "bu ana kadar gördüm" sınırıdır.
func (r *sqliteMessageRepo) ListByConversationAfter(ctx context.Context, conversationID string, after time.Time) ([]models.Message, error) {
	query := selectMessage + ` WHERE conversation_id = ? AND created_at > ? ORDER BY created_at, id`
	return r.list(ctx, query, conversationID, after)
}

func (r *sqliteMessageRepo) list(ctx context.Context, query string, args ...any) ([]models.Message, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		var sender string
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &sender, &msg.Body, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		msg.Sender = models.MessageSender(sender)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message rows: %w", err)
	}

	return messages, nil
}

// DeleteByConversation, konuşmanın tüm mesajlarını tek statement ile siler
// ve silinen satır sayısını döner. Konuşma kaydının silinmesiyle birlikte
// database.WithTx içinde çağrılır — yarım silme hiçbir aboneye görünmez.
func (r *sqliteMessageRepo) DeleteByConversation(ctx context.Context, conversationID string) (int64, error) {
	result, err := r.q.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, conversationID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete messages: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}

	return affected, nil
}
