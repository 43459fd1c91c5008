package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/akinalp/destek/database"
	"github.com/akinalp/destek/models"
	"github.com/akinalp/destek/pkg"
)

// sqliteConversationRepo, ConversationRepository interface'inin SQLite implementasyonu.
type sqliteConversationRepo struct {
	q database.TxQuerier
}

// NewSQLiteConversationRepo, constructor — interface döner.
func NewSQLiteConversationRepo(q database.TxQuerier) ConversationRepository {
	return &sqliteConversationRepo{q: q}
}

// CreateIfAbsent, konuşmayı yoksa oluşturur.
// ON CONFLICT DO NOTHING: aynı ID (veya aynı user_id) ile ikinci insert
// sessizce atlanır; created=false döner ve mevcut kayıt korunur.
func (r *sqliteConversationRepo) CreateIfAbsent(ctx context.Context, conv *models.Conversation) (bool, error) {
	now := time.Now().UTC()
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}
	if conv.LastMessageAt.IsZero() {
		conv.LastMessageAt = now
	}
	if conv.Status == "" {
		conv.Status = models.ConversationStatusNew
	}

	query := `
		INSERT INTO conversations (id, user_id, user_label, last_message, last_message_at, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`

	result, err := r.q.ExecContext(ctx, query,
		conv.ID, conv.UserID, conv.UserLabel, conv.LastMessage,
		conv.LastMessageAt, string(conv.Status), conv.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create conversation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}

	return affected > 0, nil
}

func (r *sqliteConversationRepo) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	return r.scanOne(r.q.QueryRowContext(ctx, selectConversation+` WHERE id = ?`, id))
}

func (r *sqliteConversationRepo) GetByUserID(ctx context.Context, userID string) (*models.Conversation, error) {
	return r.scanOne(r.q.QueryRowContext(ctx, selectConversation+` WHERE user_id = ?`, userID))
}

const selectConversation = `
	SELECT id, user_id, user_label, last_message, last_message_at, status, created_at
	FROM conversations`

func (r *sqliteConversationRepo) scanOne(row *sql.Row) (*models.Conversation, error) {
	conv := &models.Conversation{}
	var status string

	err := row.Scan(
		&conv.ID, &conv.UserID, &conv.UserLabel, &conv.LastMessage,
		&conv.LastMessageAt, &status, &conv.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	conv.Status = models.ConversationStatus(status)
	return conv, nil
}

// ListByRecency, tüm konuşmaları son aktiviteye göre yeniden eskiye sıralar.
// Operatör konsolu tüm konuşmaları görür — pagination limiti yoktur.
func (r *sqliteConversationRepo) ListByRecency(ctx context.Context) ([]models.Conversation, error) {
	rows, err := r.q.QueryContext(ctx, selectConversation+` ORDER BY last_message_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var convs []models.Conversation
	for rows.Next() {
		var conv models.Conversation
		var status string
		if err := rows.Scan(
			&conv.ID, &conv.UserID, &conv.UserLabel, &conv.LastMessage,
			&conv.LastMessageAt, &status, &conv.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan conversation row: %w", err)
		}
		conv.Status = models.ConversationStatus(status)
		convs = append(convs, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversation rows: %w", err)
	}

	return convs, nil
}

// TouchOnUserSend, son kullanıcı gönderimi sonrası denormalize alanları günceller.
// Status her zaman "new"e döner — operatör dikkat bayrağı yeniden kalkar.
func (r *sqliteConversationRepo) TouchOnUserSend(ctx context.Context, id, lastMessage string, at time.Time) error {
	query := `UPDATE conversations SET last_message = ?, last_message_at = ?, status = ? WHERE id = ?`
	return r.touch(ctx, query, lastMessage, at, string(models.ConversationStatusNew), id)
}

// TouchOnOperatorReply, operatör yanıtı sonrası denormalize alanları günceller.
// Status'a dokunulmaz.
func (r *sqliteConversationRepo) TouchOnOperatorReply(ctx context.Context, id, lastMessage string, at time.Time) error {
	query := `UPDATE conversations SET last_message = ?, last_message_at = ? WHERE id = ?`
	return r.touch(ctx, query, lastMessage, at, id)
}

func (r *sqliteConversationRepo) touch(ctx context.Context, query string, args ...any) error {
	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return pkg.ErrNotFound
	}

	return nil
}

// MarkRead, konuşmayı okundu olarak işaretler.
// WHERE status = 'new' sayesinde zaten okunmuş konuşmada satır değişmez —
// geçiş tek yönlü ve idempotenttir.
func (r *sqliteConversationRepo) MarkRead(ctx context.Context, id string) error {
	query := `UPDATE conversations SET status = ? WHERE id = ? AND status = ?`
	if _, err := r.q.ExecContext(ctx, query,
		string(models.ConversationStatusRead), id, string(models.ConversationStatusNew),
	); err != nil {
		return fmt.Errorf("failed to mark conversation read: %w", err)
	}
	return nil
}

func (r *sqliteConversationRepo) Delete(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return pkg.ErrNotFound
	}

	return nil
}
