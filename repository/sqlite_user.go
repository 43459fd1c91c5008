package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/akinalp/destek/database"
	"github.com/akinalp/destek/models"
	"github.com/akinalp/destek/pkg"
)

// sqliteUserRepo, UserRepository interface'inin SQLite implementasyonu.
type sqliteUserRepo struct {
	q database.TxQuerier
}

// NewSQLiteUserRepo, constructor — interface döner.
func NewSQLiteUserRepo(q database.TxQuerier) UserRepository {
	return &sqliteUserRepo{q: q}
}

func (r *sqliteUserRepo) Create(ctx context.Context, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	var username, passwordHash *string
	if user.Username != nil {
		username = user.Username
	}
	if user.PasswordHash != "" {
		passwordHash = &user.PasswordHash
	}

	query := `
		INSERT INTO users (id, label, username, password_hash, is_operator, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	if _, err := r.q.ExecContext(ctx, query,
		user.ID, user.Label, username, passwordHash, user.IsOperator, user.CreatedAt,
	); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return pkg.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func (r *sqliteUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT id, label, username, password_hash, is_operator, created_at
		FROM users WHERE id = ?`

	return r.scanOne(r.q.QueryRowContext(ctx, query, id), "id")
}

func (r *sqliteUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `
		SELECT id, label, username, password_hash, is_operator, created_at
		FROM users WHERE username = ?`

	return r.scanOne(r.q.QueryRowContext(ctx, query, username), "username")
}

func (r *sqliteUserRepo) scanOne(row *sql.Row, by string) (*models.User, error) {
	user := &models.User{}
	var passwordHash sql.NullString

	err := row.Scan(
		&user.ID, &user.Label, &user.Username, &passwordHash,
		&user.IsOperator, &user.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by %s: %w", by, err)
	}

	if passwordHash.Valid {
		user.PasswordHash = passwordHash.String
	}

	return user, nil
}
