// Package repository, veritabanı erişim katmanını barındırır.
//
// Her repository bir interface + SQLite implementasyonu çiftidir.
// Service katmanı yalnızca interface'e bağımlıdır — testlerde in-memory
// SQLite veya fake implementasyon geçilebilir.
//
// Implementasyonlar *sql.DB yerine database.TxQuerier alır: normal
// operasyonlarda connection pool, transaction içinde *sql.Tx geçilir.
package repository

import (
	"context"

	"github.com/akinalp/destek/models"
)

// UserRepository, kullanıcı veritabanı işlemleri için interface.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}
