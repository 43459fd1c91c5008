package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/destek/database"
	"github.com/akinalp/destek/models"
	"github.com/akinalp/destek/pkg"
	"github.com/akinalp/destek/repository"
)

func newAuthFixture(t *testing.T) AuthService {
	t.Helper()
	db, err := database.New(":memory:", database.EmbeddedMigrations)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewAuthService(repository.NewSQLiteUserRepo(db.Conn), "test-secret", 24)
}

func TestStartVisitorSession(t *testing.T) {
	svc := newAuthFixture(t)
	ctx := context.Background()

	result, err := svc.StartVisitorSession(ctx, &models.StartSessionRequest{Label: "jane@example.com"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.User.ID)
	assert.Equal(t, "jane@example.com", result.User.Label)
	assert.False(t, result.User.IsOperator)

	// Token, aynı kimliği taşımalı.
	claims, err := svc.ValidateAccessToken(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, claims.UserID)
	assert.Equal(t, "jane@example.com", claims.Label)
	assert.False(t, claims.IsOperator)
}

func TestStartVisitorSessionValidation(t *testing.T) {
	svc := newAuthFixture(t)

	_, err := svc.StartVisitorSession(context.Background(), &models.StartSessionRequest{Label: "   "})
	assert.ErrorIs(t, err, pkg.ErrBadRequest)
}

func TestOperatorLogin(t *testing.T) {
	svc := newAuthFixture(t)
	ctx := context.Background()
	require.NoError(t, svc.EnsureOperator(ctx, "admin", "s3cret-pass"))

	t.Run("valid credentials", func(t *testing.T) {
		result, err := svc.OperatorLogin(ctx, &models.OperatorLoginRequest{Username: "admin", Password: "s3cret-pass"})
		require.NoError(t, err)
		assert.True(t, result.User.IsOperator)
		assert.Empty(t, result.User.PasswordHash)

		claims, err := svc.ValidateAccessToken(result.AccessToken)
		require.NoError(t, err)
		assert.True(t, claims.IsOperator)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.OperatorLogin(ctx, &models.OperatorLoginRequest{Username: "admin", Password: "nope"})
		assert.ErrorIs(t, err, pkg.ErrUnauthorized)
	})

	t.Run("unknown username", func(t *testing.T) {
		_, err := svc.OperatorLogin(ctx, &models.OperatorLoginRequest{Username: "ghost", Password: "whatever"})
		assert.ErrorIs(t, err, pkg.ErrUnauthorized)
	})
}

func TestEnsureOperatorIsIdempotent(t *testing.T) {
	svc := newAuthFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.EnsureOperator(ctx, "admin", "first-pass"))
	// İkinci çağrı mevcut hesaba dokunmaz — eski şifre çalışmaya devam eder.
	require.NoError(t, svc.EnsureOperator(ctx, "admin", "second-pass"))

	_, err := svc.OperatorLogin(ctx, &models.OperatorLoginRequest{Username: "admin", Password: "first-pass"})
	assert.NoError(t, err)
}

func TestValidateAccessTokenRejectsGarbage(t *testing.T) {
	svc := newAuthFixture(t)

	_, err := svc.ValidateAccessToken("not-a-token")
	assert.Error(t, err)

	// Başka bir secret ile imzalanmış token reddedilir.
	other := newAuthFixture(t)
	db, errDB := database.New(":memory:", database.EmbeddedMigrations)
	require.NoError(t, errDB)
	t.Cleanup(func() { db.Close() })
	forged := NewAuthService(repository.NewSQLiteUserRepo(db.Conn), "other-secret", 24)
	result, err := forged.StartVisitorSession(context.Background(), &models.StartSessionRequest{Label: "Eve"})
	require.NoError(t, err)

	_, err = other.ValidateAccessToken(result.AccessToken)
	assert.Error(t, err)
	_, err = svc.ValidateAccessToken(result.AccessToken)
	assert.Error(t, err)
}
