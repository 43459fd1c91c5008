// Package services, business logic katmanını barındırır.
//
// Service katmanı handler (HTTP/WS) ile repository (DB) arasında oturur.
// Service ASLA http.Request/Response bilmez — domain modelleri alır/verir.
// Service ASLA doğrudan SQL çalıştırmaz — repository interface'i kullanır.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/akinalp/destek/models"
	"github.com/akinalp/destek/pkg"
	"github.com/akinalp/destek/repository"
)

// AuthService, kimlik işbirlikçisinin dışarıya açık API'si.
//
// Chat çekirdeği bu servisten yalnızca kararlı opak bir kimlik ve
// iletişim etiketi bekler. İki giriş yolu vardır:
//   - StartVisitorSession: widget açan ziyaretçi için kimlik üretir
//   - OperatorLogin: konsol operatörü username + şifre ile girer
type AuthService interface {
	StartVisitorSession(ctx context.Context, req *models.StartSessionRequest) (*AuthResult, error)
	OperatorLogin(ctx context.Context, req *models.OperatorLoginRequest) (*AuthResult, error)
	ValidateAccessToken(tokenString string) (*models.TokenClaims, error)
	// EnsureOperator, verilen kimlik bilgileriyle bir operatör hesabının
	// var olmasını sağlar (ilk kurulum bootstrap'i). Hesap zaten varsa
	// dokunmaz.
	EnsureOperator(ctx context.Context, username, password string) error
}

// AuthResult, session bootstrap veya login sonrası dönen token + kullanıcı.
type AuthResult struct {
	AccessToken string      `json:"access_token"`
	User        models.User `json:"user"`
}

// authService, AuthService interface'inin implementasyonu.
type authService struct {
	userRepo  repository.UserRepository
	jwtSecret []byte
	accessExp time.Duration
}

// NewAuthService, constructor.
func NewAuthService(userRepo repository.UserRepository, jwtSecret string, accessExpHours int) AuthService {
	return &authService{
		userRepo:  userRepo,
		jwtSecret: []byte(jwtSecret),
		accessExp: time.Duration(accessExpHours) * time.Hour,
	}
}

// StartVisitorSession, yeni bir ziyaretçi kimliği oluşturur ve token döner.
// Ziyaretçinin şifresi yoktur — kimliği tarayıcıda saklanan token'dır.
func (s *authService) StartVisitorSession(ctx context.Context, req *models.StartSessionRequest) (*AuthResult, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	user := &models.User{
		ID:    uuid.NewString(),
		Label: req.Label,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create visitor: %w", err)
	}

	token, err := s.signToken(user)
	if err != nil {
		return nil, err
	}

	return &AuthResult{AccessToken: token, User: *user}, nil
}

// OperatorLogin, operatör girişi yapar.
// Hatalı username ve hatalı şifre aynı mesajla döner — hangi kısmın
// yanlış olduğu dışarı sızdırılmaz.
func (s *authService) OperatorLogin(ctx context.Context, req *models.OperatorLoginRequest) (*AuthResult, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	user, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid credentials", pkg.ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to get operator: %w", err)
	}

	if !user.IsOperator {
		return nil, fmt.Errorf("%w: invalid credentials", pkg.ErrUnauthorized)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("%w: invalid credentials", pkg.ErrUnauthorized)
	}

	token, err := s.signToken(user)
	if err != nil {
		return nil, err
	}

	user.PasswordHash = ""
	return &AuthResult{AccessToken: token, User: *user}, nil
}

// ValidateAccessToken, JWT imzasını ve geçerlilik süresini doğrular.
func (s *authService) ValidateAccessToken(tokenString string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", pkg.ErrUnauthorized)
	}

	return claims, nil
}

// EnsureOperator, bootstrap operatör hesabını oluşturur.
// main.go açılışta çağırır — hesap varsa hiçbir şey yapmaz.
func (s *authService) EnsureOperator(ctx context.Context, username, password string) error {
	_, err := s.userRepo.GetByUsername(ctx, username)
	if err == nil {
		return nil // Zaten var
	}
	if !errors.Is(err, pkg.ErrNotFound) {
		return fmt.Errorf("failed to check operator account: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash operator password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Label:        "Admin",
		Username:     &username,
		PasswordHash: string(hash),
		IsOperator:   true,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return fmt.Errorf("failed to create operator account: %w", err)
	}

	return nil
}

// signToken, kullanıcı için access token üretir.
func (s *authService) signToken(user *models.User) (string, error) {
	now := time.Now()
	claims := &models.TokenClaims{
		UserID:     user.ID,
		Label:      user.Label,
		IsOperator: user.IsOperator,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessExp)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}
