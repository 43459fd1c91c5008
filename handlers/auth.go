// Package handlers, HTTP request/response işlemlerini yönetir.
//
// Handler'ın görevi çok basit ve "ince" (thin) olmalı:
// 1. Request body'yi parse et (JSON → struct)
// 2. Service katmanını çağır
// 3. Sonucu HTTP response olarak döndür
//
// Handler ASLA iş mantığı (business logic) içermez.
// Handler ASLA doğrudan DB'ye erişmez.
// Tüm akıl service'de, handler sadece köprü.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/akinalp/destek/models"
	"github.com/akinalp/destek/pkg"
	"github.com/akinalp/destek/pkg/ratelimit"
	"github.com/akinalp/destek/services"
)

// AuthHandler, kimlik endpoint'lerini yöneten struct.
// Service interface'i ve rate limiter constructor'dan alınır (DI).
type AuthHandler struct {
	authService  services.AuthService
	loginLimiter *ratelimit.LoginRateLimiter
}

// NewAuthHandler, constructor.
// loginLimiter: brute-force ve oturum seli koruması. nil ise devre dışı kalır.
func NewAuthHandler(authService services.AuthService, loginLimiter *ratelimit.LoginRateLimiter) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		loginLimiter: loginLimiter,
	}
}

// checkRateLimit, IP bazlı limit kontrolü yapar; limit aşıldıysa 429 yazar
// ve false döner.
func (h *AuthHandler) checkRateLimit(w http.ResponseWriter, r *http.Request) bool {
	if h.loginLimiter == nil {
		return true
	}
	ip := ratelimit.ExtractIP(r)
	if h.loginLimiter.Allow(ip) {
		return true
	}
	retryAfter := h.loginLimiter.RetryAfterSeconds(ip)
	w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
	pkg.ErrorWithMessage(w, http.StatusTooManyRequests,
		fmt.Sprintf("too many attempts, please try again in %s",
			ratelimit.FormatRetryMessage(retryAfter)))
	return false
}

// StartSession godoc
// POST /api/session
// Body: { "label": "Ayşe" }
//
// Ziyaretçi oturumu açar: şifre yok, kayıt yok. Widget ilk açıldığında
// bir etiketle bu endpoint'i çağırır ve dönen token'la WS'e bağlanır.
// Aynı token saklandığı sürece kullanıcı aynı konuşmaya geri döner.
func (h *AuthHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	// Oturum seli koruması: ziyaretçi oturumu şifresizdir, endpoint'in
	// kendisi sınırlanmazsa tek IP sınırsız kullanıcı kaydı üretebilir.
	if !h.checkRateLimit(w, r) {
		return
	}

	var req models.StartSessionRequest

	// json.NewDecoder: Request body'yi Go struct'ına parse eder.
	// r.Body bir io.Reader'dır — stream olarak okunur, hepsini belleğe almaz.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.authService.StartVisitorSession(r.Context(), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, result)
}

// Login godoc
// POST /api/auth/login
// Body: { "username": "admin", "password": "..." }
//
// Operatör girişi. Ziyaretçiler bu endpoint'i kullanmaz.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	// Rate limit kontrolü — brute-force koruması
	if !h.checkRateLimit(w, r) {
		return
	}

	var req models.OperatorLoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.authService.OperatorLogin(r.Context(), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	// Başarılı login — sayacı sıfırla, meşru operatör bloke olmaz.
	if h.loginLimiter != nil {
		h.loginLimiter.Reset(ratelimit.ExtractIP(r))
	}

	pkg.JSON(w, http.StatusOK, result)
}

// Me godoc
// GET /api/users/me
// Token'daki kullanıcının güncel kaydını döner (middleware context'e koyar).
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	pkg.JSON(w, http.StatusOK, user)
}

// contextKey, context'te değer taşımak için kullanılan key tipi.
//
// Neden string değil de özel tip?
// context.WithValue'da key çakışmalarını önlemek için — başka bir paket
// aynı "user" string'ini kullansa bile tipler farklı olduğu için çakışmaz.
type contextKey string

// UserContextKey, context'te kullanıcı bilgisi taşımak için kullanılan key.
const UserContextKey contextKey = "user"
