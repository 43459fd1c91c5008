package ws

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/akinalp/destek/console"
	"github.com/akinalp/destek/models"
	"github.com/akinalp/destek/pkg/ratelimit"
	"github.com/akinalp/destek/store"
	"github.com/akinalp/destek/widget"
)

// TokenValidator, WebSocket handler'ın JWT doğrulaması için kullandığı interface.
//
// Neden services.AuthService yerine kendi interface'imizi tanımlıyoruz?
// Interface Segregation: WS handler'ın auth yüzeyinin tamamına ihtiyacı yok,
// sadece ValidateAccessToken yeterli. main.go'da authService bu interface'i
// otomatik olarak karşılar (Go'da implicit interface).
type TokenValidator interface {
	ValidateAccessToken(tokenString string) (*models.TokenClaims, error)
}

// ChatBackend, session'ların kalıcı yazma yollarının birleşimi.
// services.ChatService her iki yüzeyi de karşılar.
type ChatBackend interface {
	widget.ChatSender
	console.ChatOperator
}

// upgrader, HTTP bağlantısını WebSocket bağlantısına yükseltir.
//
// WebSocket, normal HTTP bağlantısı olarak başlar ve "upgrade" ile
// kalıcı, çift yönlü bir bağlantıya dönüşür.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CheckOrigin: Production'da domain kontrolü yapılmalı.
	// Şimdilik tüm origin'lere izin veriyoruz (development için).
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler, WebSocket bağlantı isteklerini işleyen HTTP handler'ı.
type Handler struct {
	hub            *Hub
	tokenValidator TokenValidator
	chat           ChatBackend
	st             *store.Store
	msgLimiter     *ratelimit.MessageRateLimiter
}

// NewHandler, yeni bir WebSocket handler oluşturur.
// msgLimiter: kullanıcı bazlı mesaj spam koruması. nil ise devre dışı kalır.
func NewHandler(hub *Hub, tokenValidator TokenValidator, chat ChatBackend, st *store.Store, msgLimiter *ratelimit.MessageRateLimiter) *Handler {
	return &Handler{
		hub:            hub,
		tokenValidator: tokenValidator,
		chat:           chat,
		st:             st,
		msgLimiter:     msgLimiter,
	}
}

// HandleConnection, HTTP bağlantısını WebSocket'e yükseltir, role göre
// session açar ve client'ı Hub'a kaydeder.
//
// Neden normal auth middleware kullanmıyoruz?
// WebSocket bağlantısında HTTP header göndermek zordur (tarayıcı sınırlaması).
// Bu yüzden token URL query parameter'ı olarak gönderilir:
//
//	ws://server/ws?token=JWT_TOKEN
//
// Flow:
// 1. Query'den token al ve doğrula
// 2. HTTP → WebSocket upgrade
// 3. Client oluştur, role göre widget/console session'ı aç
// 4. Hub'a kaydet, ready gönder
// 5. ReadPump ve WritePump goroutine'lerini başlat
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := h.tokenValidator.ValidateAccessToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed for user %s: %v", claims.UserID, err)
		return
	}

	client := &Client{
		hub:        h.hub,
		conn:       conn,
		userID:     claims.UserID,
		isOperator: claims.IsOperator,
		send:       make(chan []byte, sendBufferSize),
		done:       make(chan struct{}),
		msgLimiter: h.msgLimiter,
	}

	h.hub.register <- client

	// Rol, bağlantı ömrü boyunca sabittir. Ziyaretçi session'ı token'daki
	// kimlikle hemen oturum açar — konuşma çözümlemesi başlar. Konsol
	// session'ı kurulduğu anda dizin aboneliğini kurar.
	if claims.IsOperator {
		client.consoleSess = console.NewSession(h.chat, h.st, client.consoleCallbacks())
	} else {
		client.widgetSess = widget.NewSession(h.chat, h.st, client.widgetCallbacks())
		client.widgetSess.SignIn(widget.Identity{UserID: claims.UserID, Label: claims.Label})
	}

	client.sendEvent(Event{Op: OpReady, Data: ReadyData{
		UserID:     claims.UserID,
		Label:      claims.Label,
		IsOperator: claims.IsOperator,
	}})

	// WritePump ayrı goroutine'de, ReadPump mevcut goroutine'de çalışır.
	// ReadPump bağlantı kapanana kadar bloklar — aksi halde HTTP handler
	// hemen döner ve bağlantı kopar.
	go client.WritePump()
	client.ReadPump()
}
