package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MessageSender, bir mesajın gönderen rolünü temsil eder.
type MessageSender string

const (
	// SenderUser: mesajı son kullanıcı yazdı.
	SenderUser MessageSender = "user"
	// SenderOperator: mesajı destek operatörü yazdı.
	SenderOperator MessageSender = "operator"
	// SenderSystem: mesaj sistem tarafından sentezlendi (karşılama, otomatik yanıt).
	SenderSystem MessageSender = "system"
)

// Message, bir konuşma içindeki tek bir mesajı temsil eder.
// DB'deki "messages" tablosunun Go karşılığı.
//
// CreatedAt sıralama anahtarıdır: bir konuşma içindeki mesajlar
// oluşturulma anına göre toplam sıralıdır. Zaman damgası client'tan
// alınmaz, repository INSERT öncesi server saatiyle atar.
type Message struct {
	ID             string        `json:"id"`
	ConversationID string        `json:"conversation_id"`
	Sender         MessageSender `json:"sender"`
	Body           string        `json:"body"`
	CreatedAt      time.Time     `json:"created_at"`
}

// SendMessageRequest, yeni mesaj gönderme isteği (widget ve konsol ortak).
type SendMessageRequest struct {
	Body string `json:"body"`
}

// Validate, SendMessageRequest'in geçerli olup olmadığını kontrol eder.
// İçerik trim sonrası 1-2000 karakter arası olmalı.
func (r *SendMessageRequest) Validate() error {
	r.Body = strings.TrimSpace(r.Body)
	n := utf8.RuneCountInString(r.Body)
	if n < 1 {
		return fmt.Errorf("message body is required")
	}
	if n > 2000 {
		return fmt.Errorf("message body must be at most 2000 characters")
	}
	return nil
}
