package models

import (
	"time"

	"github.com/google/uuid"
)

// ConversationStatus, bir konuşmanın operatör tarafındaki dikkat bayrağıdır.
// Tek tek mesajların değil, konuşmanın özelliğidir.
type ConversationStatus string

const (
	// ConversationStatusNew: son kullanıcı yazdı, operatör henüz açmadı.
	ConversationStatusNew ConversationStatus = "new"
	// ConversationStatusRead: operatör konuşmayı açtı.
	ConversationStatusRead ConversationStatus = "read"
)

// conversationNamespace, deterministik konuşma ID türetimi için sabit UUID namespace.
//
// Konuşma ID'si kullanıcı ID'sinden türetilir (uuid.NewSHA1). Böylece
// "bir kullanıcının en fazla bir aktif konuşması olur" invariant'ı
// lookup-before-create yarışına değil, yapıya dayanır: iki sekme aynı anda
// ilk mesajı gönderse bile aynı ID'yi üretir ve upsert tek kayıtta birleşir.
var conversationNamespace = uuid.MustParse("b0a9c6de-31f4-4c55-9d28-7e64a10c8f02")

// ConversationIDFor, verilen kullanıcı için konuşma ID'sini türetir.
// Aynı kullanıcı için her zaman aynı ID döner.
func ConversationIDFor(userID string) string {
	return uuid.NewSHA1(conversationNamespace, []byte(userID)).String()
}

// Conversation, bir son kullanıcının operatör tarafıyla kalıcı destek
// konuşmasını temsil eder. DB'deki "conversations" tablosunun Go karşılığı.
//
// LastMessage ve LastMessageAt denormalize alanlardır — operatör konsolunun
// konuşma listesini mesaj tablosuna JOIN atmadan render edebilmesi için
// her gönderimde güncellenir. Operatör ve son kullanıcı yazmaları
// last-write-wins ile yakınsar (katı serializability hedeflenmez).
type Conversation struct {
	ID            string             `json:"id"`
	UserID        string             `json:"user_id"`
	UserLabel     string             `json:"user_label"`
	LastMessage   string             `json:"last_message"`
	LastMessageAt time.Time          `json:"last_message_at"`
	Status        ConversationStatus `json:"status"`
	CreatedAt     time.Time          `json:"created_at"`
}
