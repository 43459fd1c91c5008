// Package ws, WebSocket bağlantı yönetimi ve gerçek zamanlı event dağıtımını sağlar.
//
// Mimari:
// - Hub: Tüm bağlantıları yöneten merkezi yapı (Observer pattern)
// - Client: Her WebSocket bağlantısını temsil eder ve TAM OLARAK bir
//   chat session'ına sahiptir: ziyaretçiler için widget.Session,
//   operatörler için console.Session
// - Event: Client-server arası iletilen mesaj formatı
//
// Event akışı:
// 1. Client operasyon gönderir (send, select, visibility...) → session'a iletilir
// 2. Session kalıcı yazımı koşar; store commit sonrası değişim yayınlar
// 3. Session'ın canlı abonelikleri tetiklenir, callback'ler çağrılır
// 4. Callback'ler sync event'lerini client'ın send channel'ına yazar
// 5. WritePump event'i WebSocket'e yazar
package ws

import (
	"github.com/akinalp/destek/models"
	"github.com/akinalp/destek/widget"
)

// Event, WebSocket üzerinden iletilen bir mesajı temsil eder.
//
// Op (operation): Event türü — "messages_sync", "heartbeat" vb.
// Data: Event'e özgü payload.
// Seq (sequence number): Her outbound event'e verilen artan sayı.
//   Sayaç bağlantı başınadır — her client kendi kesintisiz 1, 2, 3...
//   dizisini görür ve eksik event'i seq atlamasından tespit eder.
type Event struct {
	Op   string `json:"op"`
	Data any    `json:"d,omitempty"`
	Seq  int64  `json:"seq,omitempty"`
}

// Client → Server operasyonları
const (
	OpHeartbeat = "heartbeat" // Client her 30sn'de gönderir — "hâlâ bağlıyım" sinyali

	// Widget operasyonları
	OpVisibility = "visibility" // Widget açıldı/kapandı
	OpSend       = "send"       // Kullanıcı mesaj gönderdi

	// Konsol operasyonları
	OpSelect = "select" // Operatör konuşma seçti (boş ID = seçimi bırak)
	OpReply  = "reply"  // Operatör yanıt gönderdi
	OpErase  = "erase"  // Operatör seçili konuşmayı siliyor
)

// Server → Client operasyonları
const (
	OpReady        = "ready"         // Bağlantı kurulduğunda ilk gönderilen — kimlik bilgisi
	OpHeartbeatAck = "heartbeat_ack" // Heartbeat'e yanıt — "seni duydum"

	OpMessagesSync     = "messages_sync"     // Görüntülenen mesaj listesinin tamamı
	OpUnreadUpdate     = "unread_update"     // Widget'ın okunmamış sayacı değişti
	OpNotice           = "notice"            // Kullanıcıya/operatöre gösterilecek metin
	OpDirectorySync    = "directory_sync"    // Konuşma dizininin tamamı (konsol)
	OpSelectionCleared = "selection_cleared" // Konsolun seçimi kaldırıldı
)

// ReadyData, bağlantı kurulduğunda client'a gönderilen ilk event'in payload'ı.
type ReadyData struct {
	UserID     string `json:"user_id"`
	Label      string `json:"label"`
	IsOperator bool   `json:"is_operator"`
}

// VisibilityData, visibility event'inin payload'ı (Client → Server).
type VisibilityData struct {
	Visible bool `json:"visible"`
}

// SendData, send ve reply event'lerinin payload'ı (Client → Server).
type SendData struct {
	Body string `json:"body"`
}

// SelectData, select event'inin payload'ı (Client → Server).
type SelectData struct {
	ConversationID string `json:"conversation_id"`
}

// WidgetMessagesData, widget'a gönderilen messages_sync payload'ı.
// Girdiler etiketli varyanttır: pending ya da confirmed dolu gelir.
type WidgetMessagesData struct {
	Entries []widget.Entry `json:"entries"`
}

// ConsoleMessagesData, konsola gönderilen messages_sync payload'ı.
type ConsoleMessagesData struct {
	Messages []models.Message `json:"messages"`
}

// UnreadData, unread_update event'inin payload'ı.
type UnreadData struct {
	Count int `json:"count"`
}

// NoticeData, notice event'inin payload'ı.
type NoticeData struct {
	Text string `json:"text"`
}

// DirectoryData, directory_sync event'inin payload'ı.
type DirectoryData struct {
	Conversations []models.Conversation `json:"conversations"`
}
