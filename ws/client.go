package ws

import (
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/akinalp/destek/console"
	"github.com/akinalp/destek/models"
	"github.com/akinalp/destek/pkg/ratelimit"
	"github.com/akinalp/destek/widget"
)

// WebSocket bağlantı sabitleri
const (
	// writeWait: Bir mesajı yazmak için maksimum bekleme süresi.
	writeWait = 10 * time.Second

	// pongWait: Client'ın heartbeat göndermesi için beklenen maksimum süre.
	// 3 heartbeat kaçırma = 30s × 3 = 90s.
	pongWait = 90 * time.Second

	// maxMessageSize: Client'ın gönderebileceği maksimum mesaj boyutu (byte).
	maxMessageSize = 4096

	// sendBufferSize: Her client'ın send channel'ının buffer boyutu.
	// Buffer doluysa (client yavaş) client disconnect edilir.
	sendBufferSize = 256
)

// Client, tek bir WebSocket bağlantısını temsil eder.
//
// Her bağlantı için iki goroutine çalışır:
// - ReadPump: Client'dan gelen operasyonları okur → session'a iletir
// - WritePump: send channel'dan gelen event'leri client'a yazar
//
// Neden iki goroutine?
// gorilla/websocket aynı anda sadece bir okuma ve bir yazma işlemi destekler.
// İki ayrı goroutine kullanarak okuma ve yazma birbirini bloklamaz.
//
// widgetSess / consoleSess alanlarından TAM OLARAK biri doludur —
// bağlantının rolü token'daki is_operator claim'iyle belirlenir ve
// bağlantı ömrü boyunca değişmez.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	userID     string
	isOperator bool

	// send, client'a gönderilecek mesajların buffer'landığı channel.
	// Session callback'leri buraya yazar, WritePump okur.
	//
	// send HİÇBİR ZAMAN kapatılmaz. Session abonelikleri bağlantı
	// temizliğinden sonra da kısa süre callback üretebilir; kapalı bir
	// channel'a yazım panic olurdu. Kapanış sinyali done üzerinden verilir.
	send chan []byte

	// done, bağlantının kapandığını duyurur. drop() ile bir kez kapanır;
	// sendEvent ve WritePump bunu dinleyerek geç kalan event'leri düşürür.
	done      chan struct{}
	closeOnce sync.Once

	mu sync.Mutex // conn.WriteMessage çağrılarını korur

	// seq: Bu bağlantıya gönderilen event'lerin artan sayacı.
	// Bağlantı başınadır — her client kendi 1, 2, 3... dizisini görür.
	seq atomic.Int64

	// msgLimiter: kullanıcı bazlı mesaj spam koruması. nil ise devre dışı.
	msgLimiter *ratelimit.MessageRateLimiter

	widgetSess  *widget.Session
	consoleSess *console.Session
}

// ReadPump, WebSocket bağlantısından gelen operasyonları okur ve işler.
// Bağlantı kapanana kadar döngüde kalır; kapanınca session'ı ve Hub
// kaydını temizler — kopan bağlantının abonelikleri sızmaz.
func (c *Client) ReadPump() {
	defer func() {
		c.drop()
		if c.widgetSess != nil {
			c.widgetSess.Close()
		}
		if c.consoleSess != nil {
			c.consoleSess.Close()
		}
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)

	// SetReadDeadline: Bu süre içinde mesaj gelmezse Read hata verir.
	// Her heartbeat geldiğinde deadline yenilenir.
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Printf("[ws] failed to set read deadline for user %s: %v", c.userID, err)
		return
	}

	for {
		_, rawMessage, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] unexpected close for user %s: %v", c.userID, err)
			}
			return
		}

		var event Event
		if err := json.Unmarshal(rawMessage, &event); err != nil {
			log.Printf("[ws] invalid message from user %s: %v", c.userID, err)
			continue
		}

		c.handleEvent(event)
	}
}

// handleEvent, client'dan gelen event'leri türüne göre işler.
// Rolüne uymayan operasyon (ör. ziyaretçiden "erase") sessizce düşer.
func (c *Client) handleEvent(event Event) {
	switch event.Op {
	case OpHeartbeat:
		// Heartbeat geldi — deadline'ı yenile ve ack gönder.
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			log.Printf("[ws] failed to set read deadline for user %s: %v", c.userID, err)
			return
		}
		c.sendEvent(Event{Op: OpHeartbeatAck})

	case OpVisibility:
		c.handleVisibility(event)

	case OpSend:
		c.handleSend(event)

	case OpSelect:
		c.handleSelect(event)

	case OpReply:
		c.handleReply(event)

	case OpErase:
		if c.consoleSess != nil {
			c.consoleSess.Erase()
		}

	default:
		log.Printf("[ws] unknown op from user %s: %s", c.userID, event.Op)
	}
}

// decodeData, event.Data'yı hedef struct'a parse eder.
//
// json.Marshal + json.Unmarshal neden?
// event.Data tipi `any` (interface{}), doğrudan cast edemeyiz.
// JSON'a çevirip tekrar parse etmek en güvenli yöntem.
func decodeData(data any, target any) bool {
	raw, err := json.Marshal(data)
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, target) == nil
}

// handleVisibility, widget'ın açılma/kapanma geçişini session'a iletir.
func (c *Client) handleVisibility(event Event) {
	if c.widgetSess == nil {
		return
	}
	var data VisibilityData
	if !decodeData(event.Data, &data) {
		return
	}
	c.widgetSess.SetVisible(data.Visible)
}

// allowMessage, kullanıcı bazlı spam kontrolü yapar; limit aşıldıysa
// client'a notice gönderir ve false döner.
func (c *Client) allowMessage() bool {
	if c.msgLimiter == nil || c.msgLimiter.Allow(c.userID) {
		return true
	}
	c.sendEvent(Event{Op: OpNotice, Data: NoticeData{
		Text: "You are sending messages too quickly. Please wait a moment.",
	}})
	return false
}

// handleSend, kullanıcı gönderimini widget session'ına iletir.
// Gövde doğrulaması session'dadır — boş gövde orada sessizce düşer.
func (c *Client) handleSend(event Event) {
	if c.widgetSess == nil {
		return
	}
	var data SendData
	if !decodeData(event.Data, &data) {
		return
	}
	if !c.allowMessage() {
		return
	}
	c.widgetSess.Send(data.Body)
}

// handleSelect, konuşma seçimini konsol session'ına iletir.
func (c *Client) handleSelect(event Event) {
	if c.consoleSess == nil {
		return
	}
	var data SelectData
	if !decodeData(event.Data, &data) {
		return
	}
	c.consoleSess.Select(data.ConversationID)
}

// handleReply, operatör yanıtını konsol session'ına iletir.
func (c *Client) handleReply(event Event) {
	if c.consoleSess == nil {
		return
	}
	var data SendData
	if !decodeData(event.Data, &data) {
		return
	}
	if !c.allowMessage() {
		return
	}
	c.consoleSess.Reply(data.Body)
}

// drop, bağlantıyı kapanmış olarak işaretler. İdempotenttir — hem
// pump'lar hem buffer taşması hem Hub.Shutdown güvenle çağırabilir.
// Asıl teardown'ı pump'lar yapar: WritePump done'u görünce conn'u
// kapatır, ReadPump hata alıp session'ı ve Hub kaydını temizler.
func (c *Client) drop() {
	c.closeOnce.Do(func() { close(c.done) })
}

// sendEvent, client'a tek bir event gönderir ve seq numarasını atar.
// Kapanmış bir bağlantıda sessizce düşer — session callback'leri
// bağlantıdan daha uzun yaşayabilir, geç gelen event panic olmamalı.
func (c *Client) sendEvent(event Event) {
	select {
	case <-c.done:
		return
	default:
	}

	event.Seq = c.seq.Add(1)

	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[ws] failed to marshal event for user %s: %v", c.userID, err)
		return
	}

	select {
	case c.send <- data:
		// Başarıyla buffer'a eklendi
	case <-c.done:
		// Bağlantı bu arada kapandı — event düşer
	default:
		// Buffer dolu — client muhtemelen donmuş, bağlantıyı düşür
		log.Printf("[ws] send buffer full for user %s, dropping connection", c.userID)
		c.drop()
	}
}

// widgetCallbacks, widget session'ının duyurularını outbound event'lere çevirir.
// Callback'ler session'ın loop goroutine'inden gelir; sendEvent bloklamaz.
func (c *Client) widgetCallbacks() widget.Callbacks {
	return widget.Callbacks{
		OnMessages: func(entries []widget.Entry) {
			c.sendEvent(Event{Op: OpMessagesSync, Data: WidgetMessagesData{Entries: entries}})
		},
		OnUnread: func(count int) {
			c.sendEvent(Event{Op: OpUnreadUpdate, Data: UnreadData{Count: count}})
		},
		OnNotice: func(text string) {
			c.sendEvent(Event{Op: OpNotice, Data: NoticeData{Text: text}})
		},
	}
}

// consoleCallbacks, konsol session'ının duyurularını outbound event'lere çevirir.
func (c *Client) consoleCallbacks() console.Callbacks {
	return console.Callbacks{
		OnDirectory: func(convs []models.Conversation) {
			c.sendEvent(Event{Op: OpDirectorySync, Data: DirectoryData{Conversations: convs}})
		},
		OnMessages: func(msgs []models.Message) {
			c.sendEvent(Event{Op: OpMessagesSync, Data: ConsoleMessagesData{Messages: msgs}})
		},
		OnSelectionCleared: func() {
			c.sendEvent(Event{Op: OpSelectionCleared})
		},
		OnNotice: func(text string) {
			c.sendEvent(Event{Op: OpNotice, Data: NoticeData{Text: text}})
		},
	}
}

// WritePump, send channel'dan gelen mesajları WebSocket bağlantısına yazar.
// done sinyalini görünce close frame yazıp çıkar; conn.Close() ReadPump'ı
// uyandırır ve temizlik oradan devam eder.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for {
		select {
		case message := <-c.send:
			if err := c.writeMessage(websocket.TextMessage, message); err != nil {
				c.drop()
				return
			}
		case <-c.done:
			_ = c.writeMessage(websocket.CloseMessage, nil)
			return
		}
	}
}

// writeMessage, WebSocket'e mesaj yazar. gorilla/websocket conn'a aynı
// anda birden fazla yazma yasaktır — mutex ile korunur.
func (c *Client) writeMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}
