// Package widget, son kullanıcı chat penceresinin sunucu taraflı
// çekirdeğini sağlar.
//
// Her bağlantı için bir Session açılır. Session'ın TÜM durumu tek bir
// event-loop goroutine'ine aittir: dış dünyadan gelen operasyonlar
// (görünürlük, gönderim, kimlik değişimi) ve store aboneliklerinden
// gelen teslimler closure olarak loop'a post edilir — mutex yoktur,
// yarış yoktur. Sonuçlar Callbacks üzerinden dışarı duyurulur.
//
// Üç canlı abonelik taşır:
//   - locator: kullanıcının konuşma-varlık gerçeği (kimlik başına bir konuşma)
//   - stream: görünürken mesaj geçmişinin canlı listesi
//   - notifier: gizliyken operatör mesajlarının okunmamış sayacı
package widget

import (
	"time"

	"github.com/akinalp/destek/models"
	"github.com/google/uuid"
)

// Widget'ın bellekte sentezlediği ve kullanıcıya gösterdiği sabit metinler.
// Bunlar KALICI kayıt değildir; yeniden bağlanınca kaybolmaları normaldir.
const (
	// GreetingBody, henüz konuşması olmayan ziyaretçiye gösterilir.
	GreetingBody = "Hi! How can we help you today?"
	// WelcomeBackBody, konuşması var ama içi boş olan kullanıcıya gösterilir.
	WelcomeBackBody = "Welcome back! Ask us anything."

	// pendingAutoReplyBody, ilk temas gönderiminde iyimser olarak gösterilen
	// otomatik yanıt metni. Kalıcı yazım tamamlanınca stream'den gelen gerçek
	// kayıtla değişir — metin, servisin yazdığı otomatik yanıtla birebir aynıdır.
	pendingAutoReplyBody = "Thanks for reaching out! An agent will assist you shortly."

	// deliveryFailedNotice, kalıcı yazımı başarısız olan gönderim sonrası
	// kullanıcıya duyurulan hata metni.
	deliveryFailedNotice = "Message could not be delivered. Please try again."

	// newReplyNotice, widget gizliyken gelen her operatör yanıtında
	// duyurulan tek seferlik bildirim metni.
	newReplyNotice = "New reply from support."
)

// Identity, widget oturumunun kimliğidir. UserID konuşma sahipliğini,
// Label konsolda görünen adı belirler.
type Identity struct {
	UserID string
	Label  string
}

// PendingMessage, henüz store tarafından onaylanmamış yerel bir girdidir:
// iyimser gönderimler ve sentezlenmiş karşılama mesajları.
// LocalID geçicidir ve kalıcı mesaj ID'leriyle asla çakışmaz.
type PendingMessage struct {
	LocalID   string               `json:"local_id"`
	Sender    models.MessageSender `json:"sender"`
	Body      string               `json:"body"`
	CreatedAt time.Time            `json:"created_at"`
}

// newPendingMessage, verilen gönderen ve gövdeyle yerel girdi oluşturur.
func newPendingMessage(sender models.MessageSender, body string) PendingMessage {
	return PendingMessage{
		LocalID:   uuid.NewString(),
		Sender:    sender,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
}

// Entry, görüntülenen listedeki tek bir girdidir — etiketli varyant:
// alanlardan TAM OLARAK biri nil değildir. Pending yerel/iyimser girdiyi,
// Confirmed store'dan gelen kalıcı kaydı taşır. İki durum aynı struct'ta
// alan doldurarak karıştırılMAZ; tüketici hangi varyantta olduğunu
// IsPending ile ayırt eder.
type Entry struct {
	Pending   *PendingMessage `json:"pending,omitempty"`
	Confirmed *models.Message `json:"confirmed,omitempty"`
}

// IsPending, girdinin henüz onaylanmamış yerel varyant olup olmadığını döner.
func (e Entry) IsPending() bool {
	return e.Pending != nil
}

// Key, girdinin render anahtarıdır: kalıcı ID ya da geçici LocalID.
func (e Entry) Key() string {
	if e.Pending != nil {
		return e.Pending.LocalID
	}
	return e.Confirmed.ID
}

// Sender, girdinin gönderen rolünü döner.
func (e Entry) Sender() models.MessageSender {
	if e.Pending != nil {
		return e.Pending.Sender
	}
	return e.Confirmed.Sender
}

// Body, girdinin metnini döner.
func (e Entry) Body() string {
	if e.Pending != nil {
		return e.Pending.Body
	}
	return e.Confirmed.Body
}

// Callbacks, session'ın durum değişimlerini dışarı duyurma yüzeyidir.
// Tüm callback'ler session'ın event-loop goroutine'inden çağrılır —
// sıralıdırlar ve bloklamamaları beklenir. nil callback atlanır.
type Callbacks struct {
	// OnMessages, görüntülenen listenin her değişiminde tam listeyle çağrılır.
	OnMessages func(entries []Entry)
	// OnUnread, okunmamış sayacının her değişiminde çağrılır.
	OnUnread func(count int)
	// OnNotice, kullanıcıya gösterilecek bilgi/hata metniyle çağrılır.
	OnNotice func(text string)
}
