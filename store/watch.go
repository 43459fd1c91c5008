package store

import "sync"

// Watch, tek bir canlı aboneliğin sahiplik nesnesidir.
//
// Her abonelik tam olarak bir teardown handle'a sahiptir: Close().
// Kimlik değişimi, görünürlük değişimi ve oturum kapanışında çağrılır.
// Close idempotenttir; kapanan watch yeni teslimat başlatmaz ve
// broker aboneliği kaldırıldığı için kaynak sızıntısı olmaz.
//
// Teslimat modeli: her watch'un kendi dispatch goroutine'i vardır —
// handler çağrıları watch başına serileştirilir, bir konuşma içindeki
// teslimat sırası created_at sırasıyla eşleşir.
//
// wake kanalı 1 buffer'lıdır: art arda gelen değişim event'leri tek bir
// yeniden sorgulamada birleşir (coalescing). Yayıncı hiçbir zaman bloklanmaz.
type Watch struct {
	once sync.Once
	done chan struct{}
	wake chan struct{}

	unsub func()
}

// newWatch, broker aboneliği henüz kurulmamış bir Watch oluşturur.
// Abonelik callback'i Watch'u yakalayabilsin diye unsub sonradan atanır —
// atama, Watch çağırana dönmeden önce tamamlanır.
func newWatch() *Watch {
	return &Watch{
		done: make(chan struct{}),
		wake: make(chan struct{}, 1),
	}
}

// poke, dispatch goroutine'ini uyandırır. Non-blocking:
// buffer doluysa zaten bekleyen bir uyandırma vardır, event birleşir.
func (w *Watch) poke() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// closed, watch'un kapatılıp kapatılmadığını bloklamadan kontrol eder.
func (w *Watch) closed() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

// Close, aboneliği sonlandırır. Birden fazla çağrı güvenlidir.
func (w *Watch) Close() {
	w.once.Do(func() {
		w.unsub()
		close(w.done)
	})
}
