package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 10 * time.Millisecond
)

// newTestClient, WebSocket bağlantısı olmadan bir client kurar.
// sendEvent conn'a dokunmaz — buffer ve kapanış davranışı pump'lar
// olmadan test edilebilir.
func newTestClient(hub *Hub, userID string) *Client {
	return &Client{
		hub:    hub,
		userID: userID,
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
	}
}

func isDropped(c *Client) bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func lastSeq(t *testing.T, c *Client) int64 {
	t.Helper()

	var seq int64
	for {
		select {
		case raw := <-c.send:
			var event Event
			require.NoError(t, json.Unmarshal(raw, &event))
			seq = event.Seq
		default:
			return seq
		}
	}
}

func TestSendEventSurvivesBufferOverflow(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Shutdown()

	client := newTestClient(hub, "u-slow")
	hub.register <- client
	require.Eventually(t, func() bool {
		return len(hub.OnlineUserIDs()) == 1
	}, waitFor, tick)

	// WritePump koşmuyor — buffer'ı ağzına kadar doldur.
	for i := 0; i < sendBufferSize; i++ {
		client.sendEvent(Event{Op: OpNotice, Data: NoticeData{Text: "hello"}})
	}
	assert.False(t, isDropped(client))

	// Taşan event bağlantıyı düşürür ama panic etmez.
	require.NotPanics(t, func() {
		client.sendEvent(Event{Op: OpNotice, Data: NoticeData{Text: "overflow"}})
	})
	assert.True(t, isDropped(client))
	assert.Len(t, client.send, sendBufferSize)

	// Geç kalan session callback'leri de güvenle düşer.
	for i := 0; i < 5; i++ {
		require.NotPanics(t, func() {
			client.sendEvent(Event{Op: OpUnreadUpdate, Data: UnreadData{Count: i}})
		})
	}
	assert.Len(t, client.send, sendBufferSize)
}

func TestShutdownLeavesLateSendsSafe(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	a := newTestClient(hub, "u-a")
	b := newTestClient(hub, "u-b")
	hub.register <- a
	hub.register <- b
	require.Eventually(t, func() bool {
		return len(hub.OnlineUserIDs()) == 2
	}, waitFor, tick)

	hub.Shutdown()
	assert.Empty(t, hub.OnlineUserIDs())
	assert.True(t, isDropped(a))
	assert.True(t, isDropped(b))

	// Shutdown sonrası akan session event'leri panic etmeden düşer.
	require.NotPanics(t, func() {
		a.sendEvent(Event{Op: OpNotice, Data: NoticeData{Text: "late"}})
		b.sendEvent(Event{Op: OpSelectionCleared})
	})
	assert.Empty(t, a.send)
	assert.Empty(t, b.send)
}

func TestSeqIsPerConnection(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Shutdown()

	a := newTestClient(hub, "u-a")
	b := newTestClient(hub, "u-b")
	hub.register <- a
	hub.register <- b
	require.Eventually(t, func() bool {
		return len(hub.OnlineUserIDs()) == 2
	}, waitFor, tick)

	// a'ya üç, b'ye bir event — sayaçlar birbirini etkilememeli.
	for i := 0; i < 3; i++ {
		a.sendEvent(Event{Op: OpHeartbeatAck})
	}
	b.sendEvent(Event{Op: OpHeartbeatAck})

	assert.Equal(t, int64(3), lastSeq(t, a))
	assert.Equal(t, int64(1), lastSeq(t, b))
}
