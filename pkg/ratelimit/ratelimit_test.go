package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginRateLimiter(t *testing.T) {
	rl := NewLoginRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("1.2.3.4"), "attempt %d should pass", i+1)
	}
	assert.False(t, rl.Allow("1.2.3.4"), "fourth attempt must be rejected")

	// Başka IP etkilenmez.
	assert.True(t, rl.Allow("5.6.7.8"))

	// Retry-After pozitif ve pencereyi aşmayan bir değer döner.
	secs := rl.RetryAfterSeconds("1.2.3.4")
	assert.Greater(t, secs, 0)
	assert.LessOrEqual(t, secs, 60)

	// Başarılı giriş sayacı sıfırlar.
	rl.Reset("1.2.3.4")
	assert.True(t, rl.Allow("1.2.3.4"))
}

func TestMessageRateLimiter(t *testing.T) {
	rl := NewMessageRateLimiter(2, 50*time.Millisecond, 100*time.Millisecond)

	require.True(t, rl.Allow("u1"))
	require.True(t, rl.Allow("u1"))
	// Limit aşımı cooldown başlatır.
	require.False(t, rl.Allow("u1"))
	assert.Greater(t, rl.CooldownSeconds("u1"), 0)

	// Cooldown boyunca her şey reddedilir.
	assert.False(t, rl.Allow("u1"))

	// Cooldown bitince yeni pencere açılır.
	time.Sleep(120 * time.Millisecond)
	assert.True(t, rl.Allow("u1"))
	assert.Zero(t, rl.CooldownSeconds("u1"))
}

func TestMessageRateLimiterWindowReset(t *testing.T) {
	rl := NewMessageRateLimiter(2, 30*time.Millisecond, time.Second)

	require.True(t, rl.Allow("u1"))
	require.True(t, rl.Allow("u1"))

	// Pencere dolunca sayaç sıfırdan başlar — cooldown tetiklenmeden.
	time.Sleep(50 * time.Millisecond)
	assert.True(t, rl.Allow("u1"))
}

func TestExtractIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "direct connection",
			remoteAddr: "192.168.1.10:54321",
			want:       "192.168.1.10",
		},
		{
			name:       "x-forwarded-for single",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7"},
			want:       "203.0.113.7",
		},
		{
			name:       "x-forwarded-for chain takes first",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.2, 10.0.0.3"},
			want:       "203.0.113.7",
		},
		{
			name:       "x-real-ip fallback",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Real-IP": "198.51.100.4"},
			want:       "198.51.100.4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/api/auth/login", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ExtractIP(r))
		})
	}
}

func TestFormatRetryMessage(t *testing.T) {
	assert.Equal(t, "45 second(s)", FormatRetryMessage(45))
	assert.Equal(t, "2 minute(s)", FormatRetryMessage(120))
	assert.Equal(t, "1 minute(s)", FormatRetryMessage(90))
}
