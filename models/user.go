// Package models, uygulamanın domain modellerini tanımlar.
//
// Model, veritabanındaki bir tablonun Go karşılığıdır ve aynı zamanda
// API'den gelen/giden verilerin şeklini belirler. json tag'leri
// serialize/deserialize davranışını kontrol eder.
package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// User, sisteme bağlanan bir kimliği temsil eder.
//
// İki tür kullanıcı vardır:
//   - Ziyaretçi (son kullanıcı): widget'ı açan kişi. Şifresi yoktur,
//     session bootstrap ile opak bir kimlik ve iletişim etiketi alır.
//   - Operatör: destek konsoluna giren personel. Username + şifre ile girer.
type User struct {
	ID           string    `json:"id"`
	Label        string    `json:"label"`              // İletişim etiketi — operatör konsolunda görünen isim/e-posta
	Username     *string   `json:"username,omitempty"` // Sadece operatörlerde dolu
	PasswordHash string    `json:"-"`                  // API response'a asla dahil edilmez
	IsOperator   bool      `json:"is_operator"`
	CreatedAt    time.Time `json:"created_at"`
}

// StartSessionRequest, ziyaretçi session bootstrap isteği.
// Widget ilk açıldığında label ile gelir, karşılığında opak kimlik + token alır.
type StartSessionRequest struct {
	Label string `json:"label"`
}

// Validate, StartSessionRequest'in geçerli olup olmadığını kontrol eder.
// Label 1-64 karakter arası olmalı.
func (r *StartSessionRequest) Validate() error {
	r.Label = strings.TrimSpace(r.Label)
	n := utf8.RuneCountInString(r.Label)
	if n < 1 {
		return fmt.Errorf("label is required")
	}
	if n > 64 {
		return fmt.Errorf("label must be at most 64 characters")
	}
	return nil
}

// OperatorLoginRequest, operatör giriş isteği.
type OperatorLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate, OperatorLoginRequest'in geçerli olup olmadığını kontrol eder.
func (r *OperatorLoginRequest) Validate() error {
	r.Username = strings.TrimSpace(strings.ToLower(r.Username))
	if r.Username == "" {
		return fmt.Errorf("username is required")
	}
	if r.Password == "" {
		return fmt.Errorf("password is required")
	}
	return nil
}
