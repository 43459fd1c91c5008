package models

import "github.com/golang-jwt/jwt/v5"

// TokenClaims, access token içinde taşınan JWT claim'leri.
//
// Chat çekirdeği kimlik sağlayıcıdan yalnızca iki şey bekler:
// kararlı opak bir kimlik (UserID) ve iletişim etiketi (Label).
// IsOperator, konsol endpoint'lerinin yetki kontrolü için taşınır.
type TokenClaims struct {
	UserID     string `json:"user_id"`
	Label      string `json:"label"`
	IsOperator bool   `json:"is_operator"`
	jwt.RegisteredClaims
}
