// Package jwt проверяет токены провайдера идентификации.
//
// Провайдер выпускает HS256-токены, где sub содержит непрозрачный
// идентификатор пользователя, а email его почту.
package jwt

import (
	"github.com/golang-jwt/jwt/v5"
)

// IdentityClaims данные пользователя из токена провайдера идентификации.
type IdentityClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// UserID возвращает идентификатор пользователя (claim sub).
func (c *IdentityClaims) UserID() string {
	return c.Subject
}
