package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingSubject возвращается для токена без claim sub.
	ErrMissingSubject = errors.New("token has no subject")
	// ErrEmptySecret секрет подписи не задан: такой Maker не принимает и не выпускает токены.
	ErrEmptySecret = errors.New("jwt secret is empty")
)

// Verifier описывает проверку токенов.
type Verifier interface {
	ParseToken(tokenStr string) (*IdentityClaims, error)
}

// Maker проверяет и выпускает HS256-токены общим секретом.
// Выпуск используется в тестах и локальной разработке.
type Maker struct {
	secretKey string
	issuer    string
	tokenTTL  time.Duration
}

// NewMaker создаёт Maker. Пустой issuer отключает проверку claim iss.
func NewMaker(secretKey, issuer string, ttl time.Duration) *Maker {
	return &Maker{
		secretKey: secretKey,
		issuer:    issuer,
		tokenTTL:  ttl,
	}
}

// GenerateToken выпускает токен для userID с временем жизни tokenTTL.
func (m *Maker) GenerateToken(userID, email string) (string, error) {
	if m.secretKey == "" {
		return "", ErrEmptySecret
	}
	now := time.Now()
	claims := IdentityClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.secretKey))
}

// ParseToken проверяет подпись, срок действия и издателя токена.
func (m *Maker) ParseToken(tokenStr string) (*IdentityClaims, error) {
	const op = "jwt.ParseToken"
	if m.secretKey == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptySecret)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenStr, &IdentityClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(m.secretKey), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	claims, ok := token.Claims.(*IdentityClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: invalid token", op)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingSubject)
	}
	return claims, nil
}
