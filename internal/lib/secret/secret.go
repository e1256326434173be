// Package secret содержит проверки секретов: bcrypt-хеши токенов операторов
// и HMAC-SHA256 подписи платёжных провайдеров. Все сравнения выполняются
// за постоянное время.
package secret

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashToken возвращает bcrypt-хеш токена для хранения в конфигурации.
func HashToken(token string) (string, error) {
	const op = "secret.HashToken"
	hashed, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashed), nil
}

// CompareToken сравнивает bcrypt-хеш с предъявленным токеном.
// Возвращает nil при совпадении.
func CompareToken(hash, token string) error {
	const op = "secret.CompareToken"
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SignHex возвращает HMAC-SHA256 от payload в шестнадцатеричном виде.
func SignHex(key string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHex проверяет шестнадцатеричную подпись HMAC-SHA256.
// Пустой ключ или пустая подпись никогда не проходят проверку.
func VerifyHex(key string, payload []byte, signature string) bool {
	if key == "" || signature == "" {
		return false
	}
	expected := SignHex(key, payload)
	return hmac.Equal([]byte(expected), []byte(signature))
}
