package mailer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// TokenSigner формирует и проверяет токены отписки от рассылок.
// Схема симметричная: token = hex(sha256(user_id + secret)).
type TokenSigner struct {
	secret string
}

// NewTokenSigner создает подписчик токенов с указанным серверным секретом.
func NewTokenSigner(secret string) *TokenSigner {
	return &TokenSigner{secret: secret}
}

// Token возвращает токен отписки для пользователя.
func (s *TokenSigner) Token(userID int64) string {
	sum := sha256.Sum256([]byte(strconv.FormatInt(userID, 10) + s.secret))
	return hex.EncodeToString(sum[:])
}

// Verify проверяет токен отписки. Сравнение за константное время.
func (s *TokenSigner) Verify(userID int64, token string) bool {
	return hmac.Equal([]byte(s.Token(userID)), []byte(token))
}
