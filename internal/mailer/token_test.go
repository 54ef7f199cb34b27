package mailer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/mailer"
)

func TestTokenSigner_Token(t *testing.T) {
	signer := mailer.NewTokenSigner("secret")

	t.Run("Токен детерминирован", func(t *testing.T) {
		assert.Equal(t, signer.Token(1), signer.Token(1))
	})

	t.Run("Разные пользователи получают разные токены", func(t *testing.T) {
		assert.NotEqual(t, signer.Token(1), signer.Token(2))
	})

	t.Run("Разные секреты дают разные токены", func(t *testing.T) {
		other := mailer.NewTokenSigner("other-secret")
		assert.NotEqual(t, signer.Token(1), other.Token(1))
	})

	t.Run("Токен в hex-формате", func(t *testing.T) {
		token := signer.Token(1)
		require.Len(t, token, 64)
	})
}

func TestTokenSigner_Verify(t *testing.T) {
	signer := mailer.NewTokenSigner("secret")

	t.Run("Свой токен проходит проверку", func(t *testing.T) {
		assert.True(t, signer.Verify(1, signer.Token(1)))
	})

	t.Run("Чужой токен не проходит", func(t *testing.T) {
		assert.False(t, signer.Verify(1, signer.Token(2)))
	})

	t.Run("Произвольная строка не проходит", func(t *testing.T) {
		assert.False(t, signer.Verify(1, "deadbeef"))
	})

	t.Run("Пустой токен не проходит", func(t *testing.T) {
		assert.False(t, signer.Verify(1, ""))
	})
}

func TestDefaultDripTemplates(t *testing.T) {
	templates := mailer.DefaultDripTemplates()
	require.NotEmpty(t, templates)

	seen := make(map[int]bool)
	for _, tpl := range templates {
		assert.False(t, seen[tpl.Day], "День %d встречается дважды", tpl.Day)
		seen[tpl.Day] = true

		assert.NotEmpty(t, tpl.Subject)
		html := tpl.HTML("testuser", "https://example.app/unsubscribe?uid=1&token=abc")
		assert.Contains(t, html, "testuser")
		// В каждом письме кампании есть ссылка отписки
		assert.Contains(t, html, "https://example.app/unsubscribe?uid=1&token=abc")
	}
}
