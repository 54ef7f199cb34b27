// Package mailer отправляет транзакционные письма через Resend.
// Отправка везде fire-and-forget: ошибка доставки логируется,
// но не прерывает вызвавшую операцию.
package mailer

import (
	"fmt"
	"log"

	"github.com/resend/resend-go/v2"
)

// Mailer определяет интерфейс почтового шлюза.
type Mailer interface {
	SendInvitation(toEmail, inviterName, vaultName string) error
	SendStreakReminder(toEmail string, userID int64, vaultName string) error
	SendDrip(toEmail string, userID int64, username string, day int) error
	DripDays() []int // Дни drip-кампании, на которые настроены письма
}

// Config содержит параметры почтового шлюза.
type Config struct {
	APIKey  string // API-ключ Resend
	From    string // Адрес отправителя, например "Копилка <hello@example.app>"
	BaseURL string // Базовый URL приложения для ссылок в письмах
	// Письма drip-кампании; при nil используется DefaultDripTemplates()
	DripTemplates []DripTemplate
}

// ResendMailer реализует Mailer поверх Resend.
type ResendMailer struct {
	client  *resend.Client
	from    string
	baseURL string
	drip    map[int]DripTemplate
	tokens  *TokenSigner
}

// Проверка соответствия интерфейсу.
var _ Mailer = (*ResendMailer)(nil)

// NewResendMailer создает почтовый шлюз Resend.
func NewResendMailer(cfg Config, tokens *TokenSigner) *ResendMailer {
	templates := cfg.DripTemplates
	if templates == nil {
		templates = DefaultDripTemplates()
	}
	drip := make(map[int]DripTemplate, len(templates))
	for _, t := range templates {
		drip[t.Day] = t
	}

	return &ResendMailer{
		client:  resend.NewClient(cfg.APIKey),
		from:    cfg.From,
		baseURL: cfg.BaseURL,
		drip:    drip,
		tokens:  tokens,
	}
}

// DripDays возвращает дни, на которые настроены письма кампании.
func (m *ResendMailer) DripDays() []int {
	days := make([]int, 0, len(m.drip))
	for day := range m.drip {
		days = append(days, day)
	}
	return days
}

// SendInvitation отправляет письмо-приглашение в копилку.
func (m *ResendMailer) SendInvitation(toEmail, inviterName, vaultName string) error {
	html := fmt.Sprintf(`<html><body>
<h2>Вас пригласили в копилку</h2>
<p>%s приглашает вас копить вместе на цель «%s».</p>
<p><a href="%s/invitations">Принять приглашение</a></p>
</body></html>`, inviterName, vaultName, m.baseURL)

	return m.send(toEmail, fmt.Sprintf("%s приглашает вас в копилку", inviterName), html)
}

// SendStreakReminder отправляет напоминание о просроченной серии.
func (m *ResendMailer) SendStreakReminder(toEmail string, userID int64, vaultName string) error {
	html := fmt.Sprintf(`<html><body>
<h2>Серия под угрозой</h2>
<p>В копилке «%s» давно не было отметок. Отметьте плитку сегодня, чтобы не потерять серию.</p>
%s</body></html>`, vaultName, unsubscribeFooter(m.unsubscribeURL(userID)))

	return m.send(toEmail, fmt.Sprintf("Не теряйте серию в «%s»", vaultName), html)
}

// SendDrip отправляет письмо drip-кампании для указанного дня.
// Для дня без шаблона ничего не отправляется.
func (m *ResendMailer) SendDrip(toEmail string, userID int64, username string, day int) error {
	tpl, ok := m.drip[day]
	if !ok {
		return nil
	}

	return m.send(toEmail, tpl.Subject, tpl.HTML(username, m.unsubscribeURL(userID)))
}

// send выполняет собственно отправку через Resend.
func (m *ResendMailer) send(toEmail, subject, html string) error {
	_, err := m.client.Emails.Send(&resend.SendEmailRequest{
		From:    m.from,
		To:      []string{toEmail},
		Subject: subject,
		Html:    html,
	})
	if err != nil {
		log.Printf("[Mailer] Ошибка отправки письма '%s' на %s: %v", subject, toEmail, err)
		return fmt.Errorf("ошибка отправки письма: %w", err)
	}

	log.Printf("[Mailer] Письмо '%s' отправлено на %s", subject, toEmail)
	return nil
}

// unsubscribeURL формирует ссылку отписки с подписанным токеном.
func (m *ResendMailer) unsubscribeURL(userID int64) string {
	return fmt.Sprintf("%s/unsubscribe?uid=%d&token=%s", m.baseURL, userID, m.tokens.Token(userID))
}
