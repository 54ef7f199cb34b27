package mailer

import "fmt"

// DripTemplate описывает одно письмо drip-кампании: день после
// регистрации, тема и генератор HTML-тела.
type DripTemplate struct {
	Day     int
	Subject string
	HTML    func(username, unsubscribeURL string) string
}

// DefaultDripTemplates возвращает стандартный набор писем кампании.
// Реестр передается в Mailer явно через конфигурацию, а не хранится
// в пакетной переменной.
func DefaultDripTemplates() []DripTemplate {
	return []DripTemplate{
		{
			Day:     1,
			Subject: "Первый шаг к цели",
			HTML: func(username, unsubscribeURL string) string {
				return fmt.Sprintf(`<html><body>
<h2>Привет, %s!</h2>
<p>Вчера вы завели аккаунт. Создайте первую копилку и отметьте первую плитку —
маленькие суммы складываются быстрее, чем кажется.</p>
%s</body></html>`, username, unsubscribeFooter(unsubscribeURL))
			},
		},
		{
			Day:     3,
			Subject: "Серии помогают не бросать",
			HTML: func(username, unsubscribeURL string) string {
				return fmt.Sprintf(`<html><body>
<h2>%s, как идут накопления?</h2>
<p>Отмечайте плитки регулярно: серия растет с каждым днем активности,
а рекорд остается с вами навсегда.</p>
%s</body></html>`, username, unsubscribeFooter(unsubscribeURL))
			},
		},
		{
			Day:     7,
			Subject: "Копить вместе веселее",
			HTML: func(username, unsubscribeURL string) string {
				return fmt.Sprintf(`<html><body>
<h2>%s, неделя с нами!</h2>
<p>Пригласите близких в общую копилку: у каждого свой набор плиток,
а цель — одна на всех.</p>
%s</body></html>`, username, unsubscribeFooter(unsubscribeURL))
			},
		},
	}
}

func unsubscribeFooter(unsubscribeURL string) string {
	return fmt.Sprintf(`<p style="color:#888;font-size:12px">
<a href="%s">Отписаться от рассылки</a></p>`, unsubscribeURL)
}
