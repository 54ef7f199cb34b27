package models

import "time"

// Purchase представляет запись об оплате, созданную вебхуком Stripe.
// SessionID уникален: повторные доставки вебхука обнаруживаются по
// существующей записи с тем же идентификатором сессии.
type Purchase struct {
	ID          int64     `db:"id" json:"id"`
	UserID      int64     `db:"user_id" json:"user_id"`
	SessionID   string    `db:"session_id" json:"session_id"`
	Plan        string    `db:"plan" json:"plan"`
	AmountTotal int64     `db:"amount_total" json:"amount_total"`
	Currency    string    `db:"currency" json:"currency"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// CheckoutRequest представляет тело запроса на создание платежной сессии.
// Plan: "monthly", "yearly" (подписка) или "lifetime" (разовый платеж).
type CheckoutRequest struct {
	Plan string `json:"plan"`
}

// CheckoutResponse представляет ответ с URL для перенаправления на оплату.
type CheckoutResponse struct {
	URL string `json:"url"`
}
