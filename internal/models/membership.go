package models

import "time"

// Membership представляет участие пользователя в копилке.
// Одна запись на пару (копилка, пользователь); владелец получает
// свою запись при создании копилки.
type Membership struct {
	ID       int64     `db:"id" json:"id"`
	VaultID  int64     `db:"vault_id" json:"vault_id"`
	UserID   int64     `db:"user_id" json:"user_id"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}

// Member представляет участника копилки в ответах API (с данными пользователя).
type Member struct {
	UserID      int64     `db:"user_id" json:"user_id"`
	Username    string    `db:"username" json:"username"`
	Email       string    `db:"email" json:"-"` // Нужен для рассылок, наружу не отдаем
	JoinedAt    time.Time `db:"joined_at" json:"joined_at"`
	SavedAmount int64     `db:"saved_amount" json:"saved_amount"` // Сумма отмеченных плиток участника
}
