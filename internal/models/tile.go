package models

import "time"

// Tile представляет одну плитку — дискретную сумму в разбивке цели копилки.
// Плитки принадлежат паре (копилка, участник): у каждого участника свой
// независимый набор, сумма которого равна цели копилки на момент генерации.
// Сумма плитки неизменна после создания, меняется только отметка.
type Tile struct {
	ID        int64      `db:"id" json:"id"`
	VaultID   int64      `db:"vault_id" json:"vault_id"`
	UserID    int64      `db:"user_id" json:"user_id"`
	Amount    int64      `db:"amount" json:"amount"`
	Checked   bool       `db:"checked" json:"checked"`
	CheckedAt *time.Time `db:"checked_at" json:"checked_at,omitempty"` // может быть NULL
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}
