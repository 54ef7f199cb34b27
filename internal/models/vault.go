package models

import (
	"time"

	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/streak"
)

// Vault представляет копилку — именованную цель накопления.
// Поля серии (current_streak, longest_streak, last_activity_date)
// обновляются калькулятором серий при отметке плиток.
type Vault struct {
	ID               int64            `db:"id" json:"id"`
	OwnerID          int64            `db:"owner_id" json:"owner_id"`
	Name             string           `db:"name" json:"name"`
	Goal             int64            `db:"goal" json:"goal"` // Целевая сумма в целых единицах валюты
	Color            string           `db:"color" json:"color"`
	Frequency        streak.Frequency `db:"frequency" json:"frequency"`
	CurrentStreak    int              `db:"current_streak" json:"current_streak"`
	LongestStreak    int              `db:"longest_streak" json:"longest_streak"`
	LastActivityDate *time.Time       `db:"last_activity_date" json:"last_activity_date,omitempty"` // может быть NULL
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}

// CreateVaultRequest представляет тело запроса на создание копилки.
type CreateVaultRequest struct {
	Name      string           `json:"name"`
	Goal      int64            `json:"goal"`
	Color     string           `json:"color"`
	Frequency streak.Frequency `json:"frequency"`
}

// UpdateVaultRequest представляет тело запроса на изменение копилки.
// Nil-поля не изменяются.
type UpdateVaultRequest struct {
	Name      *string           `json:"name,omitempty"`
	Color     *string           `json:"color,omitempty"`
	Frequency *streak.Frequency `json:"frequency,omitempty"`
}

// ResetVaultRequest представляет тело запроса на сброс копилки.
// NewGoal задает новую целевую сумму; при nil цель не меняется и
// плитки не перегенерируются, только снимаются отметки.
type ResetVaultRequest struct {
	NewGoal *int64 `json:"new_goal,omitempty"`
}

// VaultSummary представляет копилку в списке с агрегированным прогрессом.
type VaultSummary struct {
	Vault
	SavedAmount int64 `db:"saved_amount" json:"saved_amount"` // Сумма отмеченных плиток всех участников
}

// VaultDetails представляет копилку с участниками и всеми плитками.
type VaultDetails struct {
	Vault
	SavedAmount int64    `json:"saved_amount"`
	Members     []Member `json:"members"`
	Tiles       []Tile   `json:"tiles"`
}
