package models

import "time"

// Статусы приглашения.
const (
	InvitationStatusPending  = "pending"
	InvitationStatusAccepted = "accepted"
)

// Invitation представляет приглашение в копилку по email.
// Email хранится в нижнем регистре, сравнение регистронезависимое.
type Invitation struct {
	ID        int64     `db:"id" json:"id"`
	VaultID   int64     `db:"vault_id" json:"vault_id"`
	Email     string    `db:"email" json:"email"`
	InvitedBy int64     `db:"invited_by" json:"invited_by"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// InviteRequest представляет тело запроса на приглашение участника.
type InviteRequest struct {
	Email string `json:"email"`
}
