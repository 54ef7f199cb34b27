package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/models"
)

// InvitationRepository определяет методы для работы с приглашениями.
type InvitationRepository interface {
	CreateInvitation(ctx context.Context, inv *models.Invitation) (int64, error)
	GetInvitationByID(ctx context.Context, invitationID int64) (*models.Invitation, error)
	ListInvitationsByVault(ctx context.Context, vaultID int64) ([]models.Invitation, error)
	MarkAccepted(ctx context.Context, invitationID int64) error
	DeleteByVaultAndEmail(ctx context.Context, vaultID int64, email string) error
}

// postgresInvitationRepository реализует InvitationRepository для PostgreSQL.
type postgresInvitationRepository struct {
	db *sqlx.DB
}

// NewPostgresInvitationRepository создает новый экземпляр репозитория приглашений.
func NewPostgresInvitationRepository(db *sqlx.DB) InvitationRepository {
	return &postgresInvitationRepository{db: db}
}

// CreateInvitation создает приглашение. Email уже приведен к нижнему
// регистру на уровне сервиса.
func (r *postgresInvitationRepository) CreateInvitation(ctx context.Context, inv *models.Invitation) (int64, error) {
	query := `INSERT INTO invitations (vault_id, email, invited_by, status)
	          VALUES ($1, $2, $3, $4) RETURNING id`
	var invitationID int64

	err := r.db.QueryRowxContext(ctx, query, inv.VaultID, inv.Email, inv.InvitedBy, inv.Status).Scan(&invitationID)
	if err != nil {
		var pgErr *pq.Error
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode {
			log.Printf("[InviteRepo] Приглашение '%s' в копилку %d уже существует", inv.Email, inv.VaultID)
			return 0, ErrInvitationExists
		}
		log.Printf("[InviteRepo] Ошибка создания приглашения '%s' в копилку %d: %v", inv.Email, inv.VaultID, err)
		return 0, fmt.Errorf("ошибка выполнения запроса на создание приглашения: %w", err)
	}

	log.Printf("[InviteRepo] Приглашение ID %d создано для '%s' в копилку %d", invitationID, inv.Email, inv.VaultID)
	return invitationID, nil
}

// GetInvitationByID находит приглашение по его ID.
func (r *postgresInvitationRepository) GetInvitationByID(
	ctx context.Context,
	invitationID int64,
) (*models.Invitation, error) {
	query := `SELECT id, vault_id, email, invited_by, status, created_at, updated_at
	          FROM invitations WHERE id=$1`
	var inv models.Invitation

	err := r.db.GetContext(ctx, &inv, query, invitationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Printf("[InviteRepo] Приглашение с ID %d не найдено", invitationID)
			return nil, ErrInvitationNotFound
		}
		log.Printf("[InviteRepo] Ошибка при поиске приглашения ID %d: %v", invitationID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение приглашения: %w", err)
	}

	return &inv, nil
}

// ListInvitationsByVault возвращает приглашения копилки.
func (r *postgresInvitationRepository) ListInvitationsByVault(
	ctx context.Context,
	vaultID int64,
) ([]models.Invitation, error) {
	query := `SELECT id, vault_id, email, invited_by, status, created_at, updated_at
	          FROM invitations WHERE vault_id=$1 ORDER BY created_at`

	invitations := make([]models.Invitation, 0)
	err := r.db.SelectContext(ctx, &invitations, query, vaultID)
	if err != nil {
		log.Printf("[InviteRepo] Ошибка получения приглашений копилки %d: %v", vaultID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение приглашений: %w", err)
	}

	return invitations, nil
}

// MarkAccepted переводит приглашение в статус accepted.
func (r *postgresInvitationRepository) MarkAccepted(ctx context.Context, invitationID int64) error {
	query := `UPDATE invitations SET status=$2, updated_at=now() WHERE id=$1`

	res, err := r.db.ExecContext(ctx, query, invitationID, models.InvitationStatusAccepted)
	if err != nil {
		log.Printf("[InviteRepo] Ошибка принятия приглашения ID %d: %v", invitationID, err)
		return fmt.Errorf("ошибка выполнения запроса на принятие приглашения: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка получения числа затронутых строк: %w", err)
	}
	if rows == 0 {
		return ErrInvitationNotFound
	}

	log.Printf("[InviteRepo] Приглашение ID %d принято", invitationID)
	return nil
}

// DeleteByVaultAndEmail удаляет приглашение при исключении участника.
// Отсутствие записи не считается ошибкой.
func (r *postgresInvitationRepository) DeleteByVaultAndEmail(ctx context.Context, vaultID int64, email string) error {
	query := `DELETE FROM invitations WHERE vault_id=$1 AND email=$2`

	if _, err := r.db.ExecContext(ctx, query, vaultID, email); err != nil {
		log.Printf("[InviteRepo] Ошибка удаления приглашения '%s' из копилки %d: %v", email, vaultID, err)
		return fmt.Errorf("ошибка выполнения запроса на удаление приглашения: %w", err)
	}
	return nil
}

// Кастомные ошибки репозитория приглашений.
var (
	ErrInvitationNotFound = errors.New("приглашение не найдено")
	ErrInvitationExists   = errors.New("приглашение уже отправлено")
)
