package repository

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/models"
)

// MembershipRepository определяет методы для работы с участниками копилок.
type MembershipRepository interface {
	CreateMembership(ctx context.Context, vaultID, userID int64) (int64, error)
	IsMember(ctx context.Context, vaultID, userID int64) (bool, error)
	ListMembersByVault(ctx context.Context, vaultID int64) ([]models.Member, error)
	DeleteMembership(ctx context.Context, vaultID, userID int64) error
}

// postgresMembershipRepository реализует MembershipRepository для PostgreSQL.
type postgresMembershipRepository struct {
	db *sqlx.DB
}

// NewPostgresMembershipRepository создает новый экземпляр репозитория участников.
func NewPostgresMembershipRepository(db *sqlx.DB) MembershipRepository {
	return &postgresMembershipRepository{db: db}
}

// CreateMembership создает запись об участии пользователя в копилке.
func (r *postgresMembershipRepository) CreateMembership(ctx context.Context, vaultID, userID int64) (int64, error) {
	query := `INSERT INTO memberships (vault_id, user_id) VALUES ($1, $2) RETURNING id`
	var membershipID int64

	err := r.db.QueryRowxContext(ctx, query, vaultID, userID).Scan(&membershipID)
	if err != nil {
		var pgErr *pq.Error
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode {
			log.Printf("[MemberRepo] Пользователь %d уже участник копилки %d", userID, vaultID)
			return 0, ErrAlreadyMember
		}
		log.Printf("[MemberRepo] Ошибка создания участия (копилка %d, пользователь %d): %v", vaultID, userID, err)
		return 0, fmt.Errorf("ошибка выполнения запроса на создание участия: %w", err)
	}

	log.Printf("[MemberRepo] Пользователь %d присоединился к копилке %d (участие ID %d)", userID, vaultID, membershipID)
	return membershipID, nil
}

// IsMember сообщает, состоит ли пользователь в копилке.
func (r *postgresMembershipRepository) IsMember(ctx context.Context, vaultID, userID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM memberships WHERE vault_id=$1 AND user_id=$2)`
	var exists bool

	err := r.db.GetContext(ctx, &exists, query, vaultID, userID)
	if err != nil {
		log.Printf("[MemberRepo] Ошибка проверки участия (копилка %d, пользователь %d): %v", vaultID, userID, err)
		return false, fmt.Errorf("ошибка выполнения запроса на проверку участия: %w", err)
	}

	return exists, nil
}

// ListMembersByVault возвращает участников копилки с личным прогрессом каждого.
func (r *postgresMembershipRepository) ListMembersByVault(ctx context.Context, vaultID int64) ([]models.Member, error) {
	query := `SELECT m.user_id, u.username, u.email, m.joined_at,
	                 COALESCE((SELECT SUM(t.amount) FROM tiles t
	                           WHERE t.vault_id = m.vault_id AND t.user_id = m.user_id AND t.checked), 0) AS saved_amount
	          FROM memberships m
	          JOIN users u ON u.id = m.user_id
	          WHERE m.vault_id = $1
	          ORDER BY m.joined_at`

	members := make([]models.Member, 0)
	err := r.db.SelectContext(ctx, &members, query, vaultID)
	if err != nil {
		log.Printf("[MemberRepo] Ошибка получения участников копилки %d: %v", vaultID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение участников: %w", err)
	}

	log.Printf("[MemberRepo] Получено %d участников копилки %d", len(members), vaultID)
	return members, nil
}

// DeleteMembership удаляет участие пользователя в копилке.
func (r *postgresMembershipRepository) DeleteMembership(ctx context.Context, vaultID, userID int64) error {
	query := `DELETE FROM memberships WHERE vault_id=$1 AND user_id=$2`

	res, err := r.db.ExecContext(ctx, query, vaultID, userID)
	if err != nil {
		log.Printf("[MemberRepo] Ошибка удаления участия (копилка %d, пользователь %d): %v", vaultID, userID, err)
		return fmt.Errorf("ошибка выполнения запроса на удаление участия: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка получения числа затронутых строк: %w", err)
	}
	if rows == 0 {
		return ErrMembershipNotFound
	}

	log.Printf("[MemberRepo] Пользователь %d исключен из копилки %d", userID, vaultID)
	return nil
}

// Кастомные ошибки репозитория участников.
var (
	ErrAlreadyMember      = errors.New("пользователь уже участник копилки")
	ErrMembershipNotFound = errors.New("участие не найдено")
)
