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

// PurchaseRepository определяет методы для работы с записями об оплатах.
type PurchaseRepository interface {
	CreatePurchase(ctx context.Context, purchase *models.Purchase) (int64, error)
	GetBySessionID(ctx context.Context, sessionID string) (*models.Purchase, error)
}

// postgresPurchaseRepository реализует PurchaseRepository для PostgreSQL.
type postgresPurchaseRepository struct {
	db *sqlx.DB
}

// NewPostgresPurchaseRepository создает новый экземпляр репозитория оплат.
func NewPostgresPurchaseRepository(db *sqlx.DB) PurchaseRepository {
	return &postgresPurchaseRepository{db: db}
}

// CreatePurchase создает запись об оплате. Уникальность session_id
// превращает повторную доставку вебхука в ErrDuplicateSession.
func (r *postgresPurchaseRepository) CreatePurchase(ctx context.Context, purchase *models.Purchase) (int64, error) {
	query := `INSERT INTO purchases (user_id, session_id, plan, amount_total, currency)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id`
	var purchaseID int64

	err := r.db.QueryRowxContext(ctx, query,
		purchase.UserID, purchase.SessionID, purchase.Plan, purchase.AmountTotal, purchase.Currency,
	).Scan(&purchaseID)
	if err != nil {
		var pgErr *pq.Error
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode {
			log.Printf("[PurchaseRepo] Оплата с сессией '%s' уже записана", purchase.SessionID)
			return 0, ErrDuplicateSession
		}
		log.Printf("[PurchaseRepo] Ошибка записи оплаты (сессия '%s'): %v", purchase.SessionID, err)
		return 0, fmt.Errorf("ошибка выполнения запроса на запись оплаты: %w", err)
	}

	log.Printf("[PurchaseRepo] Оплата ID %d записана (сессия '%s', пользователь %d)",
		purchaseID, purchase.SessionID, purchase.UserID)
	return purchaseID, nil
}

// GetBySessionID находит запись об оплате по идентификатору сессии.
func (r *postgresPurchaseRepository) GetBySessionID(ctx context.Context, sessionID string) (*models.Purchase, error) {
	query := `SELECT id, user_id, session_id, plan, amount_total, currency, created_at
	          FROM purchases WHERE session_id=$1`
	var purchase models.Purchase

	err := r.db.GetContext(ctx, &purchase, query, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPurchaseNotFound
		}
		log.Printf("[PurchaseRepo] Ошибка при поиске оплаты по сессии '%s': %v", sessionID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение оплаты: %w", err)
	}

	return &purchase, nil
}

// Кастомные ошибки репозитория оплат.
var (
	ErrDuplicateSession = errors.New("оплата с такой сессией уже записана")
	ErrPurchaseNotFound = errors.New("оплата не найдена")
)
