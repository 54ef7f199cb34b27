package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/models"
)

// TileRepository определяет методы для работы с плитками копилок.
// Плитки создаются только пакетно — один раз для пары (копилка, участник)
// в момент присоединения; суммы после создания неизменны.
type TileRepository interface {
	CreateTiles(ctx context.Context, vaultID, userID int64, amounts []int64) error
	ListTilesByVault(ctx context.Context, vaultID int64) ([]models.Tile, error)
	GetTileByID(ctx context.Context, tileID int64) (*models.Tile, error)
	SetChecked(ctx context.Context, tileID int64, checked bool) (*time.Time, error)
	UncheckAll(ctx context.Context, vaultID int64) error
	DeleteTilesByMember(ctx context.Context, vaultID, userID int64) error
	DeleteTilesByVault(ctx context.Context, vaultID int64) error
	SavedAmount(ctx context.Context, vaultID int64) (int64, error)
}

// postgresTileRepository реализует TileRepository для PostgreSQL.
type postgresTileRepository struct {
	db *sqlx.DB
}

// NewPostgresTileRepository создает новый экземпляр репозитория плиток.
func NewPostgresTileRepository(db *sqlx.DB) TileRepository {
	return &postgresTileRepository{db: db}
}

// CreateTiles пакетно создает плитки участника в одной транзакции:
// либо весь набор, либо ничего.
func (r *postgresTileRepository) CreateTiles(ctx context.Context, vaultID, userID int64, amounts []int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка открытия транзакции: %w", err)
	}
	// Откат безопасен и после успешного коммита
	defer func() { _ = tx.Rollback() }()

	query := `INSERT INTO tiles (vault_id, user_id, amount) VALUES ($1, $2, $3)`
	for _, amount := range amounts {
		if _, err = tx.ExecContext(ctx, query, vaultID, userID, amount); err != nil {
			log.Printf("[TileRepo] Ошибка вставки плитки (копилка %d, пользователь %d): %v", vaultID, userID, err)
			return fmt.Errorf("ошибка выполнения запроса на создание плиток: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("ошибка коммита транзакции создания плиток: %w", err)
	}

	log.Printf("[TileRepo] Создано %d плиток для пользователя %d в копилке %d", len(amounts), userID, vaultID)
	return nil
}

// ListTilesByVault возвращает все плитки копилки (всех участников).
func (r *postgresTileRepository) ListTilesByVault(ctx context.Context, vaultID int64) ([]models.Tile, error) {
	query := `SELECT id, vault_id, user_id, amount, checked, checked_at, created_at
	          FROM tiles WHERE vault_id=$1 ORDER BY id`

	tiles := make([]models.Tile, 0)
	err := r.db.SelectContext(ctx, &tiles, query, vaultID)
	if err != nil {
		log.Printf("[TileRepo] Ошибка при получении плиток копилки %d: %v", vaultID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение плиток: %w", err)
	}

	return tiles, nil
}

// GetTileByID находит плитку по ее ID.
func (r *postgresTileRepository) GetTileByID(ctx context.Context, tileID int64) (*models.Tile, error) {
	query := `SELECT id, vault_id, user_id, amount, checked, checked_at, created_at
	          FROM tiles WHERE id=$1`
	var tile models.Tile

	err := r.db.GetContext(ctx, &tile, query, tileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Printf("[TileRepo] Плитка с ID %d не найдена", tileID)
			return nil, ErrTileNotFound
		}
		log.Printf("[TileRepo] Ошибка при поиске плитки ID %d: %v", tileID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение плитки: %w", err)
	}

	return &tile, nil
}

// SetChecked устанавливает отметку плитки. При checked=true фиксирует
// момент отметки, при false — очищает его. Возвращает новое значение checked_at.
func (r *postgresTileRepository) SetChecked(ctx context.Context, tileID int64, checked bool) (*time.Time, error) {
	query := `UPDATE tiles
	          SET checked=$2, checked_at=CASE WHEN $2 THEN now() ELSE NULL END
	          WHERE id=$1
	          RETURNING checked_at`
	var checkedAt *time.Time

	err := r.db.QueryRowxContext(ctx, query, tileID, checked).Scan(&checkedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Printf("[TileRepo] Плитка с ID %d не найдена", tileID)
			return nil, ErrTileNotFound
		}
		log.Printf("[TileRepo] Ошибка обновления отметки плитки ID %d: %v", tileID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на обновление отметки: %w", err)
	}

	log.Printf("[TileRepo] Отметка плитки ID %d установлена в %t", tileID, checked)
	return checkedAt, nil
}

// UncheckAll снимает отметки со всех плиток копилки (сброс).
func (r *postgresTileRepository) UncheckAll(ctx context.Context, vaultID int64) error {
	query := `UPDATE tiles SET checked=FALSE, checked_at=NULL WHERE vault_id=$1`

	if _, err := r.db.ExecContext(ctx, query, vaultID); err != nil {
		log.Printf("[TileRepo] Ошибка снятия отметок в копилке %d: %v", vaultID, err)
		return fmt.Errorf("ошибка выполнения запроса на снятие отметок: %w", err)
	}

	log.Printf("[TileRepo] Отметки всех плиток копилки %d сняты", vaultID)
	return nil
}

// DeleteTilesByMember удаляет набор плиток участника (при исключении из копилки).
func (r *postgresTileRepository) DeleteTilesByMember(ctx context.Context, vaultID, userID int64) error {
	query := `DELETE FROM tiles WHERE vault_id=$1 AND user_id=$2`

	if _, err := r.db.ExecContext(ctx, query, vaultID, userID); err != nil {
		log.Printf("[TileRepo] Ошибка удаления плиток пользователя %d в копилке %d: %v", userID, vaultID, err)
		return fmt.Errorf("ошибка выполнения запроса на удаление плиток участника: %w", err)
	}
	return nil
}

// DeleteTilesByVault удаляет все плитки копилки (перед перегенерацией с новой целью).
func (r *postgresTileRepository) DeleteTilesByVault(ctx context.Context, vaultID int64) error {
	query := `DELETE FROM tiles WHERE vault_id=$1`

	if _, err := r.db.ExecContext(ctx, query, vaultID); err != nil {
		log.Printf("[TileRepo] Ошибка удаления плиток копилки %d: %v", vaultID, err)
		return fmt.Errorf("ошибка выполнения запроса на удаление плиток: %w", err)
	}
	return nil
}

// SavedAmount возвращает сумму отмеченных плиток копилки по всем участникам —
// общий прогресс к единой цели.
func (r *postgresTileRepository) SavedAmount(ctx context.Context, vaultID int64) (int64, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM tiles WHERE vault_id=$1 AND checked`
	var total int64

	err := r.db.GetContext(ctx, &total, query, vaultID)
	if err != nil {
		log.Printf("[TileRepo] Ошибка подсчета прогресса копилки %d: %v", vaultID, err)
		return 0, fmt.Errorf("ошибка выполнения запроса на подсчет прогресса: %w", err)
	}

	return total, nil
}

// Кастомные ошибки репозитория плиток.
var (
	ErrTileNotFound = errors.New("плитка не найдена")
)
