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

// VaultRepository определяет методы для работы с копилками.
type VaultRepository interface {
	CreateVault(ctx context.Context, vault *models.Vault) (int64, error)
	GetVaultByID(ctx context.Context, vaultID int64) (*models.Vault, error)
	ListVaultsByUserID(ctx context.Context, userID int64) ([]models.VaultSummary, error)
	UpdateVault(ctx context.Context, vault *models.Vault) error
	UpdateGoal(ctx context.Context, vaultID int64, goal int64) error
	UpdateStreak(ctx context.Context, vaultID int64, current, longest int, lastActivity *time.Time) error
	DeleteVault(ctx context.Context, vaultID int64) error
	ListNeedingReminder(ctx context.Context) ([]models.Vault, error)
}

// postgresVaultRepository реализует VaultRepository для PostgreSQL.
type postgresVaultRepository struct {
	db *sqlx.DB
}

// NewPostgresVaultRepository создает новый экземпляр репозитория копилок.
func NewPostgresVaultRepository(db *sqlx.DB) VaultRepository {
	return &postgresVaultRepository{db: db}
}

// CreateVault создает новую копилку и возвращает ее ID.
func (r *postgresVaultRepository) CreateVault(ctx context.Context, vault *models.Vault) (int64, error) {
	query := `INSERT INTO vaults (owner_id, name, goal, color, frequency)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id`
	var vaultID int64

	err := r.db.QueryRowxContext(ctx, query,
		vault.OwnerID, vault.Name, vault.Goal, vault.Color, vault.Frequency,
	).Scan(&vaultID)
	if err != nil {
		log.Printf("[VaultRepo] Ошибка создания копилки '%s': %v", vault.Name, err)
		return 0, fmt.Errorf("ошибка выполнения запроса на создание копилки: %w", err)
	}

	log.Printf("[VaultRepo] Копилка '%s' (ID: %d) создана пользователем %d", vault.Name, vaultID, vault.OwnerID)
	return vaultID, nil
}

// GetVaultByID находит копилку по ее ID.
func (r *postgresVaultRepository) GetVaultByID(ctx context.Context, vaultID int64) (*models.Vault, error) {
	query := `SELECT id, owner_id, name, goal, color, frequency,
	                 current_streak, longest_streak, last_activity_date, created_at, updated_at
	          FROM vaults WHERE id=$1`
	var vault models.Vault

	err := r.db.GetContext(ctx, &vault, query, vaultID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Printf("[VaultRepo] Копилка с ID %d не найдена", vaultID)
			return nil, ErrVaultNotFound
		}
		log.Printf("[VaultRepo] Ошибка при поиске копилки ID %d: %v", vaultID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение копилки: %w", err)
	}

	return &vault, nil
}

// ListVaultsByUserID возвращает копилки, в которых состоит пользователь,
// с агрегированным прогрессом (сумма отмеченных плиток всех участников).
func (r *postgresVaultRepository) ListVaultsByUserID(ctx context.Context, userID int64) ([]models.VaultSummary, error) {
	query := `SELECT v.id, v.owner_id, v.name, v.goal, v.color, v.frequency,
	                 v.current_streak, v.longest_streak, v.last_activity_date, v.created_at, v.updated_at,
	                 COALESCE((SELECT SUM(t.amount) FROM tiles t WHERE t.vault_id = v.id AND t.checked), 0) AS saved_amount
	          FROM vaults v
	          JOIN memberships m ON m.vault_id = v.id
	          WHERE m.user_id = $1
	          ORDER BY v.created_at`

	vaults := make([]models.VaultSummary, 0)
	err := r.db.SelectContext(ctx, &vaults, query, userID)
	if err != nil {
		log.Printf("[VaultRepo] Ошибка при получении списка копилок пользователя %d: %v", userID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение списка копилок: %w", err)
	}

	log.Printf("[VaultRepo] Получено %d копилок для пользователя %d", len(vaults), userID)
	return vaults, nil
}

// UpdateVault обновляет название, цвет и каданс копилки.
func (r *postgresVaultRepository) UpdateVault(ctx context.Context, vault *models.Vault) error {
	query := `UPDATE vaults SET name=$2, color=$3, frequency=$4, updated_at=now() WHERE id=$1`

	res, err := r.db.ExecContext(ctx, query, vault.ID, vault.Name, vault.Color, vault.Frequency)
	if err != nil {
		log.Printf("[VaultRepo] Ошибка обновления копилки ID %d: %v", vault.ID, err)
		return fmt.Errorf("ошибка выполнения запроса на обновление копилки: %w", err)
	}
	return r.requireAffected(res, vault.ID)
}

// UpdateGoal обновляет целевую сумму копилки (используется при сбросе с новой целью).
func (r *postgresVaultRepository) UpdateGoal(ctx context.Context, vaultID int64, goal int64) error {
	query := `UPDATE vaults SET goal=$2, updated_at=now() WHERE id=$1`

	res, err := r.db.ExecContext(ctx, query, vaultID, goal)
	if err != nil {
		log.Printf("[VaultRepo] Ошибка обновления цели копилки ID %d: %v", vaultID, err)
		return fmt.Errorf("ошибка выполнения запроса на обновление цели: %w", err)
	}
	return r.requireAffected(res, vaultID)
}

// UpdateStreak записывает новое состояние серии копилки.
// Обычный read-modify-write: серия — мотивационное значение, а не
// финансовая запись, редкий двойной инкремент в гонке допустим.
func (r *postgresVaultRepository) UpdateStreak(
	ctx context.Context,
	vaultID int64,
	current, longest int,
	lastActivity *time.Time,
) error {
	query := `UPDATE vaults SET current_streak=$2, longest_streak=$3, last_activity_date=$4, updated_at=now()
	          WHERE id=$1`

	res, err := r.db.ExecContext(ctx, query, vaultID, current, longest, lastActivity)
	if err != nil {
		log.Printf("[VaultRepo] Ошибка обновления серии копилки ID %d: %v", vaultID, err)
		return fmt.Errorf("ошибка выполнения запроса на обновление серии: %w", err)
	}
	return r.requireAffected(res, vaultID)
}

// DeleteVault удаляет копилку. Плитки, участники и приглашения
// удаляются каскадно внешними ключами.
func (r *postgresVaultRepository) DeleteVault(ctx context.Context, vaultID int64) error {
	query := `DELETE FROM vaults WHERE id=$1`

	res, err := r.db.ExecContext(ctx, query, vaultID)
	if err != nil {
		log.Printf("[VaultRepo] Ошибка удаления копилки ID %d: %v", vaultID, err)
		return fmt.Errorf("ошибка выполнения запроса на удаление копилки: %w", err)
	}
	if err = r.requireAffected(res, vaultID); err != nil {
		return err
	}

	log.Printf("[VaultRepo] Копилка ID %d удалена", vaultID)
	return nil
}

// ListNeedingReminder возвращает копилки, у которых активность просрочена
// для их каданса: не было отметок сегодня (daily), за 7 дней (weekly)
// или за 14 дней (biweekly). Используется планировщиком напоминаний.
func (r *postgresVaultRepository) ListNeedingReminder(ctx context.Context) ([]models.Vault, error) {
	query := `SELECT id, owner_id, name, goal, color, frequency,
	                 current_streak, longest_streak, last_activity_date, created_at, updated_at
	          FROM vaults
	          WHERE last_activity_date IS NOT NULL AND (
	                (frequency = 'daily' AND last_activity_date < CURRENT_DATE) OR
	                (frequency = 'weekly' AND last_activity_date < CURRENT_DATE - 6) OR
	                (frequency = 'biweekly' AND last_activity_date < CURRENT_DATE - 13))`

	vaults := make([]models.Vault, 0)
	err := r.db.SelectContext(ctx, &vaults, query)
	if err != nil {
		log.Printf("[VaultRepo] Ошибка выборки копилок для напоминаний: %v", err)
		return nil, fmt.Errorf("ошибка выполнения запроса на выборку копилок для напоминаний: %w", err)
	}

	return vaults, nil
}

// requireAffected проверяет, что запрос затронул хотя бы одну строку.
func (r *postgresVaultRepository) requireAffected(res sql.Result, vaultID int64) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка получения числа затронутых строк: %w", err)
	}
	if rows == 0 {
		log.Printf("[VaultRepo] Копилка с ID %d не найдена", vaultID)
		return ErrVaultNotFound
	}
	return nil
}

// Кастомные ошибки репозитория.
var (
	ErrVaultNotFound = errors.New("копилка не найдена")
)
