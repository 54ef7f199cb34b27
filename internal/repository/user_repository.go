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

// Коды ошибок PostgreSQL.
const (
	pgUniqueViolationCode = "23505"
)

// UserRepository определяет методы для работы с данными пользователей в хранилище.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) (int64, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, userID int64) (*models.User, error)
	SetEmailOptOut(ctx context.Context, userID int64, optOut bool) error
	ListSignedUpDaysAgo(ctx context.Context, days int) ([]models.User, error)
}

// postgresUserRepository реализует UserRepository для PostgreSQL.
type postgresUserRepository struct {
	db *sqlx.DB
}

// NewPostgresUserRepository создает новый экземпляр репозитория пользователей для PostgreSQL.
func NewPostgresUserRepository(db *sqlx.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

// CreateUser создает нового пользователя в базе данных.
// Возвращает ID созданного пользователя или ошибку.
func (r *postgresUserRepository) CreateUser(ctx context.Context, user *models.User) (int64, error) {
	query := `INSERT INTO users (username, email, password_hash) VALUES ($1, $2, $3) RETURNING id`
	var userID int64

	err := r.db.QueryRowxContext(ctx, query, user.Username, user.Email, user.PasswordHash).Scan(&userID)
	if err != nil {
		// Проверяем на ошибку нарушения уникальности (duplicate key)
		var pgErr *pq.Error
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode {
			if pgErr.Constraint == "users_email_key" {
				log.Printf("[Repo] Ошибка создания пользователя: email '%s' уже занят", user.Email)
				return 0, ErrEmailTaken
			}
			log.Printf("[Repo] Ошибка создания пользователя: имя пользователя '%s' уже занято", user.Username)
			return 0, ErrUsernameTaken // Возвращаем кастомную ошибку
		}
		log.Printf("[Repo] Непредвиденная ошибка при создании пользователя '%s': %v", user.Username, err)
		return 0, fmt.Errorf("ошибка выполнения запроса на создание пользователя: %w", err)
	}

	log.Printf("[Repo] Пользователь '%s' успешно создан с ID %d", user.Username, userID)
	return userID, nil
}

// GetUserByUsername находит пользователя по его имени.
// Возвращает пользователя или ошибку, если пользователь не найден или произошла другая ошибка.
func (r *postgresUserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT id, username, email, password_hash, email_opt_out, created_at, updated_at
	          FROM users WHERE username=$1`
	var user models.User

	err := r.db.GetContext(ctx, &user, query, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Printf("[Repo] Пользователь с именем '%s' не найден", username)
			return nil, ErrUserNotFound // Пользователь не найден
		}
		log.Printf("[Repo] Ошибка при поиске пользователя '%s': %v", username, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение пользователя: %w", err)
	}

	log.Printf("[Repo] Найден пользователь '%s' (ID: %d)", username, user.ID)
	return &user, nil
}

// GetUserByID находит пользователя по его ID.
func (r *postgresUserRepository) GetUserByID(ctx context.Context, userID int64) (*models.User, error) {
	query := `SELECT id, username, email, password_hash, email_opt_out, created_at, updated_at
	          FROM users WHERE id=$1`
	var user models.User

	err := r.db.GetContext(ctx, &user, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Printf("[Repo] Пользователь с ID %d не найден", userID)
			return nil, ErrUserNotFound
		}
		log.Printf("[Repo] Ошибка при поиске пользователя ID %d: %v", userID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение пользователя: %w", err)
	}

	return &user, nil
}

// SetEmailOptOut устанавливает флаг отписки пользователя от рассылок.
func (r *postgresUserRepository) SetEmailOptOut(ctx context.Context, userID int64, optOut bool) error {
	query := `UPDATE users SET email_opt_out=$2, updated_at=now() WHERE id=$1`

	res, err := r.db.ExecContext(ctx, query, userID, optOut)
	if err != nil {
		log.Printf("[Repo] Ошибка обновления флага отписки для пользователя ID %d: %v", userID, err)
		return fmt.Errorf("ошибка выполнения запроса на обновление флага отписки: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка получения числа затронутых строк: %w", err)
	}
	if rows == 0 {
		return ErrUserNotFound
	}

	log.Printf("[Repo] Флаг отписки пользователя ID %d установлен в %t", userID, optOut)
	return nil
}

// ListSignedUpDaysAgo возвращает пользователей, зарегистрировавшихся ровно
// days дней назад и не отписавшихся от рассылок. Используется drip-кампанией.
func (r *postgresUserRepository) ListSignedUpDaysAgo(ctx context.Context, days int) ([]models.User, error) {
	query := `SELECT id, username, email, password_hash, email_opt_out, created_at, updated_at
	          FROM users
	          WHERE email_opt_out = FALSE AND created_at::date = CURRENT_DATE - $1::int`

	users := make([]models.User, 0)
	err := r.db.SelectContext(ctx, &users, query, days)
	if err != nil {
		log.Printf("[Repo] Ошибка выборки пользователей для рассылки (день %d): %v", days, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на выборку пользователей для рассылки: %w", err)
	}

	return users, nil
}

// Кастомные ошибки репозитория.
var (
	ErrUserNotFound  = errors.New("пользователь не найден")
	ErrUsernameTaken = errors.New("имя пользователя уже занято")
	ErrEmailTaken    = errors.New("email уже занят")
)
