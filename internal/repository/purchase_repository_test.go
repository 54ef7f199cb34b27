package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/models"
	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/repository"
)

// Вспомогательная функция для создания мока БД и репозитория оплат.
func setupPurchaseRepoMock(t *testing.T) (repository.PurchaseRepository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := repository.NewPostgresPurchaseRepository(sqlxDB)
	return repo, mock
}

func TestCreatePurchase(t *testing.T) {
	insertQuery := regexp.QuoteMeta(
		`INSERT INTO purchases (user_id, session_id, plan, amount_total, currency)`)
	purchase := &models.Purchase{
		UserID:      1,
		SessionID:   "cs_test_123",
		Plan:        "monthly",
		AmountTotal: 499,
		Currency:    "usd",
	}

	t.Run("Успешная запись", func(t *testing.T) {
		repo, mock := setupPurchaseRepoMock(t)
		rows := sqlmock.NewRows([]string{"id"}).AddRow(int64(3))
		mock.ExpectQuery(insertQuery).
			WithArgs(purchase.UserID, purchase.SessionID, purchase.Plan, purchase.AmountTotal, purchase.Currency).
			WillReturnRows(rows)

		purchaseID, err := repo.CreatePurchase(context.Background(), purchase)
		require.NoError(t, err)
		assert.Equal(t, int64(3), purchaseID)
		assert.NoError(t, mock.ExpectationsWereMet(), "Не все ожидания мока были выполнены")
	})

	t.Run("Повторная сессия", func(t *testing.T) {
		repo, mock := setupPurchaseRepoMock(t)
		// Уникальность session_id: повторная доставка вебхука
		pqErr := &pq.Error{Code: "23505", Constraint: "purchases_session_id_key"}
		mock.ExpectQuery(insertQuery).
			WithArgs(purchase.UserID, purchase.SessionID, purchase.Plan, purchase.AmountTotal, purchase.Currency).
			WillReturnError(pqErr)

		_, err := repo.CreatePurchase(context.Background(), purchase)
		assert.ErrorIs(t, err, repository.ErrDuplicateSession)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Ошибка базы данных", func(t *testing.T) {
		repo, mock := setupPurchaseRepoMock(t)
		mock.ExpectQuery(insertQuery).
			WithArgs(purchase.UserID, purchase.SessionID, purchase.Plan, purchase.AmountTotal, purchase.Currency).
			WillReturnError(errors.New("database error"))

		_, err := repo.CreatePurchase(context.Background(), purchase)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ошибка выполнения запроса")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetBySessionID(t *testing.T) {
	selectQuery := regexp.QuoteMeta(`FROM purchases WHERE session_id=$1`)

	t.Run("Успешный поиск", func(t *testing.T) {
		repo, mock := setupPurchaseRepoMock(t)
		now := time.Now()
		rows := sqlmock.NewRows([]string{
			"id", "user_id", "session_id", "plan", "amount_total", "currency", "created_at",
		}).AddRow(int64(3), int64(1), "cs_test_123", "monthly", int64(499), "usd", now)
		mock.ExpectQuery(selectQuery).WithArgs("cs_test_123").WillReturnRows(rows)

		purchase, err := repo.GetBySessionID(context.Background(), "cs_test_123")
		require.NoError(t, err)
		assert.Equal(t, "monthly", purchase.Plan)
		assert.Equal(t, int64(499), purchase.AmountTotal)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Оплата не найдена", func(t *testing.T) {
		repo, mock := setupPurchaseRepoMock(t)
		mock.ExpectQuery(selectQuery).WithArgs("cs_missing").WillReturnError(sql.ErrNoRows)

		purchase, err := repo.GetBySessionID(context.Background(), "cs_missing")
		assert.Nil(t, purchase)
		assert.ErrorIs(t, err, repository.ErrPurchaseNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
