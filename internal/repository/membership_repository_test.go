package repository_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/repository"
)

// Вспомогательная функция для создания мока БД и репозитория участников.
func setupMembershipRepoMock(t *testing.T) (repository.MembershipRepository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := repository.NewPostgresMembershipRepository(sqlxDB)
	return repo, mock
}

func TestCreateMembership(t *testing.T) {
	insertQuery := regexp.QuoteMeta(`INSERT INTO memberships (vault_id, user_id) VALUES ($1, $2) RETURNING id`)

	t.Run("Успешное создание", func(t *testing.T) {
		repo, mock := setupMembershipRepoMock(t)
		rows := sqlmock.NewRows([]string{"id"}).AddRow(int64(5))
		mock.ExpectQuery(insertQuery).WithArgs(int64(7), int64(2)).WillReturnRows(rows)

		membershipID, err := repo.CreateMembership(context.Background(), 7, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(5), membershipID)
		assert.NoError(t, mock.ExpectationsWereMet(), "Не все ожидания мока были выполнены")
	})

	t.Run("Пользователь уже участник", func(t *testing.T) {
		repo, mock := setupMembershipRepoMock(t)
		mock.ExpectQuery(insertQuery).WithArgs(int64(7), int64(2)).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "memberships_vault_id_user_id_key"})

		_, err := repo.CreateMembership(context.Background(), 7, 2)
		assert.ErrorIs(t, err, repository.ErrAlreadyMember)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Ошибка базы данных", func(t *testing.T) {
		repo, mock := setupMembershipRepoMock(t)
		mock.ExpectQuery(insertQuery).WithArgs(int64(7), int64(2)).
			WillReturnError(errors.New("database error"))

		_, err := repo.CreateMembership(context.Background(), 7, 2)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ошибка выполнения запроса")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestIsMember(t *testing.T) {
	selectQuery := regexp.QuoteMeta(`SELECT EXISTS (SELECT 1 FROM memberships WHERE vault_id=$1 AND user_id=$2)`)

	t.Run("Участник", func(t *testing.T) {
		repo, mock := setupMembershipRepoMock(t)
		rows := sqlmock.NewRows([]string{"exists"}).AddRow(true)
		mock.ExpectQuery(selectQuery).WithArgs(int64(7), int64(2)).WillReturnRows(rows)

		isMember, err := repo.IsMember(context.Background(), 7, 2)
		require.NoError(t, err)
		assert.True(t, isMember)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Не участник", func(t *testing.T) {
		repo, mock := setupMembershipRepoMock(t)
		rows := sqlmock.NewRows([]string{"exists"}).AddRow(false)
		mock.ExpectQuery(selectQuery).WithArgs(int64(7), int64(9)).WillReturnRows(rows)

		isMember, err := repo.IsMember(context.Background(), 7, 9)
		require.NoError(t, err)
		assert.False(t, isMember)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListMembersByVault(t *testing.T) {
	selectQuery := regexp.QuoteMeta(`JOIN users u ON u.id = m.user_id`)

	t.Run("Участники с личным прогрессом", func(t *testing.T) {
		repo, mock := setupMembershipRepoMock(t)
		now := time.Now()
		rows := sqlmock.NewRows([]string{"user_id", "username", "email", "joined_at", "saved_amount"}).
			AddRow(int64(1), "owner", "owner@example.com", now, int64(135)).
			AddRow(int64(2), "friend", "friend@example.com", now, int64(0))
		mock.ExpectQuery(selectQuery).WithArgs(int64(7)).WillReturnRows(rows)

		members, err := repo.ListMembersByVault(context.Background(), 7)
		require.NoError(t, err)
		require.Len(t, members, 2)
		assert.Equal(t, "owner", members[0].Username)
		assert.Equal(t, int64(135), members[0].SavedAmount)
		assert.Equal(t, int64(0), members[1].SavedAmount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Ошибка базы данных", func(t *testing.T) {
		repo, mock := setupMembershipRepoMock(t)
		mock.ExpectQuery(selectQuery).WithArgs(int64(7)).WillReturnError(errors.New("database error"))

		_, err := repo.ListMembersByVault(context.Background(), 7)
		require.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDeleteMembership(t *testing.T) {
	deleteQuery := regexp.QuoteMeta(`DELETE FROM memberships WHERE vault_id=$1 AND user_id=$2`)

	t.Run("Успешное удаление", func(t *testing.T) {
		repo, mock := setupMembershipRepoMock(t)
		mock.ExpectExec(deleteQuery).WithArgs(int64(7), int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.DeleteMembership(context.Background(), 7, 2)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Участие не найдено", func(t *testing.T) {
		repo, mock := setupMembershipRepoMock(t)
		mock.ExpectExec(deleteQuery).WithArgs(int64(7), int64(9)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.DeleteMembership(context.Background(), 7, 9)
		assert.ErrorIs(t, err, repository.ErrMembershipNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
