package services_test

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/generator"
	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/models"
	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/repository"
	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/services"
	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/streak"
)

// Вспомогательная сборка сервиса копилок с моками.
type vaultServiceMocks struct {
	vaultRepo  *MockVaultRepository
	tileRepo   *MockTileRepository
	memberRepo *MockMembershipRepository
	events     *recordingPublisher
}

func newVaultService(t *testing.T) (services.VaultService, *vaultServiceMocks) {
	t.Helper()
	m := &vaultServiceMocks{
		vaultRepo:  new(MockVaultRepository),
		tileRepo:   new(MockTileRepository),
		memberRepo: new(MockMembershipRepository),
		events:     &recordingPublisher{},
	}
	gen := generator.New(rand.NewSource(1))
	svc := services.NewVaultService(m.vaultRepo, m.tileRepo, m.memberRepo, gen, m.events)
	return svc, m
}

func TestVaultService_CreateVault(t *testing.T) {
	t.Run("Создает копилку, участие владельца и плитки на всю цель", func(t *testing.T) {
		svc, m := newVaultService(t)
		req := models.CreateVaultRequest{Name: "Отпуск", Goal: 500, Frequency: streak.Daily}
		created := &models.Vault{ID: 7, OwnerID: 1, Name: "Отпуск", Goal: 500, Frequency: streak.Daily}

		m.vaultRepo.On("CreateVault", mock.Anything, mock.AnythingOfType("*models.Vault")).
			Return(int64(7), nil).Once()
		m.memberRepo.On("CreateMembership", mock.Anything, int64(7), int64(1)).
			Return(int64(1), nil).Once()
		// Сумма сгенерированных плиток обязана равняться цели
		m.tileRepo.On("CreateTiles", mock.Anything, int64(7), int64(1),
			mock.MatchedBy(func(amounts []int64) bool {
				var sum int64
				for _, a := range amounts {
					sum += a
				}
				return sum == 500 && len(amounts) > 0
			})).Return(nil).Once()
		m.vaultRepo.On("GetVaultByID", mock.Anything, int64(7)).Return(created, nil).Once()

		vault, err := svc.CreateVault(1, req)
		require.NoError(t, err)
		assert.Equal(t, int64(7), vault.ID)

		m.vaultRepo.AssertExpectations(t)
		m.memberRepo.AssertExpectations(t)
		m.tileRepo.AssertExpectations(t)
	})

	t.Run("Ошибка репозитория при создании", func(t *testing.T) {
		svc, m := newVaultService(t)
		m.vaultRepo.On("CreateVault", mock.Anything, mock.AnythingOfType("*models.Vault")).
			Return(int64(0), errors.New("some db error")).Once()

		_, err := svc.CreateVault(1, models.CreateVaultRequest{Name: "Отпуск", Goal: 500})
		require.Error(t, err)
		m.vaultRepo.AssertExpectations(t)
	})
}

func TestVaultService_GetVault(t *testing.T) {
	vault := &models.Vault{ID: 7, OwnerID: 1, Name: "Отпуск", Goal: 500}

	t.Run("Участник получает копилку с деталями", func(t *testing.T) {
		svc, m := newVaultService(t)
		members := []models.Member{{UserID: 1, Username: "owner"}, {UserID: 2, Username: "friend"}}
		tiles := []models.Tile{{ID: 1, VaultID: 7, UserID: 1, Amount: 100, Checked: true}}

		m.vaultRepo.On("GetVaultByID", mock.Anything, int64(7)).Return(vault, nil).Once()
		m.memberRepo.On("IsMember", mock.Anything, int64(7), int64(2)).Return(true, nil).Once()
		m.memberRepo.On("ListMembersByVault", mock.Anything, int64(7)).Return(members, nil).Once()
		m.tileRepo.On("ListTilesByVault", mock.Anything, int64(7)).Return(tiles, nil).Once()
		m.tileRepo.On("SavedAmount", mock.Anything, int64(7)).Return(int64(100), nil).Once()

		details, err := svc.GetVault(2, 7)
		require.NoError(t, err)
		assert.Equal(t, int64(100), details.SavedAmount)
		assert.Len(t, details.Members, 2)
		assert.Len(t, details.Tiles, 1)
	})

	t.Run("Не участнику доступ запрещен", func(t *testing.T) {
		svc, m := newVaultService(t)
		m.vaultRepo.On("GetVaultByID", mock.Anything, int64(7)).Return(vault, nil).Once()
		m.memberRepo.On("IsMember", mock.Anything, int64(7), int64(9)).Return(false, nil).Once()

		_, err := svc.GetVault(9, 7)
		assert.ErrorIs(t, err, services.ErrAccessDenied)
	})

	t.Run("Копилка не найдена", func(t *testing.T) {
		svc, m := newVaultService(t)
		m.vaultRepo.On("GetVaultByID", mock.Anything, int64(99)).
			Return(nil, repository.ErrVaultNotFound).Once()

		_, err := svc.GetVault(1, 99)
		assert.ErrorIs(t, err, services.ErrVaultNotFound)
	})
}

func TestVaultService_ToggleTile(t *testing.T) {
	now := time.Now()

	t.Run("Отметка своей плитки двигает серию", func(t *testing.T) {
		svc, m := newVaultService(t)
		tile := &models.Tile{ID: 5, VaultID: 7, UserID: 1, Amount: 25, Checked: false}
		vault := &models.Vault{ID: 7, OwnerID: 1, Goal: 500, Frequency: streak.Daily,
			CurrentStreak: 2, LongestStreak: 4}
		yesterday := now.AddDate(0, 0, -1)
		vault.LastActivityDate = &yesterday

		m.tileRepo.On("GetTileByID", mock.Anything, int64(5)).Return(tile, nil).Once()
		m.tileRepo.On("SetChecked", mock.Anything, int64(5), true).Return(&now, nil).Once()
		m.vaultRepo.On("GetVaultByID", mock.Anything, int64(7)).Return(vault, nil).Once()
		m.vaultRepo.On("UpdateStreak", mock.Anything, int64(7), 3, 4, mock.AnythingOfType("*time.Time")).
			Return(nil).Once()

		gotTile, gotVault, err := svc.ToggleTile(1, 5)
		require.NoError(t, err)
		assert.True(t, gotTile.Checked)
		assert.Equal(t, 3, gotVault.CurrentStreak)
		assert.Equal(t, 4, gotVault.LongestStreak)

		// Опубликованы события по плитке и копилке
		require.Len(t, m.events.events, 2)
		assert.Equal(t, "tiles", m.events.events[0].event.Table)
		assert.Equal(t, "vaults", m.events.events[1].event.Table)

		m.vaultRepo.AssertExpectations(t)
		m.tileRepo.AssertExpectations(t)
	})

	t.Run("Снятие отметки серию не трогает", func(t *testing.T) {
		svc, m := newVaultService(t)
		tile := &models.Tile{ID: 5, VaultID: 7, UserID: 1, Amount: 25, Checked: true, CheckedAt: &now}
		vault := &models.Vault{ID: 7, OwnerID: 1, Goal: 500, Frequency: streak.Daily, CurrentStreak: 3}

		m.tileRepo.On("GetTileByID", mock.Anything, int64(5)).Return(tile, nil).Once()
		m.tileRepo.On("SetChecked", mock.Anything, int64(5), false).Return(nil, nil).Once()
		m.vaultRepo.On("GetVaultByID", mock.Anything, int64(7)).Return(vault, nil).Once()

		gotTile, gotVault, err := svc.ToggleTile(1, 5)
		require.NoError(t, err)
		assert.False(t, gotTile.Checked)
		assert.Nil(t, gotTile.CheckedAt)
		assert.Equal(t, 3, gotVault.CurrentStreak)

		// UpdateStreak не вызывался
		m.vaultRepo.AssertNotCalled(t, "UpdateStreak",
			mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Чужую плитку переключить нельзя", func(t *testing.T) {
		svc, m := newVaultService(t)
		tile := &models.Tile{ID: 5, VaultID: 7, UserID: 2, Amount: 25}

		m.tileRepo.On("GetTileByID", mock.Anything, int64(5)).Return(tile, nil).Once()

		_, _, err := svc.ToggleTile(1, 5)
		assert.ErrorIs(t, err, services.ErrAccessDenied)
		m.tileRepo.AssertNotCalled(t, "SetChecked", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Плитка не найдена", func(t *testing.T) {
		svc, m := newVaultService(t)
		m.tileRepo.On("GetTileByID", mock.Anything, int64(99)).
			Return(nil, repository.ErrTileNotFound).Once()

		_, _, err := svc.ToggleTile(1, 99)
		assert.ErrorIs(t, err, services.ErrTileNotFound)
	})
}

func TestVaultService_ResetVault(t *testing.T) {
	now := time.Now()

	t.Run("Сброс без новой цели: серия в ноль, рекорд сохранен, отметки сняты", func(t *testing.T) {
		svc, m := newVaultService(t)
		vault := &models.Vault{ID: 7, OwnerID: 1, Goal: 500, Frequency: streak.Daily,
			CurrentStreak: 5, LongestStreak: 9, LastActivityDate: &now}
		after := &models.Vault{ID: 7, OwnerID: 1, Goal: 500, Frequency: streak.Daily,
			CurrentStreak: 0, LongestStreak: 9}

		m.vaultRepo.On("GetVaultByID", mock.Anything, int64(7)).Return(vault, nil).Once()
		m.vaultRepo.On("UpdateStreak", mock.Anything, int64(7), 0, 9, (*time.Time)(nil)).Return(nil).Once()
		m.tileRepo.On("UncheckAll", mock.Anything, int64(7)).Return(nil).Once()
		m.vaultRepo.On("GetVaultByID", mock.Anything, int64(7)).Return(after, nil).Once()

		updated, err := svc.ResetVault(1, 7, models.ResetVaultRequest{})
		require.NoError(t, err)
		assert.Zero(t, updated.CurrentStreak)
		assert.Equal(t, 9, updated.LongestStreak)

		m.vaultRepo.AssertExpectations(t)
		m.tileRepo.AssertExpectations(t)
	})

	t.Run("Сброс с новой целью перегенерирует плитки всех участников", func(t *testing.T) {
		svc, m := newVaultService(t)
		vault := &models.Vault{ID: 7, OwnerID: 1, Goal: 500, Frequency: streak.Daily}
		newGoal := int64(1000)
		members := []models.Member{{UserID: 1}, {UserID: 2}}

		m.vaultRepo.On("GetVaultByID", mock.Anything, int64(7)).Return(vault, nil).Once()
		m.vaultRepo.On("UpdateStreak", mock.Anything, int64(7), 0, 0, (*time.Time)(nil)).Return(nil).Once()
		m.vaultRepo.On("UpdateGoal", mock.Anything, int64(7), newGoal).Return(nil).Once()
		m.tileRepo.On("DeleteTilesByVault", mock.Anything, int64(7)).Return(nil).Once()
		m.memberRepo.On("ListMembersByVault", mock.Anything, int64(7)).Return(members, nil).Once()
		// Каждый участник получает свой набор на новую цель
		sumEquals := func(target int64) func(amounts []int64) bool {
			return func(amounts []int64) bool {
				var sum int64
				for _, a := range amounts {
					sum += a
				}
				return sum == target
			}
		}
		m.tileRepo.On("CreateTiles", mock.Anything, int64(7), int64(1),
			mock.MatchedBy(sumEquals(newGoal))).Return(nil).Once()
		m.tileRepo.On("CreateTiles", mock.Anything, int64(7), int64(2),
			mock.MatchedBy(sumEquals(newGoal))).Return(nil).Once()
		m.vaultRepo.On("GetVaultByID", mock.Anything, int64(7)).
			Return(&models.Vault{ID: 7, OwnerID: 1, Goal: newGoal}, nil).Once()

		updated, err := svc.ResetVault(1, 7, models.ResetVaultRequest{NewGoal: &newGoal})
		require.NoError(t, err)
		assert.Equal(t, newGoal, updated.Goal)

		m.tileRepo.AssertExpectations(t)
		m.memberRepo.AssertExpectations(t)
	})

	t.Run("Сброс не владельцем запрещен", func(t *testing.T) {
		svc, m := newVaultService(t)
		vault := &models.Vault{ID: 7, OwnerID: 1, Goal: 500}
		m.vaultRepo.On("GetVaultByID", mock.Anything, int64(7)).Return(vault, nil).Once()

		_, err := svc.ResetVault(2, 7, models.ResetVaultRequest{})
		assert.ErrorIs(t, err, services.ErrAccessDenied)
	})
}

func TestVaultService_UpdateVault(t *testing.T) {
	t.Run("Изменяются только переданные поля", func(t *testing.T) {
		svc, m := newVaultService(t)
		vault := &models.Vault{ID: 7, OwnerID: 1, Name: "Отпуск", Color: "#fff", Frequency: streak.Daily}
		newName := "Отпуск 2027"

		m.vaultRepo.On("GetVaultByID", mock.Anything, int64(7)).Return(vault, nil).Once()
		m.vaultRepo.On("UpdateVault", mock.Anything, mock.MatchedBy(func(v *models.Vault) bool {
			return v.Name == newName && v.Color == "#fff" && v.Frequency == streak.Daily
		})).Return(nil).Once()

		updated, err := svc.UpdateVault(1, 7, models.UpdateVaultRequest{Name: &newName})
		require.NoError(t, err)
		assert.Equal(t, newName, updated.Name)
		m.vaultRepo.AssertExpectations(t)
	})

	t.Run("Не владелец изменить не может", func(t *testing.T) {
		svc, m := newVaultService(t)
		vault := &models.Vault{ID: 7, OwnerID: 1}
		m.vaultRepo.On("GetVaultByID", mock.Anything, int64(7)).Return(vault, nil).Once()

		_, err := svc.UpdateVault(2, 7, models.UpdateVaultRequest{})
		assert.ErrorIs(t, err, services.ErrAccessDenied)
	})
}
