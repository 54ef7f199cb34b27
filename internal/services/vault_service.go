package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/generator"
	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/models"
	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/realtime"
	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/repository"
	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/streak"
)

// Минимальная цель копилки. Проверяется на границе API; сам генератор
// разбивки минимум не навязывает.
const MinGoal = 10

// VaultService определяет интерфейс для сервиса работы с копилками.
type VaultService interface {
	CreateVault(ownerID int64, req models.CreateVaultRequest) (*models.Vault, error)
	ListVaults(userID int64) ([]models.VaultSummary, error)
	GetVault(userID, vaultID int64) (*models.VaultDetails, error)
	UpdateVault(userID, vaultID int64, req models.UpdateVaultRequest) (*models.Vault, error)
	DeleteVault(userID, vaultID int64) error
	ResetVault(userID, vaultID int64, req models.ResetVaultRequest) (*models.Vault, error)
	ToggleTile(userID, tileID int64) (*models.Tile, *models.Vault, error)
	IsMember(userID, vaultID int64) (bool, error)
}

// vaultService реализует логику работы с копилками.
var _ VaultService = (*vaultService)(nil) // Проверка соответствия интерфейсу

type vaultService struct {
	vaultRepo  repository.VaultRepository
	tileRepo   repository.TileRepository
	memberRepo repository.MembershipRepository
	gen        *generator.Generator
	events     realtime.Publisher
}

// NewVaultService создает новый экземпляр сервиса копилок.
func NewVaultService(
	vaultRepo repository.VaultRepository,
	tileRepo repository.TileRepository,
	memberRepo repository.MembershipRepository,
	gen *generator.Generator,
	events realtime.Publisher,
) VaultService {
	return &vaultService{
		vaultRepo:  vaultRepo,
		tileRepo:   tileRepo,
		memberRepo: memberRepo,
		gen:        gen,
		events:     events,
	}
}

// CreateVault создает копилку: запись копилки, участие владельца и его
// набор плиток одним пакетом. Владелец — обычный участник со своей
// записью, агрегация при чтении его не выделяет.
func (s *vaultService) CreateVault(ownerID int64, req models.CreateVaultRequest) (*models.Vault, error) {
	ctx := context.Background()

	vault := &models.Vault{
		OwnerID:   ownerID,
		Name:      req.Name,
		Goal:      req.Goal,
		Color:     req.Color,
		Frequency: req.Frequency,
	}

	vaultID, err := s.vaultRepo.CreateVault(ctx, vault)
	if err != nil {
		log.Printf("[VaultService] Ошибка создания копилки для пользователя %d: %v", ownerID, err)
		return nil, errors.New("внутренняя ошибка сервера при создании копилки")
	}
	vault.ID = vaultID

	if _, err = s.memberRepo.CreateMembership(ctx, vaultID, ownerID); err != nil {
		log.Printf("[VaultService] Ошибка создания участия владельца %d в копилке %d: %v", ownerID, vaultID, err)
		return nil, errors.New("внутренняя ошибка сервера при создании копилки")
	}

	// Разбиваем цель на плитки владельца
	amounts := s.gen.Amounts(req.Goal)
	if err = s.tileRepo.CreateTiles(ctx, vaultID, ownerID, amounts); err != nil {
		log.Printf("[VaultService] Ошибка генерации плиток копилки %d: %v", vaultID, err)
		return nil, errors.New("внутренняя ошибка сервера при создании плиток")
	}

	created, err := s.vaultRepo.GetVaultByID(ctx, vaultID)
	if err != nil {
		return nil, errors.New("внутренняя ошибка сервера при чтении копилки")
	}

	log.Printf("[VaultService] Копилка %d ('%s', цель %d) создана, %d плиток",
		vaultID, req.Name, req.Goal, len(amounts))
	return created, nil
}

// ListVaults возвращает копилки пользователя с агрегированным прогрессом.
func (s *vaultService) ListVaults(userID int64) ([]models.VaultSummary, error) {
	ctx := context.Background()

	vaults, err := s.vaultRepo.ListVaultsByUserID(ctx, userID)
	if err != nil {
		log.Printf("[VaultService] Ошибка получения списка копилок пользователя %d: %v", userID, err)
		return nil, errors.New("внутренняя ошибка сервера при получении списка копилок")
	}
	return vaults, nil
}

// GetVault возвращает копилку с участниками и плитками всех участников.
// Доступ только участникам.
func (s *vaultService) GetVault(userID, vaultID int64) (*models.VaultDetails, error) {
	ctx := context.Background()

	vault, err := s.requireMemberVault(ctx, userID, vaultID)
	if err != nil {
		return nil, err
	}

	members, err := s.memberRepo.ListMembersByVault(ctx, vaultID)
	if err != nil {
		return nil, errors.New("внутренняя ошибка сервера при получении участников")
	}
	tiles, err := s.tileRepo.ListTilesByVault(ctx, vaultID)
	if err != nil {
		return nil, errors.New("внутренняя ошибка сервера при получении плиток")
	}
	saved, err := s.tileRepo.SavedAmount(ctx, vaultID)
	if err != nil {
		return nil, errors.New("внутренняя ошибка сервера при подсчете прогресса")
	}

	return &models.VaultDetails{
		Vault:       *vault,
		SavedAmount: saved,
		Members:     members,
		Tiles:       tiles,
	}, nil
}

// UpdateVault изменяет название, цвет или каданс. Только владелец.
func (s *vaultService) UpdateVault(userID, vaultID int64, req models.UpdateVaultRequest) (*models.Vault, error) {
	ctx := context.Background()

	vault, err := s.requireOwnerVault(ctx, userID, vaultID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		vault.Name = *req.Name
	}
	if req.Color != nil {
		vault.Color = *req.Color
	}
	if req.Frequency != nil {
		vault.Frequency = *req.Frequency
	}

	if err = s.vaultRepo.UpdateVault(ctx, vault); err != nil {
		log.Printf("[VaultService] Ошибка обновления копилки %d: %v", vaultID, err)
		return nil, errors.New("внутренняя ошибка сервера при обновлении копилки")
	}

	s.events.Publish(vaultID, realtime.Event{Table: "vaults", Type: realtime.EventUpdate, Payload: vault})
	return vault, nil
}

// DeleteVault удаляет копилку со всем содержимым. Только владелец.
func (s *vaultService) DeleteVault(userID, vaultID int64) error {
	ctx := context.Background()

	vault, err := s.requireOwnerVault(ctx, userID, vaultID)
	if err != nil {
		return err
	}

	if err = s.vaultRepo.DeleteVault(ctx, vaultID); err != nil {
		log.Printf("[VaultService] Ошибка удаления копилки %d: %v", vaultID, err)
		return errors.New("внутренняя ошибка сервера при удалении копилки")
	}

	s.events.Publish(vaultID, realtime.Event{Table: "vaults", Type: realtime.EventDelete, Payload: vault})
	log.Printf("[VaultService] Копилка %d удалена владельцем %d", vaultID, userID)
	return nil
}

// ResetVault сбрасывает копилку: текущая серия в 0, дата активности
// очищается, рекорд не трогается, отметки всех плиток снимаются.
// При новой цели наборы плиток всех участников перегенерируются.
// Только владелец.
func (s *vaultService) ResetVault(userID, vaultID int64, req models.ResetVaultRequest) (*models.Vault, error) {
	ctx := context.Background()

	vault, err := s.requireOwnerVault(ctx, userID, vaultID)
	if err != nil {
		return nil, err
	}

	st := streak.Reset(streak.State{
		Current:      vault.CurrentStreak,
		Longest:      vault.LongestStreak,
		LastActivity: vault.LastActivityDate,
	})
	if err = s.vaultRepo.UpdateStreak(ctx, vaultID, st.Current, st.Longest, st.LastActivity); err != nil {
		log.Printf("[VaultService] Ошибка сброса серии копилки %d: %v", vaultID, err)
		return nil, errors.New("внутренняя ошибка сервера при сбросе серии")
	}

	if req.NewGoal != nil {
		// Новая цель: наборы плиток всех участников создаются заново
		if err = s.regenerateTiles(ctx, vaultID, *req.NewGoal); err != nil {
			return nil, err
		}
	} else if err = s.tileRepo.UncheckAll(ctx, vaultID); err != nil {
		log.Printf("[VaultService] Ошибка снятия отметок копилки %d: %v", vaultID, err)
		return nil, errors.New("внутренняя ошибка сервера при снятии отметок")
	}

	updated, err := s.vaultRepo.GetVaultByID(ctx, vaultID)
	if err != nil {
		return nil, errors.New("внутренняя ошибка сервера при чтении копилки")
	}

	s.events.Publish(vaultID, realtime.Event{Table: "vaults", Type: realtime.EventUpdate, Payload: updated})
	log.Printf("[VaultService] Копилка %d сброшена владельцем %d", vaultID, userID)
	return updated, nil
}

// ToggleTile переключает отметку плитки. Разрешено только владельцу
// плитки: наборы участников не пересекаются, поэтому одновременные
// отметки разных участников конфликтовать не могут.
// Переход unchecked -> checked запускает обновление серии (не чаще
// одного раза в календарный день); обратный переход серию не трогает.
func (s *vaultService) ToggleTile(userID, tileID int64) (*models.Tile, *models.Vault, error) {
	ctx := context.Background()

	tile, err := s.tileRepo.GetTileByID(ctx, tileID)
	if err != nil {
		if errors.Is(err, repository.ErrTileNotFound) {
			return nil, nil, ErrTileNotFound
		}
		return nil, nil, errors.New("внутренняя ошибка сервера при получении плитки")
	}
	if tile.UserID != userID {
		log.Printf("[VaultService] Пользователь %d пытался переключить чужую плитку %d", userID, tileID)
		return nil, nil, ErrAccessDenied
	}

	newChecked := !tile.Checked
	checkedAt, err := s.tileRepo.SetChecked(ctx, tileID, newChecked)
	if err != nil {
		return nil, nil, errors.New("внутренняя ошибка сервера при обновлении отметки")
	}
	tile.Checked = newChecked
	tile.CheckedAt = checkedAt

	vault, err := s.vaultRepo.GetVaultByID(ctx, tile.VaultID)
	if err != nil {
		return nil, nil, errors.New("внутренняя ошибка сервера при получении копилки")
	}

	if newChecked {
		st := streak.Apply(streak.State{
			Current:      vault.CurrentStreak,
			Longest:      vault.LongestStreak,
			LastActivity: vault.LastActivityDate,
		}, vault.Frequency, time.Now())

		if err = s.vaultRepo.UpdateStreak(ctx, vault.ID, st.Current, st.Longest, st.LastActivity); err != nil {
			log.Printf("[VaultService] Ошибка обновления серии копилки %d: %v", vault.ID, err)
			return nil, nil, errors.New("внутренняя ошибка сервера при обновлении серии")
		}
		vault.CurrentStreak = st.Current
		vault.LongestStreak = st.Longest
		vault.LastActivityDate = st.LastActivity
	}

	s.events.Publish(vault.ID, realtime.Event{Table: "tiles", Type: realtime.EventUpdate, Payload: tile})
	s.events.Publish(vault.ID, realtime.Event{Table: "vaults", Type: realtime.EventUpdate, Payload: vault})

	log.Printf("[VaultService] Плитка %d переключена пользователем %d (checked=%t)", tileID, userID, newChecked)
	return tile, vault, nil
}

// IsMember сообщает, состоит ли пользователь в копилке (для подписки на события).
func (s *vaultService) IsMember(userID, vaultID int64) (bool, error) {
	ctx := context.Background()

	ok, err := s.memberRepo.IsMember(ctx, vaultID, userID)
	if err != nil {
		return false, errors.New("внутренняя ошибка сервера при проверке участия")
	}
	return ok, nil
}

// regenerateTiles удаляет плитки всех участников и создает новые наборы
// под новую цель.
func (s *vaultService) regenerateTiles(ctx context.Context, vaultID, newGoal int64) error {
	if err := s.vaultRepo.UpdateGoal(ctx, vaultID, newGoal); err != nil {
		log.Printf("[VaultService] Ошибка обновления цели копилки %d: %v", vaultID, err)
		return errors.New("внутренняя ошибка сервера при обновлении цели")
	}
	if err := s.tileRepo.DeleteTilesByVault(ctx, vaultID); err != nil {
		log.Printf("[VaultService] Ошибка удаления плиток копилки %d: %v", vaultID, err)
		return errors.New("внутренняя ошибка сервера при удалении плиток")
	}

	members, err := s.memberRepo.ListMembersByVault(ctx, vaultID)
	if err != nil {
		return errors.New("внутренняя ошибка сервера при получении участников")
	}
	for _, member := range members {
		if err = s.tileRepo.CreateTiles(ctx, vaultID, member.UserID, s.gen.Amounts(newGoal)); err != nil {
			log.Printf("[VaultService] Ошибка перегенерации плиток участника %d копилки %d: %v",
				member.UserID, vaultID, err)
			return errors.New("внутренняя ошибка сервера при перегенерации плиток")
		}
	}

	log.Printf("[VaultService] Плитки копилки %d перегенерированы под цель %d для %d участников",
		vaultID, newGoal, len(members))
	return nil
}

// requireMemberVault возвращает копилку, если пользователь — ее участник.
func (s *vaultService) requireMemberVault(ctx context.Context, userID, vaultID int64) (*models.Vault, error) {
	vault, err := s.getVault(ctx, vaultID)
	if err != nil {
		return nil, err
	}

	isMember, err := s.memberRepo.IsMember(ctx, vaultID, userID)
	if err != nil {
		return nil, errors.New("внутренняя ошибка сервера при проверке участия")
	}
	if !isMember {
		log.Printf("[VaultService] Пользователь %d не участник копилки %d", userID, vaultID)
		return nil, ErrAccessDenied
	}
	return vault, nil
}

// requireOwnerVault возвращает копилку, если пользователь — ее владелец.
func (s *vaultService) requireOwnerVault(ctx context.Context, userID, vaultID int64) (*models.Vault, error) {
	vault, err := s.getVault(ctx, vaultID)
	if err != nil {
		return nil, err
	}
	if vault.OwnerID != userID {
		log.Printf("[VaultService] Пользователь %d не владелец копилки %d", userID, vaultID)
		return nil, ErrAccessDenied
	}
	return vault, nil
}

func (s *vaultService) getVault(ctx context.Context, vaultID int64) (*models.Vault, error) {
	vault, err := s.vaultRepo.GetVaultByID(ctx, vaultID)
	if err != nil {
		if errors.Is(err, repository.ErrVaultNotFound) {
			return nil, ErrVaultNotFound
		}
		log.Printf("[VaultService] Ошибка репозитория при получении копилки %d: %v", vaultID, err)
		return nil, errors.New("внутренняя ошибка сервера при получении копилки")
	}
	return vault, nil
}

// Кастомные ошибки сервиса.
var (
	ErrVaultNotFound = errors.New("копилка не найдена")
	ErrTileNotFound  = errors.New("плитка не найдена")
	ErrAccessDenied  = errors.New("доступ запрещен")
)
