package services

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/generator"
	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/mailer"
	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/models"
	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/realtime"
	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/repository"
)

// MembershipService определяет интерфейс для сервиса участников и приглашений.
type MembershipService interface {
	Invite(inviterID, vaultID int64, email string) (*models.Invitation, error)
	AcceptInvitation(userID, invitationID int64) error
	ListMembers(userID, vaultID int64) ([]models.Member, error)
	RemoveMember(ownerID, vaultID, memberID int64) error
}

// membershipService реализует логику совместных копилок.
var _ MembershipService = (*membershipService)(nil) // Проверка соответствия интерфейсу

type membershipService struct {
	vaultRepo  repository.VaultRepository
	tileRepo   repository.TileRepository
	memberRepo repository.MembershipRepository
	inviteRepo repository.InvitationRepository
	userRepo   repository.UserRepository
	gen        *generator.Generator
	mail       mailer.Mailer
	events     realtime.Publisher
}

// NewMembershipService создает новый экземпляр сервиса участников.
func NewMembershipService(
	vaultRepo repository.VaultRepository,
	tileRepo repository.TileRepository,
	memberRepo repository.MembershipRepository,
	inviteRepo repository.InvitationRepository,
	userRepo repository.UserRepository,
	gen *generator.Generator,
	mail mailer.Mailer,
	events realtime.Publisher,
) MembershipService {
	return &membershipService{
		vaultRepo:  vaultRepo,
		tileRepo:   tileRepo,
		memberRepo: memberRepo,
		inviteRepo: inviteRepo,
		userRepo:   userRepo,
		gen:        gen,
		mail:       mail,
		events:     events,
	}
}

// Invite приглашает пользователя по email. Только владелец копилки.
// Письмо отправляется в фоне: сбой доставки не отменяет приглашение.
func (s *membershipService) Invite(inviterID, vaultID int64, email string) (*models.Invitation, error) {
	ctx := context.Background()

	vault, err := s.getVault(ctx, vaultID)
	if err != nil {
		return nil, err
	}
	if vault.OwnerID != inviterID {
		log.Printf("[MemberService] Пользователь %d не владелец копилки %d, приглашение отклонено",
			inviterID, vaultID)
		return nil, ErrAccessDenied
	}

	invitation := &models.Invitation{
		VaultID:   vaultID,
		Email:     strings.ToLower(strings.TrimSpace(email)),
		InvitedBy: inviterID,
		Status:    models.InvitationStatusPending,
	}

	invitationID, err := s.inviteRepo.CreateInvitation(ctx, invitation)
	if err != nil {
		if errors.Is(err, repository.ErrInvitationExists) {
			return nil, ErrInvitationExists
		}
		log.Printf("[MemberService] Ошибка создания приглашения в копилку %d: %v", vaultID, err)
		return nil, errors.New("внутренняя ошибка сервера при создании приглашения")
	}
	invitation.ID = invitationID

	// Письмо — fire-and-forget
	inviter, err := s.userRepo.GetUserByID(ctx, inviterID)
	if err == nil {
		go func() {
			if mailErr := s.mail.SendInvitation(invitation.Email, inviter.Username, vault.Name); mailErr != nil {
				log.Printf("[MemberService] Письмо-приглашение для '%s' не доставлено: %v",
					invitation.Email, mailErr)
			}
		}()
	}

	log.Printf("[MemberService] Приглашение %d создано: '%s' в копилку %d", invitationID, invitation.Email, vaultID)
	return invitation, nil
}

// AcceptInvitation принимает приглашение: проверяет, что email приглашения
// совпадает с email аккаунта, создает участие и генерирует набор плиток
// нового участника под текущую цель копилки.
func (s *membershipService) AcceptInvitation(userID, invitationID int64) error {
	ctx := context.Background()

	invitation, err := s.inviteRepo.GetInvitationByID(ctx, invitationID)
	if err != nil {
		if errors.Is(err, repository.ErrInvitationNotFound) {
			return ErrInvitationNotFound
		}
		return errors.New("внутренняя ошибка сервера при получении приглашения")
	}
	if invitation.Status != models.InvitationStatusPending {
		return ErrInvitationNotPending
	}

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return errors.New("внутренняя ошибка сервера при получении пользователя")
	}
	// Принять может только аккаунт с приглашенным email (регистронезависимо)
	if !strings.EqualFold(user.Email, invitation.Email) {
		log.Printf("[MemberService] Пользователь %d (%s) пытался принять чужое приглашение %d (%s)",
			userID, user.Email, invitationID, invitation.Email)
		return ErrWrongInvitedAccount
	}

	vault, err := s.getVault(ctx, invitation.VaultID)
	if err != nil {
		return err
	}

	if _, err = s.memberRepo.CreateMembership(ctx, vault.ID, userID); err != nil {
		if errors.Is(err, repository.ErrAlreadyMember) {
			return ErrAlreadyMember
		}
		log.Printf("[MemberService] Ошибка создания участия по приглашению %d: %v", invitationID, err)
		return errors.New("внутренняя ошибка сервера при присоединении")
	}

	// Свой независимый набор плиток на ту же общую цель
	amounts := s.gen.Amounts(vault.Goal)
	if err = s.tileRepo.CreateTiles(ctx, vault.ID, userID, amounts); err != nil {
		log.Printf("[MemberService] Ошибка генерации плиток нового участника %d копилки %d: %v",
			userID, vault.ID, err)
		return errors.New("внутренняя ошибка сервера при создании плиток")
	}

	if err = s.inviteRepo.MarkAccepted(ctx, invitationID); err != nil {
		log.Printf("[MemberService] Ошибка отметки приглашения %d принятым: %v", invitationID, err)
		return errors.New("внутренняя ошибка сервера при принятии приглашения")
	}

	s.events.Publish(vault.ID, realtime.Event{
		Table: "tiles",
		Type:  realtime.EventInsert,
		Payload: map[string]int64{
			"vault_id": vault.ID,
			"user_id":  userID,
		},
	})

	log.Printf("[MemberService] Пользователь %d присоединился к копилке %d по приглашению %d (%d плиток)",
		userID, vault.ID, invitationID, len(amounts))
	return nil
}

// ListMembers возвращает участников копилки. Доступ только участникам.
func (s *membershipService) ListMembers(userID, vaultID int64) ([]models.Member, error) {
	ctx := context.Background()

	if _, err := s.getVault(ctx, vaultID); err != nil {
		return nil, err
	}
	isMember, err := s.memberRepo.IsMember(ctx, vaultID, userID)
	if err != nil {
		return nil, errors.New("внутренняя ошибка сервера при проверке участия")
	}
	if !isMember {
		return nil, ErrAccessDenied
	}

	members, err := s.memberRepo.ListMembersByVault(ctx, vaultID)
	if err != nil {
		return nil, errors.New("внутренняя ошибка сервера при получении участников")
	}
	return members, nil
}

// RemoveMember исключает участника: удаляются участие, его плитки
// и приглашение. Только владелец; владельца исключить нельзя.
func (s *membershipService) RemoveMember(ownerID, vaultID, memberID int64) error {
	ctx := context.Background()

	vault, err := s.getVault(ctx, vaultID)
	if err != nil {
		return err
	}
	if vault.OwnerID != ownerID {
		return ErrAccessDenied
	}
	if memberID == vault.OwnerID {
		return ErrCannotRemoveOwner
	}

	if err = s.memberRepo.DeleteMembership(ctx, vaultID, memberID); err != nil {
		if errors.Is(err, repository.ErrMembershipNotFound) {
			return ErrMembershipNotFound
		}
		log.Printf("[MemberService] Ошибка удаления участия %d в копилке %d: %v", memberID, vaultID, err)
		return errors.New("внутренняя ошибка сервера при исключении участника")
	}
	if err = s.tileRepo.DeleteTilesByMember(ctx, vaultID, memberID); err != nil {
		log.Printf("[MemberService] Ошибка удаления плиток участника %d копилки %d: %v", memberID, vaultID, err)
		return errors.New("внутренняя ошибка сервера при удалении плиток участника")
	}

	// Приглашение удаляем по email исключенного участника (если он еще существует)
	if member, userErr := s.userRepo.GetUserByID(ctx, memberID); userErr == nil {
		if err = s.inviteRepo.DeleteByVaultAndEmail(ctx, vaultID, strings.ToLower(member.Email)); err != nil {
			log.Printf("[MemberService] Ошибка удаления приглашения участника %d: %v", memberID, err)
		}
	}

	s.events.Publish(vaultID, realtime.Event{
		Table: "tiles",
		Type:  realtime.EventDelete,
		Payload: map[string]int64{
			"vault_id": vaultID,
			"user_id":  memberID,
		},
	})

	log.Printf("[MemberService] Участник %d исключен из копилки %d владельцем %d", memberID, vaultID, ownerID)
	return nil
}

func (s *membershipService) getVault(ctx context.Context, vaultID int64) (*models.Vault, error) {
	vault, err := s.vaultRepo.GetVaultByID(ctx, vaultID)
	if err != nil {
		if errors.Is(err, repository.ErrVaultNotFound) {
			return nil, ErrVaultNotFound
		}
		log.Printf("[MemberService] Ошибка репозитория при получении копилки %d: %v", vaultID, err)
		return nil, errors.New("внутренняя ошибка сервера при получении копилки")
	}
	return vault, nil
}

// Кастомные ошибки сервиса участников.
var (
	ErrInvitationNotFound   = errors.New("приглашение не найдено")
	ErrInvitationExists     = errors.New("приглашение уже отправлено")
	ErrInvitationNotPending = errors.New("приглашение уже использовано")
	ErrWrongInvitedAccount  = errors.New("приглашение выдано другому аккаунту")
	ErrAlreadyMember        = errors.New("пользователь уже участник копилки")
	ErrMembershipNotFound   = errors.New("участие не найдено")
	ErrCannotRemoveOwner    = errors.New("владельца нельзя исключить из копилки")
)
