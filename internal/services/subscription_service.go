package services

import (
	"context"
	"errors"
	"log"

	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/mailer"
	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/repository"
)

// SubscriptionService определяет интерфейс для управления подпиской на рассылки.
type SubscriptionService interface {
	Unsubscribe(userID int64, token string) error
}

// subscriptionService реализует отписку по подписанному токену из письма.
var _ SubscriptionService = (*subscriptionService)(nil) // Проверка соответствия интерфейсу

type subscriptionService struct {
	userRepo repository.UserRepository
	tokens   *mailer.TokenSigner
}

// NewSubscriptionService создает новый экземпляр сервиса подписки.
func NewSubscriptionService(userRepo repository.UserRepository, tokens *mailer.TokenSigner) SubscriptionService {
	return &subscriptionService{userRepo: userRepo, tokens: tokens}
}

// Unsubscribe отписывает пользователя от рассылок, если токен валиден.
func (s *subscriptionService) Unsubscribe(userID int64, token string) error {
	if !s.tokens.Verify(userID, token) {
		log.Printf("[SubService] Невалидный токен отписки для пользователя %d", userID)
		return ErrInvalidUnsubscribeToken
	}

	ctx := context.Background()
	if err := s.userRepo.SetEmailOptOut(ctx, userID, true); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		log.Printf("[SubService] Ошибка отписки пользователя %d: %v", userID, err)
		return errors.New("внутренняя ошибка сервера при отписке")
	}

	log.Printf("[SubService] Пользователь %d отписан от рассылок", userID)
	return nil
}

// Кастомные ошибки сервиса подписки.
var (
	ErrInvalidUnsubscribeToken = errors.New("невалидный токен отписки")
	ErrUserNotFound            = errors.New("пользователь не найден")
)
