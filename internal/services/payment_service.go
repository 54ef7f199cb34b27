package services

import (
	"context"
	"errors"
	"log"

	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/models"
	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/payments"
	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/repository"
)

// PaymentService определяет интерфейс для сервиса оплат.
type PaymentService interface {
	CreateCheckout(userID int64, plan string) (string, error)
	// RecordCompletedCheckout идемпотентно записывает завершенную оплату:
	// повторная доставка вебхука с той же сессией игнорируется.
	RecordCompletedCheckout(sessionID string, userID int64, plan string, amountTotal int64, currency string) error
}

// paymentService реализует логику оплат.
var _ PaymentService = (*paymentService)(nil) // Проверка соответствия интерфейсу

type paymentService struct {
	purchaseRepo repository.PurchaseRepository
	checkout     payments.CheckoutClient
}

// NewPaymentService создает новый экземпляр сервиса оплат.
func NewPaymentService(purchaseRepo repository.PurchaseRepository, checkout payments.CheckoutClient) PaymentService {
	return &paymentService{purchaseRepo: purchaseRepo, checkout: checkout}
}

// CreateCheckout создает платежную сессию и возвращает URL перенаправления.
func (s *paymentService) CreateCheckout(userID int64, plan string) (string, error) {
	url, err := s.checkout.CreateCheckoutSession(userID, plan)
	if err != nil {
		if errors.Is(err, payments.ErrUnknownPlan) {
			return "", ErrUnknownPlan
		}
		log.Printf("[PaymentService] Ошибка создания платежной сессии для пользователя %d: %v", userID, err)
		return "", errors.New("внутренняя ошибка сервера при создании платежной сессии")
	}
	return url, nil
}

// RecordCompletedCheckout записывает оплату по завершенной сессии.
// Дубликат обнаруживается по существующей записи с тем же session_id.
func (s *paymentService) RecordCompletedCheckout(
	sessionID string,
	userID int64,
	plan string,
	amountTotal int64,
	currency string,
) error {
	ctx := context.Background()

	// Проверка на повторную доставку вебхука
	if _, err := s.purchaseRepo.GetBySessionID(ctx, sessionID); err == nil {
		log.Printf("[PaymentService] Повторная доставка вебхука для сессии '%s', игнорируем", sessionID)
		return nil
	} else if !errors.Is(err, repository.ErrPurchaseNotFound) {
		return errors.New("внутренняя ошибка сервера при проверке оплаты")
	}

	purchase := &models.Purchase{
		UserID:      userID,
		SessionID:   sessionID,
		Plan:        plan,
		AmountTotal: amountTotal,
		Currency:    currency,
	}
	if _, err := s.purchaseRepo.CreatePurchase(ctx, purchase); err != nil {
		// Гонка двух одновременных доставок: вторая вставка упирается
		// в уникальность session_id, это тоже не ошибка
		if errors.Is(err, repository.ErrDuplicateSession) {
			log.Printf("[PaymentService] Сессия '%s' уже записана конкурентной доставкой", sessionID)
			return nil
		}
		log.Printf("[PaymentService] Ошибка записи оплаты (сессия '%s'): %v", sessionID, err)
		return errors.New("внутренняя ошибка сервера при записи оплаты")
	}

	log.Printf("[PaymentService] Оплата по сессии '%s' записана для пользователя %d (план %s)",
		sessionID, userID, plan)
	return nil
}

// Кастомные ошибки сервиса оплат.
var (
	ErrUnknownPlan = errors.New("неизвестный план")
)
