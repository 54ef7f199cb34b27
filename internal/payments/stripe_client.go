// Package payments реализует платежный шлюз поверх Stripe Checkout.
package payments

import (
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// Поддерживаемые планы.
const (
	PlanMonthly  = "monthly"
	PlanYearly   = "yearly"
	PlanLifetime = "lifetime" // Разовый платеж, а не подписка
)

// CheckoutClient определяет интерфейс платежного шлюза.
type CheckoutClient interface {
	CreateCheckoutSession(userID int64, plan string) (string, error)
	ParseWebhookEvent(payload []byte, signature string) (*stripe.Event, error)
}

// StripeConfig содержит параметры для подключения к Stripe.
type StripeConfig struct {
	APIKey        string            // Секретный API-ключ
	WebhookSecret string            // Секрет подписи вебхуков
	Prices        map[string]string // План -> идентификатор цены Stripe
	SuccessURL    string            // Куда вернуть пользователя после оплаты
	CancelURL     string            // Куда вернуть при отмене
}

// StripeClient реализует CheckoutClient для Stripe.
type StripeClient struct {
	api *client.API
	cfg StripeConfig
}

// Проверка соответствия интерфейсу.
var _ CheckoutClient = (*StripeClient)(nil)

// NewStripeClient создает новый клиент Stripe.
func NewStripeClient(cfg StripeConfig) *StripeClient {
	api := &client.API{}
	api.Init(cfg.APIKey, nil)

	log.Println("[Stripe] Клиент Stripe инициализирован")
	return &StripeClient{api: api, cfg: cfg}
}

// CreateCheckoutSession создает платежную сессию для плана и возвращает
// URL для перенаправления. ID пользователя кладем в client_reference_id,
// чтобы связать вебхук завершения с аккаунтом.
func (c *StripeClient) CreateCheckoutSession(userID int64, plan string) (string, error) {
	priceID, ok := c.cfg.Prices[plan]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownPlan, plan)
	}

	mode := stripe.CheckoutSessionModeSubscription
	if plan == PlanLifetime {
		mode = stripe.CheckoutSessionModePayment
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(mode)),
		ClientReferenceID: stripe.String(strconv.FormatInt(userID, 10)),
		SuccessURL:        stripe.String(c.cfg.SuccessURL),
		CancelURL:         stripe.String(c.cfg.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{"plan": plan},
	}
	// SDK повторяет запрос при сетевых сбоях с тем же ключом,
	// поэтому сессия не создастся дважды
	params.SetIdempotencyKey(uuid.NewString())

	sess, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		log.Printf("[Stripe] Ошибка создания сессии для пользователя %d (план %s): %v", userID, plan, err)
		return "", fmt.Errorf("ошибка создания платежной сессии: %w", err)
	}

	log.Printf("[Stripe] Сессия %s создана для пользователя %d (план %s)", sess.ID, userID, plan)
	return sess.URL, nil
}

// ParseWebhookEvent проверяет подпись вебхука и разбирает событие.
func (c *StripeClient) ParseWebhookEvent(payload []byte, signature string) (*stripe.Event, error) {
	event, err := webhook.ConstructEvent(payload, signature, c.cfg.WebhookSecret)
	if err != nil {
		log.Printf("[Stripe] Ошибка проверки подписи вебхука: %v", err)
		return nil, fmt.Errorf("ошибка проверки подписи вебхука: %w", err)
	}
	return &event, nil
}

// Кастомные ошибки платежного шлюза.
var (
	ErrUnknownPlan = errors.New("неизвестный план")
)
