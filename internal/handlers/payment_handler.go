package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/stripe/stripe-go/v76"

	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/middleware"
	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/models"
	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/payments"
	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/services"
)

// Ограничение на размер тела вебхука Stripe.
const maxWebhookBody = 65536

// PaymentHandler обрабатывает HTTP-запросы, связанные с оплатой.
type PaymentHandler struct {
	service  services.PaymentService
	checkout payments.CheckoutClient
}

// NewPaymentHandler создает новый экземпляр PaymentHandler.
func NewPaymentHandler(s services.PaymentService, checkout payments.CheckoutClient) *PaymentHandler {
	return &PaymentHandler{service: s, checkout: checkout}
}

// Checkout обрабатывает POST запрос на создание платежной сессии.
func (h *PaymentHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		log.Printf("[PaymentHandler:Checkout] Не удалось получить userID из контекста")
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	var req models.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[PaymentHandler:Checkout] Ошибка декодирования запроса: %v", err)
		http.Error(w, "Неверный формат запроса", http.StatusBadRequest)
		return
	}

	url, err := h.service.CreateCheckout(userID, req.Plan)
	if err != nil {
		if errors.Is(err, services.ErrUnknownPlan) {
			http.Error(w, "Неизвестный план", http.StatusBadRequest)
		} else {
			log.Printf("[PaymentHandler:Checkout] Внутренняя ошибка при создании "+
				"платежной сессии для пользователя %d: %v", userID, err)
			http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err = json.NewEncoder(w).Encode(models.CheckoutResponse{URL: url}); err != nil {
		log.Printf("[PaymentHandler:Checkout] Ошибка кодирования ответа: %v", err)
	}
}

// Webhook обрабатывает вебхуки Stripe. Подпись проверяется до разбора;
// незнакомые типы событий подтверждаются без обработки, чтобы Stripe
// не повторял доставку.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		log.Printf("[PaymentHandler:Webhook] Ошибка чтения тела вебхука: %v", err)
		http.Error(w, "Ошибка чтения запроса", http.StatusBadRequest)
		return
	}

	event, err := h.checkout.ParseWebhookEvent(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		log.Printf("[PaymentHandler:Webhook] Неверная подпись вебхука: %v", err)
		http.Error(w, "Неверная подпись", http.StatusBadRequest)
		return
	}

	if event.Type != "checkout.session.completed" {
		log.Printf("[PaymentHandler:Webhook] Событие '%s' пропущено", event.Type)
		w.WriteHeader(http.StatusOK)
		return
	}

	var session stripe.CheckoutSession
	if err = json.Unmarshal(event.Data.Raw, &session); err != nil {
		log.Printf("[PaymentHandler:Webhook] Ошибка разбора сессии из события: %v", err)
		http.Error(w, "Неверный формат события", http.StatusBadRequest)
		return
	}

	userID, err := strconv.ParseInt(session.ClientReferenceID, 10, 64)
	if err != nil {
		log.Printf("[PaymentHandler:Webhook] Неверный client_reference_id '%s' в сессии %s",
			session.ClientReferenceID, session.ID)
		http.Error(w, "Неверный формат события", http.StatusBadRequest)
		return
	}

	err = h.service.RecordCompletedCheckout(
		session.ID, userID, session.Metadata["plan"], session.AmountTotal, string(session.Currency))
	if err != nil {
		log.Printf("[PaymentHandler:Webhook] Внутренняя ошибка записи оплаты по сессии %s: %v", session.ID, err)
		// Не 2xx: Stripe повторит доставку позже
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	log.Printf("[PaymentHandler:Webhook] Оплата по сессии %s обработана", session.ID)
}
