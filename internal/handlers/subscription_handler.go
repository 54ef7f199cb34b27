package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/services"
)

// SubscriptionHandler обрабатывает отписку от рассылок по ссылке из письма.
type SubscriptionHandler struct {
	service services.SubscriptionService
}

// NewSubscriptionHandler создает новый экземпляр SubscriptionHandler.
func NewSubscriptionHandler(s services.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{service: s}
}

// Unsubscribe обрабатывает GET запрос по ссылке отписки.
// Эндпоинт без аутентификации: право подтверждается подписанным токеном.
func (h *SubscriptionHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	uid, err := strconv.ParseInt(r.URL.Query().Get("uid"), 10, 64)
	if err != nil || uid <= 0 {
		http.Error(w, "Неверная ссылка отписки", http.StatusBadRequest)
		return
	}
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Неверная ссылка отписки", http.StatusBadRequest)
		return
	}

	if err = h.service.Unsubscribe(uid, token); err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidUnsubscribeToken):
			log.Printf("[SubHandler] Невалидный токен отписки для пользователя %d", uid)
			http.Error(w, "Неверная ссылка отписки", http.StatusForbidden)
		case errors.Is(err, services.ErrUserNotFound):
			http.Error(w, "Пользователь не найден", http.StatusNotFound)
		default:
			log.Printf("[SubHandler] Внутренняя ошибка при отписке пользователя %d: %v", uid, err)
			http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Вы отписаны от рассылок Копилки\n"))
	log.Printf("[SubHandler] Пользователь %d отписан от рассылок", uid)
}
