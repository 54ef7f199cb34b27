package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/middleware"
	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/models"
	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/services"
)

// MembershipHandler обрабатывает HTTP-запросы участников и приглашений.
type MembershipHandler struct {
	service services.MembershipService
}

// NewMembershipHandler создает новый экземпляр MembershipHandler.
func NewMembershipHandler(s services.MembershipService) *MembershipHandler {
	return &MembershipHandler{service: s}
}

// Invite обрабатывает POST запрос на приглашение участника по email.
func (h *MembershipHandler) Invite(w http.ResponseWriter, r *http.Request) {
	userID, vaultID, ok := requireUserAndVault(w, r, "Invite")
	if !ok {
		return
	}

	var req models.InviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[MemberHandler:Invite] Ошибка декодирования запроса: %v", err)
		http.Error(w, "Неверный формат запроса", http.StatusBadRequest)
		return
	}
	if req.Email == "" {
		http.Error(w, "Email не может быть пустым", http.StatusBadRequest)
		return
	}

	invitation, err := h.service.Invite(userID, vaultID, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrVaultNotFound):
			http.Error(w, "Копилка не найдена", http.StatusNotFound)
		case errors.Is(err, services.ErrAccessDenied):
			http.Error(w, "Доступ запрещен", http.StatusForbidden)
		case errors.Is(err, services.ErrInvitationExists):
			http.Error(w, "Приглашение уже отправлено", http.StatusConflict)
		default:
			log.Printf("[MemberHandler:Invite] Внутренняя ошибка при приглашении "+
				"в копилку %d пользователем %d: %v", vaultID, userID, err)
			http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err = json.NewEncoder(w).Encode(invitation); err != nil {
		log.Printf("[MemberHandler:Invite] Ошибка кодирования ответа: %v", err)
	}
}

// Accept обрабатывает POST запрос на принятие приглашения.
func (h *MembershipHandler) Accept(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		log.Printf("[MemberHandler:Accept] Не удалось получить userID из контекста")
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	invitationID, err := strconv.ParseInt(chi.URLParam(r, "invitationID"), 10, 64)
	if err != nil || invitationID <= 0 {
		http.Error(w, "Неверный ID приглашения", http.StatusBadRequest)
		return
	}

	if err = h.service.AcceptInvitation(userID, invitationID); err != nil {
		switch {
		case errors.Is(err, services.ErrInvitationNotFound), errors.Is(err, services.ErrVaultNotFound):
			http.Error(w, "Приглашение не найдено", http.StatusNotFound)
		case errors.Is(err, services.ErrInvitationNotPending):
			http.Error(w, "Приглашение уже использовано", http.StatusConflict)
		case errors.Is(err, services.ErrWrongInvitedAccount):
			log.Printf("[MemberHandler:Accept] Пользователь %d пытался принять чужое приглашение %d",
				userID, invitationID)
			http.Error(w, "Приглашение выдано другому аккаунту", http.StatusForbidden)
		case errors.Is(err, services.ErrAlreadyMember):
			http.Error(w, "Вы уже участник копилки", http.StatusConflict)
		default:
			log.Printf("[MemberHandler:Accept] Внутренняя ошибка при принятии "+
				"приглашения %d пользователем %d: %v", invitationID, userID, err)
			http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent) // 204 No Content
	log.Printf("[MemberHandler:Accept] Приглашение %d принято пользователем %d", invitationID, userID)
}

// Members обрабатывает GET запрос на список участников копилки.
func (h *MembershipHandler) Members(w http.ResponseWriter, r *http.Request) {
	userID, vaultID, ok := requireUserAndVault(w, r, "Members")
	if !ok {
		return
	}

	members, err := h.service.ListMembers(userID, vaultID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrVaultNotFound):
			http.Error(w, "Копилка не найдена", http.StatusNotFound)
		case errors.Is(err, services.ErrAccessDenied):
			http.Error(w, "Доступ запрещен", http.StatusForbidden)
		default:
			log.Printf("[MemberHandler:Members] Внутренняя ошибка при получении "+
				"участников копилки %d: %v", vaultID, err)
			http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err = json.NewEncoder(w).Encode(members); err != nil {
		log.Printf("[MemberHandler:Members] Ошибка кодирования ответа: %v", err)
	}
}

// Remove обрабатывает DELETE запрос на исключение участника.
func (h *MembershipHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, vaultID, ok := requireUserAndVault(w, r, "Remove")
	if !ok {
		return
	}

	memberID, err := strconv.ParseInt(chi.URLParam(r, "memberID"), 10, 64)
	if err != nil || memberID <= 0 {
		http.Error(w, "Неверный ID участника", http.StatusBadRequest)
		return
	}

	if err = h.service.RemoveMember(userID, vaultID, memberID); err != nil {
		switch {
		case errors.Is(err, services.ErrVaultNotFound):
			http.Error(w, "Копилка не найдена", http.StatusNotFound)
		case errors.Is(err, services.ErrMembershipNotFound):
			http.Error(w, "Участие не найдено", http.StatusNotFound)
		case errors.Is(err, services.ErrAccessDenied):
			http.Error(w, "Доступ запрещен", http.StatusForbidden)
		case errors.Is(err, services.ErrCannotRemoveOwner):
			http.Error(w, "Владельца нельзя исключить из копилки", http.StatusConflict)
		default:
			log.Printf("[MemberHandler:Remove] Внутренняя ошибка при исключении "+
				"участника %d из копилки %d: %v", memberID, vaultID, err)
			http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent) // 204 No Content
	log.Printf("[MemberHandler:Remove] Участник %d исключен из копилки %d пользователем %d",
		memberID, vaultID, userID)
}

// requireUserAndVault извлекает ID пользователя из контекста и ID копилки из URL.
func requireUserAndVault(w http.ResponseWriter, r *http.Request, op string) (int64, int64, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		log.Printf("[MemberHandler:%s] Не удалось получить userID из контекста", op)
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return 0, 0, false
	}

	vaultID, err := strconv.ParseInt(chi.URLParam(r, "vaultID"), 10, 64)
	if err != nil || vaultID <= 0 {
		http.Error(w, "Неверный ID копилки", http.StatusBadRequest)
		return 0, 0, false
	}
	return userID, vaultID, true
}
