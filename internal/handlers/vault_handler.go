package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/middleware"
	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/models"
	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/realtime"
	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/services"
)

// VaultHandler обрабатывает HTTP-запросы, связанные с копилками и плитками.
type VaultHandler struct {
	vaultService services.VaultService
	hub          *realtime.Hub
}

// NewVaultHandler создает новый экземпляр VaultHandler.
func NewVaultHandler(vs services.VaultService, hub *realtime.Hub) *VaultHandler {
	return &VaultHandler{vaultService: vs, hub: hub}
}

// Create обрабатывает POST запрос на создание копилки.
func (h *VaultHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		log.Printf("[VaultHandler:Create] Не удалось получить userID из контекста")
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	var req models.CreateVaultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[VaultHandler:Create] Ошибка декодирования запроса: %v", err)
		http.Error(w, "Неверный формат запроса", http.StatusBadRequest)
		return
	}

	if req.Name == "" {
		http.Error(w, "Название копилки не может быть пустым", http.StatusBadRequest)
		return
	}
	if req.Goal < services.MinGoal {
		http.Error(w, "Цель копилки не может быть меньше "+strconv.Itoa(services.MinGoal), http.StatusBadRequest)
		return
	}
	if !req.Frequency.Valid() {
		http.Error(w, "Неверный каданс копилки", http.StatusBadRequest)
		return
	}

	log.Printf("[VaultHandler:Create] Создание копилки '%s' (цель %d) пользователем %d", req.Name, req.Goal, userID)

	vault, err := h.vaultService.CreateVault(userID, req)
	if err != nil {
		log.Printf("[VaultHandler:Create] Внутренняя ошибка при создании копилки для пользователя %d: %v", userID, err)
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err = json.NewEncoder(w).Encode(vault); err != nil {
		log.Printf("[VaultHandler:Create] Ошибка кодирования ответа: %v", err)
	}
}

// List обрабатывает GET запрос на список копилок пользователя.
func (h *VaultHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		log.Printf("[VaultHandler:List] Не удалось получить userID из контекста")
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	vaults, err := h.vaultService.ListVaults(userID)
	if err != nil {
		log.Printf("[VaultHandler:List] Внутренняя ошибка при получении списка копилок пользователя %d: %v", userID, err)
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err = json.NewEncoder(w).Encode(vaults); err != nil {
		log.Printf("[VaultHandler:List] Ошибка кодирования ответа: %v", err)
	}
}

// Get обрабатывает GET запрос на копилку с участниками и плитками.
func (h *VaultHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, vaultID, ok := h.userAndVaultID(w, r, "Get")
	if !ok {
		return
	}

	details, err := h.vaultService.GetVault(userID, vaultID)
	if err != nil {
		h.writeVaultError(w, "Get", userID, vaultID, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err = json.NewEncoder(w).Encode(details); err != nil {
		log.Printf("[VaultHandler:Get] Ошибка кодирования ответа: %v", err)
	}
}

// Update обрабатывает PATCH запрос на изменение копилки.
func (h *VaultHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, vaultID, ok := h.userAndVaultID(w, r, "Update")
	if !ok {
		return
	}

	var req models.UpdateVaultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[VaultHandler:Update] Ошибка декодирования запроса: %v", err)
		http.Error(w, "Неверный формат запроса", http.StatusBadRequest)
		return
	}
	if req.Name != nil && *req.Name == "" {
		http.Error(w, "Название копилки не может быть пустым", http.StatusBadRequest)
		return
	}
	if req.Frequency != nil && !req.Frequency.Valid() {
		http.Error(w, "Неверный каданс копилки", http.StatusBadRequest)
		return
	}

	vault, err := h.vaultService.UpdateVault(userID, vaultID, req)
	if err != nil {
		h.writeVaultError(w, "Update", userID, vaultID, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err = json.NewEncoder(w).Encode(vault); err != nil {
		log.Printf("[VaultHandler:Update] Ошибка кодирования ответа: %v", err)
	}
}

// Delete обрабатывает DELETE запрос на удаление копилки.
func (h *VaultHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, vaultID, ok := h.userAndVaultID(w, r, "Delete")
	if !ok {
		return
	}

	if err := h.vaultService.DeleteVault(userID, vaultID); err != nil {
		h.writeVaultError(w, "Delete", userID, vaultID, err)
		return
	}

	w.WriteHeader(http.StatusNoContent) // 204 No Content
	log.Printf("[VaultHandler:Delete] Копилка %d удалена пользователем %d", vaultID, userID)
}

// Reset обрабатывает POST запрос на сброс копилки. Тело опционально
// содержит новую цель; тогда плитки перегенерируются.
func (h *VaultHandler) Reset(w http.ResponseWriter, r *http.Request) {
	userID, vaultID, ok := h.userAndVaultID(w, r, "Reset")
	if !ok {
		return
	}

	var req models.ResetVaultRequest
	// Пустое тело допустимо: сброс без смены цели
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		log.Printf("[VaultHandler:Reset] Ошибка декодирования запроса: %v", err)
		http.Error(w, "Неверный формат запроса", http.StatusBadRequest)
		return
	}
	if req.NewGoal != nil && *req.NewGoal < services.MinGoal {
		http.Error(w, "Цель копилки не может быть меньше "+strconv.Itoa(services.MinGoal), http.StatusBadRequest)
		return
	}

	vault, err := h.vaultService.ResetVault(userID, vaultID, req)
	if err != nil {
		h.writeVaultError(w, "Reset", userID, vaultID, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err = json.NewEncoder(w).Encode(vault); err != nil {
		log.Printf("[VaultHandler:Reset] Ошибка кодирования ответа: %v", err)
	}
}

// ToggleResponse представляет ответ на переключение плитки.
type ToggleResponse struct {
	Tile  *models.Tile  `json:"tile"`
	Vault *models.Vault `json:"vault"`
}

// ToggleTile обрабатывает POST запрос на переключение отметки плитки.
func (h *VaultHandler) ToggleTile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		log.Printf("[VaultHandler:ToggleTile] Не удалось получить userID из контекста")
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	tileID, err := strconv.ParseInt(chi.URLParam(r, "tileID"), 10, 64)
	if err != nil || tileID <= 0 {
		http.Error(w, "Неверный ID плитки", http.StatusBadRequest)
		return
	}

	tile, vault, err := h.vaultService.ToggleTile(userID, tileID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTileNotFound):
			log.Printf("[VaultHandler:ToggleTile] Плитка %d не найдена (пользователь %d)", tileID, userID)
			http.Error(w, "Плитка не найдена", http.StatusNotFound)
		case errors.Is(err, services.ErrAccessDenied):
			log.Printf("[VaultHandler:ToggleTile] Пользователь %d пытался переключить чужую плитку %d", userID, tileID)
			http.Error(w, "Доступ запрещен", http.StatusForbidden)
		default:
			log.Printf("[VaultHandler:ToggleTile] Внутренняя ошибка при переключении "+
				"плитки %d пользователем %d: %v", tileID, userID, err)
			http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err = json.NewEncoder(w).Encode(ToggleResponse{Tile: tile, Vault: vault}); err != nil {
		log.Printf("[VaultHandler:ToggleTile] Ошибка кодирования ответа: %v", err)
	}
}

// Events обрабатывает GET запрос на подписку на события копилки (WebSocket).
func (h *VaultHandler) Events(w http.ResponseWriter, r *http.Request) {
	userID, vaultID, ok := h.userAndVaultID(w, r, "Events")
	if !ok {
		return
	}

	isMember, err := h.vaultService.IsMember(userID, vaultID)
	if err != nil {
		log.Printf("[VaultHandler:Events] Внутренняя ошибка при проверке участия "+
			"пользователя %d в копилке %d: %v", userID, vaultID, err)
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}
	if !isMember {
		log.Printf("[VaultHandler:Events] Пользователь %d не участник копилки %d", userID, vaultID)
		http.Error(w, "Доступ запрещен", http.StatusForbidden)
		return
	}

	// Блокируется до закрытия соединения клиентом
	h.hub.ServeVault(vaultID, w, r)
}

// userAndVaultID извлекает ID пользователя из контекста и ID копилки из URL.
func (h *VaultHandler) userAndVaultID(w http.ResponseWriter, r *http.Request, op string) (int64, int64, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		log.Printf("[VaultHandler:%s] Не удалось получить userID из контекста", op)
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

// writeVaultError переводит ошибки сервиса копилок в HTTP-статусы.
func (h *VaultHandler) writeVaultError(w http.ResponseWriter, op string, userID, vaultID int64, err error) {
	switch {
	case errors.Is(err, services.ErrVaultNotFound):
		log.Printf("[VaultHandler:%s] Копилка %d не найдена (пользователь %d)", op, vaultID, userID)
		http.Error(w, "Копилка не найдена", http.StatusNotFound)
	case errors.Is(err, services.ErrAccessDenied):
		log.Printf("[VaultHandler:%s] Доступ пользователя %d к копилке %d запрещен", op, userID, vaultID)
		http.Error(w, "Доступ запрещен", http.StatusForbidden)
	default:
		log.Printf("[VaultHandler:%s] Внутренняя ошибка для копилки %d (пользователь %d): %v",
			op, vaultID, userID, err)
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
	}
}
