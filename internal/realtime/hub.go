// Package realtime реализует канал изменений по копилкам: клиенты
// подписываются по ID копилки через WebSocket и получают события
// insert/update/delete по строкам плиток и копилок для слияния
// удаленных изменений в локальное состояние.
package realtime

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Типы событий изменения строк.
const (
	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"
)

// Event представляет одно событие изменения строки.
type Event struct {
	Table   string `json:"table"` // "vaults" или "tiles"
	Type    string `json:"type"`  // INSERT / UPDATE / DELETE
	Payload any    `json:"payload"`
}

// Publisher определяет интерфейс публикации событий для сервисного слоя.
type Publisher interface {
	Publish(vaultID int64, event Event)
}

const (
	writeWait      = 10 * time.Second
	pingPeriod     = 30 * time.Second
	sendBufferSize = 16
)

// subscriber представляет одно WebSocket-соединение.
type subscriber struct {
	conn *websocket.Conn
	send chan Event
}

// Hub раздает события по комнатам-копилкам.
// Медленные подписчики не блокируют публикацию: при переполнении
// буфера событие для такого подписчика отбрасывается.
type Hub struct {
	mu       sync.RWMutex
	rooms    map[int64]map[*subscriber]struct{}
	upgrader websocket.Upgrader
}

// NewHub создает новый хаб событий.
func NewHub() *Hub {
	return &Hub{
		rooms: make(map[int64]map[*subscriber]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Доступ к копилке уже проверен обработчиком
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
	}
}

// Publish рассылает событие всем подписчикам копилки.
func (h *Hub) Publish(vaultID int64, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.rooms[vaultID] {
		select {
		case sub.send <- event:
		default:
			// Буфер подписчика переполнен, событие пропускаем
		}
	}
}

// ServeVault апгрейдит HTTP-запрос до WebSocket и подписывает соединение
// на события копилки. Блокируется до закрытия соединения клиентом.
func (h *Hub) ServeVault(vaultID int64, w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Realtime] Ошибка апгрейда соединения для копилки %d: %v", vaultID, err)
		return
	}

	sub := &subscriber{conn: conn, send: make(chan Event, sendBufferSize)}
	h.subscribe(vaultID, sub)
	log.Printf("[Realtime] Новый подписчик копилки %d", vaultID)

	go sub.writePump()

	// Читаем входящие сообщения только ради обнаружения закрытия
	for {
		if _, _, err = conn.ReadMessage(); err != nil {
			break
		}
	}

	h.unsubscribe(vaultID, sub)
	close(sub.send)
	log.Printf("[Realtime] Подписчик копилки %d отключился", vaultID)
}

// SubscriberCount возвращает число подписчиков копилки.
func (h *Hub) SubscriberCount(vaultID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[vaultID])
}

func (h *Hub) subscribe(vaultID int64, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[vaultID] == nil {
		h.rooms[vaultID] = make(map[*subscriber]struct{})
	}
	h.rooms[vaultID][sub] = struct{}{}
}

func (h *Hub) unsubscribe(vaultID int64, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.rooms[vaultID], sub)
	if len(h.rooms[vaultID]) == 0 {
		delete(h.rooms, vaultID)
	}
}

// writePump отправляет события и пинги в соединение подписчика.
func (s *subscriber) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case event, ok := <-s.send:
			if !ok {
				// Подписка закрыта хабом
				_ = s.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
				return
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
