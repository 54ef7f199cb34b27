package realtime_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/realtime"
)

const testVaultID int64 = 7

// Вспомогательная функция: поднимает сервер с хабом и подключает клиента.
func dialHub(t *testing.T, hub *realtime.Hub) *websocket.Conn {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeVault(testVaultID, w, r)
	}))
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err, "Не удалось подключиться к хабу")
	if resp != nil {
		_ = resp.Body.Close()
	}
	return conn
}

// Ожидание, пока число подписчиков не станет равно want.
func waitSubscribers(t *testing.T, hub *realtime.Hub, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return hub.SubscriberCount(testVaultID) == want
	}, time.Second, 10*time.Millisecond, "Число подписчиков не достигло %d", want)
}

func TestHub_PublishDeliversEvent(t *testing.T) {
	hub := realtime.NewHub()
	conn := dialHub(t, hub)
	defer conn.Close()

	waitSubscribers(t, hub, 1)

	hub.Publish(testVaultID, realtime.Event{
		Table:   "tiles",
		Type:    realtime.EventUpdate,
		Payload: map[string]any{"tile_id": float64(3)},
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	var event realtime.Event
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "tiles", event.Table)
	assert.Equal(t, realtime.EventUpdate, event.Type)
}

func TestHub_PublishToOtherVaultNotDelivered(t *testing.T) {
	hub := realtime.NewHub()
	conn := dialHub(t, hub)
	defer conn.Close()

	waitSubscribers(t, hub, 1)

	// Событие по другой копилке не должно дойти до подписчика
	hub.Publish(testVaultID+1, realtime.Event{Table: "vaults", Type: realtime.EventUpdate})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond)))
	var event realtime.Event
	err := conn.ReadJSON(&event)
	require.Error(t, err, "Подписчик не должен получить чужое событие")
}

func TestHub_DisconnectCleansUpRoom(t *testing.T) {
	hub := realtime.NewHub()
	conn := dialHub(t, hub)

	waitSubscribers(t, hub, 1)

	require.NoError(t, conn.Close())
	waitSubscribers(t, hub, 0)
}

func TestHub_MultipleSubscribers(t *testing.T) {
	hub := realtime.NewHub()
	first := dialHub(t, hub)
	defer first.Close()
	second := dialHub(t, hub)
	defer second.Close()

	waitSubscribers(t, hub, 2)

	hub.Publish(testVaultID, realtime.Event{Table: "vaults", Type: realtime.EventDelete})

	for _, conn := range []*websocket.Conn{first, second} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
		var event realtime.Event
		require.NoError(t, conn.ReadJSON(&event))
		assert.Equal(t, realtime.EventDelete, event.Type)
	}
}

func TestHub_PublishWithoutSubscribers(t *testing.T) {
	hub := realtime.NewHub()

	// Не должно паниковать и блокироваться
	hub.Publish(testVaultID, realtime.Event{Table: "tiles", Type: realtime.EventInsert})
	assert.Equal(t, 0, hub.SubscriberCount(testVaultID))
}
