package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/desmond009/Twin-up/internal/metrics"
	"github.com/desmond009/Twin-up/internal/models"
)

// Manager представляет центральный менеджер для всех WebSocket соединений
type Manager struct {
	clients      map[uuid.UUID]*Client
	clientsMutex sync.RWMutex
	userClients  map[string]map[uuid.UUID]bool // userID -> map[clientID]bool
	userMutex    sync.RWMutex
	ctx          context.Context
	cancel       context.CancelFunc
}

// EventType определяет тип события WebSocket
type EventType string

const (
	EventConnected    EventType = "connected"
	EventNotification EventType = "notification"
	EventUnreadCount  EventType = "unread_count"
	EventPing         EventType = "ping"
	EventPong         EventType = "pong"
)

// Event представляет структуру сообщения для WebSocket
type Event struct {
	Type      EventType       `json:"type"`
	UserID    string          `json:"user_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// notificationPayload - уведомление вместе со свежим счетчиком непрочитанных
type notificationPayload struct {
	Notification *models.Notification `json:"notification"`
	UnreadCount  int                  `json:"unread_count"`
}

// NewManager создает новый экземпляр Manager
func NewManager() *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		clients:     make(map[uuid.UUID]*Client),
		userClients: make(map[string]map[uuid.UUID]bool),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// AddClient регистрирует нового клиента
func (m *Manager) AddClient(client *Client) {
	m.clientsMutex.Lock()
	m.clients[client.ID] = client
	m.clientsMutex.Unlock()

	m.userMutex.Lock()
	if _, exists := m.userClients[client.UserID]; !exists {
		m.userClients[client.UserID] = make(map[uuid.UUID]bool)
	}
	m.userClients[client.UserID][client.ID] = true
	m.userMutex.Unlock()

	metrics.WSConnected()
	log.WithFields(log.Fields{"client": client.ID, "user": client.UserID}).Debug("WebSocket клиент подключен")
}

// RemoveClient удаляет клиента
func (m *Manager) RemoveClient(clientID uuid.UUID) {
	m.clientsMutex.Lock()
	client, exists := m.clients[clientID]
	if exists {
		delete(m.clients, clientID)
	}
	m.clientsMutex.Unlock()

	if !exists {
		return
	}

	m.userMutex.Lock()
	if clients, ok := m.userClients[client.UserID]; ok {
		delete(clients, clientID)
		// Если это был последний клиент пользователя, удаляем запись пользователя
		if len(clients) == 0 {
			delete(m.userClients, client.UserID)
		}
	}
	m.userMutex.Unlock()

	client.close()
	metrics.WSDisconnected()
	log.WithFields(log.Fields{"client": clientID, "user": client.UserID}).Debug("WebSocket клиент отключен")
}

// IsOnline сообщает, есть ли у пользователя открытые соединения
func (m *Manager) IsOnline(userID string) bool {
	m.userMutex.RLock()
	defer m.userMutex.RUnlock()
	return len(m.userClients[userID]) > 0
}

// SendToUser отправляет событие всем соединениям пользователя.
// Возвращает false, если пользователь не в сети.
func (m *Manager) SendToUser(userID string, event Event) bool {
	if userID == "" {
		return false
	}

	m.userMutex.RLock()
	clientIDs := make([]uuid.UUID, 0, len(m.userClients[userID]))
	for id := range m.userClients[userID] {
		clientIDs = append(clientIDs, id)
	}
	m.userMutex.RUnlock()

	if len(clientIDs) == 0 {
		// Пользователь не онлайн, уведомление уже сохранено в БД
		return false
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	eventJSON, err := json.Marshal(event)
	if err != nil {
		log.WithError(err).Error("Ошибка сериализации события")
		return false
	}

	delivered := false
	for _, clientID := range clientIDs {
		m.clientsMutex.RLock()
		client, exists := m.clients[clientID]
		m.clientsMutex.RUnlock()
		if !exists {
			continue
		}

		select {
		case client.send <- eventJSON:
			delivered = true
		default:
			// Канал заполнен, клиент слишком медленный - закрываем соединение
			log.WithField("client", clientID).Warn("Очередь клиента переполнена, соединение закрывается")
			m.RemoveClient(clientID)
		}
	}
	return delivered
}

// PushNotification доставляет уведомление в живые соединения получателя
func (m *Manager) PushNotification(userID uuid.UUID, n *models.Notification, unread int) {
	payload, err := json.Marshal(notificationPayload{Notification: n, UnreadCount: unread})
	if err != nil {
		log.WithError(err).Error("Ошибка сериализации уведомления")
		return
	}

	delivered := m.SendToUser(userID.String(), Event{
		Type:    EventNotification,
		UserID:  userID.String(),
		Payload: payload,
	})
	metrics.RecordPush(delivered)
}

// BroadcastUnreadCount отправляет обновленное количество непрочитанных уведомлений
func (m *Manager) BroadcastUnreadCount(userID uuid.UUID, unread int) {
	payload, _ := json.Marshal(map[string]int{"count": unread})

	m.SendToUser(userID.String(), Event{
		Type:    EventUnreadCount,
		UserID:  userID.String(),
		Payload: payload,
	})
}

// Shutdown корректно завершает работу менеджера WebSocket
func (m *Manager) Shutdown() {
	m.cancel()

	m.clientsMutex.RLock()
	ids := make([]uuid.UUID, 0, len(m.clients))
	for id := range m.clients {
		ids = append(ids, id)
	}
	m.clientsMutex.RUnlock()

	for _, id := range ids {
		m.RemoveClient(id)
	}
}
