package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// TokenVerifier проверяет пользовательский JWT
type TokenVerifier interface {
	ExtractUserID(tokenString string) (string, error)
}

// UnreadCounter отдает количество непрочитанных уведомлений
type UnreadCounter interface {
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Авторизация идет по токену, Origin не ограничиваем
	CheckOrigin: func(r *http.Request) bool { return true },
}

func tokenFromRequest(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// Handler поднимает WebSocket соединение для авторизованного пользователя
// и сразу отправляет ему текущее количество непрочитанных уведомлений.
func (m *Manager) Handler(tokens TokenVerifier, unread UnreadCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		if token == "" {
			http.Error(w, "Missing token", http.StatusUnauthorized)
			return
		}
		userID, err := tokens.ExtractUserID(token)
		if err != nil {
			http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}
		uid, err := uuid.Parse(userID)
		if err != nil {
			http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.WithError(err).Warn("Не удалось установить WebSocket соединение")
			return
		}

		client := NewClient(userID, conn, m)
		client.Start()

		count := 0
		if unread != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			count, err = unread.CountUnread(ctx, uid)
			cancel()
			if err != nil {
				log.WithError(err).WithField("user", userID).Warn("Не удалось получить количество непрочитанных")
			}
		}

		payload, _ := json.Marshal(map[string]int{"unread_count": count})
		client.enqueue(Event{Type: EventConnected, UserID: userID, Timestamp: time.Now(), Payload: payload})
	}
}
