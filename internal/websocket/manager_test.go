package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desmond009/Twin-up/internal/models"
)

type fakeTokens map[string]string

func (f fakeTokens) ExtractUserID(token string) (string, error) {
	if id, ok := f[token]; ok {
		return id, nil
	}
	return "", errors.New("invalid token")
}

type fixedUnread int

func (n fixedUnread) CountUnread(context.Context, uuid.UUID) (int, error) { return int(n), nil }

func dial(t *testing.T, srv *httptest.Server, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	return websocket.DefaultDialer.Dial(url, nil)
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestHandler_PushesNotifications(t *testing.T) {
	userID := uuid.New()
	m := NewManager()
	defer m.Shutdown()

	srv := httptest.NewServer(m.Handler(fakeTokens{"good": userID.String()}, fixedUnread(3)))
	defer srv.Close()

	conn, _, err := dial(t, srv, "good")
	require.NoError(t, err)
	defer conn.Close()

	connected := readEvent(t, conn)
	assert.Equal(t, EventConnected, connected.Type)
	assert.JSONEq(t, `{"unread_count":3}`, string(connected.Payload))
	assert.True(t, m.IsOnline(userID.String()))

	n := &models.Notification{ID: uuid.New(), UserID: userID, Type: models.NotifySwapRequest, Title: "New Swap Request"}
	m.PushNotification(userID, n, 4)

	ev := readEvent(t, conn)
	assert.Equal(t, EventNotification, ev.Type)
	var payload notificationPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &payload))
	assert.Equal(t, n.ID, payload.Notification.ID)
	assert.Equal(t, 4, payload.UnreadCount)

	m.BroadcastUnreadCount(userID, 0)
	ev = readEvent(t, conn)
	assert.Equal(t, EventUnreadCount, ev.Type)
	assert.JSONEq(t, `{"count":0}`, string(ev.Payload))
}

func TestHandler_AnswersPing(t *testing.T) {
	userID := uuid.New()
	m := NewManager()
	defer m.Shutdown()

	srv := httptest.NewServer(m.Handler(fakeTokens{"good": userID.String()}, nil))
	defer srv.Close()

	conn, _, err := dial(t, srv, "good")
	require.NoError(t, err)
	defer conn.Close()
	readEvent(t, conn)

	require.NoError(t, conn.WriteJSON(Event{Type: EventPing}))
	assert.Equal(t, EventPong, readEvent(t, conn).Type)
}

func TestHandler_RejectsBadToken(t *testing.T) {
	m := NewManager()
	srv := httptest.NewServer(m.Handler(fakeTokens{}, nil))
	defer srv.Close()

	_, resp, err := dial(t, srv, "bad")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSendToUser_Offline(t *testing.T) {
	m := NewManager()
	assert.False(t, m.SendToUser(uuid.NewString(), Event{Type: EventNotification}))
	assert.False(t, m.SendToUser("", Event{Type: EventNotification}))
}
