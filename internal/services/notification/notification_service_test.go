package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desmond009/Twin-up/internal/middleware"
	"github.com/desmond009/Twin-up/internal/models"
	"github.com/desmond009/Twin-up/internal/utils"
)

var now = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

type memStore struct {
	mu    sync.Mutex
	items map[uuid.UUID]*models.Notification
}

func newMemStore() *memStore {
	return &memStore{items: map[uuid.UUID]*models.Notification{}}
}

func (m *memStore) Create(_ context.Context, in models.NewNotification, at time.Time) (*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := &models.Notification{
		ID: uuid.New(), UserID: in.UserID, Type: in.Type, Title: in.Title,
		Message: in.Message, RelatedUserID: in.RelatedUserID, RelatedSwapID: in.RelatedSwapID,
		Data: in.Data, CreatedAt: at,
	}
	m.items[n.ID] = n
	return n, nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.items[id]; ok {
		return n, nil
	}
	return nil, models.Errorf(models.ErrNotFound, "Notification not found")
}

func (m *memStore) List(_ context.Context, f models.NotificationFilter) ([]models.Notification, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Notification
	for _, n := range m.items {
		if n.UserID != f.UserID {
			continue
		}
		if f.Type != nil && n.Type != *f.Type {
			continue
		}
		if f.Read != nil && n.Read != *f.Read {
			continue
		}
		out = append(out, *n)
	}
	return out, len(out), nil
}

func (m *memStore) CountUnread(_ context.Context, userID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, n := range m.items {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (m *memStore) MarkRead(_ context.Context, userID uuid.UUID, ids []uuid.UUID, at time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := map[uuid.UUID]bool{}
	for _, id := range ids {
		want[id] = true
	}
	count := 0
	for _, n := range m.items {
		if n.UserID != userID || n.Read || (ids != nil && !want[n.ID]) {
			continue
		}
		n.Read = true
		n.ReadAt = &at
		count++
	}
	return count, nil
}

func (m *memStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return models.Errorf(models.ErrNotFound, "Notification not found")
	}
	delete(m.items, id)
	return nil
}

func (m *memStore) CountNotOwned(_ context.Context, userID uuid.UUID, ids []uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, id := range ids {
		if n, ok := m.items[id]; ok && n.UserID != userID {
			count++
		}
	}
	return count, nil
}

func (m *memStore) DeleteOwned(_ context.Context, userID uuid.UUID, ids []uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, id := range ids {
		if n, ok := m.items[id]; ok && n.UserID == userID {
			delete(m.items, id)
			count++
		}
	}
	return count, nil
}

// snapshotTx откатывает изменения memStore, если fn вернула ошибку
type snapshotTx struct{ store *memStore }

func (t snapshotTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.store.mu.Lock()
	saved := make(map[uuid.UUID]*models.Notification, len(t.store.items))
	for k, v := range t.store.items {
		cp := *v
		saved[k] = &cp
	}
	t.store.mu.Unlock()

	if err := fn(ctx); err != nil {
		t.store.mu.Lock()
		t.store.items = saved
		t.store.mu.Unlock()
		return err
	}
	return nil
}

type pushRecord struct {
	user   uuid.UUID
	unread int
}

type fakePusher struct {
	pushed []pushRecord
	counts []pushRecord
}

func (p *fakePusher) PushNotification(userID uuid.UUID, _ *models.Notification, unread int) {
	p.pushed = append(p.pushed, pushRecord{userID, unread})
}

func (p *fakePusher) BroadcastUnreadCount(userID uuid.UUID, unread int) {
	p.counts = append(p.counts, pushRecord{userID, unread})
}

func newService(t *testing.T) (*NotificationService, *memStore, *fakePusher) {
	t.Helper()
	store := newMemStore()
	pusher := &fakePusher{}
	jwtService := utils.NewJWTService("secret", time.Hour, time.Hour)
	s := NewNotificationService(store, snapshotTx{store}, pusher, jwtService).WithNow(func() time.Time { return now })
	return s, store, pusher
}

func TestNotify_DefaultTitleAndPush(t *testing.T) {
	s, _, pusher := newService(t)
	userID := uuid.New()

	n, err := s.Notify(context.Background(), models.NewNotification{
		UserID: userID, Type: models.NotifySwapAccepted, Message: "Ann accepted your swap request",
	})
	require.NoError(t, err)
	assert.Equal(t, "Swap Request Accepted", n.Title)
	assert.Equal(t, now, n.CreatedAt)
	assert.Equal(t, []pushRecord{{userID, 1}}, pusher.pushed)
}

func TestNotify_Validation(t *testing.T) {
	s, store, pusher := newService(t)

	_, err := s.Notify(context.Background(), models.NewNotification{
		UserID: uuid.New(), Type: models.NotifySystem, Message: strings.Repeat("x", 501),
	})
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Empty(t, store.items)
	assert.Empty(t, pusher.pushed)
}

func TestMarkRead(t *testing.T) {
	s, _, pusher := newService(t)
	ctx := context.Background()
	userID := uuid.New()

	a, _ := s.Notify(ctx, models.NewNotification{UserID: userID, Type: models.NotifySystem, Message: "a"})
	_, _ = s.Notify(ctx, models.NewNotification{UserID: userID, Type: models.NotifySystem, Message: "b"})

	n, err := s.MarkRead(ctx, userID, []uuid.UUID{a.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	count, err := s.UnreadCount(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	n, err = s.MarkRead(ctx, userID, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []pushRecord{{userID, 1}, {userID, 0}}, pusher.counts)
}

func TestDelete_Ownership(t *testing.T) {
	s, _, _ := newService(t)
	ctx := context.Background()
	owner, other := uuid.New(), uuid.New()

	n, _ := s.Notify(ctx, models.NewNotification{UserID: owner, Type: models.NotifySystem, Message: "hi"})

	err := s.Delete(ctx, other, n.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)

	err = s.Delete(ctx, owner, uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, s.Delete(ctx, owner, n.ID))
}

func TestDeleteMany_AllOrNothing(t *testing.T) {
	s, store, _ := newService(t)
	ctx := context.Background()
	owner, other := uuid.New(), uuid.New()

	mine1, _ := s.Notify(ctx, models.NewNotification{UserID: owner, Type: models.NotifySystem, Message: "1"})
	mine2, _ := s.Notify(ctx, models.NewNotification{UserID: owner, Type: models.NotifySystem, Message: "2"})
	theirs, _ := s.Notify(ctx, models.NewNotification{UserID: other, Type: models.NotifySystem, Message: "3"})

	_, err := s.DeleteMany(ctx, owner, []uuid.UUID{mine1.ID, theirs.ID})
	assert.ErrorIs(t, err, models.ErrForbidden)
	assert.Len(t, store.items, 3)

	_, err = s.DeleteMany(ctx, owner, []uuid.UUID{mine1.ID, uuid.New()})
	assert.ErrorIs(t, err, models.ErrForbidden)
	assert.Len(t, store.items, 3)

	_, err = s.DeleteMany(ctx, owner, nil)
	assert.ErrorIs(t, err, models.ErrValidation)

	n, err := s.DeleteMany(ctx, owner, []uuid.UUID{mine1.ID, mine2.ID, mine1.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, store.items, 1)
}

func TestHandlers(t *testing.T) {
	s, _, _ := newService(t)
	userID := uuid.New()
	token, err := s.jwtService.GenerateToken(userID)
	require.NoError(t, err)

	_, _ = s.Notify(context.Background(), models.NewNotification{UserID: userID, Type: models.NotifySwapRequest, Message: "x"})
	_, _ = s.Notify(context.Background(), models.NewNotification{UserID: userID, Type: models.NotifySystem, Message: "y"})

	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	s.SetupRoutes(app)

	do := func(method, path, body string) (*http.Response, map[string]any) {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+token)
		if body != "" {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		var out map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return resp, out
	}

	resp, body := do(http.MethodGet, "/api/notifications?type=swap_request", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	assert.Len(t, data["notifications"], 1)
	assert.Equal(t, float64(2), data["unread_count"])

	resp, body = do(http.MethodGet, "/api/notifications?type=bogus", "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Validation failed", body["message"])

	resp, _ = do(http.MethodPost, "/api/notifications/mark-all-read", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	_, body = do(http.MethodGet, "/api/notifications/unread", "")
	assert.Equal(t, float64(0), body["data"].(map[string]any)["count"])

	resp, _ = do(http.MethodDelete, "/api/notifications/not-a-uuid", "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, body = do(http.MethodDelete, "/api/notifications", `{"notification_ids":["`+uuid.NewString()+`"]}`)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Some notifications are not authorized for deletion", body["message"])
}
