package swap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desmond009/Twin-up/internal/middleware"
	"github.com/desmond009/Twin-up/internal/models"
	"github.com/desmond009/Twin-up/internal/utils"
)

var now = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

type memSwaps struct {
	mu    sync.Mutex
	items map[uuid.UUID]*models.Swap
}

func (m *memSwaps) Create(_ context.Context, n models.NewSwap, at time.Time) (*models.Swap, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sw := &models.Swap{
		ID: uuid.New(), FromUserID: n.FromUserID, ToUserID: n.ToUserID,
		SkillsOffered: n.SkillsOffered, SkillsRequested: n.SkillsRequested,
		Message: n.Message, Status: models.SwapPending, CreatedAt: at, UpdatedAt: at,
	}
	m.items[sw.ID] = sw
	return sw, nil
}

func (m *memSwaps) HasPending(_ context.Context, from, to uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sw := range m.items {
		if sw.FromUserID == from && sw.ToUserID == to && sw.Status == models.SwapPending {
			return true, nil
		}
	}
	return false, nil
}

func (m *memSwaps) GetByID(_ context.Context, id uuid.UUID) (*models.Swap, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sw, ok := m.items[id]
	if !ok {
		return nil, models.Errorf(models.ErrNotFound, "Swap request not found")
	}
	cp := *sw
	return &cp, nil
}

func (m *memSwaps) Transition(_ context.Context, id uuid.UUID, from, to models.SwapStatus, at time.Time) (*models.Swap, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sw, ok := m.items[id]
	if !ok || sw.Status != from {
		if to == models.SwapCompleted {
			return nil, models.Errorf(models.ErrInvalidState, "Swap must be accepted before completion")
		}
		return nil, models.Errorf(models.ErrInvalidState, "Swap request is not pending")
	}
	sw.Status = to
	sw.UpdatedAt = at
	switch to {
	case models.SwapAccepted:
		sw.AcceptedAt = &at
	case models.SwapCompleted:
		sw.CompletedAt = &at
	}
	cp := *sw
	return &cp, nil
}

func (m *memSwaps) DeleteOwn(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

func (m *memSwaps) List(_ context.Context, f models.SwapFilter) ([]*models.Swap, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Swap
	for _, sw := range m.items {
		if f.Type == "received" && sw.ToUserID != *f.UserID {
			continue
		}
		if f.Type == "sent" && sw.FromUserID != *f.UserID {
			continue
		}
		if !sw.IsParty(*f.UserID) {
			continue
		}
		if f.Status != nil && sw.Status != *f.Status {
			continue
		}
		out = append(out, sw)
	}
	return out, len(out), nil
}

func (m *memSwaps) Stats(_ context.Context, userID *uuid.UUID) (models.SwapStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var st models.SwapStats
	for _, sw := range m.items {
		if userID == nil || sw.IsParty(*userID) {
			st.Add(sw.Status, 1)
		}
	}
	return st, nil
}

type memAccounts map[uuid.UUID]*models.Account

func (m memAccounts) GetByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	if a, ok := m[id]; ok {
		return a, nil
	}
	return nil, models.Errorf(models.ErrNotFound, "User not found")
}

type recordingNotifier struct {
	sent []models.NewNotification
}

// NotifyQuietly, как и настоящий сервис, пропускает уведомления, не прошедшие проверку
func (r *recordingNotifier) NotifyQuietly(_ context.Context, n models.NewNotification) {
	if err := n.Prepare(); err != nil {
		return
	}
	r.sent = append(r.sent, n)
}

type recordingMailer struct{ count int }

func (r *recordingMailer) SendSwapRequest(_, _ *models.Account, _ *models.Swap) { r.count++ }

type fixture struct {
	svc      *SwapService
	swaps    *memSwaps
	notifier *recordingNotifier
	mailer   *recordingMailer
	x, y     *models.Account
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	x := &models.Account{ID: uuid.New(), Name: "Xena", IsPublic: true}
	y := &models.Account{ID: uuid.New(), Name: "Yuri", IsPublic: true}
	f := &fixture{
		swaps:    &memSwaps{items: map[uuid.UUID]*models.Swap{}},
		notifier: &recordingNotifier{},
		mailer:   &recordingMailer{},
		x:        x,
		y:        y,
	}
	accounts := memAccounts{x.ID: x, y.ID: y}
	jwtService := utils.NewJWTService("secret", time.Hour, time.Hour)
	f.svc = NewSwapService(f.swaps, accounts, f.notifier, f.mailer, jwtService).WithNow(func() time.Time { return now })
	return f
}

func (f *fixture) request(t *testing.T) *models.Swap {
	t.Helper()
	sw, err := f.svc.Create(context.Background(), models.NewSwap{
		FromUserID:      f.y.ID,
		ToUserID:        f.x.ID,
		SkillsOffered:   []string{"Excel"},
		SkillsRequested: []string{"Guitar"},
		Message:         "trade?",
	})
	require.NoError(t, err)
	return sw
}

func (f *fixture) lastNotice() models.NewNotification {
	return f.notifier.sent[len(f.notifier.sent)-1]
}

func TestCreate_NotifiesTarget(t *testing.T) {
	f := newFixture(t)
	sw := f.request(t)

	assert.Equal(t, models.SwapPending, sw.Status)
	assert.Equal(t, "Yuri", sw.FromUser.Name)
	require.Len(t, f.notifier.sent, 1)
	n := f.lastNotice()
	assert.Equal(t, f.x.ID, n.UserID)
	assert.Equal(t, models.NotifySwapRequest, n.Type)
	assert.Equal(t, "Yuri wants to swap skills with you", n.Message)
	assert.Equal(t, 1, f.mailer.count)
}

func TestCreate_Guards(t *testing.T) {
	ctx := context.Background()
	base := func(f *fixture) models.NewSwap {
		return models.NewSwap{
			FromUserID: f.y.ID, ToUserID: f.x.ID,
			SkillsOffered: []string{"Excel"}, SkillsRequested: []string{"Guitar"}, Message: "trade?",
		}
	}

	t.Run("self", func(t *testing.T) {
		f := newFixture(t)
		n := base(f)
		n.ToUserID = f.y.ID
		_, err := f.svc.Create(ctx, n)
		assert.ErrorIs(t, err, models.ErrValidation)
	})

	t.Run("long skill", func(t *testing.T) {
		f := newFixture(t)
		n := base(f)
		n.SkillsOffered = []string{strings.Repeat("a", 51)}
		_, err := f.svc.Create(ctx, n)
		assert.ErrorIs(t, err, models.ErrValidation)
		assert.Empty(t, f.swaps.items)
	})

	t.Run("missing target", func(t *testing.T) {
		f := newFixture(t)
		n := base(f)
		n.ToUserID = uuid.New()
		_, err := f.svc.Create(ctx, n)
		assert.ErrorIs(t, err, models.ErrNotFound)
		assert.EqualError(t, err, "Target user not found")
	})

	t.Run("private target", func(t *testing.T) {
		f := newFixture(t)
		f.x.IsPublic = false
		_, err := f.svc.Create(ctx, base(f))
		assert.ErrorIs(t, err, models.ErrForbidden)
	})

	t.Run("banned target", func(t *testing.T) {
		f := newFixture(t)
		f.x.IsBanned = true
		_, err := f.svc.Create(ctx, base(f))
		assert.ErrorIs(t, err, models.ErrForbidden)
	})

	t.Run("duplicate pending is one-directional", func(t *testing.T) {
		f := newFixture(t)
		f.request(t)
		_, err := f.svc.Create(ctx, base(f))
		assert.ErrorIs(t, err, models.ErrConflict)

		reverse := base(f)
		reverse.FromUserID, reverse.ToUserID = f.x.ID, f.y.ID
		_, err = f.svc.Create(ctx, reverse)
		assert.NoError(t, err)
	})
}

func TestLifecycle_AcceptCompleteOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sw := f.request(t)

	// Отправитель не может принять свой запрос
	_, err := f.svc.Act(ctx, f.y.ID, sw.ID, models.SwapAccept, "")
	assert.ErrorIs(t, err, models.ErrForbidden)

	accepted, err := f.svc.Act(ctx, f.x.ID, sw.ID, models.SwapAccept, "")
	require.NoError(t, err)
	assert.Equal(t, models.SwapAccepted, accepted.Status)
	require.NotNil(t, accepted.AcceptedAt)
	assert.Equal(t, now, *accepted.AcceptedAt)
	n := f.lastNotice()
	assert.Equal(t, f.y.ID, n.UserID)
	assert.Equal(t, models.NotifySwapAccepted, n.Type)
	assert.Equal(t, "Xena accepted your swap request", n.Message)

	_, err = f.svc.Act(ctx, f.x.ID, sw.ID, models.SwapAccept, "")
	assert.ErrorIs(t, err, models.ErrInvalidState)

	_, err = f.svc.Act(ctx, f.y.ID, sw.ID, models.SwapCancel, "")
	assert.ErrorIs(t, err, models.ErrInvalidState)

	completed, err := f.svc.Act(ctx, f.y.ID, sw.ID, models.SwapComplete, "")
	require.NoError(t, err)
	assert.Equal(t, models.SwapCompleted, completed.Status)
	assert.Equal(t, f.x.ID, f.lastNotice().UserID)
	assert.Equal(t, models.NotifySwapCompleted, f.lastNotice().Type)

	_, err = f.svc.Act(ctx, f.x.ID, sw.ID, models.SwapComplete, "")
	assert.ErrorIs(t, err, models.ErrInvalidState)
	assert.EqualError(t, err, "Swap must be accepted before completion")

	stored, _ := f.swaps.GetByID(ctx, sw.ID)
	assert.Equal(t, now, *stored.AcceptedAt)
}

func TestRejectAndCancelWithReason(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sw := f.request(t)
	_, err := f.svc.Act(ctx, f.x.ID, sw.ID, models.SwapReject, "  busy this month ")
	require.NoError(t, err)
	assert.Equal(t, "Xena rejected your swap request: busy this month", f.lastNotice().Message)

	sw = f.request(t)
	_, err = f.svc.Act(ctx, f.x.ID, sw.ID, models.SwapCancel, "")
	assert.ErrorIs(t, err, models.ErrForbidden)
	_, err = f.svc.Act(ctx, f.y.ID, sw.ID, models.SwapCancel, "")
	require.NoError(t, err)
	assert.Equal(t, f.x.ID, f.lastNotice().UserID)
	assert.Equal(t, "Yuri cancelled their swap request", f.lastNotice().Message)
	assert.Nil(t, f.lastNotice().Data)
}

func TestRejectWithLongReason_StillNotifies(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	reason := strings.Repeat("r", models.MaxNotificationText)

	for _, action := range []models.SwapAction{models.SwapReject, models.SwapCancel} {
		sw := f.request(t)
		actor := f.x.ID
		if action == models.SwapCancel {
			actor = f.y.ID
		}
		sent := len(f.notifier.sent)

		_, err := f.svc.Act(ctx, actor, sw.ID, action, reason)
		require.NoError(t, err)
		require.Len(t, f.notifier.sent, sent+1, action)

		n := f.lastNotice()
		assert.NoError(t, n.Prepare())
		assert.Equal(t, models.MaxNotificationText, utf8.RuneCountInString(n.Message))
		assert.True(t, strings.HasSuffix(n.Message, "…"))
		assert.Equal(t, reason, n.Data["reason"])
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sw := f.request(t)
	assert.ErrorIs(t, f.svc.Delete(ctx, f.x.ID, sw.ID), models.ErrForbidden)

	_, err := f.svc.Act(ctx, f.x.ID, sw.ID, models.SwapAccept, "")
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.Delete(ctx, f.y.ID, sw.ID), models.ErrInvalidState)

	pending := f.request(t)
	require.NoError(t, f.svc.Delete(ctx, f.y.ID, pending.ID))
	assert.ErrorIs(t, f.svc.Delete(ctx, f.y.ID, pending.ID), models.ErrNotFound)
}

func TestGet_OnlyParties(t *testing.T) {
	f := newFixture(t)
	sw := f.request(t)

	_, err := f.svc.Get(context.Background(), uuid.New(), sw.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)

	got, err := f.svc.Get(context.Background(), f.x.ID, sw.ID)
	require.NoError(t, err)
	assert.Equal(t, sw.ID, got.ID)
}

func TestHandlers_ErrorMapping(t *testing.T) {
	f := newFixture(t)
	sw := f.request(t)

	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	f.svc.SetupRoutes(app)

	post := func(path string, as uuid.UUID) int {
		token, err := f.svc.jwtService.GenerateToken(as)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, fiber.StatusForbidden, post("/api/swaps/"+sw.ID.String()+"/accept", f.y.ID))
	assert.Equal(t, fiber.StatusOK, post("/api/swaps/"+sw.ID.String()+"/accept", f.x.ID))
	assert.Equal(t, fiber.StatusBadRequest, post("/api/swaps/"+sw.ID.String()+"/accept", f.x.ID))
	assert.Equal(t, fiber.StatusNotFound, post("/api/swaps/"+uuid.NewString()+"/accept", f.x.ID))
	assert.Equal(t, fiber.StatusBadRequest, post("/api/swaps/nope/accept", f.x.ID))
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	f.request(t)

	stats, err := f.svc.Stats(context.Background(), f.x.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 1, stats.Total)
}
