//go:build integration

package db

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/desmond009/Twin-up/internal/models"
)

var (
	once      sync.Once
	sharedDSN string
	initErr   error
)

// setupTestDB поднимает общий контейнер PostgreSQL и применяет миграции
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	once.Do(func() {
		sharedDSN, initErr = startContainer()
	})
	if initErr != nil {
		t.Fatalf("не удалось поднять тестовую БД: %v", initErr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, sharedDSN)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func startContainer() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "skillswap",
				"POSTGRES_PASSWORD": "skillswap",
				"POSTGRES_DB":       "skillswap",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return "", fmt.Errorf("start container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return "", err
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return "", err
	}

	dsn := fmt.Sprintf("postgres://skillswap:skillswap@%s:%s/skillswap?sslmode=disable", host, port.Port())
	if err := Migrate(ctx, dsn); err != nil {
		return "", err
	}
	return dsn, nil
}

func createAccount(t *testing.T, store *AccountStore, name string) *models.Account {
	t.Helper()
	a, err := store.Create(context.Background(), models.NewAccount{
		Name:          name,
		Email:         fmt.Sprintf("%s-%s@example.com", name, uuid.NewString()[:8]),
		PasswordHash:  "hash",
		SkillsOffered: []string{"Go"},
		SkillsWanted:  []string{"Guitar"},
	})
	require.NoError(t, err)
	return a
}

func TestIntegration_SwapLifecycleAndRatings(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	accounts := NewAccountStore(pool)
	swaps := NewSwapStore(pool)
	tm := NewTxManager(pool)
	now := time.Now().UTC().Truncate(time.Microsecond)

	ann := createAccount(t, accounts, "Ann")
	bob := createAccount(t, accounts, "Bob")

	sw, err := swaps.Create(ctx, models.NewSwap{
		FromUserID:      ann.ID,
		ToUserID:        bob.ID,
		SkillsOffered:   []string{"Go"},
		SkillsRequested: []string{"Guitar"},
		Message:         "Let's swap",
	}, now)
	require.NoError(t, err)

	_, err = swaps.Create(ctx, models.NewSwap{
		FromUserID:      ann.ID,
		ToUserID:        bob.ID,
		SkillsOffered:   []string{"Go"},
		SkillsRequested: []string{"Guitar"},
		Message:         "Again",
	}, now)
	assert.ErrorIs(t, err, models.ErrConflict)

	_, err = swaps.Transition(ctx, sw.ID, models.SwapPending, models.SwapAccepted, now)
	require.NoError(t, err)
	_, err = swaps.Transition(ctx, sw.ID, models.SwapPending, models.SwapAccepted, now)
	assert.ErrorIs(t, err, models.ErrInvalidState)
	_, err = swaps.Transition(ctx, sw.ID, models.SwapAccepted, models.SwapCompleted, now)
	require.NoError(t, err)

	submit := func(rater, target uuid.UUID, d models.FeedbackDirection, stars int) error {
		return tm.RunInTx(ctx, func(ctx context.Context) error {
			if err := swaps.MarkFeedbackSubmitted(ctx, sw.ID, d); err != nil {
				return err
			}
			return accounts.AddFeedback(ctx, &models.Feedback{
				AccountID: target, FromUserID: rater, SwapID: &sw.ID,
				Stars: stars, Comment: "Thanks", CreatedAt: now,
			})
		})
	}

	require.NoError(t, submit(ann.ID, bob.ID, models.DirectionFromUser, 5))
	require.NoError(t, submit(bob.ID, ann.ID, models.DirectionToUser, 3))
	assert.ErrorIs(t, submit(ann.ID, bob.ID, models.DirectionFromUser, 1), models.ErrInvalidState)

	got, err := accounts.GetByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 5.0, got.AverageRating())
	assert.Equal(t, 1, got.RatingCount)

	items, err := accounts.FeedbackBetween(ctx, bob.ID, ann.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)

	// пересмотр и удаление меняют агрегат симметрично
	err = tm.RunInTx(ctx, func(ctx context.Context) error {
		fb, err := accounts.GetFeedback(ctx, items[0].ID, true)
		if err != nil {
			return err
		}
		return accounts.ReviseFeedback(ctx, fb, 2, "Changed", now)
	})
	require.NoError(t, err)

	got, err = accounts.GetByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 2.0, got.AverageRating())

	err = tm.RunInTx(ctx, func(ctx context.Context) error {
		fb, err := accounts.GetFeedback(ctx, items[0].ID, true)
		if err != nil {
			return err
		}
		return accounts.RemoveFeedback(ctx, fb, now)
	})
	require.NoError(t, err)

	got, err = accounts.GetByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.RatingCount)
	assert.Equal(t, 0.0, got.AverageRating())

	// удаление автора снимает его отзывы с рейтинга получателя
	require.NoError(t, submitFresh(t, ctx, tm, accounts, swaps, ann, bob, now))
	require.NoError(t, tm.RunInTx(ctx, func(ctx context.Context) error {
		return accounts.Delete(ctx, ann.ID)
	}))

	got, err = accounts.GetByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.RatingCount)

	_, err = swaps.GetByID(ctx, sw.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

// submitFresh проводит новый обмен до завершения и оставляет отзыв ann -> bob
func submitFresh(t *testing.T, ctx context.Context, tm *TxManager, accounts *AccountStore, swaps *SwapStore, ann, bob *models.Account, now time.Time) error {
	t.Helper()
	sw, err := swaps.Create(ctx, models.NewSwap{
		FromUserID: ann.ID, ToUserID: bob.ID,
		SkillsOffered: []string{"Go"}, SkillsRequested: []string{"Guitar"}, Message: "Once more",
	}, now)
	if err != nil {
		return err
	}
	if _, err := swaps.Transition(ctx, sw.ID, models.SwapPending, models.SwapAccepted, now); err != nil {
		return err
	}
	if _, err := swaps.Transition(ctx, sw.ID, models.SwapAccepted, models.SwapCompleted, now); err != nil {
		return err
	}
	return tm.RunInTx(ctx, func(ctx context.Context) error {
		if err := swaps.MarkFeedbackSubmitted(ctx, sw.ID, models.DirectionFromUser); err != nil {
			return err
		}
		return accounts.AddFeedback(ctx, &models.Feedback{
			AccountID: bob.ID, FromUserID: ann.ID, SwapID: &sw.ID, Stars: 4, Comment: "Again", CreatedAt: now,
		})
	})
}

func TestIntegration_BroadcastSkipsBanned(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	accounts := NewAccountStore(pool)
	notifications := NewNotificationStore(pool)

	active := createAccount(t, accounts, "Cat")
	banned := createAccount(t, accounts, "Dan")
	yes := true
	_, err := accounts.Moderate(ctx, banned.ID, models.Moderation{IsBanned: &yes, BanReason: "spam"})
	require.NoError(t, err)

	recipients, err := notifications.Broadcast(ctx, models.Broadcast{
		Type:    models.NotifyAdminMessage,
		Title:   "Hello",
		Message: "Welcome",
		UserIDs: []uuid.UUID{active.ID, banned.ID},
	}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{active.ID}, recipients)

	n, err := notifications.CountUnread(ctx, active.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
