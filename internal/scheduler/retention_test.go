package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSweeper struct {
	cutoff  time.Time
	deleted int64
	err     error
}

func (f *fakeSweeper) DeleteReadOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.deleted, f.err
}

func TestRetention_SweepUsesCutoff(t *testing.T) {
	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	store := &fakeSweeper{deleted: 7}

	r := NewRetention(store, 30).WithNow(func() time.Time { return now })
	n, err := r.Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.Equal(t, time.Date(2024, 5, 31, 12, 0, 0, 0, time.UTC), store.cutoff)
}

func TestRetention_SweepError(t *testing.T) {
	store := &fakeSweeper{err: errors.New("db down")}

	_, err := NewRetention(store, 1).Sweep(context.Background())
	assert.Error(t, err)
}

func TestRetention_InvalidSpec(t *testing.T) {
	r := NewRetention(&fakeSweeper{}, 30)
	assert.Error(t, r.Start("not a cron spec"))
}

func TestRetention_StartStop(t *testing.T) {
	r := NewRetention(&fakeSweeper{}, 30)
	require.NoError(t, r.Start("@daily"))
	r.Stop()
}
