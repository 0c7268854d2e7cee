package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"coachme-notifier/internal/common/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func immediate(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

func TestNextRun(t *testing.T) {
	madrid, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)

	tests := []struct {
		name string
		now  time.Time
		loc  *time.Location
		want time.Time
	}{
		{
			name: "before six",
			now:  time.Date(2024, 3, 10, 5, 59, 0, 0, time.UTC),
			loc:  time.UTC,
			want: time.Date(2024, 3, 10, 6, 0, 0, 0, time.UTC),
		},
		{
			name: "exactly six goes to tomorrow",
			now:  time.Date(2024, 3, 10, 6, 0, 0, 0, time.UTC),
			loc:  time.UTC,
			want: time.Date(2024, 3, 11, 6, 0, 0, 0, time.UTC),
		},
		{
			name: "month rollover",
			now:  time.Date(2024, 3, 31, 7, 0, 0, 0, time.UTC),
			loc:  time.UTC,
			want: time.Date(2024, 4, 1, 6, 0, 0, 0, time.UTC),
		},
		{
			name: "configured zone",
			now:  time.Date(2024, 3, 10, 4, 30, 0, 0, time.UTC), // 05:30 in Madrid
			loc:  madrid,
			want: time.Date(2024, 3, 10, 6, 0, 0, 0, madrid),
		},
		{
			name: "across DST change",
			now:  time.Date(2024, 3, 30, 12, 0, 0, 0, madrid),
			loc:  madrid,
			want: time.Date(2024, 3, 31, 6, 0, 0, 0, madrid),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextRun(tt.now, 6, 0, tt.loc)
			assert.True(t, tt.want.Equal(got), "want %s got %s", tt.want, got)
		})
	}
}

func TestDaily_Fire_RetriesUntilSuccess(t *testing.T) {
	var calls int32
	job := func(context.Context, time.Time) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("connection refused")
		}
		return nil
	}
	d := NewDaily(Config{Name: "sweep", Hour: 6, MaxAttempts: 3, RetryDelay: time.Minute}, job, nil, logger.NewTestLogger(t))
	d.after = immediate

	require.NoError(t, d.Fire(context.Background(), time.Now()))
	assert.Equal(t, int32(3), calls)
}

func TestDaily_Fire_GivesUp(t *testing.T) {
	var calls int32
	boom := errors.New("connection refused")
	job := func(context.Context, time.Time) error {
		atomic.AddInt32(&calls, 1)
		return boom
	}
	d := NewDaily(Config{Name: "sweep", MaxAttempts: 2}, job, nil, logger.NewTestLogger(t))
	d.after = immediate

	assert.ErrorIs(t, d.Fire(context.Background(), time.Now()), boom)
	assert.Equal(t, int32(2), calls)
}

func TestDaily_Fire_PassesTimeoutAndSlot(t *testing.T) {
	slot := time.Date(2024, 3, 10, 6, 0, 0, 0, time.UTC)
	job := func(ctx context.Context, scheduledAt time.Time) error {
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		assert.Equal(t, slot, scheduledAt)
		return nil
	}
	d := NewDaily(Config{Name: "sweep", Timeout: time.Minute}, job, nil, logger.NewTestLogger(t))
	require.NoError(t, d.Fire(context.Background(), slot))
}

func TestDaily_Fire_OneReplicaPerDay(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	var calls int32
	job := func(context.Context, time.Time) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}
	cfg := Config{Name: "sweep", Location: time.UTC, LockTTL: 23 * time.Hour}
	a := NewDaily(cfg, job, NewRedisLocker(client, "replica-a"), logger.NewTestLogger(t))
	b := NewDaily(cfg, job, NewRedisLocker(client, "replica-b"), logger.NewTestLogger(t))

	today := time.Date(2024, 3, 10, 6, 0, 0, 0, time.UTC)
	require.NoError(t, a.Fire(context.Background(), today))
	require.NoError(t, b.Fire(context.Background(), today))
	assert.Equal(t, int32(1), calls)

	owner, err := mr.Get("schedule:lock:sweep:2024-03-10")
	require.NoError(t, err)
	assert.Equal(t, "replica-a", owner)

	require.NoError(t, b.Fire(context.Background(), today.AddDate(0, 0, 1)))
	assert.Equal(t, int32(2), calls)
}

func TestDaily_Fire_LockErrorStillRuns(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectSetNX("schedule:lock:sweep:2024-03-10", "replica-a", time.Hour).SetErr(errors.New("i/o timeout"))

	var calls int32
	job := func(context.Context, time.Time) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}
	d := NewDaily(Config{Name: "sweep", Location: time.UTC, LockTTL: time.Hour}, job, NewRedisLocker(db, "replica-a"), logger.NewTestLogger(t))

	require.NoError(t, d.Fire(context.Background(), time.Date(2024, 3, 10, 6, 0, 0, 0, time.UTC)))
	assert.Equal(t, int32(1), calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDaily_Run(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fired := make(chan time.Time, 1)
	job := func(_ context.Context, scheduledAt time.Time) error {
		fired <- scheduledAt
		cancel()
		return nil
	}
	d := NewDaily(Config{Name: "sweep", Hour: 6, Location: time.UTC}, job, nil, logger.NewTestLogger(t))
	d.now = func() time.Time { return time.Date(2024, 3, 10, 5, 0, 0, 0, time.UTC) }
	var waits int32
	d.after = func(time.Duration) <-chan time.Time {
		if atomic.AddInt32(&waits, 1) == 1 {
			return immediate(0)
		}
		return nil // blocks until ctx is done
	}

	require.NoError(t, d.Run(ctx))
	assert.Equal(t, time.Date(2024, 3, 10, 6, 0, 0, 0, time.UTC), <-fired)
}
