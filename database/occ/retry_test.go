package occ

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/safing/occbase/config"
	"github.com/safing/occbase/database/record"
	"github.com/safing/occbase/database/storage"
	"github.com/safing/occbase/database/storage/sinkhole"
)

type sleepCounter struct {
	sleeps int32
	total  int64
}

func (sc *sleepCounter) sleep(d time.Duration) {
	atomic.AddInt32(&sc.sleeps, 1)
	atomic.AddInt64(&sc.total, int64(d))
}

func TestRetryExhausted(t *testing.T) {
	t.Parallel()

	db, err := sinkhole.NewSinkhole("test", "")
	require.NoError(t, err)
	r := record.New(testTable(t), "t1")
	sc := &sleepCounter{}

	rw := NewRetryingWriter(NewWriter(db), &RetryOptions{
		MaxAttempts: 3,
		Delay:       2 * time.Millisecond,
		Sleep:       sc.sleep,
	})
	res, err := rw.Update(context.Background(), r, map[string]interface{}{"title": "x"}, "status = 'open'")
	require.NoError(t, err)
	assert.False(t, res.Succeeded())
	assert.Equal(t, StateExhausted, res.State)
	assert.EqualValues(t, 0, res.RowsAffected)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, "status = 'open' AND version = 0", res.Condition)
	assert.EqualValues(t, 0, r.Version())

	// pauses between attempts only
	assert.EqualValues(t, 2, sc.sleeps)
	assert.EqualValues(t, 4*time.Millisecond, sc.total)
}

func TestRetryAttemptsAreBounded(t *testing.T) {
	t.Parallel()

	for _, maxAttempts := range []int{1, 2, 5} {
		fs := &fakeStorage{results: []int64{0, 0, 0, 0, 0, 0, 0}}
		sc := &sleepCounter{}
		rw := NewRetryingWriter(NewWriter(fs), &RetryOptions{
			MaxAttempts: maxAttempts,
			Delay:       time.Millisecond,
			Sleep:       sc.sleep,
		})

		res, err := rw.Update(context.Background(), record.New(testTable(t), "t1"), nil, nil)
		require.NoError(t, err)
		assert.Equal(t, StateExhausted, res.State)
		assert.Equal(t, maxAttempts, fs.writes())
		assert.Equal(t, maxAttempts, res.Attempts)
		assert.EqualValues(t, maxAttempts-1, sc.sleeps)
	}
}

func TestRetrySucceeds(t *testing.T) {
	t.Parallel()

	fs := &fakeStorage{results: []int64{0, 0, 1}}
	sc := &sleepCounter{}
	r := record.New(testTable(t), "t1")
	rw := NewRetryingWriter(NewWriter(fs), &RetryOptions{
		MaxAttempts: 5,
		Delay:       time.Millisecond,
		Sleep:       sc.sleep,
	})

	res, err := rw.Update(context.Background(), r, map[string]interface{}{"title": "x"}, nil)
	require.NoError(t, err)
	assert.True(t, res.Succeeded())
	assert.Equal(t, StateSucceeded, res.State)
	assert.EqualValues(t, 1, res.RowsAffected)
	assert.Equal(t, 3, res.Attempts)
	assert.EqualValues(t, 2, sc.sleeps)
	assert.EqualValues(t, 1, r.Version())
}

type fixedUpdater struct {
	res   *Result
	err   error
	calls int
}

func (fu *fixedUpdater) Update(context.Context, *record.Record, map[string]interface{}, interface{}, ...interface{}) (*Result, error) {
	fu.calls++
	return fu.res, fu.err
}

func TestRetryPropagatesOtherErrors(t *testing.T) {
	t.Parallel()

	for _, fatal := range []error{
		&UnsupportedConditionError{TypeName: "map[string]string"},
		storage.ErrUnknownColumn,
		errors.New("disk on fire"),
	} {
		fu := &fixedUpdater{err: fatal}
		sc := &sleepCounter{}
		rw := NewRetryingWriter(fu, &RetryOptions{MaxAttempts: 5, Sleep: sc.sleep})

		res, err := rw.Update(context.Background(), record.New(testTable(t), "t1"), nil, nil)
		assert.Nil(t, res)
		assert.ErrorIs(t, err, fatal)
		assert.Equal(t, 1, fu.calls)
		assert.EqualValues(t, 0, sc.sleeps)
	}
}

func TestRetryCountsZeroRowsAsAttempt(t *testing.T) {
	t.Parallel()

	fu := &fixedUpdater{res: &Result{Condition: "version = 0"}}
	sc := &sleepCounter{}
	rw := NewRetryingWriter(fu, &RetryOptions{MaxAttempts: 4, Delay: time.Millisecond, Sleep: sc.sleep})

	res, err := rw.Update(context.Background(), record.New(testTable(t), "t1"), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, StateExhausted, res.State)
	assert.Equal(t, 4, fu.calls)
	assert.Equal(t, "version = 0", res.Condition)
}

func TestRetryWithRefresh(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db, table := testStorage(t)
	w := NewWriter(db)
	refresh := func(ctx context.Context, r *record.Record) error {
		row, err := db.Get(ctx, table, r.Key())
		if err != nil {
			return err
		}
		return r.Refresh(row)
	}
	increment := func(r *record.Record) (map[string]interface{}, error) {
		v, _ := r.Get("value")
		n, ok := v.(int64)
		if !ok {
			return nil, errors.New("value is not an integer")
		}
		return map[string]interface{}{"value": n + 1}, nil
	}

	outdated := load(t, db, table, "t1")
	_, err := w.Update(ctx, load(t, db, table, "t1"), map[string]interface{}{"value": 1}, nil)
	require.NoError(t, err)

	sc := &sleepCounter{}
	rw := NewRetryingWriter(w, &RetryOptions{
		MaxAttempts: 3,
		Delay:       time.Millisecond,
		Refresh:     refresh,
		Sleep:       sc.sleep,
	})
	res, err := rw.UpdateFunc(ctx, outdated, increment, nil)
	require.NoError(t, err)
	assert.True(t, res.Succeeded())
	assert.Equal(t, 2, res.Attempts)
	assert.EqualValues(t, 2, res.Version)
	assert.EqualValues(t, 1, sc.sleeps)

	value, _ := load(t, db, table, "t1").Get("value")
	assert.EqualValues(t, 2, value)
}

func TestRetryUpdateDoesNotRefresh(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db, table := testStorage(t)
	w := NewWriter(db)

	outdated := load(t, db, table, "t1")
	_, err := w.Update(ctx, load(t, db, table, "t1"), map[string]interface{}{"value": 7}, nil)
	require.NoError(t, err)

	var refreshes int32
	rw := NewRetryingWriter(w, &RetryOptions{
		MaxAttempts: 3,
		Delay:       -1,
		Refresh: func(ctx context.Context, r *record.Record) error {
			atomic.AddInt32(&refreshes, 1)
			row, err := db.Get(ctx, table, r.Key())
			if err != nil {
				return err
			}
			return r.Refresh(row)
		},
	})
	res, err := rw.Update(ctx, outdated, map[string]interface{}{"value": 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, StateExhausted, res.State)
	assert.Equal(t, 3, res.Attempts)
	assert.EqualValues(t, 0, refreshes)

	value, _ := load(t, db, table, "t1").Get("value")
	assert.EqualValues(t, 7, value)
}

func TestConcurrentIncrements(t *testing.T) {
	t.Parallel()

	const (
		writers    = 4
		increments = 10
	)

	ctx := context.Background()
	db, table := testStorage(t)
	rw := NewRetryingWriter(NewWriter(db), &RetryOptions{
		MaxAttempts: 1000,
		Delay:       -1,
		Refresh: func(ctx context.Context, r *record.Record) error {
			row, err := db.Get(ctx, table, r.Key())
			if err != nil {
				return err
			}
			return r.Refresh(row)
		},
	})

	var exhausted int32
	group, ctx := errgroup.WithContext(ctx)
	for i := 0; i < writers; i++ {
		r := load(t, db, table, "t1")
		group.Go(func() error {
			for j := 0; j < increments; j++ {
				res, err := rw.UpdateFunc(ctx, r, func(r *record.Record) (map[string]interface{}, error) {
					v, _ := r.Get("value")
					return map[string]interface{}{"value": v.(int64) + 1}, nil //nolint:forcetypeassert
				}, nil)
				if err != nil {
					return err
				}
				if !res.Succeeded() {
					atomic.AddInt32(&exhausted, 1)
				}
			}
			return nil
		})
	}
	require.NoError(t, group.Wait())
	require.EqualValues(t, 0, exhausted)

	stored := load(t, db, table, "t1")
	value, _ := stored.Get("value")
	assert.EqualValues(t, writers*increments, value)
	assert.EqualValues(t, writers*increments, stored.Version())
}

func TestRetryDefaultsFromConfig(t *testing.T) {
	defer func() {
		require.NoError(t, config.SetConfigOption(CfgMaxAttemptsKey, nil))
		require.NoError(t, config.SetConfigOption(CfgDelayMicrosKey, nil))
	}()

	maxAttempts, delay := NewRetryingWriter(nil, nil).budget()
	assert.Equal(t, defaultMaxAttempts, maxAttempts)
	assert.Equal(t, 500*time.Millisecond, delay)

	require.NoError(t, config.SetConfigOption(CfgMaxAttemptsKey, 3))
	require.NoError(t, config.SetConfigOption(CfgDelayMicrosKey, 1500))
	maxAttempts, delay = NewRetryingWriter(nil, nil).budget()
	assert.Equal(t, 3, maxAttempts)
	assert.Equal(t, 1500*time.Microsecond, delay)

	assert.Error(t, config.SetConfigOption(CfgMaxAttemptsKey, 0))
}

func TestMessageResolver(t *testing.T) {
	defer SetMessageResolver(nil)

	err := &StaleObjectError{Op: OpUpdate, Table: "tickets", Key: "t1", ExpectedVersion: 3}
	assert.Equal(t, "update of tickets t1 failed: row changed since version 3 (0 rows affected)", err.Error())

	SetMessageResolver(func(id string, args ...interface{}) string {
		return id
	})
	assert.Equal(t, MsgStaleObject, err.Error())
	assert.Equal(t, MsgUnsupportedCondition, (&UnsupportedConditionError{}).Error())
}
