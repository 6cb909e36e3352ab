package occ

import (
	"context"
	"errors"
	"time"

	"github.com/safing/occbase/database/record"
	"github.com/safing/occbase/log"
)

// RetryState is the state of a retried write.
type RetryState uint8

// Retry states.
const (
	StateAttempting RetryState = iota
	StateSucceeded
	StateExhausted
)

func (s RetryState) String() string {
	switch s {
	case StateAttempting:
		return "attempting"
	case StateSucceeded:
		return "succeeded"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Updater issues a single conditional update. It is implemented by Writer.
type Updater interface {
	Update(ctx context.Context, r *record.Record, fields map[string]interface{}, condition interface{}, params ...interface{}) (*Result, error)
}

// FieldsFunc computes the fields to write from the current state of the
// record. It is called once per attempt.
type FieldsFunc func(r *record.Record) (map[string]interface{}, error)

// RetryOptions configure a RetryingWriter.
type RetryOptions struct {
	// MaxAttempts is the maximum number of writes. Defaults to the
	// occ/retry/maxAttempts config option.
	MaxAttempts int
	// Delay is the pause between two attempts. Defaults to the
	// occ/retry/delayMicros config option. Negative disables the pause.
	Delay time.Duration
	// Refresh, if set, is called by UpdateFunc before every attempt but the
	// first, to reload the record. Update never calls it.
	Refresh func(ctx context.Context, r *record.Record) error
	// Sleep pauses between attempts. Defaults to time.Sleep.
	Sleep func(time.Duration)
}

// RetryingWriter retries conditional updates that failed with a conflict.
type RetryingWriter struct {
	updater Updater
	opts    RetryOptions
}

// NewRetryingWriter returns a retrying writer issuing its writes through
// updater.
func NewRetryingWriter(updater Updater, opts *RetryOptions) *RetryingWriter {
	rw := &RetryingWriter{
		updater: updater,
	}
	if opts != nil {
		rw.opts = *opts
	}
	return rw
}

func (rw *RetryingWriter) budget() (maxAttempts int, delay time.Duration) {
	maxAttempts = rw.opts.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = int(cfgMaxAttempts())
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	delay = rw.opts.Delay
	if delay == 0 {
		delay = time.Duration(cfgDelayMicros()) * time.Microsecond
	}
	return maxAttempts, delay
}

// Update writes fields with Writer.Update semantics and retries on conflict.
// Every attempt is issued with the same record, which is never reloaded: the
// fields were computed from its version, so a concurrent change is not
// overwritten and the attempts use up the budget instead.
//
// A conflict is not returned as an error: if all attempts conflicted, the
// result reports zero affected rows and StateExhausted. Any other error is
// returned immediately.
func (rw *RetryingWriter) Update(ctx context.Context, r *record.Record, fields map[string]interface{}, condition interface{}, params ...interface{}) (*Result, error) {
	return rw.retry(ctx, r, func(*record.Record) (map[string]interface{}, error) {
		return fields, nil
	}, nil, condition, params...)
}

// UpdateFunc is like Update, but computes the fields for every attempt with
// fn. Before every attempt but the first, the record is reloaded with
// RetryOptions.Refresh, if set. This implements read-modify-write cycles like
// incrementing a counter.
func (rw *RetryingWriter) UpdateFunc(ctx context.Context, r *record.Record, fn FieldsFunc, condition interface{}, params ...interface{}) (*Result, error) {
	return rw.retry(ctx, r, fn, rw.opts.Refresh, condition, params...)
}

func (rw *RetryingWriter) retry(
	ctx context.Context, r *record.Record, fn FieldsFunc,
	refresh func(ctx context.Context, r *record.Record) error,
	condition interface{}, params ...interface{},
) (*Result, error) {
	maxAttempts, delay := rw.budget()
	sleep := rw.opts.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var (
		state    = StateAttempting
		attempt  = 1
		composed string
	)
	for state == StateAttempting {
		if attempt > 1 && refresh != nil {
			if err := refresh(ctx, r); err != nil {
				return nil, err
			}
		}

		fields, err := fn(r)
		if err != nil {
			return nil, err
		}

		res, err := rw.updater.Update(ctx, r, fields, condition, params...)
		var stale *StaleObjectError
		switch {
		case err == nil && res != nil && res.RowsAffected > 0:
			res.Attempts = attempt
			res.State = StateSucceeded
			return res, nil

		case err == nil:
			// Zero rows without a conflict error still uses up an attempt.
			if res != nil {
				composed = res.Condition
			}

		case errors.As(err, &stale):
			composed = stale.Condition

		case errors.Is(err, ErrStaleObject):
			// Conflict without details.

		default:
			return nil, err
		}

		if attempt >= maxAttempts {
			state = StateExhausted
			continue
		}

		log.Infof(
			"occ: conflict on %s %v, attempt %d of %d failed, %d remaining",
			r.Table().Name, r.Key(), attempt, maxAttempts, maxAttempts-attempt,
		)
		retries.Inc()
		if delay > 0 {
			sleep(delay)
		}
		attempt++
	}

	exhaustedRetries.Inc()
	log.Warningf("occ: giving up on %s %v after %d conflicting attempts", r.Table().Name, r.Key(), attempt)

	return &Result{
		Condition: composed,
		Version:   r.Version(),
		Attempts:  attempt,
		State:     StateExhausted,
	}, nil
}
