package occ

import (
	"fmt"

	"github.com/safing/occbase/metrics"
)

var (
	writesApplied      = make(map[string]*metrics.Counter)
	writesConflicted   = make(map[string]*metrics.Counter)
	retries            *metrics.Counter
	exhaustedRetries   *metrics.Counter
	rejectedConditions *metrics.Counter
)

func registerMetrics() (err error) {
	for _, op := range []string{OpUpdate, OpDelete} {
		writesApplied[op], err = metrics.NewCounter(
			"occ/writes/total",
			map[string]string{"op": op, "result": "applied"},
			&metrics.Options{Name: "Conditional Writes"},
		)
		if err != nil {
			return err
		}

		writesConflicted[op], err = metrics.NewCounter(
			"occ/writes/total",
			map[string]string{"op": op, "result": "conflict"},
			&metrics.Options{Name: "Conditional Writes"},
		)
		if err != nil {
			return err
		}
	}

	retries, err = metrics.NewCounter(
		"occ/retries/total",
		nil,
		&metrics.Options{Name: "Retried Conditional Updates"},
	)
	if err != nil {
		return err
	}

	exhaustedRetries, err = metrics.NewCounter(
		"occ/retries/exhausted/total",
		nil,
		&metrics.Options{Name: "Exhausted Conditional Updates"},
	)
	if err != nil {
		return err
	}

	rejectedConditions, err = metrics.NewCounter(
		"occ/conditions/rejected/total",
		nil,
		&metrics.Options{Name: "Rejected Conditions"},
	)
	return err
}

func countWrite(op string, applied bool) {
	if applied {
		writesApplied[op].Inc()
	} else {
		writesConflicted[op].Inc()
	}
}

func init() {
	if err := registerConfig(); err != nil {
		panic(fmt.Sprintf("occ: failed to register config: %s", err))
	}
	if err := registerMetrics(); err != nil {
		panic(fmt.Sprintf("occ: failed to register metrics: %s", err))
	}
}
