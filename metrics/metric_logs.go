package metrics

import (
	"errors"

	"github.com/safing/occbase/log"
)

func registerLogMetrics() (err error) {
	_, err = NewFetchingCounter(
		"logs/warning/total",
		nil,
		log.TotalWarningLogLines,
		&Options{
			Name: "Total Warning Log Lines",
		},
	)
	if err != nil {
		return err
	}

	_, err = NewFetchingCounter(
		"logs/error/total",
		nil,
		log.TotalErrorLogLines,
		&Options{
			Name: "Total Error Log Lines",
		},
	)
	if err != nil {
		return err
	}

	_, err = NewFetchingCounter(
		"logs/critical/total",
		nil,
		log.TotalCriticalLogLines,
		&Options{
			Name: "Total Critical Log Lines",
		},
	)
	if err != nil {
		return err
	}

	return nil
}

// RegisterDefaults registers the log line and Go runtime metrics. It may be
// called more than once.
func RegisterDefaults() error {
	err := registerLogMetrics()
	if err != nil && !errors.Is(err, ErrAlreadyRegistered) {
		return err
	}
	return registerRuntimeMetric()
}
