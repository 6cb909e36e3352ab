package occ

import (
	"github.com/safing/occbase/config"
)

// Configuration Keys.
const (
	CfgMaxAttemptsKey = "occ/retry/maxAttempts"
	CfgDelayMicrosKey = "occ/retry/delayMicros"

	defaultMaxAttempts = 5
	defaultDelayMicros = 500000
)

var (
	cfgMaxAttempts config.IntOption
	cfgDelayMicros config.IntOption
)

func registerConfig() error {
	err := config.Register(&config.Option{
		Name:            "Retry Attempts",
		Key:             CfgMaxAttemptsKey,
		Description:     "Maximum number of attempts of a retried conditional update.",
		OptType:         config.OptTypeInt,
		DefaultValue:    defaultMaxAttempts,
		ValidationRegex: `^[1-9][0-9]*$`,
	})
	if err != nil {
		return err
	}
	cfgMaxAttempts = config.GetAsInt(CfgMaxAttemptsKey, defaultMaxAttempts)

	err = config.Register(&config.Option{
		Name:            "Retry Delay",
		Key:             CfgDelayMicrosKey,
		Description:     "Pause between two attempts of a retried conditional update, in microseconds.",
		OptType:         config.OptTypeInt,
		DefaultValue:    defaultDelayMicros,
		ValidationRegex: `^[0-9]+$`,
	})
	if err != nil {
		return err
	}
	cfgDelayMicros = config.GetAsInt(CfgDelayMicrosKey, defaultDelayMicros)

	return nil
}
