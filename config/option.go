package config

import (
	"regexp"
	"sync"
)

// Option types.
const (
	OptTypeString uint8 = 1
	OptTypeInt    uint8 = 3
)

func getTypeName(t uint8) string {
	switch t {
	case OptTypeString:
		return "string"
	case OptTypeInt:
		return "int"
	default:
		return "unknown"
	}
}

// Option describes a configuration option. Int options hold int64 values.
type Option struct {
	sync.Mutex

	Name            string
	Key             string // category/sub/key
	Description     string
	OptType         uint8
	DefaultValue    interface{}
	ValidationRegex string

	compiledRegex *regexp.Regexp
	// activeValue is the normalized user value, nil if unset.
	activeValue interface{}
}

// value returns the active or the default value.
func (opt *Option) value() interface{} {
	opt.Lock()
	defer opt.Unlock()

	if opt.activeValue != nil {
		return opt.activeValue
	}
	return opt.DefaultValue
}
