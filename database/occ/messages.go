package occ

import (
	"fmt"
	"sync"
)

// Message IDs.
const (
	MsgStaleObject          = "occ.staleObject"
	MsgUnsupportedCondition = "occ.unsupportedCondition"
)

var defaultMessages = map[string]string{
	MsgStaleObject:          "%s of %s %v failed: row changed since version %d (%d rows affected)",
	MsgUnsupportedCondition: "unsupported condition kind %s: only textual conditions are allowed",
}

// MessageResolver returns the human readable message for a message ID and
// its arguments.
type MessageResolver func(id string, args ...interface{}) string

var (
	messageResolver     MessageResolver = DefaultMessageResolver
	messageResolverLock sync.RWMutex
)

// SetMessageResolver sets the resolver used for error messages. A nil
// resolver restores DefaultMessageResolver.
func SetMessageResolver(resolver MessageResolver) {
	if resolver == nil {
		resolver = DefaultMessageResolver
	}

	messageResolverLock.Lock()
	defer messageResolverLock.Unlock()
	messageResolver = resolver
}

// DefaultMessageResolver formats the built-in english message of id.
// Unknown IDs are used as the format string.
func DefaultMessageResolver(id string, args ...interface{}) string {
	format, ok := defaultMessages[id]
	if !ok {
		format = id
	}
	return fmt.Sprintf(format, args...)
}

func resolveMessage(id string, args ...interface{}) string {
	messageResolverLock.RLock()
	resolver := messageResolver
	messageResolverLock.RUnlock()

	return resolver(id, args...)
}
