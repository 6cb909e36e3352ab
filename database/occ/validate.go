package occ

import (
	"fmt"
	"reflect"

	"github.com/davecgh/go-spew/spew"

	"github.com/safing/occbase/log"
)

// ValidateCondition checks that the condition is a flat textual predicate
// and returns it. Nil is the empty condition. Anything else, like a map of
// column values, is rejected with an *UnsupportedConditionError.
func ValidateCondition(condition interface{}) (string, error) {
	switch c := condition.(type) {
	case nil:
		return "", nil
	case string:
		return c, nil
	}

	// named string types, like storage.Expr
	if v := reflect.ValueOf(condition); v.Kind() == reflect.String {
		return v.String(), nil
	}

	typeName := fmt.Sprintf("%T", condition)
	log.Warningf("occ: rejected condition of type %s", typeName)
	if log.GetLogLevel() == log.TraceLevel {
		log.Tracef("occ: rejected condition:\n%s", spew.Sdump(condition))
	}
	rejectedConditions.Inc()

	return "", &UnsupportedConditionError{TypeName: typeName}
}
