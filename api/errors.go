package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/safing/occbase/database"
	"github.com/safing/occbase/database/occ"
	"github.com/safing/occbase/database/predicate"
	"github.com/safing/occbase/database/record"
	"github.com/safing/occbase/database/storage"
	"github.com/safing/occbase/log"
)

// API Errors.
var (
	ErrInvalidVersion  = errors.New("invalid If-Match version")
	ErrVersionMismatch = errors.New("record version does not match If-Match")
	ErrInvalidBody     = errors.New("invalid request body")
)

func errorStatus(err error) int {
	switch {
	case errors.Is(err, database.ErrNotFound),
		errors.Is(err, database.ErrUnknownTable):
		return http.StatusNotFound
	case errors.Is(err, occ.ErrStaleObject),
		errors.Is(err, storage.ErrDuplicateKey):
		return http.StatusConflict
	case errors.Is(err, ErrVersionMismatch):
		return http.StatusPreconditionFailed
	case errors.Is(err, occ.ErrUnsupportedCondition),
		errors.Is(err, ErrInvalidVersion),
		errors.Is(err, ErrInvalidBody),
		errors.Is(err, record.ErrUnknownField),
		errors.Is(err, storage.ErrUnknownColumn),
		errors.Is(err, predicate.ErrSyntax),
		errors.Is(err, predicate.ErrParamCount),
		errors.Is(err, predicate.ErrUnsupportedValue):
		return http.StatusBadRequest
	case errors.Is(err, database.ErrShuttingDown):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		log.Warningf("api: internal error: %s", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debugf("api: failed to write response: %s", err)
	}
}
