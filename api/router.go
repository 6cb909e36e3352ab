// Package api serves the records of a database over HTTP.
//
// Record versions are exposed as ETag. Writes may carry the expected version
// in If-Match and are conditional updates: a write that lost against a
// concurrent write is answered with 409 Conflict.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/safing/occbase/database"
	"github.com/safing/occbase/log"
)

// Server serves the API for one database.
type Server struct {
	db     *database.Interface
	router *mux.Router
	server *http.Server
}

// NewServer returns a new API server for db.
func NewServer(db *database.Interface) *Server {
	s := &Server{
		db:     db,
		router: mux.NewRouter(),
	}

	s.router.Use(RequestLogger)
	s.router.HandleFunc("/metrics", handleMetrics).Methods(http.MethodGet)
	s.router.HandleFunc("/info", handleInfo).Methods(http.MethodGet)
	s.router.HandleFunc("/records/{table}", s.handleCreate).Methods(http.MethodPost)
	s.router.HandleFunc("/records/{table}/{id}", s.handleGet).Methods(http.MethodGet)
	s.router.HandleFunc("/records/{table}/{id}", s.handleUpdate).Methods(http.MethodPatch)
	s.router.HandleFunc("/records/{table}/{id}", s.handleDelete).Methods(http.MethodDelete)

	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// RequestLogger is a logging middleware.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ew := NewEnrichedResponseWriter(w)
		next.ServeHTTP(ew, r)
		log.Debugf("api request: %s %s %d %s (%s)", r.RemoteAddr, r.Method, ew.Status, r.RequestURI, time.Since(start))
	})
}

// ListenAndServe serves the API on address until Shutdown is called. An
// empty address uses the configured one.
func (s *Server) ListenAndServe(address string) error {
	if address == "" {
		address = ListenAddress()
	}
	s.server = &http.Server{
		Addr:              address,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Infof("api: starting to listen on %s", address)
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
