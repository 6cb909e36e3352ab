package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/safing/occbase/database"
	"github.com/safing/occbase/database/record"
)

const maxBodySize = 1 << 20

type recordResponse struct {
	ID         interface{}            `json:"id"`
	Version    int64                  `json:"version"`
	Attributes map[string]interface{} `json:"attributes"`
	CreatedAt  *time.Time             `json:"created_at"`
	UpdatedAt  *time.Time             `json:"updated_at"`
	Creator    string                 `json:"creator,omitempty"`
	// Condition is the condition of the last write.
	Condition string `json:"condition,omitempty"`
}

// writeRequest is the body of create, update and delete requests.
type writeRequest struct {
	ID         interface{}            `json:"id"`
	Attributes map[string]interface{} `json:"attributes"`
	Condition  interface{}            `json:"condition"`
	Params     []interface{}          `json:"params"`
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func (s *Server) writeRecord(w http.ResponseWriter, req *http.Request, status int, r *record.Record, condition string) {
	creator, ok, err := s.db.Creator(req.Context(), r.Table().Name, r.Key())
	if err != nil {
		writeError(w, err)
		return
	}

	resp := &recordResponse{
		ID:         r.Key(),
		Version:    r.Version(),
		Attributes: r.Attributes(),
		CreatedAt:  optionalTime(r.CreatedAt()),
		UpdatedAt:  optionalTime(r.UpdatedAt()),
		Condition:  condition,
	}
	if ok {
		resp.Creator = string(creator)
	}

	w.Header().Set("ETag", formatETag(r.Version()))
	writeJSON(w, status, resp)
}

func formatETag(version int64) string {
	return strconv.Quote(strconv.FormatInt(version, 10))
}

// ifMatch returns the version in the If-Match header, if present.
func ifMatch(r *http.Request) (version int64, ok bool, err error) {
	header := strings.TrimSpace(r.Header.Get("If-Match"))
	if header == "" || header == "*" {
		return 0, false, nil
	}

	header = strings.TrimPrefix(header, "W/")
	version, err = strconv.ParseInt(strings.Trim(header, `"`), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %q", ErrInvalidVersion, r.Header.Get("If-Match"))
	}
	return version, true, nil
}

// readBody decodes the optional request body. JSON numbers are decoded as
// int64 if integral.
func readBody(r *http.Request) (*writeRequest, error) {
	req := &writeRequest{}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidBody, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return req, nil
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidBody, err)
	}

	req.ID = convertNumber(req.ID)
	for name, value := range req.Attributes {
		req.Attributes[name] = convertNumber(value)
	}
	for i, param := range req.Params {
		req.Params[i] = convertNumber(param)
	}
	return req, nil
}

func convertNumber(v interface{}) interface{} {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

// load loads the record of the request and checks If-Match.
func (s *Server) load(r *http.Request) (*record.Record, error) {
	vars := mux.Vars(r)
	rec, err := s.db.Load(r.Context(), vars["table"], vars["id"])
	if err != nil {
		return nil, err
	}

	expected, ok, err := ifMatch(r)
	if err != nil {
		return nil, err
	}
	if ok && expected != rec.Version() {
		return nil, fmt.Errorf("%w: expected %d, current %d", ErrVersionMismatch, expected, rec.Version())
	}
	return rec, nil
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := s.load(r)
	if err != nil {
		writeError(w, err)
		return
	}
	s.writeRecord(w, r, http.StatusOK, rec, "")
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	req, err := readBody(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if req.ID == nil || req.ID == "" {
		req.ID = database.NewKey()
	}

	rec, err := s.db.Insert(r.Context(), mux.Vars(r)["table"], fmt.Sprint(req.ID), req.Attributes)
	if err != nil {
		writeError(w, err)
		return
	}
	s.writeRecord(w, r, http.StatusCreated, rec, "")
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	req, err := readBody(r)
	if err != nil {
		writeError(w, err)
		return
	}
	rec, err := s.load(r)
	if err != nil {
		writeError(w, err)
		return
	}

	for name, value := range req.Attributes {
		if err := rec.Set(name, value); err != nil {
			writeError(w, err)
			return
		}
	}

	res, err := s.db.Writer().Save(r.Context(), rec, req.Condition, req.Params...)
	if err != nil {
		writeError(w, err)
		return
	}
	if res.RowsAffected > 0 {
		s.db.ForgetCreator(rec.Table().Name, rec.Key())
	}
	s.writeRecord(w, r, http.StatusOK, rec, res.Condition)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	req, err := readBody(r)
	if err != nil {
		writeError(w, err)
		return
	}
	rec, err := s.load(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if _, err := s.db.Writer().Delete(r.Context(), rec, req.Condition, req.Params...); err != nil {
		writeError(w, err)
		return
	}
	s.db.ForgetCreator(rec.Table().Name, rec.Key())
	w.WriteHeader(http.StatusNoContent)
}
