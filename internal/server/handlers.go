package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/inovacc/recstore/internal/action"
	"github.com/inovacc/recstore/internal/encoding"
	"github.com/inovacc/recstore/internal/engine"
)

const maxBodyBytes = 8 << 20

var errBadQuery = errors.New("invalid query")

// APIResponse is the envelope of every JSON response.
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleListCollections(w http.ResponseWriter, _ *http.Request) {
	names, err := s.db.Collections()
	if err != nil {
		s.jsonError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, APIResponse{Success: true, Data: names})
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	ex, ok := s.executor(w, r, action.Read)
	if !ok {
		return
	}

	if q := r.URL.Query(); q.Has("index") {
		ex.WithIndex(q.Get("index"))
	}

	records, err := ex.Execute(r.Context())
	if err != nil {
		s.jsonError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, APIResponse{Success: true, Data: records})
}

func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request) {
	s.handlePayload(w, r, action.Write, http.StatusCreated)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	s.handlePayload(w, r, action.Update, http.StatusOK)
}

func (s *Server) handlePayload(w http.ResponseWriter, r *http.Request, kind action.Kind, status int) {
	doc, err := encoding.DecodeJSON[any](http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		jsonResponse(w, http.StatusBadRequest, APIResponse{Error: err.Error()})
		return
	}

	ex, ok := s.executor(w, r, kind)
	if !ok {
		return
	}

	if _, err := ex.WithPayload(doc).Execute(r.Context()); err != nil {
		s.jsonError(w, err)
		return
	}

	jsonResponse(w, status, APIResponse{Success: true, Message: kind.String() + " committed"})
}

func (s *Server) handleDeleteKey(w http.ResponseWriter, r *http.Request) {
	raw, err := pathParam(r, "key")
	if err != nil {
		jsonResponse(w, http.StatusBadRequest, APIResponse{Error: err.Error()})
		return
	}

	s.runDelete(w, r, encoding.ParseLiteral(raw))
}

// pathParam returns a decoded URL parameter. chi matches against RawPath when
// the request has one, and against the already decoded Path otherwise.
func pathParam(r *http.Request, name string) (string, error) {
	v := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return v, nil
	}

	return url.PathUnescape(v)
}

func (s *Server) handleDeleteRange(w http.ResponseWriter, r *http.Request) {
	kr, err := rangeFromQuery(r.URL.Query())
	if err != nil {
		s.jsonError(w, err)
		return
	}

	s.runDelete(w, r, kr)
}

func (s *Server) runDelete(w http.ResponseWriter, r *http.Request, key any) {
	ex, ok := s.executor(w, r, action.Delete)
	if !ok {
		return
	}

	if _, err := ex.WithDeleteKey(key).Execute(r.Context()); err != nil {
		s.jsonError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, APIResponse{Success: true, Message: "delete committed"})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	ex, ok := s.executor(w, r, action.Clear)
	if !ok {
		return
	}

	if _, err := ex.Execute(r.Context()); err != nil {
		s.jsonError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, APIResponse{Success: true, Message: "clear committed"})
}

// executor builds the executor for the collection in the path. It writes the
// error response itself and reports false when the request is unusable.
func (s *Server) executor(w http.ResponseWriter, r *http.Request, kind action.Kind) (*action.Executor, bool) {
	ex, err := action.New(kind, s.db, chi.URLParam(r, "name"))
	if err != nil {
		s.jsonError(w, err)
		return nil, false
	}

	ex.WithLogger(s.logger).WithRecorder(s.metrics)

	if kind.ReadOnly() {
		return ex, true
	}

	d := s.durability

	if v := r.URL.Query().Get("durability"); v != "" {
		if d, err = engine.ParseDurability(v); err != nil {
			jsonResponse(w, http.StatusBadRequest, APIResponse{Error: err.Error()})
			return nil, false
		}
	}

	return ex.WithDurability(d), true
}

func rangeFromQuery(q url.Values) (engine.KeyRange, error) {
	lowerOpen, err := boolParam(q, "lower_open")
	if err != nil {
		return engine.KeyRange{}, err
	}

	upperOpen, err := boolParam(q, "upper_open")
	if err != nil {
		return engine.KeyRange{}, err
	}

	hasLower, hasUpper := q.Has("lower"), q.Has("upper")
	lower, upper := encoding.ParseLiteral(q.Get("lower")), encoding.ParseLiteral(q.Get("upper"))

	switch {
	case hasLower && hasUpper:
		return engine.Bound(lower, upper, lowerOpen, upperOpen)
	case hasLower:
		return engine.LowerBound(lower, lowerOpen)
	case hasUpper:
		return engine.UpperBound(upper, upperOpen)
	default:
		return engine.KeyRange{}, fmt.Errorf("%w: lower or upper is required", errBadQuery)
	}
}

func boolParam(q url.Values, name string) (bool, error) {
	if !q.Has(name) {
		return false, nil
	}

	v, err := strconv.ParseBool(q.Get(name))
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean", errBadQuery, name)
	}

	return v, nil
}

// statusFor maps executor and engine errors to HTTP status codes.
func statusFor(err error) int {
	var engErr *engine.Error

	switch {
	case errors.As(err, &engErr):
		switch engErr.Name {
		case engine.NameConstraint:
			return http.StatusConflict
		case engine.NameNotFound:
			return http.StatusNotFound
		case engine.NameData:
			return http.StatusBadRequest
		case engine.NameInvalidState:
			return http.StatusServiceUnavailable
		default:
			return http.StatusInternalServerError
		}
	case errors.Is(err, errBadQuery),
		errors.Is(err, action.ErrInvalidIndexName),
		errors.Is(err, action.ErrInvalidDurability),
		errors.Is(err, action.ErrInvalidPayload),
		errors.Is(err, action.ErrMissingPayload),
		errors.Is(err, action.ErrMissingDeleteKey),
		errors.Is(err, action.ErrNoKeyPath),
		errors.Is(err, action.ErrCompositeKeyPath),
		errors.Is(err, action.ErrMissingKeyField),
		errors.Is(err, action.ErrTypeMismatch),
		errors.Is(err, action.ErrInvalidAction):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) jsonError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}

	jsonResponse(w, status, APIResponse{Error: err.Error()})
}

func jsonResponse(w http.ResponseWriter, status int, resp APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(resp)
}
