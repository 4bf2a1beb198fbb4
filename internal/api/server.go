// Package api exposes an engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/roach88/tally/internal/counter"
	"github.com/roach88/tally/internal/engine"
	"github.com/roach88/tally/internal/journal"
	"github.com/roach88/tally/internal/state"
)

// EntryReader is the part of the journal the server reads.
type EntryReader interface {
	ReadEntries(ctx context.Context, session string) ([]journal.Entry, error)
	ListSessions(ctx context.Context) ([]string, error)
}

// SessionsResponse is the body of GET /sessions. Current is this
// process's session; a file journal kept for debugging may hold older ones.
type SessionsResponse struct {
	Current  string   `json:"current"`
	Sessions []string `json:"sessions"`
}

// StateResponse is the body of GET /state and of every dispatch.
type StateResponse struct {
	Session string  `json:"session"`
	Seq     int64   `json:"seq"`
	Todos   []int64 `json:"todos"`
	Counter int64   `json:"counter"`
}

// CounterResponse is the body of GET /counter.
type CounterResponse struct {
	Counter int64 `json:"counter"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Server implements ServerInterface on top of an engine whose Run loop is
// active.
type Server struct {
	engine  *engine.Engine
	entries EntryReader
}

var _ ServerInterface = (*Server)(nil)

// NewServer wires the counter endpoints into a router and exposes a health
// check. entries may be nil, in which case GET /journal and GET /sessions
// return 404.
func NewServer(e *engine.Engine, entries EntryReader) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	return HandlerWithOptions(&Server{engine: e, entries: entries}, ChiServerOptions{
		BaseRouter: r,
		ErrorHandlerFunc: func(w http.ResponseWriter, r *http.Request, err error) {
			writeError(w, http.StatusBadRequest, "INVALID_PARAMETER", err.Error())
		},
	})
}

func (s *Server) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stateResponse(s.engine.Snapshot()))
}

func (s *Server) GetCounter(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, CounterResponse{Counter: s.engine.Counter()})
}

func (s *Server) PostCounterIncrement(w http.ResponseWriter, r *http.Request, params AmountParams) {
	s.dispatch(w, r, counter.Inc(params.Amount))
}

func (s *Server) PostCounterDecrement(w http.ResponseWriter, r *http.Request, params AmountParams) {
	s.dispatch(w, r, counter.Dec(params.Amount))
}

func (s *Server) PostCounterReset(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, counter.ResetAction())
}

func (s *Server) GetJournal(w http.ResponseWriter, r *http.Request) {
	if s.entries == nil {
		writeError(w, http.StatusNotFound, "NO_JOURNAL", "journal is not enabled")
		return
	}

	entries, err := s.entries.ReadEntries(r.Context(), s.engine.Session())
	if err != nil {
		slog.Error("read journal failed", "error", err)
		writeError(w, http.StatusInternalServerError, "JOURNAL_READ", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) GetSessions(w http.ResponseWriter, r *http.Request) {
	if s.entries == nil {
		writeError(w, http.StatusNotFound, "NO_JOURNAL", "journal is not enabled")
		return
	}

	ids, err := s.entries.ListSessions(r.Context())
	if err != nil {
		slog.Error("list sessions failed", "error", err)
		writeError(w, http.StatusInternalServerError, "JOURNAL_READ", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, SessionsResponse{Current: s.engine.Session(), Sessions: ids})
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, a counter.Action) {
	next, err := s.engine.Dispatch(r.Context(), a)
	if err != nil {
		var re *engine.RuntimeError
		switch {
		case errors.As(err, &re) && re.Code == engine.ErrCodeStopped:
			writeError(w, http.StatusServiceUnavailable, string(re.Code), re.Message)
		case errors.As(err, &re):
			writeError(w, http.StatusBadRequest, string(re.Code), re.Message)
		default:
			writeError(w, http.StatusServiceUnavailable, "DISPATCH_FAILED", err.Error())
		}
		return
	}

	slog.Debug("dispatched over http", "type", a.Type(), "counter", next.Counter)
	writeJSON(w, http.StatusOK, s.stateResponse(next))
}

func (s *Server) stateResponse(snap engine.Snapshot) StateResponse {
	return StateResponse{
		Session: s.engine.Session(),
		Seq:     snap.Seq,
		Todos:   state.SelectTodos(snap.Root),
		Counter: state.SelectCounter(snap.Root),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
