package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/AaronLay10/TorchBridge/internal/crossing"
	"github.com/AaronLay10/TorchBridge/internal/events"
	"github.com/AaronLay10/TorchBridge/internal/version"
)

// Controller is the part of a session the HTTP surface drives.
type Controller interface {
	Dispatch(ctx context.Context, cmd crossing.Command) error
	Snapshot() crossing.Snapshot
	Roster() *crossing.Roster
	AddRenderer(r crossing.Renderer)
}

// Server serves the puzzle over HTTP and websocket.
type Server struct {
	ctrl Controller
	hub  *Hub
}

// NewServer attaches a websocket hub to ctrl as a renderer.
func NewServer(ctrl Controller) *Server {
	s := &Server{ctrl: ctrl, hub: NewHub()}
	ctrl.AddRenderer(s.hub)
	return s
}

// Hub returns the websocket fan-out used by the server.
func (s *Server) Hub() *Hub { return s.hub }

type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Version   string `json:"version"`
	Hostname  string `json:"hostname"`
	Timestamp string `json:"ts"`
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	host, _ := os.Hostname()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Service:   "torchd",
		Version:   version.Version,
		Hostname:  host,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (s *Server) stateHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

func (s *Server) rosterHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Roster().Actors())
}

// eventsHandler serves the in-memory ring buffer, or the journal of one
// session when ?session= is given and Postgres is configured.
func eventsHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		writeJSON(w, http.StatusOK, events.Snapshot())
		return
	}

	client := events.GetPostgresClient()
	if client == nil {
		writeJSON(w, http.StatusServiceUnavailable, OperatorResponse{OK: false, Error: "event journal not configured"})
		return
	}
	rows, err := client.QuerySession(sessionID, queryLimit(r))
	if err != nil {
		log.Printf("events query failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, OperatorResponse{OK: false, Error: "journal query failed"})
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

type RunsResponse struct {
	Journal bool                 `json:"journal"`
	Scanned int                  `json:"scanned"`
	Summary *crossing.RunSummary `json:"summary,omitempty"`
}

func runsHandler(w http.ResponseWriter, r *http.Request) {
	summary, scanned, err := crossing.SummarizeRuns(events.GetPostgresClient(), queryLimit(r))
	if err != nil {
		log.Printf("runs query failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, OperatorResponse{OK: false, Error: "journal query failed"})
		return
	}
	writeJSON(w, http.StatusOK, RunsResponse{
		Journal: summary != nil,
		Scanned: scanned,
		Summary: summary,
	})
}

type SelectRequest struct {
	ActorID string `json:"actor_id"`
}

type OperatorResponse struct {
	OK       bool               `json:"ok"`
	Error    string             `json:"error,omitempty"`
	Reason   crossing.Reason    `json:"reason,omitempty"`
	Snapshot *crossing.Snapshot `json:"snapshot,omitempty"`
}

func (s *Server) selectHandler(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, OperatorResponse{OK: false, Error: "invalid JSON"})
		return
	}
	if req.ActorID == "" {
		writeJSON(w, http.StatusBadRequest, OperatorResponse{OK: false, Error: "actor_id required"})
		return
	}
	s.dispatch(w, r, crossing.Command{Op: crossing.OpSelect, ActorID: req.ActorID}, http.StatusOK)
}

// opHandler serves the body-less commands.
func (s *Server) opHandler(op crossing.Op, okStatus int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.dispatch(w, r, crossing.Command{Op: op}, okStatus)
	}
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, cmd crossing.Command, okStatus int) {
	if err := s.ctrl.Dispatch(r.Context(), cmd); err != nil {
		writeError(w, err)
		return
	}
	snap := s.ctrl.Snapshot()
	writeJSON(w, okStatus, OperatorResponse{OK: true, Snapshot: &snap})
}

// writeError maps rejections onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	var rej *crossing.Rejection
	if !errors.As(err, &rej) {
		writeJSON(w, http.StatusInternalServerError, OperatorResponse{OK: false, Error: err.Error()})
		return
	}

	status := http.StatusUnprocessableEntity
	switch rej.Reason {
	case crossing.ReasonBusy:
		status = http.StatusConflict
	case crossing.ReasonUnknownActor:
		status = http.StatusNotFound
	case crossing.ReasonUnknownCommand:
		status = http.StatusBadRequest
	}
	msg := rej.Message
	if msg == "" {
		msg = string(rej.Reason)
	}
	writeJSON(w, status, OperatorResponse{OK: false, Error: msg, Reason: rej.Reason})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func queryLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Handler returns the routed mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", uiHandler)
	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /ready", readyHandler)
	mux.HandleFunc("GET /state", s.stateHandler)
	mux.HandleFunc("GET /roster", s.rosterHandler)
	mux.HandleFunc("GET /events", eventsHandler)
	mux.HandleFunc("GET /runs", runsHandler)
	mux.Handle("GET /metrics", metricsHandler())
	mux.HandleFunc("GET /ws", s.wsHandler)

	mux.HandleFunc("POST /select", RequireAnyRole(s.selectHandler))
	mux.HandleFunc("POST /cross", RequireAnyRole(s.opHandler(crossing.OpCross, http.StatusOK)))
	mux.HandleFunc("POST /undo", RequireAnyRole(s.opHandler(crossing.OpUndo, http.StatusOK)))
	mux.HandleFunc("POST /reset", RequireAnyRole(s.opHandler(crossing.OpReset, http.StatusOK)))
	mux.HandleFunc("POST /solution", RequireAnyRole(s.opHandler(crossing.OpPlay, http.StatusAccepted)))
	return mux
}

// ListenAndServe serves on port until ctx is cancelled. TLS is used when
// InitTLS found a certificate pair.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	tlsCfg, err := LoadTLSConfig()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		TLSConfig:         tlsCfg,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if tlsCfg != nil {
		log.Printf("API listening on %s (TLS)\n", srv.Addr)
		err = srv.ListenAndServeTLS("", "")
	} else {
		log.Printf("API listening on %s\n", srv.Addr)
		err = srv.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
