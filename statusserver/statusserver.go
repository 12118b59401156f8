// Package statusserver exposes a pipeline driver's progress as a small
// gorilla/mux-routed HTTP surface, entirely optional at the call site: it
// subscribes to the same progress callback the core pipeline already
// offers rather than reaching into driver internals.
package statusserver

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/zhantong1994/screencamera/pipeline"
)

// Snapshot is the JSON body served at GET /status.
type Snapshot struct {
	SessionID        string `json:"sessionId"`
	CurrentIndex     int    `json:"currentIndex"`
	LastSuccessIndex int    `json:"lastSuccessIndex"`
	FrameTotal       int    `json:"frameTotal"`
	ProcessedCount   int    `json:"processedCount"`
	State            string `json:"state"`
}

// Server holds the most recent Status pushed by a pipeline.Driver and
// serves it over HTTP.
type Server struct {
	mu   sync.RWMutex
	last Snapshot
}

// New returns a Server with no snapshot recorded yet (state "Unknown"
// until the first progress callback arrives).
func New() *Server {
	return &Server{last: Snapshot{State: "Unknown"}}
}

// Observe implements pipeline.ProgressFunc, recording st as the latest
// snapshot. Pass s.Observe to pipeline.Options.OnProgress.
func (s *Server) Observe(st pipeline.Status) {
	sessionID := ""
	if st.SessionID != uuid.Nil {
		sessionID = st.SessionID.String()
	}
	snap := Snapshot{
		SessionID:        sessionID,
		CurrentIndex:     st.CurrentIndex,
		LastSuccessIndex: st.LastSuccessIndex,
		FrameTotal:       st.FrameTotal,
		ProcessedCount:   st.ProcessedCount,
		State:            st.Stage.String(),
	}
	s.mu.Lock()
	s.last = snap
	s.mu.Unlock()
}

// Snapshot returns a copy of the most recently observed status.
func (s *Server) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// Router builds the gorilla/mux router serving GET /status and GET
// /healthz. Callers mount it directly or wrap it in their own http.Server.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	return r
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.Snapshot())
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
