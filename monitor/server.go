package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/csopesy-group3/csopesy-emu/kernel"
	"github.com/csopesy-group3/csopesy-emu/utils"
)

// StatusServer exposes the scheduler's admin/query surface as JSON over HTTP:
// /health, /process-smi and /vmstat. It is read-only and optional; the shell
// starts it only when monitor-port is set.
type StatusServer struct {
	sched  *kernel.Scheduler
	server *http.Server
	sem    *utils.Semaphore
}

// NewStatusServer builds a server bound to localhost on the given port
func NewStatusServer(port int, sched *kernel.Scheduler) *StatusServer {
	s := &StatusServer{
		sched: sched,
		// Report handlers walk the whole registry; bound how many run at once
		sem: utils.NewSemaphore(4),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/process-smi", s.handleProcessSMI)
	mux.HandleFunc("/vmstat", s.handleVMStat)

	s.server = &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", port),
		Handler: mux,
	}
	return s
}

// Start serves in the background until Stop
func (s *StatusServer) Start() {
	go func() {
		utils.InfoLog.Info("Status server listening", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.ErrorLog.Error("Status server stopped", "error", err)
		}
	}()
}

// Stop shuts the listener down, waiting briefly for in-flight requests
func (s *StatusServer) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		utils.ErrorLog.Error("Status server shutdown error", "error", err)
	}
}

func (s *StatusServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok", "module": "csopesy"})
}

func (s *StatusServer) handleProcessSMI(w http.ResponseWriter, r *http.Request) {
	if !s.sem.TryWait() {
		http.Error(w, "too many concurrent report requests", http.StatusTooManyRequests)
		return
	}
	defer s.sem.Signal()
	writeJSON(w, s.sched.ProcessTable())
}

func (s *StatusServer) handleVMStat(w http.ResponseWriter, r *http.Request) {
	if !s.sem.TryWait() {
		http.Error(w, "too many concurrent report requests", http.StatusTooManyRequests)
		return
	}
	defer s.sem.Signal()
	writeJSON(w, s.sched.VMStatSnapshot())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		utils.ErrorLog.Error("Error encoding status response", "error", err)
	}
}
