// Package server exposes the agent and the shared store over loopback HTTP
// for the palette front-ends.
package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/rafabd1/Paleta/internal/clarify"
	"github.com/rafabd1/Paleta/internal/config"
	"github.com/rafabd1/Paleta/internal/engine"
	"github.com/rafabd1/Paleta/internal/store"
	"github.com/rafabd1/Paleta/internal/suggest"
	"github.com/rafabd1/Paleta/internal/types"
)

const (
	maxWait      = 30 * time.Second
	maxBodyBytes = 64 << 10
)

// Agent is what the server needs from the agent.
type Agent interface {
	Submit(text string) (string, error)
	ResolveClarification(r clarify.Resolution) (string, error)
}

// Suggester completes partial input.
type Suggester interface {
	Suggest(text string) suggest.Result
}

type Server struct {
	addr      string
	agent     Agent
	suggester Suggester
	store     *store.Store
	logger    *zap.Logger

	httpSrv *http.Server

	mu       sync.Mutex
	listener net.Listener
}

func New(addr string, a Agent, sg Suggester, st *store.Store, logger *zap.Logger) *Server {
	s := &Server{
		addr:      addr,
		agent:     a,
		suggester: sg,
		store:     st,
		logger:    logger,
	}
	s.httpSrv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the routed handler with CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /suggest", s.suggestHandler)
	mux.HandleFunc("POST /submit", s.submitHandler)
	mux.HandleFunc("GET /results", s.resultsHandler)
	mux.HandleFunc("GET /clarification", s.clarificationHandler)
	mux.HandleFunc("POST /clarification", s.resolveHandler)
	mux.HandleFunc("GET /palette", s.paletteHandler)
	mux.HandleFunc("POST /palette/show", s.showPaletteHandler)
	mux.HandleFunc("GET /close", s.closePollHandler)
	mux.HandleFunc("POST /close", s.closeHandler)
	return cors(mux)
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Start listens on the configured address and serves until ctx ends.
func (s *Server) Start(ctx context.Context) error {
	if err := config.CheckLoopback(s.addr); err != nil {
		return err
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.Wrap(err, "listen")
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.logger.Info("server listening", zap.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		<-errCh
		return nil
	case err := <-errCh:
		if err != nil {
			return errors.Wrap(err, "serve")
		}
		return nil
	}
}

// Addr is the bound address once Start is listening.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) suggestHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.suggester.Suggest(r.URL.Query().Get("text")))
}

type submitRequest struct {
	Command string `json:"command"`
}

type acceptedResponse struct {
	Status string `json:"status"`
	ID     string `json:"id,omitempty"`
}

func (s *Server) submitHandler(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := s.agent.Submit(req.Command)
	if err != nil {
		s.writeAgentError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, acceptedResponse{Status: "accepted", ID: id})
}

func (s *Server) resolveHandler(w http.ResponseWriter, r *http.Request) {
	var req clarify.Resolution
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := s.agent.ResolveClarification(req)
	if err != nil {
		s.writeAgentError(w, err)
		return
	}
	status := "accepted"
	if req.Cancel {
		status = "cancelled"
	}
	writeJSON(w, http.StatusAccepted, acceptedResponse{Status: status, ID: id})
}

func (s *Server) writeAgentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrEngineBusy):
		writeError(w, http.StatusConflict, "engine busy")
	case errors.Is(err, clarify.ErrNoPendingClarification):
		writeError(w, http.StatusConflict, err.Error())
	default:
		// empty command or empty correction
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

// slotResponse is the poll shape shared by results and clarifications.
type slotResponse struct {
	Available     bool                 `json:"available"`
	Consumed      bool                 `json:"consumed"`
	Result        *types.Result        `json:"result,omitempty"`
	Clarification *types.Clarification `json:"clarification,omitempty"`
}

func (s *Server) resultsHandler(w http.ResponseWriter, r *http.Request) {
	res, consumed, ok, err := poll(r, &s.store.Results)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	resp := slotResponse{Available: ok, Consumed: consumed}
	if ok {
		resp.Result = &res
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) clarificationHandler(w http.ResponseWriter, r *http.Request) {
	c, consumed, ok, err := poll(r, &s.store.Clarifications)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	resp := slotResponse{Available: ok, Consumed: consumed}
	if ok {
		resp.Clarification = &c
	}
	writeJSON(w, http.StatusOK, resp)
}

// poll reads a slot per the query string: peek=1 looks without consuming,
// wait=<duration> long-polls for a value up to maxWait.
func poll[T any](r *http.Request, slot *store.Slot[T]) (v T, consumed, ok bool, err error) {
	q := r.URL.Query()
	peek, _ := strconv.ParseBool(q.Get("peek"))
	if peek {
		v, consumed, ok = slot.Peek()
		return v, consumed, ok, nil
	}
	if raw := q.Get("wait"); raw != "" {
		d, perr := time.ParseDuration(raw)
		if perr != nil || d < 0 {
			return v, false, false, errors.Errorf("invalid wait %q", raw)
		}
		if d > maxWait {
			d = maxWait
		}
		ctx, cancel := context.WithTimeout(r.Context(), d)
		defer cancel()
		if v, werr := slot.Wait(ctx); werr == nil {
			return v, false, true, nil
		}
	}
	v, consumed, ok = slot.Claim()
	return v, consumed, ok, nil
}

func (s *Server) paletteHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"show": s.store.Palette.Observe()})
}

func (s *Server) showPaletteHandler(w http.ResponseWriter, _ *http.Request) {
	s.store.Palette.Raise()
	s.logger.Debug("palette show requested")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) closePollHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"close": s.store.Close.Observe()})
}

func (s *Server) closeHandler(w http.ResponseWriter, _ *http.Request) {
	s.store.Close.Raise()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(err, "invalid json body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
