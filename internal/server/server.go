// Package server exposes a store over HTTP for syncpd.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lherron/syncp/internal/api"
	"github.com/lherron/syncp/internal/db"
	"github.com/lherron/syncp/internal/logging"
	"github.com/lherron/syncp/internal/store"
)

// Options configures the server
type Options struct {
	Addr  string
	Unix  string
	Token string
	// Principal acts for requests without an X-Syncp-As header.
	Principal string
	Log       *zap.Logger
}

// Server serves the repository routes
type Server struct {
	db        *db.DB
	token     string
	principal string
	log       *zap.Logger
	mux       *http.ServeMux
}

// New creates a server over a migrated database
func New(database *db.DB, opts Options) *Server {
	principal := opts.Principal
	if principal == "" {
		principal = store.DefaultPrincipal
	}
	s := &Server{
		db:        database,
		token:     opts.Token,
		principal: principal,
		log:       logging.OrNop(opts.Log),
		mux:       http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Serve listens on opts.Unix or opts.Addr until ctx is cancelled
func (s *Server) Serve(ctx context.Context, opts Options) error {
	httpServer := &http.Server{
		Handler:      s.mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}

	var listener net.Listener
	var err error
	if opts.Unix != "" {
		_ = os.Remove(opts.Unix)
		listener, err = net.Listen("unix", opts.Unix)
	} else {
		listener, err = net.Listen("tcp", opts.Addr)
	}
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.log.Info("syncpd listening", zap.String("addr", listener.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" {
			token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if token != s.token {
				s.writeJSON(w, http.StatusUnauthorized, api.ErrorResponse{Code: api.CodeUnauthorized, Message: "unauthorized"})
				return
			}
		}
		next(w, r)
	}
}

// storeFor returns the store acting for the request's principal
func (s *Server) storeFor(r *http.Request) *store.Store {
	principal := r.Header.Get(api.HeaderPrincipal)
	if principal == "" {
		principal = s.principal
	}
	return store.New(s.db).As(principal)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := api.StatusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.String(logging.FieldRoute, r.URL.Path), zap.Error(err))
	} else {
		s.log.Debug("request rejected", zap.String(logging.FieldRoute, r.URL.Path), zap.Int("status", status), zap.Error(err))
	}
	s.writeJSON(w, status, body)
}

// handle adapts a typed handler to a POST route with a JSON body
func handle[Req any](s *Server, fn func(ctx context.Context, st *store.Store, req *Req) (interface{}, error)) http.HandlerFunc {
	return s.withAuth(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			s.writeJSON(w, http.StatusMethodNotAllowed, api.ErrorResponse{Code: api.CodeMethodInvalid, Message: "method not allowed"})
			return
		}
		var req Req
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			s.writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Code: api.CodeInvalid, Message: fmt.Sprintf("invalid request body: %v", err)})
			return
		}
		out, err := fn(r.Context(), s.storeFor(r), &req)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, out)
	})
}
