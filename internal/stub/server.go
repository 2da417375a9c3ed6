// internal/stub/server.go
package stub

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/signalnine/deskmate/internal/config"
)

// Server is a local stand-in for the DeskMate agent service
type Server struct {
	cfg    *config.StubConfig
	db     *DB
	server *http.Server
	logger *slog.Logger
}

// NewServer creates a new stub server
func NewServer(cfg *config.StubConfig, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := NewDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	uploadDir := cfg.UploadDir
	if uploadDir == "" {
		uploadDir = "uploads"
	}
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		db.Close()
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	handler := NewHandler(db, NewPlanner(), cfg.MaxPayloadBytes, uploadDir, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handler.Health)
	mux.HandleFunc("POST /api/v1/agent/query", handler.Query)
	mux.HandleFunc("GET /api/v1/agent/intent/{command}", handler.Intent)
	mux.HandleFunc("GET /api/v1/jobs/{$}", handler.Jobs)
	mux.HandleFunc("GET /api/v1/jobs/{id}", handler.Job)
	mux.HandleFunc("GET /api/v1/files/list", handler.Files)
	mux.HandleFunc("POST /api/v1/files/upload", handler.Upload)

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		cfg:    cfg,
		db:     db,
		server: server,
		logger: logger,
	}, nil
}

// Handler exposes the routes, for tests
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Run serves until ctx is canceled
func (s *Server) Run(ctx context.Context) error {
	ln, err := s.listen()
	if err != nil {
		return err
	}
	s.logger.Info("stub agent starting", "addr", ln.Addr().String(), "tls", s.tlsEnabled())

	errCh := s.serve(ln)

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.shutdown()
	case err := <-errCh:
		s.db.Close()
		return err
	}
	return nil
}

// RunAndGetAddr starts serving in the background and returns the bound
// address. The server stops when ctx is canceled.
func (s *Server) RunAndGetAddr(ctx context.Context) (string, error) {
	ln, err := s.listen()
	if err != nil {
		return "", err
	}
	s.logger.Info("stub agent starting", "addr", ln.Addr().String(), "tls", s.tlsEnabled())

	errCh := s.serve(ln)
	go func() {
		select {
		case <-ctx.Done():
			s.shutdown()
		case err := <-errCh:
			s.logger.Error("stub agent stopped", "error", err)
			s.db.Close()
		}
	}()

	return ln.Addr().String(), nil
}

func (s *Server) tlsEnabled() bool {
	return s.cfg.TLSCert != "" && s.cfg.TLSKey != ""
}

func (s *Server) listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		s.db.Close()
		return nil, fmt.Errorf("listen %s: %w", s.cfg.ListenAddr, err)
	}
	if !s.tlsEnabled() {
		return ln, nil
	}

	// Load TLS cert
	cert, err := tls.LoadX509KeyPair(s.cfg.TLSCert, s.cfg.TLSKey)
	if err != nil {
		ln.Close()
		s.db.Close()
		return nil, fmt.Errorf("load TLS cert: %w", err)
	}
	s.server.TLSConfig = &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
	return tls.NewListener(ln, s.server.TLSConfig), nil
}

func (s *Server) serve(ln net.Listener) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(ln); err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	return errCh
}

func (s *Server) shutdown() {
	s.logger.Info("stub agent shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.server.Shutdown(shutdownCtx)
	s.db.Close()
}
