package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"limedb/pkg/dberrors"
	"limedb/pkg/manifest"
	"limedb/pkg/types"
)

const (
	contentTypeJSON        = "application/json"
	headerRequestID        = "X-Request-ID"
	defaultHTTPPort        = "8080"
	defaultShutdownTimeout = time.Second * 5
)

type iDB interface {
	AllocateFileID() (types.FileID, error)
	CompleteCompaction(version uint64) error
	Watermark() manifest.Record
	ManifestKind() manifest.Kind

	Put(key, value []byte) error
	Get(key []byte) ([]byte, error)
	Rotate() error
}

// Server exposes the watermarks and the key index over HTTP.
type Server struct {
	db         iDB
	httpServer *http.Server
	URL        string
	addr       string
}

// NewServer creates a new server instance
func NewServer(db iDB, port string) *Server {
	if port == "" {
		port = defaultHTTPPort
	}
	return &Server{
		db:   db,
		URL:  "http://localhost:" + port,
		addr: ":" + port,
	}
}

// Start starts the server
func (s *Server) Start() error {
	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop stops the server
func (s *Server) Stop() error {
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown HTTP server: %w", err)
		}
	}
	return nil
}

// createRouter builds chi router
func (s *Server) createRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/manifest", s.handleWatermark)
		r.Post("/manifest/fid", s.handleAllocate)
		r.Post("/manifest/compaction", s.handleCompaction)

		r.Put("/kv", s.handlePut)
		r.Get("/kv", s.handleGet)

		r.Post("/wal/rotate", s.handleRotate)
	})

	return r
}

// requestID tags every request with an id, reusing the caller's one if set.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(headerRequestID, id)

		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("http request", "id", id, "method", r.Method, "path", r.URL.Path, "took", time.Since(start))
	})
}

// startHTTPServer binds synchronously so address errors reach the caller.
func (s *Server) startHTTPServer() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	if addr, ok := ln.Addr().(*net.TCPAddr); ok {
		s.URL = "http://localhost:" + strconv.Itoa(addr.Port)
	}

	s.httpServer = &http.Server{
		Handler:           s.createRouter(),
		ReadHeaderTimeout: time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("HTTP server started", "addr", s.URL)
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("Error encoding response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, dberrors.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, dberrors.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, dberrors.ErrClosed):
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, NewErrorResponse(err.Error()))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, NewOKResponse())
}

func (s *Server) handleWatermark(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, NewWatermarkResponse(s.db.ManifestKind(), s.db.Watermark()))
}

func (s *Server) handleAllocate(w http.ResponseWriter, r *http.Request) {
	fid, err := s.db.AllocateFileID()
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, NewFileIDResponse(uint32(fid)))
}

func (s *Server) handleCompaction(w http.ResponseWriter, r *http.Request) {
	version, err := strconv.ParseUint(r.URL.Query().Get("version"), 10, 64)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, NewErrorResponse("Missing or invalid version"))
		return
	}

	if err := s.db.CompleteCompaction(version); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, NewWatermarkResponse(s.db.ManifestKind(), s.db.Watermark()))
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.writeJSON(w, http.StatusBadRequest, NewErrorResponse("Failed to parse form"))
		return
	}

	key := r.FormValue("key")
	value := r.FormValue("value")

	if key == "" || value == "" {
		s.writeJSON(w, http.StatusBadRequest, NewErrorResponse("Missing key or value"))
		return
	}

	if err := s.db.Put([]byte(key), []byte(value)); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, NewSuccessResponse())
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		s.writeJSON(w, http.StatusBadRequest, NewErrorResponse("Missing key"))
		return
	}

	value, err := s.db.Get([]byte(key))
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, NewValueResponse(string(value)))
}

func (s *Server) handleRotate(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Rotate(); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, NewSuccessResponse())
}
