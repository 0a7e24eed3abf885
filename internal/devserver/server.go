// Package devserver is a local stand-in for the assistant service: it echoes
// chat prompts over a websocket and describes uploaded images.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/diogo/mira/internal/models"
)

const (
	maxUploadSize  = 20 << 20
	maxMessageSize = 1 << 20
	pongWait       = 60 * time.Second
	writeWait      = 10 * time.Second
)

type analysisResponse struct {
	Success    bool   `json:"success"`
	AIResponse string `json:"aiResponse,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Server holds the router state
type Server struct {
	hub      *Hub
	log      zerolog.Logger
	upgrader websocket.Upgrader
	delay    time.Duration
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the request logger
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.log = logger
	}
}

// WithReplyDelay waits before each answer, to watch the loading state
func WithReplyDelay(d time.Duration) Option {
	return func(s *Server) {
		s.delay = d
	}
}

// New creates a server around hub
func New(hub *Hub, opts ...Option) *Server {
	s := &Server{
		hub: hub,
		log: zerolog.Nop(),
		upgrader: websocket.Upgrader{
			CheckOrigin:      func(r *http.Request) bool { return true },
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			HandshakeTimeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the chi router
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/chat", s.handleChat)
	r.Post("/image-analyze/image", s.handleAnalyze)
	r.Post("/admin/disconnect", s.handleDisconnect)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// ListenAndServe serves on addr until ctx is done
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("devserver listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.hub.Shutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug().Err(err).Msg("upgrade failed")
		return
	}

	mu := s.hub.add(conn)
	defer func() {
		s.hub.remove(conn)
		_ = conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	s.log.Info().Str("remote", r.RemoteAddr).Msg("chat connected")

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			s.log.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("chat closed")
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		if s.delay > 0 {
			select {
			case <-time.After(s.delay):
			case <-r.Context().Done():
				return
			}
		}

		mu.Lock()
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		err = conn.WriteMessage(websocket.TextMessage, Envelope(EchoReply(string(payload))))
		mu.Unlock()
		if err != nil {
			return
		}
	}
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+1<<20)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeAnalysis(w, http.StatusBadRequest, analysisResponse{Error: "invalid multipart form: " + err.Error()})
		return
	}

	file, header, err := r.FormFile(models.UploadFieldName)
	if err != nil {
		writeAnalysis(w, http.StatusBadRequest, analysisResponse{Error: "No image file provided"})
		return
	}
	defer file.Close()

	n, err := io.Copy(io.Discard, file)
	if err != nil {
		writeAnalysis(w, http.StatusBadRequest, analysisResponse{Error: "failed to read image"})
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	s.log.Info().Str("file", header.Filename).Int64("bytes", n).Msg("image analyzed")
	writeAnalysis(w, http.StatusOK, analysisResponse{
		Success:    true,
		AIResponse: string(Envelope(analysisReply(header.Filename, n, mimeType))),
	})
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	n := s.hub.Disconnect()
	s.log.Info().Int("dropped", n).Msg("dropped chat connections")
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]int{"dropped": n})
}

func writeAnalysis(w http.ResponseWriter, status int, resp analysisResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
