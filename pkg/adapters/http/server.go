// Package http serves a Session over a small JSON API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/steve"
	"github.com/aretw0/steve/api"
	"github.com/aretw0/steve/internal/logging"
	"github.com/aretw0/steve/pkg/domain"
	"github.com/aretw0/steve/pkg/input"
	"github.com/aretw0/steve/pkg/narrative"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Session is the slice of session.Session the server drives.
type Session interface {
	Turn(ctx context.Context, input string) (domain.TurnResult, error)
	Reset(ctx context.Context) (*domain.ConversationState, error)
	Current() *domain.ConversationState
}

//go:generate go tool oapi-codegen -package http -generate types -o api.gen.go ../../../api/openapi.yaml

// Server handles the HTTP API.
type Server struct {
	session  Session
	logger   *slog.Logger
	metrics  http.Handler
	version  string
	maxInput int
	doc      *openapi3.T
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics mounts a Prometheus handler on /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithVersion overrides the version reported by /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// WithMaxInputSize sets the message size limit in bytes.
func WithMaxInputSize(n int) Option {
	return func(s *Server) {
		s.maxInput = n
	}
}

// NewHandler creates the HTTP handler for a session.
func NewHandler(sess Session, opts ...Option) (http.Handler, error) {
	if sess == nil {
		return nil, errors.New("http: session is required")
	}
	doc, err := api.Load(context.Background())
	if err != nil {
		return nil, fmt.Errorf("http: invalid embedded openapi document: %w", err)
	}

	s := &Server{
		session:  sess,
		logger:   logging.NewNop(),
		version:  steve.Version,
		maxInput: input.MaxSize(),
		doc:      doc,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post("/chat", s.Chat)
	r.Post("/reset", s.Reset)
	r.Get("/state", s.GetState)
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(api.Spec)
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	return enableCORS(r), nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Chat handles POST /chat.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	// JSON escaping can inflate a message up to six times; the message itself is checked below.
	r.Body = http.MaxBytesReader(w, r.Body, int64(6*s.maxInput+1024))

	var body ChatJSONRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "Message is too long.")
			return
		}
		s.logger.Warn("Chat: invalid request body", "err", err)
		s.writeError(w, http.StatusBadRequest, "Request body must be JSON with a message.")
		return
	}

	msg, err := input.Sanitize(body.Message, s.maxInput)
	switch {
	case errors.Is(err, input.ErrTooLarge):
		s.writeError(w, http.StatusRequestEntityTooLarge, "Message is too long.")
		return
	case errors.Is(err, input.ErrEmpty):
		s.writeError(w, http.StatusBadRequest, "Message is required.")
		return
	case err != nil:
		s.writeError(w, http.StatusBadRequest, "Message must be valid UTF-8 text.")
		return
	}

	result, err := s.session.Turn(r.Context(), msg)
	if err != nil && result.NewState == nil {
		s.logger.Error("Chat: turn failed", "err", err)
		s.writeError(w, http.StatusServiceUnavailable, "Steve couldn't hear you just now. Try again.")
		return
	}
	if err != nil {
		s.logger.Warn("Chat: turn delivered but state was not saved", "err", err)
	}

	s.writeJSON(w, http.StatusOK, ChatResponse{
		Dialogue:    result.Dialogue,
		VisualState: VisualState(result.VisualState),
	})
}

// Reset handles POST /reset.
func (s *Server) Reset(w http.ResponseWriter, r *http.Request) {
	state, err := s.session.Reset(r.Context())
	if err != nil {
		s.logger.Error("Reset failed", "err", err)
		s.writeError(w, http.StatusInternalServerError, "Could not reset the conversation.")
		return
	}
	s.writeJSON(w, http.StatusOK, ChatResponse{
		Dialogue:    narrative.ReopenLine,
		VisualState: VisualState(domain.VisualFor(state.SteveState)),
	})
}

// GetState handles GET /state.
func (s *Server) GetState(w http.ResponseWriter, r *http.Request) {
	state := s.session.Current()
	if state == nil {
		s.writeError(w, http.StatusNotFound, "No conversation has started.")
		return
	}
	s.writeJSON(w, http.StatusOK, ConversationState{
		SteveState:          NarrativeState(state.SteveState),
		LoopCount:           state.LoopCount,
		ConversationSummary: state.ConversationSummary,
		LastUserSuggestion:  state.LastUserSuggestion,
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if s.doc.Info != nil {
		apiVersion = s.doc.Info.Version
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":         "steve-http",
		"version":     s.version,
		"api_version": apiVersion,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, Error{Error: msg})
}
