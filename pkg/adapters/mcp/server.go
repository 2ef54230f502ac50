// Package mcp exposes a Session as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/steve"
	"github.com/aretw0/steve/internal/logging"
	"github.com/aretw0/steve/pkg/domain"
	"github.com/aretw0/steve/pkg/input"
	"github.com/aretw0/steve/pkg/narrative"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// StateURI is the resource holding the current conversation state.
const StateURI = "steve://state"

// ChatArgs are the arguments of the chat tool.
type ChatArgs struct {
	Message string `json:"message"`
}

// ChatResponse aligns with the HTTP ChatResponse schema.
type ChatResponse struct {
	Dialogue    string             `json:"dialogue" jsonschema_description:"What Steve says"`
	VisualState domain.VisualState `json:"visualState" jsonschema_description:"Mood indicator: dim, considering, bright or dark"`
}

// Session is the slice of session.Session the server drives.
type Session interface {
	Turn(ctx context.Context, input string) (domain.TurnResult, error)
	Reset(ctx context.Context) (*domain.ConversationState, error)
	Current() *domain.ConversationState
}

// Server wraps a Session and exposes it as an MCP Server.
type Server struct {
	session   Session
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(sess Session, opts ...Option) *Server {
	s := &Server{
		session:   sess,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("steve-mcp", steve.Version),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves over SSE on port until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, stopping MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: chat
	chatTool := mcp.NewTool("chat",
		mcp.WithDescription("Say something to Steve. Returns his reply and current mood."),
		mcp.WithString("message", mcp.Required(), mcp.Description("What you say to Steve")),
		mcp.WithOutputSchema[ChatResponse](),
	)
	s.mcpServer.AddTool(chatTool, mcp.NewStructuredToolHandler(s.handleChat))

	// TOOL: reset
	resetTool := mcp.NewTool("reset",
		mcp.WithDescription("Start the conversation over from the beginning."),
		mcp.WithOutputSchema[ChatResponse](),
	)
	s.mcpServer.AddTool(resetTool, mcp.NewStructuredToolHandler(s.handleReset))
}

func (s *Server) handleChat(ctx context.Context, request mcp.CallToolRequest, args ChatArgs) (ChatResponse, error) {
	clean, err := input.Sanitize(args.Message, 0)
	if err != nil {
		s.logger.Warn("MCP chat: input rejected", "err", err, "size", len(args.Message))
		return ChatResponse{}, fmt.Errorf("input rejected: %w", err)
	}

	result, err := s.session.Turn(ctx, clean)
	if err != nil && result.NewState == nil {
		s.logger.Error("MCP chat: turn failed", "err", err)
		return ChatResponse{}, errors.New("steve couldn't hear you just now, try again")
	}
	if err != nil {
		s.logger.Warn("MCP chat: turn delivered but state was not saved", "err", err)
	}

	return ChatResponse{Dialogue: result.Dialogue, VisualState: result.VisualState}, nil
}

func (s *Server) handleReset(ctx context.Context, request mcp.CallToolRequest, _ map[string]any) (ChatResponse, error) {
	state, err := s.session.Reset(ctx)
	if err != nil {
		s.logger.Error("MCP reset failed", "err", err)
		return ChatResponse{}, errors.New("could not reset the conversation")
	}
	return ChatResponse{Dialogue: narrative.ReopenLine, VisualState: domain.VisualFor(state.SteveState)}, nil
}

func (s *Server) registerResources() {
	// EXPOSE: steve://state
	s.mcpServer.AddResource(mcp.NewResource(StateURI, "Conversation State",
		mcp.WithResourceDescription("Steve's narrative state, loop count and running summary"),
		mcp.WithMIMEType("application/json"),
	), s.readState)
}

func (s *Server) readState(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	state := s.session.Current()
	if state == nil {
		return nil, errors.New("no conversation has started")
	}
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      StateURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
