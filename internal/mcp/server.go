// Package mcp exposes the embedding service as MCP tools over stdio.
package mcp

import (
	"context"
	"errors"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"embedd/pkg/types"
)

// Service is the part of the embedding service the tools call.
type Service interface {
	Embed(ctx context.Context, text any) (types.EmbedResponse, error)
	Health() types.HealthResponse
}

// Server wraps the MCP server around a Service.
type Server struct {
	mcp *gomcp.Server
	svc Service
	log zerolog.Logger
}

// ServerOption configures optional Server dependencies.
type ServerOption func(*Server)

// WithLogger sets the logger used for tool calls.
func WithLogger(l zerolog.Logger) ServerOption {
	return func(s *Server) { s.log = l }
}

// NewServer creates an MCP server exposing embed_text and model_info.
func NewServer(svc Service, version string, opts ...ServerOption) (*Server, error) {
	if svc == nil {
		return nil, errors.New("service is required")
	}
	if version == "" {
		version = "dev"
	}
	s := &Server{
		mcp: gomcp.NewServer(&gomcp.Implementation{Name: "embedd", Version: version}, nil),
		svc: svc,
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	return s, nil
}

// Serve runs the server over stdin/stdout until ctx is done or the client
// disconnects.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcp.Run(ctx, &gomcp.StdioTransport{})
}
