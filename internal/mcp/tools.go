package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"embedd/internal/manager"
)

func (s *Server) registerTools() {
	s.mcp.AddTool(&gomcp.Tool{
		Name:        "embed_text",
		Description: "Generate a normalized sentence embedding for a piece of text. Returns the vector, its dimension and the model that produced it.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"text": {"type": "string", "description": "Text to embed. Long input is truncated."}
			},
			"required": ["text"]
		}`),
	}, s.handleEmbedText)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "model_info",
		Description: "Report the embedding model's lifecycle state, memory use and request statistics.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {}}`),
	}, s.handleModelInfo)
}

func (s *Server) handleEmbedText(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args map[string]any
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
			return toolError("invalid arguments: %v", err), nil
		}
	}
	rid := uuid.NewString()
	resp, err := s.svc.Embed(ctx, args["text"])
	if err != nil {
		s.log.Warn().Str("tool", "embed_text").Str("request_id", rid).Err(err).Msg("tool call failed")
		return toolError("%s", clientMessage(err)), nil
	}
	resp.RequestID = rid
	return jsonResult(resp)
}

func (s *Server) handleModelInfo(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	return jsonResult(s.svc.Health())
}

// clientMessage mirrors the HTTP error messages: validation detail is
// returned, other failures stay generic.
func clientMessage(err error) string {
	switch {
	case manager.IsValidation(err):
		return "VALIDATION_ERROR: " + err.Error()
	case manager.IsModelLoad(err):
		return "MODEL_LOAD_ERROR: Model temporarily unavailable"
	case manager.IsEmbedding(err):
		return "EMBEDDING_ERROR: Failed to generate embedding"
	case manager.IsTooBusy(err):
		return "TOO_BUSY: Too many requests, retry later"
	default:
		return "INTERNAL_ERROR: Internal server error"
	}
}

func jsonResult(v any) (*gomcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: string(b)}},
	}, nil
}

func toolError(format string, args ...any) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}
