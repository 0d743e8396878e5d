package httpapi

import (
	"encoding/json"

	"embedd/internal/manager"
)

// parseEmbedRequest extracts the text value from a request body. The body is
// either the payload itself ({"text": ...}) or a gateway envelope whose
// "body" field holds the payload as a JSON string or an object.
func parseEmbedRequest(body []byte) (any, error) {
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, manager.NewValidationError("Invalid JSON in request body: " + err.Error())
	}
	obj, ok := payload.(map[string]any)
	if !ok {
		return nil, manager.NewValidationError("Request must be a JSON object")
	}
	if inner, ok := obj["body"]; ok {
		if s, isStr := inner.(string); isStr {
			var decoded any
			if err := json.Unmarshal([]byte(s), &decoded); err != nil {
				return nil, manager.NewValidationError("Invalid JSON in request body: " + err.Error())
			}
			inner = decoded
		}
		if obj, ok = inner.(map[string]any); !ok {
			return nil, manager.NewValidationError("Request must be a JSON object")
		}
	}
	return obj["text"], nil
}
