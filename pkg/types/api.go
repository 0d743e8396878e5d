package types

// EmbedRequest represents an embedding request payload.
// Text is decoded as a raw JSON value so non-string input can be rejected
// with a precise validation message instead of a decode failure.
type EmbedRequest struct {
	// Required text to embed.
	// example: Machine learning is a subset of artificial intelligence.
	Text any `json:"text" swaggertype:"string" example:"Machine learning is a subset of artificial intelligence."`
}

// EmbedResponse is returned by POST /embed.
type EmbedResponse struct {
	// L2-normalised embedding vector.
	Embedding []float32 `json:"embedding"`
	// Identifier of the model that produced the vector.
	// example: sentence-transformers/all-MiniLM-L6-v2
	ModelVersion string `json:"model_version" example:"sentence-transformers/all-MiniLM-L6-v2"`
	// Number of elements in Embedding.
	// example: 384
	Dimension int `json:"dimension" example:"384"`
	// Wall-clock time spent serving the request, in milliseconds.
	// example: 42
	ProcessingTimeMS int64 `json:"processing_time_ms" example:"42"`
	// Request identifier, when one was assigned.
	RequestID string `json:"request_id,omitempty"`
}

// ErrorBody is the inner error object of ErrorResponse.
type ErrorBody struct {
	// Machine readable error code.
	// example: VALIDATION_ERROR
	Code string `json:"code" example:"VALIDATION_ERROR"`
	// Human readable message.
	// example: Text field is required and cannot be empty
	Message string `json:"message" example:"Text field is required and cannot be empty"`
	// Server time in unix seconds.
	// example: 1700000000
	Timestamp int64 `json:"timestamp" example:"1700000000"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ModelInfo summarises the lifecycle manager for health reporting.
type ModelInfo struct {
	// example: sentence-transformers/all-MiniLM-L6-v2
	ModelName string `json:"model_name" example:"sentence-transformers/all-MiniLM-L6-v2"`
	// Lifecycle state: unloaded, loading or loaded.
	// example: loaded
	State           string `json:"state" example:"loaded"`
	ModelLoaded     bool   `json:"model_loaded"`
	TokenizerLoaded bool   `json:"tokenizer_loaded"`
	// Load time in unix seconds; omitted when nothing is loaded.
	// example: 1700000000
	LoadedAt *int64 `json:"loaded_at" example:"1700000000"`
	// example: 512
	MaxMemoryMB int `json:"max_memory_mb" example:"512"`
	// example: 3600
	TimeoutSeconds int64 `json:"timeout_seconds" example:"3600"`
	// Resident memory measured after the last load, in MB.
	// example: 310
	MemoryRSSMB int    `json:"memory_rss_mb,omitempty" example:"310"`
	LoadsTotal  uint64 `json:"loads_total"`
	// Releases performed for any reason (expiry, explicit, resource exhaustion).
	ReleasesTotal uint64 `json:"releases_total"`
	LastError     string `json:"last_error,omitempty"`
}

// Statistics reports request counters since process start.
type Statistics struct {
	// example: 12
	RequestCount uint64 `json:"request_count" example:"12"`
	// example: 35
	AverageProcessingTimeMS int64 `json:"average_processing_time_ms" example:"35"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	// healthy when a model is loaded, initializing otherwise.
	// example: healthy
	Status     string     `json:"status" example:"healthy"`
	ModelInfo  ModelInfo  `json:"model_info"`
	Statistics Statistics `json:"statistics"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	Timestamp int64 `json:"timestamp" example:"1700000000"`
}
