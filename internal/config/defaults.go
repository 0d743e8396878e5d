package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Defaults for every tunable. The model/memory/timeout values match the
// environment contract of the embedding function.
const (
	DefaultAddr                = ":8080"
	DefaultModelName           = "sentence-transformers/all-MiniLM-L6-v2"
	DefaultModelsDir           = "~/models/embeddings"
	DefaultBackend             = "llama-server"
	DefaultMaxMemoryMB         = 512
	DefaultModelTimeoutSeconds = 3600
	DefaultLoadTimeoutSeconds  = 120
	DefaultMaxTextLength       = 8192
	DefaultMaxTokenLength      = 512
	DefaultMaxQueueDepth       = 32
	DefaultMaxWaitSeconds      = 30
	DefaultMaxBodyBytes        = 1 << 20
	DefaultLogLevel            = "info"
	DefaultLogFormat           = "json"
	DefaultLlamaBin            = "llama-server"
	DefaultLlamaHost           = "127.0.0.1"
	DefaultLlamaCtx            = 512
)

// Backends accepted by Validate.
var knownBackends = map[string]bool{"llama-server": true, "llamacpp": true}

// Defaults returns a copy of c with every unset field replaced by its default.
func (c Config) Defaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.ModelName == "" {
		c.ModelName = DefaultModelName
	}
	if c.ModelsDir == "" {
		c.ModelsDir = DefaultModelsDir
	}
	if c.Backend == "" {
		c.Backend = DefaultBackend
	}
	if c.MaxMemoryMB <= 0 {
		c.MaxMemoryMB = DefaultMaxMemoryMB
	}
	if c.ModelTimeoutSeconds <= 0 {
		c.ModelTimeoutSeconds = DefaultModelTimeoutSeconds
	}
	if c.LoadTimeoutSeconds <= 0 {
		c.LoadTimeoutSeconds = DefaultLoadTimeoutSeconds
	}
	if c.MaxTextLength <= 0 {
		c.MaxTextLength = DefaultMaxTextLength
	}
	if c.MaxTokenLength <= 0 {
		c.MaxTokenLength = DefaultMaxTokenLength
	}
	if c.MaxQueueDepth <= 0 {
		c.MaxQueueDepth = DefaultMaxQueueDepth
	}
	if c.MaxWaitSeconds <= 0 {
		c.MaxWaitSeconds = DefaultMaxWaitSeconds
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	if c.CORSEnabled == nil {
		on := true
		c.CORSEnabled = &on
	}
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{"*"}
	}
	if c.LlamaBin == "" {
		c.LlamaBin = DefaultLlamaBin
	}
	if c.LlamaHost == "" {
		c.LlamaHost = DefaultLlamaHost
	}
	if c.LlamaCtx <= 0 {
		c.LlamaCtx = DefaultLlamaCtx
	}
	return c
}

// Merge overlays every non-zero field of o onto c.
func (c Config) Merge(o Config) Config {
	if o.Addr != "" {
		c.Addr = o.Addr
	}
	if o.ModelName != "" {
		c.ModelName = o.ModelName
	}
	if o.ModelsDir != "" {
		c.ModelsDir = o.ModelsDir
	}
	if o.Backend != "" {
		c.Backend = o.Backend
	}
	if o.MaxMemoryMB != 0 {
		c.MaxMemoryMB = o.MaxMemoryMB
	}
	if o.ModelTimeoutSeconds != 0 {
		c.ModelTimeoutSeconds = o.ModelTimeoutSeconds
	}
	if o.LoadTimeoutSeconds != 0 {
		c.LoadTimeoutSeconds = o.LoadTimeoutSeconds
	}
	if o.MaxTextLength != 0 {
		c.MaxTextLength = o.MaxTextLength
	}
	if o.MaxTokenLength != 0 {
		c.MaxTokenLength = o.MaxTokenLength
	}
	if o.MaxQueueDepth != 0 {
		c.MaxQueueDepth = o.MaxQueueDepth
	}
	if o.MaxWaitSeconds != 0 {
		c.MaxWaitSeconds = o.MaxWaitSeconds
	}
	if o.MaxBodyBytes != 0 {
		c.MaxBodyBytes = o.MaxBodyBytes
	}
	if o.EmbedTimeoutSeconds != 0 {
		c.EmbedTimeoutSeconds = o.EmbedTimeoutSeconds
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	if o.LogFormat != "" {
		c.LogFormat = o.LogFormat
	}
	if o.CORSEnabled != nil {
		v := *o.CORSEnabled
		c.CORSEnabled = &v
	}
	if len(o.CORSOrigins) > 0 {
		c.CORSOrigins = append([]string(nil), o.CORSOrigins...)
	}
	if o.LlamaBin != "" {
		c.LlamaBin = o.LlamaBin
	}
	if o.LlamaHost != "" {
		c.LlamaHost = o.LlamaHost
	}
	if o.LlamaCtx != 0 {
		c.LlamaCtx = o.LlamaCtx
	}
	if o.LlamaThreads != 0 {
		c.LlamaThreads = o.LlamaThreads
	}
	if o.LlamaGPULayers != 0 {
		c.LlamaGPULayers = o.LlamaGPULayers
	}
	if o.LlamaHFFile != "" {
		c.LlamaHFFile = o.LlamaHFFile
	}
	return c
}

// FromEnv builds a partial Config from environment variables using getenv
// (os.Getenv in production). Malformed numbers are reported, not ignored.
func FromEnv(getenv func(string) string) (Config, error) {
	var c Config
	var errs []string
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int64) {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s=%q is not an integer", key, v))
			return
		}
		*dst = n
	}
	integer := func(key string, dst *int) {
		var n int64
		num(key, &n)
		if n != 0 {
			*dst = int(n)
		}
	}

	str("EMBEDD_ADDR", &c.Addr)
	str("MODEL_NAME", &c.ModelName)
	str("EMBEDD_MODELS_DIR", &c.ModelsDir)
	str("EMBEDD_BACKEND", &c.Backend)
	integer("MAX_MEMORY_MB", &c.MaxMemoryMB)
	num("MODEL_TIMEOUT_SECONDS", &c.ModelTimeoutSeconds)
	num("EMBEDD_LOAD_TIMEOUT_SECONDS", &c.LoadTimeoutSeconds)
	integer("MAX_TEXT_LENGTH", &c.MaxTextLength)
	integer("MAX_TOKEN_LENGTH", &c.MaxTokenLength)
	integer("EMBEDD_MAX_QUEUE_DEPTH", &c.MaxQueueDepth)
	num("EMBEDD_MAX_WAIT_SECONDS", &c.MaxWaitSeconds)
	num("EMBEDD_MAX_BODY_BYTES", &c.MaxBodyBytes)
	num("EMBEDD_EMBED_TIMEOUT_SECONDS", &c.EmbedTimeoutSeconds)
	str("EMBEDD_LOG_LEVEL", &c.LogLevel)
	str("EMBEDD_LOG_FORMAT", &c.LogFormat)
	if v := strings.TrimSpace(getenv("EMBEDD_CORS_ENABLED")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("EMBEDD_CORS_ENABLED=%q is not a boolean", v))
		} else {
			c.CORSEnabled = &b
		}
	}
	if v := getenv("EMBEDD_CORS_ORIGINS"); v != "" {
		c.CORSOrigins = SplitCSV(v)
	}
	str("LLAMA_BIN", &c.LlamaBin)
	str("LLAMA_HOST", &c.LlamaHost)
	integer("LLAMA_CTX", &c.LlamaCtx)
	integer("LLAMA_THREADS", &c.LlamaThreads)
	integer("LLAMA_GPU_LAYERS", &c.LlamaGPULayers)
	str("LLAMA_HF_FILE", &c.LlamaHFFile)

	if len(errs) > 0 {
		return c, fmt.Errorf("invalid environment: %s", strings.Join(errs, "; "))
	}
	return c, nil
}

// Validate reports configuration values that cannot work.
func (c Config) Validate() error {
	if !knownBackends[c.Backend] {
		return fmt.Errorf("unknown backend %q (want llama-server or llamacpp)", c.Backend)
	}
	if c.MaxTokenLength < 2 {
		return fmt.Errorf("max_token_length must be at least 2, got %d", c.MaxTokenLength)
	}
	if c.LlamaCtx < c.MaxTokenLength {
		return fmt.Errorf("llama_ctx (%d) must be >= max_token_length (%d)", c.LlamaCtx, c.MaxTokenLength)
	}
	if c.EmbedTimeoutSeconds < 0 {
		return fmt.Errorf("embed_timeout_seconds must not be negative, got %d", c.EmbedTimeoutSeconds)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("unknown log_format %q (want json or console)", c.LogFormat)
	}
	return nil
}

// SplitCSV splits a comma separated list, trimming blanks and dropping empties.
func SplitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
