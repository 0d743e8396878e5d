package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified"; Defaults fills them in.
type Config struct {
	Addr      string `json:"addr" yaml:"addr" toml:"addr"`
	ModelName string `json:"model_name" yaml:"model_name" toml:"model_name"`
	ModelsDir string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	Backend   string `json:"backend" yaml:"backend" toml:"backend"`

	MaxMemoryMB         int   `json:"max_memory_mb" yaml:"max_memory_mb" toml:"max_memory_mb"`
	ModelTimeoutSeconds int64 `json:"model_timeout_seconds" yaml:"model_timeout_seconds" toml:"model_timeout_seconds"`
	LoadTimeoutSeconds  int64 `json:"load_timeout_seconds" yaml:"load_timeout_seconds" toml:"load_timeout_seconds"`
	MaxTextLength       int   `json:"max_text_length" yaml:"max_text_length" toml:"max_text_length"`
	MaxTokenLength      int   `json:"max_token_length" yaml:"max_token_length" toml:"max_token_length"`
	MaxQueueDepth       int   `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth"`
	MaxWaitSeconds      int64 `json:"max_wait_seconds" yaml:"max_wait_seconds" toml:"max_wait_seconds"`
	MaxBodyBytes        int64 `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	// EmbedTimeoutSeconds bounds one HTTP embed request; 0 disables.
	EmbedTimeoutSeconds int64 `json:"embed_timeout_seconds" yaml:"embed_timeout_seconds" toml:"embed_timeout_seconds"`

	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format"`

	// Pointer so an explicit false in a file survives Defaults.
	CORSEnabled *bool    `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`

	LlamaBin       string `json:"llama_bin" yaml:"llama_bin" toml:"llama_bin"`
	LlamaHost      string `json:"llama_host" yaml:"llama_host" toml:"llama_host"`
	LlamaCtx       int    `json:"llama_ctx" yaml:"llama_ctx" toml:"llama_ctx"`
	LlamaThreads   int    `json:"llama_threads" yaml:"llama_threads" toml:"llama_threads"`
	LlamaGPULayers int    `json:"llama_gpu_layers" yaml:"llama_gpu_layers" toml:"llama_gpu_layers"`
	LlamaHFFile    string `json:"llama_hf_file" yaml:"llama_hf_file" toml:"llama_hf_file"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
