package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"embedd/internal/config"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	cfgFile     string
	flagCfg     config.Config
	corsEnabled bool

	globalConfig config.Config
	logger       = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:           "embedd",
	Short:         "Sentence embedding service",
	Long:          "embedd serves normalized sentence embeddings over HTTP and MCP, loading the model lazily and releasing it when idle or after a failure.",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" {
			return nil
		}
		flags := flagCfg
		if f := cmd.Flags().Lookup("cors"); f != nil && f.Changed {
			v := corsEnabled
			flags.CORSEnabled = &v
		}
		cfg, err := resolveConfig(cfgFile, os.Getenv, flags)
		if err != nil {
			return err
		}
		globalConfig = cfg
		logger = newLogger(os.Stderr, cfg.LogFormat, cfg.LogLevel)
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "Config file (.yaml, .yml, .json, .toml)")
	pf.StringVar(&flagCfg.ModelName, "model", "", "Model id: registry name, .gguf path or hub repository (env MODEL_NAME)")
	pf.StringVar(&flagCfg.ModelsDir, "models-dir", "", "Directory to scan for *.gguf model files (env EMBEDD_MODELS_DIR)")
	pf.StringVar(&flagCfg.Backend, "backend", "", "Inference backend: llama-server|llamacpp (env EMBEDD_BACKEND)")
	pf.IntVar(&flagCfg.MaxMemoryMB, "max-memory-mb", 0, "Resident memory ceiling in MB (env MAX_MEMORY_MB)")
	pf.Int64Var(&flagCfg.ModelTimeoutSeconds, "model-timeout", 0, "Seconds a loaded model stays valid (env MODEL_TIMEOUT_SECONDS)")
	pf.Int64Var(&flagCfg.LoadTimeoutSeconds, "load-timeout", 0, "Seconds allowed for a model load (env EMBEDD_LOAD_TIMEOUT_SECONDS)")
	pf.IntVar(&flagCfg.MaxTextLength, "max-text-length", 0, "Maximum input length in characters (env MAX_TEXT_LENGTH)")
	pf.IntVar(&flagCfg.MaxTokenLength, "max-token-length", 0, "Maximum sequence length in tokens (env MAX_TOKEN_LENGTH)")
	pf.IntVar(&flagCfg.MaxQueueDepth, "max-queue-depth", 0, "Requests allowed to wait for the model (env EMBEDD_MAX_QUEUE_DEPTH)")
	pf.Int64Var(&flagCfg.MaxWaitSeconds, "max-wait", 0, "Seconds a request may wait for the model (env EMBEDD_MAX_WAIT_SECONDS)")
	pf.StringVar(&flagCfg.LogLevel, "log-level", "", "Log level: debug|info|warn|error (env EMBEDD_LOG_LEVEL)")
	pf.StringVar(&flagCfg.LogFormat, "log-format", "", "Log format: json|console (env EMBEDD_LOG_FORMAT)")
	pf.StringVar(&flagCfg.LlamaBin, "llama-bin", "", "llama-server executable (env LLAMA_BIN)")
	pf.StringVar(&flagCfg.LlamaHost, "llama-host", "", "Host llama-server binds to (env LLAMA_HOST)")
	pf.IntVar(&flagCfg.LlamaCtx, "llama-ctx", 0, "Context size passed to the runtime (env LLAMA_CTX)")
	pf.IntVar(&flagCfg.LlamaThreads, "llama-threads", 0, "Inference threads, 0 for runtime default (env LLAMA_THREADS)")
	pf.IntVar(&flagCfg.LlamaGPULayers, "llama-gpu-layers", 0, "Layers offloaded to the GPU (env LLAMA_GPU_LAYERS)")
	pf.StringVar(&flagCfg.LlamaHFFile, "llama-hf-file", "", "File inside a hub repository (env LLAMA_HF_FILE)")
}

// resolveConfig applies defaults < file < environment < flags and validates
// the result.
func resolveConfig(path string, getenv func(string) string, flags config.Config) (config.Config, error) {
	var cfg config.Config
	if path != "" {
		fc, err := config.Load(path)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		cfg = cfg.Merge(fc)
	}
	env, err := config.FromEnv(getenv)
	if err != nil {
		return cfg, err
	}
	cfg = cfg.Merge(env).Merge(flags).Defaults()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the root logger. An unknown level falls back to info.
func newLogger(w io.Writer, format, level string) zerolog.Logger {
	if format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Str("service", "embedd").Logger()
}

// accessLogLevel maps the process log level onto the HTTP access log levels.
func accessLogLevel(level string) string {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "trace":
		return "debug"
	case "warn", "error", "fatal", "panic":
		return "error"
	case "disabled":
		return "off"
	default:
		return "info"
	}
}
