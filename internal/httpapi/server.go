package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"embedd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Embed(ctx context.Context, text any) (types.EmbedResponse, error)
	Health() types.HealthResponse
	Ready() bool
}

// NewMux builds the router: POST /embed (and POST /), GET /health,
// /healthz, /readyz and /metrics.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if corsEnabled {
		origins, methods, headers := corsDefaults()
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: methods,
			AllowedHeaders: headers,
			MaxAge:         300,
		}))
	}
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	embed := embedHandler(svc)
	r.Post("/embed", embed)
	r.Post("/", embed)

	health := func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Health())
	}
	r.Get("/health", health)
	r.Get("/", health)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

func embedHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := middleware.GetReqID(r.Context())
		// Limit body size (configurable, default 1MiB)
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		body, err := io.ReadAll(r.Body)
		if err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				countError(CodeValidation)
				writeJSONError(w, http.StatusRequestEntityTooLarge, CodeValidation, "Request body too large")
				return
			}
			countError(CodeValidation)
			writeJSONError(w, http.StatusBadRequest, CodeValidation, "Failed to read request body")
			return
		}
		text, err := parseEmbedRequest(body)
		if err != nil {
			fail(w, r, err)
			return
		}

		// Join server base context with request context so shutdown cancels work too.
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		if embedTimeout > 0 {
			var tcancel context.CancelFunc
			ctx, tcancel = context.WithTimeout(ctx, embedTimeout)
			defer tcancel()
		}
		resp, err := svc.Embed(ctx, text)
		if err != nil {
			// Client went away; nothing useful to write.
			if r.Context().Err() != nil {
				return
			}
			fail(w, r, err)
			return
		}
		resp.RequestID = rid
		zlog.Debug().Str("request_id", rid).Int("dimension", resp.Dimension).Int64("processing_time_ms", resp.ProcessingTimeMS).Msg("embedding generated")
		writeJSON(w, http.StatusOK, resp)
	}
}

// fail maps err to the error envelope and logs it with full detail.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := mapError(err)
	countError(code)
	ev := zlog.Warn()
	if status >= 500 {
		ev = zlog.Error()
	}
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		ev = ev.Str("request_id", rid)
	}
	ev.Str("code", code).Int("status", status).Err(err).Msg("embed failed")
	writeJSONError(w, status, code, msg)
}
