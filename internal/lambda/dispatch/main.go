package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/aswathsr101/djl-publisher/internal/di"
	apperrors "github.com/aswathsr101/djl-publisher/internal/errors"
	"github.com/aswathsr101/djl-publisher/internal/release"
	"github.com/aswathsr101/djl-publisher/internal/trigger"
)

type Handler struct {
	starter      *trigger.Starter
	defaultImage string
}

// DispatchRequest is the manual publish request body.
type DispatchRequest struct {
	Mode    string `json:"mode"`
	Version string `json:"version,omitempty"`
	Image   string `json:"image,omitempty"`
}

// DispatchResponse is returned after an execution has been started.
type DispatchResponse struct {
	RunID        string `json:"run_id"`
	ExecutionArn string `json:"execution_arn"`
	Image        string `json:"image"`
	Mode         string `json:"mode"`
	Version      string `json:"version,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func NewHandler(starter *trigger.Starter, defaultImage string) *Handler {
	return &Handler{
		starter:      starter,
		defaultImage: defaultImage,
	}
}

func (h *Handler) setupRouter() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /dispatch", h.handleDispatch)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

// handleDispatch validates the request and starts a publish execution.
// Invalid modes and missing release versions are client errors, not
// server failures.
func (h *Handler) handleDispatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	var body DispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	req, err := release.NewPublishRequest(body.Mode, body.Version)
	if err != nil {
		logger.Warn().Err(err).Str("mode", body.Mode).Msg("Rejected dispatch request")
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	image := body.Image
	if image == "" {
		image = h.defaultImage
	}

	runID, executionArn, err := h.starter.Start(ctx, image, req)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidMode) || errors.Is(err, apperrors.ErrMissingVersion) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		logger.Error().Err(err).Str("image", image).Msg("Failed to start publish run")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to start publish run"})
		return
	}

	logger.Info().
		Str("image", image).
		Str("mode", string(req.Mode)).
		Str("run_id", runID.String()).
		Str("execution_arn", executionArn).
		Msg("Started publish run")

	writeJSON(w, http.StatusAccepted, DispatchResponse{
		RunID:        runID.String(),
		ExecutionArn: executionArn,
		Image:        image,
		Mode:         string(req.Mode),
		Version:      req.Version,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// loggingMiddleware logs details about each request and response
func loggingMiddleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ctx := logger.WithContext(r.Context())
			r = r.WithContext(ctx)

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			zerolog.Ctx(ctx).Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Msg("Incoming request")

			next.ServeHTTP(rw, r)

			zerolog.Ctx(ctx).Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status_code", rw.statusCode).
				Dur("duration", time.Since(start)).
				Msg("Request completed")
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func main() {
	logger := di.ProvideLogger().With().Str("lambda", "dispatch").Logger()

	env := os.Getenv("ENV")
	if env == "" {
		env = "dev"
	}
	image := os.Getenv("IMAGE")
	if image == "" {
		image = "djl-serving"
	}

	container, err := di.New(env)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create DI container")
		os.Exit(1)
	}

	starter := di.MustGet[*trigger.Starter](container)
	handler := NewHandler(starter, image)

	httpHandler := loggingMiddleware(logger)(handler.setupRouter())

	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
		lambda.Start(httpadapter.NewV2(httpHandler).ProxyWithContext)
		return
	}

	app := &cli.App{
		Name:  "dispatch",
		Usage: "Manual publish dispatch endpoint",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Start local HTTP server for testing",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "port",
						Usage: "Port to listen on",
						Value: "8080",
					},
				},
				Action: func(c *cli.Context) error {
					addr := ":" + c.String("port")
					logger.Info().Str("addr", addr).Msg("Listening")
					server := &http.Server{
						Addr:              addr,
						Handler:           httpHandler,
						ReadHeaderTimeout: 10 * time.Second,
					}
					return server.ListenAndServe()
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error().Err(err).Msg("Application error")
		os.Exit(1)
	}
}
