package httpapi

import (
	"context"
	_ "embed"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"stemsplit/internal/config"
	"stemsplit/internal/engine"
	"stemsplit/internal/model"
)

const apiVersion = "0.1.0"

//go:embed openapi.json
var openAPISpec []byte

type SeparationService interface {
	EngineName() string
	Separate(ctx context.Context, audio []byte) (engine.Stems, error)
}

type EngineChecker interface {
	Check(ctx context.Context) error
}

type MetricsObserver interface {
	ObserveHTTP(route, method string, status int, duration time.Duration)
	SeparationStarted()
	SeparationDone()
}

type Dependencies struct {
	Separation     SeparationService
	Engine         EngineChecker
	Metrics        MetricsObserver
	MetricsHandler http.Handler
}

type server struct {
	cfg          config.Config
	logger       *slog.Logger
	separation   SeparationService
	engineCheck  EngineChecker
	metrics      MetricsObserver
	metricsRoute http.Handler
}

type ctxKey string

const (
	requestIDHeader  = "X-Request-Id"
	requestIDContext = ctxKey("request_id")
)

func NewServer(cfg config.Config, logger *slog.Logger, deps Dependencies) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Separation == nil || deps.Engine == nil {
		panic("httpapi: separation service and engine checker are required")
	}

	s := &server{
		cfg:          cfg,
		logger:       logger,
		separation:   deps.Separation,
		engineCheck:  deps.Engine,
		metrics:      deps.Metrics,
		metricsRoute: deps.MetricsHandler,
	}

	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusNotFound, "not_found", "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed", nil)
	})

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	if s.metricsRoute != nil {
		r.Handle("/metrics", s.metricsRoute)
	}
	r.Get("/openapi.json", s.handleOpenAPI)

	r.Post("/call", s.handleCall)
	r.Get("/info", s.handleInfo)

	return r
}

func (s *server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.HealthResponse{OK: true})
}

func (s *server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.engineCheck.Check(ctx); err != nil {
		s.writeError(w, r, http.StatusServiceUnavailable, "not_ready", "engine check failed", detailsForError(err))
		return
	}
	writeJSON(w, http.StatusOK, model.ReadyResponse{OK: true, ServiceName: "stemsplit"})
}

func (s *server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openAPISpec)
}

func (s *server) handleCall(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	defer func() { _ = r.Body.Close() }()

	// Unknown fields pass through untouched; only audio_file matters.
	var req model.SeparationRequest
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&req); err != nil {
		s.handleDecodeError(w, r, err)
		return
	}
	if err := ensureBodyFullyConsumed(decoder); err != nil {
		s.handleDecodeError(w, r, err)
		return
	}
	if verrs := validateRequest(req); len(verrs) > 0 {
		s.writeValidationErrors(w, r, verrs)
		return
	}

	audio, err := base64.StdEncoding.DecodeString(*req.AudioFile)
	if err != nil {
		s.writeValidationErrors(w, r, []model.ValidationError{{
			Loc:  []string{"body", "audio_file"},
			Msg:  "invalid base64-encoded string",
			Type: "value_error",
		}})
		return
	}

	if s.metrics != nil {
		s.metrics.SeparationStarted()
		defer s.metrics.SeparationDone()
	}

	stems, err := s.separation.Separate(r.Context(), audio)
	if err != nil {
		s.writeMappedError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, model.SeparationResponse{
		VocalsFile:        base64.StdEncoding.EncodeToString(stems.Vocals),
		AccompanimentFile: base64.StdEncoding.EncodeToString(stems.Accompaniment),
	})
}

func (s *server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.InfoResponse{
		Name:        "Audio Separation",
		Description: "Separation of vocals and accompaniment from an audio file.",
		Version:     apiVersion,
		Engine:      s.separation.EngineName(),
		Input: map[string]model.FieldSpec{
			"audio_file": {Type: "string", Format: "byte", Required: true},
		},
		Output: map[string]model.FieldSpec{
			"vocals_file":        {Type: "string", Format: "byte", Required: true},
			"accompaniment_file": {Type: "string", Format: "byte", Required: true},
		},
	})
}

func (s *server) handleDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		s.writeError(w, r, http.StatusRequestEntityTooLarge, "request_too_large", fmt.Sprintf("request exceeds %d bytes", s.cfg.MaxBodyBytes), nil)
		return
	}
	s.writeValidationErrors(w, r, validationErrorsForDecode(err))
}

func (s *server) writeValidationErrors(w http.ResponseWriter, r *http.Request, errs []model.ValidationError) {
	if rid := requestIDFromContext(r.Context()); rid != "" {
		w.Header().Set(requestIDHeader, rid)
	}
	writeJSON(w, http.StatusUnprocessableEntity, model.ValidationErrorEnvelope{Detail: errs})
}

func (s *server) writeMappedError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	code := "internal_error"
	message := "request failed"
	details := detailsForError(err)

	var engErr *engine.Error
	switch {
	case errors.As(err, &engErr):
		status = http.StatusBadGateway
		code = "separation_failed"
		message = "separation failed"
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
		code = "timeout"
		message = "request timed out"
	case errors.Is(err, context.Canceled):
		status = 499
		code = "canceled"
		message = "request canceled"
	}

	s.writeError(w, r, status, code, message, details)
}

func (s *server) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]any) {
	if rid := requestIDFromContext(r.Context()); rid != "" {
		w.Header().Set(requestIDHeader, rid)
	}
	writeJSON(w, status, model.ErrorResponse{
		Error:     model.APIError{Code: code, Message: message, Details: details},
		RequestID: requestIDFromContext(r.Context()),
	})
}

func (s *server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)
		ctx := context.WithValue(r.Context(), requestIDContext, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		duration := time.Since(started)
		if s.metrics != nil {
			s.metrics.ObserveHTTP(route, r.Method, status, duration)
		}

		s.logger.Info("http_request",
			"request_id", requestIDFromContext(r.Context()),
			"method", r.Method,
			"route", route,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration_ms", duration.Milliseconds(),
		)
	})
}

func (s *server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", "request_id", requestIDFromContext(r.Context()), "panic", rec)
				s.writeError(w, r, http.StatusInternalServerError, "internal_error", "internal server error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func ensureBodyFullyConsumed(decoder *json.Decoder) error {
	var extra any
	if err := decoder.Decode(&extra); err != io.EOF {
		if err == nil {
			return fmt.Errorf("multiple JSON values")
		}
		return err
	}
	return nil
}

func requestIDFromContext(ctx context.Context) string {
	value, _ := ctx.Value(requestIDContext).(string)
	return value
}

func detailsForError(err error) map[string]any {
	if err == nil {
		return nil
	}
	details := map[string]any{"error": err.Error()}
	var engErr *engine.Error
	if errors.As(err, &engErr) {
		details["engine"] = engErr.Engine
		if engErr.StatusCode != 0 {
			details["engine_status"] = engErr.StatusCode
		}
		if engErr.Detail != "" {
			details["engine_detail"] = engErr.Detail
		}
	}
	return details
}
