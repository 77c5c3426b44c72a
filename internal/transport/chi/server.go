package chi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/search/result"
	"github.com/kailas-cloud/ragchat/internal/logger"
	"github.com/kailas-cloud/ragchat/internal/metrics"
	chatuc "github.com/kailas-cloud/ragchat/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/ragchat/internal/usecase/health"
)

const maxBodyBytes = 1 << 20

// Searcher runs the retrieval pipeline.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) (result.Result, error)
}

// Chatter answers a message from retrieved context.
type Chatter interface {
	Chat(ctx context.Context, message string, topK int) (chatuc.Reply, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Defaults holds request defaults applied when the body omits top_k.
type Defaults struct {
	SearchTopK int
	ChatTopK   int
}

// Server serves the search and chat API.
type Server struct {
	search   Searcher
	chat     Chatter
	health   HealthChecker
	defaults Defaults
	logger   *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(search Searcher, chat Chatter, health HealthChecker, defaults Defaults, logger *zap.Logger) *Server {
	if defaults.SearchTopK <= 0 {
		defaults.SearchTopK = 10
	}
	if defaults.ChatTopK <= 0 {
		defaults.ChatTopK = 5
	}
	return &Server{search: search, chat: chat, health: health, defaults: defaults, logger: logger}
}

// Router mounts the API with the standard middleware chain.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(WideEventMiddleware(s.logger))
	r.Use(metrics.Middleware())

	r.Post("/api/search", s.Search)
	r.Post("/api/chat", s.Chat)
	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})
	return r
}

type searchRequest struct {
	Query string `json:"query"`
	TopK  *int   `json:"top_k"`
}

type chatRequest struct {
	Message string `json:"message"`
	TopK    *int   `json:"top_k"`
}

// Search handles POST /api/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	topK := s.defaults.SearchTopK
	if req.TopK != nil {
		topK = *req.TopK
	}

	// The pipeline runs to completion even if the client goes away.
	ctx := context.WithoutCancel(r.Context())
	res, err := s.search.Search(ctx, req.Query, topK)
	if err != nil {
		s.handleError(ctx, w, "Search failed: ", err)
		return
	}

	writeJSON(w, http.StatusOK, searchResultToDTO(&res))
}

// Chat handles POST /api/chat.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	topK := s.defaults.ChatTopK
	if req.TopK != nil {
		topK = *req.TopK
	}

	ctx := context.WithoutCancel(r.Context())
	reply, err := s.chat.Chat(ctx, req.Message, topK)
	if err != nil {
		s.handleError(ctx, w, "", err)
		return
	}

	writeJSON(w, http.StatusOK, chatReplyToDTO(&reply))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponseDTO{
		Status: string(report.Status),
		Checks: report.Checks,
	})
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	return dec.Decode(v)
}

// handleError writes 400 for invalid input and 500 with the error text otherwise.
func (s *Server) handleError(ctx context.Context, w http.ResponseWriter, prefix string, err error) {
	log := logger.FromContext(ctx)
	if errors.Is(err, domain.ErrInvalidRequest) {
		log.Warn("invalid request", zap.Error(err))
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	fields := []zap.Field{zap.Error(err)}
	detail := err.Error()
	var se *domain.SearchError
	if errors.As(err, &se) {
		fields = append(fields, zap.String("stage", se.Stage))
		if prefix != "" {
			// the prefix already says the search failed
			detail = se.Stage + ": " + se.Err.Error()
		}
	}
	log.Error("request failed", fields...)
	writeError(w, http.StatusInternalServerError, prefix+detail)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponseDTO{Detail: detail})
}
