// Package api exposes the daemon's control surface over HTTP: submitting
// queries, observing their state, and resolving pending selections.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"marquee/internal/catalog"
	"marquee/internal/config"
	"marquee/internal/ingest"
	"marquee/internal/logging"
	"marquee/internal/pipeline"
	"marquee/internal/queue"
)

// Server hosts the HTTP control API.
type Server struct {
	coordinator *pipeline.Coordinator
	queue       *queue.Store
	catalog     *catalog.Store
	token       string
	logger      *slog.Logger
	httpServer  *http.Server
}

// NewServer builds the API server. An empty token disables authentication,
// which is only sensible on a loopback bind.
func NewServer(cfg *config.Config, coordinator *pipeline.Coordinator, queueStore *queue.Store, catalogStore *catalog.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		coordinator: coordinator,
		queue:       queueStore,
		catalog:     catalogStore,
		token:       cfg.Paths.APIToken,
		logger:      logger.With(logging.String(logging.FieldComponent, "api")),
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Paths.APIBind,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/api/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)
		r.Post("/api/queries", s.handleSubmit)
		r.Get("/api/queries", s.handleList)
		r.Get("/api/queries/{queryID}", s.handleGet)
		r.Post("/api/queries/{queryID}/selection", s.handleSelection)
		r.Delete("/api/queries/{queryID}", s.handleCancel)
		r.Get("/api/status", s.handleStatus)
	})
	return r
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("api listening", logging.String("bind", s.httpServer.Addr))
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler {
	return s.routes()
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Duration("elapsed", time.Since(started)))
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token == "" {
			next.ServeHTTP(w, r)
			return
		}
		header := r.Header.Get("Authorization")
		provided, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(provided), []byte(s.token)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid or missing bearer token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type submitRequest struct {
	Query    string `json:"query"`
	Source   string `json:"source"`
	YearHint int    `json:"year_hint"`
}

type submitResponse struct {
	QueryID string `json:"query_id"`
	Status  string `json:"status"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	source := ingest.Source(req.Source)
	switch source {
	case ingest.SourceText, ingest.SourceFilename, ingest.SourceCaption:
	case "":
		source = ingest.SourceText
	default:
		writeError(w, http.StatusBadRequest, "unknown source")
		return
	}

	ticket, err := s.coordinator.Submit(r.Context(), ingest.Query{
		Raw:      req.Query,
		Source:   source,
		YearHint: req.YearHint,
	})
	if err != nil {
		s.logger.Error("submit failed", logging.Error(err))
		writeError(w, http.StatusInternalServerError, "submit failed")
		return
	}
	writeJSON(w, http.StatusAccepted, submitResponse{
		QueryID: ticket.QueryID,
		Status:  string(queue.StatusReceived),
	})
}

type itemResponse struct {
	QueryID         string `json:"query_id"`
	Raw             string `json:"raw"`
	Source          string `json:"source"`
	NormalizedTitle string `json:"normalized_title,omitempty"`
	NormalizedYear  int    `json:"normalized_year,omitempty"`
	MovieID         int64  `json:"movie_id,omitempty"`
	MovieTitle      string `json:"movie_title,omitempty"`
	Status          string `json:"status"`
	ErrorMessage    string `json:"error_message,omitempty"`
	ChannelRef      string `json:"channel_ref,omitempty"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

func itemToResponse(item *queue.Item) itemResponse {
	return itemResponse{
		QueryID:         item.QueryID,
		Raw:             item.Raw,
		Source:          item.Source,
		NormalizedTitle: item.NormalizedTitle,
		NormalizedYear:  item.NormalizedYear,
		MovieID:         item.MovieID,
		MovieTitle:      item.MovieTitle,
		Status:          string(item.Status),
		ErrorMessage:    item.ErrorMessage,
		ChannelRef:      item.ChannelRef,
		CreatedAt:       item.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       item.UpdatedAt.Format(time.RFC3339),
	}
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	queryID := chi.URLParam(r, "queryID")
	item, err := s.queue.GetByQueryID(r.Context(), queryID)
	if err != nil {
		s.logger.Error("load item", logging.Error(err))
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "unknown query")
		return
	}
	writeJSON(w, http.StatusOK, itemToResponse(item))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	var statuses []queue.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, ok := queue.ParseStatus(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown status")
			return
		}
		statuses = append(statuses, status)
	}
	items, err := s.queue.List(r.Context(), statuses...)
	if err != nil {
		s.logger.Error("list items", logging.Error(err))
		writeError(w, http.StatusInternalServerError, "list failed")
		return
	}
	out := make([]itemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, itemToResponse(item))
	}
	writeJSON(w, http.StatusOK, map[string]any{"queries": out})
}

type selectionRequest struct {
	CandidateID int64 `json:"candidate_id"`
}

func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	queryID := chi.URLParam(r, "queryID")
	var req selectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	err := s.coordinator.ProvideSelection(queryID, req.CandidateID)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, pipeline.ErrUnknownQuery):
		writeError(w, http.StatusNotFound, "unknown query")
	case errors.Is(err, pipeline.ErrNotAwaitingSelection):
		writeError(w, http.StatusConflict, "query is not awaiting selection")
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	queryID := chi.URLParam(r, "queryID")
	err := s.coordinator.Cancel(queryID)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, pipeline.ErrUnknownQuery):
		writeError(w, http.StatusNotFound, "unknown query")
	default:
		writeError(w, http.StatusConflict, err.Error())
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	health, err := s.queue.Health(r.Context())
	if err != nil {
		s.logger.Error("queue health", logging.Error(err))
		writeError(w, http.StatusInternalServerError, "status failed")
		return
	}
	stats, err := s.catalog.Stats(r.Context())
	if err != nil {
		s.logger.Error("catalog stats", logging.Error(err))
		writeError(w, http.StatusInternalServerError, "status failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"queue": map[string]int{
			"total":     health.Total,
			"received":  health.Received,
			"in_flight": health.InFlight,
			"suspended": health.Suspended,
			"done":      health.Done,
			"failed":    health.Failed,
		},
		"catalog": map[string]int{
			"records":      stats.Records,
			"query_keys":   stats.QueryKeys,
			"posters":      stats.Posters,
			"publications": stats.Publications,
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
