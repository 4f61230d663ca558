package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"gomca/adapters/excel"
	"gomca/adapters/render"
	"gomca/adapters/report"
	"gomca/app"
	"gomca/domain/core"
	"gomca/domain/table"
	"gomca/internal"
	apperrors "gomca/internal/errors"
)

// DefaultMaxBodyBytes caps uploaded tables
const DefaultMaxBodyBytes = 32 << 20

// Config holds HTTP server configuration
type Config struct {
	Port         string
	MaxBodyBytes int64
	Defaults     app.AnalysisRequest // applied when a request leaves a setting empty
}

// Server exposes the analysis service over HTTP
type Server struct {
	router  *chi.Mux
	service *app.AnalysisService
	config  Config
	logger  *internal.Logger
}

// NewServer creates the router and registers every route
func NewServer(service *app.AnalysisService, config Config, logger *internal.Logger) *Server {
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if config.Port == "" {
		config.Port = "8080"
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	s := &Server{
		router:  chi.NewRouter(),
		service: service,
		config:  config,
		logger:  logger,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Route("/api/analyses", func(r chi.Router) {
		r.Post("/", s.handleCreateAnalysis)
		r.Get("/", s.handleListAnalyses)
		r.Get("/{id}", s.handleGetAnalysis)
	})
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler { return s.router }

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + strings.TrimPrefix(s.config.Port, ":"),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting MCA API server on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("Shutting down MCA API server")
		return srv.Shutdown(shutdownCtx)
	}
}

// tableRequest is the JSON body of POST /api/analyses
type tableRequest struct {
	Fields       []table.Field `json:"fields"`
	Records      [][]string    `json:"records"`
	ClassField   string        `json:"class_field"`
	ClassLevels  []string      `json:"class_levels"`
	MarkerFields []string      `json:"marker_fields"`
	MarkerPrefix string        `json:"marker_prefix"`
	Components   int           `json:"components"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCreateAnalysis accepts a CSV body (text/csv) or a JSON table.
// ?format=json|svg|png|html selects the response representation.
func (s *Server) handleCreateAnalysis(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)

	tbl, req, err := s.decodeRequest(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	res, err := s.service.Analyze(r.Context(), "http:"+middleware.GetReqID(r.Context()), tbl, req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		s.writeJSON(w, http.StatusCreated, res)
	case render.FormatSVG, render.FormatPNG:
		if res.Figure == nil {
			s.writeError(w, apperrors.ValidationError("a biplot needs at least two components"))
			return
		}
		rd, err := render.New(format)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if format == render.FormatSVG {
			w.Header().Set("Content-Type", "image/svg+xml")
		} else {
			w.Header().Set("Content-Type", "image/png")
		}
		w.Header().Set("X-Run-ID", res.RunID.String())
		w.WriteHeader(http.StatusCreated)
		if err := rd.Render(r.Context(), res.Figure, w); err != nil {
			s.logger.Error("failed to render biplot for run %s: %v", res.RunID, err)
		}
	case "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("X-Run-ID", res.RunID.String())
		w.WriteHeader(http.StatusCreated)
		if _, err := w.Write(report.HTML(res, "")); err != nil {
			s.logger.Debug("failed to write report for run %s: %v", res.RunID, err)
		}
	default:
		s.writeError(w, apperrors.ValidationError(fmt.Sprintf("unsupported format %q", format)))
	}
}

func (s *Server) decodeRequest(r *http.Request) (*table.CategoricalTable, app.AnalysisRequest, error) {
	req := s.config.Defaults
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch ct {
	case "application/json":
		var body tableRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return nil, req, &apperrors.AppError{Code: apperrors.CodeInvalidInput, Message: "invalid JSON body", Cause: err}
		}
		applySelection(&req, body.ClassField, body.ClassLevels, body.MarkerFields, body.MarkerPrefix, body.Components)
		tbl, err := table.New(body.Fields, body.Records)
		return tbl, req, err

	case "text/csv", "text/plain", "":
		data, err := excel.ReadCSV(r.Body)
		if err != nil {
			return nil, req, err
		}
		q := r.URL.Query()
		components := 0
		if v := q.Get("components"); v != "" {
			components, err = strconv.Atoi(v)
			if err != nil {
				return nil, req, apperrors.InvalidInput(fmt.Sprintf("components must be an integer, got %q", v))
			}
		}
		applySelection(&req, q.Get("class"), splitList(q.Get("class_levels")), splitList(q.Get("markers")), q.Get("prefix"), components)
		tbl, err := table.FromRows(data.Headers, data.Rows)
		return tbl, req, err

	default:
		return nil, req, apperrors.InvalidInput(fmt.Sprintf("unsupported content type %q", ct))
	}
}

func applySelection(req *app.AnalysisRequest, class string, levels, markers []string, prefix string, components int) {
	if class != "" {
		req.Selection.ClassField = class
	}
	if len(levels) > 0 {
		req.Selection.ClassLevels = levels
	}
	if len(markers) > 0 {
		req.Selection.MarkerFields = markers
		req.Selection.MarkerPrefix = ""
	}
	if prefix != "" {
		req.Selection.MarkerPrefix = prefix
		req.Selection.MarkerFields = nil
	}
	if components != 0 {
		req.Components = components
	}
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	store := s.service.Store()
	if store == nil {
		s.writeError(w, apperrors.NotFound("run store"))
		return
	}
	id, err := core.ParseRunID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, apperrors.InvalidInput(err.Error()))
		return
	}
	rec, err := store.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	store := s.service.Store()
	if store == nil {
		s.writeError(w, apperrors.NotFound("run store"))
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, apperrors.InvalidInput(fmt.Sprintf("limit must be a positive integer, got %q", v)))
			return
		}
		limit = n
	}
	recs, err := store.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, recs)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(err)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		status = http.StatusRequestEntityTooLarge
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed: %v", err)
	}
	s.writeJSON(w, status, errorResponse{Code: apperrors.GetCode(err), Message: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("failed to write JSON response: %v", err)
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
