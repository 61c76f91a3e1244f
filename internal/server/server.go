package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/raysh454/appreviewer/internal/app"
	"github.com/raysh454/appreviewer/internal/logging"
	"github.com/raysh454/appreviewer/internal/progress"
	_ "github.com/raysh454/appreviewer/internal/server/docs" // registers the swagger spec
	"github.com/raysh454/appreviewer/internal/status"
	"github.com/raysh454/appreviewer/internal/upload"
)

// multipartOverhead is the room left for multipart headers on top of the
// file size limit.
const multipartOverhead = 1 << 20

// Server is the HTTP + WebSocket API surface of the reviewer.
type Server struct {
	cfg          Config
	app          *app.Application
	ownsApp      bool
	orchestrator *app.Orchestrator
	files        *upload.Store
	router       chi.Router
	upgrader     websocket.Upgrader
	logger       logging.Logger
}

// NewServer creates a Server. Unless cfg.Application is set, it builds its
// own application from cfg.AppConfig.
func NewServer(cfg Config) (*Server, error) {
	if cfg.AppConfig == nil {
		if cfg.Application != nil {
			cfg.AppConfig = cfg.Application.Config
		} else {
			cfg.AppConfig = app.DefaultConfig()
		}
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = cfg.AppConfig.ListenAddr
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logger.With(logging.Field{Key: "component", Value: "server"})

	a := cfg.Application
	owns := false
	if a == nil {
		var err error
		a, err = app.NewApplication(context.Background(), cfg.AppConfig, cfg.Logger)
		if err != nil {
			return nil, fmt.Errorf("creating application: %w", err)
		}
		owns = true
	}

	s := &Server{
		cfg:          cfg,
		app:          a,
		ownsApp:      owns,
		orchestrator: a.Orchestrator(),
		files:        a.Components.Files,
		router:       chi.NewRouter(),
		logger:       logger,
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}

	s.routes()
	return s, nil
}

// Orchestrator returns the underlying orchestrator for advanced use (tests, etc.).
func (s *Server) Orchestrator() *app.Orchestrator {
	return s.orchestrator
}

func (s *Server) routes() {
	r := s.router

	r.Use(s.corsMiddleware)

	// CORS preflight
	r.Options("/api/v1/upload", s.optionsHandler("POST"))
	r.Options("/api/v1/files", s.optionsHandler("GET"))
	r.Options("/api/v1/files/{fileID}", s.optionsHandler("GET, DELETE"))
	r.Options("/api/v1/files/{fileID}/diff", s.optionsHandler("GET"))
	r.Options("/api/v1/analyze/{fileID}", s.optionsHandler("POST, DELETE"))
	r.Options("/api/v1/analyze/{fileID}/status", s.optionsHandler("GET"))
	r.Options("/api/v1/analyze/{fileID}/result", s.optionsHandler("GET"))

	r.Get("/health", s.handleHealth)
	r.Get("/api/v1/status", s.handleAPIStatus)

	// Uploads
	r.Post("/api/v1/upload", s.handleUpload)
	r.Get("/api/v1/files", s.handleListFiles)
	r.Get("/api/v1/files/{fileID}", s.handleGetFile)
	r.Delete("/api/v1/files/{fileID}", s.handleDeleteFile)
	r.Get("/api/v1/files/{fileID}/diff", s.handleDiffFile)

	// Analysis
	r.Post("/api/v1/analyze/{fileID}", s.handleStartAnalysis)
	r.Get("/api/v1/analyze/{fileID}/status", s.handleAnalysisStatus)
	r.Get("/api/v1/analyze/{fileID}/result", s.handleAnalysisResult)
	r.Delete("/api/v1/analyze/{fileID}", s.handleCancelAnalysis)

	// WebSocket for analysis progress
	r.Get("/ws/analyze/{fileID}", s.handleAnalyzeWS)

	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	origin := s.cfg.AppConfig.CORSOrigin
	if origin == "" {
		origin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

// checkOrigin admits websocket clients from the configured CORS origin. Requests
// without an Origin header come from non-browser clients and are allowed.
func (s *Server) checkOrigin(r *http.Request) bool {
	allowed := s.cfg.AppConfig.CORSOrigin
	if allowed == "" || allowed == "*" {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || strings.EqualFold(origin, allowed)
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ServeHTTP implements http.Handler. Bodies are not logged: uploads carry
// whole source files.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fields := []logging.Field{
		{Key: "method", Value: r.Method},
		{Key: "path", Value: r.URL.Path},
	}

	if q := r.URL.Query(); len(q) > 0 {
		fields = append(fields, logging.Field{Key: "query", Value: q})
	}
	if r.ContentLength > 0 {
		fields = append(fields, logging.Field{Key: "content_length", Value: r.ContentLength})
	}

	s.logger.Info("http_request", fields...)

	s.router.ServeHTTP(w, r)
}

// Close releases the application if the server built it.
func (s *Server) Close() {
	if !s.ownsApp || s.app == nil {
		return
	}
	if err := s.app.Shutdown(context.Background()); err != nil {
		s.logger.Warn("closing application", logging.Field{Key: "error", Value: err.Error()})
	}
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // allow streaming
	}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Success: false, Error: msg})
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func (s *Server) maxFileSize() int64 {
	if n := s.files.Validator().MaxSize; n > 0 {
		return n
	}
	return upload.DefaultMaxFileSize
}

func humanSize(n int64) string {
	if n >= 1<<20 && n%(1<<20) == 0 {
		return fmt.Sprintf("%dMB", n>>20)
	}
	if n >= 1<<10 && n%(1<<10) == 0 {
		return fmt.Sprintf("%dKB", n>>10)
	}
	return fmt.Sprintf("%d bytes", n)
}

// --- HTTP handlers ---

// handleHealth godoc
// @Summary Liveness probe
// @Tags system
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: timestamp(time.Now()),
		Version:   s.cfg.AppConfig.Version,
	})
}

// handleAPIStatus godoc
// @Summary API status and upload limits
// @Tags system
// @Produce json
// @Success 200 {object} APIStatusResponse
// @Router /api/v1/status [get]
func (s *Server) handleAPIStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIStatusResponse{
		Message:            "App Reviewer API v1 is running",
		Version:            s.cfg.AppConfig.Version,
		UploadEndpoint:     "Available",
		AnalysisEndpoint:   fmt.Sprintf("Available - %d-category analysis", s.orchestrator.TotalAnalyzers()),
		SupportedFileTypes: s.cfg.AppConfig.AllowedExtensions,
		MaxFileSize:        humanSize(s.maxFileSize()),
	})
}

// Uploads

// handleUpload godoc
// @Summary Upload a source file
// @Tags upload
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Source file"
// @Success 201 {object} FileUploadResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/upload [post]
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxFileSize()+multipartOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusBadRequest, upload.ErrFileTooLarge.Error())
			return
		}
		s.logger.Warn("reading upload form", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading upload: "+err.Error())
		return
	}

	f, err := s.files.Save(r.Context(), header.Filename, content)
	if err != nil {
		if upload.IsValidation(err) {
			s.logger.Info("rejected upload", logging.Field{Key: "name", Value: header.Filename}, logging.Field{Key: "error", Value: err.Error()})
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Warn("saving upload", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, "Upload failed: "+err.Error())
		return
	}

	s.logger.Info("uploaded file", logging.Field{Key: "file_id", Value: f.ID}, logging.Field{Key: "name", Value: f.Name})
	writeJSON(w, http.StatusCreated, FileUploadResponse{
		Success:         true,
		Message:         "File uploaded successfully",
		FileID:          f.ID,
		FileName:        f.Name,
		FileSize:        f.Size,
		FileType:        f.Extension,
		UploadTimestamp: timestamp(f.UploadedAt),
	})
}

func (s *Server) fileInfo(ctx context.Context, f *upload.File) FileInfoResponse {
	state := "uploaded"
	if e, err := s.orchestrator.Status(ctx, f.ID); err == nil {
		state = string(e.Status)
	}
	return FileInfoResponse{
		FileID:          f.ID,
		FileName:        f.Name,
		FileSize:        f.Size,
		FileType:        f.Extension,
		SHA256:          f.SHA256,
		UploadTimestamp: timestamp(f.UploadedAt),
		Status:          state,
	}
}

// handleListFiles godoc
// @Summary List uploaded files, newest first
// @Tags upload
// @Produce json
// @Param limit query int false "Maximum number of files"
// @Success 200 {array} FileInfoResponse
// @Router /api/v1/files [get]
func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if ls := r.URL.Query().Get("limit"); ls != "" {
		if v, err := strconv.Atoi(ls); err == nil && v > 0 {
			limit = v
		}
	}

	files, err := s.files.List(r.Context(), limit)
	if err != nil {
		s.logger.Warn("listing files", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]FileInfoResponse, 0, len(files))
	for _, f := range files {
		out = append(out, s.fileInfo(r.Context(), f))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleGetFile godoc
// @Summary Get file information
// @Tags upload
// @Produce json
// @Param fileID path string true "File ID"
// @Success 200 {object} FileInfoResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/files/{fileID} [get]
func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	f, err := s.files.Get(r.Context(), fileID)
	if err != nil {
		s.writeFileError(w, "getting file", err)
		return
	}
	writeJSON(w, http.StatusOK, s.fileInfo(r.Context(), f))
}

// handleDeleteFile godoc
// @Summary Delete an uploaded file and its analysis data
// @Tags upload
// @Produce json
// @Param fileID path string true "File ID"
// @Success 200 {object} DeleteFileResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/files/{fileID} [delete]
func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	if err := s.files.Delete(r.Context(), fileID); err != nil {
		s.writeFileError(w, "deleting file", err)
		return
	}
	if err := s.orchestrator.Cancel(r.Context(), fileID); err != nil && !errors.Is(err, status.ErrNotFound) {
		s.logger.Warn("dropping analysis of deleted file", logging.Field{Key: "file_id", Value: fileID}, logging.Field{Key: "error", Value: err.Error()})
	}
	s.logger.Info("deleted file", logging.Field{Key: "file_id", Value: fileID})
	writeJSON(w, http.StatusOK, DeleteFileResponse{
		Status:  "success",
		Message: "File deleted successfully",
		FileID:  fileID,
	})
}

// handleDiffFile godoc
// @Summary Diff a file against an earlier upload
// @Tags upload
// @Produce json
// @Param fileID path string true "File ID"
// @Param against query string true "Base file ID"
// @Success 200 {object} upload.Diff
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/files/{fileID}/diff [get]
func (s *Server) handleDiffFile(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	base := r.URL.Query().Get("against")
	if base == "" {
		writeError(w, http.StatusBadRequest, "missing against query parameter")
		return
	}
	d, err := s.files.Diff(r.Context(), base, fileID)
	if err != nil {
		s.writeFileError(w, "diffing files", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) writeFileError(w http.ResponseWriter, action string, err error) {
	if errors.Is(err, upload.ErrFileNotFound) {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}
	s.logger.Warn(action, logging.Field{Key: "error", Value: err.Error()})
	writeError(w, http.StatusInternalServerError, err.Error())
}

// Analysis

// handleStartAnalysis godoc
// @Summary Start analyzing an uploaded file
// @Description Runs in the background. Poll the status endpoint or subscribe to /ws/analyze/{fileID}.
// @Tags analysis
// @Produce json
// @Param fileID path string true "File ID"
// @Success 202 {object} AnalysisResponse
// @Success 200 {object} AnalysisResponse "already running"
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/analyze/{fileID} [post]
func (s *Server) handleStartAnalysis(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")

	job, err := s.orchestrator.StartAnalysis(r.Context(), fileID)
	switch {
	case errors.Is(err, upload.ErrFileNotFound):
		writeError(w, http.StatusNotFound, fmt.Sprintf("File with ID %s not found", fileID))
		return
	case errors.Is(err, app.ErrAlreadyRunning):
		writeJSON(w, http.StatusOK, AnalysisResponse{
			Success: false,
			Message: "Analysis is already in progress for this file",
		})
		return
	case err != nil:
		s.logger.Warn("starting analysis", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, "Failed to start analysis: "+err.Error())
		return
	}

	s.logger.Info("started analysis", logging.Field{Key: "file_id", Value: job.ID}, logging.Field{Key: "run_id", Value: job.RunID})
	writeJSON(w, http.StatusAccepted, AnalysisResponse{
		Success: true,
		Message: fmt.Sprintf("Analysis started for file %s. Use GET /api/v1/analyze/%s/status to check progress.", fileID, fileID),
	})
}

// handleAnalysisStatus godoc
// @Summary Analysis progress
// @Tags analysis
// @Produce json
// @Param fileID path string true "File ID"
// @Success 200 {object} AnalysisStatusResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/analyze/{fileID}/status [get]
func (s *Server) handleAnalysisStatus(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	e, err := s.orchestrator.Status(r.Context(), fileID)
	if err != nil {
		s.writeAnalysisError(w, fileID, "getting analysis status", err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse(e))
}

func statusResponse(e *status.Entry) AnalysisStatusResponse {
	return AnalysisStatusResponse{
		FileID:   e.ID,
		Status:   e.Status,
		Progress: e.Progress,
		Message:  e.Message,
		Error:    e.Error,
	}
}

// handleAnalysisResult godoc
// @Summary Analysis report
// @Description success is false while the analysis has not completed.
// @Tags analysis
// @Produce json
// @Param fileID path string true "File ID"
// @Success 200 {object} AnalysisResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/analyze/{fileID}/result [get]
func (s *Server) handleAnalysisResult(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	report, err := s.orchestrator.Result(r.Context(), fileID)
	if errors.Is(err, app.ErrNotCompleted) {
		e, serr := s.orchestrator.Status(r.Context(), fileID)
		current := progress.Pending
		if serr == nil {
			current = e.Status
		}
		writeJSON(w, http.StatusOK, AnalysisResponse{
			Success: false,
			Message: fmt.Sprintf("Analysis not completed. Current status: %s", current),
		})
		return
	}
	if err != nil {
		s.writeAnalysisError(w, fileID, "getting analysis result", err)
		return
	}
	writeJSON(w, http.StatusOK, AnalysisResponse{
		Success:        true,
		Message:        "Analysis completed successfully",
		AnalysisResult: report,
	})
}

// handleCancelAnalysis godoc
// @Summary Cancel an analysis or remove its results
// @Tags analysis
// @Produce json
// @Param fileID path string true "File ID"
// @Success 200 {object} CancelAnalysisResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/analyze/{fileID} [delete]
func (s *Server) handleCancelAnalysis(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	if err := s.orchestrator.Cancel(r.Context(), fileID); err != nil {
		s.writeAnalysisError(w, fileID, "cancelling analysis", err)
		return
	}
	s.logger.Info("cancelled analysis", logging.Field{Key: "file_id", Value: fileID})
	writeJSON(w, http.StatusOK, CancelAnalysisResponse{
		Success: true,
		Message: fmt.Sprintf("Analysis data for file %s has been removed", fileID),
	})
}

func (s *Server) writeAnalysisError(w http.ResponseWriter, fileID, action string, err error) {
	if errors.Is(err, status.ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("No analysis found for file %s", fileID))
		return
	}
	s.logger.Warn(action, logging.Field{Key: "file_id", Value: fileID}, logging.Field{Key: "error", Value: err.Error()})
	writeError(w, http.StatusInternalServerError, err.Error())
}

// WebSockets

// handleAnalyzeWS streams progress events. A running job is followed; a file
// without any analysis gets one started. For a finished analysis the current
// status is sent once.
//
// @Summary Analysis progress stream
// @Tags analysis
// @Produce json
// @Param fileID path string true "File ID"
// @Success 101 {string} string "Switching Protocols"
// @Failure 403 {string} string "Origin not allowed"
// @Router /ws/analyze/{fileID} [get]
func (s *Server) handleAnalyzeWS(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading to websocket", logging.Field{Key: "error", Value: err.Error()})
		return
	}
	defer conn.Close()

	ctx := r.Context()

	events, unsubscribe, ok := s.orchestrator.Events(fileID)
	defer unsubscribe()
	started := false
	if !ok {
		e, err := s.orchestrator.Status(ctx, fileID)
		switch {
		case err == nil:
			_ = conn.WriteJSON(statusResponse(e))
			return
		case !errors.Is(err, status.ErrNotFound):
			_ = conn.WriteJSON(ErrorResponse{Error: err.Error()})
			return
		}

		job, err := s.orchestrator.StartAnalysis(ctx, fileID)
		switch {
		case errors.Is(err, app.ErrAlreadyRunning):
			// Another client started it in the meantime; follow that run.
			var unsub func()
			if events, unsub, ok = s.orchestrator.Events(fileID); !ok {
				_ = conn.WriteJSON(ErrorResponse{Error: err.Error()})
				return
			}
			defer unsub()
		case err != nil:
			s.logger.Warn("starting analysis", logging.Field{Key: "error", Value: err.Error()})
			_ = conn.WriteJSON(ErrorResponse{Error: err.Error()})
			return
		default:
			s.logger.Info("started analysis", logging.Field{Key: "file_id", Value: job.ID})
			// EndedAt is written by the job goroutine; send only the fixed fields.
			_ = conn.WriteJSON(map[string]any{"id": job.ID, "run_id": job.RunID, "started_at": job.StartedAt})
			events, started = job.Events, true
		}
	}

	for ev := range events {
		if err := conn.WriteJSON(ev); err != nil {
			// Assume client disconnected; drop the job only if this client started it.
			if started {
				_ = s.orchestrator.Cancel(context.Background(), fileID)
			}
			return
		}
	}
}
