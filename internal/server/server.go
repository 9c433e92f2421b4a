// Package server exposes the batch operations over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/regrule/internal/model"
	"github.com/sells-group/regrule/internal/service"
	"github.com/sells-group/regrule/internal/store"
)

// DefaultColumnWidth is the width applied by /set_column_width when the
// request carries none.
const DefaultColumnWidth = 30

// Batcher runs the folder-level operations. *service.Service satisfies it.
type Batcher interface {
	ProcessFolder(ctx context.Context, source, target string) (*model.BatchResult, error)
	EnrichFolder(ctx context.Context, folder string) (*model.BatchResult, error)
	CountFolder(ctx context.Context, folder string) (*model.BatchResult, error)
	BeautifyFolder(ctx context.Context, folder string) (*model.BatchResult, error)
	SetColumnWidthFolder(ctx context.Context, folder string, width float64) (*model.BatchResult, error)
}

// Server routes HTTP requests to a Batcher.
type Server struct {
	batch   Batcher
	runs    store.Store
	origins []string
}

// New creates a Server. runs may be nil, in which case the /runs routes
// answer 404.
func New(batch Batcher, runs store.Store, corsOrigins []string) *Server {
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}
	return &Server{batch: batch, runs: runs, origins: corsOrigins}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/upload_file", s.handleProcess)
	r.Post("/modify", s.handleModify)
	r.Post("/count", s.handleCount)
	r.Post("/beautify", s.handleBeautify)
	r.Post("/set_column_width", s.handleSetColumnWidth)

	r.Route("/runs", func(r chi.Router) {
		r.Get("/", s.handleListRuns)
		r.Get("/{id}", s.handleGetRun)
	})

	return r
}

// ListenAndServe serves on port until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("starting server", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}

// batchResponse is the body of every batch route.
type batchResponse struct {
	Message   string   `json:"message"`
	Processed []string `json:"processed_files,omitempty"`
	*model.BatchResult
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	source, target := r.URL.Query().Get("origin_folder"), r.URL.Query().Get("target_folder")
	if source == "" || target == "" {
		writeError(w, http.StatusBadRequest, "origin_folder and target_folder are required")
		return
	}
	batch, err := s.batch.ProcessFolder(r.Context(), source, target)
	if err != nil {
		writeBatchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, batchResponse{Message: "All files have been processed.", BatchResult: batch})
}

func (s *Server) handleModify(w http.ResponseWriter, r *http.Request) {
	folder, ok := requireParam(w, r, "folder")
	if !ok {
		return
	}
	batch, err := s.batch.EnrichFolder(r.Context(), folder)
	if err != nil {
		writeBatchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, batchResponse{Message: "Processing complete", BatchResult: batch})
}

func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	folder, ok := requireParam(w, r, "target_folder")
	if !ok {
		return
	}
	batch, err := s.batch.CountFolder(r.Context(), folder)
	if err != nil {
		writeBatchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, batchResponse{Message: "Files processed successfully", BatchResult: batch})
}

func (s *Server) handleBeautify(w http.ResponseWriter, r *http.Request) {
	folder, ok := requireParam(w, r, "folder_path")
	if !ok {
		return
	}
	batch, err := s.batch.BeautifyFolder(r.Context(), folder)
	if err != nil {
		writeBatchError(w, err)
		return
	}
	writeFormatted(w, batch)
}

func (s *Server) handleSetColumnWidth(w http.ResponseWriter, r *http.Request) {
	folder, ok := requireParam(w, r, "folder_path")
	if !ok {
		return
	}
	width := float64(DefaultColumnWidth)
	if raw := r.URL.Query().Get("width"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 {
			writeError(w, http.StatusBadRequest, "width must be a positive number")
			return
		}
		width = v
	}
	batch, err := s.batch.SetColumnWidthFolder(r.Context(), folder, width)
	if err != nil {
		writeBatchError(w, err)
		return
	}
	writeFormatted(w, batch)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeError(w, http.StatusNotFound, "run ledger disabled")
		return
	}
	filter := store.RunFilter{
		Kind:   model.RunKind(r.URL.Query().Get("kind")),
		Status: model.RunStatus(r.URL.Query().Get("status")),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = n
	}
	runs, err := s.runs.ListRuns(r.Context(), filter)
	if err != nil {
		zap.L().Error("list runs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list runs failed")
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeError(w, http.StatusNotFound, "run ledger disabled")
		return
	}
	id := chi.URLParam(r, "id")
	run, err := s.runs.GetRun(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		zap.L().Error("get run failed", zap.String("run_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "get run failed")
		return
	}
	docs, err := s.runs.ListDocuments(r.Context(), id)
	if err != nil {
		zap.L().Error("list run documents failed", zap.String("run_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list run documents failed")
		return
	}
	if docs == nil {
		docs = []model.DocumentResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"run": run, "documents": docs})
}

func writeFormatted(w http.ResponseWriter, batch *model.BatchResult) {
	processed := make([]string, 0, len(batch.Results))
	for _, res := range batch.Results {
		if res.Status == model.DocumentModified {
			processed = append(processed, res.File)
		}
	}
	writeJSON(w, http.StatusOK, batchResponse{
		Message:     fmt.Sprintf("Processed %d files", len(processed)),
		Processed:   processed,
		BatchResult: batch,
	})
}

func requireParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		writeError(w, http.StatusBadRequest, name+" is required")
		return "", false
	}
	return v, true
}

func writeBatchError(w http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrInvalidFolder) {
		writeError(w, http.StatusBadRequest, "Invalid folder path")
		return
	}
	zap.L().Error("batch operation failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("write response failed", zap.Error(err))
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
