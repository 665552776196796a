package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/danielokon-py/Tutora/internal/api/handlers"
	"github.com/danielokon-py/Tutora/internal/config"
	"github.com/danielokon-py/Tutora/internal/core"
	"github.com/danielokon-py/Tutora/internal/core/ingestion_engine"
	"github.com/danielokon-py/Tutora/internal/services"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	log        *zap.Logger
}

// NewServer builds and wires all routes. The paths are the contract the
// frontend is built against; changing them breaks the client.
func NewServer(cfg *config.Config, notebooks *services.NotebookService, study *services.StudyService, ingestor ingestion_engine.Ingestor, prober handlers.Prober, archive core.ObjectClient, log *zap.Logger) *Server {
	sourceHandler := handlers.NewSourceHandler(notebooks, study, ingestor, archive, cfg, log)
	studyHandler := handlers.NewStudyHandler(notebooks, study, prober, log)
	notebookHandler := handlers.NewNotebookHandler(notebooks)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8888"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Notebook-ID"},
		AllowCredentials: true,
	}))

	r.Post("/ingest", sourceHandler.Ingest)
	r.Post("/upload", sourceHandler.Upload)
	r.Post("/sources/add", sourceHandler.AddSource)
	r.Get("/sources", sourceHandler.ListSources)
	r.Delete("/sources/{id}", sourceHandler.DeleteSource)
	r.Post("/sources/clear", sourceHandler.ClearSources)

	r.Post("/ask", studyHandler.Ask)
	r.Post("/dialogue", studyHandler.Dialogue)
	r.Post("/summary", studyHandler.Summary)
	r.Post("/suggest-questions", studyHandler.SuggestQuestions)
	r.Post("/clear-history", studyHandler.ClearHistory)
	r.Get("/history", studyHandler.History)
	r.Get("/stats", studyHandler.Stats)
	r.Get("/health", studyHandler.Health)
	r.Get("/test-gemini", studyHandler.TestGemini)

	r.Get("/notebooks", notebookHandler.List)
	r.Post("/notebooks", notebookHandler.Create)
	r.Patch("/notebooks/{id}", notebookHandler.Rename)
	r.Delete("/notebooks/{id}", notebookHandler.Delete)
	r.Post("/notebooks/{id}/activate", notebookHandler.Activate)

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv, log: log}
}

// requestLogger logs one structured line per request.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
				zap.String("requestId", middleware.GetReqID(r.Context())),
			)
		})
	}
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	s.log.Info("HTTP server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
