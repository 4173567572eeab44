package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/Simplici0/vertical.works/internal/catalog"
	"github.com/Simplici0/vertical.works/internal/config"
	"github.com/Simplici0/vertical.works/internal/db"
	"github.com/Simplici0/vertical.works/internal/migrations"
	"github.com/Simplici0/vertical.works/internal/pricing"
	"github.com/Simplici0/vertical.works/internal/seed"
)

type server struct {
	db  *sql.DB
	log *zap.Logger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		os.Stderr.WriteString("failed to build logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer database.Close()

	if cfg.IsDev() {
		if err := migrations.Up(database, "migrations"); err != nil {
			logger.Fatal("failed to run database migrations", zap.Error(err))
		}
	}

	stats, err := seed.Run(database)
	if err != nil {
		logger.Fatal("failed to seed default catalog", zap.Error(err))
	}
	if stats.Inserts > 0 {
		logger.Info("seeded default price catalog", zap.Int("inserts", stats.Inserts))
	}

	srv := &server{db: database, log: logger}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/catalog", srv.handleCatalogGet)
		r.Put("/catalog", srv.handleCatalogPut)
		r.Post("/catalog/reset", srv.handleCatalogReset)
		r.Post("/estimate", srv.handleEstimate)
		r.Post("/quotes", srv.handleQuoteCreate)
		r.Get("/quotes", srv.handleQuotesList)
		r.Get("/quotes/{id}", srv.handleQuoteDetail)
		r.Get("/quotes/{id}/text", srv.handleQuoteText)
	})

	httpServer := &http.Server{Addr: ":" + cfg.Port, Handler: r}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", zap.String("addr", httpServer.Addr))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.IsDev() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleCatalogGet(w http.ResponseWriter, r *http.Request) {
	cat, err := catalog.Load(s.db)
	if err != nil {
		s.internalError(w, "load catalog", err)
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

func (s *server) handleCatalogPut(w http.ResponseWriter, r *http.Request) {
	var cat pricing.Catalog
	if err := json.NewDecoder(r.Body).Decode(&cat); err != nil {
		writeJSONError(w, http.StatusBadRequest, "cuerpo de solicitud inválido")
		return
	}

	if err := catalog.Save(s.db, cat); err != nil {
		s.respondEngineError(w, "save catalog", err)
		return
	}

	writeJSON(w, http.StatusOK, cat)
}

func (s *server) handleCatalogReset(w http.ResponseWriter, r *http.Request) {
	cat, err := catalog.Reset(s.db)
	if err != nil {
		s.internalError(w, "reset catalog", err)
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

// handleEstimate computes a quote without persisting anything. The UI calls
// it on every input change; each run recomputes from scratch.
func (s *server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var project pricing.Project
	if err := json.NewDecoder(r.Body).Decode(&project); err != nil {
		writeJSONError(w, http.StatusBadRequest, "cuerpo de solicitud inválido")
		return
	}

	cat, err := catalog.Load(s.db)
	if err != nil {
		s.internalError(w, "load catalog", err)
		return
	}

	result, err := pricing.Compute(cat, project)
	if err != nil {
		s.respondEngineError(w, "compute estimate", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// respondEngineError maps engine errors to 422 and everything else to 500.
func (s *server) respondEngineError(w http.ResponseWriter, op string, err error) {
	var vErr *pricing.ValidationError
	var cfgErr *pricing.ConfigurationError
	if errors.As(err, &vErr) || errors.As(err, &cfgErr) {
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.internalError(w, op, err)
}

func (s *server) internalError(w http.ResponseWriter, op string, err error) {
	s.log.Error("request failed", zap.String("op", op), zap.Error(err))
	writeJSONError(w, http.StatusInternalServerError, "error interno")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
