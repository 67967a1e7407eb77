// Package main provides a local HTTP server for development and testing.
// It serves the intake, matching and catalog endpoints used by the frontend
// and the n8n workflows.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"plan-eligibility-engine/internal/config"
	"plan-eligibility-engine/internal/handlers"
	"plan-eligibility-engine/internal/models"
	"plan-eligibility-engine/internal/services/database"
	"plan-eligibility-engine/internal/services/matcher"
	"plan-eligibility-engine/internal/services/n8n"
	s3service "plan-eligibility-engine/internal/services/s3"
	sesservice "plan-eligibility-engine/internal/services/ses"
	"plan-eligibility-engine/internal/utils"
)

// maxUploadSize caps multipart catalog uploads.
const maxUploadSize = 10 << 20

// Server holds all dependencies
type Server struct {
	db        *database.DB
	planRepo  *database.PlanRepository
	matchRepo *database.MatchRepository
	refRepo   *database.ReferenceRepository
	matches   *handlers.MatchHandler
	catalog   *handlers.CatalogImportHandler
	health    *handlers.HealthHandler
	notifier  *sesservice.Notifier
	storage   *s3service.Service
	webhooks  *n8n.Client
	config    *config.Config
	logger    *zap.Logger
}

// Response represents a standard API response
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// PresignedURLRequest represents the request for a presigned catalog upload URL
type PresignedURLRequest struct {
	Filename string `json:"filename"`
}

// NotifyRequest selects the pending matches to email.
type NotifyRequest struct {
	BatchID string `json:"batch_id"`
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := utils.InitLogger(cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer utils.Sync()
	logger := utils.Component("server")

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	server := newServer(context.Background(), cfg, matcher.NewMetrics(reg), logger)
	if server.db != nil {
		defer server.db.Close()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", server.healthHandler)
	mux.HandleFunc("/api/health", server.healthHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	mux.HandleFunc("/api/match", server.matchHandler)
	mux.HandleFunc("/api/match/clients", server.batchMatchHandler)
	mux.HandleFunc("/api/matches", server.matchesHandler)
	mux.HandleFunc("/api/plans", server.plansHandler)
	mux.HandleFunc("/api/reference/health-conditions", server.healthConditionsHandler)
	mux.HandleFunc("/api/reference/medications", server.medicationsHandler)
	mux.HandleFunc("/api/upload", server.uploadHandler)
	mux.HandleFunc("/api/presigned-url", server.presignedURLHandler)
	mux.HandleFunc("/api/notify", server.notifyHandler)
	mux.HandleFunc("/api/trigger/", server.triggerHandler)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%s", cfg.Port),
		Handler:           c.Handler(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server",
			zap.String("addr", httpServer.Addr),
			zap.String("stage", cfg.Stage),
			zap.Bool("database", server.db != nil),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
	logger.Info("Server stopped")
}

// newServer wires the services that are available. Without a database the
// server still answers health checks and reports 503 for everything else.
func newServer(ctx context.Context, cfg *config.Config, metrics *matcher.Metrics, logger *zap.Logger) *Server {
	server := &Server{
		config:   cfg,
		logger:   logger,
		webhooks: n8n.NewClient(cfg),
	}

	db, err := database.New(cfg)
	if err != nil {
		logger.Warn("Could not connect to database, running without storage", zap.Error(err))
		server.health = handlers.NewHealthHandler(cfg, nil)
	} else {
		server.db = db
		server.health = handlers.NewHealthHandler(cfg, db)
		server.planRepo = database.NewPlanRepository(db)
		server.matchRepo = database.NewMatchRepository(db)
		server.refRepo = database.NewReferenceRepository(db)
		server.matches = handlers.NewMatchHandler(
			matcher.NewMatcherService(db, cfg).WithMetrics(metrics),
			server.webhooks,
		)
	}

	if cfg.S3Bucket != "" {
		storage, err := s3service.NewService(ctx, cfg)
		if err != nil {
			logger.Warn("S3 unavailable, presigned uploads disabled", zap.Error(err))
		} else {
			server.storage = storage
		}
	}

	if server.planRepo != nil {
		var storage handlers.CatalogStorage
		if server.storage != nil {
			storage = server.storage
		}
		server.catalog = handlers.NewCatalogImportHandler(server.planRepo, storage, server.webhooks)
	}

	if cfg.SESSenderEmail != "" && server.matchRepo != nil {
		sender, err := sesservice.NewService(ctx, cfg)
		if err != nil {
			logger.Warn("SES unavailable, notifications disabled", zap.Error(err))
		} else {
			server.notifier = sesservice.NewNotifier(server.matchRepo, sender, cfg.DashboardURL)
		}
	}

	return server
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	health, status := s.health.Check(r.Context())
	writeJSON(w, status, Response{
		Success: status == http.StatusOK,
		Message: "Plan Eligibility Engine API is running",
		Data:    health,
	})
}

func (s *Server) matchHandler(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) || !s.requireDatabase(w) {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	save, _ := strconv.ParseBool(r.URL.Query().Get("save"))
	result, err := s.matches.MatchProfile(r.Context(), body, save)
	if err != nil {
		if models.IsValidationError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("Matching failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to match profile")
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Message: fmt.Sprintf("Eligible for %d of %d plans", len(result.Eligible), result.TotalPlans),
		Data:    result,
	})
}

func (s *Server) batchMatchHandler(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) || !s.requireDatabase(w) {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	resp, _ := s.matches.Handle(r.Context(), proxyRequest(http.MethodPost, r.URL.Path, nil, string(body)))
	writeProxied(w, resp.StatusCode, resp.Body)
}

func (s *Server) matchesHandler(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) || !s.requireDatabase(w) {
		return
	}

	ctx := r.Context()
	if batchID := r.URL.Query().Get("batch_id"); batchID != "" {
		summary, err := s.matchRepo.GetBatchSummary(ctx, batchID)
		if err != nil {
			s.logger.Error("Error fetching batch summary", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Failed to fetch batch summary")
			return
		}
		writeJSON(w, http.StatusOK, Response{Success: true, Data: summary})
		return
	}

	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		writeError(w, http.StatusBadRequest, "client_id or batch_id is required")
		return
	}

	matches, err := s.matchRepo.GetByClientID(ctx, clientID)
	if err != nil {
		s.logger.Error("Error fetching matches", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch matches")
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: matches})
}

func (s *Server) plansHandler(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) || !s.requireDatabase(w) {
		return
	}

	plans, err := s.planRepo.GetAllActive(r.Context())
	if err != nil {
		s.logger.Error("Error fetching plans", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch plans")
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: plans})
}

func (s *Server) healthConditionsHandler(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) || !s.requireDatabase(w) {
		return
	}
	s.writeReference(r.Context(), w, s.refRepo.ListHealthConditions)
}

func (s *Server) medicationsHandler(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) || !s.requireDatabase(w) {
		return
	}
	s.writeReference(r.Context(), w, s.refRepo.ListMedications)
}

func (s *Server) writeReference(ctx context.Context, w http.ResponseWriter, list func(context.Context) ([]models.ReferenceItem, error)) {
	items, err := list(ctx)
	if err != nil {
		s.logger.Error("Error fetching reference list", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch reference list")
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: items})
}

func (s *Server) uploadHandler(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) || !s.requireDatabase(w) {
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "Failed to parse form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") {
		writeError(w, http.StatusBadRequest, "Only CSV files are allowed")
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read file")
		return
	}

	s.logger.Info("Catalog upload received",
		zap.String("filename", header.Filename),
		zap.Int64("size", header.Size),
	)

	result, err := s.catalog.ImportCatalog(r.Context(), content, header.Filename)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: result.Upserted > 0,
		Message: result.Message,
		Data:    result,
	})
}

func (s *Server) presignedURLHandler(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	if s.storage == nil {
		writeError(w, http.StatusServiceUnavailable, "S3 is not configured")
		return
	}

	var req PresignedURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	query := map[string]string{}
	if req.Filename != "" {
		query["filename"] = req.Filename
	}
	resp, _ := handlers.NewPresignedURLHandler(s.storage).Handle(r.Context(), proxyRequest(http.MethodGet, r.URL.Path, query, ""))
	writeProxied(w, resp.StatusCode, resp.Body)
}

func (s *Server) notifyHandler(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	if s.notifier == nil {
		writeError(w, http.StatusServiceUnavailable, "Email notifications are not configured")
		return
	}

	var req NotifyRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	result, err := s.notifier.NotifyPending(r.Context(), req.BatchID)
	if err != nil {
		s.logger.Error("Notification run failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to send notifications")
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: len(result.Errors) == 0,
		Message: fmt.Sprintf("Notified %d clients", result.ClientsNotified),
		Data:    result,
	})
}

// triggerHandler starts an n8n workflow: POST /api/trigger/{intake|notification|catalog}.
func (s *Server) triggerHandler(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	var req handlers.TriggerRequest
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}
	req.WorkflowType = strings.TrimPrefix(r.URL.Path, "/api/trigger/")

	payload, _ := json.Marshal(req)
	resp, _ := handlers.NewWebhookTriggerHandler(s.webhooks).Handle(r.Context(), proxyRequest(http.MethodPost, r.URL.Path, nil, string(payload)))
	writeProxied(w, resp.StatusCode, resp.Body)
}

func (s *Server) requireDatabase(w http.ResponseWriter) bool {
	if s.db == nil {
		writeError(w, http.StatusServiceUnavailable, "Database is not connected")
		return false
	}
	return true
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		utils.GetLogger().Error("Failed to encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Success: false, Error: message})
}

// proxyRequest adapts a local request for the Lambda handlers.
func proxyRequest(method, path string, query map[string]string, body string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod:            method,
		Path:                  path,
		QueryStringParameters: query,
		Body:                  body,
	}
}

// writeProxied writes a body already encoded by a Lambda handler.
func writeProxied(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
