// Package matcher decides which insurance plans a client profile is eligible for.
//
// The engine (IsAgeInRange, CheckBuildEligibility, Engine) is pure and does no
// I/O. MatcherService wraps it with catalog loading, persistence and batching.
package matcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"plan-eligibility-engine/internal/config"
	"plan-eligibility-engine/internal/models"
	"plan-eligibility-engine/internal/services/database"
	"plan-eligibility-engine/internal/utils"
)

// ErrClientNotFound is returned when a stored client ID does not exist.
var ErrClientNotFound = errors.New("client not found")

// PlanCatalog supplies the active plan catalog.
type PlanCatalog interface {
	GetAllActive(ctx context.Context) ([]*models.InsurancePlan, error)
}

// ClientStore persists and loads client profiles.
type ClientStore interface {
	Create(ctx context.Context, client *models.ClientProfile) (string, error)
	GetByID(ctx context.Context, id string) (*models.ClientProfile, error)
}

// MatchStore persists eligibility results.
type MatchStore interface {
	BulkInsert(ctx context.Context, matches []*models.PlanMatchCreate) (int, error)
}

// Stores groups the collaborators MatcherService reads and writes.
type Stores struct {
	Plans   PlanCatalog
	Clients ClientStore
	Matches MatchStore
}

// MatcherService runs the eligibility engine against stored data.
type MatcherService struct {
	engine      *Engine
	stores      Stores
	metrics     *Metrics
	concurrency int
	now         func() time.Time
	logger      *zap.Logger
}

// MatchingResult is the outcome of matching one client profile against the catalog.
type MatchingResult struct {
	ClientID       string                     `json:"client_id,omitempty"`
	BatchID        string                     `json:"batch_id,omitempty"`
	Eligible       []models.EligibilityResult `json:"eligible_plans"`
	TotalPlans     int                        `json:"total_plans"`
	Rejections     map[Check]int              `json:"rejections"`
	SavedMatches   int                        `json:"saved_matches"`
	ProcessingTime time.Duration              `json:"processing_time_ns"`
}

// BatchResult is the outcome of matching a set of stored clients.
type BatchResult struct {
	BatchID        string            `json:"batch_id"`
	TotalClients   int               `json:"total_clients"`
	MatchedClients int               `json:"matched_clients"`
	TotalMatches   int               `json:"total_matches"`
	TotalPlans     int               `json:"total_plans"`
	Failed         map[string]string `json:"failed,omitempty"`
	ProcessingTime time.Duration     `json:"processing_time_ns"`
}

// NewMatcherService creates a matcher service backed by the database.
func NewMatcherService(db *database.DB, cfg *config.Config) *MatcherService {
	return NewMatcherServiceWithStores(Stores{
		Plans:   database.NewPlanRepository(db),
		Clients: database.NewClientRepository(db),
		Matches: database.NewMatchRepository(db),
	}, cfg)
}

// NewMatcherServiceWithStores creates a matcher service over arbitrary stores.
func NewMatcherServiceWithStores(stores Stores, cfg *config.Config) *MatcherService {
	logger := utils.Component("matcher")
	concurrency := 1
	opts := Options{}
	if cfg != nil {
		concurrency = max(cfg.MatchConcurrency, 1)
		opts.FuzzyPrimaryMedications = cfg.FuzzyPrimaryMedications
	}

	return &MatcherService{
		engine:      NewEngine(opts, logger),
		stores:      stores,
		concurrency: concurrency,
		now:         time.Now,
		logger:      logger,
	}
}

// WithMetrics attaches metrics to the service.
func (m *MatcherService) WithMetrics(metrics *Metrics) *MatcherService {
	m.metrics = metrics
	return m
}

// Engine returns the engine the service evaluates with.
func (m *MatcherService) Engine() *Engine {
	return m.engine
}

// MatchProfile normalizes and validates a client profile, then matches it
// against the active catalog. Nothing is persisted.
func (m *MatcherService) MatchProfile(ctx context.Context, client *models.ClientProfile) (*MatchingResult, error) {
	startTime := time.Now()

	client.Normalize(m.now())
	if err := models.ValidateClientProfile(client); err != nil {
		return nil, err
	}

	plans, err := m.stores.Plans.GetAllActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get plans: %w", err)
	}

	result := m.evaluate(client, plans)
	result.ProcessingTime = time.Since(startTime)
	m.record(result)

	m.logger.Info("Profile matched",
		zap.Int("total_plans", result.TotalPlans),
		zap.Int("eligible", len(result.Eligible)),
		zap.Duration("processing_time", result.ProcessingTime),
	)

	return result, nil
}

// MatchAndSave stores a new client, matches it and persists the eligible plans.
func (m *MatcherService) MatchAndSave(ctx context.Context, client *models.ClientProfile) (*MatchingResult, error) {
	startTime := time.Now()

	client.Normalize(m.now())
	if err := models.ValidateClientProfile(client); err != nil {
		return nil, err
	}

	plans, err := m.stores.Plans.GetAllActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get plans: %w", err)
	}

	clientID, err := m.stores.Clients.Create(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("failed to save client: %w", err)
	}

	result := m.evaluate(client, plans)
	result.ClientID = clientID
	result.BatchID = uuid.NewString()

	saved, err := m.stores.Matches.BulkInsert(ctx, models.NewPlanMatches(clientID, result.BatchID, result.Eligible))
	if err != nil {
		return nil, fmt.Errorf("failed to save matches: %w", err)
	}
	result.SavedMatches = saved
	result.ProcessingTime = time.Since(startTime)
	m.record(result)

	m.logger.Info("Client matched and saved",
		zap.String("client_id", clientID),
		zap.String("batch_id", result.BatchID),
		zap.Int("eligible", len(result.Eligible)),
		zap.Int("saved_matches", saved),
	)

	return result, nil
}

// ProcessClients re-matches stored clients against the current catalog. The
// catalog is loaded once; clients are matched concurrently. A client that
// cannot be loaded or saved is reported in Failed without stopping the batch.
func (m *MatcherService) ProcessClients(ctx context.Context, clientIDs []string) (*BatchResult, error) {
	startTime := time.Now()
	batch := &BatchResult{
		BatchID:      uuid.NewString(),
		TotalClients: len(clientIDs),
		Failed:       map[string]string{},
	}

	plans, err := m.stores.Plans.GetAllActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get plans: %w", err)
	}
	batch.TotalPlans = len(plans)

	m.logger.Info("Starting batch matching",
		zap.String("batch_id", batch.BatchID),
		zap.Int("clients", len(clientIDs)),
		zap.Int("plans", len(plans)),
		zap.Int("concurrency", m.concurrency),
	)

	now := m.now()
	var matched, totalMatches atomic.Int64
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)

	for _, clientID := range clientIDs {
		g.Go(func() error {
			saved, err := m.processClient(gctx, clientID, batch.BatchID, plans, now)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				m.logger.Warn("Client matching failed", zap.String("client_id", clientID), zap.Error(err))
				mu.Lock()
				batch.Failed[clientID] = err.Error()
				mu.Unlock()
				return nil
			}
			if saved > 0 {
				matched.Add(1)
			}
			totalMatches.Add(int64(saved))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch matching: %w", err)
	}

	batch.MatchedClients = int(matched.Load())
	batch.TotalMatches = int(totalMatches.Load())
	batch.ProcessingTime = time.Since(startTime)

	m.logger.Info("Batch matching complete",
		zap.String("batch_id", batch.BatchID),
		zap.Int("matched_clients", batch.MatchedClients),
		zap.Int("total_matches", batch.TotalMatches),
		zap.Int("failed", len(batch.Failed)),
		zap.Duration("processing_time", batch.ProcessingTime),
	)

	return batch, nil
}

func (m *MatcherService) processClient(ctx context.Context, clientID, batchID string, plans []*models.InsurancePlan, now time.Time) (int, error) {
	startTime := time.Now()

	client, err := m.stores.Clients.GetByID(ctx, clientID)
	if err != nil {
		return 0, err
	}
	if client == nil {
		return 0, ErrClientNotFound
	}

	client.Normalize(now)
	result := m.evaluate(client, plans)

	saved, err := m.stores.Matches.BulkInsert(ctx, models.NewPlanMatches(clientID, batchID, result.Eligible))
	if err != nil {
		return 0, err
	}

	result.ProcessingTime = time.Since(startTime)
	m.record(result)
	return saved, nil
}

func (m *MatcherService) evaluate(client *models.ClientProfile, plans []*models.InsurancePlan) *MatchingResult {
	eligible, rejections := m.engine.Filter(client, plans)
	return &MatchingResult{
		ClientID:   client.ID,
		Eligible:   eligible,
		TotalPlans: len(plans),
		Rejections: rejections,
	}
}

func (m *MatcherService) record(result *MatchingResult) {
	m.metrics.ObserveResult(result)
	m.metrics.ObserveMatchLatency(result.ProcessingTime)
}
