package matcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plan-eligibility-engine/internal/config"
	"plan-eligibility-engine/internal/models"
)

type fakeCatalog struct {
	plans []*models.InsurancePlan
	err   error
	calls int
}

func (f *fakeCatalog) GetAllActive(ctx context.Context) ([]*models.InsurancePlan, error) {
	f.calls++
	return f.plans, f.err
}

type fakeClients struct {
	mu      sync.Mutex
	clients map[string]*models.ClientProfile
	created []*models.ClientProfile
	errs    map[string]error
}

func (f *fakeClients) Create(ctx context.Context, client *models.ClientProfile) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, client)
	return "new-client", nil
}

func (f *fakeClients) GetByID(ctx context.Context, id string) (*models.ClientProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[id]; ok {
		return nil, err
	}
	client, ok := f.clients[id]
	if !ok {
		return nil, nil
	}
	copied := *client
	return &copied, nil
}

type fakeMatches struct {
	mu       sync.Mutex
	inserted []*models.PlanMatchCreate
	err      error
}

func (f *fakeMatches) BulkInsert(ctx context.Context, matches []*models.PlanMatchCreate) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.inserted = append(f.inserted, matches...)
	return len(matches), nil
}

func newTestService(plans []*models.InsurancePlan) (*MatcherService, *fakeCatalog, *fakeClients, *fakeMatches) {
	catalog := &fakeCatalog{plans: plans}
	clients := &fakeClients{clients: map[string]*models.ClientProfile{}, errs: map[string]error{}}
	matches := &fakeMatches{}

	svc := NewMatcherServiceWithStores(Stores{Plans: catalog, Clients: clients, Matches: matches}, &config.Config{MatchConcurrency: 4})
	svc.now = func() time.Time { return time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC) }
	return svc, catalog, clients, matches
}

func testCatalog() []*models.InsurancePlan {
	young := mockPlan("young")
	young.AgeRange = "18-29"
	adult := mockPlan("adult")
	adult.AgeRange = "30-44"
	newYork := mockPlan("ny")
	newYork.AvailableStates = []string{"NY"}
	return []*models.InsurancePlan{young, adult, newYork}
}

func TestMatchProfile_NormalizesAndFilters(t *testing.T) {
	svc, _, clients, matches := newTestService(testCatalog())
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	svc.WithMetrics(metrics)

	client := &models.ClientProfile{
		FullName:    "Sam Carter",
		State:       " ca ",
		DateOfBirth: "1990-06-15",
	}

	result, err := svc.MatchProfile(context.Background(), client)
	require.NoError(t, err)

	assert.Equal(t, "CA", client.State)
	require.NotNil(t, client.Age)
	assert.Equal(t, 35, *client.Age)
	assert.Equal(t, models.CoverageTypeIndividual, client.CoverageType)

	assert.Equal(t, []string{"adult"}, planIDs(result.Eligible))
	assert.Equal(t, 3, result.TotalPlans)
	assert.Equal(t, map[Check]int{CheckAge: 1, CheckState: 1}, result.Rejections)

	assert.Empty(t, clients.created, "nothing is persisted")
	assert.Empty(t, matches.inserted)
	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.PlansEvaluated))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.PlansEligible))
}

func TestMatchProfile_CatalogError(t *testing.T) {
	svc, catalog, _, _ := newTestService(nil)
	catalog.err = errors.New("connection refused")

	_, err := svc.MatchProfile(context.Background(), mockClient())
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.err)
}

func TestMatchAndSave_PersistsClientAndMatches(t *testing.T) {
	svc, _, clients, matches := newTestService(testCatalog())

	client := mockClient()
	client.ID = ""

	result, err := svc.MatchAndSave(context.Background(), client)
	require.NoError(t, err)

	assert.Equal(t, "new-client", result.ClientID)
	assert.NotEmpty(t, result.BatchID)
	assert.Equal(t, 1, result.SavedMatches)
	require.Len(t, clients.created, 1)
	require.Len(t, matches.inserted, 1)
	assert.Equal(t, "new-client", matches.inserted[0].ClientID)
	assert.Equal(t, "adult", matches.inserted[0].PlanID)
	assert.Equal(t, result.BatchID, matches.inserted[0].BatchID)
}

func TestMatchAndSave_InvalidProfile(t *testing.T) {
	svc, catalog, clients, _ := newTestService(testCatalog())

	_, err := svc.MatchAndSave(context.Background(), &models.ClientProfile{State: "CA"})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidClientProfile)
	assert.Zero(t, catalog.calls)
	assert.Empty(t, clients.created)
}

func TestMatchAndSave_MatchStoreError(t *testing.T) {
	svc, _, _, matches := newTestService(testCatalog())
	matches.err = errors.New("disk full")

	_, err := svc.MatchAndSave(context.Background(), mockClient())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save matches")
}

func TestProcessClients_RecordsFailuresWithoutAborting(t *testing.T) {
	svc, catalog, clients, matches := newTestService(testCatalog())

	matching := mockClient()
	noMatches := mockClient()
	noMatches.Age = intPtr(70)
	clients.clients["c-1"] = matching
	clients.clients["c-2"] = noMatches
	clients.clients["c-3"] = mockClient()
	clients.errs["c-broken"] = errors.New("row decode failed")

	result, err := svc.ProcessClients(context.Background(), []string{"c-1", "c-2", "c-missing", "c-broken", "c-3"})
	require.NoError(t, err)

	assert.Equal(t, 1, catalog.calls, "catalog is loaded once per batch")
	assert.NotEmpty(t, result.BatchID)
	assert.Equal(t, 5, result.TotalClients)
	assert.Equal(t, 3, result.TotalPlans)
	assert.Equal(t, 2, result.MatchedClients)
	assert.Equal(t, 2, result.TotalMatches)
	assert.Equal(t, map[string]string{
		"c-missing": ErrClientNotFound.Error(),
		"c-broken":  "row decode failed",
	}, result.Failed)

	require.Len(t, matches.inserted, 2)
	for _, m := range matches.inserted {
		assert.Equal(t, result.BatchID, m.BatchID)
		assert.Equal(t, "adult", m.PlanID)
	}
}

func TestProcessClients_AgesStoredClientFromDateOfBirth(t *testing.T) {
	svc, catalog, clients, matches := newTestService(testCatalog())

	client := mockClient()
	client.Age = nil
	client.DateOfBirth = "1961-06-15"

	_, err := svc.MatchAndSave(context.Background(), client)
	require.NoError(t, err)
	require.Len(t, clients.created, 1)
	require.NotNil(t, clients.created[0].Age)
	assert.Equal(t, 64, *clients.created[0].Age)
	clients.clients["new-client"] = clients.created[0]

	senior := mockPlan("senior")
	senior.AgeRange = "65+"
	catalog.plans = []*models.InsurancePlan{senior}
	svc.now = func() time.Time { return time.Date(2028, time.March, 1, 0, 0, 0, 0, time.UTC) }
	matches.inserted = nil

	result, err := svc.ProcessClients(context.Background(), []string{"new-client"})
	require.NoError(t, err)

	assert.Empty(t, result.Failed)
	assert.Equal(t, 1, result.MatchedClients)
	assert.Equal(t, 1, result.TotalMatches)
	require.Len(t, matches.inserted, 1)
	assert.Equal(t, "senior", matches.inserted[0].PlanID)
}

func TestProcessClients_CanceledContext(t *testing.T) {
	svc, _, clients, _ := newTestService(testCatalog())
	clients.errs["c-1"] = context.Canceled

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.ProcessClients(ctx, []string{"c-1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewMatcherServiceWithStores_Options(t *testing.T) {
	svc := NewMatcherServiceWithStores(Stores{}, &config.Config{MatchConcurrency: 0, FuzzyPrimaryMedications: true})
	assert.Equal(t, 1, svc.concurrency)
	assert.True(t, svc.Engine().opts.FuzzyPrimaryMedications)

	svc = NewMatcherServiceWithStores(Stores{}, nil)
	assert.Equal(t, 1, svc.concurrency)
	assert.False(t, svc.Engine().opts.FuzzyPrimaryMedications)
}

func TestMatchProfile_InvalidProfile(t *testing.T) {
	svc, catalog, _, _ := newTestService(testCatalog())

	_, err := svc.MatchProfile(context.Background(), &models.ClientProfile{FullName: "No State"})
	require.Error(t, err)
	assert.True(t, models.IsValidationError(err))
	assert.Zero(t, catalog.calls)
}
