package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"crm_insights_backend/internal/events"
	"crm_insights_backend/internal/insights/analytics"
	"crm_insights_backend/internal/insights/domain"
	"crm_insights_backend/internal/insights/flags"
	"crm_insights_backend/internal/insights/repository"
	"crm_insights_backend/platform/apperr"
	"crm_insights_backend/platform/logger"

	"github.com/google/uuid"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func daysAgo(n int) time.Time {
	return testNow.AddDate(0, 0, -n)
}

type testConfig struct {
	timeout time.Duration
}

func (c testConfig) GetInsightsRequestTimeout() time.Duration { return c.timeout }
func (c testConfig) GetDashboardCacheTTL() time.Duration      { return time.Minute }

type fakeRepo struct {
	mu sync.Mutex

	leads            map[uuid.UUID]domain.Lead
	clients          []domain.Client
	leadActivities   []domain.Activity
	clientActivities map[uuid.UUID][]domain.Activity
	projects         []domain.Project

	activitiesErr error
	listErr       error
	blockLists    bool

	listCalls    int
	healthWrites map[uuid.UUID]int
	writeErrs    map[uuid.UUID]error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		leads:            make(map[uuid.UUID]domain.Lead),
		clientActivities: make(map[uuid.UUID][]domain.Activity),
		healthWrites:     make(map[uuid.UUID]int),
		writeErrs:        make(map[uuid.UUID]error),
	}
}

func (r *fakeRepo) GetLead(_ context.Context, scope repository.Scope, id uuid.UUID) (domain.Lead, error) {
	lead, ok := r.leads[id]
	if !ok {
		return domain.Lead{}, repository.ErrNotFound
	}
	if scope.OwnerID != nil && (lead.OwnerID == nil || *lead.OwnerID != *scope.OwnerID) {
		return domain.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (r *fakeRepo) ListLeadActivities(context.Context, uuid.UUID, uuid.UUID) ([]domain.Activity, error) {
	if r.activitiesErr != nil {
		return nil, r.activitiesErr
	}
	return r.leadActivities, nil
}

func (r *fakeRepo) ListLeadFiles(context.Context, uuid.UUID, uuid.UUID) ([]domain.LeadFile, error) {
	return nil, nil
}

func (r *fakeRepo) ListStageTransitions(context.Context, uuid.UUID, uuid.UUID) ([]domain.StageTransition, error) {
	return nil, nil
}

func (r *fakeRepo) GetClient(_ context.Context, _ repository.Scope, id uuid.UUID) (domain.Client, error) {
	for _, c := range r.clients {
		if c.ID == id {
			return c, nil
		}
	}
	return domain.Client{}, repository.ErrNotFound
}

func (r *fakeRepo) ListClientActivities(_ context.Context, _ uuid.UUID, clientID uuid.UUID) ([]domain.Activity, error) {
	if r.activitiesErr != nil {
		return nil, r.activitiesErr
	}
	return r.clientActivities[clientID], nil
}

func (r *fakeRepo) ListClientProjects(context.Context, uuid.UUID, uuid.UUID) ([]domain.Project, error) {
	return nil, nil
}

func (r *fakeRepo) list(ctx context.Context) error {
	r.mu.Lock()
	r.listCalls++
	r.mu.Unlock()
	if r.blockLists {
		<-ctx.Done()
		return ctx.Err()
	}
	return r.listErr
}

func (r *fakeRepo) ListLeads(ctx context.Context, _ repository.Scope) ([]domain.Lead, error) {
	if err := r.list(ctx); err != nil {
		return nil, err
	}
	out := make([]domain.Lead, 0, len(r.leads))
	for _, l := range r.leads {
		out = append(out, l)
	}
	return out, nil
}

func (r *fakeRepo) ListClients(ctx context.Context, _ repository.Scope) ([]domain.Client, error) {
	if err := r.list(ctx); err != nil {
		return nil, err
	}
	return r.clients, nil
}

func (r *fakeRepo) ListProjects(ctx context.Context, _ repository.Scope) ([]domain.Project, error) {
	if err := r.list(ctx); err != nil {
		return nil, err
	}
	return r.projects, nil
}

func (r *fakeRepo) UpdateClientHealthScore(_ context.Context, _ uuid.UUID, clientID uuid.UUID, score int, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.writeErrs[clientID]; err != nil {
		return err
	}
	r.healthWrites[clientID] = score
	return nil
}

type recordingBus struct {
	mu        sync.Mutex
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

type fakeCache struct {
	stored map[analytics.Period]analytics.Dashboard
	getErr error
	sets   int
}

func (c *fakeCache) Get(_ context.Context, _ repository.Scope, period analytics.Period) (analytics.Dashboard, bool, error) {
	if c.getErr != nil {
		return analytics.Dashboard{}, false, c.getErr
	}
	d, ok := c.stored[period]
	return d, ok, nil
}

func (c *fakeCache) Set(_ context.Context, _ repository.Scope, period analytics.Period, d analytics.Dashboard) error {
	c.sets++
	if c.stored == nil {
		c.stored = make(map[analytics.Period]analytics.Dashboard)
	}
	c.stored[period] = d
	return nil
}

type fakeEnqueuer struct {
	orgs []uuid.UUID
}

func (e *fakeEnqueuer) EnqueueHealthRefresh(_ context.Context, organizationID uuid.UUID) (string, error) {
	e.orgs = append(e.orgs, organizationID)
	return "task-1", nil
}

func newTestService(repo Repository, timeout time.Duration, opts ...Option) *Service {
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return New(repo, testConfig{timeout: timeout}, logger.Discard(), opts...)
}

func TestLeadInsightsComputesMetricsAndFlags(t *testing.T) {
	repo := newFakeRepo()
	lead := domain.Lead{ID: uuid.New(), Stage: domain.StageContacted, Value: 10000, CreatedAt: daysAgo(70), UpdatedAt: daysAgo(20)}
	repo.leads[lead.ID] = lead
	repo.leadActivities = []domain.Activity{{ID: uuid.New(), LeadID: &lead.ID, CreatedAt: daysAgo(20)}}

	got, err := newTestService(repo, time.Second).LeadInsights(context.Background(), repository.OrganizationScope(uuid.New()), lead.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Metrics.DaysInPipeline != 70 || got.Metrics.DaysSinceLastContact != 20 {
		t.Fatalf("unexpected metrics %+v", got.Metrics)
	}
	fired := map[flags.Type]bool{}
	for _, f := range got.Flags {
		fired[f.Type] = true
	}
	if !fired[flags.LongPipeline] || !fired[flags.NoContact] || fired[flags.HighValueStale] {
		t.Fatalf("unexpected flags %+v", got.Flags)
	}
	if len(got.SuggestedActions) == 0 {
		t.Fatalf("expected suggested actions")
	}
	if !got.ComputedAt.Equal(testNow) {
		t.Fatalf("expected computedAt to use the injected clock")
	}
}

func TestLeadInsightsNotFound(t *testing.T) {
	_, err := newTestService(newFakeRepo(), time.Second).LeadInsights(context.Background(), repository.OrganizationScope(uuid.New()), uuid.New())
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLeadInsightsOutsideOwnerScopeIsNotFound(t *testing.T) {
	repo := newFakeRepo()
	owner := uuid.New()
	lead := domain.Lead{ID: uuid.New(), OwnerID: &owner, Stage: domain.StageNew, CreatedAt: daysAgo(1)}
	repo.leads[lead.ID] = lead

	_, err := newTestService(repo, time.Second).LeadInsights(context.Background(), repository.OwnerScope(uuid.New(), uuid.New()), lead.ID)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for a foreign lead, got %v", err)
	}
}

func TestLeadInsightsStoreFailureIsNotZeroMetrics(t *testing.T) {
	repo := newFakeRepo()
	lead := domain.Lead{ID: uuid.New(), Stage: domain.StageNew, CreatedAt: daysAgo(5)}
	repo.leads[lead.ID] = lead
	repo.activitiesErr = errors.New("connection reset")

	got, err := newTestService(repo, time.Second).LeadInsights(context.Background(), repository.OrganizationScope(uuid.New()), lead.ID)
	if !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if got.LeadID != uuid.Nil || got.Flags != nil {
		t.Fatalf("expected an empty response on failure, got %+v", got)
	}
}

func TestClientInsights(t *testing.T) {
	repo := newFakeRepo()
	client := domain.Client{ID: uuid.New(), Status: domain.ClientChurned, CreatedAt: daysAgo(400)}
	repo.clients = []domain.Client{client}

	got, err := newTestService(repo, time.Second).ClientInsights(context.Background(), repository.OrganizationScope(uuid.New()), client.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Metrics.DaysSinceLastContact != 400 || got.Metrics.HealthStatus != "at_risk" {
		t.Fatalf("unexpected metrics %+v", got.Metrics)
	}
	if len(got.Flags) != 1 || got.Flags[0].Type != flags.NoContact || got.Flags[0].Severity != flags.SeverityHigh {
		t.Fatalf("expected a single high NO_CONTACT flag, got %+v", got.Flags)
	}
}

func TestDashboardTimesOut(t *testing.T) {
	repo := newFakeRepo()
	repo.blockLists = true

	_, err := newTestService(repo, 20*time.Millisecond).Dashboard(context.Background(), repository.OrganizationScope(uuid.New()), analytics.PeriodMonth)
	if !apperr.Is(err, apperr.KindTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestDashboardStoreFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.listErr = errors.New("too many connections")

	_, err := newTestService(repo, time.Second).Dashboard(context.Background(), repository.OrganizationScope(uuid.New()), analytics.PeriodWeek)
	if !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestDashboardUsesCache(t *testing.T) {
	repo := newFakeRepo()
	lead := domain.Lead{ID: uuid.New(), Stage: domain.StageNew, CreatedAt: daysAgo(3), UpdatedAt: daysAgo(3)}
	repo.leads[lead.ID] = lead
	cache := &fakeCache{}
	svc := newTestService(repo, time.Second, WithDashboardCache(cache))
	scope := repository.OrganizationScope(uuid.New())

	first, err := svc.Dashboard(context.Background(), scope, analytics.PeriodMonth)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Cached || cache.sets != 1 {
		t.Fatalf("expected a computed dashboard to be stored, cached=%v sets=%d", first.Cached, cache.sets)
	}

	second, err := svc.Dashboard(context.Background(), scope, analytics.PeriodMonth)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !second.Cached || second.Summary.TotalLeads != 1 {
		t.Fatalf("expected cached dashboard, got %+v", second)
	}
	if repo.listCalls != 3 {
		t.Fatalf("expected only the first call to hit the store, got %d reads", repo.listCalls)
	}
}

func TestDashboardCacheFailureFallsBackToStore(t *testing.T) {
	repo := newFakeRepo()
	cache := &fakeCache{getErr: errors.New("redis down")}

	got, err := newTestService(repo, time.Second, WithDashboardCache(cache)).Dashboard(context.Background(), repository.OrganizationScope(uuid.New()), analytics.PeriodQuarter)
	if err != nil {
		t.Fatalf("cache failure must not fail the request: %v", err)
	}
	if got.Cached || got.Period != analytics.PeriodQuarter {
		t.Fatalf("unexpected dashboard %+v", got)
	}
}

func TestRefreshClientHealthPublishesAtRisk(t *testing.T) {
	repo := newFakeRepo()
	previous := 50
	slipping := domain.Client{ID: uuid.New(), Name: "Slipping", HealthScore: &previous, CreatedAt: daysAgo(200)}
	busy := domain.Client{ID: uuid.New(), Name: "Busy", CreatedAt: daysAgo(200)}
	repo.clients = []domain.Client{slipping, busy}
	for i := 0; i < 10; i++ {
		repo.clientActivities[busy.ID] = append(repo.clientActivities[busy.ID], domain.Activity{ID: uuid.New(), ClientID: &busy.ID, CreatedAt: daysAgo(i + 1)})
	}
	bus := &recordingBus{}
	org := uuid.New()

	got, err := newTestService(repo, time.Second, WithEventBus(bus)).RefreshClientHealth(context.Background(), org)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.ClientsUpdated != 2 || got.AtRiskCount != 1 {
		t.Fatalf("unexpected result %+v", got)
	}
	if repo.healthWrites[slipping.ID] != 0 || repo.healthWrites[busy.ID] != 50 {
		t.Fatalf("unexpected health writes %v", repo.healthWrites)
	}

	var atRisk *events.ClientAtRisk
	var refreshed bool
	for _, e := range bus.published {
		switch ev := e.(type) {
		case events.ClientAtRisk:
			atRisk = &ev
		case events.ClientHealthRefreshed:
			refreshed = ev.OrganizationID == org && ev.ClientsUpdated == 2
		}
	}
	if atRisk == nil || atRisk.ClientID != slipping.ID || atRisk.PreviousScore != 50 || atRisk.CurrentScore != 0 {
		t.Fatalf("expected ClientAtRisk for the slipping client, got %+v", bus.published)
	}
	if !refreshed {
		t.Fatalf("expected ClientHealthRefreshed, got %+v", bus.published)
	}
}

func TestRefreshClientHealthPartialFailureStillPublishesAtRisk(t *testing.T) {
	repo := newFakeRepo()
	previous := 50
	slipping := domain.Client{ID: uuid.New(), Name: "Slipping", HealthScore: &previous, CreatedAt: daysAgo(200)}
	broken := domain.Client{ID: uuid.New(), Name: "Broken", CreatedAt: daysAgo(200)}
	repo.clients = []domain.Client{broken, slipping}
	repo.writeErrs[broken.ID] = errors.New("record store unavailable")
	bus := &recordingBus{}
	org := uuid.New()

	_, err := newTestService(repo, time.Second, WithEventBus(bus)).RefreshClientHealth(context.Background(), org)
	if !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("expected unavailable error, got %v", err)
	}

	if score, ok := repo.healthWrites[slipping.ID]; !ok || score != 0 {
		t.Fatalf("expected the healthy write to persist, got %v", repo.healthWrites)
	}

	var atRisk int
	for _, e := range bus.published {
		switch ev := e.(type) {
		case events.ClientAtRisk:
			if ev.ClientID != slipping.ID {
				t.Fatalf("unexpected at-risk client %s", ev.ClientID)
			}
			atRisk++
		case events.ClientHealthRefreshed:
			t.Fatalf("an incomplete refresh must not report completion")
		}
	}
	if atRisk != 1 {
		t.Fatalf("expected one ClientAtRisk for the written score, got %d", atRisk)
	}
}

func TestRequestHealthRefresh(t *testing.T) {
	org := uuid.New()

	enqueuer := &fakeEnqueuer{}
	queued, err := newTestService(newFakeRepo(), time.Second, WithHealthRefreshEnqueuer(enqueuer)).RequestHealthRefresh(context.Background(), org)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !queued.Queued || queued.TaskID != "task-1" || len(enqueuer.orgs) != 1 || enqueuer.orgs[0] != org {
		t.Fatalf("expected the refresh to be queued, got %+v", queued)
	}

	inline, err := newTestService(newFakeRepo(), time.Second).RequestHealthRefresh(context.Background(), org)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inline.Queued || inline.Result == nil || inline.Result.OrganizationID != org {
		t.Fatalf("expected an inline refresh result, got %+v", inline)
	}
}
