package services

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/annuaire-entreprises/annuaire-engine/pkg/models"
	"github.com/annuaire-entreprises/annuaire-engine/pkg/retry"
	"github.com/annuaire-entreprises/annuaire-engine/pkg/searchapi"
)

// ============================================================================
// Mock Implementations for Company Service Tests
// ============================================================================

type mockDetailsRepo struct {
	mu sync.Mutex

	rows map[string]*models.CompanyDetails
	// listed is returned by ListWithStatus in order.
	listed []*models.CompanyDetails

	batchCalls  [][]string
	upsertCalls []*models.CompanyDetails
	getCalls    int
	listCalls   int

	batchErr  error
	upsertErr error
	getErr    error
	listErr   error
}

func newMockDetailsRepo(rows ...*models.CompanyDetails) *mockDetailsRepo {
	m := &mockDetailsRepo{rows: make(map[string]*models.CompanyDetails)}
	for _, r := range rows {
		m.rows[r.SIREN] = r
		if r.Status != nil {
			m.listed = append(m.listed, r)
		}
	}
	return m
}

func (m *mockDetailsRepo) GetBySIRENs(ctx context.Context, sirens []string) ([]*models.CompanyDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchCalls = append(m.batchCalls, append([]string(nil), sirens...))
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	var out []*models.CompanyDetails
	for _, s := range sirens {
		if r, ok := m.rows[s]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockDetailsRepo) GetBySIREN(ctx context.Context, siren string) (*models.CompanyDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.rows[siren], nil
}

func (m *mockDetailsRepo) ListWithStatus(ctx context.Context) ([]*models.CompanyDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.listed, nil
}

func (m *mockDetailsRepo) Upsert(ctx context.Context, details *models.CompanyDetails) (*models.CompanyDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertCalls = append(m.upsertCalls, details)
	if m.upsertErr != nil {
		return nil, m.upsertErr
	}
	stored := *details
	stored.UpdatedAt = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	m.rows[stored.SIREN] = &stored
	return &stored, nil
}

func (m *mockDetailsRepo) totalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.batchCalls) + len(m.upsertCalls) + m.getCalls + m.listCalls
}

// mockSearchSource answers searches through searchFn and records every call.
type mockSearchSource struct {
	mu       sync.Mutex
	calls    []url.Values
	searchFn func(params url.Values) (*models.SearchResponse, error)
}

var _ searchapi.Source = (*mockSearchSource)(nil)

func (m *mockSearchSource) Search(ctx context.Context, params url.Values) (*models.SearchResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, params)
	m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, &searchapi.Error{Kind: searchapi.KindTransport, Err: err}
	}
	return m.searchFn(params)
}

func (m *mockSearchSource) SearchRaw(ctx context.Context, params url.Values) ([]byte, error) {
	panic("SearchRaw is not used by the services")
}

func (m *mockSearchSource) callsFor(q string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Get("q") == q {
			n++
		}
	}
	return n
}

func (m *mockSearchSource) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// sleepRecorder is a concurrency-safe retry.SleepFunc that never waits.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

func lookupConfigWith(sleep retry.SleepFunc) *retry.Config {
	cfg := retry.LookupConfig()
	cfg.Sleep = sleep
	return cfg
}

func company(siren, name string) models.Company {
	return models.Company{SIREN: siren, Name: name}
}

func page(companies ...models.Company) *models.SearchResponse {
	return &models.SearchResponse{
		Results:      companies,
		TotalResults: len(companies),
		Page:         1,
		PerPage:      10,
		TotalPages:   1,
	}
}

func strPtr(s string) *string { return &s }

func statusPtr(s models.Status) *models.Status { return &s }
