package handlers

import (
	"context"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/annuaire-entreprises/annuaire-engine/pkg/auth"
	"github.com/annuaire-entreprises/annuaire-engine/pkg/models"
)

type mockCompanyService struct {
	searchResult *models.EnrichedSearchResult
	searchErr    error
	lastParams   models.SearchParams
	searchCalls  int

	upserted  *models.CompanyDetails
	upsertErr error

	details    *models.CompanyDetails
	detailsErr error

	rows    []*models.CompanyDetails
	listErr error
}

func (m *mockCompanyService) Search(ctx context.Context, params models.SearchParams) (*models.EnrichedSearchResult, error) {
	m.searchCalls++
	m.lastParams = params
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.searchResult, nil
}

func (m *mockCompanyService) Upsert(ctx context.Context, details *models.CompanyDetails) (*models.CompanyDetails, error) {
	m.upserted = details
	if m.upsertErr != nil {
		return nil, m.upsertErr
	}
	saved := *details
	return &saved, nil
}

func (m *mockCompanyService) GetDetails(ctx context.Context, siren string) (*models.CompanyDetails, error) {
	if m.detailsErr != nil {
		return nil, m.detailsErr
	}
	return m.details, nil
}

func (m *mockCompanyService) ListDetailsWithStatus(ctx context.Context) ([]*models.CompanyDetails, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.rows, nil
}

type mockAnnotatedService struct {
	companies  []*models.EnrichedCompany
	err        error
	lastFilter models.StatusFilter
}

func (m *mockAnnotatedService) ListAnnotated(ctx context.Context, filter models.StatusFilter) ([]*models.EnrichedCompany, error) {
	m.lastFilter = filter
	if m.err != nil {
		return nil, m.err
	}
	return m.companies, nil
}

type mockSource struct {
	raw        []byte
	err        error
	lastParams url.Values
}

func (m *mockSource) Search(ctx context.Context, params url.Values) (*models.SearchResponse, error) {
	return nil, m.err
}

func (m *mockSource) SearchRaw(ctx context.Context, params url.Values) ([]byte, error) {
	m.lastParams = params
	if m.err != nil {
		return nil, m.err
	}
	return m.raw, nil
}

// newOptionalAuth returns middleware that lets anonymous requests through.
func newOptionalAuth() *auth.Middleware {
	verifier, _ := auth.NewVerifier(auth.VerifierConfig{})
	return auth.NewMiddleware(auth.NewAuthService(verifier, zap.NewNop()), false, zap.NewNop())
}

func newCompanyMux(companies *mockCompanyService, annotated *mockAnnotatedService) *http.ServeMux {
	mux := http.NewServeMux()
	NewCompanyHandler(companies, annotated, zap.NewNop()).RegisterRoutes(mux, newOptionalAuth())
	return mux
}

func strPtr(s string) *string { return &s }

func statusPtr(s models.Status) *models.Status { return &s }
