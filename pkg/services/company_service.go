package services

import (
	"context"
	"regexp"
	"strconv"

	"go.uber.org/zap"

	"github.com/annuaire-entreprises/annuaire-engine/pkg/apperrors"
	"github.com/annuaire-entreprises/annuaire-engine/pkg/metrics"
	"github.com/annuaire-entreprises/annuaire-engine/pkg/models"
	"github.com/annuaire-entreprises/annuaire-engine/pkg/repositories"
	"github.com/annuaire-entreprises/annuaire-engine/pkg/searchapi"
)

var sirenPattern = regexp.MustCompile(`^[0-9]{9}$`)

// ValidateSIREN checks the 9-digit registry identifier format.
func ValidateSIREN(op, siren string) error {
	if siren == "" {
		return apperrors.Validation(op, "siren is required")
	}
	if !sirenPattern.MatchString(siren) {
		return apperrors.Validation(op, "siren must be 9 digits, got %q", siren)
	}
	return nil
}

// CompanyService merges registry search results with stored annotations and
// writes annotations.
type CompanyService interface {
	// Search runs one registry search and attaches stored details to each
	// result using a single batch read.
	Search(ctx context.Context, params models.SearchParams) (*models.EnrichedSearchResult, error)

	// Upsert validates, normalizes and fully replaces the annotation of one company.
	Upsert(ctx context.Context, details *models.CompanyDetails) (*models.CompanyDetails, error)

	// GetDetails returns the stored annotation of one company.
	GetDetails(ctx context.Context, siren string) (*models.CompanyDetails, error)

	// ListDetailsWithStatus returns the raw annotations that carry a status.
	ListDetailsWithStatus(ctx context.Context) ([]*models.CompanyDetails, error)
}

type companyService struct {
	source  searchapi.Source
	repo    repositories.CompanyDetailsRepository
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewCompanyService creates a new CompanyService.
func NewCompanyService(
	source searchapi.Source,
	repo repositories.CompanyDetailsRepository,
	m *metrics.Metrics,
	logger *zap.Logger,
) CompanyService {
	return &companyService{
		source:  source,
		repo:    repo,
		metrics: m,
		logger:  logger.Named("company-service"),
	}
}

var _ CompanyService = (*companyService)(nil)

func (s *companyService) Search(ctx context.Context, params models.SearchParams) (*models.EnrichedSearchResult, error) {
	const op = "search companies"

	values := params.Values()
	page, err := s.source.Search(ctx, values)
	if err != nil {
		return nil, apperrors.SearchFailed(op, err)
	}

	sirens := uniqueSIRENs(page.Results)

	detailsBySIREN := make(map[string]*models.CompanyDetails, len(sirens))
	if len(sirens) > 0 {
		rows, err := s.repo.GetBySIRENs(ctx, sirens)
		if err != nil {
			return nil, apperrors.DetailsLookupFailed(op, err)
		}
		for _, d := range rows {
			detailsBySIREN[d.SIREN] = d
		}
	}

	result := &models.EnrichedSearchResult{
		Results:      make([]*models.EnrichedCompany, 0, len(page.Results)),
		TotalResults: page.TotalResults,
		Page:         page.Page,
		PerPage:      page.PerPage,
		TotalPages:   page.TotalPages,
	}
	if result.Page == 0 {
		result.Page = atoiOr(values.Get("page"), models.DefaultSearchPage)
	}
	if result.PerPage == 0 {
		result.PerPage = atoiOr(values.Get("per_page"), models.DefaultSearchPerPage)
	}

	matched := 0
	for _, c := range page.Results {
		enriched := &models.EnrichedCompany{Company: c}
		if d, ok := detailsBySIREN[c.SIREN]; ok {
			enriched.Details = d
			matched++
		}
		result.Results = append(result.Results, enriched)
	}

	s.metrics.ObserveSearch(len(result.Results), matched)
	s.logger.Debug("Merged search page",
		zap.String("query", values.Encode()),
		zap.Int("results", len(result.Results)),
		zap.Int("with_details", matched))

	return result, nil
}

func (s *companyService) Upsert(ctx context.Context, details *models.CompanyDetails) (*models.CompanyDetails, error) {
	const op = "upsert company details"

	if details == nil {
		return nil, apperrors.Validation(op, "details are required")
	}
	normalized := *details
	normalized.Normalize()

	if err := ValidateSIREN(op, normalized.SIREN); err != nil {
		return nil, err
	}
	if normalized.Status != nil && !normalized.Status.IsValid() {
		return nil, apperrors.Validation(op, "unknown status %q", *normalized.Status)
	}

	stored, err := s.repo.Upsert(ctx, &normalized)
	if err != nil {
		s.metrics.IncUpsert("error")
		return nil, apperrors.Persistence(op, err)
	}

	s.metrics.IncUpsert("ok")
	s.logger.Info("Saved company details", zap.String("siren", stored.SIREN))
	return stored, nil
}

func (s *companyService) GetDetails(ctx context.Context, siren string) (*models.CompanyDetails, error) {
	const op = "get company details"

	if err := ValidateSIREN(op, siren); err != nil {
		return nil, err
	}

	details, err := s.repo.GetBySIREN(ctx, siren)
	if err != nil {
		return nil, apperrors.DetailsLookupFailed(op, err)
	}
	if details == nil {
		return nil, &apperrors.Error{Kind: apperrors.ErrNotFound, Op: op}
	}
	return details, nil
}

func (s *companyService) ListDetailsWithStatus(ctx context.Context) ([]*models.CompanyDetails, error) {
	rows, err := s.repo.ListWithStatus(ctx)
	if err != nil {
		return nil, apperrors.DetailsLookupFailed("list company details", err)
	}
	if rows == nil {
		rows = []*models.CompanyDetails{}
	}
	return rows, nil
}

// uniqueSIRENs returns the non-empty SIRENs of companies in first-seen order.
func uniqueSIRENs(companies []models.Company) []string {
	seen := make(map[string]struct{}, len(companies))
	sirens := make([]string, 0, len(companies))
	for _, c := range companies {
		if c.SIREN == "" {
			continue
		}
		if _, ok := seen[c.SIREN]; ok {
			continue
		}
		seen[c.SIREN] = struct{}{}
		sirens = append(sirens, c.SIREN)
	}
	return sirens
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
