package services

import (
	"context"
	"net/url"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/annuaire-entreprises/annuaire-engine/pkg/apperrors"
	"github.com/annuaire-entreprises/annuaire-engine/pkg/metrics"
	"github.com/annuaire-entreprises/annuaire-engine/pkg/models"
	"github.com/annuaire-entreprises/annuaire-engine/pkg/repositories"
	"github.com/annuaire-entreprises/annuaire-engine/pkg/retry"
	"github.com/annuaire-entreprises/annuaire-engine/pkg/searchapi"
)

// AnnotatedCompanyService lists companies that carry a status, re-fetching
// each one from the registry since it has no lookup-by-SIREN-list endpoint.
type AnnotatedCompanyService interface {
	// ListAnnotated returns the annotated companies matching filter, in store
	// order. Companies whose registry lookup keeps failing are left out.
	ListAnnotated(ctx context.Context, filter models.StatusFilter) ([]*models.EnrichedCompany, error)
}

type annotatedCompanyService struct {
	source   searchapi.Source
	repo     repositories.CompanyDetailsRepository
	retryCfg *retry.Config
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewAnnotatedCompanyService creates a new AnnotatedCompanyService.
// A nil retryCfg uses retry.LookupConfig.
func NewAnnotatedCompanyService(
	source searchapi.Source,
	repo repositories.CompanyDetailsRepository,
	retryCfg *retry.Config,
	m *metrics.Metrics,
	logger *zap.Logger,
) AnnotatedCompanyService {
	if retryCfg == nil {
		retryCfg = retry.LookupConfig()
	}
	return &annotatedCompanyService{
		source:   source,
		repo:     repo,
		retryCfg: retryCfg,
		metrics:  m,
		logger:   logger.Named("annotated-service"),
	}
}

var _ AnnotatedCompanyService = (*annotatedCompanyService)(nil)

func (s *annotatedCompanyService) ListAnnotated(ctx context.Context, filter models.StatusFilter) ([]*models.EnrichedCompany, error) {
	rows, err := s.repo.ListWithStatus(ctx)
	if err != nil {
		return nil, apperrors.DetailsLookupFailed("list annotated companies", err)
	}

	selected := make([]*models.CompanyDetails, 0, len(rows))
	for _, d := range rows {
		if filter.Matches(d) {
			selected = append(selected, d)
		}
	}

	slots := make([]*models.EnrichedCompany, len(selected))
	g, gctx := errgroup.WithContext(ctx)
	for i, details := range selected {
		g.Go(func() error {
			company, err := s.lookup(gctx, details.SIREN)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.metrics.IncLookupDropped("failed")
				s.logger.Warn("Dropping annotated company after failed lookups",
					zap.String("siren", details.SIREN),
					zap.Error(err))
				return nil
			}
			if company == nil {
				s.metrics.IncLookupDropped("not_found")
				s.logger.Warn("Annotated company not found in registry",
					zap.String("siren", details.SIREN))
				return nil
			}
			slots[i] = &models.EnrichedCompany{Company: *company, Details: details}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := make([]*models.EnrichedCompany, 0, len(slots))
	for _, c := range slots {
		if c != nil {
			result = append(result, c)
		}
	}

	s.logger.Debug("Listed annotated companies",
		zap.String("filter", string(filter)),
		zap.Int("annotated", len(selected)),
		zap.Int("resolved", len(result)))

	return result, nil
}

// lookup searches the registry for one SIREN under the retry policy. It
// returns nil, nil when the registry has no company with that exact SIREN.
func (s *annotatedCompanyService) lookup(ctx context.Context, siren string) (*models.Company, error) {
	params := url.Values{
		"q":        {siren},
		"page":     {"1"},
		"per_page": {"1"},
	}

	page, err := retry.DoIfRetryable(ctx, s.retryCfg, func() (*models.SearchResponse, error) {
		s.metrics.IncLookupAttempt()
		return s.source.Search(ctx, params)
	})
	if err != nil {
		return nil, err
	}

	for i := range page.Results {
		if page.Results[i].SIREN == siren {
			return &page.Results[i], nil
		}
	}
	return nil, nil
}
