package services

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/annuaire-entreprises/annuaire-engine/pkg/apperrors"
	"github.com/annuaire-entreprises/annuaire-engine/pkg/models"
	"github.com/annuaire-entreprises/annuaire-engine/pkg/searchapi"
)

// registry answers single-SIREN searches from a fixed set of companies.
func registry(companies ...models.Company) func(url.Values) (*models.SearchResponse, error) {
	bySIREN := make(map[string]models.Company, len(companies))
	for _, c := range companies {
		bySIREN[c.SIREN] = c
	}
	return func(params url.Values) (*models.SearchResponse, error) {
		if c, ok := bySIREN[params.Get("q")]; ok {
			return page(c), nil
		}
		return page(), nil
	}
}

func annotatedRows() []*models.CompanyDetails {
	return []*models.CompanyDetails{
		{SIREN: "111111111", Phone: strPtr("0102030405"), Status: statusPtr(models.StatusDone)},
		{SIREN: "222222222", Status: statusPtr(models.StatusPending)},
		{SIREN: "333333333", Email: strPtr("a@b.fr"), Status: statusPtr(models.StatusDone)},
	}
}

func TestAnnotatedService_ListAll(t *testing.T) {
	source := &mockSearchSource{searchFn: registry(
		company("111111111", "BOULANGERIE DUPONT"),
		company("222222222", "AU BON PAIN"),
		company("333333333", "FOURNIL"),
	)}
	repo := newMockDetailsRepo(annotatedRows()...)
	sleeper := &sleepRecorder{}
	svc := NewAnnotatedCompanyService(source, repo, lookupConfigWith(sleeper.sleep), nil, zap.NewNop())

	result, err := svc.ListAnnotated(context.Background(), models.StatusFilterAll)
	require.NoError(t, err)

	require.Len(t, result, 3)
	for i, want := range []string{"111111111", "222222222", "333333333"} {
		assert.Equal(t, want, result[i].SIREN, "store order is preserved")
		require.NotNil(t, result[i].Details)
		assert.Equal(t, result[i].SIREN, result[i].Details.SIREN)
	}
	assert.Equal(t, "BOULANGERIE DUPONT", result[0].Name)
	assert.Equal(t, "0102030405", *result[0].Details.Phone)

	for _, c := range source.calls {
		assert.Equal(t, "1", c.Get("page"))
		assert.Equal(t, "1", c.Get("per_page"))
	}
	assert.Empty(t, sleeper.recorded())
}

func TestAnnotatedService_StatusFilter(t *testing.T) {
	source := &mockSearchSource{searchFn: registry(
		company("111111111", "BOULANGERIE DUPONT"),
		company("222222222", "AU BON PAIN"),
		company("333333333", "FOURNIL"),
	)}
	repo := newMockDetailsRepo(annotatedRows()...)
	svc := NewAnnotatedCompanyService(source, repo, lookupConfigWith((&sleepRecorder{}).sleep), nil, zap.NewNop())

	done, err := svc.ListAnnotated(context.Background(), models.StatusFilter(models.StatusDone))
	require.NoError(t, err)
	require.Len(t, done, 2)
	for _, c := range done {
		assert.Equal(t, models.StatusDone, *c.Details.Status)
	}
	assert.Equal(t, 0, source.callsFor("222222222"), "filtered rows are not looked up")

	all, err := svc.ListAnnotated(context.Background(), models.StatusFilterAll)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestAnnotatedService_PartialFailureIsolation(t *testing.T) {
	healthy := registry(company("111111111", "BOULANGERIE DUPONT"), company("333333333", "FOURNIL"))
	source := &mockSearchSource{searchFn: func(params url.Values) (*models.SearchResponse, error) {
		if params.Get("q") == "222222222" {
			return nil, &searchapi.Error{Kind: searchapi.KindStatus, StatusCode: 502}
		}
		return healthy(params)
	}}
	repo := newMockDetailsRepo(annotatedRows()...)
	sleeper := &sleepRecorder{}

	core, logs := observer.New(zapcore.WarnLevel)
	svc := NewAnnotatedCompanyService(source, repo, lookupConfigWith(sleeper.sleep), nil, zap.New(core))

	result, err := svc.ListAnnotated(context.Background(), models.StatusFilterAll)
	require.NoError(t, err, "a failing lookup does not fail the listing")

	require.Len(t, result, 2)
	assert.Equal(t, "111111111", result[0].SIREN)
	assert.Equal(t, "333333333", result[1].SIREN)
	assert.Equal(t, "0102030405", *result[0].Details.Phone)
	assert.Equal(t, "a@b.fr", *result[1].Details.Email)

	assert.Equal(t, 3, source.callsFor("222222222"), "three attempts before giving up")
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, sleeper.recorded())

	dropped := logs.FilterMessage("Dropping annotated company after failed lookups").All()
	require.Len(t, dropped, 1)
	assert.Equal(t, "222222222", dropped[0].ContextMap()["siren"])
}

func TestAnnotatedService_RecoversAfterTransientFailures(t *testing.T) {
	var mu sync.Mutex
	failures := 2
	healthy := registry(company("111111111", "BOULANGERIE DUPONT"))
	source := &mockSearchSource{searchFn: func(params url.Values) (*models.SearchResponse, error) {
		mu.Lock()
		defer mu.Unlock()
		if failures > 0 {
			failures--
			return nil, &searchapi.Error{Kind: searchapi.KindTransport, Err: errors.New("connection reset by peer")}
		}
		return healthy(params)
	}}
	repo := newMockDetailsRepo(&models.CompanyDetails{SIREN: "111111111", Status: statusPtr(models.StatusPending)})
	sleeper := &sleepRecorder{}
	svc := NewAnnotatedCompanyService(source, repo, lookupConfigWith(sleeper.sleep), nil, zap.NewNop())

	result, err := svc.ListAnnotated(context.Background(), models.StatusFilterAll)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, 3, source.callCount())
}

func TestAnnotatedService_DecodeFailureIsNotRetried(t *testing.T) {
	source := &mockSearchSource{searchFn: func(url.Values) (*models.SearchResponse, error) {
		return nil, &searchapi.Error{Kind: searchapi.KindDecode, Err: errors.New("invalid character '<'")}
	}}
	repo := newMockDetailsRepo(&models.CompanyDetails{SIREN: "111111111", Status: statusPtr(models.StatusPending)})
	sleeper := &sleepRecorder{}
	svc := NewAnnotatedCompanyService(source, repo, lookupConfigWith(sleeper.sleep), nil, zap.NewNop())

	result, err := svc.ListAnnotated(context.Background(), models.StatusFilterAll)
	require.NoError(t, err)
	assert.Empty(t, result)
	assert.Equal(t, 1, source.callCount())
	assert.Empty(t, sleeper.recorded())
}

func TestAnnotatedService_UnknownSIRENIsDropped(t *testing.T) {
	// The registry answers with a different company: never attach details to it.
	source := &mockSearchSource{searchFn: func(url.Values) (*models.SearchResponse, error) {
		return page(company("999999999", "AUTRE SOCIETE")), nil
	}}
	repo := newMockDetailsRepo(&models.CompanyDetails{SIREN: "111111111", Status: statusPtr(models.StatusPending)})
	svc := NewAnnotatedCompanyService(source, repo, lookupConfigWith((&sleepRecorder{}).sleep), nil, zap.NewNop())

	result, err := svc.ListAnnotated(context.Background(), models.StatusFilterAll)
	require.NoError(t, err)
	assert.Empty(t, result)
	assert.Equal(t, 1, source.callCount(), "an empty answer is not retried")
}

func TestAnnotatedService_StoreFailure(t *testing.T) {
	repo := newMockDetailsRepo()
	repo.listErr = errors.New("connection refused")
	source := &mockSearchSource{}
	svc := NewAnnotatedCompanyService(source, repo, nil, nil, zap.NewNop())

	result, err := svc.ListAnnotated(context.Background(), models.StatusFilterAll)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrDetailsLookupFailed)
	assert.Equal(t, 0, source.callCount())
}

func TestAnnotatedService_EmptyStore(t *testing.T) {
	source := &mockSearchSource{}
	svc := NewAnnotatedCompanyService(source, newMockDetailsRepo(), nil, nil, zap.NewNop())

	result, err := svc.ListAnnotated(context.Background(), models.StatusFilterAll)
	require.NoError(t, err)
	assert.NotNil(t, result)
	assert.Empty(t, result)
	assert.Equal(t, 0, source.callCount())
}

func TestAnnotatedService_CancellationAbortsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	source := &mockSearchSource{searchFn: func(url.Values) (*models.SearchResponse, error) {
		return nil, &searchapi.Error{Kind: searchapi.KindStatus, StatusCode: 503}
	}}
	repo := newMockDetailsRepo(&models.CompanyDetails{SIREN: "111111111", Status: statusPtr(models.StatusPending)})

	// The first backoff cancels the caller instead of waiting.
	sleep := func(sctx context.Context, d time.Duration) error {
		cancel()
		<-sctx.Done()
		return sctx.Err()
	}
	svc := NewAnnotatedCompanyService(source, repo, lookupConfigWith(sleep), nil, zap.NewNop())

	result, err := svc.ListAnnotated(ctx, models.StatusFilterAll)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, source.callCount())
}
