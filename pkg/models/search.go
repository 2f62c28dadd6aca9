package models

import (
	"net/url"
	"strconv"
	"strings"
)

// Pagination defaults applied when a search omits them.
const (
	DefaultSearchPage    = 1
	DefaultSearchPerPage = 10
	MaxSearchPerPage     = 25
)

// SearchParams are the filters of a company search. Empty filters are omitted
// from the upstream query.
type SearchParams struct {
	Query      string `json:"query,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	NAFCode    string `json:"naf_code,omitempty"`
	Page       int    `json:"page"`
	PerPage    int    `json:"per_page"`
}

// HasFilter reports whether at least one search criterion is set.
func (p SearchParams) HasFilter() bool {
	return strings.TrimSpace(p.Query) != "" ||
		strings.TrimSpace(p.PostalCode) != "" ||
		strings.TrimSpace(p.NAFCode) != ""
}

// Values encodes the parameters with the registry API's query keys.
func (p SearchParams) Values() url.Values {
	v := url.Values{}
	if q := strings.TrimSpace(p.Query); q != "" {
		v.Set("q", q)
	}
	if cp := strings.TrimSpace(p.PostalCode); cp != "" {
		v.Set("code_postal", cp)
	}
	if naf := strings.TrimSpace(p.NAFCode); naf != "" {
		v.Set("activite_principale", naf)
	}

	page := p.Page
	if page < 1 {
		page = DefaultSearchPage
	}
	perPage := p.PerPage
	if perPage <= 0 {
		perPage = DefaultSearchPerPage
	}
	if perPage > MaxSearchPerPage {
		perPage = MaxSearchPerPage
	}
	v.Set("page", strconv.Itoa(page))
	v.Set("per_page", strconv.Itoa(perPage))
	return v
}

// SearchResponse is the registry API's search payload.
type SearchResponse struct {
	Results      []Company `json:"results"`
	TotalResults int       `json:"total_results"`
	Page         int       `json:"page"`
	PerPage      int       `json:"per_page"`
	TotalPages   int       `json:"total_pages"`
}

// EnrichedSearchResult is a search page merged with stored annotations.
type EnrichedSearchResult struct {
	Results      []*EnrichedCompany `json:"results"`
	TotalResults int                `json:"total_results"`
	Page         int                `json:"page"`
	PerPage      int                `json:"per_page"`
	TotalPages   int                `json:"total_pages"`
}
