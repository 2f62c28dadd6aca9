package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/annuaire-entreprises/annuaire-engine/pkg/apperrors"
	"github.com/annuaire-entreprises/annuaire-engine/pkg/auth"
	"github.com/annuaire-entreprises/annuaire-engine/pkg/models"
	"github.com/annuaire-entreprises/annuaire-engine/pkg/searchapi"
	"github.com/annuaire-entreprises/annuaire-engine/pkg/services"
)

// ProxyHandler serves the endpoints browser clients call in place of the
// registry API and the annotation table.
type ProxyHandler struct {
	source         searchapi.Source
	companyService services.CompanyService
	logger         *zap.Logger
}

// NewProxyHandler creates a new proxy handler.
func NewProxyHandler(source searchapi.Source, companyService services.CompanyService, logger *zap.Logger) *ProxyHandler {
	return &ProxyHandler{
		source:         source,
		companyService: companyService,
		logger:         logger.Named("search-proxy"),
	}
}

// RegisterRoutes registers the proxy handler's routes on the given mux.
func (h *ProxyHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/search-companies", authMiddleware.RequireAuth(h.SearchCompanies))
	mux.HandleFunc("GET /api/company-details", authMiddleware.RequireAuth(h.ListCompanyDetails))
}

// SearchCompanies handles POST /api/search-companies
// Forwards the URL-encoded searchParams to the registry and returns its
// JSON untouched.
func (h *ProxyHandler) SearchCompanies(w http.ResponseWriter, r *http.Request) {
	var req searchapi.ProxyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	params, err := url.ParseQuery(req.SearchParams)
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "searchParams is not a valid query string"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	body, err := h.source.SearchRaw(r.Context(), params)
	if err != nil {
		writeServiceError(w, apperrors.SearchFailed("search companies", err), h.logger,
			"Search proxy request failed", zap.String("search_params", req.SearchParams))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		h.logger.Error("Failed to write proxied response", zap.Error(err))
	}
}

// ListCompanyDetails handles GET /api/company-details
// Returns the raw stored rows that carry a status.
func (h *ProxyHandler) ListCompanyDetails(w http.ResponseWriter, r *http.Request) {
	rows, err := h.companyService.ListDetailsWithStatus(r.Context())
	if err != nil {
		writeServiceError(w, err, h.logger, "Failed to list company details")
		return
	}
	if rows == nil {
		rows = []*models.CompanyDetails{}
	}

	if err := WriteJSON(w, http.StatusOK, rows); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
