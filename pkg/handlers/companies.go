package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/annuaire-entreprises/annuaire-engine/pkg/auth"
	"github.com/annuaire-entreprises/annuaire-engine/pkg/models"
	"github.com/annuaire-entreprises/annuaire-engine/pkg/services"
)

// UpsertDetailsRequest is the body of PUT /api/companies/{siren}/details.
// Every field is replaced; omitted or blank fields are cleared.
type UpsertDetailsRequest struct {
	SIREN         string  `json:"siren,omitempty"`
	Phone         *string `json:"phone"`
	Email         *string `json:"email"`
	Website       *string `json:"website"`
	InternalNotes *string `json:"internal_notes"`
	Status        *string `json:"status"`
}

// StatusResponse describes one status for display.
type StatusResponse struct {
	Value models.Status `json:"value"`
	Label string        `json:"label"`
}

// CompanyHandler handles company search and annotation endpoints.
type CompanyHandler struct {
	companyService   services.CompanyService
	annotatedService services.AnnotatedCompanyService
	logger           *zap.Logger
}

// NewCompanyHandler creates a new company handler.
func NewCompanyHandler(
	companyService services.CompanyService,
	annotatedService services.AnnotatedCompanyService,
	logger *zap.Logger,
) *CompanyHandler {
	return &CompanyHandler{
		companyService:   companyService,
		annotatedService: annotatedService,
		logger:           logger.Named("company-handler"),
	}
}

// RegisterRoutes registers the company handler's routes on the given mux.
func (h *CompanyHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	base := "/api/companies"

	mux.HandleFunc("GET "+base+"/search", authMiddleware.RequireAuth(h.Search))
	mux.HandleFunc("GET "+base+"/annotated", authMiddleware.RequireAuth(h.ListAnnotated))
	mux.HandleFunc("GET "+base+"/{siren}/details", authMiddleware.RequireAuth(h.GetDetails))
	mux.HandleFunc("PUT "+base+"/{siren}/details", authMiddleware.RequireAuth(h.UpsertDetails))
	mux.HandleFunc("GET /api/statuses", authMiddleware.RequireAuth(h.ListStatuses))
}

// Search handles GET /api/companies/search
// Runs one registry search and attaches stored details to each result.
func (h *CompanyHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page, err := parseIntQuery(query, "page")
	if err != nil {
		writeServiceError(w, err, h.logger, "Invalid search page")
		return
	}
	perPage, err := parseIntQuery(query, "per_page")
	if err != nil {
		writeServiceError(w, err, h.logger, "Invalid search page size")
		return
	}

	params := models.SearchParams{
		Query:      query.Get("q"),
		PostalCode: query.Get("code_postal"),
		NAFCode:    query.Get("activite_principale"),
		Page:       page,
		PerPage:    perPage,
	}
	if !params.HasFilter() {
		if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", "Veuillez entrer au moins un critère de recherche"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	result, err := h.companyService.Search(r.Context(), params)
	if err != nil {
		writeServiceError(w, err, h.logger, "Failed to search companies",
			zap.String("query", params.Query),
			zap.String("postal_code", params.PostalCode))
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: result}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ListAnnotated handles GET /api/companies/annotated?status=
// Returns the companies that carry a status, optionally filtered.
func (h *CompanyHandler) ListAnnotated(w http.ResponseWriter, r *http.Request) {
	filter, err := models.ParseStatusFilter(r.URL.Query().Get("status"))
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_status", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	companies, err := h.annotatedService.ListAnnotated(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err, h.logger, "Failed to list annotated companies",
			zap.String("status", string(filter)))
		return
	}
	if companies == nil {
		companies = []*models.EnrichedCompany{}
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: companies}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// GetDetails handles GET /api/companies/{siren}/details
func (h *CompanyHandler) GetDetails(w http.ResponseWriter, r *http.Request) {
	siren, ok := ParseSIREN(w, r, h.logger)
	if !ok {
		return
	}

	details, err := h.companyService.GetDetails(r.Context(), siren)
	if err != nil {
		writeServiceError(w, err, h.logger, "Failed to get company details", zap.String("siren", siren))
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: details}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// UpsertDetails handles PUT /api/companies/{siren}/details
// The SIREN in the path wins over any SIREN in the body.
func (h *CompanyHandler) UpsertDetails(w http.ResponseWriter, r *http.Request) {
	siren, ok := ParseSIREN(w, r, h.logger)
	if !ok {
		return
	}

	var req UpsertDetailsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	details := &models.CompanyDetails{
		SIREN:         siren,
		Phone:         req.Phone,
		Email:         req.Email,
		Website:       req.Website,
		InternalNotes: req.InternalNotes,
	}
	if req.Status != nil && strings.TrimSpace(*req.Status) != "" {
		status, err := models.ParseStatus(*req.Status)
		if err != nil {
			if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", err.Error()); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		details.Status = &status
	}

	saved, err := h.companyService.Upsert(r.Context(), details)
	if err != nil {
		writeServiceError(w, err, h.logger, "Failed to save company details", zap.String("siren", siren))
		return
	}

	h.logger.Debug("Company details saved",
		zap.String("siren", siren),
		zap.String("user_id", auth.GetUserIDFromContext(r.Context())))

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: saved, Message: "Informations enregistrées"}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ListStatuses handles GET /api/statuses
func (h *CompanyHandler) ListStatuses(w http.ResponseWriter, r *http.Request) {
	statuses := make([]StatusResponse, 0, len(models.Statuses))
	for _, s := range models.Statuses {
		statuses = append(statuses, StatusResponse{Value: s, Label: s.Label()})
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: statuses}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
