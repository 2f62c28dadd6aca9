package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/annuaire-entreprises/annuaire-engine/pkg/apperrors"
	"github.com/annuaire-entreprises/annuaire-engine/pkg/services"
)

// ParseSIREN extracts and validates the SIREN from the request path.
// Returns the SIREN and true on success, or "" and false on error
// (after writing an error response).
// Expects path parameter: siren
func ParseSIREN(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (string, bool) {
	siren := strings.TrimSpace(r.PathValue("siren"))
	if err := services.ValidateSIREN("parse siren", siren); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_siren", apperrors.Message(err)); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return "", false
	}
	return siren, true
}

// parseIntQuery reads a positive integer query parameter. Missing or empty
// values yield 0 so the caller's defaults apply.
func parseIntQuery(query url.Values, key string) (int, error) {
	raw := strings.TrimSpace(query.Get(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, apperrors.Validation("parse query", "%s must be a positive integer", key)
	}
	return n, nil
}
