package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/annuaire-entreprises/annuaire-engine/pkg/database"
	"github.com/annuaire-entreprises/annuaire-engine/pkg/models"
)

// CompanyDetailsRepository provides data access for company annotations.
type CompanyDetailsRepository interface {
	// GetBySIRENs returns the rows whose siren is in sirens, in one query.
	GetBySIRENs(ctx context.Context, sirens []string) ([]*models.CompanyDetails, error)
	// GetBySIREN returns nil, nil when no row exists.
	GetBySIREN(ctx context.Context, siren string) (*models.CompanyDetails, error)
	// ListWithStatus returns every row with a non-null status, most recently updated first.
	ListWithStatus(ctx context.Context) ([]*models.CompanyDetails, error)
	// Upsert inserts or fully replaces the row keyed by details.SIREN and
	// returns the stored row.
	Upsert(ctx context.Context, details *models.CompanyDetails) (*models.CompanyDetails, error)
}

type companyDetailsRepository struct {
	db *database.DB
}

// NewCompanyDetailsRepository creates a PostgreSQL-backed CompanyDetailsRepository.
func NewCompanyDetailsRepository(db *database.DB) CompanyDetailsRepository {
	return &companyDetailsRepository{db: db}
}

var _ CompanyDetailsRepository = (*companyDetailsRepository)(nil)

const companyDetailsColumns = `siren, phone, email, website, internal_notes, status, updated_at`

func (r *companyDetailsRepository) GetBySIRENs(ctx context.Context, sirens []string) ([]*models.CompanyDetails, error) {
	if len(sirens) == 0 {
		return nil, nil
	}

	query := `
		SELECT ` + companyDetailsColumns + `
		FROM company_details
		WHERE siren = ANY($1)`

	rows, err := r.db.Query(ctx, query, sirens)
	if err != nil {
		return nil, fmt.Errorf("failed to query company details: %w", err)
	}
	defer rows.Close()

	return collectPgDetails(rows)
}

func (r *companyDetailsRepository) GetBySIREN(ctx context.Context, siren string) (*models.CompanyDetails, error) {
	query := `
		SELECT ` + companyDetailsColumns + `
		FROM company_details
		WHERE siren = $1`

	details, err := scanPgDetails(r.db.QueryRow(ctx, query, siren))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get company details: %w", err)
	}
	return details, nil
}

func (r *companyDetailsRepository) ListWithStatus(ctx context.Context) ([]*models.CompanyDetails, error) {
	query := `
		SELECT ` + companyDetailsColumns + `
		FROM company_details
		WHERE status IS NOT NULL
		ORDER BY updated_at DESC, siren`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list annotated companies: %w", err)
	}
	defer rows.Close()

	return collectPgDetails(rows)
}

func (r *companyDetailsRepository) Upsert(ctx context.Context, details *models.CompanyDetails) (*models.CompanyDetails, error) {
	query := `
		INSERT INTO company_details (siren, phone, email, website, internal_notes, status, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (siren) DO UPDATE SET
			phone = EXCLUDED.phone,
			email = EXCLUDED.email,
			website = EXCLUDED.website,
			internal_notes = EXCLUDED.internal_notes,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + companyDetailsColumns

	stored, err := scanPgDetails(r.db.QueryRow(ctx, query, upsertArgs(details)...))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert company details: %w", err)
	}
	return stored, nil
}

func collectPgDetails(rows pgx.Rows) ([]*models.CompanyDetails, error) {
	var result []*models.CompanyDetails
	for rows.Next() {
		details, err := scanPgDetails(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, details)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating company details: %w", err)
	}
	return result, nil
}

func scanPgDetails(row pgx.Row) (*models.CompanyDetails, error) {
	var d models.CompanyDetails
	var phone, email, website, notes, status sql.NullString
	if err := row.Scan(&d.SIREN, &phone, &email, &website, &notes, &status, &d.UpdatedAt); err != nil {
		return nil, err
	}
	applyNullable(&d, phone, email, website, notes, status)
	return &d, nil
}

func upsertArgs(d *models.CompanyDetails) []any {
	var status *string
	if d.Status != nil {
		s := string(*d.Status)
		status = &s
	}
	return []any{d.SIREN, d.Phone, d.Email, d.Website, d.InternalNotes, status}
}

func applyNullable(d *models.CompanyDetails, phone, email, website, notes, status sql.NullString) {
	d.Phone = nullStringPtr(phone)
	d.Email = nullStringPtr(email)
	d.Website = nullStringPtr(website)
	d.InternalNotes = nullStringPtr(notes)
	if status.Valid {
		s := models.Status(status.String)
		d.Status = &s
	}
}

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
