package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/annuaire-entreprises/annuaire-engine/pkg/models"
)

// sqliteTimeFormat matches strftime('%Y-%m-%dT%H:%M:%fZ') used by the schema.
const sqliteTimeFormat = "2006-01-02T15:04:05.000Z"

type sqliteCompanyDetailsRepository struct {
	db *sql.DB
}

// NewSQLiteCompanyDetailsRepository creates a CompanyDetailsRepository over a
// SQLite database opened with database.OpenSQLite.
func NewSQLiteCompanyDetailsRepository(db *sql.DB) CompanyDetailsRepository {
	return &sqliteCompanyDetailsRepository{db: db}
}

var _ CompanyDetailsRepository = (*sqliteCompanyDetailsRepository)(nil)

func (r *sqliteCompanyDetailsRepository) GetBySIRENs(ctx context.Context, sirens []string) ([]*models.CompanyDetails, error) {
	if len(sirens) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(sirens)), ",")
	args := make([]any, len(sirens))
	for i, s := range sirens {
		args[i] = s
	}

	query := `
		SELECT ` + companyDetailsColumns + `
		FROM company_details
		WHERE siren IN (` + placeholders + `)`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query company details: %w", err)
	}
	defer rows.Close()

	return collectSQLiteDetails(rows)
}

func (r *sqliteCompanyDetailsRepository) GetBySIREN(ctx context.Context, siren string) (*models.CompanyDetails, error) {
	query := `
		SELECT ` + companyDetailsColumns + `
		FROM company_details
		WHERE siren = ?`

	details, err := scanSQLiteDetails(r.db.QueryRowContext(ctx, query, siren))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get company details: %w", err)
	}
	return details, nil
}

func (r *sqliteCompanyDetailsRepository) ListWithStatus(ctx context.Context) ([]*models.CompanyDetails, error) {
	query := `
		SELECT ` + companyDetailsColumns + `
		FROM company_details
		WHERE status IS NOT NULL
		ORDER BY updated_at DESC, siren`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list annotated companies: %w", err)
	}
	defer rows.Close()

	return collectSQLiteDetails(rows)
}

func (r *sqliteCompanyDetailsRepository) Upsert(ctx context.Context, details *models.CompanyDetails) (*models.CompanyDetails, error) {
	query := `
		INSERT INTO company_details (siren, phone, email, website, internal_notes, status, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		ON CONFLICT (siren) DO UPDATE SET
			phone = excluded.phone,
			email = excluded.email,
			website = excluded.website,
			internal_notes = excluded.internal_notes,
			status = excluded.status,
			updated_at = excluded.updated_at
		RETURNING ` + companyDetailsColumns

	stored, err := scanSQLiteDetails(r.db.QueryRowContext(ctx, query, upsertArgs(details)...))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert company details: %w", err)
	}
	return stored, nil
}

type sqlScanner interface {
	Scan(dest ...any) error
}

func collectSQLiteDetails(rows *sql.Rows) ([]*models.CompanyDetails, error) {
	var result []*models.CompanyDetails
	for rows.Next() {
		details, err := scanSQLiteDetails(rows)
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

func scanSQLiteDetails(row sqlScanner) (*models.CompanyDetails, error) {
	var d models.CompanyDetails
	var phone, email, website, notes, status sql.NullString
	var updatedAt string
	if err := row.Scan(&d.SIREN, &phone, &email, &website, &notes, &status, &updatedAt); err != nil {
		return nil, err
	}
	applyNullable(&d, phone, email, website, notes, status)

	ts, err := time.Parse(sqliteTimeFormat, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid updated_at %q for siren %s: %w", updatedAt, d.SIREN, err)
	}
	d.UpdatedAt = ts
	return &d, nil
}
