package models

import (
	"fmt"
	"strings"
	"time"
)

// Status is the follow-up state a user assigns to a company. Stored values
// are the French identifiers used since the first version of the table.
type Status string

const (
	StatusPending    Status = "a_faire"
	StatusInProgress Status = "en_cours"
	StatusDone       Status = "termine"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusPending, StatusInProgress, StatusDone}

var statusLabels = map[Status]string{
	StatusPending:    "À faire",
	StatusInProgress: "En cours",
	StatusDone:       "Terminé",
}

// Label returns the human-readable label, or the raw value for unknown statuses.
func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// IsValid reports whether s is one of the known statuses.
func (s Status) IsValid() bool {
	_, ok := statusLabels[s]
	return ok
}

// ParseStatus accepts the stored identifier ("en_cours") or the English
// alias ("in_progress"), case-insensitively.
func ParseStatus(value string) (Status, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	switch v {
	case string(StatusPending), "pending":
		return StatusPending, nil
	case string(StatusInProgress), "in_progress":
		return StatusInProgress, nil
	case string(StatusDone), "done":
		return StatusDone, nil
	}
	return "", fmt.Errorf("unknown status %q", value)
}

// StatusFilter selects annotated companies by status. The zero value and
// StatusFilterAll match everything.
type StatusFilter string

const StatusFilterAll StatusFilter = "all"

// ParseStatusFilter parses "all" (or empty) or any value ParseStatus accepts.
func ParseStatusFilter(value string) (StatusFilter, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" || v == string(StatusFilterAll) {
		return StatusFilterAll, nil
	}
	status, err := ParseStatus(v)
	if err != nil {
		return "", err
	}
	return StatusFilter(status), nil
}

// Matches is an exact-match predicate; "all" matches any details, including
// details without a status.
func (f StatusFilter) Matches(d *CompanyDetails) bool {
	if f == "" || f == StatusFilterAll {
		return true
	}
	return d != nil && d.Status != nil && *d.Status == Status(f)
}

// CompanyDetails is the user annotation stored for one SIREN in the
// company_details table. Nil fields are NULL ("not annotated").
type CompanyDetails struct {
	SIREN         string    `json:"siren"`
	Phone         *string   `json:"phone"`
	Email         *string   `json:"email"`
	Website       *string   `json:"website"`
	InternalNotes *string   `json:"internal_notes"`
	Status        *Status   `json:"status"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Normalize trims every editable field and turns empty values into nil, so
// that an upsert writes explicit NULLs for anything not supplied.
func (d *CompanyDetails) Normalize() {
	d.SIREN = strings.TrimSpace(d.SIREN)
	d.Phone = normalizeOptional(d.Phone)
	d.Email = normalizeOptional(d.Email)
	d.Website = normalizeOptional(d.Website)
	d.InternalNotes = normalizeOptional(d.InternalNotes)
	if d.Status != nil && strings.TrimSpace(string(*d.Status)) == "" {
		d.Status = nil
	}
}

func normalizeOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
