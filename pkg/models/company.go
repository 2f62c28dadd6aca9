package models

import "github.com/annuaire-entreprises/annuaire-engine/pkg/jsonutil"

// Company is a company record as returned by the registry search API.
// It is a read-only snapshot and is never persisted.
type Company struct {
	SIREN        string       `json:"siren"`
	Name         string       `json:"nom_complet"`
	Directors    []Director   `json:"dirigeants,omitempty"`
	Headquarters Headquarters `json:"siege"`
}

// Headquarters is the registered head office ("siège") of a company.
type Headquarters struct {
	Address             jsonutil.String `json:"adresse"`
	PostalCode          jsonutil.String `json:"code_postal"`
	City                jsonutil.String `json:"commune"`
	PrimaryActivityCode jsonutil.String `json:"activite_principale"`
	HeadcountLabel      jsonutil.String `json:"tranche_effectif_salarie_etablissement_libelle"`
}

// Director is a company officer ("dirigeant"). Legal-entity directors carry
// a denomination instead of a person name.
type Director struct {
	LastName     string `json:"nom,omitempty"`
	FirstNames   string `json:"prenoms,omitempty"`
	Denomination string `json:"denomination,omitempty"`
	Role         string `json:"qualite,omitempty"`
}

// EnrichedCompany is a Company with its stored annotation attached, if any.
// Request-scoped; never persisted. When Details is set, Details.SIREN equals SIREN.
type EnrichedCompany struct {
	Company
	Details *CompanyDetails `json:"details,omitempty"`
}
