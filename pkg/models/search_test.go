package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchParams_Values(t *testing.T) {
	tests := []struct {
		name   string
		params SearchParams
		want   string
	}{
		{
			name:   "query only with defaults",
			params: SearchParams{Query: "boulangerie"},
			want:   "page=1&per_page=10&q=boulangerie",
		},
		{
			name:   "all filters",
			params: SearchParams{Query: "boulangerie", PostalCode: "75011", NAFCode: "10.71C", Page: 2, PerPage: 20},
			want:   "activite_principale=10.71C&code_postal=75011&page=2&per_page=20&q=boulangerie",
		},
		{
			name:   "blank filters omitted",
			params: SearchParams{Query: "  ", PostalCode: "69002", Page: -1, PerPage: 0},
			want:   "code_postal=69002&page=1&per_page=10",
		},
		{
			name:   "per_page capped",
			params: SearchParams{NAFCode: "62.01Z", PerPage: 100},
			want:   "activite_principale=62.01Z&page=1&per_page=25",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.params.Values().Encode())
		})
	}
}

func TestSearchParams_HasFilter(t *testing.T) {
	assert.False(t, SearchParams{Page: 1, PerPage: 10}.HasFilter())
	assert.False(t, SearchParams{Query: "   "}.HasFilter())
	assert.True(t, SearchParams{PostalCode: "75001"}.HasFilter())
	assert.True(t, SearchParams{NAFCode: "10.71C"}.HasFilter())
}

func TestSearchResponse_DecodeUpstreamPayload(t *testing.T) {
	body := `{
		"results": [{
			"siren": "111111111",
			"nom_complet": "BOULANGERIE DU COIN",
			"dirigeants": [{"nom": "MARTIN", "prenoms": "Claire", "qualite": "Gérant"}],
			"siege": {
				"adresse": "1 RUE DE LA PAIX 75002 PARIS",
				"code_postal": 75002,
				"commune": "PARIS",
				"activite_principale": "10.71C",
				"tranche_effectif_salarie_etablissement_libelle": null,
				"latitude": "48.8686"
			},
			"nombre_etablissements": 1
		}],
		"total_results": 1,
		"page": 1,
		"per_page": 10,
		"total_pages": 1
	}`

	var resp SearchResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	require.Len(t, resp.Results, 1)

	c := resp.Results[0]
	assert.Equal(t, "111111111", c.SIREN)
	assert.Equal(t, "BOULANGERIE DU COIN", c.Name)
	assert.Equal(t, "75002", string(c.Headquarters.PostalCode))
	assert.Equal(t, "", string(c.Headquarters.HeadcountLabel))
	require.Len(t, c.Directors, 1)
	assert.Equal(t, "MARTIN", c.Directors[0].LastName)
	assert.Equal(t, "Claire", c.Directors[0].FirstNames)
	assert.Equal(t, 1, resp.TotalPages)
}

func TestEnrichedCompany_JSONOmitsMissingDetails(t *testing.T) {
	ec := EnrichedCompany{Company: Company{SIREN: "222222222", Name: "ACME"}}

	out, err := json.Marshal(ec)
	require.NoError(t, err)
	assert.NotContains(t, string(out), `"details"`)

	ec.Details = &CompanyDetails{SIREN: "222222222", Phone: strPtr("0102030405")}
	out, err = json.Marshal(ec)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"details":{"siren":"222222222","phone":"0102030405"`)
}
