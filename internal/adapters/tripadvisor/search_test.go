package tripadvisor_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"tripadvisor_hotels/internal/adapters/tripadvisor"
	"tripadvisor_hotels/internal/domain"
)

func TestLocationResolver_Resolve(t *testing.T) {
	site := newFakeSite(t)
	site.graphqlBody = `[{"data":{"Typeahead_autocomplete":{"results":[
		{"__typename":"Typeahead_LocationItem","locationId":50226,"details":{"localizedName":"Columbus"}},
		{"__typename":"Typeahead_LocationItem","locationId":1}
	]}}}]`
	c := newClient(t, site, newRecordingPool(t), "")

	id, err := tripadvisor.NewLocationResolver().Resolve(context.Background(), "Columbus usa", c)
	require.NoError(t, err)
	require.Equal(t, "50226", id)

	var sent []struct {
		Query     string `json:"query"`
		Variables struct {
			Request tripadvisor.SearchRequest `json:"request"`
		} `json:"variables"`
	}
	require.NoError(t, json.Unmarshal([]byte(site.bodies[0]), &sent))
	require.Len(t, sent, 1)
	req := sent[0].Variables.Request
	require.Contains(t, sent[0].Query, "Typeahead_autocomplete")
	require.Equal(t, "Columbus usa", req.Query)
	require.Equal(t, 1, req.Limit)
	require.Equal(t, "WORLDWIDE", req.Scope)
	require.Len(t, req.LocationTypes, 18)
	require.Equal(t, "GEO", req.LocationTypes[0])
	require.Equal(t, "CAR_RENTAL_OFFICE", req.LocationTypes[17])
	require.Equal(t, "SINGLE_SEARCH_HERO", req.Context.UIOrigin)
	require.NotZero(t, req.Context.TypeaheadID)
}

func TestLocationResolver_StringID(t *testing.T) {
	site := newFakeSite(t)
	site.graphqlBody = `[{"data":{"Typeahead_autocomplete":{"results":[{"locationId":"g12345"}]}}}]`
	c := newClient(t, site, newRecordingPool(t), "")

	id, err := tripadvisor.NewLocationResolver().Resolve(context.Background(), "Columbus", c)
	require.NoError(t, err)
	require.Equal(t, "g12345", id)
}

func TestLocationResolver_NoLocation(t *testing.T) {
	bodies := map[string]string{
		"empty batch":        `[]`,
		"no results":         `[{"data":{"Typeahead_autocomplete":{"results":[]}}}]`,
		"null typeahead":     `[{"data":{"Typeahead_autocomplete":null}}]`,
		"missing data":       `[{"errors":[{"message":"boom"}]}]`,
		"object not array":   `{"data":{}}`,
		"result without id":  `[{"data":{"Typeahead_autocomplete":{"results":[{"text":"columbus"}]}}}]`,
		"results wrong type": `[{"data":{"Typeahead_autocomplete":{"results":"nope"}}}]`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			site := newFakeSite(t)
			site.graphqlBody = body
			c := newClient(t, site, newRecordingPool(t), "")

			_, err := tripadvisor.NewLocationResolver().Resolve(context.Background(), "Nowhere usa", c)
			var nf *domain.NoLocationFoundError
			require.ErrorAs(t, err, &nf)
			require.Equal(t, "Nowhere usa", nf.Query)
		})
	}
}
