package tripadvisor

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/antzucaro/matchr"
	"github.com/rs/zerolog/log"

	"tripadvisor_hotels/internal/domain"
)

//go:embed search_query.graphql
var searchQuery string

var (
	searchTypes   = []string{"LOCATION", "QUERY_SUGGESTION", "LIST_RESULT"}
	locationTypes = []string{
		"GEO", "AIRPORT", "ACCOMMODATION", "ATTRACTION", "ATTRACTION_PRODUCT",
		"EATERY", "NEIGHBORHOOD", "AIRLINE", "SHOPPING", "UNIVERSITY",
		"GENERAL_HOSPITAL", "PORT", "FERRY", "CORPORATION", "VACATION_RENTAL",
		"SHIP", "CRUISE_LINE", "CAR_RENTAL_OFFICE",
	}
)

// Doer is an authenticated request executor; *SessionClient implements it.
type Doer interface {
	Do(ctx context.Context, r Request, out any) error
}

type SearchRequest struct {
	Query             string        `json:"query"`
	Limit             int           `json:"limit"`
	Scope             string        `json:"scope"`
	Locale            string        `json:"locale"`
	ScopeGeoID        int           `json:"scopeGeoId"`
	SearchCenter      *string       `json:"searchCenter"`
	Types             []string      `json:"types"`
	LocationTypes     []string      `json:"locationTypes"`
	UserID            *string       `json:"userId"`
	Context           SearchContext `json:"context"`
	ArticleCategories []string      `json:"articleCategories"`
	EnabledFeatures   []string      `json:"enabledFeatures"`
}

type SearchContext struct {
	TypeaheadID int64  `json:"typeaheadId"` // request timestamp, ms
	UIOrigin    string `json:"uiOrigin"`
}

type batchedQuery struct {
	Query     string                   `json:"query"`
	Variables map[string]SearchRequest `json:"variables"`
}

type typeaheadResponse []struct {
	Data struct {
		Typeahead struct {
			Results []map[string]any `json:"results"`
		} `json:"Typeahead_autocomplete"`
	} `json:"data"`
}

// LocationResolver maps a free-text city query to a location id through the
// typeahead search.
type LocationResolver struct {
	query string
	now   func() time.Time
}

func NewLocationResolver() *LocationResolver {
	return &LocationResolver{query: searchQuery, now: time.Now}
}

func (r *LocationResolver) NewSearchRequest(query string) SearchRequest {
	return SearchRequest{
		Query:         query,
		Limit:         1,
		Scope:         "WORLDWIDE",
		Locale:        "en-US",
		ScopeGeoID:    1,
		Types:         searchTypes,
		LocationTypes: locationTypes,
		Context: SearchContext{
			TypeaheadID: r.now().UnixMilli(),
			UIOrigin:    "SINGLE_SEARCH_HERO",
		},
		ArticleCategories: []string{},
		EnabledFeatures:   []string{"typeahead-q"},
	}
}

func (r *LocationResolver) Resolve(ctx context.Context, query string, client Doer) (string, error) {
	payload := []batchedQuery{{
		Query:     r.query,
		Variables: map[string]SearchRequest{"request": r.NewSearchRequest(query)},
	}}

	var raw json.RawMessage
	if err := client.Do(ctx, Request{URL: "/batched", Method: "POST", Payload: payload, Endpoint: "search"}, &raw); err != nil {
		return "", err
	}

	var resp typeaheadResponse
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&resp); err != nil {
		log.Debug().Err(err).Str("query", query).Msg("search response did not match")
		return "", &domain.NoLocationFoundError{Query: query}
	}
	if len(resp) == 0 || len(resp[0].Data.Typeahead.Results) == 0 {
		log.Debug().Str("query", query).Msg("search returned no results")
		return "", &domain.NoLocationFoundError{Query: query}
	}

	first := resp[0].Data.Typeahead.Results[0]
	id := locationID(first["locationId"])
	if id == "" {
		return "", &domain.NoLocationFoundError{Query: query}
	}

	if name := localizedName(first); name != "" {
		log.Debug().
			Str("query", query).
			Str("match", name).
			Float64("similarity", matchr.JaroWinkler(strings.ToLower(query), strings.ToLower(name), false)).
			Str("location_id", id).
			Msg("location resolved")
	}
	return id, nil
}

func locationID(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

func localizedName(result map[string]any) string {
	details, ok := result["details"].(map[string]any)
	if !ok {
		return ""
	}
	name, _ := details["localizedName"].(string)
	return name
}
