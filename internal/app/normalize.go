package app

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"tripadvisor_hotels/internal/domain"
)

/********** alias registry (single source of truth) **********/

var hotelAliases = map[string][]string{
	"location_id": {"location_id", "locationId"},
	"name":        {"name"},
	"type":        {"subcategory_type_label", "subcategory_type"},
	"ranking":     {"ranking"},
	"price":       {"price"},
	"description": {"description"},
	"website":     {"website"},
	"phone":       {"phone"},
	"email":       {"email"},
	"address":     {"address", "address_obj.address_string"},
	"city":        {"address_obj.city"},
	"state":       {"address_obj.state"},
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns the string (or number rendered as string) at path, or "".
func lookupStr(m map[string]any, path string) string {
	switch v := lookupAny(m, path).(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

// firstNonEmptyAlias: first non-empty string for a named alias set.
func firstNonEmptyAlias(m map[string]any, aliases map[string][]string, key string) string {
	for _, p := range aliases[key] {
		if s := lookupStr(m, p); s != "" {
			return s
		}
	}
	return ""
}

// getFloatFlexible: number from several paths (json.Number/float64/string like "4,5").
func getFloatFlexible(m map[string]any, paths ...string) *float64 {
	for _, k := range paths {
		var s string
		switch v := lookupAny(m, k).(type) {
		case float64:
			f := v
			return &f
		case json.Number:
			s = v.String()
		case string:
			s = strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
		default:
			continue
		}
		if s == "" {
			continue
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return &f
		}
	}
	return nil
}

/********** hotel normalizer **********/

// NormalizeHotel flattens one listing record into the stored shape. Missing
// fields stay empty; the same input always gives the same output.
func NormalizeHotel(raw domain.RawHotel) domain.Hotel {
	h := domain.Hotel{
		LocationID:  firstNonEmptyAlias(raw, hotelAliases, "location_id"),
		Name:        firstNonEmptyAlias(raw, hotelAliases, "name"),
		Latitude:    getFloatFlexible(raw, "latitude"),
		Longitude:   getFloatFlexible(raw, "longitude"),
		Type:        firstNonEmptyAlias(raw, hotelAliases, "type"),
		Ranking:     firstNonEmptyAlias(raw, hotelAliases, "ranking"),
		PriceRange:  firstNonEmptyAlias(raw, hotelAliases, "price"),
		Stars:       getFloatFlexible(raw, "hotel_class"),
		Description: firstNonEmptyAlias(raw, hotelAliases, "description"),
		Website:     firstNonEmptyAlias(raw, hotelAliases, "website"),
		Phone:       firstNonEmptyAlias(raw, hotelAliases, "phone"),
		Email:       firstNonEmptyAlias(raw, hotelAliases, "email"),
		Address:     firstNonEmptyAlias(raw, hotelAliases, "address"),
		City:        firstNonEmptyAlias(raw, hotelAliases, "city"),
		State:       firstNonEmptyAlias(raw, hotelAliases, "state"),
	}
	h.Key = hotelKey(h)

	// map keys marshal sorted, so this is stable too
	rawJSON, err := json.Marshal(raw)
	if err != nil {
		log.Error().Err(err).
			Str("context", "NormalizeHotel").
			Msg("failed to marshal hotel to JSON")
	}
	h.RawJSON = rawJSON
	return h
}

// hotelKey prefers the site's own id; otherwise a stable hash of the fields
// that identify a hotel on the ground.
func hotelKey(h domain.Hotel) string {
	if h.LocationID != "" {
		return h.LocationID
	}
	sig := strings.Join([]string{h.Name, h.Address, h.City, h.State}, "|")
	sum := sha1.Sum([]byte(strings.ToLower(sig)))
	return hex.EncodeToString(sum[:])
}
