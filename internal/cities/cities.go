// Package cities loads the list of cities to harvest.
package cities

import (
	"fmt"
	"os"
	"strings"

	"github.com/titanous/json5"
)

// Load reads a file shaped like {"United States": ["Columbus", ...]} (JSON5
// accepted), takes the cities of country, drops duplicates keeping the first
// occurrence and appends suffix to each ("Columbus" + " usa").
func Load(path, country, suffix string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cities: %w", err)
	}
	return Parse(b, country, suffix)
}

func Parse(b []byte, country, suffix string) ([]string, error) {
	var byCountry map[string][]string
	if err := json5.Unmarshal(b, &byCountry); err != nil {
		return nil, fmt.Errorf("parse cities: %w", err)
	}
	list, ok := byCountry[country]
	if !ok {
		return nil, fmt.Errorf("no cities for %q", country)
	}

	seen := make(map[string]struct{}, len(list))
	out := make([]string, 0, len(list))
	for _, c := range list {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c+suffix)
	}
	return out, nil
}

// Split is the inline alternative to a file: "Columbus, Dayton".
func Split(list, suffix string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, c := range strings.Split(list, ",") {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c+suffix)
	}
	return out
}
