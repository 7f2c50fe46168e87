package tripadvisor

import (
	"bytes"
	"encoding/json"
	"net/http"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	pageModelPrefix    = "define('page-model', [], function() { return "
	pageModelSuffix    = "; });"
	securityTokenField = "JS_SECURITY_TOKEN"
)

// sessionCookieNames are the only cookies the API checks.
var sessionCookieNames = []string{"TASession", "TAUD"}

// Tokens is what a bootstrap page yields. An empty SecurityToken means none was found.
type Tokens struct {
	SecurityToken string
	Cookies       string
}

// ExtractTokens pulls the security token out of the inline page-model script
// and keeps the session cookies from header, in header order.
func ExtractTokens(body []byte, header http.Header) Tokens {
	return Tokens{
		SecurityToken: securityToken(body),
		Cookies:       sessionCookies(header),
	}
}

func securityToken(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	token := ""
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		_, model, found := strings.Cut(text, pageModelPrefix)
		if !found {
			return true
		}
		if i := strings.LastIndex(model, pageModelSuffix); i >= 0 {
			model = model[:i]
		}

		var fields map[string]any
		if err := json.Unmarshal([]byte(strings.TrimSpace(model)), &fields); err != nil {
			return true
		}
		if v, ok := fields[securityTokenField].(string); ok && v != "" {
			token = v
			return false
		}
		return true
	})
	return token
}

func sessionCookies(header http.Header) string {
	var pairs []string
	for _, line := range header.Values("Set-Cookie") {
		pair, _, _ := strings.Cut(line, ";")
		pair = strings.TrimSpace(pair)
		name, _, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		if slices.Contains(sessionCookieNames, strings.TrimSpace(name)) {
			pairs = append(pairs, pair)
		}
	}
	return strings.Join(pairs, "; ")
}
