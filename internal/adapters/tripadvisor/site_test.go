package tripadvisor_test

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"tripadvisor_hotels/internal/adapters/proxy"
	"tripadvisor_hotels/internal/adapters/tripadvisor"
)

const bootstrapPath = "/Hotels-g28953-New_York-Hotels.html"

func pageModelHTML(token string) string {
	return `<html><head>
<script>window.foo = 1;</script>
<script>define('page-model', [], function() { return {"JS_SECURITY_TOKEN":"` + token + `","locale":"en-US"}; });</script>
</head><body><h1>Hotels</h1></body></html>`
}

// fakeSite serves the bootstrap page, the GraphQL endpoint and the listing
// endpoint. graphql decides the status for the n-th GraphQL call (1-based).
type fakeSite struct {
	t  *testing.T
	ts *httptest.Server

	mu         sync.Mutex
	bootstraps int
	graphql    int
	tokens     []string // x-requested-by of every GraphQL call
	cookies    []string
	bodies     []string

	graphqlStatus func(n int) int
	graphqlBody   string
	listing       map[string]string // path+query -> body
	listingKeys   []string          // X-TripAdvisor-API-Key of every listing call
}

func newFakeSite(t *testing.T) *fakeSite {
	t.Helper()
	s := &fakeSite{
		t:             t,
		graphqlStatus: func(int) int { return http.StatusOK },
		graphqlBody:   `[]`,
		listing:       map[string]string{},
	}
	mux := http.NewServeMux()
	mux.HandleFunc(bootstrapPath, s.bootstrap)
	mux.HandleFunc("/data/graphql/batched", s.batched)
	mux.HandleFunc("/api/internal/1.14/location/", s.hotels)
	s.ts = httptest.NewServer(mux)
	t.Cleanup(s.ts.Close)
	return s
}

func (s *fakeSite) bootstrap(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.bootstraps++
	n := s.bootstraps
	s.mu.Unlock()

	w.Header().Add("Set-Cookie", fmt.Sprintf("TASession=sess-%d; Path=/; HttpOnly", n))
	w.Header().Add("Set-Cookie", "TART=ignored; Path=/")
	w.Header().Add("Set-Cookie", fmt.Sprintf("TAUD=aud-%d; Path=/", n))
	w.Header().Set("Content-Type", "text/html")
	_, _ = io.WriteString(w, pageModelHTML(fmt.Sprintf("tok-%d", n)))
}

func (s *fakeSite) batched(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	s.graphql++
	n := s.graphql
	s.tokens = append(s.tokens, r.Header.Get("x-requested-by"))
	s.cookies = append(s.cookies, r.Header.Get("Cookie"))
	s.bodies = append(s.bodies, string(body))
	status := s.graphqlStatus(n)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if status == http.StatusOK {
		_, _ = io.WriteString(w, s.graphqlBody)
	}
}

func (s *fakeSite) hotels(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.listingKeys = append(s.listingKeys, r.Header.Get("X-TripAdvisor-API-Key"))
	body, ok := s.listing[r.URL.RequestURI()]
	s.mu.Unlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, body)
}

func (s *fakeSite) counts() (bootstraps, graphql int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bootstraps, s.graphql
}

func (s *fakeSite) config() tripadvisor.Config {
	return tripadvisor.Config{
		SiteBase:      s.ts.URL,
		BootstrapPath: bootstrapPath,
		GraphQLBase:   s.ts.URL + "/data/graphql",
		ListingBase:   s.ts.URL + "/api/internal/1.14/location",
		APIKey:        "test-key",
		RPS:           1000,
		RetryDelay:    time.Millisecond,
		Timeout:       2 * time.Second,
		Transport:     http.DefaultTransport,
	}
}

// recordingPool wraps a direct pool and remembers what the client asked for.
type recordingPool struct {
	inner *proxy.Pool

	mu      sync.Mutex
	asked   []string
	retired []string
}

func newRecordingPool(t *testing.T) *recordingPool {
	t.Helper()
	p, err := proxy.NewPool(proxy.Direct{}, 16, time.Minute)
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	return &recordingPool{inner: p}
}

func (p *recordingPool) NewURL(identity string) (string, error) {
	p.mu.Lock()
	p.asked = append(p.asked, identity)
	p.mu.Unlock()
	return p.inner.NewURL(identity)
}

func (p *recordingPool) Retire(identity string) {
	p.mu.Lock()
	p.retired = append(p.retired, identity)
	p.mu.Unlock()
	p.inner.Retire(identity)
}
