package proxy_test

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"tripadvisor_hotels/internal/adapters/proxy"
	"tripadvisor_hotels/internal/domain"
)

type countingProvider struct {
	mu    sync.Mutex
	calls []string
}

func (c *countingProvider) URL(session string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, session)
	return "http://" + session + "@proxy.test:8000", nil
}

type failingProvider struct{}

func (failingProvider) URL(string) (string, error) { return "", errors.New("no capacity") }

func TestPool_SameIdentitySameURL(t *testing.T) {
	prov := &countingProvider{}
	pool, err := proxy.NewPool(prov, 16, time.Minute)
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}

	a, err := pool.NewURL("city1")
	if err != nil {
		t.Fatalf("NewURL: %v", err)
	}
	b, _ := pool.NewURL("city1")
	if a != b {
		t.Fatalf("expected stable binding, got %q then %q", a, b)
	}
	if len(prov.calls) != 1 {
		t.Fatalf("provider called %d times, want 1", len(prov.calls))
	}
}

func TestPool_OneShotIdentitiesAreFresh(t *testing.T) {
	prov := &countingProvider{}
	pool, _ := proxy.NewPool(prov, 16, time.Minute)

	a, _ := pool.NewURL("")
	b, _ := pool.NewURL("")
	if a == b {
		t.Fatalf("one-shot identities should differ, both %q", a)
	}
	if len(prov.calls) != 2 || prov.calls[0] == "" || prov.calls[0] == prov.calls[1] {
		t.Fatalf("unexpected provider sessions: %v", prov.calls)
	}
}

func TestPool_RetiredIdentityNeverReissued(t *testing.T) {
	pool, _ := proxy.NewPool(&countingProvider{}, 16, time.Minute)
	if _, err := pool.NewURL("city7"); err != nil {
		t.Fatalf("NewURL: %v", err)
	}
	pool.Retire("city7")

	if _, err := pool.NewURL("city7"); !errors.Is(err, domain.ErrIdentityRetired) {
		t.Fatalf("expected ErrIdentityRetired, got %v", err)
	}
	if !pool.Retired("city7") {
		t.Fatalf("expected city7 to be retired")
	}
}

func TestPool_ProviderFailureIsExhaustion(t *testing.T) {
	pool, _ := proxy.NewPool(failingProvider{}, 16, time.Minute)
	if _, err := pool.NewURL("x"); !errors.Is(err, domain.ErrPoolExhausted) {
		t.Fatalf("expected ErrPoolExhausted, got %v", err)
	}
	if _, err := pool.NewURL(""); !errors.Is(err, domain.ErrPoolExhausted) {
		t.Fatalf("expected ErrPoolExhausted for one-shot, got %v", err)
	}
}

func TestPool_ConcurrentAccess(t *testing.T) {
	pool, _ := proxy.NewPool(&countingProvider{}, 16, time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := []string{"a", "b", ""}[i%3]
			if _, err := pool.NewURL(id); err != nil {
				t.Errorf("NewURL(%q): %v", id, err)
			}
			if i%8 == 0 {
				pool.Retire("never-used")
			}
		}(i)
	}
	wg.Wait()
}

func TestProviders(t *testing.T) {
	if u, _ := (proxy.Direct{}).URL("s"); u != "" {
		t.Fatalf("direct should not proxy, got %q", u)
	}

	u, err := proxy.Template{Pattern: "http://session-{session}:pw@proxy.test:8000"}.URL("abc")
	if err != nil || u != "http://session-abc:pw@proxy.test:8000" {
		t.Fatalf("template: %q %v", u, err)
	}
	if _, err := (proxy.Template{Pattern: "http://proxy.test"}).URL("abc"); err == nil {
		t.Fatalf("expected error for template without placeholder")
	}

	l := proxy.List{URLs: []string{"http://p1", "http://p2", "http://p3"}}
	first, _ := l.URL("slot-1")
	again, _ := l.URL("slot-1")
	if first != again || !strings.HasPrefix(first, "http://p") {
		t.Fatalf("list provider not stable: %q %q", first, again)
	}
	if _, err := (proxy.List{}).URL("x"); err == nil {
		t.Fatalf("expected error for empty list")
	}
}
