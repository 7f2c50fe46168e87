// Package proxy hands out proxy endpoints per logical identity.
package proxy

import (
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	random "github.com/mazen160/go-random"

	"tripadvisor_hotels/internal/domain"
)

// Provider turns a proxy session id into a proxy URL. An empty URL means
// "connect directly".
type Provider interface {
	URL(session string) (string, error)
}

// Pool binds identities to proxy URLs for a TTL and remembers retired
// identities. Safe for concurrent use.
type Pool struct {
	provider Provider
	bindings *lru.LRU[string, string]

	mu      sync.Mutex
	retired map[string]struct{}
}

func NewPool(p Provider, size int, ttl time.Duration) (*Pool, error) {
	if p == nil {
		return nil, errors.New("proxy provider is required")
	}
	if size <= 0 {
		size = 1024
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Pool{
		provider: p,
		bindings: lru.NewLRU[string, string](size, nil, ttl),
		retired:  make(map[string]struct{}),
	}, nil
}

// NewURL returns the proxy URL bound to identity. An empty identity gets a
// fresh one-shot session id on every call.
func (p *Pool) NewURL(identity string) (string, error) {
	if identity == "" {
		id, err := oneShotID()
		if err != nil {
			return "", fmt.Errorf("%w: one-shot id: %v", domain.ErrPoolExhausted, err)
		}
		return p.issue(id)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, gone := p.retired[identity]; gone {
		return "", fmt.Errorf("%w: %s", domain.ErrIdentityRetired, identity)
	}
	if u, ok := p.bindings.Get(identity); ok {
		return u, nil
	}
	u, err := p.issue(identity)
	if err != nil {
		return "", err
	}
	p.bindings.Add(identity, u)
	return u, nil
}

// Retire drops identity for good.
func (p *Pool) Retire(identity string) {
	if identity == "" {
		return
	}
	p.mu.Lock()
	p.retired[identity] = struct{}{}
	p.mu.Unlock()
	p.bindings.Remove(identity)
}

func (p *Pool) Retired(identity string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.retired[identity]
	return ok
}

func (p *Pool) issue(session string) (string, error) {
	u, err := p.provider.URL(session)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrPoolExhausted, err)
	}
	return u, nil
}

func oneShotID() (string, error) {
	return random.String(12)
}
