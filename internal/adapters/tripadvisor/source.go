package tripadvisor

import (
	"context"

	"tripadvisor_hotels/internal/domain"
)

// Source opens one SessionClient per session and wires the resolver and the
// paginator onto it.
type Source struct {
	cfg      Config
	pool     IdentityPool
	resolver *LocationResolver
}

func NewSource(cfg Config, pool IdentityPool) *Source {
	return &Source{cfg: cfg, pool: pool, resolver: NewLocationResolver()}
}

func (s *Source) Open(ctx context.Context, identity string) (domain.SourceSession, error) {
	c, err := NewSessionClient(s.cfg, s.pool, identity)
	if err != nil {
		return nil, err
	}
	if err := c.Initialize(ctx); err != nil {
		return nil, err
	}
	return &sourceSession{client: c, src: s}, nil
}

type sourceSession struct {
	client *SessionClient
	src    *Source
}

func (s *sourceSession) ResolveLocation(ctx context.Context, query string) (string, error) {
	return s.src.resolver.Resolve(ctx, query, s.client)
}

func (s *sourceSession) Hotels(locationID string) domain.PageIterator {
	return NewHotelPaginator(s.client, s.src.cfg.ListingBase, locationID, s.src.cfg.APIKey)
}
