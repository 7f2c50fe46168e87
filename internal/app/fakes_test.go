package app_test

import (
	"context"
	"encoding/json"
	"sync"

	"tripadvisor_hotels/internal/domain"
)

// ---- repository / cache ----

type fakeRepo struct {
	hotel domain.Hotel
	page  domain.HotelsPage
	gets  int
	lists int
}

func (f *fakeRepo) Insert(ctx context.Context, h domain.Hotel) error { return nil }
func (f *fakeRepo) GetHotel(ctx context.Context, key string) (domain.Hotel, error) {
	f.gets++
	if f.hotel.Key != key {
		return domain.Hotel{}, domain.ErrNotFound
	}
	return f.hotel, nil
}
func (f *fakeRepo) ListHotels(ctx context.Context, q domain.HotelsQuery) (domain.HotelsPage, error) {
	f.lists++
	return f.page, nil
}

// fakeCache stores JSON like the redis adapter does, so reads decode into any dst.
type fakeCache struct {
	mu    sync.Mutex
	store  map[string][]byte
	dels   []string
	setErr error
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.setErr != nil {
		return c.setErr
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	c.dels = append(c.dels, key)
	return nil
}

func (c *fakeCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.store[key]
	return ok
}

// ---- sink ----

type fakeSink struct {
	mu     sync.Mutex
	keys   []string
	hotels []domain.Hotel
	failOn map[string]error
}

func (s *fakeSink) Insert(ctx context.Context, h domain.Hotel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failOn[h.Key]; err != nil {
		return err
	}
	s.keys = append(s.keys, h.Key)
	s.hotels = append(s.hotels, h)
	return nil
}

func (s *fakeSink) stored() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.keys...)
}

// ---- source ----

type listing struct {
	pages []domain.Page
	err   error // returned once pages are exhausted
}

type fakeSource struct {
	mu         sync.Mutex
	identities []string
	resolved   []string

	openErr    map[int]error // by Open call number, 1-based
	locations  map[string]string
	resolveErr map[string]error
	listings   map[string]listing
	opens      int
}

func (f *fakeSource) Open(ctx context.Context, identity string) (domain.SourceSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens++
	f.identities = append(f.identities, identity)
	if err := f.openErr[f.opens]; err != nil {
		return nil, err
	}
	return &fakeSession{src: f}, nil
}

type fakeSession struct{ src *fakeSource }

func (s *fakeSession) ResolveLocation(ctx context.Context, query string) (string, error) {
	s.src.mu.Lock()
	defer s.src.mu.Unlock()
	s.src.resolved = append(s.src.resolved, query)
	if err := s.src.resolveErr[query]; err != nil {
		return "", err
	}
	id, ok := s.src.locations[query]
	if !ok {
		return "", &domain.NoLocationFoundError{Query: query}
	}
	return id, nil
}

func (s *fakeSession) Hotels(locationID string) domain.PageIterator {
	s.src.mu.Lock()
	defer s.src.mu.Unlock()
	return &fakeIter{l: s.src.listings[locationID]}
}

type fakeIter struct {
	l   listing
	idx int
	cur domain.Page
	err error
}

func (it *fakeIter) Next(ctx context.Context) bool {
	if it.idx < len(it.l.pages) {
		it.cur = it.l.pages[it.idx]
		it.idx++
		return true
	}
	it.err = it.l.err
	return false
}

func (it *fakeIter) Page() domain.Page { return it.cur }
func (it *fakeIter) Err() error        { return it.err }

func rawHotel(id, name string) domain.RawHotel {
	return domain.RawHotel{"location_id": id, "name": name}
}

func page(items ...domain.RawHotel) domain.Page { return domain.Page{Items: items} }

func ptr[T any](v T) *T { return &v }
