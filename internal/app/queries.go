package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tripadvisor_hotels/internal/domain"
)

type QueryService struct {
	repo     domain.HotelRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(r domain.HotelRepository, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{repo: r, cache: c, cacheTTL: ttl}
}

func (s *QueryService) GetHotel(ctx context.Context, key string) (domain.Hotel, error) {
	ck := hotelCacheKey(key)
	var h domain.Hotel
	if ok, _ := s.cache.Get(ctx, ck, &h); ok {
		return h, nil
	}
	h, err := s.repo.GetHotel(ctx, key)
	if err != nil {
		return domain.Hotel{}, err
	}
	_ = s.cache.Set(ctx, ck, h, int(s.cacheTTL.Seconds()))
	return h, nil
}

func (s *QueryService) ListHotels(ctx context.Context, q domain.HotelsQuery) (domain.HotelsPage, error) {
	ck := fmt.Sprintf("hotels:%s:%s:%d:%s", deref(q.City), deref(q.State), q.Limit, deref(q.Cursor))
	var out domain.HotelsPage
	if ok, _ := s.cache.Get(ctx, ck, &out); ok {
		return out, nil
	}

	hp, err := s.repo.ListHotels(ctx, q)
	if err != nil {
		return domain.HotelsPage{}, err
	}

	// copy slice to avoid aliasing the repo's backing array
	cp := copyHotelsPage(hp)

	// list pages are short-lived; keep oversized ones out of redis
	if b, _ := json.Marshal(cp); len(b) < 1_000_000 {
		_ = s.cache.Set(ctx, ck, cp, int(s.cacheTTL.Seconds()))
	}
	return cp, nil
}

func hotelCacheKey(key string) string { return "hotel:" + key }

func copyHotelsPage(in domain.HotelsPage) domain.HotelsPage {
	out := domain.HotelsPage{NextCursor: in.NextCursor}
	if n := len(in.Items); n > 0 {
		out.Items = make([]domain.Hotel, n)
		copy(out.Items, in.Items)
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
