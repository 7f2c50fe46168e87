package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"tripadvisor_hotels/internal/adapters/observability"
	"tripadvisor_hotels/internal/domain"
)

type HarvestOptions struct {
	BindIdentity bool          // one proxy identity per city instead of one-shot identities
	SinkWorkers  int           // concurrent inserts per page; 1 keeps received order
	LocationTTL  time.Duration // location-id cache lifetime; 0 disables writes
}

// Summary is what a run did, for the final log line.
type Summary struct {
	Cities     int
	Succeeded  int
	Failed     int
	Pages      int
	Records    int
	SinkErrors int
}

type CityResult struct {
	City       string
	LocationID string
	Pages      int
	Records    int
	SinkErrors int
}

// CityError tags a per-city failure with the stage it happened in.
type CityError struct {
	City  string
	Stage string // session | resolve | paginate
	Err   error
}

func (e *CityError) Error() string {
	return fmt.Sprintf("city %q failed at %s: %v", e.City, e.Stage, e.Err)
}

func (e *CityError) Unwrap() error { return e.Err }

type HarvestService struct {
	source domain.HotelSource
	sink   domain.HotelSink
	cache  domain.Cache
	opts   HarvestOptions
}

func NewHarvestService(src domain.HotelSource, sink domain.HotelSink, cache domain.Cache, opts HarvestOptions) *HarvestService {
	if opts.SinkWorkers <= 0 {
		opts.SinkWorkers = 1
	}
	return &HarvestService{source: src, sink: sink, cache: cache, opts: opts}
}

// Run harvests cities one after another. A failing city is logged and skipped;
// only pool exhaustion or a cancelled context stops the batch.
func (s *HarvestService) Run(ctx context.Context, cities []string) (Summary, error) {
	var sum Summary
	for i, city := range cities {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.Cities++
		log.Info().Str("city", city).Int("index", i).Msg("harvesting city")

		res, err := s.HarvestCity(ctx, i, city)
		sum.Pages += res.Pages
		sum.Records += res.Records
		sum.SinkErrors += res.SinkErrors

		if err != nil {
			sum.Failed++
			label := domain.ErrorLabel(err)
			observability.ObserveCity(label)

			stage := "unknown"
			var ce *CityError
			if errors.As(err, &ce) {
				stage = ce.Stage
			}
			if errors.Is(err, domain.ErrPoolExhausted) {
				log.Error().Err(err).Str("city", city).Str("stage", stage).Msg("proxy pool exhausted, stopping")
				return sum, err
			}
			if ctx.Err() != nil {
				return sum, ctx.Err()
			}
			log.Warn().Err(err).
				Str("city", city).
				Str("stage", stage).
				Str("error_type", label).
				Str("location_id", res.LocationID).
				Int("records", res.Records).
				Msg("city failed")
			continue
		}

		sum.Succeeded++
		observability.ObserveCity("ok")
		log.Info().
			Str("city", city).
			Str("location_id", res.LocationID).
			Int("pages", res.Pages).
			Int("records", res.Records).
			Int("sink_errors", res.SinkErrors).
			Msg("city done")
	}
	return sum, nil
}

// HarvestCity runs the full pipeline for one city. Records stored before a
// failure stay stored; the result reports them either way.
func (s *HarvestService) HarvestCity(ctx context.Context, idx int, city string) (CityResult, error) {
	res := CityResult{City: city}

	identity := ""
	if s.opts.BindIdentity {
		identity = fmt.Sprintf("city%d", idx)
	}
	sess, err := s.source.Open(ctx, identity)
	if err != nil {
		return res, &CityError{City: city, Stage: "session", Err: err}
	}

	locationID, err := s.locationID(ctx, sess, city)
	if err != nil {
		return res, &CityError{City: city, Stage: "resolve", Err: err}
	}
	res.LocationID = locationID

	it := sess.Hotels(locationID)
	for it.Next(ctx) {
		page := it.Page()
		res.Pages++
		stored, failed := s.persistPage(ctx, city, page.Items)
		res.Records += stored
		res.SinkErrors += failed
		log.Debug().
			Str("city", city).
			Int("page", res.Pages).
			Int("items", len(page.Items)).
			Msg("page stored")
	}
	if err := it.Err(); err != nil {
		return res, &CityError{City: city, Stage: "paginate", Err: err}
	}
	return res, nil
}

func (s *HarvestService) locationID(ctx context.Context, sess domain.SourceSession, city string) (string, error) {
	key := locationCacheKey(city)
	if s.cache != nil {
		var id string
		if ok, err := s.cache.Get(ctx, key, &id); err == nil && ok && id != "" {
			log.Debug().Str("city", city).Str("location_id", id).Msg("location id from cache")
			return id, nil
		}
	}

	id, err := sess.ResolveLocation(ctx, city)
	if err != nil {
		return "", err
	}
	if s.cache != nil && s.opts.LocationTTL > 0 {
		if err := s.cache.Set(ctx, key, id, int(s.opts.LocationTTL.Seconds())); err != nil {
			log.Debug().Err(err).Str("city", city).Str("location_id", id).Msg("location id not cached")
		}
	}
	return id, nil
}

func (s *HarvestService) persistPage(ctx context.Context, city string, items []domain.RawHotel) (stored, failed int) {
	if s.opts.SinkWorkers == 1 {
		for _, raw := range items {
			if s.insert(ctx, city, NormalizeHotel(raw)) {
				stored++
			} else {
				failed++
			}
		}
		return stored, failed
	}

	sem := semaphore.NewWeighted(int64(s.opts.SinkWorkers))
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, raw := range items {
		h := NormalizeHotel(raw)
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			ok := s.insert(ctx, city, h)
			mu.Lock()
			if ok {
				stored++
			} else {
				failed++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()
	return stored, failed
}

func (s *HarvestService) insert(ctx context.Context, city string, h domain.Hotel) bool {
	if err := s.sink.Insert(ctx, h); err != nil {
		observability.ObserveRecord("error")
		log.Warn().Err(&domain.SinkError{Key: h.Key, Err: err}).
			Str("city", city).
			Str("stage", "persist").
			Str("hotel", h.Name).
			Msg("insert failed")
		return false
	}
	observability.ObserveRecord("ok")

	// drop any cached read of this hotel so the API does not serve a stale copy
	if s.cache != nil {
		_ = s.cache.Del(ctx, hotelCacheKey(h.Key))
	}
	return true
}

func locationCacheKey(city string) string {
	return "location:" + strings.ToLower(strings.TrimSpace(city))
}
