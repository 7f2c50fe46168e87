package domain

import "context"

// HotelSink persists normalized hotels. Insert must tolerate the same hotel
// being written more than once.
type HotelSink interface {
	Insert(ctx context.Context, h Hotel) error
}

type HotelRepository interface {
	HotelSink

	// Read paths
	GetHotel(ctx context.Context, key string) (Hotel, error)
	ListHotels(ctx context.Context, q HotelsQuery) (HotelsPage, error)
}

// HotelSource opens authenticated sessions against the travel site.
// An empty identity asks for an ad hoc session with a one-shot proxy identity.
type HotelSource interface {
	Open(ctx context.Context, identity string) (SourceSession, error)
}

// SourceSession is one authenticated session; not safe for concurrent use.
type SourceSession interface {
	ResolveLocation(ctx context.Context, query string) (string, error)
	Hotels(locationID string) PageIterator
}

// PageIterator walks a paged listing forward once.
type PageIterator interface {
	Next(ctx context.Context) bool
	Page() Page
	Err() error
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// Read models & queries
type HotelsQuery struct {
	City, State *string
	Limit       int
	Cursor      *string
}

type HotelsPage struct {
	Items      []Hotel
	NextCursor *string
}
