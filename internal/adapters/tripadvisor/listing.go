package tripadvisor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"tripadvisor_hotels/internal/adapters/observability"
	"tripadvisor_hotels/internal/domain"
)

const pageSize = 50

// State of a HotelPaginator.
type State int

const (
	Fetching State = iota
	Emitting
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Fetching:
		return "fetching"
	case Emitting:
		return "emitting"
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var (
	errCursorLoop  = errors.New("paging cursor points at the current page")
	errEmptyCursor = errors.New("paging cursor is empty")
)

type listingResponse struct {
	Data   []domain.RawHotel `json:"data"`
	Paging struct {
		Next *string `json:"next"`
	} `json:"paging"`
}

// HotelPaginator walks a location's hotel listing once, page by page. It
// follows paging.next until it is null (an empty string is a failure); a failed fetch stops the walk and
// leaves already emitted pages alone.
type HotelPaginator struct {
	client  Doer
	headers map[string]string

	url   string
	state State
	page  domain.Page
	err   error
}

func HotelsURL(listingBase, locationID string) string {
	return fmt.Sprintf("%s/%s/hotels?currency=USD&lang=en&limit=%d",
		strings.TrimRight(listingBase, "/"), url.PathEscape(locationID), pageSize)
}

func NewHotelPaginator(client Doer, listingBase, locationID, apiKey string) *HotelPaginator {
	headers := map[string]string{}
	if apiKey != "" {
		headers["X-TripAdvisor-API-Key"] = apiKey
	}
	return &HotelPaginator{
		client:  client,
		headers: headers,
		url:     HotelsURL(listingBase, locationID),
		state:   Fetching,
	}
}

// Next fetches the next page. It returns false once the walk is Done or Failed.
func (p *HotelPaginator) Next(ctx context.Context) bool {
	switch p.state {
	case Done, Failed:
		return false
	case Emitting:
		next := p.page.Next
		if next == nil {
			p.state = Done
			p.page = domain.Page{}
			return false
		}
		if *next == "" {
			return p.fail(errEmptyCursor)
		}
		if *next == p.url {
			return p.fail(errCursorLoop)
		}
		p.url = *next
		p.state = Fetching
	}

	var body listingResponse
	req := Request{URL: p.url, Method: http.MethodGet, Headers: p.headers, Endpoint: "listing"}
	if err := p.client.Do(ctx, req, &body); err != nil {
		return p.fail(err)
	}
	observability.ObservePage()

	p.page = domain.Page{Items: body.Data, Next: body.Paging.Next}
	p.state = Emitting
	return true
}

func (p *HotelPaginator) fail(err error) bool {
	p.err = &domain.PaginationError{URL: p.url, Err: err}
	p.state = Failed
	p.page = domain.Page{}
	return false
}

// Page is valid after Next returned true.
func (p *HotelPaginator) Page() domain.Page { return p.page }

func (p *HotelPaginator) Err() error { return p.err }

func (p *HotelPaginator) State() State { return p.state }
