package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"tripadvisor_hotels/internal/domain"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

func valStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
func valJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
func valPtr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

// Repo stores harvested hotels in MySQL. Insert is an upsert keyed by the
// hotel key, so re-harvesting a city is harmless.
type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// Migrate creates the schema if it is missing.
func (r *Repo) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schemaSQL, ";\n") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (r *Repo) Insert(ctx context.Context, h domain.Hotel) error {
	if h.Key == "" {
		return errors.New("hotel without key")
	}
	_, err := r.db.ExecContext(ctx, upsertHotelSQL,
		h.Key,
		valStr(h.LocationID),
		h.Name,
		valF64(h.Latitude),
		valF64(h.Longitude),
		valStr(h.Type),
		valStr(h.Ranking),
		valStr(h.PriceRange),
		valF64(h.Stars),
		valStr(h.Description),
		valStr(h.Website),
		valStr(h.Phone),
		valStr(h.Email),
		valStr(h.Address),
		valStr(h.City),
		valStr(h.State),
		valJSON(h.RawJSON),
	)
	return err
}

func (r *Repo) GetHotel(ctx context.Context, key string) (domain.Hotel, error) {
	h, err := scanHotel(r.db.QueryRowContext(ctx, getHotelSQL, key))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Hotel{}, domain.ErrNotFound
	}
	return h, err
}

func (r *Repo) ListHotels(ctx context.Context, q domain.HotelsQuery) (domain.HotelsPage, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	after := ""
	if q.Cursor != nil {
		after = *q.Cursor
	}

	city, state := valPtr(q.City), valPtr(q.State)
	rows, err := r.db.QueryContext(ctx, listHotelsSQL, city, city, state, state, after, limit+1)
	if err != nil {
		return domain.HotelsPage{}, err
	}
	defer rows.Close()

	var out []domain.Hotel
	for rows.Next() {
		h, err := scanHotel(rows)
		if err != nil {
			return domain.HotelsPage{}, err
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return domain.HotelsPage{}, err
	}

	// one extra row tells us whether there is a next page
	page := domain.HotelsPage{Items: out}
	if len(out) > limit {
		page.Items = out[:limit]
		next := out[limit-1].Key
		page.NextCursor = &next
	}
	return page, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanHotel(s scanner) (domain.Hotel, error) {
	var (
		h                                           domain.Hotel
		locationID, typ, ranking, price             sql.NullString
		desc, website, phone, email, addr, city, st sql.NullString
		lat, lon, stars                             sql.NullFloat64
		raw                                         []byte
	)
	if err := s.Scan(
		&h.Key, &locationID, &h.Name, &lat, &lon, &typ, &ranking, &price, &stars,
		&desc, &website, &phone, &email, &addr, &city, &st, &raw,
	); err != nil {
		return domain.Hotel{}, err
	}

	h.LocationID = locationID.String
	h.Type = typ.String
	h.Ranking = ranking.String
	h.PriceRange = price.String
	h.Description = desc.String
	h.Website = website.String
	h.Phone = phone.String
	h.Email = email.String
	h.Address = addr.String
	h.City = city.String
	h.State = st.String
	h.Latitude = nullF64(lat)
	h.Longitude = nullF64(lon)
	h.Stars = nullF64(stars)
	if len(raw) > 0 {
		h.RawJSON = append([]byte(nil), raw...)
	}
	return h, nil
}

func nullF64(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	f := n.Float64
	return &f
}
