package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"tripadvisor_hotels/internal/domain"
)

const maxLimit = 200

// HotelQueries is the read side the handlers need; app.QueryService implements it.
type HotelQueries interface {
	GetHotel(ctx context.Context, key string) (domain.Hotel, error)
	ListHotels(ctx context.Context, q domain.HotelsQuery) (domain.HotelsPage, error)
}

type Handlers struct{ Q HotelQueries }

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type hotelsResponse struct {
	Items      []domain.Hotel `json:"items"`
	NextCursor *string        `json:"next_cursor,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/hotels", h.listHotels)
	s.mux.Get("/v1/hotels/{key}", h.getHotel)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeJSON answers 304 when the client already holds this version.
func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write body")
	}
}

func (h *Handlers) getHotel(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	hotel, err := h.Q.GetHotel(r.Context(), key)
	if errors.Is(err, domain.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", "hotel not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("get hotel failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	writeJSON(w, r, hotel)
}

func (h *Handlers) listHotels(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()

	limit := 50
	if ls := qs.Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > maxLimit {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 200")
			return
		}
		limit = l
	}

	q := domain.HotelsQuery{
		City:   optional(qs.Get("city")),
		State:  optional(qs.Get("state")),
		Limit:  limit,
		Cursor: optional(qs.Get("cursor")),
	}
	page, err := h.Q.ListHotels(r.Context(), q)
	if err != nil {
		log.Error().Err(err).Msg("list hotels failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	resp := hotelsResponse{Items: page.Items, NextCursor: page.NextCursor}
	if resp.Items == nil {
		resp.Items = []domain.Hotel{}
	}
	writeJSON(w, r, resp)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
