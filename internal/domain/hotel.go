package domain

// RawHotel is one listing record as received from the hotels endpoint.
// Numbers are decoded as json.Number.
type RawHotel = map[string]any

// Page is one page of the hotel listing.
type Page struct {
	Items []RawHotel
	Next  *string // absolute URL of the next page; nil on the last page
}

type Hotel struct {
	Key         string   `json:"key" bson:"_id"`
	LocationID  string   `json:"location_id,omitempty" bson:"location_id,omitempty"`
	Name        string   `json:"name" bson:"name"`
	Latitude    *float64 `json:"latitude,omitempty" bson:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty" bson:"longitude,omitempty"`
	Type        string   `json:"type,omitempty" bson:"type,omitempty"`
	Ranking     string   `json:"tripadvisor_ranking,omitempty" bson:"tripadvisor_ranking,omitempty"`
	PriceRange  string   `json:"price_range,omitempty" bson:"price_range,omitempty"`
	Stars       *float64 `json:"stars,omitempty" bson:"stars,omitempty"`
	Description string   `json:"description,omitempty" bson:"description,omitempty"`
	Website     string   `json:"website,omitempty" bson:"website,omitempty"`
	Phone       string   `json:"phone,omitempty" bson:"phone,omitempty"`
	Email       string   `json:"email,omitempty" bson:"email,omitempty"`
	Address     string   `json:"address,omitempty" bson:"address,omitempty"`
	City        string   `json:"city,omitempty" bson:"city,omitempty"`
	State       string   `json:"state,omitempty" bson:"state,omitempty"`
	RawJSON     []byte   `json:"-" bson:"raw,omitempty"` // full listing payload
}
