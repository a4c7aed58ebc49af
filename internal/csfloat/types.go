package csfloat

import "time"

const (
	DefaultBaseURL = "https://csfloat.com/api/v1/listings"
	ItemURLPrefix  = "https://csfloat.com/item/"
)

type Listing struct {
	ID          string     `json:"id"`
	CreatedAt   time.Time  `json:"created_at"`
	Type        string     `json:"type,omitempty"`
	Price       int64      `json:"price"` // cents
	State       string     `json:"state,omitempty"`
	Seller      Seller     `json:"seller"`
	Reference   *Reference `json:"reference,omitempty"`
	Item        Item       `json:"item"`
	Watchers    int        `json:"watchers"`
	Description string     `json:"description,omitempty"`
}

type Item struct {
	AssetID        string    `json:"asset_id,omitempty"`
	DefIndex       int       `json:"def_index,omitempty"`
	PaintIndex     int       `json:"paint_index,omitempty"`
	PaintSeed      *int      `json:"paint_seed,omitempty"`
	FloatValue     float64   `json:"float_value"`
	IconURL        string    `json:"icon_url,omitempty"`
	MarketHashName string    `json:"market_hash_name"`
	WearName       string    `json:"wear_name,omitempty"`
	Rarity         *int      `json:"rarity,omitempty"`
	IsStatTrak     bool      `json:"is_stattrak,omitempty"`
	IsSouvenir     bool      `json:"is_souvenir,omitempty"`
	Stickers       []Sticker `json:"stickers,omitempty"`
}

type Sticker struct {
	StickerID int      `json:"stickerId,omitempty"`
	Slot      int      `json:"slot,omitempty"`
	Name      string   `json:"name"`
	Wear      *float64 `json:"wear,omitempty"`
}

type Seller struct {
	Username     string `json:"username,omitempty"`
	ObfuscatedID string `json:"obfuscated_id,omitempty"`
	SteamID      string `json:"steam_id,omitempty"`
}

// Reference prices are in cents.
type Reference struct {
	BasePrice      int64 `json:"base_price"`
	PredictedPrice int64 `json:"predicted_price"`
	Quantity       int   `json:"quantity,omitempty"`
}

type Status int

const (
	StatusOK Status = iota
	StatusDegraded
)

func (s Status) String() string {
	if s == StatusOK {
		return "ok"
	}
	return "degraded"
}

// FetchResult is the outcome of one listing query. HTTPStatus is 0 when no
// response was received.
type FetchResult struct {
	Listings   []Listing
	Status     Status
	HTTPStatus int
	Err        error
	Took       time.Duration
}

func (r FetchResult) OK() bool { return r.Status == StatusOK }
