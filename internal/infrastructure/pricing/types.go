package pricing

import "fmt"

// CardsResp is the envelope of GET /cards.
type CardsResp struct {
	Data       []Card `json:"data"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
	Count      int    `json:"count"`
	TotalCount int    `json:"totalCount"`
}

// Card is one raw catalog record.
type Card struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Number string `json:"number"`
	Rarity string `json:"rarity"`
	Set    struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		ReleaseDate string `json:"releaseDate"`
	} `json:"set"`
	Images struct {
		Small string `json:"small"`
		Large string `json:"large"`
	} `json:"images"`
	TCGPlayer *struct {
		URL       string                  `json:"url"`
		UpdatedAt string                  `json:"updatedAt"`
		Prices    map[string]PriceVariant `json:"prices"`
	} `json:"tcgplayer,omitempty"`
}

// PriceVariant holds the quotes for one printing (holofoil, normal, ...).
type PriceVariant struct {
	Low       float64 `json:"low"`
	Mid       float64 `json:"mid"`
	High      float64 `json:"high"`
	Market    float64 `json:"market"`
	DirectLow float64 `json:"directLow"`
}

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("pricing api http %d: %s", e.Code, e.Body)
}
