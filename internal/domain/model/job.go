package model

import "time"

// CatalogRecord is a normalised record from the external pricing catalog.
// Price is already extracted from the variant map; 0 means no usable price.
type CatalogRecord struct {
	ExternalID string  `json:"external_id"`
	Name       string  `json:"name"`
	SetName    string  `json:"set_name"`
	Number     string  `json:"number"`
	Rarity     string  `json:"rarity"`
	ImageURL   string  `json:"image_url"`
	MarketURL  string  `json:"market_url"`
	Price      float64 `json:"price"`
}

// CatalogPage is one page of a bulk catalog query.
type CatalogPage struct {
	Records    []CatalogRecord `json:"records"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	TotalCount int             `json:"total_count"`
}

// Last reports whether no further page can hold records.
func (p *CatalogPage) Last() bool {
	if len(p.Records) == 0 {
		return true
	}
	if p.PageSize > 0 && len(p.Records) < p.PageSize {
		return true
	}
	return p.TotalCount > 0 && p.PageSize > 0 && p.Page*p.PageSize >= p.TotalCount
}

// JobResult is returned by every job invocation and published to the result sink.
type JobResult struct {
	Job           string         `json:"job"`
	RunID         string         `json:"run_id"`
	StartedAt     time.Time      `json:"started_at"`
	FinishedAt    time.Time      `json:"finished_at"`
	Success       bool           `json:"success"`
	Updated       int            `json:"updated"`
	Errors        []string       `json:"errors"`
	DroppedErrors int            `json:"dropped_errors,omitempty"`
	Details       map[string]any `json:"details,omitempty"`
}

// Duration of the run.
func (r *JobResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
