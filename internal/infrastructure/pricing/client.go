package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"pricewatch/internal/application/port"
	"pricewatch/internal/domain/model"
)

const (
	DefaultBaseURL = "https://api.pokemontcg.io/v2"
	MaxPageSize    = 250
	searchPageSize = 10
	orderBy        = "-set.releaseDate"
)

type Options struct {
	BaseURL    string
	APIKey     string // optional, raises rate limits
	Timeout    time.Duration
	RatePerSec float64 // <= 0 disables throttling
}

// Client is the REST client for the external card catalog.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
}

func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}

	hc := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json")
	if opts.APIKey != "" {
		hc.SetHeader("X-Api-Key", opts.APIKey)
	}

	limit := rate.Inf
	if opts.RatePerSec > 0 {
		limit = rate.Limit(opts.RatePerSec)
	}
	return &Client{
		http:    hc,
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (c *Client) getCards(ctx context.Context, params map[string]string) (*CardsResp, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get("/cards")
	if err != nil {
		return nil, fmt.Errorf("pricing api request: %w", err)
	}
	if code := resp.StatusCode(); code < 200 || code > 299 {
		body := resp.String()
		if len(body) > 256 {
			body = body[:256]
		}
		return nil, &StatusError{Code: code, Body: body}
	}

	var out CardsResp
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("decode cards response: %w", err)
	}
	return &out, nil
}

// SearchCard returns the best match for name within setName, or nil.
func (c *Client) SearchCard(ctx context.Context, name, setName string) (*model.CatalogRecord, error) {
	out, err := c.getCards(ctx, map[string]string{
		"q":        BuildQuery(name, setName),
		"pageSize": strconv.Itoa(searchPageSize),
		"orderBy":  orderBy,
	})
	if err != nil {
		return nil, err
	}
	best := bestMatch(out.Data, name, setName)
	if best == nil {
		return nil, nil
	}
	rec := ToRecord(best)
	return &rec, nil
}

// bestMatch prefers an exact (case-insensitive) name and set match.
func bestMatch(cards []Card, name, setName string) *Card {
	if len(cards) == 0 {
		return nil
	}
	for i := range cards {
		if strings.EqualFold(strings.TrimSpace(cards[i].Name), strings.TrimSpace(name)) &&
			(setName == "" || strings.EqualFold(strings.TrimSpace(cards[i].Set.Name), strings.TrimSpace(setName))) {
			return &cards[i]
		}
	}
	return &cards[0]
}

// ListCards fetches one page of the rarity-filtered catalog, newest sets first.
func (c *Client) ListCards(ctx context.Context, page, pageSize int) (*model.CatalogPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	out, err := c.getCards(ctx, map[string]string{
		"q":        BuildQuery("", ""),
		"page":     strconv.Itoa(page),
		"pageSize": strconv.Itoa(pageSize),
		"orderBy":  orderBy,
	})
	if err != nil {
		return nil, err
	}

	res := &model.CatalogPage{
		Records:    make([]model.CatalogRecord, 0, len(out.Data)),
		Page:       page,
		PageSize:   pageSize,
		TotalCount: out.TotalCount,
	}
	for i := range out.Data {
		res.Records = append(res.Records, ToRecord(&out.Data[i]))
	}
	return res, nil
}

var _ port.Catalog = (*Client)(nil)
