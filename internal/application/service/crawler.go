package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"pricewatch/internal/application/port"
	"pricewatch/internal/domain/model"
)

type CrawlerConfig struct {
	MinPrice    float64
	MaxPages    int // pages requested per invocation
	PageSize    int
	HardPageCap int // circuit breaker regardless of exhaustion
	MaxErrors   int
}

func (c *CrawlerConfig) applyDefaults() {
	if c.MaxPages <= 0 {
		c.MaxPages = 5
	}
	if c.PageSize <= 0 {
		c.PageSize = 250
	}
	if c.HardPageCap <= 0 {
		c.HardPageCap = 100
	}
	if c.MaxErrors <= 0 {
		c.MaxErrors = DefaultMaxErrors
	}
	if c.MinPrice < 0 {
		c.MinPrice = 0
	}
}

// CrawlStats summarises one crawler invocation.
type CrawlStats struct {
	StartPage int        `json:"start_page"`
	NextPage  *string    `json:"next_page"`
	Pages     int        `json:"pages"`
	Fetched   int        `json:"fetched"`
	Skipped   int        `json:"skipped"`
	Created   int        `json:"created"`
	Updated   int        `json:"updated"`
	Exhausted bool       `json:"exhausted"`
	Errors    *ErrorList `json:"-"`
}

// Crawler discovers catalog items above a minimum price, a bounded number of
// pages per invocation, resuming from the newCardFetch cursor.
type Crawler struct {
	catalog  port.Catalog
	progress port.ProgressRepository
	upserter *Upserter
	cfg      CrawlerConfig
	Clock    Clock
}

func NewCrawler(catalog port.Catalog, progress port.ProgressRepository, upserter *Upserter, cfg CrawlerConfig) *Crawler {
	cfg.applyDefaults()
	return &Crawler{catalog: catalog, progress: progress, upserter: upserter, cfg: cfg}
}

// Run crawls up to MaxPages pages. A page error stops the crawl; the cursor
// then stays on the failed page and the error is returned with the stats.
func (c *Crawler) Run(ctx context.Context) (*CrawlStats, error) {
	prog, err := c.progress.GetProgress(ctx, model.ProgressNewCardFetch)
	if err != nil {
		return nil, fmt.Errorf("load crawl cursor: %w", err)
	}

	page := prog.PageCursor(1)
	if page > c.cfg.HardPageCap {
		page = 1
	}
	stats := &CrawlStats{StartPage: page, Errors: NewErrorList(c.cfg.MaxErrors)}

	var pageErr error
crawl:
	for i := 0; i < c.cfg.MaxPages; i++ {
		if page > c.cfg.HardPageCap {
			break
		}
		res, err := c.catalog.ListCards(ctx, page, c.cfg.PageSize)
		if err != nil {
			pageErr = fmt.Errorf("page %d: %w", page, err)
			break
		}
		stats.Pages++

		for j := range res.Records {
			if err := ctx.Err(); err != nil {
				pageErr = fmt.Errorf("page %d interrupted: %w", page, err)
				break crawl
			}
			rec := &res.Records[j]
			stats.Fetched++
			// 0 means no usable price, whatever the minimum
			if rec.Price <= 0 || rec.Price < c.cfg.MinPrice {
				stats.Skipped++
				continue
			}
			up, err := c.upserter.Upsert(ctx, recordInput(rec))
			if err != nil {
				stats.Errors.Addf("%s (%s #%s): %v", rec.Name, rec.SetName, rec.Number, err)
				continue
			}
			if up.Created {
				stats.Created++
			} else {
				stats.Updated++
			}
		}

		log.Debug().
			Int("page", page).
			Int("records", len(res.Records)).
			Int("total", res.TotalCount).
			Msg("crawl page processed")

		if res.Last() {
			stats.Exhausted = true
			break
		}
		page++
	}

	if pageErr == nil && (stats.Exhausted || page > c.cfg.HardPageCap) {
		stats.NextPage = nil
	} else {
		stats.NextPage = model.PageCursor(page)
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := c.progress.SaveProgress(saveCtx, &model.UpdateProgress{
		Purpose:     model.ProgressNewCardFetch,
		Cursor:      stats.NextPage,
		LastUpdated: c.Clock.Now(),
	}); err != nil {
		return stats, fmt.Errorf("save crawl cursor: %w", err)
	}

	if pageErr != nil {
		return stats, pageErr
	}
	return stats, nil
}
