package crawl

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"

	"casatrack/internal/catalog"
	"casatrack/internal/extract"
	"casatrack/internal/scheduler"
	"casatrack/internal/store"
	"casatrack/logger"
	"casatrack/services/publisher"
)

// ListingStore is the persistence surface the crawl layer needs.
// *store.Store satisfies it.
type ListingStore interface {
	ApplyCard(ctx context.Context, card extract.Card, category, subcategory, region string) (store.CardOutcome, error)
	ApplyDetail(ctx context.Context, adID string, d extract.Detail) error
	MarkRemoved(ctx context.Context, adID string) (bool, error)
	Uncrawled(ctx context.Context, category, subcategory string, limit int) ([]store.ListingRef, error)
	CreateRun(ctx context.Context, params store.RunParams) (int64, error)
	FinishRun(ctx context.Context, runID int64, status, errMsg string, pagesCrawled int) error
	RecordCrawlError(ctx context.Context, runID int64, url, label, errType string, statusCode int, message string) error
}

// Queue is where the router drops follow-up requests. The scheduler
// pool satisfies it.
type Queue interface {
	Enqueue(scheduler.Request)
}

// runStats counts this run's work across workers. Only the page count
// ends up on the run row; the rest is for the end-of-run log line, the
// durable totals come from the tables when the run is finalized.
type runStats struct {
	pages   atomic.Int64
	details atomic.Int64
	errors  atomic.Int64
}

// Router turns fetched pages into store writes, events and follow-up
// requests. List pages fan out into detail requests and the next list
// page; detail pages complete their listing's record.
type Router struct {
	store    ListingStore
	events   publisher.Publisher
	queue    Queue
	baseURL  string
	pageSize int
	stats    *runStats
	log      *logger.Logger
}

// NewRouter wires a router. pageSize is the site's listings-per-page,
// used to derive the page count from the declared results total.
func NewRouter(st ListingStore, events publisher.Publisher, queue Queue, baseURL string, pageSize int, stats *runStats) *Router {
	return &Router{
		store:    st,
		events:   events,
		queue:    queue,
		baseURL:  baseURL,
		pageSize: pageSize,
		stats:    stats,
		log:      logger.ForComponent("router"),
	}
}

// Handle dispatches one fetched page by its request label.
func (r *Router) Handle(ctx context.Context, req scheduler.Request, doc *goquery.Document) error {
	switch req.Label {
	case scheduler.LabelList:
		return r.handleList(ctx, req, doc)
	case scheduler.LabelDetail:
		return r.handleDetail(ctx, req, doc)
	default:
		return fmt.Errorf("unknown request label %q", req.Label)
	}
}

func (r *Router) handleList(ctx context.Context, req scheduler.Request, doc *goquery.Document) error {
	r.stats.pages.Add(1)

	cards := extract.Cards(doc, r.baseURL)
	extract.MergeGA4(cards, extract.GA4Map(doc))

	if len(cards) == 0 {
		// Past the last page, or an empty category. Either way the
		// pagination walk ends here.
		r.log.Info().
			Str("url", req.URL).
			Int("page", req.Page).
			Msg("no listing cards on page, stopping pagination")
		return nil
	}

	for _, card := range cards {
		outcome, err := r.store.ApplyCard(ctx, card, req.Category, req.Subcategory, req.RegionSlug)
		if err != nil {
			r.stats.errors.Add(1)
			r.log.Error().Err(err).Str("adId", card.AdID).Msg("failed to apply card")
			continue
		}

		r.publishCardEvents(ctx, card, outcome)

		if outcome.NeedsDetail {
			r.queue.Enqueue(scheduler.Request{
				URL:         card.URL,
				Label:       scheduler.LabelDetail,
				AdID:        card.AdID,
				Category:    req.Category,
				Subcategory: req.Subcategory,
			})
		}
	}

	r.log.Debug().
		Int("page", req.Page).
		Int("cards", len(cards)).
		Str("category", req.Category).
		Str("subcategory", req.Subcategory).
		Msg("processed list page")

	r.enqueueNextPage(req, doc)
	return nil
}

// enqueueNextPage walks pagination. The highest reachable page is the
// larger of the pagination links and the page count implied by the
// declared results total; the configured cap bounds both.
func (r *Router) enqueueNextPage(req scheduler.Request, doc *goquery.Document) {
	maxPage := req.Page
	if pages := extract.PaginationPages(doc); len(pages) > 0 {
		if last := pages[len(pages)-1]; last > maxPage {
			maxPage = last
		}
	}
	if count := extract.ResultsCount(doc); count != nil && r.pageSize > 0 {
		if implied := (*count + r.pageSize - 1) / r.pageSize; implied > maxPage {
			maxPage = implied
		}
	}

	next := req.Page + 1
	if next > maxPage || next > req.MaxPages {
		return
	}

	cats := catalog.Find(req.Category, req.Subcategory)
	if len(cats) != 1 {
		return
	}

	nextReq := req
	nextReq.Page = next
	nextReq.Attempt = 0
	nextReq.URL = catalog.BuildListURL(r.baseURL, cats[0], req.RegionSlug, next)
	r.queue.Enqueue(nextReq)
}

func (r *Router) handleDetail(ctx context.Context, req scheduler.Request, doc *goquery.Document) error {
	detail := extract.DetailData(doc)

	if err := r.store.ApplyDetail(ctx, req.AdID, detail); err != nil {
		return err
	}

	r.stats.details.Add(1)
	r.log.Debug().Str("adId", req.AdID).Msg("processed detail page")
	return nil
}

func (r *Router) publishCardEvents(ctx context.Context, card extract.Card, outcome store.CardOutcome) {
	if r.events == nil {
		return
	}

	var event publisher.ListingEvent
	switch {
	case outcome.New:
		event = publisher.ListingEvent{
			Type:  publisher.EventNewListing,
			AdID:  card.AdID,
			URL:   card.URL,
			Title: card.Title,
			Price: card.Price,
		}
	case outcome.PriceChanged:
		event = publisher.ListingEvent{
			Type:     publisher.EventPriceChanged,
			AdID:     card.AdID,
			URL:      card.URL,
			Title:    card.Title,
			Price:    card.Price,
			OldPrice: outcome.OldPrice,
		}
	default:
		return
	}
	event.OccurredAt = time.Now()

	if err := r.events.PublishEvent(ctx, event); err != nil {
		r.log.Error().Err(err).Str("adId", card.AdID).Msg("failed to publish listing event")
	}
}
