package crawl

import (
	"context"
	"time"

	"casatrack/config"
	"casatrack/internal/catalog"
	"casatrack/internal/scheduler"
	"casatrack/internal/store"
	"casatrack/logger"
	"casatrack/pkg/errors"
	"casatrack/services/cache"
	"casatrack/services/publisher"
)

// Run sources as recorded on the crawl_runs row.
const (
	SourceIncremental = "incremental"
	SourceFull        = "full"
	SourceDetailOnly  = "detail_only"
)

// Options selects what one run crawls. Empty category filters mean
// every known category; MaxPages zero falls back to the configured
// default for the run's mode.
type Options struct {
	Category    string
	Subcategory string
	Region      string
	MaxPages    int
	Full        bool
	DetailOnly  bool
}

// Orchestrator owns the lifecycle of a crawl run: it opens the run
// row, seeds and drives the worker pool, routes failures, and always
// leaves the run in a terminal state.
type Orchestrator struct {
	cfg    *config.Config
	store  ListingStore
	events publisher.Publisher
	blocks cache.BlockList
	fetch  scheduler.Fetcher
	log    *logger.Logger
}

// NewOrchestrator wires an orchestrator. The domain blocklist and
// event publisher may be nil, which disables those collaborations.
func NewOrchestrator(cfg *config.Config, st ListingStore, events publisher.Publisher, blocks cache.BlockList, fetch scheduler.Fetcher) *Orchestrator {
	return &Orchestrator{
		cfg:    cfg,
		store:  st,
		events: events,
		blocks: blocks,
		fetch:  fetch,
		log:    logger.ForComponent("orchestrator"),
	}
}

func (o *Orchestrator) source(opts Options) string {
	switch {
	case opts.DetailOnly:
		return SourceDetailOnly
	case opts.Full:
		return SourceFull
	default:
		return SourceIncremental
	}
}

func (o *Orchestrator) maxPages(opts Options) int {
	if opts.MaxPages > 0 {
		return opts.MaxPages
	}
	if opts.Full {
		return o.cfg.FullCrawlMaxPages
	}
	return o.cfg.DefaultMaxPages
}

// Run executes one crawl run to completion. The run row reaches
// exactly one terminal status even when seeding fails or the context
// is cancelled mid-run.
func (o *Orchestrator) Run(ctx context.Context, opts Options) error {
	maxPages := o.maxPages(opts)
	source := o.source(opts)

	runID, err := o.store.CreateRun(ctx, store.RunParams{
		Source:      source,
		Category:    opts.Category,
		Subcategory: opts.Subcategory,
		Region:      opts.Region,
		MaxPages:    maxPages,
	})
	if err != nil {
		return err
	}

	stats := &runStats{}
	status := store.RunStatusFailed
	errMsg := ""
	defer func() {
		// Finalization must survive the cancelled crawl context.
		finishCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := o.store.FinishRun(finishCtx, runID, status, errMsg, int(stats.pages.Load())); err != nil {
			o.log.Error().Err(err).Int64("runId", runID).Msg("failed to finalize crawl run")
		}
	}()

	pool := scheduler.NewPool(scheduler.Config{
		Concurrency:       o.cfg.MaxConcurrency,
		RequestsPerMinute: o.cfg.MaxRequestsPerMinute,
		SameDomainDelay:   o.cfg.SameDomainDelay,
		MaxRetries:        o.cfg.MaxRetries,
		RequestTimeout:    o.cfg.RequestTimeout,
		BlockCooldown:     o.cfg.BlockCooldown,
	}, o.fetch, o.blocks)

	router := NewRouter(o.store, o.events, pool, o.cfg.BaseURL, o.cfg.ListingsPerPage, stats)
	pool.Handler = router.Handle
	pool.OnFailure = o.failureHandler(runID, stats)

	seeded, err := o.seed(ctx, pool, opts, maxPages)
	if err != nil {
		errMsg = err.Error()
		return err
	}
	if seeded == 0 {
		// Filters matched nothing. An empty scope is a clean finish,
		// not a failure.
		o.log.Info().
			Str("category", opts.Category).
			Str("subcategory", opts.Subcategory).
			Msg("nothing to crawl")
		status = store.RunStatusCompleted
		return nil
	}

	o.log.Info().
		Int64("runId", runID).
		Str("source", source).
		Int("seeds", seeded).
		Int("maxPages", maxPages).
		Msg("crawl run started")

	if err := pool.Run(ctx); err != nil {
		errMsg = err.Error()
		return err
	}

	status = store.RunStatusCompleted
	o.log.Info().
		Int64("runId", runID).
		Int64("pages", stats.pages.Load()).
		Int64("details", stats.details.Load()).
		Int64("errors", stats.errors.Load()).
		Msg("crawl run finished")
	return nil
}

// seed fills the pool's initial queue and reports how many requests
// went in.
func (o *Orchestrator) seed(ctx context.Context, pool *scheduler.Pool, opts Options, maxPages int) (int, error) {
	if opts.DetailOnly {
		refs, err := o.store.Uncrawled(ctx, opts.Category, opts.Subcategory, maxPages*o.cfg.ListingsPerPage)
		if err != nil {
			return 0, err
		}
		for _, ref := range refs {
			pool.Enqueue(scheduler.Request{
				URL:         ref.URL,
				Label:       scheduler.LabelDetail,
				AdID:        ref.AdID,
				Category:    opts.Category,
				Subcategory: opts.Subcategory,
			})
		}
		return len(refs), nil
	}

	cats := catalog.Find(opts.Category, opts.Subcategory)
	for _, cat := range cats {
		pool.Enqueue(scheduler.Request{
			URL:         catalog.BuildListURL(o.cfg.BaseURL, cat, opts.Region, 1),
			Label:       scheduler.LabelList,
			Category:    cat.Category,
			Subcategory: cat.Subcategory,
			RegionSlug:  opts.Region,
			Page:        1,
			MaxPages:    maxPages,
		})
	}
	return len(cats), nil
}

// failureHandler records exhausted requests and turns a dead detail
// page into a soft delete. A 404 on a detail URL means the listing is
// gone from the site; the first such sighting stamps removed_at and
// emits a removal event, later ones are no-ops.
func (o *Orchestrator) failureHandler(runID int64, stats *runStats) scheduler.FailureFunc {
	return func(req scheduler.Request, ferr *errors.FetchError) {
		stats.errors.Add(1)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := o.store.RecordCrawlError(ctx, runID, req.URL, string(req.Label), string(ferr.Type), ferr.StatusCode, ferr.Message); err != nil {
			o.log.Error().Err(err).Str("url", req.URL).Msg("failed to record crawl error")
		}

		o.log.Warn().
			Str("url", req.URL).
			Str("label", string(req.Label)).
			Str("type", string(ferr.Type)).
			Int("status", ferr.StatusCode).
			Msg("request failed")

		if req.Label != scheduler.LabelDetail || req.AdID == "" || ferr.StatusCode != 404 {
			return
		}

		removed, err := o.store.MarkRemoved(ctx, req.AdID)
		if err != nil {
			o.log.Error().Err(err).Str("adId", req.AdID).Msg("failed to mark listing removed")
			return
		}
		if !removed {
			return
		}

		o.log.Info().Str("adId", req.AdID).Msg("listing removed from site")

		if o.events != nil {
			err := o.events.PublishEvent(ctx, publisher.ListingEvent{
				Type:       publisher.EventRemoved,
				AdID:       req.AdID,
				URL:        req.URL,
				OccurredAt: time.Now(),
			})
			if err != nil {
				o.log.Error().Err(err).Str("adId", req.AdID).Msg("failed to publish removal event")
			}
		}
	}
}
