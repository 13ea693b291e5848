package scheduler

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"casatrack/helpers"
	"casatrack/pkg/errors"
	"casatrack/services/cache"
)

// Label tells the handler which kind of page a request targets.
type Label string

const (
	LabelList   Label = "list"
	LabelDetail Label = "detail"
)

// Request is one unit of crawl work. List requests carry their
// category scope and page position; detail requests carry the ad id.
type Request struct {
	URL         string
	Label       Label
	AdID        string
	Category    string
	Subcategory string
	RegionSlug  string
	Page        int
	MaxPages    int
	Attempt     int
}

// Fetcher retrieves one page. helpers.FetchPage satisfies this.
type Fetcher func(ctx context.Context, url string) (io.Reader, int, error)

// HandlerFunc processes a fetched page. Handlers may enqueue follow-up
// requests on the pool while it runs.
type HandlerFunc func(ctx context.Context, req Request, doc *goquery.Document) error

// FailureFunc receives requests that exhausted their retries or failed
// without a retryable cause.
type FailureFunc func(req Request, ferr *errors.FetchError)

// Config carries the pool's tuning knobs.
type Config struct {
	Concurrency       int
	RequestsPerMinute int
	SameDomainDelay   time.Duration
	MaxRetries        int
	RequestTimeout    time.Duration
	BlockCooldown     time.Duration
}

// Pool is a bounded crawl worker pool. Requests pass three gates
// before fetching: the shared requests-per-minute limiter, the
// per-domain politeness delay, and the domain blocklist that stalls
// domains the site started refusing.
type Pool struct {
	cfg       Config
	fetch     Fetcher
	blocks    cache.BlockList
	limiter   *Limiter
	Handler   HandlerFunc
	OnFailure FailureFunc

	mu          sync.Mutex
	cond        *sync.Cond
	queue       []Request
	inFlight    int
	stopped     bool
	lastRequest map[string]time.Time
}

// NewPool builds a pool. The blocklist may be nil, which disables the
// domain cooldown gate. Handler must be set before Run.
func NewPool(cfg Config, fetch Fetcher, blocks cache.BlockList) *Pool {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	p := &Pool{
		cfg:         cfg,
		fetch:       fetch,
		blocks:      blocks,
		limiter:     NewLimiter(cfg.RequestsPerMinute),
		lastRequest: map[string]time.Time{},
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Enqueue adds a request to the work queue. Requests enqueued after
// the pool stopped are dropped.
func (p *Pool) Enqueue(req Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return
	}
	p.queue = append(p.queue, req)
	p.cond.Broadcast()
}

// Run processes the queue until it drains or the context ends. The
// queue counts as drained only when it is empty and no worker is
// mid-request, since an in-flight handler may still enqueue more work.
func (p *Pool) Run(ctx context.Context) error {
	watchDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			p.mu.Lock()
			p.stopped = true
			p.cond.Broadcast()
			p.mu.Unlock()
		case <-watchDone:
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < p.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.work(ctx)
		}()
	}
	wg.Wait()

	close(watchDone)
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()

	return ctx.Err()
}

func (p *Pool) work(ctx context.Context) {
	for {
		req, ok := p.next()
		if !ok {
			return
		}
		p.process(ctx, req)
		p.finish()
	}
}

func (p *Pool) next() (Request, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for {
		if p.stopped {
			return Request{}, false
		}
		if len(p.queue) > 0 {
			req := p.queue[0]
			p.queue = p.queue[1:]
			p.inFlight++
			return req, true
		}
		if p.inFlight == 0 {
			// Nothing queued and nobody working: wake the other
			// waiters so they can exit too.
			p.cond.Broadcast()
			return Request{}, false
		}
		p.cond.Wait()
	}
}

func (p *Pool) finish() {
	p.mu.Lock()
	p.inFlight--
	p.cond.Broadcast()
	p.mu.Unlock()
}

func (p *Pool) process(ctx context.Context, req Request) {
	defer func() {
		if r := recover(); r != nil {
			p.fail(req, errors.Classify(req.URL, 0, fmt.Errorf("handler panic: %v", r)))
		}
	}()

	domain := helpers.Domain(req.URL)

	if p.domainBlocked(domain) {
		p.fail(req, &errors.FetchError{
			Type:    errors.ErrorTypeBlocked,
			URL:     req.URL,
			Message: "domain is cooling down",
			Time:    time.Now(),
		})
		return
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return
	}
	if err := p.waitForDomain(ctx, domain); err != nil {
		return
	}

	fetchCtx := ctx
	if p.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, p.cfg.RequestTimeout)
		defer cancel()
	}

	body, status, err := p.fetch(fetchCtx, req.URL)
	if err != nil {
		ferr := errors.Classify(req.URL, status, err)
		if ferr.Type == errors.ErrorTypeBlocked {
			p.blockDomain(domain)
		}
		if ferr.Retryable() && req.Attempt+1 < p.cfg.MaxRetries {
			retry := req
			retry.Attempt++
			p.Enqueue(retry)
			return
		}
		p.fail(req, ferr)
		return
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		p.fail(req, errors.Classify(req.URL, 0, fmt.Errorf("failed to parse document: %w", err)))
		return
	}

	if err := p.Handler(ctx, req, doc); err != nil {
		p.fail(req, errors.Classify(req.URL, status, err))
	}
}

func (p *Pool) fail(req Request, ferr *errors.FetchError) {
	if p.OnFailure != nil {
		p.OnFailure(req, ferr)
	}
}

// waitForDomain reserves the next politeness slot on a domain and
// sleeps until it opens.
func (p *Pool) waitForDomain(ctx context.Context, domain string) error {
	if p.cfg.SameDomainDelay <= 0 || domain == "" {
		return nil
	}

	p.mu.Lock()
	slot := time.Now()
	if last, ok := p.lastRequest[domain]; ok {
		if next := last.Add(p.cfg.SameDomainDelay); next.After(slot) {
			slot = next
		}
	}
	p.lastRequest[domain] = slot
	p.mu.Unlock()

	wait := time.Until(slot)
	if wait <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}

func (p *Pool) domainBlocked(domain string) bool {
	if p.blocks == nil || domain == "" {
		return false
	}
	blocked, err := p.blocks.Blocked(domain)
	return err == nil && blocked
}

func (p *Pool) blockDomain(domain string) {
	if p.blocks == nil || domain == "" {
		return
	}
	// Best effort; a cooldown the list lost just means one more
	// blocked response before the next one lands.
	_ = p.blocks.Block(domain, p.cfg.BlockCooldown)
}
