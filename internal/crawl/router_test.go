package crawl

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casatrack/internal/extract"
	"casatrack/internal/scheduler"
	"casatrack/internal/store"
	"casatrack/services/publisher"
)

type mockStore struct {
	mu sync.Mutex

	cardOutcomes map[string]store.CardOutcome
	cardErr      error
	appliedCards []extract.Card

	appliedDetails []string
	detailErr      error

	removed      []string
	removedReply map[string]bool

	uncrawled []store.ListingRef

	runID      int64
	finished   []string
	finalPages int
	crawlErrs  []string
}

func newMockStore() *mockStore {
	return &mockStore{
		cardOutcomes: map[string]store.CardOutcome{},
		removedReply: map[string]bool{},
		runID:        1,
	}
}

func (m *mockStore) ApplyCard(_ context.Context, card extract.Card, _, _, _ string) (store.CardOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cardErr != nil {
		return store.CardOutcome{}, m.cardErr
	}
	m.appliedCards = append(m.appliedCards, card)
	return m.cardOutcomes[card.AdID], nil
}

func (m *mockStore) ApplyDetail(_ context.Context, adID string, _ extract.Detail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.detailErr != nil {
		return m.detailErr
	}
	m.appliedDetails = append(m.appliedDetails, adID)
	return nil
}

func (m *mockStore) MarkRemoved(_ context.Context, adID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, adID)
	return m.removedReply[adID], nil
}

func (m *mockStore) Uncrawled(_ context.Context, _, _ string, _ int) ([]store.ListingRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.uncrawled, nil
}

func (m *mockStore) CreateRun(_ context.Context, _ store.RunParams) (int64, error) {
	return m.runID, nil
}

func (m *mockStore) FinishRun(_ context.Context, _ int64, status, _ string, pagesCrawled int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished = append(m.finished, status)
	m.finalPages = pagesCrawled
	return nil
}

func (m *mockStore) RecordCrawlError(_ context.Context, _ int64, url, _, errType string, _ int, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.crawlErrs = append(m.crawlErrs, errType+" "+url)
	return nil
}

type mockPublisher struct {
	mu     sync.Mutex
	events []publisher.ListingEvent
}

func (m *mockPublisher) PublishEvent(_ context.Context, event publisher.ListingEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockPublisher) Close() error { return nil }

type mockQueue struct {
	mu       sync.Mutex
	requests []scheduler.Request
}

func (m *mockQueue) Enqueue(req scheduler.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
}

func listPage(cards string, extra string) string {
	return "<html><body>" + cards + extra + "</body></html>"
}

func cardHTML(adID string, price string) string {
	return fmt.Sprintf(`<div class="d3-ad-tile">
		<a class="d3-ad-tile__description" href="/panama-es/bienes-raices-venta-de-propiedades-casas/casa/%s">
			<h3 class="d3-ad-tile__title">Casa %s</h3></a>
		<span class="tool-favorite" data-adid="%s" data-price="%s"></span>
	</div>`, adID, adID, adID, price)
}

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

const testBaseURL = "https://www.encuentra24.com/panama-es"

func newTestRouter(st ListingStore, events publisher.Publisher, queue Queue) (*Router, *runStats) {
	stats := &runStats{}
	return NewRouter(st, events, queue, testBaseURL, 30, stats), stats
}

func TestRouterListPageRoutesOutcomes(t *testing.T) {
	st := newMockStore()
	st.cardOutcomes["100"] = store.CardOutcome{New: true, NeedsDetail: true}
	oldPrice := 235000.0
	st.cardOutcomes["200"] = store.CardOutcome{PriceChanged: true, OldPrice: &oldPrice, NeedsDetail: true}
	st.cardOutcomes["300"] = store.CardOutcome{}

	pub := &mockPublisher{}
	queue := &mockQueue{}
	router, stats := newTestRouter(st, pub, queue)

	doc := parseDoc(t, listPage(
		cardHTML("100", "250000")+cardHTML("200", "250000")+cardHTML("300", "99000"), ""))

	err := router.Handle(context.Background(), scheduler.Request{
		URL:      testBaseURL + "/bienes-raices-venta-de-propiedades-casas?sort=f_added&dir=desc",
		Label:    scheduler.LabelList,
		Category: "sale", Subcategory: "casas",
		Page: 1, MaxPages: 5,
	}, doc)
	require.NoError(t, err)

	assert.Len(t, st.appliedCards, 3)

	// Only the new listing and the price change earn detail fetches
	require.Len(t, queue.requests, 2)
	assert.Equal(t, scheduler.LabelDetail, queue.requests[0].Label)
	assert.Equal(t, "100", queue.requests[0].AdID)
	assert.Equal(t, "200", queue.requests[1].AdID)
	assert.Equal(t, "sale", queue.requests[0].Category)

	require.Len(t, pub.events, 2)
	assert.Equal(t, publisher.EventNewListing, pub.events[0].Type)
	assert.Equal(t, publisher.EventPriceChanged, pub.events[1].Type)
	assert.Equal(t, 235000.0, *pub.events[1].OldPrice)

	assert.Equal(t, int64(1), stats.pages.Load())
}

func TestRouterEmptyListPageStopsPagination(t *testing.T) {
	st := newMockStore()
	queue := &mockQueue{}
	router, _ := newTestRouter(st, nil, queue)

	// Pagination links exist but the page has no cards: terminal
	doc := parseDoc(t, listPage("", `<a class="d3-pagination__page" data-page="2">2</a>`))

	err := router.Handle(context.Background(), scheduler.Request{
		Label: scheduler.LabelList, Category: "sale", Subcategory: "casas",
		Page: 1, MaxPages: 5,
	}, doc)
	require.NoError(t, err)

	assert.Empty(t, st.appliedCards)
	assert.Empty(t, queue.requests)
}

func TestRouterPaginationFromLinks(t *testing.T) {
	st := newMockStore()
	queue := &mockQueue{}
	router, _ := newTestRouter(st, nil, queue)

	doc := parseDoc(t, listPage(cardHTML("100", "1000"),
		`<a class="d3-pagination__page" data-page="2">2</a>
		 <a class="d3-pagination__page" data-page="3">3</a>`))

	err := router.Handle(context.Background(), scheduler.Request{
		Label: scheduler.LabelList, Category: "sale", Subcategory: "casas",
		Page: 1, MaxPages: 5,
	}, doc)
	require.NoError(t, err)

	require.Len(t, queue.requests, 1)
	next := queue.requests[0]
	assert.Equal(t, scheduler.LabelList, next.Label)
	assert.Equal(t, 2, next.Page)
	assert.Contains(t, next.URL, "bienes-raices-venta-de-propiedades-casas.2")
}

func TestRouterPaginationFromResultsCount(t *testing.T) {
	st := newMockStore()
	queue := &mockQueue{}
	router, _ := newTestRouter(st, nil, queue)

	// 65 results at 30 per page imply 3 pages even without links
	doc := parseDoc(t, listPage(cardHTML("100", "1000"),
		`<div class="d3-category-list__results">65 resultados</div>`))

	req := scheduler.Request{
		Label: scheduler.LabelList, Category: "sale", Subcategory: "casas",
		Page: 2, MaxPages: 5,
	}
	require.NoError(t, router.Handle(context.Background(), req, doc))

	require.Len(t, queue.requests, 1)
	assert.Equal(t, 3, queue.requests[0].Page)
}

func TestRouterPaginationHonorsCap(t *testing.T) {
	st := newMockStore()
	queue := &mockQueue{}
	router, _ := newTestRouter(st, nil, queue)

	doc := parseDoc(t, listPage(cardHTML("100", "1000"),
		`<div class="d3-category-list__results">65 resultados</div>`))

	req := scheduler.Request{
		Label: scheduler.LabelList, Category: "sale", Subcategory: "casas",
		Page: 2, MaxPages: 2,
	}
	require.NoError(t, router.Handle(context.Background(), req, doc))

	assert.Empty(t, queue.requests, "the configured page cap stops the walk")
}

func TestRouterListPageSurvivesStoreFailures(t *testing.T) {
	st := newMockStore()
	st.cardErr = fmt.Errorf("connection reset")
	queue := &mockQueue{}
	router, stats := newTestRouter(st, nil, queue)

	doc := parseDoc(t, listPage(cardHTML("100", "1000")+cardHTML("200", "2000"), ""))

	err := router.Handle(context.Background(), scheduler.Request{
		Label: scheduler.LabelList, Category: "sale", Subcategory: "casas",
		Page: 1, MaxPages: 1,
	}, doc)
	require.NoError(t, err, "one failed card does not abort the page")

	assert.Empty(t, queue.requests)
	assert.Equal(t, int64(2), stats.errors.Load())
}

func TestRouterDetailPage(t *testing.T) {
	st := newMockStore()
	queue := &mockQueue{}
	router, stats := newTestRouter(st, nil, queue)

	doc := parseDoc(t, `<html><head>
		<script type="application/ld+json">{"@type":"Product","name":"Casa","offers":{"price":250000}}</script>
		</head><body></body></html>`)

	err := router.Handle(context.Background(), scheduler.Request{
		URL: testBaseURL + "/casa/100", Label: scheduler.LabelDetail, AdID: "100",
	}, doc)
	require.NoError(t, err)

	assert.Equal(t, []string{"100"}, st.appliedDetails)
	assert.Equal(t, int64(1), stats.details.Load())
	assert.Empty(t, queue.requests)
}

func TestRouterDetailStoreFailure(t *testing.T) {
	st := newMockStore()
	st.detailErr = fmt.Errorf("connection reset")
	router, stats := newTestRouter(st, nil, &mockQueue{})

	err := router.Handle(context.Background(), scheduler.Request{
		Label: scheduler.LabelDetail, AdID: "100",
	}, parseDoc(t, `<html></html>`))

	assert.Error(t, err)
	assert.Equal(t, int64(0), stats.details.Load())
}
