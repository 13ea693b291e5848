package extract

import (
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"casatrack/helpers"
	"casatrack/internal/parse"
)

// Card is one listing summary parsed from a search-results page.
type Card struct {
	AdID             string
	Slug             string
	URL              string
	Title            string
	Price            *float64
	Location         string
	ShortDescription string
	Bedrooms         *int
	Bathrooms        *float64
	Parking          *int
	AreaSqm          *float64
	SellerName       string
	SellerVerified   bool
	FeatureLevel     string
	DiscountPct      *float64
	FavoritesCount   *int
	ImageURL         string
	GA4              *GA4Data
}

// GA4Data is the per-ad analytics blob the site embeds in inline
// scripts, keyed by numeric ad id. It is richer than the card markup
// for classification and feature tier.
type GA4Data struct {
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	Country     string `json:"country"`
	Province    string `json:"province"`
	Location    string `json:"location"`
	Feature     string `json:"feature"`
}

var (
	adIDPattern     = regexp.MustCompile(`/(\d+)(?:\?.*)?$`)
	slugPattern     = regexp.MustCompile(`/([^/]+)/\d+(?:\?.*)?$`)
	featurePattern  = regexp.MustCompile(`d3-ad-tile--feat-(\w+)`)
	ga4EntryPattern = regexp.MustCompile(`ga4addata\[(\d+)\]\s*=\s*(\{[^}]+\})`)
	countPattern    = regexp.MustCompile(`(\d+)`)
)

// cssFeatureLevels maps the card's CSS tier token to its level name.
var cssFeatureLevels = map[string]string{
	"plat":   "platinum",
	"gold":   "gold",
	"silver": "silver",
}

// ga4FeatureLevels maps the analytics tier codes; unknown codes
// normalize to basic.
var ga4FeatureLevels = map[string]string{
	"AD_FEATGOLD":   "gold",
	"AD_FEATSILVER": "silver",
	"AD_FEATPLAT":   "platinum",
	"AD_FEATBASIC":  "basic",
}

// Cards parses every listing card on a search-results page. Cards
// without a detail link or ad id are unusable input and skipped.
func Cards(doc *goquery.Document, baseURL string) []Card {
	var cards []Card

	doc.Find(".d3-ad-tile").Each(func(_ int, tile *goquery.Selection) {
		detailHref, ok := tile.Find(".d3-ad-tile__description").Attr("href")
		if !ok || detailHref == "" {
			detailHref, _ = tile.Find(".d3-ad-tile__cover a").Attr("href")
		}
		if detailHref == "" {
			return
		}

		url := helpers.AbsoluteURL(baseURL, detailHref)
		adID := AdIDFromURL(url)
		if adID == "" {
			return
		}

		fav := tile.Find(".tool-favorite[data-adid]").First()
		dataPrice, _ := fav.Attr("data-price")
		favTitle, _ := fav.Attr("title")

		card := Card{
			AdID:             adID,
			Slug:             SlugFromURL(url),
			URL:              url,
			Title:            strings.TrimSpace(tile.Find(".d3-ad-tile__title").Text()),
			Location:         collapseSpaces(tile.Find(".d3-ad-tile__location span").Text()),
			ShortDescription: strings.TrimSpace(tile.Find(".d3-ad-tile__short-description").Text()),
			SellerName:       strings.TrimSpace(tile.Find(".d3-ad-tile__seller > span").First().Text()),
			SellerVerified:   tile.Find(".d3-ad-tile__verified").Length() > 0,
			FeatureLevel:     cardFeatureLevel(tile),
			DiscountPct:      parse.Discount(tile.Find(".d3-ad-tile__discount").Text()),
			FavoritesCount:   parse.Favorites(favTitle),
		}

		// The favorite button's data attribute is the reliable price
		// source; the rendered price text is the fallback.
		if dataPrice != "" {
			card.Price = parse.Price(dataPrice)
		} else {
			card.Price = parse.Price(tile.Find(".d3-ad-tile__price").Text())
		}

		if img, ok := tile.Find("img.d3-ad-tile__photo").Attr("data-original"); ok {
			card.ImageURL = img
		}

		applyCardSpecs(&card, tile)

		cards = append(cards, card)
	})

	return cards
}

// applyCardSpecs reads the card's attribute rows. Rows are identified by their
// sprite icon id, never by position; rows with unknown icons are
// ignored.
func applyCardSpecs(card *Card, tile *goquery.Selection) {
	tile.Find(".d3-ad-tile__details-item").Each(func(_ int, spec *goquery.Selection) {
		use := spec.Find("svg use")
		iconUse, ok := use.Attr("xlink:href")
		if !ok {
			// The HTML parser namespaces xlink attributes inside svg,
			// and newer sprite markup drops the prefix entirely.
			iconUse, _ = use.Attr("href")
		}
		text := strings.TrimSpace(spec.Text())

		switch {
		case strings.Contains(iconUse, "#bed"):
			card.Bedrooms = parse.IntSafe(text)
		case strings.Contains(iconUse, "#bath"):
			card.Bathrooms = parse.FloatSafe(text)
		case strings.Contains(iconUse, "#parking"):
			card.Parking = parse.IntSafe(text)
		case strings.Contains(iconUse, "#resize"):
			card.AreaSqm = parse.Area(text)
		}
	})
}

func cardFeatureLevel(tile *goquery.Selection) string {
	classes, _ := tile.Attr("class")

	match := featurePattern.FindStringSubmatch(classes)
	if match == nil {
		return "basic"
	}
	if level, ok := cssFeatureLevels[match[1]]; ok {
		return level
	}
	return match[1]
}

// GA4Map extracts the per-ad analytics blobs from inline scripts,
// keyed by ad id. Malformed entries are skipped.
func GA4Map(doc *goquery.Document) map[string]GA4Data {
	data := map[string]GA4Data{}

	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		content := s.Text()
		if !strings.Contains(content, "ga4addata[") {
			return
		}

		for _, match := range ga4EntryPattern.FindAllStringSubmatch(content, -1) {
			var entry GA4Data
			if err := json.Unmarshal([]byte(match[2]), &entry); err != nil {
				continue
			}
			data[match[1]] = entry
		}
	})

	return data
}

// MergeGA4 attaches the analytics blobs to their cards by ad id and
// lets the analytics tier code override the CSS-derived tier.
func MergeGA4(cards []Card, ga4 map[string]GA4Data) {
	for i := range cards {
		entry, ok := ga4[cards[i].AdID]
		if !ok {
			continue
		}
		cards[i].GA4 = &entry
		cards[i].FeatureLevel = normalizeGA4Feature(entry.Feature)
	}
}

func normalizeGA4Feature(feature string) string {
	if level, ok := ga4FeatureLevels[feature]; ok {
		return level
	}
	return "basic"
}

// PaginationPages returns the page numbers present in the pagination
// control, sorted ascending.
func PaginationPages(doc *goquery.Document) []int {
	var pages []int
	seen := map[int]bool{}

	doc.Find(".d3-pagination__page").Each(func(_ int, s *goquery.Selection) {
		raw, ok := s.Attr("data-page")
		if !ok {
			return
		}
		num, err := strconv.Atoi(raw)
		if err != nil || seen[num] {
			return
		}
		seen[num] = true
		pages = append(pages, num)
	})

	sort.Ints(pages)
	return pages
}

// ResultsCount reads the declared total-results count from the list
// header, nil when the header carries no number. The header renders
// thousands separators.
func ResultsCount(doc *goquery.Document) *int {
	text := doc.Find(".d3-category-list__results").Text()
	text = strings.ReplaceAll(text, ",", "")

	match := countPattern.FindStringSubmatch(text)
	if match == nil {
		return nil
	}

	num, err := strconv.Atoi(match[1])
	if err != nil {
		return nil
	}
	return &num
}

// AdIDFromURL extracts the trailing numeric segment of a detail URL.
func AdIDFromURL(url string) string {
	match := adIDPattern.FindStringSubmatch(url)
	if match == nil {
		return ""
	}
	return match[1]
}

// SlugFromURL extracts the second-to-last path segment of a detail URL.
func SlugFromURL(url string) string {
	match := slugPattern.FindStringSubmatch(url)
	if match == nil {
		return ""
	}
	return match[1]
}

var spacesPattern = regexp.MustCompile(`\s+`)

func collapseSpaces(s string) string {
	return strings.TrimSpace(spacesPattern.ReplaceAllString(s, " "))
}
