package extract

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// SiteData is the partial record read from the loopaData object
// literal embedded in the detail page's inline scripts. It carries a
// secondary copy of price, region and a few specs.
type SiteData struct {
	ProductID    string
	Price        *float64
	Country      string
	Region       string
	ParentRegion string
	Bedrooms     *int
	Size         *float64
	HousingType  string
	SaleType     string
	Raw          string
}

var loopaDataPattern = regexp.MustCompile(`(?s)var\s+loopaData\s*=\s*(\{.*?\});`)

// SiteCatalogData locates the loopaData assignment and parses it.
// Returns nil when the object is absent or malformed; a broken inline
// script must never abort the extraction run.
func SiteCatalogData(doc *goquery.Document) *SiteData {
	var raw string

	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		content := s.Text()
		if !strings.Contains(content, "loopaData") {
			return true
		}
		if match := loopaDataPattern.FindStringSubmatch(content); match != nil {
			raw = match[1]
			return false
		}
		return true
	})

	if raw == "" {
		return nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil
	}

	return &SiteData{
		ProductID:    rawString(fields["ProductId"]),
		Price:        rawNumber(fields["Price"]),
		Country:      rawString(fields["Country"]),
		Region:       rawString(fields["Region"]),
		ParentRegion: rawString(fields["ParentRegion"]),
		Bedrooms:     rawInt(fields["Bedrooms"]),
		Size:         rawNumber(fields["Size"]),
		HousingType:  rawString(fields["HousingType"]),
		SaleType:     rawString(fields["SaleType"]),
		Raw:          raw,
	}
}

func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func rawInt(raw json.RawMessage) *int {
	num := rawNumber(raw)
	if num == nil {
		return nil
	}
	n := int(*num)
	return &n
}
