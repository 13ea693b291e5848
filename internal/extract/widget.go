package extract

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// WidgetData is the partial record recovered from the recommendation
// widget's analytics call. The vendor name here is the cleanest seller
// name on the page, and oldPrice is the only place the site exposes a
// previous asking price.
type WidgetData struct {
	OldPrice     *float64
	CategoryPath string
	Vendor       string
	Raw          string
}

var widgetPostPattern = regexp.MustCompile(`(?s)retailrocket\.products\.post\((\{.*?\})\)`)

// RecommendationWidget scans inline scripts for the widget's product
// post call and parses its JSON argument. Returns nil when the call is
// absent or its payload does not parse.
func RecommendationWidget(doc *goquery.Document) *WidgetData {
	var raw string

	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		content := s.Text()
		if !strings.Contains(content, "retailrocket") {
			return true
		}
		if match := widgetPostPattern.FindStringSubmatch(content); match != nil {
			raw = match[1]
			return false
		}
		return true
	})

	if raw == "" {
		return nil
	}

	var fields struct {
		OldPrice      json.RawMessage `json:"oldPrice"`
		CategoryPaths []string        `json:"categoryPaths"`
		Vendor        string          `json:"vendor"`
	}
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil
	}

	categoryPath := ""
	if len(fields.CategoryPaths) > 0 {
		categoryPath = fields.CategoryPaths[0]
	}

	return &WidgetData{
		OldPrice:     rawNumber(fields.OldPrice),
		CategoryPath: categoryPath,
		Vendor:       fields.Vendor,
		Raw:          raw,
	}
}
