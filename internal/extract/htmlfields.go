package extract

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"

	"casatrack/internal/parse"
)

// HTMLFields is the partial record read from the labeled field blocks
// of the detail page, together with the page sections that only exist
// in rendered HTML: coordinates, amenities, description, gallery and
// media flags.
type HTMLFields struct {
	Price                   *float64
	Bedrooms                *int
	Bathrooms               *float64
	Parking                 *int
	BuiltAreaSqm            *float64
	LandAreaSqm             *float64
	TotalSqm                *float64
	PricePerSqmConstruction *float64
	PricePerSqmLand         *float64
	YearBuilt               *int
	Levels                  *int
	FloorNumber             *int
	FloorType               string
	CeilingHeight           *float64
	MaintenanceCost         *float64
	TitleStatus             string
	PublishedAt             *string
	Location                string
	Address                 string
	Latitude                *float64
	Longitude               *float64

	Description string
	Images      []string
	Amenities   []string
	HasVideo    bool
	HasVR       bool
}

// labelFields maps normalized Spanish labels to field setters.
var labelFields = map[string]func(*HTMLFields, string){
	"precio":                        func(f *HTMLFields, v string) { f.Price = parse.Price(v) },
	"recamaras":                     func(f *HTMLFields, v string) { f.Bedrooms = parse.IntSafe(v) },
	"banos":                         func(f *HTMLFields, v string) { f.Bathrooms = parse.FloatSafe(v) },
	"parking":                       func(f *HTMLFields, v string) { f.Parking = parse.IntSafe(v) },
	"area construida (m2)":          func(f *HTMLFields, v string) { f.BuiltAreaSqm = parse.Area(v) },
	"area construida":               func(f *HTMLFields, v string) { f.BuiltAreaSqm = parse.Area(v) },
	"area total del terreno (m2)":   func(f *HTMLFields, v string) { f.LandAreaSqm = parse.Area(v) },
	"area total del terreno":        func(f *HTMLFields, v string) { f.LandAreaSqm = parse.Area(v) },
	"m2 totales":                    func(f *HTMLFields, v string) { f.TotalSqm = parse.Area(v) },
	"precio/m2 de construccion":     func(f *HTMLFields, v string) { f.PricePerSqmConstruction = parse.Price(v) },
	"precio/m2 de terreno":          func(f *HTMLFields, v string) { f.PricePerSqmLand = parse.Price(v) },
	"ano de construccion":           func(f *HTMLFields, v string) { f.YearBuilt = parse.IntSafe(v) },
	"niveles":                       func(f *HTMLFields, v string) { f.Levels = parse.IntSafe(v) },
	"piso numero":                   func(f *HTMLFields, v string) { f.FloorNumber = parse.IntSafe(v) },
	"tipo de pisos":                 func(f *HTMLFields, v string) { f.FloorType = v },
	"altura":                        func(f *HTMLFields, v string) { f.CeilingHeight = parse.FloatSafe(v) },
	"costos de mantenimiento":       func(f *HTMLFields, v string) { f.MaintenanceCost = parse.Price(v) },
	"titulacion":                    func(f *HTMLFields, v string) { f.TitleStatus = v },
	"publicado":                     func(f *HTMLFields, v string) { f.PublishedAt = parse.DateDMY(v) },
	"localizacion":                  func(f *HTMLFields, v string) { f.Location = v },
	"direccion exacta":              func(f *HTMLFields, v string) { f.Address = v },
}

var coordsPattern = regexp.MustCompile(`[?&]q=(-?[\d.]+),(-?[\d.]+)`)

// amenitySelectors are tried in order; the first selector yielding any
// items wins, candidates are not unioned.
var amenitySelectors = []string{
	".d3-property-benefits li",
	".d3-property-amenities li",
	".d3-benefits li",
	".amenities li",
	`[class*="benefit"] li`,
	`[class*="ameniti"] li`,
}

// HTMLFieldData scans the labeled field blocks of a detail page. The
// site renders them in two layouts: the property-details label
// containers and, on older pages, plain dt/dd definition lists.
func HTMLFieldData(doc *goquery.Document) HTMLFields {
	fields := HTMLFields{}

	// Primary layout: the label text is the div's own text node, the
	// value lives in the nested detail paragraph.
	doc.Find(".d3-property-details__detail-label").Each(func(_ int, s *goquery.Selection) {
		valueSel := s.Find(".d3-property-details__detail")
		if valueSel.Length() == 0 {
			return
		}

		value := strings.TrimSpace(valueSel.Text())
		if value == "" {
			return
		}

		clone := s.Clone()
		clone.Find(".d3-property-details__detail").Remove()
		label := strings.TrimSpace(clone.Text())
		if label == "" {
			return
		}

		applyLabeledField(&fields, label, value)
	})

	// Fallback layout: dt/dd pairs
	doc.Find("dl dt").Each(func(_ int, dt *goquery.Selection) {
		dd := dt.Next()
		if !dd.Is("dd") {
			return
		}

		label := strings.TrimSpace(dt.Text())
		value := strings.TrimSpace(dd.Text())
		if label == "" || value == "" {
			return
		}

		applyLabeledField(&fields, label, value)
	})

	fields.Latitude, fields.Longitude = mapCoordinates(doc)
	fields.Description = descriptionText(doc)
	fields.Images = galleryImages(doc)
	fields.Amenities = amenityList(doc)
	fields.HasVideo = hasVideoEmbed(doc)
	fields.HasVR = hasVRView(doc)

	return fields
}

func applyLabeledField(fields *HTMLFields, label, value string) {
	setter := labelFields[normalizeLabel(label)]
	if setter == nil {
		return
	}
	setter(fields, value)
}

// normalizeLabel lowercases a label and strips diacritics so "Año de
// construcción" and "ano de construccion" hit the same entry. NFKD
// also folds the superscript in "m²" down to a plain digit.
func normalizeLabel(label string) string {
	lowered := strings.ToLower(strings.TrimSpace(label))
	decomposed := norm.NFKD.String(lowered)

	var b strings.Builder
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// mapCoordinates reads lat,lng from the map embed's q= parameter.
func mapCoordinates(doc *goquery.Document) (*float64, *float64) {
	src, _ := doc.Find(".d3-property__map iframe").Attr("src")

	match := coordsPattern.FindStringSubmatch(src)
	if match == nil {
		return nil, nil
	}

	lat := parse.FloatSafeSigned(match[1])
	lng := parse.FloatSafeSigned(match[2])
	if lat == nil || lng == nil {
		return nil, nil
	}
	return lat, lng
}

func descriptionText(doc *goquery.Document) string {
	about := doc.Find(".d3-property-about")
	if about.Length() == 0 {
		return ""
	}

	// Drop the "Leer mas" toggle before reading the text
	clone := about.Clone()
	clone.Find("button").Remove()
	return strings.TrimSpace(clone.Text())
}

// galleryImages collects the gallery URLs, dropping placeholder and
// data-URI entries and upgrading the thumbnail transform token to the
// full-size one.
func galleryImages(doc *goquery.Document) []string {
	var images []string

	doc.Find(".swiper-slide img").Each(func(_ int, s *goquery.Selection) {
		src, ok := s.Attr("src")
		if !ok || src == "" {
			return
		}
		if strings.Contains(src, "data:image") || strings.Contains(src, "no-image") {
			return
		}

		images = append(images, strings.Replace(src, "t_or_cvr_th", "t_or_fh_l", 1))
	})

	return images
}

func amenityList(doc *goquery.Document) []string {
	for _, selector := range amenitySelectors {
		var amenities []string
		seen := map[string]bool{}

		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if text == "" || seen[text] {
				return
			}
			seen[text] = true
			amenities = append(amenities, text)
		})

		if len(amenities) > 0 {
			return amenities
		}
	}
	return nil
}

func hasVideoEmbed(doc *goquery.Document) bool {
	return doc.Find(`iframe[src*="youtube"]`).Length() > 0 ||
		doc.Find(`iframe[src*="vimeo"]`).Length() > 0 ||
		doc.Find(`[class*="video"]`).Length() > 0
}

func hasVRView(doc *goquery.Document) bool {
	return doc.Find(`[class*="360"]`).Length() > 0 ||
		doc.Find(`iframe[src*="360"]`).Length() > 0 ||
		doc.Find(`[class*="vr"]`).Length() > 0
}
