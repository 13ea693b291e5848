package extract

import "github.com/PuerkitoBio/goquery"

// Detail is the canonical record merged from the four detail-page
// sources. Pointer fields stay nil when no source supplied a value;
// the store only overwrites columns for non-nil fields.
type Detail struct {
	Title       string
	Description string
	Price       *float64
	Currency    string
	OldPrice    *float64

	AddressCountry  string
	AddressLocality string
	StreetAddress   string
	City            string
	HousingType     string
	Latitude        *float64
	Longitude       *float64

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

	Images   []string
	HasVideo bool
	HasVR    bool

	SellerName string
	SellerType string

	Amenities []string

	PublishedAt *string

	RawProductMeta string
	RawSiteData    string
	RawWidget      string
}

// DetailData runs the four source extractors over a detail page and
// merges their partial records.
func DetailData(doc *goquery.Document) Detail {
	meta := ProductMetadata(doc)
	site := SiteCatalogData(doc)
	html := HTMLFieldData(doc)
	widget := RecommendationWidget(doc)

	return MergeSources(meta, site, html, widget)
}

// MergeSources combines the four partial records field by field. Each
// field consults sources in a fixed reliability order and takes the
// first non-null value; sources are never blended within one field.
// The function is pure: fixed inputs always produce the same record.
func MergeSources(meta *ProductMeta, site *SiteData, html HTMLFields, widget *WidgetData) Detail {
	d := Detail{
		// HTML-only sections
		Description:             html.Description,
		Latitude:                html.Latitude,
		Longitude:               html.Longitude,
		Bathrooms:               html.Bathrooms,
		Parking:                 html.Parking,
		LandAreaSqm:             html.LandAreaSqm,
		TotalSqm:                html.TotalSqm,
		PricePerSqmConstruction: html.PricePerSqmConstruction,
		PricePerSqmLand:         html.PricePerSqmLand,
		YearBuilt:               html.YearBuilt,
		Levels:                  html.Levels,
		FloorNumber:             html.FloorNumber,
		FloorType:               html.FloorType,
		CeilingHeight:           html.CeilingHeight,
		MaintenanceCost:         html.MaintenanceCost,
		TitleStatus:             html.TitleStatus,
		Images:                  html.Images,
		HasVideo:                html.HasVideo,
		HasVR:                   html.HasVR,
		Amenities:               html.Amenities,
		PublishedAt:             html.PublishedAt,

		// Price here is only the labeled-fields fallback; the embedded
		// catalog copy and the structured metadata each override it
		// below, in that order.
		Price: html.Price,

		// Specs with a catalog fallback
		Bedrooms:     html.Bedrooms,
		BuiltAreaSqm: html.BuiltAreaSqm,

		// Locality: structured metadata, catalog region, HTML location
		AddressLocality: html.Location,
		StreetAddress:   html.Address,

		Currency: "USD",
	}

	if site != nil {
		if site.Price != nil {
			d.Price = site.Price
		}
		if d.Bedrooms == nil {
			d.Bedrooms = site.Bedrooms
		}
		if d.BuiltAreaSqm == nil {
			d.BuiltAreaSqm = site.Size
		}
		if site.Region != "" {
			d.AddressLocality = site.Region
		}
		d.City = site.ParentRegion
		d.HousingType = site.HousingType
		d.RawSiteData = site.Raw
	}

	if meta != nil {
		d.Title = meta.Name
		if d.Description == "" {
			d.Description = meta.Description
		}
		if meta.Price != nil {
			d.Price = meta.Price
		}
		if meta.Currency != "" {
			d.Currency = meta.Currency
		}
		if meta.AddressCountry != "" {
			d.AddressCountry = meta.AddressCountry
		}
		if meta.AddressLocality != "" {
			d.AddressLocality = meta.AddressLocality
		}
		if meta.StreetAddress != "" {
			d.StreetAddress = meta.StreetAddress
		}
		d.SellerName = meta.SellerName
		d.SellerType = meta.SellerType
		d.RawProductMeta = meta.Raw
	}

	if widget != nil {
		d.OldPrice = widget.OldPrice
		if widget.Vendor != "" {
			d.SellerName = widget.Vendor
		}
		d.RawWidget = widget.Raw
	}

	return d
}
