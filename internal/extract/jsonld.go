package extract

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ProductMeta is the partial record read from the embedded JSON-LD
// product block. Raw keeps the untouched payload for audit storage.
type ProductMeta struct {
	Name            string
	Description     string
	Price           *float64
	Currency        string
	Availability    string
	ImageURL        string
	AddressCountry  string
	AddressLocality string
	StreetAddress   string
	PostalCode      string
	SellerName      string
	SellerType      string
	Raw             string
}

var agentPrefix = regexp.MustCompile(`(?i)^Agente\s+`)

type jsonLDDocument struct {
	Type        string          `json:"@type"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Image       json.RawMessage `json:"image"`
	Offers      struct {
		Price             json.RawMessage `json:"price"`
		PriceCurrency     string          `json:"priceCurrency"`
		Availability      string          `json:"availability"`
		AvailableAtOrFrom struct {
			Address struct {
				AddressCountry  string `json:"addressCountry"`
				AddressLocality string `json:"addressLocality"`
				StreetAddress   string `json:"streetAddress"`
				PostalCode      string `json:"postalCode"`
			} `json:"address"`
		} `json:"availableAtOrFrom"`
		Seller struct {
			Type string `json:"@type"`
			Name string `json:"name"`
		} `json:"seller"`
	} `json:"offers"`
}

// ProductMetadata locates the JSON-LD block typed as a product
// offering and returns its partial record, or nil when the block is
// absent or unparseable.
func ProductMetadata(doc *goquery.Document) *ProductMeta {
	var raw string

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		content := s.Text()
		if strings.Contains(content, `"Product"`) {
			raw = content
		}
	})

	if raw == "" {
		return nil
	}

	var data jsonLDDocument
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil
	}
	if data.Type != "Product" {
		return nil
	}

	sellerName := strings.TrimSpace(agentPrefix.ReplaceAllString(data.Offers.Seller.Name, ""))

	sellerType := ""
	if data.Offers.Seller.Name != "" || data.Offers.Seller.Type != "" {
		sellerType = "owner"
		if data.Offers.Seller.Type == "Organization" {
			sellerType = "agent"
		}
	}

	addr := data.Offers.AvailableAtOrFrom.Address

	return &ProductMeta{
		Name:            data.Name,
		Description:     data.Description,
		Price:           rawNumber(data.Offers.Price),
		Currency:        data.Offers.PriceCurrency,
		Availability:    data.Offers.Availability,
		ImageURL:        imageContentURL(data.Image),
		AddressCountry:  addr.AddressCountry,
		AddressLocality: addr.AddressLocality,
		StreetAddress:   addr.StreetAddress,
		PostalCode:      addr.PostalCode,
		SellerName:      sellerName,
		SellerType:      sellerType,
		Raw:             raw,
	}
}

// rawNumber parses a JSON value that sites emit either as a number or
// as a quoted string.
func rawNumber(raw json.RawMessage) *float64 {
	if len(raw) == 0 {
		return nil
	}

	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return nil
	}

	num, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &num
}

// imageContentURL reads image.contentUrl whether image is an object or
// an array of objects.
func imageContentURL(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var obj struct {
		ContentURL string `json:"contentUrl"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.ContentURL != "" {
		return obj.ContentURL
	}

	var list []struct {
		ContentURL string `json:"contentUrl"`
	}
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return list[0].ContentURL
	}

	return ""
}
