// Package parse holds the small typed-value parsers the extractors
// route raw page text through. Every parser returns nil instead of
// failing so missing or garbled page data degrades to an absent field.
package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	nonPriceChars = regexp.MustCompile(`[^0-9.]`)
	nonDigits     = regexp.MustCompile(`[^0-9]`)
	areaPattern   = regexp.MustCompile(`([\d,.]+)`)
	floatPattern  = regexp.MustCompile(`([\d.]+)`)
	datePattern   = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	pctPattern    = regexp.MustCompile(`-?\s*(\d+(?:\.\d+)?)\s*%`)
	intPattern    = regexp.MustCompile(`(\d+)`)
)

// Price parses a price string like "$105,000" or "105000".
func Price(raw string) *float64 {
	if raw == "" {
		return nil
	}

	cleaned := nonPriceChars.ReplaceAllString(raw, "")
	if cleaned == "" {
		return nil
	}

	num, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &num
}

// Area parses an area string like "350 m2" or "1,250.5".
func Area(raw string) *float64 {
	if raw == "" {
		return nil
	}

	match := areaPattern.FindStringSubmatch(raw)
	if match == nil {
		return nil
	}

	cleaned := strings.ReplaceAll(match[1], ",", "")
	num, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &num
}

// IntSafe parses an integer out of a string, ignoring all non-digits.
func IntSafe(raw string) *int {
	if raw == "" {
		return nil
	}

	cleaned := nonDigits.ReplaceAllString(raw, "")
	if cleaned == "" {
		return nil
	}

	num, err := strconv.Atoi(cleaned)
	if err != nil {
		return nil
	}
	return &num
}

// FloatSafe parses a decimal value, e.g. bathrooms like "2.5".
func FloatSafe(raw string) *float64 {
	if raw == "" {
		return nil
	}

	match := floatPattern.FindStringSubmatch(raw)
	if match == nil {
		return nil
	}

	num, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return nil
	}
	return &num
}

// FloatSafeSigned parses a decimal that may carry a leading minus,
// e.g. map coordinates.
func FloatSafeSigned(raw string) *float64 {
	num, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return nil
	}
	return &num
}

// DateDMY parses a DD/MM/YYYY date into ISO YYYY-MM-DD. Any other
// shape yields nil.
func DateDMY(raw string) *string {
	match := datePattern.FindStringSubmatch(strings.TrimSpace(raw))
	if match == nil {
		return nil
	}

	day, _ := strconv.Atoi(match[1])
	month, _ := strconv.Atoi(match[2])
	iso := fmt.Sprintf("%s-%02d-%02d", match[3], month, day)
	return &iso
}

// Discount parses a discount badge like "-3%" or "14 %". The result is
// always negative regardless of how the badge spells the sign.
func Discount(raw string) *float64 {
	match := pctPattern.FindStringSubmatch(raw)
	if match == nil {
		return nil
	}

	num, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return nil
	}
	neg := -num
	if neg > 0 {
		neg = -neg
	}
	return &neg
}

// Favorites parses the first integer out of a free-text label like
// "10 Favoritos".
func Favorites(raw string) *int {
	match := intPattern.FindStringSubmatch(raw)
	if match == nil {
		return nil
	}

	num, err := strconv.Atoi(match[1])
	if err != nil {
		return nil
	}
	return &num
}
