package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"casatrack/internal/extract"
)

// CardOutcome reports what a results-page card did to the stored
// record. NeedsDetail is the routing decision: only new listings and
// price changes earn a detail fetch this cycle.
type CardOutcome struct {
	New          bool
	PriceChanged bool
	OldPrice     *float64
	NeedsDetail  bool
}

// ListingRef identifies a stored listing that still needs its detail
// page.
type ListingRef struct {
	AdID string
	URL  string
}

const historySourceCrawl = "crawl"
const historySourceWidget = "retail_rocket_old_price"

// decideCard is the pure change-detection step: given the stored price
// (nil pointer when the listing is unknown) and the card's price, it
// produces the outcome without touching the database.
func decideCard(exists bool, storedPrice, cardPrice *float64) CardOutcome {
	if !exists {
		return CardOutcome{New: true, NeedsDetail: true}
	}

	// A card whose price failed to parse says nothing about a change;
	// the stored price stands until a parseable one shows up.
	if cardPrice == nil || !pricesDiffer(storedPrice, cardPrice) {
		return CardOutcome{}
	}

	return CardOutcome{
		PriceChanged: true,
		OldPrice:     storedPrice,
		NeedsDetail:  true,
	}
}

func pricesDiffer(a, b *float64) bool {
	if a == nil || b == nil {
		return a != b
	}
	return *a != *b
}

// ApplyCard upserts one results-page card. For a known listing whose
// price moved, the previously stored price is appended to
// price_history before the row is overwritten, and detail_crawled is
// reset so the next cycle refreshes the full record. A price change
// from an unknown (null) stored price records no history entry, and an
// unchanged sighting only advances last_seen_at.
func (s *Store) ApplyCard(ctx context.Context, card extract.Card, category, subcategory, region string) (CardOutcome, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return CardOutcome{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		listingID   int64
		storedPrice *float64
		currency    *string
	)
	exists := true
	err = tx.QueryRow(ctx,
		`SELECT id, price, currency FROM listings WHERE ad_id = $1 FOR UPDATE`,
		card.AdID,
	).Scan(&listingID, &storedPrice, &currency)
	if err == pgx.ErrNoRows {
		exists = false
	} else if err != nil {
		return CardOutcome{}, fmt.Errorf("failed to load listing %s: %w", card.AdID, err)
	}

	outcome := decideCard(exists, storedPrice, card.Price)

	if outcome.New {
		err = tx.QueryRow(ctx, `
			INSERT INTO listings (
				ad_id, slug, url, title, price, category, subcategory, region,
				location, short_description, bedrooms, bathrooms, parking,
				area_sqm, seller_name, seller_verified, feature_level,
				discount_pct, favorites_count, image_url
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
			RETURNING id`,
			card.AdID, card.Slug, card.URL, card.Title, card.Price,
			category, subcategory, region, card.Location, card.ShortDescription,
			card.Bedrooms, card.Bathrooms, card.Parking, card.AreaSqm,
			card.SellerName, card.SellerVerified, card.FeatureLevel,
			card.DiscountPct, card.FavoritesCount, card.ImageURL,
		).Scan(&listingID)
		if err != nil {
			return CardOutcome{}, fmt.Errorf("failed to insert listing %s: %w", card.AdID, err)
		}

		if err := tx.Commit(ctx); err != nil {
			return CardOutcome{}, fmt.Errorf("failed to commit listing %s: %w", card.AdID, err)
		}
		return outcome, nil
	}

	if !outcome.PriceChanged {
		_, err = tx.Exec(ctx,
			`UPDATE listings SET last_seen_at = now() WHERE id = $1`,
			listingID,
		)
		if err != nil {
			return CardOutcome{}, fmt.Errorf("failed to touch listing %s: %w", card.AdID, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return CardOutcome{}, fmt.Errorf("failed to commit listing %s: %w", card.AdID, err)
		}
		return outcome, nil
	}

	// History first, then the overwrite. The history row carries the
	// price the listing had before this observation.
	if outcome.OldPrice != nil {
		_, err = tx.Exec(ctx, `
			INSERT INTO price_history (listing_id, ad_id, price, currency, source)
			VALUES ($1, $2, $3, $4, $5)`,
			listingID, card.AdID, *outcome.OldPrice, currency, historySourceCrawl,
		)
		if err != nil {
			return CardOutcome{}, fmt.Errorf("failed to record price history for %s: %w", card.AdID, err)
		}
	}

	_, err = tx.Exec(ctx, `
		UPDATE listings SET
			slug = $2,
			url = $3,
			title = $4,
			price = $5,
			location = $6,
			short_description = $7,
			bedrooms = COALESCE($8, bedrooms),
			bathrooms = COALESCE($9, bathrooms),
			parking = COALESCE($10, parking),
			area_sqm = COALESCE($11, area_sqm),
			seller_name = COALESCE(NULLIF($12, ''), seller_name),
			seller_verified = $13,
			feature_level = $14,
			discount_pct = $15,
			favorites_count = COALESCE($16, favorites_count),
			image_url = COALESCE(NULLIF($17, ''), image_url),
			category = COALESCE(NULLIF($18, ''), category),
			subcategory = COALESCE(NULLIF($19, ''), subcategory),
			region = COALESCE(NULLIF($20, ''), region),
			detail_crawled = FALSE,
			last_seen_at = now(),
			updated_at = now()
		WHERE id = $1`,
		listingID, card.Slug, card.URL, card.Title, card.Price,
		card.Location, card.ShortDescription, card.Bedrooms, card.Bathrooms,
		card.Parking, card.AreaSqm, card.SellerName, card.SellerVerified,
		card.FeatureLevel, card.DiscountPct, card.FavoritesCount,
		card.ImageURL, category, subcategory, region,
	)
	if err != nil {
		return CardOutcome{}, fmt.Errorf("failed to update listing %s: %w", card.AdID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return CardOutcome{}, fmt.Errorf("failed to commit listing %s: %w", card.AdID, err)
	}
	return outcome, nil
}

// ApplyDetail merges a detail-page record into the stored listing and
// marks it crawled. Only fields the page actually supplied overwrite
// their columns. The widget's previous asking price lands in
// price_history at most once per listing; recrawls never add a second
// row even if the widget's value moved.
func (s *Store) ApplyDetail(ctx context.Context, adID string, d extract.Detail) error {
	set := []string{
		"detail_crawled = TRUE",
		"detail_crawled_at = now()",
		"updated_at = now()",
	}
	args := []any{adID}

	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	addString := func(column, value string) {
		if value != "" {
			add(column, value)
		}
	}

	addString("title", d.Title)
	addString("description", d.Description)
	if d.Price != nil {
		add("price", d.Price)
	}
	addString("currency", d.Currency)
	addString("address_country", d.AddressCountry)
	addString("address_locality", d.AddressLocality)
	addString("street_address", d.StreetAddress)
	addString("city", d.City)
	addString("housing_type", d.HousingType)
	if d.Latitude != nil {
		add("latitude", d.Latitude)
		add("longitude", d.Longitude)
	}
	if d.Bedrooms != nil {
		add("bedrooms", d.Bedrooms)
	}
	if d.Bathrooms != nil {
		add("bathrooms", d.Bathrooms)
	}
	if d.Parking != nil {
		add("parking", d.Parking)
	}
	if d.BuiltAreaSqm != nil {
		add("built_area_sqm", d.BuiltAreaSqm)
	}
	if d.LandAreaSqm != nil {
		add("land_area_sqm", d.LandAreaSqm)
	}
	if d.TotalSqm != nil {
		add("total_sqm", d.TotalSqm)
	}
	if d.PricePerSqmConstruction != nil {
		add("price_per_sqm_construction", d.PricePerSqmConstruction)
	}
	if d.PricePerSqmLand != nil {
		add("price_per_sqm_land", d.PricePerSqmLand)
	}
	if d.YearBuilt != nil {
		add("year_built", d.YearBuilt)
	}
	if d.Levels != nil {
		add("levels", d.Levels)
	}
	if d.FloorNumber != nil {
		add("floor_number", d.FloorNumber)
	}
	addString("floor_type", d.FloorType)
	if d.CeilingHeight != nil {
		add("ceiling_height", d.CeilingHeight)
	}
	if d.MaintenanceCost != nil {
		add("maintenance_cost", d.MaintenanceCost)
	}
	addString("title_status", d.TitleStatus)
	addString("seller_name", d.SellerName)
	addString("seller_type", d.SellerType)
	if len(d.Images) > 0 {
		add("images", d.Images)
	}
	if len(d.Amenities) > 0 {
		add("amenities", d.Amenities)
	}
	add("has_video", d.HasVideo)
	add("has_vr", d.HasVR)
	if d.PublishedAt != nil {
		add("published_at", d.PublishedAt)
	}
	addString("raw_product_meta", d.RawProductMeta)
	addString("raw_site_data", d.RawSiteData)
	addString("raw_widget", d.RawWidget)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var listingID int64
	query := fmt.Sprintf(
		`UPDATE listings SET %s WHERE ad_id = $1 RETURNING id`,
		strings.Join(set, ", "),
	)
	if err := tx.QueryRow(ctx, query, args...).Scan(&listingID); err != nil {
		if err == pgx.ErrNoRows {
			return fmt.Errorf("listing %s not found", adID)
		}
		return fmt.Errorf("failed to update detail for %s: %w", adID, err)
	}

	if d.OldPrice != nil {
		_, err = tx.Exec(ctx, `
			INSERT INTO price_history (listing_id, ad_id, price, currency, source)
			SELECT $1, $2, $3, $4, $5
			WHERE NOT EXISTS (
				SELECT 1 FROM price_history
				WHERE listing_id = $1 AND source = $5
			)`,
			listingID, adID, *d.OldPrice, d.Currency, historySourceWidget,
		)
		if err != nil {
			return fmt.Errorf("failed to record widget price for %s: %w", adID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit detail for %s: %w", adID, err)
	}
	return nil
}

// MarkRemoved soft-deletes a listing whose detail page is gone. The
// timestamp is written once; repeat sightings of the dead page report
// false and leave the original removal time in place.
func (s *Store) MarkRemoved(ctx context.Context, adID string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE listings SET removed_at = now(), updated_at = now()
		 WHERE ad_id = $1 AND removed_at IS NULL`,
		adID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark %s removed: %w", adID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// Uncrawled lists live listings still waiting for a detail crawl,
// optionally narrowed to one category or subcategory.
func (s *Store) Uncrawled(ctx context.Context, category, subcategory string, limit int) ([]ListingRef, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ad_id, url FROM listings
		WHERE detail_crawled = FALSE
		  AND removed_at IS NULL
		  AND ($1 = '' OR category = $1)
		  AND ($2 = '' OR subcategory = $2)
		ORDER BY last_seen_at DESC
		LIMIT $3`,
		category, subcategory, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query uncrawled listings: %w", err)
	}
	defer rows.Close()

	var refs []ListingRef
	for rows.Next() {
		var ref ListingRef
		if err := rows.Scan(&ref.AdID, &ref.URL); err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}
