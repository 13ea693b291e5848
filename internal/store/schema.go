package store

// schema is the full DDL. Every statement is IF NOT EXISTS so Migrate
// can run unconditionally on startup.
const schema = `
CREATE TABLE IF NOT EXISTS listings (
    id                         BIGSERIAL PRIMARY KEY,
    ad_id                      TEXT NOT NULL UNIQUE,
    slug                       TEXT,
    url                        TEXT NOT NULL,
    title                      TEXT,
    description                TEXT,
    price                      NUMERIC,
    currency                   TEXT,
    category                   TEXT,
    subcategory                TEXT,
    region                     TEXT,

    location                   TEXT,
    short_description          TEXT,
    address_country            TEXT,
    address_locality           TEXT,
    street_address             TEXT,
    city                       TEXT,
    housing_type               TEXT,
    latitude                   DOUBLE PRECISION,
    longitude                  DOUBLE PRECISION,

    bedrooms                   INTEGER,
    bathrooms                  NUMERIC,
    parking                    INTEGER,
    area_sqm                   NUMERIC,
    built_area_sqm             NUMERIC,
    land_area_sqm              NUMERIC,
    total_sqm                  NUMERIC,
    price_per_sqm_construction NUMERIC,
    price_per_sqm_land         NUMERIC,
    year_built                 INTEGER,
    levels                     INTEGER,
    floor_number               INTEGER,
    floor_type                 TEXT,
    ceiling_height             NUMERIC,
    maintenance_cost           NUMERIC,
    title_status               TEXT,

    seller_name                TEXT,
    seller_type                TEXT,
    seller_verified            BOOLEAN NOT NULL DEFAULT FALSE,
    feature_level              TEXT,
    discount_pct               NUMERIC,
    favorites_count            INTEGER,
    image_url                  TEXT,
    images                     TEXT[],
    amenities                  TEXT[],
    has_video                  BOOLEAN NOT NULL DEFAULT FALSE,
    has_vr                     BOOLEAN NOT NULL DEFAULT FALSE,
    published_at               TEXT,

    raw_product_meta           TEXT,
    raw_site_data              TEXT,
    raw_widget                 TEXT,

    detail_crawled             BOOLEAN NOT NULL DEFAULT FALSE,
    detail_crawled_at          TIMESTAMPTZ,
    first_seen_at              TIMESTAMPTZ NOT NULL DEFAULT now(),
    last_seen_at               TIMESTAMPTZ NOT NULL DEFAULT now(),
    removed_at                 TIMESTAMPTZ,
    created_at                 TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at                 TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_listings_detail_crawled
    ON listings (detail_crawled) WHERE detail_crawled = FALSE;
CREATE INDEX IF NOT EXISTS idx_listings_category
    ON listings (category, subcategory);
CREATE INDEX IF NOT EXISTS idx_listings_removed_at
    ON listings (removed_at) WHERE removed_at IS NOT NULL;

CREATE TABLE IF NOT EXISTS price_history (
    id          BIGSERIAL PRIMARY KEY,
    listing_id  BIGINT NOT NULL REFERENCES listings (id) ON DELETE CASCADE,
    ad_id       TEXT NOT NULL,
    price       NUMERIC NOT NULL,
    currency    TEXT,
    source      TEXT NOT NULL,
    recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_price_history_listing
    ON price_history (listing_id, recorded_at);

CREATE TABLE IF NOT EXISTS crawl_runs (
    id             BIGSERIAL PRIMARY KEY,
    source         TEXT NOT NULL,
    category       TEXT,
    subcategory    TEXT,
    region         TEXT,
    max_pages      INTEGER,
    status         TEXT NOT NULL DEFAULT 'running',
    pages_crawled  INTEGER NOT NULL DEFAULT 0,
    details_crawled INTEGER NOT NULL DEFAULT 0,
    new_listings   INTEGER NOT NULL DEFAULT 0,
    price_changes  INTEGER NOT NULL DEFAULT 0,
    errors         INTEGER NOT NULL DEFAULT 0,
    error_message  TEXT,
    started_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
    finished_at    TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS crawl_errors (
    id          BIGSERIAL PRIMARY KEY,
    run_id      BIGINT REFERENCES crawl_runs (id) ON DELETE SET NULL,
    url         TEXT NOT NULL,
    label       TEXT NOT NULL,
    error_type  TEXT NOT NULL,
    status_code INTEGER,
    message     TEXT,
    occurred_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_crawl_errors_run
    ON crawl_errors (run_id);
`
