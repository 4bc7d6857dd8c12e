package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/submonth/storefront/internal/domain/siteconfig"
)

const (
	getSiteConfigSQL = `SELECT usd_to_bdt_rate, contact_phone, contact_whatsapp, contact_email,
		site_logo, favicon, hero_slider_interval, hot_deals_speed
		FROM site_config WHERE id = 1`

	saveSiteConfigSQL = `INSERT INTO site_config (id, usd_to_bdt_rate, contact_phone, contact_whatsapp,
		contact_email, site_logo, favicon, hero_slider_interval, hot_deals_speed, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			usd_to_bdt_rate = EXCLUDED.usd_to_bdt_rate,
			contact_phone = EXCLUDED.contact_phone,
			contact_whatsapp = EXCLUDED.contact_whatsapp,
			contact_email = EXCLUDED.contact_email,
			site_logo = EXCLUDED.site_logo,
			favicon = EXCLUDED.favicon,
			hero_slider_interval = EXCLUDED.hero_slider_interval,
			hot_deals_speed = EXCLUDED.hot_deals_speed,
			updated_at = EXCLUDED.updated_at`
)

var _ siteconfig.Repository = (*SiteConfigRepository)(nil)

// SiteConfigRepository implements siteconfig.Repository backed by PostgreSQL.
// The table holds a single row; before an admin saves one, Get falls back to
// siteconfig.Default.
type SiteConfigRepository struct {
	pool *pgxpool.Pool
}

// NewSiteConfigRepository returns a SiteConfigRepository that uses the given pool.
func NewSiteConfigRepository(pool *pgxpool.Pool) *SiteConfigRepository {
	return &SiteConfigRepository{pool: pool}
}

// Get returns the stored site configuration, or the defaults when none has
// been saved yet.
func (r *SiteConfigRepository) Get(ctx context.Context) (*siteconfig.Config, error) {
	rows, err := r.pool.Query(ctx, getSiteConfigSQL)
	if err != nil {
		return nil, fmt.Errorf("getting site config: %w", err)
	}

	cfg, err := pgx.CollectExactlyOneRow(rows, scanSiteConfig)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return siteconfig.Default(), nil
		}
		return nil, fmt.Errorf("getting site config: %w", err)
	}
	return &cfg, nil
}

// Save upserts the single configuration row.
func (r *SiteConfigRepository) Save(ctx context.Context, cfg *siteconfig.Config) error {
	_, err := r.pool.Exec(ctx, saveSiteConfigSQL,
		cfg.USDToBDTRate, cfg.ContactPhone, cfg.ContactWhatsapp, cfg.ContactEmail,
		cfg.SiteLogo, cfg.Favicon, cfg.HeroSliderInterval, cfg.HotDealsSpeed, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving site config: %w", err)
	}
	return nil
}

func scanSiteConfig(row pgx.CollectableRow) (siteconfig.Config, error) {
	var cfg siteconfig.Config
	err := row.Scan(
		&cfg.USDToBDTRate, &cfg.ContactPhone, &cfg.ContactWhatsapp, &cfg.ContactEmail,
		&cfg.SiteLogo, &cfg.Favicon, &cfg.HeroSliderInterval, &cfg.HotDealsSpeed,
	)
	return cfg, err
}
