package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/submonth/storefront/internal/domain/catalog"
	"github.com/submonth/storefront/internal/domain/siteconfig"
	"github.com/submonth/storefront/internal/repository"
)

type pricingJSON struct {
	Duration string          `json:"duration"`
	Price    decimal.Decimal `json:"price"`
}

type productJSON struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Category string        `json:"category"`
	Pricing  []pricingJSON `json:"pricing"`
	StockOut bool          `json:"stockOut"`
}

type siteConfigJSON struct {
	USDToBDTRate       decimal.Decimal `json:"usdToBdtRate"`
	ContactPhone       string          `json:"contactPhone"`
	ContactWhatsapp    string          `json:"contactWhatsapp"`
	ContactEmail       string          `json:"contactEmail"`
	SiteLogo           string          `json:"siteLogo"`
	Favicon            string          `json:"favicon"`
	HeroSliderInterval int             `json:"heroSliderInterval"`
	HotDealsSpeed      int             `json:"hotDealsSpeed"`
}

func main() {
	var (
		databaseURL string
		catalogFile string
		configFile  string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "db/seed/catalog.json", "path to catalog JSON file")
	flag.StringVar(&configFile, "config-file", "", "optional path to site config JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile, configFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile, configFile string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedCatalog(ctx, repository.NewProductRepository(pool), catalogFile); err != nil {
		return errors.Wrap(err, "seed catalog")
	}

	if configFile != "" {
		if err := seedSiteConfig(ctx, repository.NewSiteConfigRepository(pool), configFile); err != nil {
			return errors.Wrap(err, "seed site config")
		}
	}

	return nil
}

func seedCatalog(ctx context.Context, repo *repository.ProductRepository, catalogFile string) error {
	slog.Info("reading catalog file", slog.String("path", catalogFile))

	data, err := os.ReadFile(catalogFile)
	if err != nil {
		return errors.Wrap(err, "read catalog file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse catalog JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		pricing := make([]catalog.PricingOption, len(p.Pricing))
		for i, opt := range p.Pricing {
			pricing[i] = catalog.PricingOption{Duration: opt.Duration, Price: opt.Price}
		}
		if err := repo.Upsert(ctx, &catalog.Product{
			ID:       p.ID,
			Name:     p.Name,
			Category: p.Category,
			Pricing:  pricing,
			StockOut: p.StockOut,
		}); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}

func seedSiteConfig(ctx context.Context, repo *repository.SiteConfigRepository, configFile string) error {
	slog.Info("reading site config file", slog.String("path", configFile))

	data, err := os.ReadFile(configFile)
	if err != nil {
		return errors.Wrap(err, "read site config file")
	}

	var raw siteConfigJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "parse site config JSON")
	}

	cfg := siteconfig.Default()
	if !raw.USDToBDTRate.IsZero() {
		cfg.USDToBDTRate = raw.USDToBDTRate
	}
	if raw.ContactPhone != "" {
		cfg.ContactPhone = raw.ContactPhone
	}
	if raw.ContactWhatsapp != "" {
		cfg.ContactWhatsapp = raw.ContactWhatsapp
	}
	if raw.ContactEmail != "" {
		cfg.ContactEmail = raw.ContactEmail
	}
	cfg.SiteLogo = raw.SiteLogo
	cfg.Favicon = raw.Favicon
	if raw.HeroSliderInterval > 0 {
		cfg.HeroSliderInterval = raw.HeroSliderInterval
	}
	if raw.HotDealsSpeed > 0 {
		cfg.HotDealsSpeed = raw.HotDealsSpeed
	}

	if err := repo.Save(ctx, cfg); err != nil {
		return errors.Wrap(err, "save site config")
	}

	slog.Info("saved site config", slog.String("rate", cfg.USDToBDTRate.String()))
	return nil
}
