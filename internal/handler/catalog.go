package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/submonth/storefront/internal/domain/catalog"
	"github.com/submonth/storefront/internal/domain/siteconfig"
)

type pricingOptionResponse struct {
	Duration string          `json:"duration"`
	Price    decimal.Decimal `json:"price"`
}

type productResponse struct {
	ID       string                  `json:"id"`
	Name     string                  `json:"name"`
	Category string                  `json:"category"`
	Pricing  []pricingOptionResponse `json:"pricing"`
	StockOut bool                    `json:"stockOut"`
}

// ListProducts returns the full catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.List(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]productResponse, len(products))
	for i, p := range products {
		out[i] = toProductResponse(p)
	}
	writeJSON(w, http.StatusOK, out)
}

func toProductResponse(p catalog.Product) productResponse {
	pricing := make([]pricingOptionResponse, len(p.Pricing))
	for i, opt := range p.Pricing {
		pricing[i] = pricingOptionResponse{Duration: opt.Duration, Price: opt.Price}
	}
	return productResponse{
		ID:       p.ID,
		Name:     p.Name,
		Category: p.Category,
		Pricing:  pricing,
		StockOut: p.StockOut,
	}
}

type configResponse struct {
	USDToBDTRate       decimal.Decimal `json:"usdToBdtRate"`
	ContactPhone       string          `json:"contactPhone"`
	ContactWhatsapp    string          `json:"contactWhatsapp"`
	ContactEmail       string          `json:"contactEmail"`
	SiteLogo           string          `json:"siteLogo"`
	Favicon            string          `json:"favicon"`
	HeroSliderInterval int             `json:"heroSliderInterval"`
	HotDealsSpeed      int             `json:"hotDealsSpeed"`
}

// GetConfig returns the public site configuration.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.config.Get(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toConfigResponse(cfg))
}

func toConfigResponse(cfg *siteconfig.Config) configResponse {
	return configResponse{
		USDToBDTRate:       cfg.USDToBDTRate,
		ContactPhone:       cfg.ContactPhone,
		ContactWhatsapp:    cfg.ContactWhatsapp,
		ContactEmail:       cfg.ContactEmail,
		SiteLogo:           cfg.SiteLogo,
		Favicon:            cfg.Favicon,
		HeroSliderInterval: cfg.HeroSliderInterval,
		HotDealsSpeed:      cfg.HotDealsSpeed,
	}
}
