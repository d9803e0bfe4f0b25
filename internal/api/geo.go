package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/xovato/agency-backend/internal/oracle"
)

// GeoResolver reads the visitor country from edge-provided headers.
type GeoResolver struct {
	headers  []string
	fallback string
}

func NewGeoResolver(headers []string, fallback string) *GeoResolver {
	if fallback == "" {
		fallback = "PK"
	}
	return &GeoResolver{headers: headers, fallback: strings.ToUpper(fallback)}
}

// Country returns the first two-letter code found in the configured headers,
// normalized for pricing lookups, or the globe fallback.
func (g *GeoResolver) Country(c *fiber.Ctx) string {
	if cc, ok := g.headerCountry(c); ok {
		return cc
	}
	return g.fallback
}

// PricingCountry is Country with oracle.DefaultCountry as the fallback.
func (g *GeoResolver) PricingCountry(c *fiber.Ctx) string {
	if cc, ok := g.headerCountry(c); ok {
		return cc
	}
	return oracle.DefaultCountry
}

func (g *GeoResolver) headerCountry(c *fiber.Ctx) (string, bool) {
	for _, h := range g.headers {
		v := strings.ToUpper(strings.TrimSpace(c.Get(h)))
		if len(v) == 2 && v != "XX" {
			return oracle.NormalizeCountry(v), true
		}
	}
	return "", false
}

// Handler serves GET /geo.
func (g *GeoResolver) Handler(c *fiber.Ctx) error {
	cc := g.Country(c)
	return c.JSON(fiber.Map{
		"country":     cc,
		"countryName": oracle.CountryName(cc),
	})
}
