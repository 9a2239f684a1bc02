package corridor

import (
	"fmt"
	"strings"
	"time"

	"github.com/remitflow/remitflow-backend/internal/domain"
)

// DefaultCorridors is the reference table of supported destinations.
// Order matters: it drives the grouping order of Filter.
var DefaultCorridors = []domain.Corridor{
	{Country: "Mexico", Currency: "MXN", DeliveryTime: "35 minutes", DeliveryWindow: 35 * time.Minute, Region: domain.RegionLatinAmerica},
	{Country: "Colombia", Currency: "COP", DeliveryTime: "1-3 hours", DeliveryWindow: 3 * time.Hour, Region: domain.RegionLatinAmerica},
	{Country: "Guatemala", Currency: "GTQ", DeliveryTime: "35 minutes", DeliveryWindow: 35 * time.Minute, Region: domain.RegionLatinAmerica},
	{Country: "Honduras", Currency: "HNL", DeliveryTime: "1-3 hours", DeliveryWindow: 3 * time.Hour, Region: domain.RegionLatinAmerica},
	{Country: "El Salvador", Currency: "USD", DeliveryTime: "35 minutes", DeliveryWindow: 35 * time.Minute, Region: domain.RegionLatinAmerica},
	{Country: "Peru", Currency: "PEN", DeliveryTime: "1-3 hours", DeliveryWindow: 3 * time.Hour, Region: domain.RegionLatinAmerica},
	{Country: "Brazil", Currency: "BRL", DeliveryTime: "1-2 business days", DeliveryWindow: 48 * time.Hour, Region: domain.RegionLatinAmerica},
	{Country: "Dominican Republic", Currency: "DOP", DeliveryTime: "1-3 hours", DeliveryWindow: 3 * time.Hour, Region: domain.RegionCaribbean},
	{Country: "Jamaica", Currency: "JMD", DeliveryTime: "1-2 business days", DeliveryWindow: 48 * time.Hour, Region: domain.RegionCaribbean},
	{Country: "Philippines", Currency: "PHP", DeliveryTime: "35 minutes", DeliveryWindow: 35 * time.Minute, Region: domain.RegionAsia},
	{Country: "India", Currency: "INR", DeliveryTime: "1-3 hours", DeliveryWindow: 3 * time.Hour, Region: domain.RegionAsia},
	{Country: "Vietnam", Currency: "VND", DeliveryTime: "1-2 business days", DeliveryWindow: 48 * time.Hour, Region: domain.RegionAsia},
	{Country: "Nigeria", Currency: "NGN", DeliveryTime: "1-3 hours", DeliveryWindow: 3 * time.Hour, Region: domain.RegionAfrica},
	{Country: "Kenya", Currency: "KES", DeliveryTime: "35 minutes", DeliveryWindow: 35 * time.Minute, Region: domain.RegionAfrica},
	{Country: "Ghana", Currency: "GHS", DeliveryTime: "1-3 hours", DeliveryWindow: 3 * time.Hour, Region: domain.RegionAfrica},
	{Country: "Spain", Currency: "EUR", DeliveryTime: "1-2 business days", DeliveryWindow: 48 * time.Hour, Region: domain.RegionEurope},
	{Country: "United Kingdom", Currency: "GBP", DeliveryTime: "1-2 business days", DeliveryWindow: 48 * time.Hour, Region: domain.RegionEurope},
}

// Catalog is an immutable lookup over supported corridors
type Catalog struct {
	corridors []domain.Corridor
	byCountry map[string]int
	regions   []domain.Region
}

// NewCatalog builds a catalog from the given corridors. Every corridor is
// validated and country names must be unique ignoring case.
func NewCatalog(corridors []domain.Corridor) (*Catalog, error) {
	c := &Catalog{
		corridors: make([]domain.Corridor, 0, len(corridors)),
		byCountry: make(map[string]int, len(corridors)),
	}
	seenRegion := make(map[domain.Region]bool)

	for _, cor := range corridors {
		if err := cor.Validate(); err != nil {
			return nil, fmt.Errorf("corridor %q: %w", cor.Country, err)
		}
		key := normalizeCountry(cor.Country)
		if _, dup := c.byCountry[key]; dup {
			return nil, fmt.Errorf("corridor %q is defined twice", cor.Country)
		}
		c.byCountry[key] = len(c.corridors)
		c.corridors = append(c.corridors, cor)
		if !seenRegion[cor.Region] {
			seenRegion[cor.Region] = true
			c.regions = append(c.regions, cor.Region)
		}
	}

	return c, nil
}

// MustDefault returns a catalog over DefaultCorridors
func MustDefault() *Catalog {
	c, err := NewCatalog(DefaultCorridors)
	if err != nil {
		panic(err)
	}
	return c
}

// Find looks a corridor up by country name (case-insensitive exact match).
// Absence is a normal negative result.
func (c *Catalog) Find(country string) (domain.Corridor, bool) {
	idx, ok := c.byCountry[normalizeCountry(country)]
	if !ok {
		return domain.Corridor{}, false
	}
	return c.corridors[idx], true
}

// Filter returns corridors grouped by region, regions in first-seen order and
// insertion order preserved within a region. An empty region returns every
// corridor; an unknown region returns an empty slice.
func (c *Catalog) Filter(region string) []domain.Corridor {
	want := strings.TrimSpace(region)
	out := make([]domain.Corridor, 0, len(c.corridors))
	for _, r := range c.regions {
		if want != "" && !strings.EqualFold(string(r), want) {
			continue
		}
		for _, cor := range c.corridors {
			if cor.Region == r {
				out = append(out, cor)
			}
		}
	}
	return out
}

// Regions lists the region tags in display order
func (c *Catalog) Regions() []domain.Region {
	out := make([]domain.Region, len(c.regions))
	copy(out, c.regions)
	return out
}

func normalizeCountry(country string) string {
	return strings.ToLower(strings.TrimSpace(country))
}
