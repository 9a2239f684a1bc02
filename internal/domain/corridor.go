package domain

import (
	"errors"
	"strings"
	"time"
)

// Region groups corridors for display and filtering
type Region string

const (
	RegionLatinAmerica Region = "Latin America"
	RegionCaribbean    Region = "Caribbean"
	RegionAsia         Region = "Asia"
	RegionAfrica       Region = "Africa"
	RegionEurope       Region = "Europe"
)

// Corridor is a supported outbound destination. Corridors are loaded once
// and never mutated.
type Corridor struct {
	Country        string
	Currency       string        // ISO 4217 code
	DeliveryTime   string        // Human readable bucket, e.g. "35 minutes"
	DeliveryWindow time.Duration // Upper bound of DeliveryTime, used for arrival estimates
	Region         Region
}

// Validate ensures the corridor is usable as catalog data
func (c Corridor) Validate() error {
	if strings.TrimSpace(c.Country) == "" {
		return errors.New("corridor country cannot be empty")
	}
	if len(c.Currency) != 3 || strings.ToUpper(c.Currency) != c.Currency {
		return errors.New("corridor currency must be a 3-letter upper-case code")
	}
	if c.Region == "" {
		return errors.New("corridor region cannot be empty")
	}
	if c.DeliveryWindow <= 0 {
		return errors.New("corridor delivery window must be positive")
	}
	return nil
}
