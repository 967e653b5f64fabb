package ingest

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

const priceScale = 2

var (
	priceStrip  = regexp.MustCompile(`[^0-9.]`)
	priceNumber = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)$`)
)

// ParsePrice turns a free-form currency string ("$1,299.00", "12.5 USD") into a
// two-digit fixed-point value. Anything that is not a number after stripping
// non-digit characters yields an invalid NullDecimal rather than an error.
func ParsePrice(raw string) decimal.NullDecimal {
	cleaned := priceStrip.ReplaceAllString(raw, "")
	if !priceNumber.MatchString(cleaned) {
		return decimal.NullDecimal{}
	}
	if strings.HasPrefix(cleaned, ".") {
		cleaned = "0" + cleaned
	}
	cleaned = strings.TrimSuffix(cleaned, ".")

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d.Round(priceScale))
}
