package usecase

import (
	"fmt"
	"strings"

	"github.com/trustscan/backend/internal/domain"
)

// marketplaces maps a store display name to the review API country code.
// Lookups are exact; store names not listed here have no review source.
var marketplaces = map[string]string{
	"Amazon US": "US",
	"Amazon UK": "GB",
	"Amazon DE": "DE",
	"Amazon FR": "FR",
	"Amazon CA": "CA",
	"Amazon IT": "IT",
	"Amazon ES": "ES",
	"Amazon JP": "JP",
	"Amazon IN": "IN",
	"Amazon AU": "AU",
}

// MarketplaceCountry returns the review API country for a store name.
func MarketplaceCountry(store string) (string, bool) {
	country, ok := marketplaces[store]
	return country, ok
}

// ResolveReviewSource picks the first store, in payload order, that has an
// ASIN and a known marketplace.
func ResolveReviewSource(stores []domain.StoreOffer) (domain.ReviewQuery, bool) {
	for _, store := range stores {
		if store.ASIN == nil || *store.ASIN == "" {
			continue
		}
		country, ok := MarketplaceCountry(store.Store)
		if !ok {
			continue
		}
		return domain.ReviewQuery{ASIN: *store.ASIN, Country: country, Page: 1}, true
	}
	return domain.ReviewQuery{}, false
}

// NormalizeGTIN strips spaces and hyphens from a scanned code and checks that
// 8 to 14 digits remain.
func NormalizeGTIN(raw string) (string, error) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case r == ' ' || r == '-':
			continue
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			return "", fmt.Errorf("%w: gtin must contain digits only", domain.ErrInvalidRequest)
		}
	}

	gtin := b.String()
	if len(gtin) < 8 || len(gtin) > 14 {
		return "", fmt.Errorf("%w: gtin must have 8 to 14 digits, got %d", domain.ErrInvalidRequest, len(gtin))
	}
	return gtin, nil
}
