package payload

import "github.com/trustscan/backend/internal/domain"

// Wire keys of the product-data response. Lookups are exact: no case folding
// or separator rewriting happens outside these tables.
const (
	keyGTIN       = "gtin"
	keyProperties = "properties"
	keyStores     = "stores"

	keyTitle       = "title"
	keyDescription = "description"
	keyFeatures    = "features"

	keyStore      = "store"
	keyImage      = "image"
	keyURL        = "url"
	keyCategories = "categories"
	keyPrice      = "price"
	keyASIN       = "asin"
	keySKU        = "sku"

	keyPriceList     = "list"
	keyPriceSale     = "sale"
	keyPricePrice    = "price"
	keyPriceCurrency = "currency"
	keyPricePerUnit  = "per unit"
)

// listPropertyKeys are the string-or-array attributes.
var listPropertyKeys = map[string]func(*domain.ProductProperties) *[]string{
	keyTitle:       func(p *domain.ProductProperties) *[]string { return &p.Title },
	keyDescription: func(p *domain.ProductProperties) *[]string { return &p.Description },
	keyFeatures:    func(p *domain.ProductProperties) *[]string { return &p.Features },
}

// scalarPropertyKeys maps every single-valued attribute's wire spelling to its field.
var scalarPropertyKeys = map[string]func(*domain.ProductProperties) **string{
	"brand":               func(p *domain.ProductProperties) **string { return &p.Brand },
	"manufacturer":        func(p *domain.ProductProperties) **string { return &p.Manufacturer },
	"mpn":                 func(p *domain.ProductProperties) **string { return &p.MPN },
	"item weight":         func(p *domain.ProductProperties) **string { return &p.ItemWeight },
	"part number":         func(p *domain.ProductProperties) **string { return &p.PartNumber },
	"size":                func(p *domain.ProductProperties) **string { return &p.Size },
	"ingredients":         func(p *domain.ProductProperties) **string { return &p.Ingredients },
	"directions":          func(p *domain.ProductProperties) **string { return &p.Directions },
	"warning":             func(p *domain.ProductProperties) **string { return &p.Warning },
	"label":               func(p *domain.ProductProperties) **string { return &p.Label },
	"distributor address": func(p *domain.ProductProperties) **string { return &p.DistributorAddress },
	"distributor name":    func(p *domain.ProductProperties) **string { return &p.DistributorName },
	"gender":              func(p *domain.ProductProperties) **string { return &p.Gender },
	"formulation":         func(p *domain.ProductProperties) **string { return &p.Formulation },
	"usage":               func(p *domain.ProductProperties) **string { return &p.Usage },
	"spf":                 func(p *domain.ProductProperties) **string { return &p.SPF },
	"volume":              func(p *domain.ProductProperties) **string { return &p.Volume },
	"color":               func(p *domain.ProductProperties) **string { return &p.Color },
	"material":            func(p *domain.ProductProperties) **string { return &p.Material },
	"model":               func(p *domain.ProductProperties) **string { return &p.Model },
	"age":                 func(p *domain.ProductProperties) **string { return &p.Age },
}

// Wire keys of the review response.
const (
	keyStatus     = "status"
	keyRequestID  = "request_id"
	keyParameters = "parameters"
	keyData       = "data"

	keyDataASIN         = "asin"
	keyDataTotalReviews = "total_reviews"
	keyDataTotalRatings = "total_ratings"
	keyDataCountry      = "country"
	keyDataDomain       = "domain"
	keyDataReviews      = "reviews"

	keyReviewID            = "review_id"
	keyReviewTitle         = "review_title"
	keyReviewComment       = "review_comment"
	keyReviewStarRating    = "review_star_rating"
	keyReviewLink          = "review_link"
	keyReviewAuthor        = "review_author"
	keyReviewAuthorAvatar  = "review_author_avatar"
	keyReviewDate          = "review_date"
	keyReviewVerified      = "is_verified_purchase"
	keyReviewHelpfulVotes  = "helpful_vote_statement"
	keyReviewedProductASIN = "reviewed_product_asin"
	keyReviewImages        = "review_images"
	keyReviewVideo         = "review_video"
	keyVideoStreamURL      = "stream_url"
	keyVideoClosedCaptions = "closed_captions_url"
	keyVideoThumbnailURL   = "thumbnail_url"
)
