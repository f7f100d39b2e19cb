package domain

// Product is the canonical form of a product-data API response for one GTIN.
type Product struct {
	GTIN       string            `json:"gtin"`
	Properties ProductProperties `json:"properties"`
	Stores     []StoreOffer      `json:"stores"`
}

// ProductProperties holds the named attributes of a product. Title always has
// at least one entry; every other attribute is optional.
type ProductProperties struct {
	Title              []string `json:"title"`
	Description        []string `json:"description,omitempty"`
	Brand              *string  `json:"brand,omitempty"`
	Manufacturer       *string  `json:"manufacturer,omitempty"`
	MPN                *string  `json:"mpn,omitempty"`
	Features           []string `json:"features,omitempty"`
	ItemWeight         *string  `json:"itemWeight,omitempty"`
	PartNumber         *string  `json:"partNumber,omitempty"`
	Size               *string  `json:"size,omitempty"`
	Ingredients        *string  `json:"ingredients,omitempty"`
	Directions         *string  `json:"directions,omitempty"`
	Warning            *string  `json:"warning,omitempty"`
	Label              *string  `json:"label,omitempty"`
	DistributorAddress *string  `json:"distributorAddress,omitempty"`
	DistributorName    *string  `json:"distributorName,omitempty"`
	Gender             *string  `json:"gender,omitempty"`
	Formulation        *string  `json:"formulation,omitempty"`
	Usage              *string  `json:"usage,omitempty"`
	SPF                *string  `json:"spf,omitempty"`
	Volume             *string  `json:"volume,omitempty"`
	Color              *string  `json:"color,omitempty"`
	Material           *string  `json:"material,omitempty"`
	Model              *string  `json:"model,omitempty"`
	Age                *string  `json:"age,omitempty"`

	// Additional keeps attributes the key table does not name, keyed by their wire spelling.
	Additional map[string][]string `json:"additional,omitempty"`
}

// StoreOffer is one store listing of a product.
type StoreOffer struct {
	ID         string   `json:"id"` // generated per decode
	Store      string   `json:"store"`
	Image      *string  `json:"image,omitempty"`
	URL        string   `json:"url"` // empty means no link
	Categories []string `json:"categories,omitempty"`
	Price      *Price   `json:"price,omitempty"`
	ASIN       *string  `json:"asin,omitempty"`
	SKU        *string  `json:"sku,omitempty"`
}

// HasLink reports whether the offer carries a usable URL.
func (s StoreOffer) HasLink() bool {
	return s.URL != ""
}

// Price holds the price fields of a store offer as strings, exactly as the
// source spelled them.
type Price struct {
	List     *string `json:"list,omitempty"`
	Sale     *string `json:"sale,omitempty"`
	Price    *string `json:"price,omitempty"`
	Currency *string `json:"currency,omitempty"`
	PerUnit  *string `json:"perUnit,omitempty"`
}

// PrimaryTitle returns the first title of the product.
func (p *Product) PrimaryTitle() string {
	if len(p.Properties.Title) == 0 {
		return ""
	}
	return p.Properties.Title[0]
}

// Images returns the image URLs of all offers, in store order.
func (p *Product) Images() []string {
	images := make([]string, 0, len(p.Stores))
	for _, store := range p.Stores {
		if store.Image != nil && *store.Image != "" {
			images = append(images, *store.Image)
		}
	}
	return images
}
