package payload

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/trustscan/backend/internal/domain"
)

// DecodeProduct decodes a product-data response. It fails only when the
// document is not an object or gtin, properties.title, or a store's name or
// url is missing.
func DecodeProduct(data []byte) (*domain.Product, error) {
	root, err := parseObject(data)
	if err != nil {
		return nil, domain.NewMalformedError(err)
	}

	gtin, ok := root.scalar(keyGTIN)
	if !ok || gtin == "" {
		return nil, domain.NewMissingFieldError(keyGTIN)
	}

	props, ok := root.child(keyProperties)
	if !ok {
		return nil, domain.NewMissingFieldError(keyProperties)
	}
	properties := decodeProperties(props)
	if len(properties.Title) == 0 {
		return nil, domain.NewMissingFieldError(keyProperties + "." + keyTitle)
	}

	stores, err := decodeStores(root)
	if err != nil {
		return nil, err
	}

	return &domain.Product{
		GTIN:       gtin,
		Properties: properties,
		Stores:     stores,
	}, nil
}

func decodeProperties(props object) domain.ProductProperties {
	var properties domain.ProductProperties

	// Sorted so Additional is filled the same way on every decode.
	keys := make([]string, 0, len(props))
	for key := range props {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if field, ok := listPropertyKeys[key]; ok {
			*field(&properties) = props.list(key)
			continue
		}
		if field, ok := scalarPropertyKeys[key]; ok {
			*field(&properties) = props.optional(key)
			continue
		}
		if values := props.list(key); len(values) > 0 {
			if properties.Additional == nil {
				properties.Additional = make(map[string][]string)
			}
			properties.Additional[key] = values
		}
	}

	return properties
}

func decodeStores(root object) ([]domain.StoreOffer, error) {
	elems, ok := root.array(keyStores)
	if !ok {
		return []domain.StoreOffer{}, nil
	}

	stores := make([]domain.StoreOffer, 0, len(elems))
	for i, elem := range elems {
		obj, err := parseObject(elem)
		if err != nil {
			continue
		}

		name, ok := obj.scalar(keyStore)
		if !ok {
			return nil, domain.NewMissingFieldError(fmt.Sprintf("%s[%d].%s", keyStores, i, keyStore))
		}
		url, ok := obj.scalar(keyURL)
		if !ok {
			return nil, domain.NewMissingFieldError(fmt.Sprintf("%s[%d].%s", keyStores, i, keyURL))
		}

		offer := domain.StoreOffer{
			ID:    uuid.NewString(),
			Store: name,
			Image: obj.optional(keyImage),
			URL:   url,
			ASIN:  obj.optional(keyASIN),
			SKU:   obj.optional(keySKU),
		}
		if _, ok := obj.raw(keyCategories); ok {
			offer.Categories = obj.list(keyCategories)
		}
		if price, ok := obj.child(keyPrice); ok {
			offer.Price = decodePrice(price)
		}
		stores = append(stores, offer)
	}

	return stores, nil
}

func decodePrice(obj object) *domain.Price {
	return &domain.Price{
		List:     obj.optional(keyPriceList),
		Sale:     obj.optional(keyPriceSale),
		Price:    obj.optional(keyPricePrice),
		Currency: obj.optional(keyPriceCurrency),
		PerUnit:  obj.optional(keyPricePerUnit),
	}
}
