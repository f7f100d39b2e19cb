package rapidapi

import (
	"context"
	"errors"
	"net/url"

	"github.com/trustscan/backend/internal/domain"
	"github.com/trustscan/backend/internal/infrastructure/payload"
)

const productAPI = "product"

// ProductClient looks products up by GTIN.
type ProductClient struct {
	client *Client
}

// NewProductClient creates a client for the product-data API.
func NewProductClient(cfg Config, opts ...Option) *ProductClient {
	return &ProductClient{client: newClient(productAPI, cfg, opts...)}
}

// GetProduct fetches and decodes the product record for gtin.
func (p *ProductClient) GetProduct(ctx context.Context, gtin string) (*domain.Product, error) {
	body, err := p.client.get(ctx, "/gtin/"+url.PathEscape(gtin), nil)
	if errors.Is(err, errNotFound) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return payload.DecodeProduct(body)
}
