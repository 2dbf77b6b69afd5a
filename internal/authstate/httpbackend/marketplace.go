package httpbackend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ukmbjb/banjarbaru-marketplace-umkm-online/internal/models"
)

// Marketplace endpoints, used by the CLI alongside the auth surface.

type StoreInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Address     string `json:"address"`
	Phone       string `json:"phone"`
}

type ProductInput struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	Stock       int     `json:"stock"`
	ImageURL    string  `json:"image_url"`
	Active      bool    `json:"is_active"`
}

type SearchQuery struct {
	Query    string
	Category string
	StoreID  string
	Limit    int
}

func (c *Client) SearchProducts(ctx context.Context, query SearchQuery) ([]models.Product, error) {
	values := url.Values{}
	if query.Query != "" {
		values.Set("q", query.Query)
	}
	if query.Category != "" {
		values.Set("category", query.Category)
	}
	if query.StoreID != "" {
		values.Set("store_id", query.StoreID)
	}
	if query.Limit > 0 {
		values.Set("limit", strconv.Itoa(query.Limit))
	}
	path := "/api/products"
	if encoded := values.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var products []models.Product
	if err := c.do(ctx, http.MethodGet, path, c.token(), nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) ListStores(ctx context.Context) ([]models.StoreFront, error) {
	var stores []models.StoreFront
	if err := c.do(ctx, http.MethodGet, "/api/stores", c.token(), nil, &stores); err != nil {
		return nil, err
	}
	return stores, nil
}

func (c *Client) MyStore(ctx context.Context) (models.StoreFront, error) {
	var sf models.StoreFront
	if err := c.do(ctx, http.MethodGet, "/api/stores/mine", c.token(), nil, &sf); err != nil {
		return models.StoreFront{}, err
	}
	return sf, nil
}

func (c *Client) CreateStore(ctx context.Context, input StoreInput) (models.StoreFront, error) {
	var sf models.StoreFront
	if err := c.do(ctx, http.MethodPost, "/api/stores", c.token(), input, &sf); err != nil {
		return models.StoreFront{}, err
	}
	return sf, nil
}

func (c *Client) UpdateStore(ctx context.Context, input StoreInput) (models.StoreFront, error) {
	var sf models.StoreFront
	if err := c.do(ctx, http.MethodPut, "/api/stores/mine", c.token(), input, &sf); err != nil {
		return models.StoreFront{}, err
	}
	return sf, nil
}

// MyProducts lists the seller's own products, inactive ones included.
func (c *Client) MyProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := c.do(ctx, http.MethodGet, "/api/stores/mine/products", c.token(), nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) CreateProduct(ctx context.Context, input ProductInput) (models.Product, error) {
	var product models.Product
	if err := c.do(ctx, http.MethodPost, "/api/products", c.token(), input, &product); err != nil {
		return models.Product{}, err
	}
	return product, nil
}

func (c *Client) UpdateProduct(ctx context.Context, productID string, input ProductInput) (models.Product, error) {
	var product models.Product
	if err := c.do(ctx, http.MethodPut, "/api/products/"+productID, c.token(), input, &product); err != nil {
		return models.Product{}, err
	}
	return product, nil
}

func (c *Client) DeleteProduct(ctx context.Context, productID string) error {
	return c.do(ctx, http.MethodDelete, "/api/products/"+productID, c.token(), nil, nil)
}

func (c *Client) Profile(ctx context.Context) (models.Profile, error) {
	var profile models.Profile
	if err := c.do(ctx, http.MethodGet, "/api/profiles/me", c.token(), nil, &profile); err != nil {
		return models.Profile{}, err
	}
	return profile, nil
}

func (c *Client) UpdateProfile(ctx context.Context, profile models.Profile) (models.Profile, error) {
	var updated models.Profile
	if err := c.do(ctx, http.MethodPut, "/api/profiles/me", c.token(), profile, &updated); err != nil {
		return models.Profile{}, err
	}
	return updated, nil
}

type AdminUser struct {
	Identity models.Identity `json:"identity"`
	Profile  models.Profile  `json:"profile"`
	Role     models.Role     `json:"role"`
	Explicit bool            `json:"role_explicit"`
}

func (c *Client) AdminListUsers(ctx context.Context) ([]AdminUser, error) {
	var users []AdminUser
	if err := c.do(ctx, http.MethodGet, "/api/admin/users", c.token(), nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) AdminListStores(ctx context.Context) ([]models.StoreFront, error) {
	var stores []models.StoreFront
	if err := c.do(ctx, http.MethodGet, "/api/admin/stores", c.token(), nil, &stores); err != nil {
		return nil, err
	}
	return stores, nil
}

func (c *Client) AdminVerifyStore(ctx context.Context, storeID string, verified bool) (models.StoreFront, error) {
	body := map[string]bool{"verified": verified}
	var sf models.StoreFront
	if err := c.do(ctx, http.MethodPost, "/api/admin/stores/"+storeID+"/verify", c.token(), body, &sf); err != nil {
		return models.StoreFront{}, err
	}
	return sf, nil
}
