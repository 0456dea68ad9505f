package catalog

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/joeycumines/storefront/internal/apierr"
	"github.com/joeycumines/storefront/internal/gateway"
)

// Client calls the store, product and order endpoints. Requests are scoped
// to a tenant subdomain, sent as X-Tenant-ID.
type Client struct {
	gw     *gateway.Client
	tenant string
}

// NewClient creates a Client using the gateway's default tenant.
func NewClient(gw *gateway.Client) *Client {
	return &Client{gw: gw}
}

// ForStore returns a copy of c scoped to the tenant with subdomain sub.
func (c *Client) ForStore(sub string) *Client {
	return &Client{gw: c.gw, tenant: sub}
}

// Tenant returns the effective tenant subdomain, or "".
func (c *Client) Tenant() string {
	if c.tenant != "" {
		return c.tenant
	}
	return c.gw.Tenant()
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	return c.gw.Do(ctx, gateway.Request{
		Method: method,
		Path:   path,
		Query:  query,
		Body:   body,
		Tenant: c.tenant,
	}, out)
}

func (c *Client) public(ctx context.Context, path string, out any) error {
	return c.gw.Do(ctx, gateway.Request{
		Method:    http.MethodGet,
		Path:      path,
		Tenant:    c.tenant,
		Anonymous: true,
	}, out)
}

func idPath(prefix string, id int64) string {
	return prefix + "/" + strconv.FormatInt(id, 10)
}

// StoreInput is the writable part of a store.
type StoreInput struct {
	Name            string `json:"name"`
	NameLocalized   string `json:"name_bn,omitempty"`
	Subdomain       string `json:"subdomain,omitempty"`
	Logo            string `json:"logo,omitempty"`
	BrandColor      string `json:"brand_color,omitempty"`
	Currency        string `json:"currency,omitempty"`
	Phone           string `json:"phone,omitempty"`
	WhatsApp        string `json:"whatsapp,omitempty"`
	FacebookPixelID string `json:"facebook_pixel_id,omitempty"`
	DefaultLanguage string `json:"default_language,omitempty"`
}

// ListStores returns the stores owned by the principal.
func (c *Client) ListStores(ctx context.Context) ([]Store, error) {
	var out []Store
	if err := c.do(ctx, http.MethodGet, gateway.PathStores, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetStore fetches one owned store.
func (c *Client) GetStore(ctx context.Context, id int64) (*Store, error) {
	var out Store
	if err := c.do(ctx, http.MethodGet, idPath(gateway.PathStores, id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateStore creates a store. The name and subdomain are checked locally
// first.
func (c *Client) CreateStore(ctx context.Context, in StoreInput) (*Store, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, apierr.Validation("create store", "store name is required")
	}
	if err := ValidateSubdomain(in.Subdomain); err != nil {
		return nil, err
	}
	var out Store
	if err := c.do(ctx, http.MethodPost, gateway.PathStores, nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateStore replaces the settings of a store. The subdomain is fixed at
// creation and is not sent.
func (c *Client) UpdateStore(ctx context.Context, id int64, in StoreInput) (*Store, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, apierr.Validation("update store", "store name is required")
	}
	in.Subdomain = ""
	var out Store
	if err := c.do(ctx, http.MethodPut, idPath(gateway.PathStores, id), nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ProductInput is the writable part of a product.
type ProductInput struct {
	Title                string   `json:"title"`
	TitleLocalized       string   `json:"title_bn,omitempty"`
	Description          string   `json:"description,omitempty"`
	DescriptionLocalized string   `json:"description_bn,omitempty"`
	Price                float64  `json:"price"`
	DiscountPrice        *float64 `json:"discount_price,omitempty"`
	Stock                int      `json:"stock"`
	IsPublished          bool     `json:"is_published"`
	Images               Images   `json:"images,omitempty"`
	MetaTitle            string   `json:"meta_title,omitempty"`
	MetaDescription      string   `json:"meta_description,omitempty"`
}

// Validate checks the fields the backend would reject or the price rules
// would misdisplay.
func (in *ProductInput) Validate() error {
	const op = "validate product"
	switch {
	case strings.TrimSpace(in.Title) == "":
		return apierr.Validation(op, "title is required")
	case in.Price < 0:
		return apierr.Validation(op, "price must not be negative")
	case in.DiscountPrice != nil && (*in.DiscountPrice < 0 || *in.DiscountPrice >= in.Price):
		return apierr.Validation(op, "discount price must be below the price")
	case in.Stock < 0:
		return apierr.Validation(op, "stock must not be negative")
	}
	return nil
}

// ProductQuery filters ListProducts.
type ProductQuery struct {
	PublishedOnly bool
}

// ListProducts returns the products of the tenant, or of the principal's
// first store when no tenant is set.
func (c *Client) ListProducts(ctx context.Context, q ProductQuery) ([]Product, error) {
	var query url.Values
	if q.PublishedOnly {
		query = url.Values{"published_only": {"true"}}
	}
	var out []Product
	if err := c.do(ctx, http.MethodGet, gateway.PathProducts, query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetProduct fetches a product by id.
func (c *Client) GetProduct(ctx context.Context, id int64) (*Product, error) {
	var out Product
	if err := c.do(ctx, http.MethodGet, idPath(gateway.PathProducts, id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ProductBySlug fetches a published product by slug. It needs no
// credential.
func (c *Client) ProductBySlug(ctx context.Context, slug string) (*Product, error) {
	if strings.TrimSpace(slug) == "" {
		return nil, apierr.Validation("product by slug", "slug is required")
	}
	var out Product
	if err := c.public(ctx, gateway.PathProducts+"/slug/"+url.PathEscape(slug), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateProduct creates a product. The backend assigns the slug.
func (c *Client) CreateProduct(ctx context.Context, in ProductInput) (*Product, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var out Product
	if err := c.do(ctx, http.MethodPost, gateway.PathProducts, nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// productUpdate is the PUT body. The backend keeps fields missing from the
// body, so discount_price is always sent and a nil discount clears it.
type productUpdate struct {
	ProductInput
	DiscountPrice *float64 `json:"discount_price"`
}

// UpdateProduct replaces a product's fields. A nil DiscountPrice removes the
// discount.
func (c *Client) UpdateProduct(ctx context.Context, id int64, in ProductInput) (*Product, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	body := productUpdate{ProductInput: in, DiscountPrice: in.DiscountPrice}
	var out Product
	if err := c.do(ctx, http.MethodPut, idPath(gateway.PathProducts, id), nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteProduct removes a product.
func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, idPath(gateway.PathProducts, id), nil, nil, nil)
}

// ListOrders returns the tenant's orders, newest first. An empty status
// lists all.
func (c *Client) ListOrders(ctx context.Context, status OrderStatus) ([]Order, error) {
	var query url.Values
	if status != "" {
		if !status.Valid() {
			return nil, apierr.Validation("list orders", "unknown order status "+strconv.Quote(string(status)))
		}
		query = url.Values{"status_filter": {string(status)}}
	}
	var out []Order
	if err := c.do(ctx, http.MethodGet, gateway.PathOrders, query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetOrder fetches an order by id.
func (c *Client) GetOrder(ctx context.Context, id int64) (*Order, error) {
	var out Order
	if err := c.do(ctx, http.MethodGet, idPath(gateway.PathOrders, id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// OrderRequest is a checkout submission.
type OrderRequest struct {
	CustomerName    string             `json:"customer_name"`
	CustomerPhone   string             `json:"customer_phone"`
	CustomerEmail   string             `json:"customer_email,omitempty"`
	ShippingAddress string             `json:"shipping_address"`
	ShippingCity    string             `json:"shipping_city,omitempty"`
	ShippingPostal  string             `json:"shipping_postal,omitempty"`
	ShippingClassID *int64             `json:"shipping_class_id,omitempty"`
	Items           []OrderItemRequest `json:"items"`
	Notes           string             `json:"notes,omitempty"`
}

// OrderItemRequest is one line of a checkout submission.
type OrderItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// Validate checks the required checkout fields.
func (r *OrderRequest) Validate() error {
	const op = "create order"
	switch {
	case strings.TrimSpace(r.CustomerName) == "":
		return apierr.Validation(op, "customer name is required")
	case strings.TrimSpace(r.CustomerPhone) == "":
		return apierr.Validation(op, "customer phone is required")
	case strings.TrimSpace(r.ShippingAddress) == "":
		return apierr.Validation(op, "shipping address is required")
	case len(r.Items) == 0:
		return apierr.Validation(op, "at least one item is required")
	}
	for _, it := range r.Items {
		if it.Quantity <= 0 {
			return apierr.Validation(op, "quantity must be positive")
		}
	}
	return nil
}

// CreateOrder places an order with the tenant. Checkout is public; no
// credential is sent.
func (c *Client) CreateOrder(ctx context.Context, r OrderRequest) (*Order, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	var out Order
	err := c.gw.Do(ctx, gateway.Request{
		Method:    http.MethodPost,
		Path:      gateway.PathOrders,
		Body:      r,
		Tenant:    c.tenant,
		Anonymous: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// PublicStore fetches the tenant's public store information.
func (c *Client) PublicStore(ctx context.Context) (*Store, error) {
	var out Store
	if err := c.public(ctx, gateway.PathPublicStore, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PublicProducts lists the tenant's published products.
func (c *Client) PublicProducts(ctx context.Context) ([]Product, error) {
	var out []Product
	if err := c.public(ctx, gateway.PathPublicItems, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ShippingClasses lists the tenant's active shipping classes.
func (c *Client) ShippingClasses(ctx context.Context) ([]ShippingClass, error) {
	var out []ShippingClass
	if err := c.public(ctx, gateway.PathShipping, &out); err != nil {
		return nil, err
	}
	return out, nil
}
