// Package catalog holds the storefront resource models (stores, products,
// orders, user profiles), the price rules applied when displaying them, and
// a typed client for the resource endpoints.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Store is a tenant storefront owned by the principal.
type Store struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	NameLocalized   string    `json:"name_bn,omitempty"`
	Subdomain       string    `json:"subdomain"`
	Logo            string    `json:"logo,omitempty"`
	BrandColor      string    `json:"brand_color,omitempty"`
	Currency        string    `json:"currency,omitempty"`
	DefaultLanguage string    `json:"default_language,omitempty"`
	Phone           string    `json:"phone,omitempty"`
	WhatsApp        string    `json:"whatsapp,omitempty"`
	FacebookPixelID string    `json:"facebook_pixel_id,omitempty"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       Timestamp `json:"created_at"`
}

// Product is a catalog item of a store.
type Product struct {
	ID                   int64     `json:"id"`
	StoreID              int64     `json:"store_id"`
	Slug                 string    `json:"slug"`
	Title                string    `json:"title"`
	TitleLocalized       string    `json:"title_bn,omitempty"`
	Description          string    `json:"description,omitempty"`
	DescriptionLocalized string    `json:"description_bn,omitempty"`
	Price                float64   `json:"price"`
	DiscountPrice        *float64  `json:"discount_price,omitempty"`
	Stock                int       `json:"stock"`
	Images               Images    `json:"images,omitempty"`
	IsPublished          bool      `json:"is_published"`
	MetaTitle            string    `json:"meta_title,omitempty"`
	MetaDescription      string    `json:"meta_description,omitempty"`
	CreatedAt            Timestamp `json:"created_at"`
	UpdatedAt            Timestamp `json:"updated_at"`
}

// OrderStatus is the fulfilment state of an order. The client never changes
// it.
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusConfirmed  OrderStatus = "confirmed"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

// OrderStatuses lists every status in fulfilment order.
var OrderStatuses = []OrderStatus{
	StatusPending,
	StatusConfirmed,
	StatusProcessing,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	for _, v := range OrderStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Order is a placed customer order.
type Order struct {
	ID              int64       `json:"id"`
	StoreID         int64       `json:"store_id"`
	OrderNumber     string      `json:"order_number"`
	Status          OrderStatus `json:"status"`
	CustomerName    string      `json:"customer_name"`
	CustomerPhone   string      `json:"customer_phone"`
	CustomerEmail   string      `json:"customer_email,omitempty"`
	ShippingAddress string      `json:"shipping_address"`
	ShippingCity    string      `json:"shipping_city,omitempty"`
	ShippingPostal  string      `json:"shipping_postal,omitempty"`
	Subtotal        float64     `json:"subtotal"`
	ShippingCost    float64     `json:"shipping_cost"`
	Total           float64     `json:"total"`
	Notes           string      `json:"notes,omitempty"`
	CreatedAt       Timestamp   `json:"created_at"`
	Items           []OrderItem `json:"items"`
}

// OrderItem is one line of an order, priced at placement time.
type OrderItem struct {
	ID           int64   `json:"id"`
	ProductID    int64   `json:"product_id"`
	ProductTitle string  `json:"product_title"`
	Quantity     int     `json:"quantity"`
	Price        float64 `json:"price"`
	Total        float64 `json:"total"`
}

// ShippingClass is a delivery option with a flat cost.
type ShippingClass struct {
	ID            int64     `json:"id"`
	StoreID       int64     `json:"store_id"`
	Name          string    `json:"name"`
	NameLocalized string    `json:"name_bn,omitempty"`
	Cost          float64   `json:"cost"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     Timestamp `json:"created_at"`
}

// User is the profile of the authenticated principal.
type User struct {
	ID        int64     `json:"id"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email,omitempty"`
	FullName  string    `json:"full_name,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt Timestamp `json:"created_at"`
}

// DisplayName is the full name, or the phone number when none is set.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if name := strings.TrimSpace(u.FullName); name != "" {
		return name
	}
	return u.Phone
}

// Images is an ordered list of image URLs. The backend stores it as a JSON
// array encoded in a string, so both that and a native array decode.
type Images []string

// UnmarshalJSON implements json.Unmarshaler.
func (im *Images) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*im = nil
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		switch {
		case s == "":
			*im = nil
			return nil
		case strings.HasPrefix(s, "["):
			data = []byte(s)
		default:
			// a lone URL
			*im = Images{s}
			return nil
		}
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("images: %w", err)
	}
	*im = list
	return nil
}

// MarshalJSON encodes the list in the backend's string form.
func (im Images) MarshalJSON() ([]byte, error) {
	if len(im) == 0 {
		return []byte("null"), nil
	}
	inner, err := json.Marshal([]string(im))
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(inner))
}

// First returns the cover image, or "".
func (im Images) First() string {
	if len(im) == 0 {
		return ""
	}
	return im[0]
}

// Timestamp accepts the backend's datetimes, which omit the zone when naive
// (treated as UTC).
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
}

// ParseTimestamp parses s with the accepted layouts.
func ParseTimestamp(s string) (Timestamp, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{t}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("invalid timestamp %q", s)
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*t = Timestamp{}
		return nil
	}
	ts, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = ts
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}
