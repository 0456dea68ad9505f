package catalog

import (
	"math"
)

// HasDiscount reports whether the product carries a usable discount: one
// that is positive and strictly below the list price.
func (p *Product) HasDiscount() bool {
	return p.DiscountPrice != nil && *p.DiscountPrice > 0 && *p.DiscountPrice < p.Price
}

// DisplayPrice is the price a customer pays for one unit.
func (p *Product) DisplayPrice() float64 {
	if p.HasDiscount() {
		return *p.DiscountPrice
	}
	return p.Price
}

// DiscountPercent is the rounded percentage saved, or 0 without a discount.
func (p *Product) DiscountPercent() int {
	if !p.HasDiscount() || p.Price <= 0 {
		return 0
	}
	return int(math.Round((p.Price - *p.DiscountPrice) / p.Price * 100))
}

// Line is one product and quantity of a prospective order.
type Line struct {
	Product  *Product
	Quantity int
}

// Quote is the client-side total of a prospective order. The backend
// computes the authoritative figures when the order is placed.
type Quote struct {
	Lines        []QuoteLine `json:"lines"`
	Subtotal     float64     `json:"subtotal"`
	ShippingCost float64     `json:"shipping_cost"`
	Total        float64     `json:"total"`
}

// QuoteLine is a priced Line.
type QuoteLine struct {
	ProductID int64   `json:"product_id"`
	Title     string  `json:"title"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Total     float64 `json:"total"`
}

// QuoteOrder prices lines at their display price and adds the cost of
// shipping, which may be nil.
func QuoteOrder(lines []Line, shipping *ShippingClass) Quote {
	var q Quote
	for _, l := range lines {
		if l.Product == nil {
			continue
		}
		unit := l.Product.DisplayPrice()
		total := roundCents(unit * float64(l.Quantity))
		q.Lines = append(q.Lines, QuoteLine{
			ProductID: l.Product.ID,
			Title:     l.Product.Title,
			Quantity:  l.Quantity,
			UnitPrice: unit,
			Total:     total,
		})
		q.Subtotal += total
	}
	if shipping != nil {
		q.ShippingCost = shipping.Cost
	}
	q.Subtotal = roundCents(q.Subtotal)
	q.Total = roundCents(q.Subtotal + q.ShippingCost)
	return q
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
