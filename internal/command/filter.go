package command

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/joeycumines/storefront/internal/catalog"
)

// productEnv is the environment of a product filter expression, e.g.
//
//	published && stock > 0 && discount_percent >= 20
type productEnv struct {
	ID              int64   `expr:"id"`
	Title           string  `expr:"title"`
	Slug            string  `expr:"slug"`
	Price           float64 `expr:"price"`
	DisplayPrice    float64 `expr:"display_price"`
	DiscountPercent int     `expr:"discount_percent"`
	Discounted      bool    `expr:"discounted"`
	Stock           int     `expr:"stock"`
	Published       bool    `expr:"published"`
	Images          int     `expr:"images"`
}

func newProductEnv(p *catalog.Product, lang string) productEnv {
	return productEnv{
		ID:              p.ID,
		Title:           p.DisplayTitle(lang),
		Slug:            p.Slug,
		Price:           p.Price,
		DisplayPrice:    p.DisplayPrice(),
		DiscountPercent: p.DiscountPercent(),
		Discounted:      p.HasDiscount(),
		Stock:           p.Stock,
		Published:       p.IsPublished,
		Images:          len(p.Images),
	}
}

// productFilter selects products with a compiled boolean expression.
type productFilter struct {
	source  string
	program *vm.Program
}

// compileProductFilter compiles src. An empty src matches everything.
func compileProductFilter(src string) (*productFilter, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, nil
	}
	program, err := expr.Compile(src, expr.Env(productEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("invalid filter %q: %w", src, err)
	}
	return &productFilter{source: src, program: program}, nil
}

// apply returns the products matching f, in order. A nil filter returns
// products unchanged.
func (f *productFilter) apply(products []catalog.Product, lang string) ([]catalog.Product, error) {
	if f == nil {
		return products, nil
	}
	var out []catalog.Product
	for i := range products {
		result, err := expr.Run(f.program, newProductEnv(&products[i], lang))
		if err != nil {
			return nil, fmt.Errorf("filter %q failed on product %d: %w", f.source, products[i].ID, err)
		}
		if ok, _ := result.(bool); ok {
			out = append(out, products[i])
		}
	}
	return out, nil
}
