package command

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/joeycumines/storefront/internal/apierr"
	"github.com/joeycumines/storefront/internal/catalog"
)

// CheckoutCommand places an order on a public storefront.
type CheckoutCommand struct {
	*BaseCommand
	app *App

	items    stringList
	shipping string
	dryRun   bool
	order    catalog.OrderRequest
}

// NewCheckoutCommand creates a new checkout command.
func NewCheckoutCommand(app *App) *CheckoutCommand {
	return &CheckoutCommand{
		BaseCommand: NewBaseCommand(
			"checkout",
			"Quote and place an order on a storefront",
			"checkout --item <id|slug>[:qty] [--item ...] [options]",
		),
		app: app,
	}
}

// SetupFlags configures the flags for the checkout command.
func (c *CheckoutCommand) SetupFlags(fs *flag.FlagSet) {
	c.items = nil
	fs.Var(&c.items, "item", "Product id or slug with optional quantity, e.g. 12:2 (repeatable)")
	fs.StringVar(&c.shipping, "shipping", "", "Shipping class id or name")
	fs.BoolVar(&c.dryRun, "dry-run", false, "Print the quote without placing the order")
	fs.StringVar(&c.order.CustomerName, "name", "", "Customer name")
	fs.StringVar(&c.order.CustomerPhone, "phone", "", "Customer phone")
	fs.StringVar(&c.order.CustomerEmail, "email", "", "Customer email")
	fs.StringVar(&c.order.ShippingAddress, "address", "", "Shipping address")
	fs.StringVar(&c.order.ShippingCity, "city", "", "Shipping city")
	fs.StringVar(&c.order.ShippingPostal, "postal", "", "Postal code")
	fs.StringVar(&c.order.Notes, "notes", "", "Notes for the seller")
}

// parseItem splits "ref[:qty]".
func parseItem(s string) (string, int, error) {
	ref, qty, found := strings.Cut(strings.TrimSpace(s), ":")
	if ref == "" {
		return "", 0, apierr.Validation("checkout", "empty item")
	}
	if !found {
		return ref, 1, nil
	}
	n, err := strconv.Atoi(qty)
	if err != nil || n <= 0 {
		return "", 0, apierr.Validation("checkout", "quantity must be positive: "+s)
	}
	return ref, n, nil
}

func findProduct(products []catalog.Product, ref string) *catalog.Product {
	id, idErr := strconv.ParseInt(ref, 10, 64)
	for i := range products {
		if (idErr == nil && products[i].ID == id) || products[i].Slug == ref {
			return &products[i]
		}
	}
	return nil
}

func findShipping(classes []catalog.ShippingClass, ref string) *catalog.ShippingClass {
	id, idErr := strconv.ParseInt(ref, 10, 64)
	for i := range classes {
		if (idErr == nil && classes[i].ID == id) || strings.EqualFold(classes[i].Name, ref) {
			return &classes[i]
		}
	}
	return nil
}

// Execute quotes and places the order.
func (c *CheckoutCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %v", args)
	}
	if len(c.items) == 0 {
		return apierr.Validation("checkout", "at least one --item is required")
	}
	cc, err := c.app.PublicCatalog(ctx)
	if err != nil {
		return err
	}
	products, err := cc.PublicProducts(ctx)
	if err != nil {
		return err
	}

	req := c.order
	req.Items = nil
	var lines []catalog.Line
	for _, s := range c.items {
		ref, qty, err := parseItem(s)
		if err != nil {
			return err
		}
		p := findProduct(products, ref)
		if p == nil {
			return apierr.Validation("checkout", "product not found: "+ref)
		}
		lines = append(lines, catalog.Line{Product: p, Quantity: qty})
		req.Items = append(req.Items, catalog.OrderItemRequest{ProductID: p.ID, Quantity: qty})
	}

	var shipping *catalog.ShippingClass
	if c.shipping != "" {
		classes, err := cc.ShippingClasses(ctx)
		if err != nil {
			return err
		}
		if shipping = findShipping(classes, c.shipping); shipping == nil {
			return apierr.Validation("checkout", "shipping class not found: "+c.shipping)
		}
		id := shipping.ID
		req.ShippingClassID = &id
	}

	quote := catalog.QuoteOrder(lines, shipping)
	if c.dryRun {
		return c.writeQuote(stdout, quote)
	}

	order, err := cc.CreateOrder(ctx, req)
	if err != nil {
		return err
	}
	if order.Total != quote.Total {
		c.app.Logger().Info("[Shell] order total differs from quote", "quote", quote.Total, "order", order.Total)
	}
	return writeOrder(c.app, stdout, order)
}

func (c *CheckoutCommand) writeQuote(w io.Writer, q catalog.Quote) error {
	return render(c.app, w, q, func() *table {
		t := newTable("PRODUCT", "QTY", "PRICE", "TOTAL").limit(0, 40)
		for _, l := range q.Lines {
			t.add(l.Title, strconv.Itoa(l.Quantity), formatMoney(l.UnitPrice), formatMoney(l.Total))
		}
		t.add("subtotal", "", "", formatMoney(q.Subtotal))
		t.add("shipping", "", "", formatMoney(q.ShippingCost))
		t.add("total", "", "", formatMoney(q.Total))
		return t
	})
}

// HealthCommand checks that the backend is reachable.
type HealthCommand struct {
	*BaseCommand
	app *App
}

// NewHealthCommand creates a new health command.
func NewHealthCommand(app *App) *HealthCommand {
	return &HealthCommand{
		BaseCommand: NewBaseCommand(
			"health",
			"Check that the backend API is reachable",
			"health",
		),
		app: app,
	}
}

// Execute reports the backend status.
func (c *HealthCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	gw, err := c.app.Gateway(ctx)
	if err != nil {
		return err
	}
	h, err := gw.Health(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stdout, "%s: %s\n", gw.BaseURL(), h.Status)
	return nil
}
