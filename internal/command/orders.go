package command

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"

	"github.com/joeycumines/storefront/internal/catalog"
)

// OrdersCommand shows the orders of a store.
type OrdersCommand struct {
	*groupCommand
	app    *App
	status string
}

// NewOrdersCommand creates a new orders command.
func NewOrdersCommand(app *App) *OrdersCommand {
	c := &OrdersCommand{app: app}
	c.groupCommand = newGroupCommand("orders", "List and inspect the orders of a store", "list",
		subcommand{name: "list", description: "List orders, newest first", flags: c.listFlags, run: c.list},
		subcommand{name: "show", args: "<id>", description: "Show an order with its items", run: c.show},
	)
	return c
}

func (c *OrdersCommand) listFlags(fs *flag.FlagSet) {
	def, _ := c.app.Config().GetCommandOption("orders", "status")
	fs.StringVar(&c.status, "status", def, "Only orders with this status (pending, confirmed, processing, shipped, delivered, cancelled)")
}

func (c *OrdersCommand) list(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %v", args)
	}
	cc, err := c.app.OwnerCatalog(ctx)
	if err != nil {
		return err
	}
	orders, err := cc.ListOrders(ctx, catalog.OrderStatus(c.status))
	if err != nil {
		return err
	}
	return render(c.app, stdout, orders, func() *table {
		t := newTable("ID", "NUMBER", "STATUS", "CUSTOMER", "PHONE", "ITEMS", "TOTAL", "PLACED").limit(3, 24)
		for i := range orders {
			o := &orders[i]
			t.add(fmt.Sprint(o.ID), o.OrderNumber, o.Status.Label(), o.CustomerName, o.CustomerPhone,
				strconv.Itoa(len(o.Items)), formatMoney(o.Total), formatTime(o.CreatedAt))
		}
		return t
	})
}

func (c *OrdersCommand) show(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if err := requireArgs(args, 1, "orders show <id>"); err != nil {
		return err
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	cc, err := c.app.OwnerCatalog(ctx)
	if err != nil {
		return err
	}
	o, err := cc.GetOrder(ctx, id)
	if err != nil {
		return err
	}
	return writeOrder(c.app, stdout, o)
}

func writeOrder(app *App, w io.Writer, o *catalog.Order) error {
	f, err := app.Format()
	if err != nil {
		return err
	}
	if f != FormatTable {
		return writeStructured(w, f, o)
	}

	t := newTable("FIELD", "VALUE")
	t.add("order", o.OrderNumber)
	t.add("status", o.Status.Label())
	t.add("customer", o.CustomerName)
	t.add("phone", o.CustomerPhone)
	if o.CustomerEmail != "" {
		t.add("email", o.CustomerEmail)
	}
	t.add("ship to", o.ShippingAddress)
	if o.ShippingCity != "" {
		t.add("city", o.ShippingCity)
	}
	if o.Notes != "" {
		t.add("notes", o.Notes)
	}
	t.add("placed", formatTime(o.CreatedAt))
	if err := t.write(w); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(w)

	items := newTable("PRODUCT", "QTY", "PRICE", "TOTAL").limit(0, 40)
	for _, it := range o.Items {
		items.add(it.ProductTitle, strconv.Itoa(it.Quantity), formatMoney(it.Price), formatMoney(it.Total))
	}
	items.add("subtotal", "", "", formatMoney(o.Subtotal))
	items.add("shipping", "", "", formatMoney(o.ShippingCost))
	items.add("total", "", "", formatMoney(o.Total))
	return items.write(w)
}

func formatTime(ts catalog.Timestamp) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Local().Format("2006-01-02 15:04")
}
