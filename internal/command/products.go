package command

import (
	"cmp"
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"

	"github.com/joeycumines/storefront/internal/catalog"
)

// productFlags are the writable product fields. Unset flags keep the
// current value on update.
type productFlags struct {
	title, titleLocalized           string
	description, descriptionLocal   string
	metaTitle, metaDescription      string
	price, discount                 optionalFloat
	stock                           optionalInt
	published                       optionalBool
	images                          stringList
}

func (f *productFlags) register(fs *flag.FlagSet) {
	*f = productFlags{}
	fs.StringVar(&f.title, "title", "", "Product title")
	fs.StringVar(&f.titleLocalized, "title-bn", "", "Localized title")
	fs.StringVar(&f.description, "description", "", "Description")
	fs.StringVar(&f.descriptionLocal, "description-bn", "", "Localized description")
	fs.StringVar(&f.metaTitle, "meta-title", "", "SEO title")
	fs.StringVar(&f.metaDescription, "meta-description", "", "SEO description")
	fs.Var(&f.price, "price", "Price")
	fs.Var(&f.discount, "discount", "Discounted price; 0 removes the discount")
	fs.Var(&f.stock, "stock", "Units in stock")
	fs.Var(&f.published, "published", "Publish on the storefront")
	fs.Var(&f.images, "image", "Image URL (repeatable; replaces the current images)")
}

func (f *productFlags) apply(in catalog.ProductInput) catalog.ProductInput {
	in.Title = cmp.Or(f.title, in.Title)
	in.TitleLocalized = cmp.Or(f.titleLocalized, in.TitleLocalized)
	in.Description = cmp.Or(f.description, in.Description)
	in.DescriptionLocalized = cmp.Or(f.descriptionLocal, in.DescriptionLocalized)
	in.MetaTitle = cmp.Or(f.metaTitle, in.MetaTitle)
	in.MetaDescription = cmp.Or(f.metaDescription, in.MetaDescription)
	if f.price.set {
		in.Price = f.price.value
	}
	if f.discount.set {
		if f.discount.value == 0 {
			in.DiscountPrice = nil
		} else {
			d := f.discount.value
			in.DiscountPrice = &d
		}
	}
	if f.stock.set {
		in.Stock = f.stock.value
	}
	if f.published.set {
		in.IsPublished = f.published.value
	}
	if len(f.images) > 0 {
		in.Images = catalog.Images(f.images)
	}
	return in
}

func productInputOf(p *catalog.Product) catalog.ProductInput {
	return catalog.ProductInput{
		Title:                p.Title,
		TitleLocalized:       p.TitleLocalized,
		Description:          p.Description,
		DescriptionLocalized: p.DescriptionLocalized,
		Price:                p.Price,
		DiscountPrice:        p.DiscountPrice,
		Stock:                p.Stock,
		IsPublished:          p.IsPublished,
		Images:               p.Images,
		MetaTitle:            p.MetaTitle,
		MetaDescription:      p.MetaDescription,
	}
}

// ProductsCommand manages a store's catalog.
type ProductsCommand struct {
	*groupCommand
	app *App

	public    bool
	published bool
	filter    string
	flags     productFlags
}

// NewProductsCommand creates a new products command.
func NewProductsCommand(app *App) *ProductsCommand {
	c := &ProductsCommand{app: app}
	c.groupCommand = newGroupCommand("products", "List and edit the products of a store", "list",
		subcommand{
			name:        "list",
			description: "List products with displayed price and discount",
			flags:       c.listFlags,
			run:         c.list,
		},
		subcommand{name: "show", args: "<id|slug>", description: "Show a product; a slug is looked up on the public storefront", run: c.show},
		subcommand{
			name:        "create",
			description: "Create a product",
			flags:       c.flags.register,
			run:         c.create,
		},
		subcommand{
			name:        "update",
			args:        "<id>",
			description: "Change a product; unset flags keep their value",
			flags:       c.flags.register,
			run:         c.update,
		},
		subcommand{name: "delete", args: "<id>", description: "Delete a product", run: c.delete},
		subcommand{name: "slug", args: "<title>", description: "Preview the slug the backend derives from a title", run: c.slug},
	)
	return c
}

func (c *ProductsCommand) listFlags(fs *flag.FlagSet) {
	cfg := c.app.Config()
	public, _ := cfg.GetCommandOption("products", "public")
	defPublic, _ := strconv.ParseBool(public)
	defFilter, _ := cfg.GetCommandOption("products", "filter")

	fs.BoolVar(&c.public, "public", defPublic, "List the public storefront (--store or host) instead of your store")
	fs.BoolVar(&c.published, "published", false, "Only published products")
	fs.StringVar(&c.filter, "filter", defFilter, "Filter expression, e.g. 'stock > 0 && discount_percent >= 20'")
}

func (c *ProductsCommand) list(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %v", args)
	}
	filter, err := compileProductFilter(c.filter)
	if err != nil {
		return err
	}

	var (
		products []catalog.Product
		tenant   string
	)
	if c.public {
		cc, err := c.app.PublicCatalog(ctx)
		if err != nil {
			return err
		}
		tenant = cc.Tenant()
		if products, err = cc.PublicProducts(ctx); err != nil {
			return err
		}
	} else {
		cc, err := c.app.OwnerCatalog(ctx)
		if err != nil {
			return err
		}
		tenant = cc.Tenant()
		if products, err = cc.ListProducts(ctx, catalog.ProductQuery{PublishedOnly: c.published}); err != nil {
			return err
		}
	}

	lang := c.app.Language()
	if products, err = filter.apply(products, lang); err != nil {
		return err
	}
	c.app.Logger().Debug("[Shell] products listed", "tenant", tenant, "count", len(products))

	return render(c.app, stdout, products, func() *table {
		t := newTable("ID", "TITLE", "SLUG", "PRICE", "WAS", "OFF", "STOCK", "PUBLISHED").limit(1, 40).limit(2, 32)
		for i := range products {
			p := &products[i]
			was, off := "", ""
			if p.HasDiscount() {
				was = formatMoney(p.Price)
				off = fmt.Sprintf("%d%%", p.DiscountPercent())
			}
			t.add(fmt.Sprint(p.ID), p.DisplayTitle(lang), p.Slug, formatMoney(p.DisplayPrice()), was, off,
				strconv.Itoa(p.Stock), yesNo(p.IsPublished))
		}
		return t
	})
}

func (c *ProductsCommand) show(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if err := requireArgs(args, 1, "products show <id|slug>"); err != nil {
		return err
	}
	var (
		p      *catalog.Product
		tenant string
	)
	if id, err := strconv.ParseInt(args[0], 10, 64); err == nil {
		cc, err := c.app.OwnerCatalog(ctx)
		if err != nil {
			return err
		}
		tenant = cc.Tenant()
		if p, err = cc.GetProduct(ctx, id); err != nil {
			return err
		}
	} else {
		cc, err := c.app.PublicCatalog(ctx)
		if err != nil {
			return err
		}
		tenant = cc.Tenant()
		if p, err = cc.ProductBySlug(ctx, args[0]); err != nil {
			return err
		}
	}
	return c.writeProduct(stdout, p, tenant)
}

func (c *ProductsCommand) writeProduct(w io.Writer, p *catalog.Product, tenant string) error {
	lang := c.app.Language()
	return render(c.app, w, p, func() *table {
		t := newTable("FIELD", "VALUE")
		t.add("id", fmt.Sprint(p.ID))
		t.add("title", p.DisplayTitle(lang))
		t.add("slug", p.Slug)
		if tenant != "" && p.Slug != "" {
			t.add("url", c.app.Tenant().ProductURL(tenant, p.Slug))
		}
		t.add("price", formatMoney(p.DisplayPrice()))
		if p.HasDiscount() {
			t.add("regular price", formatMoney(p.Price))
			t.add("discount", fmt.Sprintf("%d%%", p.DiscountPercent()))
		}
		t.add("stock", strconv.Itoa(p.Stock))
		t.add("published", yesNo(p.IsPublished))
		if img := p.Images.First(); img != "" {
			t.add("image", img)
		}
		if d := p.DisplayDescription(lang); d != "" {
			t.add("description", truncate(d, 72, "…"))
		}
		return t
	})
}

func (c *ProductsCommand) create(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %v", args)
	}
	cc, err := c.app.OwnerCatalog(ctx)
	if err != nil {
		return err
	}
	p, err := cc.CreateProduct(ctx, c.flags.apply(catalog.ProductInput{}))
	if err != nil {
		return err
	}
	return c.writeProduct(stdout, p, cc.Tenant())
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id: %s", s)
	}
	return id, nil
}

func (c *ProductsCommand) update(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if err := requireArgs(args, 1, "products update <id> [options]"); err != nil {
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
	current, err := cc.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	p, err := cc.UpdateProduct(ctx, id, c.flags.apply(productInputOf(current)))
	if err != nil {
		return err
	}
	return c.writeProduct(stdout, p, cc.Tenant())
}

func (c *ProductsCommand) delete(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if err := requireArgs(args, 1, "products delete <id>"); err != nil {
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
	if err := cc.DeleteProduct(ctx, id); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stdout, "Deleted product %d.\n", id)
	return nil
}

func (c *ProductsCommand) slug(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: storefront products slug <title>")
	}
	title := args[0]
	for _, a := range args[1:] {
		title += " " + a
	}
	_, _ = fmt.Fprintln(stdout, catalog.Slugify(title))
	return nil
}
