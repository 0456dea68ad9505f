package command

import (
	"cmp"
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/joeycumines/storefront/internal/catalog"
)

// storeFlags are the writable store fields. Empty values keep the current
// setting on update.
type storeFlags struct {
	name, nameLocalized, subdomain string
	logo, brandColor, currency     string
	phone, whatsapp, pixel, lang   string
}

func (f *storeFlags) register(fs *flag.FlagSet, withSubdomain bool) {
	*f = storeFlags{}
	fs.StringVar(&f.name, "name", "", "Store name")
	fs.StringVar(&f.nameLocalized, "name-bn", "", "Localized store name")
	if withSubdomain {
		fs.StringVar(&f.subdomain, "subdomain", "", "Storefront subdomain (3-50 characters, a-z, 0-9 and inner hyphens)")
	}
	fs.StringVar(&f.logo, "logo", "", "Logo URL")
	fs.StringVar(&f.brandColor, "brand-color", "", "Brand color, e.g. #3b82f6")
	fs.StringVar(&f.currency, "currency", "", "Currency code")
	fs.StringVar(&f.phone, "phone", "", "Contact phone")
	fs.StringVar(&f.whatsapp, "whatsapp", "", "WhatsApp number")
	fs.StringVar(&f.pixel, "facebook-pixel", "", "Facebook pixel id")
	fs.StringVar(&f.lang, "language", "", "Default storefront language (en or bn)")
}

// apply overlays the set flags onto in.
func (f *storeFlags) apply(in catalog.StoreInput) catalog.StoreInput {
	in.Name = cmp.Or(f.name, in.Name)
	in.NameLocalized = cmp.Or(f.nameLocalized, in.NameLocalized)
	in.Subdomain = cmp.Or(f.subdomain, in.Subdomain)
	in.Logo = cmp.Or(f.logo, in.Logo)
	in.BrandColor = cmp.Or(f.brandColor, in.BrandColor)
	in.Currency = cmp.Or(f.currency, in.Currency)
	in.Phone = cmp.Or(f.phone, in.Phone)
	in.WhatsApp = cmp.Or(f.whatsapp, in.WhatsApp)
	in.FacebookPixelID = cmp.Or(f.pixel, in.FacebookPixelID)
	in.DefaultLanguage = cmp.Or(f.lang, in.DefaultLanguage)
	return in
}

func storeInputOf(s *catalog.Store) catalog.StoreInput {
	return catalog.StoreInput{
		Name:            s.Name,
		NameLocalized:   s.NameLocalized,
		Subdomain:       s.Subdomain,
		Logo:            s.Logo,
		BrandColor:      s.BrandColor,
		Currency:        s.Currency,
		Phone:           s.Phone,
		WhatsApp:        s.WhatsApp,
		FacebookPixelID: s.FacebookPixelID,
		DefaultLanguage: s.DefaultLanguage,
	}
}

// StoresCommand lists, selects and edits the principal's stores.
type StoresCommand struct {
	*groupCommand
	app   *App
	flags storeFlags
}

// NewStoresCommand creates a new stores command.
func NewStoresCommand(app *App) *StoresCommand {
	c := &StoresCommand{app: app}
	c.groupCommand = newGroupCommand("stores", "List, select, create and update your stores", "list",
		subcommand{name: "list", description: "List your stores; * marks the current one", run: c.list},
		subcommand{name: "use", args: "<id|subdomain>", description: "Make a store current for later commands", run: c.use},
		subcommand{name: "show", args: "[id|subdomain]", description: "Show a store, the current one by default", run: c.show},
		subcommand{
			name:        "create",
			description: "Create a store",
			flags:       func(fs *flag.FlagSet) { c.flags.register(fs, true) },
			run:         c.create,
		},
		subcommand{
			name:        "update",
			args:        "[id|subdomain]",
			description: "Change store settings; unset flags keep their value",
			flags:       func(fs *flag.FlagSet) { c.flags.register(fs, false) },
			run:         c.update,
		},
	)
	return c
}

func (c *StoresCommand) list(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	sel, err := c.app.Selection(ctx)
	if err != nil {
		return err
	}
	stores := sel.Stores()
	current, _ := sel.Current()
	lang := c.app.Language()
	tc := c.app.Tenant()
	return render(c.app, stdout, stores, func() *table {
		t := newTable("", "ID", "NAME", "SUBDOMAIN", "URL", "ACTIVE").limit(2, 32)
		for i := range stores {
			s := &stores[i]
			mark := ""
			if s.ID == current.ID {
				mark = "*"
			}
			t.add(mark, fmt.Sprint(s.ID), s.DisplayName(lang), s.Subdomain, tc.StoreURL(s.Subdomain), yesNo(s.IsActive))
		}
		return t
	})
}

func (c *StoresCommand) use(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if err := requireArgs(args, 1, "stores use <id|subdomain>"); err != nil {
		return err
	}
	sel, err := c.app.Selection(ctx)
	if err != nil {
		return err
	}
	s, err := sel.Select(ctx, args[0])
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stdout, "Now using store %s (%s).\n", s.DisplayName(c.app.Language()), s.Subdomain)
	return nil
}

// target finds the store named by args, or the current one.
func (c *StoresCommand) target(ctx context.Context, args []string) (*catalog.Selection, catalog.Store, error) {
	sel, err := c.app.Selection(ctx)
	if err != nil {
		return nil, catalog.Store{}, err
	}
	ref := c.app.StoreRef
	switch len(args) {
	case 0:
	case 1:
		ref = args[0]
	default:
		return nil, catalog.Store{}, fmt.Errorf("unexpected arguments: %v", args[1:])
	}
	if ref == "" {
		s, ok := sel.Current()
		if !ok {
			return nil, catalog.Store{}, fmt.Errorf("no store yet: create one with 'storefront stores create'")
		}
		return sel, s, nil
	}
	s, ok := sel.Find(ref)
	if !ok {
		return nil, catalog.Store{}, fmt.Errorf("store not found: %s", ref)
	}
	return sel, s, nil
}

func (c *StoresCommand) show(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	_, s, err := c.target(ctx, args)
	if err != nil {
		return err
	}
	cc, err := c.app.Catalog(ctx)
	if err != nil {
		return err
	}
	store, err := cc.GetStore(ctx, s.ID)
	if err != nil {
		return err
	}
	return c.writeStore(stdout, store)
}

func (c *StoresCommand) writeStore(w io.Writer, s *catalog.Store) error {
	lang := c.app.Language()
	return render(c.app, w, s, func() *table {
		t := newTable("FIELD", "VALUE")
		t.add("id", fmt.Sprint(s.ID))
		t.add("name", s.DisplayName(lang))
		t.add("subdomain", s.Subdomain)
		t.add("url", c.app.Tenant().StoreURL(s.Subdomain))
		t.add("currency", s.Currency)
		t.add("language", s.DefaultLanguage)
		t.add("phone", s.Phone)
		t.add("active", yesNo(s.IsActive))
		t.add("created", formatTime(s.CreatedAt))
		return t
	})
}

func (c *StoresCommand) create(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %v", args)
	}
	sel, err := c.app.Selection(ctx)
	if err != nil {
		return err
	}
	cc, err := c.app.Catalog(ctx)
	if err != nil {
		return err
	}
	store, err := cc.CreateStore(ctx, c.flags.apply(catalog.StoreInput{}))
	if err != nil {
		return err
	}
	if _, err := sel.Load(ctx); err != nil {
		c.app.Logger().Warn("[Shell] failed to reload stores", "error", err)
	}
	return c.writeStore(stdout, store)
}

func (c *StoresCommand) update(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	sel, s, err := c.target(ctx, args)
	if err != nil {
		return err
	}
	cc, err := c.app.Catalog(ctx)
	if err != nil {
		return err
	}
	store, err := cc.UpdateStore(ctx, s.ID, c.flags.apply(storeInputOf(&s)))
	if err != nil {
		return err
	}
	if _, err := sel.Load(ctx); err != nil {
		c.app.Logger().Warn("[Shell] failed to reload stores", "error", err)
	}
	return c.writeStore(stdout, store)
}
