package command

import (
	"context"
	"fmt"
	"io"
)

// resolution is the output of the resolve command.
type resolution struct {
	APIURL     string `json:"api_url"`
	Source     string `json:"source"`
	BaseDomain string `json:"base_domain"`
	Tenant     string `json:"tenant,omitempty"`
	Scheme     string `json:"scheme"`
	StoreURL   string `json:"store_url,omitempty"`
}

// ResolveCommand shows how the API base and tenant are derived from the
// current configuration.
type ResolveCommand struct {
	*BaseCommand
	app *App
}

// NewResolveCommand creates a new resolve command.
func NewResolveCommand(app *App) *ResolveCommand {
	return &ResolveCommand{
		BaseCommand: NewBaseCommand(
			"resolve",
			"Show the resolved API base URL, base domain and tenant",
			"resolve",
		),
		app: app,
	}
}

// Execute prints the resolution. It never touches the network.
func (c *ResolveCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		_, _ = fmt.Fprintf(stderr, "unexpected arguments: %v\n", args)
		return fmt.Errorf("unexpected arguments")
	}
	tc := c.app.Tenant()
	r := resolution{
		APIURL:     tc.APIBaseURL().String(),
		Source:     tc.APISource(),
		BaseDomain: tc.BaseDomain(),
		Tenant:     tc.Subdomain(),
		Scheme:     tc.Scheme(),
	}
	if r.Tenant != "" {
		r.StoreURL = tc.StoreURL(r.Tenant)
	}
	return render(c.app, stdout, r, func() *table {
		t := newTable("FIELD", "VALUE")
		t.add("api", r.APIURL)
		t.add("source", r.Source)
		t.add("base domain", r.BaseDomain)
		t.add("scheme", r.Scheme)
		if r.Tenant != "" {
			t.add("tenant", r.Tenant)
			t.add("storefront", r.StoreURL)
		} else {
			t.add("tenant", "-")
		}
		return t
	})
}

// URLCommand prints the public URL of a storefront or product.
type URLCommand struct {
	*BaseCommand
	app *App
}

// NewURLCommand creates a new url command.
func NewURLCommand(app *App) *URLCommand {
	return &URLCommand{
		BaseCommand: NewBaseCommand(
			"url",
			"Print the public URL of a storefront or one of its products",
			"url <subdomain> [product-slug]",
		),
		app: app,
	}
}

// Execute prints the URL.
func (c *URLCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	tc := c.app.Tenant()
	switch len(args) {
	case 1:
		_, _ = fmt.Fprintln(stdout, tc.StoreURL(args[0]))
	case 2:
		_, _ = fmt.Fprintln(stdout, tc.ProductURL(args[0], args[1]))
	default:
		return fmt.Errorf("usage: storefront %s", c.Usage())
	}
	return nil
}
