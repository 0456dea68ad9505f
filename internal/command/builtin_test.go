package command

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/storefront/internal/config"
)

func TestHelpCommand(t *testing.T) {
	app := NewApp(config.NewConfig(), nil)
	app.Version = "1.0.0"
	registry := NewRegistry()
	registry.Register(NewVersionCommand(app))
	registry.Register(NewConfigCommand(app))
	registry.Register(NewProductsCommand(app))
	cmd := NewHelpCommand(registry)
	registry.Register(cmd)

	assert.Equal(t, "help", cmd.Name())
	assert.Equal(t, "help [command]", cmd.Usage())

	t.Run("general help", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		require.NoError(t, cmd.Execute(context.Background(), nil, &stdout, &stderr))
		out := stdout.String()
		assert.Contains(t, out, "Usage: storefront [global options] <command>")
		assert.Contains(t, out, "version")
		assert.Contains(t, out, "Display version information")
		assert.Contains(t, out, "products")
	})

	t.Run("command flags", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		require.NoError(t, cmd.Execute(context.Background(), []string{"config"}, &stdout, &stderr))
		out := stdout.String()
		assert.Contains(t, out, "Command: config")
		assert.Contains(t, out, "Flags:")
		assert.Contains(t, out, "-global")
	})

	t.Run("subcommands", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		require.NoError(t, cmd.Execute(context.Background(), []string{"products"}, &stdout, &stderr))
		out := stdout.String()
		assert.Contains(t, out, "Subcommands:")
		assert.Contains(t, out, "products list")
		assert.Contains(t, out, "-filter")
		assert.Contains(t, out, "products update <id>")
		assert.Contains(t, out, "-discount")
	})

	t.Run("unknown command", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		err := cmd.Execute(context.Background(), []string{"nope"}, &stdout, &stderr)
		require.Error(t, err)
		assert.Contains(t, stderr.String(), "Unknown command: nope")
	})
}

func TestVersionCommand(t *testing.T) {
	app := NewApp(config.NewConfig(), nil)
	app.Version = "1.2.3"
	app.DefaultAPIURL = "https://api.example.com"
	cmd := NewVersionCommand(app)

	var stdout, stderr bytes.Buffer
	require.NoError(t, cmd.Execute(context.Background(), nil, &stdout, &stderr))
	assert.Equal(t, "storefront version 1.2.3\ndefault api: https://api.example.com\n", stdout.String())

	err := cmd.Execute(context.Background(), []string{"extra"}, &stdout, &stderr)
	require.Error(t, err)
	assert.Contains(t, stderr.String(), "unexpected arguments")
}

func newConfigApp(t *testing.T) (*App, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "config")
	app := NewApp(config.NewConfig(), nil)
	app.SetConfigPath(path)
	return app, path
}

func TestConfigCommand(t *testing.T) {
	unsetEnv(t, "STOREFRONT_API_URL")
	unsetEnv(t, "STOREFRONT_LOG_LEVEL")

	t.Run("usage without arguments", func(t *testing.T) {
		app, _ := newConfigApp(t)
		var stdout, stderr bytes.Buffer
		require.NoError(t, NewConfigCommand(app).Execute(context.Background(), nil, &stdout, &stderr))
		assert.Contains(t, stdout.String(), "config <key> <value>")
	})

	t.Run("set persists and get resolves", func(t *testing.T) {
		app, path := newConfigApp(t)
		cmd := NewConfigCommand(app)
		var stdout, stderr bytes.Buffer
		require.NoError(t, cmd.Execute(context.Background(), []string{config.KeyAPIURL, "https://api.shop.test"}, &stdout, &stderr))
		assert.Contains(t, stdout.String(), "Set configuration: api.url = https://api.shop.test")
		assert.Empty(t, stderr.String())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "api.url https://api.shop.test")

		stdout.Reset()
		require.NoError(t, cmd.Execute(context.Background(), []string{config.KeyAPIURL}, &stdout, &stderr))
		assert.Equal(t, "api.url: https://api.shop.test (config)\n", stdout.String())
	})

	t.Run("get reports default source", func(t *testing.T) {
		app, _ := newConfigApp(t)
		var stdout, stderr bytes.Buffer
		require.NoError(t, NewConfigCommand(app).Execute(context.Background(), []string{config.KeyLogLevel}, &stdout, &stderr))
		assert.Equal(t, "log.level: warn (default)\n", stdout.String())
	})

	t.Run("get unknown key", func(t *testing.T) {
		app, _ := newConfigApp(t)
		var stdout, stderr bytes.Buffer
		require.NoError(t, NewConfigCommand(app).Execute(context.Background(), []string{"nope"}, &stdout, &stderr))
		assert.Contains(t, stdout.String(), "Configuration key 'nope' not found")
	})

	t.Run("set unknown key warns", func(t *testing.T) {
		app, _ := newConfigApp(t)
		var stdout, stderr bytes.Buffer
		require.NoError(t, NewConfigCommand(app).Execute(context.Background(), []string{"colour", "blue"}, &stdout, &stderr))
		assert.Contains(t, stderr.String(), "unknown configuration key: colour")
	})

	t.Run("show global and all", func(t *testing.T) {
		app, _ := newConfigApp(t)
		app.Config().SetGlobalOption("format", "json")
		app.Config().SetCommandOption("orders", "status", "pending")

		cmd := NewConfigCommand(app)
		cmd.showGlobal = true
		var stdout, stderr bytes.Buffer
		require.NoError(t, cmd.Execute(context.Background(), nil, &stdout, &stderr))
		assert.Contains(t, stdout.String(), "format: json")
		assert.NotContains(t, stdout.String(), "[orders]")

		cmd.showGlobal, cmd.showAll = false, true
		stdout.Reset()
		require.NoError(t, cmd.Execute(context.Background(), nil, &stdout, &stderr))
		assert.Contains(t, stdout.String(), "[orders]")
		assert.Contains(t, stdout.String(), "status: pending")
	})

	t.Run("validate", func(t *testing.T) {
		app, _ := newConfigApp(t)
		var stdout, stderr bytes.Buffer
		cmd := NewConfigCommand(app)
		require.NoError(t, cmd.Execute(context.Background(), []string{"validate"}, &stdout, &stderr))
		assert.Contains(t, stdout.String(), "Configuration is valid.")

		app.Config().SetGlobalOption("http.burst", "lots")
		stdout.Reset()
		require.NoError(t, cmd.Execute(context.Background(), []string{"validate"}, &stdout, &stderr))
		assert.Contains(t, stdout.String(), "issue(s)")
	})

	t.Run("schema", func(t *testing.T) {
		app, _ := newConfigApp(t)
		var stdout, stderr bytes.Buffer
		require.NoError(t, NewConfigCommand(app).Execute(context.Background(), []string{"schema"}, &stdout, &stderr))
		assert.Contains(t, stdout.String(), config.KeyAPIURL)
	})

	t.Run("too many arguments", func(t *testing.T) {
		app, _ := newConfigApp(t)
		var stdout, stderr bytes.Buffer
		require.Error(t, NewConfigCommand(app).Execute(context.Background(), []string{"a", "b", "c"}, &stdout, &stderr))
	})
}

func TestInitCommand(t *testing.T) {
	app, path := newConfigApp(t)
	cmd := NewInitCommand(app)

	var stdout, stderr bytes.Buffer
	require.NoError(t, cmd.Execute(context.Background(), nil, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "Initialized storefront configuration at: "+path)
	assert.Empty(t, stderr.String(), "the starter config validates")

	loaded, err := config.LoadFromPath(path)
	require.NoError(t, err)
	format, _ := loaded.GetGlobalOption(config.KeyFormat)
	assert.Equal(t, "table", format)

	stdout.Reset()
	require.NoError(t, cmd.Execute(context.Background(), nil, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "Configuration already exists")

	require.NoError(t, os.WriteFile(path, []byte("format json\n"), 0o600))
	cmd.force = true
	stdout.Reset()
	require.NoError(t, cmd.Execute(context.Background(), nil, &stdout, &stderr))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# storefront configuration file"))
}
