package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joeycumines/storefront/internal/command"
	"github.com/joeycumines/storefront/internal/config"
	"github.com/joeycumines/storefront/internal/logging"
)

// Set at build time with -ldflags "-X main.version=... -X main.defaultAPIURL=...".
var (
	version       = "0.1.0-dev"
	defaultAPIURL string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags precede the command name.
type globalFlags struct {
	configPath string
	apiURL     string
	host       string
	profile    string
	storage    string
	store      string
	lang       string
	format     string
	logLevel   string
	logFile    string
}

func (g *globalFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&g.configPath, "config", "", "Config file (default $STOREFRONT_CONFIG or ~/.storefront/config)")
	fs.StringVar(&g.apiURL, "api-url", "", "Backend API base URL")
	fs.StringVar(&g.host, "host", "", "Navigation host to act for, e.g. shop1.example.com")
	fs.StringVar(&g.profile, "profile", "", "Storage profile, one session per profile")
	fs.StringVar(&g.storage, "storage", "", "Storage backend: fs, memory or redis")
	fs.StringVar(&g.store, "store", "", "Store id or subdomain to act on")
	fs.StringVar(&g.lang, "lang", "", "Preferred language for localized names, e.g. bn")
	fs.StringVar(&g.format, "format", "", "Output format: table, json or yaml")
	fs.StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	fs.StringVar(&g.logFile, "log-file", "", "Write the log to this file")
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	cfg, err := config.LoadFromPath(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var g globalFlags
	global := flag.NewFlagSet("storefront", flag.ContinueOnError)
	global.SetOutput(stderr)
	g.register(global)
	global.Usage = func() {
		_, _ = fmt.Fprintln(stderr, "Usage: storefront [global options] <command> [options] [args...]")
		_, _ = fmt.Fprintln(stderr, "")
		_, _ = fmt.Fprintln(stderr, "Global options:")
		global.PrintDefaults()
	}
	if err := global.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := loadConfig(g.configPath)
	if err != nil {
		// A broken config file should not lock the user out of help or init.
		_, _ = fmt.Fprintf(stderr, "Warning: %v\n", err)
		cfg = config.NewConfig()
	}

	logger, logCloser, err := logging.New(logging.OptionsFromConfig(cfg, g.logLevel, g.logFile), stderr)
	if err != nil {
		return err
	}
	defer func() { _ = logCloser.Close() }()
	slog.SetDefault(logger)

	app := command.NewApp(cfg, logger)
	defer func() { _ = app.Close() }()
	app.Version = version
	app.DefaultAPIURL = defaultAPIURL
	app.StoreRef = g.store
	app.Stdin = stdin
	app.Notices = stderr
	if g.configPath != "" {
		app.SetConfigPath(g.configPath)
	}
	app.Override(config.KeyAPIURL, g.apiURL)
	app.Override(config.KeyHost, g.host)
	app.Override(config.KeyStorageProfile, g.profile)
	app.Override(config.KeyStorageBackend, g.storage)
	app.Override(config.KeyLanguage, g.lang)
	app.Override(config.KeyFormat, g.format)
	app.Override(config.KeyLogFile, g.logFile)
	if _, err := app.Format(); err != nil {
		return err
	}

	registry := command.NewRegistry()
	helpCmd := command.NewHelpCommand(registry)
	registry.Register(helpCmd)
	registry.Register(command.NewVersionCommand(app))
	registry.Register(command.NewConfigCommand(app))
	registry.Register(command.NewInitCommand(app))
	registry.Register(command.NewResolveCommand(app))
	registry.Register(command.NewURLCommand(app))
	registry.Register(command.NewHealthCommand(app))
	registry.Register(command.NewRequestCodeCommand(app))
	registry.Register(command.NewLoginCommand(app))
	registry.Register(command.NewLogoutCommand(app))
	registry.Register(command.NewWhoamiCommand(app))
	registry.Register(command.NewStoresCommand(app))
	registry.Register(command.NewProductsCommand(app))
	registry.Register(command.NewOrdersCommand(app))
	registry.Register(command.NewCheckoutCommand(app))
	registry.Register(command.NewLogCommand(app))

	rest := global.Args()
	if len(rest) == 0 {
		return helpCmd.Execute(ctx, nil, stdout, stderr)
	}
	cmdName := rest[0]

	cmd, err := registry.Get(cmdName)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", cmdName)
		_, _ = fmt.Fprintln(stderr, "Use 'storefront help' to see available commands.")
		return err
	}

	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(stderr, "Usage: storefront %s\n", cmd.Usage())
		_, _ = fmt.Fprintf(stderr, "\n%s\n\n", cmd.Description())
		_, _ = fmt.Fprintln(stderr, "Options:")
		fs.PrintDefaults()
	}
	cmd.SetupFlags(fs)
	cmdArgs, err := command.ParseCommandArgs(cmd, fs, rest[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	logger.Debug("[Shell] running command", "command", cmd.Name())
	return cmd.Execute(ctx, cmdArgs, stdout, stderr)
}
