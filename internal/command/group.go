package command

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
)

// subcommand is one verb of a command group, with its own flags.
type subcommand struct {
	name        string
	args        string
	description string
	flags       func(fs *flag.FlagSet)
	run         func(ctx context.Context, args []string, stdout, stderr io.Writer) error
}

// groupCommand dispatches its first argument to a subcommand. Flags after
// the subcommand name belong to the subcommand.
type groupCommand struct {
	*BaseCommand
	subs []subcommand
	// fallback runs when no subcommand is named.
	fallback string
}

func newGroupCommand(name, description, fallback string, subs ...subcommand) *groupCommand {
	names := make([]string, len(subs))
	for i, s := range subs {
		names[i] = s.name
	}
	usage := fmt.Sprintf("%s <%s> [options] [args]", name, strings.Join(names, "|"))
	return &groupCommand{
		BaseCommand: NewBaseCommand(name, description, usage),
		subs:        subs,
		fallback:    fallback,
	}
}

func (g *groupCommand) find(name string) (subcommand, bool) {
	for _, s := range g.subs {
		if s.name == name {
			return s, true
		}
	}
	return subcommand{}, false
}

// Execute runs the named subcommand.
func (g *groupCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	name := g.fallback
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		name, args = args[0], args[1:]
	}
	if name == "" {
		_, _ = fmt.Fprintf(stderr, "Usage: storefront %s\n", g.Usage())
		return fmt.Errorf("%s: missing subcommand", g.Name())
	}
	sub, ok := g.find(name)
	if !ok {
		_, _ = fmt.Fprintf(stderr, "Usage: storefront %s\n", g.Usage())
		return fmt.Errorf("%s: unknown subcommand: %s", g.Name(), name)
	}

	fs := flag.NewFlagSet(g.Name()+" "+sub.name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	if sub.flags != nil {
		sub.flags(fs)
	}
	rest, err := ParseFlags(fs, args)
	if err != nil {
		return err
	}
	return sub.run(ctx, rest, stdout, stderr)
}

// ParseCommandArgs parses the flags of cmd and returns its positional
// arguments. A command group stops at the subcommand name, which owns the
// rest of the line.
func ParseCommandArgs(cmd Command, fs *flag.FlagSet, args []string) ([]string, error) {
	if _, ok := cmd.(*groupCommand); ok {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		return fs.Args(), nil
	}
	return ParseFlags(fs, args)
}

// ParseFlags parses args like fs.Parse, but keeps going past positional
// arguments, so "update 7 --stock 0" and "update --stock 0 7" are the same.
// Everything after a "--" terminator is positional. The positionals are
// returned in order.
func ParseFlags(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		if len(rest) == 0 {
			return positional, nil
		}
		if consumed := len(args) - len(rest); consumed > 0 && args[consumed-1] == "--" {
			return append(positional, rest...), nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

// WriteSubcommands lists the subcommands and their flags.
func (g *groupCommand) WriteSubcommands(w io.Writer) {
	for _, s := range g.subs {
		line := strings.TrimSpace(g.Name() + " " + s.name + " " + s.args)
		_, _ = fmt.Fprintf(w, "  %s\n      %s\n", line, s.description)
		if s.flags == nil {
			continue
		}
		fs := flag.NewFlagSet(s.name, flag.ContinueOnError)
		var buf bytes.Buffer
		fs.SetOutput(&buf)
		s.flags(fs)
		fs.PrintDefaults()
		for _, l := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
			if l != "" {
				_, _ = fmt.Fprintf(w, "    %s\n", l)
			}
		}
	}
}

// requireArgs fails unless exactly n positional arguments were given.
func requireArgs(args []string, n int, usage string) error {
	if len(args) != n {
		return fmt.Errorf("usage: storefront %s", usage)
	}
	return nil
}
