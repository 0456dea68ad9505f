package command

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joeycumines/storefront/internal/config"
)

const (
	followInterval  = 200 * time.Millisecond
	waitFileTimeout = 30 * time.Second
)

// LogCommand prints and follows the log file.
type LogCommand struct {
	*BaseCommand
	app       *App
	follow    bool
	lines     int
	file      string
	component string
}

// NewLogCommand creates a new log command.
func NewLogCommand(app *App) *LogCommand {
	return &LogCommand{
		BaseCommand: NewBaseCommand("log", "View and follow the log file", "log [tail] [options]"),
		app:         app,
	}
}

// SetupFlags configures the flags for the log command.
func (c *LogCommand) SetupFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.follow, "f", false, "Follow the log file (like tail -f)")
	fs.BoolVar(&c.follow, "follow", false, "Follow the log file (like tail -f)")
	fs.IntVar(&c.lines, "n", 10, "Number of lines to show from the end of the file")
	fs.StringVar(&c.file, "file", "", "Path to log file (overrides log.file)")
	fs.StringVar(&c.component, "component", "", "Only lines of one component, e.g. Session or Gateway")
}

// Execute runs the log command. Following stops when ctx is cancelled.
func (c *LogCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	// "log tail" is an alias for "log --follow".
	if len(args) > 0 && args[0] == "tail" {
		c.follow = true
		args = args[1:]
	}
	if len(args) > 0 {
		_, _ = fmt.Fprintf(stderr, "unknown subcommand: %s\n", args[0])
		return fmt.Errorf("unknown subcommand: %s", args[0])
	}

	logPath := c.file
	if logPath == "" {
		logPath = c.app.Resolve(config.KeyLogFile)
	}
	if logPath == "" {
		_, _ = fmt.Fprintln(stderr, "No log file configured. Use --file or set log.file in config.")
		return fmt.Errorf("no log file configured")
	}

	out := lineWriter{w: stdout}
	if c.component != "" {
		out.match = "[" + strings.Trim(c.component, "[]") + "]"
	}

	if c.follow {
		return c.tailFollow(ctx, logPath, out, stderr)
	}
	return c.tailLines(logPath, out, stderr)
}

// lineWriter prints lines, optionally only those containing match.
type lineWriter struct {
	w     io.Writer
	match string
}

func (l lineWriter) keep(line string) bool {
	return l.match == "" || strings.Contains(line, l.match)
}

func (l lineWriter) println(line string) {
	if l.keep(line) {
		_, _ = fmt.Fprintln(l.w, line)
	}
}

func (c *LogCommand) tailLines(logPath string, out lineWriter, stderr io.Writer) error {
	f, err := os.Open(logPath)
	if err != nil {
		if os.IsNotExist(err) {
			_, _ = fmt.Fprintf(stderr, "Log file does not exist: %s\n", logPath)
			return fmt.Errorf("log file not found: %s", logPath)
		}
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	for _, line := range readLastNLines(f, c.lines, out.keep) {
		out.println(line)
	}
	return nil
}

// readLastNLines returns the last n lines of r accepted by keep, using a
// ring buffer so that large files are not held in memory.
func readLastNLines(r io.Reader, n int, keep func(string) bool) []string {
	if n <= 0 {
		return nil
	}
	ring := make([]string, n)
	count := 0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if keep != nil && !keep(line) {
			continue
		}
		ring[count%n] = line
		count++
	}

	total := min(count, n)
	result := make([]string, total)
	start := count - total
	for i := range total {
		result[i] = ring[(start+i)%n]
	}
	return result
}

func (c *LogCommand) tailFollow(ctx context.Context, logPath string, out lineWriter, stderr io.Writer) error {
	f, err := os.Open(logPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		_, _ = fmt.Fprintf(stderr, "Waiting for log file: %s\n", logPath)
		if f, err = waitForFile(ctx, logPath, waitFileTimeout); err != nil {
			return err
		}
	}

	for _, line := range readLastNLines(f, c.lines, out.keep) {
		out.println(line)
	}
	pos, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to seek to end: %w", err)
	}
	err = followFile(ctx, f, logPath, pos, out, stderr)
	if ctx.Err() != nil {
		// Interrupted: the normal way to stop following.
		return nil
	}
	return err
}

// followFile polls the file for new data. A rotation (the path now names
// a different or shorter file) reopens it from the start.
func followFile(ctx context.Context, f *os.File, logPath string, pos int64, out lineWriter, stderr io.Writer) error {
	reader := bufio.NewReader(f)
	ticker := time.NewTicker(followInterval)
	defer ticker.Stop()
	defer func() { _ = f.Close() }()

	var partial string
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		rotated, err := detectRotation(f, logPath, pos)
		if err != nil {
			_ = f.Close()
			_, _ = fmt.Fprintln(stderr, "Log file rotated, waiting for new file...")
			if f, err = waitForFile(ctx, logPath, waitFileTimeout); err != nil {
				return err
			}
			reader, pos, partial = bufio.NewReader(f), 0, ""
			continue
		}
		if rotated {
			next, err := os.Open(logPath)
			if err != nil {
				continue
			}
			_ = f.Close()
			f = next
			reader, pos, partial = bufio.NewReader(f), 0, ""
		}

		for {
			chunk, err := reader.ReadString('\n')
			pos += int64(len(chunk))
			if strings.HasSuffix(chunk, "\n") {
				out.println(partial + strings.TrimSuffix(chunk, "\n"))
				partial = ""
			} else {
				// Incomplete line; finished on a later tick.
				partial += chunk
			}
			if err != nil {
				break
			}
		}
	}
}

// detectRotation reports whether logPath no longer names the open file,
// or names it but shorter than pos (truncation). A missing path is an
// error.
func detectRotation(current *os.File, logPath string, pos int64) (bool, error) {
	pathInfo, err := os.Stat(logPath)
	if err != nil {
		return false, err
	}
	if openInfo, err := current.Stat(); err == nil && !os.SameFile(openInfo, pathInfo) {
		return true, nil
	}
	return pathInfo.Size() < pos, nil
}

// waitForFile polls for path to appear, for up to maxWait.
func waitForFile(ctx context.Context, path string, maxWait time.Duration) (*os.File, error) {
	const pollInterval = 100 * time.Millisecond

	timer := time.NewTimer(maxWait)
	defer timer.Stop()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		f, err := os.Open(path)
		if err == nil {
			return f, nil
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, fmt.Errorf("timed out waiting for log file: %s", path)
		case <-ticker.C:
		}
	}
}
