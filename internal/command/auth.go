package command

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/term"

	"github.com/joeycumines/storefront/internal/catalog"
	"github.com/joeycumines/storefront/internal/session"
)

// RequestCodeCommand sends a one-time verification code to a phone.
type RequestCodeCommand struct {
	*BaseCommand
	app *App
}

// NewRequestCodeCommand creates a new request-code command.
func NewRequestCodeCommand(app *App) *RequestCodeCommand {
	return &RequestCodeCommand{
		BaseCommand: NewBaseCommand(
			"request-code",
			"Send a one-time verification code to a phone number",
			"request-code <phone>",
		),
		app: app,
	}
}

// Execute requests the code.
func (c *RequestCodeCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if err := requireArgs(args, 1, c.Usage()); err != nil {
		return err
	}
	ctrl, err := c.app.Session(ctx)
	if err != nil {
		return err
	}
	return requestCode(ctx, ctrl, args[0], stdout)
}

func requestCode(ctx context.Context, ctrl *session.Controller, phone string, w io.Writer) error {
	ch, err := ctrl.RequestOneTimeCode(ctx, phone)
	if err != nil {
		return err
	}
	msg := ch.Message
	if msg == "" {
		msg = "Verification code sent."
	}
	_, _ = fmt.Fprintln(w, msg)
	if ch.OTP != "" {
		_, _ = fmt.Fprintf(w, "Development code: %s\n", ch.OTP)
	}
	return nil
}

// LoginCommand signs in with a phone number and one-time code.
type LoginCommand struct {
	*BaseCommand
	app  *App
	code string
}

// NewLoginCommand creates a new login command.
func NewLoginCommand(app *App) *LoginCommand {
	return &LoginCommand{
		BaseCommand: NewBaseCommand(
			"login",
			"Sign in with a phone number and one-time code",
			"login [options] <phone>",
		),
		app: app,
	}
}

// SetupFlags configures the flags for the login command.
func (c *LoginCommand) SetupFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.code, "code", "", "Verification code; when empty a code is requested and read from the terminal or stdin")
}

// Execute signs in.
func (c *LoginCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if err := requireArgs(args, 1, c.Usage()); err != nil {
		return err
	}
	phone := args[0]
	ctrl, err := c.app.Session(ctx)
	if err != nil {
		return err
	}

	code := c.code
	if code == "" {
		if err := requestCode(ctx, ctrl, phone, stderr); err != nil {
			return err
		}
		if code, err = readCode(c.app.Stdin, stderr); err != nil {
			return err
		}
	}

	// A rejected new token ends the session; that is a failed login, not
	// an expiry.
	c.app.expectSessionEnd()
	if err := ctrl.Login(ctx, phone, code); err != nil {
		return err
	}

	snap := ctrl.Snapshot()
	if snap.User != nil {
		_, _ = fmt.Fprintf(stdout, "Logged in as %s.\n", snap.User.DisplayName())
	} else {
		_, _ = fmt.Fprintln(stdout, "Logged in. Profile not confirmed yet; it will be checked on the next command.")
	}
	return nil
}

// readCode prompts for the code without echo when in is a terminal, and
// reads one line otherwise.
func readCode(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		_, _ = fmt.Fprint(prompt, "Verification code: ")
		b, err := term.ReadPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("failed to read verification code: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read verification code: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// LogoutCommand ends the session.
type LogoutCommand struct {
	*BaseCommand
	app *App
}

// NewLogoutCommand creates a new logout command.
func NewLogoutCommand(app *App) *LogoutCommand {
	return &LogoutCommand{
		BaseCommand: NewBaseCommand(
			"logout",
			"Sign out and forget the stored token",
			"logout",
		),
		app: app,
	}
}

// Execute signs out. It succeeds when nobody is signed in.
func (c *LogoutCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if err := c.app.Logout(ctx); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(stdout, "Logged out.")
	return nil
}

// identity is the output of whoami.
type identity struct {
	State     string        `json:"state"`
	User      *catalog.User `json:"user,omitempty"`
	Subject   string        `json:"subject,omitempty"`
	ExpiresAt *time.Time    `json:"expires_at,omitempty"`
}

// WhoamiCommand shows the signed-in principal.
type WhoamiCommand struct {
	*BaseCommand
	app     *App
	refresh bool
}

// NewWhoamiCommand creates a new whoami command.
func NewWhoamiCommand(app *App) *WhoamiCommand {
	return &WhoamiCommand{
		BaseCommand: NewBaseCommand(
			"whoami",
			"Show the signed-in user",
			"whoami [options]",
		),
		app: app,
	}
}

// SetupFlags configures the flags for the whoami command.
func (c *WhoamiCommand) SetupFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.refresh, "refresh", false, "Fetch the profile again even if it was just confirmed")
}

// Execute shows the principal.
func (c *WhoamiCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	ctrl, err := c.app.Authenticated(ctx)
	if err != nil {
		return err
	}
	if c.refresh || ctrl.State() == session.Pending {
		if err := ctrl.RefreshProfile(ctx); err != nil {
			if ctrl.Token() == "" {
				return err
			}
			c.app.Logger().Warn("[Shell] profile refresh failed", "error", err)
		}
	}

	snap := ctrl.Snapshot()
	if !snap.IsAuthenticated() {
		return errNotLoggedIn
	}
	id := identity{State: snap.State.String(), User: snap.User}
	id.Subject, id.ExpiresAt = tokenClaims(snap.Token)

	return render(c.app, stdout, id, func() *table {
		t := newTable("FIELD", "VALUE")
		t.add("state", id.State)
		if u := id.User; u != nil {
			t.add("id", fmt.Sprint(u.ID))
			t.add("name", u.DisplayName())
			t.add("phone", u.Phone)
			if u.Email != "" {
				t.add("email", u.Email)
			}
		}
		if id.Subject != "" {
			t.add("subject", id.Subject)
		}
		if id.ExpiresAt != nil {
			t.add("expires", id.ExpiresAt.Local().Format(time.RFC1123))
		}
		return t
	})
}

// tokenClaims reads the subject and expiry of a JWT without verifying it;
// the backend remains the authority. Opaque tokens yield zero values.
func tokenClaims(token string) (string, *time.Time) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", nil
	}
	sub, _ := claims.GetSubject()
	var expiresAt *time.Time
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time
		expiresAt = &t
	}
	return sub, expiresAt
}
