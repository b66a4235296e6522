// Package cli implements the interactive client for the account service:
// a small REPL over the HTTP API with register/login/session commands.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Ursa1337/account-service/internal/client/api"
	"github.com/Ursa1337/account-service/internal/client/config"
)

// App holds the CLI state: the API client and the current session, if any.
type App struct {
	api     *api.Client
	session *api.Session

	in  *bufio.Reader
	out io.Writer
}

// NewApp constructs the CLI application from config.
func NewApp(cfg *config.Config) *App {
	return &App{
		api: api.NewClient(cfg.ServerURL),
		in:  bufio.NewReader(os.Stdin),
		out: os.Stdout,
	}
}

func (a *App) isLoggedIn() bool { return a.session != nil }

func (a *App) status() string {
	if a.session == nil {
		return "not logged in"
	}
	return a.session.User.Username
}

// Register prompts for account details and creates a new account.
func (a *App) Register(ctx context.Context) error {
	username, err := promptText(a.in, "Username", a.out)
	if err != nil {
		return err
	}
	email, err := promptText(a.in, "Email", a.out)
	if err != nil {
		return err
	}
	password, err := promptPassword("Password", a.out)
	if err != nil {
		return err
	}
	confirm, err := promptPassword("Confirm password", a.out)
	if err != nil {
		return err
	}

	session, err := a.api.Register(ctx, username, email, password, confirm)
	if err != nil {
		fmt.Fprintf(a.out, "register failed: %v\n", err)
		return err
	}
	a.session = session
	fmt.Fprintf(a.out, "registered as %s\n", session.User.Username)
	return nil
}

// Login prompts for credentials and opens a new session.
func (a *App) Login(ctx context.Context) error {
	email, err := promptText(a.in, "Email", a.out)
	if err != nil {
		return err
	}
	password, err := promptPassword("Password", a.out)
	if err != nil {
		return err
	}

	session, err := a.api.Login(ctx, email, password)
	if err != nil {
		fmt.Fprintf(a.out, "login failed: %v\n", err)
		return err
	}
	a.session = session
	fmt.Fprintf(a.out, "logged in as %s\n", session.User.Username)
	return nil
}

// Whoami prints the current account.
func (a *App) Whoami(ctx context.Context) error {
	user, err := a.api.Account(ctx, a.session.AccessToken)
	if err != nil {
		fmt.Fprintf(a.out, "whoami failed: %v\n", err)
		return err
	}
	fmt.Fprintf(a.out, "id: %d\nusername: %s\nemail: %s\n", user.ID, user.Username, user.Email)
	if user.Avatar != nil {
		fmt.Fprintf(a.out, "avatar: %s\n", *user.Avatar)
	}
	return nil
}

// Sessions lists the account's sessions.
func (a *App) Sessions(ctx context.Context) error {
	sessions, err := a.api.Sessions(ctx, a.session.AccessToken)
	if err != nil {
		fmt.Fprintf(a.out, "sessions failed: %v\n", err)
		return err
	}
	for i, s := range sessions {
		marker := " "
		if s.CurrentSession {
			marker = "*"
		}
		ip := "-"
		if s.IPAddress != nil {
			ip = *s.IPAddress
		}
		lastUsage := "-"
		if s.LastUsage != nil {
			lastUsage = s.LastUsage.Format(time.RFC3339)
		}
		fmt.Fprintf(a.out, "%s %d: ip=%s last=%s expired=%t renewable=%t\n",
			marker, i+1, ip, lastUsage, s.Expired, s.Renewable)
	}
	return nil
}

// Renew rotates the current session's token pair.
func (a *App) Renew(ctx context.Context) error {
	session, err := a.api.Renew(ctx, a.session.RefreshToken)
	if err != nil {
		fmt.Fprintf(a.out, "renew failed: %v\n", err)
		return err
	}
	a.session = session
	fmt.Fprintf(a.out, "session renewed, access token valid until %s\n",
		session.AccessTokenExpire.Format(time.RFC3339))
	return nil
}

// Logout revokes the current session.
func (a *App) Logout(ctx context.Context) error {
	if err := a.api.Logout(ctx, a.session.AccessToken); err != nil {
		fmt.Fprintf(a.out, "logout failed: %v\n", err)
		return err
	}
	a.session = nil
	fmt.Fprintln(a.out, "logged out")
	return nil
}

// LogoutOthers revokes every other session of the account.
func (a *App) LogoutOthers(ctx context.Context) error {
	if err := a.api.LogoutOthers(ctx, a.session.AccessToken); err != nil {
		fmt.Fprintf(a.out, "logout-others failed: %v\n", err)
		return err
	}
	fmt.Fprintln(a.out, "other sessions revoked")
	return nil
}

// Run starts the read-eval-print loop. It exits on EOF or "exit"/"quit".
func (a *App) Run(ctx context.Context) {
	scanner := bufio.NewScanner(os.Stdin)
	a.repl(ctx, scanner)
}

func (a *App) repl(ctx context.Context, scanner *bufio.Scanner) {
	for {
		fmt.Fprintf(a.out, "account> %s > ", a.status())
		if !scanner.Scan() {
			return
		}
		cmd := scanner.Text()

		switch cmd {
		case "":
			continue
		case "help":
			if a.isLoggedIn() {
				fmt.Fprintln(a.out, "commands: whoami, sessions, renew, logout, logout-others, exit")
			} else {
				fmt.Fprintln(a.out, "commands: register, login, exit")
			}
		case "register":
			_ = a.Register(ctx)
		case "login":
			_ = a.Login(ctx)
		case "whoami":
			a.loggedIn(func() { _ = a.Whoami(ctx) })
		case "sessions":
			a.loggedIn(func() { _ = a.Sessions(ctx) })
		case "renew":
			a.loggedIn(func() { _ = a.Renew(ctx) })
		case "logout":
			a.loggedIn(func() { _ = a.Logout(ctx) })
		case "logout-others":
			a.loggedIn(func() { _ = a.LogoutOthers(ctx) })
		case "exit", "quit":
			return
		default:
			fmt.Fprintf(a.out, "unknown command %q, try help\n", cmd)
		}
	}
}

func (a *App) loggedIn(fn func()) {
	if !a.isLoggedIn() {
		fmt.Fprintln(a.out, "not logged in")
		return
	}
	fn()
}
