// Package admin implements the nizamla-admin maintenance commands:
// creating users from the terminal and sweeping stale refresh tokens.
package admin

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/nizamla/internal/common"
	"github.com/dmitrijs2005/nizamla/internal/logging"
	"github.com/dmitrijs2005/nizamla/internal/server/limiter"
	"github.com/dmitrijs2005/nizamla/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/nizamla/internal/server/services"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

var ErrUsage = errors.New("usage: nizamla-admin [-d dsn] useradd -u name -e email [-r role] | sweep [-before duration]")

var errPasswordMismatch = errors.New("passwords do not match")

type App struct {
	repos  repomanager.RepositoryManager
	users  *services.UserService
	out    io.Writer
	logger logging.Logger
	now    func() time.Time
}

func New(repos repomanager.RepositoryManager, out io.Writer, logger logging.Logger, opts ...services.UserOption) *App {
	return &App{
		repos:  repos,
		users:  services.NewUserService(repos, limiter.Nop{}, logger, opts...),
		out:    out,
		logger: logger,
		now:    time.Now,
	}
}

// Run dispatches args[0] as the command name.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}
	switch args[0] {
	case "useradd":
		return a.userAdd(ctx, args[1:])
	case "sweep":
		return a.sweep(ctx, args[1:])
	}
	return fmt.Errorf("unknown command %q: %w", args[0], ErrUsage)
}

func (a *App) userAdd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("useradd", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	username := fs.String("u", "", "username")
	email := fs.String("e", "", "email")
	role := fs.String("r", common.DefaultUserRole, "role")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}
	if *username == "" || *email == "" {
		return ErrUsage
	}

	password, err := a.promptPassword()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	user, err := a.users.CreateUser(ctx, *username, *email, string(password), *role)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "created user %s (id %d, role %s)\n", user.Username, user.ID, user.Role)
	return nil
}

func (a *App) promptPassword() ([]byte, error) {
	first, err := getPassword(a.out, "Enter password: ")
	if err != nil {
		return nil, err
	}
	second, err := getPassword(a.out, "Repeat password: ")
	if err != nil {
		common.WipeByteArray(first)
		return nil, err
	}
	defer common.WipeByteArray(second)

	if string(first) != string(second) {
		common.WipeByteArray(first)
		return nil, errPasswordMismatch
	}
	return first, nil
}

// getPassword reads without echo. The caller wipes the result.
func getPassword(w io.Writer, prompt string) ([]byte, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return nil, err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}
	return pw, nil
}

func (a *App) sweep(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sweep", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	before := fs.Duration("before", 0, "keep rows that expired or were revoked within this long")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}
	if *before < 0 {
		return fmt.Errorf("%w: -before must not be negative", ErrUsage)
	}

	cutoff := a.now().UTC().Add(-*before)
	n, err := a.repos.RefreshTokens().DeleteStale(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("sweep refresh tokens: %w", err)
	}

	a.logger.Info(ctx, "refresh tokens swept", "deleted", n, "cutoff", cutoff)
	fmt.Fprintf(a.out, "deleted %d stale refresh tokens\n", n)
	return nil
}
