package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/dmitrijs2005/nizamla/internal/admin"
	"github.com/dmitrijs2005/nizamla/internal/logging"
	"github.com/dmitrijs2005/nizamla/internal/server/repositories/repomanager"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("nizamla-admin", flag.ContinueOnError)
	dsn := fs.String("d", os.Getenv("NIZAMLA_DATABASE_DSN"), "database DSN")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dsn == "" {
		return errors.New("database DSN is required (-d or NIZAMLA_DATABASE_DSN)")
	}

	logger := logging.NewJSONLogger(os.Stderr, "warn")

	repos, err := repomanager.OpenPostgres(ctx, *dsn)
	if err != nil {
		return err
	}
	defer repos.Close()

	if err := repos.RunMigrations(ctx); err != nil {
		return err
	}

	return admin.New(repos, os.Stdout, logger).Run(ctx, fs.Args())
}
