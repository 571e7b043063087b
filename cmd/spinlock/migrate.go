package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
)

type Migrate struct{}

func (m *Migrate) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("spinlock-migrate", flag.ContinueOnError)
	path := register(fs)
	fs.Usage = m.Usage

	err := fs.Parse(args)
	if err != nil {
		return err
	}

	if *path == "" {
		return errorEmptyPath
	}

	cfg, err := ReadConfigFile(*path)
	if err != nil {
		return err
	}

	store, err := openStore(cfg.Report)
	if err != nil {
		return err
	}
	defer store.Close()

	err = store.Migrate(ctx)
	if err != nil {
		slog.Error("failed migrate", "driver", cfg.Report.Driver, "error", err)
		return err
	}
	slog.Info("successfully migrate", "driver", cfg.Report.Driver)

	return nil
}

func (m *Migrate) Usage() {
	fmt.Printf(`
The migrate command creates the report schema in the configured database.

Usage:
	spinlock migrate [arguments]

Arguments:
	-config PATH
	    Specifies the configuration file.
`[1:],
	)
}
