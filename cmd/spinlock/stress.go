package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/yudhasubki/spinlock/pkg/report"
	"github.com/yudhasubki/spinlock/pkg/stress"
)

type Stress struct {
	out io.Writer
}

func (s *Stress) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("spinlock-stress", flag.ContinueOnError)
	path := register(fs)
	workload := fs.String("workload", "", "workload name ("+strings.Join(stress.Workloads(), ", ")+")")
	workers := fs.Int("workers", 0, "number of goroutines, defaults to GOMAXPROCS")
	iterations := fs.Int("iterations", 0, "acquires per goroutine")
	save := fs.Bool("save", false, "store the report in the configured database")
	fs.Usage = s.Usage

	err := fs.Parse(args)
	if err != nil {
		return err
	}

	var cfg Config
	if *path != "" {
		cfg, err = ReadConfigFile(*path)
		if err != nil {
			return err
		}
	} else if *save {
		return errorEmptyPath
	}

	if *workload != "" {
		cfg.Stress.Workload = *workload
	}
	if *workers > 0 {
		cfg.Stress.Workers = *workers
	}
	if *iterations > 0 {
		cfg.Stress.Iterations = *iterations
	}

	result, runErr := stress.Run(ctx, cfg.Stress)
	run := report.FromReport(result, runErr)

	if *save {
		store, err := openStore(cfg.Report)
		if err != nil {
			return err
		}
		defer store.Close()

		err = store.Save(ctx, run)
		if err != nil {
			slog.Error("failed to save run", "run_id", run.Id, "error", err)
			return err
		}
	}

	out := s.out
	if out == nil {
		out = os.Stdout
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	err = enc.Encode(run)
	if err != nil {
		return err
	}

	return runErr
}

func (s *Stress) Usage() {
	fmt.Printf(`
The stress command runs one workload against a fresh spinlock and prints the
report. It fails when the lock lost an update or let two holders in.

Usage:
	spinlock stress [arguments]

Arguments:
	-config PATH
	    Specifies the configuration file.
	-workload NAME
	    One of %s.
	-workers N
	    Number of goroutines.
	-iterations N
	    Acquires per goroutine.
	-save
	    Store the report, requires -config.
`[1:],
		strings.Join(stress.Workloads(), ", "),
	)
}
