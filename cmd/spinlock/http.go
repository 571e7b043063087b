package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/lesismal/nbio/nbhttp"
	"github.com/yudhasubki/spinlock/pkg/server"
)

type Http struct{}

func (h *Http) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("spinlock-http", flag.ContinueOnError)
	path := register(fs)
	fs.Usage = h.Usage

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
		slog.Error("failed to migrate report store", "error", err)
		return err
	}

	mux := chi.NewRouter()
	mux.Mount("/", (&server.Http{
		Store:    store,
		Defaults: cfg.Stress,
	}).Router())

	engine := nbhttp.NewEngine(nbhttp.Config{
		Network: "tcp",
		Addrs:   []string{":" + cfg.Http.Port},
		Handler: mux,
		IOMod:   nbhttp.IOModNonBlocking,
	})

	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	err = engine.Start()
	if err != nil {
		return err
	}
	slog.Info("http server started", "port", cfg.Http.Port)
	<-shutdown

	slog.Info("http server shutting down")
	engine.Stop()

	return nil
}

func (h *Http) Usage() {
	fmt.Printf(`
The HTTP command serves stress runs, stored reports and prometheus metrics.

Usage:
	spinlock http [arguments]

Arguments:
	-config PATH
	    Specifies the configuration file.

Endpoints:
	POST /runs            run a workload, body is the stress config
	GET  /runs            list stored runs (?workload=&limit=)
	GET  /runs/{runId}    one stored run
	GET  /workloads       available workloads
	GET  /metrics         prometheus metrics

The run body accepts "workload", "workers" (at most 1024), "iterations"
(at most 10000000) and "timeout" (at most 10m) given either as a duration
string such as "30s" or as nanoseconds.
`[1:],
	)
}
