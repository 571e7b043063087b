package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/yudhasubki/spinlock/pkg/postgre"
	"github.com/yudhasubki/spinlock/pkg/report"
	"github.com/yudhasubki/spinlock/pkg/sqlite"
	"github.com/yudhasubki/spinlock/pkg/stress"
	"github.com/yudhasubki/spinlock/pkg/turso"
	"gopkg.in/yaml.v3"
)

var (
	errorEmptyPath     = errors.New("configuration path is empty")
	errorUnknownDriver = errors.New("unknown report driver")
	shutdown           = make(chan os.Signal, 1)
)

func main() {
	m := &Main{}

	err := m.Run(context.Background(), os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		slog.Error("failed to run", "error", err)
		os.Exit(1)
	}
}

type Main struct{}

func (m *Main) Run(ctx context.Context, args []string) error {
	var cmd string
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "stress":
		return (&Stress{}).Run(ctx, args)
	case "http":
		return (&Http{}).Run(ctx, args)
	case "migrate":
		return (&Migrate{}).Run(ctx, args)
	default:
		if cmd == "" || cmd == "help" {
			m.Usage()
			return flag.ErrHelp
		}

		return fmt.Errorf("unknown command : %v", cmd)
	}
}

func (m *Main) Usage() {
	fmt.Println(`
spinlock is a tool to stress the TTAS spinlock and keep its run reports

Usage:

	spinlock <command> [arguments]

The commands are:

	stress  	run one stress workload and print the report
	http    	serve stress runs, reports and metrics over http
	migrate 	create the report schema
`[1:])
}

type Config struct {
	Http    HttpConfig    `yaml:"http"`
	Logging LoggingConfig `yaml:"logging"`
	Stress  stress.Config `yaml:"stress"`
	Report  ReportConfig  `yaml:"report"`
}

func ReadConfigFile(filename string) (_ Config, err error) {
	var config Config
	b, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}

	err = yaml.Unmarshal(b, &config)
	if err != nil {
		return config, err
	}

	if config.Http.Port == "" {
		config.Http.Port = "8080"
	}
	if config.Report.SQLite.DatabaseName == "" {
		config.Report.SQLite.DatabaseName = "spinlock.db"
	}

	setLogger(config.Logging)

	return config, nil
}

func setLogger(config LoggingConfig) {
	logOutput := os.Stdout
	if config.Stderr {
		logOutput = os.Stderr
	}

	logOpts := slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	switch strings.ToUpper(config.Level) {
	case "DEBUG":
		logOpts.Level = slog.LevelDebug
	case "WARN", "WARNING":
		logOpts.Level = slog.LevelWarn
	case "ERROR":
		logOpts.Level = slog.LevelError
	}

	var logHandler slog.Handler
	switch config.Type {
	case "json":
		logHandler = slog.NewJSONHandler(logOutput, &logOpts)
	default:
		logHandler = slog.NewTextHandler(logOutput, &logOpts)
	}

	slog.SetDefault(slog.New(logHandler))
}

type HttpConfig struct {
	Port string `yaml:"port"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Type   string `yaml:"type"`
	Stderr bool   `yaml:"stderr"`
}

type ReportConfig struct {
	Driver   string         `yaml:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres postgre.Config `yaml:"postgres"`
	Turso    TursoConfig    `yaml:"turso"`
}

type SQLiteConfig struct {
	DatabaseName string `yaml:"db_name"`
	BusyTimeout  int    `yaml:"busy_timeout"`
}

type TursoConfig struct {
	URL string `yaml:"url"`
}

func register(fs *flag.FlagSet) *string {
	return fs.String("config", "", "config path")
}

// openStore connects the report driver selected in the config.
func openStore(cfg ReportConfig) (*report.Store, error) {
	var driver report.Driver
	switch cfg.Driver {
	case "sqlite", "":
		sqlite, err := sqlite.New(cfg.SQLite.DatabaseName, sqlite.Config{
			BusyTimeout: cfg.SQLite.BusyTimeout,
		})
		if err != nil {
			slog.Error("failed to open database", "error", err)
			return nil, err
		}
		driver = sqlite
	case "postgres":
		pg, err := postgre.New(cfg.Postgres)
		if err != nil {
			return nil, err
		}
		driver = pg
	case "turso":
		turso, err := turso.New(cfg.Turso.URL)
		if err != nil {
			return nil, err
		}
		driver = turso
	default:
		return nil, fmt.Errorf("%w: %q", errorUnknownDriver, cfg.Driver)
	}

	return report.New(driver), nil
}
