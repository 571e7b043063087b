package postgre

import (
	"fmt"
	"log/slog"
	"net/url"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Postgre struct {
	Database *sqlx.DB
}

type Config struct {
	Host         string `yaml:"host"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	Name         string `yaml:"name"`
	Port         int    `yaml:"port"`
	Timezone     string `yaml:"timezone"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

func New(config Config) (*Postgre, error) {
	if config.Timezone == "" {
		config.Timezone = "UTC"
	}

	db, err := sqlx.Connect("postgres", fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=%s",
		config.Host,
		config.Username,
		config.Password,
		config.Name,
		config.Port,
		url.QueryEscape(config.Timezone)))
	if err != nil {
		slog.Error("failed to connect to postgres", "host", config.Host, "error", err)
		return nil, err
	}

	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}

	return &Postgre{
		Database: db,
	}, nil
}

func (pg *Postgre) Conn() *sqlx.DB {
	return pg.Database
}

func (pg *Postgre) Close() error {
	return pg.Database.Close()
}
