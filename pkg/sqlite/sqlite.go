package sqlite

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	Database *sqlx.DB
}

type Config struct {
	BusyTimeout int
}

// New opens the report database at dbName in WAL mode.
func New(dbName string, config Config) (*SQLite, error) {
	db, err := sqlx.Connect("sqlite3",
		fmt.Sprintf(
			"file:%s?_synchronous=normal&_journal_mode=wal&_busy_timeout=%d",
			dbName,
			config.BusyTimeout,
		),
	)
	if err != nil {
		return nil, err
	}
	// writers serialize on the file lock anyway
	db.SetMaxOpenConns(1)

	return &SQLite{
		Database: db,
	}, nil
}

func (sqlite *SQLite) Conn() *sqlx.DB {
	return sqlite.Database
}

func (sqlite *SQLite) Close() error {
	return sqlite.Database.Close()
}
