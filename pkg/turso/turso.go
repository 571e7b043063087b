package turso

import (
	"errors"

	"github.com/jmoiron/sqlx"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

var errEmptyURL = errors.New("turso url is empty")

type Turso struct {
	Database *sqlx.DB
}

// New opens a libsql connection. The url carries the auth token, e.g.
// libsql://<db>.turso.io?authToken=<token>.
func New(url string) (*Turso, error) {
	if url == "" {
		return nil, errEmptyURL
	}

	db, err := sqlx.Open("libsql", url)
	if err != nil {
		return nil, err
	}
	return &Turso{
		Database: db,
	}, nil
}

func (t *Turso) Conn() *sqlx.DB {
	return t.Database
}

func (t *Turso) Close() error {
	return t.Database.Close()
}
