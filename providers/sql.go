package providers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	log "github.com/sirupsen/logrus"

	"github.com/olablt/gio-fieldmap/tiles"
)

const tileQuery = "select tile_data from tiles where zoom_level = ? and tile_column = ? and tile_row = ?"

// SQL reads tiles from an MBTiles schema held in sqlite3 or mysql. Rows are
// stored in TMS order, so the row index is flipped on lookup.
type SQL struct {
	db     *sql.DB
	driver string
}

// OpenSQL opens an MBTiles database. driver is "sqlite3" or "mysql".
func OpenSQL(ctx context.Context, driver, dsn string) (*SQL, error) {
	switch driver {
	case "sqlite3", "mysql":
	default:
		return nil, fmt.Errorf("providers: unsupported sql driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == "mysql" {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("providers: open %s: %w", driver, err)
	}
	return &SQL{db: db, driver: driver}, nil
}

func (s *SQL) Fetch(ctx context.Context, tile tiles.Tile) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, tileQuery, tile.Zoom, tile.X, tile.FlipY()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, tile)
	}
	if err != nil {
		return nil, fmt.Errorf("providers: query %s: %w", tile, err)
	}
	return data, nil
}

// Metadata returns the name/value pairs of the metadata table.
func (s *SQL) Metadata(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "select name, value from metadata")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		meta[name] = value
	}
	return meta, rows.Err()
}

func (s *SQL) Close() error {
	log.Debugf("closing %s tile source", s.driver)
	return s.db.Close()
}
