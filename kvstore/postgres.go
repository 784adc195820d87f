package kvstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of a pgx pool the postgres backend uses. Both
// *pgxpool.Pool and pgxmock pools satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres is a Backend stored in a two-column table keyed by MMSI.
type Postgres struct {
	db    Querier
	table string
}

// PostgresOpener opens the table "aistrack_<Name>", creating it if needed.
type PostgresOpener struct {
	DB   Querier
	Name string
}

func (o PostgresOpener) table() string { return "aistrack_" + o.Name }

func (o PostgresOpener) String() string { return "postgres:" + o.table() }

func (o PostgresOpener) Open(ctx context.Context) (Backend, error) {
	if o.DB == nil {
		return nil, errors.New("postgres backend: no pool configured")
	}
	_, err := o.DB.Exec(ctx, fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (mmsi integer PRIMARY KEY, payload bytea NOT NULL)`, o.table()))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", o.table(), err)
	}
	var n int
	if err := o.DB.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM %s`, o.table())).Scan(&n); err != nil {
		return nil, fmt.Errorf("check %s: %w", o.table(), err)
	}
	return &Postgres{db: o.DB, table: o.table()}, nil
}

func (o PostgresOpener) Reset(ctx context.Context) error {
	if o.DB == nil {
		return errors.New("postgres backend: no pool configured")
	}
	_, err := o.DB.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, o.table()))
	return err
}

func (p *Postgres) Get(ctx context.Context, key uint32) ([]byte, error) {
	var payload []byte
	err := p.db.QueryRow(ctx, fmt.Sprintf(`SELECT payload FROM %s WHERE mmsi = $1`, p.table), int32(key)).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return payload, err
}

func (p *Postgres) Put(ctx context.Context, key uint32, val []byte) error {
	_, err := p.db.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (mmsi, payload) VALUES ($1, $2)
		ON CONFLICT (mmsi) DO UPDATE SET payload = EXCLUDED.payload
	`, p.table), int32(key), val)
	return err
}

func (p *Postgres) Delete(ctx context.Context, key uint32) error {
	_, err := p.db.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE mmsi = $1`, p.table), int32(key))
	return err
}

func (p *Postgres) ForEach(ctx context.Context, fn func(key uint32, val []byte) error) error {
	rows, err := p.db.Query(ctx, fmt.Sprintf(`SELECT mmsi, payload FROM %s ORDER BY mmsi`, p.table))
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			key     int32
			payload []byte
		)
		if err := rows.Scan(&key, &payload); err != nil {
			return err
		}
		if err := fn(uint32(key), payload); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (p *Postgres) Len(ctx context.Context) (int, error) {
	var n int
	err := p.db.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM %s`, p.table)).Scan(&n)
	return n, err
}

// Compact reclaims dead tuples left by deletes and updates.
func (p *Postgres) Compact(ctx context.Context) error {
	_, err := p.db.Exec(ctx, fmt.Sprintf(`VACUUM %s`, p.table))
	return err
}

// Close leaves the shared pool open.
func (p *Postgres) Close() error { return nil }
