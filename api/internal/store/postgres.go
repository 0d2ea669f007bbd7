package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver

	"cf-hints/api/internal/hints"
)

// PostgresStore keeps hint sets in hints_cache, one row per problem code.
type PostgresStore struct{ DB *sql.DB }

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{DB: db} }

// OpenPostgres opens a pooled connection and pings it.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(1 * time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db.Ping (%s): %w", SafeDSNSummary(dsn), err)
	}
	return db, nil
}

const schemaDDL = `
create table if not exists hints_cache (
	problem_code text primary key,
	hints_json   jsonb not null,
	created_at   timestamptz not null default now()
)`

func (r *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, schemaDDL)
	return err
}

func (r *PostgresStore) Exists(ctx context.Context, id string) (bool, error) {
	if err := checkID(id); err != nil {
		return false, err
	}
	const q = `select exists(select 1 from hints_cache where problem_code=$1)`
	var ok bool
	if err := r.DB.QueryRowContext(ctx, q, id).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

func (r *PostgresStore) Read(ctx context.Context, id string) (hints.HintSet, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	const q = `select hints_json from hints_cache where problem_code=$1`
	var js []byte
	if err := r.DB.QueryRowContext(ctx, q, id).Scan(&js); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return decode(js)
}

// Write upserts the whole document and refreshes created_at.
func (r *PostgresStore) Write(ctx context.Context, id string, hs hints.HintSet) error {
	if err := checkID(id); err != nil {
		return err
	}
	js, err := encode(hs, false)
	if err != nil {
		return err
	}
	const q = `
insert into hints_cache(problem_code, hints_json)
values ($1,$2)
on conflict (problem_code)
do update set hints_json=excluded.hints_json, created_at=now()`
	_, err = r.DB.ExecContext(ctx, q, id, js)
	return err
}

// SafeDSNSummary describes a DSN without its password.
func SafeDSNSummary(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "dsn: parse error"
	}
	user := u.User.Username()
	host := u.Host
	port := ""
	if h, p, err := net.SplitHostPort(u.Host); err == nil {
		host, port = h, p
	}
	db := strings.TrimPrefix(u.Path, "/")
	if port == "" {
		return fmt.Sprintf("host=%s db=%s user=%s", host, db, user)
	}
	return fmt.Sprintf("host=%s port=%s db=%s user=%s", host, port, db, user)
}
