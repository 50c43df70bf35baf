// Package sqlstore keeps the session record in a SQL table, one row per key.
// Statements use $n placeholders and work with the pgx and lib/pq drivers.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"time"

	sessionerrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/session"
)

const (
	DefaultTable     = "session_kv"
	DefaultNamespace = "default"
	defaultTimeout   = 5 * time.Second
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var _ session.Store = (*Store)(nil)

// Store rewrites every key of a namespace inside one transaction.
type Store struct {
	db        *sql.DB
	table     string
	namespace string
	timeout   time.Duration
}

type Option func(*Store)

func WithTable(table string) Option {
	return func(s *Store) {
		s.table = table
	}
}

// WithNamespace separates sessions of different profiles sharing one table
func WithNamespace(namespace string) Option {
	return func(s *Store) {
		s.namespace = namespace
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(s *Store) {
		s.timeout = timeout
	}
}

func New(db *sql.DB, options ...Option) (*Store, error) {
	s := &Store{
		db:        db,
		table:     DefaultTable,
		namespace: DefaultNamespace,
		timeout:   defaultTimeout,
	}
	for _, opt := range options {
		opt(s)
	}
	if !tableNamePattern.MatchString(s.table) {
		return nil, sessionerrors.Wrapf(sessionerrors.ErrInvalidTable, "sqlstore: %q", s.table)
	}
	return s, nil
}

// Migrate creates the table when it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	namespace TEXT NOT NULL,
	key TEXT NOT NULL,
	value TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (namespace, key)
)`, s.table)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return sessionerrors.Wrapf(err, "sqlstore: migrate %s", s.table)
	}
	return nil
}

func (s *Store) Load() (session.Record, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT key, value FROM %s WHERE namespace = $1", s.table), s.namespace)
	if err != nil {
		return nil, sessionerrors.Wrapf(err, "sqlstore: load")
	}
	defer rows.Close()

	rec := session.Record{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, sessionerrors.Wrapf(sessionerrors.ErrCorruptRecord, "sqlstore: scan: %v", err)
		}
		rec[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, sessionerrors.Wrapf(err, "sqlstore: load rows")
	}
	return rec, nil
}

func (s *Store) Save(rec session.Record) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return sessionerrors.Wrapf(err, "sqlstore: begin")
	}
	defer tx.Rollback() // no-op after commit

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE namespace = $1", s.table), s.namespace); err != nil {
		return sessionerrors.Wrapf(err, "sqlstore: delete previous record")
	}

	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	insert := fmt.Sprintf("INSERT INTO %s (namespace, key, value) VALUES ($1, $2, $3)", s.table)
	for _, k := range keys {
		if _, err := tx.ExecContext(ctx, insert, s.namespace, k, rec[k]); err != nil {
			return sessionerrors.Wrapf(err, "sqlstore: insert %s", k)
		}
	}

	if err := tx.Commit(); err != nil {
		return sessionerrors.Wrapf(err, "sqlstore: commit")
	}
	return nil
}

func (s *Store) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE namespace = $1", s.table), s.namespace); err != nil {
		return sessionerrors.Wrapf(err, "sqlstore: clear")
	}
	return nil
}
