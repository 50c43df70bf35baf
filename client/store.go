package client

import (
	"context"
	"database/sql"

	"github.com/jrsteele09/go-auth-session/internal/config"
	sessionerrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/session"
	"github.com/jrsteele09/go-auth-session/session/filestore"
	"github.com/jrsteele09/go-auth-session/session/sqlstore"
	"github.com/pkg/errors"

	// SQL drivers selectable through SESSION_SQL_DRIVER ("pgx" or "postgres")
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
)

// OpenStore builds the session store selected by cfg. The returned close
// function releases the database handle of the sql kind and does nothing for
// the others.
func OpenStore(ctx context.Context, cfg config.StoreConfig) (session.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.GetStoreKind() {
	case config.StoreKindMemory:
		return session.NewInMemoryStore(), noop, nil

	case config.StoreKindFile:
		var options []filestore.Option
		if key := cfg.GetSessionKey(); key != "" {
			options = append(options, filestore.WithPassphrase(key))
		}
		store, err := filestore.New(cfg.GetSessionFile(), options...)
		if err != nil {
			return nil, nil, errors.Wrap(err, "[OpenStore] file store")
		}
		return store, noop, nil

	case config.StoreKindSQL:
		if cfg.GetSQLDSN() == "" {
			return nil, nil, errors.New("[OpenStore] SESSION_SQL_DSN is required for the sql store")
		}
		db, err := sql.Open(cfg.GetSQLDriver(), cfg.GetSQLDSN())
		if err != nil {
			return nil, nil, errors.Wrapf(err, "[OpenStore] open %s", cfg.GetSQLDriver())
		}
		store, err := sqlstore.New(db, sqlstore.WithTable(cfg.GetSQLTable()), sqlstore.WithNamespace(cfg.GetSQLNamespace()))
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, db.Close, nil
	}
	return nil, nil, sessionerrors.Wrapf(sessionerrors.ErrUnsupportedKind, "[OpenStore] %q", cfg.GetStoreKind())
}
