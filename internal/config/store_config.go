package config

import "path/filepath"

const (
	StoreKindFile   = "file"
	StoreKindSQL    = "sql"
	StoreKindMemory = "memory"
)

type Store struct {
	file *fileConfig
}

var _ StoreConfig = Store{}

func (s Store) GetStoreKind() string {
	return lookup("SESSION_STORE", s.file.Store.Kind, StoreKindFile)
}

func (s Store) GetSessionFile() string {
	def := filepath.Join(EnvVars{file: s.file}.GetDataFolder(), "session.json")
	return lookup("SESSION_FILE", s.file.Store.File, def)
}

// GetSessionKey is the passphrase used to encrypt the session file. Empty
// means the file is written in clear text.
func (s Store) GetSessionKey() string {
	return lookup("SESSION_KEY", s.file.Store.Key, "")
}

func (s Store) GetSQLDriver() string {
	return lookup("SESSION_SQL_DRIVER", s.file.Store.SQLDriver, "pgx")
}

func (s Store) GetSQLDSN() string {
	return lookup("SESSION_SQL_DSN", s.file.Store.SQLDSN, "")
}

func (s Store) GetSQLTable() string {
	return lookup("SESSION_SQL_TABLE", s.file.Store.SQLTable, "session_kv")
}

func (s Store) GetSQLNamespace() string {
	return lookup("SESSION_SQL_NAMESPACE", s.file.Store.SQLNamespace, "default")
}
