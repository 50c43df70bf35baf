// Package filestore persists the session record as a single JSON file,
// optionally sealed with XChaCha20-Poly1305.
package filestore

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	sessionerrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/session"
	"github.com/pkg/errors"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	fileMode = 0o600
	dirMode  = 0o700
)

var _ session.Store = (*Store)(nil)

// Store writes the whole record to a temporary file and renames it over the
// target, so a reader sees either the old record or the new one.
type Store struct {
	path string
	aead cipher.AEAD
	mu   sync.Mutex
}

type Option func(*Store) error

// WithPassphrase encrypts the file with a key derived from passphrase.
// An empty passphrase leaves the file in clear text.
func WithPassphrase(passphrase string) Option {
	return func(s *Store) error {
		if passphrase == "" {
			return nil
		}
		key := sha256.Sum256([]byte(passphrase))
		aead, err := chacha20poly1305.NewX(key[:])
		if err != nil {
			return sessionerrors.Wrapf(sessionerrors.ErrInvalidKey, "filestore: %v", err)
		}
		s.aead = aead
		return nil
	}
}

func New(path string, options ...Option) (*Store, error) {
	if path == "" {
		return nil, errors.New("[filestore.New] path is required")
	}
	s := &Store{path: path}
	for _, opt := range options {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Load() (session.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return session.Record{}, nil
		}
		return nil, sessionerrors.Wrapf(err, "filestore: read %s", s.path)
	}
	if len(data) == 0 {
		return session.Record{}, nil
	}
	if s.aead != nil {
		if data, err = s.open(data); err != nil {
			return nil, err
		}
	}

	rec := session.Record{}
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, sessionerrors.Wrapf(sessionerrors.ErrCorruptRecord, "filestore: decode %s: %v", s.path, err)
	}
	return rec, nil
}

func (s *Store) Save(rec session.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(rec)
	if err != nil {
		return sessionerrors.Wrapf(err, "filestore: encode")
	}
	if s.aead != nil {
		if data, err = s.seal(data); err != nil {
			return err
		}
	}
	return s.writeAtomic(data)
}

func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return sessionerrors.Wrapf(err, "filestore: remove %s", s.path)
	}
	return nil
}

func (s *Store) writeAtomic(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return sessionerrors.Wrapf(err, "filestore: create %s", dir)
	}
	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return sessionerrors.Wrapf(err, "filestore: create temp file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return sessionerrors.Wrapf(err, "filestore: write temp file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return sessionerrors.Wrapf(err, "filestore: sync temp file")
	}
	if err := tmp.Close(); err != nil {
		return sessionerrors.Wrapf(err, "filestore: close temp file")
	}
	if err := os.Chmod(tmpName, fileMode); err != nil {
		return sessionerrors.Wrapf(err, "filestore: chmod temp file")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return sessionerrors.Wrapf(err, "filestore: replace %s", s.path)
	}
	return nil
}

// seal prefixes the ciphertext with its random nonce.
func (s *Store) seal(plain []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plain)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, sessionerrors.Wrapf(err, "filestore: generate nonce")
	}
	return s.aead.Seal(nonce, nonce, plain, nil), nil
}

func (s *Store) open(sealed []byte) ([]byte, error) {
	if len(sealed) < s.aead.NonceSize() {
		return nil, sessionerrors.Wrapf(sessionerrors.ErrCorruptRecord, "filestore: %s is truncated", s.path)
	}
	nonce, ciphertext := sealed[:s.aead.NonceSize()], sealed[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, sessionerrors.Wrapf(sessionerrors.ErrCorruptRecord, "filestore: decrypt %s: %v", s.path, err)
	}
	return plain, nil
}
