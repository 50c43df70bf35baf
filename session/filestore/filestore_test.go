package filestore_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	sessionerrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/session"
	"github.com/jrsteele09/go-auth-session/session/filestore"
	"github.com/stretchr/testify/require"
)

var sample = session.Record{
	session.KeyAccessToken:     "A",
	session.KeyRefreshToken:    "R",
	session.KeyExpiresIn:       "3600",
	session.KeyTokenExpiryTime: "1772369940000",
	session.KeyUser:            `{"email":"u@x.com"}`,
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	store, err := filestore.New(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)

	rec, err := store.Load()
	require.NoError(t, err)
	require.Empty(t, rec)
}

func TestSaveLoadReplacesWholeRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store, err := filestore.New(path)
	require.NoError(t, err)

	require.NoError(t, store.Save(sample))
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, store.Save(session.Record{session.KeyUser: `{"email":"u@x.com"}`}))

	reopened, err := filestore.New(path)
	require.NoError(t, err)
	rec, err := reopened.Load()
	require.NoError(t, err)
	require.Equal(t, session.Record{session.KeyUser: `{"email":"u@x.com"}`}, rec)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files are cleaned up")
}

func TestClearIsIdempotent(t *testing.T) {
	store, err := filestore.New(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)
	require.NoError(t, store.Save(sample))

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear())

	rec, err := store.Load()
	require.NoError(t, err)
	require.Empty(t, rec)
}

func TestEncryptedRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store, err := filestore.New(path, filestore.WithPassphrase("correct horse"))
	require.NoError(t, err)
	require.NoError(t, store.Save(sample))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(raw), "refreshToken")

	rec, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, sample, rec)

	wrong, err := filestore.New(path, filestore.WithPassphrase("battery staple"))
	require.NoError(t, err)
	_, err = wrong.Load()
	require.True(t, sessionerrors.Is(err, sessionerrors.ErrCorruptRecord))
}

func TestCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	store, err := filestore.New(path)
	require.NoError(t, err)
	_, err = store.Load()
	require.ErrorIs(t, err, sessionerrors.ErrCorruptRecord)
}

func TestStateSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	now := func() time.Time { return time.UnixMilli(1_000_000) }

	store, err := filestore.New(path)
	require.NoError(t, err)
	state, err := session.NewState(store, session.WithNowFunc(now))
	require.NoError(t, err)
	require.NoError(t, state.SetTokens(session.IssuedTokens{AccessToken: "A", RefreshToken: "R", ExpiresIn: 3600}))

	store2, err := filestore.New(path)
	require.NoError(t, err)
	restarted, err := session.NewState(store2, session.WithNowFunc(now))
	require.NoError(t, err)
	require.Equal(t, state.Snapshot(), restarted.Snapshot())
}

func TestNewRequiresPath(t *testing.T) {
	_, err := filestore.New("")
	require.Error(t, err)
}
