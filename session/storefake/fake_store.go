package storefake

import (
	"sync"

	"github.com/jrsteele09/go-auth-session/session"
)

var _ session.Store = (*FakeStore)(nil)

// FakeStore is an in-memory store that counts writes and can be told to fail.
type FakeStore struct {
	rec      session.Record
	saves    int
	clears   int
	LoadErr  error
	SaveErr  error
	ClearErr error
	lock     sync.RWMutex
}

func NewFakeStore() *FakeStore {
	return &FakeStore{rec: session.Record{}}
}

// NewFakeStoreWith creates a store pre-populated with rec.
func NewFakeStoreWith(rec session.Record) *FakeStore {
	return &FakeStore{rec: rec.Clone()}
}

func (fs *FakeStore) Load() (session.Record, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	if fs.LoadErr != nil {
		return nil, fs.LoadErr
	}
	return fs.rec.Clone(), nil
}

func (fs *FakeStore) Save(rec session.Record) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	if fs.SaveErr != nil {
		return fs.SaveErr
	}
	fs.saves++
	fs.rec = rec.Clone()
	return nil
}

func (fs *FakeStore) Clear() error {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.clears++
	if fs.ClearErr != nil {
		return fs.ClearErr
	}
	fs.rec = session.Record{}
	return nil
}

// Record returns a copy of what is currently stored.
func (fs *FakeStore) Record() session.Record {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	return fs.rec.Clone()
}

func (fs *FakeStore) Saves() int {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	return fs.saves
}

func (fs *FakeStore) Clears() int {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	return fs.clears
}
