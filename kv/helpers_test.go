package kv

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/mandelsoft/vfs/pkg/memoryfs"
	"github.com/stretchr/testify/require"

	"go.hackfix.me/stow/crypto"
	"go.hackfix.me/stow/store"
	"go.hackfix.me/stow/store/badger"
	"go.hackfix.me/stow/store/memory"
	"go.hackfix.me/stow/store/prefs"
	"go.hackfix.me/stow/store/sqlite"
)

const testNS = "com.example.app"

type Profile struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

func (Profile) StorageKey() string               { return "profile" }
func (p Profile) MarshalBinary() ([]byte, error) { return json.Marshal(p) }
func (p *Profile) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, p)
}

type Settings struct {
	Theme string `json:"theme"`
}

func (Settings) StorageKey() string               { return "settings" }
func (s Settings) MarshalBinary() ([]byte, error) { return json.Marshal(s) }
func (s *Settings) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, s)
}

// unreadable encodes fine, but can never be decoded.
type unreadable struct{}

func (unreadable) StorageKey() string             { return "unreadable" }
func (unreadable) MarshalBinary() ([]byte, error) { return []byte("garbage"), nil }
func (*unreadable) UnmarshalBinary([]byte) error  { return errors.New("can't decode") }

// unencodable fails encoding.
type unencodable struct{}

func (unencodable) StorageKey() string             { return "unencodable" }
func (unencodable) MarshalBinary() ([]byte, error) { return nil, errors.New("can't encode") }
func (*unencodable) UnmarshalBinary([]byte) error  { return nil }

// nonLister hides the store.Lister implementation of the wrapped backend, so
// that the store maintains a key index.
type nonLister struct{ store.Backend }

type backendFactory struct {
	name    string
	indexed bool
	new     func(t *testing.T) store.Backend
}

func backendFactories() []backendFactory {
	return []backendFactory{
		{name: "memory", new: func(*testing.T) store.Backend { return memory.New() }},
		{name: "memory_indexed", indexed: true, new: func(*testing.T) store.Backend {
			return nonLister{memory.New()}
		}},
		{name: "prefs", indexed: true, new: func(t *testing.T) store.Backend {
			p, err := prefs.Open(memoryfs.New(), "/prefs/stow.yaml")
			require.NoError(t, err)
			return p
		}},
		{name: "badger", new: func(t *testing.T) store.Backend {
			key := make([]byte, 32)
			_, err := rand.Read(key)
			require.NoError(t, err)
			b, err := badger.Open("", key)
			require.NoError(t, err)
			t.Cleanup(func() { _ = b.Close() })
			return b
		}},
		{name: "sqlite", new: func(t *testing.T) store.Backend {
			rndName := make([]byte, 12)
			_, err := rand.Read(rndName)
			require.NoError(t, err)
			s, err := sqlite.Open(context.Background(),
				fmt.Sprintf("file:kv-%x?mode=memory&cache=shared", rndName))
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			key, err := crypto.NewKey()
			require.NoError(t, err)
			require.NoError(t, s.Init("0.0.0", key))
			return s
		}},
	}
}

// logBuffer is a concurrency safe buffer for capturing log output.
type logBuffer struct {
	mx  sync.Mutex
	buf bytes.Buffer
}

func (lb *logBuffer) Write(p []byte) (int, error) {
	lb.mx.Lock()
	defer lb.mx.Unlock()
	return lb.buf.Write(p)
}

func (lb *logBuffer) String() string {
	lb.mx.Lock()
	defer lb.mx.Unlock()
	return lb.buf.String()
}

func newTestLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// faultyBackend injects errors into the wrapped backend.
type faultyBackend struct {
	store.Backend
	mx           sync.Mutex
	putErrs      map[string]error
	getErrs      map[string]error
	existsErr    error
	deleteErr    error
	deleteAllErr error
}

func newFaultyBackend(b store.Backend) *faultyBackend {
	return &faultyBackend{Backend: b, putErrs: map[string]error{}, getErrs: map[string]error{}}
}

func (fb *faultyBackend) failPut(key string, err error) {
	fb.mx.Lock()
	defer fb.mx.Unlock()
	fb.putErrs[key] = err
}

func (fb *faultyBackend) failGet(key string, err error) {
	fb.mx.Lock()
	defer fb.mx.Unlock()
	fb.getErrs[key] = err
}

func (fb *faultyBackend) Exists(namespace, key string) (bool, error) {
	if fb.existsErr != nil {
		return false, fb.existsErr
	}
	return fb.Backend.Exists(namespace, key)
}

func (fb *faultyBackend) Put(namespace, key string, payload []byte, access store.Accessibility) error {
	fb.mx.Lock()
	err := fb.putErrs[key]
	fb.mx.Unlock()
	if err != nil {
		return err
	}
	return fb.Backend.Put(namespace, key, payload, access)
}

func (fb *faultyBackend) Get(namespace, key string) ([]byte, error) {
	fb.mx.Lock()
	err := fb.getErrs[key]
	fb.mx.Unlock()
	if err != nil {
		return nil, err
	}
	return fb.Backend.Get(namespace, key)
}

func (fb *faultyBackend) Delete(namespace, key string) error {
	if fb.deleteErr != nil {
		return fb.deleteErr
	}
	return fb.Backend.Delete(namespace, key)
}

func (fb *faultyBackend) DeleteAll(namespace string) error {
	if fb.deleteAllErr != nil {
		return fb.deleteAllErr
	}
	return fb.Backend.DeleteAll(namespace)
}

func (fb *faultyBackend) Accessibility(namespace, key string) (store.Accessibility, error) {
	ar, ok := fb.Backend.(store.AccessReader)
	if !ok {
		return store.Accessibility{}, errors.ErrUnsupported
	}
	return ar.Accessibility(namespace, key)
}
