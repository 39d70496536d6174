// Package prefs implements a plain, unencrypted preferences backend. All
// preferences are kept in a single YAML document which is loaded in bulk, and
// rewritten on every change.
//
// Prefs intentionally doesn't implement store.Lister: like platform
// preference stores, it has no per-key enumeration.
package prefs

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-yaml"
	"github.com/mandelsoft/vfs/pkg/vfs"

	"go.hackfix.me/stow/store"
)

const docVersion = 1

// document is the on-disk format. Payloads are base64 encoded.
type document struct {
	Version int                          `yaml:"version"`
	Domains map[string]map[string]string `yaml:"domains"`
}

// Prefs is a file backed preferences store. It is safe for concurrent use
// within a single process.
type Prefs struct {
	mx   sync.Mutex
	fs   vfs.FileSystem
	path string
	data map[string]map[string][]byte
}

var _ store.Backend = &Prefs{}

// Open loads the preferences document at path, creating its parent
// directory if needed. A missing document is treated as empty.
func Open(fs vfs.FileSystem, path string) (*Prefs, error) {
	if err := fs.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed creating preferences directory: %w", err)
	}

	p := &Prefs{fs: fs, path: path}
	if err := p.Load(); err != nil {
		return nil, err
	}

	return p, nil
}

// Load replaces the in-memory preferences with the contents of the document.
func (p *Prefs) Load() error {
	p.mx.Lock()
	defer p.mx.Unlock()

	data, err := p.read()
	if err != nil {
		return err
	}
	p.data = data

	return nil
}

func (p *Prefs) Exists(namespace, key string) (bool, error) {
	p.mx.Lock()
	defer p.mx.Unlock()
	_, ok := p.data[namespace][key]
	return ok, nil
}

// Put stores the payload. Accessibility is ignored.
func (p *Prefs) Put(namespace, key string, payload []byte, _ store.Accessibility) error {
	p.mx.Lock()
	defer p.mx.Unlock()

	next := p.clone()
	ns := maps.Clone(next[namespace])
	if ns == nil {
		ns = map[string][]byte{}
	}
	ns[key] = append([]byte{}, payload...)
	next[namespace] = ns

	return p.commit(next)
}

func (p *Prefs) Get(namespace, key string) ([]byte, error) {
	p.mx.Lock()
	defer p.mx.Unlock()
	val, ok := p.data[namespace][key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return append([]byte{}, val...), nil
}

func (p *Prefs) Delete(namespace, key string) error {
	p.mx.Lock()
	defer p.mx.Unlock()

	if _, ok := p.data[namespace][key]; !ok {
		return store.ErrNotFound
	}

	next := p.clone()
	ns := maps.Clone(next[namespace])
	delete(ns, key)
	next[namespace] = ns

	return p.commit(next)
}

func (p *Prefs) DeleteAll(namespace string) error {
	p.mx.Lock()
	defer p.mx.Unlock()

	next := p.clone()
	delete(next, namespace)

	return p.commit(next)
}

// clone returns a shallow copy of the namespace map. Namespaces that are
// modified must be cloned separately.
func (p *Prefs) clone() map[string]map[string][]byte {
	return maps.Clone(p.data)
}

// commit writes data to disk, and only then makes it visible.
func (p *Prefs) commit(data map[string]map[string][]byte) error {
	if err := p.write(data); err != nil {
		return err
	}
	p.data = data
	return nil
}

func (p *Prefs) read() (map[string]map[string][]byte, error) {
	data := map[string]map[string][]byte{}

	f, err := p.fs.Open(p.path)
	if errors.Is(err, os.ErrNotExist) {
		return data, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed opening preferences: %w", err)
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed reading preferences: %w", err)
	}

	var doc document
	if err = yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed parsing preferences: %w", err)
	}
	if doc.Version > docVersion {
		return nil, fmt.Errorf("unsupported preferences version %d", doc.Version)
	}

	for ns, entries := range doc.Domains {
		data[ns] = make(map[string][]byte, len(entries))
		for key, valEnc := range entries {
			val, err := base64.StdEncoding.DecodeString(valEnc)
			if err != nil {
				return nil, fmt.Errorf("failed decoding preference %s/%s: %w", ns, key, err)
			}
			data[ns][key] = val
		}
	}

	return data, nil
}

// write replaces the document atomically, by writing to a temporary file
// which is then renamed over the previous document.
func (p *Prefs) write(data map[string]map[string][]byte) error {
	doc := document{Version: docVersion, Domains: map[string]map[string]string{}}
	for ns, entries := range data {
		if len(entries) == 0 {
			continue
		}
		doc.Domains[ns] = make(map[string]string, len(entries))
		for key, val := range entries {
			doc.Domains[ns][key] = base64.StdEncoding.EncodeToString(val)
		}
	}

	raw, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed encoding preferences: %w", err)
	}

	tmpPath := p.path + ".tmp"
	f, err := p.fs.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed writing preferences: %w", err)
	}
	if _, err = f.Write(raw); err != nil {
		_ = f.Close() // ignore error; Write error takes precedence
		return fmt.Errorf("failed writing preferences: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("failed writing preferences: %w", err)
	}

	if err = p.fs.Rename(tmpPath, p.path); err != nil {
		return fmt.Errorf("failed replacing preferences: %w", err)
	}

	return nil
}
