// Package filestore persists the session record to a single JSON file,
// optionally encrypted at rest. The file is the cross-process shared resource:
// concurrent writers are last-write-wins and Watch lets readers re-hydrate
// when another process (e.g. a second CLI invocation) changes or clears it.
package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blockport/blockport-go/session/storage"
	"github.com/pkg/errors"
)

const (
	defaultPollInterval = time.Second

	fileMode = 0o600
	dirMode  = 0o700
)

// Store is a file-backed implementation of storage.Store.
type Store struct {
	path         string
	passphrase   string
	pollInterval time.Duration

	mu sync.Mutex
}

var _ storage.Store = (*Store)(nil)

// Option defines a function type to modify the Store instance.
type Option func(*Store)

// WithPassphrase enables at-rest encryption of the record using a key derived
// from the passphrase.
func WithPassphrase(passphrase string) Option {
	return func(s *Store) {
		s.passphrase = passphrase
	}
}

// WithPollInterval sets how often Watch checks the file for changes.
func WithPollInterval(interval time.Duration) Option {
	return func(s *Store) {
		s.pollInterval = interval
	}
}

// New creates a file-backed store at path. The file and its directory are
// created on first Save.
func New(path string, options ...Option) *Store {
	store := &Store{
		path:         path,
		pollInterval: defaultPollInterval,
	}
	for _, opt := range options {
		opt(store)
	}
	return store
}

// Load reads the persisted record. An absent, unreadable, undecryptable or
// unparsable file reads as no record - startup must never fail on it.
func (s *Store) Load() (*storage.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "[filestore.Load] read")
	}

	if s.passphrase != "" {
		data, err = decrypt(data, s.passphrase)
		if err != nil {
			return nil, nil
		}
	}

	var record storage.Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, nil
	}
	return &record, nil
}

// Save writes the record atomically (temp file + rename) so a concurrent
// reader never observes a partial write.
func (s *Store) Save(record *storage.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "[filestore.Save] marshal")
	}

	if s.passphrase != "" {
		data, err = encrypt(data, s.passphrase)
		if err != nil {
			return errors.Wrap(err, "[filestore.Save] encrypt")
		}
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return errors.Wrap(err, "[filestore.Save] mkdir")
	}

	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return errors.Wrap(err, "[filestore.Save] temp file")
	}
	tmpName := tmp.Name()

	if err := tmp.Chmod(fileMode); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "[filestore.Save] chmod")
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "[filestore.Save] write")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "[filestore.Save] close")
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "[filestore.Save] rename")
	}
	return nil
}

// Clear removes the record file. Clearing an absent file is a no-op.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "[filestore.Clear] remove")
	}
	return nil
}

// Watch polls the file's metadata and signals whenever it changes, appears or
// disappears. Polling keeps the store portable; the interval is configurable
// via WithPollInterval.
func (s *Store) Watch(ctx context.Context) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	lastStamp := s.stamp()

	go func() {
		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stamp := s.stamp()
				if stamp == lastStamp {
					continue
				}
				lastStamp = stamp
				select {
				case ch <- struct{}{}:
				default:
				}
			}
		}
	}()

	return ch, nil
}

// stamp summarises the file's identity for change detection.
func (s *Store) stamp() string {
	info, err := os.Stat(s.path)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%d/%d", info.ModTime().UnixNano(), info.Size())
}
