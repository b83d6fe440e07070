package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	apperrors "github.com/aiteacher/chat-search-service/pkg/errors"
)

// MessagesFile is the name of the durable store file inside the data
// directory.
const MessagesFile = "messages.json"

// FileStore is the append-only message log. It is not safe for concurrent
// use on its own; the owning service serialises access behind its lock.
//
// Append follows write-then-commit ordering: the new message is written to
// disk before it is visible in memory, so a persistence failure leaves both
// views unchanged.
type FileStore struct {
	path     string
	messages []Message
	ids      map[string]struct{}
	logger   *slog.Logger
}

// Open loads the message store from dir/messages.json, creating the
// directory if needed. A missing file yields an empty store; a corrupt file
// is a PersistenceError.
func Open(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: creating data directory: %v", apperrors.ErrPersistence, err)
	}
	s := &FileStore{
		path:   filepath.Join(dir, MessagesFile),
		ids:    make(map[string]struct{}),
		logger: slog.Default().With("component", "message-store"),
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Info("no existing message store, starting empty", "path", s.path)
			return s, nil
		}
		return nil, fmt.Errorf("%w: reading %s: %v", apperrors.ErrPersistence, s.path, err)
	}
	if err := json.Unmarshal(data, &s.messages); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", apperrors.ErrPersistence, s.path, err)
	}
	for _, m := range s.messages {
		s.ids[m.ID] = struct{}{}
	}
	s.logger.Info("message store loaded", "path", s.path, "messages", len(s.messages))
	return s, nil
}

// Append durably writes the store with msg added, then commits it to memory.
func (s *FileStore) Append(msg Message) error {
	next := append(s.messages, msg)
	if err := s.write(next); err != nil {
		return err
	}
	s.messages = next
	s.ids[msg.ID] = struct{}{}
	return nil
}

// write serialises messages and atomically replaces the store file
// (tmp file, fsync, rename).
func (s *FileStore) write(messages []Message) error {
	data, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding messages: %v", apperrors.ErrPersistence, err)
	}

	tmpPath := s.path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("%w: creating %s: %v", apperrors.ErrPersistence, tmpPath, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: writing %s: %v", apperrors.ErrPersistence, tmpPath, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: syncing %s: %v", apperrors.ErrPersistence, tmpPath, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: closing %s: %v", apperrors.ErrPersistence, tmpPath, err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: replacing %s: %v", apperrors.ErrPersistence, s.path, err)
	}
	return nil
}

// CheckWritable verifies the data directory still accepts writes by
// creating and removing a scratch file next to the store. Used by the
// readiness check so a full or read-only disk surfaces before an Append
// fails.
func (s *FileStore) CheckWritable() error {
	scratch := s.path + ".healthcheck"
	f, err := os.Create(scratch)
	if err != nil {
		return fmt.Errorf("%w: data directory not writable: %v", apperrors.ErrPersistence, err)
	}
	f.Close()
	os.Remove(scratch)
	return nil
}

// Messages returns the backing message slice in store order. Callers must
// not mutate it.
func (s *FileStore) Messages() []Message {
	return s.messages
}

// Len returns the number of stored messages.
func (s *FileStore) Len() int {
	return len(s.messages)
}

// Contains reports whether a message with the given ID is stored.
func (s *FileStore) Contains(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Distributions returns per-role and per-type message counts for the stats
// endpoint. Messages without a type count as "text".
func (s *FileStore) Distributions() (roles map[string]int, types map[string]int) {
	roles = make(map[string]int)
	types = make(map[string]int)
	for _, m := range s.messages {
		role := m.Role
		if role == "" {
			role = "unknown"
		}
		roles[role]++
		types[m.EffectiveType()]++
	}
	return roles, types
}

// Path returns the location of the store file.
func (s *FileStore) Path() string {
	return s.path
}
