package history

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/pebble/v2"
)

// KVPersister stores the serialized mapping under a single pebble key
type KVPersister struct {
	db  *pebble.DB
	key []byte
}

// OpenKV opens (or creates) a pebble database at dir
func OpenKV(dir string) (*KVPersister, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble db: %w", err)
	}

	return &KVPersister{db: db, key: []byte(StorageKey)}, nil
}

// Load reads the mapping; a missing key is an empty store
func (p *KVPersister) Load() (map[string]*Conversation, error) {
	data, closer, err := p.db.Get(p.key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return make(map[string]*Conversation), nil
		}
		return nil, fmt.Errorf("load conversations: %w", err)
	}
	defer closer.Close()

	buf := make([]byte, len(data))
	copy(buf, data)
	return decodeChats(buf)
}

// Save replaces the stored mapping, synced to disk
func (p *KVPersister) Save(chats map[string]*Conversation) error {
	data, err := encodeChats(chats)
	if err != nil {
		return err
	}
	if err := p.db.Set(p.key, data, pebble.Sync); err != nil {
		return fmt.Errorf("save conversations: %w", err)
	}
	return nil
}

// Close closes the database
func (p *KVPersister) Close() error {
	return p.db.Close()
}
