package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/diogo/mira/internal/models"
)

// StorageKey is the single key holding the serialized conversation map
const StorageKey = "chats"

// Persister saves and restores the whole id -> conversation mapping
type Persister interface {
	Load() (map[string]*Conversation, error)
	Save(chats map[string]*Conversation) error
	Close() error
}

// OpenPersister opens the backend named by the configuration
// ("kv" for pebble, "file" for a JSON file) inside dataDir.
func OpenPersister(backend, dataDir string) (Persister, error) {
	switch backend {
	case "", "kv":
		return OpenKV(filepath.Join(dataDir, "store"))
	case "file":
		return NewFilePersister(filepath.Join(dataDir, "chats.json")), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %s", backend)
	}
}

// OpenDefault opens a Store on the configured backend
func OpenDefault(backend, dataDir string, opts ...StoreOption) (*Store, error) {
	p, err := OpenPersister(backend, dataDir)
	if err != nil {
		return nil, err
	}

	store, err := Open(p, opts...)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	return store, nil
}

func encodeChats(chats map[string]*Conversation) ([]byte, error) {
	data, err := json.Marshal(chats)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal conversations: %w", err)
	}
	return data, nil
}

// SkippedRecordsError is returned next to a usable mapping when some stored
// records could not be decoded. Records maps each id to its decode error.
type SkippedRecordsError struct {
	Records map[string]error
}

func (e *SkippedRecordsError) Error() string {
	ids := make([]string, 0, len(e.Records))
	for id := range e.Records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return fmt.Sprintf("skipped %d unreadable conversation(s): %s", len(ids), strings.Join(ids, ", "))
}

// decodeChats parses a serialized mapping and repairs records the browser
// client could have left incomplete (missing id, null messages). Records that
// do not decode at all are left out and reported as a *SkippedRecordsError.
func decodeChats(data []byte) (map[string]*Conversation, error) {
	chats := make(map[string]*Conversation)
	if len(data) == 0 {
		return chats, nil
	}

	var records map[string]json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse conversations: %w", err)
	}

	var skipped map[string]error
	for id, raw := range records {
		var c *Conversation
		if err := json.Unmarshal(raw, &c); err != nil {
			if skipped == nil {
				skipped = make(map[string]error)
			}
			skipped[id] = err
			continue
		}
		if c == nil {
			continue
		}
		chats[id] = c

		if c.ID == "" {
			c.ID = id
		}
		if c.Title == "" {
			c.Title = models.DefaultTitle
		}
		if c.Messages == nil {
			c.Messages = []models.Message{}
		}
	}

	if skipped != nil {
		return chats, &SkippedRecordsError{Records: skipped}
	}
	return chats, nil
}

// FilePersister keeps the mapping in a single JSON file
type FilePersister struct {
	path string
}

// NewFilePersister creates a persister writing to path
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

// Path returns the backing file path
func (p *FilePersister) Path() string {
	return p.path
}

// Load reads the mapping; a missing file is an empty store
func (p *FilePersister) Load() (map[string]*Conversation, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]*Conversation), nil
		}
		return nil, fmt.Errorf("failed to read conversations: %w", err)
	}
	return decodeChats(data)
}

// Save writes the mapping through a temp file and rename
func (p *FilePersister) Save(chats map[string]*Conversation) error {
	data, err := encodeChats(chats)
	if err != nil {
		return err
	}

	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".chats-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write conversations: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write conversations: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpName, p.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace conversations file: %w", err)
	}
	return nil
}

// Close is a no-op for files
func (p *FilePersister) Close() error {
	return nil
}
