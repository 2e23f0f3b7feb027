// Package store owns the single authoritative in-memory copy of all
// clients, accounts, transactions and bank settings. Every mutation runs
// under one store mutex and triggers a full encrypted snapshot write; if
// the write fails the in-memory change is rolled back.
package store

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/securebank/bankd/internal/bank"
	"github.com/securebank/bankd/internal/codec"
)

// EncryptionKey is the constant passphrase the snapshot and settings
// files are obfuscated with. Part of the on-disk format.
const EncryptionKey = "bank-system-key-2024"

// lookupCacheSize bounds the account-number -> owner cache.
const lookupCacheSize = 1024

// AuditSink receives committed transactions for out-of-band indexing.
// Sink failures are logged and never surfaced to the caller; the snapshot
// remains the authoritative record.
type AuditSink interface {
	RecordTransaction(clientID, accountNumber string, txn bank.Transaction) error
}

// Store is the persistent client registry.
type Store struct {
	mu       sync.Mutex
	path     string
	clients  map[string]*bank.Client
	settings bank.Settings

	// account number -> owning client id
	lookup *lru.Cache[string, string]

	audit AuditSink
}

// New creates a store bound to the snapshot at path and loads any
// existing state. A missing snapshot is not an error.
func New(path string) (*Store, error) {
	cache, err := lru.New[string, string](lookupCacheSize)
	if err != nil {
		return nil, fmt.Errorf("store: lookup cache: %w", err)
	}

	s := &Store{
		path:     path,
		clients:  make(map[string]*bank.Client),
		settings: bank.DefaultSettings(),
		lookup:   cache,
	}

	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// SetAuditSink attaches an audit sink. Must be called before the server
// starts accepting connections.
func (s *Store) SetAuditSink(sink AuditSink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = sink
}

// Path returns the snapshot path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) settingsPath() string {
	return s.path + ".settings"
}

// Load reads the snapshot and settings files. Missing files leave the
// store empty with default settings. Malformed records are skipped.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() error {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		log.Printf("store: snapshot %s not found, starting empty", s.path)
		s.clients = make(map[string]*bank.Client)
		s.lookup.Purge()
		return s.loadSettingsLocked()
	}
	if err != nil {
		return fmt.Errorf("store: read snapshot: %w", err)
	}

	clients := make(map[string]*bank.Client)
	if len(raw) > 0 {
		plain, err := codec.Decrypt(string(raw), EncryptionKey)
		if err != nil {
			return fmt.Errorf("store: decode snapshot: %w", err)
		}
		for _, c := range bank.UnmarshalClients(plain) {
			c := c
			clients[c.AccountID] = &c
		}
	}

	s.clients = clients
	s.lookup.Purge()
	log.Printf("store: loaded %d clients with %d accounts from %s",
		len(s.clients), s.accountCountLocked(), s.path)

	return s.loadSettingsLocked()
}

func (s *Store) loadSettingsLocked() error {
	raw, err := os.ReadFile(s.settingsPath())
	if os.IsNotExist(err) {
		log.Printf("store: settings file not found, using defaults")
		return nil
	}
	if err != nil {
		return fmt.Errorf("store: read settings: %w", err)
	}

	plain, err := codec.Decrypt(string(raw), EncryptionKey)
	if err != nil {
		return fmt.Errorf("store: decode settings: %w", err)
	}

	settings, err := bank.UnmarshalSettings(plain)
	if err != nil {
		log.Printf("store: malformed settings, keeping defaults: %v", err)
		return nil
	}

	s.settings = settings
	return nil
}

// Save writes the full encrypted snapshot. Callers holding state that
// must stay consistent with disk should prefer the mutating methods,
// which save internally.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

// saveLocked writes the snapshot via a temp file and rename so a failed
// write never truncates the previous snapshot.
func (s *Store) saveLocked() error {
	plain := bank.MarshalClients(s.sortedClientsLocked())
	enc, err := codec.Encrypt(plain, EncryptionKey)
	if err != nil {
		return fmt.Errorf("store: encode snapshot: %w", err)
	}

	if err := writeFileAtomic(s.path, []byte(enc)); err != nil {
		return fmt.Errorf("store: %w: %v", ErrSnapshotWrite, err)
	}
	return nil
}

// SaveSettings persists new settings and makes them current.
func (s *Store) SaveSettings(settings bank.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.settings
	s.settings = settings

	enc, err := codec.Encrypt(bank.MarshalSettings(settings), EncryptionKey)
	if err != nil {
		s.settings = prev
		return fmt.Errorf("store: encode settings: %w", err)
	}
	if err := writeFileAtomic(s.settingsPath(), []byte(enc)); err != nil {
		s.settings = prev
		return fmt.Errorf("store: %w: %v", ErrSnapshotWrite, err)
	}
	return nil
}

// Settings returns the current bank settings.
func (s *Store) Settings() bank.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Backup copies the snapshot and settings files to backupPath and
// backupPath+".settings".
func (s *Store) Backup(backupPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := copyFile(s.path, backupPath); err != nil {
		return fmt.Errorf("store: backup snapshot: %w", err)
	}
	// Settings backup is best-effort: the file may legitimately not exist.
	if err := copyFile(s.settingsPath(), backupPath+".settings"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("store: backup settings: %w", err)
	}
	return nil
}

// Restore replaces the on-disk files from a backup and reloads.
func (s *Store) Restore(backupPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := copyFile(backupPath, s.path); err != nil {
		return fmt.Errorf("store: restore snapshot: %w", err)
	}
	if err := copyFile(backupPath+".settings", s.settingsPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("store: restore settings: %w", err)
	}
	return s.loadLocked()
}

func (s *Store) sortedClientsLocked() []bank.Client {
	ids := make([]string, 0, len(s.clients))
	for id := range s.clients {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]bank.Client, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.clients[id])
	}
	return out
}

func (s *Store) accountCountLocked() int {
	n := 0
	for _, c := range s.clients {
		n += len(c.Accounts)
	}
	return n
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return writeFileAtomic(dst, data)
}
