// Package identity resolves the visitor identifier sent in the session
// handshake.
//
// Identifiers are looked up in the following order:
//  1. OS keyring (macOS Keychain, Windows Credential Manager, Linux Secret Service)
//  2. State file fallback: <user state dir>/rbrowse/visitor-id
//
// When neither has one, a new UUID is generated and stored.
package identity

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/zalando/go-keyring"
)

const (
	keyringService = "rbrowse"
	keyringUser    = "visitor-id"
)

// Backend names accepted by New.
const (
	BackendKeyring   = "keyring"
	BackendFile      = "file"
	BackendEphemeral = "ephemeral"
)

// ErrNotFound is returned by a Store with no stored identifier.
var ErrNotFound = errors.New("visitor id not found")

// Provider yields a stable identifier for this installation.
type Provider interface {
	VisitorID(ctx context.Context) (string, error)
}

// Static always returns the same identifier.
type Static string

// VisitorID implements Provider.
func (s Static) VisitorID(context.Context) (string, error) {
	if s == "" {
		return "", ErrNotFound
	}
	return string(s), nil
}

// Store persists one identifier.
type Store interface {
	Load() (string, error)
	Save(id string) error
	Name() string
}

// KeyringStore keeps the identifier in the OS keyring.
type KeyringStore struct{}

func (KeyringStore) Name() string { return BackendKeyring }

func (KeyringStore) Load() (string, error) {
	id, err := keyring.Get(keyringService, keyringUser)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read keyring: %w", err)
	}
	if strings.TrimSpace(id) == "" {
		return "", ErrNotFound
	}
	return strings.TrimSpace(id), nil
}

func (KeyringStore) Save(id string) error {
	if err := keyring.Set(keyringService, keyringUser, id); err != nil {
		return fmt.Errorf("write keyring: %w", err)
	}
	return nil
}

// FileStore keeps the identifier in a file readable only by the owner.
type FileStore struct {
	Path string
}

func (FileStore) Name() string { return BackendFile }

func (f FileStore) Load() (string, error) {
	data, err := os.ReadFile(filepath.Clean(f.Path))
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read visitor id file: %w", err)
	}
	id := strings.TrimSpace(string(data))
	if id == "" {
		return "", ErrNotFound
	}
	return id, nil
}

func (f FileStore) Save(id string) error {
	if f.Path == "" {
		return errors.New("visitor id file path not set")
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	if err := os.WriteFile(f.Path, []byte(id+"\n"), 0o600); err != nil {
		return fmt.Errorf("write visitor id file: %w", err)
	}
	return nil
}

// Persistent loads the identifier from the first store that has one and
// otherwise generates a new one, saving it to the first store that accepts
// it. The result is cached for the life of the process.
type Persistent struct {
	Stores   []Store
	Generate func() string

	mu     sync.Mutex
	cached string
	source string
}

// NewPersistent builds a provider over stores, generating UUIDs.
func NewPersistent(stores ...Store) *Persistent {
	return &Persistent{Stores: stores, Generate: func() string { return uuid.NewString() }}
}

// VisitorID implements Provider.
func (p *Persistent) VisitorID(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cached != "" {
		return p.cached, nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var errs []error
	for _, s := range p.Stores {
		id, err := s.Load()
		if err == nil {
			p.cached, p.source = id, s.Name()
			return id, nil
		}
		if !errors.Is(err, ErrNotFound) {
			errs = append(errs, err)
		}
	}

	id := p.Generate()
	if id == "" {
		return "", errors.New("generated empty visitor id")
	}
	for _, s := range p.Stores {
		if err := s.Save(id); err != nil {
			errs = append(errs, err)
			continue
		}
		p.cached, p.source = id, s.Name()
		return id, nil
	}
	if len(p.Stores) == 0 {
		p.cached, p.source = id, BackendEphemeral
		return id, nil
	}
	return "", fmt.Errorf("store visitor id: %w", errors.Join(errs...))
}

// Source names the store the cached identifier came from.
func (p *Persistent) Source() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.source
}

// New builds the provider for a configured backend. "keyring" falls back to
// the file store when the keyring is unavailable.
func New(backend, filePath string) (*Persistent, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendKeyring:
		return NewPersistent(KeyringStore{}, FileStore{Path: filePath}), nil
	case BackendFile:
		return NewPersistent(FileStore{Path: filePath}), nil
	case BackendEphemeral:
		return NewPersistent(), nil
	default:
		return nil, fmt.Errorf("unknown identity backend %q (want keyring, file or ephemeral)", backend)
	}
}
