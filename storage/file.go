package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	auth "github.com/tokenestate/go-estate-auth"
)

// AppName names the per-user config directory
const AppName = "estate"

// DefaultTokenFile is the slot file name inside the config directory
const DefaultTokenFile = "session.json"

type tokenFile struct {
	Token     string    `json:"token"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ConfigDir returns $XDG_CONFIG_HOME/estate or ~/.config/estate.
func ConfigDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, AppName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", AppName)
}

// DefaultTokenPath is where FileTokenStorage keeps the slot when no path is given.
func DefaultTokenPath() string {
	return filepath.Join(ConfigDir(), DefaultTokenFile)
}

// FileTokenStorage keeps the identity token in a JSON file readable only by
// the current user.
type FileTokenStorage struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewFileTokenStorage stores the slot at path, or DefaultTokenPath when empty.
func NewFileTokenStorage(path string) *FileTokenStorage {
	if path == "" {
		path = DefaultTokenPath()
	}
	return &FileTokenStorage{path: path, now: time.Now}
}

// Path returns the slot file location
func (f *FileTokenStorage) Path() string {
	return f.path
}

func (f *FileTokenStorage) Load(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read session file")
	}

	var tf tokenFile
	if err := json.Unmarshal(raw, &tf); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "corrupt session file").
			WithMetadata(map[string]any{"path": f.path})
	}
	return tf.Token, nil
}

func (f *FileTokenStorage) Save(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create session directory")
	}

	raw, err := json.MarshalIndent(tokenFile{Token: token, UpdatedAt: f.now().UTC()}, "", "  ")
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode session file")
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to write session file")
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to replace session file")
	}
	return nil
}

func (f *FileTokenStorage) Delete(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to remove session file")
	}
	return nil
}

var _ auth.TokenStorage = (*FileTokenStorage)(nil)
