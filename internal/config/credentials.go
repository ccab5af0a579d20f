package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileTokenStore reads the auth token from a file on every use, so a rotated
// token is picked up by the next reconnect without restarting. It satisfies
// the session client's token provider interface.
type FileTokenStore struct {
	path string
}

// NewFileTokenStore resolves a token file path. Relative paths resolve
// against the config directory.
func NewFileTokenStore(path string) (*FileTokenStore, error) {
	if !filepath.IsAbs(path) {
		dir, err := GetConfigDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, path)
	}
	return &FileTokenStore{path: path}, nil
}

// Token returns the stored token, trimmed of surrounding whitespace. A
// missing file yields an empty token, not an error: local development runs
// without auth.
func (s *FileTokenStore) Token() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read token file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Store writes a new token to the file with owner-only permissions.
func (s *FileTokenStore) Store(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	return os.WriteFile(s.path, []byte(token+"\n"), 0600)
}
