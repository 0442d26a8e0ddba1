package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	pepperMu sync.RWMutex
	pepper   string
)

// GetPepper returns the process-wide pepper mixed into argon2id hashes. It is
// empty until LoadPepper or SetPepper is called.
func GetPepper() string {
	pepperMu.RLock()
	defer pepperMu.RUnlock()
	return pepper
}

// SetPepper installs a pepper directly. Used by tests and by deployments that
// inject the value from a secret manager.
func SetPepper(p string) {
	pepperMu.Lock()
	pepper = p
	pepperMu.Unlock()
}

// LoadPepper reads the pepper from file, generating and persisting a new one
// on first start. Losing this file invalidates every stored argon2id hash.
func LoadPepper(file string) error {
	if file == "" {
		return errors.New("cryptox: pepper path is empty")
	}
	file = filepath.Clean(file)
	if err := os.MkdirAll(filepath.Dir(file), 0o750); err != nil {
		return err
	}

	data, err := os.ReadFile(file)
	switch {
	case err == nil:
		SetPepper(strings.TrimSpace(string(data)))
		return nil
	case !errors.Is(err, os.ErrNotExist):
		return err
	}

	buf := make([]byte, keyLength)
	if _, err := rand.Read(buf); err != nil {
		return err
	}
	p := base64.RawURLEncoding.EncodeToString(buf)
	if err := os.WriteFile(file, []byte(p), 0o600); err != nil {
		return err
	}
	SetPepper(p)
	return nil
}
