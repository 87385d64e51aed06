// Package credentials resolves provider API keys from the environment or
// the system keyring (macOS Keychain, Windows Credential Manager, Linux
// Secret Service).
package credentials

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/zalando/go-keyring"
)

// keyringService is the service name used in the system keyring.
const keyringService = "ai-meeting-copilot"

// ErrCredentialMissing indicates no API key is configured for a provider.
// Fatal to session start; never retried.
var ErrCredentialMissing = errors.New("no provider credential configured")

// Resolver returns the API key for a named provider.
// Keys may rotate between calls, so callers re-resolve on every reconnect.
type Resolver interface {
	APIKey(provider string) (string, error)
}

// KeyringResolver resolves keys from an env var override first, then the
// system keyring. Results are not cached so a rotated key is picked up on
// the next call.
type KeyringResolver struct {
	mu sync.Mutex
}

// NewKeyringResolver creates a new KeyringResolver.
func NewKeyringResolver() *KeyringResolver {
	return &KeyringResolver{}
}

// APIKey returns the key for provider, e.g. "deepgram" or "gemini".
// The env var checked is <PROVIDER>_API_KEY.
func (r *KeyringResolver) APIKey(provider string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	envKey := strings.ToUpper(provider) + "_API_KEY"
	if v := os.Getenv(envKey); v != "" {
		return v, nil
	}

	secret, err := keyring.Get(keyringService, provider)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("%w: provider %q", ErrCredentialMissing, provider)
		}
		return "", fmt.Errorf("keyring lookup for %q: %w", provider, err)
	}
	if secret == "" {
		return "", fmt.Errorf("%w: provider %q", ErrCredentialMissing, provider)
	}
	return secret, nil
}

// Store writes a provider key to the system keyring.
func (r *KeyringResolver) Store(provider, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return keyring.Set(keyringService, provider, key)
}

// StaticResolver returns fixed keys. Used in tests and local wiring.
type StaticResolver map[string]string

// APIKey implements Resolver.
func (s StaticResolver) APIKey(provider string) (string, error) {
	if v, ok := s[provider]; ok && v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%w: provider %q", ErrCredentialMissing, provider)
}
