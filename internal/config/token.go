package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the service name in the OS keychain.
	KeyringService = "ferry"
	// KeyringTokenItem is the keychain item holding the GitHub token.
	KeyringTokenItem = "github-token"
)

// Where a token was found.
const (
	TokenFromEnv      = "env"
	TokenFromConfig   = "config"
	TokenFromKeychain = "keychain"
)

// ErrNoToken is returned when no GitHub token is configured anywhere.
var ErrNoToken = errors.New("no GitHub token: set GITHUB_TOKEN, target.token, or run 'ferry config set-token'")

// Token resolves the GitHub token: the GITHUB_TOKEN environment variable,
// then target.token, then the OS keychain. It also returns where the token
// came from.
func (c *Config) Token() (string, string, error) {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return token, TokenFromEnv, nil
	}
	if c.Target.Token != "" {
		return c.Target.Token, TokenFromConfig, nil
	}

	token, err := keyring.Get(KeyringService, KeyringTokenItem)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", "", ErrNoToken
	}
	if err != nil {
		return "", "", fmt.Errorf("reading OS keychain: %w", err)
	}
	return token, TokenFromKeychain, nil
}

// SetToken stores a GitHub token in the OS keychain.
func SetToken(token string) error {
	if token == "" {
		return fmt.Errorf("github token cannot be empty")
	}
	if err := keyring.Set(KeyringService, KeyringTokenItem, token); err != nil {
		return fmt.Errorf("saving to OS keychain: %w", err)
	}
	return nil
}

// DeleteToken removes the GitHub token from the OS keychain. A missing
// token is not an error.
func DeleteToken() error {
	err := keyring.Delete(KeyringService, KeyringTokenItem)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("deleting from OS keychain: %w", err)
	}
	return nil
}
