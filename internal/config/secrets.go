package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

// KeyringService groups this application's secrets in the OS keychain.
const KeyringService = "applypilot"

// ErrAPIKeyNotFound is returned when no source provides an API key.
var ErrAPIKeyNotFound = errors.New("API key not found (pass --api-key, set GEMINI_API_KEY, or run set-api-key)")

func apiKeyAccount(account string) string {
	return "gemini:" + account
}

// ResolveAPIKey returns the first non-blank key from the flag value, the loaded
// configuration and the OS keyring, in that order.
func (c *Config) ResolveAPIKey(flagValue string) (string, error) {
	if key := strings.TrimSpace(flagValue); key != "" {
		return key, nil
	}
	if key := strings.TrimSpace(c.APIKey); key != "" {
		return key, nil
	}
	if strings.TrimSpace(c.KeyringAccount) != "" {
		key, err := keyring.Get(KeyringService, apiKeyAccount(c.KeyringAccount))
		if err == nil && strings.TrimSpace(key) != "" {
			return key, nil
		}
	}
	return "", ErrAPIKeyNotFound
}

// StoreAPIKey saves key in the OS keyring under the configured account.
func (c *Config) StoreAPIKey(key string) error {
	if strings.TrimSpace(c.KeyringAccount) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(key) == "" {
		return errors.New("API key is empty")
	}
	if err := keyring.Set(KeyringService, apiKeyAccount(c.KeyringAccount), key); err != nil {
		return fmt.Errorf("failed to store API key: %w", err)
	}
	return nil
}

// DeleteAPIKey removes the stored key for the configured account.
func (c *Config) DeleteAPIKey() error {
	if strings.TrimSpace(c.KeyringAccount) == "" {
		return errors.New("keyring account name is empty")
	}
	return keyring.Delete(KeyringService, apiKeyAccount(c.KeyringAccount))
}
