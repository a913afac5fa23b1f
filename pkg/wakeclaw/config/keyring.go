// Package config – keyring.go provides secure credential storage using the
// operating system's native keyring (Linux: Secret Service/GNOME Keyring,
// macOS: Keychain, Windows: Credential Manager).
//
// Priority for resolving the Discord token:
//  1. Environment variable (WAKECLAW_DISCORD_TOKEN)
//  2. OS keyring (encrypted by the OS, requires user session)
//  3. config.yaml value (least secure — plaintext on disk)
package config

import (
	"os"

	"github.com/zalando/go-keyring"
)

const (
	// keyringService is the service name used in the OS keyring.
	keyringService = "wakeclaw"

	// KeyDiscordToken is the key name for the Discord bot token.
	KeyDiscordToken = "discord_token"

	// envDiscordToken is the environment override for the Discord token.
	envDiscordToken = "WAKECLAW_DISCORD_TOKEN"
)

// StoreKeyring saves a secret to the OS keyring.
func StoreKeyring(key, value string) error {
	return keyring.Set(keyringService, key, value)
}

// GetKeyring retrieves a secret from the OS keyring.
// Returns empty string if not found.
func GetKeyring(key string) string {
	val, err := keyring.Get(keyringService, key)
	if err != nil {
		return ""
	}
	return val
}

// keyringLookup is swapped out in tests; the OS keyring is not available
// in CI environments.
var keyringLookup = GetKeyring

// DeleteKeyring removes a secret from the OS keyring.
func DeleteKeyring(key string) error {
	return keyring.Delete(keyringService, key)
}

// KeyringAvailable checks if the OS keyring is accessible.
func KeyringAvailable() bool {
	// Try a write+delete cycle with a test key.
	testKey := "__wakeclaw_test__"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return false
	}
	_ = keyring.Delete(keyringService, testKey)
	return true
}

// resolveSecrets fills in secret config values using the priority chain:
// env var → OS keyring → config value.
func resolveSecrets(cfg *Config) {
	if val := os.Getenv(envDiscordToken); val != "" {
		cfg.Channels.Discord.Token = val
		return
	}
	if val := keyringLookup(KeyDiscordToken); val != "" {
		cfg.Channels.Discord.Token = val
		return
	}
	// Fall through: whatever config.yaml carried stays in place.
}
