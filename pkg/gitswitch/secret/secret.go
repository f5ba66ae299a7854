// Package secret defines the capability boundary for bearer-token storage.
// Tokens never appear in persisted account records; they live behind this
// interface, backed by the platform keychain in production and by an
// in-memory map in tests.
package secret

import "errors"

// ErrNotFound indicates no secret is stored under the requested key.
var ErrNotFound = errors.New("secret not found")

// Store holds one secret per account key. Key derivation from usernames is
// handled by KeyFor so that re-adding an account with the same username
// overwrites rather than duplicates its secret.
type Store interface {
	Store(key, value string) error
	Fetch(key string) (string, error)
	Delete(key string) error
	List() ([]string, error)
}

const keyPrefix = "github:"

// KeyFor derives the secret-store key for a username. Keys are
// case-sensitive: usernames differing only in case map to distinct keys.
func KeyFor(username string) string {
	return keyPrefix + username
}
