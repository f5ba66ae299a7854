package secret

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/zalando/go-keyring"
)

const (
	// DefaultService is the keychain service name under which all gitswitch
	// secrets are stored.
	DefaultService = "gitswitch"

	// indexKey holds a JSON list of every stored key. OS keyrings cannot
	// enumerate entries, so List is served from this registry, kept current
	// by Store and Delete.
	indexKey = "gitswitch-index"
)

// Keyring is a Store backed by the platform keychain. Access is serialized:
// OS secret stores are not safely concurrent from arbitrary goroutines.
type Keyring struct {
	service string
	mu      sync.Mutex
}

func NewKeyring(service string) *Keyring {
	if service == "" {
		service = DefaultService
	}
	return &Keyring{service: service}
}

func (k *Keyring) Store(key, value string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := keyring.Set(k.service, key, value); err != nil {
		return fmt.Errorf("keychain store failed: %w", err)
	}
	return k.updateIndex(func(keys map[string]struct{}) {
		keys[key] = struct{}{}
	})
}

func (k *Keyring) Fetch(key string) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	value, err := keyring.Get(k.service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("keychain fetch failed: %w", err)
	}
	return value, nil
}

func (k *Keyring) Delete(key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := keyring.Delete(k.service, key); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("keychain delete failed: %w", err)
	}
	return k.updateIndex(func(keys map[string]struct{}) {
		delete(keys, key)
	})
}

func (k *Keyring) List() ([]string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	keys, err := k.readIndex()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(keys))
	for key := range keys {
		out = append(out, key)
	}
	sort.Strings(out)
	return out, nil
}

func (k *Keyring) readIndex() (map[string]struct{}, error) {
	raw, err := keyring.Get(k.service, indexKey)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return map[string]struct{}{}, nil
		}
		return nil, fmt.Errorf("keychain index read failed: %w", err)
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("keychain index is corrupt: %w", err)
	}
	keys := make(map[string]struct{}, len(list))
	for _, key := range list {
		keys[key] = struct{}{}
	}
	return keys, nil
}

func (k *Keyring) updateIndex(mutate func(map[string]struct{})) error {
	keys, err := k.readIndex()
	if err != nil {
		return err
	}
	mutate(keys)
	list := make([]string, 0, len(keys))
	for key := range keys {
		list = append(list, key)
	}
	sort.Strings(list)
	raw, err := json.Marshal(list)
	if err != nil {
		return err
	}
	if err := keyring.Set(k.service, indexKey, string(raw)); err != nil {
		return fmt.Errorf("keychain index write failed: %w", err)
	}
	return nil
}
