// Package resolver decides which stored identity to offer for a remote URL:
// a remembered mapping wins, otherwise a selection policy picks among the
// configured accounts.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/gitswitch/gitswitch/pkg/gitswitch/secret"
	"github.com/gitswitch/gitswitch/pkg/gitswitch/store"
)

var (
	ErrNoAccountsConfigured = errors.New("no accounts configured")
	ErrNoTokenForAccount    = errors.New("no token stored for account")
)

// Directory is the slice of the persistence layer the resolver reads.
type Directory interface {
	ListAccounts(ctx context.Context) ([]store.Account, error)
	GetAccount(ctx context.Context, id string) (*store.Account, error)
	GetRepositoryMapping(ctx context.Context, remoteURL string) (*store.RepositoryMapping, error)
	SetRepositoryMapping(ctx context.Context, remoteURL, accountID string, remember bool) (*store.RepositoryMapping, error)
	RemoveRepositoryMapping(ctx context.Context, id string) error
}

// SelectionPolicy picks the account to use when no mapping exists. It stands
// in for an interactive chooser; substituting one must not touch resolution
// logic.
type SelectionPolicy interface {
	Select(accounts []store.Account) *store.Account
}

// MostRecent selects the most-recently-created account, breaking timestamp
// ties by username so the pick is deterministic.
type MostRecent struct{}

func (MostRecent) Select(accounts []store.Account) *store.Account {
	if len(accounts) == 0 {
		return nil
	}
	sorted := make([]store.Account, len(accounts))
	copy(sorted, accounts)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		}
		return sorted[i].Username < sorted[j].Username
	})
	return &sorted[0]
}

// Credential is the username/secret pair emitted to the caller.
type Credential struct {
	Username string
	Secret   string
}

type Resolver struct {
	dir     Directory
	secrets secret.Store
	policy  SelectionPolicy
}

func New(dir Directory, secrets secret.Store, policy SelectionPolicy) *Resolver {
	if policy == nil {
		policy = MostRecent{}
	}
	return &Resolver{dir: dir, secrets: secrets, policy: policy}
}

// Resolve returns the credential to offer for origin. Origins are matched
// literally against remembered mappings; no URL normalization is applied, so
// two spellings of the same remote are distinct origins (known limitation).
//
// A mapping whose account no longer exists is treated as absent. A mapping
// whose account exists but has no stored secret fails with
// ErrNoTokenForAccount: silently substituting another identity would be a
// confused-identity bug.
func (r *Resolver) Resolve(ctx context.Context, origin string) (*Credential, error) {
	mapping, err := r.dir.GetRepositoryMapping(ctx, origin)
	if err != nil {
		return nil, err
	}
	if mapping != nil {
		account, err := r.dir.GetAccount(ctx, mapping.AccountID)
		if err != nil {
			return nil, err
		}
		if account != nil {
			return r.credentialFor(account)
		}
		// Dangling reference: the account was deleted out from under the
		// mapping. Fall through to the selection policy.
	}

	accounts, err := r.dir.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, ErrNoAccountsConfigured
	}
	account := r.policy.Select(accounts)
	if account == nil {
		return nil, ErrNoAccountsConfigured
	}
	return r.credentialFor(account)
}

func (r *Resolver) credentialFor(account *store.Account) (*Credential, error) {
	token, err := r.secrets.Fetch(secret.KeyFor(account.Username))
	if err != nil {
		if errors.Is(err, secret.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNoTokenForAccount, account.Username)
		}
		return nil, err
	}
	return &Credential{Username: account.Username, Secret: token}, nil
}

// SetMapping remembers an account for the exact origin string, superseding
// any previous mapping for it.
func (r *Resolver) SetMapping(ctx context.Context, origin, accountID string, remember bool) (*store.RepositoryMapping, error) {
	return r.dir.SetRepositoryMapping(ctx, origin, accountID, remember)
}

// RemoveMapping deletes a mapping by id.
func (r *Resolver) RemoveMapping(ctx context.Context, id string) error {
	return r.dir.RemoveRepositoryMapping(ctx, id)
}
