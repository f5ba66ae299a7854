package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAddAndListAccounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	older := &Account{
		Username:   "alice",
		AuthMethod: AuthMethodDeviceFlow,
		CreatedAt:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	newer := &Account{
		Username:   "bob",
		AvatarURL:  "https://example.com/bob.png",
		AuthMethod: AuthMethodManual,
		CreatedAt:  time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.AddAccount(ctx, older))
	require.NoError(t, s.AddAccount(ctx, newer))
	assert.NotEmpty(t, older.ID)
	assert.NotEmpty(t, newer.ID)

	accounts, err := s.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "bob", accounts[0].Username)
	assert.Equal(t, "alice", accounts[1].Username)
	assert.Equal(t, AuthMethodManual, accounts[0].AuthMethod)
	assert.Equal(t, "https://example.com/bob.png", accounts[0].AvatarURL)
	assert.True(t, accounts[0].CreatedAt.Equal(newer.CreatedAt))
}

func TestAddAccountSameUsernameReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := &Account{Username: "alice", AuthMethod: AuthMethodManual}
	require.NoError(t, s.AddAccount(ctx, first))

	second := &Account{Username: "alice", AuthMethod: AuthMethodDeviceFlow, AvatarURL: "https://example.com/a.png"}
	require.NoError(t, s.AddAccount(ctx, second))

	accounts, err := s.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, AuthMethodDeviceFlow, accounts[0].AuthMethod)
	assert.Equal(t, "https://example.com/a.png", accounts[0].AvatarURL)
}

func TestGetAccountByUsername(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	account := &Account{Username: "alice", AuthMethod: AuthMethodManual}
	require.NoError(t, s.AddAccount(ctx, account))

	found, err := s.GetAccountByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, account.ID, found.ID)

	missing, err := s.GetAccountByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSetRepositoryMappingSupersedes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := &Account{Username: "alice", AuthMethod: AuthMethodManual}
	b := &Account{Username: "bob", AuthMethod: AuthMethodManual}
	require.NoError(t, s.AddAccount(ctx, a))
	require.NoError(t, s.AddAccount(ctx, b))

	const remote = "https://github.com/org/repo"
	first, err := s.SetRepositoryMapping(ctx, remote, a.ID, true)
	require.NoError(t, err)

	second, err := s.SetRepositoryMapping(ctx, remote, b.ID, true)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	mapping, err := s.GetRepositoryMapping(ctx, remote)
	require.NoError(t, err)
	require.NotNil(t, mapping)
	assert.Equal(t, b.ID, mapping.AccountID)

	mappings, err := s.ListRepositoryMappings(ctx)
	require.NoError(t, err)
	assert.Len(t, mappings, 1)
}

func TestGetRepositoryMappingIsLiteral(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := &Account{Username: "alice", AuthMethod: AuthMethodManual}
	require.NoError(t, s.AddAccount(ctx, a))
	_, err := s.SetRepositoryMapping(ctx, "https://github.com/org/repo", a.ID, true)
	require.NoError(t, err)

	// Two spellings of the same remote are distinct origins.
	mapping, err := s.GetRepositoryMapping(ctx, "https://github.com/org/repo.git")
	require.NoError(t, err)
	assert.Nil(t, mapping)
}

func TestRemoveAccountCascadesMappings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := &Account{Username: "alice", AuthMethod: AuthMethodManual}
	require.NoError(t, s.AddAccount(ctx, a))
	_, err := s.SetRepositoryMapping(ctx, "https://github.com/org/one", a.ID, true)
	require.NoError(t, err)
	_, err = s.SetRepositoryMapping(ctx, "https://github.com/org/two", a.ID, true)
	require.NoError(t, err)

	require.NoError(t, s.RemoveAccount(ctx, a.ID))

	account, err := s.GetAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, account)

	mappings, err := s.ListRepositoryMappings(ctx)
	require.NoError(t, err)
	assert.Empty(t, mappings)
}

func TestRemoveRepositoryMapping(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := &Account{Username: "alice", AuthMethod: AuthMethodManual}
	require.NoError(t, s.AddAccount(ctx, a))
	mapping, err := s.SetRepositoryMapping(ctx, "https://github.com/org/repo", a.ID, false)
	require.NoError(t, err)

	require.NoError(t, s.RemoveRepositoryMapping(ctx, mapping.ID))

	found, err := s.GetRepositoryMapping(ctx, "https://github.com/org/repo")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestTimestampsStoredAsRFC3339(t *testing.T) {
	createdAt := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	model := fromAccount(&Account{ID: "x", Username: "alice", AuthMethod: AuthMethodManual, CreatedAt: createdAt})
	assert.Equal(t, "2026-03-04T05:06:07Z", model.CreatedAt)

	account, err := toAccount(model)
	require.NoError(t, err)
	assert.True(t, account.CreatedAt.Equal(createdAt))
}
