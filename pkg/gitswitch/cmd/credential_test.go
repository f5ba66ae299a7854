package cmd

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitswitch/gitswitch/pkg/gitswitch/secret"
	"github.com/gitswitch/gitswitch/pkg/gitswitch/store"
)

func TestCredentialHelperGet(t *testing.T) {
	root, rt, buf := newTestRoot(t)
	ctx := context.Background()

	alice := &store.Account{Username: "alice", AuthMethod: store.AuthMethodDeviceFlow}
	require.NoError(t, rt.store.AddAccount(ctx, alice))
	require.NoError(t, rt.secrets.Store(secret.KeyFor("alice"), "gho_alice"))

	root.SetIn(strings.NewReader("protocol=https\nhost=github.com\n\n"))
	root.SetArgs([]string{"credential-helper", "get"})
	require.NoError(t, root.Execute())

	// git consumes this verbatim; nothing else may appear.
	assert.Equal(t, "username=alice\npassword=gho_alice\n", buf.String())
}

func TestCredentialHelperDefaultsToGet(t *testing.T) {
	root, rt, buf := newTestRoot(t)
	ctx := context.Background()

	alice := &store.Account{Username: "alice", AuthMethod: store.AuthMethodDeviceFlow}
	require.NoError(t, rt.store.AddAccount(ctx, alice))
	require.NoError(t, rt.secrets.Store(secret.KeyFor("alice"), "gho_alice"))

	root.SetIn(strings.NewReader("protocol=https\nhost=github.com\n\n"))
	root.SetArgs([]string{"credential-helper"})
	require.NoError(t, root.Execute())

	assert.Equal(t, "username=alice\npassword=gho_alice\n", buf.String())
}

func TestCredentialHelperGetNoAccounts(t *testing.T) {
	root, _, buf := newTestRoot(t)
	root.SetErr(buf)

	root.SetIn(strings.NewReader("protocol=https\nhost=github.com\n\n"))
	root.SetArgs([]string{"credential-helper", "get"})
	err := root.Execute()

	require.Error(t, err)
	assert.NotContains(t, buf.String(), "username=")
	assert.NotContains(t, buf.String(), "password=")
}

func TestCredentialHelperStoreAndEraseAreNoOps(t *testing.T) {
	for _, action := range []string{"store", "erase"} {
		t.Run(action, func(t *testing.T) {
			root, _, buf := newTestRoot(t)

			root.SetIn(strings.NewReader("protocol=https\nhost=github.com\nusername=alice\npassword=x\n\n"))
			root.SetArgs([]string{"credential-helper", action})
			require.NoError(t, root.Execute())
			assert.Empty(t, buf.String())
		})
	}
}

func TestCredentialHelperUnknownAction(t *testing.T) {
	root, _, buf := newTestRoot(t)
	root.SetErr(buf)

	root.SetArgs([]string{"credential-helper", "frobnicate"})
	err := root.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown credential action")
}
