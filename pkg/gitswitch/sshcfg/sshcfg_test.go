package sshcfg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostConfigFor(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := HostConfigFor("alice")
	require.NoError(t, err)
	assert.Equal(t, "github-alice", cfg.Host)
	assert.Equal(t, "github.com", cfg.HostName)
	assert.Equal(t, "git", cfg.User)
	assert.Equal(t, filepath.Join(home, ".ssh", "gitswitch_alice"), cfg.IdentityFile)
}

func TestAddAndRemoveHost(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := filepath.Join(home, ".ssh", "config")

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	existing := "Host work\n\tHostName git.example.com\n\tUser git\n"
	require.NoError(t, os.WriteFile(path, []byte(existing), 0o600))

	require.NoError(t, AddHost("alice"))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Host work")
	assert.Contains(t, string(content), "Host github-alice")
	assert.Contains(t, string(content), "IdentitiesOnly yes")

	require.NoError(t, RemoveHost("alice"))

	content, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Host work")
	assert.NotContains(t, string(content), "github-alice")
}

func TestRemoveHostMissingConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	assert.NoError(t, RemoveHost("alice"))
}

func TestRemoveHostBlock(t *testing.T) {
	content := `Host work
	HostName git.example.com
	User git

Host github-alice
	HostName github.com
	User git
	IdentityFile ~/.ssh/gitswitch_alice

Host github-bob
	HostName github.com
	User git
`
	filtered := RemoveHostBlock(content, "github-alice")
	assert.Contains(t, filtered, "Host work")
	assert.Contains(t, filtered, "Host github-bob")
	assert.NotContains(t, filtered, "github-alice")
	assert.NotContains(t, filtered, "gitswitch_alice")
}

func TestRemoveHostBlockNoMatch(t *testing.T) {
	content := "Host work\n\tHostName git.example.com\n"
	assert.Equal(t, content, RemoveHostBlock(content, "github-alice"))
}

func TestConvertRemoteToSSH(t *testing.T) {
	converted, err := ConvertRemoteToSSH("https://github.com/org/repo.git", "alice")
	require.NoError(t, err)
	assert.Equal(t, "git@github-alice:org/repo.git", converted)

	_, err = ConvertRemoteToSSH("git@github.com:org/repo.git", "alice")
	assert.Error(t, err)

	_, err = ConvertRemoteToSSH("https://gitlab.com/org/repo.git", "alice")
	assert.Error(t, err)
}
