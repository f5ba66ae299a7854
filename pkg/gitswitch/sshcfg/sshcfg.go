// Package sshcfg is a convenience wrapper around ssh-keygen and ~/.ssh/config
// for per-account SSH identities (host alias github-<username>).
package sshcfg

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const keyNamePrefix = "gitswitch_"

type KeyInfo struct {
	PublicKey      string `json:"public_key"`
	PrivateKeyPath string `json:"private_key_path"`
	KeyID          string `json:"key_id"`
}

type HostConfig struct {
	Host         string `json:"host"`
	HostName     string `json:"hostname"`
	User         string `json:"user"`
	IdentityFile string `json:"identity_file"`
}

func sshDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("cannot resolve home directory")
	}
	return filepath.Join(home, ".ssh"), nil
}

// GenerateKey creates a passphrase-less ed25519 keypair for the account and
// returns its public half.
func GenerateKey(username string) (*KeyInfo, error) {
	dir, err := sshDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create ssh directory: %w", err)
	}
	keyName := keyNamePrefix + username
	privateKeyPath := filepath.Join(dir, keyName)

	out, err := exec.Command("ssh-keygen",
		"-t", "ed25519",
		"-f", privateKeyPath,
		"-C", username+"@gitswitch",
		"-N", "",
	).CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ssh-keygen failed: %s: %w", strings.TrimSpace(string(out)), err)
	}

	publicKey, err := os.ReadFile(privateKeyPath + ".pub")
	if err != nil {
		return nil, fmt.Errorf("failed to read public key: %w", err)
	}
	return &KeyInfo{
		PublicKey:      strings.TrimSpace(string(publicKey)),
		PrivateKeyPath: privateKeyPath,
		KeyID:          keyName,
	}, nil
}

// HostConfigFor returns the ~/.ssh/config block values for the account.
func HostConfigFor(username string) (*HostConfig, error) {
	dir, err := sshDir()
	if err != nil {
		return nil, err
	}
	return &HostConfig{
		Host:         "github-" + username,
		HostName:     "github.com",
		User:         "git",
		IdentityFile: filepath.Join(dir, keyNamePrefix+username),
	}, nil
}

// AddHost appends the account's host block to ~/.ssh/config.
func AddHost(username string) error {
	dir, err := sshDir()
	if err != nil {
		return err
	}
	cfg, err := HostConfigFor(username)
	if err != nil {
		return err
	}
	entry := fmt.Sprintf("\nHost %s\n\tHostName %s\n\tUser %s\n\tIdentityFile %s\n\tIdentitiesOnly yes\n",
		cfg.Host, cfg.HostName, cfg.User, cfg.IdentityFile)

	f, err := os.OpenFile(filepath.Join(dir, "config"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open ssh config: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	if _, err := f.WriteString(entry); err != nil {
		return fmt.Errorf("failed to write ssh config: %w", err)
	}
	return nil
}

// RemoveHost deletes the account's host block from ~/.ssh/config, leaving all
// other blocks untouched.
func RemoveHost(username string) error {
	dir, err := sshDir()
	if err != nil {
		return err
	}
	path := filepath.Join(dir, "config")
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read ssh config: %w", err)
	}

	filtered := RemoveHostBlock(string(content), "github-"+username)
	if err := os.WriteFile(path, []byte(filtered), 0o600); err != nil {
		return fmt.Errorf("failed to write ssh config: %w", err)
	}
	return nil
}

// RemoveHostBlock strips the Host block matching alias from an ssh config
// document, up to the next Host line.
func RemoveHostBlock(content, alias string) string {
	lines := strings.Split(content, "\n")
	kept := make([]string, 0, len(lines))
	skipping := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "Host ") {
			fields := strings.Fields(trimmed)
			skipping = len(fields) > 1 && fields[1] == alias
			if skipping {
				continue
			}
		}
		if skipping {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// TestConnection attempts an SSH handshake with github.com using the
// account's identity. GitHub closes authenticated connections with exit code
// 1 and a greeting on stderr.
func TestConnection(username string) (bool, error) {
	cfg, err := HostConfigFor(username)
	if err != nil {
		return false, err
	}
	cmd := exec.Command("ssh",
		"-T",
		"-o", "StrictHostKeyChecking=no",
		"-o", "ConnectTimeout=10",
		"-i", cfg.IdentityFile,
		fmt.Sprintf("%s@%s", cfg.User, cfg.HostName),
	)
	out, err := cmd.CombinedOutput()
	text := string(out)
	if strings.Contains(text, "successfully authenticated") || strings.Contains(text, "Hi ") {
		return true, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
		return true, nil
	}
	if err != nil {
		return false, nil
	}
	return true, nil
}

// ConvertRemoteToSSH rewrites a GitHub HTTPS remote onto the account's host
// alias so pushes use the per-account key.
func ConvertRemoteToSSH(remoteURL, username string) (string, error) {
	const prefix = "https://github.com/"
	if !strings.HasPrefix(remoteURL, prefix) {
		return "", fmt.Errorf("not a GitHub HTTPS URL: %s", remoteURL)
	}
	repoPath := strings.TrimPrefix(remoteURL, prefix)
	return fmt.Sprintf("git@github-%s:%s", username, repoPath), nil
}
