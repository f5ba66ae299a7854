// Package gitcfg registers the credential helper in git's global
// configuration by shelling out to the installed git binary.
package gitcfg

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// HelperCommand is the credential.helper value pointing at exe. The leading
// "!" tells git to run it as a shell command; git appends the requested
// action (get, store, erase).
func HelperCommand(exe string) string {
	return fmt.Sprintf("!%s credential-helper", exe)
}

// Install clears any existing global credential helpers and registers the
// current executable in their place.
func Install() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to locate current executable: %w", err)
	}
	// Unset may fail when no helper was configured; that is fine.
	_ = exec.Command("git", "config", "--global", "--unset-all", "credential.helper").Run()

	out, err := exec.Command("git", "config", "--global", "credential.helper", HelperCommand(exe)).CombinedOutput()
	if err != nil {
		return fmt.Errorf("git config failed: %s: %w", strings.TrimSpace(string(out)), err)
	}
	return nil
}

// Uninstall removes every global credential.helper entry.
func Uninstall() error {
	out, err := exec.Command("git", "config", "--global", "--unset-all", "credential.helper").CombinedOutput()
	if err != nil {
		// Exit status 5 means the key did not exist.
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 5 {
			return nil
		}
		return fmt.Errorf("git config failed: %s: %w", strings.TrimSpace(string(out)), err)
	}
	return nil
}

// Status reports whether any global credential helper is configured and
// whether it points at the current executable.
type Status struct {
	Installed  bool   `json:"installed"`
	Configured bool   `json:"configured"`
	Helper     string `json:"helper,omitempty"`
}

func GetStatus() (*Status, error) {
	out, err := exec.Command("git", "config", "--global", "credential.helper").Output()
	if err != nil {
		// A non-zero exit means no helper is configured.
		if _, ok := err.(*exec.ExitError); ok {
			return &Status{}, nil
		}
		return nil, fmt.Errorf("failed to run git config: %w", err)
	}
	helper := strings.TrimSpace(string(out))
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to locate current executable: %w", err)
	}
	return &Status{
		Installed:  helper != "",
		Configured: helper == HelperCommand(exe),
		Helper:     helper,
	}, nil
}
