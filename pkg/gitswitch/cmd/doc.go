// Package cmd implements the cobra command tree for the gitswitch CLI,
// including subcommands for account management, repository mappings, the git
// credential helper, helper installation, SSH identities, and shell
// completion.
package cmd
