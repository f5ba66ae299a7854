package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gitswitch/gitswitch/pkg/gitswitch/github"
	"github.com/gitswitch/gitswitch/pkg/gitswitch/output"
	"github.com/gitswitch/gitswitch/pkg/gitswitch/secret"
	"github.com/gitswitch/gitswitch/pkg/gitswitch/sshcfg"
	"github.com/gitswitch/gitswitch/pkg/gitswitch/store"
)

func NewAccountCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage GitHub accounts",
	}
	cmd.AddCommand(
		newAccountListCommand(),
		newAccountAddCommand(),
		newAccountRemoveCommand(),
		newAccountTestCommand(),
	)
	return cmd
}

func newAccountListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			s, err := rt.Store(ctx)
			if err != nil {
				return err
			}
			accounts, err := s.ListAccounts(ctx)
			if err != nil {
				return err
			}
			format := output.Format(rt.OutputFormat())
			if format == output.FormatTable {
				output.WriteAccountTable(rt.Writer(), accounts)
				return nil
			}
			return output.WriteObject(rt.Writer(), format, accounts)
		},
	}
}

func newAccountAddCommand() *cobra.Command {
	var (
		token     string
		manual    bool
		noBrowser bool
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an account via the GitHub device flow (or a pasted token)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			gh, err := rt.GitHub()
			if err != nil {
				return err
			}

			authMethod := store.AuthMethodDeviceFlow
			if manual || token != "" {
				authMethod = store.AuthMethodManual
				if token == "" {
					token, err = promptToken(rt)
					if err != nil {
						return err
					}
				}
			} else {
				token, err = runDeviceFlow(ctx, rt, gh, noBrowser)
				if err != nil {
					return err
				}
			}

			user, err := gh.ValidateToken(ctx, token)
			if err != nil {
				return fmt.Errorf("token validation failed: %w", err)
			}

			s, err := rt.Store(ctx)
			if err != nil {
				return err
			}
			if err := rt.Secrets().Store(secret.KeyFor(user.Login), token); err != nil {
				return fmt.Errorf("failed to store token: %w", err)
			}
			account := &store.Account{
				Username:   user.Login,
				AvatarURL:  user.AvatarURL,
				AuthMethod: authMethod,
			}
			if err := s.AddAccount(ctx, account); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(rt.Writer(), "Added account %s\n", account.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "Personal access token (skips the device flow)")
	cmd.Flags().BoolVar(&manual, "manual", false, "Prompt for a token instead of running the device flow")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Do not open the verification URL in a browser")
	return cmd
}

func runDeviceFlow(ctx context.Context, rt *runtimeState, gh *github.Client, noBrowser bool) (string, error) {
	session, err := gh.StartDeviceFlow(ctx)
	if err != nil {
		return "", err
	}
	_, _ = fmt.Fprintf(rt.Writer(), "Visit %s and enter code: %s\n", session.VerificationURI, session.UserCode)

	verificationURL := session.VerificationURIComplete
	if verificationURL == "" {
		verificationURL = session.VerificationURI
	}
	if verificationURL != "" && !noBrowser && !rt.nonInteractive &&
		!strings.EqualFold(os.Getenv("GITSWITCH_NO_BROWSER"), "true") {
		_ = openBrowser(verificationURL)
	}

	minted, err := gh.PollForToken(ctx, session)
	if err != nil {
		switch {
		case errors.Is(err, github.ErrDenied):
			return "", errors.New("authorization was denied; run account add again to retry")
		case errors.Is(err, github.ErrExpired), errors.Is(err, github.ErrTimeout):
			return "", errors.New("the device code expired before authorization completed; run account add again")
		}
		return "", err
	}
	return minted.Token.AccessToken, nil
}

func promptToken(rt *runtimeState) (string, error) {
	if rt.nonInteractive || !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", errors.New("no token provided and input is not a terminal; pass --token")
	}
	_, _ = fmt.Fprint(rt.Writer(), "Token: ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	_, _ = fmt.Fprintln(rt.Writer())
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	token := strings.TrimSpace(string(raw))
	if token == "" {
		return "", errors.New("token is empty")
	}
	return token, nil
}

func newAccountRemoveCommand() *cobra.Command {
	var keepSSH bool
	cmd := &cobra.Command{
		Use:   "remove <username|id>",
		Short: "Remove an account, its mappings, and its stored token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			s, err := rt.Store(ctx)
			if err != nil {
				return err
			}
			account, err := s.GetAccountByUsername(ctx, args[0])
			if err != nil {
				return err
			}
			if account == nil {
				account, err = s.GetAccount(ctx, args[0])
				if err != nil {
					return err
				}
			}
			if account == nil {
				return fmt.Errorf("account not found: %s", args[0])
			}
			// Mappings go first, in the same transaction as the account row.
			if err := s.RemoveAccount(ctx, account.ID); err != nil {
				return err
			}
			if err := rt.Secrets().Delete(secret.KeyFor(account.Username)); err != nil {
				rt.Logger().Warnw("failed to delete stored token", "username", account.Username, "error", err)
			}
			if !keepSSH {
				if err := sshcfg.RemoveHost(account.Username); err != nil {
					rt.Logger().Warnw("failed to clean ssh config", "username", account.Username, "error", err)
				}
			}
			_, _ = fmt.Fprintf(rt.Writer(), "Removed account %s\n", account.Username)
			return nil
		},
	}
	cmd.Flags().BoolVar(&keepSSH, "keep-ssh", false, "Leave the account's ssh config block in place")
	return cmd
}

func newAccountTestCommand() *cobra.Command {
	var org string
	cmd := &cobra.Command{
		Use:   "test <username>",
		Short: "Verify an account's token against the GitHub API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			token, err := rt.Secrets().Fetch(secret.KeyFor(args[0]))
			if err != nil {
				if errors.Is(err, secret.ErrNotFound) {
					return fmt.Errorf("no token stored for account: %s", args[0])
				}
				return err
			}
			gh, err := rt.GitHub()
			if err != nil {
				return err
			}
			user, err := gh.ValidateToken(ctx, token)
			if err != nil {
				return fmt.Errorf("connection failed: %w", err)
			}
			_, _ = fmt.Fprintf(rt.Writer(), "Connected as %s\n", user.Login)
			if scopes, err := gh.TokenScopes(ctx, token); err == nil {
				output.WriteScopeList(rt.Writer(), scopes)
			}
			if org != "" {
				ssoMaybe, err := gh.CheckOrgSSORequirement(ctx, token, org)
				if err != nil {
					return err
				}
				if ssoMaybe {
					_, _ = fmt.Fprintf(rt.Writer(), "Organization %s may require SSO authorization for this token\n", org)
				} else {
					_, _ = fmt.Fprintf(rt.Writer(), "Organization %s accepted the token\n", org)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&org, "org", "", "Also check organization SSO requirements (advisory)")
	return cmd
}
