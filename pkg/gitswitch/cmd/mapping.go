package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gitswitch/gitswitch/pkg/gitswitch/output"
)

func NewMappingCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mapping",
		Short: "Manage repository-to-account mappings",
	}
	cmd.AddCommand(
		newMappingListCommand(),
		newMappingSetCommand(),
		newMappingRemoveCommand(),
	)
	return cmd
}

func newMappingListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List repository mappings",
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
			mappings, err := s.ListRepositoryMappings(ctx)
			if err != nil {
				return err
			}
			format := output.Format(rt.OutputFormat())
			if format != output.FormatTable {
				return output.WriteObject(rt.Writer(), format, mappings)
			}
			accounts, err := s.ListAccounts(ctx)
			if err != nil {
				return err
			}
			usernames := make(map[string]string, len(accounts))
			for _, a := range accounts {
				usernames[a.ID] = a.Username
			}
			output.WriteMappingTable(rt.Writer(), mappings, usernames)
			return nil
		},
	}
}

func newMappingSetCommand() *cobra.Command {
	var remember bool
	cmd := &cobra.Command{
		Use:   "set <remote-url> <username>",
		Short: "Remember an account for a remote URL",
		Long: "Remember an account for a remote URL. The URL is matched literally on " +
			"lookup: https://github.com/org/repo and https://github.com/org/repo.git " +
			"are distinct remotes.",
		Args: cobra.ExactArgs(2),
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
			account, err := s.GetAccountByUsername(ctx, args[1])
			if err != nil {
				return err
			}
			if account == nil {
				return fmt.Errorf("account not found: %s", args[1])
			}
			mapping, err := s.SetRepositoryMapping(ctx, args[0], account.ID, remember)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(rt.Writer(), "Mapped %s -> %s (%s)\n", mapping.RemoteURL, account.Username, mapping.ID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&remember, "remember", true, "Persist the mapping for future credential requests")
	return cmd
}

func newMappingRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <mapping-id>",
		Short: "Remove a repository mapping by id",
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
			if err := s.RemoveRepositoryMapping(ctx, args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(rt.Writer(), "Mapping removed")
			return nil
		},
	}
}
