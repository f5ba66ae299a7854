package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/gitswitch/gitswitch/pkg/gitswitch/helper"
)

// NewCredentialHelperCommand is the entry point git invokes. git appends the
// requested action (get, store, erase) to the configured helper command; only
// get produces output. store and erase drain stdin and exit zero: account
// lifecycle is owned by gitswitch, not by git.
func NewCredentialHelperCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "credential-helper [get|store|erase]",
		Short:  "Respond to git's credential protocol on stdin/stdout",
		Hidden: true,
		Args:   cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			action := "get"
			if len(args) > 0 {
				action = args[0]
			}
			switch action {
			case "get":
				ctx := cmd.Context()
				res, err := rt.Resolver(ctx)
				if err != nil {
					return err
				}
				h := helper.New(res, rt.Logger())
				return h.Run(ctx, cmd.InOrStdin(), rt.Writer())
			case "store", "erase":
				_, _ = io.Copy(io.Discard, cmd.InOrStdin())
				return nil
			default:
				return fmt.Errorf("unknown credential action: %s", action)
			}
		},
	}
	return cmd
}
