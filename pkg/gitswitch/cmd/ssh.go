package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gitswitch/gitswitch/pkg/gitswitch/output"
	"github.com/gitswitch/gitswitch/pkg/gitswitch/sshcfg"
)

func NewSSHCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ssh",
		Short: "Manage per-account SSH identities",
	}
	cmd.AddCommand(
		newSSHGenerateCommand(),
		newSSHConfigCommand(),
		newSSHTestCommand(),
		newSSHConvertRemoteCommand(),
	)
	return cmd
}

func newSSHGenerateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "generate <username>",
		Short: "Generate an ed25519 key for an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			key, err := sshcfg.GenerateKey(args[0])
			if err != nil {
				return err
			}
			format := output.Format(rt.OutputFormat())
			if format != output.FormatTable {
				return output.WriteObject(rt.Writer(), format, key)
			}
			_, _ = fmt.Fprintf(rt.Writer(), "Generated %s\n%s\n", key.PrivateKeyPath, key.PublicKey)
			return nil
		},
	}
}

func newSSHConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the account's host block in ~/.ssh/config",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <username>",
			Short: "Append the account's host block to ~/.ssh/config",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				rt, err := getRuntime(cmd)
				if err != nil {
					return err
				}
				if err := sshcfg.AddHost(args[0]); err != nil {
					return err
				}
				cfg, err := sshcfg.HostConfigFor(args[0])
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(rt.Writer(), "Added host %s\n", cfg.Host)
				return nil
			},
		},
		&cobra.Command{
			Use:   "remove <username>",
			Short: "Remove the account's host block from ~/.ssh/config",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				rt, err := getRuntime(cmd)
				if err != nil {
					return err
				}
				if err := sshcfg.RemoveHost(args[0]); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(rt.Writer(), "Removed host github-%s\n", args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "show <username>",
			Short: "Print the account's host block values",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				rt, err := getRuntime(cmd)
				if err != nil {
					return err
				}
				cfg, err := sshcfg.HostConfigFor(args[0])
				if err != nil {
					return err
				}
				format := output.Format(rt.OutputFormat())
				if format != output.FormatTable {
					return output.WriteObject(rt.Writer(), format, cfg)
				}
				_, _ = fmt.Fprintf(rt.Writer(), "Host %s\n\tHostName %s\n\tUser %s\n\tIdentityFile %s\n",
					cfg.Host, cfg.HostName, cfg.User, cfg.IdentityFile)
				return nil
			},
		},
	)
	return cmd
}

func newSSHTestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "test <username>",
		Short: "Test the SSH connection for an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			ok, err := sshcfg.TestConnection(args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("ssh connection failed for %s", args[0])
			}
			_, _ = fmt.Fprintln(rt.Writer(), "SSH connection OK")
			return nil
		},
	}
}

func newSSHConvertRemoteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "convert-remote <remote-url> <username>",
		Short: "Rewrite a GitHub HTTPS remote onto the account's host alias",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			converted, err := sshcfg.ConvertRemoteToSSH(args[0], args[1])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(rt.Writer(), converted)
			return nil
		},
	}
}
