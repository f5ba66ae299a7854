package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gitswitch/gitswitch/pkg/gitswitch/gitcfg"
	"github.com/gitswitch/gitswitch/pkg/gitswitch/output"
)

func NewInstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Register gitswitch as git's global credential helper",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if err := gitcfg.Install(); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(rt.Writer(), "Installed credential helper")
			return nil
		},
	}
}

func NewUninstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "Remove gitswitch from git's global credential helpers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if err := gitcfg.Uninstall(); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(rt.Writer(), "Removed credential helper")
			return nil
		},
	}
}

func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the credential helper is installed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			status, err := gitcfg.GetStatus()
			if err != nil {
				return err
			}
			format := output.Format(rt.OutputFormat())
			if format != output.FormatTable {
				return output.WriteObject(rt.Writer(), format, status)
			}
			switch {
			case !status.Installed:
				_, _ = fmt.Fprintln(rt.Writer(), "No credential helper configured")
			case status.Configured:
				_, _ = fmt.Fprintln(rt.Writer(), "gitswitch is the configured credential helper")
			default:
				_, _ = fmt.Fprintf(rt.Writer(), "Another credential helper is configured: %s\n", status.Helper)
			}
			return nil
		},
	}
}
