package main

import (
	"os"

	gitswitchcmd "github.com/gitswitch/gitswitch/pkg/gitswitch/cmd"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	root := gitswitchcmd.NewRootCommand(gitswitchcmd.DefaultConfig())
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		return 1
	}
	return 0
}
