package main

import "github.com/spf13/cobra"

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "specimenctl",
		Short:         "Field specimen collection workflow",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "config file (default specimen.yaml in . or $HOME/.specimencore)")
	root.AddCommand(
		collectionCommand(),
		specimenCommand(),
		workflowCommand(),
		exportCommand(),
		searchCommand(),
	)
	return root
}
