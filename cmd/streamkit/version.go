package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skillsenselab/streamkit/version"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the streamkit version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "streamkit", version.Full())
		},
	}
}
