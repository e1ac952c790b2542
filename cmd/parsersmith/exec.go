package main

import (
	"github.com/spf13/cobra"

	"parsersmith/internal/candidate"
)

var (
	execArtifact string
	execPDF      string
)

// execCmd is the child side of subprocess isolation. It prints one JSON
// envelope on stdout and is not meant to be run by hand.
var execCmd = &cobra.Command{
	Use:    candidate.ExecCommand,
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd.Context())
		defer cancel()
		return candidate.RunChild(ctx, execArtifact, execPDF, cmd.OutOrStdout())
	},
}

func init() {
	execCmd.Flags().StringVar(&execArtifact, "artifact", "", "Parser source file")
	execCmd.Flags().StringVar(&execPDF, "pdf", "", "Statement to parse")
	_ = execCmd.MarkFlagRequired("artifact")
	_ = execCmd.MarkFlagRequired("pdf")
}
