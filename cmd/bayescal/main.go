// Package main provides the bayescal CLI.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

const version = "v0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "bayescal",
		Short: "Gradient-based variational calibration",
		Long: `bayescal calibrates a distribution over model parameters by minimizing
the expected loss plus a temperature-weighted KL penalty against a prior.`,
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd(), newInspectCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "bayescal %s\n", version)
		},
	}
}

func formatVec(v []float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprintf("%.6g", x)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
