package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"

	"github.com/born-ml/bayescal/internal/serialization"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <checkpoint>",
		Short: "Summarize a checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ckpt, err := serialization.LoadFile(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run:        %s\n", ckpt.RunID)
			fmt.Fprintf(out, "created:    %s\n", ckpt.CreatedAt.Format("2006-01-02 15:04:05"))
			fmt.Fprintf(out, "converged:  %t\n", ckpt.Converged)
			fmt.Fprintf(out, "end_param:  %s\n", formatVec(ckpt.EndParam))
			for k, v := range ckpt.Metadata {
				fmt.Fprintf(out, "meta.%s: %s\n", k, v)
			}
			if ckpt.Log != nil {
				fmt.Fprintf(out, "accepted:   %d\n", ckpt.Log.Len())
				if last, ok := ckpt.Log.LastRecord(); ok {
					fmt.Fprintf(out, "score:      %.6g (kl %.6g, mean %.6g)\n", last.Score, last.KL, last.Mean)
				}
			}
			if ckpt.BinLog != nil {
				fmt.Fprintf(out, "rejected:   %d\n", ckpt.BinLog.Len())
			}
			if s := ckpt.Samples; s != nil {
				fmt.Fprintf(out, "samples:    %d/%d in %d generations\n", s.N(), s.Capacity(), s.NGen())
				if s.N() > 0 {
					mean, std := stat.MeanStdDev(s.Values(), nil)
					fmt.Fprintf(out, "values:     mean %.6g, std %.6g\n", mean, std)
					x, v, _ := s.Best()
					fmt.Fprintf(out, "best:       %s -> %.6g\n", formatVec(x), v)
				}
			}
			return nil
		},
	}
}
