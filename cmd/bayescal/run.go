package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/born-ml/bayescal/internal/optim"
	"github.com/born-ml/bayescal/internal/serialization"
)

type runOptions struct {
	configPath string
	outPath    string
	resumePath string
	logFormat  string
	seed       int64
}

func newRunCmd() *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a calibration",
		Long: `Run a calibration of a diagonal Gaussian against a quadratic loss.

Examples:
  bayescal run
  bayescal run --config run.yaml --out run.bcal
  bayescal run --config run.yaml --resume run.bcal --out run2.bcal`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCalibration(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "YAML run configuration")
	cmd.Flags().StringVarP(&opts.outPath, "out", "o", "", "write a checkpoint to this path")
	cmd.Flags().StringVar(&opts.resumePath, "resume", "", "resume from a checkpoint")
	cmd.Flags().StringVar(&opts.logFormat, "log-format", "text", "log format: text or json")
	cmd.Flags().Int64Var(&opts.seed, "seed", -1, "override the configured seed")
	return cmd
}

func newLogger(w io.Writer, format string) (*slog.Logger, error) {
	switch format {
	case "text":
		return slog.New(slog.NewTextHandler(w, nil)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, nil)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

func runCalibration(cmd *cobra.Command, opts runOptions) error {
	rc, err := loadRunConfig(opts.configPath)
	if err != nil {
		return err
	}
	if opts.seed >= 0 {
		rc.Seed = uint64(opts.seed)
	}
	family, cfg, err := rc.build()
	if err != nil {
		return err
	}
	if cfg.Logger, err = newLogger(cmd.ErrOrStderr(), opts.logFormat); err != nil {
		return err
	}

	if opts.resumePath != "" {
		ckpt, err := serialization.LoadFile(opts.resumePath)
		if err != nil {
			return fmt.Errorf("resume: %w", err)
		}
		if ckpt.Samples == nil {
			return fmt.Errorf("resume: checkpoint %s has no density-tracking samples", opts.resumePath)
		}
		cfg.Post = ckpt.EndParam
		cfg.Resume = ckpt.Samples
		cfg.Logger.Info("resuming", slog.String("from_run", ckpt.RunID.String()), slog.Int("samples", ckpt.Samples.N()))
	}

	solver, err := optim.New(rc.objective(), family, cfg)
	if err != nil {
		return err
	}
	res, err := solver.Optimize(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run:        %s\n", res.RunID)
	fmt.Fprintf(out, "converged:  %t\n", res.Converged)
	if res.HasScore {
		fmt.Fprintf(out, "score:      %.6g\n", res.OptimScore)
	} else {
		fmt.Fprintln(out, "score:      none")
	}
	fmt.Fprintf(out, "mean:       %s\n", formatVec(res.EndParam[:family.SampleDim()]))
	fmt.Fprintf(out, "log_scale:  %s\n", formatVec(res.EndParam[family.SampleDim():]))
	fmt.Fprintf(out, "accepted:   %d\n", res.Log.Len())
	fmt.Fprintf(out, "rejected:   %d\n", res.BinLog.Len())

	if opts.outPath != "" {
		ckpt := serialization.FromResult(res, map[string]string{
			"family": "gaussian",
			"method": cfg.Method.String(),
		})
		if err := serialization.SaveFile(opts.outPath, ckpt); err != nil {
			return err
		}
		fmt.Fprintf(out, "checkpoint: %s\n", opts.outPath)
	}
	return nil
}
