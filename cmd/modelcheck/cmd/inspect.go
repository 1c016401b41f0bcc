package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/MeKo-Tech/modelcheck/internal/report"
	"github.com/MeKo-Tech/modelcheck/internal/runner"
	"github.com/spf13/cobra"
)

func newInspectCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE...",
		Short: "Describe and check model files without fetching or deleting them",
		Long: `Inspect prints the header, opset imports, graph signature and operator
histogram of each file, then runs the same checks as a full run. Files are
never fetched or removed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			printer := report.New(cmd.OutOrStdout())
			options := []runner.Option{
				runner.WithValidator(a.cfg.NewChecker(a.logger)),
				runner.WithReporter(printer),
				runner.WithLogger(a.logger),
			}
			if prober := a.prober(); prober != nil {
				defer a.closeProber(prober)
				options = append(options, runner.WithProber(prober))
			}
			r := runner.New(a.cfg.RunnerOptions(), options...)

			failed := 0
			for _, path := range args {
				name := filepath.Base(path)
				m, err := r.Check(path)
				if m != nil {
					printer.Describe(name, m)
				}
				if err != nil {
					failed++
					printer.Fail(err)
					continue
				}
				printer.Pass(name)
			}
			printer.Summary(len(args), failed)
			if failed > 0 {
				return fmt.Errorf("%w: %d of %d", runner.ErrModelsFailed, failed, len(args))
			}
			return nil
		},
	}
}
