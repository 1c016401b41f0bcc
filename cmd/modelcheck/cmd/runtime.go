package cmd

import (
	"fmt"

	"github.com/MeKo-Tech/modelcheck/internal/ortcheck"
	"github.com/spf13/cobra"
)

func newRuntimeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "runtime",
		Short: "Test the ONNX Runtime setup used by --runtime",
		Long: `Locate the ONNX Runtime shared library and initialize it, the same way
the --runtime check does before loading the first model.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, "Testing ONNX Runtime setup...")

			prober := ortcheck.New(a.cfg.Runtime.LibraryPath, a.logger)
			defer a.closeProber(prober)
			lib, err := prober.Init()
			if err != nil {
				return fmt.Errorf("ONNX Runtime test failed: %w", err)
			}
			_, _ = fmt.Fprintf(out, "Library: %s\n", lib)
			_, _ = fmt.Fprintln(out, "ONNX Runtime is ready for use.")
			return nil
		},
	}
}
