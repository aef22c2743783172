package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"chordrun/internal/likelihood"
	"chordrun/internal/sampler"
)

type globalFlags struct {
	logLevel string
	logJSON  bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "chordrun",
		Short:         "Run nested sampling (PolyChord or the reference engine) on a likelihood",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", envStr("CHORDRUN_LOG_LEVEL", ""), "Log level: debug|info|warn|error (defaults CHORDRUN_LOG_LEVEL or the config file)")
	root.PersistentFlags().BoolVar(&g.logJSON, "log-json", false, "Emit JSON log lines instead of console output")

	root.AddCommand(newRunCmd(g), newEnginesCmd(), newLikelihoodsCmd())
	return root
}

func newEnginesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "engines",
		Short: "List registered engines and whether they can run in this build",
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeEngines(cmd.OutOrStdout())
		},
	}
}

func writeEngines(out io.Writer) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ENGINE\tSTATUS")
	for _, name := range sampler.Engines() {
		e, err := sampler.Lookup(name)
		if err != nil {
			return err
		}
		status := "available"
		if err := e.Available(); err != nil {
			status = "unavailable: " + err.Error()
		}
		fmt.Fprintf(tw, "%s\t%s\n", name, status)
	}
	return tw.Flush()
}

func newLikelihoodsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "likelihoods",
		Short: "List built-in likelihoods",
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tDIMS\tDESCRIPTION")
			for _, e := range likelihood.List() {
				dims := fmt.Sprintf(">=%d", e.MinDims)
				if e.MaxDims > 0 {
					dims = fmt.Sprintf("%d..%d", e.MinDims, e.MaxDims)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Name, dims, e.Description)
			}
			return tw.Flush()
		},
	}
}

// newLogger builds the process logger: console output on stderr unless JSON
// is requested.
func newLogger(level zerolog.Level, asJSON bool, out io.Writer) zerolog.Logger {
	w := out
	if !asJSON {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func envStr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
