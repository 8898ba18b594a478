// Command datachecker scans a directory tree and reports duplicate,
// wasted-space, data-quality, and security findings (spec §1). The CLI
// wiring here — cobra root command, slog text/JSON handler split, exit
// code propagation via a typed error — is grounded on the teacher's
// cmd/beam/main.go `run()` shape, generalized from a copy invocation to
// a scan invocation.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dchecker/datachecker/internal/config"
	"github.com/dchecker/datachecker/internal/engine"
	"github.com/dchecker/datachecker/internal/report"
	"github.com/dchecker/datachecker/internal/scanerr"
	"github.com/dchecker/datachecker/internal/stats"
	"golang.org/x/term"
)

var version = "dev"

func main() {
	os.Exit(run())
}

type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit code %d", e.code) }

// checkAliases lists the per-check CLI flag names; aliasToCheckName
// turns each into the check name the engine's dispatch uses (spec §6:
// "a repertoire of per-check aliases selects a single check").
var checkAliases = []string{
	"duplicates", "links", "integrity", "temporary", "confidential",
	"compressed", "duplicate-chars", "empty-files", "large-files",
	"last-access", "legacy", "magic-numbers", "no-extension",
	"json-parse", "wrong-dates", "empty-dirs", "many-items-dirs",
	"one-item-dirs", "name-size", "path-size", "unportable-chars",
}

func aliasToCheckName(alias string) string {
	out := make([]byte, 0, len(alias))
	for i := 0; i < len(alias); i++ {
		if alias[i] == '-' {
			out = append(out, '_')
			continue
		}
		out = append(out, alias[i])
	}
	return string(out)
}

// checkFlag is a custom pflag.Value recording which single-check alias
// was set, preserving the teacher's filterFlag pattern of letting a
// handful of boolean flags share one accumulation point.
type checkFlag struct {
	selected *string
	name     string
}

func (*checkFlag) String() string { return "" }
func (*checkFlag) Type() string   { return "bool" }
func (f *checkFlag) Set(val string) error {
	if val == "true" {
		*f.selected = f.name
	}
	return nil
}
func (*checkFlag) IsBoolFlag() bool { return true }

func run() int {
	var (
		showVersion bool
		verbose     bool
		quiet       bool
		logFile     string
		selected    string
	)

	rootCmd := &cobra.Command{
		Use:           "datachecker [directory]",
		Short:         "Scan a directory tree for duplicate, data-quality, and security issues",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Fprintf(os.Stdout, "datachecker %s\n", version)
				return nil
			}

			logLevel := slog.LevelWarn
			switch {
			case verbose:
				logLevel = slog.LevelDebug
			case !quiet:
				logLevel = slog.LevelInfo
			}
			handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
			var logHandler slog.Handler = handler
			if logFile != "" {
				lf, err := os.Create(logFile)
				if err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
				defer lf.Close()
				logHandler = slog.NewJSONHandler(lf, &slog.HandlerOptions{Level: slog.LevelDebug})
			}
			logger := slog.New(logHandler)
			slog.SetDefault(logger)

			cfg, cfgErr := config.Load()
			if cfgErr != nil {
				logger.Warn("failed to load config, using defaults", "error", cfgErr)
			}

			root := cfg.InputFolder
			if len(args) == 1 {
				root = args[0]
			}
			if root == "" {
				return cmd.Help()
			}

			info, statErr := os.Stat(root)
			if statErr != nil || !info.IsDir() {
				fmt.Fprintf(os.Stderr, "error: %s is not a readable directory\n", root)
				return &exitError{code: 1}
			}
			if _, err := os.ReadDir(root); err != nil {
				fmt.Fprintf(os.Stderr, "error: %s: %v\n", root, err)
				return &exitError{code: 3}
			}

			// A single-check invocation disables the cache (spec §6).
			if selected != "" {
				cfg.EnableCache = false
			}

			isTTY := term.IsTerminal(int(os.Stdout.Fd()))
			rep := report.New(os.Stdout, isTTY)

			eng, err := engine.New(root, cfg, rep, logger)
			if err != nil {
				return fmt.Errorf("initialize engine: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if runErr := eng.Run(ctx, aliasToCheckName(selected)); runErr != nil {
				if scanerr.Is(runErr, scanerr.KindAccessDenied) {
					fmt.Fprintf(os.Stderr, "error: %v\n", runErr)
					return &exitError{code: 3}
				}
				fmt.Fprintf(os.Stderr, "error: %v\n", runErr)
				return &exitError{code: 2}
			}

			if !quiet {
				fmt.Fprintln(os.Stderr, stats.FormatBytes(eng.Stats.Snapshot().BytesExamined))
			}
			return nil
		},
	}

	rootCmd.Flags().BoolVar(&showVersion, "version", false, "print version and exit")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "log warnings and errors only, and omit the closing bytes-examined line")
	rootCmd.Flags().StringVar(&logFile, "log", "", "write structured JSON log to FILE")

	for _, alias := range checkAliases {
		rootCmd.Flags().Var(&checkFlag{selected: &selected, name: alias}, alias, fmt.Sprintf("run only the %s check", alias))
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Write a default config.json into the current directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			if err := config.WriteDefault(wd); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				return &exitError{code: 2}
			}
			fmt.Fprintln(os.Stdout, "wrote config.json")
			return nil
		},
	}
	rootCmd.AddCommand(configCmd)

	rootCmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Name != "version" && f.Name != "verbose" && f.Name != "quiet" && f.Name != "log" {
			f.NoOptDefVal = "true"
		}
	})

	if err := rootCmd.Execute(); err != nil {
		if exitErr, ok := err.(*exitError); ok {
			return exitErr.code
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	return 0
}
