package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/cockroachdb/errors"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/sadopc/toydb/internal/app"
	"github.com/sadopc/toydb/internal/config"
	"github.com/sadopc/toydb/internal/history"
	"github.com/sadopc/toydb/internal/runner"
	"github.com/sadopc/toydb/internal/session"
	"github.com/sadopc/toydb/internal/store"
	"github.com/sadopc/toydb/internal/theme"
	"github.com/sadopc/toydb/internal/ui/results"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, runner.ErrFailed) {
			fmt.Fprintln(os.Stderr, results.RenderError(err, theme.Get("plain")))
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags globalFlags

	rootCmd := &cobra.Command{
		Use:   "toydb",
		Short: "A catalog-only SQL database",
		Long: `toydb keeps a catalog of databases, tables, columns and views and
answers DDL statements against it. The catalog lives in SQLite,
PostgreSQL or MySQL.

Examples:
  toydb                                        # Interactive prompt
  echo "CREATE DATABASE shop" | toydb          # Statements from stdin
  toydb exec "USE shop" "SHOW TABLES"          # One-off statements
  toydb -a postgres --dsn postgres://u:p@host/catalog`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			interactive := isTerminal(os.Stdin) && isTerminal(os.Stdout)

			e, err := openEnv(ctx, flags, interactive)
			if err != nil {
				return err
			}
			defer e.Close()

			if !interactive {
				write := outcomeWriter(cmd.OutOrStdout(), cmd.ErrOrStderr(), results.FormatTSV, e.cfg.Theme)
				return e.runner.Run(ctx, cmd.InOrStdin(), write, false)
			}

			model := app.New(e.cfg, e.runner, app.WithHistory(e.history), app.WithLogger(e.log))
			if _, err := tea.NewProgram(model).Run(); err != nil {
				return errors.Wrap(err, "run prompt")
			}
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.config, "config", "c", "", "Config file path")
	pf.StringVarP(&flags.dialect, "dialect", "a", "", "Catalog store dialect ("+strings.Join(store.Dialects(), ", ")+")")
	pf.StringVar(&flags.dsn, "dsn", "", "Catalog store DSN")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(
		newExecCmd(&flags),
		newInitCmd(&flags),
		newHistoryCmd(&flags),
		newVersionCmd(),
	)
	return rootCmd
}

func newExecCmd(flags *globalFlags) *cobra.Command {
	var (
		file      string
		keepGoing bool
		format    string
	)
	cmd := &cobra.Command{
		Use:   "exec [statement...]",
		Short: "Run statements without the interactive prompt",
		Long: `Run statements given as arguments, read from a file with -f, or read
from stdin when neither is given. Each argument or input line may hold
several statements separated by ';'.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := results.ParseFormat(format)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			e, err := openEnv(ctx, *flags, false)
			if err != nil {
				return err
			}
			defer e.Close()

			write := outcomeWriter(cmd.OutOrStdout(), cmd.ErrOrStderr(), f, e.cfg.Theme)
			var in io.Reader
			switch {
			case len(args) > 0 && file != "":
				fh, err := os.Open(file)
				if err != nil {
					return errors.Wrap(err, "open statements file")
				}
				defer fh.Close()
				in = io.MultiReader(strings.NewReader(strings.Join(args, "\n")+"\n"), fh)
			case len(args) > 0:
				in = strings.NewReader(strings.Join(args, "\n"))
			case file != "":
				fh, err := os.Open(file)
				if err != nil {
					return errors.Wrap(err, "open statements file")
				}
				defer fh.Close()
				in = fh
			default:
				in = cmd.InOrStdin()
			}
			return e.runner.Run(ctx, in, write, keepGoing)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read statements from file")
	cmd.Flags().BoolVar(&keepGoing, "continue", false, "Keep going after a failing line")
	cmd.Flags().StringVar(&format, "format", string(results.FormatTSV), "Output format (tsv, table, csv, json)")
	return cmd
}

func newInitCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the catalog tables if they do not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), *flags, false)
			if err != nil {
				return err
			}
			defer e.Close()
			if err := e.store.Ping(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "catalog ready (%s)\n", e.store.Dialect())
			return nil
		},
	}
}

func newHistoryCmd(flags *globalFlags) *cobra.Command {
	var (
		limit    int
		clearAll bool
		format   string
	)
	cmd := &cobra.Command{
		Use:   "history [pattern]",
		Short: "Show or clear the statement history",
		Long: `Show the most recent statement lines, optionally only those containing
pattern. A pattern holding % or _ is used as a SQL LIKE pattern.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := results.ParseFormat(format)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(*flags)
			if err != nil {
				return err
			}
			dir, err := config.ConfigDir()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			h, err := history.OpenDir(ctx, dir)
			if err != nil {
				return err
			}
			defer h.Close()

			if clearAll {
				if err := h.Clear(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "history cleared")
				return nil
			}

			var entries []history.Entry
			if len(args) == 1 {
				entries, err = h.Search(ctx, likePattern(args[0]), limit)
			} else {
				entries, err = h.Recent(ctx, limit)
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return results.Write(out, f, historyResult(entries), outputTheme(out, cfg.Theme))
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "Delete all history entries")
	cmd.Flags().StringVar(&format, "format", string(results.FormatTable), "Output format (tsv, table, csv, json)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "toydb %s (commit: %s, built: %s)\n", version, commit, date)
			fmt.Fprintln(out, "\nStore dialects:")
			for _, name := range store.Dialects() {
				fmt.Fprintf(out, "  - %s\n", name)
			}
		},
	}
}

// outcomeWriter prints results to out and failures with their hints to
// errOut.
func outcomeWriter(out, errOut io.Writer, f results.Format, themeName string) func([]runner.Outcome) error {
	th, errTh := outputTheme(out, themeName), outputTheme(errOut, themeName)
	return func(outcomes []runner.Outcome) error {
		for _, o := range outcomes {
			if o.Err != nil {
				if _, err := fmt.Fprintln(errOut, results.RenderError(o.Err, errTh)); err != nil {
					return err
				}
				continue
			}
			if err := results.Write(out, f, o.Result, th); err != nil {
				return err
			}
		}
		return nil
	}
}

// historyResult lays history entries out as a result table.
func historyResult(entries []history.Entry) *session.Result {
	res := &session.Result{Columns: []string{"executed_at", "database", "ms", "status", "statement"}}
	for _, e := range entries {
		status := "ok"
		if e.IsError {
			status = "error"
		}
		res.Rows = append(res.Rows, []string{
			e.ExecutedAt.Local().Format("2006-01-02 15:04:05"),
			e.DatabaseName,
			strconv.FormatInt(e.DurationMS, 10),
			status,
			e.Statement,
		})
	}
	return res
}

// likePattern turns a plain search term into a substring match. Terms that
// already hold LIKE wildcards are used as given.
func likePattern(term string) string {
	if strings.ContainsAny(term, "%_") {
		return term
	}
	return "%" + term + "%"
}

// outputTheme styles output only when w is a terminal.
func outputTheme(w io.Writer, name string) *theme.Theme {
	if isTerminal(w) {
		return theme.Get(name)
	}
	return theme.Get("plain")
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
