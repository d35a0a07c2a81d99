package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nooga/cadence/pkg/builtins"
	"github.com/nooga/cadence/pkg/driver"
	"github.com/nooga/cadence/pkg/errors"
	"github.com/nooga/cadence/pkg/value"
)

// Exit codes, following sysexits.h.
const (
	ExitSuccess  = 0
	ExitUsage    = 64
	ExitDataErr  = 65
	ExitSoftware = 70
)

// ExitError carries the process exit code for a failed run.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

type options struct {
	eval       string
	configPath string
	trace      bool
	verbose    bool
	print      bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the CLI with args and returns the exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCommand(stdout, stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if stderrors.As(err, &exitErr) {
		return exitErr.Code
	}
	// Anything cobra rejects before RunE is a usage error.
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return ExitUsage
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "cadence [script.js] [args...]",
		Short: "Run a script and drain its job queues",
		Long: `cadence evaluates a script, then runs promise and script jobs until
every queue is empty.

Example:
  cadence hello.js
  cadence -e 'Promise.resolve(1).then(console.log)'
  cadence --config cadence.yml --trace app.js
  cadence batch -j 4 a.js b.js c.js`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScript(cmd.Context(), opts, args, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	// Flags after the script name belong to the script.
	cmd.Flags().SetInterspersed(false)

	cmd.Flags().StringVarP(&opts.eval, "eval", "e", "", "evaluate source text instead of a file")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	cmd.Flags().BoolVar(&opts.trace, "trace", false, "log each job as it runs")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	cmd.Flags().BoolVarP(&opts.print, "print", "p", false, "print the script's completion value")

	cmd.AddCommand(newBatchCommand(stdout, stderr))
	return cmd
}

func newBatchCommand(stdout, stderr io.Writer) *cobra.Command {
	var (
		configPath string
		workers    int
		verbose    bool
	)
	cmd := &cobra.Command{
		Use:   "batch script.js...",
		Short: "Run independent scripts in parallel, one engine each",
		Long: `batch runs every script in its own engine on a pool of workers. Output
is printed per script in argument order once all scripts finish.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := driver.DefaultConfig()
			if configPath != "" {
				loaded, err := driver.LoadConfig(configPath)
				if err != nil {
					return usageError(stderr, err.Error())
				}
				cfg = loaded
			}
			if verbose {
				cfg.LogLevel = "debug"
			}
			level, _ := cfg.Level()
			logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

			results, err := driver.RunBatch(cmd.Context(), cfg, args, workers, logger)
			if err != nil {
				return report(stderr, err)
			}
			var failed error
			for _, res := range results {
				fmt.Fprintf(stdout, "== %s\n", res.Path)
				stdout.Write(res.Stdout)
				stderr.Write(res.Stderr)
				if res.Err != nil {
					if rerr := report(stderr, res.Err); failed == nil {
						failed = rerr
					}
					continue
				}
				if res.Result.ExitCode != 0 && failed == nil {
					failed = &ExitError{Code: res.Result.ExitCode, Err: fmt.Errorf("%s: exit code %d", res.Path, res.Result.ExitCode)}
				}
			}
			return failed
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config file")
	cmd.Flags().IntVarP(&workers, "jobs", "j", 0, "number of workers (default: one per CPU)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	return cmd
}

func runScript(ctx context.Context, opts *options, args []string, stdout, stderr io.Writer) error {
	if opts.eval == "" && len(args) == 0 {
		return usageError(stderr, "expected a script file or -e source")
	}

	cfg := driver.DefaultConfig()
	if opts.configPath != "" {
		loaded, err := driver.LoadConfig(opts.configPath)
		if err != nil {
			return usageError(stderr, err.Error())
		}
		cfg = loaded
	}
	if opts.trace {
		cfg.TraceJobs = true
		if lvl, _ := cfg.Level(); lvl > slog.LevelInfo {
			cfg.LogLevel = "info"
		}
	}
	if opts.verbose {
		cfg.LogLevel = "debug"
	}

	argv := append([]string{"cadence"}, args...)
	engine, err := driver.New(cfg,
		driver.WithStdout(stdout),
		driver.WithStderr(stderr),
		driver.WithArgs(argv),
	)
	if err != nil {
		return usageError(stderr, err.Error())
	}
	defer engine.Close()

	var res *driver.Result
	if opts.eval != "" {
		res, err = engine.RunString(ctx, opts.eval)
	} else {
		res, err = engine.RunFile(ctx, args[0])
	}
	if err != nil {
		return report(stderr, err)
	}
	if opts.print && res.Value != nil && !value.IsUndefined(res.Value) {
		fmt.Fprintln(stdout, builtins.Inspect(res.Value))
	}
	if res.ExitCode != 0 {
		return &ExitError{Code: res.ExitCode, Err: fmt.Errorf("exit code %d", res.ExitCode)}
	}
	return nil
}

func usageError(stderr io.Writer, msg string) error {
	fmt.Fprintf(stderr, "cadence: %s\n", msg)
	return &ExitError{Code: ExitUsage, Err: stderrors.New(msg)}
}

// report prints err and maps it to an exit code. Syntax errors are bad
// input; uncaught exceptions and engine failures are software errors.
func report(stderr io.Writer, err error) error {
	var se *errors.SyntaxError
	if stderrors.As(err, &se) {
		errors.DisplayErrors(stderr, []errors.CadenceError{se})
		return &ExitError{Code: ExitDataErr, Err: err}
	}
	if stderrors.Is(err, os.ErrNotExist) {
		return usageError(stderr, err.Error())
	}
	var ue *errors.UncaughtError
	if stderrors.As(err, &ue) {
		fmt.Fprintln(stderr, ue.Error())
		return &ExitError{Code: ExitSoftware, Err: err}
	}
	fmt.Fprintf(stderr, "cadence: %v\n", err)
	return &ExitError{Code: ExitSoftware, Err: err}
}
