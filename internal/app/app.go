// Package app wires the drai command tree to config, logging, and the
// consultation controller.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/rbright/drai/internal/config"
	"github.com/rbright/drai/internal/logging"
	"github.com/spf13/cobra"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// Runner executes one CLI invocation.
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	// Logger overrides the JSONL runtime logger.
	Logger *slog.Logger
	// Deps overrides owner collaborators; zero fields use live implementations.
	Deps Deps
}

// exitError carries a runtime failure out of a cobra RunE. A nil err means
// the command already reported the failure.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func failure(err error) error {
	return &exitError{code: exitFailure, err: err}
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

// Execute runs args and maps the outcome to a process exit code.
func (r Runner) Execute(ctx context.Context, args []string) int {
	root := r.newRootCommand()
	root.SetArgs(args)
	root.SetOut(r.Stdout)
	root.SetErr(r.Stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}

	var exitErr *exitError
	if errors.As(err, &exitErr) {
		if exitErr.err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", exitErr.err)
		}
		return exitErr.code
	}

	fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
	fmt.Fprint(r.Stderr, root.UsageString())
	return exitUsage
}

type globalFlags struct {
	configPath string
	debug      bool
}

func (r Runner) newRootCommand() *cobra.Command {
	flags := &globalFlags{}
	cmd := &cobra.Command{
		Use:   "drai",
		Short: "drai - record a consultation and draft a SOAP note",
		Long: `drai records a doctor/patient consultation, sends it to Gemini, and
shows the speaker-labelled transcript, a SOAP note, and consistency flags
for review before the note is copied to the clipboard.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file path")
	cmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "enable debug logging")

	cmd.AddCommand(
		r.newToggleCommand(flags),
		r.newForwardCommand(flags, "stop", "Stop recording and analyze the consultation"),
		r.newForwardCommand(flags, "reset", "Clear a reviewed or failed consultation"),
		r.newStatusCommand(flags),
		r.newTUICommand(flags),
		r.newDevicesCommand(),
		r.newDoctorCommand(flags),
		r.newVersionCommand(),
	)
	return cmd
}

// env is the per-invocation runtime shared by commands that touch config.
type env struct {
	loaded config.Loaded
	logger *slog.Logger
	close  func()
}

// bootstrap opens the runtime logger and loads config, printing warnings.
func (r Runner) bootstrap(flags *globalFlags, command string) (env, error) {
	logRuntime := logging.Discard()
	if r.Logger == nil {
		opened, err := logging.New(flags.debug)
		if err != nil {
			return env{}, failure(fmt.Errorf("setup logging: %w", err))
		}
		logRuntime = opened
	}
	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}
	closeLog := func() { _ = logRuntime.Close() }

	loaded, err := config.Load(flags.configPath)
	if err != nil {
		logger.Error("load config failed", "error", err.Error())
		closeLog()
		return env{}, failure(err)
	}
	for _, w := range loaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", command,
		"config", loaded.Path,
		"log", logRuntime.Path,
	)
	return env{loaded: loaded, logger: logger, close: closeLog}, nil
}
