package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rbright/drai/internal/audio"
	"github.com/rbright/drai/internal/doctor"
	"github.com/rbright/drai/internal/fsm"
	"github.com/rbright/drai/internal/ipc"
	"github.com/rbright/drai/internal/render"
	"github.com/rbright/drai/internal/version"
	"github.com/spf13/cobra"
)

// forwardTimeout covers a stop that finalizes capture and dispatches the
// indicator before answering.
const forwardTimeout = 2 * time.Second

var errNoSession = errors.New("no active drai session")

func (r Runner) newToggleCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle",
		Short: "Start recording, or stop and analyze when already recording",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.commandToggle(cmd.Context(), flags)
		},
	}
}

func (r Runner) newForwardCommand(flags *globalFlags, command string, short string) *cobra.Command {
	return &cobra.Command{
		Use:   command,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := r.bootstrap(flags, command)
			if err != nil {
				return err
			}
			defer e.close()
			return r.forwardOrFail(cmd.Context(), command)
		},
	}
}

func (r Runner) newStatusCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the owner session state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := r.bootstrap(flags, "status")
			if err != nil {
				return err
			}
			defer e.close()
			return r.commandStatus(cmd.Context())
		},
	}
}

func (r Runner) newTUICommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive consultation review screen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.commandTUI(cmd.Context(), flags)
		},
	}
}

func (r Runner) newDevicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List audio capture devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.commandDevices(cmd.Context())
		},
	}
}

func (r Runner) newDoctorCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check config, credentials, tools, audio, and Gemini reachability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := r.bootstrap(flags, "doctor")
			if err != nil {
				return err
			}
			defer e.close()

			deps := r.Deps.withDefaults()
			cfg := e.loaded.Config
			report := doctor.Run(cmd.Context(), e.loaded, deps.Prober(cfg, e.logger), deps.SelectDevice)
			fmt.Fprintln(r.Stdout, report.String())
			if report.OK() {
				return nil
			}
			return &exitError{code: exitFailure}
		},
	}
}

func (r Runner) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			fmt.Fprintln(r.Stdout, version.String())
		},
	}
}

func (r Runner) commandDevices(ctx context.Context) error {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		return failure(err)
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return &exitError{code: exitFailure}
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		availability := "yes"
		if !device.Available {
			availability = "no"
		}
		muted := "no"
		if device.Muted {
			muted = "yes"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			availability,
			muted,
		)
	}
	return nil
}

func (r Runner) commandStatus(ctx context.Context) error {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, fsm.StateIdle)
		return nil
	}

	resp, err := ipc.Forward(ctx, socketPath, ipc.CommandStatus, forwardTimeout)
	if errors.Is(err, ipc.ErrNoOwner) {
		fmt.Fprintln(r.Stdout, fsm.StateIdle)
		return nil
	}
	if err != nil {
		return failure(err)
	}

	state := resp.State
	if state == "" {
		state = string(fsm.StateIdle)
	}
	switch {
	case state == string(fsm.StateRecording):
		fmt.Fprintf(r.Stdout, "%s %s\n", state, render.Elapsed(resp.Elapsed))
	case state == string(fsm.StateError) && resp.Message != "":
		fmt.Fprintf(r.Stdout, "%s: %s\n", state, resp.Message)
	default:
		fmt.Fprintln(r.Stdout, state)
	}
	return nil
}

func (r Runner) forwardOrFail(ctx context.Context, command string) error {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		return failure(err)
	}

	resp, err := ipc.Forward(ctx, socketPath, command, forwardTimeout)
	if errors.Is(err, ipc.ErrNoOwner) {
		return failure(errNoSession)
	}
	return r.printResponse(resp, err)
}

func (r Runner) printResponse(resp ipc.Response, err error) error {
	if err != nil {
		return failure(err)
	}
	if !resp.OK {
		return failure(errors.New(resp.Error))
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return nil
}
