package session

import (
	"context"
	"fmt"

	"github.com/rbright/drai/internal/ipc"
)

// Handle serves control socket commands against this controller.
func (c *Controller) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	var (
		err     error
		message string
	)
	switch req.Command {
	case ipc.CommandStatus:
		message = "status"
	case ipc.CommandStart:
		err = c.Start(ctx)
		message = "recording started"
	case ipc.CommandStop:
		err = c.Stop(ctx)
		message = "analysis started"
	case ipc.CommandToggle:
		before := c.State()
		err = c.Toggle(ctx)
		message = fmt.Sprintf("toggled from %s", before)
	case ipc.CommandReset:
		err = c.Reset()
		message = "reset"
	default:
		err = fmt.Errorf("unknown command: %s", req.Command)
	}

	snap := c.Snapshot()
	resp := ipc.Response{
		OK:           err == nil,
		State:        string(snap.State),
		ID:           snap.ID,
		Elapsed:      snap.Elapsed,
		Message:      message,
		Consultation: snap.Data,
	}
	switch {
	case err != nil:
		resp.Message = ""
		resp.Error = err.Error()
	case snap.Error != "":
		resp.Message = snap.Error
	}
	return resp
}
