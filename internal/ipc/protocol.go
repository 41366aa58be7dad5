// Package ipc is the newline-delimited JSON control channel between a drai
// owner process and short-lived CLI invocations.
package ipc

import "github.com/rbright/drai/internal/consultation"

const (
	CommandStatus = "status"
	CommandStart  = "start"
	CommandStop   = "stop"
	CommandToggle = "toggle"
	CommandReset  = "reset"
)

// Commands lists every command an owner serves.
func Commands() []string {
	return []string{CommandStatus, CommandStart, CommandStop, CommandToggle, CommandReset}
}

type Request struct {
	Command string `json:"command"`
}

type Response struct {
	OK           bool               `json:"ok"`
	State        string             `json:"state,omitempty"`
	ID           string             `json:"id,omitempty"`
	Elapsed      int                `json:"elapsed,omitempty"`
	Message      string             `json:"message,omitempty"`
	Error        string             `json:"error,omitempty"`
	Consultation *consultation.Data `json:"consultation,omitempty"`
}
