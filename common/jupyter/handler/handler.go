// Package handler defines the contracts between the channel actors and a language backend.
package handler

//go:generate mockgen -source=handler.go -destination=mock_handler/mock_handler.go -package=mock_handler

import (
	"context"

	"github.com/scusemua/notebook-kernel/common/comm"
	"github.com/scusemua/notebook-kernel/common/jupyter/messaging"
)

// ShellHandler answers Shell requests. HandleExecuteRequest runs on the main goroutine
// when the kernel has a dispatcher; the other methods run on the Shell goroutine.
type ShellHandler interface {
	HandleInfoRequest(ctx context.Context, req *messaging.KernelInfoRequest) (*messaging.KernelInfoReply, error)
	HandleIsCompleteRequest(ctx context.Context, req *messaging.IsCompleteRequest) (*messaging.IsCompleteReply, error)

	// HandleExecuteRequest executes code. Return an *ExecuteErrorReply when the code raised an error.
	HandleExecuteRequest(ctx context.Context, originator *messaging.Originator, req *messaging.ExecuteRequest) (*messaging.ExecuteReply, error)

	HandleCompleteRequest(ctx context.Context, req *messaging.CompleteRequest) (*messaging.CompleteReply, error)
	HandleInspectRequest(ctx context.Context, req *messaging.InspectRequest) (*messaging.InspectReply, error)

	// HandleCommOpen is offered comms whose target the kernel does not handle itself.
	// It returns false when it does not know the target.
	HandleCommOpen(ctx context.Context, target string, socket *comm.Socket) (bool, error)
}

type ControlHandler interface {
	HandleShutdownRequest(ctx context.Context, originator *messaging.Originator, req *messaging.ShutdownRequest) (*messaging.ShutdownReply, error)
	HandleInterruptRequest(ctx context.Context, originator *messaging.Originator) (*messaging.InterruptReply, error)
}

// ServerStartMessage is the data of a comm_open for an LSP or DAP comm.
type ServerStartMessage struct {
	IPAddress string `json:"ip_address"`
}

// ServerStartedMessage reports the port a server is listening on.
type ServerStartedMessage struct {
	Port int `json:"port"`
}

// ServerHandler starts a language or debug adapter server for a comm. It sends on started
// once the server listens, and may send events to the front end on outgoing.
type ServerHandler interface {
	Start(ctx context.Context, msg ServerStartMessage, started chan<- ServerStartedMessage, outgoing chan<- comm.Msg) error
}

// InputRequester prompts the front end that sent originator for a line of input.
type InputRequester interface {
	RequestInput(ctx context.Context, originator *messaging.Originator, req *messaging.InputRequest) (*messaging.InputReply, error)
}
