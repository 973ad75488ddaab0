package server

import (
	"context"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/scusemua/notebook-kernel/common/comm"
	"github.com/scusemua/notebook-kernel/common/jupyter/handler"
	"github.com/scusemua/notebook-kernel/common/jupyter/messaging"
	"github.com/scusemua/notebook-kernel/common/jupyter/types"
)

const (
	// PositronCommPrefix marks comm targets known to the Positron IDE.
	PositronCommPrefix = "positron."

	LspCommTarget = "lsp"
	DapCommTarget = "dap"

	// ServerStartedMessageType is the msg_type of the data message sent on a server comm once the server listens.
	ServerStartedMessageType = "server_started"
)

type serverStarted struct {
	MsgType string                       `json:"msg_type"`
	Content handler.ServerStartedMessage `json:"content"`
}

// serverHandlerFor returns the server handler behind target, if target names a server comm.
func (s *Shell) serverHandlerFor(target string) (handler.ServerHandler, bool) {
	switch strings.TrimPrefix(target, PositronCommPrefix) {
	case LspCommTarget:
		return s.lsp, true
	case DapCommTarget:
		return s.dap, true
	default:
		return nil, false
	}
}

// handleCommOpen opens a comm requested by the front end. Server comms start their
// server; other targets are offered to the shell handler.
func (s *Shell) handleCommOpen(ctx context.Context, req *messaging.JupyterMessage[messaging.CommOpen]) error {
	target := req.Content.TargetName
	socket := comm.NewSocket(comm.FrontEnd, req.Content.CommID, target)

	var (
		opened  bool
		started <-chan handler.ServerStartedMessage
		failed  <-chan error
		err     error
	)
	if server, ok := s.serverHandlerFor(target); ok {
		started, failed, err = s.startServer(ctx, server, req.Content, socket)
		opened = err == nil
	} else {
		opened, err = s.handler.HandleCommOpen(ctx, target, socket)
	}

	if err != nil {
		return errors.WithMessagef(err, "could not open comm %s", target)
	}
	if !opened {
		return errors.Wrapf(types.ErrUnknownCommName, "%s", target)
	}

	s.comms.Send(comm.Opened{Socket: socket, Data: req.Content.Data})

	if started == nil {
		return nil
	}

	select {
	case msg := <-started:
		data, err := json.Marshal(serverStarted{MsgType: ServerStartedMessageType, Content: msg})
		if err != nil {
			return errors.Wrapf(types.ErrCannotSerialize, "server_started: %v", err)
		}
		s.log.Debug("Server behind comm %s is listening on port %d.", socket.ID, msg.Port)
		socket.Send(comm.Data(data))
	case err := <-failed:
		return errors.WithMessagef(err, "server behind comm %s failed to start", target)
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// startServer starts handler in its own goroutine. The returned channels report the
// listening port or a failure to start.
func (s *Shell) startServer(ctx context.Context, server handler.ServerHandler, content messaging.CommOpen, socket *comm.Socket) (<-chan handler.ServerStartedMessage, <-chan error, error) {
	if server == nil {
		s.log.Error("Front end attempted to start %s, but no handler was provided by the kernel.", content.TargetName)
		return nil, nil, errors.Wrapf(types.ErrUnknownCommName, "%s", content.TargetName)
	}

	var msg handler.ServerStartMessage
	if err := json.Unmarshal(content.Data, &msg); err != nil {
		return nil, nil, errors.Wrapf(types.ErrInvalidCommMessage, "%s: %s: %v", content.TargetName, content.Data, err)
	}

	started := make(chan handler.ServerStartedMessage, 1)
	failed := make(chan error, 1)
	go func() {
		if err := server.Start(ctx, msg, started, socket.Outgoing); err != nil {
			s.log.Error("Server for comm %s exited with error: %v", socket.ID, err)
			failed <- err
		}
	}()
	return started, failed, nil
}
