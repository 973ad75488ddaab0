package server

import (
	"context"

	"github.com/Scusemua/go-utils/config"

	"github.com/scusemua/notebook-kernel/common/comm"
	"github.com/scusemua/notebook-kernel/common/dispatch"
	"github.com/scusemua/notebook-kernel/common/jupyter/handler"
	"github.com/scusemua/notebook-kernel/common/jupyter/messaging"
	"github.com/scusemua/notebook-kernel/common/jupyter/types"
	"github.com/scusemua/notebook-kernel/common/metrics"
	"github.com/scusemua/notebook-kernel/common/utils"
)

// ShellOptions are the optional collaborators of the Shell actor.
type ShellOptions struct {
	// Lsp and Dap start the language and debug adapter servers behind the lsp and dap comms.
	Lsp handler.ServerHandler
	Dap handler.ServerHandler

	// Dispatcher, when set, runs execute requests on the interpreter goroutine.
	Dispatcher *dispatch.Dispatcher

	Metrics metrics.Recorder
}

// Shell serves the Shell channel. Every request is bracketed by busy and idle status
// messages on IOPub.
type Shell struct {
	channel

	iopub      comm.Publisher
	comms      *comm.Manager
	handler    handler.ShellHandler
	lsp        handler.ServerHandler
	dap        handler.ServerHandler
	dispatcher *dispatch.Dispatcher
}

func NewShell(socket *types.Socket, iopub comm.Publisher, comms *comm.Manager, shellHandler handler.ShellHandler, opts ShellOptions) *Shell {
	s := &Shell{
		channel:    newChannel(socket, opts.Metrics),
		iopub:      iopub,
		comms:      comms,
		handler:    shellHandler,
		lsp:        opts.Lsp,
		dap:        opts.Dap,
		dispatcher: opts.Dispatcher,
	}
	config.InitLogger(&s.log, s)
	return s
}

// Serve handles Shell requests until ctx is done or the socket is closed. A request in
// flight when ctx is cancelled is answered before Serve returns.
func (s *Shell) Serve(ctx context.Context) {
	s.serve(ctx, s.handle)
}

func (s *Shell) handle(ctx context.Context, parts [][]byte) error {
	msg, err := s.decode(parts)
	if err != nil {
		return err
	}

	switch msg.Content.(type) {
	case messaging.KernelInfoRequest, messaging.IsCompleteRequest, messaging.ExecuteRequest,
		messaging.CompleteRequest, messaging.InspectRequest, messaging.CommInfoRequest,
		messaging.CommOpen, messaging.CommWireMsg, messaging.CommClose:
	default:
		return s.unsupported(msg)
	}

	s.log.Debug(utils.LightBlueStyle.Render("Received shell request: %v"), msg)

	s.iopub.Publish(messaging.NewStatusMessage(messaging.ShellContext, msg.Header, messaging.ExecutionStateBusy))
	defer s.iopub.Publish(messaging.NewStatusMessage(messaging.ShellContext, msg.Header, messaging.ExecutionStateIdle))

	return s.process(ctx, msg)
}

func (s *Shell) process(ctx context.Context, msg *messaging.JupyterMessage[messaging.Content]) error {
	switch msg.Content.(type) {
	case messaging.KernelInfoRequest:
		req, _ := messaging.As[messaging.KernelInfoRequest](msg)
		return s.handleInfoRequest(ctx, req)
	case messaging.IsCompleteRequest:
		req, _ := messaging.As[messaging.IsCompleteRequest](msg)
		rep, err := s.handler.HandleIsCompleteRequest(ctx, &req.Content)
		content := deref(rep, &err)
		return reply(&s.channel, req, content, err)
	case messaging.ExecuteRequest:
		req, _ := messaging.As[messaging.ExecuteRequest](msg)
		return s.handleExecuteRequest(ctx, req)
	case messaging.CompleteRequest:
		req, _ := messaging.As[messaging.CompleteRequest](msg)
		rep, err := s.handler.HandleCompleteRequest(ctx, &req.Content)
		content := deref(rep, &err)
		return reply(&s.channel, req, content, err)
	case messaging.InspectRequest:
		req, _ := messaging.As[messaging.InspectRequest](msg)
		rep, err := s.handler.HandleInspectRequest(ctx, &req.Content)
		content := deref(rep, &err)
		return reply(&s.channel, req, content, err)
	case messaging.CommInfoRequest:
		req, _ := messaging.As[messaging.CommInfoRequest](msg)
		return s.handleCommInfoRequest(ctx, req)
	case messaging.CommOpen:
		req, _ := messaging.As[messaging.CommOpen](msg)
		return s.handleCommOpen(ctx, req)
	case messaging.CommWireMsg:
		req, _ := messaging.As[messaging.CommWireMsg](msg)
		return s.handleCommMsg(req)
	default:
		req, _ := messaging.As[messaging.CommClose](msg)
		s.comms.Send(comm.Closed{CommID: req.Content.CommID})
		return nil
	}
}

func (s *Shell) handleInfoRequest(ctx context.Context, req *messaging.JupyterMessage[messaging.KernelInfoRequest]) error {
	rep, err := s.handler.HandleInfoRequest(ctx, &req.Content)
	content := deref(rep, &err)
	if err == nil {
		if content.Status == "" {
			content.Status = messaging.StatusOk
		}
		content.ProtocolVersion = messaging.ProtocolVersion
		if content.SupportedFeatures == nil {
			content.SupportedFeatures = []string{}
		}
		if content.HelpLinks == nil {
			content.HelpLinks = []messaging.HelpLink{}
		}
	}
	return reply(&s.channel, req, content, err)
}

func (s *Shell) handleExecuteRequest(ctx context.Context, req *messaging.JupyterMessage[messaging.ExecuteRequest]) error {
	originator := req.Originator()

	type result struct {
		rep *messaging.ExecuteReply
		err error
	}
	execute := func() result {
		rep, err := s.handler.HandleExecuteRequest(ctx, originator, &req.Content)
		return result{rep: rep, err: err}
	}

	var res result
	if s.dispatcher != nil {
		var err error
		if res, err = dispatch.RunInterruptible(s.dispatcher, execute); err != nil {
			res = result{err: err}
		}
	} else {
		res = execute()
	}

	content := deref(res.rep, &res.err)
	if res.err == nil && content.Status == "" {
		content.Status = messaging.StatusOk
	}
	return reply(&s.channel, req, content, res.err)
}

func (s *Shell) handleCommInfoRequest(ctx context.Context, req *messaging.JupyterMessage[messaging.CommInfoRequest]) error {
	info, err := s.comms.Info(ctx)

	content := messaging.CommInfoReply{
		Status: messaging.StatusOk,
		Comms:  make(map[string]messaging.CommInfoTargetName, len(info.Comms)),
	}
	for _, c := range info.Comms {
		if req.Content.TargetName == "" || req.Content.TargetName == c.Name {
			content.Comms[c.ID] = messaging.CommInfoTargetName{TargetName: c.Name}
		}
	}
	return reply(&s.channel, req, content, err)
}

// handleCommMsg records the message as a pending RPC, then hands it to the comm.
func (s *Shell) handleCommMsg(req *messaging.JupyterMessage[messaging.CommWireMsg]) error {
	s.comms.Send(comm.PendingRpc{CommID: req.Content.CommID, Header: req.Header})
	s.comms.Send(comm.Message{
		CommID: req.Content.CommID,
		Msg:    comm.Rpc(req.Header.MsgID, req.Content.Data),
	})
	return nil
}

// deref returns *rep, or the zero value with *err set when the handler returned neither.
func deref[T any](rep *T, err *error) T {
	var zero T
	if rep == nil {
		if *err == nil {
			*err = errNoReply
		}
		return zero
	}
	return *rep
}
