package server

import (
	"context"

	"github.com/Scusemua/go-utils/config"

	"github.com/scusemua/notebook-kernel/common/comm"
	"github.com/scusemua/notebook-kernel/common/jupyter/handler"
	"github.com/scusemua/notebook-kernel/common/jupyter/messaging"
	"github.com/scusemua/notebook-kernel/common/jupyter/types"
	"github.com/scusemua/notebook-kernel/common/metrics"
)

// Control serves the Control channel: shutdown and interrupt requests.
type Control struct {
	channel

	iopub     comm.Publisher
	handler   handler.ControlHandler
	interrupt func()
	shutdown  *messaging.ShutdownRequest
}

// NewControl creates the Control actor. interrupt is called for every interrupt_request
// before the handler sees it; the kernel uses it to wake a pending stdin wait.
func NewControl(socket *types.Socket, iopub comm.Publisher, handler handler.ControlHandler, interrupt func(), recorder metrics.Recorder) *Control {
	c := &Control{
		channel:   newChannel(socket, recorder),
		iopub:     iopub,
		handler:   handler,
		interrupt: interrupt,
	}
	config.InitLogger(&c.log, c)
	return c
}

// Serve handles Control requests until a shutdown request has been answered, ctx is done
// or the socket is closed. It returns the shutdown request, or nil if none arrived.
func (c *Control) Serve(ctx context.Context) *messaging.ShutdownRequest {
	c.serve(ctx, c.handle)
	return c.shutdown
}

func (c *Control) handle(ctx context.Context, parts [][]byte) error {
	msg, err := c.decode(parts)
	if err != nil {
		return err
	}

	switch msg.Content.(type) {
	case messaging.ShutdownRequest:
		req, _ := messaging.As[messaging.ShutdownRequest](msg)
		return c.handleShutdown(ctx, req)
	case messaging.InterruptRequest:
		req, _ := messaging.As[messaging.InterruptRequest](msg)
		return c.handleInterrupt(ctx, req)
	default:
		return c.unsupported(msg)
	}
}

func (c *Control) handleShutdown(ctx context.Context, req *messaging.JupyterMessage[messaging.ShutdownRequest]) error {
	c.log.Info("Received shutdown request (restart=%v).", req.Content.Restart)

	c.iopub.Publish(messaging.NewStatusMessage(messaging.ControlContext, req.Header, messaging.ExecutionStateBusy))
	defer c.iopub.Publish(messaging.NewStatusMessage(messaging.ControlContext, req.Header, messaging.ExecutionStateIdle))

	rep, err := c.handler.HandleShutdownRequest(ctx, req.Originator(), &req.Content)
	content := deref(rep, &err)
	if err := reply(&c.channel, req, content, err); err != nil {
		c.log.Error("Failed to reply to shutdown request: %v", err)
	}

	c.shutdown = &req.Content
	return errServeOnce
}

func (c *Control) handleInterrupt(ctx context.Context, req *messaging.JupyterMessage[messaging.InterruptRequest]) error {
	c.log.Info("Received interrupt request.")

	c.iopub.Publish(messaging.NewStatusMessage(messaging.ControlContext, req.Header, messaging.ExecutionStateBusy))
	defer c.iopub.Publish(messaging.NewStatusMessage(messaging.ControlContext, req.Header, messaging.ExecutionStateIdle))

	if c.interrupt != nil {
		c.interrupt()
	}

	rep, err := c.handler.HandleInterruptRequest(ctx, req.Originator())
	content := deref(rep, &err)
	return reply(&c.channel, req, content, err)
}
