package server

import (
	"context"

	"github.com/Scusemua/go-utils/config"

	"github.com/scusemua/notebook-kernel/common/jupyter/types"
	"github.com/scusemua/notebook-kernel/common/metrics"
)

// Heartbeat echoes every message it receives. The first echo waits until the kernel is
// initialized, so a front end's first successful heartbeat means the kernel is ready.
type Heartbeat struct {
	channel

	initialized <-chan struct{}
	ready       bool
}

func NewHeartbeat(socket *types.Socket, initialized <-chan struct{}, recorder metrics.Recorder) *Heartbeat {
	h := &Heartbeat{
		channel:     newChannel(socket, recorder),
		initialized: initialized,
	}
	config.InitLogger(&h.log, h)
	return h
}

func (h *Heartbeat) Serve(ctx context.Context) {
	h.serve(ctx, h.handle)
}

func (h *Heartbeat) handle(ctx context.Context, parts [][]byte) error {
	if !h.ready {
		select {
		case <-h.initialized:
			h.ready = true
			h.log.Debug("Kernel initialized; answering heartbeats.")
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return h.socket.SendMultipart(parts)
}
