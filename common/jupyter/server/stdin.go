package server

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/Scusemua/go-utils/config"
	"github.com/pkg/errors"

	"github.com/scusemua/notebook-kernel/common/comm"
	"github.com/scusemua/notebook-kernel/common/jupyter/messaging"
	"github.com/scusemua/notebook-kernel/common/jupyter/types"
	"github.com/scusemua/notebook-kernel/common/metrics"
)

// Stdin serves input requests from the language runtime. One request is outstanding at a time.
type Stdin struct {
	channel

	iopub comm.Publisher

	mu         sync.Mutex
	waiting    int32
	replies    chan *messaging.JupyterMessage[messaging.InputReply]
	interrupts chan struct{}
}

func NewStdin(socket *types.Socket, iopub comm.Publisher, recorder metrics.Recorder) *Stdin {
	s := &Stdin{
		channel:    newChannel(socket, recorder),
		iopub:      iopub,
		replies:    make(chan *messaging.JupyterMessage[messaging.InputReply], 1),
		interrupts: make(chan struct{}, 1),
	}
	config.InitLogger(&s.log, s)
	return s
}

// Serve reads input replies until ctx is done or the socket is closed.
func (s *Stdin) Serve(ctx context.Context) {
	s.serve(ctx, s.handle)
}

func (s *Stdin) handle(_ context.Context, parts [][]byte) error {
	msg, err := s.decode(parts)
	if err != nil {
		return err
	}

	rep, ok := messaging.As[messaging.InputReply](msg)
	if !ok {
		return s.unsupported(msg)
	}

	if atomic.LoadInt32(&s.waiting) == 0 {
		s.log.Warn("Received input reply %v, but no input request is pending.", rep)
		s.metrics.MessageDropped(s.name(), "unexpected_reply")
		return nil
	}

	select {
	case s.replies <- rep:
	default:
		s.log.Warn("Dropping duplicate input reply %v.", rep)
		s.metrics.MessageDropped(s.name(), "unexpected_reply")
	}
	return nil
}

// Interrupt wakes a pending RequestInput with ErrInputInterrupted. It never blocks.
func (s *Stdin) Interrupt() {
	select {
	case s.interrupts <- struct{}{}:
	default:
	}
}

// RequestInput asks the front end that sent originator for input and waits for the reply,
// an interrupt or ctx. Once input arrives, IOPub output is parented by originator again.
func (s *Stdin) RequestInput(ctx context.Context, originator *messaging.Originator, req *messaging.InputRequest) (*messaging.InputReply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.discardStale()

	atomic.StoreInt32(&s.waiting, 1)
	defer atomic.StoreInt32(&s.waiting, 0)

	msg := messaging.CreateWithIdentity(originator, *req, s.socket.Session)
	if err := s.send(messaging.Erase(msg)); err != nil {
		return nil, errors.WithMessage(err, "could not send input request")
	}
	s.log.Debug("Sent input request %v to front end; waiting for input reply.", msg)

	select {
	case rep := <-s.replies:
		if originator != nil {
			s.iopub.Publish(messaging.NewContextMessage(messaging.ShellContext, originator.Header))
		}
		return &rep.Content, nil
	case <-s.interrupts:
		s.log.Debug("Input request %v was interrupted.", msg)
		return nil, types.ErrInputInterrupted
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// discardStale drops interrupts and replies that arrived while nothing was waiting.
func (s *Stdin) discardStale() {
	for {
		select {
		case <-s.interrupts:
		case rep := <-s.replies:
			s.log.Warn("Discarding stale input reply %v.", rep)
		default:
			return
		}
	}
}
