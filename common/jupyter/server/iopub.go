package server

import (
	"sync"

	"github.com/Scusemua/go-utils/config"
	"github.com/pkg/errors"

	"github.com/scusemua/notebook-kernel/common/jupyter/messaging"
	"github.com/scusemua/notebook-kernel/common/jupyter/types"
	"github.com/scusemua/notebook-kernel/common/metrics"
)

// DefaultIOPubQueueSize is the number of messages that may wait for the IOPub socket.
const DefaultIOPubQueueSize = 1024

// IOPub owns the IOPub socket. Other actors queue messages with Publish; Run sends them
// in order, attaching the parent header of the request that caused them.
type IOPub struct {
	channel

	queue chan messaging.IOPubMessage
	mu    sync.RWMutex
	// closed is guarded by mu; Publish holds the read lock while queueing.
	closed bool
	// closing is closed before Close takes mu, releasing publishers blocked on a full queue.
	closing     chan struct{}
	closingOnce sync.Once
	done        chan struct{}

	// Only touched by Run.
	shellContext   *messaging.MessageHeader
	controlContext *messaging.MessageHeader
}

func NewIOPub(socket *types.Socket, queueSize int, recorder metrics.Recorder) *IOPub {
	if queueSize <= 0 {
		queueSize = DefaultIOPubQueueSize
	}
	p := &IOPub{
		channel: newChannel(socket, recorder),
		queue:   make(chan messaging.IOPubMessage, queueSize),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}
	config.InitLogger(&p.log, p)
	return p
}

// Publish queues msg, waiting while the queue is full. It returns false once the IOPub
// channel is closing.
func (p *IOPub) Publish(msg messaging.IOPubMessage) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.log.Warn("IOPub is closed; dropping %v message.", msg.Kind)
		p.metrics.MessageDropped(p.name(), "closed")
		return false
	}

	select {
	case p.queue <- msg:
		return true
	case <-p.closing:
		p.log.Warn("IOPub closed while the queue was full; dropping %v message.", msg.Kind)
		p.metrics.MessageDropped(p.name(), "closed")
		return false
	}
}

// Run announces the kernel as starting, then sends queued messages until Close. Messages
// queued before Close are sent before Run returns.
func (p *IOPub) Run() {
	defer close(p.done)

	if err := p.sendWithParent(messaging.KernelStatus{ExecutionState: messaging.ExecutionStateStarting}, nil); err != nil {
		p.log.Warn("Could not emit kernel's state: %v", err)
	}

	for msg := range p.queue {
		if err := p.process(msg); err != nil {
			p.log.Warn("Error delivering iopub message: %v", err)
		}
	}
	p.log.Debug("IOPub queue drained.")
}

// Close stops accepting messages. Run returns after the queue is drained.
func (p *IOPub) Close() {
	p.closingOnce.Do(func() { close(p.closing) })

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	close(p.queue)
}

// Done is closed when Run returns.
func (p *IOPub) Done() <-chan struct{} {
	return p.done
}

func (p *IOPub) process(msg messaging.IOPubMessage) error {
	switch msg.Kind {
	case messaging.IOPubStatus:
		p.updateContext(msg.Channel, msg.Parent, msg.State)
		return p.sendWithParent(messaging.KernelStatus{ExecutionState: msg.State}, msg.Parent)
	case messaging.IOPubOutput:
		return p.sendWithParent(msg.Content, p.shellContext)
	case messaging.IOPubComm:
		return p.sendWithParent(msg.Content, nil)
	case messaging.IOPubCommReply:
		return p.sendWithParent(msg.Content, msg.Parent)
	case messaging.IOPubContext:
		if msg.Channel == messaging.ControlContext {
			p.controlContext = msg.Parent
		} else {
			p.shellContext = msg.Parent
		}
		return nil
	default:
		return errors.Errorf("unknown iopub message kind %d", msg.Kind)
	}
}

// updateContext tracks the request a channel is busy with. Busy sets it, Idle clears it.
func (p *IOPub) updateContext(channel messaging.IOPubContextChannel, parent *messaging.MessageHeader, state messaging.ExecutionState) {
	var context **messaging.MessageHeader
	if channel == messaging.ControlContext {
		context = &p.controlContext
	} else {
		context = &p.shellContext
	}

	switch state {
	case messaging.ExecutionStateBusy:
		*context = parent
	case messaging.ExecutionStateIdle:
		*context = nil
	}
}

func (p *IOPub) sendWithParent(content messaging.Content, parent *messaging.MessageHeader) error {
	if content == nil {
		return errors.New("iopub message has no content")
	}
	msg := messaging.Create(content, parent, p.socket.Session)
	return p.send(msg)
}
