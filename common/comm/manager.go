package comm

import (
	"context"
	"sync"

	"github.com/Scusemua/go-utils/config"
	"github.com/Scusemua/go-utils/logger"
	"github.com/elliotchance/orderedmap/v2"
	"golang.org/x/exp/slices"

	"github.com/scusemua/notebook-kernel/common/jupyter/messaging"
	"github.com/scusemua/notebook-kernel/common/metrics"
	"github.com/scusemua/notebook-kernel/common/utils/hashmap"
)

const eventBufferSize = 64

// Publisher queues messages for the IOPub socket.
type Publisher interface {
	Publish(msg messaging.IOPubMessage) bool
}

type pendingRpc struct {
	commID string
	header *messaging.MessageHeader
}

type outgoing struct {
	socket *Socket
	msg    Msg
	closed bool
}

// Manager owns the open comms. It routes front end traffic to them and relays
// their output to IOPub, attaching the parent header of pending RPCs.
type Manager struct {
	log logger.Logger

	publisher Publisher
	metrics   metrics.Recorder

	events   chan Event
	outgoing chan outgoing

	mu      sync.Mutex
	comms   *orderedmap.OrderedMap[string, *Socket]
	pending *hashmap.ConcurrentMap[pendingRpc]

	done chan struct{}
}

func NewManager(publisher Publisher, recorder metrics.Recorder) *Manager {
	m := &Manager{
		publisher: publisher,
		metrics:   metrics.Or(recorder),
		events:    make(chan Event, eventBufferSize),
		outgoing:  make(chan outgoing, ChannelBufferSize),
		comms:     orderedmap.NewOrderedMap[string, *Socket](),
		pending:   hashmap.NewConcurrentMap[pendingRpc](),
		done:      make(chan struct{}),
	}
	config.InitLogger(&m.log, m)
	return m
}

// Send queues an event for the manager loop. It returns false once the manager has stopped.
func (m *Manager) Send(event Event) bool {
	select {
	case m.events <- event:
		return true
	case <-m.done:
		m.log.Warn("Comm manager has stopped; dropping %T event.", event)
		return false
	}
}

// Info lists the open comms in the order they were opened.
func (m *Manager) Info(ctx context.Context) (Info, error) {
	reply := make(chan Info, 1)
	if !m.Send(InfoRequest{Reply: reply}) {
		return m.info(), nil
	}

	select {
	case info := <-reply:
		return info, nil
	case <-m.done:
		return m.info(), nil
	case <-ctx.Done():
		return Info{}, ctx.Err()
	}
}

// Comm returns the open comm with the given id.
func (m *Manager) Comm(id string) (*Socket, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.comms.Get(id)
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.comms.Len()
}

// Run handles events and comm output until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	defer close(m.done)

	for {
		select {
		case <-ctx.Done():
			m.log.Debug("Comm manager exiting: %v", ctx.Err())
			return
		case event := <-m.events:
			m.handleEvent(ctx, event)
		case out := <-m.outgoing:
			m.handleOutgoing(out)
		}
	}
}

// Done is closed when Run returns.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

func (m *Manager) handleEvent(ctx context.Context, event Event) {
	switch ev := event.(type) {
	case Opened:
		m.open(ctx, ev)
	case PendingRpc:
		m.pending.Store(ev.Header.MsgID, pendingRpc{commID: ev.CommID, header: ev.Header})
	case Message:
		m.deliver(ev)
	case Closed:
		socket, ok := m.deregister(ev.CommID)
		if !ok {
			m.log.Warn("Received close message for unknown comm %s.", ev.CommID)
			return
		}
		if !socket.inbox.push(Close()) {
			m.log.Warn("Failed to deliver close to %v.", socket)
		}
		socket.inbox.close()
	case InfoRequest:
		ev.Reply <- m.info()
	default:
		m.log.Error("Unexpected comm event %T.", event)
	}
}

func (m *Manager) open(ctx context.Context, ev Opened) {
	socket := ev.Socket

	m.mu.Lock()
	if _, exists := m.comms.Get(socket.ID); exists {
		m.mu.Unlock()
		m.log.Warn("Comm %s is already open; ignoring second open.", socket.ID)
		return
	}
	m.comms.Set(socket.ID, socket)
	n := m.comms.Len()
	m.mu.Unlock()

	socket.advance(StateOpen)
	m.metrics.CommsOpen(n)

	if socket.Initiator == BackEnd {
		data := ev.Data
		if len(data) == 0 {
			data = []byte("{}")
		}
		m.publisher.Publish(messaging.NewCommMessage(messaging.CommOpen{
			CommID:     socket.ID,
			TargetName: socket.Name,
			Data:       data,
		}))
	}

	go socket.inbox.pump(ctx)
	go m.forward(ctx, socket)

	m.log.Debug("Comm %s(%s) opened; there are now %d open comms.", socket.Name, socket.ID, n)
}

func (m *Manager) deliver(ev Message) {
	socket, ok := m.Comm(ev.CommID)
	if !ok {
		m.log.Warn("Received message for unknown comm %s: %v", ev.CommID, ev.Msg)
		m.metrics.MessageDropped("comm", "unknown_comm")
		if ev.Msg.Kind == RpcMsg {
			m.pending.Delete(ev.Msg.ID)
		}
		return
	}

	if !socket.inbox.push(ev.Msg) {
		m.log.Warn("Dropping %v for comm %s: it is no longer accepting messages.", ev.Msg, ev.CommID)
		m.metrics.MessageDropped("comm", "closed_comm")
		if ev.Msg.Kind == RpcMsg {
			m.pending.Delete(ev.Msg.ID)
		}
	}
}

// forward moves one comm's output onto the shared outgoing channel, preserving its order.
func (m *Manager) forward(ctx context.Context, socket *Socket) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-socket.Outgoing:
			out := outgoing{socket: socket, msg: msg, closed: !ok}
			select {
			case m.outgoing <- out:
			case <-ctx.Done():
				return
			}
			if !ok || msg.Kind == CloseMsg {
				return
			}
		}
	}
}

func (m *Manager) handleOutgoing(out outgoing) {
	socket := out.socket
	if current, ok := m.Comm(socket.ID); !ok || current != socket {
		m.log.Warn("Dropping %v from closed comm %s.", out.msg, socket.ID)
		m.metrics.MessageDropped("comm", "closed_comm")
		return
	}

	if out.closed || out.msg.Kind == CloseMsg {
		m.deregister(socket.ID)
		socket.inbox.close()
		m.publisher.Publish(messaging.NewCommMessage(messaging.CommClose{CommID: socket.ID}))
		return
	}

	payload := messaging.CommWireMsg{CommID: socket.ID, Data: out.msg.Data}

	if out.msg.Kind == DataMsg {
		m.publisher.Publish(messaging.NewCommMessage(payload))
		return
	}

	rpc, ok := m.pending.LoadAndDelete(out.msg.ID)
	if !ok {
		m.log.Warn("Received RPC response %s for unknown message ID %s.", out.msg.Data, out.msg.ID)
		m.publisher.Publish(messaging.NewCommMessage(payload))
		return
	}
	m.publisher.Publish(messaging.NewCommReplyMessage(rpc.header, payload))
}

func (m *Manager) deregister(id string) (*Socket, bool) {
	m.mu.Lock()
	socket, ok := m.comms.Get(id)
	if ok {
		m.comms.Delete(id)
	}
	n := m.comms.Len()
	m.mu.Unlock()

	if !ok {
		return nil, false
	}

	socket.setState(StateClosed)
	m.metrics.CommsOpen(n)
	m.log.Debug("Comm %s(%s) closed; there are now %d open comms.", socket.Name, id, n)

	if dropped := m.dropPendingRpcs(id); len(dropped) > 0 {
		m.log.Debug("Discarded pending RPC(s) %v of closed comm %s.", dropped, id)
	}
	return socket, true
}

// dropPendingRpcs forgets the unanswered RPCs sent to comm id and returns their message ids.
func (m *Manager) dropPendingRpcs(id string) []string {
	var dropped []string
	m.pending.Range(func(msgID string, rpc pendingRpc) bool {
		if rpc.commID == id {
			dropped = append(dropped, msgID)
		}
		return true
	})
	slices.Sort(dropped)
	for _, msgID := range dropped {
		m.pending.Delete(msgID)
	}
	return dropped
}

func (m *Manager) info() Info {
	m.mu.Lock()
	defer m.mu.Unlock()

	info := Info{
		Comms:       make([]CommInfo, 0, m.comms.Len()),
		PendingRpcs: m.pending.Len(),
	}
	for el := m.comms.Front(); el != nil; el = el.Next() {
		info.Comms = append(info.Comms, CommInfo{ID: el.Key, Name: el.Value.Name})
	}
	return info
}

// CloseAll closes every open comm and announces each closure on IOPub. Called at shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sockets := make([]*Socket, 0, m.comms.Len())
	for el := m.comms.Front(); el != nil; el = el.Next() {
		sockets = append(sockets, el.Value)
	}
	m.mu.Unlock()

	for _, socket := range sockets {
		if _, ok := m.deregister(socket.ID); !ok {
			continue
		}
		socket.inbox.push(Close())
		socket.inbox.close()
		m.publisher.Publish(messaging.NewCommMessage(messaging.CommClose{CommID: socket.ID}))
	}

	if cleared := m.pending.Clear(); cleared > 0 {
		m.log.Debug("Discarded %d pending RPC(s) at shutdown.", cleared)
	}
}
