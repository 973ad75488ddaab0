package comm

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

type Initiator int

const (
	FrontEnd Initiator = iota
	BackEnd
)

func (i Initiator) String() string {
	return [...]string{"frontend", "backend"}[i]
}

type State int32

const (
	StateOpening State = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	return [...]string{"opening", "open", "closing", "closed"}[s]
}

// ChannelBufferSize is the capacity of a comm's incoming and outgoing channels.
const ChannelBufferSize = 128

// Socket is one end of a comm. The kernel delivers front end traffic on Incoming;
// the comm implementation writes to Outgoing and closes it when it is done.
type Socket struct {
	ID        string
	Name      string
	Initiator Initiator

	Incoming chan Msg
	Outgoing chan Msg

	inbox *inbox
	state int32
}

// NewSocket creates a comm in the Opening state. An empty id gets a fresh UUID.
func NewSocket(initiator Initiator, id string, name string) *Socket {
	if id == "" {
		id = uuid.New().String()
	}
	incoming := make(chan Msg, ChannelBufferSize)
	return &Socket{
		ID:        id,
		Name:      name,
		Initiator: initiator,
		Incoming:  incoming,
		Outgoing:  make(chan Msg, ChannelBufferSize),
		inbox:     newInbox(incoming),
	}
}

func (s *Socket) State() State {
	return State(atomic.LoadInt32(&s.state))
}

func (s *Socket) setState(state State) {
	atomic.StoreInt32(&s.state, int32(state))
}

// advance moves the comm forward to state. The state never moves backwards.
func (s *Socket) advance(state State) bool {
	for {
		current := atomic.LoadInt32(&s.state)
		if State(current) >= state {
			return false
		}
		if atomic.CompareAndSwapInt32(&s.state, current, int32(state)) {
			return true
		}
	}
}

// Send queues msg for the front end.
func (s *Socket) Send(msg Msg) {
	if msg.Kind == CloseMsg {
		s.advance(StateClosing)
	}
	s.Outgoing <- msg
}

func (s *Socket) String() string {
	return fmt.Sprintf("comm %s(%s, %s, %s)", s.Name, s.ID, s.Initiator, s.State())
}
