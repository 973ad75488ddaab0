package types

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/go-zeromq/zmq4"
	"github.com/pkg/errors"
)

const (
	HBMessage MessageType = iota
	ControlMessage
	ShellMessage
	StdinMessage
	IOMessage
	RegistrationMessage
)

// MessageType identifies the channel a socket serves.
type MessageType int

func (t MessageType) String() string {
	return [...]string{"heartbeat", "control", "shell", "stdin", "iopub", "registration"}[t]
}

const (
	Router SocketType = iota
	Dealer
	Pub
	XPub
	Sub
	Rep
	Req
	Pair
)

type SocketType int

func (t SocketType) String() string {
	return [...]string{"ROUTER", "DEALER", "PUB", "XPUB", "SUB", "REP", "REQ", "PAIR"}[t]
}

// Binds reports whether sockets of this type listen rather than dial.
func (t SocketType) Binds() bool {
	switch t {
	case Router, Pub, XPub, Rep:
		return true
	default:
		return false
	}
}

// Socket wraps a ZeroMQ socket with the session used to sign its messages.
// Reads and writes are serialized independently.
type Socket struct {
	Name     string
	Type     MessageType
	Kind     SocketType
	Endpoint string
	Session  *Session

	socket zmq4.Socket
	port   int
	recvMu sync.Mutex
	sendMu sync.Mutex
	closed int32
}

// NewSocket creates a socket of the given kind and binds or connects it to endpoint.
func NewSocket(ctx context.Context, session *Session, name string, typ MessageType, kind SocketType, identity []byte, endpoint string) (*Socket, error) {
	if !kind.Binds() && kind != Dealer && kind != Sub && kind != Req {
		return nil, errors.Wrapf(ErrUnsupportedSocketType, "%s socket %s", kind, name)
	}
	s, err := newSocket(ctx, session, name, typ, kind, identity)
	if err != nil {
		return nil, err
	}
	if err := s.open(endpoint, kind.Binds()); err != nil {
		return nil, err
	}
	return s, nil
}

// NewPairSocket creates an in-process PAIR socket. One end binds, the other connects.
func NewPairSocket(ctx context.Context, session *Session, name string, endpoint string, bind bool) (*Socket, error) {
	s, err := newSocket(ctx, session, name, ShellMessage, Pair, nil)
	if err != nil {
		return nil, err
	}
	if err := s.open(endpoint, bind); err != nil {
		return nil, err
	}
	return s, nil
}

func newSocket(ctx context.Context, session *Session, name string, typ MessageType, kind SocketType, identity []byte) (*Socket, error) {
	var opts []zmq4.Option
	if len(identity) > 0 {
		opts = append(opts, zmq4.WithID(zmq4.SocketIdentity(identity)))
	}

	var socket zmq4.Socket
	switch kind {
	case Router:
		socket = zmq4.NewRouter(ctx, opts...)
	case Dealer:
		socket = zmq4.NewDealer(ctx, opts...)
	case Pub:
		socket = zmq4.NewPub(ctx, opts...)
	case XPub:
		socket = zmq4.NewXPub(ctx, opts...)
	case Sub:
		socket = zmq4.NewSub(ctx, opts...)
	case Rep:
		socket = zmq4.NewRep(ctx, opts...)
	case Req:
		socket = zmq4.NewReq(ctx, opts...)
	case Pair:
		socket = zmq4.NewPair(ctx, opts...)
	default:
		return nil, errors.Wrapf(ErrUnsupportedSocketType, "%d", kind)
	}

	if kind == Sub {
		if err := socket.SetOption(zmq4.OptionSubscribe, ""); err != nil {
			_ = socket.Close()
			return nil, errors.Wrapf(ErrCreateSocketFailed, "%s: %v", name, err)
		}
	}

	return &Socket{
		Name:    name,
		Type:    typ,
		Kind:    kind,
		Session: session,
		socket:  socket,
	}, nil
}

func (s *Socket) open(endpoint string, bind bool) error {
	s.Endpoint = endpoint
	if bind {
		if err := s.socket.Listen(endpoint); err != nil {
			_ = s.socket.Close()
			return errors.Wrapf(ErrSocketBind, "%s to %s: %v", s.Name, endpoint, err)
		}
		if addr, ok := s.socket.Addr().(*net.TCPAddr); ok {
			s.port = addr.Port
		}
		return nil
	}

	if err := s.socket.Dial(endpoint); err != nil {
		_ = s.socket.Close()
		return errors.Wrapf(ErrSocketConnect, "%s to %s: %v", s.Name, endpoint, err)
	}
	return nil
}

func (s *Socket) String() string {
	return fmt.Sprintf("%s[%s](%s)", s.Name, s.Kind, s.Endpoint)
}

// Port returns the bound TCP port, or 0 for connected and non-TCP sockets.
func (s *Socket) Port() int {
	return s.port
}

func (s *Socket) IsClosed() bool {
	return atomic.LoadInt32(&s.closed) == 1
}

// RecvMultipart blocks until a complete multipart message arrives.
func (s *Socket) RecvMultipart() ([][]byte, error) {
	s.recvMu.Lock()
	defer s.recvMu.Unlock()

	if s.IsClosed() {
		return nil, errors.Wrap(ErrCannotLockSocket, s.Name)
	}

	msg, err := s.socket.Recv()
	if err != nil {
		if s.IsClosed() {
			return nil, errors.Wrap(ErrCannotLockSocket, s.Name)
		}
		return nil, &ZmqError{Socket: s.Name, Err: err}
	}
	return msg.Frames, nil
}

// Recv returns the first frame of the next message.
func (s *Socket) Recv() ([]byte, error) {
	frames, err := s.RecvMultipart()
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return []byte{}, nil
	}
	return frames[0], nil
}

func (s *Socket) SendMultipart(parts [][]byte) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if s.IsClosed() {
		return errors.Wrap(ErrCannotLockSocket, s.Name)
	}

	if err := s.socket.Send(zmq4.NewMsgFrom(parts...)); err != nil {
		return &ZmqError{Socket: s.Name, Err: err}
	}
	return nil
}

func (s *Socket) Send(frame []byte) error {
	return s.SendMultipart([][]byte{frame})
}

// Close closes the underlying socket. Blocked readers return ErrCannotLockSocket.
func (s *Socket) Close() error {
	if !atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		return nil
	}
	return s.socket.Close()
}
