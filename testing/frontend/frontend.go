// Package frontend is a minimal Jupyter front end used to drive kernels in tests.
package frontend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Scusemua/go-utils/config"
	"github.com/Scusemua/go-utils/logger"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/scusemua/notebook-kernel/common/jupyter"
	"github.com/scusemua/notebook-kernel/common/jupyter/messaging"
	"github.com/scusemua/notebook-kernel/common/jupyter/types"
	"github.com/scusemua/notebook-kernel/common/utils"
)

// SubscriptionSettleTime is how long a SUB socket needs before a PUB socket delivers to it.
const SubscriptionSettleTime = 250 * time.Millisecond

var ErrTimeout = errors.New("timed out waiting for message")

type received struct {
	parts [][]byte
	err   error
}

// Client is a front end's end of one kernel channel. Messages are read in the background
// so tests can wait for them with a timeout.
type Client struct {
	Socket *types.Socket

	// Identity is the routing identity of a DEALER client.
	Identity []byte

	log       logger.Logger
	incoming  chan received
	serveOnce sync.Once
}

// Dial connects to the kernel channel typ at endpoint: DEALER for Shell, Control and Stdin,
// SUB for IOPub, REQ for the heartbeat.
func Dial(ctx context.Context, session *types.Session, typ types.MessageType, endpoint string) (*Client, error) {
	return DialWithIdentity(ctx, session, typ, endpoint, nil)
}

// DialWithIdentity is Dial with a fixed routing identity for DEALER clients. The kernel
// sends input requests to the identity of the Shell client, so a front end shares one
// identity between its Shell and Stdin clients.
func DialWithIdentity(ctx context.Context, session *types.Session, typ types.MessageType, endpoint string, identity []byte) (*Client, error) {
	var kind types.SocketType
	switch typ {
	case types.ShellMessage, types.ControlMessage, types.StdinMessage:
		kind = types.Dealer
	case types.IOMessage:
		kind = types.Sub
	case types.HBMessage:
		kind = types.Req
	default:
		return nil, errors.Wrapf(types.ErrUnsupportedSocketType, "no front end socket for %v", typ)
	}

	if kind != types.Dealer {
		identity = nil
	} else if len(identity) == 0 {
		identity = []byte(uuid.New().String())
	}

	socket, err := types.NewSocket(ctx, session, fmt.Sprintf("frontend-%v", typ), typ, kind, identity, endpoint)
	if err != nil {
		return nil, err
	}

	c := &Client{
		Socket:   socket,
		Identity: identity,
		incoming: make(chan received, 256),
	}
	config.InitLogger(&c.log, fmt.Sprintf("Frontend-%v ", typ))

	// A REQ socket has no peer to read from until it sent a request, so its reader
	// starts with the first send.
	if kind != types.Req {
		c.startServing()
	}
	return c, nil
}

func (c *Client) startServing() {
	c.serveOnce.Do(func() {
		go c.serve()
	})
}

func (c *Client) serve() {
	defer close(c.incoming)

	for {
		parts, err := c.Socket.RecvMultipart()
		c.incoming <- received{parts: parts, err: err}
		if err != nil {
			if !c.Socket.IsClosed() {
				c.log.Debug(utils.RedStyle.Render("Error reading from %v socket: %v"), c.Socket.Type, err)
			}
			return
		}
	}
}

// Send sends content parented by parent and returns the message sent.
func (c *Client) Send(content messaging.Content, parent *messaging.MessageHeader) (*messaging.JupyterMessage[messaging.Content], error) {
	msg := messaging.Create(content, parent, c.Socket.Session)
	if err := msg.Send(c.Socket); err != nil {
		return nil, err
	}
	c.startServing()
	return msg, nil
}

func (c *Client) SendParts(parts [][]byte) error {
	if err := c.Socket.SendMultipart(parts); err != nil {
		return err
	}
	c.startServing()
	return nil
}

// RecvParts waits up to timeout for the next raw message.
func (c *Client) RecvParts(timeout time.Duration) ([][]byte, error) {
	select {
	case r, ok := <-c.incoming:
		if !ok {
			return nil, errors.Wrap(types.ErrCannotLockSocket, c.Socket.Name)
		}
		return r.parts, r.err
	case <-time.After(timeout):
		return nil, ErrTimeout
	}
}

// Recv waits up to timeout for the next message and decodes it.
func (c *Client) Recv(timeout time.Duration) (*messaging.JupyterMessage[messaging.Content], error) {
	parts, err := c.RecvParts(timeout)
	if err != nil {
		return nil, err
	}
	return messaging.FromParts(parts, c.Socket.Session)
}

// RecvType skips messages until one of type msgType arrives.
func (c *Client) RecvType(msgType messaging.JupyterMessageType, timeout time.Duration) (*messaging.JupyterMessage[messaging.Content], error) {
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, ErrTimeout
		}
		msg, err := c.Recv(remaining)
		if err != nil {
			return nil, err
		}
		if msg.Header.MsgType == msgType {
			return msg, nil
		}
	}
}

func (c *Client) Close() error {
	return c.Socket.Close()
}

// Frontend holds one client per kernel channel.
type Frontend struct {
	Session *types.Session

	Shell     *Client
	Control   *Client
	Stdin     *Client
	IOPub     *Client
	Heartbeat *Client
}

// Connect dials every channel of the kernel described by info.
func Connect(ctx context.Context, info *jupyter.ConnectionInfo) (*Frontend, error) {
	session, err := types.NewSessionWithScheme(info.Key, info.SignatureScheme)
	if err != nil {
		return nil, err
	}

	f := &Frontend{Session: session}
	identity := []byte(uuid.New().String())
	dials := []struct {
		client   **Client
		typ      types.MessageType
		port     int
		identity []byte
	}{
		{&f.IOPub, types.IOMessage, info.IOPubPort, nil},
		{&f.Shell, types.ShellMessage, info.ShellPort, identity},
		{&f.Control, types.ControlMessage, info.ControlPort, nil},
		{&f.Stdin, types.StdinMessage, info.StdinPort, identity},
		{&f.Heartbeat, types.HBMessage, info.HBPort, nil},
	}
	for _, d := range dials {
		client, err := DialWithIdentity(ctx, session, d.typ, info.Endpoint(d.port), d.identity)
		if err != nil {
			f.Close()
			return nil, err
		}
		*d.client = client
	}
	return f, nil
}

// Execute sends an execute request on Shell and returns it.
func (f *Frontend) Execute(code string) (*messaging.JupyterMessage[messaging.Content], error) {
	return f.Shell.Send(messaging.ExecuteRequest{
		Code:         code,
		StoreHistory: true,
		AllowStdin:   true,
		StopOnError:  true,
	}, nil)
}

func (f *Frontend) Close() {
	for _, c := range []*Client{f.Shell, f.Control, f.Stdin, f.IOPub, f.Heartbeat} {
		if c != nil {
			_ = c.Close()
		}
	}
}
