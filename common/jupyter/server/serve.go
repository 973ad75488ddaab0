package server

import (
	"context"
	"io"
	"time"

	"github.com/Scusemua/go-utils/logger"
	"github.com/petermattis/goid"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/scusemua/notebook-kernel/common/jupyter/messaging"
	"github.com/scusemua/notebook-kernel/common/jupyter/types"
	"github.com/scusemua/notebook-kernel/common/metrics"
	"github.com/scusemua/notebook-kernel/common/utils"
)

var (
	// errServeOnce stops the serve loop after the current message.
	errServeOnce = errors.New("break after served once")
)

// MessageHandler handles one multipart message received on a channel socket.
type MessageHandler func(ctx context.Context, parts [][]byte) error

// channel bundles the socket of an actor with its logger and metrics.
type channel struct {
	log     logger.Logger
	socket  *types.Socket
	metrics metrics.Recorder
}

func newChannel(socket *types.Socket, recorder metrics.Recorder) channel {
	return channel{socket: socket, metrics: metrics.Or(recorder)}
}

func (c *channel) name() string {
	return c.socket.Type.String()
}

// Socket returns the ZeroMQ socket the actor serves.
func (c *channel) Socket() *types.Socket {
	return c.socket
}

// decode parses and verifies a message. Failures are counted as drops.
func (c *channel) decode(parts [][]byte) (*messaging.JupyterMessage[messaging.Content], error) {
	msg, err := messaging.FromParts(parts, c.socket.Session)
	if err != nil {
		c.metrics.MessageDropped(c.name(), dropReason(err))
		return nil, err
	}
	c.metrics.MessageReceived(c.name(), msg.Header.MsgType.String())
	return msg, nil
}

func (c *channel) send(msg *messaging.JupyterMessage[messaging.Content]) error {
	if err := msg.Send(c.socket); err != nil {
		c.metrics.MessageDropped(c.name(), "send")
		return err
	}
	c.metrics.MessageSent(c.name(), msg.Header.MsgType.String())
	return nil
}

// unsupported drops a message the channel does not handle.
func (c *channel) unsupported(msg *messaging.JupyterMessage[messaging.Content]) error {
	c.metrics.MessageDropped(c.name(), "unsupported")
	return errors.Wrapf(types.ErrUnsupportedMessage, "%s on %s", msg.Header.MsgType, c.name())
}

// serve reads messages from the socket and passes them to handler until ctx is done,
// the socket is closed or handler returns errServeOnce. Errors returned by handler are
// logged and the loop continues.
func (c *channel) serve(ctx context.Context, handler MessageHandler) {
	goroutineId := goid.Get()

	pollCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	chMsg := make(chan interface{})
	go c.poll(pollCtx, chMsg)

	style := utils.ChannelStyle(c.name())
	c.log.Debug(style.Render("[gid=%d] Start serving %v messages via %s."), goroutineId, c.socket.Type, c.socket.Name)

	for {
		select {
		case <-ctx.Done():
			c.log.Debug("[gid=%d] Stop serving %v messages: %v", goroutineId, c.socket.Type, ctx.Err())
			return
		case msg, ok := <-chMsg:
			if !ok {
				return
			}

			var err error
			switch v := msg.(type) {
			case error:
				err = v
			case [][]byte:
				err = handler(ctx, v)
			}

			if errors.Is(err, errServeOnce) {
				return
			} else if isClosed(err) {
				c.log.Debug(utils.OrangeStyle.Render("[gid=%d] Socket %s [%v] closed."), goroutineId, c.socket.Name, c.socket.Type)
				return
			} else if err != nil {
				c.log.Error(utils.RedStyle.Render("[gid=%d] Error on handle %s message: %v."), goroutineId, c.socket.Type, err)
			}
		}
	}
}

// poll feeds received messages, or receive errors, to chMsg. Transport errors are
// rate limited; a closed socket ends polling.
func (c *channel) poll(ctx context.Context, chMsg chan<- interface{}) {
	goroutineId := goid.Get()
	defer close(chMsg)

	limiter := rate.NewLimiter(rate.Every(time.Millisecond*100), 10)

	var msg interface{}
	for {
		parts, err := c.socket.RecvMultipart()
		if err == nil {
			msg = parts
		} else {
			msg = err
		}

		select {
		case chMsg <- msg:
		case <-ctx.Done():
			return
		}

		if err == nil {
			continue
		}
		if isClosed(err) {
			return
		}

		c.metrics.MessageDropped(c.name(), "transport")
		if err := limiter.Wait(ctx); err != nil {
			c.log.Warn("[gid=%d] Polling is stopping: %v", goroutineId, err)
			return
		}
	}
}

func isClosed(err error) bool {
	return errors.Is(err, types.ErrCannotLockSocket) || errors.Is(err, io.EOF) || errors.Is(err, context.Canceled)
}

func dropReason(err error) string {
	var insufficient *types.InsufficientPartsError
	switch {
	case errors.Is(err, types.ErrMissingDelimiter), errors.As(err, &insufficient):
		return "framing"
	case errors.Is(err, types.ErrBadSignature), errors.Is(err, types.ErrInvalidHmac):
		return "signature"
	case errors.Is(err, types.ErrUnknownMessageType):
		return "unknown_type"
	default:
		return "malformed"
	}
}
