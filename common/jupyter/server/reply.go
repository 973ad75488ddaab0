package server

import (
	"github.com/pkg/errors"

	"github.com/scusemua/notebook-kernel/common/jupyter/handler"
	"github.com/scusemua/notebook-kernel/common/jupyter/messaging"
)

var errNoReply = errors.New("handler returned neither a reply nor an error")

// reply answers request with content, or with an error reply when err is set.
// *handler.ErrorReply and *handler.ExecuteErrorReply describe the error sent; any other
// error is reported as an internal error.
func reply[R messaging.Content, T messaging.Content](c *channel, request *messaging.JupyterMessage[R], content T, err error) error {
	replyType := request.Header.MsgType.ReplyType()

	var sendErr error
	if err == nil {
		sendErr = messaging.CreateReply(request, content, c.socket.Session).Send(c.socket)
	} else {
		var errorReply *handler.ErrorReply
		var executeError *handler.ExecuteErrorReply
		switch {
		case errors.As(err, &executeError):
			sendErr = messaging.SendExecuteError(request, executeError.Exception, executeError.ExecutionCount, c.socket)
		case errors.As(err, &errorReply):
			sendErr = messaging.SendError(request, errorReply.Exception, c.socket)
		default:
			c.log.Warn("Handler for %v failed: %v", request, err)
			sendErr = messaging.SendError(request, messaging.InternalException(err), c.socket)
		}
	}

	if sendErr != nil {
		c.metrics.MessageDropped(c.name(), "send")
		return errors.WithMessagef(sendErr, "could not send %s", replyType)
	}
	c.metrics.MessageSent(c.name(), replyType.String())
	return nil
}
