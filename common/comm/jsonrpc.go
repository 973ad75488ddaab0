package comm

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

type JsonRpcErrorCode int

// Standard JSON-RPC 2.0 error codes.
const (
	ParseError     JsonRpcErrorCode = -32700
	InvalidRequest JsonRpcErrorCode = -32600
	MethodNotFound JsonRpcErrorCode = -32601
	InvalidParams  JsonRpcErrorCode = -32602
	InternalError  JsonRpcErrorCode = -32603
)

type JsonRpcError struct {
	Code    JsonRpcErrorCode `json:"code"`
	Message string           `json:"message"`
}

func NewJsonRpcError(code JsonRpcErrorCode, format string, args ...interface{}) *JsonRpcError {
	return &JsonRpcError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *JsonRpcError) Error() string {
	return fmt.Sprintf("json-rpc error %d: %s", e.Code, e.Message)
}

// JsonRpcReply carries either a result or an error.
type JsonRpcReply struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  *JsonRpcError   `json:"error,omitempty"`
}

// RequestHandler answers the data of an RPC with the data of its reply.
type RequestHandler interface {
	HandleRpc(data json.RawMessage) (json.RawMessage, error)
}

// CommHandlers adapts a typed function into a RequestHandler. Requests that do not
// decode into Req are answered with a parse error.
type CommHandlers[Req any, Rep any] struct {
	fn func(Req) (Rep, error)
}

func NewCommHandlers[Req any, Rep any](fn func(Req) (Rep, error)) *CommHandlers[Req, Rep] {
	return &CommHandlers[Req, Rep]{fn: fn}
}

func (h *CommHandlers[Req, Rep]) HandleRpc(data json.RawMessage) (json.RawMessage, error) {
	var reply JsonRpcReply

	var request Req
	if err := json.Unmarshal(data, &request); err != nil {
		reply.Error = NewJsonRpcError(ParseError, "could not parse request %s: %v", data, err)
		return json.Marshal(reply)
	}

	result, err := h.fn(request)
	if err != nil {
		var rpcErr *JsonRpcError
		if errors.As(err, &rpcErr) {
			reply.Error = rpcErr
		} else {
			reply.Error = NewJsonRpcError(InternalError, "%v", err)
		}
		return json.Marshal(reply)
	}

	if reply.Result, err = json.Marshal(result); err != nil {
		return nil, errors.Wrap(err, "could not serialize RPC result")
	}
	return json.Marshal(reply)
}

// HandleRequest answers msg on the comm when it is an RPC. It returns false for other messages.
func (s *Socket) HandleRequest(msg Msg, handler RequestHandler) (bool, error) {
	if msg.Kind != RpcMsg {
		return false, nil
	}

	reply, err := handler.HandleRpc(msg.Data)
	if err != nil {
		return true, errors.Wrapf(err, "comm %s RPC %s", s.ID, msg.ID)
	}

	s.Send(Rpc(msg.ID, reply))
	return true, nil
}
