package handler

import (
	"github.com/scusemua/notebook-kernel/common/jupyter/messaging"
)

// ErrorReply is returned by a handler to answer the request with an error reply.
type ErrorReply struct {
	Exception messaging.Exception
}

func NewErrorReply(name string, value string, traceback ...string) *ErrorReply {
	if traceback == nil {
		traceback = []string{}
	}
	return &ErrorReply{Exception: messaging.Exception{Name: name, Value: value, Traceback: traceback}}
}

func (e *ErrorReply) Error() string {
	return e.Exception.Error()
}

// ExecuteErrorReply is returned by HandleExecuteRequest when the code raised an error.
type ExecuteErrorReply struct {
	Exception      messaging.Exception
	ExecutionCount uint32
}

func NewExecuteErrorReply(executionCount uint32, name string, value string, traceback ...string) *ExecuteErrorReply {
	if traceback == nil {
		traceback = []string{}
	}
	return &ExecuteErrorReply{
		Exception:      messaging.Exception{Name: name, Value: value, Traceback: traceback},
		ExecutionCount: executionCount,
	}
}

func (e *ExecuteErrorReply) Error() string {
	return e.Exception.Error()
}
