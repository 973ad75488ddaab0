package types

import (
	"errors"
	"fmt"
)

// Protocol and framing errors. A message failing with one of these is logged and dropped.
var (
	ErrMissingDelimiter           = errors.New("message did not include the <IDS|MSG> delimiter")
	ErrInvalidHmac                = errors.New("message signature is not valid hexadecimal")
	ErrBadSignature               = errors.New("message signature is incorrect")
	ErrUnsupportedSignatureScheme = errors.New("unsupported signature scheme")
	ErrUtf8                       = errors.New("message part is not valid UTF-8")
	ErrJsonParse                  = errors.New("message part is not valid JSON")
	ErrInvalidPart                = errors.New("message part does not match its schema")
	ErrInvalidMessage             = errors.New("message content does not match its type")
	ErrUnknownMessageType         = errors.New("unknown message type")
	ErrUnsupportedMessage         = errors.New("message type is not supported on this channel")
	ErrCannotSerialize            = errors.New("cannot serialize message")
)

// Handling errors.
var (
	ErrUnknownCommName       = errors.New("unknown comm target name")
	ErrInvalidCommMessage    = errors.New("invalid comm message")
	ErrInputInterrupted      = errors.New("input request was interrupted")
	ErrMainThreadUnavailable = errors.New("main thread is not available")
)

// Transport and startup errors.
var (
	ErrCannotLockSocket      = errors.New("cannot lock socket")
	ErrUnsupportedSocketType = errors.New("unsupported socket type")
	ErrCreateSocketFailed    = errors.New("could not create socket")
	ErrSocketBind            = errors.New("could not bind socket")
	ErrSocketConnect         = errors.New("could not connect socket")
)

// InsufficientPartsError is returned when fewer parts than required follow the delimiter.
type InsufficientPartsError struct {
	Found    int
	Expected int
}

func (e *InsufficientPartsError) Error() string {
	return fmt.Sprintf("message did not contain sufficient parts (found %d, expected %d)", e.Found, e.Expected)
}

// ZmqError wraps a transport error with the name of the socket it happened on.
type ZmqError struct {
	Socket string
	Err    error
}

func (e *ZmqError) Error() string {
	return fmt.Sprintf("zeromq error on %s socket: %v", e.Socket, e.Err)
}

func (e *ZmqError) Unwrap() error {
	return e.Err
}
