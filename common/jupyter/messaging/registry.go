package messaging

import (
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/scusemua/notebook-kernel/common/jupyter/types"
)

type contentParser func(frame *types.JupyterFrame) (Content, error)

func parseAs[T Content]() contentParser {
	return func(frame *types.JupyterFrame) (Content, error) {
		var content T
		if err := frame.Decode(&content); err != nil {
			if errors.Is(err, types.ErrInvalidPart) {
				return nil, errors.Wrapf(types.ErrInvalidMessage, "%s: %v", content.MessageType(), err)
			}
			return nil, err
		}
		return content, nil
	}
}

// registry maps every msg_type this kernel understands to the parser for its content.
var registry = map[JupyterMessageType]contentParser{
	KernelInfoRequestType: parseAs[KernelInfoRequest](),
	KernelInfoReplyType:   parseAs[KernelInfoReply](),
	IsCompleteRequestType: parseAs[IsCompleteRequest](),
	IsCompleteReplyType:   parseAs[IsCompleteReply](),
	ExecuteRequestType:    parseAs[ExecuteRequest](),
	ExecuteReplyType:      parseExecuteReply,
	CompleteRequestType:   parseAs[CompleteRequest](),
	CompleteReplyType:     parseAs[CompleteReply](),
	InspectRequestType:    parseAs[InspectRequest](),
	InspectReplyType:      parseAs[InspectReply](),
	CommInfoRequestType:   parseAs[CommInfoRequest](),
	CommInfoReplyType:     parseAs[CommInfoReply](),
	CommOpenType:          parseAs[CommOpen](),
	CommMsgType:           parseAs[CommWireMsg](),
	CommCloseType:         parseAs[CommClose](),
	ShutdownRequestType:   parseAs[ShutdownRequest](),
	ShutdownReplyType:     parseAs[ShutdownReply](),
	InterruptRequestType:  parseAs[InterruptRequest](),
	InterruptReplyType:    parseAs[InterruptReply](),
	InputRequestType:      parseAs[InputRequest](),
	InputReplyType:        parseAs[InputReply](),
	StatusType:            parseAs[KernelStatus](),
	StreamType:            parseAs[StreamOutput](),
	ExecuteInputType:      parseAs[ExecuteInput](),
	ExecuteResultType:     parseAs[ExecuteResult](),
	ExecuteErrorType:      parseAs[ExecuteError](),
	DisplayDataType:       parseAs[DisplayData](),
	UpdateDisplayDataType: parseAs[UpdateDisplayData](),
	WelcomeType:           parseAs[Welcome](),
	HandshakeRequestType:  parseAs[HandshakeRequest](),
	HandshakeReplyType:    parseAs[HandshakeReply](),
}

// parseExecuteReply decodes an error status carrying an exception name as ExecuteReplyException.
func parseExecuteReply(frame *types.JupyterFrame) (Content, error) {
	var head struct {
		Status Status          `json:"status"`
		Name   json.RawMessage `json:"ename"`
	}
	if err := frame.Decode(&head); err != nil {
		if errors.Is(err, types.ErrInvalidPart) {
			return nil, errors.Wrapf(types.ErrInvalidMessage, "%s: %v", ExecuteReplyType, err)
		}
		return nil, err
	}

	if head.Status == StatusError && len(head.Name) > 0 {
		return parseAs[ExecuteReplyException]()(frame)
	}
	return parseAs[ExecuteReply]()(frame)
}

// ParseContent decodes a content frame according to msgType.
func ParseContent(msgType JupyterMessageType, frame *types.JupyterFrame) (Content, error) {
	parse, ok := registry[msgType]
	if !ok {
		return nil, errors.Wrapf(types.ErrUnknownMessageType, "%q", msgType)
	}
	return parse(frame)
}

// IsKnownMessageType reports whether msgType has an entry in the message catalog.
func IsKnownMessageType(msgType JupyterMessageType) bool {
	_, ok := registry[msgType]
	return ok
}

// MessageTypes lists every msg_type in the catalog in lexical order.
func MessageTypes() []JupyterMessageType {
	msgTypes := maps.Keys(registry)
	slices.Sort(msgTypes)
	return msgTypes
}
