package messaging

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/scusemua/notebook-kernel/common/jupyter/types"
)

// JupyterMessage is a decoded Jupyter message with content of type T.
// Messages read from a socket have T = Content; use As to narrow them.
type JupyterMessage[T Content] struct {
	// ZmqIdentities are the routing identities that preceded the delimiter.
	ZmqIdentities [][]byte

	Header *MessageHeader

	// ParentHeader is nil when the message has no parent.
	ParentHeader *MessageHeader

	Metadata map[string]interface{}
	Content  T
	Buffers  [][]byte
}

// ReadFromSocket receives one multipart message and decodes it.
func ReadFromSocket(socket *types.Socket) (*JupyterMessage[Content], error) {
	parts, err := socket.RecvMultipart()
	if err != nil {
		return nil, err
	}
	return FromParts(parts, socket.Session)
}

// FromParts decodes a multipart message: identities, delimiter, signature, the four JSON parts and buffers.
func FromParts(parts [][]byte, session *types.Session) (*JupyterMessage[Content], error) {
	ids, frames, err := types.SplitIdentities(parts)
	if err != nil {
		return nil, err
	}

	if err := frames.Verify(session); err != nil {
		return nil, err
	}

	var header MessageHeader
	if err := frames.HeaderFrame().Decode(&header); err != nil {
		return nil, errors.WithMessage(err, "header")
	}
	if header.MsgType == "" || header.MsgID == "" {
		return nil, errors.Wrapf(types.ErrInvalidPart, "header is missing msg_id or msg_type: %s", frames.HeaderFrame().Frame())
	}

	var parent *MessageHeader
	if frames.HasParent() {
		parent = &MessageHeader{}
		if err := frames.ParentHeaderFrame().Decode(parent); err != nil {
			return nil, errors.WithMessage(err, "parent header")
		}
	}

	metadata := make(map[string]interface{})
	if err := frames.MetadataFrame().Decode(&metadata); err != nil {
		return nil, errors.WithMessage(err, "metadata")
	}

	content, err := ParseContent(header.MsgType, frames.ContentFrame())
	if err != nil {
		return nil, err
	}

	return &JupyterMessage[Content]{
		ZmqIdentities: ids,
		Header:        &header,
		ParentHeader:  parent,
		Metadata:      metadata,
		Content:       content,
		Buffers:       frames.Buffers(),
	}, nil
}

// Create builds a message with a fresh header.
func Create[T Content](content T, parent *MessageHeader, session *types.Session) *JupyterMessage[T] {
	return &JupyterMessage[T]{
		Header:       NewMessageHeader(content.MessageType(), session),
		ParentHeader: parent,
		Metadata:     map[string]interface{}{},
		Content:      content,
	}
}

// CreateWithIdentity builds a message addressed to the front end that sent the originating request.
func CreateWithIdentity[T Content](originator *Originator, content T, session *types.Session) *JupyterMessage[T] {
	if originator == nil {
		return Create(content, nil, session)
	}
	msg := Create(content, originator.Header, session)
	msg.ZmqIdentities = originator.ZmqIdentities
	return msg
}

// CreateReply builds a reply to request: same identities, parented by the request header.
func CreateReply[T Content, R Content](request *JupyterMessage[R], content T, session *types.Session) *JupyterMessage[T] {
	return CreateWithIdentity(request.Originator(), content, session)
}

// As narrows a decoded message to content type T.
func As[T Content](msg *JupyterMessage[Content]) (*JupyterMessage[T], bool) {
	content, ok := msg.Content.(T)
	if !ok {
		return nil, false
	}
	return &JupyterMessage[T]{
		ZmqIdentities: msg.ZmqIdentities,
		Header:        msg.Header,
		ParentHeader:  msg.ParentHeader,
		Metadata:      msg.Metadata,
		Content:       content,
		Buffers:       msg.Buffers,
	}, true
}

// Erase widens a typed message back to JupyterMessage[Content].
func Erase[T Content](msg *JupyterMessage[T]) *JupyterMessage[Content] {
	return &JupyterMessage[Content]{
		ZmqIdentities: msg.ZmqIdentities,
		Header:        msg.Header,
		ParentHeader:  msg.ParentHeader,
		Metadata:      msg.Metadata,
		Content:       msg.Content,
		Buffers:       msg.Buffers,
	}
}

func (m *JupyterMessage[T]) Originator() *Originator {
	return &Originator{
		ZmqIdentities: m.ZmqIdentities,
		Header:        m.Header,
	}
}

func (m *JupyterMessage[T]) MessageType() JupyterMessageType {
	return m.Header.MsgType
}

// ToParts serializes and signs the message, identities first.
func (m *JupyterMessage[T]) ToParts(session *types.Session) ([][]byte, error) {
	header, err := json.Marshal(m.Header)
	if err != nil {
		return nil, errors.Wrapf(types.ErrCannotSerialize, "header: %v", err)
	}

	parent := types.JupyterFrameEmpty
	if m.ParentHeader != nil {
		if parent, err = json.Marshal(m.ParentHeader); err != nil {
			return nil, errors.Wrapf(types.ErrCannotSerialize, "parent header: %v", err)
		}
	}

	metadata := types.JupyterFrameEmpty
	if len(m.Metadata) > 0 {
		if metadata, err = json.Marshal(m.Metadata); err != nil {
			return nil, errors.Wrapf(types.ErrCannotSerialize, "metadata: %v", err)
		}
	}

	content, err := json.Marshal(m.Content)
	if err != nil {
		return nil, errors.Wrapf(types.ErrCannotSerialize, "%s content: %v", m.Header.MsgType, err)
	}

	frames := types.NewJupyterFrames(header, parent, metadata, content, m.Buffers).Sign(session)

	parts := make([][]byte, 0, len(m.ZmqIdentities)+len(frames))
	parts = append(parts, m.ZmqIdentities...)
	return append(parts, frames...), nil
}

// Send serializes, signs and sends the message on socket.
func (m *JupyterMessage[T]) Send(socket *types.Socket) error {
	parts, err := m.ToParts(socket.Session)
	if err != nil {
		return err
	}
	return socket.SendMultipart(parts)
}

func (m *JupyterMessage[T]) String() string {
	if m.ParentHeader != nil {
		return fmt.Sprintf("%s(%s, parent=%s)", m.Header.MsgType, m.Header.MsgID, m.ParentHeader.MsgID)
	}
	return fmt.Sprintf("%s(%s)", m.Header.MsgType, m.Header.MsgID)
}

// SendError replies to request with an error under the request's reply type.
func SendError[R Content](request *JupyterMessage[R], exception Exception, socket *types.Socket) error {
	reply := CreateReply(request, ErrorReply{Status: StatusError, Exception: exception}, socket.Session)
	reply.Header.MsgType = request.Header.MsgType.ReplyType()
	return reply.Send(socket)
}

// SendExecuteError replies to an execute request with ExecuteReplyException.
func SendExecuteError[R Content](request *JupyterMessage[R], exception Exception, executionCount uint32, socket *types.Socket) error {
	reply := CreateReply(request, ExecuteReplyException{
		Status:         StatusError,
		ExecutionCount: executionCount,
		Exception:      exception,
	}, socket.Session)
	return reply.Send(socket)
}
