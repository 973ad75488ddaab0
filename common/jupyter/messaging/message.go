package messaging

import (
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/scusemua/notebook-kernel/common/jupyter/types"
)

// ProtocolVersion is the Jupyter messaging protocol version this kernel speaks.
const ProtocolVersion = "5.4"

type JupyterMessageType string

func (t JupyterMessageType) String() string {
	return string(t)
}

// GetBaseMessageType returns the base portion of the Jupyter message type.
// If the message type is "execute_request", then this returns "execute_" and true.
//
// If the message type is not of the form "{action}_request" or "{action}_reply", then this
// returns the empty string and false.
func (t JupyterMessageType) GetBaseMessageType() (string, bool) {
	if strings.HasSuffix(t.String(), "request") {
		return t.String()[0 : len(t.String())-7], true
	} else if strings.HasSuffix(t.String(), "reply") {
		return t.String()[0 : len(t.String())-5], true
	}

	return "", false
}

// ReplyType returns the "_reply" counterpart of a request type, or the type itself.
func (t JupyterMessageType) ReplyType() JupyterMessageType {
	if base, ok := t.GetBaseMessageType(); ok {
		return JupyterMessageType(base + "reply")
	}
	return t
}

// MessageHeader is a Jupyter message header.
// http://jupyter-client.readthedocs.io/en/latest/messaging.html#general-message-format
type MessageHeader struct {
	MsgID    string             `json:"msg_id"`
	Username string             `json:"username"`
	Session  string             `json:"session"`
	Date     string             `json:"date"`
	MsgType  JupyterMessageType `json:"msg_type"`
	Version  string             `json:"version"`
}

// NewMessageHeader creates a header with a fresh id and the current time.
func NewMessageHeader(msgType JupyterMessageType, session *types.Session) *MessageHeader {
	return &MessageHeader{
		MsgID:    uuid.New().String(),
		Username: session.Username,
		Session:  session.ID,
		Date:     time.Now().UTC().Format(time.RFC3339Nano),
		MsgType:  msgType,
		Version:  ProtocolVersion,
	}
}

func (header *MessageHeader) Clone() *MessageHeader {
	if header == nil {
		return nil
	}
	clone := *header
	return &clone
}

func (header *MessageHeader) String() string {
	m, err := json.Marshal(header)
	if err != nil {
		panic(err)
	}

	return string(m)
}

// Originator identifies the front end request that caused a message: the routing
// identities to reply to and the header to parent replies on.
type Originator struct {
	ZmqIdentities [][]byte
	Header        *MessageHeader
}
