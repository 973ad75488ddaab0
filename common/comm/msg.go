package comm

import (
	"fmt"

	"github.com/goccy/go-json"
)

type MsgKind int

const (
	// RpcMsg is one half of a remote procedure call. ID is the msg_id of the request.
	RpcMsg MsgKind = iota
	// DataMsg is any other payload, usually an event.
	DataMsg
	// CloseMsg asks for the comm to be closed.
	CloseMsg
)

func (k MsgKind) String() string {
	return [...]string{"rpc", "data", "close"}[k]
}

// Msg travels on a comm in either direction.
type Msg struct {
	Kind MsgKind
	ID   string
	Data json.RawMessage
}

func Rpc(id string, data json.RawMessage) Msg {
	return Msg{Kind: RpcMsg, ID: id, Data: data}
}

func Data(data json.RawMessage) Msg {
	return Msg{Kind: DataMsg, Data: data}
}

func Close() Msg {
	return Msg{Kind: CloseMsg}
}

func (m Msg) String() string {
	switch m.Kind {
	case RpcMsg:
		return fmt.Sprintf("Rpc(%s, %s)", m.ID, m.Data)
	case DataMsg:
		return fmt.Sprintf("Data(%s)", m.Data)
	default:
		return "Close"
	}
}
