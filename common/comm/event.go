package comm

import (
	"github.com/goccy/go-json"

	"github.com/scusemua/notebook-kernel/common/jupyter/messaging"
)

// Event changes the set or state of open comms. It is handled by the Manager's loop.
type Event interface {
	event()
}

// Opened registers a comm. A back end comm is announced to the front end with Data.
type Opened struct {
	Socket *Socket
	Data   json.RawMessage
}

// Message delivers front end traffic to a comm.
type Message struct {
	CommID string
	Msg    Msg
}

// PendingRpc records the header of a front end RPC to CommID so the reply can be parented by it.
type PendingRpc struct {
	CommID string
	Header *messaging.MessageHeader
}

// Closed is sent when the front end closes a comm.
type Closed struct {
	CommID string
}

// InfoRequest asks for the open comms. The Manager answers on Reply.
type InfoRequest struct {
	Reply chan Info
}

func (Opened) event()      {}
func (Message) event()     {}
func (PendingRpc) event()  {}
func (Closed) event()      {}
func (InfoRequest) event() {}

type CommInfo struct {
	ID   string
	Name string
}

type Info struct {
	Comms       []CommInfo
	PendingRpcs int
}
