package messaging

type IOPubKind int

const (
	// IOPubStatus is a busy/idle/starting notification for a request on Shell or Control.
	IOPubStatus IOPubKind = iota
	// IOPubOutput is an output parented by the active Shell request.
	IOPubOutput
	// IOPubComm is comm traffic initiated by the kernel. It has no parent.
	IOPubComm
	// IOPubCommReply answers a front end RPC and is parented by the RPC's header.
	IOPubCommReply
	// IOPubContext re-points the Shell context without publishing anything.
	IOPubContext
)

func (k IOPubKind) String() string {
	return [...]string{"status", "output", "comm", "comm_reply", "context"}[k]
}

// IOPubContextChannel names the channel whose request parents a status message.
type IOPubContextChannel int

const (
	ShellContext IOPubContextChannel = iota
	ControlContext
)

func (c IOPubContextChannel) String() string {
	return [...]string{"shell", "control"}[c]
}

// IOPubMessage is an item queued for the IOPub socket.
type IOPubMessage struct {
	Kind    IOPubKind
	Channel IOPubContextChannel
	Parent  *MessageHeader
	State   ExecutionState
	Content Content
}

// NewStatusMessage reports state for the request identified by parent on channel.
func NewStatusMessage(channel IOPubContextChannel, parent *MessageHeader, state ExecutionState) IOPubMessage {
	return IOPubMessage{Kind: IOPubStatus, Channel: channel, Parent: parent, State: state}
}

func NewOutputMessage(content Content) IOPubMessage {
	return IOPubMessage{Kind: IOPubOutput, Content: content}
}

func NewCommMessage(content Content) IOPubMessage {
	return IOPubMessage{Kind: IOPubComm, Content: content}
}

func NewCommReplyMessage(rpc *MessageHeader, content Content) IOPubMessage {
	return IOPubMessage{Kind: IOPubCommReply, Parent: rpc, Content: content}
}

func NewContextMessage(channel IOPubContextChannel, header *MessageHeader) IOPubMessage {
	return IOPubMessage{Kind: IOPubContext, Channel: channel, Parent: header}
}
