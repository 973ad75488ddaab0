package messaging

import (
	"github.com/goccy/go-json"
)

const (
	// Shell
	KernelInfoRequestType JupyterMessageType = "kernel_info_request"
	KernelInfoReplyType   JupyterMessageType = "kernel_info_reply"
	IsCompleteRequestType JupyterMessageType = "is_complete_request"
	IsCompleteReplyType   JupyterMessageType = "is_complete_reply"
	ExecuteRequestType    JupyterMessageType = "execute_request"
	ExecuteReplyType      JupyterMessageType = "execute_reply"
	CompleteRequestType   JupyterMessageType = "complete_request"
	CompleteReplyType     JupyterMessageType = "complete_reply"
	InspectRequestType    JupyterMessageType = "inspect_request"
	InspectReplyType      JupyterMessageType = "inspect_reply"
	CommInfoRequestType   JupyterMessageType = "comm_info_request"
	CommInfoReplyType     JupyterMessageType = "comm_info_reply"

	// Shell and IOPub
	CommOpenType  JupyterMessageType = "comm_open"
	CommMsgType   JupyterMessageType = "comm_msg"
	CommCloseType JupyterMessageType = "comm_close"

	// Control
	ShutdownRequestType  JupyterMessageType = "shutdown_request"
	ShutdownReplyType    JupyterMessageType = "shutdown_reply"
	InterruptRequestType JupyterMessageType = "interrupt_request"
	InterruptReplyType   JupyterMessageType = "interrupt_reply"

	// Stdin
	InputRequestType JupyterMessageType = "input_request"
	InputReplyType   JupyterMessageType = "input_reply"

	// IOPub
	StatusType            JupyterMessageType = "status"
	StreamType            JupyterMessageType = "stream"
	ExecuteInputType      JupyterMessageType = "execute_input"
	ExecuteResultType     JupyterMessageType = "execute_result"
	ExecuteErrorType      JupyterMessageType = "error"
	DisplayDataType       JupyterMessageType = "display_data"
	UpdateDisplayDataType JupyterMessageType = "update_display_data"
	WelcomeType           JupyterMessageType = "iopub_welcome"

	// Registration
	HandshakeRequestType JupyterMessageType = "handshake_request"
	HandshakeReplyType   JupyterMessageType = "handshake_reply"

	// ErrorReplyType is a placeholder. An error reply takes the type of the request it answers.
	ErrorReplyType JupyterMessageType = "*error payload*"
)

// Content is the payload of a Jupyter message. MessageType matches the header's msg_type.
type Content interface {
	MessageType() JupyterMessageType
}

type Status string

const (
	StatusOk    Status = "ok"
	StatusError Status = "error"
)

// Exception describes an error raised by the language runtime.
type Exception struct {
	Name      string   `json:"ename"`
	Value     string   `json:"evalue"`
	Traceback []string `json:"traceback"`
}

func (e *Exception) Error() string {
	return e.Name + ": " + e.Value
}

// InternalException wraps a kernel-side failure that the runtime did not describe.
func InternalException(err error) Exception {
	return Exception{
		Name:      "InternalError",
		Value:     err.Error(),
		Traceback: []string{},
	}
}

type KernelInfoRequest struct{}

func (KernelInfoRequest) MessageType() JupyterMessageType { return KernelInfoRequestType }

type LanguageInfo struct {
	Name              string `json:"name"`
	Version           string `json:"version"`
	Mimetype          string `json:"mimetype"`
	FileExtension     string `json:"file_extension"`
	PygmentsLexer     string `json:"pygments_lexer,omitempty"`
	CodemirrorMode    string `json:"codemirror_mode,omitempty"`
	NbconvertExporter string `json:"nbconvert_exporter,omitempty"`
}

type HelpLink struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

type KernelInfoReply struct {
	Status                Status       `json:"status"`
	ProtocolVersion       string       `json:"protocol_version"`
	Implementation        string       `json:"implementation"`
	ImplementationVersion string       `json:"implementation_version"`
	LanguageInfo          LanguageInfo `json:"language_info"`
	Banner                string       `json:"banner"`
	Debugger              bool         `json:"debugger"`
	HelpLinks             []HelpLink   `json:"help_links"`
	SupportedFeatures     []string     `json:"supported_features,omitempty"`
}

func (KernelInfoReply) MessageType() JupyterMessageType { return KernelInfoReplyType }

type IsCompleteRequest struct {
	Code string `json:"code"`
}

func (IsCompleteRequest) MessageType() JupyterMessageType { return IsCompleteRequestType }

type IsComplete string

const (
	IsCompleteComplete   IsComplete = "complete"
	IsCompleteIncomplete IsComplete = "incomplete"
	IsCompleteInvalid    IsComplete = "invalid"
	IsCompleteUnknown    IsComplete = "unknown"
)

type IsCompleteReply struct {
	Status IsComplete `json:"status"`
	Indent string     `json:"indent"`
}

func (IsCompleteReply) MessageType() JupyterMessageType { return IsCompleteReplyType }

type ExecuteRequest struct {
	Code            string                     `json:"code"`
	Silent          bool                       `json:"silent"`
	StoreHistory    bool                       `json:"store_history"`
	UserExpressions map[string]json.RawMessage `json:"user_expressions"`
	AllowStdin      bool                       `json:"allow_stdin"`
	StopOnError     bool                       `json:"stop_on_error"`
}

func (ExecuteRequest) MessageType() JupyterMessageType { return ExecuteRequestType }

type ExecuteReply struct {
	Status          Status                     `json:"status"`
	ExecutionCount  uint32                     `json:"execution_count"`
	UserExpressions map[string]json.RawMessage `json:"user_expressions"`
}

func (ExecuteReply) MessageType() JupyterMessageType { return ExecuteReplyType }

// ExecuteReplyException is the execute_reply sent when code raised an error.
type ExecuteReplyException struct {
	Status         Status `json:"status"`
	ExecutionCount uint32 `json:"execution_count"`
	Exception
}

func (ExecuteReplyException) MessageType() JupyterMessageType { return ExecuteReplyType }

// MarshalJSON always sends status "error" so the reply decodes as an exception again.
func (e ExecuteReplyException) MarshalJSON() ([]byte, error) {
	type plain ExecuteReplyException
	e.Status = StatusError
	return json.Marshal(plain(e))
}

type CompleteRequest struct {
	Code      string `json:"code"`
	CursorPos uint32 `json:"cursor_pos"`
}

func (CompleteRequest) MessageType() JupyterMessageType { return CompleteRequestType }

type CompleteReply struct {
	Status      Status                     `json:"status"`
	Matches     []string                   `json:"matches"`
	CursorStart uint32                     `json:"cursor_start"`
	CursorEnd   uint32                     `json:"cursor_end"`
	Metadata    map[string]json.RawMessage `json:"metadata"`
}

func (CompleteReply) MessageType() JupyterMessageType { return CompleteReplyType }

type InspectRequest struct {
	Code        string `json:"code"`
	CursorPos   uint32 `json:"cursor_pos"`
	DetailLevel int    `json:"detail_level"`
}

func (InspectRequest) MessageType() JupyterMessageType { return InspectRequestType }

type InspectReply struct {
	Status   Status                     `json:"status"`
	Found    bool                       `json:"found"`
	Data     map[string]json.RawMessage `json:"data"`
	Metadata map[string]json.RawMessage `json:"metadata"`
}

func (InspectReply) MessageType() JupyterMessageType { return InspectReplyType }

type CommInfoRequest struct {
	TargetName string `json:"target_name,omitempty"`
}

func (CommInfoRequest) MessageType() JupyterMessageType { return CommInfoRequestType }

type CommInfoTargetName struct {
	TargetName string `json:"target_name"`
}

type CommInfoReply struct {
	Status Status                        `json:"status"`
	Comms  map[string]CommInfoTargetName `json:"comms"`
}

func (CommInfoReply) MessageType() JupyterMessageType { return CommInfoReplyType }

type CommOpen struct {
	CommID     string          `json:"comm_id"`
	TargetName string          `json:"target_name"`
	Data       json.RawMessage `json:"data"`
}

func (CommOpen) MessageType() JupyterMessageType { return CommOpenType }

func (m CommOpen) MarshalJSON() ([]byte, error) {
	type plain CommOpen
	m.Data = commData(m.Data)
	return json.Marshal(plain(m))
}

type CommWireMsg struct {
	CommID string          `json:"comm_id"`
	Data   json.RawMessage `json:"data"`
}

func (CommWireMsg) MessageType() JupyterMessageType { return CommMsgType }

func (m CommWireMsg) MarshalJSON() ([]byte, error) {
	type plain CommWireMsg
	m.Data = commData(m.Data)
	return json.Marshal(plain(m))
}

// commData substitutes an empty object for missing comm data. Front ends require an object.
func commData(data json.RawMessage) json.RawMessage {
	if len(data) == 0 || string(data) == "null" {
		return json.RawMessage("{}")
	}
	return data
}

type CommClose struct {
	CommID string `json:"comm_id"`
}

func (CommClose) MessageType() JupyterMessageType { return CommCloseType }

type ShutdownRequest struct {
	Restart bool `json:"restart"`
}

func (ShutdownRequest) MessageType() JupyterMessageType { return ShutdownRequestType }

type ShutdownReply struct {
	Status  Status `json:"status"`
	Restart bool   `json:"restart"`
}

func (ShutdownReply) MessageType() JupyterMessageType { return ShutdownReplyType }

type InterruptRequest struct{}

func (InterruptRequest) MessageType() JupyterMessageType { return InterruptRequestType }

type InterruptReply struct {
	Status Status `json:"status"`
}

func (InterruptReply) MessageType() JupyterMessageType { return InterruptReplyType }

type InputRequest struct {
	Prompt   string `json:"prompt"`
	Password bool   `json:"password"`
}

func (InputRequest) MessageType() JupyterMessageType { return InputRequestType }

type InputReply struct {
	Value string `json:"value"`
}

func (InputReply) MessageType() JupyterMessageType { return InputReplyType }

type ExecutionState string

const (
	ExecutionStateBusy     ExecutionState = "busy"
	ExecutionStateIdle     ExecutionState = "idle"
	ExecutionStateStarting ExecutionState = "starting"
)

type KernelStatus struct {
	ExecutionState ExecutionState `json:"execution_state"`
}

func (KernelStatus) MessageType() JupyterMessageType { return StatusType }

type StreamName string

const (
	Stdout StreamName = "stdout"
	Stderr StreamName = "stderr"
)

type StreamOutput struct {
	Name StreamName `json:"name"`
	Text string     `json:"text"`
}

func (StreamOutput) MessageType() JupyterMessageType { return StreamType }

type ExecuteInput struct {
	Code           string `json:"code"`
	ExecutionCount uint32 `json:"execution_count"`
}

func (ExecuteInput) MessageType() JupyterMessageType { return ExecuteInputType }

type ExecuteResult struct {
	ExecutionCount uint32                     `json:"execution_count"`
	Data           map[string]json.RawMessage `json:"data"`
	Metadata       map[string]json.RawMessage `json:"metadata"`
}

func (ExecuteResult) MessageType() JupyterMessageType { return ExecuteResultType }

// ExecuteError is the IOPub broadcast of an error. The reply on Shell is ExecuteReplyException.
type ExecuteError struct {
	Exception
}

func (ExecuteError) MessageType() JupyterMessageType { return ExecuteErrorType }

type DisplayData struct {
	Data      map[string]json.RawMessage `json:"data"`
	Metadata  map[string]json.RawMessage `json:"metadata"`
	Transient map[string]json.RawMessage `json:"transient"`
}

func (DisplayData) MessageType() JupyterMessageType { return DisplayDataType }

type UpdateDisplayData struct {
	Data      map[string]json.RawMessage `json:"data"`
	Metadata  map[string]json.RawMessage `json:"metadata"`
	Transient map[string]json.RawMessage `json:"transient"`
}

func (UpdateDisplayData) MessageType() JupyterMessageType { return UpdateDisplayDataType }

// Welcome is sent on an XPUB IOPub socket when a front end subscribes.
type Welcome struct {
	Subscription string `json:"subscription"`
}

func (Welcome) MessageType() JupyterMessageType { return WelcomeType }

type HandshakeRequest struct {
	ControlPort uint16 `json:"control_port"`
	ShellPort   uint16 `json:"shell_port"`
	StdinPort   uint16 `json:"stdin_port"`
	IOPubPort   uint16 `json:"iopub_port"`
	HBPort      uint16 `json:"hb_port"`
}

func (HandshakeRequest) MessageType() JupyterMessageType { return HandshakeRequestType }

type HandshakeReply struct {
	Status Status `json:"status"`
}

func (HandshakeReply) MessageType() JupyterMessageType { return HandshakeReplyType }

// ErrorReply answers a request that failed. It is sent under the request's reply type.
type ErrorReply struct {
	Status Status `json:"status"`
	Exception
}

func (ErrorReply) MessageType() JupyterMessageType { return ErrorReplyType }
