package messaging_test

import (
	"fmt"
	"reflect"

	"github.com/goccy/go-json"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/scusemua/notebook-kernel/common/jupyter/messaging"
	"github.com/scusemua/notebook-kernel/common/jupyter/types"
)

var exception = messaging.Exception{Name: "ValueError", Value: "bad", Traceback: []string{"line 1", "line 2"}}

// catalog holds one populated value per message type the codec knows.
var catalog = []messaging.Content{
	messaging.KernelInfoRequest{},
	messaging.KernelInfoReply{
		Status:                messaging.StatusOk,
		ProtocolVersion:       messaging.ProtocolVersion,
		Implementation:        "echo",
		ImplementationVersion: "0.1.0",
		LanguageInfo:          messaging.LanguageInfo{Name: "echo", Version: "0.1.0", Mimetype: "text/plain", FileExtension: ".txt"},
		Banner:                "Echo",
		Debugger:              true,
		HelpLinks:             []messaging.HelpLink{{Text: "docs", URL: "https://jupyter.org"}},
		SupportedFeatures:     []string{"debugger"},
	},
	messaging.IsCompleteRequest{Code: "print:a \\"},
	messaging.IsCompleteReply{Status: messaging.IsCompleteIncomplete, Indent: "  "},
	messaging.ExecuteRequest{
		Code:            "1 + 1",
		Silent:          true,
		StoreHistory:    true,
		UserExpressions: map[string]json.RawMessage{"x": json.RawMessage(`"x"`)},
		AllowStdin:      true,
		StopOnError:     true,
	},
	messaging.ExecuteReply{
		Status:          messaging.StatusOk,
		ExecutionCount:  2,
		UserExpressions: map[string]json.RawMessage{"x": json.RawMessage(`{"status":"ok"}`)},
	},
	messaging.ExecuteReplyException{Status: messaging.StatusError, ExecutionCount: 2, Exception: exception},
	messaging.CompleteRequest{Code: "pr", CursorPos: 2},
	messaging.CompleteReply{
		Status:      messaging.StatusOk,
		Matches:     []string{"print:"},
		CursorStart: 0,
		CursorEnd:   2,
		Metadata:    map[string]json.RawMessage{},
	},
	messaging.InspectRequest{Code: "sleep:1s", CursorPos: 3, DetailLevel: 1},
	messaging.InspectReply{
		Status:   messaging.StatusOk,
		Found:    true,
		Data:     map[string]json.RawMessage{"text/plain": json.RawMessage(`"doc"`)},
		Metadata: map[string]json.RawMessage{},
	},
	messaging.CommInfoRequest{TargetName: "echo"},
	messaging.CommInfoReply{
		Status: messaging.StatusOk,
		Comms:  map[string]messaging.CommInfoTargetName{"c1": {TargetName: "echo"}},
	},
	messaging.CommOpen{CommID: "c1", TargetName: "echo", Data: json.RawMessage(`{"a":1}`)},
	messaging.CommWireMsg{CommID: "c1", Data: json.RawMessage(`{"b":[1,2]}`)},
	messaging.CommClose{CommID: "c1"},
	messaging.ShutdownRequest{Restart: true},
	messaging.ShutdownReply{Status: messaging.StatusOk, Restart: true},
	messaging.InterruptRequest{},
	messaging.InterruptReply{Status: messaging.StatusOk},
	messaging.InputRequest{Prompt: "name?", Password: true},
	messaging.InputReply{Value: "Ada"},
	messaging.KernelStatus{ExecutionState: messaging.ExecutionStateBusy},
	messaging.StreamOutput{Name: messaging.Stderr, Text: "oops\n"},
	messaging.ExecuteInput{Code: "1 + 1", ExecutionCount: 3},
	messaging.ExecuteResult{
		ExecutionCount: 3,
		Data:           map[string]json.RawMessage{"text/plain": json.RawMessage(`"2"`)},
		Metadata:       map[string]json.RawMessage{},
	},
	messaging.ExecuteError{Exception: exception},
	messaging.DisplayData{
		Data:      map[string]json.RawMessage{"text/html": json.RawMessage(`"<b>2</b>"`)},
		Metadata:  map[string]json.RawMessage{},
		Transient: map[string]json.RawMessage{"display_id": json.RawMessage(`"d1"`)},
	},
	messaging.UpdateDisplayData{
		Data:      map[string]json.RawMessage{"text/plain": json.RawMessage(`"3"`)},
		Metadata:  map[string]json.RawMessage{},
		Transient: map[string]json.RawMessage{"display_id": json.RawMessage(`"d1"`)},
	},
	messaging.Welcome{Subscription: "kernel"},
	messaging.HandshakeRequest{ControlPort: 1, ShellPort: 2, StdinPort: 3, IOPubPort: 4, HBPort: 5},
	messaging.HandshakeReply{Status: messaging.StatusOk},
}

func catalogEntries() []TableEntry {
	entries := make([]TableEntry, 0, len(catalog))
	for _, content := range catalog {
		entries = append(entries, Entry(fmt.Sprintf("%T", content), content))
	}
	return entries
}

// roundTrip encodes content as a signed message and decodes it again.
func roundTrip(content messaging.Content, session *types.Session) ([][]byte, *messaging.JupyterMessage[messaging.Content]) {
	parts, err := messaging.Create(content, nil, session).ToParts(session)
	ExpectWithOffset(1, err).To(BeNil())

	decoded, err := messaging.FromParts(parts, session)
	ExpectWithOffset(1, err).To(BeNil())
	return parts, decoded
}

var _ = Describe("Codec round trip", func() {
	session := types.NewSession(testKey)

	It("Will cover every message type in the catalog", func() {
		covered := make([]messaging.JupyterMessageType, 0, len(catalog))
		for _, content := range catalog {
			if !containsType(covered, content.MessageType()) {
				covered = append(covered, content.MessageType())
			}
		}
		Expect(covered).To(ConsistOf(messaging.MessageTypes()))
	})

	DescribeTable("Will decode what it encodes",
		func(content messaging.Content) {
			_, decoded := roundTrip(content, session)
			Expect(decoded.Header.MsgType).To(Equal(content.MessageType()))
			Expect(decoded.Content).To(Equal(content))
		},
		catalogEntries(),
	)

	DescribeTable("Will keep the type of a default value and encode it the same way twice",
		func(content messaging.Content) {
			zero := reflect.Zero(reflect.TypeOf(content)).Interface().(messaging.Content)

			parts, decoded := roundTrip(zero, session)
			Expect(reflect.TypeOf(decoded.Content)).To(Equal(reflect.TypeOf(zero)))

			again, err := decoded.ToParts(session)
			Expect(err).To(BeNil())
			Expect(string(again[types.JupyterFrameContent])).To(MatchJSON(string(parts[types.JupyterFrameContent])))
		},
		catalogEntries(),
	)

	It("Will send an empty object for missing comm data", func() {
		parts, decoded := roundTrip(messaging.CommOpen{CommID: "c1", TargetName: "echo"}, session)
		Expect(string(parts[types.JupyterFrameContent])).To(MatchJSON(`{"comm_id":"c1","target_name":"echo","data":{}}`))
		Expect(string(decoded.Content.(messaging.CommOpen).Data)).To(MatchJSON(`{}`))

		parts, _ = roundTrip(messaging.CommWireMsg{CommID: "c1", Data: json.RawMessage("null")}, session)
		Expect(string(parts[types.JupyterFrameContent])).To(MatchJSON(`{"comm_id":"c1","data":{}}`))
	})

	It("Will mark an execute exception as an error whatever its status", func() {
		parts, decoded := roundTrip(messaging.ExecuteReplyException{ExecutionCount: 4, Exception: exception}, session)
		Expect(string(parts[types.JupyterFrameContent])).To(ContainSubstring(`"status":"error"`))

		content, ok := decoded.Content.(messaging.ExecuteReplyException)
		Expect(ok).To(BeTrue())
		Expect(content.Status).To(Equal(messaging.StatusError))
		Expect(content.Exception).To(Equal(exception))
	})
})

func containsType(msgTypes []messaging.JupyterMessageType, msgType messaging.JupyterMessageType) bool {
	for _, t := range msgTypes {
		if t == msgType {
			return true
		}
	}
	return false
}
