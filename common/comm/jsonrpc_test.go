package comm_test

import (
	"github.com/goccy/go-json"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/scusemua/notebook-kernel/common/comm"
)

type addRequest struct {
	A int `json:"a"`
	B int `json:"b"`
}

var _ = Describe("JSON-RPC helpers", func() {
	var (
		socket   *comm.Socket
		handlers *comm.CommHandlers[addRequest, int]
	)

	BeforeEach(func() {
		socket = comm.NewSocket(comm.FrontEnd, "comm-1", "calculator")
		handlers = comm.NewCommHandlers(func(req addRequest) (int, error) {
			if req.A < 0 {
				return 0, comm.NewJsonRpcError(comm.InvalidParams, "a must be positive")
			}
			return req.A + req.B, nil
		})
	})

	reply := func() comm.JsonRpcReply {
		var msg comm.Msg
		Expect(socket.Outgoing).To(Receive(&msg))
		Expect(msg.Kind).To(Equal(comm.RpcMsg))
		Expect(msg.ID).To(Equal("rpc-1"))

		var decoded comm.JsonRpcReply
		Expect(json.Unmarshal(msg.Data, &decoded)).To(Succeed())
		return decoded
	}

	It("Will answer an RPC with the handler's result", func() {
		handled, err := socket.HandleRequest(comm.Rpc("rpc-1", json.RawMessage(`{"a":2,"b":3}`)), handlers)
		Expect(err).To(BeNil())
		Expect(handled).To(BeTrue())

		decoded := reply()
		Expect(decoded.Error).To(BeNil())
		Expect(string(decoded.Result)).To(Equal("5"))
	})

	It("Will pass a JSON-RPC error through", func() {
		_, err := socket.HandleRequest(comm.Rpc("rpc-1", json.RawMessage(`{"a":-1,"b":3}`)), handlers)
		Expect(err).To(BeNil())
		Expect(reply().Error.Code).To(Equal(comm.InvalidParams))
	})

	It("Will answer a malformed request with a parse error", func() {
		_, err := socket.HandleRequest(comm.Rpc("rpc-1", json.RawMessage(`"not an object"`)), handlers)
		Expect(err).To(BeNil())
		Expect(reply().Error.Code).To(Equal(comm.ParseError))
	})

	It("Will ignore messages that are not RPCs", func() {
		handled, err := socket.HandleRequest(comm.Data(json.RawMessage(`{}`)), handlers)
		Expect(err).To(BeNil())
		Expect(handled).To(BeFalse())
		Expect(socket.Outgoing).To(BeEmpty())
	})
})
