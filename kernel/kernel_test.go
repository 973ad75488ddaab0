package kernel_test

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/scusemua/notebook-kernel/common/dispatch"
	"github.com/scusemua/notebook-kernel/common/jupyter"
	"github.com/scusemua/notebook-kernel/common/jupyter/messaging"
	"github.com/scusemua/notebook-kernel/common/jupyter/types"
	"github.com/scusemua/notebook-kernel/kernel"
	"github.com/scusemua/notebook-kernel/testing/fake_kernel"
	"github.com/scusemua/notebook-kernel/testing/frontend"
)

const (
	testKey     = "4b5a2c1e-9f0d-4d1a-8c3e-2f6b7a9d0e1c"
	recvTimeout = 2 * time.Second
)

func newConnection() *jupyter.ConnectionInfo {
	return &jupyter.ConnectionInfo{
		IP:              "127.0.0.1",
		Transport:       "tcp",
		SignatureScheme: types.JupyterSignatureScheme,
		Key:             testKey,
	}
}

// startKernel connects an echo kernel on free loopback ports.
func startKernel(ctx context.Context, initialize bool, opts ...kernel.Option) *kernel.Kernel {
	k, err := kernel.New("echo", newConnection(), nil, opts...)
	ExpectWithOffset(1, err).To(BeNil())

	backend := fake_kernel.NewFakeKernel(k)
	ExpectWithOffset(1, k.Connect(ctx, kernel.Handlers{Shell: backend, Control: backend})).To(Succeed())
	if initialize {
		k.SetInitialized()
	}
	return k
}

func connectFrontend(ctx context.Context, k *kernel.Kernel) *frontend.Frontend {
	f, err := frontend.Connect(ctx, k.Ports())
	ExpectWithOffset(1, err).To(BeNil())
	time.Sleep(frontend.SubscriptionSettleTime)
	return f
}

// nextIOPub returns the next IOPub message, skipping the starting status sent before the
// front end subscribed.
func nextIOPub(f *frontend.Frontend) *messaging.JupyterMessage[messaging.Content] {
	for {
		msg, err := f.IOPub.Recv(recvTimeout)
		ExpectWithOffset(1, err).To(BeNil())
		if status, ok := msg.Content.(messaging.KernelStatus); ok && status.ExecutionState == messaging.ExecutionStateStarting {
			continue
		}
		return msg
	}
}

func expectIOPub(f *frontend.Frontend, msgType messaging.JupyterMessageType, parent *messaging.MessageHeader) *messaging.JupyterMessage[messaging.Content] {
	msg := nextIOPub(f)
	ExpectWithOffset(1, msg.Header.MsgType).To(Equal(msgType))
	ExpectWithOffset(1, msg.ParentHeader).ToNot(BeNil())
	ExpectWithOffset(1, msg.ParentHeader.MsgID).To(Equal(parent.MsgID))
	return msg
}

func expectState(f *frontend.Frontend, state messaging.ExecutionState, parent *messaging.MessageHeader) {
	msg := expectIOPub(f, messaging.StatusType, parent)
	ExpectWithOffset(1, msg.Content).To(Equal(messaging.KernelStatus{ExecutionState: state}))
}

var _ = Describe("Kernel", func() {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())
	})

	AfterEach(func() {
		cancel()
	})

	Context("Connecting", func() {
		It("Will refuse to connect without shell and control handlers", func() {
			k, err := kernel.New("echo", newConnection(), nil)
			Expect(err).To(BeNil())
			Expect(k.Connect(ctx, kernel.Handlers{})).To(MatchError(kernel.ErrMissingHandler))
		})

		It("Will reject an unknown signature scheme", func() {
			conn := newConnection()
			conn.SignatureScheme = "hmac-md5"
			_, err := kernel.New("echo", conn, nil)
			Expect(err).To(MatchError(types.ErrUnsupportedSignatureScheme))
		})

		It("Will bind every channel to its own port", func() {
			k := startKernel(ctx, true)
			defer k.Stop()

			ports := k.Ports()
			bound := []int{ports.ShellPort, ports.IOPubPort, ports.HBPort, ports.StdinPort, ports.ControlPort}
			seen := make(map[int]struct{})
			for _, port := range bound {
				Expect(port).To(BeNumerically(">", 0))
				seen[port] = struct{}{}
			}
			Expect(seen).To(HaveLen(len(bound)))
			Expect(ports.Key).To(Equal(testKey))
		})

		It("Will only connect once", func() {
			k := startKernel(ctx, true)
			defer k.Stop()

			backend := fake_kernel.NewFakeKernel(k)
			Expect(k.Connect(ctx, kernel.Handlers{Shell: backend, Control: backend})).To(MatchError(kernel.ErrAlreadyConnected))
		})

		It("Will close the sockets it opened when a port is taken", func() {
			taken, err := types.NewSocket(ctx, types.NewSession(testKey), "taken", types.ControlMessage, types.Router, nil, "tcp://127.0.0.1:0")
			Expect(err).To(BeNil())
			defer taken.Close()

			conn := newConnection()
			conn.ControlPort = taken.Port()
			k, err := kernel.New("echo", conn, nil)
			Expect(err).To(BeNil())

			backend := fake_kernel.NewFakeKernel(k)
			err = k.Connect(ctx, kernel.Handlers{Shell: backend, Control: backend})
			Expect(err).To(MatchError(types.ErrSocketBind))
			Eventually(k.Done(), recvTimeout).Should(BeClosed())
		})
	})

	Context("Serving a front end", func() {
		var (
			k *kernel.Kernel
			f *frontend.Frontend
		)

		BeforeEach(func() {
			k = startKernel(ctx, true)
			f = connectFrontend(ctx, k)
		})

		AfterEach(func() {
			k.Stop()
			Eventually(k.Done(), recvTimeout).Should(BeClosed())
			f.Close()
		})

		It("Will answer kernel_info requests", func() {
			request, err := f.Shell.Send(messaging.KernelInfoRequest{}, nil)
			Expect(err).To(BeNil())

			reply, err := f.Shell.RecvType(messaging.KernelInfoReplyType, recvTimeout)
			Expect(err).To(BeNil())
			Expect(reply.ParentHeader.MsgID).To(Equal(request.Header.MsgID))

			content := reply.Content.(messaging.KernelInfoReply)
			Expect(content.Status).To(Equal(messaging.StatusOk))
			Expect(content.ProtocolVersion).To(Equal(messaging.ProtocolVersion))
			Expect(content.LanguageInfo.Name).To(Equal(fake_kernel.LanguageName))

			expectState(f, messaging.ExecutionStateBusy, request.Header)
			expectState(f, messaging.ExecutionStateIdle, request.Header)
		})

		It("Will execute code and publish its outputs in order", func() {
			request, err := f.Execute("hello")
			Expect(err).To(BeNil())

			reply, err := f.Shell.RecvType(messaging.ExecuteReplyType, recvTimeout)
			Expect(err).To(BeNil())
			Expect(reply.Content).To(Equal(messaging.ExecuteReply{
				Status:          messaging.StatusOk,
				ExecutionCount:  1,
				UserExpressions: map[string]json.RawMessage{},
			}))

			expectState(f, messaging.ExecutionStateBusy, request.Header)
			input := expectIOPub(f, messaging.ExecuteInputType, request.Header)
			Expect(input.Content).To(Equal(messaging.ExecuteInput{Code: "hello", ExecutionCount: 1}))
			result := expectIOPub(f, messaging.ExecuteResultType, request.Header)
			Expect(string(result.Content.(messaging.ExecuteResult).Data["text/plain"])).To(Equal(`"hello"`))
			expectState(f, messaging.ExecutionStateIdle, request.Header)
		})

		It("Will send an error reply when the code raises", func() {
			_, err := f.Execute("error:boom")
			Expect(err).To(BeNil())

			reply, err := f.Shell.RecvType(messaging.ExecuteReplyType, recvTimeout)
			Expect(err).To(BeNil())
			content, ok := reply.Content.(messaging.ExecuteReplyException)
			Expect(ok).To(BeTrue())
			Expect(content.Status).To(Equal(messaging.StatusError))
			Expect(content.Name).To(Equal("EchoError"))
			Expect(content.Value).To(Equal("boom"))

			broadcast, err := f.IOPub.RecvType(messaging.ExecuteErrorType, recvTimeout)
			Expect(err).To(BeNil())
			Expect(broadcast.Content.(messaging.ExecuteError).Name).To(Equal("EchoError"))
		})

		It("Will route input requests to the front end that executed the code", func() {
			request, err := f.Execute("input:name?")
			Expect(err).To(BeNil())

			prompt, err := f.Stdin.RecvType(messaging.InputRequestType, recvTimeout)
			Expect(err).To(BeNil())
			Expect(prompt.Content).To(Equal(messaging.InputRequest{Prompt: "name?"}))
			Expect(prompt.ParentHeader.MsgID).To(Equal(request.Header.MsgID))

			_, err = f.Stdin.Send(messaging.InputReply{Value: "Ada"}, prompt.Header)
			Expect(err).To(BeNil())

			stream, err := f.IOPub.RecvType(messaging.StreamType, recvTimeout)
			Expect(err).To(BeNil())
			Expect(stream.Content).To(Equal(messaging.StreamOutput{Name: messaging.Stdout, Text: "Ada\n"}))
			Expect(stream.ParentHeader.MsgID).To(Equal(request.Header.MsgID))

			reply, err := f.Shell.RecvType(messaging.ExecuteReplyType, recvTimeout)
			Expect(err).To(BeNil())
			Expect(reply.Content.(messaging.ExecuteReply).Status).To(Equal(messaging.StatusOk))
		})

		It("Will abandon a pending input request when interrupted", func() {
			_, err := f.Execute("input:never answered")
			Expect(err).To(BeNil())

			_, err = f.Stdin.RecvType(messaging.InputRequestType, recvTimeout)
			Expect(err).To(BeNil())

			_, err = f.Control.Send(messaging.InterruptRequest{}, nil)
			Expect(err).To(BeNil())

			interruptReply, err := f.Control.RecvType(messaging.InterruptReplyType, recvTimeout)
			Expect(err).To(BeNil())
			Expect(interruptReply.Content).To(Equal(messaging.InterruptReply{Status: messaging.StatusOk}))

			reply, err := f.Shell.RecvType(messaging.ExecuteReplyType, recvTimeout)
			Expect(err).To(BeNil())
			content, ok := reply.Content.(messaging.ExecuteReplyException)
			Expect(ok).To(BeTrue())
			Expect(content.Name).To(Equal("KeyboardInterrupt"))

			// The kernel keeps serving after the interrupt.
			_, err = f.Execute("still here")
			Expect(err).To(BeNil())
			reply, err = f.Shell.RecvType(messaging.ExecuteReplyType, recvTimeout)
			Expect(err).To(BeNil())
			Expect(reply.Content.(messaging.ExecuteReply).Status).To(Equal(messaging.StatusOk))
		})

		It("Will answer comm RPCs with the RPC as parent", func() {
			open, err := f.Shell.Send(messaging.CommOpen{
				CommID:     "echo-1",
				TargetName: fake_kernel.EchoCommTarget,
				Data:       json.RawMessage(`{}`),
			}, nil)
			Expect(err).To(BeNil())
			expectState(f, messaging.ExecutionStateBusy, open.Header)
			expectState(f, messaging.ExecutionStateIdle, open.Header)

			rpc, err := f.Shell.Send(messaging.CommWireMsg{
				CommID: "echo-1",
				Data:   json.RawMessage(`{"jsonrpc":"2.0","method":"echo","params":{"x":1}}`),
			}, nil)
			Expect(err).To(BeNil())

			reply, err := f.IOPub.RecvType(messaging.CommMsgType, recvTimeout)
			Expect(err).To(BeNil())
			Expect(reply.ParentHeader.MsgID).To(Equal(rpc.Header.MsgID))

			content := reply.Content.(messaging.CommWireMsg)
			Expect(content.CommID).To(Equal("echo-1"))
			Expect(string(content.Data)).To(MatchJSON(`{"result":{"x":1}}`))
		})
	})

	Context("Interrupting", func() {
		// awaitInput waits until request's code was broadcast, which the backend does once it started executing.
		awaitInput := func(f *frontend.Frontend, request *messaging.JupyterMessage[messaging.Content]) {
			for {
				input, err := f.IOPub.RecvType(messaging.ExecuteInputType, recvTimeout)
				ExpectWithOffset(1, err).To(BeNil())
				if input.ParentHeader.MsgID == request.Header.MsgID {
					return
				}
			}
		}

		interrupt := func(f *frontend.Frontend) {
			_, err := f.Control.Send(messaging.InterruptRequest{}, nil)
			ExpectWithOffset(1, err).To(BeNil())
			_, err = f.Control.RecvType(messaging.InterruptReplyType, recvTimeout)
			ExpectWithOffset(1, err).To(BeNil())
		}

		interruptSleep := func(opts ...kernel.Option) {
			k := startKernel(ctx, true, opts...)
			defer func() {
				k.Stop()
				Eventually(k.Done(), recvTimeout).Should(BeClosed())
			}()
			f := connectFrontend(ctx, k)
			defer f.Close()

			// Raised while idle, so it must not cut the next execution short.
			interrupt(f)
			request, err := f.Execute("sleep:200ms")
			Expect(err).To(BeNil())
			reply, err := f.Shell.RecvType(messaging.ExecuteReplyType, recvTimeout)
			Expect(err).To(BeNil())
			Expect(reply.ParentHeader.MsgID).To(Equal(request.Header.MsgID))
			Expect(reply.Content.(messaging.ExecuteReply).Status).To(Equal(messaging.StatusOk))

			request, err = f.Execute("sleep:1m")
			Expect(err).To(BeNil())
			awaitInput(f, request)
			interrupt(f)

			reply, err = f.Shell.RecvType(messaging.ExecuteReplyType, recvTimeout)
			Expect(err).To(BeNil())
			Expect(reply.ParentHeader.MsgID).To(Equal(request.Header.MsgID))
			content, ok := reply.Content.(messaging.ExecuteReplyException)
			Expect(ok).To(BeTrue())
			Expect(content.Name).To(Equal("KeyboardInterrupt"))
		}

		It("Will interrupt a running execution but not the one after an idle interrupt", func() {
			interruptSleep()
		})

		It("Will deliver interrupts to an execution running on the dispatcher", func() {
			d := dispatch.New(0, nil)
			go func() {
				_ = d.Run(ctx)
			}()

			interruptSleep(kernel.WithDispatcher(d))
		})
	})

	Context("Shutting down", func() {
		It("Will stop after answering a shutdown request and close open comms", func() {
			k := startKernel(ctx, true)
			f := connectFrontend(ctx, k)
			defer f.Close()

			open, err := f.Shell.Send(messaging.CommOpen{CommID: "echo-2", TargetName: fake_kernel.EchoCommTarget}, nil)
			Expect(err).To(BeNil())
			expectState(f, messaging.ExecutionStateBusy, open.Header)
			expectState(f, messaging.ExecutionStateIdle, open.Header)

			request, err := f.Control.Send(messaging.ShutdownRequest{Restart: true}, nil)
			Expect(err).To(BeNil())

			reply, err := f.Control.RecvType(messaging.ShutdownReplyType, recvTimeout)
			Expect(err).To(BeNil())
			Expect(reply.Content).To(Equal(messaging.ShutdownReply{Status: messaging.StatusOk, Restart: true}))

			expectState(f, messaging.ExecutionStateBusy, request.Header)
			expectState(f, messaging.ExecutionStateIdle, request.Header)

			closed, err := f.IOPub.RecvType(messaging.CommCloseType, recvTimeout)
			Expect(err).To(BeNil())
			Expect(closed.Content).To(Equal(messaging.CommClose{CommID: "echo-2"}))

			Eventually(k.Done(), recvTimeout).Should(BeClosed())
			shutdown := k.Wait()
			Expect(shutdown).ToNot(BeNil())
			Expect(shutdown.Restart).To(BeTrue())
		})

		It("Will stop without a shutdown request when stopped", func() {
			k := startKernel(ctx, true)
			k.Stop()

			Eventually(k.Done(), recvTimeout).Should(BeClosed())
			Expect(k.Wait()).To(BeNil())
		})

		It("Will stop when the parent context is cancelled", func() {
			parent, stop := context.WithCancel(ctx)
			k := startKernel(parent, true)
			stop()

			Eventually(k.Done(), recvTimeout).Should(BeClosed())
		})
	})

	Context("Heartbeat", func() {
		It("Will not answer heartbeats until the kernel is initialized", func() {
			k := startKernel(ctx, false)
			defer k.Stop()

			f := connectFrontend(ctx, k)
			defer f.Close()

			Expect(f.Heartbeat.SendParts([][]byte{[]byte("ping")})).To(Succeed())
			_, err := f.Heartbeat.RecvParts(300 * time.Millisecond)
			Expect(err).To(MatchError(frontend.ErrTimeout))

			k.SetInitialized()
			k.SetInitialized()

			parts, err := f.Heartbeat.RecvParts(recvTimeout)
			Expect(err).To(BeNil())
			Expect(parts).To(Equal([][]byte{[]byte("ping")}))
		})
	})
})
