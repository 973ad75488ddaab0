package types_test

import (
	"context"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/scusemua/notebook-kernel/common/jupyter/types"
)

var _ = Describe("Socket", func() {
	var (
		ctx     context.Context
		cancel  context.CancelFunc
		session *types.Session
	)

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())
		session = types.NewSession("")
	})

	AfterEach(func() {
		cancel()
	})

	It("Will report the port picked for a wildcard bind", func() {
		server, err := types.NewSocket(ctx, session, "hb", types.HBMessage, types.Rep, nil, "tcp://127.0.0.1:0")
		Expect(err).To(BeNil())
		defer server.Close()

		Expect(server.Port()).To(BeNumerically(">", 0))
		Expect(server.String()).To(ContainSubstring("REP"))
	})

	It("Will exchange multipart messages", func() {
		server, err := types.NewSocket(ctx, session, "hb", types.HBMessage, types.Rep, nil, "tcp://127.0.0.1:0")
		Expect(err).To(BeNil())
		defer server.Close()

		client, err := types.NewSocket(ctx, session, "client", types.HBMessage, types.Req, nil, fmt.Sprintf("tcp://127.0.0.1:%d", server.Port()))
		Expect(err).To(BeNil())
		defer client.Close()
		Expect(client.Port()).To(BeZero())

		Expect(client.SendMultipart([][]byte{[]byte("ping"), []byte("1")})).To(Succeed())
		parts, err := server.RecvMultipart()
		Expect(err).To(BeNil())
		Expect(parts).To(Equal([][]byte{[]byte("ping"), []byte("1")}))

		Expect(server.Send([]byte("pong"))).To(Succeed())
		frame, err := client.Recv()
		Expect(err).To(BeNil())
		Expect(frame).To(Equal([]byte("pong")))
	})

	It("Will fail to bind a port that is taken", func() {
		first, err := types.NewSocket(ctx, session, "shell", types.ShellMessage, types.Router, nil, "tcp://127.0.0.1:0")
		Expect(err).To(BeNil())
		defer first.Close()

		_, err = types.NewSocket(ctx, session, "shell", types.ShellMessage, types.Router, nil, fmt.Sprintf("tcp://127.0.0.1:%d", first.Port()))
		Expect(err).To(MatchError(types.ErrSocketBind))
	})

	It("Will reject socket kinds it does not manage", func() {
		_, err := types.NewSocket(ctx, session, "pair", types.ShellMessage, types.Pair, nil, "tcp://127.0.0.1:0")
		Expect(err).To(MatchError(types.ErrUnsupportedSocketType))
	})

	It("Will unblock readers when closed", func() {
		server, err := types.NewSocket(ctx, session, "shell", types.ShellMessage, types.Router, nil, "tcp://127.0.0.1:0")
		Expect(err).To(BeNil())

		errs := make(chan error, 1)
		go func() {
			_, err := server.RecvMultipart()
			errs <- err
		}()

		time.Sleep(50 * time.Millisecond)
		Expect(server.Close()).To(Succeed())
		Expect(server.IsClosed()).To(BeTrue())
		Expect(server.Close()).To(Succeed())

		var recvErr error
		Eventually(errs, time.Second).Should(Receive(&recvErr))
		Expect(recvErr).To(MatchError(types.ErrCannotLockSocket))
		Expect(server.Send([]byte("late"))).To(MatchError(types.ErrCannotLockSocket))
	})

	It("Will name its channel", func() {
		Expect(types.IOMessage.String()).To(Equal("iopub"))
		Expect(types.HBMessage.String()).To(Equal("heartbeat"))
		Expect(types.XPub.Binds()).To(BeTrue())
		Expect(types.Dealer.Binds()).To(BeFalse())
	})
})
