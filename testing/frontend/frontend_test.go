package frontend_test

import (
	"context"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/scusemua/notebook-kernel/common/jupyter/types"
	"github.com/scusemua/notebook-kernel/testing/frontend"
)

var _ = Describe("Client", func() {
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

	It("Will time out rather than fail when a heartbeat client reads before sending", func() {
		echo, err := types.NewSocket(ctx, session, "heartbeat", types.HBMessage, types.Rep, nil, "tcp://127.0.0.1:0")
		Expect(err).To(BeNil())
		defer echo.Close()

		client, err := frontend.Dial(ctx, session, types.HBMessage, fmt.Sprintf("tcp://127.0.0.1:%d", echo.Port()))
		Expect(err).To(BeNil())
		defer client.Close()

		time.Sleep(50 * time.Millisecond)
		_, err = client.RecvParts(100 * time.Millisecond)
		Expect(err).To(MatchError(frontend.ErrTimeout))

		Expect(client.SendParts([][]byte{[]byte("ping")})).To(Succeed())
		parts, err := echo.RecvMultipart()
		Expect(err).To(BeNil())
		Expect(echo.SendMultipart(parts)).To(Succeed())

		parts, err = client.RecvParts(2 * time.Second)
		Expect(err).To(BeNil())
		Expect(parts).To(Equal([][]byte{[]byte("ping")}))

		// Later round trips reuse the reader.
		Expect(client.SendParts([][]byte{[]byte("again")})).To(Succeed())
		parts, err = echo.RecvMultipart()
		Expect(err).To(BeNil())
		Expect(echo.SendMultipart(parts)).To(Succeed())
		Expect(client.RecvParts(2 * time.Second)).To(Equal([][]byte{[]byte("again")}))
	})

	It("Will refuse channels a front end does not dial", func() {
		_, err := frontend.Dial(ctx, session, types.RegistrationMessage, "tcp://127.0.0.1:1")
		Expect(err).To(MatchError(types.ErrUnsupportedSocketType))
	})
})
