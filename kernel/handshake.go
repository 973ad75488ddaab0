package kernel

import (
	"context"
	"time"

	"github.com/Scusemua/go-utils/config"
	"github.com/pkg/errors"

	"github.com/scusemua/notebook-kernel/common/jupyter"
	"github.com/scusemua/notebook-kernel/common/jupyter/messaging"
	"github.com/scusemua/notebook-kernel/common/jupyter/types"
)

// HandshakeTimeout bounds the wait for the supervisor's handshake_reply.
const HandshakeTimeout = 5 * time.Second

var (
	ErrHandshakeTimeout  = errors.New("timed out waiting for handshake reply")
	ErrHandshakeRejected = errors.New("supervisor rejected the handshake")
)

type handshakeResult struct {
	parts [][]byte
	err   error
}

// Handshake reports the bound ports to the supervisor listening on the registration
// endpoint and waits for its reply.
func Handshake(ctx context.Context, session *types.Session, reg *jupyter.RegistrationInfo, ports *jupyter.ConnectionInfo) error {
	log := config.GetLogger("Handshake ")

	socket, err := types.NewSocket(ctx, session, "Registration", types.RegistrationMessage, types.Req, nil, reg.Endpoint())
	if err != nil {
		return err
	}
	defer socket.Close()

	request := messaging.Create(messaging.HandshakeRequest{
		ControlPort: uint16(ports.ControlPort),
		ShellPort:   uint16(ports.ShellPort),
		StdinPort:   uint16(ports.StdinPort),
		IOPubPort:   uint16(ports.IOPubPort),
		HBPort:      uint16(ports.HBPort),
	}, nil, session)

	log.Debug("Sending handshake to %s: %v", reg.Endpoint(), request.Content)
	if err := request.Send(socket); err != nil {
		return errors.WithMessage(err, "could not send handshake request")
	}

	received := make(chan handshakeResult, 1)
	go func() {
		parts, err := socket.RecvMultipart()
		received <- handshakeResult{parts: parts, err: err}
	}()

	timer := time.NewTimer(HandshakeTimeout)
	defer timer.Stop()

	var result handshakeResult
	select {
	case result = <-received:
	case <-timer.C:
		return errors.Wrapf(ErrHandshakeTimeout, "after %v", HandshakeTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
	if result.err != nil {
		return errors.WithMessage(result.err, "could not receive handshake reply")
	}

	msg, err := messaging.FromParts(result.parts, session)
	if err != nil {
		return errors.WithMessage(err, "could not parse handshake reply")
	}
	reply, ok := messaging.As[messaging.HandshakeReply](msg)
	if !ok {
		return errors.Wrapf(types.ErrInvalidMessage, "expected %s, got %s", messaging.HandshakeReplyType, msg.Header.MsgType)
	}
	if reply.Content.Status != messaging.StatusOk {
		return errors.Wrapf(ErrHandshakeRejected, "status %q", reply.Content.Status)
	}

	log.Debug("Handshake accepted by %s.", reg.Endpoint())
	return nil
}
