// Package fake_kernel is a toy language backend. It echoes code back as results and
// understands a few directives that exercise every kernel channel:
//
//	print:<text>   writes text to stdout
//	input:<prompt> asks the front end for input and prints the answer
//	error:<text>   raises an error
//	sleep:<dur>    blocks for a time.ParseDuration duration or until interrupted
package fake_kernel

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Scusemua/go-utils/config"
	"github.com/Scusemua/go-utils/logger"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"github.com/scusemua/notebook-kernel/common/comm"
	"github.com/scusemua/notebook-kernel/common/jupyter/handler"
	"github.com/scusemua/notebook-kernel/common/jupyter/messaging"
)

const (
	LanguageName = "echo"
	Version      = "0.1.0"

	// EchoCommTarget is the comm target the fake kernel accepts.
	EchoCommTarget = "echo"
)

// interruptCheckInterval is how often a sleeping execution looks for an interrupt.
const interruptCheckInterval = 10 * time.Millisecond

var keywords = []string{"error:", "input:", "print:", "sleep:"}

// Runtime gives the backend access to the kernel it runs in.
type Runtime interface {
	IOPub() comm.Publisher
	Stdin() handler.InputRequester

	// CheckInterrupt consumes an interrupt raised during the current execution.
	CheckInterrupt() bool
}

type FakeKernel struct {
	log logger.Logger

	runtime        Runtime
	executionCount uint32
}

func NewFakeKernel(runtime Runtime) *FakeKernel {
	k := &FakeKernel{
		runtime: runtime,
	}
	config.InitLogger(&k.log, k)
	return k
}

func (k *FakeKernel) HandleInfoRequest(_ context.Context, _ *messaging.KernelInfoRequest) (*messaging.KernelInfoReply, error) {
	return &messaging.KernelInfoReply{
		Status:                messaging.StatusOk,
		Implementation:        "fake_kernel",
		ImplementationVersion: Version,
		LanguageInfo: messaging.LanguageInfo{
			Name:          LanguageName,
			Version:       Version,
			Mimetype:      "text/plain",
			FileExtension: ".txt",
		},
		Banner: "Echo kernel " + Version,
	}, nil
}

func (k *FakeKernel) HandleIsCompleteRequest(_ context.Context, req *messaging.IsCompleteRequest) (*messaging.IsCompleteReply, error) {
	code := strings.TrimRight(req.Code, " \t")
	if strings.HasSuffix(code, "\\") {
		return &messaging.IsCompleteReply{Status: messaging.IsCompleteIncomplete, Indent: "  "}, nil
	}
	return &messaging.IsCompleteReply{Status: messaging.IsCompleteComplete}, nil
}

func (k *FakeKernel) HandleExecuteRequest(ctx context.Context, originator *messaging.Originator, req *messaging.ExecuteRequest) (*messaging.ExecuteReply, error) {
	count := atomic.LoadUint32(&k.executionCount)
	if !req.Silent && req.StoreHistory {
		count = atomic.AddUint32(&k.executionCount, 1)
	}

	iopub := k.runtime.IOPub()
	if !req.Silent {
		iopub.Publish(messaging.NewOutputMessage(messaging.ExecuteInput{Code: req.Code, ExecutionCount: count}))
	}

	directive, arg, _ := strings.Cut(req.Code, ":")
	switch directive {
	case "print":
		k.stream(messaging.Stdout, arg)
	case "input":
		if !req.AllowStdin {
			return nil, k.raise(count, "StdinNotImplementedError", "input requests are not allowed")
		}
		input, err := k.runtime.Stdin().RequestInput(ctx, originator, &messaging.InputRequest{Prompt: arg})
		if err != nil {
			return nil, k.raise(count, "KeyboardInterrupt", err.Error())
		}
		k.stream(messaging.Stdout, input.Value)
	case "error":
		return nil, k.raise(count, "EchoError", arg)
	case "sleep":
		duration, err := time.ParseDuration(arg)
		if err != nil {
			return nil, k.raise(count, "ValueError", err.Error())
		}
		if err := k.sleep(ctx, duration); err != nil {
			if errors.Is(err, errInterrupted) {
				return nil, k.raise(count, "KeyboardInterrupt", "interrupted")
			}
			return nil, err
		}
	default:
		if !req.Silent {
			text, _ := json.Marshal(req.Code)
			iopub.Publish(messaging.NewOutputMessage(messaging.ExecuteResult{
				ExecutionCount: count,
				Data:           map[string]json.RawMessage{"text/plain": text},
				Metadata:       map[string]json.RawMessage{},
			}))
		}
	}

	return &messaging.ExecuteReply{
		Status:          messaging.StatusOk,
		ExecutionCount:  count,
		UserExpressions: map[string]json.RawMessage{},
	}, nil
}

var errInterrupted = errors.New("interrupted")

// sleep blocks for duration, checking for interrupts the way a runtime does at safe points.
func (k *FakeKernel) sleep(ctx context.Context, duration time.Duration) error {
	timer := time.NewTimer(duration)
	defer timer.Stop()
	ticker := time.NewTicker(interruptCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-timer.C:
			return nil
		case <-ticker.C:
			if k.runtime.CheckInterrupt() {
				return errInterrupted
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (k *FakeKernel) stream(name messaging.StreamName, text string) {
	k.runtime.IOPub().Publish(messaging.NewOutputMessage(messaging.StreamOutput{Name: name, Text: text + "\n"}))
}

// raise broadcasts an error on IOPub and returns the matching execute error reply.
func (k *FakeKernel) raise(count uint32, name string, value string) error {
	reply := handler.NewExecuteErrorReply(count, name, value)
	k.runtime.IOPub().Publish(messaging.NewOutputMessage(messaging.ExecuteError{Exception: reply.Exception}))
	return reply
}

func (k *FakeKernel) HandleCompleteRequest(_ context.Context, req *messaging.CompleteRequest) (*messaging.CompleteReply, error) {
	cursor := int(req.CursorPos)
	if cursor > len(req.Code) {
		cursor = len(req.Code)
	}
	prefix := req.Code[:cursor]

	matches := make([]string, 0, len(keywords))
	for _, keyword := range keywords {
		if strings.HasPrefix(keyword, prefix) {
			matches = append(matches, keyword)
		}
	}
	return &messaging.CompleteReply{
		Status:      messaging.StatusOk,
		Matches:     matches,
		CursorStart: 0,
		CursorEnd:   uint32(cursor),
		Metadata:    map[string]json.RawMessage{},
	}, nil
}

func (k *FakeKernel) HandleInspectRequest(_ context.Context, req *messaging.InspectRequest) (*messaging.InspectReply, error) {
	reply := &messaging.InspectReply{
		Status:   messaging.StatusOk,
		Data:     map[string]json.RawMessage{},
		Metadata: map[string]json.RawMessage{},
	}
	i := slices.IndexFunc(keywords, func(keyword string) bool { return strings.HasPrefix(req.Code, keyword) })
	if i >= 0 {
		text, _ := json.Marshal(keywords[i] + " is a fake_kernel directive")
		reply.Found = true
		reply.Data["text/plain"] = text
	}
	return reply, nil
}

// HandleCommOpen accepts echo comms. Data messages are sent back unchanged and RPCs are
// answered with their own params.
func (k *FakeKernel) HandleCommOpen(_ context.Context, target string, socket *comm.Socket) (bool, error) {
	if target != EchoCommTarget {
		return false, nil
	}
	go k.echo(socket)
	return true, nil
}

type echoRequest struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

func (k *FakeKernel) echo(socket *comm.Socket) {
	rpc := comm.NewCommHandlers(func(req echoRequest) (json.RawMessage, error) {
		return req.Params, nil
	})

	for msg := range socket.Incoming {
		switch msg.Kind {
		case comm.CloseMsg:
			k.log.Debug("Echo comm %s closed.", socket.ID)
			return
		case comm.DataMsg:
			socket.Send(comm.Data(msg.Data))
		default:
			if _, err := socket.HandleRequest(msg, rpc); err != nil {
				k.log.Warn("Echo comm %s failed to answer %v: %v", socket.ID, msg, err)
			}
		}
	}
}

func (k *FakeKernel) HandleShutdownRequest(_ context.Context, _ *messaging.Originator, req *messaging.ShutdownRequest) (*messaging.ShutdownReply, error) {
	k.log.Debug("Shutting down (restart=%v).", req.Restart)
	return &messaging.ShutdownReply{Status: messaging.StatusOk, Restart: req.Restart}, nil
}

// HandleInterruptRequest acknowledges the request. The kernel raises the interrupt itself
// and a sleeping execution sees it through Runtime.CheckInterrupt.
func (k *FakeKernel) HandleInterruptRequest(_ context.Context, _ *messaging.Originator) (*messaging.InterruptReply, error) {
	return &messaging.InterruptReply{Status: messaging.StatusOk}, nil
}
