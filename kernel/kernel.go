// Package kernel wires the channel actors, the comm manager and the language handlers
// into a running Jupyter kernel.
package kernel

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/Scusemua/go-utils/config"
	"github.com/Scusemua/go-utils/logger"
	"github.com/pkg/errors"

	"github.com/scusemua/notebook-kernel/common/comm"
	"github.com/scusemua/notebook-kernel/common/dispatch"
	"github.com/scusemua/notebook-kernel/common/jupyter"
	"github.com/scusemua/notebook-kernel/common/jupyter/handler"
	"github.com/scusemua/notebook-kernel/common/jupyter/messaging"
	"github.com/scusemua/notebook-kernel/common/jupyter/server"
	"github.com/scusemua/notebook-kernel/common/jupyter/types"
	"github.com/scusemua/notebook-kernel/common/metrics"
	"github.com/scusemua/notebook-kernel/common/utils"
	"github.com/scusemua/notebook-kernel/common/utils/hashmap"
)

var (
	ErrAlreadyConnected = errors.New("kernel is already connected")
	ErrMissingHandler   = errors.New("shell and control handlers are required")
)

// Handlers are the language backend's implementations of the request handlers.
// Lsp and Dap are optional.
type Handlers struct {
	Shell   handler.ShellHandler
	Control handler.ControlHandler
	Lsp     handler.ServerHandler
	Dap     handler.ServerHandler
}

type Option func(k *Kernel)

// WithDispatcher runs execute requests on the dispatcher's goroutine and forwards
// interrupts to it.
func WithDispatcher(d *dispatch.Dispatcher) Option {
	return func(k *Kernel) {
		k.dispatcher = d
	}
}

func WithMetrics(recorder metrics.Recorder) Option {
	return func(k *Kernel) {
		k.metrics = metrics.Or(recorder)
	}
}

func WithIOPubQueueSize(size int) Option {
	return func(k *Kernel) {
		k.iopubQueueSize = size
	}
}

type socketSpec struct {
	name string
	typ  types.MessageType
	kind types.SocketType
	port int
}

// Kernel owns the sockets of one kernel process and the goroutines serving them.
type Kernel struct {
	log logger.Logger

	Name    string
	Session *types.Session

	conn *jupyter.ConnectionInfo
	reg  *jupyter.RegistrationInfo

	dispatcher     *dispatch.Dispatcher
	metrics        metrics.Recorder
	iopubQueueSize int

	// sockets maps channel names (see types.MessageType) to their sockets.
	sockets *hashmap.CornelkMap[*types.Socket]

	iopub     *server.IOPub
	comms     *comm.Manager
	stdin     *server.Stdin
	shell     *server.Shell
	control   *server.Control
	heartbeat *server.Heartbeat

	connected   int32
	interrupted int32
	initialized chan struct{}
	initOnce    sync.Once

	ctx          context.Context
	cancel       context.CancelFunc
	socketCancel context.CancelFunc
	actors       sync.WaitGroup

	shutdown *messaging.ShutdownRequest
	done     chan struct{}
}

// New creates a kernel for the given connection. reg is non-nil when the kernel was
// launched with a registration file and must report its ports to the supervisor.
func New(name string, conn *jupyter.ConnectionInfo, reg *jupyter.RegistrationInfo, opts ...Option) (*Kernel, error) {
	if err := conn.Validate(); err != nil {
		return nil, err
	}

	session, err := types.NewSessionWithScheme(conn.Key, conn.SignatureScheme)
	if err != nil {
		return nil, err
	}

	k := &Kernel{
		Name:        name,
		Session:     session,
		conn:        conn,
		reg:         reg,
		metrics:     metrics.NopRecorder{},
		sockets:     hashmap.NewCornelkMap[*types.Socket](8),
		initialized: make(chan struct{}),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(k)
	}
	config.InitLogger(&k.log, k)
	return k, nil
}

// Connect opens the five channel sockets and starts serving them. When the kernel has a
// registration file, Connect returns after the supervisor accepted the handshake.
func (k *Kernel) Connect(ctx context.Context, handlers Handlers) error {
	if handlers.Shell == nil || handlers.Control == nil {
		return ErrMissingHandler
	}
	if !atomic.CompareAndSwapInt32(&k.connected, 0, 1) {
		return ErrAlreadyConnected
	}

	// Sockets outlive the kernel context so that IOPub can drain during shutdown.
	socketCtx, socketCancel := context.WithCancel(context.Background())
	k.socketCancel = socketCancel

	specs := []socketSpec{
		{name: "Shell", typ: types.ShellMessage, kind: types.Router, port: k.conn.ShellPort},
		{name: "IOPub", typ: types.IOMessage, kind: types.Pub, port: k.conn.IOPubPort},
		{name: "Heartbeat", typ: types.HBMessage, kind: types.Rep, port: k.conn.HBPort},
		{name: "Stdin", typ: types.StdinMessage, kind: types.Router, port: k.conn.StdinPort},
		{name: "Control", typ: types.ControlMessage, kind: types.Router, port: k.conn.ControlPort},
	}
	for _, spec := range specs {
		socket, err := types.NewSocket(socketCtx, k.Session, spec.name, spec.typ, spec.kind, nil, k.conn.Endpoint(spec.port))
		if err != nil {
			k.log.Error(utils.RedStyle.Render("Failed to create %s socket: %v"), spec.typ, err)
			k.closeSockets()
			socketCancel()
			close(k.done)
			return err
		}
		k.sockets.Store(spec.typ.String(), socket)
		k.log.Debug("%v listening on %s (port %d).", spec.typ, socket.Endpoint, socket.Port())
	}

	k.ctx, k.cancel = context.WithCancel(ctx)

	k.iopub = server.NewIOPub(k.socket(types.IOMessage), k.iopubQueueSize, k.metrics)
	k.comms = comm.NewManager(k.iopub, k.metrics)
	k.stdin = server.NewStdin(k.socket(types.StdinMessage), k.iopub, k.metrics)
	k.heartbeat = server.NewHeartbeat(k.socket(types.HBMessage), k.initialized, k.metrics)
	shellHandler := handlers.Shell
	if k.dispatcher == nil {
		shellHandler = &executeScope{ShellHandler: shellHandler, interrupted: &k.interrupted}
	}
	k.shell = server.NewShell(k.socket(types.ShellMessage), k.iopub, k.comms, shellHandler, server.ShellOptions{
		Lsp:        handlers.Lsp,
		Dap:        handlers.Dap,
		Dispatcher: k.dispatcher,
		Metrics:    k.metrics,
	})
	k.control = server.NewControl(k.socket(types.ControlMessage), k.iopub, handlers.Control, k.interrupt, k.metrics)

	go k.comms.Run(k.ctx)
	go k.iopub.Run()

	k.spawn(func() { k.heartbeat.Serve(k.ctx) })
	k.spawn(func() { k.stdin.Serve(k.ctx) })
	k.spawn(func() { k.shell.Serve(k.ctx) })
	k.spawn(func() {
		if shutdown := k.control.Serve(k.ctx); shutdown != nil {
			k.log.Info("Shutdown requested (restart=%v).", shutdown.Restart)
			k.shutdown = shutdown
			k.cancel()
		}
	})

	go k.finalize()

	if k.reg != nil {
		if err := Handshake(k.ctx, k.Session, k.reg, k.Ports()); err != nil {
			k.log.Error(utils.RedStyle.Render("Registration handshake failed: %v"), err)
			k.Stop()
			return err
		}
	}

	k.log.Info(utils.GreenStyle.Render("Kernel %s connected: %v"), k.Name, k.Ports())
	return nil
}

func (k *Kernel) spawn(fn func()) {
	k.actors.Add(1)
	go func() {
		defer k.actors.Done()
		fn()
	}()
}

// finalize tears the kernel down once its context is done: the actors finish what they
// are handling, open comms are closed, IOPub drains and the sockets close.
func (k *Kernel) finalize() {
	<-k.ctx.Done()
	k.log.Debug("Kernel context done: %v. Waiting for channel actors.", k.ctx.Err())

	k.actors.Wait()

	k.comms.CloseAll()
	k.iopub.Close()
	<-k.iopub.Done()

	k.closeSockets()
	k.socketCancel()

	k.log.Info("Kernel %s stopped.", k.Name)
	close(k.done)
}

func (k *Kernel) interrupt() {
	k.stdin.Interrupt()
	if k.dispatcher != nil {
		k.dispatcher.Interrupt()
		return
	}
	atomic.StoreInt32(&k.interrupted, 1)
}

// CheckInterrupt consumes an interrupt raised while the current execute request runs.
// The language runtime calls it at safe points.
func (k *Kernel) CheckInterrupt() bool {
	if k.dispatcher != nil {
		return k.dispatcher.CheckInterrupt()
	}
	return atomic.CompareAndSwapInt32(&k.interrupted, 1, 0)
}

// executeScope limits interrupts to the execute request they were raised during when no
// dispatcher does so.
type executeScope struct {
	handler.ShellHandler
	interrupted *int32
}

func (h *executeScope) HandleExecuteRequest(ctx context.Context, originator *messaging.Originator, req *messaging.ExecuteRequest) (*messaging.ExecuteReply, error) {
	atomic.StoreInt32(h.interrupted, 0)
	defer atomic.StoreInt32(h.interrupted, 0)
	return h.ShellHandler.HandleExecuteRequest(ctx, originator, req)
}

func (k *Kernel) socket(typ types.MessageType) *types.Socket {
	socket, _ := k.sockets.Load(typ.String())
	return socket
}

func (k *Kernel) closeSockets() {
	k.sockets.Range(func(name string, socket *types.Socket) bool {
		if err := socket.Close(); err != nil {
			k.log.Warn("Error closing %s socket: %v", name, err)
		}
		return true
	})
}

// IOPub queues messages for the front end.
func (k *Kernel) IOPub() comm.Publisher {
	return k.iopub
}

func (k *Kernel) Comms() *comm.Manager {
	return k.comms
}

// Stdin requests input from the front end on behalf of an execute request.
func (k *Kernel) Stdin() handler.InputRequester {
	return k.stdin
}

// SetInitialized lets the heartbeat start answering. The language runtime calls it once
// it is ready to execute code.
func (k *Kernel) SetInitialized() {
	k.initOnce.Do(func() {
		k.log.Debug("Kernel initialized.")
		close(k.initialized)
	})
}

// Ports returns the connection with the ports actually bound.
func (k *Kernel) Ports() *jupyter.ConnectionInfo {
	ports := *k.conn
	bound := map[types.MessageType]*int{
		types.ShellMessage:   &ports.ShellPort,
		types.IOMessage:      &ports.IOPubPort,
		types.HBMessage:      &ports.HBPort,
		types.StdinMessage:   &ports.StdinPort,
		types.ControlMessage: &ports.ControlPort,
	}
	for typ, port := range bound {
		if socket := k.socket(typ); socket != nil && socket.Port() != 0 {
			*port = socket.Port()
		}
	}
	return &ports
}

// Stop shuts the kernel down as if a shutdown request had been answered.
func (k *Kernel) Stop() {
	if k.cancel != nil {
		k.cancel()
	}
}

// Done is closed once every socket of the kernel is closed.
func (k *Kernel) Done() <-chan struct{} {
	return k.done
}

// Wait blocks until the kernel stopped and returns the shutdown request that stopped it,
// or nil if it was stopped otherwise.
func (k *Kernel) Wait() *messaging.ShutdownRequest {
	<-k.done
	return k.shutdown
}
