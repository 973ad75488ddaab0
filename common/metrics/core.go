package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Scusemua/go-utils/config"
	"github.com/Scusemua/go-utils/logger"
	"github.com/gin-gonic/contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/scusemua/notebook-kernel/common/utils"
)

const Namespace = "notebook_kernel"

var (
	ErrPrometheusManagerAlreadyRunning = errors.New("KernelPrometheusManager is already running")
	ErrPrometheusManagerNotRunning     = errors.New("KernelPrometheusManager is not running")
)

// KernelPrometheusManager records kernel metrics and serves them on /metrics.
type KernelPrometheusManager struct {
	log logger.Logger

	registry          *prometheus.Registry
	prometheusHandler http.Handler
	engine            *gin.Engine
	httpServer        *http.Server

	// MessagesReceivedCounterVec counts Jupyter messages parsed per channel and msg_type.
	MessagesReceivedCounterVec *prometheus.CounterVec

	// MessagesSentCounterVec counts Jupyter messages sent per channel and msg_type.
	MessagesSentCounterVec *prometheus.CounterVec

	// MessagesDroppedCounterVec counts messages dropped per channel and reason.
	MessagesDroppedCounterVec *prometheus.CounterVec

	// OpenCommsGauge is the number of comms currently open.
	OpenCommsGauge prometheus.Gauge

	// TaskLatencyMicroseconds is the time between queueing a task for the main goroutine and its completion.
	TaskLatencyMicroseconds prometheus.Histogram

	kernelName string
	port       int
	mu         sync.Mutex
	serving    bool
}

// NewKernelPrometheusManager creates the metrics. The HTTP server starts with Start and only when port > 0.
func NewKernelPrometheusManager(port int, kernelName string) *KernelPrometheusManager {
	m := &KernelPrometheusManager{
		registry:   prometheus.NewRegistry(),
		kernelName: kernelName,
		port:       port,
	}
	config.InitLogger(&m.log, m)

	labels := prometheus.Labels{"kernel": kernelName}

	m.MessagesReceivedCounterVec = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   Namespace,
		Name:        "messages_received_total",
		Help:        "The number of Jupyter messages received and parsed.",
		ConstLabels: labels,
	}, []string{"channel", "jupyter_message_type"})

	m.MessagesSentCounterVec = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   Namespace,
		Name:        "messages_sent_total",
		Help:        "The number of Jupyter messages sent.",
		ConstLabels: labels,
	}, []string{"channel", "jupyter_message_type"})

	m.MessagesDroppedCounterVec = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   Namespace,
		Name:        "messages_dropped_total",
		Help:        "The number of messages that were malformed, unsupported or failed to send.",
		ConstLabels: labels,
	}, []string{"channel", "reason"})

	m.OpenCommsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   Namespace,
		Name:        "open_comms",
		Help:        "The number of comms currently open.",
		ConstLabels: labels,
	})

	m.TaskLatencyMicroseconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace:   Namespace,
		Name:        "main_thread_task_latency_microseconds",
		Help:        "Time in microseconds from queueing a task for the interpreter goroutine until it finished.",
		Buckets:     []float64{100, 500, 1000, 5000, 10e3, 50e3, 100e3, 500e3, 1e6, 5e6, 30e6, 60e6},
		ConstLabels: labels,
	})

	m.registry.MustRegister(
		m.MessagesReceivedCounterVec,
		m.MessagesSentCounterVec,
		m.MessagesDroppedCounterVec,
		m.OpenCommsGauge,
		m.TaskLatencyMicroseconds,
	)
	m.prometheusHandler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})

	return m
}

func (m *KernelPrometheusManager) MessageReceived(channel string, msgType string) {
	m.MessagesReceivedCounterVec.WithLabelValues(channel, msgType).Inc()
}

func (m *KernelPrometheusManager) MessageSent(channel string, msgType string) {
	m.MessagesSentCounterVec.WithLabelValues(channel, msgType).Inc()
}

func (m *KernelPrometheusManager) MessageDropped(channel string, reason string) {
	m.MessagesDroppedCounterVec.WithLabelValues(channel, reason).Inc()
}

func (m *KernelPrometheusManager) CommsOpen(n int) {
	m.OpenCommsGauge.Set(float64(n))
}

func (m *KernelPrometheusManager) TaskDispatched(latency time.Duration) {
	m.TaskLatencyMicroseconds.Observe(float64(latency.Microseconds()))
}

// Registry exposes the underlying registry, mostly for tests.
func (m *KernelPrometheusManager) Registry() *prometheus.Registry {
	return m.registry
}

func (m *KernelPrometheusManager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.serving
}

// Handler returns the gin engine serving /metrics. It is nil until Start.
func (m *KernelPrometheusManager) Handler() http.Handler {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.engine
}

func (m *KernelPrometheusManager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.serving {
		m.log.Warn("KernelPrometheusManager for kernel %s is already running.", m.kernelName)
		return ErrPrometheusManagerAlreadyRunning
	}

	m.serving = true
	m.initializeHttpServer()
	return nil
}

func (m *KernelPrometheusManager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.serving {
		return ErrPrometheusManagerNotRunning
	}

	m.serving = false
	if m.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.httpServer.Shutdown(ctx); err != nil {
		m.log.Error("Failed to cleanly shutdown the HTTP server: %v", err)
		return err
	}
	return nil
}

func (m *KernelPrometheusManager) HandleRequest(c *gin.Context) {
	m.prometheusHandler.ServeHTTP(c.Writer, c.Request)
}

func (m *KernelPrometheusManager) initializeHttpServer() {
	gin.SetMode(gin.ReleaseMode)
	m.engine = gin.New()
	m.engine.Use(gin.Recovery())
	m.engine.Use(cors.Default())
	m.engine.GET("/metrics", m.HandleRequest)

	if m.port <= 0 {
		m.log.Debug("Prometheus Port is set to %d. Not serving HTTP server.", m.port)
		return
	}

	address := fmt.Sprintf("0.0.0.0:%d", m.port)
	m.httpServer = &http.Server{
		Addr:    address,
		Handler: m.engine,
	}

	go func() {
		m.log.Debug("Serving Prometheus metrics at %s", address)
		if err := m.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.log.Error(utils.RedStyle.Render("HTTP Server failed to listen on '%s'. Error: %v"), address, err)
		}
	}()
}
