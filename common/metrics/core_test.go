package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/scusemua/notebook-kernel/common/metrics"
)

var _ = Describe("KernelPrometheusManager", func() {
	var manager *metrics.KernelPrometheusManager

	BeforeEach(func() {
		manager = metrics.NewKernelPrometheusManager(0, "test-kernel")
	})

	AfterEach(func() {
		if manager.IsRunning() {
			Expect(manager.Stop()).To(Succeed())
		}
	})

	It("Will count messages per channel and type", func() {
		manager.MessageReceived("shell", "execute_request")
		manager.MessageReceived("shell", "execute_request")
		manager.MessageSent("iopub", "status")
		manager.MessageDropped("shell", "bad_signature")

		Expect(testutil.ToFloat64(manager.MessagesReceivedCounterVec.WithLabelValues("shell", "execute_request"))).To(Equal(2.0))
		Expect(testutil.ToFloat64(manager.MessagesSentCounterVec.WithLabelValues("iopub", "status"))).To(Equal(1.0))
		Expect(testutil.ToFloat64(manager.MessagesDroppedCounterVec.WithLabelValues("shell", "bad_signature"))).To(Equal(1.0))
	})

	It("Will track open comms and task latency", func() {
		manager.CommsOpen(3)
		Expect(testutil.ToFloat64(manager.OpenCommsGauge)).To(Equal(3.0))

		manager.TaskDispatched(2 * time.Millisecond)
		Expect(testutil.CollectAndCount(manager.TaskLatencyMicroseconds)).To(Equal(1))
	})

	It("Will serve the metrics over HTTP once started", func() {
		Expect(manager.Start()).To(Succeed())
		Expect(manager.Start()).To(MatchError(metrics.ErrPrometheusManagerAlreadyRunning))

		manager.MessageSent("shell", "kernel_info_reply")

		recorder := httptest.NewRecorder()
		manager.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		Expect(recorder.Code).To(Equal(http.StatusOK))

		body, err := io.ReadAll(recorder.Body)
		Expect(err).To(BeNil())
		Expect(string(body)).To(ContainSubstring("notebook_kernel_messages_sent_total"))
		Expect(string(body)).To(ContainSubstring(`kernel="test-kernel"`))
	})

	It("Will treat a nil recorder as a no-op", func() {
		recorder := metrics.Or(nil)
		Expect(recorder).To(Equal(metrics.NopRecorder{}))
		recorder.MessageReceived("shell", "execute_request")

		Expect(metrics.Or(manager)).To(BeIdenticalTo(manager))
	})
})
