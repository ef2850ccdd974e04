package e2e

import (
	"bufio"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/whitefamily/kubera-controlplane/internal/controlplane/health"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/ipc/httpapi"
)

// SSE over HTTP: the live pipeline's bus, fronted by the real httpapi
// handler, delivers a framed Gateway::ConfigurationUpdate to a data-plane
// client subscribed to the Gateway's event stream -- the wire-level
// contract, driven end to end rather than at the bus API.
var _ = Describe("sse event stream over http", func() {
	var (
		h  *harness
		ts *httptest.Server
	)

	BeforeEach(func() {
		h = newHarness(20 * time.Millisecond)
		h.setClasses(gatewayClass("gw-class", "", nil))
		h.setGateways(gateway("demo", "gw1", "gw-class"))

		log := slog.New(slog.NewTextHandler(io.Discard, nil))
		srv := httpapi.New(log, h.store.Reader(), h.bus, h.cache, health.AlwaysHealthy, 50*time.Millisecond)
		ts = httptest.NewServer(srv.Handler())

		Eventually(func() bool {
			return h.store.Reader().Exists(gatewayRef("demo", "gw1"))
		}, "2s", "20ms").Should(BeTrue())
	})

	AfterEach(func() {
		ts.Close()
		h.stop()
	})

	It("streams a framed ConfigurationUpdate when the document changes", func() {
		client := &http.Client{Timeout: 5 * time.Second}
		resp, err := client.Get(ts.URL + "/ipc/namespaces/demo/gateways/gw1/events?pod_name=dp-0")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(resp.Header.Get("Content-Type")).To(Equal("text/event-stream"))

		// Attaching a route changes the rendered document, which must reach
		// this already-open stream as one named event plus its ref payload.
		h.setRoutes(httpRoute("demo", "route1", "gw1", "demo.example.com", "/", "svc-a", 80))

		scanner := bufio.NewScanner(resp.Body)
		var eventLine, dataLine string
		for scanner.Scan() {
			line := scanner.Text()
			if strings.HasPrefix(line, "event: ") {
				eventLine = line
			}
			if strings.HasPrefix(line, "data: ") {
				dataLine = line
				break
			}
		}
		Expect(eventLine).To(Equal("event: Gateway::ConfigurationUpdate"))
		Expect(dataLine).To(ContainSubstring(`"name":"gw1"`))
		Expect(dataLine).To(ContainSubstring(`"namespace":"demo"`))
	})

	It("404s the event stream for an unknown gateway", func() {
		resp, err := http.Get(ts.URL + "/ipc/namespaces/demo/gateways/no-such/events")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
	})
})
