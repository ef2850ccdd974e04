package e2e

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/whitefamily/kubera-controlplane/internal/controlplane/ipc"
)

// Route attach: an HTTPRoute naming an already-attached Gateway as
// its parent should show up in that Gateway's rendered document on the
// next cycle, the referenced backend resolved against any EndpointSlice
// observations for it, and a ConfigurationUpdate event should reach
// subscribers on the bus.
var _ = Describe("route attach", func() {
	var (
		h   *harness
		ref = gatewayRef("demo", "gw1")
	)

	BeforeEach(func() {
		h = newHarness(20 * time.Millisecond)
		h.setClasses(gatewayClass("gw-class", "", nil))
		h.setGateways(gateway("demo", "gw1", "gw-class"))

		Eventually(func() bool {
			return h.store.Reader().Exists(ref)
		}, "2s", "20ms").Should(BeTrue())
	})

	AfterEach(func() {
		h.stop()
	})

	It("adds the route's host and backend to the rendered document", func() {
		sub := h.bus.NamedGatewayEvents(ref)
		defer sub.Close()

		h.setEndpointSlices(endpointSlice("demo", "svc-a-abcde", "svc-a", "10.0.0.1", "10.0.0.2"))
		h.setRoutes(httpRoute("demo", "route1", "gw1", "demo.example.com", "/", "svc-a", 80))

		var ev ipc.Event
		Eventually(sub.Events(), "2s", "20ms").Should(Receive(&ev))
		Expect(ev.Kind).To(Equal(ipc.ConfigurationUpdate))
		Expect(ev.Ref).To(Equal(ref))

		Eventually(func() (string, error) {
			doc, ok := h.store.Reader().GetConfiguration(ref)
			if !ok {
				return "", nil
			}
			return doc, nil
		}, "2s", "20ms").Should(And(
			ContainSubstring("demo.example.com"),
			ContainSubstring("name: svc-a"),
			ContainSubstring("10.0.0.1"),
			ContainSubstring("10.0.0.2"),
		))
	})

	It("drops the route from the document once it is removed", func() {
		h.setEndpointSlices(endpointSlice("demo", "svc-a-abcde", "svc-a", "10.0.0.1"))
		h.setRoutes(httpRoute("demo", "route1", "gw1", "demo.example.com", "/", "svc-a", 80))

		Eventually(func() (string, error) {
			doc, _ := h.store.Reader().GetConfiguration(ref)
			return doc, nil
		}, "2s", "20ms").Should(ContainSubstring("demo.example.com"))

		h.setRoutes()

		Eventually(func() (string, error) {
			doc, _ := h.store.Reader().GetConfiguration(ref)
			return doc, nil
		}, "2s", "20ms").ShouldNot(ContainSubstring("demo.example.com"))
	})
})
