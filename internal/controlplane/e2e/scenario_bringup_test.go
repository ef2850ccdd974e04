package e2e

import (
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"

	"github.com/whitefamily/kubera-controlplane/internal/controlplane/wellknown"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// Bring-up: a GatewayClass this controller manages, a Gateway
// attached to it, no routes yet. Within a couple of reconciliation cycles
// the owned ConfigMap/Deployment/Service should exist and the ConfigMap's
// rendered document should carry an empty route table rather than staying
// absent or half-populated.
var _ = Describe("bring-up", func() {
	var h *harness

	BeforeEach(func() {
		h = newHarness(20 * time.Millisecond)
		h.setClasses(gatewayClass("gw-class", "", nil))
		h.setGateways(gateway("demo", "gw1", "gw-class"))
	})

	AfterEach(func() {
		h.stop()
	})

	It("renders an owned ConfigMap carrying an empty route table", func() {
		Eventually(func() (string, error) {
			cm := &corev1.ConfigMap{}
			if err := h.client.Get(h.ctx, client.ObjectKey{Namespace: "demo", Name: "gw1"}, cm); err != nil {
				return "", err
			}
			return cm.Data[wellknown.ConfigMapConfigKey], nil
		}, "2s", "20ms").Should(And(
			ContainSubstring("version: v1alpha1"),
			ContainSubstring("http_routes: []"),
		))
	})

	It("labels the owned ConfigMap as managed by this controller", func() {
		Eventually(func() (string, error) {
			cm := &corev1.ConfigMap{}
			if err := h.client.Get(h.ctx, client.ObjectKey{Namespace: "demo", Name: "gw1"}, cm); err != nil {
				return "", err
			}
			return cm.Labels[wellknown.ManagedByLabel], nil
		}, "2s", "20ms").Should(Equal(wellknown.ManagedByValue))
	})

	It("renders an owned Deployment and Service labeled managed-by this controller", func() {
		Eventually(func() (string, error) {
			dep := &appsv1.Deployment{}
			if err := h.client.Get(h.ctx, client.ObjectKey{Namespace: "demo", Name: "gw1"}, dep); err != nil {
				return "", err
			}
			return dep.Labels[wellknown.ManagedByLabel], nil
		}, "2s", "20ms").Should(Equal(wellknown.ManagedByValue))

		Eventually(func() (string, error) {
			svc := &corev1.Service{}
			if err := h.client.Get(h.ctx, client.ObjectKey{Namespace: "demo", Name: "gw1"}, svc); err != nil {
				return "", err
			}
			return svc.Labels[wellknown.ManagedByLabel], nil
		}, "2s", "20ms").Should(Equal(wellknown.ManagedByValue))
	})

	It("publishes the rendered document to the IPC store", func() {
		ref := gatewayRef("demo", "gw1")
		Eventually(func() bool {
			return h.store.Reader().Exists(ref)
		}, "2s", "20ms").Should(BeTrue())

		doc, ok := h.store.Reader().GetConfiguration(ref)
		Expect(ok).To(BeTrue())
		Expect(strings.Contains(doc, "namespace: demo")).To(BeTrue())
	})
})
