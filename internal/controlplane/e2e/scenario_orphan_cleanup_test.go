package e2e

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/whitefamily/kubera-controlplane/internal/controlplane/ipc"
)

// Orphan cleanup: once a Gateway disappears from the watched
// collection, its owned ConfigMap/Deployment/Service must be deleted and
// its document retracted from the IPC store, with a Deleted event reaching
// bus subscribers so the data plane knows to stop serving on its behalf.
var _ = Describe("orphan cleanup", func() {
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

		key := client.ObjectKey{Namespace: "demo", Name: "gw1"}
		Eventually(func() error {
			return h.client.Get(h.ctx, key, &corev1.ConfigMap{})
		}, "2s", "20ms").Should(Succeed())
		Eventually(func() error {
			return h.client.Get(h.ctx, key, &appsv1.Deployment{})
		}, "2s", "20ms").Should(Succeed())
		Eventually(func() error {
			return h.client.Get(h.ctx, key, &corev1.Service{})
		}, "2s", "20ms").Should(Succeed())
	})

	AfterEach(func() {
		h.stop()
	})

	It("deletes every owned object and retracts the document", func() {
		sub := h.bus.NamedGatewayEvents(ref)
		defer sub.Close()

		h.setGateways()

		var ev ipc.Event
		Eventually(sub.Events(), "2s", "20ms").Should(Receive(&ev))
		Expect(ev.Kind).To(Equal(ipc.Deleted))
		Expect(ev.Ref).To(Equal(ref))

		key := client.ObjectKey{Namespace: "demo", Name: "gw1"}
		Eventually(func() bool {
			err := h.client.Get(h.ctx, key, &corev1.ConfigMap{})
			return apierrors.IsNotFound(err)
		}, "2s", "20ms").Should(BeTrue())
		Eventually(func() bool {
			err := h.client.Get(h.ctx, key, &appsv1.Deployment{})
			return apierrors.IsNotFound(err)
		}, "2s", "20ms").Should(BeTrue())
		Eventually(func() bool {
			err := h.client.Get(h.ctx, key, &corev1.Service{})
			return apierrors.IsNotFound(err)
		}, "2s", "20ms").Should(BeTrue())

		Eventually(func() bool {
			return h.store.Reader().Exists(ref)
		}, "2s", "20ms").Should(BeFalse())
	})
})
