package e2e

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	gwv1 "sigs.k8s.io/gateway-api/apis/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/whitefamily/kubera-controlplane/api/v1alpha1"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/classstatus"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/wellknown"
)

// Invalid class parameters: a GatewayClass whose parametersRef names
// a kind this controller doesn't recognize as its own parameters CRD must
// be patched Ready=False/InvalidParametersRefKind, and a GatewayClass
// naming a parametersRef in the right group/kind but a missing object must
// be patched Ready=False/MissingParameters.
var _ = Describe("invalid class parameters", func() {
	var h *harness

	BeforeEach(func() {
		h = newHarness(20 * time.Millisecond)
	})

	AfterEach(func() {
		h.stop()
	})

	patchedReady := func(h *harness, name string) func() (metav1.Condition, bool) {
		return func() (metav1.Condition, bool) {
			gc := &gwv1.GatewayClass{}
			if err := h.client.Get(h.ctx, client.ObjectKey{Name: name}, gc); err != nil {
				return metav1.Condition{}, false
			}
			for _, c := range gc.Status.Conditions {
				if c.Type == classstatus.ConditionTypeReady {
					return c, true
				}
			}
			return metav1.Condition{}, false
		}
	}

	It("marks InvalidParametersRefKind when the ref names the wrong kind", func() {
		ref := &gwv1.ParametersReference{Group: "example.com", Kind: "SomeOtherKind", Name: "p1"}
		class := gatewayClass("gw-class", "", ref)
		Expect(h.client.Create(h.ctx, class)).To(Succeed())
		h.setClasses(class)

		Eventually(func() string {
			c, ok := patchedReady(h, "gw-class")()
			if !ok {
				return ""
			}
			return string(c.Reason)
		}, "2s", "20ms").Should(Equal(string(wellknown.ReasonInvalidParametersRefKind)))

		c, _ := patchedReady(h, "gw-class")()
		Expect(c.Status).To(Equal(metav1.ConditionFalse))
	})

	It("marks MissingParameters when the referenced object does not exist", func() {
		ref := &gwv1.ParametersReference{
			Group: gwv1.Group(wellknown.KuberaGroup),
			Kind:  gwv1.Kind(wellknown.GatewayClassParametersKind),
			Name:  "absent",
		}
		class := gatewayClass("gw-class", "", ref)
		Expect(h.client.Create(h.ctx, class)).To(Succeed())
		h.setClasses(class)

		Eventually(func() string {
			c, ok := patchedReady(h, "gw-class")()
			if !ok {
				return ""
			}
			return string(c.Reason)
		}, "2s", "20ms").Should(Equal(string(wellknown.ReasonMissingParameters)))
	})

	It("marks Reconciled once the referenced parameters object exists", func() {
		ref := &gwv1.ParametersReference{
			Group: gwv1.Group(wellknown.KuberaGroup),
			Kind:  gwv1.Kind(wellknown.GatewayClassParametersKind),
			Name:  "defaults",
		}
		class := gatewayClass("gw-class", "", ref)
		Expect(h.client.Create(h.ctx, class)).To(Succeed())

		params := &v1alpha1.GatewayClassParameters{
			ObjectMeta: metav1.ObjectMeta{Name: "defaults"},
		}
		h.setClasses(class)
		h.setClassParams(params)

		Eventually(func() string {
			c, ok := patchedReady(h, "gw-class")()
			if !ok {
				return ""
			}
			return string(c.Reason)
		}, "2s", "20ms").Should(Equal(string(wellknown.ReasonReconciled)))
	})
})
