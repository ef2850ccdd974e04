package e2e

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apimeta "k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/whitefamily/kubera-controlplane/api/v1alpha1"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/filterstatus"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/objects"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/wellknown"
)

// Static response: the static-response body cache decodes a filter's
// Text or Binary body on first request, tracks a replacement, and refuses a
// filter whose body fails to decode rather than serving stale bytes.
var _ = Describe("static response filter", func() {
	var h *harness

	BeforeEach(func() {
		h = newHarness(20 * time.Millisecond)
	})

	AfterEach(func() {
		h.stop()
	})

	It("decodes a text body and picks up a binary replacement", func() {
		id := objects.UniqueID("demo/maintenance")
		text := "service unavailable"

		h.setStaticFilters(&v1alpha1.StaticResponseFilter{
			ObjectMeta: metav1.ObjectMeta{Namespace: "demo", Name: "maintenance"},
			Spec: v1alpha1.StaticResponseFilterSpec{
				StatusCode: 503,
				Body: &v1alpha1.StaticResponseBody{
					Format:      v1alpha1.StaticResponseBodyFormatText,
					Text:        &text,
					ContentType: "text/plain",
				},
			},
		})

		Eventually(func() bool {
			_, ok := h.cache.Get(id)
			return ok
		}, "2s", "20ms").Should(BeTrue())

		body, ok := h.cache.Get(id)
		Expect(ok).To(BeTrue())
		Expect(string(body.Bytes)).To(Equal(text))
		Expect(body.ContentType).To(Equal("text/plain"))

		encoded := "aGVsbG8" // base64.RawURLEncoding of "hello"
		h.setStaticFilters(&v1alpha1.StaticResponseFilter{
			ObjectMeta: metav1.ObjectMeta{Namespace: "demo", Name: "maintenance"},
			Spec: v1alpha1.StaticResponseFilterSpec{
				StatusCode: 503,
				Body: &v1alpha1.StaticResponseBody{
					Format:      v1alpha1.StaticResponseBodyFormatBinary,
					Binary:      &encoded,
					ContentType: "application/octet-stream",
				},
			},
		})

		Eventually(func() string {
			b, ok := h.cache.Get(id)
			if !ok {
				return ""
			}
			return string(b.Bytes)
		}, "2s", "20ms").Should(Equal("hello"))
	})

	It("patches Accepted onto a filter referenced by a managed route", func() {
		filter := &v1alpha1.StaticResponseFilter{
			ObjectMeta: metav1.ObjectMeta{Namespace: "demo", Name: "maintenance"},
			Spec: v1alpha1.StaticResponseFilterSpec{
				StatusCode: 503,
				Body: &v1alpha1.StaticResponseBody{
					Format:      v1alpha1.StaticResponseBodyFormatText,
					Text:        ptrTo("service unavailable"),
					ContentType: "text/plain",
				},
			},
		}
		Expect(h.client.Create(h.ctx, filter.DeepCopy())).To(Succeed())

		h.setClasses(gatewayClass("gw-class", "", nil))
		h.setGateways(gateway("demo", "gw1", "gw-class"))
		h.setStaticFilters(filter)
		h.setRoutes(httpRouteWithExtensionRef("demo", "r1", "gw1", "demo.example.com", "/",
			wellknown.KuberaGroup, wellknown.StaticResponseFilterKind, "maintenance"))

		Eventually(func() string {
			var got v1alpha1.StaticResponseFilter
			if err := h.client.Get(h.ctx, client.ObjectKey{Namespace: "demo", Name: "maintenance"}, &got); err != nil {
				return ""
			}
			cond := apimeta.FindStatusCondition(got.Status.Conditions, filterstatus.ConditionTypeAccepted)
			if cond == nil {
				return ""
			}
			return cond.Reason
		}, "2s", "20ms").Should(Equal(string(filterstatus.ReasonAccepted)))
	})

	It("refuses a filter whose binary body fails to decode", func() {
		id := objects.UniqueID("demo/broken")
		bad := "not-valid-base64!!"

		h.setStaticFilters(&v1alpha1.StaticResponseFilter{
			ObjectMeta: metav1.ObjectMeta{Namespace: "demo", Name: "broken"},
			Spec: v1alpha1.StaticResponseFilterSpec{
				StatusCode: 500,
				Body: &v1alpha1.StaticResponseBody{
					Format: v1alpha1.StaticResponseBodyFormatBinary,
					Binary: &bad,
				},
			},
		})

		Consistently(func() bool {
			_, ok := h.cache.Get(id)
			return ok
		}, "300ms", "20ms").Should(BeFalse())
	})
})
