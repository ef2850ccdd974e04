package e2e

import (
	"context"
	"io"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"k8s.io/client-go/kubernetes/fake"

	"github.com/whitefamily/kubera-controlplane/internal/controlplane/role"
)

// Leader failover: two replicas contend for the same Lease; killing
// the current primary must hand the role to the survivor within roughly
// one lease duration, and the survivor must never observe itself as
// Primary until it actually wins.
var _ = Describe("leader failover", func() {
	const (
		checkInterval = 30 * time.Millisecond
		leaseDuration = 300 * time.Millisecond
	)

	It("hands Primary to the surviving replica once the current one is cancelled", func() {
		log := slog.New(slog.NewTextHandler(io.Discard, nil))
		clientset := fake.NewSimpleClientset()

		ctrlA, roleA, _ := role.New(log, clientset, "demo", "kubera-primary-lock", "pod-a", checkInterval, leaseDuration)
		ctrlB, roleB, _ := role.New(log, clientset, "demo", "kubera-primary-lock", "pod-b", checkInterval, leaseDuration)

		ctxA, cancelA := context.WithCancel(context.Background())
		ctxB, cancelB := context.WithCancel(context.Background())
		defer cancelB()

		doneA := make(chan error, 1)
		doneB := make(chan error, 1)
		go func() { doneA <- ctrlA.Run(ctxA) }()
		go func() { doneB <- ctrlB.Run(ctxB) }()

		Eventually(func() role.Role {
			r, _ := roleA.TryGet()
			return r
		}, "2s", "20ms").Should(Equal(role.Primary))

		Consistently(func() role.Role {
			r, _ := roleB.TryGet()
			return r
		}, "200ms", "20ms").ShouldNot(Equal(role.Primary))

		cancelA()
		Eventually(doneA, "1s").Should(Receive())

		Eventually(func() role.Role {
			r, _ := roleB.TryGet()
			return r
		}, "3s", "20ms").Should(Equal(role.Primary))
	})

	It("starts both replicas Undetermined before either acquires the lease", func() {
		log := slog.New(slog.NewTextHandler(io.Discard, nil))
		clientset := fake.NewSimpleClientset()

		_, roleA, _ := role.New(log, clientset, "demo", "kubera-primary-lock-2", "pod-a", checkInterval, leaseDuration)
		_, roleB, _ := role.New(log, clientset, "demo", "kubera-primary-lock-2", "pod-b", checkInterval, leaseDuration)

		rA, _ := roleA.TryGet()
		rB, _ := roleB.TryGet()
		Expect(rA).To(Equal(role.Undetermined))
		Expect(rB).To(Equal(role.Undetermined))
	})
})
