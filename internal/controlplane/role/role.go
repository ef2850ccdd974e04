// Package role runs the lease-backed primary/redundant election this
// control plane gates every write behind, driving client-go's
// leaderelection.LeaderElector directly rather than through a
// controller-runtime manager: the manager blocks non-leader replicas
// entirely, but every writer here must keep running unelected -- reading
// the role signal and suspending writes, not being torn down -- so
// Redundant has to be an observable state, not an absence of one.
package role

import (
	"context"
	"log/slog"
	"sync"
	"time"

	coordinationv1 "k8s.io/api/coordination/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/leaderelection"
	"k8s.io/client-go/tools/leaderelection/resourcelock"

	"github.com/whitefamily/kubera-controlplane/internal/controlplane/metrics"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/objects"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/signalbus"
)

// Role is this replica's current standing in the election.
type Role int

const (
	// Undetermined is the initial state, and the state an API error drives
	// the signal back to.
	Undetermined Role = iota
	Primary
	Redundant
)

func (r Role) String() string {
	switch r {
	case Primary:
		return "Primary"
	case Redundant:
		return "Redundant"
	default:
		return "Undetermined"
	}
}

// Controller runs the acquire-or-renew loop against a Lease named
// "{instance}-primary-lock" and publishes the outcome on a Role signal, and
// the current holder's pod IP on a separate signal so redundant replicas
// can redirect data-plane traffic to the primary.
type Controller struct {
	client        kubernetes.Interface
	namespace     string
	leaseName     string
	identity      string
	checkInterval time.Duration
	leaseDuration time.Duration
	podIPsMu      sync.RWMutex
	podIPs        map[string]string // holder identity -> pod IP, set via SetPodIPs

	roleSend signalbus.Sender[Role]
	ipSend   signalbus.Sender[string]

	log *slog.Logger
}

// New constructs a Controller. identity is the lease holder id (typically
// the pod name); leaseName is "{instance}-primary-lock".
func New(log *slog.Logger, client kubernetes.Interface, namespace, leaseName, identity string, checkInterval, leaseDuration time.Duration) (*Controller, signalbus.Receiver[Role], signalbus.Receiver[string]) {
	roleSend, roleRecv := signalbus.New[Role](func(a, b Role) bool { return a == b })
	ipSend, ipRecv := signalbus.New[string](func(a, b string) bool { return a == b })
	c := &Controller{
		client:        client,
		namespace:     namespace,
		leaseName:     leaseName,
		identity:      identity,
		checkInterval: checkInterval,
		leaseDuration: leaseDuration,
		roleSend:      roleSend,
		ipSend:        ipSend,
		log:           log.With("component", "role"),
	}
	c.setRole(Undetermined)
	return c, roleRecv, ipRecv
}

// setRole publishes r on the role signal and reflects it onto the Role
// gauge, which carries one time series per Role variant (1 for the one
// currently held, 0 for the other two) rather than a single numeric value.
func (c *Controller) setRole(r Role) {
	c.roleSend.Set(r)
	for _, candidate := range []Role{Undetermined, Primary, Redundant} {
		v := 0.0
		if candidate == r {
			v = 1
		}
		metrics.Role.WithLabelValues(candidate.String()).Set(v)
	}
}

// SetPodIPs replaces the holder-identity -> pod IP lookup table used to
// resolve the current lease holder's address. RunPodIPFeed refreshes it
// from a watch of this control plane's own replica pods as they come and
// go; an identity with no entry simply never publishes on the IP signal.
func (c *Controller) SetPodIPs(ips map[string]string) {
	c.podIPsMu.Lock()
	c.podIPs = ips
	c.podIPsMu.Unlock()
}

// Run drives the election until ctx is cancelled, at which point -- if
// currently Primary -- it releases the lease before returning.
func (c *Controller) Run(ctx context.Context) error {
	lock := &resourcelock.LeaseLock{
		LeaseMeta: metav1.ObjectMeta{Name: c.leaseName, Namespace: c.namespace},
		Client:    c.client.CoordinationV1(),
		LockConfig: resourcelock.ResourceLockConfig{
			Identity: c.identity,
		},
	}

	elector, err := leaderelection.NewLeaderElector(leaderelection.LeaderElectionConfig{
		Lock:          lock,
		LeaseDuration: c.leaseDuration,
		RenewDeadline: c.leaseDuration * 2 / 3,
		RetryPeriod:   c.checkInterval,
		Callbacks: leaderelection.LeaderCallbacks{
			OnStartedLeading: func(context.Context) {
				c.log.Info("acquired lease", "lease", c.leaseName)
				c.setRole(Primary)
			},
			OnStoppedLeading: func() {
				c.log.Info("lost lease", "lease", c.leaseName)
				c.setRole(Redundant)
			},
			OnNewLeader: func(holder string) {
				if holder != c.identity {
					c.setRole(Redundant)
				}
			},
		},
		ReleaseOnCancel: true,
	})
	if err != nil {
		c.setRole(Undetermined)
		return err
	}

	go c.pollHolderIP(ctx, lock)

	elector.Run(ctx)
	return nil
}

// pollHolderIP periodically reads the Lease object directly to recover the
// current holder's identity, publishing it so callers that expose a
// "redirect to primary" facility can use it; lease read errors publish
// Undetermined on the role signal without touching the IP signal, per the
// "API error -> Undetermined" error policy.
func (c *Controller) pollHolderIP(ctx context.Context, lock *resourcelock.LeaseLock) {
	ticker := time.NewTicker(c.checkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		lease, err := c.client.CoordinationV1().Leases(c.namespace).Get(ctx, c.leaseName, metav1.GetOptions{})
		if err != nil {
			if !apierrors.IsNotFound(err) {
				c.log.Warn("reading lease for holder IP", "error", err)
				c.setRole(Undetermined)
			}
			continue
		}
		c.publishHolderIP(lease)
	}
}

// PodIPTable derives the holder-identity -> pod IP table SetPodIPs expects
// from a watched collection of this control plane's own replica pods. Pods
// without an assigned IP yet, and tombstoned pods, contribute nothing.
func PodIPTable(pods objects.Collection[*corev1.Pod]) map[string]string {
	out := map[string]string{}
	pods.Iter(func(it objects.Item[*corev1.Pod]) {
		if it.State.IsDeleted() {
			return
		}
		pod := it.State.Get()
		if pod.Status.PodIP == "" {
			return
		}
		out[pod.GetName()] = pod.Status.PodIP
	})
	return out
}

// RunPodIPFeed refreshes c's pod IP table from a signal of replica-pod
// observations until ctx is cancelled. Run as its own supervisor task
// alongside Controller.Run, it keeps publishHolderIP able to resolve
// whichever replica currently holds the lease.
func (c *Controller) RunPodIPFeed(ctx context.Context, pods signalbus.Receiver[objects.Collection[*corev1.Pod]]) error {
	recv := pods.Clone()
	for {
		snap, err := recv.Changed(ctx)
		if err != nil {
			return ctx.Err()
		}
		c.SetPodIPs(PodIPTable(snap))
	}
}

func (c *Controller) publishHolderIP(lease *coordinationv1.Lease) {
	if lease.Spec.HolderIdentity == nil {
		return
	}
	c.podIPsMu.RLock()
	ip, ok := c.podIPs[*lease.Spec.HolderIdentity]
	c.podIPsMu.RUnlock()
	if ok {
		c.ipSend.Set(ip)
	}
}
