// Package watcher adapts istio.io/istio's typed client-informer stack
// (pkg/kube/kclient, pkg/kube/controllers) to this control plane's
// reactive pipeline: for every watched kind it maintains an
// objects.Collection[K] snapshot and republishes it on a signalbus.Sender
// whenever the underlying informer observes a change -- an informer's
// add/update/delete event stream reshaped into a latest-value signal
// instead of a work queue.
package watcher

import (
	"context"
	"log/slog"
	"reflect"

	"istio.io/istio/pkg/kube"
	"istio.io/istio/pkg/kube/controllers"
	"istio.io/istio/pkg/kube/kclient"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"

	"github.com/whitefamily/kubera-controlplane/internal/controlplane/metrics"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/objects"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/signalbus"
)

// Object is the subset of a Kubernetes object this adapter needs to derive
// an objects.Ref and objects.UniqueID from.
type Object interface {
	GetNamespace() string
	GetName() string
	GetUID() types.UID
}

// Watcher publishes a Collection[K] signal for one Kubernetes kind.
type Watcher[K controllers.Object] struct {
	gvk    schema.GroupVersionKind
	client kclient.Informer[K]
	send   signalbus.Sender[objects.Collection[K]]
	log    *slog.Logger

	snapshot objects.Collection[K]

	// pendingPurge holds the refs published as tombstones in the previous
	// snapshot. They are dropped from the snapshot on the next event this
	// watcher processes, giving every tombstone exactly one publication as
	// an observable Deleted entry before it is purged -- a compare-and-set
	// signal has no way for a receiver to acknowledge it has integrated a
	// value, so one observable epoch per deletion is the contract.
	pendingPurge []objects.Ref
}

// New wires a Watcher for kind gvk using client, and returns its output
// receiver. The returned Watcher must be run as a supervisor task; Run
// performs the initial list-then-watch sync before the first publish, per
// the resource-watcher adapter's "emits a snapshot once the initial list
// completes" contract.
func New[K controllers.Object](log *slog.Logger, gvk schema.GroupVersionKind, client kclient.Informer[K]) (*Watcher[K], signalbus.Receiver[objects.Collection[K]]) {
	eq := func(a, b objects.Collection[K]) bool {
		return objects.Equal(a, b, func(x, y K) bool { return reflect.DeepEqual(x, y) })
	}
	sender, receiver := signalbus.New[objects.Collection[K]](eq)
	w := &Watcher[K]{
		gvk:      gvk,
		client:   client,
		send:     sender,
		log:      log.With("kind", gvk.Kind),
		snapshot: objects.Empty[K](),
	}
	return w, receiver
}

func refOf[K Object](gvk schema.GroupVersionKind, o K) objects.Ref {
	return objects.Ref{
		Group:     gvk.Group,
		Kind:      gvk.Kind,
		Namespace: o.GetNamespace(),
		Name:      o.GetName(),
	}
}

// Run performs the watcher adapter's list-then-watch lifecycle: it
// registers the informer event handler, blocks until the initial cache
// sync completes (publishing one snapshot signal), then continues applying
// add/update/delete events to the snapshot and republishing on each one,
// until ctx is cancelled.
func (w *Watcher[K]) Run(ctx context.Context) error {
	w.client.AddEventHandler(controllers.FromEventHandler(func(o controllers.Event) {
		switch o.Event {
		case controllers.EventAdd, controllers.EventUpdate:
			w.apply(o.New.(K))
		case controllers.EventDelete:
			w.tombstone(o.Old.(K))
		}
	}))

	if !kube.WaitForCacheSync(w.gvk.Kind, ctx.Done(), w.client.HasSynced) {
		return ctx.Err()
	}
	w.log.Debug("initial list complete")
	w.publish()

	<-ctx.Done()
	return nil
}

func (w *Watcher[K]) apply(o K) {
	w.purgeObservedTombstones()
	w.snapshot = w.snapshot.SetActive(refOf(w.gvk, o), objects.UniqueID(o.GetUID()), o)
	w.publish()
}

func (w *Watcher[K]) tombstone(o K) {
	w.purgeObservedTombstones()
	w.snapshot = w.snapshot.SetDeleted(refOf(w.gvk, o), objects.UniqueID(o.GetUID()), o)
	w.publish()
}

// purgeObservedTombstones drops every ref that was published as a Deleted
// entry in the snapshot before this one. Every tombstone survives exactly
// one publish this way: the cycle it first appears in (observable to every
// downstream receiver that samples this signal) and no longer.
func (w *Watcher[K]) purgeObservedTombstones() {
	for _, ref := range w.pendingPurge {
		w.snapshot = w.snapshot.Without(ref)
	}
	w.pendingPurge = nil
}

// publish records which refs are Deleted in the snapshot about to go out
// (so the next event purges them) and sets the signal.
func (w *Watcher[K]) publish() {
	var pending []objects.Ref
	w.snapshot.Iter(func(it objects.Item[K]) {
		if it.State.IsDeleted() {
			pending = append(pending, it.Ref)
		}
	})
	w.pendingPurge = pending
	metrics.WatchedObjectsTotal.WithLabelValues(w.gvk.Kind).Set(float64(w.snapshot.Len()))
	w.send.Set(w.snapshot)
}
