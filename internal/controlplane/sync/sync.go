// Package sync implements the writer stage: one Writer per owned kind
// (ConfigMap, Deployment, Service) that subscribes to the role signal and
// a per-Gateway desired-object signal, and reconciles the cluster to match
// whenever it is Primary -- list-then-diff-then-write against a label
// selector, one Writer[T] instantiated per kind, since the desired-object
// computation already lives upstream in the transformer stage rather than
// inside the writer itself.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/whitefamily/kubera-controlplane/internal/controlplane/metrics"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/objects"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/role"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/signalbus"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/wellknown"
)

// Writer reconciles one owned kind T against the cluster.
type Writer[T client.Object] struct {
	Kind         string
	Client       client.Client
	FieldManager string
	NewList      func() client.ObjectList
	ExtractItems func(client.ObjectList) []T
	RefOf        func(T) objects.Ref
	Log          *slog.Logger
}

// listCurrent lists every object this controller owns of kind T, keyed by
// ref -- the current half of the current-versus-desired diff.
func (w *Writer[T]) listCurrent(ctx context.Context) (map[objects.Ref]T, error) {
	list := w.NewList()
	if err := w.Client.List(ctx, list, client.MatchingLabels{wellknown.ManagedByLabel: wellknown.ManagedByValue}); err != nil {
		return nil, fmt.Errorf("sync: listing owned %s: %w", w.Kind, err)
	}
	out := map[objects.Ref]T{}
	for _, item := range w.ExtractItems(list) {
		out[w.RefOf(item)] = item
	}
	return out, nil
}

// Reconcile performs one cycle: delete every owned object absent from
// desired, then upsert everything in desired via server-side apply. It
// logs and counts per-resource failures rather than aborting the cycle, so
// one bad resource never blocks the rest.
func (w *Writer[T]) Reconcile(ctx context.Context, desired map[objects.Ref]T) {
	current, err := w.listCurrent(ctx)
	if err != nil {
		w.Log.Warn("listing current objects", "kind", w.Kind, "error", err)
		metrics.ReconcileCyclesTotal.WithLabelValues(w.Kind, "list_error").Inc()
		return
	}

	for ref, obj := range current {
		if _, ok := desired[ref]; ok {
			continue
		}
		if err := w.Client.Delete(ctx, obj); err != nil && !apierrors.IsNotFound(err) {
			w.Log.Warn("deleting orphaned object", "kind", w.Kind, "ref", ref, "error", err)
			metrics.WriteErrorsTotal.WithLabelValues(w.Kind, "delete").Inc()
		}
	}

	for ref, obj := range desired {
		err := w.Client.Patch(ctx, obj, client.Apply, client.FieldOwner(w.FieldManager), client.ForceOwnership)
		if err != nil {
			w.Log.Warn("upserting object", "kind", w.Kind, "ref", ref, "error", err)
			metrics.WriteErrorsTotal.WithLabelValues(w.Kind, "upsert").Inc()
		}
	}

	metrics.ReconcileCyclesTotal.WithLabelValues(w.Kind, "ok").Inc()
}

// Run drives Writer's reconciliation loop until ctx is cancelled: every
// role change, every desired-set recomputation, and every autoCycle tick
// triggers one cycle, but a cycle only does anything while the role signal
// currently reads Primary -- on Redundant it is a deliberate no-op, not a
// deletion of the Writer's prior output.
func (w *Writer[T]) Run(ctx context.Context, roleRecv signalbus.Receiver[role.Role], desiredRecv signalbus.Receiver[map[objects.Ref]T], autoCycle time.Duration) error {
	trigger := make(chan struct{}, 1)
	notify := func() {
		select {
		case trigger <- struct{}{}:
		default:
		}
	}

	watchRole := roleRecv.Clone()
	watchDesired := desiredRecv.Clone()
	go runUntilClosed(ctx, &watchRole, notify)
	go runUntilClosed(ctx, &watchDesired, notify)

	roleSnap := roleRecv.Clone()
	desiredSnap := desiredRecv.Clone()

	ticker := time.NewTicker(autoCycle)
	defer ticker.Stop()

	w.cycleIfPrimary(ctx, &roleSnap, &desiredSnap)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.cycleIfPrimary(ctx, &roleSnap, &desiredSnap)
		case <-trigger:
			w.cycleIfPrimary(ctx, &roleSnap, &desiredSnap)
		}
	}
}

func (w *Writer[T]) cycleIfPrimary(ctx context.Context, roleSnap *signalbus.Receiver[role.Role], desiredSnap *signalbus.Receiver[map[objects.Ref]T]) {
	r, ok := roleSnap.TryGet()
	if !ok || r != role.Primary {
		metrics.ReconcileCyclesTotal.WithLabelValues(w.Kind, "suspended").Inc()
		return
	}
	desired, ok := desiredSnap.TryGet()
	if !ok {
		return
	}
	w.Reconcile(ctx, desired)
}

// runUntilClosed repeatedly awaits Changed on r, calling notify after
// every change, until ctx is cancelled or the signal's senders are gone.
// Writer.Run composes two of these alongside a ticker.
func runUntilClosed[T any](ctx context.Context, r *signalbus.Receiver[T], notify func()) {
	for {
		if _, err := r.Changed(ctx); err != nil {
			return
		}
		notify()
	}
}

// ConfigMapWriter builds a Writer for the owned ConfigMap kind.
func ConfigMapWriter(cli client.Client, fieldManager string, log *slog.Logger) *Writer[*corev1.ConfigMap] {
	return &Writer[*corev1.ConfigMap]{
		Kind:         "ConfigMap",
		Client:       cli,
		FieldManager: fieldManager,
		NewList:      func() client.ObjectList { return &corev1.ConfigMapList{} },
		ExtractItems: func(l client.ObjectList) []*corev1.ConfigMap {
			list := l.(*corev1.ConfigMapList)
			out := make([]*corev1.ConfigMap, len(list.Items))
			for i := range list.Items {
				out[i] = &list.Items[i]
			}
			return out
		},
		RefOf: func(o *corev1.ConfigMap) objects.Ref {
			return objects.Ref{Kind: wellknown.ConfigMapGVK.Kind, Namespace: o.Namespace, Name: o.Name}
		},
		Log: log.With("writer", "configmap"),
	}
}

// DeploymentWriter builds a Writer for the owned Deployment kind.
func DeploymentWriter(cli client.Client, fieldManager string, log *slog.Logger) *Writer[*appsv1.Deployment] {
	return &Writer[*appsv1.Deployment]{
		Kind:         "Deployment",
		Client:       cli,
		FieldManager: fieldManager,
		NewList:      func() client.ObjectList { return &appsv1.DeploymentList{} },
		ExtractItems: func(l client.ObjectList) []*appsv1.Deployment {
			list := l.(*appsv1.DeploymentList)
			out := make([]*appsv1.Deployment, len(list.Items))
			for i := range list.Items {
				out[i] = &list.Items[i]
			}
			return out
		},
		RefOf: func(o *appsv1.Deployment) objects.Ref {
			return objects.Ref{Group: wellknown.DeploymentGVK.Group, Kind: wellknown.DeploymentGVK.Kind, Namespace: o.Namespace, Name: o.Name}
		},
		Log: log.With("writer", "deployment"),
	}
}

// ServiceWriter builds a Writer for the owned Service kind.
func ServiceWriter(cli client.Client, fieldManager string, log *slog.Logger) *Writer[*corev1.Service] {
	return &Writer[*corev1.Service]{
		Kind:         "Service",
		Client:       cli,
		FieldManager: fieldManager,
		NewList:      func() client.ObjectList { return &corev1.ServiceList{} },
		ExtractItems: func(l client.ObjectList) []*corev1.Service {
			list := l.(*corev1.ServiceList)
			out := make([]*corev1.Service, len(list.Items))
			for i := range list.Items {
				out[i] = &list.Items[i]
			}
			return out
		},
		RefOf: func(o *corev1.Service) objects.Ref {
			return objects.Ref{Kind: wellknown.ServiceGVK.Kind, Namespace: o.Namespace, Name: o.Name}
		},
		Log: log.With("writer", "service"),
	}
}
