// Package classstatus computes and writes the Ready condition this control
// plane patches onto every GatewayClass it manages: resolve the class's
// current state, meta.SetStatusCondition a Condition onto its status,
// update. Structured as a pure Compute function (fed by the filter stage's
// already-narrowed GatewayClass/GatewayClassParameters collections) plus a
// role-gated Writer that applies the computed conditions, the same split
// sync.Writer uses for the owned-object kinds.
package classstatus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	gwv1 "sigs.k8s.io/gateway-api/apis/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/whitefamily/kubera-controlplane/api/v1alpha1"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/objects"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/role"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/signalbus"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/wellknown"
)

// ConditionTypeReady is the condition type patched onto every managed
// GatewayClass.
const ConditionTypeReady = "Ready"

// Condition is the computed Ready condition for one GatewayClass, keyed by
// class name in Compute's result.
type Condition struct {
	Status  metav1.ConditionStatus
	Reason  wellknown.GatewayClassConditionReason
	Message string
}

func ready(reason wellknown.GatewayClassConditionReason, msg string) Condition {
	status := metav1.ConditionTrue
	if reason != wellknown.ReasonReconciled {
		status = metav1.ConditionFalse
	}
	return Condition{Status: status, Reason: reason, Message: msg}
}

// Compute derives each managed GatewayClass's Ready condition from its
// parametersRef and the (already filter-stage-narrowed, so referenced
// objects are guaranteed present when they exist) GatewayClassParameters
// collection. Three reasons:
//
//   - no parametersRef: Reconciled, using built-in defaults.
//   - a parametersRef naming any group/kind other than
//     GatewayClassParameters in our group: InvalidParametersRefKind.
//   - a parametersRef in our group/kind naming an object that is absent or
//     tombstoned: MissingParameters.
//   - a parametersRef in our group/kind naming an object that is present
//     and Active: Reconciled.
func Compute(classes objects.Collection[*gwv1.GatewayClass], params objects.Collection[*v1alpha1.GatewayClassParameters], group, kind string) map[string]Condition {
	out := map[string]Condition{}
	classes.Iter(func(it objects.Item[*gwv1.GatewayClass]) {
		if it.State.IsDeleted() {
			return
		}
		gc := it.State.Get()
		out[gc.GetName()] = computeOne(gc, params, group, kind)
	})
	return out
}

func computeOne(gc *gwv1.GatewayClass, params objects.Collection[*v1alpha1.GatewayClassParameters], group, kind string) Condition {
	ref := gc.Spec.ParametersRef
	if ref == nil {
		return ready(wellknown.ReasonReconciled, "no parametersRef set; using built-in defaults")
	}
	if string(ref.Group) != group || string(ref.Kind) != kind {
		return ready(wellknown.ReasonInvalidParametersRefKind,
			fmt.Sprintf("parametersRef %s/%s is not a %s.%s", ref.Group, ref.Kind, kind, group))
	}
	ns := ""
	if ref.Namespace != nil {
		ns = string(*ref.Namespace)
	}
	paramsRef := objects.Ref{Group: group, Kind: kind, Namespace: ns, Name: ref.Name}
	state, _, ok := params.GetByRef(paramsRef)
	if !ok || state.IsDeleted() {
		return ready(wellknown.ReasonMissingParameters,
			fmt.Sprintf("referenced %s %s not found", kind, paramsRef))
	}
	return ready(wellknown.ReasonReconciled, "reconciled")
}

// Writer patches the computed Ready condition onto each managed
// GatewayClass's status, gated by the role signal the same way sync.Writer
// gates ConfigMap/Deployment/Service writes -- a GatewayClass status patch
// is a mutating API call like any other, so Redundant replicas must not
// issue it.
type Writer struct {
	Client client.Client
	Log    *slog.Logger
}

// NewWriter builds a Writer.
func NewWriter(cli client.Client, log *slog.Logger) *Writer {
	return &Writer{Client: cli, Log: log.With("writer", "gatewayclass-status")}
}

// Apply patches every class named in desired with its computed condition.
// One failing patch is logged and skipped; it does not block the others.
func (w *Writer) Apply(ctx context.Context, desired map[string]Condition) {
	for name, cond := range desired {
		gc := &gwv1.GatewayClass{}
		if err := w.Client.Get(ctx, client.ObjectKey{Name: name}, gc); err != nil {
			if !apierrors.IsNotFound(err) {
				w.Log.Warn("fetching gatewayclass for status patch", "class", name, "error", err)
			}
			continue
		}
		before := gc.DeepCopy()
		meta.SetStatusCondition(&gc.Status.Conditions, metav1.Condition{
			Type:               ConditionTypeReady,
			Status:             cond.Status,
			Reason:             string(cond.Reason),
			Message:            cond.Message,
			ObservedGeneration: gc.Generation,
		})
		if equalConditions(before.Status.Conditions, gc.Status.Conditions) {
			continue
		}
		if err := w.Client.Status().Update(ctx, gc); err != nil {
			w.Log.Warn("patching gatewayclass status", "class", name, "error", err)
		}
	}
}

func equalConditions(a, b []metav1.Condition) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Type != b[i].Type || a[i].Status != b[i].Status || a[i].Reason != b[i].Reason || a[i].Message != b[i].Message {
			return false
		}
	}
	return true
}

// Run drives Writer's apply loop until ctx is cancelled: every role change
// and every desired-condition recomputation triggers one pass, suspended
// unless the role signal currently reads Primary, mirroring sync.Writer.Run.
func (w *Writer) Run(ctx context.Context, roleRecv signalbus.Receiver[role.Role], desiredRecv signalbus.Receiver[map[string]Condition], autoCycle time.Duration) error {
	trigger := make(chan struct{}, 1)
	notify := func() {
		select {
		case trigger <- struct{}{}:
		default:
		}
	}

	watchRole := roleRecv.Clone()
	watchDesired := desiredRecv.Clone()
	go notifyOnChange(ctx, &watchRole, notify)
	go notifyOnChange(ctx, &watchDesired, notify)

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

func (w *Writer) cycleIfPrimary(ctx context.Context, roleSnap *signalbus.Receiver[role.Role], desiredSnap *signalbus.Receiver[map[string]Condition]) {
	r, ok := roleSnap.TryGet()
	if !ok || r != role.Primary {
		return
	}
	desired, ok := desiredSnap.TryGet()
	if !ok {
		return
	}
	w.Apply(ctx, desired)
}

func notifyOnChange[T any](ctx context.Context, r *signalbus.Receiver[T], notify func()) {
	for {
		if _, err := r.Changed(ctx); err != nil {
			return
		}
		notify()
	}
}
