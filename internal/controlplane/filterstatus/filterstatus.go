// Package filterstatus computes and writes the Accepted condition this
// control plane patches onto its extension-filter custom resources
// (StaticResponseFilter, AccessControlFilter): a filter referenced by an
// HTTPRoute attached to a managed Gateway is Accepted, an unreferenced one
// is not, and a referenced StaticResponseFilter whose body cannot be
// decoded is reported as degraded rather than silently dropped. Follows
// the same Compute-plus-role-gated-Writer split classstatus uses for the
// GatewayClass Ready condition.
package filterstatus

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
	gwv1 "sigs.k8s.io/gateway-api/apis/v1"

	"github.com/whitefamily/kubera-controlplane/api/v1alpha1"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/objects"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/role"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/signalbus"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/wellknown"
)

// ConditionTypeAccepted is the condition type patched onto every managed
// extension filter.
const ConditionTypeAccepted = "Accepted"

// Reason enumerates the Accepted condition's reasons.
type Reason string

const (
	ReasonAccepted     Reason = "Accepted"
	ReasonUnreferenced Reason = "Unreferenced"
	ReasonInvalidBody  Reason = "InvalidBody"
)

// Condition is the computed Accepted condition for one filter, keyed by
// the filter's Ref in Compute's result.
type Condition struct {
	Status  metav1.ConditionStatus
	Reason  Reason
	Message string
}

func accepted(reason Reason, msg string) Condition {
	status := metav1.ConditionTrue
	if reason != ReasonAccepted {
		status = metav1.ConditionFalse
	}
	return Condition{Status: status, Reason: reason, Message: msg}
}

// referencedFilters walks every route attached to a managed Gateway and
// collects the "namespace/Kind/name" keys of extension-filter references
// in group. Extension refs are same-namespace only, so the route's own
// namespace is the referent's.
func referencedFilters(routesByGateway map[objects.Ref][]*gwv1.HTTPRoute, group string) map[string]bool {
	refs := map[string]bool{}
	for _, routes := range routesByGateway {
		for _, route := range routes {
			for _, rule := range route.Spec.Rules {
				for _, f := range rule.Filters {
					if f.Type != gwv1.HTTPRouteFilterExtensionRef || f.ExtensionRef == nil {
						continue
					}
					if string(f.ExtensionRef.Group) != group {
						continue
					}
					refs[route.GetNamespace()+"/"+string(f.ExtensionRef.Kind)+"/"+string(f.ExtensionRef.Name)] = true
				}
			}
		}
	}
	return refs
}

// bodyDecodes reports whether a StaticResponseFilter body would decode the
// way the static-response cache decodes it on request: inline text, or
// unpadded base64url binary. A nil body is fine -- the filter serves an
// empty response.
func bodyDecodes(b *v1alpha1.StaticResponseBody) error {
	if b == nil {
		return nil
	}
	switch b.Format {
	case v1alpha1.StaticResponseBodyFormatText:
		if b.Text == nil {
			return fmt.Errorf("format is Text but text is unset")
		}
	case v1alpha1.StaticResponseBodyFormatBinary:
		if b.Binary == nil {
			return fmt.Errorf("format is Binary but binary is unset")
		}
		if _, err := base64.RawURLEncoding.DecodeString(*b.Binary); err != nil {
			return fmt.Errorf("binary body is not unpadded base64url: %w", err)
		}
	default:
		return fmt.Errorf("unrecognized body format %q", b.Format)
	}
	return nil
}

// Compute derives the Accepted condition for every active extension
// filter. Tombstoned filters are omitted -- nothing patches a status onto
// an object that is going away.
func Compute(
	routesByGateway map[objects.Ref][]*gwv1.HTTPRoute,
	static objects.Collection[*v1alpha1.StaticResponseFilter],
	access objects.Collection[*v1alpha1.AccessControlFilter],
	group string,
) map[objects.Ref]Condition {
	referenced := referencedFilters(routesByGateway, group)

	out := map[objects.Ref]Condition{}
	static.Iter(func(it objects.Item[*v1alpha1.StaticResponseFilter]) {
		if it.State.IsDeleted() {
			return
		}
		f := it.State.Get()
		key := f.GetNamespace() + "/" + wellknown.StaticResponseFilterKind + "/" + f.GetName()
		if !referenced[key] {
			out[it.Ref] = accepted(ReasonUnreferenced, "not referenced by any route on a managed gateway")
			return
		}
		if err := bodyDecodes(f.Spec.Body); err != nil {
			out[it.Ref] = accepted(ReasonInvalidBody, err.Error())
			return
		}
		out[it.Ref] = accepted(ReasonAccepted, "referenced and servable")
	})
	access.Iter(func(it objects.Item[*v1alpha1.AccessControlFilter]) {
		if it.State.IsDeleted() {
			return
		}
		f := it.State.Get()
		key := f.GetNamespace() + "/" + wellknown.AccessControlFilterKind + "/" + f.GetName()
		if !referenced[key] {
			out[it.Ref] = accepted(ReasonUnreferenced, "not referenced by any route on a managed gateway")
			return
		}
		out[it.Ref] = accepted(ReasonAccepted, "referenced")
	})
	return out
}

// Writer patches computed Accepted conditions onto the filter objects,
// gated by the role signal the same way every other writer is.
type Writer struct {
	Client client.Client
	Log    *slog.Logger
}

// NewWriter builds a Writer.
func NewWriter(cli client.Client, log *slog.Logger) *Writer {
	return &Writer{Client: cli, Log: log.With("writer", "filter-status")}
}

// Apply patches every filter named in desired with its computed condition.
// A failing patch is logged and skipped; it does not block the others.
func (w *Writer) Apply(ctx context.Context, desired map[objects.Ref]Condition) {
	for ref, cond := range desired {
		switch ref.Kind {
		case wellknown.StaticResponseFilterKind:
			obj := &v1alpha1.StaticResponseFilter{}
			w.applyOne(ctx, ref, cond, obj, &obj.Status.Conditions)
		case wellknown.AccessControlFilterKind:
			obj := &v1alpha1.AccessControlFilter{}
			w.applyOne(ctx, ref, cond, obj, &obj.Status.Conditions)
		default:
			w.Log.Warn("unrecognized filter kind in desired conditions", "ref", ref)
		}
	}
}

func (w *Writer) applyOne(ctx context.Context, ref objects.Ref, cond Condition, obj client.Object, conditions *[]metav1.Condition) {
	if err := w.Client.Get(ctx, client.ObjectKey{Namespace: ref.Namespace, Name: ref.Name}, obj); err != nil {
		if !apierrors.IsNotFound(err) {
			w.Log.Warn("fetching filter for status patch", "ref", ref, "error", err)
		}
		return
	}
	if existing := meta.FindStatusCondition(*conditions, ConditionTypeAccepted); existing != nil &&
		existing.Status == cond.Status && existing.Reason == string(cond.Reason) && existing.Message == cond.Message {
		return
	}
	meta.SetStatusCondition(conditions, metav1.Condition{
		Type:               ConditionTypeAccepted,
		Status:             cond.Status,
		Reason:             string(cond.Reason),
		Message:            cond.Message,
		ObservedGeneration: obj.GetGeneration(),
	})
	if err := w.Client.Status().Update(ctx, obj); err != nil {
		w.Log.Warn("patching filter status", "ref", ref, "error", err)
	}
}

// Run drives Writer's apply loop until ctx is cancelled, suspended unless
// the role signal currently reads Primary, mirroring sync.Writer.Run.
func (w *Writer) Run(ctx context.Context, roleRecv signalbus.Receiver[role.Role], desiredRecv signalbus.Receiver[map[objects.Ref]Condition], autoCycle time.Duration) error {
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

func (w *Writer) cycleIfPrimary(ctx context.Context, roleSnap *signalbus.Receiver[role.Role], desiredSnap *signalbus.Receiver[map[objects.Ref]Condition]) {
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
