// Package filters implements the narrowing stage of the reconciliation
// pipeline: pure functions over objects.Collection[K] that keep only the
// entries this controller manages, each split out on its own so it can sit
// behind its own signal and be tested in isolation.
package filters

import (
	gwv1 "sigs.k8s.io/gateway-api/apis/v1"

	"github.com/whitefamily/kubera-controlplane/api/v1alpha1"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/objects"
)

// narrow keeps every tombstoned entry (so downstream stages still observe
// the deletion) and every active entry that satisfies keep.
func narrow[K any](in objects.Collection[K], keep func(K) bool) objects.Collection[K] {
	items := in.Items()
	out := make([]objects.Item[K], 0, len(items))
	for _, it := range items {
		if it.State.IsDeleted() {
			out = append(out, it)
			continue
		}
		if keep(it.State.Get()) {
			out = append(out, it)
		}
	}
	return objects.Collect(out)
}

// narrowDropTombstones is narrow without tombstone passthrough, used where
// nothing downstream needs to observe the deletion of a dropped entry --
// only GatewayClasses qualify.
func narrowDropTombstones[K any](in objects.Collection[K], keep func(K) bool) objects.Collection[K] {
	items := in.Items()
	out := make([]objects.Item[K], 0, len(items))
	for _, it := range items {
		if it.State.IsDeleted() {
			continue
		}
		if keep(it.State.Get()) {
			out = append(out, it)
		}
	}
	return objects.Collect(out)
}

// GatewayClasses keeps GatewayClasses whose spec.controllerName equals
// controllerName, dropping tombstoned entries outright.
func GatewayClasses(in objects.Collection[*gwv1.GatewayClass], controllerName string) objects.Collection[*gwv1.GatewayClass] {
	return narrowDropTombstones(in, func(gc *gwv1.GatewayClass) bool {
		return string(gc.Spec.ControllerName) == controllerName
	})
}

// activeClassNames collects the names of classes currently Active in a
// (typically already-filtered) GatewayClass collection.
func activeClassNames(classes objects.Collection[*gwv1.GatewayClass]) map[string]bool {
	names := map[string]bool{}
	classes.Iter(func(it objects.Item[*gwv1.GatewayClass]) {
		if !it.State.IsDeleted() {
			names[it.State.Get().GetName()] = true
		}
	})
	return names
}

// Gateways keeps Gateways whose spec.gatewayClassName names a managed
// GatewayClass, carrying forward tombstones so the sync stage can delete a
// Gateway's owned objects when it disappears.
func Gateways(in objects.Collection[*gwv1.Gateway], managedClasses objects.Collection[*gwv1.GatewayClass]) objects.Collection[*gwv1.Gateway] {
	names := activeClassNames(managedClasses)
	return narrow(in, func(gw *gwv1.Gateway) bool {
		return names[string(gw.Spec.GatewayClassName)]
	})
}

// classParametersRef returns the (namespace, name) a GatewayClass's
// parametersRef names in this controller's group, if any.
func classParametersRef(gc *gwv1.GatewayClass, group string) (namespace, name string, ok bool) {
	ref := gc.Spec.ParametersRef
	if ref == nil || string(ref.Group) != group {
		return "", "", false
	}
	ns := ""
	if ref.Namespace != nil {
		ns = string(*ref.Namespace)
	}
	return ns, ref.Name, true
}

// GatewayClassParameters keeps only the GatewayClassParameters objects
// actually referenced by a surviving (managed) GatewayClass.
func GatewayClassParameters(managedClasses objects.Collection[*gwv1.GatewayClass], group string, in objects.Collection[*v1alpha1.GatewayClassParameters]) objects.Collection[*v1alpha1.GatewayClassParameters] {
	referenced := map[objects.Ref]bool{}
	managedClasses.Iter(func(it objects.Item[*gwv1.GatewayClass]) {
		if it.State.IsDeleted() {
			return
		}
		ns, name, ok := classParametersRef(it.State.Get(), group)
		if !ok {
			return
		}
		referenced[objects.Ref{Group: group, Kind: "GatewayClassParameters", Namespace: ns, Name: name}] = true
	})

	items := in.Items()
	out := make([]objects.Item[*v1alpha1.GatewayClassParameters], 0, len(items))
	for _, it := range items {
		if it.State.IsDeleted() || referenced[it.Ref] {
			out = append(out, it)
		}
	}
	return objects.Collect(out)
}

// gatewayParametersRef returns the (namespace, name) a Gateway's
// infrastructure.parametersRef names in this controller's group, if any.
func gatewayParametersRef(gw *gwv1.Gateway, group, kind string) (namespace, name string, ok bool) {
	if gw.Spec.Infrastructure == nil || gw.Spec.Infrastructure.ParametersRef == nil {
		return "", "", false
	}
	ref := gw.Spec.Infrastructure.ParametersRef
	if string(ref.Group) != group || string(ref.Kind) != kind {
		return "", "", false
	}
	return gw.GetNamespace(), ref.Name, true
}

// GatewayParameters keeps only the GatewayParameters objects actually
// referenced by a surviving Gateway.
func GatewayParameters(managedGateways objects.Collection[*gwv1.Gateway], group, kind string, in objects.Collection[*v1alpha1.GatewayParameters]) objects.Collection[*v1alpha1.GatewayParameters] {
	referenced := map[objects.Ref]bool{}
	managedGateways.Iter(func(it objects.Item[*gwv1.Gateway]) {
		if it.State.IsDeleted() {
			return
		}
		ns, name, ok := gatewayParametersRef(it.State.Get(), group, kind)
		if !ok {
			return
		}
		referenced[objects.Ref{Group: group, Kind: kind, Namespace: ns, Name: name}] = true
	})

	items := in.Items()
	out := make([]objects.Item[*v1alpha1.GatewayParameters], 0, len(items))
	for _, it := range items {
		if it.State.IsDeleted() || referenced[it.Ref] {
			out = append(out, it)
		}
	}
	return objects.Collect(out)
}

// routeParentMatches reports whether any of route's parentRefs resolves to
// gwName in gwNamespace, defaulting an omitted parentRef namespace to the
// route's own namespace per Gateway API convention.
func routeParentMatches(route *gwv1.HTTPRoute, gwNamespace, gwName string) bool {
	for _, ref := range route.Spec.ParentRefs {
		if string(ref.Name) != gwName {
			continue
		}
		ns := route.GetNamespace()
		if ref.Namespace != nil {
			ns = string(*ref.Namespace)
		}
		if ns == gwNamespace {
			return true
		}
	}
	return false
}

// HTTPRoutes keeps HTTPRoutes whose parentRefs resolve to a surviving
// Gateway, carrying forward tombstones so the transformer can drop a
// route's derived state when it disappears.
func HTTPRoutes(in objects.Collection[*gwv1.HTTPRoute], managedGateways objects.Collection[*gwv1.Gateway]) objects.Collection[*gwv1.HTTPRoute] {
	var gwRefs []objects.Ref
	managedGateways.Iter(func(it objects.Item[*gwv1.Gateway]) {
		if !it.State.IsDeleted() {
			gwRefs = append(gwRefs, it.Ref)
		}
	})

	return narrow(in, func(route *gwv1.HTTPRoute) bool {
		for _, ref := range gwRefs {
			if routeParentMatches(route, ref.Namespace, ref.Name) {
				return true
			}
		}
		return false
	})
}
