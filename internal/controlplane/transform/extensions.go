package transform

import (
	gwv1 "sigs.k8s.io/gateway-api/apis/v1"

	"github.com/whitefamily/kubera-controlplane/api/v1alpha1"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/config"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/objects"
)

// extensionRefsOf returns the "Kind/name" keys a route's rules reference
// via an ExtensionRef filter in the given group. The keys carry no
// namespace: extensionRef has no namespace field (Gateway API extension
// refs are same-namespace only), so callers prefix the route's own.
func extensionRefsOf(route *gwv1.HTTPRoute, group string) map[string]bool {
	refs := map[string]bool{}
	for _, rule := range route.Spec.Rules {
		for _, f := range rule.Filters {
			if f.Type != gwv1.HTTPRouteFilterExtensionRef || f.ExtensionRef == nil {
				continue
			}
			if string(f.ExtensionRef.Group) != group {
				continue
			}
			refs[string(f.ExtensionRef.Kind)+"/"+string(f.ExtensionRef.Name)] = true
		}
	}
	return refs
}

// StaticResponseFiltersByGateway groups referenced StaticResponseFilter
// entries by Gateway, keyed on the filter's stable unique id -- the same
// identifier the static_responses/{filter_id} endpoint looks up by.
func StaticResponseFiltersByGateway(routesByGateway map[objects.Ref][]*gwv1.HTTPRoute, filters objects.Collection[*v1alpha1.StaticResponseFilter], group string) map[objects.Ref]map[string]config.StaticResponseFilterEntry {
	byNamespaceName := map[string]objects.Item[*v1alpha1.StaticResponseFilter]{}
	filters.Iter(func(it objects.Item[*v1alpha1.StaticResponseFilter]) {
		if it.State.IsDeleted() {
			return
		}
		obj := it.State.Get()
		byNamespaceName[obj.GetNamespace()+"/StaticResponseFilter/"+obj.GetName()] = it
	})

	out := map[objects.Ref]map[string]config.StaticResponseFilterEntry{}
	for gwRef, routes := range routesByGateway {
		entries := map[string]config.StaticResponseFilterEntry{}
		for _, route := range routes {
			for key := range extensionRefsOf(route, group) {
				lookup := route.GetNamespace() + "/" + key
				it, ok := byNamespaceName[lookup]
				if !ok {
					continue
				}
				filter := it.State.Get()
				entries[string(it.ID)] = config.StaticResponseFilterEntry{
					StatusCode:  filter.Spec.StatusCode,
					ContentType: bodyContentType(filter.Spec.Body),
				}
			}
		}
		if len(entries) > 0 {
			out[gwRef] = entries
		}
	}
	return out
}

func bodyContentType(b *v1alpha1.StaticResponseBody) string {
	if b == nil {
		return ""
	}
	return b.ContentType
}

// AccessControlFiltersByGateway groups referenced AccessControlFilter
// entries by Gateway, keyed on the filter's stable unique id.
func AccessControlFiltersByGateway(routesByGateway map[objects.Ref][]*gwv1.HTTPRoute, filters objects.Collection[*v1alpha1.AccessControlFilter], group string) map[objects.Ref]map[string]config.AccessControlFilterEntry {
	byNamespaceName := map[string]objects.Item[*v1alpha1.AccessControlFilter]{}
	filters.Iter(func(it objects.Item[*v1alpha1.AccessControlFilter]) {
		if it.State.IsDeleted() {
			return
		}
		obj := it.State.Get()
		byNamespaceName[obj.GetNamespace()+"/AccessControlFilter/"+obj.GetName()] = it
	})

	out := map[objects.Ref]map[string]config.AccessControlFilterEntry{}
	for gwRef, routes := range routesByGateway {
		entries := map[string]config.AccessControlFilterEntry{}
		for _, route := range routes {
			for key := range extensionRefsOf(route, group) {
				lookup := route.GetNamespace() + "/" + key
				it, ok := byNamespaceName[lookup]
				if !ok {
					continue
				}
				filter := it.State.Get()
				entries[string(it.ID)] = config.AccessControlFilterEntry{
					Effect:   string(filter.Spec.Effect),
					IPs:      filter.Spec.Clients.IPs,
					IPRanges: filter.Spec.Clients.IPRanges,
				}
			}
		}
		if len(entries) > 0 {
			out[gwRef] = entries
		}
	}
	return out
}
