// Package transform implements the join stage of the reconciliation
// pipeline: pure functions over the filtered collections that produce
// per-Gateway configuration documents. EndpointSlices join to backends by
// their service-name label rather than by owner reference, which is not
// guaranteed present on every distribution. Route and backend slices this
// package produces are sorted by (namespace, name) before returning
// (backends then by port), and listeners keep the Gateway's own order, so
// equal inputs always produce structurally equal outputs.
package transform

import (
	"sort"

	discoveryv1 "k8s.io/api/discovery/v1"
	gwv1 "sigs.k8s.io/gateway-api/apis/v1"

	"github.com/whitefamily/kubera-controlplane/api/v1alpha1"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/config"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/deployer"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/objects"
)

// RoutesByGateway groups filtered HTTPRoutes by the Gateway they attach to,
// each group's routes ordered (namespace, name) per the determinism
// requirement. Tombstoned routes are excluded: a deleted route simply stops
// contributing to its Gateway's document on the next recomputation.
func RoutesByGateway(routes objects.Collection[*gwv1.HTTPRoute], gateways objects.Collection[*gwv1.Gateway]) map[objects.Ref][]*gwv1.HTTPRoute {
	out := map[objects.Ref][]*gwv1.HTTPRoute{}
	gateways.Iter(func(g objects.Item[*gwv1.Gateway]) {
		if !g.State.IsDeleted() {
			out[g.Ref] = nil
		}
	})

	routes.Iter(func(it objects.Item[*gwv1.HTTPRoute]) {
		if it.State.IsDeleted() {
			return
		}
		route := it.State.Get()
		for _, pr := range route.Spec.ParentRefs {
			ns := route.GetNamespace()
			if pr.Namespace != nil {
				ns = string(*pr.Namespace)
			}
			ref := objects.Ref{Group: "gateway.networking.k8s.io", Kind: "Gateway", Namespace: ns, Name: string(pr.Name)}
			if _, ok := out[ref]; !ok {
				continue
			}
			out[ref] = append(out[ref], route)
		}
	})

	for ref, rs := range out {
		sort.Slice(rs, func(i, j int) bool {
			if rs[i].GetNamespace() != rs[j].GetNamespace() {
				return rs[i].GetNamespace() < rs[j].GetNamespace()
			}
			return rs[i].GetName() < rs[j].GetName()
		})
		out[ref] = rs
	}
	return out
}

// backendRef is a resolved Service backend reference, namespace defaulted
// to the referencing route's own namespace.
type backendRef struct {
	namespace string
	name      string
	port      *int32
}

func backendRefsOfRule(rule gwv1.HTTPRouteRule, routeNamespace string) []backendRef {
	var refs []backendRef
	for _, br := range rule.BackendRefs {
		if br.Kind != nil && string(*br.Kind) != "Service" {
			continue
		}
		ns := routeNamespace
		if br.Namespace != nil {
			ns = string(*br.Namespace)
		}
		var port *int32
		if br.Port != nil {
			p := int32(*br.Port)
			port = &p
		}
		refs = append(refs, backendRef{namespace: ns, name: string(br.Name), port: port})
	}
	return refs
}

func backendRefsOf(route *gwv1.HTTPRoute) []backendRef {
	var refs []backendRef
	for _, rule := range route.Spec.Rules {
		refs = append(refs, backendRefsOfRule(rule, route.GetNamespace())...)
	}
	return refs
}

// ServiceBackends resolves every backend referenced by one Gateway's routes
// into a (namespace,name,port) -> config.ServiceBackend table, joining in
// EndpointSlice observations indexed by discoveryv1.LabelServiceName.
func ServiceBackends(routes []*gwv1.HTTPRoute, endpointSlices objects.Collection[*discoveryv1.EndpointSlice]) []config.ServiceBackend {
	type key struct {
		namespace, name string
		port            int32
	}
	seen := map[key]*int32{}
	for _, route := range routes {
		for _, br := range backendRefsOf(route) {
			var p int32
			if br.port != nil {
				p = *br.port
			}
			seen[key{br.namespace, br.name, p}] = br.port
		}
	}

	byService := map[string][]*discoveryv1.EndpointSlice{}
	endpointSlices.Iter(func(it objects.Item[*discoveryv1.EndpointSlice]) {
		if it.State.IsDeleted() {
			return
		}
		es := it.State.Get()
		svc, ok := es.Labels[discoveryv1.LabelServiceName]
		if !ok {
			return
		}
		k := es.GetNamespace() + "/" + svc
		byService[k] = append(byService[k], es)
	})

	out := make([]config.ServiceBackend, 0, len(seen))
	for k, port := range seen {
		var endpoints []config.Endpoint
		for _, es := range byService[k.namespace+"/"+k.name] {
			for _, ep := range es.Endpoints {
				for _, addr := range ep.Addresses {
					var zone, node string
					if ep.Zone != nil {
						zone = *ep.Zone
					}
					if ep.NodeName != nil {
						node = *ep.NodeName
					}
					endpoints = append(endpoints, config.Endpoint{Address: addr, Zone: zone, Node: node})
				}
			}
		}
		sort.Slice(endpoints, func(i, j int) bool { return endpoints[i].Address < endpoints[j].Address })
		out = append(out, config.ServiceBackend{Namespace: k.namespace, Name: k.name, Port: port, Endpoints: endpoints})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Namespace != out[j].Namespace {
			return out[i].Namespace < out[j].Namespace
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		var pi, pj int32
		if out[i].Port != nil {
			pi = *out[i].Port
		}
		if out[j].Port != nil {
			pj = *out[j].Port
		}
		return pi < pj
	})
	return out
}

func pathMatchOf(m gwv1.HTTPRouteMatch) *config.PathMatch {
	if m.Path == nil || m.Path.Value == nil {
		return nil
	}
	typ := config.PathMatchPrefix
	if m.Path.Type != nil && *m.Path.Type == gwv1.PathMatchExact {
		typ = config.PathMatchExact
	}
	return &config.PathMatch{Type: typ, Value: *m.Path.Value}
}

func routeRuleConfig(rule gwv1.HTTPRouteRule, routeNamespace string) config.HTTPRouteRuleConfig {
	var matches []config.HTTPRouteMatch
	for _, m := range rule.Matches {
		cm := config.HTTPRouteMatch{Path: pathMatchOf(m)}
		if m.Method != nil {
			cm.Method = string(*m.Method)
		}
		for _, h := range m.Headers {
			if cm.Headers == nil {
				cm.Headers = map[string]string{}
			}
			cm.Headers[string(h.Name)] = h.Value
		}
		for _, q := range m.QueryParams {
			if cm.QueryParams == nil {
				cm.QueryParams = map[string]string{}
			}
			cm.QueryParams[string(q.Name)] = q.Value
		}
		matches = append(matches, cm)
	}

	var backends []config.HTTPRouteBackendRef
	for _, br := range backendRefsOfRule(rule, routeNamespace) {
		backends = append(backends, config.HTTPRouteBackendRef{Namespace: br.namespace, Name: br.name, Port: br.port})
	}

	return config.HTTPRouteRuleConfig{Matches: matches, BackendRefs: backends}
}

// RenderHTTPRoute converts one filtered HTTPRoute into its wire-format
// representation.
func RenderHTTPRoute(route *gwv1.HTTPRoute) config.HTTPRoute {
	var hosts []string
	for _, h := range route.Spec.Hostnames {
		hosts = append(hosts, string(h))
	}
	var rules []config.HTTPRouteRuleConfig
	for _, rule := range route.Spec.Rules {
		rules = append(rules, routeRuleConfig(rule, route.GetNamespace()))
	}
	return config.HTTPRoute{
		Namespace: route.GetNamespace(),
		Name:      route.GetName(),
		Hosts:     hosts,
		Rules:     rules,
	}
}

// InstanceValues resolves a Gateway's GatewayInstanceTemplate by merging
// class-level and instance-level parameters, the order shared.KubernetesResourceOverlay's
// doc comment specifies: instance overrides class, field by field.
func InstanceValues(gw *gwv1.Gateway, classParams *v1alpha1.GatewayClassParameters, gwParams *v1alpha1.GatewayParameters) deployer.Values {
	var classTemplate, instanceTemplate *v1alpha1.GatewayInstanceTemplate
	if classParams != nil {
		classTemplate = &classParams.Spec
	}
	if gwParams != nil {
		instanceTemplate = &gwParams.Spec
	}

	var ports []deployer.Port
	for _, l := range gw.Spec.Listeners {
		ports = append(ports, deployer.Port{
			Name:       string(l.Name),
			Port:       int32(l.Port),
			TargetPort: int32(l.Port),
		})
	}

	return deployer.Resolve(gw.GetNamespace(), gw.GetName(), string(gw.Spec.GatewayClassName), classTemplate, instanceTemplate, ports, nil)
}
