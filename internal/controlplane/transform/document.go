package transform

import (
	discoveryv1 "k8s.io/api/discovery/v1"
	gwv1 "sigs.k8s.io/gateway-api/apis/v1"

	"github.com/whitefamily/kubera-controlplane/api/v1alpha1"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/config"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/deployer"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/objects"
)

// ListenerConflict names a listener dropped from a Gateway's rendered
// document because it collides with an earlier listener on the same
// Gateway. The document is still rendered -- degraded, not withheld.
type ListenerConflict struct {
	Name   string
	Port   int32
	Reason string
}

// validListeners keeps listeners in Gateway order, dropping any whose name
// or port repeats an earlier listener's. First writer wins so the outcome
// is deterministic for equal inputs.
func validListeners(ports []deployer.Port) ([]config.Listener, []ListenerConflict) {
	listeners := make([]config.Listener, 0, len(ports))
	var conflicts []ListenerConflict
	seenNames := map[string]bool{}
	seenPorts := map[int32]bool{}
	for _, p := range ports {
		switch {
		case seenNames[p.Name]:
			conflicts = append(conflicts, ListenerConflict{Name: p.Name, Port: p.Port, Reason: "duplicate listener name"})
		case seenPorts[p.Port]:
			conflicts = append(conflicts, ListenerConflict{Name: p.Name, Port: p.Port, Reason: "duplicate listener port"})
		default:
			seenNames[p.Name] = true
			seenPorts[p.Port] = true
			listeners = append(listeners, config.Listener{Name: p.Name, Port: p.Port})
		}
	}
	return listeners, conflicts
}

// Compute assembles one Gateway's full wire-format configuration document
// from its already-filtered, already-joined inputs. Everything upstream of
// this function is a pure join; this is where the joined tables become the
// document a data plane fetches. Conflicting
// listeners are dropped from the document (degraded, not failed) and
// reported in the second return value for the caller to log.
func Compute(
	gw *gwv1.Gateway,
	classParams *v1alpha1.GatewayClassParameters,
	gwParams *v1alpha1.GatewayParameters,
	routes []*gwv1.HTTPRoute,
	endpointSlices objects.Collection[*discoveryv1.EndpointSlice],
	staticFilters map[string]config.StaticResponseFilterEntry,
	accessFilters map[string]config.AccessControlFilterEntry,
) (config.Document, []ListenerConflict) {
	values := InstanceValues(gw, classParams, gwParams)

	listeners, conflicts := validListeners(values.Ports)

	httpRoutes := make([]config.HTTPRoute, 0, len(routes))
	for _, r := range routes {
		httpRoutes = append(httpRoutes, RenderHTTPRoute(r))
	}

	var clientAddrs *config.ClientAddrsSection
	if values.ClientAddressPolicy.TrustedHeader != "" {
		clientAddrs = &config.ClientAddrsSection{
			TrustedHeader:   values.ClientAddressPolicy.TrustedHeader,
			TrustedHopCount: values.ClientAddressPolicy.TrustedHopCount,
		}
	}

	return config.Document{
		Version: config.DocumentVersion,
		IPC: config.IPCSection{
			Namespace: gw.GetNamespace(),
			Name:      gw.GetName(),
		},
		Listeners:       listeners,
		HTTPRoutes:      httpRoutes,
		ServiceBackends: ServiceBackends(routes, endpointSlices),
		ClientAddrs:     clientAddrs,
		StaticResponses: staticFilters,
		AccessControls:  accessFilters,
	}, conflicts
}
