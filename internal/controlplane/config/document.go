// Package config models the rendered configuration document served to the
// data plane over IPC: a YAML document, hashed so downstream code can
// detect real changes versus coalesced-equal recomputations. Serialized
// with sigs.k8s.io/yaml so the field tags stay plain encoding/json tags.
package config

import (
	"fmt"

	"github.com/mitchellh/hashstructure"
	"sigs.k8s.io/yaml"
)

const DocumentVersion = "v1alpha1"

const (
	maxHostMatches = 64
	maxHTTPRoutes  = 64
	maxBackendRefs = 16
	maxRouteRules  = 16
)

// Document is the full rendered configuration for one Gateway.
type Document struct {
	Version         string                 `json:"version"`
	IPC             IPCSection             `json:"ipc"`
	Listeners       []Listener             `json:"listeners"`
	HTTPRoutes      []HTTPRoute            `json:"http_routes"`
	ServiceBackends []ServiceBackend       `json:"service_backends"`
	ClientAddrs     *ClientAddrsSection    `json:"client_addrs,omitempty"`
	ErrorResponses  []ErrorResponse        `json:"error_responses,omitempty"`
	StaticResponses map[string]StaticResponseFilterEntry `json:"static_response_filters,omitempty"`
	AccessControls  map[string]AccessControlFilterEntry  `json:"access_control_filters,omitempty"`
}

// IPCSection records where this document's owning Gateway can be reached
// over the IPC channel, echoed back so the data plane can self-identify in
// logs/metrics without a second round trip.
type IPCSection struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

// Listener is one data-plane listening port.
type Listener struct {
	Name string `json:"name"`
	Port int32  `json:"port"`
}

// HTTPRoute is one attached HTTPRoute's rendered rule set.
type HTTPRoute struct {
	Namespace string              `json:"namespace"`
	Name      string              `json:"name"`
	Hosts     []string            `json:"hosts"`
	Rules     []HTTPRouteRuleConfig `json:"rules"`
}

// HTTPRouteRuleConfig is one rule: a set of matches and the backends it
// forwards to.
type HTTPRouteRuleConfig struct {
	Matches     []HTTPRouteMatch  `json:"matches"`
	BackendRefs []HTTPRouteBackendRef `json:"backend_refs"`
}

// HTTPRouteMatch carries a rule's match kinds
// (path/method/headers/query_params); only the fields a rule actually uses
// are set.
type HTTPRouteMatch struct {
	Path          *PathMatch        `json:"path,omitempty"`
	Method        string            `json:"method,omitempty"`
	Headers       map[string]string `json:"headers,omitempty"`
	QueryParams   map[string]string `json:"query_params,omitempty"`
}

type PathMatchType string

const (
	PathMatchExact  PathMatchType = "Exact"
	PathMatchPrefix PathMatchType = "Prefix"
)

type PathMatch struct {
	Type  PathMatchType `json:"type"`
	Value string        `json:"value"`
}

// HTTPRouteBackendRef names a backend and the optional port override.
type HTTPRouteBackendRef struct {
	Namespace string `json:"namespace,omitempty"`
	Name      string `json:"name"`
	Port      *int32 `json:"port,omitempty"`
}

// ServiceBackend is a resolved backend with its EndpointSlice-derived
// endpoint set, matching net.rs's Backend/Endpoint shape.
type ServiceBackend struct {
	Namespace string     `json:"namespace"`
	Name      string     `json:"name"`
	Port      *int32     `json:"port,omitempty"`
	Endpoints []Endpoint `json:"endpoints"`
}

// Endpoint carries address plus topology hints when the EndpointSlice
// exposes them.
type Endpoint struct {
	Address string `json:"address"`
	Zone    string `json:"zone,omitempty"`
	Node    string `json:"node,omitempty"`
}

// ClientAddrsSection is rendered from a Gateway/GatewayClass's
// ClientAddressPolicy.
type ClientAddrsSection struct {
	TrustedHeader   string `json:"trusted_header"`
	TrustedHopCount int32  `json:"trusted_hop_count"`
}

// ErrorResponse is a placeholder section for statically-configured error
// bodies; this control plane does not yet populate it (no ErrorResponse
// CRD is consumed), but the section name is reserved on the wire per the
// data-plane's document schema.
type ErrorResponse struct {
	StatusCode int32  `json:"status_code"`
	Body       string `json:"body,omitempty"`
}

// StaticResponseFilterEntry is a StaticResponseFilter rendered by filter
// id, referenced by an HTTPRoute rule's extensionRef.
type StaticResponseFilterEntry struct {
	StatusCode  int32  `json:"status_code"`
	ContentType string `json:"content_type,omitempty"`
}

// AccessControlFilterEntry is an AccessControlFilter rendered by filter id.
type AccessControlFilterEntry struct {
	Effect   string   `json:"effect"`
	IPs      []string `json:"ips,omitempty"`
	IPRanges []string `json:"ip_ranges,omitempty"`
}

// Validate enforces the document's own size limits: at most 64 host
// matches and 64 HTTP routes per document, 16 matches and backend refs per
// rule.
func (d Document) Validate() error {
	if d.Version != DocumentVersion {
		return fmt.Errorf("config: unsupported version %q", d.Version)
	}
	if len(d.HTTPRoutes) > maxHTTPRoutes {
		return fmt.Errorf("config: %d http_routes exceeds max %d", len(d.HTTPRoutes), maxHTTPRoutes)
	}
	hosts := 0
	for _, r := range d.HTTPRoutes {
		hosts += len(r.Hosts)
		if len(r.Rules) > maxRouteRules {
			return fmt.Errorf("config: route %s/%s has %d rules, exceeds max %d", r.Namespace, r.Name, len(r.Rules), maxRouteRules)
		}
		for _, rule := range r.Rules {
			if len(rule.Matches) > maxRouteRules {
				return fmt.Errorf("config: route %s/%s has %d matches, exceeds max %d", r.Namespace, r.Name, len(rule.Matches), maxRouteRules)
			}
			if len(rule.BackendRefs) > maxBackendRefs {
				return fmt.Errorf("config: route %s/%s has %d backend refs, exceeds max %d", r.Namespace, r.Name, len(rule.BackendRefs), maxBackendRefs)
			}
		}
	}
	if hosts > maxHostMatches {
		return fmt.Errorf("config: %d host matches exceeds max %d", hosts, maxHostMatches)
	}
	return nil
}

// Render validates and serializes the document to YAML.
func (d Document) Render() ([]byte, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return yaml.Marshal(d)
}

// Hash returns a stable hash of the document's contents, used to decide
// whether a recomputation produced a real change worth notifying the data
// plane about.
func Hash(d Document) (uint64, error) {
	return hashstructure.Hash(d, nil)
}
