// Package health implements the liveness probe: a readiness indicator
// that attempts a lightweight list of this controller's custom-resource
// kind, treating success as evidence the Kubernetes API is reachable.
// Exposed as a sigs.k8s.io/controller-runtime/pkg/healthz Checker rather
// than a second hand-rolled health-check abstraction. An unbounded list
// would be costly at scale, so this lists with Limit: 1 rather than the
// whole collection.
package health

import (
	"net/http"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
)

// Probe reports this control plane's liveness by listing, at small scale,
// one of its own custom-resource kinds.
type Probe struct {
	dyn dynamic.Interface
	gvr schema.GroupVersionResource
}

// New builds a Probe that lists gvr (expected: GatewayClassParameters or
// another cheap, low-cardinality kind this controller owns) through dyn.
func New(dyn dynamic.Interface, gvr schema.GroupVersionResource) *Probe {
	return &Probe{dyn: dyn, gvr: gvr}
}

// Checker implements healthz.Checker: it succeeds iff a one-item
// (Limit: 1) list of full objects against the API server succeeds, using the request's own
// context so the HTTP server's read/write timeouts bound the call.
func (p *Probe) Checker(req *http.Request) error {
	_, err := p.dyn.Resource(p.gvr).List(req.Context(), metav1.ListOptions{Limit: 1})
	return err
}

// AlwaysHealthy is a Checker that always succeeds, for an httpapi server
// with no Kubernetes client to probe (the httpapi and e2e tests use it;
// the serve command always wires Probe.Checker). Readiness is a separate
// concern this control plane does not expose as a distinct endpoint.
var AlwaysHealthy healthz.Checker = func(*http.Request) error { return nil }
