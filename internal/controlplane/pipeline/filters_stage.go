// Package pipeline wires the filter and transformer stages together into
// the two reactive join tasks this control plane's supervisor runs:
// FilterStage narrows the raw watched collections down to what this
// controller manages, and TransformStage (in transform_stage.go) joins
// those narrowed collections into per-Gateway documents and desired owned
// objects. Both reuse sync.Writer's "clone every input receiver, notify on
// any change, recompute from a fresh snapshot" reactive loop shape.
package pipeline

import (
	"context"
	"log/slog"

	discoveryv1 "k8s.io/api/discovery/v1"
	gwv1 "sigs.k8s.io/gateway-api/apis/v1"

	"github.com/whitefamily/kubera-controlplane/api/v1alpha1"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/filters"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/metrics"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/objects"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/signalbus"
)

// RawInputs are the unfiltered per-kind signals the watcher stage
// publishes.
type RawInputs struct {
	GatewayClasses         signalbus.Receiver[objects.Collection[*gwv1.GatewayClass]]
	Gateways               signalbus.Receiver[objects.Collection[*gwv1.Gateway]]
	HTTPRoutes             signalbus.Receiver[objects.Collection[*gwv1.HTTPRoute]]
	GatewayClassParameters signalbus.Receiver[objects.Collection[*v1alpha1.GatewayClassParameters]]
	GatewayParameters      signalbus.Receiver[objects.Collection[*v1alpha1.GatewayParameters]]
	EndpointSlices         signalbus.Receiver[objects.Collection[*discoveryv1.EndpointSlice]]
	StaticResponseFilters  signalbus.Receiver[objects.Collection[*v1alpha1.StaticResponseFilter]]
	AccessControlFilters   signalbus.Receiver[objects.Collection[*v1alpha1.AccessControlFilter]]
}

// Filtered are the narrowed collections FilterStage produces -- a signal
// per kind, mirroring RawInputs' shape minus the kinds that have no
// narrowing step of their own (EndpointSlice, the extension-filter CRDs).
type Filtered struct {
	GatewayClasses         signalbus.Receiver[objects.Collection[*gwv1.GatewayClass]]
	Gateways               signalbus.Receiver[objects.Collection[*gwv1.Gateway]]
	HTTPRoutes             signalbus.Receiver[objects.Collection[*gwv1.HTTPRoute]]
	GatewayClassParameters signalbus.Receiver[objects.Collection[*v1alpha1.GatewayClassParameters]]
	GatewayParameters      signalbus.Receiver[objects.Collection[*v1alpha1.GatewayParameters]]
}

// FilterStage runs the narrowing stage: it watches every raw input and
// republishes the five filtered collections whenever any raw input
// changes. This keeps the filter ordering dependency (Gateways depends on
// the already-narrowed GatewayClasses, not the raw collection) inside one
// task instead of chaining five independent signal hops; any raw input
// changing triggers a full recompute of the chain.
type FilterStage struct {
	ControllerName        string
	ParametersGroup       string
	GatewayParametersKind string
	In                    RawInputs

	classesOut     signalbus.Sender[objects.Collection[*gwv1.GatewayClass]]
	gatewaysOut    signalbus.Sender[objects.Collection[*gwv1.Gateway]]
	routesOut      signalbus.Sender[objects.Collection[*gwv1.HTTPRoute]]
	classParamsOut signalbus.Sender[objects.Collection[*v1alpha1.GatewayClassParameters]]
	gwParamsOut    signalbus.Sender[objects.Collection[*v1alpha1.GatewayParameters]]

	Log *slog.Logger
}

// NewFilterStage builds a FilterStage and its output signals.
func NewFilterStage(log *slog.Logger, controllerName, parametersGroup, gatewayParametersKind string, in RawInputs) (*FilterStage, Filtered) {
	classesSend, classesRecv := signalbus.New(collectionEq[*gwv1.GatewayClass])
	gatewaysSend, gatewaysRecv := signalbus.New(collectionEq[*gwv1.Gateway])
	routesSend, routesRecv := signalbus.New(collectionEq[*gwv1.HTTPRoute])
	classParamsSend, classParamsRecv := signalbus.New(collectionEq[*v1alpha1.GatewayClassParameters])
	gwParamsSend, gwParamsRecv := signalbus.New(collectionEq[*v1alpha1.GatewayParameters])

	fs := &FilterStage{
		ControllerName:        controllerName,
		ParametersGroup:       parametersGroup,
		GatewayParametersKind: gatewayParametersKind,
		In:                    in,
		classesOut:            classesSend,
		gatewaysOut:           gatewaysSend,
		routesOut:             routesSend,
		classParamsOut:        classParamsSend,
		gwParamsOut:           gwParamsSend,
		Log:                   log.With("component", "filter-stage"),
	}
	return fs, Filtered{
		GatewayClasses:         classesRecv,
		Gateways:               gatewaysRecv,
		HTTPRoutes:             routesRecv,
		GatewayClassParameters: classParamsRecv,
		GatewayParameters:      gwParamsRecv,
	}
}

// collectionEq is used for every filtered-output signal's equality guard.
// Every kind this stage handles is a pointer type, so identity comparison
// via any() is sufficient: this stage only ever re-wraps items it read
// from its own inputs, it never mutates a payload in place and republishes
// an equivalent-but-distinct copy.
func collectionEq[K any](a, b objects.Collection[K]) bool {
	return objects.Equal(a, b, func(x, y K) bool {
		return any(x) == any(y)
	})
}

// Run recomputes the filtered chain once at startup (blocking until every
// raw input is Ready) and again every time any raw input changes
// thereafter, until ctx is cancelled.
func (fs *FilterStage) Run(ctx context.Context) error {
	trigger := make(chan struct{}, 1)
	notify := func() {
		select {
		case trigger <- struct{}{}:
		default:
		}
	}

	watchClasses := fs.In.GatewayClasses.Clone()
	watchGateways := fs.In.Gateways.Clone()
	watchRoutes := fs.In.HTTPRoutes.Clone()
	watchClassParams := fs.In.GatewayClassParameters.Clone()
	watchGwParams := fs.In.GatewayParameters.Clone()

	go notifyOnChange(ctx, &watchClasses, notify)
	go notifyOnChange(ctx, &watchGateways, notify)
	go notifyOnChange(ctx, &watchRoutes, notify)
	go notifyOnChange(ctx, &watchClassParams, notify)
	go notifyOnChange(ctx, &watchGwParams, notify)

	classesSnap := fs.In.GatewayClasses.Clone()
	gatewaysSnap := fs.In.Gateways.Clone()
	routesSnap := fs.In.HTTPRoutes.Clone()
	classParamsSnap := fs.In.GatewayClassParameters.Clone()
	gwParamsSnap := fs.In.GatewayParameters.Clone()

	if _, err := awaitReady5(ctx, &classesSnap, &gatewaysSnap, &routesSnap, &classParamsSnap, &gwParamsSnap); err != nil {
		return err
	}
	fs.recompute(&classesSnap, &gatewaysSnap, &routesSnap, &classParamsSnap, &gwParamsSnap)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-trigger:
			fs.recompute(&classesSnap, &gatewaysSnap, &routesSnap, &classParamsSnap, &gwParamsSnap)
		}
	}
}

func (fs *FilterStage) recompute(
	classesSnap *signalbus.Receiver[objects.Collection[*gwv1.GatewayClass]],
	gatewaysSnap *signalbus.Receiver[objects.Collection[*gwv1.Gateway]],
	routesSnap *signalbus.Receiver[objects.Collection[*gwv1.HTTPRoute]],
	classParamsSnap *signalbus.Receiver[objects.Collection[*v1alpha1.GatewayClassParameters]],
	gwParamsSnap *signalbus.Receiver[objects.Collection[*v1alpha1.GatewayParameters]],
) {
	rawClasses, ok := classesSnap.TryGet()
	if !ok {
		return
	}
	rawGateways, ok := gatewaysSnap.TryGet()
	if !ok {
		return
	}
	rawRoutes, ok := routesSnap.TryGet()
	if !ok {
		return
	}
	rawClassParams, ok := classParamsSnap.TryGet()
	if !ok {
		return
	}
	rawGwParams, ok := gwParamsSnap.TryGet()
	if !ok {
		return
	}

	managedClasses := filters.GatewayClasses(rawClasses, fs.ControllerName)
	managedGateways := filters.Gateways(rawGateways, managedClasses)
	managedRoutes := filters.HTTPRoutes(rawRoutes, managedGateways)
	managedClassParams := filters.GatewayClassParameters(managedClasses, fs.ParametersGroup, rawClassParams)
	managedGwParams := filters.GatewayParameters(managedGateways, fs.ParametersGroup, fs.GatewayParametersKind, rawGwParams)
	metrics.ManagedGatewaysTotal.Set(float64(managedGateways.Len()))

	fs.classesOut.Set(managedClasses)
	fs.gatewaysOut.Set(managedGateways)
	fs.routesOut.Set(managedRoutes)
	fs.classParamsOut.Set(managedClassParams)
	fs.gwParamsOut.Set(managedGwParams)
}

func notifyOnChange[T any](ctx context.Context, r *signalbus.Receiver[T], notify func()) {
	for {
		if _, err := r.Changed(ctx); err != nil {
			return
		}
		notify()
	}
}

// awaitReady5 blocks until every one of five receivers holds a Ready
// value.
func awaitReady5[A, B, C, D, E any](
	ctx context.Context,
	a *signalbus.Receiver[A], b *signalbus.Receiver[B], c *signalbus.Receiver[C],
	d *signalbus.Receiver[D], e *signalbus.Receiver[E],
) (struct{}, error) {
	if _, err := a.Get(ctx); err != nil {
		return struct{}{}, err
	}
	if _, err := b.Get(ctx); err != nil {
		return struct{}{}, err
	}
	if _, err := c.Get(ctx); err != nil {
		return struct{}{}, err
	}
	if _, err := d.Get(ctx); err != nil {
		return struct{}{}, err
	}
	if _, err := e.Get(ctx); err != nil {
		return struct{}{}, err
	}
	return struct{}{}, nil
}
