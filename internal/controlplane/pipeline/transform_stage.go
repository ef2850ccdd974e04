package pipeline

import (
	"context"
	"log/slog"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	discoveryv1 "k8s.io/api/discovery/v1"
	gwv1 "sigs.k8s.io/gateway-api/apis/v1"

	"github.com/whitefamily/kubera-controlplane/api/v1alpha1"
	"github.com/whitefamily/kubera-controlplane/api/v1alpha1/shared"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/classstatus"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/config"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/deployer"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/filterstatus"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/objects"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/signalbus"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/transform"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/wellknown"
)

// RawJoinInputs are the additional raw (unfiltered-by-controller-ownership)
// collections TransformStage joins against Filtered's narrowed output:
// EndpointSlices and the two extension-filter CRDs have no per-Gateway
// ownership concept of their own, so filters never narrows them -- they are
// joined directly by the transform package's lookup functions.
type RawJoinInputs struct {
	EndpointSlices        signalbus.Receiver[objects.Collection[*discoveryv1.EndpointSlice]]
	StaticResponseFilters signalbus.Receiver[objects.Collection[*v1alpha1.StaticResponseFilter]]
	AccessControlFilters  signalbus.Receiver[objects.Collection[*v1alpha1.AccessControlFilter]]
}

// Outputs are the per-Gateway desired-state maps downstream consumers
// subscribe to: one for ipc.Publisher, three for the sync.Writer[T]
// instances, one for classstatus.Writer, one for filterstatus.Writer.
type Outputs struct {
	Documents        signalbus.Receiver[map[objects.Ref]config.Document]
	ConfigMaps       signalbus.Receiver[map[objects.Ref]*corev1.ConfigMap]
	Deployments      signalbus.Receiver[map[objects.Ref]*appsv1.Deployment]
	Services         signalbus.Receiver[map[objects.Ref]*corev1.Service]
	ClassConditions  signalbus.Receiver[map[string]classstatus.Condition]
	FilterConditions signalbus.Receiver[map[objects.Ref]filterstatus.Condition]
}

// alwaysDiffer treats every Set call as a real change. Outputs here are
// maps of freshly-rendered objects recomputed from scratch on every pass,
// so a cheap structural equality check buys nothing -- coalescing would
// require hashing every object in the map, which the document's own Hash
// (used downstream by ipc.Publisher) already does where it matters.
func alwaysDiffer[T any](a, b T) bool { return false }

// TransformStage is the join stage: it recomputes every output whenever
// any one of its filtered or raw-joined inputs changes, using the same
// notify-and-recompute loop shape as FilterStage and sync.Writer.Run.
type TransformStage struct {
	Filtered Filtered
	Raw      RawJoinInputs

	ExtensionGroup  string
	ParametersGroup string

	docsOut    signalbus.Sender[map[objects.Ref]config.Document]
	cmOut      signalbus.Sender[map[objects.Ref]*corev1.ConfigMap]
	deployOut  signalbus.Sender[map[objects.Ref]*appsv1.Deployment]
	svcOut     signalbus.Sender[map[objects.Ref]*corev1.Service]
	classesOut signalbus.Sender[map[string]classstatus.Condition]
	filtersOut signalbus.Sender[map[objects.Ref]filterstatus.Condition]

	Log *slog.Logger
}

// NewTransformStage builds a TransformStage and its Outputs.
func NewTransformStage(log *slog.Logger, extensionGroup, parametersGroup string, filtered Filtered, raw RawJoinInputs) (*TransformStage, Outputs) {
	docsSend, docsRecv := signalbus.New(alwaysDiffer[map[objects.Ref]config.Document])
	cmSend, cmRecv := signalbus.New(alwaysDiffer[map[objects.Ref]*corev1.ConfigMap])
	deploySend, deployRecv := signalbus.New(alwaysDiffer[map[objects.Ref]*appsv1.Deployment])
	svcSend, svcRecv := signalbus.New(alwaysDiffer[map[objects.Ref]*corev1.Service])
	classesSend, classesRecv := signalbus.New(alwaysDiffer[map[string]classstatus.Condition])
	filtersSend, filtersRecv := signalbus.New(alwaysDiffer[map[objects.Ref]filterstatus.Condition])

	ts := &TransformStage{
		Filtered:        filtered,
		Raw:             raw,
		ExtensionGroup:  extensionGroup,
		ParametersGroup: parametersGroup,
		docsOut:         docsSend,
		cmOut:           cmSend,
		deployOut:       deploySend,
		svcOut:          svcSend,
		classesOut:      classesSend,
		filtersOut:      filtersSend,
		Log:             log.With("component", "transform-stage"),
	}
	return ts, Outputs{
		Documents:        docsRecv,
		ConfigMaps:       cmRecv,
		Deployments:      deployRecv,
		Services:         svcRecv,
		ClassConditions:  classesRecv,
		FilterConditions: filtersRecv,
	}
}

type transformSnaps struct {
	classes     signalbus.Receiver[objects.Collection[*gwv1.GatewayClass]]
	gateways    signalbus.Receiver[objects.Collection[*gwv1.Gateway]]
	routes      signalbus.Receiver[objects.Collection[*gwv1.HTTPRoute]]
	classParams signalbus.Receiver[objects.Collection[*v1alpha1.GatewayClassParameters]]
	gwParams    signalbus.Receiver[objects.Collection[*v1alpha1.GatewayParameters]]
	endpoints   signalbus.Receiver[objects.Collection[*discoveryv1.EndpointSlice]]
	static      signalbus.Receiver[objects.Collection[*v1alpha1.StaticResponseFilter]]
	access      signalbus.Receiver[objects.Collection[*v1alpha1.AccessControlFilter]]
}

// Run recomputes every output once inputs are ready, and again on every
// subsequent input change, until ctx is cancelled.
func (ts *TransformStage) Run(ctx context.Context) error {
	trigger := make(chan struct{}, 1)
	notify := func() {
		select {
		case trigger <- struct{}{}:
		default:
		}
	}

	watch := transformSnaps{
		classes:     ts.Filtered.GatewayClasses.Clone(),
		gateways:    ts.Filtered.Gateways.Clone(),
		routes:      ts.Filtered.HTTPRoutes.Clone(),
		classParams: ts.Filtered.GatewayClassParameters.Clone(),
		gwParams:    ts.Filtered.GatewayParameters.Clone(),
		endpoints:   ts.Raw.EndpointSlices.Clone(),
		static:      ts.Raw.StaticResponseFilters.Clone(),
		access:      ts.Raw.AccessControlFilters.Clone(),
	}
	go notifyOnChangeT(ctx, &watch.classes, notify)
	go notifyOnChangeT(ctx, &watch.gateways, notify)
	go notifyOnChangeT(ctx, &watch.routes, notify)
	go notifyOnChangeT(ctx, &watch.classParams, notify)
	go notifyOnChangeT(ctx, &watch.gwParams, notify)
	go notifyOnChangeT(ctx, &watch.endpoints, notify)
	go notifyOnChangeT(ctx, &watch.static, notify)
	go notifyOnChangeT(ctx, &watch.access, notify)

	snap := transformSnaps{
		classes:     ts.Filtered.GatewayClasses.Clone(),
		gateways:    ts.Filtered.Gateways.Clone(),
		routes:      ts.Filtered.HTTPRoutes.Clone(),
		classParams: ts.Filtered.GatewayClassParameters.Clone(),
		gwParams:    ts.Filtered.GatewayParameters.Clone(),
		endpoints:   ts.Raw.EndpointSlices.Clone(),
		static:      ts.Raw.StaticResponseFilters.Clone(),
		access:      ts.Raw.AccessControlFilters.Clone(),
	}
	if err := awaitReadySnap(ctx, &snap); err != nil {
		return err
	}

	ts.recompute(snap)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-trigger:
			ts.recompute(snap)
		}
	}
}

func awaitReadySnap(ctx context.Context, s *transformSnaps) error {
	if _, err := s.classes.Get(ctx); err != nil {
		return err
	}
	if _, err := s.gateways.Get(ctx); err != nil {
		return err
	}
	if _, err := s.routes.Get(ctx); err != nil {
		return err
	}
	if _, err := s.classParams.Get(ctx); err != nil {
		return err
	}
	if _, err := s.gwParams.Get(ctx); err != nil {
		return err
	}
	if _, err := s.endpoints.Get(ctx); err != nil {
		return err
	}
	if _, err := s.static.Get(ctx); err != nil {
		return err
	}
	if _, err := s.access.Get(ctx); err != nil {
		return err
	}
	return nil
}

func (ts *TransformStage) recompute(s transformSnaps) {
	classes, ok := s.classes.TryGet()
	if !ok {
		return
	}
	gateways, ok := s.gateways.TryGet()
	if !ok {
		return
	}
	routes, ok := s.routes.TryGet()
	if !ok {
		return
	}
	classParams, ok := s.classParams.TryGet()
	if !ok {
		return
	}
	gwParams, ok := s.gwParams.TryGet()
	if !ok {
		return
	}
	endpoints, ok := s.endpoints.TryGet()
	if !ok {
		return
	}
	staticFilters, ok := s.static.TryGet()
	if !ok {
		return
	}
	accessFilters, ok := s.access.TryGet()
	if !ok {
		return
	}

	routesByGW := transform.RoutesByGateway(routes, gateways)
	staticByGW := transform.StaticResponseFiltersByGateway(routesByGW, staticFilters, ts.ExtensionGroup)
	accessByGW := transform.AccessControlFiltersByGateway(routesByGW, accessFilters, ts.ExtensionGroup)

	docs := map[objects.Ref]config.Document{}
	configMaps := map[objects.Ref]*corev1.ConfigMap{}
	deployments := map[objects.Ref]*appsv1.Deployment{}
	services := map[objects.Ref]*corev1.Service{}

	gateways.Iter(func(it objects.Item[*gwv1.Gateway]) {
		if it.State.IsDeleted() {
			return
		}
		gw := it.State.Get()
		ref := it.Ref

		classParamsObj := ts.resolveClassParams(gw, classes, classParams)
		gwParamsObj := ts.resolveGatewayParams(gw, gwParams)

		doc, conflicts := transform.Compute(gw, classParamsObj, gwParamsObj, routesByGW[ref], endpoints, staticByGW[ref], accessByGW[ref])
		for _, c := range conflicts {
			ts.Log.Warn("dropping conflicting listener", "gateway", ref, "listener", c.Name, "port", c.Port, "reason", c.Reason)
		}
		docs[ref] = doc

		rendered, err := doc.Render()
		if err != nil {
			ts.Log.Warn("rendering configuration document", "gateway", ref, "error", err)
			return
		}

		values := transform.InstanceValues(gw, classParamsObj, gwParamsObj)
		cm := deployer.ConfigMap(values, rendered)
		dep := deployer.Deployment(values)
		svc := deployer.Service(values)

		if patched, err := deployer.ApplyOverlay(dep, deploymentOverlay(classParamsObj, gwParamsObj)); err != nil {
			ts.Log.Warn("applying deployment overlay", "gateway", ref, "error", err)
		} else {
			dep = patched.(*appsv1.Deployment)
		}
		if patched, err := deployer.ApplyOverlay(svc, serviceOverlay(classParamsObj, gwParamsObj)); err != nil {
			ts.Log.Warn("applying service overlay", "gateway", ref, "error", err)
		} else {
			svc = patched.(*corev1.Service)
		}

		// Keyed by each owned kind's own Ref, matching sync.Writer's RefOf
		// functions exactly -- Documents/ClassConditions stay keyed by the
		// Gateway's own ref (what httpapi and classstatus look up by), but
		// the owned-object maps must use the listed object's kind or
		// Writer.Reconcile's "still desired" check against its freshly
		// listed current set never matches, deleting and recreating every
		// owned object on every cycle.
		configMaps[objects.Ref{Kind: wellknown.ConfigMapGVK.Kind, Namespace: ref.Namespace, Name: ref.Name}] = cm
		deployments[objects.Ref{Group: wellknown.DeploymentGVK.Group, Kind: wellknown.DeploymentGVK.Kind, Namespace: ref.Namespace, Name: ref.Name}] = dep
		services[objects.Ref{Kind: wellknown.ServiceGVK.Kind, Namespace: ref.Namespace, Name: ref.Name}] = svc
	})

	ts.docsOut.Set(docs)
	ts.cmOut.Set(configMaps)
	ts.deployOut.Set(deployments)
	ts.svcOut.Set(services)
	ts.classesOut.Set(classstatus.Compute(classes, classParams, ts.ParametersGroup, wellknown.GatewayClassParametersKind))
	ts.filtersOut.Set(filterstatus.Compute(routesByGW, staticFilters, accessFilters, ts.ExtensionGroup))
}

// resolveClassParams looks up the GatewayClassParameters object (if any)
// referenced by gw's own GatewayClass, mirroring classParametersRef's
// resolution in the filters package and classstatus.computeOne's.
func (ts *TransformStage) resolveClassParams(gw *gwv1.Gateway, classes objects.Collection[*gwv1.GatewayClass], classParams objects.Collection[*v1alpha1.GatewayClassParameters]) *v1alpha1.GatewayClassParameters {
	state, _, ok := classes.GetByRef(objects.Ref{Group: wellknown.GatewayAPIGroup, Kind: wellknown.GatewayClassKind, Name: string(gw.Spec.GatewayClassName)})
	if !ok || state.IsDeleted() {
		return nil
	}
	gc := state.Get()
	ref := gc.Spec.ParametersRef
	if ref == nil || string(ref.Group) != ts.ParametersGroup || string(ref.Kind) != wellknown.GatewayClassParametersKind {
		return nil
	}
	ns := ""
	if ref.Namespace != nil {
		ns = string(*ref.Namespace)
	}
	paramState, _, ok := classParams.GetByRef(objects.Ref{Group: ts.ParametersGroup, Kind: wellknown.GatewayClassParametersKind, Namespace: ns, Name: ref.Name})
	if !ok || paramState.IsDeleted() {
		return nil
	}
	return paramState.Get()
}

// resolveGatewayParams looks up the GatewayParameters object (if any)
// gw.Spec.Infrastructure.ParametersRef names, mirroring
// gatewayParametersRef's resolution in the filters package.
func (ts *TransformStage) resolveGatewayParams(gw *gwv1.Gateway, gwParams objects.Collection[*v1alpha1.GatewayParameters]) *v1alpha1.GatewayParameters {
	if gw.Spec.Infrastructure == nil || gw.Spec.Infrastructure.ParametersRef == nil {
		return nil
	}
	ref := gw.Spec.Infrastructure.ParametersRef
	if string(ref.Group) != ts.ParametersGroup || string(ref.Kind) != wellknown.GatewayParametersKind {
		return nil
	}
	state, _, ok := gwParams.GetByRef(objects.Ref{Group: ts.ParametersGroup, Kind: wellknown.GatewayParametersKind, Namespace: gw.GetNamespace(), Name: ref.Name})
	if !ok || state.IsDeleted() {
		return nil
	}
	return state.Get()
}

// deploymentOverlay/serviceOverlay resolve the overlay to apply, instance
// winning over class -- the same precedence Values.applyTemplate uses for
// every typed field, but overlays are raw patches rather than
// field-by-field values so they are resolved here instead of inside
// deployer.Resolve.
func deploymentOverlay(classParams *v1alpha1.GatewayClassParameters, gwParams *v1alpha1.GatewayParameters) *shared.KubernetesResourceOverlay {
	if gwParams != nil && gwParams.Spec.DeploymentOverlay != nil {
		return gwParams.Spec.DeploymentOverlay
	}
	if classParams != nil {
		return classParams.Spec.DeploymentOverlay
	}
	return nil
}

func serviceOverlay(classParams *v1alpha1.GatewayClassParameters, gwParams *v1alpha1.GatewayParameters) *shared.KubernetesResourceOverlay {
	if gwParams != nil && gwParams.Spec.ServiceOverlay != nil {
		return gwParams.Spec.ServiceOverlay
	}
	if classParams != nil {
		return classParams.Spec.ServiceOverlay
	}
	return nil
}

func notifyOnChangeT[T any](ctx context.Context, r *signalbus.Receiver[T], notify func()) {
	for {
		if _, err := r.Changed(ctx); err != nil {
			return
		}
		notify()
	}
}
