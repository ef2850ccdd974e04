package e2e

import (
	"context"
	"io"
	"log/slog"
	"time"

	. "github.com/onsi/gomega"

	discoveryv1 "k8s.io/api/discovery/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	gwv1 "sigs.k8s.io/gateway-api/apis/v1"

	"github.com/whitefamily/kubera-controlplane/api/v1alpha1"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/classstatus"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/filterstatus"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/ipc"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/objects"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/pipeline"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/role"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/schemes"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/signalbus"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/staticresponses"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/supervisor"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/sync"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/wellknown"
)

// harness assembles the same task graph cmd/controlplane/app/serve.go
// builds -- FilterStage -> TransformStage -> {ConfigMap,Deployment,Service}
// writers, classstatus writer, ipc.Publisher, and the static-response
// cache -- against a controller-runtime fake client, the roleSignal held
// at a constant Primary so every writer reconciles unconditionally. This
// is the harness every scenario spec in this package drives.
type harness struct {
	ctx    context.Context
	cancel context.CancelFunc

	client client.Client
	store  *ipc.Store
	bus    *ipc.Bus
	cache  *staticresponses.Cache

	classesSend     signalbus.Sender[objects.Collection[*gwv1.GatewayClass]]
	gatewaysSend    signalbus.Sender[objects.Collection[*gwv1.Gateway]]
	routesSend      signalbus.Sender[objects.Collection[*gwv1.HTTPRoute]]
	classParamsSend signalbus.Sender[objects.Collection[*v1alpha1.GatewayClassParameters]]
	gwParamsSend    signalbus.Sender[objects.Collection[*v1alpha1.GatewayParameters]]
	epSend          signalbus.Sender[objects.Collection[*discoveryv1.EndpointSlice]]
	staticSend      signalbus.Sender[objects.Collection[*v1alpha1.StaticResponseFilter]]
	accessSend      signalbus.Sender[objects.Collection[*v1alpha1.AccessControlFilter]]

	roleSend signalbus.Sender[role.Role]

	done chan error
}

// neverEqual forces every Set to wake receivers -- the harness fully
// controls when it calls Set, so coalescing equal-looking writes buys
// nothing here and would only complicate the test collections' identity.
func neverEqual[T any](a, b T) bool { return false }

func newHarness(autoCycle time.Duration) *harness {
	scheme, err := schemes.Default()
	Expect(err).NotTo(HaveOccurred())

	fakeClient := fake.NewClientBuilder().
		WithScheme(scheme).
		WithStatusSubresource(&gwv1.GatewayClass{}, &v1alpha1.StaticResponseFilter{}, &v1alpha1.AccessControlFilter{}).
		Build()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	classesSend, classesRecv := signalbus.New(neverEqual[objects.Collection[*gwv1.GatewayClass]])
	gatewaysSend, gatewaysRecv := signalbus.New(neverEqual[objects.Collection[*gwv1.Gateway]])
	routesSend, routesRecv := signalbus.New(neverEqual[objects.Collection[*gwv1.HTTPRoute]])
	classParamsSend, classParamsRecv := signalbus.New(neverEqual[objects.Collection[*v1alpha1.GatewayClassParameters]])
	gwParamsSend, gwParamsRecv := signalbus.New(neverEqual[objects.Collection[*v1alpha1.GatewayParameters]])
	epSend, epRecv := signalbus.New(neverEqual[objects.Collection[*discoveryv1.EndpointSlice]])
	staticSend, staticRecv := signalbus.New(neverEqual[objects.Collection[*v1alpha1.StaticResponseFilter]])
	accessSend, accessRecv := signalbus.New(neverEqual[objects.Collection[*v1alpha1.AccessControlFilter]])

	raw := pipeline.RawInputs{
		GatewayClasses:         classesRecv,
		Gateways:               gatewaysRecv,
		HTTPRoutes:             routesRecv,
		GatewayClassParameters: classParamsRecv,
		GatewayParameters:      gwParamsRecv,
		EndpointSlices:         epRecv,
		StaticResponseFilters:  staticRecv,
		AccessControlFilters:   accessRecv,
	}

	filterStage, filtered := pipeline.NewFilterStage(log, wellknown.DefaultControllerName, wellknown.KuberaGroup, wellknown.GatewayParametersKind, raw)

	rawJoin := pipeline.RawJoinInputs{
		EndpointSlices:        epRecv.Clone(),
		StaticResponseFilters: staticRecv.Clone(),
		AccessControlFilters:  accessRecv.Clone(),
	}
	transformStage, outputs := pipeline.NewTransformStage(log, wellknown.KuberaGroup, wellknown.KuberaGroup, filtered, rawJoin)

	roleSend, roleRecv := signalbus.New(func(a, b role.Role) bool { return a == b })
	roleSend.Set(role.Primary)

	cmWriter := sync.ConfigMapWriter(fakeClient, wellknown.ManagedByValue, log)
	depWriter := sync.DeploymentWriter(fakeClient, wellknown.ManagedByValue, log)
	svcWriter := sync.ServiceWriter(fakeClient, wellknown.ManagedByValue, log)
	classWriter := classstatus.NewWriter(fakeClient, log)
	filterWriter := filterstatus.NewWriter(fakeClient, log)

	store := ipc.NewStore()
	bus := ipc.NewBus()
	publisher := ipc.NewPublisher(log, store, bus, outputs.Documents)

	cache := staticresponses.New()
	cacheInput := staticRecv.Clone()

	ctx, cancel := context.WithCancel(context.Background())

	h := &harness{
		ctx:             ctx,
		cancel:          cancel,
		client:          fakeClient,
		store:           store,
		bus:             bus,
		cache:           cache,
		classesSend:     classesSend,
		gatewaysSend:    gatewaysSend,
		routesSend:      routesSend,
		classParamsSend: classParamsSend,
		gwParamsSend:    gwParamsSend,
		epSend:          epSend,
		staticSend:      staticSend,
		accessSend:      accessSend,
		roleSend:        roleSend,
		done:            make(chan error, 1),
	}

	// Every raw signal must reach Ready before FilterStage/TransformStage's
	// await_ready join unblocks; scenario specs then overwrite whichever
	// collections their story needs via the setters below.
	classesSend.Set(objects.Empty[*gwv1.GatewayClass]())
	gatewaysSend.Set(objects.Empty[*gwv1.Gateway]())
	routesSend.Set(objects.Empty[*gwv1.HTTPRoute]())
	classParamsSend.Set(objects.Empty[*v1alpha1.GatewayClassParameters]())
	gwParamsSend.Set(objects.Empty[*v1alpha1.GatewayParameters]())
	epSend.Set(objects.Empty[*discoveryv1.EndpointSlice]())
	staticSend.Set(objects.Empty[*v1alpha1.StaticResponseFilter]())
	accessSend.Set(objects.Empty[*v1alpha1.AccessControlFilter]())
	cache.Reset(objects.Empty[*v1alpha1.StaticResponseFilter]())

	go func() {
		h.done <- supervisor.Run(ctx, log,
			supervisor.Task{Name: "filter-stage", Run: filterStage.Run},
			supervisor.Task{Name: "transform-stage", Run: transformStage.Run},
			supervisor.Task{Name: "configmap-writer", Run: func(ctx context.Context) error {
				return cmWriter.Run(ctx, roleRecv.Clone(), outputs.ConfigMaps, autoCycle)
			}},
			supervisor.Task{Name: "deployment-writer", Run: func(ctx context.Context) error {
				return depWriter.Run(ctx, roleRecv.Clone(), outputs.Deployments, autoCycle)
			}},
			supervisor.Task{Name: "service-writer", Run: func(ctx context.Context) error {
				return svcWriter.Run(ctx, roleRecv.Clone(), outputs.Services, autoCycle)
			}},
			supervisor.Task{Name: "classstatus-writer", Run: func(ctx context.Context) error {
				return classWriter.Run(ctx, roleRecv.Clone(), outputs.ClassConditions, autoCycle)
			}},
			supervisor.Task{Name: "filterstatus-writer", Run: func(ctx context.Context) error {
				return filterWriter.Run(ctx, roleRecv.Clone(), outputs.FilterConditions, autoCycle)
			}},
			supervisor.Task{Name: "ipc-publisher", Run: publisher.Run},
			supervisor.Task{Name: "static-response-cache", Run: func(ctx context.Context) error {
				for {
					filters, err := cacheInput.Changed(ctx)
					if err != nil {
						return ctx.Err()
					}
					cache.Reset(filters)
				}
			}},
		)
	}()

	return h
}

func (h *harness) stop() {
	h.cancel()
	<-h.done
}

func gatewayRef(ns, name string) objects.Ref {
	return objects.Ref{Group: wellknown.GatewayAPIGroup, Kind: wellknown.GatewayKind, Namespace: ns, Name: name}
}

func classRef(name string) objects.Ref {
	return objects.Ref{Group: wellknown.GatewayAPIGroup, Kind: wellknown.GatewayClassKind, Name: name}
}

func routeRef(ns, name string) objects.Ref {
	return objects.Ref{Group: wellknown.GatewayAPIGroup, Kind: wellknown.HTTPRouteKind, Namespace: ns, Name: name}
}

func classParamsRef(ns, name string) objects.Ref {
	return objects.Ref{Group: wellknown.KuberaGroup, Kind: wellknown.GatewayClassParametersKind, Namespace: ns, Name: name}
}

func staticFilterRef(ns, name string) objects.Ref {
	return objects.Ref{Group: wellknown.KuberaGroup, Kind: wellknown.StaticResponseFilterKind, Namespace: ns, Name: name}
}

func (h *harness) setClasses(classes ...*gwv1.GatewayClass) {
	items := make([]objects.Item[*gwv1.GatewayClass], 0, len(classes))
	for _, c := range classes {
		items = append(items, objects.Item[*gwv1.GatewayClass]{
			Ref:   classRef(c.GetName()),
			ID:    objects.UniqueID(c.GetName()),
			State: objects.Active[*gwv1.GatewayClass](c),
		})
	}
	h.classesSend.Set(objects.Collect(items))
}

func (h *harness) setGateways(gws ...*gwv1.Gateway) {
	items := make([]objects.Item[*gwv1.Gateway], 0, len(gws))
	for _, g := range gws {
		items = append(items, objects.Item[*gwv1.Gateway]{
			Ref:   gatewayRef(g.GetNamespace(), g.GetName()),
			ID:    objects.UniqueID(g.GetNamespace() + "/" + g.GetName()),
			State: objects.Active[*gwv1.Gateway](g),
		})
	}
	h.gatewaysSend.Set(objects.Collect(items))
}

func (h *harness) setRoutes(routes ...*gwv1.HTTPRoute) {
	items := make([]objects.Item[*gwv1.HTTPRoute], 0, len(routes))
	for _, r := range routes {
		items = append(items, objects.Item[*gwv1.HTTPRoute]{
			Ref:   routeRef(r.GetNamespace(), r.GetName()),
			ID:    objects.UniqueID(r.GetNamespace() + "/" + r.GetName()),
			State: objects.Active[*gwv1.HTTPRoute](r),
		})
	}
	h.routesSend.Set(objects.Collect(items))
}

func (h *harness) setClassParams(params ...*v1alpha1.GatewayClassParameters) {
	items := make([]objects.Item[*v1alpha1.GatewayClassParameters], 0, len(params))
	for _, p := range params {
		items = append(items, objects.Item[*v1alpha1.GatewayClassParameters]{
			Ref:   classParamsRef(p.GetNamespace(), p.GetName()),
			ID:    objects.UniqueID(p.GetNamespace() + "/" + p.GetName()),
			State: objects.Active[*v1alpha1.GatewayClassParameters](p),
		})
	}
	h.classParamsSend.Set(objects.Collect(items))
}

func (h *harness) setEndpointSlices(slices ...*discoveryv1.EndpointSlice) {
	items := make([]objects.Item[*discoveryv1.EndpointSlice], 0, len(slices))
	for _, s := range slices {
		items = append(items, objects.Item[*discoveryv1.EndpointSlice]{
			Ref:   objects.Ref{Group: wellknown.EndpointSliceGVK.Group, Kind: wellknown.EndpointSliceKind, Namespace: s.GetNamespace(), Name: s.GetName()},
			ID:    objects.UniqueID(s.GetNamespace() + "/" + s.GetName()),
			State: objects.Active[*discoveryv1.EndpointSlice](s),
		})
	}
	h.epSend.Set(objects.Collect(items))
}

func (h *harness) setStaticFilters(filters ...*v1alpha1.StaticResponseFilter) {
	items := make([]objects.Item[*v1alpha1.StaticResponseFilter], 0, len(filters))
	for _, f := range filters {
		items = append(items, objects.Item[*v1alpha1.StaticResponseFilter]{
			Ref:   staticFilterRef(f.GetNamespace(), f.GetName()),
			ID:    objects.UniqueID(f.GetNamespace() + "/" + f.GetName()),
			State: objects.Active[*v1alpha1.StaticResponseFilter](f),
		})
	}
	h.staticSend.Set(objects.Collect(items))
}

// --- Object builders shared across scenario specs ---

func gatewayClass(name string, controllerName string, ref *gwv1.ParametersReference) *gwv1.GatewayClass {
	if controllerName == "" {
		controllerName = wellknown.DefaultControllerName
	}
	return &gwv1.GatewayClass{
		ObjectMeta: metav1.ObjectMeta{Name: name},
		Spec: gwv1.GatewayClassSpec{
			ControllerName: gwv1.GatewayController(controllerName),
			ParametersRef:  ref,
		},
	}
}

func gateway(ns, name, className string) *gwv1.Gateway {
	return &gwv1.Gateway{
		ObjectMeta: metav1.ObjectMeta{Namespace: ns, Name: name},
		Spec: gwv1.GatewaySpec{
			GatewayClassName: gwv1.ObjectName(className),
		},
	}
}

func httpRoute(ns, name string, parent string, hostname string, path string, backendName string, backendPort int32) *gwv1.HTTPRoute {
	port := gwv1.PortNumber(backendPort)
	return &gwv1.HTTPRoute{
		ObjectMeta: metav1.ObjectMeta{Namespace: ns, Name: name},
		Spec: gwv1.HTTPRouteSpec{
			CommonRouteSpec: gwv1.CommonRouteSpec{
				ParentRefs: []gwv1.ParentReference{{Name: gwv1.ObjectName(parent)}},
			},
			Hostnames: []gwv1.Hostname{gwv1.Hostname(hostname)},
			Rules: []gwv1.HTTPRouteRule{{
				Matches: []gwv1.HTTPRouteMatch{{
					Path: &gwv1.HTTPPathMatch{
						Type:  ptrTo(gwv1.PathMatchPathPrefix),
						Value: ptrTo(path),
					},
				}},
				BackendRefs: []gwv1.HTTPBackendRef{{
					BackendRef: gwv1.BackendRef{
						BackendObjectReference: gwv1.BackendObjectReference{
							Name: gwv1.ObjectName(backendName),
							Port: &port,
						},
					},
				}},
			}},
		},
	}
}

func httpRouteWithExtensionRef(ns, name, parent, hostname, path, extGroup, extKind, extName string) *gwv1.HTTPRoute {
	route := httpRoute(ns, name, parent, hostname, path, "svc-a", 80)
	route.Spec.Rules[0].Filters = []gwv1.HTTPRouteFilter{{
		Type: gwv1.HTTPRouteFilterExtensionRef,
		ExtensionRef: &gwv1.LocalObjectReference{
			Group: gwv1.Group(extGroup),
			Kind:  gwv1.Kind(extKind),
			Name:  gwv1.ObjectName(extName),
		},
	}}
	return route
}

func endpointSlice(ns, name, serviceName string, ips ...string) *discoveryv1.EndpointSlice {
	endpoints := make([]discoveryv1.Endpoint, len(ips))
	for i, ip := range ips {
		endpoints[i] = discoveryv1.Endpoint{Addresses: []string{ip}}
	}
	return &discoveryv1.EndpointSlice{
		ObjectMeta: metav1.ObjectMeta{
			Namespace: ns,
			Name:      name,
			Labels:    map[string]string{"kubernetes.io/service-name": serviceName},
		},
		AddressType: discoveryv1.AddressTypeIPv4,
		Endpoints:   endpoints,
	}
}

func ptrTo[T any](v T) *T { return &v }
