package pipeline

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	discoveryv1 "k8s.io/api/discovery/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	gwv1 "sigs.k8s.io/gateway-api/apis/v1"

	"github.com/whitefamily/kubera-controlplane/api/v1alpha1"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/objects"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/signalbus"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/wellknown"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func neverEq[T any](a, b T) bool { return false }

type rawSenders struct {
	classes     signalbus.Sender[objects.Collection[*gwv1.GatewayClass]]
	gateways    signalbus.Sender[objects.Collection[*gwv1.Gateway]]
	routes      signalbus.Sender[objects.Collection[*gwv1.HTTPRoute]]
	classParams signalbus.Sender[objects.Collection[*v1alpha1.GatewayClassParameters]]
	gwParams    signalbus.Sender[objects.Collection[*v1alpha1.GatewayParameters]]
	endpoints   signalbus.Sender[objects.Collection[*discoveryv1.EndpointSlice]]
	static      signalbus.Sender[objects.Collection[*v1alpha1.StaticResponseFilter]]
	access      signalbus.Sender[objects.Collection[*v1alpha1.AccessControlFilter]]
}

func newRawInputs() (rawSenders, RawInputs) {
	classesSend, classesRecv := signalbus.New(neverEq[objects.Collection[*gwv1.GatewayClass]])
	gatewaysSend, gatewaysRecv := signalbus.New(neverEq[objects.Collection[*gwv1.Gateway]])
	routesSend, routesRecv := signalbus.New(neverEq[objects.Collection[*gwv1.HTTPRoute]])
	classParamsSend, classParamsRecv := signalbus.New(neverEq[objects.Collection[*v1alpha1.GatewayClassParameters]])
	gwParamsSend, gwParamsRecv := signalbus.New(neverEq[objects.Collection[*v1alpha1.GatewayParameters]])
	epSend, epRecv := signalbus.New(neverEq[objects.Collection[*discoveryv1.EndpointSlice]])
	staticSend, staticRecv := signalbus.New(neverEq[objects.Collection[*v1alpha1.StaticResponseFilter]])
	accessSend, accessRecv := signalbus.New(neverEq[objects.Collection[*v1alpha1.AccessControlFilter]])

	senders := rawSenders{
		classes:     classesSend,
		gateways:    gatewaysSend,
		routes:      routesSend,
		classParams: classParamsSend,
		gwParams:    gwParamsSend,
		endpoints:   epSend,
		static:      staticSend,
		access:      accessSend,
	}
	raw := RawInputs{
		GatewayClasses:         classesRecv,
		Gateways:               gatewaysRecv,
		HTTPRoutes:             routesRecv,
		GatewayClassParameters: classParamsRecv,
		GatewayParameters:      gwParamsRecv,
		EndpointSlices:         epRecv,
		StaticResponseFilters:  staticRecv,
		AccessControlFilters:   accessRecv,
	}
	return senders, raw
}

func (s rawSenders) seedEmpty() {
	s.classes.Set(objects.Empty[*gwv1.GatewayClass]())
	s.gateways.Set(objects.Empty[*gwv1.Gateway]())
	s.routes.Set(objects.Empty[*gwv1.HTTPRoute]())
	s.classParams.Set(objects.Empty[*v1alpha1.GatewayClassParameters]())
	s.gwParams.Set(objects.Empty[*v1alpha1.GatewayParameters]())
	s.endpoints.Set(objects.Empty[*discoveryv1.EndpointSlice]())
	s.static.Set(objects.Empty[*v1alpha1.StaticResponseFilter]())
	s.access.Set(objects.Empty[*v1alpha1.AccessControlFilter]())
}

func managedClass(name string) *gwv1.GatewayClass {
	return &gwv1.GatewayClass{
		ObjectMeta: metav1.ObjectMeta{Name: name},
		Spec:       gwv1.GatewayClassSpec{ControllerName: gwv1.GatewayController(wellknown.DefaultControllerName)},
	}
}

func classItem(gc *gwv1.GatewayClass) objects.Item[*gwv1.GatewayClass] {
	return objects.Item[*gwv1.GatewayClass]{
		Ref:   objects.Ref{Group: wellknown.GatewayAPIGroup, Kind: wellknown.GatewayClassKind, Name: gc.GetName()},
		ID:    objects.UniqueID(gc.GetName()),
		State: objects.Active(gc),
	}
}

func gatewayItem(ns, name, className string) objects.Item[*gwv1.Gateway] {
	return objects.Item[*gwv1.Gateway]{
		Ref: objects.Ref{Group: wellknown.GatewayAPIGroup, Kind: wellknown.GatewayKind, Namespace: ns, Name: name},
		ID:  objects.UniqueID(ns + "/" + name),
		State: objects.Active(&gwv1.Gateway{
			ObjectMeta: metav1.ObjectMeta{Namespace: ns, Name: name},
			Spec:       gwv1.GatewaySpec{GatewayClassName: gwv1.ObjectName(className)},
		}),
	}
}

func TestFilterStageNarrowsTheWholeChain(t *testing.T) {
	senders, raw := newRawInputs()
	stage, filtered := NewFilterStage(testLogger(), wellknown.DefaultControllerName, wellknown.KuberaGroup, wellknown.GatewayParametersKind, raw)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go stage.Run(ctx)

	senders.seedEmpty()
	senders.classes.Set(objects.Collect([]objects.Item[*gwv1.GatewayClass]{
		classItem(managedClass("ours")),
		{
			Ref: objects.Ref{Group: wellknown.GatewayAPIGroup, Kind: wellknown.GatewayClassKind, Name: "theirs"},
			ID:  "theirs",
			State: objects.Active(&gwv1.GatewayClass{
				ObjectMeta: metav1.ObjectMeta{Name: "theirs"},
				Spec:       gwv1.GatewayClassSpec{ControllerName: "example.com/other"},
			}),
		},
	}))
	senders.gateways.Set(objects.Collect([]objects.Item[*gwv1.Gateway]{
		gatewayItem("demo", "gw1", "ours"),
		gatewayItem("demo", "gw2", "theirs"),
	}))

	classesRecv := filtered.GatewayClasses.Clone()
	gatewaysRecv := filtered.Gateways.Clone()

	require.Eventually(t, func() bool {
		classes, ok := classesRecv.TryGet()
		if !ok || classes.Len() != 1 {
			return false
		}
		gateways, ok := gatewaysRecv.TryGet()
		return ok && gateways.Len() == 1 &&
			gateways.ContainsByRef(objects.Ref{Group: wellknown.GatewayAPIGroup, Kind: wellknown.GatewayKind, Namespace: "demo", Name: "gw1"})
	}, time.Second, 10*time.Millisecond,
		"only the managed class and the gateway attached to it survive the chain")
}

// TestTransformStageKeysOwnedObjectsByTheirOwnKind pins the desired-map key
// contract: documents are keyed by the Gateway's own ref, but each owned
// object is keyed by its own kind's ref so the writers' current-versus-
// desired diff lines up with what they list from the cluster.
func TestTransformStageKeysOwnedObjectsByTheirOwnKind(t *testing.T) {
	senders, raw := newRawInputs()
	filterStage, filtered := NewFilterStage(testLogger(), wellknown.DefaultControllerName, wellknown.KuberaGroup, wellknown.GatewayParametersKind, raw)
	transformStage, outputs := NewTransformStage(testLogger(), wellknown.KuberaGroup, wellknown.KuberaGroup, filtered, RawJoinInputs{
		EndpointSlices:        raw.EndpointSlices.Clone(),
		StaticResponseFilters: raw.StaticResponseFilters.Clone(),
		AccessControlFilters:  raw.AccessControlFilters.Clone(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go filterStage.Run(ctx)
	go transformStage.Run(ctx)

	senders.seedEmpty()
	senders.classes.Set(objects.Collect([]objects.Item[*gwv1.GatewayClass]{classItem(managedClass("ours"))}))
	senders.gateways.Set(objects.Collect([]objects.Item[*gwv1.Gateway]{gatewayItem("demo", "gw1", "ours")}))

	docsRecv := outputs.Documents.Clone()
	cmRecv := outputs.ConfigMaps.Clone()
	depRecv := outputs.Deployments.Clone()
	svcRecv := outputs.Services.Clone()

	gwRef := objects.Ref{Group: wellknown.GatewayAPIGroup, Kind: wellknown.GatewayKind, Namespace: "demo", Name: "gw1"}
	cmRef := objects.Ref{Kind: wellknown.ConfigMapGVK.Kind, Namespace: "demo", Name: "gw1"}
	depRef := objects.Ref{Group: wellknown.DeploymentGVK.Group, Kind: wellknown.DeploymentGVK.Kind, Namespace: "demo", Name: "gw1"}
	svcRef := objects.Ref{Kind: wellknown.ServiceGVK.Kind, Namespace: "demo", Name: "gw1"}

	require.Eventually(t, func() bool {
		docs, ok := docsRecv.TryGet()
		if !ok || len(docs) != 1 {
			return false
		}
		_, hasDoc := docs[gwRef]
		cms, ok := cmRecv.TryGet()
		if !ok {
			return false
		}
		deps, ok := depRecv.TryGet()
		if !ok {
			return false
		}
		svcs, ok := svcRecv.TryGet()
		if !ok {
			return false
		}
		_, hasCM := cms[cmRef]
		_, hasDep := deps[depRef]
		_, hasSvc := svcs[svcRef]
		return hasDoc && hasCM && hasDep && hasSvc
	}, time.Second, 10*time.Millisecond)

	cms, _ := cmRecv.TryGet()
	cm := cms[cmRef]
	require.NotNil(t, cm)
	assert.Equal(t, wellknown.ManagedByValue, cm.Labels[wellknown.ManagedByLabel])
	assert.Contains(t, cm.Data[wellknown.ConfigMapConfigKey], "version: v1alpha1")
}

func TestTransformStageDropsDeletedGatewayFromOutputs(t *testing.T) {
	senders, raw := newRawInputs()
	filterStage, filtered := NewFilterStage(testLogger(), wellknown.DefaultControllerName, wellknown.KuberaGroup, wellknown.GatewayParametersKind, raw)
	transformStage, outputs := NewTransformStage(testLogger(), wellknown.KuberaGroup, wellknown.KuberaGroup, filtered, RawJoinInputs{
		EndpointSlices:        raw.EndpointSlices.Clone(),
		StaticResponseFilters: raw.StaticResponseFilters.Clone(),
		AccessControlFilters:  raw.AccessControlFilters.Clone(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go filterStage.Run(ctx)
	go transformStage.Run(ctx)

	senders.seedEmpty()
	senders.classes.Set(objects.Collect([]objects.Item[*gwv1.GatewayClass]{classItem(managedClass("ours"))}))
	senders.gateways.Set(objects.Collect([]objects.Item[*gwv1.Gateway]{gatewayItem("demo", "gw1", "ours")}))

	docsRecv := outputs.Documents.Clone()
	require.Eventually(t, func() bool {
		docs, ok := docsRecv.TryGet()
		return ok && len(docs) == 1
	}, time.Second, 10*time.Millisecond)

	senders.gateways.Set(objects.Empty[*gwv1.Gateway]())
	require.Eventually(t, func() bool {
		docs, ok := docsRecv.TryGet()
		return ok && len(docs) == 0
	}, time.Second, 10*time.Millisecond,
		"a gateway removed from the watched collection must vanish from the document map")
}
