// Package wellknown centralizes the group/kind/label constants this
// controller shares across packages.
package wellknown

import (
	"k8s.io/apimachinery/pkg/runtime/schema"
)

const (
	// GatewayAPIGroup is the Gateway API group this controller watches.
	GatewayAPIGroup = "gateway.networking.k8s.io"

	// KuberaGroup is the group of the custom parameter and filter kinds.
	KuberaGroup   = "kubera.whitefamily.in"
	KuberaVersion = "v1alpha1"

	GatewayClassKind           = "GatewayClass"
	GatewayKind                = "Gateway"
	HTTPRouteKind              = "HTTPRoute"
	EndpointSliceKind          = "EndpointSlice"
	GatewayClassParametersKind = "GatewayClassParameters"
	GatewayParametersKind      = "GatewayParameters"
	StaticResponseFilterKind   = "StaticResponseFilter"
	AccessControlFilterKind    = "AccessControlFilter"

	// DefaultControllerName is the controllerName a GatewayClass must carry
	// to be managed by this control plane.
	DefaultControllerName = "kubera.whitefamily.in/controlplane"

	// DefaultInstanceName is used to derive the leader-election lease name
	// when no --instance flag/env is supplied.
	DefaultInstanceName = "kubera"

	// NameLabel identifies the control plane's own replica pods, used to
	// resolve the current lease holder's pod IP.
	NameLabel = "app.kubernetes.io/name"
	// ControlPlaneName is the value of NameLabel on control-plane pods.
	ControlPlaneName = "kubera-controlplane"

	// ManagedByLabel marks every object this controller owns.
	ManagedByLabel = "app.kubernetes.io/managed-by"
	// ManagedByValue is the value written to ManagedByLabel.
	ManagedByValue = "kubera-controlplane"
	// PartOfLabel names the owning Gateway.
	PartOfLabel = "app.kubernetes.io/part-of"
	// ConfigMapRoleAnnotation marks the ConfigMap carrying rendered configuration.
	ConfigMapRoleAnnotation = "kubera.whitefamily.in/configmap-role"
	// ConfigMapRoleGatewayConfiguration is the value of ConfigMapRoleAnnotation.
	ConfigMapRoleGatewayConfiguration = "gateway-configuration"

	// ConfigMapConfigKey is the data key in the rendered ConfigMap.
	ConfigMapConfigKey = "config.yaml"

	// LeasePrimarySuffix is appended to --instance to form the Lease name.
	LeasePrimarySuffix = "-primary-lock"
)

var (
	GatewayClassGVK = schema.GroupVersionKind{Group: GatewayAPIGroup, Version: "v1", Kind: GatewayClassKind}
	GatewayGVK      = schema.GroupVersionKind{Group: GatewayAPIGroup, Version: "v1", Kind: GatewayKind}
	HTTPRouteGVK    = schema.GroupVersionKind{Group: GatewayAPIGroup, Version: "v1", Kind: HTTPRouteKind}

	GatewayClassParametersGVK = schema.GroupVersionKind{Group: KuberaGroup, Version: KuberaVersion, Kind: GatewayClassParametersKind}
	GatewayParametersGVK      = schema.GroupVersionKind{Group: KuberaGroup, Version: KuberaVersion, Kind: GatewayParametersKind}
	StaticResponseFilterGVK   = schema.GroupVersionKind{Group: KuberaGroup, Version: KuberaVersion, Kind: StaticResponseFilterKind}
	AccessControlFilterGVK    = schema.GroupVersionKind{Group: KuberaGroup, Version: KuberaVersion, Kind: AccessControlFilterKind}

	EndpointSliceGVK = schema.GroupVersionKind{Group: "discovery.k8s.io", Version: "v1", Kind: EndpointSliceKind}
	PodGVK           = schema.GroupVersionKind{Version: "v1", Kind: "Pod"}
	ConfigMapGVK     = schema.GroupVersionKind{Version: "v1", Kind: "ConfigMap"}
	DeploymentGVK    = schema.GroupVersionKind{Group: "apps", Version: "v1", Kind: "Deployment"}
	ServiceGVK       = schema.GroupVersionKind{Version: "v1", Kind: "Service"}
)

// GatewayClassConditionReason enumerates the status reasons this controller
// writes back onto a GatewayClass's Accepted condition.
type GatewayClassConditionReason string

const (
	ReasonReconciled               GatewayClassConditionReason = "Reconciled"
	ReasonInvalidParametersRefKind GatewayClassConditionReason = "InvalidParametersRefKind"
	ReasonMissingParameters        GatewayClassConditionReason = "MissingParameters"
)
