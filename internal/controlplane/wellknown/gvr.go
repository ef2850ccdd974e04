package wellknown

import "k8s.io/apimachinery/pkg/runtime/schema"

// GVRs for every kind watched or owned by this control plane, used to
// construct the kclient informers. Declared in one place, built-in and
// custom kinds alike, so no caller depends on a generated resource table
// that would not cover this controller's own CRDs.
var (
	GatewayClassGVR = schema.GroupVersionResource{Group: GatewayAPIGroup, Version: "v1", Resource: "gatewayclasses"}
	GatewayGVR      = schema.GroupVersionResource{Group: GatewayAPIGroup, Version: "v1", Resource: "gateways"}
	HTTPRouteGVR    = schema.GroupVersionResource{Group: GatewayAPIGroup, Version: "v1", Resource: "httproutes"}

	GatewayClassParametersGVR = schema.GroupVersionResource{Group: KuberaGroup, Version: KuberaVersion, Resource: "gatewayclassparameters"}
	GatewayParametersGVR      = schema.GroupVersionResource{Group: KuberaGroup, Version: KuberaVersion, Resource: "gatewayparameters"}
	StaticResponseFilterGVR   = schema.GroupVersionResource{Group: KuberaGroup, Version: KuberaVersion, Resource: "staticresponsefilters"}
	AccessControlFilterGVR    = schema.GroupVersionResource{Group: KuberaGroup, Version: KuberaVersion, Resource: "accesscontrolfilters"}

	EndpointSliceGVR = schema.GroupVersionResource{Group: "discovery.k8s.io", Version: "v1", Resource: "endpointslices"}
	PodGVR           = schema.GroupVersionResource{Version: "v1", Resource: "pods"}
	ConfigMapGVR     = schema.GroupVersionResource{Version: "v1", Resource: "configmaps"}
	DeploymentGVR    = schema.GroupVersionResource{Group: "apps", Version: "v1", Resource: "deployments"}
	ServiceGVR       = schema.GroupVersionResource{Version: "v1", Resource: "services"}
)
