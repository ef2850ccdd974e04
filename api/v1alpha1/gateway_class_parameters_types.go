package v1alpha1

import (
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/whitefamily/kubera-controlplane/api/v1alpha1/shared"
)

// +kubebuilder:rbac:groups=kubera.whitefamily.in,resources=gatewayclassparameters,verbs=get;list;watch
// +kubebuilder:rbac:groups=kubera.whitefamily.in,resources=gatewayclassparameters/status,verbs=get;update;patch

// A GatewayClassParameters supplies the class-wide defaults used to render
// the Deployment and Service owned by every Gateway of a GatewayClass that
// references it. Instance-level GatewayParameters referenced directly by a
// Gateway override these defaults field-by-field.
//
// +genclient
// +kubebuilder:object:root=true
// +kubebuilder:resource:categories=kubera,path=gatewayclassparameters,scope=Namespaced
// +kubebuilder:subresource:status
type GatewayClassParameters struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   GatewayInstanceTemplate       `json:"spec,omitempty"`
	Status GatewayClassParametersStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true
type GatewayClassParametersList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []GatewayClassParameters `json:"items"`
}

// GatewayClassParametersStatus is not currently populated by this controller.
type GatewayClassParametersStatus struct{}

// GatewayInstanceTemplate is the set of typed knobs that control how a
// Gateway's owned Deployment and Service are rendered. The same shape is
// used at both the class level (GatewayClassParameters) and the instance
// level (GatewayParameters) so that resolution is a simple field-by-field
// override: any field left nil at the instance level inherits the class
// value.
type GatewayInstanceTemplate struct {
	// Replicas is the desired Deployment replica count.
	//
	// +optional
	// +kubebuilder:validation:Minimum=0
	Replicas *int32 `json:"replicas,omitempty"`

	// Image configures the data-plane container image.
	//
	// +optional
	Image *ContainerImage `json:"image,omitempty"`

	// Resources are the compute resources requested/limited for the
	// data-plane container.
	//
	// +optional
	Resources *corev1.ResourceRequirements `json:"resources,omitempty"`

	// ServiceType is the Kubernetes Service type exposing the Gateway's
	// listeners. Defaults to ClusterIP.
	//
	// +optional
	// +kubebuilder:validation:Enum=ClusterIP;NodePort;LoadBalancer
	ServiceType *corev1.ServiceType `json:"serviceType,omitempty"`

	// ClientAddressPolicy controls how the data plane recovers the original
	// client address behind a load balancer or proxy chain.
	//
	// +optional
	ClientAddressPolicy *ClientAddressPolicy `json:"clientAddressPolicy,omitempty"`

	// DeploymentOverlay customizes the rendered Deployment using strategic
	// merge patch semantics, applied after every typed field above.
	//
	// +optional
	DeploymentOverlay *shared.KubernetesResourceOverlay `json:"deploymentOverlay,omitempty"`

	// ServiceOverlay customizes the rendered Service the same way.
	//
	// +optional
	ServiceOverlay *shared.KubernetesResourceOverlay `json:"serviceOverlay,omitempty"`
}

func (in *GatewayInstanceTemplate) GetReplicas() *int32 {
	if in == nil {
		return nil
	}
	return in.Replicas
}

func (in *GatewayInstanceTemplate) GetImage() *ContainerImage {
	if in == nil {
		return nil
	}
	return in.Image
}

func (in *GatewayInstanceTemplate) GetResources() *corev1.ResourceRequirements {
	if in == nil {
		return nil
	}
	return in.Resources
}

func (in *GatewayInstanceTemplate) GetServiceType() *corev1.ServiceType {
	if in == nil {
		return nil
	}
	return in.ServiceType
}

func (in *GatewayInstanceTemplate) GetClientAddressPolicy() *ClientAddressPolicy {
	if in == nil {
		return nil
	}
	return in.ClientAddressPolicy
}

func (in *GatewayInstanceTemplate) GetDeploymentOverlay() *shared.KubernetesResourceOverlay {
	if in == nil {
		return nil
	}
	return in.DeploymentOverlay
}

func (in *GatewayInstanceTemplate) GetServiceOverlay() *shared.KubernetesResourceOverlay {
	if in == nil {
		return nil
	}
	return in.ServiceOverlay
}

// ContainerImage configures an image reference with registry, repository,
// and tag held separately so a class default can be overridden one segment
// at a time.
type ContainerImage struct {
	// +optional
	Registry *string `json:"registry,omitempty"`
	// +optional
	Repository *string `json:"repository,omitempty"`
	// +optional
	Tag *string `json:"tag,omitempty"`
	// +optional
	// +kubebuilder:validation:Enum=Always;IfNotPresent;Never
	PullPolicy *corev1.PullPolicy `json:"pullPolicy,omitempty"`
}

// ClientAddressPolicy names the header this control plane's data plane
// should trust for recovering the original client address, and how many
// proxy hops to skip over when reading it. Unset fields default to
// "X-Forwarded-For" with a single trusted hop -- equivalent to trusting
// only the immediate upstream proxy.
type ClientAddressPolicy struct {
	// TrustedHeader is the header carrying the client address chain.
	//
	// +optional
	// +kubebuilder:default="X-Forwarded-For"
	TrustedHeader *string `json:"trustedHeader,omitempty"`

	// TrustedHopCount is how many proxy hops (counted from the right of the
	// header's address list) are trusted load balancers rather than
	// attacker-controlled input.
	//
	// +optional
	// +kubebuilder:default=1
	// +kubebuilder:validation:Minimum=1
	TrustedHopCount *int32 `json:"trustedHopCount,omitempty"`
}

func (in *ClientAddressPolicy) GetTrustedHeader() *string {
	if in == nil {
		return nil
	}
	return in.TrustedHeader
}

func (in *ClientAddressPolicy) GetTrustedHopCount() *int32 {
	if in == nil {
		return nil
	}
	return in.TrustedHopCount
}
