package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// +kubebuilder:rbac:groups=kubera.whitefamily.in,resources=gatewayparameters,verbs=get;list;watch
// +kubebuilder:rbac:groups=kubera.whitefamily.in,resources=gatewayparameters/status,verbs=get;update;patch

// A GatewayParameters overrides a Gateway's class-level defaults, field by
// field. A Gateway references one via its infrastructure.parametersRef.
// Fields left unset inherit the value from the GatewayClassParameters
// referenced by the Gateway's class.
//
// +genclient
// +kubebuilder:object:root=true
// +kubebuilder:resource:categories=kubera,path=gatewayparameters,scope=Namespaced
// +kubebuilder:subresource:status
type GatewayParameters struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   GatewayInstanceTemplate `json:"spec,omitempty"`
	Status GatewayParametersStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true
type GatewayParametersList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []GatewayParameters `json:"items"`
}

// GatewayParametersStatus is not currently populated by this controller.
type GatewayParametersStatus struct{}
