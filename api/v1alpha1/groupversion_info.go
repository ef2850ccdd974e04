// Package v1alpha1 contains the kubera.whitefamily.in/v1alpha1 API group:
// the parameter and extension-filter kinds this control plane consumes
// alongside the standard Gateway API types.
// +kubebuilder:object:generate=true
// +groupName=kubera.whitefamily.in
package v1alpha1

import (
	"k8s.io/apimachinery/pkg/runtime/schema"
	"sigs.k8s.io/controller-runtime/pkg/scheme"
)

var (
	// GroupVersion is group version used to register these objects.
	GroupVersion = schema.GroupVersion{Group: "kubera.whitefamily.in", Version: "v1alpha1"}

	// SchemeBuilder is used to add go types to the GroupVersionKind scheme.
	SchemeBuilder = &scheme.Builder{GroupVersion: GroupVersion}

	// AddToScheme adds the types in this group-version to the given scheme.
	AddToScheme = SchemeBuilder.AddToScheme
)

func init() {
	SchemeBuilder.Register(
		&GatewayClassParameters{}, &GatewayClassParametersList{},
		&GatewayParameters{}, &GatewayParametersList{},
		&StaticResponseFilter{}, &StaticResponseFilterList{},
		&AccessControlFilter{}, &AccessControlFilterList{},
	)
}
