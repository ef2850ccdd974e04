package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// +kubebuilder:rbac:groups=kubera.whitefamily.in,resources=staticresponsefilters,verbs=get;list;watch
// +kubebuilder:rbac:groups=kubera.whitefamily.in,resources=staticresponsefilters/status,verbs=get;update;patch

// A StaticResponseFilter serves a fixed body and status code for requests
// matched by an HTTPRoute rule referencing it via extensionRef. Referenced
// once by a route, its Accepted status condition is set to True, or to
// False with reason InvalidBody if its body does not decode; until then it
// is reported as unreferenced and excluded from any Gateway's rendered
// configuration.
//
// +genclient
// +kubebuilder:object:root=true
// +kubebuilder:resource:categories=kubera,path=staticresponsefilters,scope=Namespaced
// +kubebuilder:subresource:status
type StaticResponseFilter struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   StaticResponseFilterSpec   `json:"spec,omitempty"`
	Status StaticResponseFilterStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true
type StaticResponseFilterList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []StaticResponseFilter `json:"items"`
}

// StaticResponseFilterSpec describes the fixed response this filter serves.
type StaticResponseFilterSpec struct {
	// StatusCode is the HTTP status code returned.
	//
	// +kubebuilder:default=200
	// +kubebuilder:validation:Minimum=100
	// +kubebuilder:validation:Maximum=599
	StatusCode int32 `json:"statusCode,omitempty"`

	// Body is the response body. Omitted, the response carries no body.
	//
	// +optional
	Body *StaticResponseBody `json:"body,omitempty"`
}

// StaticResponseBodyFormat selects how Body's content is encoded on the
// CRD.
type StaticResponseBodyFormat string

const (
	// StaticResponseBodyFormatText stores the body as inline UTF-8 text.
	StaticResponseBodyFormatText StaticResponseBodyFormat = "Text"
	// StaticResponseBodyFormatBinary stores the body as unpadded
	// base64url-encoded bytes.
	StaticResponseBodyFormatBinary StaticResponseBodyFormat = "Binary"
)

// StaticResponseBody carries the response payload in one of two encodings.
//
// +kubebuilder:validation:XValidation:rule="self.format != 'Text' || has(self.text)",message="text must be set when format is Text"
// +kubebuilder:validation:XValidation:rule="self.format != 'Binary' || has(self.binary)",message="binary must be set when format is Binary"
type StaticResponseBody struct {
	// Format selects which of Text/Binary is populated.
	//
	// +kubebuilder:validation:Enum=Text;Binary
	Format StaticResponseBodyFormat `json:"format"`

	// Text is the body content when Format is Text.
	//
	// +optional
	Text *string `json:"text,omitempty"`

	// Binary is the unpadded base64url-encoded body content when Format is
	// Binary.
	//
	// +optional
	Binary *string `json:"binary,omitempty"`

	// ContentType is the value of the response's Content-Type header.
	//
	// +kubebuilder:default="text/plain"
	ContentType string `json:"contentType,omitempty"`
}

// StaticResponseFilterStatus reports whether this filter is currently
// referenced and usable.
type StaticResponseFilterStatus struct {
	// +optional
	// +listType=map
	// +listMapKey=type
	Conditions []metav1.Condition `json:"conditions,omitempty"`
}
