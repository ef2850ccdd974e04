package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// +kubebuilder:rbac:groups=kubera.whitefamily.in,resources=accesscontrolfilters,verbs=get;list;watch
// +kubebuilder:rbac:groups=kubera.whitefamily.in,resources=accesscontrolfilters/status,verbs=get;update;patch

// An AccessControlFilter allows or denies requests by client IP/CIDR,
// attached to an HTTPRoute rule via extensionRef.
//
// +genclient
// +kubebuilder:object:root=true
// +kubebuilder:resource:categories=kubera,path=accesscontrolfilters,scope=Namespaced
// +kubebuilder:subresource:status
type AccessControlFilter struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   AccessControlFilterSpec   `json:"spec,omitempty"`
	Status AccessControlFilterStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true
type AccessControlFilterList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []AccessControlFilter `json:"items"`
}

// AccessControlEffect is the action taken when a request's client address
// matches Clients.
type AccessControlEffect string

const (
	AccessControlEffectAllow AccessControlEffect = "Allow"
	AccessControlEffectDeny  AccessControlEffect = "Deny"
)

// AccessControlFilterSpec describes which client addresses match and what
// to do with a match.
type AccessControlFilterSpec struct {
	// Effect is applied to requests whose client address matches Clients.
	//
	// +kubebuilder:validation:Enum=Allow;Deny
	Effect AccessControlEffect `json:"effect"`

	// Clients enumerates the matching client addresses.
	Clients AccessControlClients `json:"clients"`
}

// AccessControlClients is a set of individual addresses and/or CIDR ranges.
type AccessControlClients struct {
	// IPs is a list of individual client IP addresses to match.
	//
	// +optional
	// +kubebuilder:validation:MaxItems=256
	IPs []string `json:"ips,omitempty"`

	// IPRanges is a list of CIDR ranges to match.
	//
	// +optional
	// +kubebuilder:validation:MaxItems=256
	IPRanges []string `json:"ipRanges,omitempty"`
}

// AccessControlFilterStatus reports whether this filter is currently
// referenced and usable.
type AccessControlFilterStatus struct {
	// +optional
	// +listType=map
	// +listMapKey=type
	Conditions []metav1.Condition `json:"conditions,omitempty"`
}
