// Package deployer renders the Deployment, Service, and ConfigMap a Gateway
// owns from its resolved GatewayInstanceTemplate, and applies any
// strategic-merge-patch overlays on top. Rendering is a pure "values ->
// object" function: equal values always produce equal objects.
package deployer

import (
	corev1 "k8s.io/api/core/v1"

	"github.com/whitefamily/kubera-controlplane/api/v1alpha1"
)

// Values holds everything the render functions need to stamp out a
// Gateway's owned objects. It is built by resolving GatewayClassParameters
// and GatewayParameters field-by-field (instance overrides class), steps 1
// and 2 of the merge order shared.KubernetesResourceOverlay documents.
type Values struct {
	Namespace string
	Name      string
	GatewayClassName string

	Replicas    int32
	Image       Image
	Resources   corev1.ResourceRequirements
	ServiceType corev1.ServiceType

	// Ports are the container/service ports derived from the Gateway's
	// listeners.
	Ports []Port

	ClientAddressPolicy ClientAddressPolicy

	Labels map[string]string
}

type Image struct {
	Registry   string
	Repository string
	Tag        string
	PullPolicy corev1.PullPolicy
}

func (i Image) String() string {
	if i.Registry == "" {
		return i.Repository + ":" + i.Tag
	}
	return i.Registry + "/" + i.Repository + ":" + i.Tag
}

type Port struct {
	Name       string
	Port       int32
	TargetPort int32
}

type ClientAddressPolicy struct {
	TrustedHeader   string
	TrustedHopCount int32
}

const (
	defaultReplicas        = int32(1)
	defaultImageRepository = "kubera-dataplane"
	defaultImageTag        = "latest"
	defaultTrustedHeader   = "X-Forwarded-For"
	defaultTrustedHopCount = int32(1)
)

// Resolve merges a GatewayClassParameters and an optional GatewayParameters
// into a single Values, instance fields winning over class fields, field by
// field. Either argument may be nil; a nil classParams with a nil gwParams
// yields the hardcoded defaults.
func Resolve(namespace, name, gatewayClassName string, classParams, gwParams *v1alpha1.GatewayInstanceTemplate, ports []Port, labels map[string]string) Values {
	v := Values{
		Namespace:        namespace,
		Name:             name,
		GatewayClassName: gatewayClassName,
		Replicas:         defaultReplicas,
		Image: Image{
			Repository: defaultImageRepository,
			Tag:        defaultImageTag,
			PullPolicy: corev1.PullIfNotPresent,
		},
		ServiceType: corev1.ServiceTypeClusterIP,
		Ports:       ports,
		ClientAddressPolicy: ClientAddressPolicy{
			TrustedHeader:   defaultTrustedHeader,
			TrustedHopCount: defaultTrustedHopCount,
		},
		Labels: labels,
	}
	v.applyTemplate(classParams)
	v.applyTemplate(gwParams)
	return v
}

func (v *Values) applyTemplate(t *v1alpha1.GatewayInstanceTemplate) {
	if t == nil {
		return
	}
	if r := t.GetReplicas(); r != nil {
		v.Replicas = *r
	}
	if img := t.GetImage(); img != nil {
		if img.Registry != nil {
			v.Image.Registry = *img.Registry
		}
		if img.Repository != nil {
			v.Image.Repository = *img.Repository
		}
		if img.Tag != nil {
			v.Image.Tag = *img.Tag
		}
		if img.PullPolicy != nil {
			v.Image.PullPolicy = *img.PullPolicy
		}
	}
	if res := t.GetResources(); res != nil {
		v.Resources = *res
	}
	if st := t.GetServiceType(); st != nil {
		v.ServiceType = *st
	}
	if policy := t.GetClientAddressPolicy(); policy != nil {
		if h := policy.GetTrustedHeader(); h != nil {
			v.ClientAddressPolicy.TrustedHeader = *h
		}
		if n := policy.GetTrustedHopCount(); n != nil {
			v.ClientAddressPolicy.TrustedHopCount = *n
		}
	}
}
