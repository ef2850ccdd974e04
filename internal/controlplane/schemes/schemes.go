// Package schemes builds the runtime.Scheme this control plane's clients
// use: the built-in Kubernetes API group, the Gateway API types it
// watches, and the kubera.whitefamily.in parameter/filter kinds it
// defines, composed with one AddToScheme call per group.
package schemes

import (
	"fmt"

	"k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	gwv1 "sigs.k8s.io/gateway-api/apis/v1"

	kuberav1alpha1 "github.com/whitefamily/kubera-controlplane/api/v1alpha1"
	"k8s.io/apimachinery/pkg/runtime"
)

// Default registers every group/version this control plane needs into a
// fresh Scheme.
func Default() (*runtime.Scheme, error) {
	scheme := runtime.NewScheme()
	if err := Extend(scheme); err != nil {
		return nil, err
	}
	return scheme, nil
}

// Extend adds this control plane's groups onto an existing scheme, the way
// a caller composing multiple controllers' schemes would.
func Extend(scheme *runtime.Scheme) error {
	adders := []func(*runtime.Scheme) error{
		clientgoscheme.AddToScheme,
		v1.AddToScheme,
		gwv1.AddToScheme,
		kuberav1alpha1.AddToScheme,
	}
	for _, add := range adders {
		if err := add(scheme); err != nil {
			return fmt.Errorf("schemes: extending scheme: %w", err)
		}
	}
	return nil
}
