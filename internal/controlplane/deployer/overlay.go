package deployer

import (
	"encoding/json"
	"fmt"
	"maps"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/util/strategicpatch"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/whitefamily/kubera-controlplane/api/v1alpha1/shared"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/wellknown"
)

// ApplyOverlay merges a KubernetesResourceOverlay onto a rendered
// Deployment or Service using strategic merge patch semantics; those are
// the two kinds GatewayInstanceTemplate carries overlays for. A nil
// overlay is a no-op.
func ApplyOverlay(obj client.Object, overlay *shared.KubernetesResourceOverlay) (client.Object, error) {
	if overlay == nil {
		return obj, nil
	}

	gvk, err := gvkOf(obj)
	if err != nil {
		return nil, err
	}

	if overlay.Metadata != nil {
		if overlay.Metadata.Labels != nil {
			existing := obj.GetLabels()
			if existing == nil {
				existing = make(map[string]string)
			}
			maps.Copy(existing, overlay.Metadata.Labels)
			obj.SetLabels(existing)
		}
		if overlay.Metadata.Annotations != nil {
			existing := obj.GetAnnotations()
			if existing == nil {
				existing = make(map[string]string)
			}
			maps.Copy(existing, overlay.Metadata.Annotations)
			obj.SetAnnotations(existing)
		}
	}

	if overlay.Spec == nil || len(overlay.Spec.Raw) == 0 {
		return obj, nil
	}
	return applySpecOverlay(obj, overlay.Spec.Raw, gvk)
}

func gvkOf(obj client.Object) (schema.GroupVersionKind, error) {
	switch obj.(type) {
	case *appsv1.Deployment:
		return wellknown.DeploymentGVK, nil
	case *corev1.Service:
		return wellknown.ServiceGVK, nil
	default:
		return schema.GroupVersionKind{}, fmt.Errorf("deployer: overlay not supported for %T", obj)
	}
}

func applySpecOverlay(obj client.Object, patchBytes []byte, gvk schema.GroupVersionKind) (client.Object, error) {
	dataObj, err := emptyObjectForGVK(gvk)
	if err != nil {
		return nil, err
	}

	originalBytes, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("deployer: marshal original object: %w", err)
	}

	wrapped, err := json.Marshal(map[string]json.RawMessage{"spec": patchBytes})
	if err != nil {
		return nil, fmt.Errorf("deployer: marshal wrapped patch: %w", err)
	}

	patched, err := strategicpatch.StrategicMergePatch(originalBytes, wrapped, dataObj)
	if err != nil {
		return nil, fmt.Errorf("deployer: apply strategic merge patch: %w", err)
	}

	result, err := emptyObjectForGVK(gvk)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(patched, result); err != nil {
		return nil, fmt.Errorf("deployer: unmarshal patched object: %w", err)
	}
	clientObj := result.(client.Object)
	clientObj.GetObjectKind().SetGroupVersionKind(gvk)
	return clientObj, nil
}

func emptyObjectForGVK(gvk schema.GroupVersionKind) (runtime.Object, error) {
	switch gvk.Kind {
	case wellknown.DeploymentGVK.Kind:
		return &appsv1.Deployment{}, nil
	case wellknown.ServiceGVK.Kind:
		return &corev1.Service{}, nil
	default:
		return nil, fmt.Errorf("deployer: unsupported kind %s for strategic merge patch", gvk.Kind)
	}
}
