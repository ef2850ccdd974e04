package deployer

import (
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/utils/ptr"

	"github.com/whitefamily/kubera-controlplane/internal/controlplane/wellknown"
)

const (
	dataPlaneContainerName = "dataplane"
	configVolumeName       = "gateway-config"
	configMountPath        = "/etc/kubera"
)

func labels(v Values) map[string]string {
	l := map[string]string{
		wellknown.ManagedByLabel: wellknown.ManagedByValue,
		wellknown.PartOfLabel:    v.Name,
	}
	for k, val := range v.Labels {
		l[k] = val
	}
	return l
}

// Deployment renders the owned Deployment for a Gateway. It carries no
// overlay -- callers apply one via ApplyOverlay afterward.
func Deployment(v Values) *appsv1.Deployment {
	selector := map[string]string{
		wellknown.PartOfLabel: v.Name,
	}
	var ports []corev1.ContainerPort
	for _, p := range v.Ports {
		ports = append(ports, corev1.ContainerPort{
			Name:          p.Name,
			ContainerPort: p.TargetPort,
		})
	}
	return &appsv1.Deployment{
		TypeMeta: metav1.TypeMeta{
			APIVersion: wellknown.DeploymentGVK.GroupVersion().String(),
			Kind:       wellknown.DeploymentGVK.Kind,
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      v.Name,
			Namespace: v.Namespace,
			Labels:    labels(v),
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: ptr.To(v.Replicas),
			Selector: &metav1.LabelSelector{MatchLabels: selector},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: selector},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{
						{
							Name:            dataPlaneContainerName,
							Image:           v.Image.String(),
							ImagePullPolicy: v.Image.PullPolicy,
							Ports:           ports,
							Resources:       v.Resources,
							VolumeMounts: []corev1.VolumeMount{
								{Name: configVolumeName, MountPath: configMountPath, ReadOnly: true},
							},
						},
					},
					Volumes: []corev1.Volume{
						{
							Name: configVolumeName,
							VolumeSource: corev1.VolumeSource{
								ConfigMap: &corev1.ConfigMapVolumeSource{
									LocalObjectReference: corev1.LocalObjectReference{Name: v.Name},
								},
							},
						},
					},
				},
			},
		},
	}
}

// Service renders the owned Service exposing the Gateway's listener ports.
func Service(v Values) *corev1.Service {
	selector := map[string]string{
		wellknown.PartOfLabel: v.Name,
	}
	var ports []corev1.ServicePort
	for _, p := range v.Ports {
		ports = append(ports, corev1.ServicePort{
			Name:       p.Name,
			Port:       p.Port,
			TargetPort: intstr.FromInt32(p.TargetPort),
		})
	}
	return &corev1.Service{
		TypeMeta: metav1.TypeMeta{
			APIVersion: wellknown.ServiceGVK.GroupVersion().String(),
			Kind:       wellknown.ServiceGVK.Kind,
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      v.Name,
			Namespace: v.Namespace,
			Labels:    labels(v),
		},
		Spec: corev1.ServiceSpec{
			Type:     v.ServiceType,
			Selector: selector,
			Ports:    ports,
		},
	}
}

// ConfigMap renders the owned ConfigMap carrying the rendered configuration
// document under wellknown.ConfigMapConfigKey. document is the YAML bytes
// produced by config.Document.Render; ConfigMap itself carries no overlay
// per the "owned kinds" story (overlays apply only to Deployment/Service).
func ConfigMap(v Values, document []byte) *corev1.ConfigMap {
	l := labels(v)
	return &corev1.ConfigMap{
		TypeMeta: metav1.TypeMeta{
			APIVersion: wellknown.ConfigMapGVK.GroupVersion().String(),
			Kind:       wellknown.ConfigMapGVK.Kind,
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      v.Name,
			Namespace: v.Namespace,
			Labels:    l,
			Annotations: map[string]string{
				wellknown.ConfigMapRoleAnnotation: wellknown.ConfigMapRoleGatewayConfiguration,
			},
		},
		Data: map[string]string{
			wellknown.ConfigMapConfigKey: string(document),
		},
	}
}
