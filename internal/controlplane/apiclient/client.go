// Package apiclient constructs the single Kubernetes client handle this
// control plane shares across every watcher and writer task. There is no
// generated typed clientset for the custom kinds (GatewayClassParameters,
// GatewayParameters, StaticResponseFilter, AccessControlFilter), so every
// kind -- built-in and custom alike -- is read through
// kclient.NewFilteredDelayed off the bare kube.Client.
package apiclient

import (
	"istio.io/istio/pkg/kube"
	"k8s.io/client-go/rest"
)

// Client is the shared handle: istio.io/istio's kube.Client, which
// provides typed/dynamic informer construction, REST config access, and
// connection pooling, and is safe to use concurrently from every task.
type Client = kube.Client

// New builds the shared client from a REST config, enabling the CRD
// watcher so kclient.NewFilteredDelayed can discover this control plane's
// custom resource definitions once they're installed.
func New(restConfig *rest.Config) (Client, error) {
	cfg := kube.NewClientConfigForRestConfig(restConfig)
	cli, err := kube.NewClient(cfg, "")
	if err != nil {
		return nil, err
	}
	kube.EnableCrdWatcher(cli)
	return cli, nil
}
