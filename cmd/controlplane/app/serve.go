package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	corev1 "k8s.io/api/core/v1"
	discoveryv1 "k8s.io/api/discovery/v1"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"istio.io/istio/pkg/kube/kclient"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	gwv1 "sigs.k8s.io/gateway-api/apis/v1"

	"github.com/whitefamily/kubera-controlplane/api/v1alpha1"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/apiclient"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/classstatus"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/filterstatus"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/health"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/ipc"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/ipc/httpapi"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/logging"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/metrics"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/objects"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/pipeline"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/role"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/schemes"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/settings"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/signalbus"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/staticresponses"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/supervisor"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/sync"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/watcher"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/wellknown"
	"github.com/whitefamily/kubera-controlplane/pkg/version"
)

// runServe wires every package of this control plane into one fixed set of
// supervisor tasks and blocks until one of them exits or the process
// receives SIGINT/SIGTERM. It is the single assembly point all the reactive
// stages, writers, and the IPC server converge on.
func runServe(ctx context.Context, s *settings.Settings) error {
	logging.Bootstrap(s.LogLevel)
	log := logging.New("controlplane")
	log.LogAttrs(ctx, slog.LevelInfo, "starting control plane", version.Attrs()...)
	registry := metrics.Registry()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	restConfig, err := ctrl.GetConfig()
	if err != nil {
		return fmt.Errorf("loading kubeconfig: %w", err)
	}

	scheme, err := schemes.Default()
	if err != nil {
		return err
	}

	kubeClient, err := apiclient.New(restConfig)
	if err != nil {
		return fmt.Errorf("building watch client: %w", err)
	}
	crClient, err := client.New(restConfig, client.Options{Scheme: scheme})
	if err != nil {
		return fmt.Errorf("building server-side-apply client: %w", err)
	}
	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return fmt.Errorf("building clientset: %w", err)
	}
	dynClient, err := dynamic.NewForConfig(restConfig)
	if err != nil {
		return fmt.Errorf("building dynamic client: %w", err)
	}

	watchers, raw := buildWatchers(log, kubeClient)

	roleRecv, holderIPRecv, roleCtrl, roleTask := buildRoleSignal(log, s, clientset)

	filterStage, filtered := pipeline.NewFilterStage(log, wellknown.DefaultControllerName, wellknown.KuberaGroup, wellknown.GatewayParametersKind, raw)
	transformStage, outputs := pipeline.NewTransformStage(log, wellknown.KuberaGroup, wellknown.KuberaGroup, filtered,
		pipeline.RawJoinInputs{
			EndpointSlices:        raw.EndpointSlices,
			StaticResponseFilters: raw.StaticResponseFilters,
			AccessControlFilters:  raw.AccessControlFilters,
		})

	cmWriter := sync.ConfigMapWriter(crClient, wellknown.DefaultControllerName, log)
	depWriter := sync.DeploymentWriter(crClient, wellknown.DefaultControllerName, log)
	svcWriter := sync.ServiceWriter(crClient, wellknown.DefaultControllerName, log)
	classWriter := classstatus.NewWriter(crClient, log)
	filterWriter := filterstatus.NewWriter(crClient, log)

	store := ipc.NewStore()
	bus := ipc.NewBus()
	publisher := ipc.NewPublisher(log, store, bus, outputs.Documents)
	cache := staticresponses.New()

	probe := health.New(dynClient, wellknown.GatewayClassParametersGVR)
	ipcServer := httpapi.New(log, store.Reader(), bus, cache, probe.Checker, s.IPCSSEKeepAliveInterval).
		WithRedirect(httpapi.Redirect{Role: roleRecv, PrimaryIP: holderIPRecv, Port: s.Port})
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.Port),
		Handler: ipcServer.Handler(),
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.MetricsPort),
		Handler: metricsMux,
	}

	tasks := []supervisor.Task{
		{Name: "filter-stage", Run: filterStage.Run},
		{Name: "transform-stage", Run: transformStage.Run},
		{Name: "configmap-writer", Run: func(ctx context.Context) error {
			return cmWriter.Run(ctx, roleRecv, outputs.ConfigMaps, s.AutoCycleDuration)
		}},
		{Name: "deployment-writer", Run: func(ctx context.Context) error {
			return depWriter.Run(ctx, roleRecv, outputs.Deployments, s.AutoCycleDuration)
		}},
		{Name: "service-writer", Run: func(ctx context.Context) error {
			return svcWriter.Run(ctx, roleRecv, outputs.Services, s.AutoCycleDuration)
		}},
		{Name: "gatewayclass-status-writer", Run: func(ctx context.Context) error {
			return classWriter.Run(ctx, roleRecv, outputs.ClassConditions, s.AutoCycleDuration)
		}},
		{Name: "filter-status-writer", Run: func(ctx context.Context) error {
			return filterWriter.Run(ctx, roleRecv, outputs.FilterConditions, s.AutoCycleDuration)
		}},
		{Name: "ipc-publisher", Run: publisher.Run},
		{Name: "static-response-cache", Run: func(ctx context.Context) error {
			return runStaticResponseCache(ctx, cache, raw.StaticResponseFilters)
		}},
		{Name: "ipc-http-server", Run: func(ctx context.Context) error {
			return runHTTPServer(ctx, log, httpServer)
		}},
		{Name: "metrics-http-server", Run: func(ctx context.Context) error {
			return runHTTPServer(ctx, log, metricsServer)
		}},
	}
	tasks = append(tasks, watchers...)
	if roleTask != nil {
		tasks = append(tasks, *roleTask)
		tasks = append(tasks, buildPodIPFeed(log, s, kubeClient, roleCtrl)...)
	}

	log.Info("starting control plane", "namespace", s.Namespace, "instance", s.Instance, "port", s.Port)
	return supervisor.Run(ctx, log, tasks...)
}

// buildWatchers constructs one watcher.Watcher per kind this control plane
// reads, each backed by its own kclient informer off the shared
// kube.Client.
func buildWatchers(log *slog.Logger, cli apiclient.Client) ([]supervisor.Task, pipeline.RawInputs) {
	filter := kclient.Filter{ObjectFilter: cli.ObjectFilter()}

	classClient := kclient.NewFilteredDelayed[*gwv1.GatewayClass](cli, wellknown.GatewayClassGVR, filter)
	classWatcher, classRecv := watcher.New(log, wellknown.GatewayClassGVK, classClient)

	gwClient := kclient.NewFilteredDelayed[*gwv1.Gateway](cli, wellknown.GatewayGVR, filter)
	gwWatcher, gwRecv := watcher.New(log, wellknown.GatewayGVK, gwClient)

	routeClient := kclient.NewFilteredDelayed[*gwv1.HTTPRoute](cli, wellknown.HTTPRouteGVR, filter)
	routeWatcher, routeRecv := watcher.New(log, wellknown.HTTPRouteGVK, routeClient)

	classParamsClient := kclient.NewFilteredDelayed[*v1alpha1.GatewayClassParameters](cli, wellknown.GatewayClassParametersGVR, filter)
	classParamsWatcher, classParamsRecv := watcher.New(log, wellknown.GatewayClassParametersGVK, classParamsClient)

	gwParamsClient := kclient.NewFilteredDelayed[*v1alpha1.GatewayParameters](cli, wellknown.GatewayParametersGVR, filter)
	gwParamsWatcher, gwParamsRecv := watcher.New(log, wellknown.GatewayParametersGVK, gwParamsClient)

	epsClient := kclient.NewFilteredDelayed[*discoveryv1.EndpointSlice](cli, wellknown.EndpointSliceGVR, filter)
	epsWatcher, epsRecv := watcher.New(log, wellknown.EndpointSliceGVK, epsClient)

	staticClient := kclient.NewFilteredDelayed[*v1alpha1.StaticResponseFilter](cli, wellknown.StaticResponseFilterGVR, filter)
	staticWatcher, staticRecv := watcher.New(log, wellknown.StaticResponseFilterGVK, staticClient)

	accessClient := kclient.NewFilteredDelayed[*v1alpha1.AccessControlFilter](cli, wellknown.AccessControlFilterGVR, filter)
	accessWatcher, accessRecv := watcher.New(log, wellknown.AccessControlFilterGVK, accessClient)

	tasks := []supervisor.Task{
		{Name: "watch-gatewayclass", Run: classWatcher.Run},
		{Name: "watch-gateway", Run: gwWatcher.Run},
		{Name: "watch-httproute", Run: routeWatcher.Run},
		{Name: "watch-gatewayclassparameters", Run: classParamsWatcher.Run},
		{Name: "watch-gatewayparameters", Run: gwParamsWatcher.Run},
		{Name: "watch-endpointslice", Run: epsWatcher.Run},
		{Name: "watch-staticresponsefilter", Run: staticWatcher.Run},
		{Name: "watch-accesscontrolfilter", Run: accessWatcher.Run},
	}

	return tasks, pipeline.RawInputs{
		GatewayClasses:         classRecv,
		Gateways:               gwRecv,
		HTTPRoutes:             routeRecv,
		GatewayClassParameters: classParamsRecv,
		GatewayParameters:      gwParamsRecv,
		EndpointSlices:         epsRecv,
		StaticResponseFilters:  staticRecv,
		AccessControlFilters:   accessRecv,
	}
}

// runStaticResponseCache resets cache every time the StaticResponseFilter
// collection changes, the full-invalidation policy staticresponses.Cache
// documents.
func runStaticResponseCache(ctx context.Context, cache *staticresponses.Cache, filters signalbus.Receiver[objects.Collection[*v1alpha1.StaticResponseFilter]]) error {
	recv := filters.Clone()
	for {
		snap, err := recv.Changed(ctx)
		if err != nil {
			return ctx.Err()
		}
		cache.Reset(snap)
	}
}

// runHTTPServer runs httpServer until ctx is cancelled, then shuts it down
// gracefully with a bounded timeout.
func runHTTPServer(ctx context.Context, log *slog.Logger, httpServer *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("shutting down ipc http server", "error", err)
		}
		return ctx.Err()
	}
}

// buildRoleSignal either starts the leader-election controller or, when
// leader election is disabled, publishes a constant Primary signal with no
// backing task -- an escape hatch for local development and single-replica
// test runs.
func buildRoleSignal(log *slog.Logger, s *settings.Settings, clientset kubernetes.Interface) (signalbus.Receiver[role.Role], signalbus.Receiver[string], *role.Controller, *supervisor.Task) {
	if s.DisableLeaderElection {
		send, recv := signalbus.NewComparable[role.Role]()
		send.Set(role.Primary)
		// A permanently-Pending IP signal: with a constant Primary role the
		// redirect facility never consults it.
		_, ipRecv := signalbus.NewComparable[string]()
		return recv, ipRecv, nil, nil
	}
	roleCtrl, recv, ipRecv := role.New(log, clientset, s.Namespace, s.LeaseName(), s.PodName, s.LeaseCheckInterval, s.LeaseDuration)
	task := supervisor.Task{Name: "role-controller", Run: roleCtrl.Run}
	return recv, ipRecv, roleCtrl, &task
}

// buildPodIPFeed watches this control plane's own replica pods (by the
// NameLabel selector, scoped to the control-plane namespace) and feeds
// their IPs to the role controller so it can resolve the current lease
// holder's address for data-plane redirection.
func buildPodIPFeed(log *slog.Logger, s *settings.Settings, cli apiclient.Client, roleCtrl *role.Controller) []supervisor.Task {
	podClient := kclient.NewFilteredDelayed[*corev1.Pod](cli, wellknown.PodGVR, kclient.Filter{
		Namespace:     s.Namespace,
		LabelSelector: wellknown.NameLabel + "=" + wellknown.ControlPlaneName,
		ObjectFilter:  cli.ObjectFilter(),
	})
	podWatcher, podRecv := watcher.New(log, wellknown.PodGVK, podClient)
	return []supervisor.Task{
		{Name: "watch-controlplane-pods", Run: podWatcher.Run},
		{Name: "role-pod-ip-feed", Run: func(ctx context.Context) error {
			return roleCtrl.RunPodIPFeed(ctx, podRecv)
		}},
	}
}
