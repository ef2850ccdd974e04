// Package app wires this control plane's cobra CLI: a single long-running
// "serve" command (aliased as the root command's default action, since this
// binary has exactly one job) whose flags override the settings package's
// environment-derived defaults: an explicitly-set flag wins over the
// environment when both are set.
package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/whitefamily/kubera-controlplane/internal/controlplane/settings"
	"github.com/whitefamily/kubera-controlplane/pkg/version"
)

var flagOverrides struct {
	port         int
	metricsPort  int
	namespace    string
	podName      string
	instance     string
	logLevel     string
	noLeaderElec bool
}

var rootCmd = &cobra.Command{
	Use:   "controlplane",
	Short: "Run the Kubera Gateway API control plane",
	Long: `controlplane watches Gateway API and Kubera custom resources, renders
per-Gateway configuration and owned workloads, and serves them to the data
plane over the IPC HTTP API.`,
	Version: version.String(),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settings.Load()
		if err != nil {
			return err
		}
		applyFlagOverrides(cmd, s)
		return runServe(cmd.Context(), s)
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.IntVar(&flagOverrides.port, "port", 0, "IPC HTTP server listen port (overrides PORT)")
	flags.IntVar(&flagOverrides.metricsPort, "metrics-port", 0, "Prometheus metrics listen port (overrides METRICS_PORT)")
	flags.StringVar(&flagOverrides.namespace, "namespace", "", "namespace this replica runs in (overrides POD_NAMESPACE)")
	flags.StringVar(&flagOverrides.podName, "pod-name", "", "this replica's pod name, used as the lease holder identity (overrides POD_NAME)")
	flags.StringVar(&flagOverrides.instance, "instance", "", "logical control plane instance name (overrides KUBERA_INSTANCE)")
	flags.StringVar(&flagOverrides.logLevel, "log-level", "", "debug, info, warn, or error (overrides LOG_LEVEL)")
	flags.BoolVar(&flagOverrides.noLeaderElec, "disable-leader-election", false, "run as though this replica always held the lease")
}

// applyFlagOverrides overlays any explicitly-set flag onto s, leaving
// envconfig-derived values in place for flags the caller never set.
func applyFlagOverrides(cmd *cobra.Command, s *settings.Settings) {
	flags := cmd.Flags()
	if flags.Changed("port") {
		s.Port = flagOverrides.port
	}
	if flags.Changed("metrics-port") {
		s.MetricsPort = flagOverrides.metricsPort
	}
	if flags.Changed("namespace") {
		s.Namespace = flagOverrides.namespace
	}
	if flags.Changed("pod-name") {
		s.PodName = flagOverrides.podName
	}
	if flags.Changed("instance") {
		s.Instance = flagOverrides.instance
	}
	if flags.Changed("log-level") {
		s.LogLevel = flagOverrides.logLevel
	}
	if flags.Changed("disable-leader-election") {
		s.DisableLeaderElection = flagOverrides.noLeaderElec
	}
}

// Execute runs the root command, exiting the process non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "controlplane: %v\n", err)
		os.Exit(1)
	}
}
