// Package settings loads process configuration from the environment,
// following the same envconfig-tag-on-a-struct idiom used elsewhere in this
// ecosystem's services: a single struct, one call to envconfig.Process, and
// explicit defaults on the struct tags rather than scattered os.Getenv
// calls.
package settings

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Settings holds every tunable this control plane reads at startup. Fields
// map onto --flag overrides in cmd/controlplane; the flag layer takes
// precedence over the environment when both are set.
type Settings struct {
	// Port is the IPC HTTP server's listen port.
	Port int `envconfig:"PORT" default:"8080"`

	// MetricsPort is the Prometheus metrics endpoint's listen port.
	MetricsPort int `envconfig:"METRICS_PORT" default:"9090"`

	// Namespace is the namespace this replica runs in, used to scope the
	// leader-election Lease and the rendered ConfigMaps/Deployments/Services.
	Namespace string `envconfig:"POD_NAMESPACE" default:"kubera-system"`

	// PodName identifies this replica; it becomes the Lease holder identity.
	PodName string `envconfig:"POD_NAME"`

	// Instance names the logical deployment of this control plane, used to
	// derive the Lease name (Instance + "-primary-lock") and to distinguish
	// multiple independently-managed instances sharing a cluster.
	Instance string `envconfig:"KUBERA_INSTANCE" default:"kubera"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// DisableLeaderElection runs this replica as though it always held the
	// lease -- intended for local development and single-replica test runs,
	// never for production deployments with more than one replica.
	DisableLeaderElection bool `envconfig:"DISABLE_LEADER_ELECTION" default:"false"`

	// LeaseCheckInterval is how often the role controller re-attempts or
	// renews the leader-election lease.
	LeaseCheckInterval time.Duration `envconfig:"LEASE_CHECK_INTERVAL" default:"5s"`

	// LeaseDuration is the lease's TTL: how long a holder's claim survives
	// without being renewed before another replica may acquire it.
	LeaseDuration time.Duration `envconfig:"LEASE_DURATION" default:"20s"`

	// AutoCycleDuration is the writers' periodic re-sync interval, used to
	// repair drift even in the absence of watch events.
	AutoCycleDuration time.Duration `envconfig:"AUTO_CYCLE_DURATION" default:"15s"`

	// IPCSSEKeepAliveInterval is how often the SSE event stream endpoint
	// emits a keep-alive comment to hold idle connections open through
	// intermediating proxies.
	IPCSSEKeepAliveInterval time.Duration `envconfig:"IPC_SSE_KEEP_ALIVE_INTERVAL" default:"15s"`
}

// Load reads Settings from the environment, applying envconfig defaults for
// anything unset.
func Load() (*Settings, error) {
	var s Settings
	if err := envconfig.Process("", &s); err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate rejects settings combinations that would otherwise fail loudly
// and confusingly much later (an empty Lease holder identity, a zero or
// negative interval).
func (s *Settings) Validate() error {
	if s.Instance == "" {
		return fmt.Errorf("settings: instance must not be empty")
	}
	if !s.DisableLeaderElection && s.PodName == "" {
		return fmt.Errorf("settings: pod name must not be empty when leader election is enabled")
	}
	if s.LeaseCheckInterval <= 0 {
		return fmt.Errorf("settings: lease check interval must be positive")
	}
	if s.LeaseDuration <= 0 {
		return fmt.Errorf("settings: lease duration must be positive")
	}
	if s.LeaseCheckInterval >= s.LeaseDuration {
		return fmt.Errorf("settings: lease check interval must be shorter than lease duration")
	}
	if s.AutoCycleDuration <= 0 {
		return fmt.Errorf("settings: auto cycle duration must be positive")
	}
	if s.IPCSSEKeepAliveInterval <= 0 {
		return fmt.Errorf("settings: ipc sse keep alive interval must be positive")
	}
	if s.MetricsPort == s.Port {
		return fmt.Errorf("settings: metrics port must differ from the IPC port")
	}
	return nil
}

// LeaseName derives the leader-election Lease's name from the instance name.
func (s *Settings) LeaseName() string {
	return s.Instance + "-primary-lock"
}
