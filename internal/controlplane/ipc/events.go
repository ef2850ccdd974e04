package ipc

import "github.com/whitefamily/kubera-controlplane/internal/controlplane/objects"

// GatewayEventKind tags which of the two Gateway event shapes an Event
// carries.
type GatewayEventKind int

const (
	ConfigurationUpdate GatewayEventKind = iota
	Deleted
)

func (k GatewayEventKind) String() string {
	if k == Deleted {
		return "Gateway::Deleted"
	}
	return "Gateway::ConfigurationUpdate"
}

// Event is the tagged variant the event bus carries; only Gateway-kind
// events exist today, but the Kind tag leaves room for future event
// families without changing every subscriber's type.
type Event struct {
	Kind GatewayEventKind
	Ref  objects.Ref
}
