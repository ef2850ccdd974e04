// Package objects implements the canonical object reference, tombstoned
// object state, and typed collection primitives this control plane uses to
// track Kubernetes and custom-resource state as it flows through the
// reconciliation pipeline.
package objects

import "fmt"

// Ref is the canonical identity of a Kubernetes object: group, kind, an
// optional namespace (cluster-scoped kinds carry none), and name.
//
// Ref is a plain comparable struct so it can be used directly as a map key:
// equality and hashing are purely structural.
type Ref struct {
	Group     string
	Kind      string
	Namespace string
	Name      string
}

// String renders the ref in "group/kind ns/name" form, omitting the
// namespace for cluster-scoped kinds.
func (r Ref) String() string {
	gk := r.Kind
	if r.Group != "" {
		gk = r.Group + "/" + r.Kind
	}
	if r.Namespace == "" {
		return fmt.Sprintf("%s:%s", gk, r.Name)
	}
	return fmt.Sprintf("%s:%s/%s", gk, r.Namespace, r.Name)
}

// UniqueID is a stable opaque identifier for a resource, carried in object
// metadata (typically a UID), used when the user-facing name is unstable.
// It stays the same across an Active<->Deleted transition for the same
// resource.
type UniqueID string
