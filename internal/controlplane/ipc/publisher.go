// Publisher bridges the transformer stage's per-Gateway document signal
// into the Store and Bus: whenever a new configuration is computed it
// stores it (if its hash changed) and announces a ConfigurationUpdate;
// whenever a Gateway drops out of the computed map entirely, it retracts
// the stored document and announces a Deleted.
package ipc

import (
	"context"
	"log/slog"

	"github.com/whitefamily/kubera-controlplane/internal/controlplane/config"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/objects"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/signalbus"
)

// Publisher drives Store + Bus from a signal of per-Gateway documents.
type Publisher struct {
	store  *Store
	bus    *Bus
	in     signalbus.Receiver[map[objects.Ref]config.Document]
	log    *slog.Logger
	tracked map[objects.Ref]bool
}

// NewPublisher wires a Publisher over store and bus, reading documents
// from in.
func NewPublisher(log *slog.Logger, store *Store, bus *Bus, in signalbus.Receiver[map[objects.Ref]config.Document]) *Publisher {
	return &Publisher{
		store:   store,
		bus:     bus,
		in:      in,
		log:     log.With("component", "ipc-publisher"),
		tracked: map[objects.Ref]bool{},
	}
}

// Run applies every recomputation of the document map until ctx is
// cancelled.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		docs, err := p.in.Changed(ctx)
		if err != nil {
			return ctx.Err()
		}
		p.apply(docs)
	}
}

func (p *Publisher) apply(docs map[objects.Ref]config.Document) {
	mgr := p.store.Manager()

	seen := make(map[objects.Ref]bool, len(docs))
	for ref, doc := range docs {
		seen[ref] = true
		changed, err := mgr.Insert(ref, doc)
		if err != nil {
			p.log.Warn("rendering configuration document", "gateway", ref, "error", err)
			continue
		}
		if changed {
			p.bus.Send(Event{Kind: ConfigurationUpdate, Ref: ref})
		}
		p.tracked[ref] = true
	}

	for ref := range p.tracked {
		if seen[ref] {
			continue
		}
		mgr.Remove(ref)
		p.bus.Send(Event{Kind: Deleted, Ref: ref})
		delete(p.tracked, ref)
	}
}
