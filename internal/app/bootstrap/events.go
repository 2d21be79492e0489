package bootstrap

import (
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/events"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/listing"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/notify"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/realtime"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/pkg/logging"
)

var leadEvents = []string{
	events.TypeLeadCreated,
	events.TypeLeadStatusChanged,
	events.TypeLeadDeleted,
	events.TypeSaleRecorded,
}

// BuildEventBus subscribes the snapshot cache, journal, realtime hub and
// sale notifier. Any of them may be nil.
func BuildEventBus(cache *listing.Cache, journal events.Journal, hub *realtime.Hub, notifier *notify.SaleNotifier, logger *logging.Logger) *events.Bus {
	bus := events.NewBus(logger)
	if cache != nil {
		bus.Subscribe("listing.invalidate", cache.Subscriber(), leadEvents...)
	}
	if journal != nil {
		// lead.created carries no lead id, so it has nothing to journal against.
		bus.Subscribe("journal", events.JournalSubscriber(journal), events.TypeLeadStatusChanged, events.TypeSaleRecorded, events.TypeLeadDeleted)
	}
	if hub != nil {
		bus.Subscribe("realtime", hub.Subscriber(), leadEvents...)
	}
	if notifier != nil {
		bus.SubscribeAsync("notify.sale", notifier.Handle, events.TypeSaleRecorded)
	}
	return bus
}
