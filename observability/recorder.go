package observability

import (
	"log/slog"

	"tokenmart/core/events"
	"tokenmart/core/types"
	"tokenmart/native/market"
	"tokenmart/observability/metrics"
)

// Recorder is an events.Emitter that mirrors every marketplace event into
// the structured log and the prometheus registry. It is the emitter a node
// wires into the engine; tests usually use their own capture emitters.
type Recorder struct {
	logger *slog.Logger
}

// NewRecorder builds a recorder on the supplied logger.
func NewRecorder(logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{logger: logger.With("component", "market-events")}
}

type payloadEvent interface {
	Event() *types.Event
}

// Emit implements events.Emitter.
func (r *Recorder) Emit(evt events.Event) {
	if r == nil || evt == nil {
		return
	}
	eventType := evt.EventType()
	m := metrics.Market()
	var attrs map[string]string
	if payload, ok := evt.(payloadEvent); ok {
		if e := payload.Event(); e != nil {
			attrs = e.Attributes
		}
	}
	switch eventType {
	case market.EventTypeItemSold:
		m.ObserveItemSold()
	case market.EventTypeBundleSold:
		m.ObserveBundleSold()
	case market.EventTypeOfferMade:
		m.ObserveOfferMade(attrs["kind"])
	case market.EventTypeOfferAccepted:
		m.ObserveOfferAccepted(attrs["kind"])
	case market.EventTypeOfferCancelled:
		m.ObserveOfferCancelled(attrs["reason"])
	case market.EventTypeCollectionOfferMade:
		m.ObserveCollectionOffer("made")
	case market.EventTypeCollectionOfferCancelled:
		m.ObserveCollectionOffer("cancelled")
	case market.EventTypeCollectionOfferAccepted:
		m.ObserveCollectionOffer("accepted")
	case market.EventTypeRoyaltyUnavailable:
		m.ObserveRoyaltyFallback("lookup_failed")
	case market.EventTypeRoyaltyExceedsPrice:
		m.ObserveRoyaltyFallback("exceeds_price")
	}

	logAttrs := make([]any, 0, 2+2*len(attrs))
	logAttrs = append(logAttrs, "event", eventType)
	for k, v := range attrs {
		logAttrs = append(logAttrs, k, v)
	}
	r.logger.Info("marketplace event", logAttrs...)
}
