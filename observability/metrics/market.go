package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type MarketMetrics struct {
	itemsSold        prometheus.Counter
	bundlesSold      prometheus.Counter
	offersMade       *prometheus.CounterVec
	offersAccepted   *prometheus.CounterVec
	offersCancelled  *prometheus.CounterVec
	collectionOffers *prometheus.CounterVec
	royaltyFallbacks *prometheus.CounterVec
}

var (
	marketOnce     sync.Once
	marketRegistry *MarketMetrics
)

func Market() *MarketMetrics {
	marketOnce.Do(func() {
		marketRegistry = &MarketMetrics{
			itemsSold: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "market_items_sold_total",
				Help: "Count of settled direct listings.",
			}),
			bundlesSold: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "market_bundles_sold_total",
				Help: "Count of settled bundle listings.",
			}),
			offersMade: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "market_offers_made_total",
				Help: "Count of escrowed offers by kind.",
			}, []string{"kind"}),
			offersAccepted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "market_offers_accepted_total",
				Help: "Count of accepted offers by kind.",
			}, []string{"kind"}),
			offersCancelled: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "market_offers_cancelled_total",
				Help: "Count of cancelled offers by initiator.",
			}, []string{"reason"}),
			collectionOffers: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "market_collection_offers_total",
				Help: "Count of collection offer transitions by outcome.",
			}, []string{"outcome"}),
			royaltyFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "market_royalty_fallbacks_total",
				Help: "Count of royalty lookups degraded to zero by cause.",
			}, []string{"cause"}),
		}
		prometheus.MustRegister(
			marketRegistry.itemsSold,
			marketRegistry.bundlesSold,
			marketRegistry.offersMade,
			marketRegistry.offersAccepted,
			marketRegistry.offersCancelled,
			marketRegistry.collectionOffers,
			marketRegistry.royaltyFallbacks,
		)
	})
	return marketRegistry
}

func (m *MarketMetrics) ObserveItemSold() {
	if m == nil {
		return
	}
	m.itemsSold.Inc()
}

func (m *MarketMetrics) ObserveBundleSold() {
	if m == nil {
		return
	}
	m.bundlesSold.Inc()
}

func (m *MarketMetrics) ObserveOfferMade(kind string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	m.offersMade.WithLabelValues(kind).Inc()
}

func (m *MarketMetrics) ObserveOfferAccepted(kind string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	m.offersAccepted.WithLabelValues(kind).Inc()
}

func (m *MarketMetrics) ObserveOfferCancelled(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	m.offersCancelled.WithLabelValues(reason).Inc()
}

func (m *MarketMetrics) ObserveCollectionOffer(outcome string) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.collectionOffers.WithLabelValues(outcome).Inc()
}

func (m *MarketMetrics) ObserveRoyaltyFallback(cause string) {
	if m == nil {
		return
	}
	if cause == "" {
		cause = "unknown"
	}
	m.royaltyFallbacks.WithLabelValues(cause).Inc()
}
