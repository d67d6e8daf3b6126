package market

// cascadeCancel resolves every remaining pending offer on an asset+token
// after that asset was sold through any per-asset flow. The index snapshot
// is walked in reverse so removals performed by the shared cancellation
// routine cannot skip entries. Offers already in a terminal state are pruned
// from the index without re-processing. Refund failures are logged and do
// not interrupt the walk: the sale that triggered the cascade has already
// settled.
func (e *Engine) cascadeCancel(key [32]byte) error {
	entry, ok := e.state.OfferIndexGet(key)
	if !ok || entry == nil || entry.Len() == 0 {
		return nil
	}
	ids := entry.Snapshot()
	for i := len(ids) - 1; i >= 0; i-- {
		id := ids[i]
		offer, ok := e.state.OfferGet(id)
		if !ok || offer == nil || offer.Status != OfferPending {
			if err := e.indexRemove(key, id); err != nil {
				return err
			}
			continue
		}
		if err := e.cancelOfferLocked(offer, [20]byte{}, true); err != nil {
			e.logger.Warn("market: cascade cancellation failed",
				"offer", id, "err", err)
		}
	}
	return nil
}
