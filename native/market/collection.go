package market

import (
	"fmt"
	"math/big"
)

// MakeCollectionOffer escrows a floor offer against an entire collection,
// fulfillable by any holder of a token in it.
func (e *Engine) MakeCollectionOffer(caller [20]byte, collection [20]byte, amount *big.Int, expiry int64) (*CollectionOffer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return nil, err
	}
	if expiry != 0 && expiry <= e.now() {
		return nil, fmt.Errorf("market: offer expiration in the past")
	}
	cfg := e.snapshot()
	offer, err := SanitizeCollectionOffer(&CollectionOffer{
		Collection: collection,
		Offerer:    caller,
		PayToken:   cfg.PayToken,
		Amount:     amount,
		Status:     CollectionOfferPending,
		Expiry:     expiry,
		CreatedAt:  e.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := e.payments.Pull(offer.PayToken, caller, e.vault, offer.Amount); err != nil {
		return nil, fmt.Errorf("market: offer escrow failed: %w", err)
	}
	id, err := e.state.NextCollectionOfferID()
	if err != nil {
		return nil, err
	}
	offer.ID = id
	if err := e.state.CollectionOfferPut(offer); err != nil {
		return nil, err
	}
	e.emit(NewCollectionOfferMadeEvent(offer))
	return offer.Clone(), nil
}

// CancelCollectionOffer cancels the caller's pending floor offer and refunds
// its escrow.
func (e *Engine) CancelCollectionOffer(caller [20]byte, id uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return err
	}
	offer, ok := e.state.CollectionOfferGet(id)
	if !ok {
		return ErrOfferNotFound
	}
	if offer.Status != CollectionOfferPending {
		return ErrOfferNotPending
	}
	if offer.Offerer != caller {
		return ErrNotOfferer
	}
	offer.Status = CollectionOfferCancelled
	if err := e.state.CollectionOfferPut(offer); err != nil {
		return err
	}
	e.emit(NewCollectionOfferCancelledEvent(offer))
	return e.payOut(offer.PayToken, offer.Offerer, offer.Amount)
}

// AcceptCollectionOffer fulfils a floor offer with the caller's token. The
// caller must hold the single-unit token and have pre-authorized the engine.
// Settlement splits the escrowed amount; the token moves from the caller to
// the offerer. The per-token offer index is deliberately left untouched:
// floor offers are collection-scoped, so fulfilling one does not cascade
// token-scoped offers on the fulfilled token. That asymmetry with the direct
// sale flows is a documented scope boundary of the design.
func (e *Engine) AcceptCollectionOffer(caller [20]byte, id uint64, tokenID *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return err
	}
	offer, ok := e.state.CollectionOfferGet(id)
	if !ok {
		return ErrOfferNotFound
	}
	if offer.Status != CollectionOfferPending {
		return ErrOfferNotPending
	}
	if offer.ExpiredAt(e.now()) {
		return ErrOfferExpired
	}
	if offer.Offerer == caller {
		return ErrSelfTrade
	}
	item, err := SanitizeItem(NFTItem{Asset: offer.Collection, TokenID: tokenID, Standard: StandardSingle, Quantity: 1})
	if err != nil {
		return err
	}
	if err := e.requireCustody(caller, item); err != nil {
		return err
	}

	cfg := e.snapshot()
	royalty, diags := e.lookupRoyalty(offer.Collection, item.TokenID, offer.Amount)
	settlement := ComputeSettlement(offer.Amount, royalty, cfg.FeeBps)

	offer.Status = CollectionOfferAccepted
	offer.FulfilledTokenID = new(big.Int).Set(item.TokenID)
	offer.Fulfiller = caller
	if err := e.state.CollectionOfferPut(offer); err != nil {
		return err
	}
	for _, diag := range diags {
		e.emit(diag)
	}
	e.emit(NewCollectionOfferAcceptedEvent(offer, settlement))

	if err := e.disburse(offer.PayToken, settlement, cfg.FeeRecipient, caller); err != nil {
		return err
	}
	return e.assets.Transfer(caller, offer.Offerer, item)
}
