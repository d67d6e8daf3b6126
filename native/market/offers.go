package market

import (
	"fmt"
	"math/big"

	"tokenmart/core/types"
)

// MakeOffer escrows an amount of the canonical payment token against a
// specific asset+token. The expiration is a unix timestamp; zero means the
// offer never expires.
func (e *Engine) MakeOffer(caller [20]byte, target NFTItem, amount *big.Int, expiry int64) (*Offer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.makeOfferLocked(caller, target, OfferPayment, amount, nil, expiry)
}

// MakeBarterOffer escrows the caller's counter-asset against a specific
// asset+token. Settlement is a straight swap with no fee or royalty split.
func (e *Engine) MakeBarterOffer(caller [20]byte, target NFTItem, barter NFTItem, expiry int64) (*Offer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.makeOfferLocked(caller, target, OfferBarter, nil, &barter, expiry)
}

func (e *Engine) makeOfferLocked(caller [20]byte, target NFTItem, kind OfferKind, amount *big.Int, barter *NFTItem, expiry int64) (*Offer, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if expiry != 0 && expiry <= e.now() {
		return nil, fmt.Errorf("market: offer expiration in the past")
	}
	cfg := e.snapshot()
	offer, err := SanitizeOffer(&Offer{
		Asset:     target.Asset,
		TokenID:   target.TokenID,
		Standard:  target.Standard,
		Quantity:  target.Quantity,
		Offerer:   caller,
		Status:    OfferPending,
		Kind:      kind,
		PayToken:  cfg.PayToken,
		Amount:    amount,
		Barter:    barter,
		Expiry:    expiry,
		CreatedAt: e.now(),
	})
	if err != nil {
		return nil, err
	}
	// Escrow the offered value before any record exists; an escrow failure
	// leaves nothing behind.
	switch offer.Kind {
	case OfferPayment:
		if err := e.payments.Pull(offer.PayToken, caller, e.vault, offer.Amount); err != nil {
			return nil, fmt.Errorf("market: offer escrow failed: %w", err)
		}
	case OfferBarter:
		if err := e.requireCustody(caller, *offer.Barter); err != nil {
			return nil, err
		}
		if err := e.assets.Transfer(caller, e.vault, *offer.Barter); err != nil {
			return nil, fmt.Errorf("market: offer escrow failed: %w", err)
		}
	}
	id, err := e.state.NextOfferID()
	if err != nil {
		return nil, err
	}
	offer.ID = id
	if err := e.state.OfferPut(offer); err != nil {
		return nil, err
	}
	if err := e.indexAdd(AssetKey(offer.Asset, offer.TokenID), offer.ID); err != nil {
		return nil, err
	}
	e.emit(NewOfferMadeEvent(offer))
	return offer.Clone(), nil
}

// CancelOffer cancels the caller's pending offer and refunds its escrow.
func (e *Engine) CancelOffer(caller [20]byte, id uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return err
	}
	offer, err := e.loadOffer(id)
	if err != nil {
		return err
	}
	return e.cancelOfferLocked(offer, caller, false)
}

// cancelOfferLocked is the shared cancellation routine used by both
// caller-initiated cancellation and cascade cancellation. System-initiated
// cancellations bypass the offerer identity check. The terminal status
// records whether the offer had already expired. Status and index updates
// commit before the escrow refund.
func (e *Engine) cancelOfferLocked(offer *Offer, caller [20]byte, system bool) error {
	if offer.Status != OfferPending {
		return ErrOfferNotPending
	}
	if !system && offer.Offerer != caller {
		return ErrNotOfferer
	}
	if offer.ExpiredAt(e.now()) {
		offer.Status = OfferExpired
	} else {
		offer.Status = OfferCancelled
	}
	if err := e.state.OfferPut(offer); err != nil {
		return err
	}
	if err := e.indexRemove(AssetKey(offer.Asset, offer.TokenID), offer.ID); err != nil {
		return err
	}
	reason := CancelReasonOfferer
	if system {
		reason = CancelReasonCascade
	}
	e.emit(NewOfferCancelledEvent(offer, reason))
	return e.refundOfferEscrow(offer)
}

// refundOfferEscrow returns the escrowed consideration of an offer to its
// offerer.
func (e *Engine) refundOfferEscrow(offer *Offer) error {
	switch offer.Kind {
	case OfferPayment:
		return e.payOut(offer.PayToken, offer.Offerer, offer.Amount)
	case OfferBarter:
		return e.assets.Transfer(e.vault, offer.Offerer, *offer.Barter)
	default:
		return fmt.Errorf("market: invalid offer kind %d", offer.Kind)
	}
}

// AcceptOffer settles a pending offer against the caller's asset. When the
// target is actively listed the caller must be that listing's seller, the
// offer must match the listing's escrowed standard and quantity, and the
// asset is delivered out of the listing escrow; otherwise the caller must
// hold and have pre-authorized the asset. Payment offers settle
// through the shared royalty/fee/seller split over the escrowed amount;
// barter offers swap the two assets directly. Acceptance cascades the
// cancellation of every other pending offer on the asset.
func (e *Engine) AcceptOffer(caller [20]byte, id uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return err
	}
	offer, err := e.loadOffer(id)
	if err != nil {
		return err
	}
	if offer.Status != OfferPending {
		return ErrOfferNotPending
	}
	if offer.ExpiredAt(e.now()) {
		return ErrOfferExpired
	}
	if offer.Offerer == caller {
		return ErrSelfTrade
	}

	key := AssetKey(offer.Asset, offer.TokenID)
	var listing *Listing
	if stored, ok := e.state.ListingGet(key); ok && stored != nil && stored.Active {
		if stored.Seller != caller {
			return ErrNotSeller
		}
		// Settlement draws on the listing escrow; the offer must want
		// exactly the escrowed standard and quantity.
		if offer.Standard != stored.Standard || offer.Quantity != stored.Quantity {
			return ErrOfferMismatch
		}
		listing = stored
	} else if err := e.requireCustody(caller, offer.Target()); err != nil {
		return err
	}

	cfg := e.snapshot()
	var settlement *Settlement
	var diags []*types.Event
	if offer.Kind == OfferPayment {
		royalty, royaltyDiags := e.lookupRoyalty(offer.Asset, offer.TokenID, offer.Amount)
		split := ComputeSettlement(offer.Amount, royalty, cfg.FeeBps)
		settlement = &split
		diags = royaltyDiags
	}

	offer.Status = OfferAccepted
	if err := e.state.OfferPut(offer); err != nil {
		return err
	}
	if err := e.indexRemove(key, offer.ID); err != nil {
		return err
	}
	if listing != nil {
		listing.Active = false
		if err := e.state.ListingPut(listing); err != nil {
			return err
		}
	}
	for _, diag := range diags {
		e.emit(diag)
	}
	e.emit(NewOfferAcceptedEvent(offer, caller, settlement))

	if settlement != nil {
		if err := e.disburse(offer.PayToken, *settlement, cfg.FeeRecipient, caller); err != nil {
			return err
		}
	}
	// Deliver the target asset to the offerer: out of listing escrow when
	// it was listed, straight from the seller otherwise.
	assetSource := caller
	if listing != nil {
		assetSource = e.vault
	}
	if err := e.assets.Transfer(assetSource, offer.Offerer, offer.Target()); err != nil {
		return err
	}
	if offer.Kind == OfferBarter {
		if err := e.assets.Transfer(e.vault, caller, *offer.Barter); err != nil {
			return err
		}
	}
	return e.cascadeCancel(key)
}
