package market

import (
	"fmt"
	"math/big"

	"tokenmart/core/types"
)

// ListBundle escrows a fixed set of assets as one sellable unit. Every item
// is validated for ownership and engine authorization before any transfer is
// attempted, so a rejected bundle leaves no partial escrow behind.
func (e *Engine) ListBundle(caller [20]byte, items []NFTItem, price *big.Int, payToken [20]byte) (*BundleListing, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return nil, err
	}
	bundle, err := SanitizeBundle(&BundleListing{
		Seller:    caller,
		Items:     items,
		Price:     price,
		PayToken:  payToken,
		Active:    true,
		CreatedAt: e.now(),
	})
	if err != nil {
		return nil, err
	}
	for _, item := range bundle.Items {
		if err := e.requireCustody(caller, item); err != nil {
			return nil, err
		}
	}
	for _, item := range bundle.Items {
		if err := e.assets.Transfer(caller, e.vault, item); err != nil {
			return nil, fmt.Errorf("market: bundle escrow failed: %w", err)
		}
	}
	id, err := e.state.NextBundleID()
	if err != nil {
		return nil, err
	}
	bundle.ID = id
	if err := e.state.BundlePut(bundle); err != nil {
		return nil, err
	}
	e.emit(NewBundleListedEvent(bundle))
	return bundle.Clone(), nil
}

// CancelBundleListing deactivates the caller's bundle and returns every
// escrowed item to the seller.
func (e *Engine) CancelBundleListing(caller [20]byte, id uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return err
	}
	bundle, ok := e.state.BundleGet(id)
	if !ok {
		return ErrBundleNotFound
	}
	if !bundle.Active {
		return ErrBundleInactive
	}
	if bundle.Seller != caller {
		return ErrNotSeller
	}
	bundle.Active = false
	if err := e.state.BundlePut(bundle); err != nil {
		return err
	}
	e.emit(NewBundleCancelledEvent(bundle))
	for _, item := range bundle.Items {
		if err := e.assets.Transfer(e.vault, bundle.Seller, item); err != nil {
			return err
		}
	}
	return nil
}

// BuyBundle settles an active bundle for the caller. Royalties are computed
// per item against the item's equal share of the bundle price, with a
// lookup failure or an oversized royalty zeroing only that item's royalty.
// One marketplace fee is assessed on the bundle total, capped by what
// remains after the realized royalties. Bundle sales do not walk the
// per-token offer index; only single-asset flows cascade.
func (e *Engine) BuyBundle(caller [20]byte, id uint64, paid *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return err
	}
	bundle, ok := e.state.BundleGet(id)
	if !ok {
		return ErrBundleNotFound
	}
	if !bundle.Active {
		return ErrBundleInactive
	}
	if paid == nil {
		paid = big.NewInt(0)
	}
	if paid.Sign() < 0 {
		return fmt.Errorf("market: negative payment")
	}
	native := bundle.PayToken == NativeToken
	if native {
		if paid.Cmp(bundle.Price) < 0 {
			return ErrInsufficientPayment
		}
	} else if paid.Sign() > 0 {
		return ErrWrongDenomination
	}

	cfg := e.snapshot()
	share := BundleShare(bundle.Price, len(bundle.Items))
	type royaltyLeg struct {
		recipient [20]byte
		amount    *big.Int
	}
	legs := make([]royaltyLeg, 0, len(bundle.Items))
	totalRoyalty := big.NewInt(0)
	var diags []*types.Event
	for _, item := range bundle.Items {
		royalty, itemDiags := e.lookupRoyalty(item.Asset, item.TokenID, share)
		diags = append(diags, itemDiags...)
		if royalty == nil {
			continue
		}
		legs = append(legs, royaltyLeg{recipient: royalty.Recipient, amount: new(big.Int).Set(royalty.Amount)})
		totalRoyalty.Add(totalRoyalty, royalty.Amount)
	}
	fee := BundleFee(bundle.Price, totalRoyalty, cfg.FeeBps)
	proceeds := new(big.Int).Sub(bundle.Price, totalRoyalty)
	proceeds.Sub(proceeds, fee)

	pullAmount := bundle.Price
	if native {
		pullAmount = paid
	}
	if err := e.payments.Pull(bundle.PayToken, caller, e.vault, pullAmount); err != nil {
		return fmt.Errorf("%w: %v", ErrInsufficientPayment, err)
	}

	bundle.Active = false
	if err := e.state.BundlePut(bundle); err != nil {
		return err
	}
	for _, diag := range diags {
		e.emit(diag)
	}
	e.emit(NewBundleSoldEvent(bundle, caller, totalRoyalty, fee, proceeds))

	for _, leg := range legs {
		if err := e.payOut(bundle.PayToken, leg.recipient, leg.amount); err != nil {
			return err
		}
	}
	if err := e.payOut(bundle.PayToken, cfg.FeeRecipient, fee); err != nil {
		return err
	}
	if err := e.payOut(bundle.PayToken, bundle.Seller, proceeds); err != nil {
		return err
	}
	if native && paid.Cmp(bundle.Price) > 0 {
		refund := new(big.Int).Sub(paid, bundle.Price)
		if err := e.payOut(bundle.PayToken, caller, refund); err != nil {
			e.logger.Warn("market: overpayment refund failed",
				"buyer", addr(caller), "amount", refund.String(), "err", err)
		}
	}
	for _, item := range bundle.Items {
		if err := e.assets.Transfer(e.vault, caller, item); err != nil {
			return err
		}
	}
	return nil
}
