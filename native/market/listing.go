package market

import (
	"fmt"
	"math/big"
)

// ListItem escrows the caller's asset with the engine and records an active
// direct listing. At most one active listing may exist per asset+token.
func (e *Engine) ListItem(caller [20]byte, asset [20]byte, tokenID *big.Int, standard Standard, quantity uint64, price *big.Int, payToken [20]byte) (*Listing, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return nil, err
	}
	listing, err := SanitizeListing(&Listing{
		Asset:     asset,
		TokenID:   tokenID,
		Standard:  standard,
		Quantity:  quantity,
		Seller:    caller,
		Price:     price,
		PayToken:  payToken,
		Active:    true,
		CreatedAt: e.now(),
	})
	if err != nil {
		return nil, err
	}
	key := AssetKey(listing.Asset, listing.TokenID)
	if existing, ok := e.state.ListingGet(key); ok && existing != nil && existing.Active {
		return nil, ErrAlreadyListed
	}
	if err := e.requireCustody(caller, listing.Item()); err != nil {
		return nil, err
	}
	// Escrow before committing the record: the incoming transfer is the
	// only fallible step and leaves no state behind if it aborts.
	if err := e.assets.Transfer(caller, e.vault, listing.Item()); err != nil {
		return nil, fmt.Errorf("market: escrow transfer failed: %w", err)
	}
	if err := e.state.ListingPut(listing); err != nil {
		return nil, err
	}
	e.emit(NewItemListedEvent(listing))
	return listing.Clone(), nil
}

// CancelItem deactivates the caller's listing and returns the escrowed asset.
func (e *Engine) CancelItem(caller [20]byte, asset [20]byte, tokenID *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return err
	}
	key := AssetKey(asset, tokenID)
	listing, err := e.loadListing(key)
	if err != nil {
		return err
	}
	if listing.Seller != caller {
		return ErrNotSeller
	}
	listing.Active = false
	if err := e.state.ListingPut(listing); err != nil {
		return err
	}
	e.emit(NewItemCancelledEvent(listing))
	return e.assets.Transfer(e.vault, listing.Seller, listing.Item())
}

// BuyItem settles an active listing for the caller. Native listings require
// paid to cover the price; token-denominated listings pull the price from
// the buyer's prior authorization and reject any native payment. The state
// commit and sale notification happen before any outgoing transfer; payouts
// draw on value already held by the vault. A failed best-effort overpayment
// refund is logged and does not fail the sale. A completed sale cascades the
// cancellation of every other pending offer on the asset.
func (e *Engine) BuyItem(caller [20]byte, asset [20]byte, tokenID *big.Int, paid *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return err
	}
	key := AssetKey(asset, tokenID)
	listing, err := e.loadListing(key)
	if err != nil {
		return err
	}
	if paid == nil {
		paid = big.NewInt(0)
	}
	if paid.Sign() < 0 {
		return fmt.Errorf("market: negative payment")
	}
	native := listing.PayToken == NativeToken
	if native {
		if paid.Cmp(listing.Price) < 0 {
			return ErrInsufficientPayment
		}
	} else if paid.Sign() > 0 {
		return ErrWrongDenomination
	}

	cfg := e.snapshot()
	royalty, diags := e.lookupRoyalty(listing.Asset, listing.TokenID, listing.Price)
	settlement := ComputeSettlement(listing.Price, royalty, cfg.FeeBps)

	// Pull the buyer's funds into the vault. This is the last fallible
	// external interaction before the commit.
	pullAmount := listing.Price
	if native {
		pullAmount = paid
	}
	if err := e.payments.Pull(listing.PayToken, caller, e.vault, pullAmount); err != nil {
		return fmt.Errorf("%w: %v", ErrInsufficientPayment, err)
	}

	listing.Active = false
	if err := e.state.ListingPut(listing); err != nil {
		return err
	}
	for _, diag := range diags {
		e.emit(diag)
	}
	e.emit(NewItemSoldEvent(listing, caller, settlement))

	if err := e.disburse(listing.PayToken, settlement, cfg.FeeRecipient, listing.Seller); err != nil {
		return err
	}
	if native && paid.Cmp(listing.Price) > 0 {
		refund := new(big.Int).Sub(paid, listing.Price)
		if err := e.payOut(listing.PayToken, caller, refund); err != nil {
			e.logger.Warn("market: overpayment refund failed",
				"buyer", addr(caller), "amount", refund.String(), "err", err)
		}
	}
	if err := e.assets.Transfer(e.vault, caller, listing.Item()); err != nil {
		return err
	}
	return e.cascadeCancel(key)
}
